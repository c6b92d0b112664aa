// crud.go — общие обработчики CRUD-операций над сущностью.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	apierrors "github.com/Vladimir-Titov/challengeup/internal/api/errors"
	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// headerTotalCount — количество записей, удовлетворяющих фильтрам, без пагинации.
const headerTotalCount = "X-Total-Count"

// entityCRUD — операции сервиса сущности, используемые обработчиками.
type entityCRUD[E any] interface {
	List(ctx context.Context, s query.Search) ([]*E, error)
	Count(ctx context.Context, filters ...query.Filter) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*E, error)
	Create(ctx context.Context, values query.Values) (*E, error)
	UpdateByID(ctx context.Context, id uuid.UUID, payload query.Values) (*E, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (*E, error)
}

// validator — тело запроса с проверкой полей.
type validator interface {
	validate() error
}

func listEntities[E any](h *APIHandler, w http.ResponseWriter, r *http.Request, svc entityCRUD[E], t query.Table) {
	search, err := parseSearch(r, t)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	items, err := svc.List(r.Context(), search)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	total, err := svc.Count(r.Context(), search.Filters...)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set(headerTotalCount, strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, items)
}

func getEntity[E any](h *APIHandler, w http.ResponseWriter, r *http.Request, svc entityCRUD[E]) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	e, err := svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// createEntity декодирует тело body, проверяет его через validate
// и создаёт сущность из values(body).
func createEntity[E any, B any](
	h *APIHandler, w http.ResponseWriter, r *http.Request, svc entityCRUD[E],
	validate func(B) error, values func(B) query.Values,
) {
	var body B
	if err := decodeBody(w, r, &body); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if err := validate(body); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	e, err := svc.Create(r.Context(), values(body))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func updateEntity[E any, B any](
	h *APIHandler, w http.ResponseWriter, r *http.Request, svc entityCRUD[E],
	validate func(B) error, values func(B) query.Values,
) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	var body B
	if err := decodeBody(w, r, &body); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if err := validate(body); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	e, err := svc.UpdateByID(r.Context(), id, values(body))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// deleteEntity архивирует сущность. respond формирует тело ответа;
// nil — вернуть архивированную сущность.
func deleteEntity[E any](
	h *APIHandler, w http.ResponseWriter, r *http.Request, svc entityCRUD[E],
	respond func(*E) any,
) {
	id, err := pathUUID(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	e, err := svc.DeleteByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if respond == nil {
		writeJSON(w, http.StatusOK, e)
		return
	}
	writeJSON(w, http.StatusOK, respond(e))
}

func validateBody[B validator](b B) error { return b.validate() }

func noValidation[B any](B) error { return nil }
