// user_contacts.go — обработчики /api/v1/user-contacts
// и /api/v1/users/{user_id}/contacts.
package handlers

import (
	"net/http"
	"strconv"

	apierrors "github.com/Vladimir-Titov/challengeup/internal/api/errors"
	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// messageResponse — ответ с текстовым сообщением.
type messageResponse struct {
	Message string `json:"message"`
}

// ListUserContacts — GET /api/v1/user-contacts.
func (h *APIHandler) ListUserContacts(w http.ResponseWriter, r *http.Request) {
	listEntities[model.UserContact](h, w, r, h.services.UserContacts, model.UserContactsTable)
}

// ListContactsByUser — GET /api/v1/users/{user_id}/contacts.
// Несуществующий пользователь — 404.
func (h *APIHandler) ListContactsByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	search, err := parseSearch(r, model.UserContactsTable)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	items, err := h.services.UserContacts.ListByUser(r.Context(), userID, search)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	total, err := h.services.UserContacts.CountByUser(r.Context(), userID, search.Filters...)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set(headerTotalCount, strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, items)
}

// CreateUserContact — POST /api/v1/user-contacts.
func (h *APIHandler) CreateUserContact(w http.ResponseWriter, r *http.Request) {
	createEntity[model.UserContact](h, w, r, h.services.UserContacts, validateBody[userContactCreateBody], userContactCreateBody.values)
}

// GetUserContact — GET /api/v1/user-contacts/{id}.
func (h *APIHandler) GetUserContact(w http.ResponseWriter, r *http.Request) {
	getEntity[model.UserContact](h, w, r, h.services.UserContacts)
}

// UpdateUserContact — PATCH /api/v1/user-contacts/{id}. Меняются только contact_type и contact.
func (h *APIHandler) UpdateUserContact(w http.ResponseWriter, r *http.Request) {
	updateEntity[model.UserContact](h, w, r, h.services.UserContacts, validateBody[userContactUpdateBody], userContactUpdateBody.values)
}

// DeleteUserContact — DELETE /api/v1/user-contacts/{id}. Возвращает сообщение.
func (h *APIHandler) DeleteUserContact(w http.ResponseWriter, r *http.Request) {
	deleteEntity[model.UserContact](h, w, r, h.services.UserContacts, func(*model.UserContact) any {
		return messageResponse{Message: "Контакт пользователя удалён"}
	})
}
