// params.go — разбор параметров запроса: id в пути, поиск, тело JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// Параметры списка, не являющиеся фильтрами.
const (
	paramOrderBy = "order_by"
	paramLimit   = "limit"
	paramOffset  = "offset"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	// maxBodySize — максимальный размер тела запроса
	maxBodySize = 1 << 20
)

// pathUUID извлекает UUID из параметра пути name.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return uuid.Nil, fmt.Errorf("некорректный параметр %s: %w", name, err)
	}
	return id, nil
}

// parseSearch строит параметры поиска из query string: фильтры по столбцам
// таблицы, order_by (через запятую, "-" — по убыванию), limit и offset.
func parseSearch(r *http.Request, t query.Table) (query.Search, error) {
	values := r.URL.Query()

	filters, err := query.FiltersFromQuery(values, t, paramOrderBy, paramLimit, paramOffset)
	if err != nil {
		return query.Search{}, err
	}

	limit, err := optionalInt(values.Get(paramLimit), paramLimit)
	if err != nil {
		return query.Search{}, err
	}
	offset, err := optionalInt(values.Get(paramOffset), paramOffset)
	if err != nil {
		return query.Search{}, err
	}
	l, o := paginationDefaults(limit, offset)

	s := query.Search{Filters: filters, Limit: &l, Offset: o}
	if raw := values.Get(paramOrderBy); raw != "" {
		for _, col := range strings.Split(raw, ",") {
			if col = strings.TrimSpace(col); col != "" {
				s.OrderBy = append(s.OrderBy, col)
			}
		}
	}
	return s, nil
}

func optionalInt(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s должен быть целым числом", query.ErrInvalidValue, name)
	}
	return &v, nil
}

// paginationDefaults нормализует параметры пагинации.
func paginationDefaults(limit, offset *int) (limitVal, offsetVal int) {
	l := defaultLimit
	o := 0

	if limit != nil {
		l = min(max(*limit, 1), maxLimit)
	}
	if offset != nil {
		o = max(*offset, 0)
	}

	return l, o
}

// errInvalidBody — тело запроса не является корректным JSON ожидаемой формы.
var errInvalidBody = errors.New("некорректное тело запроса")

// decodeBody строго декодирует JSON-тело в dst: неизвестные поля
// и данные после объекта запрещены.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: пустое тело", errInvalidBody)
		}
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: лишние данные после объекта", errInvalidBody)
	}
	return nil
}
