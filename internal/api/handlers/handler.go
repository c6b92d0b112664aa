// handler.go — основной обработчик API ChallengeUp.
// Объединяет health, OpenAPI и CRUD-обработчики сущностей.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Vladimir-Titov/challengeup/internal/api/errors"
	"github.com/Vladimir-Titov/challengeup/internal/api/openapi"
	"github.com/Vladimir-Titov/challengeup/internal/config"
	"github.com/Vladimir-Titov/challengeup/internal/service"
)

// Services — сервисы сущностей, используемые обработчиками.
type Services struct {
	Challenges     *service.ChallengeService
	Users          *service.UserService
	UserContacts   *service.UserContactService
	UserChallenges *service.UserChallengeService
}

// APIHandler — основной обработчик API.
type APIHandler struct {
	health   *HealthHandler
	services Services
	spec     []byte
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// OpenAPI-документ строится здесь один раз.
func NewAPIHandler(health *HealthHandler, services Services, logger *slog.Logger) (*APIHandler, error) {
	spec, err := openapi.Build("ChallengeUp API", config.Version, Resources(), NestedResources()...).MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &APIHandler{
		health:   health,
		services: services,
		spec:     spec,
		logger:   logger.With(slog.String("component", "api_handler")),
	}, nil
}

// Routes регистрирует маршруты API в router.
// auth оборачивает изменяющие запросы (POST, PATCH, DELETE); nil — без аутентификации.
func (h *APIHandler) Routes(r chi.Router, auth func(http.Handler) http.Handler) {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)
	r.Get("/openapi.json", h.OpenAPI)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", h.ListChallenges)
			r.With(auth).Post("/", h.CreateChallenge)
			r.Get("/{id}", h.GetChallenge)
			r.With(auth).Patch("/{id}", h.UpdateChallenge)
			r.With(auth).Delete("/{id}", h.DeleteChallenge)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.With(auth).Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.With(auth).Patch("/{id}", h.UpdateUser)
			r.With(auth).Delete("/{id}", h.DeleteUser)
			r.Get("/{user_id}/contacts", h.ListContactsByUser)
		})
		r.Route("/user-contacts", func(r chi.Router) {
			r.Get("/", h.ListUserContacts)
			r.With(auth).Post("/", h.CreateUserContact)
			r.Get("/{id}", h.GetUserContact)
			r.With(auth).Patch("/{id}", h.UpdateUserContact)
			r.With(auth).Delete("/{id}", h.DeleteUserContact)
		})
		r.Route("/user-challenges", func(r chi.Router) {
			r.Get("/", h.ListUserChallenges)
			r.With(auth).Post("/", h.CreateUserChallenge)
			r.Get("/{id}", h.GetUserChallenge)
			r.With(auth).Patch("/{id}", h.UpdateUserChallenge)
			r.With(auth).Delete("/{id}", h.DeleteUserChallenge)
		})
	})
}

// OpenAPI — GET /openapi.json.
func (h *APIHandler) OpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.spec)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Неклассифицированные ошибки логируются и отдаются как 500 без деталей.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
