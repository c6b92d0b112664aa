// users.go — обработчики /api/v1/users.
package handlers

import (
	"net/http"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// ListUsers — GET /api/v1/users.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	listEntities[model.User](h, w, r, h.services.Users, model.UsersTable)
}

// CreateUser — POST /api/v1/users. Все поля необязательны.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	createEntity[model.User](h, w, r, h.services.Users, noValidation[userBody], userBody.values)
}

// GetUser — GET /api/v1/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	getEntity[model.User](h, w, r, h.services.Users)
}

// UpdateUser — PATCH /api/v1/users/{id}.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	updateEntity[model.User](h, w, r, h.services.Users, noValidation[userBody], userBody.values)
}

// DeleteUser — DELETE /api/v1/users/{id}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	deleteEntity[model.User](h, w, r, h.services.Users, nil)
}
