// challenges.go — обработчики /api/v1/challenges.
package handlers

import (
	"net/http"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// ListChallenges — GET /api/v1/challenges.
func (h *APIHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	listEntities[model.Challenge](h, w, r, h.services.Challenges, model.ChallengesTable)
}

// CreateChallenge — POST /api/v1/challenges. title обязателен.
func (h *APIHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	createEntity[model.Challenge](h, w, r, h.services.Challenges, challengeBody.validateCreate, challengeBody.values)
}

// GetChallenge — GET /api/v1/challenges/{id}.
func (h *APIHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	getEntity[model.Challenge](h, w, r, h.services.Challenges)
}

// UpdateChallenge — PATCH /api/v1/challenges/{id}.
func (h *APIHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	updateEntity[model.Challenge](h, w, r, h.services.Challenges, challengeBody.validateUpdate, challengeBody.values)
}

// DeleteChallenge — DELETE /api/v1/challenges/{id}. Возвращает архивированный челлендж.
func (h *APIHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	deleteEntity[model.Challenge](h, w, r, h.services.Challenges, nil)
}
