// user_challenges.go — обработчики /api/v1/user-challenges.
package handlers

import (
	"net/http"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// ListUserChallenges — GET /api/v1/user-challenges.
func (h *APIHandler) ListUserChallenges(w http.ResponseWriter, r *http.Request) {
	listEntities[model.UserChallenge](h, w, r, h.services.UserChallenges, model.UserChallengesTable)
}

// CreateUserChallenge — POST /api/v1/user-challenges. user_id и challenge_id обязательны.
func (h *APIHandler) CreateUserChallenge(w http.ResponseWriter, r *http.Request) {
	createEntity[model.UserChallenge](h, w, r, h.services.UserChallenges, userChallengeBody.validateCreate, userChallengeBody.values)
}

// GetUserChallenge — GET /api/v1/user-challenges/{id}.
func (h *APIHandler) GetUserChallenge(w http.ResponseWriter, r *http.Request) {
	getEntity[model.UserChallenge](h, w, r, h.services.UserChallenges)
}

// UpdateUserChallenge — PATCH /api/v1/user-challenges/{id}.
func (h *APIHandler) UpdateUserChallenge(w http.ResponseWriter, r *http.Request) {
	updateEntity[model.UserChallenge](h, w, r, h.services.UserChallenges, userChallengeBody.validateUpdate, userChallengeBody.values)
}

// DeleteUserChallenge — DELETE /api/v1/user-challenges/{id}.
func (h *APIHandler) DeleteUserChallenge(w http.ResponseWriter, r *http.Request) {
	deleteEntity[model.UserChallenge](h, w, r, h.services.UserChallenges, nil)
}
