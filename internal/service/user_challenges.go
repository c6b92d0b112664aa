package service

import (
	"log/slog"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// UserChallengeService — сервис участия пользователей в челленджах.
type UserChallengeService struct {
	*entityService[model.UserChallenge]
}

// NewUserChallengeService создаёт сервис участий. cache может быть nil.
func NewUserChallengeService(
	store EntityStore[model.UserChallenge],
	cache *EntityCache[model.UserChallenge],
	logger *slog.Logger,
) *UserChallengeService {
	return &UserChallengeService{&entityService[model.UserChallenge]{
		store: store,
		cache: cache,
		msgs: entityMessages{
			notFound: "участие в челлендже с id %s не найдено",
			conflict: "участие в челлендже уже существует",
		},
		logger: logger.With(slog.String("component", "user_challenge_service")),
	}}
}
