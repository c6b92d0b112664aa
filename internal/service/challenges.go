package service

import (
	"log/slog"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// ChallengeService — сервис челленджей.
type ChallengeService struct {
	*entityService[model.Challenge]
}

// NewChallengeService создаёт сервис челленджей. cache может быть nil.
func NewChallengeService(
	store EntityStore[model.Challenge],
	cache *EntityCache[model.Challenge],
	logger *slog.Logger,
) *ChallengeService {
	return &ChallengeService{&entityService[model.Challenge]{
		store: store,
		cache: cache,
		msgs: entityMessages{
			notFound: "челлендж с id %s не найден",
			conflict: "челлендж с такими данными уже существует",
		},
		logger: logger.With(slog.String("component", "challenge_service")),
	}}
}
