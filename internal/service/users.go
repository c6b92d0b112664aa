package service

import (
	"log/slog"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// UserService — сервис пользователей.
type UserService struct {
	*entityService[model.User]
}

// NewUserService создаёт сервис пользователей. cache может быть nil.
func NewUserService(
	store EntityStore[model.User],
	cache *EntityCache[model.User],
	logger *slog.Logger,
) *UserService {
	return &UserService{&entityService[model.User]{
		store: store,
		cache: cache,
		msgs: entityMessages{
			notFound: "пользователь с id %s не найден",
			conflict: "пользователь с такими данными уже существует",
		},
		logger: logger.With(slog.String("component", "user_service")),
	}}
}
