package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// UserContactService — сервис контактов пользователей.
type UserContactService struct {
	*entityService[model.UserContact]
	users *UserService
}

// NewUserContactService создаёт сервис контактов. users нужен для
// проверки существования пользователя в ListByUser.
func NewUserContactService(
	store EntityStore[model.UserContact],
	users *UserService,
	cache *EntityCache[model.UserContact],
	logger *slog.Logger,
) *UserContactService {
	return &UserContactService{
		entityService: &entityService[model.UserContact]{
			store: store,
			cache: cache,
			msgs: entityMessages{
				notFound: "контакт пользователя с id %s не найден",
				conflict: "такой контакт уже зарегистрирован",
			},
			logger: logger.With(slog.String("component", "user_contact_service")),
		},
		users: users,
	}
}

// ListByUser возвращает контакты пользователя. Если пользователя нет —
// ErrNotFound. Фильтр по user_id добавляется к фильтрам search.
func (s *UserContactService) ListByUser(ctx context.Context, userID uuid.UUID, search query.Search) ([]*model.UserContact, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	search.Filters = byUser(userID, search.Filters)
	return s.List(ctx, search)
}

// CountByUser возвращает количество контактов пользователя по фильтрам.
// Существование пользователя не проверяется.
func (s *UserContactService) CountByUser(ctx context.Context, userID uuid.UUID, filters ...query.Filter) (int64, error) {
	return s.Count(ctx, byUser(userID, filters)...)
}

func byUser(userID uuid.UUID, filters []query.Filter) []query.Filter {
	return append([]query.Filter{query.Eq("user_id", userID)}, filters...)
}
