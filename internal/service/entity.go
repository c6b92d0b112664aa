// Пакет service — бизнес-логика ChallengeUp.
// Сервисы делегируют операции репозиториям сущностей и переводят
// ошибки слоя данных в ошибки сервисного слоя.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Vladimir-Titov/challengeup/internal/query"
	"github.com/Vladimir-Titov/challengeup/internal/repository"
)

// EntityStore — операции хранилища сущности, используемые сервисами.
// Реализуется *repository.EntityRepository[E].
type EntityStore[E any] interface {
	Table() query.Table
	Search(ctx context.Context, s query.Search) ([]*E, error)
	Count(ctx context.Context, filters ...query.Filter) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*E, error)
	Create(ctx context.Context, values query.Values) (*E, error)
	UpdateByID(ctx context.Context, id uuid.UUID, payload query.Values) (*E, error)
	ArchiveByID(ctx context.Context, id uuid.UUID, extra query.Values) (*E, error)
}

// entityMessages — формулировки ошибок для конкретной сущности.
type entityMessages struct {
	// notFound — формат с одним %s для id
	notFound string
	conflict string
}

// entityService — CRUD-операции над одной сущностью с кэшем по id.
// Встраивается в сервисы конкретных сущностей.
type entityService[E any] struct {
	store  EntityStore[E]
	cache  *EntityCache[E]
	msgs   entityMessages
	logger *slog.Logger
}

// List возвращает сущности по фильтрам с сортировкой и пагинацией.
func (s *entityService[E]) List(ctx context.Context, search query.Search) ([]*E, error) {
	items, err := s.store.Search(ctx, search)
	if err != nil {
		return nil, s.translate(err, uuid.Nil)
	}
	return items, nil
}

// Count возвращает количество сущностей по фильтрам.
func (s *entityService[E]) Count(ctx context.Context, filters ...query.Filter) (int64, error) {
	n, err := s.store.Count(ctx, filters...)
	if err != nil {
		return 0, s.translate(err, uuid.Nil)
	}
	return n, nil
}

// Create создаёт сущность.
func (s *entityService[E]) Create(ctx context.Context, values query.Values) (*E, error) {
	e, err := s.store.Create(ctx, values)
	if err != nil {
		return nil, s.translate(err, uuid.Nil)
	}
	s.logger.Info("Запись создана", slog.String("id", entityID(e).String()))
	return e, nil
}

// GetByID возвращает сущность по id или ErrNotFound.
func (s *entityService[E]) GetByID(ctx context.Context, id uuid.UUID) (*E, error) {
	if e, ok := s.cache.Get(id); ok {
		return e, nil
	}
	gen := s.cache.Generation()
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	s.cache.SetIfFresh(id, e, gen)
	return e, nil
}

// UpdateByID обновляет сущность по id или возвращает ErrNotFound.
func (s *entityService[E]) UpdateByID(ctx context.Context, id uuid.UUID, payload query.Values) (*E, error) {
	s.cache.Delete(id)
	e, err := s.store.UpdateByID(ctx, id, payload)
	// Повторная инвалидация: чтение, начатое до записи, могло успеть
	// положить старую строку в кэш.
	s.cache.Delete(id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	s.logger.Info("Запись обновлена",
		slog.String("id", id.String()),
		slog.Int("fields", len(payload)),
	)
	return e, nil
}

// DeleteByID архивирует сущность (мягкое удаление) и возвращает её.
func (s *entityService[E]) DeleteByID(ctx context.Context, id uuid.UUID) (*E, error) {
	s.cache.Delete(id)
	e, err := s.store.ArchiveByID(ctx, id, nil)
	s.cache.Delete(id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	s.logger.Info("Запись архивирована", slog.String("id", id.String()))
	return e, nil
}

// translate переводит ошибки репозитория и компилятора запросов
// в ошибки сервисного слоя. Детали ошибок БД наружу не передаются.
func (s *entityService[E]) translate(err error, id uuid.UUID) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: "+s.msgs.notFound, ErrNotFound, id)
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrAmbiguous):
		return fmt.Errorf("%w: %s", ErrConflict, s.msgs.conflict)
	case errors.Is(err, repository.ErrReference):
		return fmt.Errorf("%w: %w", ErrValidation, repository.ErrReference)
	case errors.Is(err, repository.ErrInvalidData):
		return fmt.Errorf("%w: %w", ErrValidation, repository.ErrInvalidData)
	case errors.Is(err, query.ErrUnknownFilter),
		errors.Is(err, query.ErrUnknownColumn),
		errors.Is(err, query.ErrInvalidValue),
		errors.Is(err, query.ErrInvalidPlan):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		return fmt.Errorf("%s: %w", s.store.Table().Name, err)
	}
}

// entityID возвращает id сущности, если тип его предоставляет.
func entityID[E any](e *E) uuid.UUID {
	if v, ok := any(e).(interface{ EntityID() uuid.UUID }); ok {
		return v.EntityID()
	}
	return uuid.Nil
}
