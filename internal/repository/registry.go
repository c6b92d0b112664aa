package repository

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// Repositories — набор репозиториев всех сущностей над общим DB.
// Состояние соединения хранится в контексте, поэтому набор создаётся
// один раз при старте и используется всеми запросами.
type Repositories struct {
	DB             *DB
	Challenges     *EntityRepository[model.Challenge]
	Users          *EntityRepository[model.User]
	UserContacts   *EntityRepository[model.UserContact]
	UserChallenges *EntityRepository[model.UserChallenge]
}

// NewRepositories создаёт репозитории поверх пула pgx.
func NewRepositories(pool *pgxpool.Pool, logger *slog.Logger) *Repositories {
	return NewRepositoriesWithDB(NewDB(pool, logger))
}

// NewRepositoriesWithDB создаёт репозитории поверх готового DB.
func NewRepositoriesWithDB(db *DB) *Repositories {
	return &Repositories{
		DB:             db,
		Challenges:     NewEntityRepository[model.Challenge](db, model.ChallengesTable),
		Users:          NewEntityRepository[model.User](db, model.UsersTable),
		UserContacts:   NewEntityRepository[model.UserContact](db, model.UserContactsTable),
		UserChallenges: NewEntityRepository[model.UserChallenge](db, model.UserChallengesTable),
	}
}
