// Пакет database — подключение к PostgreSQL через pgxpool,
// применение миграций (golang-migrate) и проверка готовности.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vladimir-Titov/challengeup/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect создаёт пул подключений к PostgreSQL.
// Пока БД недоступна, ping повторяется с экспоненциальной паузой
// в пределах cfg.DBConnectTimeout.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns) //nolint:gosec // ограничено при загрузке конфигурации
	poolCfg.MinConns = int32(cfg.DBMinConns) //nolint:gosec // ограничено при загрузке конфигурации

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	ping := func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return struct{}{}, pool.Ping(pingCtx)
	}
	_, err = backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.DBConnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("PostgreSQL недоступен, повтор подключения",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", next),
			)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", cfg.DBMaxConns),
	)

	return pool, nil
}

// Open подключается к PostgreSQL (с повторами, см. Connect) и затем
// применяет миграции. Пока БД поднимается, до миграций дело не доходит.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(cfg, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// newMigrate создаёт экземпляр golang-migrate над embedded FS.
func newMigrate(cfg *config.Config) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	return m, nil
}

// Migrate применяет SQL-миграции из embedded FS к базе данных.
// Использует golang-migrate с драйвером pgx5.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// MigrateDown откатывает steps последних миграций (steps <= 0 — все).
func MigrateDown(cfg *config.Config, steps int, logger *slog.Logger) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка отката миграций: %w", err)
	}

	version, dirty, verr := m.Version()
	if errors.Is(verr, migrate.ErrNilVersion) {
		logger.Info("Все миграции откачены")
		return nil
	}
	logger.Info("Миграции откачены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// MigrationVersion возвращает текущую версию схемы.
// applied = false, если ни одна миграция не применена.
func MigrationVersion(cfg *config.Config) (version uint, dirty, applied bool, err error) {
	m, err := newMigrate(cfg)
	if err != nil {
		return 0, false, false, err
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("ошибка получения версии миграций: %w", err)
	}
	return version, dirty, true, nil
}

// Pinger — источник соединений, доступность которого можно проверить.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker — проверка готовности PostgreSQL для health endpoint.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	pool Pinger
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool Pinger) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady проверяет подключение к PostgreSQL через ping.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
