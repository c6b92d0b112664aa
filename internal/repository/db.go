package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// Conn — соединение, взятое из пула.
type Conn interface {
	DBTX
	Release()
}

// ConnPool — источник соединений.
type ConnPool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// pgxConnPool адаптирует *pgxpool.Pool к ConnPool.
type pgxConnPool struct {
	pool *pgxpool.Pool
}

func (p pgxConnPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// connKey — ключ контекста для текущего соединения или транзакции.
type connKey struct{}

// withExecutor привязывает исполнителя запросов к контексту.
func withExecutor(ctx context.Context, q DBTX) context.Context {
	return context.WithValue(ctx, connKey{}, q)
}

// executorFrom возвращает исполнителя, привязанного к контексту.
func executorFrom(ctx context.Context) (DBTX, bool) {
	q, ok := ctx.Value(connKey{}).(DBTX)
	return q, ok && q != nil
}

// DB управляет соединениями и транзакциями. Текущее соединение (или
// транзакция) хранится в context.Context, поэтому все репозитории,
// вызванные с одним контекстом внутри Connection или Transaction,
// работают на одном соединении.
//
// Соединение из контекста не предназначено для конкурентного
// использования: горутины, выполняющие запросы параллельно, должны
// получать собственные соединения (исходный контекст без привязки).
type DB struct {
	pool   ConnPool
	logger *slog.Logger
}

// NewDB создаёт DB поверх пула pgx.
func NewDB(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	return NewDBWithPool(pgxConnPool{pool: pool}, logger)
}

// NewDBWithPool создаёт DB поверх произвольного источника соединений.
func NewDBWithPool(pool ConnPool, logger *slog.Logger) *DB {
	return &DB{
		pool:   pool,
		logger: logger.With(slog.String("component", "db")),
	}
}

// Connection выполняет fn с соединением, привязанным к контексту.
// Если соединение уже привязано, fn выполняется на нём и новое
// не берётся. Взятое соединение возвращается в пул при любом исходе fn.
func (db *DB) Connection(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := executorFrom(ctx); ok {
		return fn(ctx)
	}

	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения соединения: %w", err)
	}
	defer conn.Release()

	return fn(withExecutor(ctx, conn))
}

// Transaction выполняет fn в транзакции. При ошибке fn — откат,
// при успехе — коммит. Вложенный вызов открывает точку сохранения:
// её откат не затрагивает внешнюю транзакцию.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.Connection(ctx, func(ctx context.Context) error {
		q, _ := executorFrom(ctx)

		tx, err := q.Begin(ctx)
		if err != nil {
			return fmt.Errorf("ошибка начала транзакции: %w", err)
		}
		// Откат выполняется и при отменённом ctx; после коммита — no-op.
		defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

		if err := fn(withExecutor(ctx, tx)); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("ошибка фиксации транзакции: %w", classify(err))
		}
		return nil
	})
}

// --- Выполнение скомпилированных запросов ---

// exec выполняет fn на соединении контекста с логированием и метриками.
func (db *DB) exec(ctx context.Context, table, operation string, st query.Statement,
	fn func(ctx context.Context, q DBTX) error,
) error {
	start := time.Now()
	db.logger.DebugContext(ctx, "SQL-запрос",
		slog.String("table", table),
		slog.String("operation", operation),
		slog.String("sql", st.SQL),
		slog.Int("args", len(st.Args)),
	)

	err := db.Connection(ctx, func(ctx context.Context) error {
		q, _ := executorFrom(ctx)
		return fn(ctx, q)
	})
	observe(table, operation, start, err)
	return err
}

// scanEntity отображает строку на сущность по db-тегам.
func scanEntity[E any](row pgx.CollectableRow) (*E, error) {
	e, err := pgx.RowToAddrOfStructByName[E](row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRowCoercion, err)
	}
	return e, nil
}

// fetchAll выполняет запрос и возвращает все строки как сущности.
func fetchAll[E any](ctx context.Context, db *DB, table, operation string, st query.Statement) ([]*E, error) {
	var result []*E
	err := db.exec(ctx, table, operation, st, func(ctx context.Context, q DBTX) error {
		rows, err := q.Query(ctx, st.SQL, st.Args...)
		if err != nil {
			return err
		}
		result, err = pgx.CollectRows(rows, scanEntity[E])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка %s (%s): %w", operation, table, classify(err))
	}
	return result, nil
}

// fetchOne выполняет запрос и возвращает первую строку или ErrNotFound.
func fetchOne[E any](ctx context.Context, db *DB, table, operation string, st query.Statement) (*E, error) {
	var result *E
	err := db.exec(ctx, table, operation, st, func(ctx context.Context, q DBTX) error {
		rows, err := q.Query(ctx, st.SQL, st.Args...)
		if err != nil {
			return err
		}
		result, err = pgx.CollectOneRow(rows, scanEntity[E])
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка %s (%s): %w", operation, table, classify(err))
	}
	return result, nil
}

// fetchValue выполняет запрос, возвращающий одно скалярное значение.
func fetchValue[T any](ctx context.Context, db *DB, table, operation string, st query.Statement) (T, error) {
	var result T
	err := db.exec(ctx, table, operation, st, func(ctx context.Context, q DBTX) error {
		return q.QueryRow(ctx, st.SQL, st.Args...).Scan(&result)
	})
	if err != nil {
		return result, fmt.Errorf("ошибка %s (%s): %w", operation, table, classify(err))
	}
	return result, nil
}
