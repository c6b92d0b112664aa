// Пакет repository — слой доступа к данным PostgreSQL.
// Запросы строит пакет query, выполнение идёт через pgx
// на соединении, привязанном к контексту (см. DB).
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrReference — ссылка на несуществующую запись (внешний ключ).
	ErrReference = errors.New("ссылка на несуществующую запись")
	// ErrInvalidData — значение отвергнуто БД (NOT NULL, тип, перечисление).
	ErrInvalidData = errors.New("некорректные данные")
	// ErrAmbiguous — условиям соответствует больше одной записи.
	ErrAmbiguous = errors.New("найдено несколько записей")
	// ErrRowCoercion — строка результата не отображается на сущность.
	ErrRowCoercion = errors.New("ошибка преобразования строки в сущность")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Conn, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
// Begin на pgx.Tx открывает точку сохранения (вложенная транзакция).
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// classify сопоставляет ошибки PostgreSQL с ошибками слоя репозиториев.
// Исходная ошибка остаётся в цепочке.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", ErrReference, err)
	}
	switch pgErr.Code {
	case "23502", // not_null_violation
		"23514", // check_violation
		"22P02", // invalid_text_representation
		"22001": // string_data_right_truncation
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return err
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isForeignKeyViolation проверяет, является ли ошибка нарушением внешнего ключа.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}
