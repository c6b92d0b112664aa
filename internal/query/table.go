// Пакет query — описание таблиц сущностей и компиляция планов запросов
// (выборка, вставка, обновление, подсчёт) в параметризованный SQL для PostgreSQL.
package query

import (
	"slices"

	"github.com/jackc/pgx/v5"
)

// ColumnType — тип столбца, используемый при разборе значений фильтров.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeUUID
	TypeInteger
	TypeBoolean
	TypeTimestamp
	TypeEnum
)

// String возвращает имя типа столбца (для OpenAPI и сообщений об ошибках).
func (t ColumnType) String() string {
	switch t {
	case TypeUUID:
		return "uuid"
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeTimestamp:
		return "timestamp"
	case TypeEnum:
		return "enum"
	default:
		return "string"
	}
}

// Column — описание столбца таблицы.
type Column struct {
	// Name — имя столбца в БД
	Name string
	// Type — тип значения
	Type ColumnType
	// Nullable — допускает ли столбец NULL
	Nullable bool
	// Enum — допустимые значения для TypeEnum
	Enum []string
	// ReadOnly — столбец заполняется сервером и не принимается от клиента
	ReadOnly bool
}

// Базовые столбцы, общие для всех сущностей.
const (
	ColumnID       = "id"
	ColumnCreated  = "created"
	ColumnUpdated  = "updated"
	ColumnArchived = "archived"
)

// BaseColumns возвращает описание общих столбцов сущности:
// id, created, updated, archived.
func BaseColumns() []Column {
	return []Column{
		{Name: ColumnID, Type: TypeUUID, ReadOnly: true},
		{Name: ColumnCreated, Type: TypeTimestamp, ReadOnly: true},
		{Name: ColumnUpdated, Type: TypeTimestamp, ReadOnly: true},
		{Name: ColumnArchived, Type: TypeBoolean},
	}
}

// Table — дескриптор таблицы сущности: схема, имя, первичный ключ, столбцы.
// Значение неизменяемое после создания и безопасно для конкурентного использования.
type Table struct {
	Schema     string
	Name       string
	PrimaryKey string
	Columns    []Column
}

// NewTable создаёт дескриптор таблицы с базовыми столбцами и
// первичным ключом id. columns добавляются после базовых.
func NewTable(schema, name string, columns ...Column) Table {
	return Table{
		Schema:     schema,
		Name:       name,
		PrimaryKey: ColumnID,
		Columns:    append(BaseColumns(), columns...),
	}
}

// Ident возвращает экранированное имя таблицы со схемой: "schema"."name".
func (t Table) Ident() string {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// Column возвращает описание столбца по имени.
func (t Table) Column(name string) (Column, bool) {
	i := slices.IndexFunc(t.Columns, func(c Column) bool { return c.Name == name })
	if i < 0 {
		return Column{}, false
	}
	return t.Columns[i], true
}

// HasColumn сообщает, есть ли в таблице столбец с таким именем.
func (t Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames возвращает имена столбцов в порядке объявления.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ref возвращает ссылку на столбец, квалифицированную именем таблицы.
func (t Table) ref(name string) string {
	return pgx.Identifier{t.Name, name}.Sanitize()
}

// quote экранирует одиночный идентификатор.
func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Columns — набор столбцов, по которым допустимы фильтры и сортировка.
// Реализуется Table и BaseQuery.
type Columns interface {
	HasColumn(name string) bool
}
