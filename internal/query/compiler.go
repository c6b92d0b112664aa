package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// ErrInvalidPlan — план запроса внутренне противоречив.
var ErrInvalidPlan = errors.New("некорректный план запроса")

// psql — построитель с нумерованными плейсхолдерами PostgreSQL ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// nowUTC — выражение текущего времени UTC для столбца updated.
// clock_timestamp, а не now(): внутри транзакции значение растёт
// от обновления к обновлению.
const nowUTC = "timezone('utc', clock_timestamp())"

// Statement — скомпилированный запрос: SQL с плейсхолдерами $N и параметры.
type Statement struct {
	SQL  string
	Args []any
}

// Values — значения столбцов для вставки или обновления.
type Values map[string]any

// keys возвращает ключи в лексикографическом порядке.
func (v Values) keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BaseQuery — пользовательский SELECT, поверх которого строится поиск.
// Результат оборачивается как "(<select>) AS <alias>", фильтры и сортировка
// ссылаются на столбцы без квалификации.
type BaseQuery struct {
	// Select — исходный запрос (плейсхолдеры в формате '?')
	Select sq.SelectBuilder
	// Alias — псевдоним подзапроса
	Alias string
	// Columns — столбцы, которые возвращает Select
	Columns []string
}

// HasColumn сообщает, возвращает ли базовый запрос столбец name.
func (b *BaseQuery) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Search — параметры поиска: фильтры, сортировка и пагинация.
type Search struct {
	Filters []Filter
	// OrderBy — столбцы сортировки; префикс "-" означает DESC
	OrderBy []string
	// Limit — nil означает без ограничения
	Limit  *int
	Offset int
}

// Kind — вид плана запроса.
type Kind int

const (
	KindSelect Kind = iota
	KindCount
	KindInsert
	KindUpdate
)

// Plan — неизменяемое описание запроса над одной таблицей.
// Компилируется в Statement методом Compile.
type Plan struct {
	Kind  Kind
	Table Table
	// Base — необязательный базовый запрос (только для SELECT и COUNT)
	Base    *BaseQuery
	Filters []Filter
	OrderBy []string
	Limit   *int
	Offset  int
	// Lock — добавить FOR UPDATE (только SELECT по таблице)
	Lock       bool
	SkipLocked bool
	// Rows — строки для вставки
	Rows []Values
	// Payload — значения для обновления
	Payload Values
}

// Select — план выборки строк таблицы (или базового запроса).
func Select(t Table, base *BaseQuery, s Search) Plan {
	return Plan{
		Kind:    KindSelect,
		Table:   t,
		Base:    base,
		Filters: s.Filters,
		OrderBy: s.OrderBy,
		Limit:   s.Limit,
		Offset:  s.Offset,
	}
}

// SelectForUpdate — план выборки с блокировкой строк. Всегда строится
// по таблице, базовый запрос не используется.
func SelectForUpdate(t Table, s Search, skipLocked bool) Plan {
	p := Select(t, nil, s)
	p.Lock = true
	p.SkipLocked = skipLocked
	return p
}

// Count — план подсчёта строк по фильтрам.
func Count(t Table, base *BaseQuery, filters []Filter) Plan {
	return Plan{Kind: KindCount, Table: t, Base: base, Filters: filters}
}

// Insert — план вставки одной или нескольких строк.
func Insert(t Table, rows ...Values) Plan {
	return Plan{Kind: KindInsert, Table: t, Rows: rows}
}

// Update — план обновления строк, удовлетворяющих фильтрам.
func Update(t Table, payload Values, filters ...Filter) Plan {
	return Plan{Kind: KindUpdate, Table: t, Payload: payload, Filters: filters}
}

// ByID — фильтр по первичному ключу таблицы.
func ByID(t Table, id any) Filter {
	return Eq(t.PrimaryKey, id)
}

// Compile превращает план в SQL и параметры. Одинаковые планы дают
// побайтно одинаковый результат.
func (p Plan) Compile() (Statement, error) {
	if p.Lock && (p.Kind != KindSelect || p.Base != nil) {
		return Statement{}, fmt.Errorf("%w: FOR UPDATE допустим только для SELECT по таблице", ErrInvalidPlan)
	}

	var (
		sqlStr string
		args   []any
		err    error
	)
	switch p.Kind {
	case KindSelect:
		sqlStr, args, err = p.compileSelect()
	case KindCount:
		sqlStr, args, err = p.compileCount()
	case KindInsert:
		sqlStr, args, err = p.compileInsert()
	case KindUpdate:
		sqlStr, args, err = p.compileUpdate()
	default:
		err = fmt.Errorf("%w: неизвестный вид %d", ErrInvalidPlan, p.Kind)
	}
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sqlStr, Args: args}, nil
}

// --- Разрешение столбцов ---

// columns возвращает набор столбцов, к которому применяются фильтры.
func (p Plan) columns() Columns {
	if p.Base != nil {
		return p.Base
	}
	return p.Table
}

// ref возвращает ссылку на столбец: "table"."col" для таблицы,
// "col" для базового запроса.
func (p Plan) ref(name string) string {
	if p.Base != nil {
		return quote(name)
	}
	return p.Table.ref(name)
}

// where добавляет фильтры плана в построитель через add.
func (p Plan) where(add func(sq.Sqlizer)) error {
	cols := p.columns()
	for _, f := range sortFilters(p.Filters) {
		if !cols.HasColumn(f.Column) {
			return fmt.Errorf("%w: %q (нет столбца %q)", ErrUnknownFilter, f.Key, f.Column)
		}
		pred, err := f.predicate(p.ref(f.Column))
		if err != nil {
			return err
		}
		add(pred)
	}
	return nil
}

// from возвращает SELECT с источником: таблица или обёрнутый базовый запрос.
func (p Plan) from(columns ...string) sq.SelectBuilder {
	b := psql.Select(columns...)
	if p.Base != nil {
		return b.FromSelect(p.Base.Select, quote(p.Base.Alias))
	}
	return b.From(p.Table.Ident())
}

// --- SELECT ---

func (p Plan) compileSelect() (string, []any, error) {
	var b sq.SelectBuilder
	if p.Base != nil {
		b = p.from("*")
	} else {
		refs := make([]string, len(p.Table.Columns))
		for i, c := range p.Table.Columns {
			refs[i] = p.Table.ref(c.Name)
		}
		b = p.from(refs...)
	}

	if err := p.where(func(pred sq.Sqlizer) { b = b.Where(pred) }); err != nil {
		return "", nil, err
	}

	for _, o := range p.OrderBy {
		column, desc := strings.CutPrefix(o, "-")
		if !p.columns().HasColumn(column) {
			return "", nil, fmt.Errorf("%w: сортировка по %q", ErrUnknownColumn, column)
		}
		dir := " ASC"
		if desc {
			dir = " DESC"
		}
		b = b.OrderBy(p.ref(column) + dir)
	}

	if p.Limit != nil {
		if *p.Limit < 0 {
			return "", nil, fmt.Errorf("%w: limit %d < 0", ErrInvalidPlan, *p.Limit)
		}
		b = b.Limit(uint64(*p.Limit))
	}
	if p.Offset < 0 {
		return "", nil, fmt.Errorf("%w: offset %d < 0", ErrInvalidPlan, p.Offset)
	}
	if p.Offset > 0 {
		b = b.Offset(uint64(p.Offset))
	}

	if p.Lock {
		if p.SkipLocked {
			b = b.Suffix("FOR UPDATE SKIP LOCKED")
		} else {
			b = b.Suffix("FOR UPDATE")
		}
	}
	return b.ToSql()
}

// --- COUNT ---

func (p Plan) compileCount() (string, []any, error) {
	b := p.from("COUNT(*)")
	if err := p.where(func(pred sq.Sqlizer) { b = b.Where(pred) }); err != nil {
		return "", nil, err
	}
	return b.ToSql()
}

// --- INSERT ---

func (p Plan) compileInsert() (string, []any, error) {
	if p.Base != nil {
		return "", nil, fmt.Errorf("%w: базовый запрос не применим к INSERT", ErrInvalidPlan)
	}
	if len(p.Rows) == 0 {
		return "", nil, fmt.Errorf("%w: нет строк для вставки", ErrInvalidPlan)
	}

	// Объединение ключей всех строк; отсутствующие значения — DEFAULT.
	set := map[string]struct{}{}
	for _, row := range p.Rows {
		for k := range row {
			if !p.Table.HasColumn(k) {
				return "", nil, fmt.Errorf("%w: %q в таблице %s", ErrUnknownColumn, k, p.Table.Name)
			}
			set[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(set))
	for k := range set {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		// Все значения по умолчанию: явный DEFAULT для первичного ключа.
		columns = []string{p.Table.PrimaryKey}
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	b := psql.Insert(p.Table.Ident()).Columns(quoted...)
	for _, row := range p.Rows {
		vals := make([]any, len(columns))
		for i, c := range columns {
			if v, ok := row[c]; ok {
				vals[i] = bindValue(v)
			} else {
				vals[i] = sq.Expr("DEFAULT")
			}
		}
		b = b.Values(vals...)
	}
	return b.Suffix(p.returning()).ToSql()
}

// --- UPDATE ---

func (p Plan) compileUpdate() (string, []any, error) {
	if p.Base != nil {
		return "", nil, fmt.Errorf("%w: базовый запрос не применим к UPDATE", ErrInvalidPlan)
	}

	b := psql.Update(p.Table.Ident())
	for _, k := range p.Payload.keys() {
		if !p.Table.HasColumn(k) {
			return "", nil, fmt.Errorf("%w: %q в таблице %s", ErrUnknownColumn, k, p.Table.Name)
		}
		switch k {
		case p.Table.PrimaryKey, ColumnCreated:
			return "", nil, fmt.Errorf("%w: столбец %q не изменяется", ErrInvalidPlan, k)
		case ColumnUpdated:
			// Значение вызывающего игнорируется, ставится серверное время.
			continue
		}
		b = b.Set(quote(k), bindValue(p.Payload[k]))
	}
	if p.Table.HasColumn(ColumnUpdated) {
		b = b.Set(quote(ColumnUpdated), sq.Expr(nowUTC))
	}

	if err := p.where(func(pred sq.Sqlizer) { b = b.Where(pred) }); err != nil {
		return "", nil, err
	}
	return b.Suffix(p.returning()).ToSql()
}

// returning — RETURNING со всеми столбцами таблицы.
func (p Plan) returning() string {
	quoted := make([]string, len(p.Table.Columns))
	for i, c := range p.Table.Columns {
		quoted[i] = quote(c.Name)
	}
	return "RETURNING " + strings.Join(quoted, ", ")
}
