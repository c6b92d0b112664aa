package query

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Ошибки разбора фильтров и столбцов.
var (
	// ErrUnknownFilter — ключ фильтра не соответствует столбцу или оператору.
	ErrUnknownFilter = errors.New("неизвестный фильтр")
	// ErrUnknownColumn — столбец отсутствует в таблице или базовом запросе.
	ErrUnknownColumn = errors.New("неизвестный столбец")
	// ErrInvalidValue — значение фильтра не подходит оператору.
	ErrInvalidValue = errors.New("некорректное значение фильтра")
)

// Op — оператор сравнения фильтра.
type Op int

const (
	OpEq Op = iota
	OpLt
	OpLe
	OpGt
	OpGe
	OpNe
	OpIn
	OpNotIn
	OpIs
	OpIsNot
	OpLike
	OpILike
)

// opSuffixes — суффиксы ключей фильтров: "<column>_<suffix>".
var opSuffixes = map[string]Op{
	"lt":    OpLt,
	"le":    OpLe,
	"gt":    OpGt,
	"ge":    OpGe,
	"ne":    OpNe,
	"in":    OpIn,
	"notin": OpNotIn,
	"is":    OpIs,
	"isnot": OpIsNot,
	"like":  OpLike,
	"ilike": OpILike,
}

// String возвращает суффикс оператора (пустая строка для равенства).
func (o Op) String() string {
	for suffix, op := range opSuffixes {
		if op == o {
			return suffix
		}
	}
	return ""
}

// Filter — одно условие WHERE: столбец, оператор и значение.
// Key — исходный ключ фильтра ("title_ilike"), используется в сообщениях об ошибках.
type Filter struct {
	Key    string
	Column string
	Op     Op
	Value  any
}

func newFilter(column string, op Op, value any) Filter {
	key := column
	if op != OpEq {
		key = column + "_" + op.String()
	}
	return Filter{Key: key, Column: column, Op: op, Value: value}
}

// Eq — column = value (IS NULL для nil).
func Eq(column string, value any) Filter { return newFilter(column, OpEq, value) }

// Lt — column < value.
func Lt(column string, value any) Filter { return newFilter(column, OpLt, value) }

// Le — column <= value.
func Le(column string, value any) Filter { return newFilter(column, OpLe, value) }

// Gt — column > value.
func Gt(column string, value any) Filter { return newFilter(column, OpGt, value) }

// Ge — column >= value.
func Ge(column string, value any) Filter { return newFilter(column, OpGe, value) }

// Ne — column <> value (IS NOT NULL для nil).
func Ne(column string, value any) Filter { return newFilter(column, OpNe, value) }

// In — column IN (values...). Пустой список не совпадает ни с одной строкой.
func In(column string, values any) Filter { return newFilter(column, OpIn, values) }

// NotIn — column NOT IN (values...). Пустой список совпадает со всеми строками.
func NotIn(column string, values any) Filter { return newFilter(column, OpNotIn, values) }

// Is — column IS NULL / IS TRUE / IS FALSE.
func Is(column string, value any) Filter { return newFilter(column, OpIs, value) }

// IsNot — column IS NOT NULL / IS NOT TRUE / IS NOT FALSE.
func IsNot(column string, value any) Filter { return newFilter(column, OpIsNot, value) }

// Like — column LIKE pattern.
func Like(column string, pattern string) Filter { return newFilter(column, OpLike, pattern) }

// ILike — column ILIKE pattern (без учёта регистра).
func ILike(column string, pattern string) Filter { return newFilter(column, OpILike, pattern) }

// ParseFilter разбирает ключ фильтра: точное имя столбца — равенство,
// иначе "<column>_<op>", где op — один из поддерживаемых суффиксов.
func ParseFilter(key string, value any, columns Columns) (Filter, error) {
	if columns.HasColumn(key) {
		return Eq(key, value), nil
	}

	idx := strings.LastIndex(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownFilter, key)
	}
	column, suffix := key[:idx], key[idx+1:]

	op, ok := opSuffixes[suffix]
	if !ok {
		return Filter{}, fmt.Errorf("%w: %q (неподдерживаемый оператор %q)", ErrUnknownFilter, key, suffix)
	}
	if !columns.HasColumn(column) {
		return Filter{}, fmt.Errorf("%w: %q (нет столбца %q)", ErrUnknownFilter, key, column)
	}
	return Filter{Key: key, Column: column, Op: op, Value: value}, nil
}

// ParseFilters разбирает набор фильтров. Порядок результата детерминирован
// (сортировка по ключу), поэтому одинаковые входы дают одинаковый SQL.
func ParseFilters(raw map[string]any, columns Columns) ([]Filter, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]Filter, 0, len(keys))
	for _, k := range keys {
		f, err := ParseFilter(k, raw[k], columns)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// EqualityFilters строит фильтры равенства по всем парам values.
func EqualityFilters(values Values) []Filter {
	filters := make([]Filter, 0, len(values))
	for _, k := range values.keys() {
		filters = append(filters, Eq(k, values[k]))
	}
	return filters
}

// sortFilters упорядочивает фильтры по (столбец, оператор, ключ).
func sortFilters(filters []Filter) []Filter {
	sorted := slices.Clone(filters)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		return a.Key < b.Key
	})
	return sorted
}

// predicate строит условие WHERE для ссылки на столбец ref.
//
//nolint:cyclop // один case на оператор
func (f Filter) predicate(ref string) (sq.Sqlizer, error) {
	value := bindValue(f.Value)

	switch f.Op {
	case OpEq:
		if value == nil {
			return sq.Expr(ref + " IS NULL"), nil
		}
		return sq.Expr(ref+" = ?", value), nil
	case OpNe:
		if value == nil {
			return sq.Expr(ref + " IS NOT NULL"), nil
		}
		return sq.Expr(ref+" <> ?", value), nil
	case OpLt, OpLe, OpGt, OpGe, OpLike, OpILike:
		if value == nil {
			return nil, fmt.Errorf("%w: %q не допускает null", ErrInvalidValue, f.Key)
		}
		return sq.Expr(ref+" "+comparisonOps[f.Op]+" ?", value), nil
	case OpIn, OpNotIn:
		values, err := listValues(f.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidValue, f.Key, err)
		}
		if len(values) == 0 {
			if f.Op == OpIn {
				return sq.Expr("FALSE"), nil
			}
			return sq.Expr("TRUE"), nil
		}
		keyword := " IN ("
		if f.Op == OpNotIn {
			keyword = " NOT IN ("
		}
		return sq.Expr(ref+keyword+sq.Placeholders(len(values))+")", values...), nil
	case OpIs, OpIsNot:
		not := ""
		if f.Op == OpIsNot {
			not = "NOT "
		}
		switch v := value.(type) {
		case nil:
			return sq.Expr(ref + " IS " + not + "NULL"), nil
		case bool:
			if v {
				return sq.Expr(ref + " IS " + not + "TRUE"), nil
			}
			return sq.Expr(ref + " IS " + not + "FALSE"), nil
		default:
			return nil, fmt.Errorf("%w: %q допускает только null, true, false", ErrInvalidValue, f.Key)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, f.Key)
	}
}

var comparisonOps = map[Op]string{
	OpLt:    "<",
	OpLe:    "<=",
	OpGt:    ">",
	OpGe:    ">=",
	OpLike:  "LIKE",
	OpILike: "ILIKE",
}

// bindValue приводит значение к виду, пригодному для передачи драйверу:
// разыменовывает указатели, именованные строковые типы (перечисления)
// превращает в string.
func bindValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String && rv.Type() != reflect.TypeFor[string]() {
		return rv.String()
	}
	return rv.Interface()
}

// listValues превращает срез или массив в []any с приведёнными элементами.
// Байтовые массивы (uuid.UUID) списком не считаются.
func listValues(v any) ([]any, error) {
	if v == nil {
		return nil, errors.New("ожидается список, получен null")
	}
	rv := reflect.ValueOf(v)
	isList := rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	if !isList || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, fmt.Errorf("ожидается список, получен %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = bindValue(rv.Index(i).Interface())
	}
	return out, nil
}
