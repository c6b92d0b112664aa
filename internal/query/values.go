package query

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FiltersFromQuery строит фильтры из параметров URL. Ключи из reserved
// (limit, offset, order_by) пропускаются. Строковые значения приводятся
// к типу столбца: uuid, целое, булево, RFC 3339, значение перечисления.
// Для in/notin значение — список через запятую, для is/isnot — null, true или false.
// Повторяющийся ключ — ErrInvalidValue.
func FiltersFromQuery(values url.Values, t Table, reserved ...string) ([]Filter, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !slices.Contains(reserved, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	filters := make([]Filter, 0, len(keys))
	for _, k := range keys {
		f, err := ParseFilter(k, nil, t)
		if err != nil {
			return nil, err
		}
		if len(values[k]) > 1 {
			return nil, fmt.Errorf("%w: %q: параметр указан %d раз", ErrInvalidValue, k, len(values[k]))
		}
		col, _ := t.Column(f.Column)
		f.Value, err = convertQueryValue(col, f.Op, values.Get(k))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidValue, k, err)
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// convertQueryValue приводит строку из URL к значению фильтра.
func convertQueryValue(col Column, op Op, raw string) (any, error) {
	switch op {
	case OpIn, OpNotIn:
		if raw == "" {
			return []any{}, nil
		}
		parts := strings.Split(raw, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			v, err := convertScalar(col, strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case OpIs, OpIsNot:
		switch strings.ToLower(raw) {
		case "null":
			return nil, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, fmt.Errorf("ожидается null, true или false, получено %q", raw)
		}
	case OpLike, OpILike:
		if col.Type != TypeString && col.Type != TypeEnum {
			return nil, fmt.Errorf("шаблон допустим только для строковых столбцов (%s: %s)", col.Name, col.Type)
		}
		return raw, nil
	default:
		return convertScalar(col, raw)
	}
}

// convertScalar приводит одно значение к типу столбца.
func convertScalar(col Column, raw string) (any, error) {
	switch col.Type {
	case TypeUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("некорректный UUID %q", raw)
		}
		return id, nil
	case TypeInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("некорректное целое число %q", raw)
		}
		return n, nil
	case TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("некорректное булево значение %q", raw)
		}
		return b, nil
	case TypeTimestamp:
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("некорректная дата %q (ожидается RFC 3339)", raw)
		}
		return ts.UTC(), nil
	case TypeEnum:
		if !slices.Contains(col.Enum, raw) {
			return nil, fmt.Errorf("недопустимое значение %q, допустимые: %s", raw, strings.Join(col.Enum, ", "))
		}
		return raw, nil
	default:
		return raw, nil
	}
}
