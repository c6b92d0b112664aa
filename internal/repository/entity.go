package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// EntityRepository — обобщённый репозиторий сущности E над одной таблицей.
// E — структура с db-тегами, совпадающими со столбцами таблицы.
// Все операции выполняются на соединении из контекста (см. DB.Connection),
// поэтому один экземпляр безопасно разделять между запросами.
type EntityRepository[E any] struct {
	db    *DB
	table query.Table
	base  *query.BaseQuery
}

// NewEntityRepository создаёт репозиторий сущности для таблицы table.
func NewEntityRepository[E any](db *DB, table query.Table) *EntityRepository[E] {
	return &EntityRepository[E]{db: db, table: table}
}

// Table возвращает дескриптор таблицы репозитория.
func (r *EntityRepository[E]) Table() query.Table {
	return r.table
}

// WithBaseQuery возвращает копию репозитория, в которой поиск, подсчёт и
// получение по id строятся поверх base. Запись и блокировка строк по-прежнему
// идут по таблице.
func (r *EntityRepository[E]) WithBaseQuery(base *query.BaseQuery) *EntityRepository[E] {
	cp := *r
	cp.base = base
	return &cp
}

// --- Чтение ---

// Search возвращает строки, удовлетворяющие фильтрам, с сортировкой и пагинацией.
func (r *EntityRepository[E]) Search(ctx context.Context, s query.Search) ([]*E, error) {
	st, err := query.Select(r.table, r.base, s).Compile()
	if err != nil {
		return nil, err
	}
	return fetchAll[E](ctx, r.db, r.table.Name, "search", st)
}

// SearchForUpdate — как Search, но с блокировкой найденных строк до конца
// транзакции. skipLocked пропускает строки, уже заблокированные другими.
// Вне Transaction блокировка снимается сразу после запроса.
func (r *EntityRepository[E]) SearchForUpdate(ctx context.Context, s query.Search, skipLocked bool) ([]*E, error) {
	st, err := query.SelectForUpdate(r.table, s, skipLocked).Compile()
	if err != nil {
		return nil, err
	}
	return fetchAll[E](ctx, r.db, r.table.Name, "search_for_update", st)
}

// SearchFirstRow возвращает первую строку поиска или nil, если строк нет.
func (r *EntityRepository[E]) SearchFirstRow(ctx context.Context, s query.Search) (*E, error) {
	one := 1
	s.Limit = &one
	rows, err := r.Search(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Count возвращает количество строк, удовлетворяющих фильтрам.
func (r *EntityRepository[E]) Count(ctx context.Context, filters ...query.Filter) (int64, error) {
	st, err := query.Count(r.table, r.base, filters).Compile()
	if err != nil {
		return 0, err
	}
	return fetchValue[int64](ctx, r.db, r.table.Name, "count", st)
}

// GetByID возвращает запись по первичному ключу или ErrNotFound.
func (r *EntityRepository[E]) GetByID(ctx context.Context, id uuid.UUID) (*E, error) {
	one := 1
	st, err := query.Select(r.table, r.base, query.Search{
		Filters: []query.Filter{query.ByID(r.table, id)},
		Limit:   &one,
	}).Compile()
	if err != nil {
		return nil, err
	}
	return fetchOne[E](ctx, r.db, r.table.Name, "get_by_id", st)
}

// --- Запись ---

// Create вставляет одну запись и возвращает её со значениями по умолчанию.
func (r *EntityRepository[E]) Create(ctx context.Context, values query.Values) (*E, error) {
	st, err := query.Insert(r.table, values).Compile()
	if err != nil {
		return nil, err
	}
	return fetchOne[E](ctx, r.db, r.table.Name, "create", st)
}

// CreateMany вставляет несколько записей одним запросом. Ключи, отсутствующие
// в отдельной строке, получают значение по умолчанию. Пустой вход — пустой
// результат без обращения к БД.
func (r *EntityRepository[E]) CreateMany(ctx context.Context, rows []query.Values) ([]*E, error) {
	if len(rows) == 0 {
		return []*E{}, nil
	}
	st, err := query.Insert(r.table, rows...).Compile()
	if err != nil {
		return nil, err
	}
	return fetchAll[E](ctx, r.db, r.table.Name, "create_many", st)
}

// GetOrCreate ищет запись с точным совпадением всех values, иначе создаёт её.
// Возвращает запись и признак создания. Больше одного совпадения — ErrAmbiguous.
// Поиск и вставка выполняются в одной транзакции.
func (r *EntityRepository[E]) GetOrCreate(ctx context.Context, values query.Values) (*E, bool, error) {
	var (
		entity  *E
		created bool
	)
	err := r.db.Transaction(ctx, func(ctx context.Context) error {
		found, err := r.Search(ctx, query.Search{Filters: query.EqualityFilters(values)})
		if err != nil {
			return err
		}
		switch len(found) {
		case 0:
			entity, err = r.Create(ctx, values)
			created = err == nil
			return err
		case 1:
			entity = found[0]
			return nil
		default:
			return fmt.Errorf("%w: %s, совпадений: %d", ErrAmbiguous, r.table.Name, len(found))
		}
	})
	if err != nil {
		return nil, false, err
	}
	return entity, created, nil
}

// Update обновляет все строки, удовлетворяющие фильтрам, и возвращает их.
// Столбец updated всегда получает текущее время сервера.
func (r *EntityRepository[E]) Update(ctx context.Context, payload query.Values, filters ...query.Filter) ([]*E, error) {
	st, err := query.Update(r.table, payload, filters...).Compile()
	if err != nil {
		return nil, err
	}
	return fetchAll[E](ctx, r.db, r.table.Name, "update", st)
}

// UpdateByID обновляет запись по первичному ключу или возвращает ErrNotFound.
func (r *EntityRepository[E]) UpdateByID(ctx context.Context, id uuid.UUID, payload query.Values) (*E, error) {
	st, err := query.Update(r.table, payload, query.ByID(r.table, id)).Compile()
	if err != nil {
		return nil, err
	}
	return fetchOne[E](ctx, r.db, r.table.Name, "update_by_id", st)
}

// ArchiveByID помечает запись архивной (мягкое удаление).
// extra дополняет обновление и может переопределить archived.
func (r *EntityRepository[E]) ArchiveByID(ctx context.Context, id uuid.UUID, extra query.Values) (*E, error) {
	return r.UpdateByID(ctx, id, archivePayload(extra))
}

// Archive помечает архивными все строки, удовлетворяющие фильтрам.
func (r *EntityRepository[E]) Archive(ctx context.Context, extra query.Values, filters ...query.Filter) ([]*E, error) {
	return r.Update(ctx, archivePayload(extra), filters...)
}

func archivePayload(extra query.Values) query.Values {
	payload := query.Values{query.ColumnArchived: true}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
