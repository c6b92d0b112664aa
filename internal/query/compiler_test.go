package query

import (
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
)

type contactKind string

var contacts = NewTable("challenges", "user_contacts",
	Column{Name: "user_id", Type: TypeUUID},
	Column{Name: "contact_type", Type: TypeEnum, Enum: []string{"email", "phone"}},
	Column{Name: "contact", Type: TypeString},
)

const contactsSelect = `SELECT "user_contacts"."id", "user_contacts"."created", "user_contacts"."updated", ` +
	`"user_contacts"."archived", "user_contacts"."user_id", "user_contacts"."contact_type", "user_contacts"."contact" ` +
	`FROM "challenges"."user_contacts"`

const contactsReturning = `RETURNING "id", "created", "updated", "archived", "user_id", "contact_type", "contact"`

func intPtr(n int) *int { return &n }

func TestCompileSelect_Table(t *testing.T) {
	c := qt.New(t)

	st, err := Select(contacts, nil, Search{
		Filters: []Filter{ILike("contact", "%@mail%"), Eq("archived", false)},
		OrderBy: []string{"-created", "contact"},
		Limit:   intPtr(10),
		Offset:  5,
	}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st.SQL, qt.Equals, contactsSelect+
		` WHERE "user_contacts"."archived" = $1 AND "user_contacts"."contact" ILIKE $2`+
		` ORDER BY "user_contacts"."created" DESC, "user_contacts"."contact" ASC LIMIT 10 OFFSET 5`)
	c.Assert(st.Args, qt.DeepEquals, []any{false, "%@mail%"})
}

func TestCompileSelect_NoLimit(t *testing.T) {
	c := qt.New(t)

	st, err := Select(contacts, nil, Search{}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st.SQL, qt.Equals, contactsSelect)
	c.Assert(st.Args, qt.HasLen, 0)
}

func TestCompile_Deterministic(t *testing.T) {
	c := qt.New(t)

	id := uuid.New()
	a := []Filter{Eq("contact_type", contactKind("email")), In("user_id", []uuid.UUID{id}), Gt("created", time.Unix(0, 0))}
	b := []Filter{a[2], a[0], a[1]}

	st1, err := Select(contacts, nil, Search{Filters: a}).Compile()
	c.Assert(err, qt.IsNil)
	st2, err := Select(contacts, nil, Search{Filters: b}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st1, qt.DeepEquals, st2)

	ins1, err := Insert(contacts, Values{"contact": "x", "user_id": id, "contact_type": "email"}).Compile()
	c.Assert(err, qt.IsNil)
	ins2, err := Insert(contacts, Values{"contact_type": "email", "user_id": id, "contact": "x"}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(ins1, qt.DeepEquals, ins2)
}

func TestCompileSelect_BaseQuery(t *testing.T) {
	c := qt.New(t)

	base := &BaseQuery{
		Select:  sq.Select("c.id", "c.title").From("challenges.challenges c").Where(sq.Eq{"c.archived": false}),
		Alias:   "active",
		Columns: []string{"id", "title"},
	}
	st, err := Select(contacts, base, Search{
		Filters: []Filter{Eq("title", "run")},
		OrderBy: []string{"title"},
	}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st.SQL, qt.Equals,
		`SELECT * FROM (SELECT c.id, c.title FROM challenges.challenges c WHERE c.archived = $1) AS "active"`+
			` WHERE "title" = $2 ORDER BY "title" ASC`)
	c.Assert(st.Args, qt.DeepEquals, []any{false, "run"})

	// Столбец таблицы, отсутствующий в базовом запросе, недоступен.
	_, err = Select(contacts, base, Search{Filters: []Filter{Eq("contact", "x")}}).Compile()
	c.Assert(err, qt.ErrorIs, ErrUnknownFilter)

	cnt, err := Count(contacts, base, nil).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(cnt.SQL, qt.Equals,
		`SELECT COUNT(*) FROM (SELECT c.id, c.title FROM challenges.challenges c WHERE c.archived = $1) AS "active"`)
}

func TestCompileSelect_ForUpdate(t *testing.T) {
	c := qt.New(t)

	st, err := SelectForUpdate(contacts, Search{Filters: []Filter{Eq("contact", "x")}}, false).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(strings.HasSuffix(st.SQL, ` WHERE "user_contacts"."contact" = $1 FOR UPDATE`), qt.IsTrue)

	st, err = SelectForUpdate(contacts, Search{Limit: intPtr(1)}, true).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(strings.HasSuffix(st.SQL, ` LIMIT 1 FOR UPDATE SKIP LOCKED`), qt.IsTrue)

	p := Count(contacts, nil, nil)
	p.Lock = true
	_, err = p.Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidPlan)

	p = Select(contacts, &BaseQuery{Select: sq.Select("1"), Alias: "b"}, Search{})
	p.Lock = true
	_, err = p.Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidPlan)
}

func TestCompileSelect_Errors(t *testing.T) {
	c := qt.New(t)

	_, err := Select(contacts, nil, Search{OrderBy: []string{"-nope"}}).Compile()
	c.Assert(err, qt.ErrorIs, ErrUnknownColumn)

	_, err = Select(contacts, nil, Search{Limit: intPtr(-1)}).Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidPlan)

	_, err = Select(contacts, nil, Search{Offset: -3}).Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidPlan)

	_, err = Select(contacts, nil, Search{Filters: []Filter{Lt("created", nil)}}).Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidValue)

	_, err = Select(contacts, nil, Search{Filters: []Filter{In("user_id", uuid.New())}}).Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidValue)
}

func TestCompileCount_Predicates(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		where  string
		args   int
	}{
		{"in", In("user_id", []uuid.UUID{uuid.New(), uuid.New()}), `"user_contacts"."user_id" IN ($1,$2)`, 2},
		{"notin", NotIn("contact", []string{"a"}), `"user_contacts"."contact" NOT IN ($1)`, 1},
		{"empty in", In("contact", []string{}), `FALSE`, 0},
		{"empty notin", NotIn("contact", []string{}), `TRUE`, 0},
		{"eq null", Eq("contact", nil), `"user_contacts"."contact" IS NULL`, 0},
		{"ne null", Ne("contact", nil), `"user_contacts"."contact" IS NOT NULL`, 0},
		{"ne", Ne("contact", "a"), `"user_contacts"."contact" <> $1`, 1},
		{"is true", Is("archived", true), `"user_contacts"."archived" IS TRUE`, 0},
		{"isnot false", IsNot("archived", false), `"user_contacts"."archived" IS NOT FALSE`, 0},
		{"isnot null", IsNot("contact", nil), `"user_contacts"."contact" IS NOT NULL`, 0},
		{"le", Le("created", time.Unix(0, 0)), `"user_contacts"."created" <= $1`, 1},
		{"like", Like("contact", "a%"), `"user_contacts"."contact" LIKE $1`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			st, err := Count(contacts, nil, []Filter{tt.filter}).Compile()
			c.Assert(err, qt.IsNil)
			c.Assert(st.SQL, qt.Equals, `SELECT COUNT(*) FROM "challenges"."user_contacts" WHERE `+tt.where)
			c.Assert(st.Args, qt.HasLen, tt.args)
		})
	}
}

func TestCompileInsert(t *testing.T) {
	c := qt.New(t)
	id := uuid.New()

	st, err := Insert(contacts, Values{"user_id": id, "contact_type": contactKind("email"), "contact": "a@b.c"}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st.SQL, qt.Equals,
		`INSERT INTO "challenges"."user_contacts" ("contact","contact_type","user_id") VALUES ($1,$2,$3) `+contactsReturning)
	// Именованный строковый тип передаётся как string.
	c.Assert(st.Args, qt.DeepEquals, []any{"a@b.c", "email", id})
}

func TestCompileInsert_BatchDefaults(t *testing.T) {
	c := qt.New(t)

	st, err := Insert(contacts, Values{"contact": "a"}, Values{"contact": "b", "contact_type": "phone"}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st.SQL, qt.Equals,
		`INSERT INTO "challenges"."user_contacts" ("contact","contact_type") VALUES ($1,DEFAULT),($2,$3) `+contactsReturning)
	c.Assert(st.Args, qt.DeepEquals, []any{"a", "b", "phone"})
}

func TestCompileInsert_AllDefaults(t *testing.T) {
	c := qt.New(t)

	st, err := Insert(contacts, Values{}).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st.SQL, qt.Equals, `INSERT INTO "challenges"."user_contacts" ("id") VALUES (DEFAULT) `+contactsReturning)
	c.Assert(st.Args, qt.HasLen, 0)
}

func TestCompileInsert_Errors(t *testing.T) {
	c := qt.New(t)

	_, err := Insert(contacts, Values{"nope": 1}).Compile()
	c.Assert(err, qt.ErrorIs, ErrUnknownColumn)

	_, err = Insert(contacts).Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidPlan)
}

func TestCompileUpdate(t *testing.T) {
	c := qt.New(t)
	id := uuid.New()

	st, err := Update(contacts, Values{"contact": "x", "updated": time.Unix(0, 0)}, ByID(contacts, id)).Compile()
	c.Assert(err, qt.IsNil)
	c.Assert(st.SQL, qt.Equals,
		`UPDATE "challenges"."user_contacts" SET "contact" = $1, "updated" = timezone('utc', clock_timestamp())`+
			` WHERE "user_contacts"."id" = $2 `+contactsReturning)
	c.Assert(st.Args, qt.DeepEquals, []any{"x", id})
}

func TestCompileUpdate_Errors(t *testing.T) {
	c := qt.New(t)

	_, err := Update(contacts, Values{"id": uuid.New()}).Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidPlan)

	_, err = Update(contacts, Values{"created": time.Now()}).Compile()
	c.Assert(err, qt.ErrorIs, ErrInvalidPlan)

	_, err = Update(contacts, Values{"nope": 1}).Compile()
	c.Assert(err, qt.ErrorIs, ErrUnknownColumn)

	_, err = Update(contacts, Values{"contact": "x"}, Eq("nope", 1)).Compile()
	c.Assert(err, qt.ErrorIs, ErrUnknownFilter)
}
