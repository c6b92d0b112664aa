package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Vladimir-Titov/challengeup/internal/config"
	"github.com/Vladimir-Titov/challengeup/internal/database"
	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает набор репозиториев и пул.
func setupTestDB(t *testing.T) (*Repositories, *pgxpool.Pool) {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("challengeup_test"),
		postgres.WithUsername("challengeup"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("CU_DB_HOST", host)
	t.Setenv("CU_DB_PORT", port.Port())
	t.Setenv("CU_DB_NAME", "challengeup_test")
	t.Setenv("CU_DB_USER", "challengeup")
	t.Setenv("CU_DB_PASSWORD", "test-password")
	t.Setenv("CU_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return NewRepositories(pool, logger), pool
}

func strPtr(s string) *string { return &s }

// --- CRUD ---

func TestChallengeCRUD(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	repo := repos.Challenges

	// Create
	ch, err := repo.Create(ctx, query.Values{"title": "Бег", "description": strPtr("5 км")})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if ch.ID == uuid.Nil || ch.Created.IsZero() || ch.Archived {
		t.Errorf("значения по умолчанию не заполнены: %+v", ch)
	}
	if ch.Description == nil || *ch.Description != "5 км" {
		t.Errorf("Description = %v", ch.Description)
	}

	// GetByID
	got, err := repo.GetByID(ctx, ch.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Title != "Бег" {
		t.Errorf("Title = %q, хотели %q", got.Title, "Бег")
	}

	// UpdateByID: updated растёт, caller-значение updated игнорируется
	upd, err := repo.UpdateByID(ctx, ch.ID, query.Values{"title": "Плавание", "updated": time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("UpdateByID() ошибка: %v", err)
	}
	if upd.Title != "Плавание" {
		t.Errorf("после UpdateByID Title = %q", upd.Title)
	}
	if !upd.Updated.After(ch.Updated) {
		t.Errorf("updated не вырос: %v -> %v", ch.Updated, upd.Updated)
	}
	if !upd.Created.Equal(ch.Created) {
		t.Errorf("created изменился: %v -> %v", ch.Created, upd.Created)
	}

	// ArchiveByID
	arch, err := repo.ArchiveByID(ctx, ch.ID, nil)
	if err != nil {
		t.Fatalf("ArchiveByID() ошибка: %v", err)
	}
	if !arch.Archived {
		t.Error("запись не помечена архивной")
	}
	// Архивная запись по-прежнему читается
	if _, err := repo.GetByID(ctx, ch.ID); err != nil {
		t.Errorf("GetByID() архивной записи: %v", err)
	}

	// Несуществующий id
	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() несуществующего: %v, ожидали ErrNotFound", err)
	}
	if _, err := repo.UpdateByID(ctx, uuid.New(), query.Values{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateByID() несуществующего: %v, ожидали ErrNotFound", err)
	}
}

func TestSearchCountAndPagination(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	repo := repos.Challenges

	rows := []query.Values{
		{"title": "alpha"}, {"title": "beta"}, {"title": "gamma", "description": "x"}, {"title": "delta"},
	}
	created, err := repo.CreateMany(ctx, rows)
	if err != nil {
		t.Fatalf("CreateMany() ошибка: %v", err)
	}
	if len(created) != 4 {
		t.Fatalf("CreateMany() вернул %d записей, хотели 4", len(created))
	}

	empty, err := repo.CreateMany(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("CreateMany(nil) = %d, %v", len(empty), err)
	}

	limit := 2
	page, err := repo.Search(ctx, query.Search{OrderBy: []string{"title"}, Limit: &limit, Offset: 1})
	if err != nil {
		t.Fatalf("Search() ошибка: %v", err)
	}
	if len(page) != 2 || page[0].Title != "beta" || page[1].Title != "delta" {
		t.Errorf("страница: %v", titles(page))
	}

	desc, err := repo.Search(ctx, query.Search{OrderBy: []string{"-title"}})
	if err != nil {
		t.Fatalf("Search(-title) ошибка: %v", err)
	}
	if desc[0].Title != "gamma" {
		t.Errorf("первый при -title = %q, хотели gamma", desc[0].Title)
	}

	n, err := repo.Count(ctx, query.In("title", []string{"alpha", "beta", "nope"}))
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, хотели 2", n)
	}

	none, err := repo.Search(ctx, query.Search{Filters: []query.Filter{query.In("title", []string{})}})
	if err != nil || len(none) != 0 {
		t.Errorf("пустой IN: %d записей, %v", len(none), err)
	}

	nulls, err := repo.Count(ctx, query.Is("description", nil))
	if err != nil || nulls != 3 {
		t.Errorf("IS NULL: %d, %v", nulls, err)
	}

	first, err := repo.SearchFirstRow(ctx, query.Search{Filters: []query.Filter{query.ILike("title", "%ALP%")}})
	if err != nil || first == nil || first.Title != "alpha" {
		t.Errorf("SearchFirstRow() = %v, %v", first, err)
	}
	missing, err := repo.SearchFirstRow(ctx, query.Search{Filters: []query.Filter{query.Eq("title", "zzz")}})
	if err != nil || missing != nil {
		t.Errorf("SearchFirstRow() без совпадений = %v, %v", missing, err)
	}

	// Массовое обновление и архивирование
	updated, err := repo.Update(ctx, query.Values{"description": "bulk"}, query.Like("title", "%a"))
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if len(updated) != 4 {
		t.Errorf("Update() изменил %d записей, хотели 4", len(updated))
	}
	archived, err := repo.Archive(ctx, nil, query.Eq("title", "beta"))
	if err != nil || len(archived) != 1 || !archived[0].Archived {
		t.Errorf("Archive() = %v, %v", archived, err)
	}
}

// Сценарий: две записи, фильтр по шаблону, обновление и архивирование.
func TestChallengeScenario(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	repo := repos.Challenges

	a, err := repo.Create(ctx, query.Values{"title": "xa"})
	if err != nil {
		t.Fatalf("Create(A) ошибка: %v", err)
	}
	b, err := repo.Create(ctx, query.Values{"title": "yb"})
	if err != nil {
		t.Fatalf("Create(B) ошибка: %v", err)
	}

	like, err := query.ParseFilter("title_like", "x%", model.ChallengesTable)
	if err != nil {
		t.Fatalf("ParseFilter() ошибка: %v", err)
	}
	found, err := repo.Search(ctx, query.Search{Filters: []query.Filter{like}})
	if err != nil {
		t.Fatalf("Search(title_like) ошибка: %v", err)
	}
	if len(found) != 1 || found[0].ID != a.ID {
		t.Errorf("title_like x%% = %v, хотели [xa]", titles(found))
	}

	if n, err := repo.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count() = %d, %v; хотели 2", n, err)
	}

	if _, err := repo.UpdateByID(ctx, a.ID, query.Values{"title": "z"}); err != nil {
		t.Fatalf("UpdateByID() ошибка: %v", err)
	}
	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Title != "z" {
		t.Errorf("Title = %q, хотели z", got.Title)
	}
	if !got.Updated.After(got.Created) {
		t.Errorf("updated (%v) должен быть позже created (%v)", got.Updated, got.Created)
	}

	if _, err := repo.ArchiveByID(ctx, b.ID, nil); err != nil {
		t.Fatalf("ArchiveByID(B) ошибка: %v", err)
	}
	archived, err := repo.Search(ctx, query.Search{Filters: []query.Filter{query.Eq("archived", true)}})
	if err != nil {
		t.Fatalf("Search(archived=true) ошибка: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != b.ID {
		t.Errorf("archived=true = %v, хотели [yb]", titles(archived))
	}
}

// Повторное архивирование: archived остаётся true, updated растёт.
func TestArchiveByIDTwice(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	repo := repos.Challenges

	ch, err := repo.Create(ctx, query.Values{"title": "twice"})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	first, err := repo.ArchiveByID(ctx, ch.ID, nil)
	if err != nil {
		t.Fatalf("ArchiveByID() первый вызов: %v", err)
	}
	second, err := repo.ArchiveByID(ctx, ch.ID, nil)
	if err != nil {
		t.Fatalf("ArchiveByID() второй вызов: %v", err)
	}
	if !first.Archived || !second.Archived {
		t.Errorf("archived = %v, %v; хотели true, true", first.Archived, second.Archived)
	}
	if !second.Updated.After(first.Updated) {
		t.Errorf("updated не вырос: %v -> %v", first.Updated, second.Updated)
	}
}

// Поиск по таблице без фильтров возвращает архивные записи,
// фильтр archived=false их исключает.
func TestSearchIncludesArchived(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	repo := repos.Challenges

	active, err := repo.Create(ctx, query.Values{"title": "active"})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	gone, err := repo.Create(ctx, query.Values{"title": "gone"})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if _, err := repo.ArchiveByID(ctx, gone.ID, nil); err != nil {
		t.Fatalf("ArchiveByID() ошибка: %v", err)
	}

	all, err := repo.Search(ctx, query.Search{})
	if err != nil {
		t.Fatalf("Search() ошибка: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Search() без фильтров = %v, хотели обе записи", titles(all))
	}

	live, err := repo.Search(ctx, query.Search{Filters: []query.Filter{query.Eq("archived", false)}})
	if err != nil {
		t.Fatalf("Search(archived=false) ошибка: %v", err)
	}
	if len(live) != 1 || live[0].ID != active.ID {
		t.Errorf("archived=false = %v, хотели [active]", titles(live))
	}
}

func TestSearchOrderByCreatedDesc(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	repo := repos.Challenges

	// Отдельные запросы: у записей одной вставки одинаковый created.
	for _, title := range []string{"first", "second", "third"} {
		if _, err := repo.Create(ctx, query.Values{"title": title}); err != nil {
			t.Fatalf("Create(%s) ошибка: %v", title, err)
		}
	}

	rows, err := repo.Search(ctx, query.Search{OrderBy: []string{"-created"}})
	if err != nil {
		t.Fatalf("Search(-created) ошибка: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Search(-created) вернул %d записей, хотели 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Created.After(rows[i-1].Created) {
			t.Errorf("нарушен порядок -created: %v перед %v", rows[i-1].Created, rows[i].Created)
		}
	}
}

func titles(rows []*model.Challenge) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Title
	}
	return out
}

// --- Ограничения и ошибки ---

func TestUserContactConstraints(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()

	user, err := repos.Users.Create(ctx, query.Values{"first_name": "Иван"})
	if err != nil {
		t.Fatalf("Create(user) ошибка: %v", err)
	}

	contact, err := repos.UserContacts.Create(ctx, query.Values{
		"user_id": user.ID, "contact_type": model.ContactEmail, "contact": "ivan@example.com",
	})
	if err != nil {
		t.Fatalf("Create(contact) ошибка: %v", err)
	}
	if contact.ContactType != model.ContactEmail {
		t.Errorf("ContactType = %q", contact.ContactType)
	}

	// Дубликат (contact_type, contact)
	_, err = repos.UserContacts.Create(ctx, query.Values{
		"user_id": user.ID, "contact_type": model.ContactEmail, "contact": "ivan@example.com",
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("дубликат: %v, ожидали ErrConflict", err)
	}

	// Несуществующий пользователь
	_, err = repos.UserContacts.Create(ctx, query.Values{
		"user_id": uuid.New(), "contact_type": model.ContactPhone, "contact": "+7000",
	})
	if !errors.Is(err, ErrReference) {
		t.Errorf("внешний ключ: %v, ожидали ErrReference", err)
	}

	// Недопустимый тип контакта
	_, err = repos.UserContacts.Create(ctx, query.Values{
		"user_id": user.ID, "contact_type": "pigeon", "contact": "x",
	})
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("тип контакта: %v, ожидали ErrInvalidData", err)
	}

	// Пустой payload: все значения по умолчанию
	empty, err := repos.Users.Create(ctx, query.Values{})
	if err != nil || empty.ID == uuid.Nil || empty.FirstName != nil {
		t.Errorf("Create({}) = %+v, %v", empty, err)
	}
}

func TestGetOrCreate(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()

	first, created, err := repos.Users.GetOrCreate(ctx, query.Values{"full_name": "Анна"})
	if err != nil || !created {
		t.Fatalf("GetOrCreate() первый вызов: created=%v, err=%v", created, err)
	}
	second, created, err := repos.Users.GetOrCreate(ctx, query.Values{"full_name": "Анна"})
	if err != nil || created || second.ID != first.ID {
		t.Errorf("GetOrCreate() второй вызов: created=%v, id=%v, err=%v", created, second, err)
	}

	if _, err := repos.Users.Create(ctx, query.Values{"full_name": "Анна"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := repos.Users.GetOrCreate(ctx, query.Values{"full_name": "Анна"}); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("GetOrCreate() с двумя совпадениями: %v, ожидали ErrAmbiguous", err)
	}
}

// --- Транзакции и соединения ---

func TestTransactionRollbackAndSavepoint(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repos.DB.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repos.Challenges.Create(ctx, query.Values{"title": "rolled back"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() = %v, ожидали boom", err)
	}
	n, _ := repos.Challenges.Count(ctx, query.Eq("title", "rolled back"))
	if n != 0 {
		t.Errorf("после отката найдено %d записей", n)
	}

	err = repos.DB.Transaction(ctx, func(ctx context.Context) error {
		if _, err := repos.Challenges.Create(ctx, query.Values{"title": "outer"}); err != nil {
			return err
		}
		_ = repos.DB.Transaction(ctx, func(ctx context.Context) error {
			if _, err := repos.Challenges.Create(ctx, query.Values{"title": "inner"}); err != nil {
				return err
			}
			return boom
		})
		return nil
	})
	if err != nil {
		t.Fatalf("внешняя транзакция: %v", err)
	}
	outer, _ := repos.Challenges.Count(ctx, query.Eq("title", "outer"))
	inner, _ := repos.Challenges.Count(ctx, query.Eq("title", "inner"))
	if outer != 1 || inner != 0 {
		t.Errorf("outer = %d, inner = %d; хотели 1, 0", outer, inner)
	}
}

func TestConnectionSharedAcrossRepositories(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()

	// Временная таблица видна только своему соединению: если оба запроса
	// прошли, они выполнены на одном соединении.
	err := repos.DB.Connection(ctx, func(ctx context.Context) error {
		q, _ := executorFrom(ctx)
		if _, err := q.Exec(ctx, `CREATE TEMP TABLE conn_marker (x int)`); err != nil {
			return err
		}
		if _, err := repos.Users.Count(ctx); err != nil {
			return err
		}
		q2, _ := executorFrom(ctx)
		_, err := q2.Exec(ctx, `INSERT INTO conn_marker VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("Connection() ошибка: %v", err)
	}
}

func TestSearchForUpdateSkipLocked(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := repos.Challenges.CreateMany(ctx, []query.Values{{"title": "job-1"}, {"title": "job-2"}}); err != nil {
		t.Fatal(err)
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = repos.DB.Transaction(ctx, func(ctx context.Context) error {
			one := 1
			_, err := repos.Challenges.SearchForUpdate(ctx, query.Search{
				Filters: []query.Filter{query.Eq("title", "job-1")}, Limit: &one,
			}, false)
			close(locked)
			<-release
			return err
		})
	}()
	<-locked

	err := repos.DB.Transaction(ctx, func(ctx context.Context) error {
		rows, err := repos.Challenges.SearchForUpdate(ctx, query.Search{
			Filters: []query.Filter{query.Like("title", "job-%")},
		}, true)
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0].Title != "job-2" {
			t.Errorf("SKIP LOCKED вернул %v, хотели [job-2]", titles(rows))
		}
		return nil
	})
	close(release)
	wg.Wait()
	if err != nil {
		t.Fatalf("SearchForUpdate() ошибка: %v", err)
	}
}

func TestWithBaseQuery(t *testing.T) {
	repos, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := repos.Challenges.CreateMany(ctx, []query.Values{
		{"title": "visible"}, {"title": "hidden", "archived": true},
	}); err != nil {
		t.Fatal(err)
	}

	active := repos.Challenges.WithBaseQuery(&query.BaseQuery{
		Select:  sq.Select("*").From(model.ChallengesTable.Ident()).Where(sq.Eq{"archived": false}),
		Alias:   "active",
		Columns: model.ChallengesTable.ColumnNames(),
	})

	rows, err := active.Search(ctx, query.Search{})
	if err != nil {
		t.Fatalf("Search() по базовому запросу: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "visible" {
		t.Errorf("базовый запрос вернул %v", titles(rows))
	}
	n, err := active.Count(ctx, query.ILike("title", "%i%"))
	if err != nil || n != 1 {
		t.Errorf("Count() по базовому запросу = %d, %v", n, err)
	}
}
