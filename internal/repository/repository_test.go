package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"commandmail/internal/apperr"
	"commandmail/internal/model"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

var fixedNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func assertExpectations(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var emailCols = []string{"id", "sender", "subject", "body", "timestamp", "category", "action_items", "processed"}

func emailRow(e model.Email) []any {
	return []any{e.ID, e.Sender, e.Subject, e.Body, e.Timestamp, e.Category, e.ActionItems, e.Processed}
}

func TestMigrateAppliesEmbeddedSchema(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS emails`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := Migrate(context.Background(), mock); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	assertExpectations(t, mock)
}

func TestEmailFindByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)
	id := uuid.New()

	mock.ExpectQuery(`FROM emails WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(emailCols))

	_, err := repo.FindByID(context.Background(), id)
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "Email" {
		t.Fatalf("want Email NotFoundError, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestEmailListBuildsFilter(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)
	processed := true
	e := model.Email{
		ID:          uuid.New(),
		Sender:      "boss@corp.com",
		Subject:     "Q3 review",
		Body:        "Please prepare slides",
		Timestamp:   fixedNow,
		Category:    model.CategoryImportant,
		ActionItems: []model.ActionItem{{Task: "prepare slides"}},
		Processed:   true,
	}

	mock.ExpectQuery(`FROM emails WHERE category = ANY\(\$1\) AND processed = \$2 ORDER BY "timestamp" DESC LIMIT \$3`).
		WithArgs([]string{"Important", "To-Do"}, true, 10).
		WillReturnRows(pgxmock.NewRows(emailCols).AddRow(emailRow(e)...))

	got, err := repo.List(context.Background(), model.EmailFilter{
		Categories: []model.Category{model.CategoryImportant, model.CategoryToDo},
		Processed:  &processed,
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != e.ID || got[0].ActionItems[0].Task != "prepare slides" {
		t.Errorf("List() = %+v", got)
	}
	assertExpectations(t, mock)
}

func TestEmailListNoFilter(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM emails ORDER BY "timestamp" DESC$`).
		WillReturnRows(pgxmock.NewRows(emailCols))

	got, err := repo.List(context.Background(), model.EmailFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", got)
	}
	assertExpectations(t, mock)
}

func TestEmailReplaceAllFillsDefaults(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)
	repo.now = func() time.Time { return fixedNow }

	seed := []model.Email{
		{Sender: "a@x.com", Subject: "one", Body: "b1"},
		{Sender: "b@x.com", Subject: "two", Body: "b2", Timestamp: fixedNow.Add(-time.Hour)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emails`).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`INSERT INTO emails`).
		WithArgs(pgxmock.AnyArg(), "a@x.com", "one", "b1", fixedNow, model.CategoryUncategorized, []model.ActionItem{}, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO emails`).
		WithArgs(pgxmock.AnyArg(), "b@x.com", "two", "b2", fixedNow.Add(-time.Hour), model.CategoryUncategorized, []model.ActionItem{}, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	got, err := repo.ReplaceAll(context.Background(), seed)
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, e := range got {
		if e.ID == uuid.Nil {
			t.Error("id not assigned")
		}
		if e.Category != model.CategoryUncategorized {
			t.Errorf("category = %q", e.Category)
		}
	}
	if seed[0].ID != uuid.Nil {
		t.Error("seed slice was modified")
	}
	assertExpectations(t, mock)
}

func TestEmailReplaceAllRollsBackOnInsertError(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM emails`).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO emails`).
		WithArgs(pgxmock.AnyArg(), "a", "s", "b", pgxmock.AnyArg(), model.CategoryUncategorized, []model.ActionItem{}, false).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.ReplaceAll(context.Background(), []model.Email{{Sender: "a", Subject: "s", Body: "b"}})
	if err == nil {
		t.Fatal("want error")
	}
	assertExpectations(t, mock)
}

func TestEmailSaveProcessing(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)
	id := uuid.New()
	items := []model.ActionItem{{Task: "reply"}}
	updated := model.Email{ID: id, Sender: "s", Subject: "x", Body: "b", Timestamp: fixedNow,
		Category: model.CategoryToDo, ActionItems: items, Processed: true}

	mock.ExpectQuery(`UPDATE emails\s+SET category = \$2, action_items = \$3, processed = TRUE`).
		WithArgs(id, model.CategoryToDo, items).
		WillReturnRows(pgxmock.NewRows(emailCols).AddRow(emailRow(updated)...))

	got, err := repo.SaveProcessing(context.Background(), id, model.CategoryToDo, items)
	if err != nil {
		t.Fatalf("SaveProcessing: %v", err)
	}
	if !got.Processed || got.Category != model.CategoryToDo {
		t.Errorf("got %+v", got)
	}
	assertExpectations(t, mock)
}

func TestEmailToggleActionItem(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)
	repo.now = func() time.Time { return fixedNow }
	id := uuid.New()
	items := []model.ActionItem{{Task: "a"}, {Task: "b"}}
	done := fixedNow
	want := []model.ActionItem{{Task: "a"}, {Task: "b", Completed: true, CompletedAt: &done}}
	updated := model.Email{ID: id, Sender: "s", Subject: "x", Body: "b", Timestamp: fixedNow,
		Category: model.CategoryToDo, ActionItems: want, Processed: true}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT action_items FROM emails WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"action_items"}).AddRow(items))
	mock.ExpectQuery(`UPDATE emails SET action_items = \$2 WHERE id = \$1`).
		WithArgs(id, want).
		WillReturnRows(pgxmock.NewRows(emailCols).AddRow(emailRow(updated)...))
	mock.ExpectCommit()

	got, err := repo.ToggleActionItem(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("ToggleActionItem: %v", err)
	}
	if !got.ActionItems[1].Completed {
		t.Errorf("item not completed: %+v", got.ActionItems[1])
	}
	assertExpectations(t, mock)
}

func TestEmailToggleActionItemInvalidIndexDoesNotWrite(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"action_items"}).AddRow([]model.ActionItem{{Task: "a"}}))
	mock.ExpectRollback()

	_, err := repo.ToggleActionItem(context.Background(), id, 3)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	assertExpectations(t, mock)
}

func TestEmailCounts(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)

	mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE NOT processed\)`).
		WillReturnRows(pgxmock.NewRows([]string{"t", "p", "u", "i", "td", "n", "s"}).AddRow(10, 6, 4, 2, 2, 1, 1))

	c, err := repo.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := model.CategoryCounts{Total: 10, Processed: 6, Unprocessed: 4, Important: 2, ToDo: 2, Newsletter: 1, Spam: 1}
	if c != want {
		t.Errorf("Counts() = %+v, want %+v", c, want)
	}
	assertExpectations(t, mock)
}

func TestEmailFindByIDsEmpty(t *testing.T) {
	mock := newMock(t)
	repo := NewEmailRepository(mock)

	got, err := repo.FindByIDs(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("FindByIDs(nil) = %v, %v", got, err)
	}
	assertExpectations(t, mock)
}
