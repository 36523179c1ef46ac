package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if err := Migrate(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := Migrate(context.Background(), db, DialectSQLite); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", n)
	}
}

func TestGetRowMissing(t *testing.T) {
	repo := NewSyncRepo(setupTestDB(t), DialectSQLite)
	_, err := repo.GetRow(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertRowOverwritesAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepo(setupTestDB(t), DialectSQLite)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.UpsertRow(ctx, &models.CloudRow{UserID: "u1", Data: json.RawMessage(`{"streak":1}`), LastSynced: first}); err != nil {
		t.Fatal(err)
	}
	session := "s-2"
	second := first.Add(time.Hour)
	if err := repo.UpsertRow(ctx, &models.CloudRow{UserID: "u1", Data: json.RawMessage(`{"streak":2}`), SessionID: &session, LastSynced: second}); err != nil {
		t.Fatal(err)
	}

	row, err := repo.GetRow(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if string(row.Data) != `{"streak":2}` {
		t.Fatalf("expected last write to win, got %s", row.Data)
	}
	if row.SessionID == nil || *row.SessionID != "s-2" {
		t.Fatalf("expected session s-2, got %v", row.SessionID)
	}
	if !row.LastSynced.Equal(second) {
		t.Fatalf("expected last_synced %s, got %s", second, row.LastSynced)
	}
	if !row.CreatedAt.Equal(first) {
		t.Fatalf("expected created_at to survive overwrite, got %s", row.CreatedAt)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewPushRepo(setupTestDB(t), DialectSQLite)

	sub := &models.PushSubscription{ID: "id-1", UserID: "u1", Endpoint: "https://push.example/a", P256dh: "k", Auth: "a"}
	if err := repo.UpsertSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}
	other := &models.PushSubscription{ID: "id-2", UserID: "u2", Endpoint: "https://push.example/b", P256dh: "k", Auth: "a"}
	if err := repo.UpsertSubscription(ctx, other); err != nil {
		t.Fatal(err)
	}

	mine, err := repo.ListActive(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].Endpoint != sub.Endpoint {
		t.Fatalf("unexpected subscriptions for u1: %+v", mine)
	}

	if err := repo.MarkInactive(ctx, sub.Endpoint); err != nil {
		t.Fatal(err)
	}
	all, err := repo.ListActive(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].UserID != "u2" {
		t.Fatalf("expected only u2 active, got %+v", all)
	}

	var total int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM push_subscriptions`).Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("inactive rows must be kept, got %d rows", total)
	}

	again := &models.PushSubscription{ID: "id-3", UserID: "u1", Endpoint: sub.Endpoint, P256dh: "k2", Auth: "a2"}
	if err := repo.UpsertSubscription(ctx, again); err != nil {
		t.Fatal(err)
	}
	if again.ID != "id-1" {
		t.Fatalf("re-subscribe must report the stored id, got %q", again.ID)
	}
	if !again.CreatedAt.Equal(mine[0].CreatedAt) {
		t.Fatalf("re-subscribe must keep created_at, got %v want %v", again.CreatedAt, mine[0].CreatedAt)
	}
	mine, err = repo.ListActive(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != "id-1" || mine[0].P256dh != "k2" {
		t.Fatalf("expected re-subscribe to reactivate the original row, got %+v", mine)
	}

	if err := repo.MarkInactive(ctx, "https://push.example/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRebindPostgres(t *testing.T) {
	got := DialectPostgres.rebind(`SELECT a FROM t WHERE x = ? AND y = ?`)
	if got != `SELECT a FROM t WHERE x = $1 AND y = $2` {
		t.Fatalf("unexpected rebind: %s", got)
	}
	if DialectSQLite.rebind("?") != "?" {
		t.Fatal("sqlite must keep ? placeholders")
	}
}

func TestParseDialect(t *testing.T) {
	if d, err := ParseDialect("PostgreSQL"); err != nil || d != DialectPostgres {
		t.Fatalf("got %q err=%v", d, err)
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Fatal("expected error")
	}
}
