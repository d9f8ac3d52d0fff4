package migrate

import (
	"context"
	"testing"

	"bobemploi/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if v, err := Version(ctx, conn); err != nil || v != 0 {
		t.Fatalf("expected fresh db at version 0, got %d (%v)", v, err)
	}
	if err := Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(ctx, conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	migrations, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := migrations[len(migrations)-1].Version
	if v, err := Version(ctx, conn); err != nil || v != want {
		t.Fatalf("expected version %d, got %d (%v)", want, v, err)
	}
	for _, table := range []string{"users", "reset_tokens", "feedback", "app_uses", "dashboard_exports", "events", "sessions", "state_snapshots"} {
		var n int
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n); err != nil || n != 1 {
			t.Fatalf("expected table %s, got %d (%v)", table, n, err)
		}
	}
}

func TestLoadOrdersByVersion(t *testing.T) {
	migrations, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Fatalf("migrations out of order: %s before %s", migrations[i-1].Name, migrations[i].Name)
		}
	}
}
