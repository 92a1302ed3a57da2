package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"prismbot/config"
)

func exerciseDatabase(t *testing.T, db Database) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{"warn", "timeout", "kick"} {
		c, err := db.AddModCase(ctx, ModCase{
			GuildID:   "g1",
			UserID:    "u1",
			ModID:     "m1",
			Action:    action,
			Reason:    "spam",
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddModCase(%s): %v", action, err)
		}
		if c.ID == 0 {
			t.Fatalf("AddModCase(%s) returned zero id", action)
		}
	}
	if _, err := db.AddModCase(ctx, ModCase{GuildID: "g1", UserID: "u2", ModID: "m1", Action: "ban", CreatedAt: at}); err != nil {
		t.Fatal(err)
	}

	cases, err := db.ModCases(ctx, "g1", "u1", 2)
	if err != nil {
		t.Fatalf("ModCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}
	if cases[0].Action != "kick" || cases[1].Action != "timeout" {
		t.Errorf("order = %s, %s; want newest first", cases[0].Action, cases[1].Action)
	}
	if !cases[0].CreatedAt.Equal(at.Add(2 * time.Minute)) {
		t.Errorf("CreatedAt = %v", cases[0].CreatedAt)
	}

	other, err := db.ModCases(ctx, "g2", "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("cases leaked across guilds: %+v", other)
	}
}

func TestMemoryDatabase(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestSQLiteDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.db")
	db, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestOpenFallsBackToMemory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := Open(context.Background(), config.DatabaseConfig{Driver: "cassandra"}, log)
	if _, ok := db.(*Memory); !ok {
		t.Fatalf("Open with unknown driver = %T, want *Memory", db)
	}
	db = Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, log)
	if _, ok := db.(*Memory); !ok {
		t.Fatalf("Open mysql without dsn = %T, want *Memory", db)
	}
}
