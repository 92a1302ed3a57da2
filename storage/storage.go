package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"prismbot/config"
)

// ModCase is one moderation action kept for the staff audit trail.
type ModCase struct {
	ID        int64
	GuildID   string
	UserID    string
	ModID     string
	Action    string
	Reason    string
	Duration  string
	CreatedAt time.Time
}

type Database interface {
	// AddModCase stores c and returns it with ID assigned.
	AddModCase(ctx context.Context, c ModCase) (ModCase, error)
	// ModCases returns the newest cases for a user first.
	ModCases(ctx context.Context, guildID, userID string, limit int) ([]ModCase, error)
	Close() error
}

// Open connects the configured backend. A backend that cannot be reached is
// logged and replaced by the in-memory store so the bot still starts.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) Database {
	db, err := open(ctx, cfg)
	if err != nil {
		log.Warn("Case storage unavailable, falling back to memory", "component", "db", "driver", cfg.Driver, "err", err)
		return NewMemory()
	}
	log.Info("Case storage ready", "component", "db", "driver", cfg.Driver)
	return db
}

func open(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case "mysql":
		return OpenMySQL(ctx, cfg.MySQL.DSN)
	case "mongodb":
		return OpenMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (use \"memory\", \"sqlite\", \"mysql\" or \"mongodb\")", cfg.Driver)
	}
}

type Memory struct {
	mu     sync.Mutex
	nextID int64
	cases  []ModCase
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) AddModCase(_ context.Context, c ModCase) (ModCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	m.cases = append(m.cases, c)
	return c, nil
}

func (m *Memory) ModCases(_ context.Context, guildID, userID string, limit int) ([]ModCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ModCase
	for _, c := range m.cases {
		if c.GuildID == guildID && c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
