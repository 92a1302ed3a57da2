package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var sqliteSchema = `
CREATE TABLE IF NOT EXISTS mod_cases (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	mod_id     TEXT NOT NULL,
	action     TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	duration   TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mod_cases_guild_user ON mod_cases(guild_id, user_id);
`

var mysqlSchema = `
CREATE TABLE IF NOT EXISTS mod_cases (
	id         BIGINT AUTO_INCREMENT PRIMARY KEY,
	guild_id   VARCHAR(32) NOT NULL,
	user_id    VARCHAR(32) NOT NULL,
	mod_id     VARCHAR(32) NOT NULL,
	action     VARCHAR(32) NOT NULL,
	reason     TEXT NOT NULL,
	duration   VARCHAR(64) NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL,
	INDEX idx_mod_cases_guild_user (guild_id, user_id)
)`

// SQLDB stores cases in SQLite or MySQL through sqlx.
type SQLDB struct {
	db *sqlx.DB
}

type caseRow struct {
	ID        int64  `db:"id"`
	GuildID   string `db:"guild_id"`
	UserID    string `db:"user_id"`
	ModID     string `db:"mod_id"`
	Action    string `db:"action"`
	Reason    string `db:"reason"`
	Duration  string `db:"duration"`
	CreatedAt int64  `db:"created_at"`
}

func OpenSQLite(ctx context.Context, path string) (*SQLDB, error) {
	if path == "" {
		return nil, errors.New("database.sqlite.path must be set")
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLDB{db: db}, nil
}

func OpenMySQL(ctx context.Context, dsn string) (*SQLDB, error) {
	if dsn == "" {
		return nil, errors.New("database.mysql.dsn must be set")
	}
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql schema: %w", err)
	}
	return &SQLDB{db: db}, nil
}

func (s *SQLDB) AddModCase(ctx context.Context, c ModCase) (ModCase, error) {
	row := toRow(c)
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO mod_cases (guild_id, user_id, mod_id, action, reason, duration, created_at)
		 VALUES (:guild_id, :user_id, :mod_id, :action, :reason, :duration, :created_at)`, row)
	if err != nil {
		return ModCase{}, fmt.Errorf("insert mod case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ModCase{}, fmt.Errorf("mod case id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (s *SQLDB) ModCases(ctx context.Context, guildID, userID string, limit int) ([]ModCase, error) {
	var rows []caseRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, guild_id, user_id, mod_id, action, reason, duration, created_at FROM mod_cases WHERE guild_id = ? AND user_id = ? ORDER BY id DESC LIMIT ?",
		guildID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select mod cases for %s: %w", userID, err)
	}
	out := make([]ModCase, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCase())
	}
	return out, nil
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}

func toRow(c ModCase) caseRow {
	return caseRow{
		GuildID:   c.GuildID,
		UserID:    c.UserID,
		ModID:     c.ModID,
		Action:    c.Action,
		Reason:    c.Reason,
		Duration:  c.Duration,
		CreatedAt: c.CreatedAt.Unix(),
	}
}

func (r caseRow) toCase() ModCase {
	return ModCase{
		ID:        r.ID,
		GuildID:   r.GuildID,
		UserID:    r.UserID,
		ModID:     r.ModID,
		Action:    r.Action,
		Reason:    r.Reason,
		Duration:  r.Duration,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
}
