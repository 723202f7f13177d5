package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/evetabi/auction/internal/config"
	"github.com/evetabi/auction/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationFS embed.FS

const migrationTable = "schema_migrations"

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the configured SQL store and verifies the connection.
// SQLite is pinned to a single connection so writers serialise in-process.
func Open(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("repository.Open: unsupported driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("repository.Open: %w", err)
	}

	if cfg.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository.Open ping: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

// Migrate applies the embedded migrations for the connection's dialect. Each
// file runs at most once, recorded by name in schema_migrations.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	root := "migrations/" + db.DriverName()

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("repository.Migrate: read %s: %w", root, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	create := `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name       TEXT PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("repository.Migrate: ensure table: %w", err)
	}

	for _, name := range files {
		var found int
		err := db.GetContext(ctx, &found,
			db.Rebind(`SELECT COUNT(*) FROM `+migrationTable+` WHERE name = ?`), name)
		if err != nil {
			return fmt.Errorf("repository.Migrate: check %s: %w", name, err)
		}
		if found > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, root+"/"+name)
		if err != nil {
			return fmt.Errorf("repository.Migrate: read %s: %w", name, err)
		}
		if err := applyMigration(ctx, db, name, upSection(string(content))); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, name, upSQL string) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository.Migrate: begin %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if strings.TrimSpace(upSQL) != "" {
		if _, err = tx.ExecContext(ctx, upSQL); err != nil {
			return fmt.Errorf("repository.Migrate: exec %s: %w", name, err)
		}
	}
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`),
		name, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("repository.Migrate: record %s: %w", name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("repository.Migrate: commit %s: %w", name, err)
	}
	return nil
}

// upSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	content = content[start+len(up):]
	if end := strings.Index(content, down); end != -1 {
		content = content[:end]
	}
	return content
}

// storeErr classifies a driver failure. Integrity failures surface as-is;
// everything else is reported as the store being unavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrDataIntegrity) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
