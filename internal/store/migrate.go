package store

import (
	"context"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"jobsync-engine/internal/logger"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

type gooseLogger struct{ log logger.Logger }

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Debug(fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error(fmt.Sprintf(format, v...))
}

// Migrate applies the embedded schema migrations for the handle's driver.
func Migrate(ctx context.Context, d *DB, log logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	dialect, dir := "sqlite3", "migrations/sqlite"
	if d.Driver == DriverPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}

	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log.With("component", "migrate")})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrate: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.Pool, dir); err != nil {
		return fmt.Errorf("migrate: %s: %w", d.Driver, err)
	}
	return nil
}

// Stamp converts t into the representation the driver stores timestamps
// in: RFC 3339 text for sqlite, native timestamptz for postgres.
func (d *DB) Stamp(t time.Time) any {
	if d.Driver == DriverPostgres {
		return t.UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

var countable = map[string]bool{
	"companies": true,
	"jobs":      true,
	"tags":      true,
	"job_tags":  true,
}

// Count returns the number of rows in one of the engine's tables.
func (d *DB) Count(ctx context.Context, table string) (int, error) {
	if !countable[table] {
		return 0, fmt.Errorf("count: unknown table %q", table)
	}
	var n int
	if err := d.Pool.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
