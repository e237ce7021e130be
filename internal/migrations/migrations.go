package migrations

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const migrationTable = "flowbit_schema_migrations"

// 000001_invoices.up.sql -> version 1, name "invoices", direction "up".
var fileNamePattern = regexp.MustCompile(`^([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one versioned change to the invoice schema.
type Migration struct {
	Version int64
	Name    string
	up      string
	down    string
}

// Status is a migration joined with its bookkeeping row. AppliedAt is nil for
// pending migrations.
type Status struct {
	Migration
	AppliedAt *time.Time
}

func (s Status) Applied() bool {
	return s.AppliedAt != nil
}

func (s Status) String() string {
	state := "pending"
	if s.AppliedAt != nil {
		state = "applied " + s.AppliedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%06d %-20s %s", s.Version, s.Name, state)
}

// Runner applies the embedded invoice schema migrations in version order.
type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

func NewRunnerFS(fsys fs.FS) *Runner {
	return &Runner{fsys: fsys}
}

// Status lists every known migration in version order. Applied versions with
// no matching source file are an error, since Down could not reverse them.
func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	known, err := readMigrations(r.fsys)
	if err != nil {
		return nil, err
	}
	applied, err := appliedAt(ctx, db)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(known))
	for _, item := range known {
		status := Status{Migration: item}
		if at, ok := applied[item.Version]; ok {
			status.AppliedAt = &at
			delete(applied, item.Version)
		}
		statuses = append(statuses, status)
	}
	if len(applied) > 0 {
		orphans := slices.Sorted(maps.Keys(applied))
		return nil, fmt.Errorf("applied migration %d is missing from source", orphans[0])
	}
	return statuses, nil
}

// Pending returns the migrations Up would apply, oldest first.
func (r *Runner) Pending(ctx context.Context, db *sql.DB) ([]Migration, error) {
	statuses, err := r.Status(ctx, db)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, status := range statuses {
		if !status.Applied() {
			pending = append(pending, status.Migration)
		}
	}
	return pending, nil
}

// Up applies up to steps pending migrations; steps <= 0 applies all of them.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	pending, err := r.Pending(ctx, db)
	if err != nil {
		return 0, err
	}
	if steps > 0 && steps < len(pending) {
		pending = pending[:steps]
	}
	for i, item := range pending {
		err := inTx(ctx, db, item.up, `INSERT INTO `+migrationTable+` (version, name) VALUES ($1, $2)`, item.Version, item.Name)
		if err != nil {
			return i, fmt.Errorf("apply migration %06d_%s: %w", item.Version, item.Name, err)
		}
	}
	return len(pending), nil
}

// Down reverts the newest steps applied migrations; steps <= 0 reverts one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	statuses, err := r.Status(ctx, db)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(statuses) - 1; i >= 0 && count < steps; i-- {
		item := statuses[i]
		if !item.Applied() {
			continue
		}
		err := inTx(ctx, db, item.down, `DELETE FROM `+migrationTable+` WHERE version = $1`, item.Version)
		if err != nil {
			return count, fmt.Errorf("revert migration %06d_%s: %w", item.Version, item.Name, err)
		}
		count++
	}
	return count, nil
}

// inTx runs script and the bookkeeping statement in one transaction.
func inTx(ctx context.Context, db *sql.DB, script, bookkeeping string, args ...any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}

// appliedAt creates the bookkeeping table when missing and returns the
// applied versions with their timestamps.
func appliedAt(ctx context.Context, db *sql.DB) (map[int64]time.Time, error) {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT version, applied_at FROM `+migrationTable)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := map[int64]time.Time{}
	for rows.Next() {
		var version int64
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// readMigrations pairs the up and down scripts under sql/ by version. Both
// halves must be present and agree on the name.
func readMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := map[int64]*Migration{}
	for _, file := range files {
		base := strings.TrimPrefix(file, "sql/")
		parts := fileNamePattern.FindStringSubmatch(base)
		if parts == nil {
			return nil, fmt.Errorf("migration file %q does not match NNNNNN_name.(up|down).sql", base)
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration file %q: %w", base, err)
		}
		script, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", base, err)
		}
		if strings.TrimSpace(string(script)) == "" {
			return nil, fmt.Errorf("migration file %q is empty", base)
		}

		item, ok := byVersion[version]
		if !ok {
			item = &Migration{Version: version, Name: parts[2]}
			byVersion[version] = item
		} else if item.Name != parts[2] {
			return nil, fmt.Errorf("migration %d is named both %q and %q", version, item.Name, parts[2])
		}
		if parts[3] == "up" {
			item.up = string(script)
		} else {
			item.down = string(script)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, item := range byVersion {
		switch {
		case item.up == "":
			return nil, fmt.Errorf("migration %06d_%s has no up script", item.Version, item.Name)
		case item.down == "":
			return nil, fmt.Errorf("migration %06d_%s has no down script", item.Version, item.Name)
		}
		migrations = append(migrations, *item)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}
