package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/fixora/agentpulse/internal/logger"
)

type migrationFile struct {
	version int
	name    string
	path    string
	kind    string // up or down
}

// Migrator applies versioned SQL files and records them in schema_migrations
type Migrator struct {
	db     *sql.DB
	files  fs.FS
	logger logger.Logger
}

// New creates a migrator over the *.up.sql / *.down.sql files in files
func New(db *sql.DB, files fs.FS, log logger.Logger) *Migrator {
	return &Migrator{db: db, files: files, logger: log}
}

// Up applies every pending up migration in version order and returns how many ran
func (m *Migrator) Up(ctx context.Context) (int, error) {
	files, err := m.load("up")
	if err != nil {
		return 0, err
	}
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return 0, err
	}

	applied := 0
	for _, f := range files {
		done, err := m.alreadyApplied(ctx, f.version)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		m.logger.Info(ctx, "Applying migration", map[string]interface{}{"version": f.version, "name": f.name})
		err = m.exec(ctx, f, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", f.version, f.name)
		if err != nil {
			return applied, fmt.Errorf("failed applying %s: %w", f.path, err)
		}
		applied++
	}
	return applied, nil
}

// Down reverts every applied migration in reverse version order and returns how many ran
func (m *Migrator) Down(ctx context.Context) (int, error) {
	files, err := m.load("down")
	if err != nil {
		return 0, err
	}
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return 0, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version > files[j].version })

	reverted := 0
	for _, f := range files {
		done, err := m.alreadyApplied(ctx, f.version)
		if err != nil {
			return reverted, err
		}
		if !done {
			continue
		}

		m.logger.Info(ctx, "Reverting migration", map[string]interface{}{"version": f.version, "name": f.name})
		if err := m.exec(ctx, f, "DELETE FROM schema_migrations WHERE version = $1", f.version); err != nil {
			return reverted, fmt.Errorf("failed reverting %s: %w", f.path, err)
		}
		reverted++
	}
	return reverted, nil
}

func (m *Migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) alreadyApplied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return exists, nil
}

// exec runs the file and its bookkeeping statement in one transaction
func (m *Migrator) exec(ctx context.Context, f migrationFile, record string, args ...interface{}) error {
	body, err := fs.ReadFile(m.files, f.path)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Migrator) load(kind string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), "."+kind+".sql") {
			continue
		}

		version, migName, err := parseVersionAndName(name)
		if err != nil {
			m.logger.Warn(context.Background(), "Skipping migration without version prefix", map[string]interface{}{"file": name})
			continue
		}
		files = append(files, migrationFile{version: version, name: migName, path: name, kind: kind})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// parseVersionAndName splits 001_initial_schema.up.sql into 1 and initial_schema
func parseVersionAndName(filename string) (int, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return 0, "", errors.New("invalid filename")
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", errors.New("invalid version")
	}
	name := parts[1]
	for _, suffix := range []string{".up.sql", ".down.sql"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return version, name, nil
}
