package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/ZanzyTHEbar/errbuilder-go"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog/log"

	"lpm/internal/ports"
	"lpm/internal/types"
)

// sqliteFormatVersion is the newest schema revision this adapter can read.
const sqliteFormatVersion = 1

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS format_version (
		version INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS packages (
		package      TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		version      TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'uninitialized',
		dependencies TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS env (
		package  TEXT NOT NULL REFERENCES packages(package) ON DELETE CASCADE,
		scope    TEXT NOT NULL,
		variable TEXT NOT NULL,
		mode     TEXT NOT NULL,
		sep      TEXT NOT NULL DEFAULT '',
		vals     TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (package, scope, variable)
	)`,
	`CREATE TABLE IF NOT EXISTS bindirs (
		package TEXT NOT NULL REFERENCES packages(package) ON DELETE CASCADE,
		dir     TEXT NOT NULL,
		PRIMARY KEY (package, dir)
	)`,
	`CREATE TABLE IF NOT EXISTS libdirs (
		package TEXT NOT NULL REFERENCES packages(package) ON DELETE CASCADE,
		dir     TEXT NOT NULL,
		PRIMARY KEY (package, dir)
	)`,
	`CREATE TABLE IF NOT EXISTS binaries (
		package TEXT NOT NULL REFERENCES packages(package) ON DELETE CASCADE,
		binary  TEXT NOT NULL,
		PRIMARY KEY (package, binary)
	)`,
}

// pathTable describes one of the per-package string list tables.
type pathTable struct {
	name   string
	column string
	kind   types.RecordKind
}

var (
	binDirTable = pathTable{name: "bindirs", column: "dir", kind: types.RecordBinDir}
	libDirTable = pathTable{name: "libdirs", column: "dir", kind: types.RecordLibDir}
	binaryTable = pathTable{name: "binaries", column: "binary", kind: types.RecordBinary}
)

// SQLiteStore persists package records in a single SQLite database file.
// Each mutation commits on its own.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ ports.PackageStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens path, creating the file and its parent directory when
// missing, and brings the schema up to date.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create package database directory").
			WithCause(err)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package database %s is not a file", path))
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open package database").
			WithCause(err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open package database").
			WithCause(err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Ctx(ctx).Info().Str("path", path).Msg("package database opened")
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDB("begin migration", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return wrapDB("create schema", err)
		}
	}
	var current int
	err = tx.QueryRowContext(ctx, `SELECT version FROM format_version LIMIT 1`).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `INSERT INTO format_version (version) VALUES (?)`, sqliteFormatVersion); err != nil {
			return wrapDB("record format version", err)
		}
	case err != nil:
		return wrapDB("read format version", err)
	case current > sqliteFormatVersion:
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package database %s has unsupported format version %d", s.path, current))
	}
	if err := tx.Commit(); err != nil {
		return wrapDB("commit migration", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreatePackage(ctx context.Context, ref types.PackageRef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO packages (package, name, version, status) VALUES (?, ?, ?, ?)`,
		ref.String(), ref.Name, ref.Version, string(types.PackageStatusUninitialized))
	if err != nil {
		return wrapDB("insert package", err)
	}
	log.Ctx(ctx).Debug().Str("package", ref.String()).Msg("package row inserted")
	return nil
}

// DeletePackage removes the package row; foreign keys cascade to the
// environment and list tables.
func (s *SQLiteStore) DeletePackage(ctx context.Context, ref types.PackageRef) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE package = ?`, ref.String())
	if err != nil {
		return wrapDB("delete package", err)
	}
	return requireAffected(result, types.RecordPackage, ref.String())
}

func (s *SQLiteStore) Exists(ctx context.Context, ref types.PackageRef) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM packages WHERE package = ?`, ref.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapDB("query package", err)
	}
	return true, nil
}

func (s *SQLiteStore) Status(ctx context.Context, ref types.PackageRef) (types.PackageStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM packages WHERE package = ?`, ref.String()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(types.RecordPackage, ref.String())
	}
	if err != nil {
		return "", wrapDB("query status", err)
	}
	return types.PackageStatus(status), nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, ref types.PackageRef, status types.PackageStatus) error {
	result, err := s.db.ExecContext(ctx, `UPDATE packages SET status = ? WHERE package = ?`, string(status), ref.String())
	if err != nil {
		return wrapDB("update status", err)
	}
	return requireAffected(result, types.RecordPackage, ref.String())
}

func (s *SQLiteStore) DeclareEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, variable types.EnvVariable) error {
	vals, err := json.Marshal(nonNil(variable.Values))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode environment values").
			WithCause(err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO env (package, scope, variable, mode, sep, vals) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (package, scope, variable) DO UPDATE SET
			mode = excluded.mode, sep = excluded.sep, vals = excluded.vals`,
		ref.String(), string(scope), variable.Name, string(variable.Mode), variable.Separator, string(vals))
	if err != nil {
		return wrapDB("store environment variable", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, name string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM env WHERE package = ? AND scope = ? AND variable = ?`,
		ref.String(), string(scope), name)
	if err != nil {
		return wrapDB("delete environment variable", err)
	}
	return requireAffected(result, types.RecordEnvVariable, name)
}

func (s *SQLiteStore) GetEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, name string) (types.EnvVariable, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT variable, mode, sep, vals FROM env WHERE package = ? AND scope = ? AND variable = ?`,
		ref.String(), string(scope), name)
	variable, err := scanEnvVariable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.EnvVariable{}, false, nil
	}
	if err != nil {
		return types.EnvVariable{}, false, err
	}
	return variable, true, nil
}

func (s *SQLiteStore) GetEnvVars(ctx context.Context, ref types.PackageRef, scope types.Scope) ([]types.EnvVariable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT variable, mode, sep, vals FROM env WHERE package = ? AND scope = ? ORDER BY rowid`,
		ref.String(), string(scope))
	if err != nil {
		return nil, wrapDB("query environment", err)
	}
	defer rows.Close()
	var out []types.EnvVariable
	for rows.Next() {
		variable, err := scanEnvVariable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, variable)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB("query environment", err)
	}
	return out, nil
}

// AddDependency appends dep to the tab-separated dependency field of the
// package row inside one transaction.
func (s *SQLiteStore) AddDependency(ctx context.Context, ref types.PackageRef, dep types.PackageRef) error {
	return s.updateDependencies(ctx, ref, func(deps []types.PackageRef) ([]types.PackageRef, error) {
		if slices.Contains(deps, dep) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeAlreadyExists).
				WithMsg(fmt.Sprintf("dependency %s already exists", dep))
		}
		return append(deps, dep), nil
	})
}

func (s *SQLiteStore) RemoveDependency(ctx context.Context, ref types.PackageRef, dep types.PackageRef) error {
	return s.updateDependencies(ctx, ref, func(deps []types.PackageRef) ([]types.PackageRef, error) {
		idx := slices.Index(deps, dep)
		if idx < 0 {
			return nil, notFound(types.RecordDependency, dep.String())
		}
		return slices.Delete(deps, idx, idx+1), nil
	})
}

func (s *SQLiteStore) GetDependencies(ctx context.Context, ref types.PackageRef) ([]types.PackageRef, error) {
	var field string
	err := s.db.QueryRowContext(ctx, `SELECT dependencies FROM packages WHERE package = ?`, ref.String()).Scan(&field)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDB("query dependencies", err)
	}
	return types.ParseDependencyList(field)
}

func (s *SQLiteStore) updateDependencies(ctx context.Context, ref types.PackageRef, update func([]types.PackageRef) ([]types.PackageRef, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDB("begin dependency update", err)
	}
	defer func() { _ = tx.Rollback() }()
	var field string
	err = tx.QueryRowContext(ctx, `SELECT dependencies FROM packages WHERE package = ?`, ref.String()).Scan(&field)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(types.RecordPackage, ref.String())
	}
	if err != nil {
		return wrapDB("query dependencies", err)
	}
	deps, err := types.ParseDependencyList(field)
	if err != nil {
		return err
	}
	deps, err = update(deps)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE packages SET dependencies = ? WHERE package = ?`,
		types.FormatDependencyList(deps), ref.String()); err != nil {
		return wrapDB("update dependencies", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapDB("commit dependency update", err)
	}
	return nil
}

func (s *SQLiteStore) AddBinDir(ctx context.Context, ref types.PackageRef, dir string) error {
	return s.insertPath(ctx, binDirTable, ref, dir)
}

func (s *SQLiteStore) RemoveBinDir(ctx context.Context, ref types.PackageRef, dir string) error {
	return s.deletePath(ctx, binDirTable, ref, dir)
}

func (s *SQLiteStore) GetBinDirs(ctx context.Context, ref types.PackageRef) ([]string, error) {
	return s.listPaths(ctx, binDirTable, ref)
}

func (s *SQLiteStore) AddLibDir(ctx context.Context, ref types.PackageRef, dir string) error {
	return s.insertPath(ctx, libDirTable, ref, dir)
}

func (s *SQLiteStore) RemoveLibDir(ctx context.Context, ref types.PackageRef, dir string) error {
	return s.deletePath(ctx, libDirTable, ref, dir)
}

func (s *SQLiteStore) GetLibDirs(ctx context.Context, ref types.PackageRef) ([]string, error) {
	return s.listPaths(ctx, libDirTable, ref)
}

func (s *SQLiteStore) AddBinary(ctx context.Context, ref types.PackageRef, binary string) error {
	return s.insertPath(ctx, binaryTable, ref, binary)
}

func (s *SQLiteStore) RemoveBinary(ctx context.Context, ref types.PackageRef, binary string) error {
	return s.deletePath(ctx, binaryTable, ref, binary)
}

func (s *SQLiteStore) GetBinaries(ctx context.Context, ref types.PackageRef) ([]string, error) {
	return s.listPaths(ctx, binaryTable, ref)
}

func (s *SQLiteStore) insertPath(ctx context.Context, table pathTable, ref types.PackageRef, value string) error {
	query := fmt.Sprintf(`INSERT INTO %s (package, %s) VALUES (?, ?)`, table.name, table.column)
	if _, err := s.db.ExecContext(ctx, query, ref.String(), value); err != nil {
		return wrapDB("insert "+string(table.kind), err)
	}
	return nil
}

func (s *SQLiteStore) deletePath(ctx context.Context, table pathTable, ref types.PackageRef, value string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE package = ? AND %s = ?`, table.name, table.column)
	result, err := s.db.ExecContext(ctx, query, ref.String(), value)
	if err != nil {
		return wrapDB("delete "+string(table.kind), err)
	}
	return requireAffected(result, table.kind, value)
}

func (s *SQLiteStore) listPaths(ctx context.Context, table pathTable, ref types.PackageRef) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE package = ? ORDER BY rowid`, table.column, table.name)
	rows, err := s.db.QueryContext(ctx, query, ref.String())
	if err != nil {
		return nil, wrapDB("query "+string(table.kind), err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, wrapDB("scan "+string(table.kind), err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB("query "+string(table.kind), err)
	}
	return out, nil
}

func scanEnvVariable(scanner interface{ Scan(...any) error }) (types.EnvVariable, error) {
	var (
		variable types.EnvVariable
		mode     string
		vals     string
	)
	if err := scanner.Scan(&variable.Name, &mode, &variable.Separator, &vals); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.EnvVariable{}, err
		}
		return types.EnvVariable{}, wrapDB("scan environment variable", err)
	}
	variable.Mode = types.EnvMode(mode)
	if err := json.Unmarshal([]byte(vals), &variable.Values); err != nil {
		return types.EnvVariable{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("corrupt values for environment variable %s", variable.Name)).
			WithCause(err)
	}
	if len(variable.Values) == 0 {
		variable.Values = nil
	}
	return variable, nil
}

func requireAffected(result sql.Result, kind types.RecordKind, label string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDB("rows affected", err)
	}
	if n == 0 {
		return notFound(kind, label)
	}
	return nil
}

func wrapDB(op string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("package database: " + op).
		WithCause(err)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
