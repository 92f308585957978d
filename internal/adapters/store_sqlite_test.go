package adapters

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpm/internal/types"
)

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "packages.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.CreatePackage(ctx, demoRef))
	require.NoError(t, store.SetStatus(ctx, demoRef, types.PackageStatusInstalled))
	require.NoError(t, store.AddDependency(ctx, demoRef, libRef))
	require.NoError(t, store.AddLibDir(ctx, demoRef, "lib"))
	require.NoError(t, store.DeclareEnvVar(ctx, demoRef, types.ScopeBuild, types.EnvVariable{
		Name: "CFLAGS", Mode: types.EnvModeAppend, Separator: " ", Values: []string{"-O2", "-g"},
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	status, err := reopened.Status(ctx, demoRef)
	require.NoError(t, err)
	assert.Equal(t, types.PackageStatusInstalled, status)
	deps, err := reopened.GetDependencies(ctx, demoRef)
	require.NoError(t, err)
	assert.Equal(t, []types.PackageRef{libRef}, deps)
	libDirs, err := reopened.GetLibDirs(ctx, demoRef)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib"}, libDirs)
	cflags, ok, err := reopened.GetEnvVar(ctx, demoRef, types.ScopeBuild, "CFLAGS")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"-O2", "-g"}, cflags.Values)
	assert.Equal(t, " ", cflags.Separator)
}

func TestSQLiteStoreDependencyField(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteTestStore(t)
	require.NoError(t, store.CreatePackage(ctx, demoRef))
	require.NoError(t, store.AddDependency(ctx, demoRef, libRef))
	require.NoError(t, store.AddDependency(ctx, demoRef, types.PackageRef{Name: "libbar", Version: "1.0 (main)"}))

	var field string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT dependencies FROM packages WHERE package = ?`, demoRef.String()).Scan(&field))
	assert.Equal(t, "libfoo;2.1\tlibbar;1.0 (main)", field)
}

func TestSQLiteStoreRejectsNewerFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "packages.db")
	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, `UPDATE format_version SET version = ?`, sqliteFormatVersion+1)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewSQLiteStore(ctx, path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestSQLiteStoreRejectsDirectory(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestSQLiteStoreCorruptValues(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteTestStore(t)
	require.NoError(t, store.CreatePackage(ctx, demoRef))
	require.NoError(t, store.DeclareEnvVar(ctx, demoRef, types.ScopeRun, types.EnvVariable{Name: "CC", Mode: types.EnvModeOverwrite, Values: []string{"gcc"}}))
	_, err := store.db.ExecContext(ctx, `UPDATE env SET vals = 'not json'`)
	require.NoError(t, err)

	_, _, err = store.GetEnvVar(ctx, demoRef, types.ScopeRun, "CC")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}
