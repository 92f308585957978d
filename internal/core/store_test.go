package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lpm/internal/adapters"
	"lpm/internal/types"
)

var errStoreDown = errors.New("store unavailable")

// faultyStore wraps the memory store, failing every mutation while broken is
// set and counting environment reads.
type faultyStore struct {
	*adapters.MemoryStore
	broken        bool
	envReads      int
	envScopeReads int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: adapters.NewMemoryStore()}
}

func (s *faultyStore) fail() error {
	if s.broken {
		return errStoreDown
	}
	return nil
}

func (s *faultyStore) SetStatus(ctx context.Context, ref types.PackageRef, status types.PackageStatus) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.SetStatus(ctx, ref, status)
}

func (s *faultyStore) DeclareEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, variable types.EnvVariable) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.DeclareEnvVar(ctx, ref, scope, variable)
}

func (s *faultyStore) RemoveEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, name string) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.RemoveEnvVar(ctx, ref, scope, name)
}

func (s *faultyStore) GetEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, name string) (types.EnvVariable, bool, error) {
	s.envReads++
	return s.MemoryStore.GetEnvVar(ctx, ref, scope, name)
}

func (s *faultyStore) GetEnvVars(ctx context.Context, ref types.PackageRef, scope types.Scope) ([]types.EnvVariable, error) {
	s.envScopeReads++
	return s.MemoryStore.GetEnvVars(ctx, ref, scope)
}

func (s *faultyStore) AddDependency(ctx context.Context, ref types.PackageRef, dep types.PackageRef) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.AddDependency(ctx, ref, dep)
}

func (s *faultyStore) RemoveDependency(ctx context.Context, ref types.PackageRef, dep types.PackageRef) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.RemoveDependency(ctx, ref, dep)
}

func (s *faultyStore) AddBinDir(ctx context.Context, ref types.PackageRef, dir string) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.AddBinDir(ctx, ref, dir)
}

func (s *faultyStore) AddLibDir(ctx context.Context, ref types.PackageRef, dir string) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.AddLibDir(ctx, ref, dir)
}

func (s *faultyStore) AddBinary(ctx context.Context, ref types.PackageRef, binary string) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.AddBinary(ctx, ref, binary)
}

func testLayout(t *testing.T) InstallLayout {
	t.Helper()
	return InstallLayout{Dir: filepath.Join(t.TempDir(), "packages"), Permissions: 0o755}
}

func testIdentity(t *testing.T, name string, version string) Identity {
	t.Helper()
	return Identity{Name: name, Version: mustResolve(t, NewDefaultRegistry(), version)}
}

// newStoredPackage returns a package view whose store record exists.
func newStoredPackage(t *testing.T, store *faultyStore, name string, version string) *Package {
	t.Helper()
	pkg, err := NewPackage(testLayout(t), store, name, testIdentity(t, name, version).Version)
	require.NoError(t, err)
	require.NoError(t, pkg.Create(context.Background()))
	return pkg
}
