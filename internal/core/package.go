package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"lpm/internal/ports"
	"lpm/internal/types"
)

// InstallLayout is the part of the configuration a package needs to place
// its install directory.
type InstallLayout struct {
	Dir         string
	Permissions os.FileMode
}

// Identity is a package name together with its resolved version.
type Identity struct {
	Name    string
	Version Version
}

func (id Identity) Ref() types.PackageRef {
	return types.PackageRef{Name: id.Name, Version: id.Version.String()}
}

func (id Identity) String() string {
	return id.Ref().String()
}

// Package is a disposable view over the stored record of one (name, version)
// pair. It holds no lock; callers must not mutate the same identity from two
// views at once. Lists are loaded lazily and kept in sync with the store
// through write-then-cache updates.
//
// Sequences of calls are not atomic as a whole: Initialize followed by
// SetStatus(installed) commits two independent store writes, and a crash in
// between leaves the package in the installing state.
type Package struct {
	layout  InstallLayout
	store   ports.PackageStore
	id      Identity
	ref     types.PackageRef
	status  types.PackageStatus
	deps    recordSet[types.PackageRef]
	binDirs recordSet[string]
	libDirs recordSet[string]
	bins    recordSet[string]
	build   *EnvironmentOverlay
	run     *EnvironmentOverlay
}

func NewPackage(layout InstallLayout, store ports.PackageStore, name string, version Version) (*Package, error) {
	if err := validatePackageName(name); err != nil {
		return nil, err
	}
	if version.IsZero() {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package %s requires a resolved version", name))
	}
	if store == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package requires a store")
	}
	id := Identity{Name: name, Version: version}
	ref := id.Ref()
	return &Package{
		layout: layout,
		store:  store,
		id:     id,
		ref:    ref,
		build:  NewEnvironmentOverlay(store, ref, types.ScopeBuild),
		run:    NewEnvironmentOverlay(store, ref, types.ScopeRun),
	}, nil
}

func (p *Package) Name() string {
	return p.id.Name
}

func (p *Package) Version() Version {
	return p.id.Version
}

func (p *Package) Identity() Identity {
	return p.id
}

func (p *Package) Ref() types.PackageRef {
	return p.ref
}

func (p *Package) BuildEnvironment() *EnvironmentOverlay {
	return p.build
}

func (p *Package) RunEnvironment() *EnvironmentOverlay {
	return p.run
}

// Environment returns the overlay of the given scope.
func (p *Package) Environment(scope types.Scope) (*EnvironmentOverlay, error) {
	switch scope {
	case types.ScopeBuild:
		return p.build, nil
	case types.ScopeRun:
		return p.run, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown environment scope %q", scope))
	}
}

// InstallPath returns <install dir>/<name>/<version safe name>.
func (p *Package) InstallPath() string {
	return filepath.Join(p.layout.Dir, p.id.Name, p.id.Version.SafeName())
}

// Exists reports whether the store holds a record for this package.
func (p *Package) Exists(ctx context.Context) (bool, error) {
	exists, err := p.store.Exists(ctx, p.ref)
	if err != nil {
		return false, &types.PersistenceError{Op: "exists", Err: err}
	}
	return exists, nil
}

// Create adds the store record in the uninitialized state.
func (p *Package) Create(ctx context.Context) error {
	exists, err := p.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return &types.DuplicateError{Kind: types.RecordPackage, Name: p.ref.String()}
	}
	if err := p.store.CreatePackage(ctx, p.ref); err != nil {
		return &types.PersistenceError{Op: "create package", Err: err}
	}
	p.status = types.PackageStatusUninitialized
	log.Ctx(ctx).Debug().Str("package", p.ref.String()).Msg("package record created")
	return nil
}

// Delete removes the store record and everything attached to it. The
// install directory is left alone.
func (p *Package) Delete(ctx context.Context) error {
	if err := p.store.DeletePackage(ctx, p.ref); err != nil {
		return &types.PersistenceError{Op: "delete package", Err: err}
	}
	p.status = ""
	p.deps, p.binDirs, p.libDirs, p.bins = recordSet[types.PackageRef]{}, recordSet[string]{}, recordSet[string]{}, recordSet[string]{}
	p.build = NewEnvironmentOverlay(p.store, p.ref, types.ScopeBuild)
	p.run = NewEnvironmentOverlay(p.store, p.ref, types.ScopeRun)
	log.Ctx(ctx).Debug().Str("package", p.ref.String()).Msg("package record deleted")
	return nil
}

// Status returns the install status. A package without a store record is
// uninitialized.
func (p *Package) Status(ctx context.Context) (types.PackageStatus, error) {
	if p.status != "" {
		return p.status, nil
	}
	exists, err := p.Exists(ctx)
	if err != nil {
		return "", err
	}
	if !exists {
		return types.PackageStatusUninitialized, nil
	}
	status, err := p.store.Status(ctx, p.ref)
	if err != nil {
		return "", &types.PersistenceError{Op: "status", Err: err}
	}
	p.status = status
	return status, nil
}

// SetStatus moves the package forward in its lifecycle. Backward moves and
// no-op moves are rejected.
func (p *Package) SetStatus(ctx context.Context, status types.PackageStatus) error {
	if !status.Valid() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown package status %q", status))
	}
	current, err := p.Status(ctx)
	if err != nil {
		return err
	}
	if !current.Precedes(status) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package %s cannot move from %s to %s", p.ref, current, status))
	}
	if err := p.store.SetStatus(ctx, p.ref, status); err != nil {
		return &types.PersistenceError{Op: "set status", Err: err}
	}
	p.status = status
	log.Ctx(ctx).Debug().
		Str("package", p.ref.String()).
		Str("status", string(status)).
		Msg("package status changed")
	return nil
}

// Initialize creates the install directory and marks the package as
// installing. The version directory must not exist yet, so a second call
// fails instead of silently succeeding. The install root and the per-name
// directory above it are shared by every version of the package and are
// created on demand. If the store rejects the record the new version
// directory is removed again, so the call can be retried.
func (p *Package) Initialize(ctx context.Context) (string, error) {
	path := p.InstallPath()
	if _, err := os.Stat(path); err == nil {
		return "", &types.FilesystemError{Path: path, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", &types.FilesystemError{Path: path, Err: err}
	}
	current, err := p.Status(ctx)
	if err != nil {
		return "", err
	}
	if current != types.PackageStatusUninitialized {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("package %s is already %s", p.ref, current))
	}
	packageRoot := filepath.Dir(path)
	if err := os.MkdirAll(packageRoot, p.layout.Permissions); err != nil {
		return "", &types.FilesystemError{Path: packageRoot, Err: err}
	}
	if err := os.Mkdir(path, p.layout.Permissions); err != nil {
		return "", &types.FilesystemError{Path: path, Err: err}
	}
	if err := p.markInstalling(ctx); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Ctx(ctx).Warn().
				Err(rmErr).
				Str("path", path).
				Msg("failed to remove install directory")
		}
		return "", err
	}
	log.Ctx(ctx).Info().
		Str("package", p.ref.String()).
		Str("path", path).
		Msg("package initialized")
	return path, nil
}

func (p *Package) markInstalling(ctx context.Context) error {
	exists, err := p.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if err := p.store.CreatePackage(ctx, p.ref); err != nil {
			return &types.PersistenceError{Op: "create package", Err: err}
		}
	}
	if err := p.store.SetStatus(ctx, p.ref, types.PackageStatusInstalling); err != nil {
		return &types.PersistenceError{Op: "set status", Err: err}
	}
	p.status = types.PackageStatusInstalling
	return nil
}

// AddDependency records an edge to dep. Self edges and duplicate edges are
// rejected.
func (p *Package) AddDependency(ctx context.Context, dep Identity) error {
	if err := validatePackageName(dep.Name); err != nil {
		return err
	}
	if dep.Version.IsZero() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("dependency %s requires a resolved version", dep.Name))
	}
	if dep.Name == p.id.Name && dep.Version.Equal(p.id.Version) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package %s cannot depend on itself", p.ref))
	}
	depRef := dep.Ref()
	return addRecord(ctx, &p.deps, types.RecordDependency, depRef, depRef.String(),
		func() ([]types.PackageRef, error) { return p.store.GetDependencies(ctx, p.ref) },
		func() error { return p.store.AddDependency(ctx, p.ref, depRef) })
}

// RemoveDependency drops the edge to dep. A missing edge is an error.
func (p *Package) RemoveDependency(ctx context.Context, dep Identity) error {
	depRef := dep.Ref()
	return removeRecord(ctx, &p.deps, types.RecordDependency, depRef, depRef.String(),
		func() ([]types.PackageRef, error) { return p.store.GetDependencies(ctx, p.ref) },
		func() error { return p.store.RemoveDependency(ctx, p.ref, depRef) })
}

// Dependencies returns the recorded edges in insertion order.
func (p *Package) Dependencies(ctx context.Context) ([]types.PackageRef, error) {
	return listRecords(&p.deps, func() ([]types.PackageRef, error) { return p.store.GetDependencies(ctx, p.ref) })
}

func (p *Package) RegisterBinDir(ctx context.Context, dir string) error {
	dir, err := cleanDir(dir)
	if err != nil {
		return err
	}
	return addRecord(ctx, &p.binDirs, types.RecordBinDir, dir, dir,
		func() ([]string, error) { return p.store.GetBinDirs(ctx, p.ref) },
		func() error { return p.store.AddBinDir(ctx, p.ref, dir) })
}

func (p *Package) UnregisterBinDir(ctx context.Context, dir string) error {
	dir = filepath.Clean(dir)
	return removeRecord(ctx, &p.binDirs, types.RecordBinDir, dir, dir,
		func() ([]string, error) { return p.store.GetBinDirs(ctx, p.ref) },
		func() error { return p.store.RemoveBinDir(ctx, p.ref, dir) })
}

func (p *Package) BinDirs(ctx context.Context) ([]string, error) {
	return listRecords(&p.binDirs, func() ([]string, error) { return p.store.GetBinDirs(ctx, p.ref) })
}

func (p *Package) RegisterLibDir(ctx context.Context, dir string) error {
	dir, err := cleanDir(dir)
	if err != nil {
		return err
	}
	return addRecord(ctx, &p.libDirs, types.RecordLibDir, dir, dir,
		func() ([]string, error) { return p.store.GetLibDirs(ctx, p.ref) },
		func() error { return p.store.AddLibDir(ctx, p.ref, dir) })
}

func (p *Package) UnregisterLibDir(ctx context.Context, dir string) error {
	dir = filepath.Clean(dir)
	return removeRecord(ctx, &p.libDirs, types.RecordLibDir, dir, dir,
		func() ([]string, error) { return p.store.GetLibDirs(ctx, p.ref) },
		func() error { return p.store.RemoveLibDir(ctx, p.ref, dir) })
}

func (p *Package) LibDirs(ctx context.Context) ([]string, error) {
	return listRecords(&p.libDirs, func() ([]string, error) { return p.store.GetLibDirs(ctx, p.ref) })
}

// RegisterBinary exports an executable name. Names are bare file names.
func (p *Package) RegisterBinary(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsRune(name, filepath.Separator) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid binary name %q", name))
	}
	return addRecord(ctx, &p.bins, types.RecordBinary, name, name,
		func() ([]string, error) { return p.store.GetBinaries(ctx, p.ref) },
		func() error { return p.store.AddBinary(ctx, p.ref, name) })
}

func (p *Package) UnregisterBinary(ctx context.Context, name string) error {
	return removeRecord(ctx, &p.bins, types.RecordBinary, name, name,
		func() ([]string, error) { return p.store.GetBinaries(ctx, p.ref) },
		func() error { return p.store.RemoveBinary(ctx, p.ref, name) })
}

func (p *Package) Binaries(ctx context.Context) ([]string, error) {
	return listRecords(&p.bins, func() ([]string, error) { return p.store.GetBinaries(ctx, p.ref) })
}

// recordSet caches an ordered list of unique store records. It is filled
// from the store on first use.
type recordSet[T comparable] struct {
	loaded bool
	items  []T
}

func (s *recordSet[T]) ensure(load func() ([]T, error)) error {
	if s.loaded {
		return nil
	}
	items, err := load()
	if err != nil {
		return &types.PersistenceError{Op: "load records", Err: err}
	}
	s.items = slices.Clone(items)
	s.loaded = true
	return nil
}

func addRecord[T comparable](ctx context.Context, set *recordSet[T], kind types.RecordKind, value T, label string, load func() ([]T, error), write func() error) error {
	if err := set.ensure(load); err != nil {
		return err
	}
	if slices.Contains(set.items, value) {
		return &types.DuplicateError{Kind: kind, Name: label}
	}
	if err := write(); err != nil {
		return &types.PersistenceError{Op: "add " + string(kind), Err: err}
	}
	set.items = append(slices.Clip(set.items), value)
	log.Ctx(ctx).Debug().Str("kind", string(kind)).Str("value", label).Msg("record added")
	return nil
}

func removeRecord[T comparable](ctx context.Context, set *recordSet[T], kind types.RecordKind, value T, label string, load func() ([]T, error), write func() error) error {
	if err := set.ensure(load); err != nil {
		return err
	}
	idx := slices.Index(set.items, value)
	if idx < 0 {
		return &types.NotFoundError{Kind: kind, Name: label}
	}
	if err := write(); err != nil {
		return &types.PersistenceError{Op: "remove " + string(kind), Err: err}
	}
	set.items = slices.Delete(slices.Clone(set.items), idx, idx+1)
	log.Ctx(ctx).Debug().Str("kind", string(kind)).Str("value", label).Msg("record removed")
	return nil
}

func listRecords[T comparable](set *recordSet[T], load func() ([]T, error)) ([]T, error) {
	if err := set.ensure(load); err != nil {
		return nil, err
	}
	return slices.Clone(set.items), nil
}

func validatePackageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name must not be empty")
	}
	if strings.ContainsAny(name, ";\t/") || name == "." || name == ".." {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package name %q", name))
	}
	return nil
}

func cleanDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("directory must not be empty")
	}
	return filepath.Clean(dir), nil
}
