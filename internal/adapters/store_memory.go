package adapters

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"lpm/internal/ports"
	"lpm/internal/types"
)

// MemoryStore keeps package records in process memory. It backs tests and
// the "memory" package database type.
type MemoryStore struct {
	mu       sync.Mutex
	packages map[string]*memoryPackage
}

type memoryPackage struct {
	status   types.PackageStatus
	deps     []types.PackageRef
	env      map[types.Scope][]types.EnvVariable
	binDirs  []string
	libDirs  []string
	binaries []string
}

var _ ports.PackageStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{packages: map[string]*memoryPackage{}}
}

func (s *MemoryStore) CreatePackage(_ context.Context, ref types.PackageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packages[ref.String()]; ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("package %s already exists", ref))
	}
	s.packages[ref.String()] = &memoryPackage{
		status: types.PackageStatusUninitialized,
		env:    map[types.Scope][]types.EnvVariable{},
	}
	return nil
}

func (s *MemoryStore) DeletePackage(_ context.Context, ref types.PackageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(ref); err != nil {
		return err
	}
	delete(s.packages, ref.String())
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, ref types.PackageRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.packages[ref.String()]
	return ok, nil
}

func (s *MemoryStore) Status(_ context.Context, ref types.PackageRef) (types.PackageStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, err := s.get(ref)
	if err != nil {
		return "", err
	}
	return pkg.status, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, ref types.PackageRef, status types.PackageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, err := s.get(ref)
	if err != nil {
		return err
	}
	pkg.status = status
	return nil
}

func (s *MemoryStore) DeclareEnvVar(_ context.Context, ref types.PackageRef, scope types.Scope, variable types.EnvVariable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, err := s.get(ref)
	if err != nil {
		return err
	}
	vars := pkg.env[scope]
	idx := slices.IndexFunc(vars, func(v types.EnvVariable) bool { return v.Name == variable.Name })
	if idx >= 0 {
		vars[idx] = variable.Clone()
	} else {
		pkg.env[scope] = append(vars, variable.Clone())
	}
	return nil
}

func (s *MemoryStore) RemoveEnvVar(_ context.Context, ref types.PackageRef, scope types.Scope, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, err := s.get(ref)
	if err != nil {
		return err
	}
	vars := pkg.env[scope]
	idx := slices.IndexFunc(vars, func(v types.EnvVariable) bool { return v.Name == name })
	if idx < 0 {
		return notFound(types.RecordEnvVariable, name)
	}
	pkg.env[scope] = slices.Delete(vars, idx, idx+1)
	return nil
}

func (s *MemoryStore) GetEnvVar(_ context.Context, ref types.PackageRef, scope types.Scope, name string) (types.EnvVariable, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[ref.String()]
	if !ok {
		return types.EnvVariable{}, false, nil
	}
	for _, variable := range pkg.env[scope] {
		if variable.Name == name {
			return variable.Clone(), true, nil
		}
	}
	return types.EnvVariable{}, false, nil
}

func (s *MemoryStore) GetEnvVars(_ context.Context, ref types.PackageRef, scope types.Scope) ([]types.EnvVariable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[ref.String()]
	if !ok {
		return nil, nil
	}
	out := make([]types.EnvVariable, 0, len(pkg.env[scope]))
	for _, variable := range pkg.env[scope] {
		out = append(out, variable.Clone())
	}
	return out, nil
}

func (s *MemoryStore) AddDependency(_ context.Context, ref types.PackageRef, dep types.PackageRef) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return addUnique(&pkg.deps, dep, types.RecordDependency, dep.String())
	})
}

func (s *MemoryStore) RemoveDependency(_ context.Context, ref types.PackageRef, dep types.PackageRef) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return removeOne(&pkg.deps, dep, types.RecordDependency, dep.String())
	})
}

func (s *MemoryStore) GetDependencies(_ context.Context, ref types.PackageRef) ([]types.PackageRef, error) {
	return listOf(s, ref, func(pkg *memoryPackage) []types.PackageRef { return pkg.deps })
}

func (s *MemoryStore) AddBinDir(_ context.Context, ref types.PackageRef, dir string) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return addUnique(&pkg.binDirs, dir, types.RecordBinDir, dir)
	})
}

func (s *MemoryStore) RemoveBinDir(_ context.Context, ref types.PackageRef, dir string) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return removeOne(&pkg.binDirs, dir, types.RecordBinDir, dir)
	})
}

func (s *MemoryStore) GetBinDirs(_ context.Context, ref types.PackageRef) ([]string, error) {
	return listOf(s, ref, func(pkg *memoryPackage) []string { return pkg.binDirs })
}

func (s *MemoryStore) AddLibDir(_ context.Context, ref types.PackageRef, dir string) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return addUnique(&pkg.libDirs, dir, types.RecordLibDir, dir)
	})
}

func (s *MemoryStore) RemoveLibDir(_ context.Context, ref types.PackageRef, dir string) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return removeOne(&pkg.libDirs, dir, types.RecordLibDir, dir)
	})
}

func (s *MemoryStore) GetLibDirs(_ context.Context, ref types.PackageRef) ([]string, error) {
	return listOf(s, ref, func(pkg *memoryPackage) []string { return pkg.libDirs })
}

func (s *MemoryStore) AddBinary(_ context.Context, ref types.PackageRef, binary string) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return addUnique(&pkg.binaries, binary, types.RecordBinary, binary)
	})
}

func (s *MemoryStore) RemoveBinary(_ context.Context, ref types.PackageRef, binary string) error {
	return s.mutate(ref, func(pkg *memoryPackage) error {
		return removeOne(&pkg.binaries, binary, types.RecordBinary, binary)
	})
}

func (s *MemoryStore) GetBinaries(_ context.Context, ref types.PackageRef) ([]string, error) {
	return listOf(s, ref, func(pkg *memoryPackage) []string { return pkg.binaries })
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) get(ref types.PackageRef) (*memoryPackage, error) {
	pkg, ok := s.packages[ref.String()]
	if !ok {
		return nil, notFound(types.RecordPackage, ref.String())
	}
	return pkg, nil
}

func (s *MemoryStore) mutate(ref types.PackageRef, fn func(pkg *memoryPackage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, err := s.get(ref)
	if err != nil {
		return err
	}
	return fn(pkg)
}

func listOf[T any](s *MemoryStore, ref types.PackageRef, field func(pkg *memoryPackage) []T) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[ref.String()]
	if !ok {
		return nil, nil
	}
	return slices.Clone(field(pkg)), nil
}

func addUnique[T comparable](items *[]T, value T, kind types.RecordKind, label string) error {
	if slices.Contains(*items, value) {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("%s %s already exists", kind, label))
	}
	*items = append(*items, value)
	return nil
}

func removeOne[T comparable](items *[]T, value T, kind types.RecordKind, label string) error {
	idx := slices.Index(*items, value)
	if idx < 0 {
		return notFound(kind, label)
	}
	*items = slices.Delete(*items, idx, idx+1)
	return nil
}

func notFound(kind types.RecordKind, label string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s %s not found", kind, label))
}
