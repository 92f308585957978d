package ports

import (
	"context"

	"lpm/internal/types"
)

// PackageStore is the durable record keeper for package metadata. Every
// mutation is committed on its own; the store offers no transaction spanning
// several calls.
type PackageStore interface {
	CreatePackage(ctx context.Context, ref types.PackageRef) error
	DeletePackage(ctx context.Context, ref types.PackageRef) error
	Exists(ctx context.Context, ref types.PackageRef) (bool, error)
	Status(ctx context.Context, ref types.PackageRef) (types.PackageStatus, error)
	SetStatus(ctx context.Context, ref types.PackageRef, status types.PackageStatus) error

	// DeclareEnvVar writes the full variable record, replacing any previous
	// record with the same name in that scope.
	DeclareEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, variable types.EnvVariable) error
	RemoveEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, name string) error
	GetEnvVar(ctx context.Context, ref types.PackageRef, scope types.Scope, name string) (types.EnvVariable, bool, error)
	GetEnvVars(ctx context.Context, ref types.PackageRef, scope types.Scope) ([]types.EnvVariable, error)

	AddDependency(ctx context.Context, ref types.PackageRef, dep types.PackageRef) error
	RemoveDependency(ctx context.Context, ref types.PackageRef, dep types.PackageRef) error
	GetDependencies(ctx context.Context, ref types.PackageRef) ([]types.PackageRef, error)

	AddBinDir(ctx context.Context, ref types.PackageRef, dir string) error
	RemoveBinDir(ctx context.Context, ref types.PackageRef, dir string) error
	GetBinDirs(ctx context.Context, ref types.PackageRef) ([]string, error)

	AddLibDir(ctx context.Context, ref types.PackageRef, dir string) error
	RemoveLibDir(ctx context.Context, ref types.PackageRef, dir string) error
	GetLibDirs(ctx context.Context, ref types.PackageRef) ([]string, error)

	AddBinary(ctx context.Context, ref types.PackageRef, binary string) error
	RemoveBinary(ctx context.Context, ref types.PackageRef, binary string) error
	GetBinaries(ctx context.Context, ref types.PackageRef) ([]string, error)

	Close() error
}
