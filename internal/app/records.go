package app

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"lpm/internal/core"
	"lpm/internal/types"
)

func (s Service) AddDependency(ctx context.Context, req DependencyRequest) error {
	pkg, dep, err := s.dependencyPair(req)
	if err != nil {
		return err
	}
	return pkg.AddDependency(ctx, dep)
}

func (s Service) RemoveDependency(ctx context.Context, req DependencyRequest) error {
	pkg, dep, err := s.dependencyPair(req)
	if err != nil {
		return err
	}
	return pkg.RemoveDependency(ctx, dep)
}

func (s Service) Dependencies(ctx context.Context, req PackageRequest) ([]types.PackageRef, error) {
	pkg, err := s.Package(req)
	if err != nil {
		return nil, err
	}
	return pkg.Dependencies(ctx)
}

func (s Service) dependencyPair(req DependencyRequest) (*core.Package, core.Identity, error) {
	pkg, err := s.Package(req.Package)
	if err != nil {
		return nil, core.Identity{}, err
	}
	dep, err := s.identity(req.Dependency)
	if err != nil {
		return nil, core.Identity{}, err
	}
	return pkg, dep, nil
}

func (s Service) AddDir(ctx context.Context, req DirRequest) error {
	pkg, err := s.Package(req.Package)
	if err != nil {
		return err
	}
	switch req.Kind {
	case DirKindBin:
		return pkg.RegisterBinDir(ctx, req.Dir)
	case DirKindLib:
		return pkg.RegisterLibDir(ctx, req.Dir)
	default:
		return unknownDirKind(req.Kind)
	}
}

func (s Service) RemoveDir(ctx context.Context, req DirRequest) error {
	pkg, err := s.Package(req.Package)
	if err != nil {
		return err
	}
	switch req.Kind {
	case DirKindBin:
		return pkg.UnregisterBinDir(ctx, req.Dir)
	case DirKindLib:
		return pkg.UnregisterLibDir(ctx, req.Dir)
	default:
		return unknownDirKind(req.Kind)
	}
}

func (s Service) AddBinary(ctx context.Context, req BinaryRequest) error {
	pkg, err := s.Package(req.Package)
	if err != nil {
		return err
	}
	return pkg.RegisterBinary(ctx, req.Name)
}

func (s Service) RemoveBinary(ctx context.Context, req BinaryRequest) error {
	pkg, err := s.Package(req.Package)
	if err != nil {
		return err
	}
	return pkg.UnregisterBinary(ctx, req.Name)
}

func unknownDirKind(kind DirKind) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("directory kind must be bin or lib, got %q", kind))
}
