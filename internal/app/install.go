package app

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Install creates the install directory of a package and marks it as
// installing. Populating the directory is left to the caller.
func (s Service) Install(ctx context.Context, req PackageRequest) (InstallResult, error) {
	pkg, err := s.Package(req)
	if err != nil {
		return InstallResult{}, err
	}
	path, err := pkg.Initialize(ctx)
	if err != nil {
		return InstallResult{}, err
	}
	return InstallResult{Package: pkg.Ref(), Path: path}, nil
}

func (s Service) SetStatus(ctx context.Context, req StatusRequest) (PackageInfo, error) {
	pkg, err := s.Package(req.Package)
	if err != nil {
		return PackageInfo{}, err
	}
	if err := pkg.SetStatus(ctx, req.Status); err != nil {
		return PackageInfo{}, err
	}
	log.Ctx(ctx).Info().
		Str("package", pkg.Ref().String()).
		Str("status", string(req.Status)).
		Msg("status updated")
	return PackageInfo{Package: pkg.Ref(), Status: req.Status, InstallPath: pkg.InstallPath()}, nil
}

// Describe collects everything recorded about a package. A package without
// a record reports the uninitialized status and empty lists.
func (s Service) Describe(ctx context.Context, req PackageRequest) (PackageInfo, error) {
	pkg, err := s.Package(req)
	if err != nil {
		return PackageInfo{}, err
	}
	info := PackageInfo{Package: pkg.Ref(), InstallPath: pkg.InstallPath()}
	if info.Status, err = pkg.Status(ctx); err != nil {
		return PackageInfo{}, err
	}
	if info.Dependencies, err = pkg.Dependencies(ctx); err != nil {
		return PackageInfo{}, err
	}
	if info.BinDirs, err = pkg.BinDirs(ctx); err != nil {
		return PackageInfo{}, err
	}
	if info.LibDirs, err = pkg.LibDirs(ctx); err != nil {
		return PackageInfo{}, err
	}
	if info.Binaries, err = pkg.Binaries(ctx); err != nil {
		return PackageInfo{}, err
	}
	return info, nil
}
