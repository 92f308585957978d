package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"lpm/internal/core"
	"lpm/internal/types"
)

// Apply loads a manifest and records its contents through the package API.
// The package record is created when missing. Entries are applied one at a
// time; the first failure stops the run and leaves earlier entries stored.
func (s Service) Apply(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	path := strings.TrimSpace(req.ManifestPath)
	if path == "" {
		return ApplyResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest path is required")
	}
	manifest, err := s.Manifests.LoadManifest(path)
	if err != nil {
		return ApplyResult{}, err
	}
	pkg, err := s.Package(PackageRequest{Name: manifest.Name, Version: manifest.Version})
	if err != nil {
		return ApplyResult{}, err
	}
	result := ApplyResult{Package: pkg.Ref()}
	exists, err := pkg.Exists(ctx)
	if err != nil {
		return ApplyResult{}, err
	}
	if !exists {
		if err := pkg.Create(ctx); err != nil {
			return ApplyResult{}, err
		}
		result.Created = true
	}
	for _, dep := range manifest.Dependencies {
		identity, err := s.identity(PackageRequest{Name: dep.Name, Version: dep.Version})
		if err != nil {
			return ApplyResult{}, err
		}
		if err := pkg.AddDependency(ctx, identity); err != nil {
			return ApplyResult{}, err
		}
		result.Dependencies++
	}
	scoped := []struct {
		scope     types.Scope
		variables []types.EnvVariable
	}{
		{types.ScopeBuild, manifest.Environment.Build},
		{types.ScopeRun, manifest.Environment.Run},
	}
	for _, entry := range scoped {
		count, err := declareAll(ctx, pkg, entry.scope, entry.variables)
		if err != nil {
			return ApplyResult{}, err
		}
		result.Variables += count
	}
	for _, dir := range manifest.BinDirs {
		if err := pkg.RegisterBinDir(ctx, dir); err != nil {
			return ApplyResult{}, err
		}
		result.BinDirs++
	}
	for _, dir := range manifest.LibDirs {
		if err := pkg.RegisterLibDir(ctx, dir); err != nil {
			return ApplyResult{}, err
		}
		result.LibDirs++
	}
	for _, binary := range manifest.Binaries {
		if err := pkg.RegisterBinary(ctx, binary); err != nil {
			return ApplyResult{}, err
		}
		result.Binaries++
	}
	log.Ctx(ctx).Info().
		Str("package", result.Package.String()).
		Str("manifest", path).
		Int("dependencies", result.Dependencies).
		Int("variables", result.Variables).
		Msg("manifest applied")
	return result, nil
}

func declareAll(ctx context.Context, pkg *core.Package, scope types.Scope, variables []types.EnvVariable) (int, error) {
	overlay, err := pkg.Environment(scope)
	if err != nil {
		return 0, err
	}
	for _, variable := range variables {
		if err := overlay.Declare(ctx, variable.Name, variable.Mode, variable.Values, variable.Separator); err != nil {
			return 0, err
		}
	}
	return len(variables), nil
}
