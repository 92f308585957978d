package app

import (
	"context"

	"lpm/internal/core"
	"lpm/internal/types"
)

func (s Service) DeclareEnv(ctx context.Context, req EnvDeclareRequest) error {
	overlay, err := s.overlay(req.Package, req.Scope)
	if err != nil {
		return err
	}
	return overlay.Declare(ctx, req.Name, req.Mode, req.Values, req.Separator)
}

func (s Service) AddEnvValue(ctx context.Context, req EnvValueRequest) error {
	overlay, err := s.overlay(req.Package, req.Scope)
	if err != nil {
		return err
	}
	return overlay.AddValue(ctx, req.Name, req.Value)
}

func (s Service) SetEnvValue(ctx context.Context, req EnvValueRequest) error {
	overlay, err := s.overlay(req.Package, req.Scope)
	if err != nil {
		return err
	}
	return overlay.SetValue(ctx, req.Name, req.Value)
}

func (s Service) RemoveEnvValue(ctx context.Context, req EnvValueRequest) error {
	overlay, err := s.overlay(req.Package, req.Scope)
	if err != nil {
		return err
	}
	return overlay.RemoveValue(ctx, req.Name, req.Value)
}

func (s Service) UndeclareEnv(ctx context.Context, req EnvVariableRequest) error {
	overlay, err := s.overlay(req.Package, req.Scope)
	if err != nil {
		return err
	}
	return overlay.Undeclare(ctx, req.Name)
}

func (s Service) GetEnv(ctx context.Context, req EnvVariableRequest) (string, error) {
	overlay, err := s.overlay(req.Package, req.Scope)
	if err != nil {
		return "", err
	}
	return overlay.Get(ctx, req.Name)
}

// Activate composes every variable declared in the scope.
func (s Service) Activate(ctx context.Context, req ActivateRequest) (ActivateResult, error) {
	pkg, err := s.Package(req.Package)
	if err != nil {
		return ActivateResult{}, err
	}
	overlay, err := pkg.Environment(req.Scope)
	if err != nil {
		return ActivateResult{}, err
	}
	if err := overlay.Hydrate(ctx); err != nil {
		return ActivateResult{}, err
	}
	return ActivateResult{
		Package:   pkg.Ref(),
		Scope:     req.Scope,
		Variables: overlay.AsMapping(),
	}, nil
}

func (s Service) overlay(req PackageRequest, scope types.Scope) (*core.EnvironmentOverlay, error) {
	pkg, err := s.Package(req)
	if err != nil {
		return nil, err
	}
	return pkg.Environment(scope)
}
