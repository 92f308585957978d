package app

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"lpm/internal/adapters"
	"lpm/internal/config"
	"lpm/internal/core"
	"lpm/internal/ports"
)

type Service struct {
	Settings  config.Settings
	Store     ports.PackageStore
	Registry  *core.VersionRegistry
	Manifests ports.ManifestPort
}

// NewService opens the package database named by settings. The caller owns
// the returned service and must Close it.
func NewService(ctx context.Context, settings config.Settings) (Service, error) {
	assert.NotEmpty(ctx, settings.Install.Dir, "install.dir must be set")
	store, err := openStore(ctx, settings.PackageDB)
	if err != nil {
		return Service{}, err
	}
	return NewServiceWithStore(settings, store), nil
}

func NewServiceWithStore(settings config.Settings, store ports.PackageStore) Service {
	return Service{
		Settings:  settings,
		Store:     store,
		Registry:  core.NewDefaultRegistry(),
		Manifests: adapters.NewManifestFileAdapter(),
	}
}

func openStore(ctx context.Context, db config.PackageDB) (ports.PackageStore, error) {
	switch db.Type {
	case config.StoreTypeMemory:
		return adapters.NewMemoryStore(), nil
	case config.StoreTypeSQLite, "":
		assert.NotEmpty(ctx, db.File, "packageDb.dbFile must be set")
		return adapters.NewSQLiteStore(ctx, db.File)
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported package database type %q", db.Type))
	}
}

func (s Service) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// Package builds a view over the (name, version) record. The version text
// is resolved through the registry.
func (s Service) Package(req PackageRequest) (*core.Package, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}
	version, err := s.resolveVersion(req.Version)
	if err != nil {
		return nil, err
	}
	return core.NewPackage(s.layout(), s.Store, name, version)
}

func (s Service) identity(req PackageRequest) (core.Identity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return core.Identity{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("dependency name is required")
	}
	version, err := s.resolveVersion(req.Version)
	if err != nil {
		return core.Identity{}, err
	}
	return core.Identity{Name: name, Version: version}, nil
}

func (s Service) resolveVersion(text string) (core.Version, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("version is required")
	}
	return s.Registry.Resolve(text)
}

func (s Service) layout() core.InstallLayout {
	return core.InstallLayout{
		Dir:         s.Settings.Install.Dir,
		Permissions: s.Settings.Install.Permissions,
	}
}
