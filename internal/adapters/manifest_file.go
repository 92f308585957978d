package adapters

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"lpm/internal/ports"
	"lpm/internal/types"
)

type ManifestFileAdapter struct{}

var _ ports.ManifestPort = ManifestFileAdapter{}

func NewManifestFileAdapter() ManifestFileAdapter {
	return ManifestFileAdapter{}
}

func (ManifestFileAdapter) LoadManifest(path string) (types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("manifest file not found").
			WithCause(err)
	}
	var manifest types.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid manifest format").
			WithCause(err)
	}
	if strings.TrimSpace(manifest.Name) == "" {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("manifest %s: name must be set", path))
	}
	if strings.TrimSpace(manifest.Version) == "" {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("manifest %s: version must be set", path))
	}
	for _, variable := range slices.Concat(manifest.Environment.Build, manifest.Environment.Run) {
		if !variable.Mode.Valid() {
			return types.Manifest{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("manifest %s: variable %s has invalid mode %q", path, variable.Name, variable.Mode))
		}
	}
	return manifest, nil
}
