package ports

import "lpm/internal/types"

type ManifestPort interface {
	LoadManifest(path string) (types.Manifest, error)
}
