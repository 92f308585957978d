package types

// Manifest describes a package's metadata as written by packagers. It is
// applied through the package API, never written to the store directly.
type Manifest struct {
	Name         string               `yaml:"name"`
	Version      string               `yaml:"version"`
	Dependencies []ManifestDependency `yaml:"dependencies"`
	Environment  ManifestEnvironment  `yaml:"environment"`
	BinDirs      []string             `yaml:"bin_dirs"`
	LibDirs      []string             `yaml:"lib_dirs"`
	Binaries     []string             `yaml:"binaries"`
}

type ManifestDependency struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ManifestEnvironment struct {
	Build []EnvVariable `yaml:"build"`
	Run   []EnvVariable `yaml:"run"`
}
