package app

import "lpm/internal/types"

type PackageRequest struct {
	Name    string
	Version string
}

type VersionInfo struct {
	Text      string
	Format    string
	Canonical string
	SafeName  string
}

type CompareResult struct {
	Left  VersionInfo
	Right VersionInfo
	Order int
}

type InstallResult struct {
	Package types.PackageRef
	Path    string
}

type StatusRequest struct {
	Package PackageRequest
	Status  types.PackageStatus
}

type PackageInfo struct {
	Package      types.PackageRef
	Status       types.PackageStatus
	InstallPath  string
	Dependencies []types.PackageRef
	BinDirs      []string
	LibDirs      []string
	Binaries     []string
}

type DependencyRequest struct {
	Package    PackageRequest
	Dependency PackageRequest
}

type DirKind string

const (
	DirKindBin DirKind = "bin"
	DirKindLib DirKind = "lib"
)

type DirRequest struct {
	Package PackageRequest
	Kind    DirKind
	Dir     string
}

type BinaryRequest struct {
	Package PackageRequest
	Name    string
}

type EnvDeclareRequest struct {
	Package   PackageRequest
	Scope     types.Scope
	Name      string
	Mode      types.EnvMode
	Values    []string
	Separator string
}

type EnvValueRequest struct {
	Package PackageRequest
	Scope   types.Scope
	Name    string
	Value   string
}

type EnvVariableRequest struct {
	Package PackageRequest
	Scope   types.Scope
	Name    string
}

type ActivateRequest struct {
	Package PackageRequest
	Scope   types.Scope
}

type ActivateResult struct {
	Package   types.PackageRef
	Scope     types.Scope
	Variables map[string]string
}

type ApplyRequest struct {
	ManifestPath string
}

type ApplyResult struct {
	Package      types.PackageRef
	Created      bool
	Dependencies int
	Variables    int
	BinDirs      int
	LibDirs      int
	Binaries     int
}
