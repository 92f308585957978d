package types

import "fmt"

// RecordKind names the kind of package record an error refers to.
type RecordKind string

const (
	RecordPackage     RecordKind = "package"
	RecordDependency  RecordKind = "dependency"
	RecordEnvVariable RecordKind = "environment variable"
	RecordEnvValue    RecordKind = "environment value"
	RecordBinDir      RecordKind = "bin dir"
	RecordLibDir      RecordKind = "lib dir"
	RecordBinary      RecordKind = "binary"
)

// VersionParseError is returned when no registered version format accepts
// a string.
type VersionParseError struct {
	Text string
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("failed to parse version string %q", e.Text)
}

// EnvironmentModeError is returned when an operation assumes a mode other
// than the one the variable was declared with.
type EnvironmentModeError struct {
	Variable  string
	Declared  EnvMode
	Operation string
}

func (e *EnvironmentModeError) Error() string {
	return fmt.Sprintf("environment variable %s is declared %s; %s is not allowed", e.Variable, e.Declared, e.Operation)
}

// PersistenceError wraps a failure reported by the package store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("package store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// FilesystemError wraps a failure creating install directories.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("install directory %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Kind RecordKind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

// DuplicateError is returned when adding a record that is already present.
type DuplicateError struct {
	Kind RecordKind
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %s already registered", e.Kind, e.Name)
}
