package types

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

type PackageStatus string

const (
	PackageStatusUninitialized PackageStatus = "uninitialized"
	PackageStatusInstalling    PackageStatus = "installing"
	PackageStatusInstalled     PackageStatus = "installed"
)

var packageStatusRank = map[PackageStatus]int{
	PackageStatusUninitialized: 0,
	PackageStatusInstalling:    1,
	PackageStatusInstalled:     2,
}

// Valid reports whether s is one of the known install states.
func (s PackageStatus) Valid() bool {
	_, ok := packageStatusRank[s]
	return ok
}

// Precedes reports whether s comes strictly before next in the install
// lifecycle. Unknown states never precede anything.
func (s PackageStatus) Precedes(next PackageStatus) bool {
	from, ok := packageStatusRank[s]
	if !ok {
		return false
	}
	to, ok := packageStatusRank[next]
	if !ok {
		return false
	}
	return from < to
}

// PackageRef is the wire form of a package identity: a name plus the
// canonical rendering of its version.
type PackageRef struct {
	Name    string
	Version string
}

const (
	refSeparator     = ";"
	depListSeparator = "\t"
)

func (r PackageRef) String() string {
	return r.Name + refSeparator + r.Version
}

// ParsePackageRef parses the "<name>;<version>" form produced by String.
func ParsePackageRef(value string) (PackageRef, error) {
	name, version, ok := strings.Cut(value, refSeparator)
	if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(version) == "" {
		return PackageRef{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package reference %q", value))
	}
	return PackageRef{Name: name, Version: version}, nil
}

// FormatDependencyList serializes refs as tab-separated package references.
func FormatDependencyList(refs []PackageRef) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, ref.String())
	}
	return strings.Join(parts, depListSeparator)
}

// ParseDependencyList is the inverse of FormatDependencyList. An empty field
// yields no dependencies.
func ParseDependencyList(value string) ([]PackageRef, error) {
	if value == "" {
		return nil, nil
	}
	tokens := strings.Split(value, depListSeparator)
	refs := make([]PackageRef, 0, len(tokens))
	for _, token := range tokens {
		ref, err := ParsePackageRef(token)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
