package core

import (
	"fmt"
	"slices"

	"github.com/ZanzyTHEbar/errbuilder-go"
	gocache "github.com/patrickmn/go-cache"

	"lpm/internal/types"
)

// VersionFormat recognizes, renders and orders one version syntax.
//
// Parse must not fail on input it does not understand; it returns false so
// the registry can try the next format. Render must produce text that Parse
// accepts and that parses back to an equal value. SafeName must only contain
// ASCII letters, digits and underscores, start with a tag unique to the
// format, and be unique across the values the format can produce. Compare is
// only ever called with values produced by the same format's Parse.
type VersionFormat interface {
	Name() string
	Parse(text string) (any, bool)
	Render(value any) string
	SafeName(value any) string
	Compare(a, b any) int
}

// Version is a parsed version tagged with the format that produced it. The
// zero value is unresolved; real values only come from VersionRegistry.
type Version struct {
	format VersionFormat
	value  any
}

func (v Version) IsZero() bool {
	return v.format == nil
}

// Format returns the name of the producing format.
func (v Version) Format() string {
	if v.IsZero() {
		return ""
	}
	return v.format.Name()
}

func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	return v.format.Render(v.value)
}

// SafeName returns a rendering usable in file names and identifiers.
func (v Version) SafeName() string {
	if v.IsZero() {
		return ""
	}
	return v.format.SafeName(v.value)
}

// Compare returns -1, 0, or 1. Versions from different formats have no
// defined order and produce an error.
func (v Version) Compare(other Version) (int, error) {
	if v.IsZero() || other.IsZero() {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("cannot compare an unresolved version")
	}
	if v.format.Name() != other.format.Name() {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("cannot compare %s version %q with %s version %q",
				v.format.Name(), v.String(), other.format.Name(), other.String()))
	}
	return v.format.Compare(v.value, other.value), nil
}

// Equal reports whether both versions come from the same format and compare
// equal.
func (v Version) Equal(other Version) bool {
	c, err := v.Compare(other)
	return err == nil && c == 0
}

// VersionRegistry resolves version strings against formats grouped into
// priority tiers. Lower priorities are tried first; formats sharing a tier
// are tried in registration order, which callers must not rely on.
type VersionRegistry struct {
	tiers      map[int][]VersionFormat
	priorities []int
	names      map[string]struct{}
	resolved   *gocache.Cache
}

const (
	PriorityDottedNumber = 1
	PriorityPep440       = 20
	PriorityDebian       = 30
)

func NewVersionRegistry() *VersionRegistry {
	return &VersionRegistry{
		tiers:    map[int][]VersionFormat{},
		names:    map[string]struct{}{},
		resolved: gocache.New(gocache.NoExpiration, 0),
	}
}

// NewDefaultRegistry returns a registry holding every built-in format.
func NewDefaultRegistry() *VersionRegistry {
	registry := NewVersionRegistry()
	mustRegister(registry, DottedNumberFormat{}, PriorityDottedNumber)
	mustRegister(registry, Pep440Format{}, PriorityPep440)
	mustRegister(registry, DebianFormat{}, PriorityDebian)
	return registry
}

func mustRegister(registry *VersionRegistry, format VersionFormat, priority int) {
	if err := registry.Register(format, priority); err != nil {
		panic(err)
	}
}

func (r *VersionRegistry) Register(format VersionFormat, priority int) error {
	if format == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("version format must not be nil")
	}
	if priority < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("version format %s has negative priority %d", format.Name(), priority))
	}
	if _, ok := r.names[format.Name()]; ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg(fmt.Sprintf("version format %s already registered", format.Name()))
	}
	if _, ok := r.tiers[priority]; !ok {
		idx, _ := slices.BinarySearch(r.priorities, priority)
		r.priorities = slices.Insert(r.priorities, idx, priority)
	}
	r.tiers[priority] = append(r.tiers[priority], format)
	r.names[format.Name()] = struct{}{}
	// A new format may claim strings an earlier resolution gave to a later tier.
	r.resolved.Flush()
	return nil
}

// Resolve returns the value produced by the first format accepting text
// whose rendering resolves back to the same format and value. A format that
// accepts a non-canonical spelling of a version another tier owns (such as
// "0:1.0", which renders as the dotted "1.0") is skipped, so String always
// round-trips through Resolve and distinct versions never share a rendering.
func (r *VersionRegistry) Resolve(text string) (Version, error) {
	return r.resolve(text, 0)
}

// maxCanonicalDepth bounds how many rendering hops resolve follows before
// treating a format's output as unstable.
const maxCanonicalDepth = 4

func (r *VersionRegistry) resolve(text string, depth int) (Version, error) {
	if cached, ok := r.resolved.Get(text); ok {
		return cached.(Version), nil
	}
	if depth <= maxCanonicalDepth {
		for _, format := range r.Formats() {
			value, ok := format.Parse(text)
			if !ok || !r.ownsRendering(format, text, value, depth) {
				continue
			}
			version := Version{format: format, value: value}
			if depth == 0 {
				r.resolved.Set(text, version, gocache.NoExpiration)
			}
			return version, nil
		}
	}
	return Version{}, &types.VersionParseError{Text: text}
}

// ownsRendering reports whether the rendering of value resolves back to
// format with an equal value. Text that is already canonical owns itself
// because every earlier format has declined it.
func (r *VersionRegistry) ownsRendering(format VersionFormat, text string, value any, depth int) bool {
	rendered := format.Render(value)
	if rendered == text {
		return true
	}
	back, err := r.resolve(rendered, depth+1)
	if err != nil || back.format.Name() != format.Name() {
		return false
	}
	return format.Compare(value, back.value) == 0
}

// Formats lists the registered formats in resolution order.
func (r *VersionRegistry) Formats() []VersionFormat {
	var out []VersionFormat
	for _, priority := range r.priorities {
		out = append(out, r.tiers[priority]...)
	}
	return out
}
