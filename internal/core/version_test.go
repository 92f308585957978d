package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"lpm/internal/shared"
	"lpm/internal/types"
)

// acceptFormat accepts exactly one string. It lets tests observe which tier
// won a resolution.
type acceptFormat struct {
	name   string
	accept string
}

func (f acceptFormat) Name() string {
	return f.name
}

func (f acceptFormat) Parse(text string) (any, bool) {
	if text != f.accept {
		return nil, false
	}
	return text, true
}

func (f acceptFormat) Render(value any) string {
	return value.(string)
}

func (f acceptFormat) SafeName(value any) string {
	return f.name + "_" + value.(string)
}

func (f acceptFormat) Compare(a, b any) int {
	return strings.Compare(a.(string), b.(string))
}

func dottedOnlyRegistry(t *testing.T) *VersionRegistry {
	t.Helper()
	registry := NewVersionRegistry()
	require.NoError(t, registry.Register(DottedNumberFormat{}, PriorityDottedNumber))
	return registry
}

func mustResolve(t *testing.T, registry *VersionRegistry, text string) Version {
	t.Helper()
	version, err := registry.Resolve(text)
	require.NoError(t, err, "resolve %q", text)
	return version
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestDefaultRegistryPicksFormat(t *testing.T) {
	registry := NewDefaultRegistry()
	tests := []struct {
		text   string
		format string
	}{
		{text: "1.2.3", format: "dotted-number"},
		{text: "1.2.3-rc1", format: "dotted-number"},
		{text: "2.0 (stable)", format: "dotted-number"},
		{text: "1.0rc1", format: "pep440"},
		{text: "2!1.0.post3", format: "pep440"},
		{text: "1:2.30-1ubuntu3", format: "debian"},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			version := mustResolve(t, registry, tc.text)
			assert.Equal(t, tc.format, version.Format())
		})
	}
}

func TestResolveUnknownStringFails(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	_, err := registry.Resolve("not-a-version-!!!")
	var parseErr *types.VersionParseError
	require.True(t, errors.As(err, &parseErr), "want VersionParseError, got %v", err)
	assert.Equal(t, "not-a-version-!!!", parseErr.Text)
}

func TestResolveHonoursPriority(t *testing.T) {
	registry := NewVersionRegistry()
	require.NoError(t, registry.Register(acceptFormat{name: "late", accept: "x"}, 10))
	require.NoError(t, registry.Register(acceptFormat{name: "early", accept: "x"}, 5))

	version := mustResolve(t, registry, "x")
	assert.Equal(t, "early", version.Format())

	var names []string
	for _, format := range registry.Formats() {
		names = append(names, format.Name())
	}
	if diff := cmp.Diff([]string{"early", "late"}, names); diff != "" {
		t.Fatalf("unexpected format order (-want +got):\n%s", diff)
	}
}

func TestRegisterFlushesResolutions(t *testing.T) {
	registry := NewVersionRegistry()
	require.NoError(t, registry.Register(DebianFormat{}, PriorityDebian))
	assert.Equal(t, "debian", mustResolve(t, registry, "1.2.3").Format())

	require.NoError(t, registry.Register(DottedNumberFormat{}, PriorityDottedNumber))
	assert.Equal(t, "dotted-number", mustResolve(t, registry, "1.2.3").Format())
}

func TestRegisterRejectsInvalidFormats(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	tests := []struct {
		name     string
		format   VersionFormat
		priority int
		code     errbuilder.ErrCode
	}{
		{name: "nil format", format: nil, priority: 1, code: errbuilder.CodeInvalidArgument},
		{name: "negative priority", format: Pep440Format{}, priority: -1, code: errbuilder.CodeInvalidArgument},
		{name: "duplicate name", format: DottedNumberFormat{}, priority: 4, code: errbuilder.CodeAlreadyExists},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := registry.Register(tc.format, tc.priority)
			require.Error(t, err)
			assert.Equal(t, tc.code, errbuilder.CodeOf(err))
		})
	}
	assert.Len(t, registry.Formats(), 1)
}

// ---------------------------------------------------------------------------
// Version values
// ---------------------------------------------------------------------------

func TestDottedNumberOrdering(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	ordered := []string{
		"1.2",
		"1.2.0",
		"1.2.3",
		"1.2.3 (alpha)",
		"1.2.3-rc1",
		"1.2.3-rc2",
		"1.2.3-rc10",
		"1.2.4",
		"1.3.0",
		"10.0",
	}
	for i := 0; i+1 < len(ordered); i++ {
		lower := mustResolve(t, registry, ordered[i])
		higher := mustResolve(t, registry, ordered[i+1])
		c, err := lower.Compare(higher)
		require.NoError(t, err)
		assert.Equal(t, -1, c, "%s < %s", ordered[i], ordered[i+1])
		c, err = higher.Compare(lower)
		require.NoError(t, err)
		assert.Equal(t, 1, c, "%s > %s", ordered[i+1], ordered[i])
	}
}

func TestDottedNumberCanonicalForm(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	tests := []struct {
		text      string
		canonical string
		safeName  string
	}{
		{text: "1.2.3", canonical: "1.2.3", safeName: "dn_1_2_3"},
		{text: "1.2.3-rc1", canonical: "1.2.3-rc1", safeName: "dn_1_2_3rc1"},
		{text: "2.0(stable)", canonical: "2.0 (stable)", safeName: "dn_2_0_bstable"},
		{text: "0.9-p2 (feature/x_y)", canonical: "0.9-p2 (feature/x_y)", safeName: "dn_0_9p2_bfeature_2fx_5fy"},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			version := mustResolve(t, registry, tc.text)
			assert.Equal(t, tc.canonical, version.String())
			assert.Equal(t, tc.safeName, version.SafeName())
		})
	}
}

func TestDottedNumberRejectsMalformedInput(t *testing.T) {
	for _, text := range []string{"", "01.2", "1..2", "1.2-rc", "1.2-rc0", "1.2-1", "1.2 ()", "1.2 (a b)", "v1.2"} {
		_, ok := DottedNumberFormat{}.Parse(text)
		assert.False(t, ok, "%q should not parse", text)
	}
}

func TestPatchAndBranchSafeNamesDiffer(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	patch := mustResolve(t, registry, "1.2-rc1")
	branch := mustResolve(t, registry, "1.2 (rc1)")
	assert.NotEqual(t, patch.SafeName(), branch.SafeName())
	assert.False(t, patch.Equal(branch))
}

func TestCompareAcrossFormatsFails(t *testing.T) {
	registry := NewDefaultRegistry()
	dotted := mustResolve(t, registry, "1.2.3")
	pep := mustResolve(t, registry, "1.0rc1")

	_, err := dotted.Compare(pep)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.False(t, dotted.Equal(pep))
}

func TestCompareUnresolvedVersionFails(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	_, err := mustResolve(t, registry, "1.0").Compare(Version{})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.True(t, Version{}.IsZero())
	assert.Empty(t, Version{}.String())
}

func TestPackagingFormatsRoundTrip(t *testing.T) {
	registry := NewDefaultRegistry()
	for _, text := range []string{"1.0rc1", "2!1.0.post3", "1.0.dev4", "1:2.30-1ubuntu3", "2:1.0~beta1-3"} {
		t.Run(text, func(t *testing.T) {
			version := mustResolve(t, registry, text)
			again := mustResolve(t, registry, version.String())
			assert.True(t, version.Equal(again), "%s -> %s", text, version.String())
			assert.True(t, shared.IsSafeIdentifier(version.SafeName()), version.SafeName())
		})
	}
}

func TestResolveSkipsNonCanonicalSpellings(t *testing.T) {
	registry := NewDefaultRegistry()
	tests := []struct {
		text     string
		format   string
		rendered string
	}{
		{text: "v1.0"},
		{text: "0:1.0"},
		{text: " 1.0"},
		{text: "01.0", format: "debian", rendered: "01.0"},
		{text: "1.0.RC1", format: "pep440", rendered: "1.0rc1"},
		{text: "1.0-1", format: "pep440", rendered: "1.0.post1"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			version, err := registry.Resolve(tt.text)
			if tt.format == "" {
				var parseErr *types.VersionParseError
				require.True(t, errors.As(err, &parseErr), "want VersionParseError, got %v (%s %q)", err, version.Format(), version.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, version.Format())
			assert.Equal(t, tt.rendered, version.String())
			again := mustResolve(t, registry, version.String())
			assert.True(t, version.Equal(again), "%q rendered as %q resolves to %s %q", tt.text, version.String(), again.Format(), again.String())
		})
	}
}

func TestResolveKeepsDistinctRenderingsApart(t *testing.T) {
	registry := NewDefaultRegistry()
	dotted := mustResolve(t, registry, "1.0")
	for _, text := range []string{"0:1.0", "v1.0", "1.0.0"} {
		other, err := registry.Resolve(text)
		if err != nil {
			continue
		}
		if !dotted.Equal(other) {
			assert.NotEqual(t, dotted.String(), other.String(), "%q collides with %q", text, "1.0")
		}
	}
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func dottedNumberText() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		count := rapid.IntRange(1, 5).Draw(t, "count")
		parts := make([]string, count)
		for i := range parts {
			parts[i] = strconv.FormatUint(rapid.Uint64Range(0, 1000).Draw(t, "number"), 10)
		}
		text := strings.Join(parts, ".")
		if rapid.Bool().Draw(t, "patch") {
			desc := rapid.StringMatching(`[a-z]{1,3}`).Draw(t, "desc")
			text += fmt.Sprintf("-%s%d", desc, rapid.IntRange(1, 99).Draw(t, "patchNumber"))
		}
		if rapid.Bool().Draw(t, "branch") {
			text += " (" + rapid.StringMatching(`[A-Za-z0-9_.+/-]{1,6}`).Draw(t, "branchTag") + ")"
		}
		return text
	})
}

func TestDottedNumberRoundTripProperty(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	rapid.Check(t, func(rt *rapid.T) {
		text := dottedNumberText().Draw(rt, "text")
		version, err := registry.Resolve(text)
		if err != nil {
			rt.Fatalf("resolve %q: %v", text, err)
		}
		again, err := registry.Resolve(version.String())
		if err != nil {
			rt.Fatalf("resolve rendering %q: %v", version.String(), err)
		}
		if !version.Equal(again) {
			rt.Fatalf("%q rendered as %q which parses to a different value", text, version.String())
		}
		if again.String() != version.String() {
			rt.Fatalf("rendering is not stable: %q vs %q", version.String(), again.String())
		}
	})
}

func TestDottedNumberSafeNameProperty(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	rapid.Check(t, func(rt *rapid.T) {
		a := dottedNumberText().Draw(rt, "a")
		b := dottedNumberText().Draw(rt, "b")
		va, err := registry.Resolve(a)
		if err != nil {
			rt.Fatalf("resolve %q: %v", a, err)
		}
		vb, err := registry.Resolve(b)
		if err != nil {
			rt.Fatalf("resolve %q: %v", b, err)
		}
		if !shared.IsSafeIdentifier(va.SafeName()) {
			rt.Fatalf("unsafe name %q for %q", va.SafeName(), a)
		}
		if va.Equal(vb) != (va.SafeName() == vb.SafeName()) {
			rt.Fatalf("%q and %q: equal=%v but safe names %q and %q", a, b, va.Equal(vb), va.SafeName(), vb.SafeName())
		}
	})
}

func TestDottedNumberOrderingProperty(t *testing.T) {
	registry := dottedOnlyRegistry(t)
	rapid.Check(t, func(rt *rapid.T) {
		va, _ := registry.Resolve(dottedNumberText().Draw(rt, "a"))
		vb, _ := registry.Resolve(dottedNumberText().Draw(rt, "b"))
		ab, err := va.Compare(vb)
		if err != nil {
			rt.Fatal(err)
		}
		ba, _ := vb.Compare(va)
		if ab != -ba {
			rt.Fatalf("compare is not antisymmetric: %d vs %d", ab, ba)
		}
	})
}

// mixedVersionText draws strings from the alphabet shared by every built-in
// format, so the default registry sees inputs several tiers compete for.
func mixedVersionText() *rapid.Generator[string] {
	return rapid.StringMatching(`[v0-9][0-9a-zA-Z.:~+!-]{0,8}`)
}

func TestDefaultRegistryRoundTripProperty(t *testing.T) {
	registry := NewDefaultRegistry()
	rapid.Check(t, func(rt *rapid.T) {
		text := mixedVersionText().Draw(rt, "text")
		version, err := registry.Resolve(text)
		if err != nil {
			return
		}
		again, err := registry.Resolve(version.String())
		if err != nil {
			rt.Fatalf("%q rendered as %q which does not resolve: %v", text, version.String(), err)
		}
		if again.Format() != version.Format() || !version.Equal(again) {
			rt.Fatalf("%q (%s) rendered as %q which resolves to %s %q",
				text, version.Format(), version.String(), again.Format(), again.String())
		}
	})
}

func TestDefaultRegistryRenderingsAreUniqueProperty(t *testing.T) {
	registry := NewDefaultRegistry()
	rapid.Check(t, func(rt *rapid.T) {
		a := mixedVersionText().Draw(rt, "a")
		b := mixedVersionText().Draw(rt, "b")
		va, errA := registry.Resolve(a)
		vb, errB := registry.Resolve(b)
		if errA != nil || errB != nil {
			return
		}
		if va.String() == vb.String() && !va.Equal(vb) {
			rt.Fatalf("%q (%s) and %q (%s) differ but both render as %q",
				a, va.Format(), b, vb.Format(), va.String())
		}
	})
}
