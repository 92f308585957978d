package core

import (
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"

	"lpm/internal/shared"
)

// Pep440Format accepts Python-style versions ("1.0rc1", "2!1.0.post3").
type Pep440Format struct{}

func (Pep440Format) Name() string {
	return "pep440"
}

func (Pep440Format) Parse(text string) (any, bool) {
	parsed, err := pep440.Parse(text)
	if err != nil {
		return nil, false
	}
	return parsed, true
}

func (Pep440Format) Render(value any) string {
	return value.(pep440.Version).String()
}

func (f Pep440Format) SafeName(value any) string {
	return "pep_" + shared.SafeIdentifier(f.Render(value))
}

func (Pep440Format) Compare(a, b any) int {
	return a.(pep440.Version).Compare(b.(pep440.Version))
}

// DebianFormat accepts Debian package versions ("1:2.30-1ubuntu3"). It is
// the most permissive built-in syntax and is registered last.
type DebianFormat struct{}

func (DebianFormat) Name() string {
	return "debian"
}

func (DebianFormat) Parse(text string) (any, bool) {
	parsed, err := debversion.NewVersion(text)
	if err != nil {
		return nil, false
	}
	return parsed, true
}

func (DebianFormat) Render(value any) string {
	v := value.(debversion.Version)
	return v.String()
}

func (f DebianFormat) SafeName(value any) string {
	return "deb_" + shared.SafeIdentifier(f.Render(value))
}

func (DebianFormat) Compare(a, b any) int {
	va, vb := a.(debversion.Version), b.(debversion.Version)
	return va.Compare(vb)
}
