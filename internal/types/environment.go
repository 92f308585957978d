package types

type Scope string

const (
	ScopeBuild Scope = "build"
	ScopeRun   Scope = "run"
)

func (s Scope) Valid() bool {
	return s == ScopeBuild || s == ScopeRun
}

type EnvMode string

const (
	EnvModeAppend    EnvMode = "append"
	EnvModePrepend   EnvMode = "prepend"
	EnvModeOverwrite EnvMode = "overwrite"
)

func (m EnvMode) Valid() bool {
	switch m {
	case EnvModeAppend, EnvModePrepend, EnvModeOverwrite:
		return true
	default:
		return false
	}
}

// Accumulates reports whether the mode keeps a list of values rather than
// a single scalar.
func (m EnvMode) Accumulates() bool {
	return m == EnvModeAppend || m == EnvModePrepend
}

const DefaultSeparator = ":"

// EnvVariable is one named variable of a package environment scope.
// Values holds entries in insertion order; overwrite variables keep at most
// one entry.
type EnvVariable struct {
	Name      string   `yaml:"name" json:"name"`
	Mode      EnvMode  `yaml:"mode" json:"mode"`
	Separator string   `yaml:"separator,omitempty" json:"separator,omitempty"`
	Values    []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// Clone returns a copy that shares no backing storage with v.
func (v EnvVariable) Clone() EnvVariable {
	out := v
	if v.Values != nil {
		out.Values = append([]string(nil), v.Values...)
	}
	return out
}
