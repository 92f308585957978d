// Package config holds lpm's nested configuration tree. Sources are layered
// in load order: at each key two nested maps merge recursively, any other
// combination lets the later value replace the earlier one wholesale. Keys
// are case-insensitive and addressed with dot paths such as
// "locations.dataDir".
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/viper"
)

const EnvPrefix = "LPM"

const (
	StoreTypeSQLite = "sqlite3"
	StoreTypeMemory = "memory"
)

type Settings struct {
	Locations Locations
	Install   Install
	PackageDB PackageDB
	LogLevel  string
}

type Locations struct {
	ConfDir string
	DataDir string
}

type Install struct {
	Dir         string
	Permissions os.FileMode
}

type PackageDB struct {
	Type string
	File string
}

// rawSettings mirrors the tree before derived defaults and permission
// parsing are applied.
type rawSettings struct {
	Locations struct {
		ConfDir string `mapstructure:"confdir"`
		DataDir string `mapstructure:"datadir"`
	} `mapstructure:"locations"`
	Install struct {
		Dir         string `mapstructure:"dir"`
		Permissions any    `mapstructure:"permissions"`
	} `mapstructure:"install"`
	PackageDB struct {
		Type   string `mapstructure:"type"`
		DBFile string `mapstructure:"dbfile"`
	} `mapstructure:"packagedb"`
	LogLevel string `mapstructure:"log_level"`
}

type Tree struct {
	values map[string]any
}

// New returns a tree seeded with the built-in defaults.
func New() *Tree {
	t := &Tree{values: map[string]any{}}
	t.MergeMap(Defaults())
	return t
}

// Defaults follows the XDG base directory conventions. Install and database
// paths are derived from the data directory when settings are decoded, so a
// later override of locations.dataDir moves them too.
func Defaults() map[string]any {
	home, _ := os.UserHomeDir()
	confHome := os.Getenv("XDG_CONFIG_HOME")
	if confHome == "" {
		confHome = filepath.Join(home, ".config")
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	return map[string]any{
		"locations": map[string]any{
			"confDir": filepath.Join(confHome, "lpm"),
			"dataDir": filepath.Join(dataHome, "lpm"),
		},
		"install": map[string]any{
			"permissions": "0755",
		},
		"packageDb": map[string]any{
			"type": StoreTypeSQLite,
		},
		"log_level": "info",
	}
}

// MergeMap layers values over the tree.
func (t *Tree) MergeMap(values map[string]any) {
	mergeTree(t.values, values)
}

// MergeFile decodes a yaml, toml or json file and layers it over the tree.
func (t *Tree) MergeFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read config file").
			WithCause(err)
	}
	t.MergeMap(v.AllSettings())
	return nil
}

// Get returns the value at a dot path, or nil.
func (t *Tree) Get(path string) any {
	var node any = t.values
	for _, key := range strings.Split(strings.ToLower(path), ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		if node, ok = m[key]; !ok {
			return nil
		}
	}
	return node
}

func (t *Tree) GetString(path string) string {
	switch v := t.Get(path).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Settings decodes the tree into typed settings. Environment variables
// prefixed with LPM_ (dots become underscores, e.g. LPM_INSTALL_DIR)
// override file values.
func (t *Tree) Settings() (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"install.dir", "packagedb.dbfile"} {
		_ = v.BindEnv(key)
	}
	if err := v.MergeConfigMap(t.values); err != nil {
		return Settings{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid configuration tree").
			WithCause(err)
	}
	var raw rawSettings
	if err := v.Unmarshal(&raw); err != nil {
		return Settings{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid configuration").
			WithCause(err)
	}
	perm, err := parsePermissions(raw.Install.Permissions)
	if err != nil {
		return Settings{}, err
	}
	settings := Settings{
		Locations: Locations{ConfDir: raw.Locations.ConfDir, DataDir: raw.Locations.DataDir},
		Install:   Install{Dir: raw.Install.Dir, Permissions: perm},
		PackageDB: PackageDB{Type: raw.PackageDB.Type, File: raw.PackageDB.DBFile},
		LogLevel:  raw.LogLevel,
	}
	if settings.Install.Dir == "" {
		settings.Install.Dir = filepath.Join(settings.Locations.DataDir, "packages")
	}
	if settings.PackageDB.File == "" {
		settings.PackageDB.File = filepath.Join(settings.Locations.DataDir, "packages.db")
	}
	switch settings.PackageDB.Type {
	case StoreTypeSQLite, StoreTypeMemory:
	default:
		return Settings{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported packageDb.type %q", settings.PackageDB.Type))
	}
	return settings, nil
}

// Load builds a tree from the defaults and the given files, in order.
func Load(files ...string) (Settings, error) {
	tree := New()
	for _, file := range files {
		if strings.TrimSpace(file) == "" {
			continue
		}
		if err := tree.MergeFile(file); err != nil {
			return Settings{}, err
		}
	}
	return tree.Settings()
}

// mergeTree merges src into dst. Nested maps on both sides merge
// recursively; otherwise the src value replaces the dst value.
func mergeTree(dst map[string]any, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		incoming, incomingIsMap := asMap(value)
		existing, existingIsMap := asMap(dst[key])
		switch {
		case incomingIsMap && existingIsMap:
			mergeTree(existing, incoming)
			dst[key] = existing
		case incomingIsMap:
			fresh := map[string]any{}
			mergeTree(fresh, incoming)
			dst[key] = fresh
		default:
			dst[key] = value
		}
	}
}

func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// parsePermissions accepts an octal string ("0755", "755", "0o755") or an
// integer holding the mode bits.
func parsePermissions(value any) (os.FileMode, error) {
	var bits uint64
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(v), "0o"), "0O")
		parsed, err := strconv.ParseUint(trimmed, 8, 32)
		if err != nil {
			return 0, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("install.permissions %q is not an octal mode", v)).
				WithCause(err)
		}
		bits = parsed
	case int:
		bits = uint64(v)
	case int64:
		bits = uint64(v)
	case uint64:
		bits = v
	default:
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("install.permissions has unsupported type %T", value))
	}
	if bits > 0o777 {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("install.permissions %o exceeds 0777", bits))
	}
	return os.FileMode(bits), nil
}
