package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"lpm/internal/ports"
	"lpm/internal/types"
)

// EnvironmentOverlay is the cached view of one environment scope of a
// package. Variables are hydrated from the store on first access. Every
// mutation is written to the store first; the cache changes only after the
// store accepted the write.
type EnvironmentOverlay struct {
	store ports.PackageStore
	ref   types.PackageRef
	scope types.Scope
	vars  map[string]types.EnvVariable
}

func NewEnvironmentOverlay(store ports.PackageStore, ref types.PackageRef, scope types.Scope) *EnvironmentOverlay {
	return &EnvironmentOverlay{
		store: store,
		ref:   ref,
		scope: scope,
		vars:  map[string]types.EnvVariable{},
	}
}

func (o *EnvironmentOverlay) Scope() types.Scope {
	return o.scope
}

// Declare creates name with the given mode. Declaring an existing variable
// with the same mode accumulates values (append/prepend) or replaces the
// scalar (overwrite) and keeps the original separator; a different mode is
// rejected.
func (o *EnvironmentOverlay) Declare(ctx context.Context, name string, mode types.EnvMode, values []string, separator string) error {
	if strings.TrimSpace(name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("environment variable name must not be empty")
	}
	if !mode.Valid() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid environment mode %q", mode))
	}
	if mode == types.EnvModeOverwrite && len(values) > 1 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("overwrite variable %s takes a single value", name))
	}
	current, found, err := o.lookup(ctx, name)
	if err != nil {
		return err
	}
	var next types.EnvVariable
	switch {
	case found && current.Mode != mode:
		return &types.EnvironmentModeError{Variable: name, Declared: current.Mode, Operation: "declare as " + string(mode)}
	case found:
		next = current.Clone()
	default:
		next = types.EnvVariable{Name: name, Mode: mode}
		if mode.Accumulates() {
			next.Separator = separator
			if next.Separator == "" {
				next.Separator = types.DefaultSeparator
			}
		}
	}
	if mode.Accumulates() {
		next.Values = append(next.Values, values...)
	} else if len(values) == 1 {
		next.Values = []string{values[0]}
	}
	return o.commit(ctx, next)
}

// AddValue appends or prepends value according to the variable's mode.
func (o *EnvironmentOverlay) AddValue(ctx context.Context, name string, value string) error {
	current, err := o.require(ctx, name)
	if err != nil {
		return err
	}
	if !current.Mode.Accumulates() {
		return &types.EnvironmentModeError{Variable: name, Declared: current.Mode, Operation: "add value"}
	}
	next := current.Clone()
	next.Values = append(next.Values, value)
	return o.commit(ctx, next)
}

// SetValue replaces the scalar of an overwrite variable.
func (o *EnvironmentOverlay) SetValue(ctx context.Context, name string, value string) error {
	current, err := o.require(ctx, name)
	if err != nil {
		return err
	}
	if current.Mode != types.EnvModeOverwrite {
		return &types.EnvironmentModeError{Variable: name, Declared: current.Mode, Operation: "set value"}
	}
	next := current.Clone()
	next.Values = []string{value}
	return o.commit(ctx, next)
}

// RemoveValue drops the first occurrence of value as it appears in the
// composed rendering. For overwrite variables it clears the scalar when
// value is empty or equal to it.
func (o *EnvironmentOverlay) RemoveValue(ctx context.Context, name string, value string) error {
	current, err := o.require(ctx, name)
	if err != nil {
		return err
	}
	next := current.Clone()
	switch current.Mode {
	case types.EnvModeOverwrite:
		if len(current.Values) == 0 || (value != "" && current.Values[0] != value) {
			return &types.NotFoundError{Kind: types.RecordEnvValue, Name: name + "=" + value}
		}
		next.Values = nil
	default:
		idx := slices.Index(current.Values, value)
		if current.Mode == types.EnvModePrepend {
			idx = lastIndex(current.Values, value)
		}
		if idx < 0 {
			return &types.NotFoundError{Kind: types.RecordEnvValue, Name: name + "=" + value}
		}
		next.Values = slices.Delete(next.Values, idx, idx+1)
	}
	return o.commit(ctx, next)
}

// Undeclare removes the variable from the scope.
func (o *EnvironmentOverlay) Undeclare(ctx context.Context, name string) error {
	if _, err := o.require(ctx, name); err != nil {
		return err
	}
	if err := o.store.RemoveEnvVar(ctx, o.ref, o.scope, name); err != nil {
		return &types.PersistenceError{Op: "remove env var", Err: err}
	}
	delete(o.vars, name)
	log.Ctx(ctx).Debug().
		Str("package", o.ref.String()).
		Str("scope", string(o.scope)).
		Str("variable", name).
		Msg("environment variable removed")
	return nil
}

// Get returns the composed value of name, loading it from the store if it
// is not cached yet.
func (o *EnvironmentOverlay) Get(ctx context.Context, name string) (string, error) {
	current, err := o.require(ctx, name)
	if err != nil {
		return "", err
	}
	return composeVariable(current), nil
}

// Variable returns a copy of the cached or stored record for name.
func (o *EnvironmentOverlay) Variable(ctx context.Context, name string) (types.EnvVariable, error) {
	current, err := o.require(ctx, name)
	if err != nil {
		return types.EnvVariable{}, err
	}
	return current.Clone(), nil
}

// AsMapping composes every cached variable. Variables never accessed through
// this overlay are not loaded.
func (o *EnvironmentOverlay) AsMapping() map[string]string {
	out := make(map[string]string, len(o.vars))
	for name, variable := range o.vars {
		out[name] = composeVariable(variable)
	}
	return out
}

// Hydrate loads every stored variable of the scope into the cache. Cached
// variables are kept as they are.
func (o *EnvironmentOverlay) Hydrate(ctx context.Context) error {
	stored, err := o.store.GetEnvVars(ctx, o.ref, o.scope)
	if err != nil {
		return &types.PersistenceError{Op: "get env vars", Err: err}
	}
	for _, variable := range stored {
		if _, ok := o.vars[variable.Name]; !ok {
			o.vars[variable.Name] = variable.Clone()
		}
	}
	return nil
}

func (o *EnvironmentOverlay) require(ctx context.Context, name string) (types.EnvVariable, error) {
	current, found, err := o.lookup(ctx, name)
	if err != nil {
		return types.EnvVariable{}, err
	}
	if !found {
		return types.EnvVariable{}, &types.NotFoundError{Kind: types.RecordEnvVariable, Name: name}
	}
	return current, nil
}

func (o *EnvironmentOverlay) lookup(ctx context.Context, name string) (types.EnvVariable, bool, error) {
	if cached, ok := o.vars[name]; ok {
		return cached, true, nil
	}
	stored, found, err := o.store.GetEnvVar(ctx, o.ref, o.scope, name)
	if err != nil {
		return types.EnvVariable{}, false, &types.PersistenceError{Op: "get env var", Err: err}
	}
	if !found {
		return types.EnvVariable{}, false, nil
	}
	o.vars[name] = stored.Clone()
	return stored, true, nil
}

func (o *EnvironmentOverlay) commit(ctx context.Context, next types.EnvVariable) error {
	if err := o.store.DeclareEnvVar(ctx, o.ref, o.scope, next); err != nil {
		return &types.PersistenceError{Op: "declare env var", Err: err}
	}
	o.vars[next.Name] = next
	log.Ctx(ctx).Debug().
		Str("package", o.ref.String()).
		Str("scope", string(o.scope)).
		Str("variable", next.Name).
		Str("mode", string(next.Mode)).
		Msg("environment variable stored")
	return nil
}

// composeVariable renders a variable: append joins in insertion order,
// prepend joins newest first, overwrite yields its scalar.
func composeVariable(variable types.EnvVariable) string {
	switch variable.Mode {
	case types.EnvModeAppend:
		return strings.Join(variable.Values, variable.Separator)
	case types.EnvModePrepend:
		reversed := slices.Clone(variable.Values)
		slices.Reverse(reversed)
		return strings.Join(reversed, variable.Separator)
	default:
		if len(variable.Values) == 0 {
			return ""
		}
		return variable.Values[0]
	}
}

func lastIndex(values []string, value string) int {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] == value {
			return i
		}
	}
	return -1
}
