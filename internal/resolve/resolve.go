// Package resolve decides, per target, which declared features are active
// on the host and what they contribute to the build.
package resolve

import (
	"context"
	"fmt"

	"github.com/goplus/ccbuild/blueprint"
	"github.com/qiniu/x/log"
)

// Requisite classifies how critical a feature is to a target.
type Requisite int

const (
	// Required features abort the run when unsatisfiable.
	Required Requisite = iota
	// Optional features degrade gracefully when unsatisfiable.
	Optional
)

func (r Requisite) String() string {
	if r == Required {
		return "required"
	}
	return "optional"
}

// Prober answers whether a library is linkable on the host.
type Prober interface {
	Probe(ctx context.Context, lib string) bool
}

// Resolution is the outcome of resolving one feature for one target. It is
// created fresh per call and never cached across targets.
type Resolution struct {
	Enabled bool
	Defines []string // compile-time defines the feature contributes
	Libs    []string // libraries to link, in link order
}

// Resolver resolves features against the host. The enabled states are
// snapshotted at construction from declared defaults plus operator
// overrides and are read-only afterwards.
type Resolver struct {
	reg     *blueprint.Registry
	enabled map[string]bool
	prober  Prober
}

// NewResolver snapshots the effective enabled state of every declared
// feature and returns a Resolver probing through prober. overrides forces
// the state of the named features; unknown names are rejected.
func NewResolver(reg *blueprint.Registry, overrides map[string]bool, prober Prober) (*Resolver, error) {
	features := reg.Features()
	enabled := make(map[string]bool, len(features))
	for _, f := range features {
		enabled[f.Name] = f.Default
	}
	for name, on := range overrides {
		if _, ok := enabled[name]; !ok {
			return nil, fmt.Errorf("override for unknown feature %s", name)
		}
		enabled[name] = on
	}
	return &Resolver{reg: reg, enabled: enabled, prober: prober}, nil
}

// Enabled reports the snapshotted state of a feature.
func (r *Resolver) Enabled(name string) bool {
	return r.enabled[name]
}

// Resolve resolves one feature for one target.
//
// A disabled feature yields ConfigurationError when required, an inert
// Resolution when optional. An enabled feature stands or falls with its
// primary library: not linkable means DependencyError when required, a
// warning and an inert Resolution when optional. When the primary is
// linkable, the auxiliaries are probed in declared order and every
// linkable one contributes its library in that order; missing auxiliaries
// are omitted without being errors, whatever the requisite.
func (r *Resolver) Resolve(ctx context.Context, name string, req Requisite) (Resolution, error) {
	f, ok := r.reg.Feature(name)
	if !ok {
		return Resolution{}, fmt.Errorf("unknown feature %s", name)
	}
	if !r.enabled[name] {
		if req == Required {
			return Resolution{}, &ConfigurationError{Feature: name}
		}
		log.Infof("feature %s disabled, building without it", name)
		return Resolution{}, nil
	}
	if !r.prober.Probe(ctx, f.Library) {
		if req == Required {
			return Resolution{}, &DependencyError{Feature: name, Library: f.Library}
		}
		log.Warnf("library %s not found, building without %s", f.Library, name)
		return Resolution{}, nil
	}

	res := Resolution{Enabled: true, Libs: []string{f.Library}}
	for _, extra := range f.Extras {
		if r.prober.Probe(ctx, extra) {
			res.Libs = append(res.Libs, extra)
		}
	}
	if f.Define != "" {
		res.Defines = append(res.Defines, f.Define)
	}
	return res, nil
}

// ConfigurationError reports a required feature disabled by the operator.
type ConfigurationError struct {
	Feature string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("required feature %s is disabled", e.Feature)
}

// DependencyError reports a required feature whose primary library is not
// linkable on the host.
type DependencyError struct {
	Feature string
	Library string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("feature %s: required library %s not found", e.Feature, e.Library)
}
