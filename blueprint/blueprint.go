// Package blueprint declares the build targets and optional features of a
// project and validates those declarations into a Registry.
package blueprint

import (
	"fmt"
	"slices"
)

// Feature describes an optional runtime-library integration. A feature is
// identified by its primary library: when that library is present on the
// host the feature can be activated, contributing link flags and a
// compile-time define to the targets that reference it.
type Feature struct {
	Name    string   // unique feature name
	Default bool     // enabled unless overridden by the operator
	Library string   // primary library the feature stands or falls with
	Extras  []string // auxiliary libraries, linked individually when present
	Define  string   // preprocessor symbol set when the feature is active
}

// Target describes one buildable program.
type Target struct {
	Name     string   // unique target name
	Srcs     []string // source files, compiled in this order
	Incs     []string // target-specific include directories
	Requires []string // features the target cannot be built without
	Wants    []string // features the target uses when available
	Out      string   // output name, defaults to Name
}

// Registry holds the validated declarations of a project. Targets keep
// their declaration order; that order is also the build order.
type Registry struct {
	targets  []*Target
	features []*Feature

	targetIdx  map[string]*Target
	featureIdx map[string]*Feature

	def *Target
}

// Option configures a Registry.
type Option func(*settings)

type settings struct {
	defaultTarget string
}

// WithDefault names the target built when the operator selects none.
// Without this option the first declared target is the default.
func WithDefault(name string) Option {
	return func(s *settings) {
		s.defaultTarget = name
	}
}

// New validates the given declarations and returns a Registry.
//
// Every target needs a unique name and at least one source file, every
// feature a unique name and a primary library. Requires and Wants may only
// reference declared features, without duplicates, and a feature cannot be
// both required and wanted by the same target.
func New(targets []Target, features []Feature, opts ...Option) (*Registry, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets declared")
	}

	r := &Registry{
		targetIdx:  make(map[string]*Target, len(targets)),
		featureIdx: make(map[string]*Feature, len(features)),
	}

	for i := range features {
		f := features[i]
		if f.Name == "" {
			return nil, fmt.Errorf("feature #%d: empty name", i+1)
		}
		if _, dup := r.featureIdx[f.Name]; dup {
			return nil, fmt.Errorf("feature %s: declared twice", f.Name)
		}
		if f.Library == "" {
			return nil, fmt.Errorf("feature %s: no library", f.Name)
		}
		f.Extras = slices.Clone(f.Extras)
		r.features = append(r.features, &f)
		r.featureIdx[f.Name] = &f
	}

	for i := range targets {
		t := targets[i]
		if t.Name == "" {
			return nil, fmt.Errorf("target #%d: empty name", i+1)
		}
		if _, dup := r.targetIdx[t.Name]; dup {
			return nil, fmt.Errorf("target %s: declared twice", t.Name)
		}
		if len(t.Srcs) == 0 {
			return nil, fmt.Errorf("target %s: no sources", t.Name)
		}
		if t.Out == "" {
			t.Out = t.Name
		}
		if err := checkRefs(&t, r.featureIdx); err != nil {
			return nil, err
		}
		t.Srcs = slices.Clone(t.Srcs)
		t.Incs = slices.Clone(t.Incs)
		t.Requires = slices.Clone(t.Requires)
		t.Wants = slices.Clone(t.Wants)
		r.targets = append(r.targets, &t)
		r.targetIdx[t.Name] = &t
	}

	r.def = r.targets[0]
	if s.defaultTarget != "" {
		t, ok := r.targetIdx[s.defaultTarget]
		if !ok {
			return nil, fmt.Errorf("default target %s: not declared", s.defaultTarget)
		}
		r.def = t
	}

	return r, nil
}

// checkRefs verifies a target's feature references: declared, no
// duplicates, no overlap between Requires and Wants.
func checkRefs(t *Target, features map[string]*Feature) error {
	seen := make(map[string]string, len(t.Requires)+len(t.Wants))
	check := func(names []string, kind string) error {
		for _, name := range names {
			if _, ok := features[name]; !ok {
				return fmt.Errorf("target %s: %s feature %s: not declared", t.Name, kind, name)
			}
			if prev, dup := seen[name]; dup {
				if prev == kind {
					return fmt.Errorf("target %s: feature %s listed twice", t.Name, name)
				}
				return fmt.Errorf("target %s: feature %s both required and wanted", t.Name, name)
			}
			seen[name] = kind
		}
		return nil
	}
	if err := check(t.Requires, "required"); err != nil {
		return err
	}
	return check(t.Wants, "wanted")
}

// Targets returns all targets in declaration order.
func (r *Registry) Targets() []*Target { return r.targets }

// Features returns all features in declaration order.
func (r *Registry) Features() []*Feature { return r.features }

// Target looks up a target by name.
func (r *Registry) Target(name string) (*Target, bool) {
	t, ok := r.targetIdx[name]
	return t, ok
}

// Feature looks up a feature by name.
func (r *Registry) Feature(name string) (*Feature, bool) {
	f, ok := r.featureIdx[name]
	return f, ok
}

// DefaultTarget returns the target built when none is selected.
func (r *Registry) DefaultTarget() *Target { return r.def }
