package blueprint

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the declaration file ccbuild looks up in the working
// directory.
const ManifestFile = "ccbuild.yaml"

// Manifest mirrors the on-disk declaration file.
type Manifest struct {
	Project string `yaml:"project"`
	CCBuild string `yaml:"ccbuild,omitempty"` // minimum tool version
	Default string `yaml:"default,omitempty"` // default target name
	CFlags  string `yaml:"cflags,omitempty"`  // base compile flags
	LDFlags string `yaml:"ldflags,omitempty"` // base link flags

	Targets  []ManifestTarget  `yaml:"targets"`
	Features []ManifestFeature `yaml:"features,omitempty"`
}

// ManifestTarget is the on-disk form of a Target.
type ManifestTarget struct {
	Name     string   `yaml:"name"`
	Srcs     []string `yaml:"srcs"`
	Incs     []string `yaml:"incs,omitempty"`
	Requires []string `yaml:"requires,omitempty"`
	Wants    []string `yaml:"wants,omitempty"`
	Out      string   `yaml:"out,omitempty"`
}

// ManifestFeature is the on-disk form of a Feature.
type ManifestFeature struct {
	Name    string   `yaml:"name"`
	Default bool     `yaml:"default"`
	Library string   `yaml:"library"`
	Extras  []string `yaml:"extras,omitempty"`
	Define  string   `yaml:"define,omitempty"`
}

// Parse reads and parses a manifest from either provided data or a file
// path. If data is non-nil, it is used directly and the file parameter is
// ignored. Otherwise, the file is read from the provided path.
func Parse(file string, data []byte) (*Manifest, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var m Manifest

	dec := yaml.NewDecoder(reader)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return &m, nil
}

// Registry validates the manifest's declarations and returns them as a
// Registry.
func (m *Manifest) Registry() (*Registry, error) {
	features := make([]Feature, 0, len(m.Features))
	for _, f := range m.Features {
		features = append(features, Feature{
			Name:    f.Name,
			Default: f.Default,
			Library: f.Library,
			Extras:  f.Extras,
			Define:  f.Define,
		})
	}

	targets := make([]Target, 0, len(m.Targets))
	for _, t := range m.Targets {
		targets = append(targets, Target{
			Name:     t.Name,
			Srcs:     t.Srcs,
			Incs:     t.Incs,
			Requires: t.Requires,
			Wants:    t.Wants,
			Out:      t.Out,
		})
	}

	var opts []Option
	if m.Default != "" {
		opts = append(opts, WithDefault(m.Default))
	}
	return New(targets, features, opts...)
}

// CheckVersion enforces the manifest's minimum tool version, if declared.
// current is the running binary's version; non-semver versions (devel
// builds) skip the check.
func (m *Manifest) CheckVersion(current string) error {
	if m.CCBuild == "" {
		return nil
	}
	floor := canonVersion(m.CCBuild)
	if !semver.IsValid(floor) {
		return fmt.Errorf("manifest: invalid ccbuild version %q", m.CCBuild)
	}
	cur := canonVersion(current)
	if !semver.IsValid(cur) {
		return nil
	}
	if semver.Compare(cur, floor) < 0 {
		return fmt.Errorf("manifest requires ccbuild %s or later (running %s)", m.CCBuild, current)
	}
	return nil
}

func canonVersion(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
