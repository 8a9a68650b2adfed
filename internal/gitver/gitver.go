// Copyright 2025 The ccbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gitver discovers the project version embedded into build
// artifacts.
package gitver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Unknown is reported when no version source yields anything.
const Unknown = "unknown"

// VersionFile is the static fallback consulted when git describe fails.
const VersionFile = "VERSION"

// source abstracts the places a version can come from.
type source interface {
	describe(ctx context.Context, dir string) (string, error)
	readFile(name string) ([]byte, error)
}

// Resolver discovers the version of the project in a directory.
type Resolver struct {
	src source
}

// Option configures a Resolver.
type Option func(*gitSource)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) Option {
	return func(g *gitSource) {
		g.git = path
	}
}

// New creates a Resolver backed by git and the filesystem.
func New(opts ...Option) *Resolver {
	g := &gitSource{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return &Resolver{src: g}
}

// Tag returns the version of the project at dir: the output of
// git describe, then the VERSION file, then Unknown. Discovery failures
// are never fatal.
func (r *Resolver) Tag(ctx context.Context, dir string) string {
	if out, err := r.src.describe(ctx, dir); err == nil {
		if v := strings.TrimSpace(out); v != "" {
			return v
		}
	}
	if data, err := r.src.readFile(filepath.Join(dir, VersionFile)); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}
	return Unknown
}

// gitSource implements source using the git executable and os.
type gitSource struct {
	git string
}

func (g *gitSource) describe(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, "describe", "--tags", "--dirty")
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

func (g *gitSource) readFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}
