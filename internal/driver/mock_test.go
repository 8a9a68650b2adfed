// Copyright 2025 The ccbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"context"
	"io"
)

// mockFrontend implements Frontend for unit testing. It records every
// probe and invocation.
type mockFrontend struct {
	commandFunc func() string
	probeFunc   func(ctx context.Context, lib string) bool
	invokeFunc  func(ctx context.Context, args []string, stdout, stderr io.Writer) error

	probes  []string
	invokes [][]string
}

func (m *mockFrontend) Command() string {
	if m.commandFunc != nil {
		return m.commandFunc()
	}
	return "cc"
}

func (m *mockFrontend) Probe(ctx context.Context, lib string) bool {
	m.probes = append(m.probes, lib)
	if m.probeFunc != nil {
		return m.probeFunc(ctx, lib)
	}
	return true
}

func (m *mockFrontend) Invoke(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	m.invokes = append(m.invokes, args)
	if m.invokeFunc != nil {
		return m.invokeFunc(ctx, args, stdout, stderr)
	}
	return nil
}

// probing reports whether lib was ever probed.
func (m *mockFrontend) probing(lib string) bool {
	for _, p := range m.probes {
		if p == lib {
			return true
		}
	}
	return false
}
