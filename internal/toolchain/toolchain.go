// Package toolchain locates a C compiler frontend on the host and runs it.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/qiniu/x/log"
)

// Families lists the compiler frontends tried in order. The CC environment
// variable, when set, is consulted before any of these.
var Families = []string{"cc", "gcc", "clang", "tcc"}

// Compiler is a resolved compiler frontend.
type Compiler struct {
	name string // family name or CC value
	path string // resolved executable path
}

// Option configures frontend discovery.
type Option func(*finder)

type finder struct {
	lookPath func(string) (string, error)
	getenv   func(string) string
}

// WithLookPath sets a custom executable lookup, used by tests.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(f *finder) {
		f.lookPath = fn
	}
}

// WithEnv sets a custom environment lookup, used by tests.
func WithEnv(fn func(string) string) Option {
	return func(f *finder) {
		f.getenv = fn
	}
}

// Find locates the first usable compiler frontend: the CC environment
// variable if set, then each family in priority order. An unresolvable CC
// falls back to the family list with a warning. It returns a
// *ToolchainError when none resolves.
func Find(opts ...Option) (*Compiler, error) {
	f := &finder{lookPath: exec.LookPath, getenv: os.Getenv}
	for _, opt := range opts {
		opt(f)
	}

	var tried []string
	if cc := f.getenv("CC"); cc != "" {
		if path, err := f.lookPath(cc); err == nil {
			return &Compiler{name: cc, path: path}, nil
		}
		log.Warnf("CC=%s not found, trying %s", cc, strings.Join(Families, ", "))
		tried = append(tried, cc)
	}
	for _, name := range Families {
		if path, err := f.lookPath(name); err == nil {
			return &Compiler{name: name, path: path}, nil
		}
		tried = append(tried, name)
	}
	return nil, &ToolchainError{Tried: tried}
}

// Command returns the frontend name the compiler was found under.
func (c *Compiler) Command() string { return c.name }

// Path returns the resolved executable path.
func (c *Compiler) Path() string { return c.path }

// Invoke runs the compiler once with the given arguments, streaming its
// output to stdout and stderr.
func (c *Compiler) Invoke(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// ToolchainError reports that no usable compiler frontend was found.
type ToolchainError struct {
	Tried []string // frontend names tried, in order
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("no usable C compiler found (tried %s); install one or set CC", strings.Join(e.Tried, ", "))
}
