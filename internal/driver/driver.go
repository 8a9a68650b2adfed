// Package driver orchestrates target builds: selection, dependency
// resolution, flag assembly and compiler invocation, in declared order
// with fail-fast abort.
package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/ccbuild/blueprint"
	"github.com/goplus/ccbuild/internal/ccargs"
	"github.com/goplus/ccbuild/internal/gitver"
	"github.com/goplus/ccbuild/internal/lockedfile"
	"github.com/goplus/ccbuild/internal/resolve"
)

// lockFile guards the artifact directory against concurrent runs.
const lockFile = ".ccbuild.lock"

// Frontend is the compiler surface the driver drives. toolchain.Compiler
// implements it.
type Frontend interface {
	Command() string
	Probe(ctx context.Context, lib string) bool
	Invoke(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// Config is the run-scoped build configuration. It is snapshotted by New
// and immutable afterwards.
type Config struct {
	Registry    *blueprint.Registry
	Overrides   map[string]bool // operator feature overrides
	CFlags      string          // opaque base compile flags
	LDFlags     string          // opaque base link flags
	PassThrough []string        // forwarded verbatim to every invocation
	Version     string          // version tag, gitver.Unknown when empty
	OutDir      string          // artifact directory, default "."
	Stdout      io.Writer       // progress channel, default os.Stdout
	Stderr      io.Writer       // compiler diagnostics, default os.Stderr
}

// Driver builds selected targets one at a time.
type Driver struct {
	cfg      Config
	frontend Frontend
	resolver *resolve.Resolver
}

// New validates cfg and returns a Driver driving frontend.
func New(cfg Config, frontend Frontend) (*Driver, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("driver: no registry")
	}
	if cfg.Version == "" {
		cfg.Version = gitver.Unknown
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	resolver, err := resolve.NewResolver(cfg.Registry, cfg.Overrides, frontend)
	if err != nil {
		return nil, err
	}
	return &Driver{cfg: cfg, frontend: frontend, resolver: resolver}, nil
}

// Select resolves the operator's target selection. No names selects the
// default target, the literal "all" selects everything. Selected targets
// come back in declared order, each at most once; unselected targets stay
// completely untouched.
func (d *Driver) Select(names []string) ([]*blueprint.Target, error) {
	reg := d.cfg.Registry
	if len(names) == 0 {
		return []*blueprint.Target{reg.DefaultTarget()}, nil
	}
	if len(names) == 1 && names[0] == "all" {
		return reg.Targets(), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := reg.Target(name); !ok {
			return nil, fmt.Errorf("unknown target %s", name)
		}
		wanted[name] = true
	}

	var selected []*blueprint.Target
	for _, t := range reg.Targets() {
		if wanted[t.Name] {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

// Run builds the selection in declared order. The first failure aborts
// the whole run; remaining targets are never attempted.
func (d *Driver) Run(ctx context.Context, names []string) error {
	targets, err := d.Select(names)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(d.cfg.OutDir, 0755); err != nil {
		return err
	}
	unlock, err := lockedfile.MutexAt(filepath.Join(d.cfg.OutDir, lockFile)).Lock()
	if err != nil {
		return err
	}
	defer unlock()

	log.Debugf("using compiler %s", d.frontend.Command())
	for _, t := range targets {
		if err := d.build(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// build runs one target's build procedure: resolve required features
// strictly, then optional ones, assemble the argument vector and invoke
// the compiler exactly once.
func (d *Driver) build(ctx context.Context, t *blueprint.Target) error {
	fmt.Fprintf(d.cfg.Stdout, "building %s\n", t.Name)
	log.Debugf("%s: resolving dependencies", t.Name)

	var compile ccargs.Compile
	var link ccargs.Link
	compile.AddFlags(d.cfg.CFlags)
	compile.Define(fmt.Sprintf("VERSION=%q", d.cfg.Version))
	link.AddFlags(d.cfg.LDFlags)

	for _, name := range t.Requires {
		res, err := d.resolver.Resolve(ctx, name, resolve.Required)
		if err != nil {
			return err
		}
		apply(&compile, &link, res)
	}
	for _, name := range t.Wants {
		res, err := d.resolver.Resolve(ctx, name, resolve.Optional)
		if err != nil {
			return err
		}
		apply(&compile, &link, res)
	}
	for _, dir := range t.Incs {
		compile.Include(dir)
	}

	out := filepath.Join(d.cfg.OutDir, t.Out)
	args := compile.Args()
	args = append(args, d.cfg.PassThrough...)
	args = append(args, t.Srcs...)
	args = append(args, "-o", out)
	args = append(args, link.Args()...)

	log.Debugf("%s: compiling: %s %s", t.Name, d.frontend.Command(), strings.Join(args, " "))
	if err := d.frontend.Invoke(ctx, args, d.cfg.Stdout, d.cfg.Stderr); err != nil {
		return &CompileError{Target: t.Name, Err: err}
	}
	fmt.Fprintf(d.cfg.Stdout, "built %s\n", out)
	return nil
}

// apply folds a feature resolution into the accumulating argument lists.
func apply(compile *ccargs.Compile, link *ccargs.Link, res resolve.Resolution) {
	if !res.Enabled {
		return
	}
	for _, sym := range res.Defines {
		compile.Define(sym)
	}
	for _, lib := range res.Libs {
		link.Lib(lib)
	}
}

// CompileError reports a failed compiler invocation for a target.
type CompileError struct {
	Target string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Target, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }
