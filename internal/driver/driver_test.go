package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/qiniu/x/log"

	"github.com/goplus/ccbuild/blueprint"
	"github.com/goplus/ccbuild/internal/resolve"
)

func testRegistry(t *testing.T) *blueprint.Registry {
	t.Helper()
	reg, err := blueprint.New(
		[]blueprint.Target{
			{Name: "server", Srcs: []string{"server.c", "common.c"}, Incs: []string{"include"}, Requires: []string{"zstd"}, Wants: []string{"trace"}},
			{Name: "client", Srcs: []string{"client.c", "common.c"}, Wants: []string{"curses"}},
			{Name: "monitor", Srcs: []string{"monitor.c"}, Wants: []string{"curses"}},
			{Name: "bench", Srcs: []string{"bench.c"}},
		},
		[]blueprint.Feature{
			{Name: "zstd", Default: true, Library: "zstd", Define: "USE_ZSTD"},
			{Name: "curses", Default: true, Library: "ncurses", Extras: []string{"tinfo"}, Define: "USE_CURSES"},
			{Name: "trace", Default: false, Library: "unwind", Define: "USE_TRACE"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func testDriver(t *testing.T, cfg Config, fe *mockFrontend) *Driver {
	t.Helper()
	if cfg.Registry == nil {
		cfg.Registry = testRegistry(t)
	}
	if cfg.OutDir == "" {
		cfg.OutDir = t.TempDir()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = &bytes.Buffer{}
	}
	if cfg.Stderr == nil {
		cfg.Stderr = &bytes.Buffer{}
	}
	d, err := New(cfg, fe)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func targetNames(targets []*blueprint.Target) []string {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.Name)
	}
	return names
}

func TestSelect(t *testing.T) {
	d := testDriver(t, Config{}, &mockFrontend{})

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{name: "nothing selects default", args: nil, want: []string{"server"}},
		{name: "all selects everything", args: []string{"all"}, want: []string{"server", "client", "monitor", "bench"}},
		{name: "subset keeps declared order", args: []string{"bench", "server"}, want: []string{"server", "bench"}},
		{name: "duplicates collapse", args: []string{"client", "client"}, want: []string{"client"}},
		{name: "unknown target", args: []string{"nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Select(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Select() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, targetNames(got)); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunArgv(t *testing.T) {
	fe := &mockFrontend{}
	var stdout bytes.Buffer
	outDir := t.TempDir()
	d := testDriver(t, Config{
		Registry:    testRegistry(t),
		Overrides:   map[string]bool{"trace": true},
		CFlags:      "-O2 -Wall",
		LDFlags:     "-static",
		PassThrough: []string{"-fno-plt"},
		Version:     "v1.2.3",
		OutDir:      outDir,
		Stdout:      &stdout,
	}, fe)

	if err := d.Run(context.Background(), []string{"server"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fe.invokes) != 1 {
		t.Fatalf("invocations = %d, want 1", len(fe.invokes))
	}
	want := []string{
		"-O2", "-Wall",
		`-DVERSION="v1.2.3"`, "-DUSE_ZSTD", "-DUSE_TRACE",
		"-Iinclude",
		"-fno-plt",
		"server.c", "common.c",
		"-o", filepath.Join(outDir, "server"),
		"-static", "-lzstd", "-lunwind",
	}
	if diff := cmp.Diff(want, fe.invokes[0]); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}

	// Required features resolve strictly before optional ones.
	wantProbes := []string{"zstd", "unwind"}
	if diff := cmp.Diff(wantProbes, fe.probes); diff != "" {
		t.Errorf("probe order mismatch (-want +got):\n%s", diff)
	}

	for _, line := range []string{"building server", "built " + filepath.Join(outDir, "server")} {
		if !strings.Contains(stdout.String(), line) {
			t.Errorf("progress output missing %q:\n%s", line, stdout.String())
		}
	}

	if _, err := os.Stat(filepath.Join(outDir, lockFile)); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

func TestRunVersionDefaultsToUnknown(t *testing.T) {
	fe := &mockFrontend{}
	d := testDriver(t, Config{}, fe)

	if err := d.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(fe.invokes) != 1 {
		t.Fatalf("invocations = %d, want 1", len(fe.invokes))
	}
	found := false
	for _, arg := range fe.invokes[0] {
		if arg == `-DVERSION="unknown"` {
			found = true
		}
	}
	if !found {
		t.Errorf("argv missing unknown version define: %v", fe.invokes[0])
	}
}

func TestRunRequiredDisabledAborts(t *testing.T) {
	fe := &mockFrontend{}
	d := testDriver(t, Config{Overrides: map[string]bool{"zstd": false}}, fe)

	err := d.Run(context.Background(), []string{"server"})
	var cerr *resolve.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("Run() error = %v, want *ConfigurationError", err)
	}
	if len(fe.invokes) != 0 {
		t.Errorf("invocations = %d, want 0", len(fe.invokes))
	}
	if len(fe.probes) != 0 {
		t.Errorf("probes = %v, want none for a disabled feature", fe.probes)
	}
}

func TestRunRequiredLibraryMissingAborts(t *testing.T) {
	fe := &mockFrontend{probeFunc: func(ctx context.Context, lib string) bool {
		return lib != "zstd"
	}}
	d := testDriver(t, Config{}, fe)

	err := d.Run(context.Background(), []string{"server"})
	var derr *resolve.DependencyError
	if !errors.As(err, &derr) {
		t.Fatalf("Run() error = %v, want *DependencyError", err)
	}
	if derr.Library != "zstd" {
		t.Errorf("Library = %s, want zstd", derr.Library)
	}
	if len(fe.invokes) != 0 {
		t.Errorf("invocations = %d, want 0 after dependency failure", len(fe.invokes))
	}
}

func TestRunOptionalDegrades(t *testing.T) {
	fe := &mockFrontend{probeFunc: func(ctx context.Context, lib string) bool {
		return lib != "ncurses"
	}}
	d := testDriver(t, Config{}, fe)

	if err := d.Run(context.Background(), []string{"client"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(fe.invokes) != 1 {
		t.Fatalf("invocations = %d, want 1", len(fe.invokes))
	}
	for _, arg := range fe.invokes[0] {
		if arg == "-DUSE_CURSES" || arg == "-lncurses" || arg == "-ltinfo" {
			t.Errorf("argv carries flags of a degraded feature: %v", fe.invokes[0])
		}
	}
}

// captureDiagnostics redirects the diagnostic channel for one test.
func captureDiagnostics(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestRunOptionalMissingWarnsOnce(t *testing.T) {
	logs := captureDiagnostics(t)
	fe := &mockFrontend{probeFunc: func(ctx context.Context, lib string) bool {
		return lib != "ncurses"
	}}
	d := testDriver(t, Config{}, fe)

	if err := d.Run(context.Background(), []string{"client"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(fe.invokes) != 1 {
		t.Fatalf("invocations = %d, want 1", len(fe.invokes))
	}
	out := logs.String()
	if count := strings.Count(out, "[WARN]"); count != 1 {
		t.Errorf("warnings = %d, want exactly 1:\n%s", count, out)
	}
	if !strings.Contains(out, "ncurses") {
		t.Errorf("warning does not name the missing library:\n%s", out)
	}
}

func TestRunOptionalDisabledNotes(t *testing.T) {
	logs := captureDiagnostics(t)
	fe := &mockFrontend{}
	d := testDriver(t, Config{}, fe)

	// trace defaults to off, so building server notes it and moves on.
	if err := d.Run(context.Background(), []string{"server"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(fe.invokes) != 1 {
		t.Fatalf("invocations = %d, want 1", len(fe.invokes))
	}
	out := logs.String()
	if !strings.Contains(out, "[INFO]") || !strings.Contains(out, "trace") {
		t.Errorf("no notice for the disabled feature:\n%s", out)
	}
	if strings.Contains(out, "[WARN]") {
		t.Errorf("disabled feature produced a warning:\n%s", out)
	}
}

func TestRunSubsetSkipsOthersEntirely(t *testing.T) {
	fe := &mockFrontend{}
	outDir := t.TempDir()
	d := testDriver(t, Config{OutDir: outDir}, fe)

	if err := d.Run(context.Background(), []string{"server", "bench"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fe.invokes) != 2 {
		t.Fatalf("invocations = %d, want 2", len(fe.invokes))
	}
	// trace stays disabled by default, so server only probes zstd; the
	// unselected curses users never cause a probe at all.
	if fe.probing("ncurses") || fe.probing("tinfo") {
		t.Errorf("probed libraries of unselected targets: %v", fe.probes)
	}
	for i, wantOut := range []string{"server", "bench"} {
		found := false
		for _, arg := range fe.invokes[i] {
			if arg == filepath.Join(outDir, wantOut) {
				found = true
			}
		}
		if !found {
			t.Errorf("invocation %d does not produce %s: %v", i, wantOut, fe.invokes[i])
		}
	}
}

func TestRunProbesPerTarget(t *testing.T) {
	fe := &mockFrontend{}
	d := testDriver(t, Config{}, fe)

	if err := d.Run(context.Background(), []string{"client", "monitor"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Resolutions are target-scoped: both curses users probe again.
	count := 0
	for _, lib := range fe.probes {
		if lib == "ncurses" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("ncurses probed %d times, want 2 (once per target)", count)
	}
}

func TestRunFailFast(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	fe := &mockFrontend{invokeFunc: func(ctx context.Context, args []string, stdout, stderr io.Writer) error {
		return cause
	}}
	d := testDriver(t, Config{}, fe)

	err := d.Run(context.Background(), []string{"all"})
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("Run() error = %v, want *CompileError", err)
	}
	if cerr.Target != "server" {
		t.Errorf("Target = %s, want server", cerr.Target)
	}
	if !errors.Is(err, cause) {
		t.Error("CompileError does not unwrap to the invocation error")
	}
	if len(fe.invokes) != 1 {
		t.Errorf("invocations = %d, want 1 (remaining targets must not run)", len(fe.invokes))
	}
}

func TestNew(t *testing.T) {
	t.Run("no registry", func(t *testing.T) {
		if _, err := New(Config{}, &mockFrontend{}); err == nil {
			t.Error("New() error = nil, want error")
		}
	})

	t.Run("unknown override", func(t *testing.T) {
		_, err := New(Config{
			Registry:  testRegistry(t),
			Overrides: map[string]bool{"nope": true},
		}, &mockFrontend{})
		if err == nil {
			t.Error("New() error = nil, want error for unknown feature override")
		}
	})
}
