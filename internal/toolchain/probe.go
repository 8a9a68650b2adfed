package toolchain

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
)

// probeSource is the minimal program a library probe compiles and links.
const probeSource = "int main(void) { return 0; }\n"

// Probe reports whether the named library is available on the host, by
// compiling and linking a minimal program against it. All compiler output
// is discarded and the temporary artifacts are removed; the only result is
// the verdict.
func (c *Compiler) Probe(ctx context.Context, lib string) bool {
	dir, err := os.MkdirTemp("", "ccbuild-probe-")
	if err != nil {
		return false
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "probe.c")
	if err := os.WriteFile(src, []byte(probeSource), 0o644); err != nil {
		return false
	}

	cmd := exec.CommandContext(ctx, c.path, src, "-o", filepath.Join(dir, "probe"), "-l"+lib)
	// Stdout and Stderr stay nil: the subprocess writes to the null device.
	return cmd.Run() == nil
}
