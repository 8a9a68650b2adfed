package internal

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/goplus/ccbuild/blueprint"
	"github.com/goplus/ccbuild/internal/driver"
	"github.com/goplus/ccbuild/internal/resolve"
	"github.com/goplus/ccbuild/internal/toolchain"
)

var rootCmd = &cobra.Command{
	Use:   "ccbuild",
	Short: "ccbuild builds multi-target native programs",
	Long: `ccbuild orchestrates multi-target native builds: it probes the host for
each target's library integrations, assembles the compiler configuration
and builds the selected targets in declared order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Print(err)
		os.Exit(exitCode(err))
	}
}

// exitCode classifies an error into the process exit code.
func exitCode(err error) int {
	var (
		toolErr *toolchain.ToolchainError
		confErr *resolve.ConfigurationError
		depErr  *resolve.DependencyError
		compErr *driver.CompileError
	)
	switch {
	case errors.As(err, &toolErr):
		return 2
	case errors.As(err, &confErr):
		return 3
	case errors.As(err, &depErr):
		return 4
	case errors.As(err, &compErr):
		return 5
	}
	return 1
}

// loadManifest reads the manifest from the current directory and enforces
// its minimum tool version.
func loadManifest() (*blueprint.Manifest, error) {
	if _, err := os.Stat(blueprint.ManifestFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s not found in current directory, run 'ccbuild init' first", blueprint.ManifestFile)
	}
	m, err := blueprint.Parse(blueprint.ManifestFile, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", blueprint.ManifestFile, err)
	}
	if err := m.CheckVersion(Version); err != nil {
		return nil, err
	}
	return m, nil
}
