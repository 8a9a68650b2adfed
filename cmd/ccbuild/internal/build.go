package internal

import (
	"context"
	"fmt"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/ccbuild/internal/driver"
	"github.com/goplus/ccbuild/internal/gitver"
	"github.com/goplus/ccbuild/internal/toolchain"
)

var (
	buildVerbose bool
	buildCFlags  string
	buildLDFlags string
	buildEnable  []string
	buildDisable []string
	buildOutDir  string
)

var buildCmd = &cobra.Command{
	Use:   "build [target ...] [-- compiler-args]",
	Short: "Build the selected targets",
	Long: `Build resolves each selected target's features against the host and
compiles it. With no targets the default target is built; the literal
"all" builds every declared target. Arguments after -- are forwarded
verbatim to every compiler invocation.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Enable verbose build output")
	buildCmd.Flags().StringVar(&buildCFlags, "cflags", "", "Extra compile flags, appended to the manifest's")
	buildCmd.Flags().StringVar(&buildLDFlags, "ldflags", "", "Extra link flags, appended to the manifest's")
	buildCmd.Flags().StringArrayVar(&buildEnable, "enable", nil, "Force a feature on (repeatable)")
	buildCmd.Flags().StringArrayVar(&buildDisable, "disable", nil, "Force a feature off (repeatable)")
	buildCmd.Flags().StringVarP(&buildOutDir, "out-dir", "o", "", "Directory artifacts are written to")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildVerbose {
		log.SetOutputLevel(log.Ldebug)
	}

	m, err := loadManifest()
	if err != nil {
		return err
	}
	reg, err := m.Registry()
	if err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	overrides, err := overrideSet(buildEnable, buildDisable)
	if err != nil {
		return err
	}

	cc, err := toolchain.Find()
	if err != nil {
		return err
	}

	targets := args
	var passThrough []string
	if i := cmd.ArgsLenAtDash(); i >= 0 {
		targets, passThrough = args[:i], args[i:]
	}

	ctx := context.Background()

	d, err := driver.New(driver.Config{
		Registry:    reg,
		Overrides:   overrides,
		CFlags:      joinFlags(m.CFlags, buildCFlags),
		LDFlags:     joinFlags(m.LDFlags, buildLDFlags),
		PassThrough: passThrough,
		Version:     gitver.New().Tag(ctx, "."),
		OutDir:      buildOutDir,
	}, cc)
	if err != nil {
		return err
	}
	return d.Run(ctx, targets)
}

// overrideSet merges the --enable and --disable lists, rejecting features
// named in both.
func overrideSet(enable, disable []string) (map[string]bool, error) {
	if len(enable) == 0 && len(disable) == 0 {
		return nil, nil
	}
	overrides := make(map[string]bool, len(enable)+len(disable))
	for _, name := range enable {
		overrides[name] = true
	}
	for _, name := range disable {
		if overrides[name] {
			return nil, fmt.Errorf("feature %s both enabled and disabled", name)
		}
		overrides[name] = false
	}
	return overrides, nil
}

func joinFlags(base, extra string) string {
	switch {
	case base == "":
		return extra
	case extra == "":
		return base
	}
	return base + " " + extra
}
