package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goplus/ccbuild/blueprint"
)

var initCmd = &cobra.Command{
	Use:   "init [project]",
	Short: "Initialize a new project",
	Long: `Initialize creates a ccbuild.yaml scaffold in the current directory.
The project name defaults to the directory name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// featuresHint documents the feature syntax in the scaffold.
const featuresHint = `
# Optional library integrations, probed on the host at build time:
#
# features:
#   - name: zstd
#     default: true
#     library: zstd
#     define: USE_ZSTD
`

func runInit(cmd *cobra.Command, args []string) error {
	var project string
	if len(args) == 1 {
		project = args[0]
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		project = filepath.Base(wd)
	}

	if _, err := os.Stat(blueprint.ManifestFile); err == nil {
		return fmt.Errorf("%s already exists", blueprint.ManifestFile)
	}

	m := &blueprint.Manifest{
		Project: project,
		Targets: []blueprint.ManifestTarget{
			{Name: project, Srcs: []string{"main.c"}},
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", blueprint.ManifestFile, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	buf.WriteString(featuresHint)

	if err := os.WriteFile(blueprint.ManifestFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", blueprint.ManifestFile, err)
	}

	fmt.Printf("Initialized project %s\n", project)
	return nil
}
