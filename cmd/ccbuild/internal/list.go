package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/ccbuild/blueprint"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared targets and features",
	Long:  `List prints the manifest's targets and features with their declared state. No probing is performed.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}
	reg, err := m.Registry()
	if err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	fmt.Println("targets:")
	for _, t := range reg.Targets() {
		marker := " "
		if t == reg.DefaultTarget() {
			marker = "*"
		}
		fmt.Printf("%s %s%s\n", marker, t.Name, targetNotes(t))
	}

	if features := reg.Features(); len(features) > 0 {
		fmt.Println("features:")
		for _, f := range features {
			state := "disabled"
			if f.Default {
				state = "enabled"
			}
			fmt.Printf("  %s (%s, library %s)\n", f.Name, state, f.Library)
		}
	}
	return nil
}

func targetNotes(t *blueprint.Target) string {
	var notes []string
	if len(t.Requires) > 0 {
		notes = append(notes, "requires "+strings.Join(t.Requires, ", "))
	}
	if len(t.Wants) > 0 {
		notes = append(notes, "wants "+strings.Join(t.Wants, ", "))
	}
	if t.Out != t.Name {
		notes = append(notes, "out "+t.Out)
	}
	if len(notes) == 0 {
		return ""
	}
	return " (" + strings.Join(notes, "; ") + ")"
}
