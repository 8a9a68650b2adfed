package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the ccbuild release, overridden at link time on release
// builds.
var Version = "v0.4.1"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ccbuild version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ccbuild", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
