package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/ats-scorer/internal/dictionary"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the dictionary version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s\n", app, version)
		if dict, err := dictionary.Default(); err == nil {
			fmt.Printf("dictionary version: %s\n", dict.Version())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
