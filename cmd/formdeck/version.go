package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formdeck/formdeck/internal/version"
)

// versionCmd implements the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of formdeck",
	Run: func(_ *cobra.Command, _ []string) {
		info := version.Get()
		fmt.Printf("formdeck version %s\n", info.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
