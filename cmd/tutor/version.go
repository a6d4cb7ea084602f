package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tutor"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tutor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tutor version %s\n", strings.TrimSpace(tutor.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
