package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tutor/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check every page for authoring errors",
	Long:  `Compiles every page and reports malformed descriptors, canonical programs that do not parse and unknown predicates together.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStack(cmd, args, func(stack *cli.Stack) error {
			if err := cli.Validate(cmd.Context(), stack, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
