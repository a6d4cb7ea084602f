package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/tutor/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [page]",
	Short: "Export a page as a Mermaid flowchart",
	Long:  `Outputs a Mermaid diagram (graph TD) of the steps of a page. With --session, the progress of that session is highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		pageID := ""
		if len(args) > 0 {
			pageID = args[0]
		}
		return withStack(cmd, nil, func(stack *cli.Stack) error {
			return cli.Graph(cmd.Context(), stack, pageID, sessionID, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Session whose progress is highlighted")
}
