package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/tutor/internal/cli"
	"github.com/aretw0/tutor/pkg/ports"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, and remove sessions stored in .tutor/sessions (or redis with --redis).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.StateStore) error {
			return cli.ListSessions(cmd.Context(), store, cmd.OutOrStdout())
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.StateStore) error {
			return cli.InspectSession(cmd.Context(), store, args[0], cmd.OutOrStdout())
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				return err
			}
		}
		return withStore(cmd, func(store ports.StateStore) error {
			return cli.RemoveSessions(cmd.Context(), store, args, all, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionRmCmd.Flags().Bool("all", false, "Remove every session")
}

// withStore opens only the session store; no lesson repository is needed.
func withStore(cmd *cobra.Command, fn func(ports.StateStore) error) error {
	store, _, closeStore, err := cli.OpenStore(options(cmd, nil))
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}
	return fn(store)
}
