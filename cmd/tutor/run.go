package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/tutor/internal/cli"
	"github.com/aretw0/tutor/internal/presentation/tui"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Take a lesson page interactively",
	Long: `Starts a session on a page and checks every attempt typed at the prompt.
Type :reset to clear your variables, :restart to go back to the first step and :quit to leave.
Progress is saved; resume with --session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		ro := cli.RunOptions{}
		ro.PageID, _ = flags.GetString("page")
		ro.SessionID, _ = flags.GetString("session")
		ro.JSON, _ = flags.GetBool("json")
		ro.Watch, _ = flags.GetBool("watch")
		ro.Keep, _ = flags.GetBool("keep")
		ro.Rich = !ro.JSON && tui.IsTerminal(os.Stdout)

		return withStack(cmd, args, func(stack *cli.Stack) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cli.RunSession(ctx, stack, ro, os.Stdin, os.Stdout)
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("page", "", "Page to start (default: the only page)")
	runCmd.Flags().String("session", "", "Session to resume")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().BoolP("watch", "w", false, "Reload pages when they change on disk")
	runCmd.Flags().Bool("keep", false, "Keep the session once the page is complete")

	// 'run' is the default when no command is provided.
	rootCmd.Args = runCmd.Args
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
