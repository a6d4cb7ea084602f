package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tutor/internal/cli"
	"github.com/aretw0/tutor/pkg/sandbox"
)

var rootCmd = &cobra.Command{
	Use:          "tutor",
	Short:        "Tutor runs interactive programming lessons",
	Long:         `Tutor checks each attempt of a learner against the current step of a lesson page and moves on when it passes.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("dir", ".", "Directory containing the lesson pages")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("store", "", "Session store: memory, file or redis (default file, or redis when --redis is set)")
	flags.String("redis", "", "Redis URL for sessions and locks (redis://host:6379/0)")
	flags.Duration("session-ttl", 0, "Expire idle sessions in redis after this long (0 keeps them)")
	flags.Duration("timeout", sandbox.DefaultTimeout, "Time budget of one attempt")
	flags.Uint64("max-steps", 0, "Execution step budget of one attempt (0 is unlimited)")
}

// options reads the persistent flags. A positional argument names the
// directory when --dir is not given.
func options(cmd *cobra.Command, args []string) cli.Options {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	if !flags.Changed("dir") && len(args) > 0 {
		dir = args[0]
	}
	opts := cli.Options{Dir: dir}
	opts.LogLevel, _ = flags.GetString("log-level")
	opts.LogJSON, _ = flags.GetBool("log-json")
	opts.Store, _ = flags.GetString("store")
	opts.RedisURL, _ = flags.GetString("redis")
	opts.SessionTTL, _ = flags.GetDuration("session-ttl")
	opts.Timeout, _ = flags.GetDuration("timeout")
	opts.MaxSteps, _ = flags.GetUint64("max-steps")
	opts.SessionKey = os.Getenv(cli.EnvSessionKey)
	return opts
}

// withStack opens the stack for the duration of fn.
func withStack(cmd *cobra.Command, args []string, fn func(*cli.Stack) error) error {
	stack, err := cli.NewStack(options(cmd, args))
	if err != nil {
		return err
	}
	defer stack.Close()
	return fn(stack)
}
