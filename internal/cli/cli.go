// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jeranaias/moodchat/internal/config"
	"github.com/jeranaias/moodchat/internal/server"
)

// Version information (can be overridden at build time)
var (
	Version   = server.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the command tree. Running the root command without
// a subcommand starts the server.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	serve := newServeCommand(g)

	root := &cobra.Command{
		Use:   "moodchat",
		Short: "Chat relay that streams model replies and lets the bot change its mood",
		Long: `moodchat proxies browser chat messages to a hosted language model and
streams the reply back as plain text.

The model may call changeMood once per request to rewrite its own persona;
the relay then announces the change and continues with a second reply in the
new mood. Output is capped and cut off on run-away repetition.

Run without arguments to start the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve.RunE,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default ~/.moodchat/config.toml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newConfigCommand(g),
		newPersonaCommand(g),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line with args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig loads the explicit config file, or the default locations.
// A broken default file is reported and defaults are used, like Global does.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFromPath(g.configPath)
	}
	cfg, err := config.Load()
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (using defaults)\n", err)
	}
	return cfg, nil
}

// =============================================================================
// VERSION COMMAND
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moodchat %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", GitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", BuildDate)
			fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
