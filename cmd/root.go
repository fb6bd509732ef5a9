package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/preflight/internal/config"
)

var (
	flagConfig  string
	flagVerbose bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Memory recall preflight for chat hosts",
		Long: "preflight inspects each user turn before the model sees it,\n" +
			"searches the workspace memory for related notes, and emits a\n" +
			"hint block the host prepends to the conversation context.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if flagVerbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(hookCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(askCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(configCmd())
	return cmd
}

// Execute runs the CLI. It is the only entry point main uses.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.ResolvePath()
}

func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}
	return cfg
}
