package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/preflight/internal/preflight"
	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

// askCmd runs the pipeline on an ad-hoc prompt. Handy for checking what
// the hook would inject for a given message without involving a host.
func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text>",
		Short: "Run the recall pipeline on a prompt and print the hint",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()

			o, shutdown, err := preflight.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			defer shutdown()

			res := o.Run(cmd.Context(), hostapi.Turn{PromptText: strings.Join(args, " ")})
			switch res.Kind {
			case preflight.KindSkipped:
				fmt.Printf("skipped (%s)\n", res.SkipReason)
			case preflight.KindNoHits:
				fmt.Println("no related memory found")
			default:
				fmt.Println(res.Hint)
			}
		},
	}
}
