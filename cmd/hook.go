package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/preflight/internal/preflight"
	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

// hookCmd is the host integration point. The chat host pipes the turn
// payload to stdin and prepends whatever comes back on stdout. The
// command always exits 0 so a recall failure never blocks the turn.
func hookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hook",
		Short: "Process one turn from stdin, emit a hook response on stdout",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()

			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				emit(hostapi.HookOutput{})
				return
			}
			var turn hostapi.Turn
			if err := json.Unmarshal(data, &turn); err != nil {
				emit(hostapi.HookOutput{})
				return
			}

			o, shutdown, err := preflight.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				emit(hostapi.HookOutput{})
				return
			}
			defer shutdown()

			res := o.Run(cmd.Context(), turn)
			emit(res.Output())
		},
	}
}

func emit(out hostapi.HookOutput) {
	data, err := json.Marshal(out)
	if err != nil {
		fmt.Println("{}")
		return
	}
	fmt.Println(string(data))
}
