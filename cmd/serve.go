package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/preflight/internal/config"
	"github.com/nextlevelbuilder/preflight/internal/preflight"
	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

// serveCmd runs the hook as a persistent process: one JSON turn per
// stdin line, one JSON hook response per stdout line. Hosts that fire
// on every turn use this to avoid paying process startup each time.
// The config file is watched and applied without a restart.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Process turns line-by-line from stdin until EOF",
		Run: func(cmd *cobra.Command, args []string) {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
				os.Exit(1)
			}

			var mu sync.Mutex
			o, shutdown, err := preflight.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			defer func() {
				mu.Lock()
				defer mu.Unlock()
				shutdown()
			}()

			if watcher, werr := config.NewWatcher(cfgPath); werr == nil {
				watcher.OnChange(func(next *config.Config) {
					no, nshutdown, nerr := preflight.NewFromConfig(cmd.Context(), next)
					if nerr != nil {
						slog.Error("config change rejected", "error", nerr)
						return
					}
					mu.Lock()
					old := shutdown
					o, shutdown = no, nshutdown
					mu.Unlock()
					old()
				})
				if werr := watcher.Start(); werr != nil {
					slog.Warn("config watch unavailable", "path", cfgPath, "error", werr)
				} else {
					defer watcher.Stop()
				}
			}

			enc := json.NewEncoder(os.Stdout)
			sc := bufio.NewScanner(os.Stdin)
			sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for sc.Scan() {
				line := sc.Bytes()
				if len(line) == 0 {
					continue
				}
				var turn hostapi.Turn
				if err := json.Unmarshal(line, &turn); err != nil {
					enc.Encode(hostapi.HookOutput{})
					continue
				}
				mu.Lock()
				cur := o
				mu.Unlock()
				enc.Encode(cur.Run(cmd.Context(), turn).Output())
			}
		},
	}
}
