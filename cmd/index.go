package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/preflight/internal/config"
	"github.com/nextlevelbuilder/preflight/internal/memory"
	"github.com/nextlevelbuilder/preflight/internal/providers"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the semantic memory index",
	}
	cmd.AddCommand(indexSyncCmd())
	cmd.AddCommand(indexStatusCmd())
	return cmd
}

func indexSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-index memory files that changed since the last sync",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr := openManager(cfg)
			defer mgr.Close()

			if err := mgr.Sync(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "Sync failed: %s\n", err)
				os.Exit(1)
			}
			st := mgr.Status()
			fmt.Printf("Indexed %d files (%d chunks).\n", st.FileCount, st.ChunkCount)
		},
	}
}

func indexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index counts and the embedding model in use",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr := openManager(cfg)
			defer mgr.Close()

			st := mgr.Status()
			fmt.Printf("Files:   %d\n", st.FileCount)
			fmt.Printf("Chunks:  %d\n", st.ChunkCount)
			if st.EmbedModel != "" {
				fmt.Printf("Embed:   %s\n", st.EmbedModel)
			} else {
				fmt.Println("Embed:   (keyword-only, no embedding model)")
			}
			fmt.Printf("DB:      %s\n", cfg.IndexDBPath())
		},
	}
}

func openManager(cfg *config.Config) *memory.Manager {
	var embedder memory.Embedder
	if cfg.Semantic.EmbedModel != "" {
		embedder = providers.NewOllamaClient(cfg.Extractor.OllamaURL, cfg.ExtractorTimeout())
	}
	mgr, err := memory.NewManager(cfg.Workspace, cfg.IndexDBPath(), embedder, cfg.Semantic.EmbedModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %s\n", err)
		os.Exit(1)
	}
	return mgr
}
