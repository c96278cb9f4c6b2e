package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"draftqa/config"
	"draftqa/internal/corpus"
	"draftqa/internal/retrieval"
)

func reindexCMD() *cobra.Command {
	var cfgPath string
	var indexPath string

	var reindex = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the local search index from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if cfg.Corpus.PostgresURL == "" {
				return fmt.Errorf("postgres not configured (corpus.postgres_url)")
			}
			if indexPath == "" {
				indexPath = cfg.Corpus.IndexPath
			}
			if indexPath == "" {
				return fmt.Errorf("index path not configured (corpus.index_path or --index)")
			}

			ctx := context.Background()
			catalog, err := corpus.NewWithDSN(ctx, cfg.Corpus.PostgresURL)
			if err != nil {
				return err
			}
			defer catalog.Close()

			chunks, err := catalog.Chunks(ctx)
			if err != nil {
				return err
			}

			index, err := retrieval.OpenBleveRetriever(indexPath)
			if err != nil {
				return err
			}
			defer index.Close()

			if err := index.IndexChunks(chunks); err != nil {
				return err
			}
			count, err := index.Count()
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d chunks (%d in index)\n", len(chunks), count)
			return nil
		},
	}
	reindex.Flags().StringVar(&indexPath, "index", "", "bleve index path (default corpus.index_path)")
	reindex.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return reindex
}
