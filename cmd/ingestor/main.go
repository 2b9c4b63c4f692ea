package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/lernsearch/internal/chunker"
	"github.com/seanblong/lernsearch/internal/config"
	"github.com/seanblong/lernsearch/internal/ingest"
	"github.com/seanblong/lernsearch/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("lernsearch-ingestor", pflag.ExitOnError)
	fs.Bool("list", false, "List ingested documents and exit")
	fs.String("delete", "", "Delete the document with this ID and exit")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger
	logger.Info().Str("provider", cfg.Provider).Str("docs_root", cfg.DocsRoot).Msg("starting lernsearch ingestor")

	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	if list, _ := fs.GetBool("list"); list {
		docs, err := st.ListDocuments(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, d := range docs {
			fmt.Printf("%s  %s  (%s)\n", d.ID, d.Title, d.Path)
		}
		return
	}
	if id, _ := fs.GetString("delete"); id != "" {
		if err := st.DeleteDocument(ctx, id); err != nil {
			log.Fatal(err)
		}
		logger.Info().Str("document_id", id).Msg("document deleted")
		return
	}

	chunkOpts := chunker.Options{
		TargetTokens:  cfg.Chunking.TargetTokens,
		OverlapTokens: cfg.Chunking.OverlapTokens,
	}
	ix, err := ingest.New(st, cfg.DocsRoot, clientConfig, chunkOpts)
	if err != nil {
		log.Fatal(err)
	}

	if ix.Client.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}

	if err := st.Migrate(ctx, ix.Client.Dim()); err != nil {
		log.Fatal(err)
	}

	if err := ix.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
