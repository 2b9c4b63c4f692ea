package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/lernsearch/internal/ai"
	"github.com/seanblong/lernsearch/internal/config"
	"github.com/seanblong/lernsearch/internal/evaluation"
	"github.com/seanblong/lernsearch/internal/highlight"
	"github.com/seanblong/lernsearch/internal/retrieval"
	"github.com/seanblong/lernsearch/internal/store"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func main() {
	fs := pflag.NewFlagSet("lernsearch-query", pflag.ExitOnError)
	fs.String("query", "", "Search phrase")
	fs.StringSlice("documents", nil, "Restrict retrieval to these document IDs")
	fs.Bool("verify", false, "Read an answer from stdin and resolve its source markers")
	fs.Bool("highlight", false, "Show where the query phrase sits inside each retrieved chunk")
	fs.String("eval", "", "Path to a YAML file of labeled phrases to score retrieval against")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger

	query, _ := fs.GetString("query")
	documents, _ := fs.GetStringSlice("documents")
	verify, _ := fs.GetBool("verify")
	showSpans, _ := fs.GetBool("highlight")
	evalPath, _ := fs.GetString("eval")

	ctx := context.Background()

	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		log.Fatal(err)
	}
	client, err := ai.NewClient(ctx, clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	r := retrieval.NewRetriever(client, st)
	opts := retrieval.Options{
		TopK:              cfg.Retrieval.TopK,
		DistanceThreshold: cfg.Retrieval.DistanceThreshold,
		DocumentIDs:       documents,
	}

	if evalPath != "" {
		if err := runEval(ctx, r, st, evalPath, opts); err != nil {
			log.Fatal(err)
		}
		return
	}

	if strings.TrimSpace(query) == "" {
		log.Fatal("--query is required")
	}

	chunks, err := r.Retrieve(ctx, query, opts)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(retrieval.BuildContextPrompt(chunks))

	if showSpans {
		for i, c := range chunks {
			m := highlight.Localize(c.Content, query)
			if m.NoMatch {
				fmt.Printf("\n[Quelle %d] keine Fundstelle\n", i+1)
				continue
			}
			fmt.Printf("\n[Quelle %d] Fundstelle (%s):\n%s\n", i+1, m.Badge, m.Text[m.WindowStart:m.WindowEnd])
		}
	}

	if verify {
		answer, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("Failed to read answer from stdin: %v", err)
		}
		citations := retrieval.ExtractCitations(string(answer), chunks)
		if len(citations) == 0 {
			fmt.Println("\nKeine Quellenangaben gefunden.")
			return
		}
		fmt.Println()
		for _, c := range citations {
			fmt.Printf("%s %s\n", retrieval.FormatCitationLabel(c), c.Snippet)
		}
	}
}

// evalFile is the on-disk shape of a labeled phrase set.
type evalFile struct {
	Phrases []struct {
		Text            string `yaml:"text"`
		Category        string `yaml:"category"`
		ExpectedChunkID string `yaml:"expectedChunkID"`
	} `yaml:"phrases"`
}

func runEval(ctx context.Context, r *retrieval.Retriever, st *store.Store, path string, opts retrieval.Options) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read eval file: %w", err)
	}
	var f evalFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse eval file: %w", err)
	}

	phrases := make([]evaluation.Phrase, 0, len(f.Phrases))
	for _, p := range f.Phrases {
		if p.ExpectedChunkID != "" {
			if _, ok, err := st.GetChunk(ctx, p.ExpectedChunkID); err != nil {
				return fmt.Errorf("check expected chunk: %w", err)
			} else if !ok {
				zlog.Warn().Str("phrase", p.Text).Str("chunk_id", p.ExpectedChunkID).Msg("expected chunk not found, phrase will always miss")
			}
		}
		phrases = append(phrases, evaluation.Phrase{
			Text:            p.Text,
			Category:        p.Category,
			ExpectedChunkID: p.ExpectedChunkID,
		})
	}

	results, metrics, err := evaluation.Run(ctx, r, phrases, opts)
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Printf("rank=%d  %s\n", res.ExpectedRank, res.Phrase.Text)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(metrics)
}
