// Package ingest turns source documents on disk into embedded, persisted
// chunks: walk, parse, chunk, embed, replace.
package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/lernsearch/internal/ai"
	"github.com/seanblong/lernsearch/internal/chunker"
	"github.com/seanblong/lernsearch/pkg/models"
	"golang.org/x/sync/errgroup"
)

// embedConcurrency bounds parallel embedding calls per document.
const embedConcurrency = 4

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// DocumentStore is the slice of the store the ingestor needs.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, d models.Document) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []models.Chunk, embeddings [][]float32) error
}

// Ingestor handles ingestion of a directory of learning documents.
type Ingestor struct {
	Store      DocumentStore
	Client     ai.Client
	Root       string
	ChunkOpts  chunker.Options
	Walker     FileSystemWalker
	FileReader FileReader
}

// New creates a new Ingestor instance.
func New(s DocumentStore, root string, clientConfig *ai.ClientConfig, chunkOpts chunker.Options) (*Ingestor, error) {
	client, err := ai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, err
	}

	return &Ingestor{
		Store:      s,
		Client:     client,
		Root:       root,
		ChunkOpts:  chunkOpts,
		Walker:     &DefaultFileSystemWalker{},
		FileReader: &DefaultFileReader{},
	}, nil
}

// NewWithDependencies creates a new Ingestor instance with custom dependencies for testing
func NewWithDependencies(store DocumentStore, root string, client ai.Client, chunkOpts chunker.Options, walker FileSystemWalker, fileReader FileReader) *Ingestor {
	return &Ingestor{
		Store:      store,
		Client:     client,
		Root:       root,
		ChunkOpts:  chunkOpts,
		Walker:     walker,
		FileReader: fileReader,
	}
}

// workItem represents a file to be processed
type workItem struct {
	path    string
	content []byte
}

// documentID derives a stable ID from the document's relative path, so
// re-ingesting the same file replaces its chunks instead of duplicating it.
func documentID(relPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("lernsearch:"+relPath)).String()
}

// chunkID keys a chunk by document and position.
func chunkID(documentID string, index int) string {
	h := sha1.Sum([]byte(documentID + "#" + fmt.Sprintf("%d", index)))
	return hex.EncodeToString(h[:])
}

// processWorkItem handles the ingestion of a single file
func (ix *Ingestor) processWorkItem(ctx context.Context, item workItem) error {
	relPath := rel(ix.Root, item.path)

	text, pageBreaks, err := extractText(item.path, item.content)
	if err != nil {
		return fmt.Errorf("parse %s: %w", relPath, err)
	}

	opts := ix.ChunkOpts
	opts.PageBreaks = pageBreaks
	chunks := chunker.Split(text, opts)
	if len(chunks) == 0 {
		log.Warn().Str("path", relPath).Msg("document has no content, skipping")
		return nil
	}

	docID := documentID(relPath)
	for i := range chunks {
		chunks[i].ID = chunkID(docID, chunks[i].ChunkIndex)
		chunks[i].DocumentID = docID
	}

	embeddings := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := ix.Client.Embed(gctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("embed chunk %d of %s: %w", i, relPath, err)
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	doc := models.Document{
		ID:    docID,
		Title: docTitle(relPath),
		Path:  relPath,
	}
	if err := ix.Store.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("upsert document %s: %w", relPath, err)
	}
	if err := ix.Store.ReplaceChunks(ctx, docID, chunks, embeddings); err != nil {
		return fmt.Errorf("replace chunks of %s: %w", relPath, err)
	}

	log.Info().Str("path", relPath).
		Int("chunks", len(chunks)).
		Int("pages", len(pageBreaks)).
		Msg("document ingested")
	return nil
}

func (ix *Ingestor) Run(ctx context.Context) error {
	// Determine number of workers (default to number of CPU cores)
	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8 // Cap at 8 to avoid overwhelming the embedding API
	}

	log.Info().Int("workers", numWorkers).Msg("starting concurrent ingestion")

	workChan := make(chan workItem, numWorkers*2)
	errorChan := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Debug().Int("worker", workerID).Msg("worker started")

			for item := range workChan {
				if err := ix.processWorkItem(ctx, item); err != nil {
					select {
					case errorChan <- err:
					default:
						log.Error().Err(err).Str("path", item.path).Msg("worker processing error")
					}
				}
			}

			log.Debug().Int("worker", workerID).Msg("worker finished")
		}(i)
	}

	walkErr := ix.Walker.Walk(ix.Root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			// Dirent may be nil when a mock walker drives the callback.
			if de != nil && de.IsDir() {
				return nil
			}
			if shouldSkip(path) {
				return nil
			}

			b, err := ix.FileReader.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read file")
				return nil
			}

			select {
			case workChan <- workItem{path: path, content: b}:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		},
	})

	close(workChan)
	wg.Wait()

	select {
	case err := <-errorChan:
		if err != nil {
			return err
		}
	default:
	}

	return walkErr
}

// shouldSkip returns true if the file at path is not an ingestable document.
func shouldSkip(path string) bool {
	p := strings.ToLower(path)
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	switch filepath.Ext(p) {
	case ".pdf", ".txt", ".md":
		return false
	}
	return true
}

// docTitle is the file name without its extension.
func docTitle(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return r
}
