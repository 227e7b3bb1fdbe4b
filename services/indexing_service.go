package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"github/itish2003/vaultchat/models"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
	semanticHits = 10
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IndexOpener builds the searcher of a freshly initialized session.
type IndexOpener interface {
	Open(ctx context.Context, vaultPath string, keyword *KeywordSearcher) (NoteSearcher, error)
}

// ChromaIndexer opens one chroma collection per vault.
type ChromaIndexer struct {
	client   chromago.Client
	embedder Embedder
}

func NewChromaIndexer(client chromago.Client, embedder Embedder) *ChromaIndexer {
	return &ChromaIndexer{client: client, embedder: embedder}
}

// Open gets or creates the vault collection, syncs it with the vault and keeps
// watching the vault until ctx ends.
func (c *ChromaIndexer) Open(ctx context.Context, vaultPath string, keyword *KeywordSearcher) (NoteSearcher, error) {
	store, err := openChromaStore(ctx, c.client, vaultPath)
	if err != nil {
		return nil, err
	}
	idx := NewFileIndexingService(store, c.embedder, keyword)
	go func() {
		idx.ScanAndIndexDirectory(ctx, vaultPath)
		idx.WatchDirectory(ctx, vaultPath)
	}()
	return idx, nil
}

// ChunkStore holds embedded chunks tagged with their source file and its hash.
type ChunkStore interface {
	Add(ctx context.Context, chunk Chunk) error
	// Nearest returns the source files of the n closest chunks, closest first.
	// A file appears once per matching chunk.
	Nearest(ctx context.Context, vector []float32, n int) ([]string, error)
	// Hashes maps every indexed source file to its recorded hash.
	Hashes(ctx context.Context) (map[string]string, error)
	DeleteSource(ctx context.Context, path string) error
}

// Chunk is one embedded piece of a file.
type Chunk struct {
	Source string
	Hash   string
	Num    int
	Text   string
	Vector []float32
}

// FileIndexingService keeps a chunk store in sync with a vault and answers
// semantic searches from it.
type FileIndexingService struct {
	store    ChunkStore
	embedder Embedder
	keyword  *KeywordSearcher
}

func NewFileIndexingService(store ChunkStore, embedder Embedder, keyword *KeywordSearcher) *FileIndexingService {
	return &FileIndexingService{
		store:    store,
		embedder: embedder,
		keyword:  keyword,
	}
}

// IndexState holds the current hash of a file in our index.
type IndexState struct {
	Hash string
}

// Search returns the distinct files owning the nearest chunks, falling back
// to keyword matching when the index has nothing.
func (s *FileIndexingService) Search(ctx context.Context, query string) ([]models.NoteMatch, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}
	sources, err := s.store.Nearest(ctx, vector, semanticHits)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	var matches []models.NoteMatch
	seen := map[string]bool{}
	for _, path := range sources {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		matches = append(matches, newMatch(path, s.keyword.Read(path)))
	}
	if len(matches) == 0 {
		log.Debug().Str("query", query).Msg("INDEXER: semantic search empty, falling back to keywords")
		return s.keyword.Search(ctx, query)
	}
	log.Info().Int("count", len(matches)).Str("query", query).Msg("INDEXER: semantic search finished")
	return matches, nil
}

// WatchDirectory re-indexes files as they change until ctx is cancelled.
func (s *FileIndexingService) WatchDirectory(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("WATCHER: failed to create file watcher")
		return
	}
	defer watcher.Close()

	err = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("dir", dirPath).Msg("WATCHER: failed to add path to watcher")
	}
	log.Info().Str("dir", dirPath).Msg("WATCHER: watching directory")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("WATCHER: error")
		case <-ctx.Done():
			log.Info().Msg("WATCHER: context cancelled, shutting down watcher")
			return
		}
	}
}

func (s *FileIndexingService) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = watcher.Add(event.Name)
			return
		}
	}
	if !isSupportedFile(event.Name) {
		return
	}
	log.Debug().Str("event", event.String()).Msg("WATCHER: event")
	s.keyword.Invalidate(event.Name)

	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		hash, err := calculateFileHash(event.Name)
		if err != nil {
			log.Warn().Err(err).Str("path", event.Name).Msg("WATCHER: could not hash file")
			return
		}
		if err := s.deleteDocumentsByFilepath(ctx, event.Name); err != nil {
			log.Error().Err(err).Str("path", event.Name).Msg("WATCHER: failed to delete old records")
		}
		if err := s.processAndEmbedFile(ctx, event.Name, hash); err != nil {
			log.Error().Err(err).Str("path", event.Name).Msg("WATCHER: failed to process file")
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if err := s.deleteDocumentsByFilepath(ctx, event.Name); err != nil {
			log.Error().Err(err).Str("path", event.Name).Msg("WATCHER: failed to delete records")
		}
	}
}

// ScanAndIndexDirectory syncs the collection with the files on disk.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string) {
	log.Info().Str("dir", dirPath).Msg("INDEXER: starting directory scan")

	indexedFiles, err := s.getCurrentIndexState(ctx)
	if err != nil {
		log.Error().Err(err).Msg("INDEXER: could not get current index state")
		return
	}

	files, err := s.keyword.Files(ctx)
	if err != nil {
		log.Error().Err(err).Str("dir", dirPath).Msg("INDEXER: error walking the vault")
		return
	}

	localFiles := make(map[string]bool, len(files))
	for _, path := range files {
		localFiles[path] = true
		hash, err := calculateFileHash(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("INDEXER: could not hash file")
			continue
		}
		if state, ok := indexedFiles[path]; ok {
			if state.Hash == hash {
				continue
			}
			if err := s.deleteDocumentsByFilepath(ctx, path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("INDEXER: failed to delete old version")
				continue
			}
		}
		if err := s.processAndEmbedFile(ctx, path, hash); err != nil {
			log.Error().Err(err).Str("path", path).Msg("INDEXER: failed to process file")
		}
	}

	for path := range indexedFiles {
		if !localFiles[path] {
			if err := s.deleteDocumentsByFilepath(ctx, path); err != nil {
				log.Error().Err(err).Str("path", path).Msg("INDEXER: failed to delete records")
			}
		}
	}
	log.Info().Int("files", len(files)).Msg("INDEXER: directory scan finished")
}

func (s *FileIndexingService) processAndEmbedFile(ctx context.Context, path, hash string) error {
	content, err := ExtractTextFromFile(path)
	if err != nil {
		return err
	}

	splitter := textsplitter.NewRecursiveCharacter(textsplitter.WithChunkSize(chunkSize), textsplitter.WithChunkOverlap(chunkOverlap))
	chunks, err := splitter.SplitText(content)
	if err != nil {
		return err
	}
	log.Debug().Str("path", path).Int("chunks", len(chunks)).Msg("INDEXER: split file")

	for i, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("could not embed chunk %d of %s: %w", i, path, err)
		}
		err = s.store.Add(ctx, Chunk{Source: path, Hash: hash, Num: i, Text: chunk, Vector: vector})
		if err != nil {
			return fmt.Errorf("failed to add chunk %d of %s to chromadb: %w", i, path, err)
		}
	}
	return nil
}

func (s *FileIndexingService) getCurrentIndexState(ctx context.Context) (map[string]IndexState, error) {
	hashes, err := s.store.Hashes(ctx)
	if err != nil {
		return nil, err
	}
	state := make(map[string]IndexState, len(hashes))
	for path, hash := range hashes {
		state[path] = IndexState{Hash: hash}
	}
	return state, nil
}

func (s *FileIndexingService) deleteDocumentsByFilepath(ctx context.Context, path string) error {
	return s.store.DeleteSource(ctx, path)
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
