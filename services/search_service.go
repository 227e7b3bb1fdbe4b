package services

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github/itish2003/vaultchat/models"
)

// NoteSearcher finds the vault notes relevant to a query, best first.
type NoteSearcher interface {
	Search(ctx context.Context, query string) ([]models.NoteMatch, error)
}

// KeywordSearcher matches notes containing any query term, case-insensitively.
// File contents are cached until invalidated.
type KeywordSearcher struct {
	vaultPath string
	extract   func(string) (string, error)

	mu    sync.RWMutex
	cache map[string]string
}

func NewKeywordSearcher(vaultPath string) *KeywordSearcher {
	return &KeywordSearcher{
		vaultPath: vaultPath,
		extract:   ExtractTextFromFile,
		cache:     make(map[string]string),
	}
}

// Files lists the supported files of the vault in walk order.
func (k *KeywordSearcher) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(k.vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != k.vaultPath && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if isSupportedFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(files)).Str("vault", k.vaultPath).Msg("SERVICE: listed vault files")
	return files, nil
}

func (k *KeywordSearcher) Search(ctx context.Context, query string) ([]models.NoteMatch, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	files, err := k.Files(ctx)
	if err != nil {
		return nil, err
	}

	var matches []models.NoteMatch
	for _, path := range files {
		content := k.Read(path)
		lower := strings.ToLower(content)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				matches = append(matches, newMatch(path, content))
				break
			}
		}
	}
	log.Info().Int("count", len(matches)).Str("query", query).Msg("SERVICE: keyword search finished")
	return matches, nil
}

// Read returns a file's text, from cache when possible. Unreadable files read as empty.
func (k *KeywordSearcher) Read(path string) string {
	k.mu.RLock()
	content, ok := k.cache[path]
	k.mu.RUnlock()
	if ok {
		return content
	}

	content, err := k.extract(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("SERVICE: error reading note")
		return ""
	}
	k.mu.Lock()
	k.cache[path] = content
	k.mu.Unlock()
	return content
}

// Invalidate drops a cached file, typically after the watcher saw it change.
func (k *KeywordSearcher) Invalidate(path string) {
	k.mu.Lock()
	delete(k.cache, path)
	k.mu.Unlock()
}

func newMatch(path, content string) models.NoteMatch {
	return models.NoteMatch{Path: path, Name: filepath.Base(path), Content: content}
}
