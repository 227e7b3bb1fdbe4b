package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	metaSource = "source_file"
	metaHash   = "file_hash"
	metaChunk  = "chunk_num"
)

// chromaStore is the ChunkStore of one vault collection.
type chromaStore struct {
	collection chromago.Collection
}

func openChromaStore(ctx context.Context, client chromago.Client, vaultPath string) (*chromaStore, error) {
	name := collectionName(vaultPath)
	collection, err := client.GetOrCreateCollection(
		ctx,
		name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "vault notes"),
				chromago.NewStringAttribute("vault_path", vaultPath),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", name, err)
	}
	log.Info().Str("collection", name).Str("vault", vaultPath).Msg("INDEXER: collection ready")
	return &chromaStore{collection: collection}, nil
}

func collectionName(vaultPath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(vaultPath)))
	return "vault-" + hex.EncodeToString(sum[:8])
}

func (c *chromaStore) Add(ctx context.Context, chunk Chunk) error {
	metadata := chromago.NewDocumentMetadata(
		chromago.NewStringAttribute(metaSource, chunk.Source),
		chromago.NewStringAttribute(metaHash, chunk.Hash),
		chromago.NewIntAttribute(metaChunk, int64(chunk.Num)),
	)
	docID := chromago.DocumentID(fmt.Sprintf("%s-chunk%d", uuid.New().String(), chunk.Num))
	return c.collection.Add(ctx,
		chromago.WithIDs(docID),
		chromago.WithTexts(chunk.Text),
		chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(chunk.Vector)),
		chromago.WithMetadatas(metadata),
	)
}

func (c *chromaStore) Nearest(ctx context.Context, vector []float32, n int) ([]string, error) {
	results, err := c.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(n),
	)
	if err != nil {
		return nil, err
	}
	groups := results.GetMetadatasGroups()
	if len(groups) == 0 {
		return nil, nil
	}
	sources := make([]string, 0, len(groups[0]))
	for _, meta := range groups[0] {
		if path, ok := metadataString(meta, metaSource); ok {
			sources = append(sources, path)
		}
	}
	return sources, nil
}

func (c *chromaStore) Hashes(ctx context.Context) (map[string]string, error) {
	results, err := c.collection.Get(ctx)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string)
	for _, meta := range results.GetMetadatas() {
		path, ok := metadataString(meta, metaSource)
		if !ok {
			continue
		}
		hash, ok := metadataString(meta, metaHash)
		if !ok {
			continue
		}
		if _, exists := hashes[path]; !exists {
			hashes[path] = hash
		}
	}
	return hashes, nil
}

func (c *chromaStore) DeleteSource(ctx context.Context, path string) error {
	return c.collection.Delete(ctx, chromago.WithWhereDelete(chromago.EqString(metaSource, path)))
}

// metadataString reads a string attribute. DocumentMetadata exposes no map
// view, so it goes through its JSON form.
func metadataString(meta any, key string) (string, bool) {
	if meta == nil {
		return "", false
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", false
	}
	v, ok := m[key].(string)
	return v, ok
}
