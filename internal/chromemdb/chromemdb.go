package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"chat-pdf/internal/models"
)

// VectorDBManager publishes and reads the chromem-go index stored at a fixed
// path. The directory holds the persistent database under models.VectorsDirName
// and a manifest describing the build.
type VectorDBManager struct {
	indexPath      string
	collectionName string
	compress       bool
	encryptionKey  string
	embed          chromem.EmbeddingFunc
}

// NewVectorDBManager initializes a manager for the index at indexPath. embed is
// handed to chromem-go for collections; documents and queries arrive with
// precomputed vectors.
func NewVectorDBManager(indexPath, collectionName string, compress bool, encryptionKey string, embed chromem.EmbeddingFunc) *VectorDBManager {
	return &VectorDBManager{
		indexPath:      indexPath,
		collectionName: collectionName,
		compress:       compress,
		encryptionKey:  encryptionKey,
		embed:          embed,
	}
}

func (m *VectorDBManager) vectorsPath() string {
	return filepath.Join(m.indexPath, models.VectorsDirName)
}

// Replace builds a complete index in a sibling temporary directory and swaps
// it in for the published one. On any failure the published index is left as
// it was.
func (m *VectorDBManager) Replace(ctx context.Context, manifest models.IndexManifest, docs []models.ChunkEmbedding) (err error) {
	parent, base := filepath.Split(filepath.Clean(m.indexPath))
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create index parent dir: %v", err)
	}

	buildDir := filepath.Join(parent, "."+base+".building-"+manifest.BuildID)
	if err := os.RemoveAll(buildDir); err != nil {
		return fmt.Errorf("failed to clear build dir: %v", err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(buildDir); rmErr != nil {
				log.Warn().Err(rmErr).Str("dir", buildDir).Msg("Failed to remove build dir")
			}
		}
	}()

	if err := m.build(ctx, buildDir, manifest, docs); err != nil {
		return err
	}
	return m.swap(buildDir, filepath.Join(parent, "."+base+".previous-"+manifest.BuildID))
}

func (m *VectorDBManager) build(ctx context.Context, dir string, manifest models.IndexManifest, docs []models.ChunkEmbedding) error {
	db, err := chromem.NewPersistentDB(filepath.Join(dir, models.VectorsDirName), m.compress)
	if err != nil {
		return fmt.Errorf("failed to create database: %v", err)
	}

	c, err := db.CreateCollection(m.collectionName, map[string]string{
		"build_id":        manifest.BuildID,
		"embedding_model": manifest.EmbeddingModel,
	}, m.embed)
	if err != nil {
		return fmt.Errorf("failed to create collection: %v", err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        "chunk-" + strconv.Itoa(doc.ChunkID),
			Content:   doc.Content,
			Metadata:  map[string]string{"chunk_id": strconv.Itoa(doc.ChunkID)},
			Embedding: doc.Embedding,
		}
	}
	if len(chromemDocs) > 0 {
		if err := c.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("failed to add documents: %v", err)
		}
	}

	manifest.Collection = m.collectionName
	manifest.Chunks = len(docs)
	return writeManifest(filepath.Join(dir, models.ManifestFileName), manifest)
}

// swap moves the published index aside, moves the build into place and drops
// the old copy. A failed second rename restores the old index.
func (m *VectorDBManager) swap(buildDir, previousDir string) error {
	hadPrevious := true
	if err := os.Rename(m.indexPath, previousDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to move previous index aside: %v", err)
		}
		hadPrevious = false
	}

	if err := os.Rename(buildDir, m.indexPath); err != nil {
		if hadPrevious {
			if rbErr := os.Rename(previousDir, m.indexPath); rbErr != nil {
				log.Error().Err(rbErr).Str("previous", previousDir).Msg("Failed to restore previous index")
			}
		}
		return fmt.Errorf("failed to publish index: %v", err)
	}

	if hadPrevious {
		if err := os.RemoveAll(previousDir); err != nil {
			log.Warn().Err(err).Str("dir", previousDir).Msg("Failed to remove previous index")
		}
	}
	return nil
}

// Manifest reads the manifest of the published index.
func (m *VectorDBManager) Manifest(ctx context.Context) (*models.IndexManifest, error) {
	data, err := os.ReadFile(filepath.Join(m.indexPath, models.ManifestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrIndexMissing
		}
		return nil, fmt.Errorf("failed to read manifest: %v", err)
	}
	var manifest models.IndexManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: corrupt manifest: %v", models.ErrIndexMissing, err)
	}
	return &manifest, nil
}

func (m *VectorDBManager) openCollection() (*chromem.DB, *chromem.Collection, error) {
	// NewPersistentDB creates missing directories, so check first
	if _, err := os.Stat(m.vectorsPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, models.ErrIndexMissing
		}
		return nil, nil, fmt.Errorf("failed to stat index: %v", err)
	}
	db, err := chromem.NewPersistentDB(m.vectorsPath(), m.compress)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to load index: %v", models.ErrIndexMissing, err)
	}
	c := db.GetCollection(m.collectionName, m.embed)
	if c == nil {
		return nil, nil, fmt.Errorf("%w: collection %q not found", models.ErrIndexMissing, m.collectionName)
	}
	return db, c, nil
}

// Search returns up to k chunks most similar to embedding.
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	_, c, err := m.openCollection()
	if err != nil {
		return nil, err
	}

	// chromem-go rejects nResults above the collection size
	k = min(k, c.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		chunkID, _ := strconv.Atoi(r.Metadata["chunk_id"])
		out[i] = models.SearchResult{Content: r.Content, ChunkID: chunkID, Similarity: r.Similarity}
	}
	return out, nil
}

// Export writes the published collection to a single file, encrypted when an
// encryption key is configured.
func (m *VectorDBManager) Export(ctx context.Context, filePath string) error {
	db, _, err := m.openCollection()
	if err != nil {
		return err
	}

	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("compress", m.compress).
		Bool("encrypted", m.encryptionKey != "").Msg("Exporting index")

	if err := db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

func writeManifest(path string, manifest models.IndexManifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %v", err)
	}
	return nil
}
