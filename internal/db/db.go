package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"chat-pdf/internal/config"
	"chat-pdf/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:pdf_chunks,alias:d"`
	ID            int64           `bun:"id,pk,autoincrement"`
	ChunkID       int             `bun:"chunk_id,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
}

// Manifest is the single-row description of the published index.
type Manifest struct {
	bun.BaseModel     `bun:"table:pdf_chunks_manifest,alias:m"`
	ID                int64     `bun:"id,pk"`
	BuildID           string    `bun:"build_id,notnull"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
	EmbeddingProvider string    `bun:"embedding_provider,notnull"`
	EmbeddingModel    string    `bun:"embedding_model,notnull"`
	Chunks            int       `bun:"chunks,notnull"`
	Sources           []string  `bun:"sources,array"`
}

// Store keeps the index in PostgreSQL with the pgvector extension. Chunks live
// in table and the manifest row in table_manifest.
type Store struct {
	db    *bun.DB
	table string
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver.
func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	switch dbConfig.Driver {
	case config.DriverPQ:
		return sql.Open("postgres", dbConfig.DSN)
	case config.DriverPgdriver, "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dbConfig.DSN))), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", dbConfig.Driver)
	}
}

func NewStore(db *bun.DB, table string) *Store {
	return &Store{db: db, table: table}
}

func (s *Store) manifestTable() string {
	return s.table + "_manifest"
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InitDB makes sure the vector extension exists.
func (s *Store) InitDB(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	return err
}

// Replace drops and refills the chunk table in one transaction, so readers
// see either the previous index or the new one.
func (s *Store) Replace(ctx context.Context, manifest models.IndexManifest, docs []models.ChunkEmbedding) error {
	if err := s.InitDB(ctx); err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	rows := make([]Document, len(docs))
	for i, d := range docs {
		rows[i] = Document{ChunkID: d.ChunkID, Content: d.Content, Embedding: pgvector.NewVector(d.Embedding)}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tables := map[string]any{s.table: (*Document)(nil), s.manifestTable(): (*Manifest)(nil)}
		for table, model := range tables {
			if _, err := tx.NewDropTable().Table(table).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table %s: %v", table, err)
			}
			if _, err := tx.NewCreateTable().Model(model).ModelTableExpr("?", bun.Ident(table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table %s: %v", table, err)
			}
		}
		if len(rows) > 0 {
			if _, err := tx.NewInsert().Model(&rows).ModelTableExpr("?", bun.Ident(s.table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert chunks: %v", err)
			}
		}
		m := &Manifest{
			ID:                1,
			BuildID:           manifest.BuildID,
			CreatedAt:         manifest.CreatedAt,
			EmbeddingProvider: manifest.EmbeddingProvider,
			EmbeddingModel:    manifest.EmbeddingModel,
			Chunks:            len(docs),
			Sources:           manifest.Sources,
		}
		if _, err := tx.NewInsert().Model(m).ModelTableExpr("?", bun.Ident(s.manifestTable())).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert manifest: %v", err)
		}
		return nil
	})
}

func (s *Store) Manifest(ctx context.Context) (*models.IndexManifest, error) {
	var m Manifest
	err := s.db.NewSelect().Model(&m).ModelTableExpr("? AS m", bun.Ident(s.manifestTable())).
		Where("m.id = 1").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
			return nil, models.ErrIndexMissing
		}
		return nil, fmt.Errorf("failed to read manifest: %v", err)
	}
	return &models.IndexManifest{
		BuildID:           m.BuildID,
		CreatedAt:         m.CreatedAt,
		EmbeddingProvider: m.EmbeddingProvider,
		EmbeddingModel:    m.EmbeddingModel,
		Collection:        s.table,
		Chunks:            m.Chunks,
		Sources:           m.Sources,
	}, nil
}

// Search orders chunks by cosine distance to embedding.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	var rows []struct {
		ChunkID  int     `bun:"chunk_id"`
		Content  string  `bun:"content"`
		Distance float64 `bun:"distance"`
	}
	query := pgvector.NewVector(embedding)
	err := s.db.NewSelect().
		Model((*Document)(nil)).
		ModelTableExpr("? AS d", bun.Ident(s.table)).
		Column("chunk_id", "content").
		ColumnExpr("embedding <=> ? AS distance", query).
		OrderExpr("embedding <=> ?", query).
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, models.ErrIndexMissing
		}
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]models.SearchResult, len(rows))
	for i, r := range rows {
		out[i] = models.SearchResult{Content: r.Content, ChunkID: r.ChunkID, Similarity: float32(1 - r.Distance)}
	}
	log.Debug().Int("results", len(out)).Msg("pgvector search")
	return out, nil
}

const undefinedTable = "42P01"

// isUndefinedTable matches SQLSTATE 42P01 from either driver.
func isUndefinedTable(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == undefinedTable
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == undefinedTable
	}
	return false
}
