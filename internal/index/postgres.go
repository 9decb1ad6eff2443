package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// VectorDimension is the embedding width stored in the documents table.
// Must match the dimensionality requested from the embedder and the vector
// column in the schema.
const VectorDimension = 768

// PostgresBackend stores documents in PostgreSQL with pgvector for
// similarity search. Safe for concurrent use.
type PostgresBackend struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

// NewPool creates a pgx connection pool with pgvector types registered on
// every connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// NewPostgresBackend creates a backend over an existing pool. logger may be
// nil.
func NewPostgresBackend(pool *pgxpool.Pool, embedder Embedder, logger *slog.Logger) *PostgresBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBackend{pool: pool, embedder: embedder, logger: logger}
}

// Upsert implements Backend.
func (b *PostgresBackend) Upsert(ctx context.Context, collection string, docs []Document) error {
	embeddings, err := b.embedAll(ctx, docs)
	if err != nil {
		return err
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres backend: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertDocs(ctx, tx, collection, docs, embeddings); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres backend: committing upsert: %w", err)
	}
	return nil
}

// Replace implements Backend. Delete and insert share one transaction, so
// concurrent readers see either the old document set or the new one.
func (b *PostgresBackend) Replace(ctx context.Context, collection string, filter Filter, docs []Document) error {
	embeddings, err := b.embedAll(ctx, docs)
	if err != nil {
		return err
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres backend: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND metadata @> $2`,
		collection, filterJSON,
	); err != nil {
		return fmt.Errorf("postgres backend: deleting replaced documents: %w", err)
	}

	if err := insertDocs(ctx, tx, collection, docs, embeddings); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres backend: committing replace: %w", err)
	}
	return nil
}

// Query implements Backend. Ordering uses cosine distance; the returned
// score is cosine similarity.
func (b *PostgresBackend) Query(ctx context.Context, collection, text string, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	vecs, err := b.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("postgres backend: embedding query: %w", err)
	}
	query := pgvector.NewVector(vecs[0])

	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return nil, err
	}
	rows, err := b.pool.Query(ctx, `
		SELECT id, content, metadata, 1 - (embedding <=> $2) AS similarity
		FROM documents
		WHERE collection = $1 AND metadata @> $3
		ORDER BY embedding <=> $2, id
		LIMIT $4`,
		collection, query, filterJSON, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: querying documents: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m            Match
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&m.ID, &m.Text, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("postgres backend: scanning match: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("postgres backend: decoding metadata for %q: %w", m.ID, err)
		}
		m.Score = float32(similarity)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres backend: reading matches: %w", err)
	}
	return matches, nil
}

// Get implements Backend.
func (b *PostgresBackend) Get(ctx context.Context, collection, id string) (*Document, error) {
	var (
		doc          Document
		metadataJSON []byte
	)
	err := b.pool.QueryRow(ctx,
		`SELECT id, content, metadata FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&doc.ID, &doc.Text, &metadataJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres backend: fetching %q: %w", id, err)
	}
	if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("postgres backend: decoding metadata for %q: %w", id, err)
	}
	return &doc, nil
}

// List implements Backend.
func (b *PostgresBackend) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT id, content, metadata FROM documents WHERE collection = $1 ORDER BY created_at, id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc          Document
			metadataJSON []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("postgres backend: scanning document: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("postgres backend: decoding metadata for %q: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres backend: reading documents: %w", err)
	}
	return docs, nil
}

// Count implements Backend.
func (b *PostgresBackend) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := b.pool.QueryRow(ctx,
		`SELECT count(*) FROM documents WHERE collection = $1`,
		collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres backend: counting documents: %w", err)
	}
	return n, nil
}

func (b *PostgresBackend) embedAll(ctx context.Context, docs []Document) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: embedding documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return nil, fmt.Errorf("postgres backend: embedder returned %d vectors for %d documents", len(embeddings), len(docs))
	}
	return embeddings, nil
}

func insertDocs(ctx context.Context, tx pgx.Tx, collection string, docs []Document, embeddings [][]float32) error {
	for i, doc := range docs {
		if len(embeddings[i]) != VectorDimension {
			return fmt.Errorf("postgres backend: embedding for %q has dimension %d, want %d",
				doc.ID, len(embeddings[i]), VectorDimension)
		}
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("postgres backend: encoding metadata for %q: %w", doc.ID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO documents (collection, id, content, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (collection, id) DO UPDATE
			SET content = EXCLUDED.content,
			    embedding = EXCLUDED.embedding,
			    metadata = EXCLUDED.metadata`,
			collection, doc.ID, doc.Text, pgvector.NewVector(embeddings[i]), metadataJSON,
		); err != nil {
			return fmt.Errorf("postgres backend: inserting %q: %w", doc.ID, err)
		}
	}
	return nil
}

func marshalFilter(f Filter) ([]byte, error) {
	md := f.Metadata()
	if md == nil {
		md = map[string]string{}
	}
	out, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: encoding filter: %w", err)
	}
	return out, nil
}
