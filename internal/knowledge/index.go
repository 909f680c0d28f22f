package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/complium/adgmreview/internal/embedding"
)

// Chunk is one indexed passage of regulatory text.
type Chunk struct {
	ID      int64
	Source  string
	Ordinal int
	Content string
}

// scoredChunk pairs a chunk with its query similarity and embedding,
// used by the MMR selection step.
type scoredChunk struct {
	chunk     Chunk
	score     float64
	embedding []float32
}

// Index is the durable embedding index, persisted in sqlite. Chunks and
// their embeddings live in a single table keyed by collection name;
// similarity is computed in-process over the collection's vectors.
type Index struct {
	db         *sql.DB
	collection string
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	source TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
`

// OpenIndex opens (creating if necessary) the index database at path,
// scoped to the named collection.
func OpenIndex(path, collection string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing index schema: %w", err)
	}
	return &Index{db: db, collection: collection}, nil
}

// Close releases the underlying database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Count returns the number of chunks stored for this collection. A zero
// count means the index must be built before retrieval.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", ix.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting index chunks: %w", err)
	}
	return n, nil
}

// Add stores chunks with their embeddings in one transaction. len(chunks)
// must equal len(embeddings).
func (ix *Index) Add(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d != %d", len(chunks), len(embeddings))
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (collection, source, ordinal, content, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		embJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return fmt.Errorf("serializing embedding %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, ix.collection, chunk.Source, chunk.Ordinal, chunk.Content, string(embJSON)); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Clear removes every chunk in this collection. Used by explicit rebuilds.
func (ix *Index) Clear(ctx context.Context) error {
	_, err := ix.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection = ?", ix.collection)
	if err != nil {
		return fmt.Errorf("clearing collection %q: %w", ix.collection, err)
	}
	return nil
}

// nearest returns the fetchK chunks most similar to the query embedding,
// highest similarity first. Rows with malformed or mismatched embeddings
// are skipped.
func (ix *Index) nearest(ctx context.Context, queryVec []float32, fetchK int) ([]scoredChunk, error) {
	rows, err := ix.db.QueryContext(ctx,
		"SELECT id, source, ordinal, content, embedding FROM chunks WHERE collection = ?", ix.collection)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var candidates []scoredChunk
	for rows.Next() {
		var chunk Chunk
		var embJSON string
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Ordinal, &chunk.Content, &embJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		candidates = append(candidates, scoredChunk{chunk: chunk, score: sim, embedding: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > fetchK {
		candidates = candidates[:fetchK]
	}
	return candidates, nil
}
