package knowledge

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T, collection string) *Index {
	t.Helper()
	ix, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"), collection)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestIndex_AddCountClear(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, "policy")

	if n, err := ix.Count(ctx); err != nil || n != 0 {
		t.Fatalf("fresh index Count = %d, %v", n, err)
	}

	chunks := []Chunk{
		{Source: "a.txt", Ordinal: 0, Content: "jurisdiction rules"},
		{Source: "a.txt", Ordinal: 1, Content: "signature rules"},
	}
	embeddings := [][]float32{{1, 0}, {0, 1}}
	if err := ix.Add(ctx, chunks, embeddings); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if n, _ := ix.Count(ctx); n != 2 {
		t.Errorf("Count after Add = %d, want 2", n)
	}

	if err := ix.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := ix.Count(ctx); n != 0 {
		t.Errorf("Count after Clear = %d, want 0", n)
	}
}

func TestIndex_AddRejectsCountMismatch(t *testing.T) {
	ix := openTestIndex(t, "policy")
	err := ix.Add(context.Background(), []Chunk{{Content: "x"}}, nil)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestIndex_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	a, err := OpenIndex(path, "policy")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := OpenIndex(path, "other")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.Add(ctx, []Chunk{{Source: "a.txt", Content: "rule"}}, [][]float32{{1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n, _ := b.Count(ctx); n != 0 {
		t.Errorf("other collection sees %d chunks, want 0", n)
	}
}

func TestNearest_RanksBySimilarityAndCapsFetchK(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, "policy")

	chunks := []Chunk{
		{Source: "a.txt", Ordinal: 0, Content: "close match"},
		{Source: "a.txt", Ordinal: 1, Content: "orthogonal"},
		{Source: "a.txt", Ordinal: 2, Content: "exact match"},
	}
	embeddings := [][]float32{{0.9, 0.1}, {0, 1}, {1, 0}}
	if err := ix.Add(ctx, chunks, embeddings); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := ix.nearest(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].chunk.Content != "exact match" {
		t.Errorf("best candidate = %q, want %q", got[0].chunk.Content, "exact match")
	}
	if got[1].chunk.Content != "close match" {
		t.Errorf("second candidate = %q, want %q", got[1].chunk.Content, "close match")
	}
}

func TestNearest_SkipsMalformedEmbeddingRows(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, "policy")

	if err := ix.Add(ctx, []Chunk{{Source: "a.txt", Content: "good"}}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := ix.db.ExecContext(ctx,
		"INSERT INTO chunks (collection, source, ordinal, content, embedding) VALUES (?, ?, ?, ?, ?)",
		"policy", "a.txt", 1, "broken", "not json")
	if err != nil {
		t.Fatalf("inserting malformed row: %v", err)
	}

	got, err := ix.nearest(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(got) != 1 || got[0].chunk.Content != "good" {
		t.Errorf("got %d candidates, want only the well-formed row", len(got))
	}
}
