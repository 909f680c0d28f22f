package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/complium/adgmreview/internal/embedding"
	"github.com/complium/adgmreview/internal/llm"
)

type fakeEngine struct {
	vec []float32
}

func (f fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func (f fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f fakeEngine) Name() string { return "fake" }

type fakeProvider struct {
	content    string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.calls++
	f.lastPrompt = req.UserPrompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content}, nil
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestInitialize_BuildsFromCorpus(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, "policy")
	corpus := writeCorpus(t, map[string]string{
		"companies.txt": "All disputes shall be resolved by the ADGM Courts.",
	})

	r := NewRetriever(ix, fakeEngine{vec: []float32{1, 0}}, &fakeProvider{}, corpus, nil)
	if err := r.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if r.State() != StateReady {
		t.Errorf("state = %d, want StateReady", r.State())
	}
	if n, _ := ix.Count(ctx); n == 0 {
		t.Error("index still empty after build")
	}
}

func TestInitialize_LoadsExistingIndex(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, "policy")
	if err := ix.Add(ctx, []Chunk{{Source: "seed.txt", Content: "seeded"}}, [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}

	// Corpus directory is absent; load must not touch it.
	r := NewRetriever(ix, fakeEngine{vec: []float32{1, 0}}, &fakeProvider{}, filepath.Join(t.TempDir(), "nope"), nil)
	if err := r.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if r.State() != StateReady {
		t.Errorf("state = %d, want StateReady", r.State())
	}
}

func TestInitialize_EmptyCorpusFailsFast(t *testing.T) {
	ix := openTestIndex(t, "policy")
	r := NewRetriever(ix, fakeEngine{vec: []float32{1, 0}}, &fakeProvider{}, t.TempDir(), nil)

	err := r.Initialize(context.Background())
	if !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("err = %v, want ErrEmptyIndex", err)
	}
	if r.State() != StateUninitialized {
		t.Errorf("state = %d, want StateUninitialized", r.State())
	}
}

func TestAsk_BeforeInitializeFails(t *testing.T) {
	ix := openTestIndex(t, "policy")
	r := NewRetriever(ix, fakeEngine{vec: []float32{1, 0}}, &fakeProvider{}, t.TempDir(), nil)

	_, err := r.Ask(context.Background(), "anything")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
}

func TestAsk_ReturnsAnswerWithPassages(t *testing.T) {
	ctx := context.Background()
	ix := openTestIndex(t, "policy")
	corpus := writeCorpus(t, map[string]string{
		"companies.txt": "All disputes shall be resolved by the ADGM Courts.",
	})
	provider := &fakeProvider{content: "Jurisdiction must be ADGM Courts."}

	r := NewRetriever(ix, fakeEngine{vec: []float32{1, 0}}, provider, corpus, nil)
	if err := r.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	ans, err := r.Ask(ctx, "What is the governing jurisdiction?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Answer != "Jurisdiction must be ADGM Courts." {
		t.Errorf("answer = %q", ans.Answer)
	}
	if len(ans.Passages) == 0 {
		t.Fatal("no passages returned")
	}
	if ans.Passages[0].Source != "companies.txt" {
		t.Errorf("passage source = %q", ans.Passages[0].Source)
	}
	if !strings.Contains(provider.lastPrompt, "ADGM Courts") {
		t.Error("retrieved context missing from synthesis prompt")
	}
	if ans.Insufficient() {
		t.Error("grounded answer flagged insufficient")
	}
}

func TestAnswer_InsufficientSentinel(t *testing.T) {
	a := Answer{Answer: InsufficientInfoAnswer}
	if !a.Insufficient() {
		t.Error("sentinel answer not flagged insufficient")
	}
	b := Answer{Answer: "Sorry. " + InsufficientInfoAnswer}
	if !b.Insufficient() {
		t.Error("embedded sentinel not flagged insufficient")
	}
}

func TestMMRSelect_PrefersDiversity(t *testing.T) {
	candidates := []scoredChunk{
		{chunk: Chunk{Content: "first"}, score: 0.90, embedding: []float32{1, 0}},
		{chunk: Chunk{Content: "duplicate"}, score: 0.89, embedding: []float32{1, 0}},
		{chunk: Chunk{Content: "diverse"}, score: 0.50, embedding: []float32{0, 1}},
	}

	selected := mmrSelect(candidates, 2, 0.5)
	if len(selected) != 2 {
		t.Fatalf("selected %d, want 2", len(selected))
	}
	if selected[0].chunk.Content != "first" {
		t.Errorf("first pick = %q", selected[0].chunk.Content)
	}
	if selected[1].chunk.Content != "diverse" {
		t.Errorf("second pick = %q, want the non-redundant candidate", selected[1].chunk.Content)
	}
}

func TestMMRSelect_SmallPoolPassesThrough(t *testing.T) {
	candidates := []scoredChunk{
		{chunk: Chunk{Content: "only"}, score: 0.9, embedding: []float32{1}},
	}
	if got := mmrSelect(candidates, 5, 0.5); len(got) != 1 {
		t.Errorf("got %d, want 1", len(got))
	}
}

var _ embedding.Engine = fakeEngine{}
var _ llm.Provider = (*fakeProvider)(nil)
