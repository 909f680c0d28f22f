// Package knowledge implements the retrieval-augmented answer service for
// ADGM regulatory queries. A persisted embedding index is built once from
// the corpus directory (or loaded when it already has data); queries select
// passages by relevance plus diversity, and answers are synthesized bounded
// to the retrieved context.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/complium/adgmreview/internal/embedding"
	"github.com/complium/adgmreview/internal/llm"
)

// ErrEmptyIndex is returned when initialization finds no chunks to retrieve
// from. Initialization must fail fast rather than silently answering from
// an empty index.
var ErrEmptyIndex = errors.New("knowledge index contains no data")

// ErrNotReady is returned when Ask is called before Initialize succeeds.
var ErrNotReady = errors.New("retriever not initialized")

// InsufficientInfoAnswer is the sentinel the answer prompt instructs the
// model to return when the retrieved context cannot support an answer.
// Downstream consumers treat it as "no regulatory basis found", not as an
// error.
const InsufficientInfoAnswer = "I don't have enough information about this in the ADGM regulations provided."

// Retrieval parameters: top k passages selected from a larger candidate
// pool, traded off between relevance and diversity.
const (
	defaultTopK        = 5
	defaultFetchK      = 10
	mmrLambda          = 0.5
	defaultTemperature = 0.3
	answerMaxTokens    = 512
)

const answerSystemPrompt = `You are an ADGM compliance expert. Answer the question based only on the following ADGM regulation context.
If you cannot find the answer in the context, say "` + InsufficientInfoAnswer + `"`

// State tracks the retriever's build/load lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateBuilding
	StateLoading
	StateReady
)

// Passage is one retrieved regulatory excerpt with provenance.
type Passage struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Answer is the result of one retrieval query.
type Answer struct {
	Query    string    `json:"query"`
	Answer   string    `json:"answer"`
	Passages []Passage `json:"passages"`
}

// Insufficient reports whether the synthesized answer carries the
// no-regulatory-basis sentinel.
func (a Answer) Insufficient() bool {
	return strings.Contains(a.Answer, InsufficientInfoAnswer)
}

// Retriever owns the embedding index and the answer synthesis step. It is
// built or loaded once per process and read-only afterwards.
type Retriever struct {
	index     *Index
	engine    embedding.Engine
	provider  llm.Provider
	corpusDir string
	chunker   Chunker
	logger    *zap.Logger

	state       State
	topK        int
	fetchK      int
	temperature float64
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithAnswerTemperature overrides the sampling temperature used for answer
// synthesis.
func WithAnswerTemperature(t float64) Option {
	return func(r *Retriever) {
		if t > 0 {
			r.temperature = t
		}
	}
}

// NewRetriever wires a retriever over an open index. Initialize must be
// called before Ask.
func NewRetriever(index *Index, engine embedding.Engine, provider llm.Provider, corpusDir string, logger *zap.Logger, opts ...Option) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retriever{
		index:       index,
		engine:      engine,
		provider:    provider,
		corpusDir:   corpusDir,
		chunker:     NewChunker(),
		logger:      logger,
		topK:        defaultTopK,
		fetchK:      defaultFetchK,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Retriever) State() State {
	return r.state
}

// Initialize decides build-vs-load: when the collection already holds
// chunks the index is loaded as-is; otherwise it is built from the corpus
// directory. Fails fast with ErrEmptyIndex if no data exists either way.
func (r *Retriever) Initialize(ctx context.Context) error {
	count, err := r.index.Count(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		r.state = StateLoading
		r.logger.Info("loading existing knowledge index", zap.Int("chunks", count))
		r.state = StateReady
		return nil
	}

	r.state = StateBuilding
	if err := r.build(ctx); err != nil {
		r.state = StateUninitialized
		return err
	}
	r.state = StateReady
	return nil
}

// Rebuild discards the collection and rebuilds it from the corpus.
func (r *Retriever) Rebuild(ctx context.Context) error {
	if err := r.index.Clear(ctx); err != nil {
		return err
	}
	r.state = StateBuilding
	if err := r.build(ctx); err != nil {
		r.state = StateUninitialized
		return err
	}
	r.state = StateReady
	return nil
}

func (r *Retriever) build(ctx context.Context) error {
	docs, err := LoadCorpus(r.corpusDir, r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyIndex, err)
	}

	chunks := r.chunker.SplitAll(docs)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: corpus produced no chunks", ErrEmptyIndex)
	}
	r.logger.Info("building knowledge index",
		zap.Int("sources", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.String("engine", r.engine.Name()))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := r.engine.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding corpus chunks: %w", err)
	}

	if err := r.index.Add(ctx, chunks, embeddings); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	r.logger.Info("knowledge index persisted", zap.Int("chunks", len(chunks)))
	return nil
}

// Ask retrieves the most relevant passages for query and synthesizes an
// answer grounded only in them. A failed call is terminal for this query
// only; the caller decides how to proceed.
func (r *Retriever) Ask(ctx context.Context, query string) (Answer, error) {
	if r.state != StateReady {
		return Answer{}, ErrNotReady
	}

	queryVec, err := r.engine.Embed(ctx, query)
	if err != nil {
		return Answer{}, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.index.nearest(ctx, queryVec, r.fetchK)
	if err != nil {
		return Answer{}, err
	}
	selected := mmrSelect(candidates, r.topK, mmrLambda)

	passages := make([]Passage, len(selected))
	var contextText strings.Builder
	for i, sc := range selected {
		passages[i] = Passage{
			Source:  sc.chunk.Source,
			Content: sc.chunk.Content,
			Score:   sc.score,
		}
		fmt.Fprintf(&contextText, "[%s] %s\n\n", sc.chunk.Source, sc.chunk.Content)
	}

	resp, err := r.provider.Complete(ctx, &llm.Request{
		SystemPrompt: answerSystemPrompt,
		UserPrompt:   fmt.Sprintf("Context:\n%s\nQuestion: %s\n\nAnswer:", contextText.String(), query),
		Temperature:  r.temperature,
		MaxTokens:    answerMaxTokens,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("synthesizing answer: %w", err)
	}

	r.logger.Debug("retrieval query answered",
		zap.String("query", query),
		zap.Int("passages", len(passages)))

	return Answer{
		Query:    query,
		Answer:   strings.TrimSpace(resp.Content),
		Passages: passages,
	}, nil
}

// mmrSelect picks k candidates by maximal marginal relevance: each step
// takes the candidate with the best balance of query similarity against
// similarity to already-selected passages, avoiding redundant picks.
// Candidates arrive sorted by query similarity.
func mmrSelect(candidates []scoredChunk, k int, lambda float64) []scoredChunk {
	if len(candidates) <= k {
		return candidates
	}

	selected := make([]scoredChunk, 0, k)
	remaining := make([]scoredChunk, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := -1.0
		for i, cand := range remaining {
			redundancy := 0.0
			for _, sel := range selected {
				sim, err := embedding.CosineSimilarity(cand.embedding, sel.embedding)
				if err == nil && sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*cand.score - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
