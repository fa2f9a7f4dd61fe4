package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	docerrors "github.com/aman-cerp/docretrieve/internal/errors"

	"github.com/aman-cerp/docretrieve/internal/embed"
	"github.com/aman-cerp/docretrieve/internal/normalize"
	"github.com/aman-cerp/docretrieve/internal/store"
)

// embedRetryConfig retries a transient embedder failure (e.g. the embedder
// is a remote model server) a couple of times before giving up; query
// latency budgets are tight, so this stays well short of the errors
// package's 3-retry/16s-cap default.
func embedRetryConfig() docerrors.RetryConfig {
	return docerrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: 25 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DefaultPoolMultiplier implements spec §4.5's
// P = max(pool, top_k*6).
const DefaultPoolMultiplier = 6

// Planner is the Query Planner of spec §4.5: the entry point for online
// retrieval. It normalizes requireds, determines the pool size, invokes
// the enabled adapters (concurrently, per spec §5), fuses, filters, ranks,
// and assembles the final Response.
type Planner struct {
	Dense      DenseAdapter
	Sparse     SparseAdapter
	VectorHydrator VectorStoreHydrator
	Embedder   embed.Embedder
	Fuser      *RRFFuser
	Filter     *ConstraintFilter
	MMR        *MMRSelector
	Assembler  *Assembler
	Stoplist   *normalize.Stoplist
}

// VectorStoreHydrator is the subset of store.VectorStore the planner needs
// to join fused cids back to bodies/metadata (spec §4.8 "hydrate body via
// VectorStore batch get(ids)").
type VectorStoreHydrator interface {
	Get(ctx context.Context, collection string, ids []string) (map[string]*store.Chunk, error)
}

// NewPlanner wires the pipeline's stages together.
func NewPlanner(dense DenseAdapter, sparse SparseAdapter, hydrator VectorStoreHydrator, embedder embed.Embedder) *Planner {
	return &Planner{
		Dense:          dense,
		Sparse:         sparse,
		VectorHydrator: hydrator,
		Embedder:       embedder,
		Fuser:          NewRRFFuser(),
		Filter:         NewConstraintFilter(),
		MMR:            NewMMRSelector(),
		Assembler:      NewAssembler(),
		Stoplist:       normalize.NewDefaultStoplist(),
	}
}

// Retrieve implements the full online pipeline of spec §4.5-§4.10.
func (p *Planner) Retrieve(ctx context.Context, q Query) (*Response, error) {
	topK := q.TopK
	if topK < 0 {
		topK = 0
	}
	signal := q.Signal
	if signal == "" {
		signal = SignalHybrid
	}

	pool := q.Pool
	poolFloor := topK * DefaultPoolMultiplier
	if pool < poolFloor {
		pool = poolFloor
	}
	if pool <= 0 {
		pool = DefaultPoolMultiplier
	}

	mustTokens := p.normalizeRequiredTokens(q.Must)
	mustPhrases := make([]PhraseConstraint, 0, len(q.MustPhrases))
	for _, phrase := range q.MustPhrases {
		tokens := normalize.Tokenize(phrase)
		if p.Stoplist != nil {
			tokens = p.Stoplist.Filter(tokens)
		}
		mustPhrases = append(mustPhrases, PhraseConstraint{Tokens: tokens, Proximity: q.Proximity})
	}

	baseTokens := p.baseQueryTokens(q.Text)

	qv, err := p.embedQuery(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	var denseRanks, sparseRanks RankMap
	var denseOK, sparseOK bool

	wantDense := signal == SignalHybrid || signal == SignalDense
	wantSparse := signal == SignalHybrid || signal == SignalSparse

	g, gctx := errgroup.WithContext(ctx)
	if wantDense && p.Dense != nil {
		g.Go(func() error {
			denseRanks, denseOK = p.Dense.Search(gctx, q.App, qv, pool)
			return nil
		})
	}
	if wantSparse && p.Sparse != nil {
		g.Go(func() error {
			sparseRanks, sparseOK = p.Sparse.Search(gctx, q.App, baseTokens, mustTokens, mustPhrases, pool, q.BM25K1, q.BM25B)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !denseOK && !sparseOK {
		return p.emptyResponse(q, topK, signal, pool), nil
	}

	var ranks []RankMap
	if denseOK {
		ranks = append(ranks, denseRanks)
	}
	if sparseOK {
		ranks = append(ranks, sparseRanks)
	}
	fused := p.Fuser.Fuse(ranks...)

	collection := store.CollectionName(q.App)
	fusedIDs := make([]string, len(fused))
	for i, fc := range fused {
		fusedIDs[i] = fc.CID
	}
	hydrated, err := p.VectorHydrator.Get(ctx, collection, fusedIDs)
	if err != nil {
		return nil, fmt.Errorf("search: hydrate candidates: %w", err)
	}

	candidates := make([]*Candidate, 0, len(fused))
	for _, fc := range fused {
		ch, ok := hydrated[fc.CID]
		if !ok {
			continue // hydration miss: silently dropped, per spec §7
		}
		candidates = append(candidates, &Candidate{
			CID:        fc.CID,
			Body:       ch.Body,
			FusedScore: fc.Score,
			Metadata:   viewFromMetadata(ch.Metadata),
		})
	}
	candidateCount := len(candidates)

	filtered := p.Filter.Apply(candidates, mustTokens, mustPhrases, q.MinHits)

	if err := p.reembed(ctx, filtered); err != nil {
		return nil, fmt.Errorf("search: re-embed shortlist: %w", err)
	}

	selected := p.MMR.Select(filtered, qv, topK)

	debug := ResponseDebug{
		PoolSizes: PoolSizes{
			Dense:      len(denseRanks),
			Sparse:     len(sparseRanks),
			Fused:      len(fused),
			Candidates: candidateCount,
			PostFilter: len(filtered),
		},
		Signal:          signal,
		DenseAvailable:  denseOK,
		SparseAvailable: sparseOK,
	}
	return p.Assembler.Build(q, topK, selected, debug), nil
}

func (p *Planner) emptyResponse(q Query, topK int, signal Signal, pool int) *Response {
	return &Response{
		Query:   q.Text,
		App:     q.App,
		TopK:    topK,
		Results: []Result{},
		Debug: ResponseDebug{
			PoolSizes:       PoolSizes{},
			Signal:          signal,
			DenseAvailable:  false,
			SparseAvailable: false,
		},
	}
}

func (p *Planner) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if p.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return docerrors.RetryWithResult(ctx, embedRetryConfig(), func() ([]float32, error) {
		return p.Embedder.Embed(ctx, text)
	})
}

// reembed implements spec §4.9's "re-embed the body of each surviving
// candidate (do not reuse stored vectors)".
func (p *Planner) reembed(ctx context.Context, candidates []*Candidate) error {
	if len(candidates) == 0 || p.Embedder == nil {
		return nil
	}
	bodies := make([]string, len(candidates))
	for i, c := range candidates {
		bodies[i] = c.Body
	}
	vecs, err := docerrors.RetryWithResult(ctx, embedRetryConfig(), func() ([][]float32, error) {
		return p.Embedder.EmbedBatch(ctx, bodies)
	})
	if err != nil {
		return err
	}
	for i, c := range candidates {
		c.Vector = vecs[i]
	}
	return nil
}

// normalizeRequiredTokens tokenizes and removes stop/domain-stop words from
// must, per spec §4.5.
func (p *Planner) normalizeRequiredTokens(must []string) []string {
	var tokens []string
	for _, m := range must {
		tokens = append(tokens, normalize.Tokenize(m)...)
	}
	if p.Stoplist != nil {
		tokens = p.Stoplist.Filter(tokens)
	}
	return tokens
}

// baseQueryTokens extracts up to 8 post-stoplist query tokens, per spec
// §4.6's Sparse Adapter.
func (p *Planner) baseQueryTokens(text string) []string {
	tokens := normalize.Tokenize(text)
	if p.Stoplist != nil {
		tokens = p.Stoplist.Filter(tokens)
	}
	if len(tokens) > 8 {
		tokens = tokens[:8]
	}
	return tokens
}

func viewFromMetadata(m store.ChunkMetadata) ChunkMetadataView {
	return ChunkMetadataView{
		App:          m.App,
		SourcePath:   m.SourcePath,
		SectionTitle: m.SectionTitle,
		SeqIdx:       m.SeqIdx,
		Extra:        m.Extra,
	}
}
