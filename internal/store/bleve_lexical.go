package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/aman-cerp/docretrieve/internal/normalize"
)

const (
	docTokenizerName = "doc_tokenizer"
	docStopFilterName = "doc_stop"
	docAnalyzerName   = "doc_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(docTokenizerName, docTokenizerConstructor)
	_ = registry.RegisterTokenFilter(docStopFilterName, docStopFilterConstructor)
}

// BleveLexicalIndex implements LexicalIndex (spec §6) over bleve/v2: BM25
// scoring over the `text` field (`title` is indexed but not queried), with a
// boolean-AND composition of
// base/must/phrase clauses built by the Sparse Adapter (spec §4.6).
type BleveLexicalIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
	closed bool
}

type lexicalBleveDoc struct {
	App    string `json:"app"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// NewBleveLexicalIndex creates a lexical index at path. An empty path
// creates an in-memory index, useful for tests.
func NewBleveLexicalIndex(path string) (*BleveLexicalIndex, error) {
	m, err := buildLexicalMapping()
	if err != nil {
		return nil, fmt.Errorf("build lexical mapping: %w", err)
	}
	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create lexical index dir: %w", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create/open lexical index: %w", err)
	}
	return &BleveLexicalIndex{index: idx, path: path}, nil
}

func buildLexicalMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(docAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": docTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			docStopFilterName,
		},
	}); err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = docAnalyzerName

	docMapping := bleve.NewDocumentMapping()
	appField := bleve.NewTextFieldMapping()
	appField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("app", appField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = docAnalyzerName
	docMapping.AddFieldMappingsAt("text", textField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = docAnalyzerName
	docMapping.AddFieldMappingsAt("title", titleField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Index = false
	docMapping.AddFieldMappingsAt("source", sourceField)

	im.DefaultMapping = docMapping
	return im, nil
}

// Index implements LexicalIndex.
func (b *BleveLexicalIndex) Index(ctx context.Context, docs []LexicalDocument) error {
	if len(docs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("lexical index is closed")
	}
	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.DocID, lexicalBleveDoc{App: d.App, Title: d.Title, Text: d.Text, Source: d.Source}); err != nil {
			return fmt.Errorf("index document %s: %w", d.DocID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search implements LexicalIndex: composes a boolean-AND query over `text`
// of one clause OR'ing up to 8 base tokens (a document must match at least
// one of them), every must token (hard
// AND), and every required phrase (exact phrase for proximity==0, or a
// widened disjunction of its terms for proximity>0 — exact span
// enforcement is the Constraint Filter's job per spec §4.8). Falls back
// to match-all when no clauses remain, per spec §4.6.
func (b *BleveLexicalIndex) Search(ctx context.Context, app string, q SearchQuery, n int) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, nil
	}

	var must []bleve.Query
	appQ := bleve.NewTermQuery(strings.ToLower(app))
	appQ.SetField("app")
	must = append(must, appQ)

	for _, t := range q.MustTokens {
		mq := bleve.NewMatchQuery(t)
		mq.SetField("text")
		must = append(must, mq)
	}
	for _, p := range q.MustPhrases {
		if len(p.Tokens) == 0 {
			continue
		}
		if p.Proximity <= 0 {
			pq := bleve.NewMatchPhraseQuery(strings.Join(p.Tokens, " "))
			pq.SetField("text")
			must = append(must, pq)
		} else {
			disj := bleve.NewDisjunctionQuery()
			for _, t := range p.Tokens {
				mq := bleve.NewMatchQuery(t)
				mq.SetField("text")
				disj.AddQuery(mq)
			}
			must = append(must, disj)
		}
	}

	var baseShould bleve.Query
	base := q.BaseTokens
	if len(base) > 8 {
		base = base[:8]
	}
	if len(base) > 0 {
		disj := bleve.NewDisjunctionQuery()
		for _, t := range base {
			mq := bleve.NewMatchQuery(t)
			mq.SetField("text")
			disj.AddQuery(mq)
		}
		baseShould = disj
	}

	var finalQuery bleve.Query
	switch {
	case len(must) == 1 && baseShould == nil:
		// only the app filter: no lexical signal requested -> match-all within app
		finalQuery = must[0]
	case baseShould == nil:
		finalQuery = bleve.NewConjunctionQuery(must...)
	default:
		all := append(append([]bleve.Query{}, must...), baseShould)
		finalQuery = bleve.NewConjunctionQuery(all...)
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = n
	if req.Size <= 0 {
		req.Size = 1
	}
	if q.BM25K1 != nil || q.BM25B != nil {
		req.Fields = []string{"text"}
	}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, nil // signal unavailable, not an error escaping the request boundary (spec §7)
	}

	if q.BM25K1 != nil || q.BM25B != nil {
		return rescoreBM25(res.Hits, append(append([]string{}, q.BaseTokens...), q.MustTokens...), q.BM25K1, q.BM25B), nil
	}

	out := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, h.ID)
	}
	return out, nil
}

// defaultBM25K1/defaultBM25B match bleve's built-in BM25 defaults, used
// whenever only one of BM25K1/BM25B is overridden for a request.
const (
	defaultBM25K1 = 1.2
	defaultBM25B  = 0.75
)

// rescoreBM25 re-ranks an already-retrieved hit pool with request-scoped
// BM25 hyperparameters, per the bm25_k1/bm25_b query-tunable knobs carried
// forward from the original prototype (bleve's MatchQuery does not expose
// per-query k1/b). Since bleve's query execution already applied its
// built-in BM25 to select this pool, this is a local re-rank over the
// retrieved candidates using their raw term frequencies in the stored
// `text` field, not a corpus-wide re-score; idf and average document
// length are estimated from the pool itself.
func rescoreBM25(hits search.DocumentMatchCollection, activeTokens []string, k1Override, bOverride *float64) []string {
	k1 := defaultBM25K1
	if k1Override != nil {
		k1 = *k1Override
	}
	b := defaultBM25B
	if bOverride != nil {
		b = *bOverride
	}

	type doc struct {
		id     string
		tokens []string
		tf     map[string]int
	}
	docs := make([]doc, 0, len(hits))
	var totalLen int
	for _, h := range hits {
		text, _ := h.Fields["text"].(string)
		tokens := normalize.Tokenize(text)
		tf := make(map[string]int, len(activeTokens))
		for _, t := range tokens {
			tf[t]++
		}
		docs = append(docs, doc{id: h.ID, tokens: tokens, tf: tf})
		totalLen += len(tokens)
	}
	if len(docs) == 0 {
		return nil
	}
	avgdl := float64(totalLen) / float64(len(docs))

	df := make(map[string]int, len(activeTokens))
	for _, t := range activeTokens {
		for _, d := range docs {
			if d.tf[t] > 0 {
				df[t]++
			}
		}
	}
	n := float64(len(docs))

	scores := make(map[string]float64, len(docs))
	for _, d := range docs {
		dl := float64(len(d.tokens))
		var score float64
		for _, t := range activeTokens {
			f := float64(d.tf[t])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[t])+0.5)/(float64(df[t])+0.5))
			score += idf * (f * (k1 + 1)) / (f + k1*(1-b+b*dl/avgdl))
		}
		scores[d.id] = score
	}

	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.id
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i]] > scores[out[j]]
	})
	return out
}

// Delete implements LexicalIndex.
func (b *BleveLexicalIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("lexical index is closed")
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// Save is a no-op: bleve persists to disk as documents are indexed.
func (b *BleveLexicalIndex) Save(path string) error { return nil }

// Load reopens the index at path.
func (b *BleveLexicalIndex) Load(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index != nil && !b.closed {
		_ = b.index.Close()
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return fmt.Errorf("open lexical index: %w", err)
	}
	b.index = idx
	b.path = path
	b.closed = false
	return nil
}

// Close implements LexicalIndex.
func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

var _ LexicalIndex = (*BleveLexicalIndex)(nil)

// docTokenizerConstructor delegates to normalize.Tokenize so the lexical
// index's token boundaries exactly match the Constraint Filter's tokenizer.
func docTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveDocTokenizer{}, nil
}

type bleveDocTokenizer struct{}

func (t *bleveDocTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	words := normalize.Tokenize(text)
	stream := make(analysis.TokenStream, 0, len(words))
	pos := 1
	offset := 0
	for _, w := range words {
		start := strings.Index(strings.ToLower(text[offset:]), w)
		if start < 0 {
			start = 0
		} else {
			start += offset
		}
		end := start + len(w)
		stream = append(stream, &analysis.Token{
			Term:     []byte(w),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		offset = end
	}
	return stream
}

func docStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveDocStopFilter{stop: normalize.NewDefaultStoplist()}, nil
}

type bleveDocStopFilter struct {
	stop *normalize.Stoplist
}

func (f *bleveDocStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if !f.stop.Contains(string(tok.Term)) {
			out = append(out, tok)
		}
	}
	return out
}
