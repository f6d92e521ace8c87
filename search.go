package okapi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// ErrEmptyCorpus is returned when a search runs against an index with no
// live documents. Without it the average document length would be 0/0.
var ErrEmptyCorpus = errors.New("search on empty corpus")

// ErrInvalidParameters is returned for k1 or b values that would make
// scores NaN or infinite
var ErrInvalidParameters = errors.New("invalid BM25 parameters")

// NoLimit asks Search to return every document
const NoLimit = 0

// ═══════════════════════════════════════════════════════════════════════════════
// BM25 RANKING SYSTEM
// ═══════════════════════════════════════════════════════════════════════════════
// BM25 (Best Matching 25) estimates how relevant a document is to a query
// from three signals:
//
// 1. Term frequency: more occurrences help, with diminishing returns (k1)
// 2. Term rarity: tokens found in few documents weigh more (IDF)
// 3. Document length: long documents are normalized against the average (b)
//
// BM25 FORMULA:
// -------------
// For each token t in the query that occurs in document d:
//
//	score += IDF(t) * (tf * (k1 + 1)) / (tf + k1 * (1 - b + b * len(d) / avgLen))
//	IDF(t) = ln(1 + (N - df + 0.5) / (df + 0.5))
//
// Where:
//
//	tf     = occurrences of t in d
//	df     = live documents containing t
//	N      = live documents
//	len(d) = number of tokens in d
//	avgLen = mean len over live documents, recomputed per search
//
// A token repeated in the query is scored once per occurrence, so
// ["dog", "dog"] weighs "dog" twice.
// ═══════════════════════════════════════════════════════════════════════════════

// Parameters holds the tuning parameters for BM25
type Parameters struct {
	K1 float64 // Term frequency saturation
	B  float64 // Length normalization, 0 disables it
}

// DefaultParameters returns k1=1.2, b=0.75
func DefaultParameters() Parameters {
	return Parameters{
		K1: 1.2,
		B:  0.75,
	}
}

// Validate checks that k1 is finite and >= 0 and that b lies in [0, 1].
// Anything else can yield NaN scores, which also break result ordering.
func (p Parameters) Validate() error {
	if math.IsNaN(p.K1) || math.IsInf(p.K1, 0) || p.K1 < 0 {
		return fmt.Errorf("%w: k1 must be finite and >= 0, got %g", ErrInvalidParameters, p.K1)
	}
	if math.IsNaN(p.B) || p.B < 0 || p.B > 1 {
		return fmt.Errorf("%w: b must be in [0, 1], got %g", ErrInvalidParameters, p.B)
	}
	return nil
}

// Result is one ranked document
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Ranker owns an InvertedIndex and ranks its documents with BM25.
//
// Mutations take the write lock and searches take the read lock, so many
// searches may run at once while AddDocument/RemoveDocument are exclusive.
type Ranker struct {
	mu     sync.RWMutex
	index  *InvertedIndex
	params Parameters
}

// NewRanker creates an empty ranker with DefaultParameters
func NewRanker() *Ranker {
	return NewRankerWithParams(DefaultParameters())
}

// NewRankerWithParams creates an empty ranker with custom parameters.
// Parameters are fixed for the lifetime of the ranker and are used as
// given: callers must pass values that pass Parameters.Validate, or
// scores may come out NaN.
func NewRankerWithParams(params Parameters) *Ranker {
	return &Ranker{
		index:  newInvertedIndex(),
		params: params,
	}
}

// Params returns the BM25 parameters the ranker was built with
func (r *Ranker) Params() Parameters {
	return r.params
}

// AddDocument indexes tokens under id. Adding an id that is already
// indexed does nothing. An empty token list indexes a zero-length document.
func (r *Ranker) AddDocument(id string, tokens []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.index.upsertDocument(id, tokens)
}

// RemoveDocument removes id from the index. Unknown ids are ignored.
func (r *Ranker) RemoveDocument(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.index.removeDocument(id)
}

// Len returns the number of live documents
func (r *Ranker) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.index.documentCount()
}

// Contains reports whether id is indexed
func (r *Ranker) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.index.document(id)
	return exists
}

// Document returns a copy of the statistics recorded for id
func (r *Ranker) Document(id string) (DocumentStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.index.document(id)
	if !exists {
		return DocumentStats{}, false
	}

	termFreqs := make(map[string]int, len(doc.TermFreqs))
	for token, freq := range doc.TermFreqs {
		termFreqs[token] = freq
	}
	return DocumentStats{
		ID:        doc.ID,
		Length:    doc.Length,
		TermFreqs: termFreqs,
		ordinal:   doc.ordinal,
	}, true
}

// DocumentFrequency returns how many live documents contain token
func (r *Ranker) DocumentFrequency(token string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.index.documentFrequency(token)
}

// Stats returns a summary of the index
func (r *Ranker) Stats() IndexStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.index.stats()
}

// Search ranks every live document against query
//
// ALGORITHM:
// ----------
// 1. Fail with ErrEmptyCorpus if nothing is indexed
// 2. Compute the average document length
// 3. Score every live document (documents sharing no token score 0)
// 4. Sort by score descending, then by id ascending
// 5. Keep the first limit results (limit <= 0 keeps all)
//
// EXAMPLE:
// --------
// Corpus: d1=["cat","dog","dog"], d2=["dog","bird"], d3=["fish"]
// Query:  ["dog"]
//
//	N=3, df(dog)=2, avgLen=2
//	IDF(dog) = ln(1 + 1.5/2.5) ≈ 0.470
//	d1: tf=2, len=3 → 0.470 * 4.4/3.65 ≈ 0.567
//	d2: tf=1, len=2 → 0.470 * 2.2/2.2  ≈ 0.470
//	d3: no "dog"    → 0
//
// Result: [d1, d2, d3]
func (r *Ranker) Search(query []string, limit int) ([]Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slog.Debug("BM25 search", slog.Any("tokens", query), slog.Int("limit", limit))

	return r.rank(query, nil, limit)
}

// rank scores the candidate documents (nil means all live documents).
// Callers must hold at least the read lock.
func (r *Ranker) rank(query []string, candidates *roaring.Bitmap, limit int) ([]Result, error) {
	if r.index.documentCount() == 0 {
		return nil, ErrEmptyCorpus
	}

	avgDocLen := r.index.averageDocumentLength()
	idfs := r.queryIDFs(query)

	results := make([]Result, 0, r.candidateCount(candidates))
	r.index.forEachDocument(candidates, func(doc *DocumentStats) {
		results = append(results, Result{
			ID:    doc.ID,
			Score: r.scoreDocument(doc, query, idfs, avgDocLen),
		})
	})

	sortResults(results)
	return limitResults(results, limit), nil
}

func (r *Ranker) candidateCount(candidates *roaring.Bitmap) int {
	if candidates == nil {
		return r.index.documentCount()
	}
	return int(candidates.GetCardinality())
}

// queryIDFs computes IDF once per distinct query token
func (r *Ranker) queryIDFs(query []string) map[string]float64 {
	idfs := make(map[string]float64, len(query))
	for _, token := range query {
		if _, done := idfs[token]; done {
			continue
		}
		idfs[token] = r.calculateIDF(token)
	}
	return idfs
}

// calculateIDF computes the inverse document frequency of a token
//
// IDF FORMULA:
// ------------
// IDF(t) = ln(1 + (N - df + 0.5) / (df + 0.5))
//
// The +1 inside the log keeps the weight non-negative. It approaches zero
// as df approaches N and is never clamped.
func (r *Ranker) calculateIDF(token string) float64 {
	df := float64(r.index.documentFrequency(token))
	n := float64(r.index.documentCount())

	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// scoreDocument computes the BM25 score of doc for query
func (r *Ranker) scoreDocument(doc *DocumentStats, query []string, idfs map[string]float64, avgDocLen float64) float64 {
	k1 := r.params.K1
	b := r.params.B
	docLen := float64(doc.Length)

	score := 0.0
	for _, token := range query {
		tf := float64(doc.TermFreqs[token])
		if tf == 0 {
			continue
		}

		// tf > 0 implies len(d) > 0 and therefore avgDocLen > 0
		numerator := tf * (k1 + 1)
		denominator := tf + k1*(1-b+b*(docLen/avgDocLen))
		score += idfs[token] * (numerator / denominator)
	}

	return score
}

// sortResults orders by score descending; equal scores are ordered by id
// so that results are reproducible
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

// limitResults returns at most limit items; limit <= 0 returns everything
func limitResults(results []Result, limit int) []Result {
	if limit <= 0 || limit >= len(results) {
		return results
	}
	return results[:limit]
}
