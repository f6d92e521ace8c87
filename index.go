// Package okapi implements an in-memory BM25 search engine over
// pre-tokenized documents.
//
// ═══════════════════════════════════════════════════════════════════════════════
// WHAT IS AN INVERTED INDEX?
// ═══════════════════════════════════════════════════════════════════════════════
// An inverted index maps every token to the documents that contain it.
//
// Example: Given these documents:
//
//	d1: ["cat", "dog", "dog"]
//	d2: ["dog", "bird"]
//	d3: ["fish"]
//
// The inverted index would look like:
//
//	"cat"  → {d1: 1}
//	"dog"  → {d1: 2, d2: 1}
//	"bird" → {d2: 1}
//	"fish" → {d3: 1}
//
// The number of entries under a token is its document frequency, and the
// counts are the term frequencies BM25 needs at query time.
//
// Tokens are opaque. Whatever produced them (a tokenizer, a stemmer, a
// host binding) lives outside this package.
// ═══════════════════════════════════════════════════════════════════════════════
package okapi

import (
	"log/slog"

	"github.com/RoaringBitmap/roaring"
)

// DocumentStats stores statistics about a single document
type DocumentStats struct {
	ID        string         // Caller supplied document identifier
	Length    int            // Number of tokens in the document
	TermFreqs map[string]int // How many times each token appears

	ordinal uint32
}

// IndexStats is a point-in-time summary of the index
type IndexStats struct {
	Documents   int   // Live documents
	Tokens      int   // Distinct tokens with at least one live posting
	TotalLength int64 // Sum of all live document lengths
}

// posting records which documents contain a token and how often.
// Members of docs and keys of freqs are always the same set of ordinals.
type posting struct {
	docs  *roaring.Bitmap
	freqs map[uint32]int
}

// ═══════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURE: InvertedIndex
// ═══════════════════════════════════════════════════════════════════════════════
// Documents and tokens reference each other through a small integer ordinal
// handed out on insert:
//
//	InvertedIndex
//	├── byID:      map[string]uint32          "d1" → 0
//	├── byOrdinal: map[uint32]*DocumentStats   0 → {ID:"d1", Length:3, ...}
//	├── postings:  map[string]*posting         "dog" → {docs:{0,1}, freqs:{0:2,1:1}}
//	└── live:      *roaring.Bitmap             {0, 1, 2}
//
// A document's TermFreqs doubles as the back-reference used to retract its
// postings on removal. Ordinals are never reused, so a removed and re-added
// id gets a fresh one.
//
// InvertedIndex has no locking of its own; the Ranker that owns it does.
// ═══════════════════════════════════════════════════════════════════════════════
type InvertedIndex struct {
	byID      map[string]uint32
	byOrdinal map[uint32]*DocumentStats
	postings  map[string]*posting
	live      *roaring.Bitmap

	nextOrdinal uint32
}

// newInvertedIndex creates an empty index
func newInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		byID:      make(map[string]uint32),
		byOrdinal: make(map[uint32]*DocumentStats),
		postings:  make(map[string]*posting),
		live:      roaring.NewBitmap(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// INDEXING
// ═══════════════════════════════════════════════════════════════════════════════

// upsertDocument indexes tokens under id
//
// Insert-only: if id is already live the call is a no-op and returns false,
// even when tokens differ from the first insert.
//
// EXAMPLE:
// --------
// Input: id="d1", tokens=["cat", "dog", "dog"]
//
//	TermFreqs = {cat: 1, dog: 2}, Length = 3
//	postings["cat"] ← {ord(d1): 1}
//	postings["dog"] ← {ord(d1): 2}
func (idx *InvertedIndex) upsertDocument(id string, tokens []string) bool {
	if _, exists := idx.byID[id]; exists {
		slog.Debug("document already indexed, skipping", slog.String("id", id))
		return false
	}

	ordinal := idx.nextOrdinal
	idx.nextOrdinal++

	doc := &DocumentStats{
		ID:        id,
		Length:    len(tokens),
		TermFreqs: make(map[string]int),
		ordinal:   ordinal,
	}

	for _, token := range tokens {
		doc.TermFreqs[token]++
		idx.indexToken(token, ordinal)
	}

	idx.byID[id] = ordinal
	idx.byOrdinal[ordinal] = doc
	idx.live.Add(ordinal)

	slog.Debug("indexed document",
		slog.String("id", id),
		slog.Int("length", doc.Length),
		slog.Int("distinctTokens", len(doc.TermFreqs)))
	return true
}

// indexToken records one occurrence of token in the document with the
// given ordinal, updating the posting in place
func (idx *InvertedIndex) indexToken(token string, ordinal uint32) {
	p, exists := idx.postings[token]
	if !exists {
		p = &posting{
			docs:  roaring.NewBitmap(),
			freqs: make(map[uint32]int),
		}
		idx.postings[token] = p
	}

	p.docs.Add(ordinal)
	p.freqs[ordinal]++
}

// removeDocument drops id and retracts every posting it contributed.
// Returns false when id is not indexed.
//
// Tokens left with no documents are deleted, so a token is present in the
// index iff some live document contains it.
func (idx *InvertedIndex) removeDocument(id string) bool {
	ordinal, exists := idx.byID[id]
	if !exists {
		return false
	}

	doc := idx.byOrdinal[ordinal]
	for token := range doc.TermFreqs {
		p, ok := idx.postings[token]
		if !ok {
			continue
		}
		p.docs.Remove(ordinal)
		delete(p.freqs, ordinal)
		if p.docs.IsEmpty() {
			delete(idx.postings, token)
		}
	}

	delete(idx.byID, id)
	delete(idx.byOrdinal, ordinal)
	idx.live.Remove(ordinal)

	slog.Debug("removed document", slog.String("id", id))
	return true
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ═══════════════════════════════════════════════════════════════════════════════

// documentFrequency returns how many live documents contain token
func (idx *InvertedIndex) documentFrequency(token string) int {
	p, exists := idx.postings[token]
	if !exists {
		return 0
	}
	return int(p.docs.GetCardinality())
}

func (idx *InvertedIndex) documentCount() int {
	return int(idx.live.GetCardinality())
}

// averageDocumentLength is recomputed from the live documents on every call.
// Returns 0 for an empty corpus; callers must check documentCount first.
func (idx *InvertedIndex) averageDocumentLength() float64 {
	n := idx.documentCount()
	if n == 0 {
		return 0
	}
	return float64(idx.totalLength()) / float64(n)
}

func (idx *InvertedIndex) totalLength() int64 {
	var total int64
	for _, doc := range idx.byOrdinal {
		total += int64(doc.Length)
	}
	return total
}

// forEachDocument calls fn for every live document in candidates, in
// ordinal (insertion) order. A nil candidates set means every live document.
func (idx *InvertedIndex) forEachDocument(candidates *roaring.Bitmap, fn func(doc *DocumentStats)) {
	if candidates == nil {
		candidates = idx.live
	}

	iter := candidates.Iterator()
	for iter.HasNext() {
		doc, exists := idx.byOrdinal[iter.Next()]
		if !exists {
			continue
		}
		fn(doc)
	}
}

// document looks up a live document by id
func (idx *InvertedIndex) document(id string) (*DocumentStats, bool) {
	ordinal, exists := idx.byID[id]
	if !exists {
		return nil, false
	}
	return idx.byOrdinal[ordinal], true
}

// docBitmap returns a copy of the document set for token (empty if unseen)
func (idx *InvertedIndex) docBitmap(token string) *roaring.Bitmap {
	if p, exists := idx.postings[token]; exists {
		return p.docs.Clone()
	}
	return roaring.NewBitmap()
}

// liveBitmap returns a copy of the set of live document ordinals
func (idx *InvertedIndex) liveBitmap() *roaring.Bitmap {
	return idx.live.Clone()
}

func (idx *InvertedIndex) stats() IndexStats {
	return IndexStats{
		Documents:   idx.documentCount(),
		Tokens:      len(idx.postings),
		TotalLength: idx.totalLength(),
	}
}
