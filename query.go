package okapi

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY BUILDER: Boolean Pre-Filtering with Roaring Bitmaps
// ═══════════════════════════════════════════════════════════════════════════════
// Search scores every live document. When only documents satisfying a
// boolean condition should be ranked, build the condition fluently and
// rank just those:
//
// EXAMPLE USAGE:
// --------------
// Rank documents with "machine" AND "learning":
//
//	results, err := ranker.Query().
//	    Term("machine").
//	    And().
//	    Term("learning").
//	    ExecuteWithBM25(10)
//
// Find documents with ("cat" OR "dog") but NOT "snake":
//
//	ids := ranker.Query().
//	    Group(func(q *QueryBuilder) {
//	        q.Term("cat").Or().Term("dog")
//	    }).
//	    And().Not().Term("snake").
//	    Execute()
//
// Terms are matched exactly as indexed; no analysis is applied.
// Operators are applied left to right, Group controls precedence. Two
// terms with no operator between them are ANDed, and when operators are
// chained the last one wins.
// ═══════════════════════════════════════════════════════════════════════════════

// QueryBuilder provides a fluent interface for building boolean queries
type QueryBuilder struct {
	ranker *Ranker
	stack  []*roaring.Bitmap // Stack of intermediate results
	ops    []QueryOp         // ops[i] joins stack[i] and stack[i+1]
	negate bool              // Whether next term should be negated
	terms  []string          // Non-negated terms, used as the BM25 query
}

// QueryOp represents a pending boolean operation
type QueryOp int

const (
	OpNone QueryOp = iota
	OpAnd
	OpOr
)

// Query starts a new boolean query against the ranker's index
func (r *Ranker) Query() *QueryBuilder {
	return &QueryBuilder{
		ranker: r,
		stack:  make([]*roaring.Bitmap, 0),
		ops:    make([]QueryOp, 0),
		terms:  make([]string, 0),
	}
}

// Term adds a token to the query
//
// The documents containing the token are looked up once, when Term is
// called. Non-negated terms are also what ExecuteWithBM25 scores with.
func (qb *QueryBuilder) Term(term string) *QueryBuilder {
	if !qb.negate {
		qb.terms = append(qb.terms, term)
	}

	qb.ranker.mu.RLock()
	bitmap := qb.ranker.index.docBitmap(term)
	qb.ranker.mu.RUnlock()

	qb.pushBitmap(qb.applyNegation(bitmap))
	return qb
}

// And adds an AND operation (bitmap intersection)
//
//	qb.Term("machine").And().Term("learning")
func (qb *QueryBuilder) And() *QueryBuilder {
	qb.setOp(OpAnd)
	return qb
}

// Or adds an OR operation (bitmap union)
//
//	qb.Term("cat").Or().Term("dog")
func (qb *QueryBuilder) Or() *QueryBuilder {
	qb.setOp(OpOr)
	return qb
}

// Not negates the next term or group
//
//	qb.Term("python").And().Not().Term("snake")
func (qb *QueryBuilder) Not() *QueryBuilder {
	qb.negate = true
	return qb
}

// Group creates a sub-query with its own scope
//
//	qb.Group(func(q *QueryBuilder) {
//	    q.Term("cat").Or().Term("dog")
//	}).And().Term("pet")
//	// (cat OR dog) AND pet
func (qb *QueryBuilder) Group(fn func(*QueryBuilder)) *QueryBuilder {
	subQuery := qb.ranker.Query()
	fn(subQuery)

	if !qb.negate {
		qb.terms = append(qb.terms, subQuery.terms...)
	}

	qb.pushBitmap(qb.applyNegation(subQuery.evaluate()))
	return qb
}

// Execute runs the query and returns the ids of matching documents in
// ascending order
func (qb *QueryBuilder) Execute() []string {
	result := qb.evaluate()

	qb.ranker.mu.RLock()
	defer qb.ranker.mu.RUnlock()

	ids := make([]string, 0, result.GetCardinality())
	qb.ranker.index.forEachDocument(qb.restrictToLive(result), func(doc *DocumentStats) {
		ids = append(ids, doc.ID)
	})
	sort.Strings(ids)
	return ids
}

// ExecuteWithBM25 ranks the documents matching the query
//
// ALGORITHM:
// ----------
// 1. Evaluate the boolean query → bitmap of matching documents
// 2. Score each match with BM25, using the non-negated terms as the query
// 3. Sort by score and return the top limit (limit <= 0 returns all)
//
// IDF and the average document length are still computed over the whole
// corpus, so a document scores the same here as it does in Search.
// Fails with ErrEmptyCorpus when nothing is indexed.
func (qb *QueryBuilder) ExecuteWithBM25(limit int) ([]Result, error) {
	result := qb.evaluate()

	qb.ranker.mu.RLock()
	defer qb.ranker.mu.RUnlock()

	return qb.ranker.rank(qb.terms, qb.restrictToLive(result), limit)
}

// ═══════════════════════════════════════════════════════════════════════════════
// INTERNAL HELPER METHODS
// ═══════════════════════════════════════════════════════════════════════════════

// evaluate folds the stack left to right with the pending operations
func (qb *QueryBuilder) evaluate() *roaring.Bitmap {
	if len(qb.stack) == 0 {
		return roaring.NewBitmap()
	}

	result := qb.stack[0]
	for i := 1; i < len(qb.stack); i++ {
		switch qb.ops[i-1] {
		case OpAnd:
			result = roaring.And(result, qb.stack[i])
		case OpOr:
			result = roaring.Or(result, qb.stack[i])
		}
	}

	return result
}

// applyNegation consumes a pending Not, returning every live document
// except those in bitmap
func (qb *QueryBuilder) applyNegation(bitmap *roaring.Bitmap) *roaring.Bitmap {
	if !qb.negate {
		return bitmap
	}
	qb.negate = false

	qb.ranker.mu.RLock()
	allDocs := qb.ranker.index.liveBitmap()
	qb.ranker.mu.RUnlock()

	return roaring.AndNot(allDocs, bitmap)
}

// restrictToLive drops documents removed since the terms were looked up.
// Callers must hold the read lock.
func (qb *QueryBuilder) restrictToLive(bitmap *roaring.Bitmap) *roaring.Bitmap {
	return roaring.And(bitmap, qb.ranker.index.live)
}

// setOp records the operator joining the last operand and the next one.
// An operator before the first operand has nothing to join and is dropped.
func (qb *QueryBuilder) setOp(op QueryOp) {
	switch {
	case len(qb.stack) == 0:
	case len(qb.ops) == len(qb.stack):
		qb.ops[len(qb.ops)-1] = op
	default:
		qb.ops = append(qb.ops, op)
	}
}

// pushBitmap adds an operand, joining it with AND when no operator was given
func (qb *QueryBuilder) pushBitmap(bitmap *roaring.Bitmap) {
	if len(qb.stack) > len(qb.ops) {
		qb.ops = append(qb.ops, OpAnd)
	}
	qb.stack = append(qb.stack, bitmap)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONVENIENCE METHODS FOR COMMON PATTERNS
// ═══════════════════════════════════════════════════════════════════════════════

// AllOf returns the ids of documents containing ALL of the given terms
//
//	ids := AllOf(ranker, "machine", "learning", "python")
func AllOf(r *Ranker, terms ...string) []string {
	if len(terms) == 0 {
		return []string{}
	}

	qb := r.Query().Term(terms[0])
	for _, term := range terms[1:] {
		qb.And().Term(term)
	}
	return qb.Execute()
}

// AnyOf returns the ids of documents containing ANY of the given terms
//
//	ids := AnyOf(ranker, "cat", "dog", "bird")
func AnyOf(r *Ranker, terms ...string) []string {
	if len(terms) == 0 {
		return []string{}
	}

	qb := r.Query().Term(terms[0])
	for _, term := range terms[1:] {
		qb.Or().Term(term)
	}
	return qb.Execute()
}

// TermExcluding returns the ids of documents containing include but not
// exclude
func TermExcluding(r *Ranker, include, exclude string) []string {
	return r.Query().
		Term(include).
		And().Not().Term(exclude).
		Execute()
}
