package okapi

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Document is a pre-tokenized document for bulk indexing
type Document struct {
	ID     string   `json:"id" yaml:"id"`
	Tokens []string `json:"tokens" yaml:"tokens"`
}

// AddDocuments indexes docs in order. The first occurrence of an id wins.
func (r *Ranker) AddDocuments(docs []Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range docs {
		r.index.upsertDocument(doc.ID, doc.Tokens)
	}
}

// RankBatch builds one ranker over docs and ranks it against every query.
//
// The i-th element of the result holds the ranking for queries[i]. Queries
// only read the index, so they run concurrently, bounded by GOMAXPROCS.
// Parameters failing Validate are rejected with ErrInvalidParameters before
// anything is indexed. The first failing query (ErrEmptyCorpus, or ctx
// being cancelled) aborts the batch.
//
// EXAMPLE:
// --------
//
//	results, err := RankBatch(ctx,
//	    []Document{{ID: "d1", Tokens: []string{"cat", "dog"}}},
//	    [][]string{{"dog"}, {"cat", "bird"}},
//	    10, DefaultParameters())
//	// results[0] ranks for ["dog"], results[1] for ["cat", "bird"]
func RankBatch(ctx context.Context, docs []Document, queries [][]string, limit int, params Parameters) ([][]Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ranker := NewRankerWithParams(params)
	ranker.AddDocuments(docs)

	slog.Debug("ranking batch",
		slog.Int("documents", ranker.Len()),
		slog.Int("queries", len(queries)),
		slog.Int("limit", limit))

	return ranker.SearchBatch(ctx, queries, limit)
}

// SearchBatch runs Search for every query and returns the rankings in
// query order
func (r *Ranker) SearchBatch(ctx context.Context, queries [][]string, limit int) ([][]Result, error) {
	results := make([][]Result, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			ranked, err := r.Search(query, limit)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = ranked
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
