package okapi

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var petsDocuments = []Document{
	{ID: "d1", Tokens: []string{"cat", "dog", "dog"}},
	{ID: "d2", Tokens: []string{"dog", "bird"}},
	{ID: "d3", Tokens: []string{"fish"}},
}

func TestRankBatch(t *testing.T) {
	queries := [][]string{
		{"dog"},
		{"bird"},
		{"fish", "cat"},
	}

	got, err := RankBatch(context.Background(), petsDocuments, queries, NoLimit, DefaultParameters())
	if err != nil {
		t.Fatalf("RankBatch() error = %v", err)
	}
	if len(got) != len(queries) {
		t.Fatalf("got %d rankings, want %d", len(got), len(queries))
	}

	// each ranking matches what a single Search returns
	r := setupPetsRanker()
	for i, query := range queries {
		want, err := r.Search(query, NoLimit)
		if err != nil {
			t.Fatalf("Search(%v) error = %v", query, err)
		}
		if diff := cmp.Diff(want, got[i]); diff != "" {
			t.Errorf("ranking %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	if diff := cmp.Diff([]string{"d2", "d1", "d3"}, resultIDs(got[1])); diff != "" {
		t.Errorf("bird ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestRankBatch_Limit(t *testing.T) {
	got, err := RankBatch(context.Background(), petsDocuments, [][]string{{"dog"}, {"fish"}}, 1, DefaultParameters())
	if err != nil {
		t.Fatalf("RankBatch() error = %v", err)
	}

	if diff := cmp.Diff([]string{"d1"}, resultIDs(got[0])); diff != "" {
		t.Errorf("dog ranking mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"d3"}, resultIDs(got[1])); diff != "" {
		t.Errorf("fish ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestRankBatch_DuplicateIDFirstWins(t *testing.T) {
	docs := []Document{
		{ID: "d1", Tokens: []string{"cat"}},
		{ID: "d1", Tokens: []string{"dog", "dog", "dog"}},
		{ID: "d2", Tokens: []string{"bird"}},
	}

	got, err := RankBatch(context.Background(), docs, [][]string{{"dog"}, {"cat"}}, NoLimit, DefaultParameters())
	if err != nil {
		t.Fatalf("RankBatch() error = %v", err)
	}

	for _, result := range got[0] {
		if result.Score != 0 {
			t.Errorf("%s scored %g for dog, want 0: the second d1 must be ignored", result.ID, result.Score)
		}
	}
	if got[1][0].ID != "d1" || got[1][0].Score <= 0 {
		t.Errorf("top cat result = %+v, want d1 with a positive score", got[1][0])
	}
	if len(got[1]) != 2 {
		t.Errorf("got %d results, want 2 documents", len(got[1]))
	}
}

func TestRankBatch_CustomParameters(t *testing.T) {
	params := Parameters{K1: 2.0, B: 0.5}

	got, err := RankBatch(context.Background(), petsDocuments, [][]string{{"dog"}}, NoLimit, params)
	if err != nil {
		t.Fatalf("RankBatch() error = %v", err)
	}

	want := bm25(2, 2, 3, 3, 2, 2.0, 0.5)
	if diff := cmp.Diff(want, got[0][0].Score, approx); diff != "" {
		t.Errorf("d1 score mismatch (-want +got):\n%s", diff)
	}
}

func TestRankBatch_InvalidParameters(t *testing.T) {
	for _, params := range []Parameters{
		{K1: -1, B: 0.75},
		{K1: math.NaN(), B: 0.75},
		{K1: 1.2, B: math.NaN()},
	} {
		got, err := RankBatch(context.Background(), petsDocuments, [][]string{{"dog"}}, NoLimit, params)
		if !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("RankBatch(%+v) = %v, %v; want ErrInvalidParameters", params, got, err)
		}
	}
}

func TestRankBatch_EmptyCorpus(t *testing.T) {
	_, err := RankBatch(context.Background(), nil, [][]string{{"dog"}}, 10, DefaultParameters())
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("RankBatch() error = %v, want ErrEmptyCorpus", err)
	}
}

func TestRankBatch_NoQueries(t *testing.T) {
	got, err := RankBatch(context.Background(), petsDocuments, nil, 10, DefaultParameters())
	if err != nil {
		t.Fatalf("RankBatch() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rankings, want 0", len(got))
	}
}

func TestRankBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RankBatch(ctx, petsDocuments, [][]string{{"dog"}, {"cat"}}, 10, DefaultParameters())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RankBatch() error = %v, want context.Canceled", err)
	}
}

func TestRanker_AddDocuments(t *testing.T) {
	r := NewRanker()
	r.AddDocuments(petsDocuments)

	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	if r.DocumentFrequency("dog") != 2 {
		t.Errorf("DocumentFrequency(dog) = %d, want 2", r.DocumentFrequency("dog"))
	}
	checkConsistency(t, r.index)
}

func TestRanker_SearchBatch(t *testing.T) {
	r := setupPetsRanker()

	queries := make([][]string, 50)
	for i := range queries {
		if i%2 == 0 {
			queries[i] = []string{"dog"}
		} else {
			queries[i] = []string{"fish"}
		}
	}

	got, err := r.SearchBatch(context.Background(), queries, 1)
	if err != nil {
		t.Fatalf("SearchBatch() error = %v", err)
	}

	for i, ranking := range got {
		want := "d1"
		if i%2 == 1 {
			want = "d3"
		}
		if len(ranking) != 1 || ranking[0].ID != want {
			t.Errorf("ranking %d = %v, want top result %s", i, ranking, want)
		}
	}
}

func BenchmarkRankBatch(b *testing.B) {
	r := benchmarkRanker(b)
	queries := [][]string{
		{"machine", "learning"},
		{"rank"},
		{"search", "engine", "index"},
		{"missing"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.SearchBatch(context.Background(), queries, 10)
	}
}
