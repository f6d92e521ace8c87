package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wizenheimer/okapi"
)

const sampleCorpus = `
documents:
  - id: d1
    tokens: [cat, dog, dog]
  - id: d2
    text: "dog bird"
  - id: d3
    tokens: [fish]
    text: "ignored because tokens are set"
queries:
  - [dog]
  - "bird watching"
`

func upperFields(text string) []string {
	return strings.Fields(strings.ToUpper(text))
}

func TestParse_Documents(t *testing.T) {
	c, err := Parse([]byte(sampleCorpus))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	got := c.Documents(upperFields)
	want := []okapi.Document{
		{ID: "d1", Tokens: []string{"cat", "dog", "dog"}},
		{ID: "d2", Tokens: []string{"DOG", "BIRD"}},
		{ID: "d3", Tokens: []string{"fish"}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Documents() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Queries(t *testing.T) {
	c, err := Parse([]byte(sampleCorpus))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	got := c.TokenizedQueries(upperFields)
	want := [][]string{
		{"dog"},
		{"BIRD", "WATCHING"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TokenizedQueries() mismatch (-want +got):\n%s", diff)
	}

	if s := c.Queries[0].String(); s != "[dog]" {
		t.Errorf("Queries[0].String() = %q, want [dog]", s)
	}
	if s := c.Queries[1].String(); s != "bird watching" {
		t.Errorf("Queries[1].String() = %q, want %q", s, "bird watching")
	}
}

func TestParse_JSON(t *testing.T) {
	c, err := Parse([]byte(`{"documents": [{"id": "a", "tokens": ["x"]}], "queries": [["x"]]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(c.Entries) != 1 || c.Entries[0].ID != "a" {
		t.Errorf("Entries = %+v, want one document a", c.Entries)
	}
	if len(c.Queries) != 1 {
		t.Errorf("len(Queries) = %d, want 1", len(c.Queries))
	}
}

func TestParse_MissingID(t *testing.T) {
	_, err := Parse([]byte("documents:\n  - tokens: [a]\n"))
	if !errors.Is(err, ErrInvalidCorpus) {
		t.Errorf("Parse() error = %v, want ErrInvalidCorpus", err)
	}
}

func TestParse_BadQuery(t *testing.T) {
	_, err := Parse([]byte("queries:\n  - {tokens: [a]}\n"))
	if !errors.Is(err, ErrInvalidCorpus) {
		t.Errorf("Parse() error = %v, want ErrInvalidCorpus", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	if err := os.WriteFile(path, []byte(sampleCorpus), 0o644); err != nil {
		t.Fatalf("writing corpus: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(c.Entries) != 3 {
		t.Errorf("len(Entries) = %d, want 3", len(c.Entries))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}
