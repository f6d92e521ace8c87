// Package corpus reads document and query files for the okapi CLI.
//
// A corpus file is YAML (JSON works too, being a subset):
//
//	documents:
//	  - id: d1
//	    tokens: [cat, dog, dog]
//	  - id: d2
//	    text: "The dog chased a bird"
//	queries:
//	  - [dog]
//	  - "chasing dogs"
//
// Documents carry either pre-split tokens or raw text. Queries are either
// token lists or raw strings. Raw text is split by whatever tokenize
// function the caller passes in.
package corpus

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wizenheimer/okapi"
)

var ErrInvalidCorpus = errors.New("invalid corpus")

// TokenizeFunc turns raw text into tokens
type TokenizeFunc func(text string) []string

// Corpus is the parsed content of a corpus file
type Corpus struct {
	Entries []Entry `yaml:"documents"`
	Queries []Query `yaml:"queries"`
}

// Entry is one document. Tokens win over Text when both are set.
type Entry struct {
	ID     string   `yaml:"id"`
	Tokens []string `yaml:"tokens"`
	Text   string   `yaml:"text"`
}

// Query is either a token list or raw text
type Query struct {
	Tokens []string
	Text   string
}

// UnmarshalYAML accepts a sequence of tokens or a scalar string
func (q *Query) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&q.Text)
	case yaml.SequenceNode:
		return value.Decode(&q.Tokens)
	default:
		return fmt.Errorf("%w: line %d: query must be a string or a list of tokens", ErrInvalidCorpus, value.Line)
	}
}

// Load reads and parses a corpus file
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing corpus file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes corpus YAML and checks that every document has an id
func Parse(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	for i, entry := range c.Entries {
		if entry.ID == "" {
			return nil, fmt.Errorf("%w: document %d has no id", ErrInvalidCorpus, i)
		}
	}
	return &c, nil
}

// Documents converts the entries to okapi documents, tokenizing raw text
func (c *Corpus) Documents(tokenize TokenizeFunc) []okapi.Document {
	docs := make([]okapi.Document, 0, len(c.Entries))
	for _, entry := range c.Entries {
		tokens := entry.Tokens
		if tokens == nil && entry.Text != "" {
			tokens = tokenize(entry.Text)
		}
		docs = append(docs, okapi.Document{ID: entry.ID, Tokens: tokens})
	}
	return docs
}

// TokenizedQueries returns every query as tokens, tokenizing raw text
func (c *Corpus) TokenizedQueries(tokenize TokenizeFunc) [][]string {
	queries := make([][]string, 0, len(c.Queries))
	for _, q := range c.Queries {
		queries = append(queries, q.Resolve(tokenize))
	}
	return queries
}

// Resolve returns the query's tokens, tokenizing Text when no tokens were
// given
func (q Query) Resolve(tokenize TokenizeFunc) []string {
	if q.Tokens != nil {
		return q.Tokens
	}
	return tokenize(q.Text)
}

// String renders the query the way it was written
func (q Query) String() string {
	if q.Tokens != nil {
		return fmt.Sprintf("%v", q.Tokens)
	}
	return q.Text
}
