// Package analysis turns raw text into tokens for the okapi ranker.
//
// The ranker treats tokens as opaque strings and never calls into this
// package. Hosts that index raw text run it themselves, and must run the
// same Config over documents and queries so that tokens line up.
//
// ═══════════════════════════════════════════════════════════════════════════════
// ANALYSIS PIPELINE
// ═══════════════════════════════════════════════════════════════════════════════
//  1. Tokenization      → Split on anything that is not a letter or digit
//  2. Lowercasing       → "Quick" → "quick"
//  3. Stop word removal → Drop "the", "a", "is", ...
//  4. Length filtering  → Drop tokens shorter than MinTokenLength
//  5. Stemming          → "running" → "run" (Snowball English)
//
// EXAMPLE:
// --------
// Input:  "The Quick Brown Foxes Jumped!"
// Output: ["quick", "brown", "fox", "jump"]
// ═══════════════════════════════════════════════════════════════════════════════
package analysis

import (
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// Config holds the analysis pipeline switches
type Config struct {
	MinTokenLength  int  `yaml:"minTokenLength"`
	EnableStemming  bool `yaml:"stemming"`
	EnableStopwords bool `yaml:"stopwords"`
}

// DefaultConfig returns the standard pipeline: stop words removed, tokens
// of at least two bytes, Snowball stemming
func DefaultConfig() Config {
	return Config{
		MinTokenLength:  2,
		EnableStemming:  true,
		EnableStopwords: true,
	}
}

// Analyze runs text through the default pipeline
//
//	Analyze("The quick brown fox jumps over the lazy dog")
//	// ["quick", "brown", "fox", "jump", "lazi", "dog"]
func Analyze(text string) []string {
	return AnalyzeWithConfig(text, DefaultConfig())
}

// AnalyzeWithConfig runs text through a custom pipeline
func AnalyzeWithConfig(text string, config Config) []string {
	tokens := tokenize(text)
	tokens = lowercaseFilter(tokens)

	if config.EnableStopwords {
		tokens = stopwordFilter(tokens)
	}

	tokens = lengthFilter(tokens, config.MinTokenLength)

	if config.EnableStemming {
		tokens = stemmerFilter(tokens)
	}

	return tokens
}

// Analyzer binds a Config so it can be passed around as a tokenize func
type Analyzer struct {
	config Config
}

// New returns an Analyzer for config
func New(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Analyze runs text through the analyzer's pipeline
func (a *Analyzer) Analyze(text string) []string {
	return AnalyzeWithConfig(text, a.config)
}

// tokenize splits on every rune that is neither a letter nor a number
//
//	"hello-world"    → ["hello", "world"]
//	"user@email.com" → ["user", "email", "com"]
//	"café"           → ["café"]
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func lowercaseFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = strings.ToLower(token)
	}
	return r
}

func stopwordFilter(tokens []string) []string {
	r := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, stop := englishStopwords[token]; !stop {
			r = append(r, token)
		}
	}
	return r
}

// lengthFilter drops tokens shorter than minLength bytes
func lengthFilter(tokens []string, minLength int) []string {
	r := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) >= minLength {
			r = append(r, token)
		}
	}
	return r
}

// stemmerFilter reduces words to their Snowball (Porter2) root.
// Stop words were already handled, so the stemmer's own stop word check
// is skipped.
func stemmerFilter(tokens []string) []string {
	r := make([]string, len(tokens))
	for i, token := range tokens {
		r[i] = snowballeng.Stem(token, false)
	}
	return r
}

var englishStopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all am an and any are as at
		be because been before being below between both but by
		can could did do does doing down during each few for from further
		had has have having he her here hers herself him himself his how
		i if in into is it its itself just me more most my myself
		no nor not now of off on once only or other our ours ourselves out over own
		same she should so some such than that the their theirs them themselves
		then there these they this those through to too under until up
		very was we were what when where which while who whom why will with
		would you your yours yourself yourselves`)

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
