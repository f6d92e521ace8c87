// okapi ranks the documents of a corpus file against one or more queries
// with BM25 and prints the rankings.
//
// Usage:
//
//	okapi --corpus corpus.yaml [--config okapi.yaml] [--query "text"]...
//	      [--limit N] [--k1 X] [--b Y] [--format text|json]
//
// Queries given with --query replace the queries in the corpus file. Raw
// text (document "text" fields and queries) goes through the analysis
// pipeline; documents given as "tokens" are indexed as-is.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/wizenheimer/okapi"
	"github.com/wizenheimer/okapi/analysis"
	"github.com/wizenheimer/okapi/internal/config"
	"github.com/wizenheimer/okapi/internal/corpus"
	"github.com/wizenheimer/okapi/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		if errors.Is(err, okapi.ErrEmptyCorpus) {
			fmt.Fprintf(os.Stderr, "error: empty corpus: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	corpusPath string
	queries    []string
	limit      int
	k1         float64
	b          float64
	format     string
}

// queryResults is one query's ranking as printed
type queryResults struct {
	Query   string         `json:"query"`
	Tokens  []string       `json:"tokens"`
	Results []okapi.Result `json:"results"`
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("okapi", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	flagSet.StringVar(&opts.corpusPath, "corpus", "", "path to YAML/JSON corpus file (required)")
	flagSet.StringArrayVarP(&opts.queries, "query", "q", nil, "query text, may be repeated (overrides corpus queries)")
	flagSet.IntVarP(&opts.limit, "limit", "n", 0, "maximum results per query, 0 for all (default from config)")
	flagSet.Float64Var(&opts.k1, "k1", 0, "BM25 k1 (default from config)")
	flagSet.Float64Var(&opts.b, "b", 0, "BM25 b (default from config)")
	flagSet.StringVar(&opts.format, "format", "text", "output format: text or json")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if opts.corpusPath == "" {
		return errors.New("--corpus is required")
	}
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown --format %q", opts.format)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagSet.Changed("limit") {
		cfg.Search.Limit = opts.limit
	}
	if flagSet.Changed("k1") {
		cfg.Ranking.K1 = opts.k1
	}
	if flagSet.Changed("b") {
		cfg.Ranking.B = opts.b
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.WithComponent("cli")

	c, err := corpus.Load(opts.corpusPath)
	if err != nil {
		return err
	}

	analyzer := analysis.New(cfg.Analysis)
	docs := c.Documents(analyzer.Analyze)

	queries := c.Queries
	if len(opts.queries) > 0 {
		queries = make([]corpus.Query, 0, len(opts.queries))
		for _, text := range opts.queries {
			queries = append(queries, corpus.Query{Text: text})
		}
	}
	tokenized := make([][]string, len(queries))
	for i, q := range queries {
		tokenized[i] = q.Resolve(analyzer.Analyze)
	}

	log.Info("ranking corpus",
		slog.String("corpus", opts.corpusPath),
		slog.Int("documents", len(docs)),
		slog.Int("queries", len(queries)),
		slog.Float64("k1", cfg.Ranking.K1),
		slog.Float64("b", cfg.Ranking.B))

	rankings, err := okapi.RankBatch(ctx, docs, tokenized, cfg.Search.Limit, cfg.Ranking.Parameters())
	if err != nil {
		return fmt.Errorf("ranking %s: %w", opts.corpusPath, err)
	}

	out := make([]queryResults, len(queries))
	for i, q := range queries {
		out[i] = queryResults{
			Query:   q.String(),
			Tokens:  tokenized[i],
			Results: rankings[i],
		}
	}

	if opts.format == "json" {
		return writeJSON(stdout, out)
	}
	return writeText(stdout, out)
}

func writeJSON(w io.Writer, out []queryResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeText(w io.Writer, out []queryResults) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, q := range out {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "query: %s\t%v\n", q.Query, q.Tokens)
		for rank, result := range q.Results {
			fmt.Fprintf(tw, "  %d\t%s\t%.4f\n", rank+1, result.ID, result.Score)
		}
	}
	return tw.Flush()
}
