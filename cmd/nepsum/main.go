// Command nepsum summarizes Nepali news from the command line.
//
// Usage:
//
//	nepsum -url https://ekantipur.com/news/... [-length long] [-model model2]
//	nepsum -file article.txt
//	cat article.txt | nepsum
//	nepsum -feed https://example.com/rss -limit 5 -output json
//	nepsum -issue-token alice -token-ttl 24h
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nepsum/internal/bootstrap"
	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/handler/http/auth"
	"nepsum/internal/observability/logging"
	"nepsum/internal/usecase/pipeline"
)

type options struct {
	text     string
	file     string
	url      string
	feed     string
	limit    int
	length   string
	model    string
	evaluate bool
	output   string
	timeout  time.Duration

	issueToken string
	tokenTTL   time.Duration
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	logger := logging.NewTextLogger(stderr, cfg.Log.Level)
	slog.SetDefault(logger)

	if opts.issueToken != "" {
		return issueToken(cfg, opts, stdout, stderr)
	}

	length, err := entity.ParseLengthMode(opts.length)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	backend, err := entity.ParseBackendID(opts.model)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	app, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build application", slog.Any("error", err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := newPrinter(stdout, opts.output)
	base := pipeline.Request{Length: length, Backend: backend, Evaluate: opts.evaluate}

	if opts.feed != "" {
		return runFeed(ctx, app, opts, base, printer, logger)
	}

	req, err := resolveInput(opts, stdin, base)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	res, err := app.Pipeline.Run(runCtx, req)
	if err != nil {
		logger.Error("summarize failed", slog.Any("error", err))
		fmt.Fprintf(stderr, "Error: summarize failed: %v\n", err)
		return 1
	}
	if err := printer.print(newRecord(req.URL, "", res)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("nepsum", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.text, "text", "", "Article text to summarize")
	fs.StringVar(&opts.file, "file", "", "Read article text from a file (- for stdin)")
	fs.StringVar(&opts.url, "url", "", "Fetch the article at this URL")
	fs.StringVar(&opts.feed, "feed", "", "Summarize the latest items of an RSS/Atom feed")
	fs.IntVar(&opts.limit, "limit", 5, "Maximum number of feed items to summarize")
	fs.StringVar(&opts.length, "length", string(entity.Short), "Summary length: short or long")
	fs.StringVar(&opts.model, "model", entity.ModelA.Selector(), "Backend: model1 or model2")
	fs.BoolVar(&opts.evaluate, "evaluate", true, "Fetch a reference summary and compute ROUGE scores")
	fs.StringVar(&opts.output, "output", outputText, "Output format: text or json")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Timeout per article")
	fs.StringVar(&opts.issueToken, "issue-token", "", "Print a bearer token for this subject and exit")
	fs.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "Lifetime of tokens minted with -issue-token")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	sources := 0
	for _, s := range []string{opts.text, opts.file, opts.url, opts.feed} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return opts, errors.New("-text, -file, -url and -feed are mutually exclusive")
	}
	if opts.limit < 1 {
		return opts, errors.New("-limit must be at least 1")
	}
	if opts.timeout <= 0 {
		return opts, errors.New("-timeout must be positive")
	}
	if opts.output != outputText && opts.output != outputJSON {
		return opts, fmt.Errorf("-output must be %q or %q", outputText, outputJSON)
	}
	return opts, nil
}

// resolveInput fills the text or URL of base from the flags, falling back
// to stdin when no source flag is given.
func resolveInput(opts options, stdin io.Reader, base pipeline.Request) (pipeline.Request, error) {
	req := base
	switch {
	case opts.url != "":
		req.URL = strings.TrimSpace(opts.url)
		return req, nil
	case opts.text != "":
		req.Text = opts.text
		return req, nil
	case opts.file != "" && opts.file != "-":
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return req, fmt.Errorf("read %s: %w", opts.file, err)
		}
		req.Text = string(data)
		return req, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return req, fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return req, errors.New("no input: pass -text, -file, -url, -feed or pipe text on stdin")
	}
	req.Text = string(data)
	return req, nil
}

// runFeed summarizes up to opts.limit feed items. A failing item is
// reported in its record and does not stop the digest; the exit code is 1
// if any item failed.
func runFeed(ctx context.Context, app *bootstrap.App, opts options, base pipeline.Request, p *printer, logger *slog.Logger) int {
	items, err := app.FeedReader().Fetch(ctx, opts.feed)
	if err != nil {
		logger.Error("feed fetch failed", slog.String("feed", opts.feed), slog.Any("error", err))
		return 1
	}
	if len(items) > opts.limit {
		items = items[:opts.limit]
	}

	failed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return 1
		}
		req := base
		req.URL = item.URL

		itemCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		res, err := app.Pipeline.Run(itemCtx, req)
		cancel()

		var rec record
		if err != nil {
			failed++
			logger.Warn("feed item failed", slog.String("url", item.URL), slog.Any("error", err))
			rec = record{URL: item.URL, Title: item.Title, Error: err.Error()}
		} else {
			rec = newRecord(item.URL, item.Title, res)
		}
		if err := p.print(rec); err != nil {
			logger.Error("write output failed", slog.Any("error", err))
			return 1
		}
	}

	logger.Info("feed digest complete",
		slog.String("feed", opts.feed),
		slog.Int("items", len(items)),
		slog.Int("failed", failed))
	if failed > 0 {
		return 1
	}
	return 0
}

func issueToken(cfg *config.Config, opts options, stdout, stderr io.Writer) int {
	if !cfg.Auth.Enabled() {
		fmt.Fprintln(stderr, "Error: AUTH_JWT_SECRET is not set")
		return 1
	}
	token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), opts.issueToken, opts.tokenTTL)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
