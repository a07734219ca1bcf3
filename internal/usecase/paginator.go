package usecase

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/platform/metrics"
	"github.com/riskibarqy/cricket-ingest/internal/platform/resilience"
)

type PageKind string

const (
	PageSummary    PageKind = "summary"
	PageIndex      PageKind = "index"
	PageCommentary PageKind = "commentary"
)

// Page is one fetched source document of a match.
type Page struct {
	Kind     PageKind
	Locator  string
	Innings  match.Innings
	Number   int
	Body     []byte
	Attempts int
}

// Fetcher downloads one locator in a single attempt.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// PageInspector is the part of the parser the paginator steers by.
type PageInspector interface {
	ParseInnings(body []byte) ([]match.Innings, error)
	HasCommentary(body []byte) bool
}

type PaginatorConfig struct {
	MaxPages int
	Retries  int
	Backoff  resilience.BackoffConfig
	Sleep    resilience.SleepFunc
	Logger   *logging.Logger
}

type Paginator struct {
	fetcher   Fetcher
	inspector PageInspector
	maxPages  int
	retries   int
	backoff   resilience.Backoff
	sleep     resilience.SleepFunc
	logger    *logging.Logger
}

func NewPaginator(fetcher Fetcher, inspector PageInspector, cfg PaginatorConfig) *Paginator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = resilience.Sleep
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 200
	}
	return &Paginator{
		fetcher:   fetcher,
		inspector: inspector,
		maxPages:  maxPages,
		retries:   max(cfg.Retries, 0),
		backoff:   resilience.NewBackoff(cfg.Backoff),
		sleep:     sleep,
		logger:    logger,
	}
}

// WalkStats is filled in while a page sequence is consumed.
type WalkStats struct {
	Fetched      int
	Retries      int
	LimitReached bool
}

// Pages yields the summary page, the commentary index page, then every
// commentary page of every innings in source order. The sequence stops at
// the first error.
func (p *Paginator) Pages(ctx context.Context, ref match.Ref) iter.Seq2[Page, error] {
	seq, _ := p.Walk(ctx, ref)
	return seq
}

func (p *Paginator) Walk(ctx context.Context, ref match.Ref) (iter.Seq2[Page, error], *WalkStats) {
	stats := &WalkStats{}
	seq := func(yield func(Page, error) bool) {
		ctx, span := startUsecaseSpan(ctx, "usecase.Paginator.Pages", attribute.Int64("match_id", ref.ID))
		var walkErr error
		defer func() { endSpan(span, walkErr) }()

		get := func(kind PageKind, locator string, innings match.Innings, number int) (Page, bool) {
			if stats.Fetched >= p.maxPages {
				stats.LimitReached = true
				p.logger.WarnContext(ctx, "page limit reached", "match_id", ref.ID, "max_pages", p.maxPages)
				return Page{}, false
			}
			page, err := p.fetch(ctx, ref, kind, locator, stats)
			if err != nil {
				walkErr = err
				yield(Page{}, err)
				return Page{}, false
			}
			page.Innings = innings
			page.Number = number
			return page, true
		}

		summary, ok := get(PageSummary, ref.ScorecardURL, match.Innings{}, 0)
		if !ok || !yield(summary, nil) {
			return
		}

		commentaryURL := ref.CommentaryURL()
		index, ok := get(PageIndex, commentaryURL, match.Innings{}, 0)
		if !ok || !yield(index, nil) {
			return
		}

		innings, err := p.inspector.ParseInnings(index.Body)
		if err != nil {
			walkErr = &ParseError{MatchID: ref.ID, Kind: PageIndex, Locator: commentaryURL, Reason: err.Error()}
			yield(Page{}, walkErr)
			return
		}

		for _, inn := range innings {
			var previous []byte
			for number := 1; ; number++ {
				page, ok := get(PageCommentary, commentaryPageURL(commentaryURL, inn.Index, number), inn, number)
				if !ok {
					return
				}
				if !p.inspector.HasCommentary(page.Body) {
					break
				}
				if previous != nil && bytes.Equal(previous, page.Body) {
					p.logger.DebugContext(ctx, "commentary page repeated, innings finished",
						"match_id", ref.ID, "innings", inn.Label, "page", number)
					break
				}
				previous = page.Body
				if !yield(page, nil) {
					return
				}
			}
		}
	}
	return seq, stats
}

// fetch retries temporary failures with exponential backoff.
func (p *Paginator) fetch(ctx context.Context, ref match.Ref, kind PageKind, locator string, stats *WalkStats) (Page, error) {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		attempts++
		stats.Fetched++

		body, err := p.fetcher.Fetch(ctx, locator)
		if err == nil {
			return Page{Kind: kind, Locator: locator, Body: body, Attempts: attempts}, nil
		}

		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		if !IsTemporary(err) || attempts > p.retries {
			return Page{}, &PageFetchError{MatchID: ref.ID, Kind: kind, Locator: locator, Attempts: attempts, Err: err}
		}

		delay := p.backoff.Delay(attempts)
		stats.Retries++
		metrics.FetchRetries.WithLabelValues(string(kind)).Inc()
		p.logger.WarnContext(ctx, "page fetch failed, retrying",
			"match_id", ref.ID,
			"kind", string(kind),
			"locator", locator,
			"attempt", attempts,
			"delay", delay.String(),
			"error", err,
		)
		if err := p.sleep(ctx, delay); err != nil {
			return Page{}, err
		}
	}
}

func commentaryPageURL(base string, innings, page int) string {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Sprintf("%s?innings=%d&page=%d", base, innings, page)
	}
	q := u.Query()
	q.Set("innings", strconv.Itoa(innings))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
