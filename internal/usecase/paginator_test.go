package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/cricket-ingest/internal/platform/resilience"
)

func newTestPaginator(f Fetcher, maxPages, retries int, sleep resilience.SleepFunc) *Paginator {
	return NewPaginator(f, textParser{}, PaginatorConfig{
		MaxPages: maxPages,
		Retries:  retries,
		Backoff:  resilience.BackoffConfig{Base: 100 * time.Millisecond, Max: 300 * time.Millisecond},
		Sleep:    sleep,
	})
}

func TestPaginator_YieldsPagesInSourceOrder(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(101)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A", "B"}, pagesPerInning: 2, ballsPerPage: 6, regular: 2})

	pages, stats := newTestPaginator(f, 50, 0, nil).Walk(context.Background(), ref)
	var kinds []PageKind
	var numbers []int
	for page, err := range pages {
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		kinds = append(kinds, page.Kind)
		if page.Kind == PageCommentary {
			numbers = append(numbers, page.Innings.Index*10+page.Number)
		}
	}

	wantKinds := []PageKind{PageSummary, PageIndex, PageCommentary, PageCommentary, PageCommentary, PageCommentary}
	if len(kinds) != len(wantKinds) {
		t.Fatalf("unexpected page kinds: %v", kinds)
	}
	for i := range wantKinds {
		if kinds[i] != wantKinds[i] {
			t.Fatalf("page %d: expected %s, got=%s", i, wantKinds[i], kinds[i])
		}
	}
	wantNumbers := []int{11, 12, 21, 22}
	for i := range wantNumbers {
		if numbers[i] != wantNumbers[i] {
			t.Fatalf("unexpected commentary order: %v", numbers)
		}
	}
	// two terminating empty pages are fetched but not yielded
	if stats.Fetched != 8 || stats.LimitReached {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPaginator_RepeatedPageEndsInnings(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(102)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6})
	// page 2 repeats page 1 instead of being empty
	f.set(commentaryPageURL(ref.CommentaryURL(), 1, 2), "balls:1-1:6")

	commentary := 0
	for page, err := range newTestPaginator(f, 50, 0, nil).Pages(context.Background(), ref) {
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		if page.Kind == PageCommentary {
			commentary++
		}
	}
	if commentary != 1 {
		t.Fatalf("expected the repeated page to end the innings, got=%d commentary pages", commentary)
	}
	if f.count(commentaryPageURL(ref.CommentaryURL(), 1, 3)) != 0 {
		t.Fatalf("expected no fetch past the repeated page")
	}
}

func TestPaginator_PageLimitEndsWithoutError(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(103)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A", "B"}, pagesPerInning: 5, ballsPerPage: 6})

	pages, stats := newTestPaginator(f, 4, 0, nil).Walk(context.Background(), ref)
	yielded := 0
	for _, err := range pages {
		if err != nil {
			t.Fatalf("expected limit to end quietly, got=%v", err)
		}
		yielded++
	}
	if yielded != 4 || !stats.LimitReached || stats.Fetched != 4 {
		t.Fatalf("expected 4 pages and the limit flag, got=%d stats=%+v", yielded, stats)
	}
}

func TestPaginator_RetriesTemporaryFailures(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(104)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6})
	f.failNext(ref.ScorecardURL, temporaryErr(ref.ScorecardURL), temporaryErr(ref.ScorecardURL))

	sleeper := &sleepRecorder{}
	pages, stats := newTestPaginator(f, 50, 3, sleeper.sleep).Walk(context.Background(), ref)
	for page, err := range pages {
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		if page.Kind == PageSummary && page.Attempts != 3 {
			t.Fatalf("expected summary after 3 attempts, got=%d", page.Attempts)
		}
	}

	if stats.Retries != 2 {
		t.Fatalf("expected 2 retries, got=%d", stats.Retries)
	}
	delays := sleeper.recorded()
	if len(delays) != 2 || delays[0] != 100*time.Millisecond || delays[1] != 200*time.Millisecond {
		t.Fatalf("expected doubling backoff, got=%v", delays)
	}
}

func TestPaginator_ExhaustedRetriesYieldPageFetchError(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(105)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6})
	f.failNext(ref.CommentaryURL(), temporaryErr(ref.CommentaryURL()), temporaryErr(ref.CommentaryURL()), temporaryErr(ref.CommentaryURL()))

	var got error
	for _, err := range newTestPaginator(f, 50, 2, (&sleepRecorder{}).sleep).Pages(context.Background(), ref) {
		if err != nil {
			got = err
			break
		}
	}

	var pfe *PageFetchError
	if !errors.As(got, &pfe) {
		t.Fatalf("expected PageFetchError, got=%v", got)
	}
	if pfe.Kind != PageIndex || pfe.Attempts != 3 {
		t.Fatalf("unexpected page fetch error: %+v", pfe)
	}
}

func TestPaginator_PermanentFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(106)

	sleeper := &sleepRecorder{}
	var got error
	for _, err := range newTestPaginator(f, 50, 3, sleeper.sleep).Pages(context.Background(), ref) {
		got = err
	}

	var pfe *PageFetchError
	if !errors.As(got, &pfe) || pfe.Attempts != 1 {
		t.Fatalf("expected a single-attempt PageFetchError, got=%v", got)
	}
	if len(sleeper.recorded()) != 0 {
		t.Fatalf("expected no backoff for a permanent failure")
	}
}

func TestPaginator_UnreadableIndexIsParseError(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(107)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6})
	f.set(ref.CommentaryURL(), "<html></html>")

	var got error
	for _, err := range newTestPaginator(f, 50, 0, nil).Pages(context.Background(), ref) {
		got = err
	}
	var pe *ParseError
	if !errors.As(got, &pe) || pe.Kind != PageIndex {
		t.Fatalf("expected index ParseError, got=%v", got)
	}
}

func TestPaginator_ConsumerCanStopEarly(t *testing.T) {
	t.Parallel()

	f := newScriptedFetcher()
	ref := testRef(108)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 3, ballsPerPage: 6})

	for page := range newTestPaginator(f, 50, 0, nil).Pages(context.Background(), ref) {
		if page.Kind == PageSummary {
			break
		}
	}
	if f.count(ref.CommentaryURL()) != 0 {
		t.Fatalf("expected no fetch after the consumer stopped")
	}
}

func TestCommentaryPageURL(t *testing.T) {
	t.Parallel()

	got := commentaryPageURL("https://example.test/series/s-1/m-1/ball-by-ball-commentary", 2, 3)
	want := "https://example.test/series/s-1/m-1/ball-by-ball-commentary?innings=2&page=3"
	if got != want {
		t.Fatalf("expected %s, got=%s", want, got)
	}
}
