package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
	"github.com/riskibarqy/cricket-ingest/internal/infrastructure/repository/memory"
	matchmock "github.com/riskibarqy/cricket-ingest/internal/mocks/domain/match"
)

type serviceOptions struct {
	runID       string
	force       bool
	workers     int
	maxAttempts int
	matchDelay  time.Duration
	retryDelay  time.Duration
	matches     match.Repository
}

type serviceHarness struct {
	svc      *IngestionService
	fetcher  *scriptedFetcher
	matches  *memory.MatchRepository
	trackers *memory.TrackerRepository
	sleeper  *sleepRecorder
}

func newHarness(f *scriptedFetcher, trackers *memory.TrackerRepository, opts serviceOptions) serviceHarness {
	if opts.runID == "" {
		opts.runID = "run-1"
	}
	if trackers == nil {
		trackers = memory.NewTrackerRepository()
	}
	matches := memory.NewMatchRepository()
	var matchRepo match.Repository = matches
	if opts.matches != nil {
		matchRepo = opts.matches
	}
	sleeper := &sleepRecorder{}

	tr := NewTracker(trackers, TrackerConfig{RunID: opts.runID, Force: opts.force})
	pg := NewPaginator(f, textParser{}, PaginatorConfig{MaxPages: 100, Retries: 1, Sleep: sleeper.sleep})
	ps := NewPersister(matchRepo, PersisterConfig{MaxFailureRatio: 0.1})
	svc := NewIngestionService(tr, pg, textParser{}, ps, IngestionConfig{
		Workers:         opts.workers,
		MatchDelay:      opts.matchDelay,
		MaxAttempts:     opts.maxAttempts,
		MatchRetryDelay: opts.retryDelay,
		Sleep:           sleeper.sleep,
	})
	return serviceHarness{svc: svc, fetcher: f, matches: matches, trackers: trackers, sleeper: sleeper}
}

func resultFor(t *testing.T, report RunReport, matchID int64) MatchResult {
	t.Helper()
	for _, m := range report.Matches {
		if m.MatchID == matchID {
			return m
		}
	}
	t.Fatalf("match %d missing from report", matchID)
	return MatchResult{}
}

func TestIngestionService_IngestsFullMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1001)
	scriptMatch(f, scriptedMatch{
		ref:            ref,
		innings:        []string{"CSK 1st Innings", "RCB 1st Innings"},
		pagesPerInning: 10,
		ballsPerPage:   12,
		regular:        22,
		impact:         1,
	})
	h := newHarness(f, nil, serviceOptions{workers: 2})

	report, err := h.svc.Run(ctx, []match.Ref{ref})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Completed != 1 || report.Attempted != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	res := resultFor(t, report, 1001)
	if res.EventRows != 240 || res.PlayerRows != 23 || res.MetadataRows != 1 {
		t.Fatalf("unexpected stored rows: %+v", res)
	}

	events := h.matches.Events(1001)
	last, ok := events[match.Event{MatchID: 1001, Innings: "RCB 1st Innings", Sequence: 120}.Key()]
	if !ok || last.Ball != "2-10.12" {
		t.Fatalf("expected sequence to run per innings, got=%+v ok=%v", last, ok)
	}

	meta, _ := h.matches.Metadata(1001)
	if meta.FirstInnings == nil || *meta.FirstInnings != "CSK 1st Innings" || meta.SecondInnings == nil || meta.HasSuperOver {
		t.Fatalf("unexpected innings metadata: %+v", meta)
	}

	rec, _, _ := h.trackers.Get(ctx, 1001)
	if rec.Status != tracker.StatusCompleted || rec.EventRows != 240 || rec.MetadataRows != 1 {
		t.Fatalf("unexpected tracker record: %+v", rec)
	}
}

func TestIngestionService_SuperOverInnings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1002)
	scriptMatch(f, scriptedMatch{
		ref:            ref,
		innings:        []string{"MI 1st Innings", "GT 1st Innings", "Super Over 1"},
		pagesPerInning: 1,
		ballsPerPage:   6,
		regular:        2,
	})
	h := newHarness(f, nil, serviceOptions{})

	if _, err := h.svc.Run(ctx, []match.Ref{ref}); err != nil {
		t.Fatalf("run: %v", err)
	}

	meta, _ := h.matches.Metadata(1002)
	if !meta.HasSuperOver || meta.SuperOverCount != 1 {
		t.Fatalf("expected one super over, got=%+v", meta)
	}
	ev := h.matches.Events(1002)[match.Event{MatchID: 1002, Innings: "Super Over 1", Sequence: 1}.Key()]
	if !ev.SuperOver {
		t.Fatalf("expected super-over event flag, got=%+v", ev)
	}
}

func TestIngestionService_SecondRunSkipsCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1003)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A", "B"}, pagesPerInning: 2, ballsPerPage: 6, regular: 4})

	trackers := memory.NewTrackerRepository()
	first := newHarness(f, trackers, serviceOptions{runID: "run-1"})
	if _, err := first.svc.Run(ctx, []match.Ref{ref}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := newHarness(f, trackers, serviceOptions{runID: "run-2", matchDelay: time.Second})
	report, err := second.svc.Run(ctx, []match.Ref{ref})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	res := resultFor(t, report, 1003)
	if res.Outcome != OutcomeSkipped || res.Attempts != 0 || report.Attempted != 0 {
		t.Fatalf("expected skip without an attempt, got=%+v", res)
	}
	if f.count(ref.ScorecardURL) != 1 {
		t.Fatalf("expected no refetch of a completed match, got=%d", f.count(ref.ScorecardURL))
	}
	if len(second.sleeper.recorded()) != 0 {
		t.Fatalf("expected no match delay after a skipped match")
	}
}

func TestIngestionService_ForceReingestKeepsRowCounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1004)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A", "B"}, pagesPerInning: 2, ballsPerPage: 6, regular: 4, impact: 1})

	trackers := memory.NewTrackerRepository()
	first := newHarness(f, trackers, serviceOptions{runID: "run-1"})
	if _, err := first.svc.Run(ctx, []match.Ref{ref}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	forced := newHarness(f, trackers, serviceOptions{runID: "run-2", force: true, matches: first.matches})
	report, err := forced.svc.Run(ctx, []match.Ref{ref})
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}

	res := resultFor(t, report, 1004)
	if res.Outcome != OutcomeCompleted || res.EventRows != 24 || res.PlayerRows != 5 {
		t.Fatalf("expected unchanged totals after forced run, got=%+v", res)
	}
	if got := len(first.matches.Events(1004)); got != 24 {
		t.Fatalf("expected no duplicated events, got=%d", got)
	}
	rec, _, _ := trackers.Get(ctx, 1004)
	if rec.Attempts != 2 || rec.RunID != "run-2" {
		t.Fatalf("unexpected tracker record after forced run: %+v", rec)
	}
}

func TestIngestionService_ResumesInterruptedAndFailedMatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	interrupted, failed := testRef(1005), testRef(1006)
	scriptMatch(f, scriptedMatch{ref: interrupted, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	scriptMatch(f, scriptedMatch{ref: failed, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})

	past := time.Now().Add(-time.Minute)
	message := "timeout"
	trackers := memory.NewTrackerRepository(
		tracker.Record{ID: 1, MatchID: 1005, Status: tracker.StatusInProgress, RunID: "run-old", Attempts: 1, UpdatedAt: past},
		tracker.Record{ID: 2, MatchID: 1006, Status: tracker.StatusFailed, RunID: "run-old", Attempts: 3, ErrorMessage: &message, UpdatedAt: past},
	)
	h := newHarness(f, trackers, serviceOptions{runID: "run-new"})

	report, err := h.svc.Run(ctx, []match.Ref{interrupted, failed})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Completed != 2 {
		t.Fatalf("expected both matches resumed, got=%+v", report)
	}

	rec, _, _ := trackers.Get(ctx, 1006)
	if rec.Status != tracker.StatusCompleted || rec.Attempts != 4 || rec.ErrorMessage != nil {
		t.Fatalf("unexpected resumed record: %+v", rec)
	}
}

func TestIngestionService_FailedMatchDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	refs := []match.Ref{testRef(1007), testRef(1008), testRef(1009)}
	scriptMatch(f, scriptedMatch{ref: refs[0], innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	// 1008 has no pages at all
	scriptMatch(f, scriptedMatch{ref: refs[2], innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	h := newHarness(f, nil, serviceOptions{workers: 3})

	report, err := h.svc.Run(ctx, refs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Completed != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	res := resultFor(t, report, 1008)
	if res.ErrorKind != "fetch" {
		t.Fatalf("expected fetch failure, got=%+v", res)
	}
	rec, _, _ := h.trackers.Get(ctx, 1008)
	if rec.Status != tracker.StatusFailed || rec.ErrorMessage == nil {
		t.Fatalf("expected failed tracker record with a message, got=%+v", rec)
	}
	if _, ok := h.matches.Metadata(1008); ok {
		t.Fatalf("expected no rows for the failed match")
	}
}

func TestIngestionService_StoreOutageAbortsRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	refs := []match.Ref{testRef(1010), testRef(1011), testRef(1012)}
	for _, ref := range refs {
		scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	}

	repo := matchmock.NewRepository(t)
	repo.On("WriteMatch", mock.Anything, mock.AnythingOfType("match.RecordSet"), mock.Anything).
		Return(match.WriteStats{}, MarkStoreUnavailable(errors.New("connection refused"))).Once()
	h := newHarness(f, nil, serviceOptions{workers: 1, maxAttempts: 3, matches: repo})

	report, err := h.svc.Run(ctx, refs)
	if !IsStoreUnavailable(err) {
		t.Fatalf("expected store-unavailable error, got=%v", err)
	}
	if !report.Aborted {
		t.Fatalf("expected aborted report")
	}
	if res := resultFor(t, report, 1010); res.Outcome != OutcomeFailed || res.Attempts != 1 {
		t.Fatalf("expected one failed attempt for the first match, got=%+v", res)
	}
	if report.NotAttempted != 2 {
		t.Fatalf("expected remaining matches not attempted, got=%d", report.NotAttempted)
	}
	if f.count(refs[1].ScorecardURL) != 0 || f.count(refs[2].ScorecardURL) != 0 {
		t.Fatalf("expected no fetches after the outage")
	}
}

func TestIngestionService_RecoversFromParserPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	broken, healthy := testRef(1013), testRef(1014)
	scriptMatch(f, scriptedMatch{ref: broken, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	scriptMatch(f, scriptedMatch{ref: healthy, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	f.set(commentaryPageURL(broken.CommentaryURL(), 1, 1), "panic")
	h := newHarness(f, nil, serviceOptions{workers: 2})

	report, err := h.svc.Run(ctx, []match.Ref{broken, healthy})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	res := resultFor(t, report, 1013)
	if res.Outcome != OutcomeFailed || res.ErrorKind != "panic" {
		t.Fatalf("expected recovered panic, got=%+v", res)
	}
	if resultFor(t, report, 1014).Outcome != OutcomeCompleted {
		t.Fatalf("expected healthy match to complete")
	}
	rec, _, _ := h.trackers.Get(ctx, 1013)
	if rec.Status != tracker.StatusFailed {
		t.Fatalf("expected panicking match marked failed, got=%s", rec.Status)
	}
}

func TestIngestionService_RetriesFailedMatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1015)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	f.failNext(ref.ScorecardURL, &FetchError{Locator: ref.ScorecardURL, StatusCode: 404})
	h := newHarness(f, nil, serviceOptions{maxAttempts: 2, retryDelay: 5 * time.Second})

	report, err := h.svc.Run(ctx, []match.Ref{ref})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := resultFor(t, report, 1015)
	if res.Outcome != OutcomeCompleted || res.Attempts != 2 {
		t.Fatalf("expected completion on the second attempt, got=%+v", res)
	}
	delays := h.sleeper.recorded()
	if len(delays) != 1 || delays[0] != 5*time.Second {
		t.Fatalf("expected one retry delay, got=%v", delays)
	}
	rec, _, _ := h.trackers.Get(ctx, 1015)
	if rec.Attempts != 2 || rec.Status != tracker.StatusCompleted {
		t.Fatalf("unexpected tracker record: %+v", rec)
	}
}

func TestIngestionService_FreshClaimOfAnotherRunIsLeftAlone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1016)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	trackers := memory.NewTrackerRepository(tracker.Record{
		ID: 1, MatchID: 1016, Status: tracker.StatusInProgress, RunID: "run-other", Attempts: 1, UpdatedAt: time.Now().Add(time.Hour),
	})
	h := newHarness(f, trackers, serviceOptions{})

	report, err := h.svc.Run(ctx, []match.Ref{ref})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res := resultFor(t, report, 1016); res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skip, got=%+v", res)
	}
	rec, _, _ := trackers.Get(ctx, 1016)
	if rec.RunID != "run-other" {
		t.Fatalf("expected claim untouched, got=%+v", rec)
	}
}

func TestIngestionService_DuplicateRefsListedOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1017)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	h := newHarness(f, nil, serviceOptions{workers: 4})

	report, err := h.svc.Run(ctx, []match.Ref{ref, ref, {ID: 0, ScorecardURL: "bad"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Listed != 1 || len(report.Matches) != 1 || f.count(ref.ScorecardURL) != 1 {
		t.Fatalf("expected one listed match, got=%+v", report)
	}
}

func TestIngestionService_MatchDelayAfterAttempt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1018)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	h := newHarness(f, nil, serviceOptions{matchDelay: 2 * time.Second})

	if _, err := h.svc.Run(ctx, []match.Ref{ref}); err != nil {
		t.Fatalf("run: %v", err)
	}
	delays := h.sleeper.recorded()
	if len(delays) != 1 || delays[0] != 2*time.Second {
		t.Fatalf("expected one match delay, got=%v", delays)
	}
}

func TestIngestionService_ResetAllowsReingest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newScriptedFetcher()
	ref := testRef(1019)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	h := newHarness(f, nil, serviceOptions{})

	if _, err := h.svc.Run(ctx, []match.Ref{ref}); err != nil {
		t.Fatalf("run: %v", err)
	}
	deleted, err := h.svc.Reset(ctx, 1019)
	if err != nil || !deleted {
		t.Fatalf("reset: deleted=%v err=%v", deleted, err)
	}
	if _, ok := h.matches.Metadata(1019); ok {
		t.Fatalf("expected rows purged")
	}

	report, err := h.svc.Run(ctx, []match.Ref{ref})
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if report.Completed != 1 || f.count(ref.ScorecardURL) != 2 {
		t.Fatalf("expected match ingested again, got=%+v", report)
	}

	if _, err := h.svc.Reset(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for id 0, got=%v", err)
	}
}

func TestIngestionService_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newScriptedFetcher()
	ref := testRef(1020)
	scriptMatch(f, scriptedMatch{ref: ref, innings: []string{"A"}, pagesPerInning: 1, ballsPerPage: 6, regular: 2})
	h := newHarness(f, nil, serviceOptions{})

	report, err := h.svc.Run(ctx, []match.Ref{ref})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got=%v", err)
	}
	if report.NotAttempted != 1 || f.count(ref.ScorecardURL) != 0 {
		t.Fatalf("expected nothing attempted, got=%+v", report)
	}
}
