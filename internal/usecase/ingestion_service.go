package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/platform/metrics"
	"github.com/riskibarqy/cricket-ingest/internal/platform/resilience"
)

const (
	reportedFailures  = 5
	failRecordTimeout = 10 * time.Second
)

// ParseIssue is a fragment the parser dropped or degraded.
type ParseIssue struct {
	Locator string
	Reason  string
}

// PageParser turns fetched pages into candidate rows.
type PageParser interface {
	PageInspector
	ParseSummary(matchID int64, body []byte) (match.Metadata, []match.Player, []ParseIssue, error)
	ParseCommentary(matchID int64, body []byte, innings match.Innings) ([]match.Event, []ParseIssue)
}

type IngestionConfig struct {
	Workers         int
	MatchDelay      time.Duration
	MaxAttempts     int
	MatchRetryDelay time.Duration
	Sleep           resilience.SleepFunc
	Now             func() time.Time
	Logger          *logging.Logger
}

// IngestionService drives every listed match through fetch, parse and
// persist, recording progress in the tracker.
type IngestionService struct {
	tracker   *Tracker
	paginator *Paginator
	parser    PageParser
	persister *Persister

	workers     int
	matchDelay  time.Duration
	maxAttempts int
	retryDelay  time.Duration
	sleep       resilience.SleepFunc
	now         func() time.Time
	logger      *logging.Logger
}

func NewIngestionService(
	tracker *Tracker,
	paginator *Paginator,
	parser PageParser,
	persister *Persister,
	cfg IngestionConfig,
) *IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = resilience.Sleep
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &IngestionService{
		tracker:     tracker,
		paginator:   paginator,
		parser:      parser,
		persister:   persister,
		workers:     max(cfg.Workers, 1),
		matchDelay:  max(cfg.MatchDelay, 0),
		maxAttempts: max(cfg.MaxAttempts, 1),
		retryDelay:  max(cfg.MatchRetryDelay, 0),
		sleep:       sleep,
		now:         now,
		logger:      logger,
	}
}

// Run ingests refs. One match failing never stops the others; a store
// outage or cancellation stops scheduling new matches and returns an error
// alongside the partial report.
func (s *IngestionService) Run(ctx context.Context, refs []match.Ref) (RunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Run")
	var runErr error
	defer func() { endSpan(span, runErr) }()

	refs = dedupeRefs(refs)
	report := RunReport{
		RunID:     s.tracker.RunID(),
		StartedAt: s.now().UTC(),
		Listed:    len(refs),
		Matches:   make([]MatchResult, len(refs)),
	}
	for i, ref := range refs {
		report.Matches[i] = MatchResult{MatchID: ref.ID, Locator: ref.ScorecardURL, Outcome: OutcomeNotAttempted}
	}
	s.logger.InfoContext(ctx, "ingestion run started", "run_id", report.RunID, "matches", len(refs), "workers", s.workers)

	if err := s.tracker.Warm(ctx, len(refs)); err != nil {
		if IsStoreUnavailable(err) {
			runErr = err
			return s.finish(ctx, report, err), err
		}
		s.logger.WarnContext(ctx, "completed-match prefilter disabled", "error", err)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	pool, err := ants.NewPool(s.workers, ants.WithPanicHandler(func(p any) {
		s.logger.Error("ingestion worker panicked", "panic", fmt.Sprint(p))
	}))
	if err != nil {
		runErr = fmt.Errorf("create worker pool: %w", err)
		return s.finish(ctx, report, runErr), runErr
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, ref := range refs {
		if runCtx.Err() != nil {
			break
		}
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if runCtx.Err() != nil {
				return
			}
			res, err := s.processMatch(runCtx, ref)
			report.Matches[i] = res
			if IsStoreUnavailable(err) {
				cancel(err)
				return
			}
			if res.Attempts > 0 && s.matchDelay > 0 {
				_ = s.sleep(runCtx, s.matchDelay)
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			runErr = fmt.Errorf("submit match %d: %w", ref.ID, err)
			cancel(runErr)
			break
		}
	}
	wg.Wait()

	if cause := context.Cause(runCtx); cause != nil && runErr == nil {
		switch {
		case IsStoreUnavailable(cause):
			runErr = cause
		case ctx.Err() != nil:
			runErr = ctx.Err()
		}
	}
	return s.finish(ctx, report, runErr), runErr
}

func (s *IngestionService) finish(ctx context.Context, report RunReport, err error) RunReport {
	report.FinishedAt = s.now().UTC()
	report.tally()
	if err != nil {
		report.Aborted = true
		report.AbortReason = err.Error()
	}

	s.logger.InfoContext(ctx, "ingestion run finished",
		"run_id", report.RunID,
		"listed", report.Listed,
		"attempted", report.Attempted,
		"completed", report.Completed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"conflicts", report.Conflicts,
		"not_attempted", report.NotAttempted,
		"aborted", report.Aborted,
		"duration", report.Duration().String(),
	)
	for _, f := range report.Failures(reportedFailures) {
		s.logger.WarnContext(ctx, "match failed", "match_id", f.MatchID, "kind", f.ErrorKind, "error", f.Error)
	}
	return report
}

// processMatch runs every attempt of one match and converts panics into a
// failed result.
func (s *IngestionService) processMatch(ctx context.Context, ref match.Ref) (MatchResult, error) {
	started := time.Now()
	res := MatchResult{MatchID: ref.ID, Locator: ref.ScorecardURL, Outcome: OutcomeNotAttempted}

	var (
		pc     panics.Catcher
		resErr error
	)
	pc.Try(func() { res, resErr = s.attemptAll(ctx, ref) })
	if r := pc.Recovered(); r != nil {
		err := crerr.Mark(r.AsError(), ErrPanic)
		resErr = err
		s.logger.ErrorContext(ctx, "match pipeline panicked", "match_id", ref.ID, "error", err)
		s.recordFailure(ctx, ref, err)
		res.Outcome = OutcomeFailed
		res.Attempts = max(res.Attempts, 1)
		res.ErrorKind = ErrorKind(err)
		res.Error = err.Error()
	}

	res.DurationMS = time.Since(started).Milliseconds()
	metrics.Matches.WithLabelValues(string(res.Outcome)).Inc()
	if res.Attempts > 0 {
		metrics.MatchDuration.Observe(time.Since(started).Seconds())
	}
	return res, resErr
}

func (s *IngestionService) attemptAll(ctx context.Context, ref match.Ref) (MatchResult, error) {
	for attempt := 1; ; attempt++ {
		res, err := s.attempt(ctx, ref)
		res.Attempts = attempt
		if res.Outcome != OutcomeFailed || attempt >= s.maxAttempts || !retryableMatchError(ctx, err) {
			if res.Outcome == OutcomeSkipped && attempt == 1 {
				res.Attempts = 0
			}
			return res, err
		}

		delay := s.retryDelay << (attempt - 1)
		s.logger.WarnContext(ctx, "match failed, retrying",
			"match_id", ref.ID, "attempt", attempt, "delay", delay.String(), "error", res.Error)
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return res, err
		}
	}
}

// attempt returns the failure cause alongside a failed result.
func (s *IngestionService) attempt(ctx context.Context, ref match.Ref) (MatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.attempt", attribute.Int64("match_id", ref.ID))
	defer span.End()

	res := MatchResult{MatchID: ref.ID, Locator: ref.ScorecardURL}
	failWith := func(err error) (MatchResult, error) {
		res.Outcome = OutcomeFailed
		res.ErrorKind = ErrorKind(err)
		res.Error = err.Error()
		return res, err
	}

	should, err := s.tracker.ShouldProcess(ctx, ref.ID)
	if err != nil {
		return failWith(err)
	}
	if !should {
		res.Outcome = OutcomeSkipped
		s.logger.DebugContext(ctx, "match already ingested, skipping", "match_id", ref.ID)
		return res, nil
	}

	if err := s.tracker.Begin(ctx, ref.ID, ref.ScorecardURL); err != nil {
		var conflict *TrackerConflictError
		if errors.As(err, &conflict) {
			res.Outcome = OutcomeConflict
			if conflict.Current == tracker.StatusCompleted {
				res.Outcome = OutcomeSkipped
			}
			res.Error = err.Error()
			res.ErrorKind = ErrorKind(err)
			s.logger.InfoContext(ctx, "match claimed elsewhere", "match_id", ref.ID, "status", string(conflict.Current))
			return res, nil
		}
		return failWith(err)
	}

	set, walk, issues, err := s.collect(ctx, ref)
	res.Pages = walk.Fetched
	res.Retries = walk.Retries
	res.LimitReached = walk.LimitReached
	res.ParseIssues = issues
	if err != nil {
		s.recordFailure(ctx, ref, err)
		return failWith(err)
	}

	stats, err := s.persister.Persist(ctx, set)
	if err != nil {
		s.recordFailure(ctx, ref, err)
		return failWith(err)
	}
	res.MetadataRows = stats.Stored.MetadataRows
	res.EventRows = stats.Stored.EventRows
	res.PlayerRows = stats.Stored.PlayerRows
	res.EventsFailed = stats.EventsFailed
	res.PlayersFailed = stats.PlayersFailed

	if err := s.tracker.Complete(ctx, ref.ID, stats.Stored); err != nil {
		if IsConflict(err) {
			res.Outcome = OutcomeConflict
			res.ErrorKind = ErrorKind(err)
			res.Error = err.Error()
			return res, nil
		}
		return failWith(err)
	}

	res.Outcome = OutcomeCompleted
	s.logger.InfoContext(ctx, "match ingested",
		"match_id", ref.ID,
		"events", stats.Stored.EventRows,
		"players", stats.Stored.PlayerRows,
		"pages", walk.Fetched,
		"limit_reached", walk.LimitReached,
	)
	return res, nil
}

// collect walks the match pages and assembles its record set.
func (s *IngestionService) collect(ctx context.Context, ref match.Ref) (match.RecordSet, WalkStats, int, error) {
	var (
		set         match.RecordSet
		haveSummary bool
		issues      int
	)
	sequence := make(map[string]int)

	pages, walk := s.paginator.Walk(ctx, ref)
	for page, err := range pages {
		if err != nil {
			return match.RecordSet{}, *walk, issues, err
		}

		switch page.Kind {
		case PageSummary:
			meta, players, found, err := s.parser.ParseSummary(ref.ID, page.Body)
			issues += s.logIssues(ctx, ref, page, found)
			if err != nil {
				return match.RecordSet{}, *walk, issues, &ParseError{MatchID: ref.ID, Kind: page.Kind, Locator: page.Locator, Reason: err.Error()}
			}
			set.Metadata = meta
			set.Players = players
			haveSummary = true

		case PageIndex:
			innings, err := s.parser.ParseInnings(page.Body)
			if err != nil {
				return match.RecordSet{}, *walk, issues, &ParseError{MatchID: ref.ID, Kind: page.Kind, Locator: page.Locator, Reason: err.Error()}
			}
			set.Metadata.ApplyInnings(innings)

		case PageCommentary:
			events, found := s.parser.ParseCommentary(ref.ID, page.Body, page.Innings)
			issues += s.logIssues(ctx, ref, page, found)
			for _, ev := range events {
				sequence[page.Innings.Label]++
				ev.Sequence = sequence[page.Innings.Label]
				set.Events = append(set.Events, ev)
			}
		}
	}

	if !haveSummary {
		return match.RecordSet{}, *walk, issues, &ParseError{MatchID: ref.ID, Kind: PageSummary, Locator: ref.ScorecardURL, Reason: "summary page missing"}
	}
	return set, *walk, issues, nil
}

func (s *IngestionService) logIssues(ctx context.Context, ref match.Ref, page Page, issues []ParseIssue) int {
	for _, issue := range issues {
		s.logger.WarnContext(ctx, "parse issue",
			"match_id", ref.ID,
			"kind", string(page.Kind),
			"locator", page.Locator,
			"fragment", issue.Locator,
			"reason", issue.Reason,
		)
	}
	if len(issues) > 0 {
		metrics.ParseIssues.WithLabelValues(string(page.Kind)).Add(float64(len(issues)))
	}
	return len(issues)
}

// recordFailure survives cancellation of ctx so an interrupted match is
// still marked failed when the store is reachable.
func (s *IngestionService) recordFailure(ctx context.Context, ref match.Ref, cause error) {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failRecordTimeout)
	defer cancel()

	if err := s.tracker.Fail(failCtx, ref.ID, cause.Error()); err != nil {
		s.logger.ErrorContext(ctx, "record match failure", "match_id", ref.ID, "error", err, "cause", cause)
	}
}

// Reset deletes a match's rows and tracker record so the next run ingests it again.
func (s *IngestionService) Reset(ctx context.Context, matchID int64) (bool, error) {
	if matchID <= 0 {
		return false, fmt.Errorf("%w: match id must be greater than zero", ErrInvalidInput)
	}
	if err := s.persister.Purge(ctx, matchID); err != nil {
		return false, err
	}
	return s.tracker.Reset(ctx, matchID)
}

func retryableMatchError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	return !IsStoreUnavailable(err) && !IsConflict(err)
}

func dedupeRefs(refs []match.Ref) []match.Ref {
	seen := make(map[int64]struct{}, len(refs))
	out := make([]match.Ref, 0, len(refs))
	for _, ref := range refs {
		if ref.ID <= 0 {
			continue
		}
		if _, ok := seen[ref.ID]; ok {
			continue
		}
		seen[ref.ID] = struct{}{}
		out = append(out, ref)
	}
	return out
}
