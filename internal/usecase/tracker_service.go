package usecase

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
)

const maxTrackerErrorLen = 2000

// CompletedSet is a probabilistic set of completed match ids. MayContain
// never returns false for an added id.
type CompletedSet interface {
	Add(matchID int64)
	MayContain(matchID int64) bool
}

type TrackerConfig struct {
	RunID      string
	Force      bool
	StaleAfter time.Duration
	// PrefilterThreshold is the listing size from which completed ids are
	// preloaded into a CompletedSet. Zero disables the prefilter.
	PrefilterThreshold int
	NewCompletedSet    func(expected uint) CompletedSet
	Now                func() time.Time
	Logger             *logging.Logger
}

// Tracker records per-match ingestion progress so an interrupted run can resume.
type Tracker struct {
	repo   tracker.Repository
	cfg    TrackerConfig
	now    func() time.Time
	logger *logging.Logger

	completed CompletedSet
}

func NewTracker(repo tracker.Repository, cfg TrackerConfig) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{repo: repo, cfg: cfg, now: now, logger: logger}
}

func (t *Tracker) RunID() string { return t.cfg.RunID }

// Warm preloads completed ids when the listing is large enough to make
// per-match lookups worth skipping. Positives are still confirmed against
// the store.
func (t *Tracker) Warm(ctx context.Context, listed int) error {
	if t.cfg.NewCompletedSet == nil || t.cfg.PrefilterThreshold <= 0 || listed < t.cfg.PrefilterThreshold || t.cfg.Force {
		return nil
	}
	ctx, span := startUsecaseSpan(ctx, "usecase.Tracker.Warm")
	defer span.End()

	ids, err := t.repo.CompletedMatchIDs(ctx)
	if err != nil {
		return fmt.Errorf("load completed match ids: %w", err)
	}
	set := t.cfg.NewCompletedSet(uint(max(len(ids), listed)))
	for _, id := range ids {
		set.Add(id)
	}
	t.completed = set
	t.logger.InfoContext(ctx, "completed-match prefilter loaded", "completed", len(ids), "listed", listed)
	return nil
}

// ShouldProcess reports whether the match still needs work in this run.
func (t *Tracker) ShouldProcess(ctx context.Context, matchID int64) (bool, error) {
	if t.completed != nil && !t.completed.MayContain(matchID) {
		return true, nil
	}

	rec, ok, err := t.repo.Get(ctx, matchID)
	if err != nil {
		return false, fmt.Errorf("get tracker record match_id=%d: %w", matchID, err)
	}
	if !ok {
		return true, nil
	}

	switch rec.Status {
	case tracker.StatusCompleted:
		return t.cfg.Force, nil
	case tracker.StatusFailed:
		return true, nil
	case tracker.StatusInProgress:
		return rec.RunID == t.cfg.RunID || t.isStale(rec), nil
	default:
		return false, fmt.Errorf("%w: match %d has unknown tracker status %q", ErrInvalidInput, matchID, rec.Status)
	}
}

// Begin claims the match for this run.
func (t *Tracker) Begin(ctx context.Context, matchID int64, sourceURL string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.Tracker.Begin", attribute.Int64("match_id", matchID))
	var err error
	defer func() { endSpan(span, err) }()

	now := t.now().UTC()
	rec, ok, err := t.repo.Claim(ctx, tracker.ClaimInput{
		MatchID:     matchID,
		SourceURL:   sourceURL,
		RunID:       t.cfg.RunID,
		Force:       t.cfg.Force,
		StaleBefore: now.Add(-t.cfg.StaleAfter),
		Now:         now,
	})
	if err != nil {
		err = fmt.Errorf("claim match_id=%d: %w", matchID, err)
		return err
	}
	if !ok {
		err = &TrackerConflictError{MatchID: matchID, Op: "begin", Current: rec.Status}
		return err
	}
	if rec.TakenOverFrom != "" {
		t.logger.WarnContext(ctx, "tracker claim taken over from another run",
			"match_id", matchID,
			"previous_run_id", rec.TakenOverFrom,
			"run_id", t.cfg.RunID,
			"attempts", rec.Attempts,
		)
		return nil
	}
	t.logger.DebugContext(ctx, "match claimed", "match_id", matchID, "attempts", rec.Attempts)
	return nil
}

// Complete marks the match done with the stored row totals.
func (t *Tracker) Complete(ctx context.Context, matchID int64, counts match.Counts) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.Tracker.Complete", attribute.Int64("match_id", matchID))
	var err error
	defer func() { endSpan(span, err) }()

	rec, ok, err := t.repo.Complete(ctx, tracker.CompleteInput{
		MatchID:      matchID,
		RunID:        t.cfg.RunID,
		MetadataRows: counts.MetadataRows,
		EventRows:    counts.EventRows,
		Now:          t.now().UTC(),
	})
	if err != nil {
		err = fmt.Errorf("complete match_id=%d: %w", matchID, err)
		return err
	}
	if !ok {
		err = &TrackerConflictError{MatchID: matchID, Op: "complete", Current: rec.Status}
		return err
	}
	if t.completed != nil {
		t.completed.Add(matchID)
	}
	return nil
}

// Fail records the failure reason; the match stays eligible for later runs.
func (t *Tracker) Fail(ctx context.Context, matchID int64, message string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.Tracker.Fail", attribute.Int64("match_id", matchID))
	var err error
	defer func() { endSpan(span, err) }()

	rec, ok, err := t.repo.Fail(ctx, tracker.FailInput{
		MatchID:      matchID,
		RunID:        t.cfg.RunID,
		ErrorMessage: truncateRunes(message, maxTrackerErrorLen),
		Now:          t.now().UTC(),
	})
	if err != nil {
		err = fmt.Errorf("fail match_id=%d: %w", matchID, err)
		return err
	}
	if !ok {
		err = &TrackerConflictError{MatchID: matchID, Op: "fail", Current: rec.Status}
		return err
	}
	return nil
}

func (t *Tracker) Get(ctx context.Context, matchID int64) (tracker.Record, error) {
	rec, ok, err := t.repo.Get(ctx, matchID)
	if err != nil {
		return tracker.Record{}, fmt.Errorf("get tracker record match_id=%d: %w", matchID, err)
	}
	if !ok {
		return tracker.Record{}, fmt.Errorf("%w: no tracker record for match %d", ErrNotFound, matchID)
	}
	return rec, nil
}

func (t *Tracker) Stats(ctx context.Context) (tracker.Stats, error) {
	stats, err := t.repo.Stats(ctx)
	if err != nil {
		return tracker.Stats{}, fmt.Errorf("tracker stats: %w", err)
	}
	return stats, nil
}

func (t *Tracker) List(ctx context.Context, status tracker.Status, limit int) ([]tracker.Record, error) {
	if _, err := tracker.ParseStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if limit <= 0 {
		limit = 50
	}
	items, err := t.repo.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list tracker records status=%s: %w", status, err)
	}
	return items, nil
}

// Reset removes the tracker record so the match is ingested again.
func (t *Tracker) Reset(ctx context.Context, matchID int64) (bool, error) {
	deleted, err := t.repo.Delete(ctx, matchID)
	if err != nil {
		return false, fmt.Errorf("delete tracker record match_id=%d: %w", matchID, err)
	}
	return deleted, nil
}

func (t *Tracker) isStale(rec tracker.Record) bool {
	return !rec.UpdatedAt.After(t.now().UTC().Add(-t.cfg.StaleAfter))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
