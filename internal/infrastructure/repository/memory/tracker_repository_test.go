package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
)

func TestTrackerRepository_ClaimTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	repo := NewTrackerRepository()

	rec, ok, err := repo.Claim(ctx, tracker.ClaimInput{MatchID: 7, RunID: "run-a", SourceURL: "u", Now: now, StaleBefore: now.Add(-time.Hour)})
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if rec.Status != tracker.StatusInProgress || rec.Attempts != 1 {
		t.Fatalf("unexpected claimed record: %+v", rec)
	}

	if rec.TakenOverFrom != "" {
		t.Fatalf("expected no takeover on first claim, got=%q", rec.TakenOverFrom)
	}

	t.Run("same run reclaims", func(t *testing.T) {
		rec, ok, _ := repo.Claim(ctx, tracker.ClaimInput{MatchID: 7, RunID: "run-a", Now: now, StaleBefore: now.Add(-time.Hour)})
		if !ok {
			t.Fatalf("expected idempotent claim for the owning run")
		}
		if rec.TakenOverFrom != "" {
			t.Fatalf("expected reclaim by owner not to count as takeover, got=%q", rec.TakenOverFrom)
		}
	})

	t.Run("fresh claim of another run refused", func(t *testing.T) {
		cur, ok, _ := repo.Claim(ctx, tracker.ClaimInput{MatchID: 7, RunID: "run-b", Now: now, StaleBefore: now.Add(-time.Hour)})
		if ok {
			t.Fatalf("expected conflict for another run's fresh claim")
		}
		if cur.Status != tracker.StatusInProgress {
			t.Fatalf("expected current status in conflict, got=%s", cur.Status)
		}
	})

	t.Run("stale claim taken over", func(t *testing.T) {
		rec, ok, _ := repo.Claim(ctx, tracker.ClaimInput{MatchID: 7, RunID: "run-b", Now: now.Add(time.Minute), StaleBefore: now})
		if !ok || rec.RunID != "run-b" || rec.Attempts != 3 {
			t.Fatalf("expected takeover by run-b, got ok=%v rec=%+v", ok, rec)
		}
		if rec.TakenOverFrom != "run-a" {
			t.Fatalf("expected takeover from run-a, got=%q", rec.TakenOverFrom)
		}
		if stored, _, _ := repo.Get(ctx, 7); stored.TakenOverFrom != "" {
			t.Fatalf("takeover marker must not be stored, got=%q", stored.TakenOverFrom)
		}
	})

	t.Run("only the owner finishes", func(t *testing.T) {
		if _, ok, _ := repo.Complete(ctx, tracker.CompleteInput{MatchID: 7, RunID: "run-a", Now: now}); ok {
			t.Fatalf("expected lost claim to refuse completion")
		}
		rec, ok, _ := repo.Complete(ctx, tracker.CompleteInput{MatchID: 7, RunID: "run-b", MetadataRows: 1, EventRows: 240, Now: now.Add(2 * time.Minute)})
		if !ok || rec.Status != tracker.StatusCompleted || rec.EventRows != 240 || rec.CompletedAt == nil {
			t.Fatalf("unexpected completion: ok=%v rec=%+v", ok, rec)
		}
	})

	t.Run("completed needs force", func(t *testing.T) {
		if _, ok, _ := repo.Claim(ctx, tracker.ClaimInput{MatchID: 7, RunID: "run-c", Now: now}); ok {
			t.Fatalf("expected completed match to refuse an unforced claim")
		}
		rec, ok, _ := repo.Claim(ctx, tracker.ClaimInput{MatchID: 7, RunID: "run-c", Force: true, Now: now.Add(3 * time.Minute)})
		if !ok || rec.EventRows != 240 || rec.TakenOverFrom != "" {
			t.Fatalf("expected forced claim keeping previous counts, got ok=%v rec=%+v", ok, rec)
		}
	})
}

func TestTrackerRepository_FailListStatsDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	repo := NewTrackerRepository()

	for i, id := range []int64{1, 2, 3} {
		now := base.Add(time.Duration(i) * time.Minute)
		if _, ok, _ := repo.Claim(ctx, tracker.ClaimInput{MatchID: id, RunID: "run", Now: now}); !ok {
			t.Fatalf("claim %d refused", id)
		}
	}
	if _, ok, _ := repo.Fail(ctx, tracker.FailInput{MatchID: 1, RunID: "run", ErrorMessage: "boom", Now: base.Add(5 * time.Minute)}); !ok {
		t.Fatalf("fail refused")
	}
	if _, ok, _ := repo.Complete(ctx, tracker.CompleteInput{MatchID: 2, RunID: "run", MetadataRows: 1, EventRows: 10, Now: base.Add(6 * time.Minute)}); !ok {
		t.Fatalf("complete refused")
	}

	failed, _ := repo.List(ctx, tracker.StatusFailed, 10)
	if len(failed) != 1 || failed[0].MatchID != 1 || *failed[0].ErrorMessage != "boom" {
		t.Fatalf("unexpected failed listing: %+v", failed)
	}

	ids, _ := repo.CompletedMatchIDs(ctx)
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unexpected completed ids: %v", ids)
	}

	stats, _ := repo.Stats(ctx)
	if stats.Total != 3 || stats.Failed != 1 || stats.Completed != 1 || stats.InProgress != 1 || stats.EventRows != 10 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if !stats.FirstUpdateAt.Equal(base.Add(2*time.Minute)) || !stats.LastUpdateAt.Equal(base.Add(6*time.Minute)) {
		t.Fatalf("unexpected update bounds: first=%v last=%v", stats.FirstUpdateAt, stats.LastUpdateAt)
	}

	deleted, _ := repo.Delete(ctx, 1)
	if !deleted {
		t.Fatalf("expected delete of existing record")
	}
	if deleted, _ = repo.Delete(ctx, 1); deleted {
		t.Fatalf("expected second delete to report nothing removed")
	}
}
