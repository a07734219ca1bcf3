package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
)

type TrackerRepository struct {
	mu     sync.RWMutex
	items  map[int64]tracker.Record
	nextID int64
}

func NewTrackerRepository(records ...tracker.Record) *TrackerRepository {
	items := make(map[int64]tracker.Record, len(records))
	var nextID int64
	for _, rec := range records {
		if rec.ID > nextID {
			nextID = rec.ID
		}
		items[rec.MatchID] = rec
	}
	return &TrackerRepository{items: items, nextID: nextID}
}

func (r *TrackerRepository) Get(_ context.Context, matchID int64) (tracker.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.items[matchID]
	return cloneRecord(rec), ok, nil
}

func (r *TrackerRepository) Claim(_ context.Context, input tracker.ClaimInput) (tracker.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.items[input.MatchID]
	takenOverFrom := ""
	if !exists {
		r.nextID++
		rec = tracker.Record{
			ID:        r.nextID,
			MatchID:   input.MatchID,
			CreatedAt: input.Now,
		}
	} else if !claimable(rec, input) {
		return cloneRecord(rec), false, nil
	} else if rec.Status == tracker.StatusInProgress && rec.RunID != input.RunID {
		takenOverFrom = rec.RunID
	}

	rec.Status = tracker.StatusInProgress
	rec.RunID = input.RunID
	rec.SourceURL = input.SourceURL
	rec.Attempts++
	rec.ErrorMessage = nil
	rec.UpdatedAt = input.Now
	r.items[input.MatchID] = rec

	out := cloneRecord(rec)
	out.TakenOverFrom = takenOverFrom
	return out, true, nil
}

func claimable(rec tracker.Record, input tracker.ClaimInput) bool {
	if tracker.CanClaim(rec.Status, true, input.Force) {
		return true
	}
	if rec.Status != tracker.StatusInProgress {
		return false
	}
	return rec.RunID == input.RunID || !rec.UpdatedAt.After(input.StaleBefore)
}

func (r *TrackerRepository) Complete(_ context.Context, input tracker.CompleteInput) (tracker.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[input.MatchID]
	if !ok || !tracker.CanFinish(rec.Status) || rec.RunID != input.RunID {
		return cloneRecord(rec), false, nil
	}

	completedAt := input.Now
	rec.Status = tracker.StatusCompleted
	rec.MetadataRows = input.MetadataRows
	rec.EventRows = input.EventRows
	rec.ErrorMessage = nil
	rec.UpdatedAt = input.Now
	rec.CompletedAt = &completedAt
	r.items[input.MatchID] = rec
	return cloneRecord(rec), true, nil
}

func (r *TrackerRepository) Fail(_ context.Context, input tracker.FailInput) (tracker.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[input.MatchID]
	if !ok || !tracker.CanFinish(rec.Status) || rec.RunID != input.RunID {
		return cloneRecord(rec), false, nil
	}

	msg := input.ErrorMessage
	rec.Status = tracker.StatusFailed
	rec.ErrorMessage = &msg
	rec.UpdatedAt = input.Now
	r.items[input.MatchID] = rec
	return cloneRecord(rec), true, nil
}

func (r *TrackerRepository) List(_ context.Context, status tracker.Status, limit int) ([]tracker.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tracker.Record, 0, len(r.items))
	for _, rec := range r.items {
		if rec.Status == status {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].MatchID < out[j].MatchID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TrackerRepository) CompletedMatchIDs(_ context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int64, 0, len(r.items))
	for id, rec := range r.items {
		if rec.Status == tracker.StatusCompleted {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *TrackerRepository) Stats(_ context.Context) (tracker.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		stats       tracker.Stats
		first, last time.Time
	)
	for _, rec := range r.items {
		stats.Total++
		switch rec.Status {
		case tracker.StatusInProgress:
			stats.InProgress++
		case tracker.StatusCompleted:
			stats.Completed++
		case tracker.StatusFailed:
			stats.Failed++
		}
		stats.MetadataRows += int64(rec.MetadataRows)
		stats.EventRows += int64(rec.EventRows)
		if first.IsZero() || rec.UpdatedAt.Before(first) {
			first = rec.UpdatedAt
		}
		if rec.UpdatedAt.After(last) {
			last = rec.UpdatedAt
		}
	}
	if stats.Total > 0 {
		stats.FirstUpdateAt = &first
		stats.LastUpdateAt = &last
	}
	return stats, nil
}

func (r *TrackerRepository) Delete(_ context.Context, matchID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[matchID]; !ok {
		return false, nil
	}
	delete(r.items, matchID)
	return true, nil
}

func cloneRecord(rec tracker.Record) tracker.Record {
	if rec.ErrorMessage != nil {
		msg := *rec.ErrorMessage
		rec.ErrorMessage = &msg
	}
	if rec.CompletedAt != nil {
		at := *rec.CompletedAt
		rec.CompletedAt = &at
	}
	return rec
}
