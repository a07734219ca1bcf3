package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
	qb "github.com/riskibarqy/cricket-ingest/internal/platform/querybuilder"
)

// TrackerRepository keeps one match_download_tracker row per match. Every
// transition is a single conditional statement so concurrent runs cannot
// both own a match.
type TrackerRepository struct {
	db *sqlx.DB
}

func NewTrackerRepository(db *sqlx.DB) *TrackerRepository {
	return &TrackerRepository{db: db}
}

func (r *TrackerRepository) Get(ctx context.Context, matchID int64) (tracker.Record, bool, error) {
	query, args, err := qb.Select(trackerColumns...).From(trackerTable).
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return tracker.Record{}, false, fmt.Errorf("build select tracker record query: %w", err)
	}

	var row trackerRecordRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return tracker.Record{}, false, nil
		}
		return tracker.Record{}, false, storeError(fmt.Errorf("select tracker record match_id=%d: %w", matchID, err))
	}
	return row.toDomain(), true, nil
}

func (r *TrackerRepository) Claim(ctx context.Context, input tracker.ClaimInput) (tracker.Record, bool, error) {
	model := trackerClaimInsertModel{
		MatchID:   input.MatchID,
		Status:    string(tracker.StatusInProgress),
		SourceURL: input.SourceURL,
		RunID:     input.RunID,
		Attempts:  1,
		CreatedAt: input.Now,
		UpdatedAt: input.Now,
	}
	cols, err := qb.Columns(model)
	if err != nil {
		return tracker.Record{}, false, fmt.Errorf("tracker claim columns: %w", err)
	}
	forceArg, staleArg, matchArg := len(cols)+1, len(cols)+2, len(cols)+3

	// the CTE reads the row as it was before this statement
	prefix := fmt.Sprintf(`WITH previous AS (
    SELECT status, run_id FROM %s WHERE match_id = $%d
)
`, trackerTable, matchArg)
	suffix := fmt.Sprintf(`ON CONFLICT (match_id)
DO UPDATE SET
    status = EXCLUDED.status,
    source_url = EXCLUDED.source_url,
    run_id = EXCLUDED.run_id,
    attempts = t.attempts + 1,
    error_message = NULL,
    updated_at = EXCLUDED.updated_at
WHERE t.status = 'failed'
    OR (t.status = 'completed' AND $%d::boolean)
    OR (t.status = 'in_progress' AND (t.run_id = EXCLUDED.run_id OR t.updated_at <= $%d))
RETURNING %s,
    COALESCE((SELECT p.run_id FROM previous p WHERE p.status = 'in_progress' AND p.run_id <> t.run_id), '') AS taken_over_from`,
		forceArg, staleArg, strings.Join(trackerColumns, ", "))

	query, args, err := qb.InsertModel(trackerTable+" AS t", model, suffix)
	if err != nil {
		return tracker.Record{}, false, fmt.Errorf("build claim tracker query: %w", err)
	}
	args = append(args, input.Force, input.StaleBefore, input.MatchID)

	var row trackerClaimRow
	if err := r.db.GetContext(ctx, &row, prefix+query, args...); err != nil {
		if isNotFound(err) {
			return r.current(ctx, input.MatchID)
		}
		return tracker.Record{}, false, storeError(fmt.Errorf("claim tracker record match_id=%d: %w", input.MatchID, err))
	}
	return row.toDomain(), true, nil
}

func (r *TrackerRepository) Complete(ctx context.Context, input tracker.CompleteInput) (tracker.Record, bool, error) {
	query, args, err := qb.Update(trackerTable).
		Set("status", string(tracker.StatusCompleted)).
		Set("metadata_rows", input.MetadataRows).
		Set("events_rows", input.EventRows).
		Set("error_message", nil).
		Set("updated_at", input.Now).
		Set("completed_at", input.Now).
		Where(
			qb.Eq("match_id", input.MatchID),
			qb.Eq("status", string(tracker.StatusInProgress)),
			qb.Eq("run_id", input.RunID),
		).
		Suffix("RETURNING " + strings.Join(trackerColumns, ", ")).
		ToSQL()
	if err != nil {
		return tracker.Record{}, false, fmt.Errorf("build complete tracker query: %w", err)
	}
	return r.transition(ctx, input.MatchID, "complete", query, args)
}

func (r *TrackerRepository) Fail(ctx context.Context, input tracker.FailInput) (tracker.Record, bool, error) {
	query, args, err := qb.Update(trackerTable).
		Set("status", string(tracker.StatusFailed)).
		Set("error_message", input.ErrorMessage).
		Set("updated_at", input.Now).
		Where(
			qb.Eq("match_id", input.MatchID),
			qb.Eq("status", string(tracker.StatusInProgress)),
			qb.Eq("run_id", input.RunID),
		).
		Suffix("RETURNING " + strings.Join(trackerColumns, ", ")).
		ToSQL()
	if err != nil {
		return tracker.Record{}, false, fmt.Errorf("build fail tracker query: %w", err)
	}
	return r.transition(ctx, input.MatchID, "fail", query, args)
}

func (r *TrackerRepository) transition(ctx context.Context, matchID int64, op, query string, args []any) (tracker.Record, bool, error) {
	var row trackerRecordRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return r.current(ctx, matchID)
		}
		return tracker.Record{}, false, storeError(fmt.Errorf("%s tracker record match_id=%d: %w", op, matchID, err))
	}
	return row.toDomain(), true, nil
}

// current reports a refused transition together with the row that blocked it.
func (r *TrackerRepository) current(ctx context.Context, matchID int64) (tracker.Record, bool, error) {
	rec, _, err := r.Get(ctx, matchID)
	if err != nil {
		return tracker.Record{}, false, err
	}
	return rec, false, nil
}

func (r *TrackerRepository) List(ctx context.Context, status tracker.Status, limit int) ([]tracker.Record, error) {
	query, args, err := qb.Select(trackerColumns...).From(trackerTable).
		Where(qb.Eq("status", string(status))).
		OrderBy("updated_at DESC", "match_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list tracker records query: %w", err)
	}

	var rows []trackerRecordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storeError(fmt.Errorf("list tracker records status=%s: %w", status, err))
	}

	out := make([]tracker.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TrackerRepository) CompletedMatchIDs(ctx context.Context) ([]int64, error) {
	query, args, err := qb.Select("match_id").From(trackerTable).
		Where(qb.Eq("status", string(tracker.StatusCompleted))).
		OrderBy("match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build completed match ids query: %w", err)
	}

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, storeError(fmt.Errorf("select completed match ids: %w", err))
	}
	return ids, nil
}

func (r *TrackerRepository) Stats(ctx context.Context) (tracker.Stats, error) {
	query, args, err := qb.Select(
		"COUNT(*) AS total",
		"COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress",
		"COUNT(*) FILTER (WHERE status = 'completed') AS completed",
		"COUNT(*) FILTER (WHERE status = 'failed') AS failed",
		"COALESCE(SUM(metadata_rows), 0) AS metadata_rows",
		"COALESCE(SUM(events_rows), 0) AS events_rows",
		"MIN(updated_at) AS first_update_at",
		"MAX(updated_at) AS last_update_at",
	).From(trackerTable).ToSQL()
	if err != nil {
		return tracker.Stats{}, fmt.Errorf("build tracker stats query: %w", err)
	}

	var row trackerStatsRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return tracker.Stats{}, storeError(fmt.Errorf("select tracker stats: %w", err))
	}
	return row.toDomain(), nil
}

func (r *TrackerRepository) Delete(ctx context.Context, matchID int64) (bool, error) {
	query, args, err := qb.DeleteFrom(trackerTable).Where(qb.Eq("match_id", matchID)).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete tracker record query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storeError(fmt.Errorf("delete tracker record match_id=%d: %w", matchID, err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
