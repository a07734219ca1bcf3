package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
)

const trackerTable = "raw.match_download_tracker"

var trackerColumns = []string{
	"id",
	"match_id",
	"status",
	"metadata_rows",
	"events_rows",
	"source_url",
	"error_message",
	"run_id",
	"attempts",
	"created_at",
	"updated_at",
	"completed_at",
}

type trackerRecordRow struct {
	ID           int64          `db:"id"`
	MatchID      int64          `db:"match_id"`
	Status       string         `db:"status"`
	MetadataRows int            `db:"metadata_rows"`
	EventRows    int            `db:"events_rows"`
	SourceURL    string         `db:"source_url"`
	ErrorMessage sql.NullString `db:"error_message"`
	RunID        string         `db:"run_id"`
	Attempts     int            `db:"attempts"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

// trackerClaimRow is a claimed record plus the run it replaced, if any.
type trackerClaimRow struct {
	trackerRecordRow
	TakenOverFrom string `db:"taken_over_from"`
}

func (row trackerClaimRow) toDomain() tracker.Record {
	rec := row.trackerRecordRow.toDomain()
	rec.TakenOverFrom = row.TakenOverFrom
	return rec
}

type trackerClaimInsertModel struct {
	MatchID   int64     `db:"match_id"`
	Status    string    `db:"status"`
	SourceURL string    `db:"source_url"`
	RunID     string    `db:"run_id"`
	Attempts  int       `db:"attempts"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type trackerStatsRow struct {
	Total         int          `db:"total"`
	InProgress    int          `db:"in_progress"`
	Completed     int          `db:"completed"`
	Failed        int          `db:"failed"`
	MetadataRows  int64        `db:"metadata_rows"`
	EventRows     int64        `db:"events_rows"`
	FirstUpdateAt sql.NullTime `db:"first_update_at"`
	LastUpdateAt  sql.NullTime `db:"last_update_at"`
}

func (row trackerRecordRow) toDomain() tracker.Record {
	rec := tracker.Record{
		ID:           row.ID,
		MatchID:      row.MatchID,
		Status:       tracker.Status(row.Status),
		MetadataRows: row.MetadataRows,
		EventRows:    row.EventRows,
		SourceURL:    row.SourceURL,
		RunID:        row.RunID,
		Attempts:     row.Attempts,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.ErrorMessage.Valid {
		msg := row.ErrorMessage.String
		rec.ErrorMessage = &msg
	}
	if row.CompletedAt.Valid {
		at := row.CompletedAt.Time.UTC()
		rec.CompletedAt = &at
	}
	return rec
}

func (row trackerStatsRow) toDomain() tracker.Stats {
	stats := tracker.Stats{
		Total:        row.Total,
		InProgress:   row.InProgress,
		Completed:    row.Completed,
		Failed:       row.Failed,
		MetadataRows: row.MetadataRows,
		EventRows:    row.EventRows,
	}
	if row.FirstUpdateAt.Valid {
		at := row.FirstUpdateAt.Time.UTC()
		stats.FirstUpdateAt = &at
	}
	if row.LastUpdateAt.Valid {
		at := row.LastUpdateAt.Time.UTC()
		stats.LastUpdateAt = &at
	}
	return stats
}
