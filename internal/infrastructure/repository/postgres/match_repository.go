package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	qb "github.com/riskibarqy/cricket-ingest/internal/platform/querybuilder"
)

const (
	defaultInsertChunkSize = 200
	rowSavepoint           = "match_rows"

	countMatchRowsQuery = `SELECT
    (SELECT COUNT(*) FROM raw.match_metadata WHERE matchid = $1) AS metadata_rows,
    (SELECT COUNT(*) FROM raw.match_events WHERE matchid = $1) AS event_rows,
    (SELECT COUNT(*) FROM raw.match_players WHERE matchid = $1) AS player_rows`
)

// MatchRepository writes a match's metadata, events and players in one
// transaction. Rows colliding with a natural key are skipped; rows breaking
// a constraint are isolated with savepoints and counted as failed.
type MatchRepository struct {
	db        *sqlx.DB
	chunkSize int
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db, chunkSize: defaultInsertChunkSize}
}

func (r *MatchRepository) WriteMatch(ctx context.Context, set match.RecordSet, guard match.CommitGuard) (match.WriteStats, error) {
	matchID := set.MatchID()
	stats := match.WriteStats{EventsTotal: len(set.Events), PlayersTotal: len(set.Players)}

	metadata, err := newMatchMetadataModel(set.Metadata)
	if err != nil {
		return stats, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, storeError(fmt.Errorf("begin tx write match_id=%d: %w", matchID, err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.InsertModel(matchMetadataTable, metadata, "ON CONFLICT (matchid) DO NOTHING")
	if err != nil {
		return stats, fmt.Errorf("build insert match metadata query: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return stats, storeError(fmt.Errorf("insert match metadata match_id=%d: %w", matchID, err))
	}
	if n, _ := res.RowsAffected(); n > 0 {
		stats.MetadataInserted = true
	}

	stats.EventsInserted, stats.EventsFailed, err = insertRows(ctx, tx, matchEventsTable, newMatchEventModels(set.Events),
		"ON CONFLICT (matchid, innings, event_seq) DO NOTHING", r.chunkSize)
	if err != nil {
		return stats, storeError(fmt.Errorf("insert match events match_id=%d: %w", matchID, err))
	}

	// both partial unique indexes of match_players are arbiters here
	stats.PlayersInserted, stats.PlayersFailed, err = insertRows(ctx, tx, matchPlayersTable, newMatchPlayerModels(set.Players),
		"ON CONFLICT DO NOTHING", r.chunkSize)
	if err != nil {
		return stats, storeError(fmt.Errorf("insert match players match_id=%d: %w", matchID, err))
	}

	var counts matchCountsRow
	if err := tx.GetContext(ctx, &counts, countMatchRowsQuery, matchID); err != nil {
		return stats, storeError(fmt.Errorf("count stored rows match_id=%d: %w", matchID, err))
	}
	stats.Stored = match.Counts{
		MetadataRows: counts.MetadataRows,
		EventRows:    counts.EventRows,
		PlayerRows:   counts.PlayerRows,
	}

	if guard != nil {
		if err := guard(stats); err != nil {
			return stats, err
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, storeError(fmt.Errorf("commit write match tx match_id=%d: %w", matchID, err))
	}
	return stats, nil
}

func (r *MatchRepository) CountByMatch(ctx context.Context, matchID int64) (match.Counts, error) {
	var counts matchCountsRow
	if err := r.db.GetContext(ctx, &counts, countMatchRowsQuery, matchID); err != nil {
		return match.Counts{}, storeError(fmt.Errorf("count stored rows match_id=%d: %w", matchID, err))
	}
	return match.Counts{
		MetadataRows: counts.MetadataRows,
		EventRows:    counts.EventRows,
		PlayerRows:   counts.PlayerRows,
	}, nil
}

// DeleteMatch removes the metadata row; events and players cascade.
func (r *MatchRepository) DeleteMatch(ctx context.Context, matchID int64) error {
	query, args, err := qb.DeleteFrom(matchMetadataTable).Where(qb.Eq("matchid", matchID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete match metadata query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storeError(fmt.Errorf("delete match match_id=%d: %w", matchID, err))
	}
	return nil
}

// ListPlayers returns stored players matching every non-zero filter field.
func (r *MatchRepository) ListPlayers(ctx context.Context, filter match.PlayerFilter) ([]match.Player, error) {
	query, args, err := qb.Select(matchPlayerColumns...).From(matchPlayersTable).
		Where(playerConditions(filter)...).
		OrderBy(
			"matchid DESC",
			"player_type",
			"CASE WHEN batted AND batting_position IS NOT NULL THEN batting_position ELSE 999 END",
			"player_name",
		).
		Limit(filter.Limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match players query: %w", err)
	}

	var rows []matchPlayerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storeError(fmt.Errorf("list match players match_id=%d: %w", filter.MatchID, err))
	}

	out := make([]match.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// PlayerStats counts player rows of one match, or of all matches when matchID is zero.
func (r *MatchRepository) PlayerStats(ctx context.Context, matchID int64) (match.PlayerStats, error) {
	query, args, err := qb.Select(
		"COUNT(*) AS total_players",
		"COUNT(*) FILTER (WHERE batted) AS batted",
		"COUNT(*) FILTER (WHERE NOT batted) AS did_not_bat",
		"COUNT(*) FILTER (WHERE player_type = 'regular') AS regular_players",
		"COUNT(*) FILTER (WHERE player_type = 'impact') AS impact_players",
		"COUNT(*) FILTER (WHERE player_type = 'substitute') AS substitute_players",
		"COUNT(DISTINCT matchid) AS matches",
		"COUNT(DISTINCT team) FILTER (WHERE team <> '') AS teams",
	).From(matchPlayersTable).
		Where(playerConditions(match.PlayerFilter{MatchID: matchID})...).
		ToSQL()
	if err != nil {
		return match.PlayerStats{}, fmt.Errorf("build player stats query: %w", err)
	}

	var row playerStatsRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return match.PlayerStats{}, storeError(fmt.Errorf("select player stats match_id=%d: %w", matchID, err))
	}
	return row.toDomain(matchID), nil
}

func playerConditions(filter match.PlayerFilter) []qb.Condition {
	var conditions []qb.Condition
	if filter.MatchID > 0 {
		conditions = append(conditions, qb.Eq("matchid", filter.MatchID))
	}
	if filter.Team != "" {
		conditions = append(conditions, qb.Eq("team", filter.Team))
	}
	if filter.Name != "" {
		conditions = append(conditions, qb.Eq("player_name", filter.Name))
	}
	if filter.Role != "" {
		conditions = append(conditions, qb.Eq("player_type", string(filter.Role)))
	}
	return conditions
}

// insertRows inserts rows in multi-row chunks. A chunk that fails is retried
// row by row so one bad row does not take its neighbours down. The returned
// error is set only when the transaction itself cannot continue.
func insertRows[T any](ctx context.Context, tx *sqlx.Tx, table string, rows []T, suffix string, chunkSize int) (inserted, failed int, err error) {
	if chunkSize <= 0 {
		chunkSize = defaultInsertChunkSize
	}

	for start := 0; start < len(rows); start += chunkSize {
		chunk := rows[start:min(start+chunkSize, len(rows))]

		query, args, err := qb.InsertModels(table, chunk, suffix)
		if err != nil {
			return inserted, failed, fmt.Errorf("build insert %s query: %w", table, err)
		}
		n, rowErr, err := execSavepoint(ctx, tx, query, args)
		if err != nil {
			return inserted, failed, err
		}
		if rowErr == nil {
			inserted += n
			continue
		}

		for _, row := range chunk {
			query, args, err := qb.InsertModel(table, row, suffix)
			if err != nil {
				return inserted, failed, fmt.Errorf("build insert %s row query: %w", table, err)
			}
			n, rowErr, err := execSavepoint(ctx, tx, query, args)
			if err != nil {
				return inserted, failed, err
			}
			if rowErr != nil {
				failed++
				continue
			}
			inserted += n
		}
	}
	return inserted, failed, nil
}

// execSavepoint runs one statement under a savepoint. rowErr is a statement
// failure that was rolled back; err means the transaction is unusable.
func execSavepoint(ctx context.Context, tx *sqlx.Tx, query string, args []any) (affected int, rowErr, err error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
		return 0, nil, fmt.Errorf("create savepoint: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, query, args...)
	if execErr != nil {
		if isConnectionError(execErr) || ctx.Err() != nil {
			return 0, nil, execErr
		}
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+rowSavepoint); err != nil {
			return 0, nil, fmt.Errorf("rollback to savepoint after %v: %w", execErr, err)
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+rowSavepoint); err != nil {
			return 0, nil, fmt.Errorf("release savepoint: %w", err)
		}
		return 0, execErr, nil
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+rowSavepoint); err != nil {
		return 0, nil, fmt.Errorf("release savepoint: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil, nil
}
