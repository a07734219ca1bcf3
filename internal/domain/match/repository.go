package match

import "context"

// CommitGuard inspects a write before commit; a non-nil error rolls the whole match back.
type CommitGuard func(stats WriteStats) error

// Repository persists a match's record set. Implementations must ignore rows that collide with the
// natural keys: metadata by match, events by (match, innings, sequence), players by Player.Key.
type Repository interface {
	WriteMatch(ctx context.Context, set RecordSet, guard CommitGuard) (WriteStats, error)
	CountByMatch(ctx context.Context, matchID int64) (Counts, error)
	DeleteMatch(ctx context.Context, matchID int64) error
	ListPlayers(ctx context.Context, filter PlayerFilter) ([]Player, error)
	PlayerStats(ctx context.Context, matchID int64) (PlayerStats, error)
}
