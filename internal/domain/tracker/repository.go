package tracker

import "context"

// Repository owns the match_download_tracker rows. Claim, Complete and Fail are compare-and-set
// operations: they return ok=false with the current record when the condition does not hold.
type Repository interface {
	Get(ctx context.Context, matchID int64) (Record, bool, error)
	Claim(ctx context.Context, input ClaimInput) (Record, bool, error)
	Complete(ctx context.Context, input CompleteInput) (Record, bool, error)
	Fail(ctx context.Context, input FailInput) (Record, bool, error)
	List(ctx context.Context, status Status, limit int) ([]Record, error)
	CompletedMatchIDs(ctx context.Context) ([]int64, error)
	Stats(ctx context.Context) (Stats, error)
	Delete(ctx context.Context, matchID int64) (bool, error)
}
