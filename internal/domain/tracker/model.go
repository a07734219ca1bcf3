package tracker

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusInProgress, StatusCompleted, StatusFailed:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown tracker status %q", raw)
	}
}

// Terminal reports whether ingestion of the match finished, successfully or not.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusInProgress:
		return false
	default:
		return false
	}
}

// CanClaim reports whether a match currently in status s may move to in_progress.
// exists=false means no record yet. Completed matches are claimable only when forced.
func CanClaim(s Status, exists, force bool) bool {
	if !exists {
		return true
	}
	switch s {
	case StatusFailed:
		return true
	case StatusCompleted:
		return force
	case StatusInProgress:
		// same-owner or stale claims are decided by the repository
		return false
	default:
		return false
	}
}

// CanFinish reports whether the status allows completing or failing the attempt.
func CanFinish(s Status) bool {
	switch s {
	case StatusInProgress:
		return true
	case StatusCompleted, StatusFailed:
		return false
	default:
		return false
	}
}

type Record struct {
	ID           int64
	MatchID      int64
	Status       Status
	MetadataRows int
	EventRows    int
	SourceURL    string
	ErrorMessage *string
	RunID        string
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	// TakenOverFrom is set only on a successful Claim that replaced another run's in_progress claim.
	TakenOverFrom string
}

type ClaimInput struct {
	MatchID   int64
	SourceURL string
	RunID     string
	Force     bool
	// StaleBefore lets a claim take over an in_progress record of another run last touched before it.
	StaleBefore time.Time
	Now         time.Time
}

type CompleteInput struct {
	MatchID      int64
	RunID        string
	MetadataRows int
	EventRows    int
	Now          time.Time
}

type FailInput struct {
	MatchID      int64
	RunID        string
	ErrorMessage string
	Now          time.Time
}

type Stats struct {
	Total         int
	InProgress    int
	Completed     int
	Failed        int
	MetadataRows  int64
	EventRows     int64
	FirstUpdateAt *time.Time
	LastUpdateAt  *time.Time
}
