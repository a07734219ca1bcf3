package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
)

type MatchOutcome string

const (
	OutcomeCompleted    MatchOutcome = "completed"
	OutcomeFailed       MatchOutcome = "failed"
	OutcomeSkipped      MatchOutcome = "skipped"
	OutcomeConflict     MatchOutcome = "conflict"
	OutcomeNotAttempted MatchOutcome = "not_attempted"
)

type MatchResult struct {
	MatchID       int64        `json:"match_id"`
	Locator       string       `json:"locator"`
	Outcome       MatchOutcome `json:"outcome"`
	Attempts      int          `json:"attempts"`
	Pages         int          `json:"pages"`
	Retries       int          `json:"retries"`
	LimitReached  bool         `json:"limit_reached,omitempty"`
	MetadataRows  int          `json:"metadata_rows"`
	EventRows     int          `json:"event_rows"`
	PlayerRows    int          `json:"player_rows"`
	EventsFailed  int          `json:"events_failed,omitempty"`
	PlayersFailed int          `json:"players_failed,omitempty"`
	ParseIssues   int          `json:"parse_issues,omitempty"`
	ErrorKind     string       `json:"error_kind,omitempty"`
	Error         string       `json:"error,omitempty"`
	DurationMS    int64        `json:"duration_ms"`
}

// RunReport summarizes one orchestrator run.
type RunReport struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Listed       int           `json:"listed"`
	Attempted    int           `json:"attempted"`
	Completed    int           `json:"completed"`
	Failed       int           `json:"failed"`
	Skipped      int           `json:"skipped"`
	Conflicts    int           `json:"conflicts"`
	NotAttempted int           `json:"not_attempted"`
	Aborted      bool          `json:"aborted,omitempty"`
	AbortReason  string        `json:"abort_reason,omitempty"`
	Matches      []MatchResult `json:"matches"`
}

func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// tally recomputes the outcome counters from Matches.
func (r *RunReport) tally() {
	r.Attempted, r.Completed, r.Failed, r.Skipped, r.Conflicts, r.NotAttempted = 0, 0, 0, 0, 0, 0
	for _, m := range r.Matches {
		switch m.Outcome {
		case OutcomeCompleted:
			r.Completed++
		case OutcomeFailed:
			r.Failed++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeConflict:
			r.Conflicts++
		case OutcomeNotAttempted:
			r.NotAttempted++
		}
		if m.Attempts > 0 {
			r.Attempted++
		}
	}
}

// Failures returns up to limit failed matches in listing order.
func (r RunReport) Failures(limit int) []MatchResult {
	if limit <= 0 {
		return nil
	}
	out := make([]MatchResult, 0, min(limit, r.Failed))
	for _, m := range r.Matches {
		if len(out) >= limit {
			break
		}
		if m.Outcome == OutcomeFailed {
			out = append(out, m)
		}
	}
	return out
}

func (r RunReport) JSON() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(r, "", "  ")
}

func (r RunReport) WriteFile(path string) error {
	raw, err := r.JSON()
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	return nil
}
