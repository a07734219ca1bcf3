package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const defaultListLimit = 50

type recordView struct {
	MatchID      int64      `json:"match_id"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	MetadataRows int        `json:"metadata_rows"`
	EventRows    int        `json:"events_rows"`
	SourceURL    string     `json:"source_url"`
	RunID        string     `json:"run_id"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func newRecordView(rec tracker.Record) recordView {
	return recordView{
		MatchID:      rec.MatchID,
		Status:       string(rec.Status),
		Attempts:     rec.Attempts,
		MetadataRows: rec.MetadataRows,
		EventRows:    rec.EventRows,
		SourceURL:    rec.SourceURL,
		RunID:        rec.RunID,
		ErrorMessage: rec.ErrorMessage,
		UpdatedAt:    rec.UpdatedAt,
		CompletedAt:  rec.CompletedAt,
	}
}

type statsView struct {
	Total         int        `json:"total"`
	InProgress    int        `json:"in_progress"`
	Completed     int        `json:"completed"`
	Failed        int        `json:"failed"`
	MetadataRows  int64      `json:"metadata_rows"`
	EventRows     int64      `json:"events_rows"`
	FirstUpdateAt *time.Time `json:"first_update_at,omitempty"`
	LastUpdateAt  *time.Time `json:"last_update_at,omitempty"`
}

func newStatsView(s tracker.Stats) statsView {
	return statsView{
		Total:         s.Total,
		InProgress:    s.InProgress,
		Completed:     s.Completed,
		Failed:        s.Failed,
		MetadataRows:  s.MetadataRows,
		EventRows:     s.EventRows,
		FirstUpdateAt: s.FirstUpdateAt,
		LastUpdateAt:  s.LastUpdateAt,
	}
}

type playerView struct {
	MatchID         int64   `json:"matchid"`
	Innings         *string `json:"innings"`
	Team            string  `json:"team"`
	Name            string  `json:"player_name"`
	Batted          bool    `json:"batted"`
	BattingPosition *int    `json:"batting_position"`
	Role            string  `json:"player_type"`
	Retired         bool    `json:"retired,omitempty"`
	NotOut          bool    `json:"not_out,omitempty"`
	Bowled          bool    `json:"bowled,omitempty"`
}

func newPlayerView(p match.Player) playerView {
	return playerView{
		MatchID:         p.MatchID,
		Innings:         p.Innings,
		Team:            p.Team,
		Name:            p.Name,
		Batted:          p.Batted,
		BattingPosition: p.BattingPosition,
		Role:            string(p.Role),
		Retired:         p.Retired,
		NotOut:          p.NotOut,
		Bowled:          p.Bowled,
	}
}

type playerStatsView struct {
	Total      int `json:"total_players"`
	Batted     int `json:"batted"`
	DidNotBat  int `json:"did_not_bat"`
	Regular    int `json:"regular_players"`
	Impact     int `json:"impact_players"`
	Substitute int `json:"substitute_players"`
	Teams      int `json:"teams"`
}

type verificationView struct {
	MatchID    int64           `json:"match_id"`
	Status     string          `json:"status"`
	Statistics playerStatsView `json:"statistics"`
	Issues     []string        `json:"issues"`
}

func newVerificationView(v usecase.PlayerVerification) verificationView {
	issues := v.Issues
	if issues == nil {
		issues = []string{}
	}
	return verificationView{
		MatchID: v.MatchID,
		Status:  string(v.Status),
		Statistics: playerStatsView{
			Total:      v.Stats.Total,
			Batted:     v.Stats.Batted,
			DidNotBat:  v.Stats.DidNotBat,
			Regular:    v.Stats.Regular,
			Impact:     v.Stats.Impact,
			Substitute: v.Stats.Substitute,
			Teams:      v.Stats.Teams,
		},
		Issues: issues,
	}
}

func writeJSON(w io.Writer, v any) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

func parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return defaultListLimit, nil
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("%w: expected at most one limit argument", errUsage)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: invalid limit %q", errUsage, args[0])
	}
	return limit, nil
}

func parseMatchIDs(cmd string, args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least one match id", errUsage, cmd)
	}
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseMatchID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseMatchID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid match id %q", errUsage, arg)
	}
	return id, nil
}

// parsePlayerFilter reads `<match_id> [team]`, `team <team> [match_id]`,
// `name <player>` or `impact [match_id]`.
func parsePlayerFilter(args []string) (match.PlayerFilter, error) {
	if len(args) == 0 {
		return match.PlayerFilter{}, fmt.Errorf("%w: players requires a match id or filter", errUsage)
	}

	var filter match.PlayerFilter
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "team":
		if len(args) < 2 || len(args) > 3 || strings.TrimSpace(args[1]) == "" {
			return filter, fmt.Errorf("%w: players team <team> [match_id]", errUsage)
		}
		filter.Team = strings.TrimSpace(args[1])
		if len(args) == 3 {
			id, err := parseMatchID(args[2])
			if err != nil {
				return filter, err
			}
			filter.MatchID = id
		}
	case "name":
		if len(args) < 2 {
			return filter, fmt.Errorf("%w: players name <player>", errUsage)
		}
		filter.Name = strings.TrimSpace(strings.Join(args[1:], " "))
		if filter.Name == "" {
			return filter, fmt.Errorf("%w: players name <player>", errUsage)
		}
	case "impact":
		if len(args) > 2 {
			return filter, fmt.Errorf("%w: players impact [match_id]", errUsage)
		}
		filter.Role = match.RoleImpact
		if len(args) == 2 {
			id, err := parseMatchID(args[1])
			if err != nil {
				return filter, err
			}
			filter.MatchID = id
		}
	default:
		if len(args) > 2 {
			return filter, fmt.Errorf("%w: players <match_id> [team]", errUsage)
		}
		id, err := parseMatchID(args[0])
		if err != nil {
			return filter, err
		}
		filter.MatchID = id
		if len(args) == 2 {
			filter.Team = strings.TrimSpace(args[1])
		}
	}
	return filter, nil
}
