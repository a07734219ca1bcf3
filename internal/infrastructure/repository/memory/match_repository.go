package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
)

type matchRows struct {
	metadata *match.Metadata
	events   map[string]match.Event
	players  map[string]match.Player
}

// MatchRepository mirrors the raw schema in process: rows colliding with a
// natural key are ignored and rows breaking a column constraint fail alone.
type MatchRepository struct {
	mu      sync.RWMutex
	matches map[int64]*matchRows
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{matches: make(map[int64]*matchRows)}
}

func (r *MatchRepository) WriteMatch(_ context.Context, set match.RecordSet, guard match.CommitGuard) (match.WriteStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matchID := set.MatchID()
	current := r.matches[matchID]
	staged := &matchRows{events: map[string]match.Event{}, players: map[string]match.Player{}}
	if current != nil {
		staged.metadata = current.metadata
		staged.events = maps.Clone(current.events)
		staged.players = maps.Clone(current.players)
	}

	stats := match.WriteStats{EventsTotal: len(set.Events), PlayersTotal: len(set.Players)}
	if staged.metadata == nil {
		meta := set.Metadata
		staged.metadata = &meta
		stats.MetadataInserted = true
	}

	for _, ev := range set.Events {
		if ev.MatchID != matchID || eventViolation(ev) != nil {
			stats.EventsFailed++
			continue
		}
		key := ev.Key()
		if _, ok := staged.events[key]; ok {
			continue
		}
		staged.events[key] = ev
		stats.EventsInserted++
	}

	for _, p := range set.Players {
		if p.MatchID != matchID || playerViolation(p) != nil {
			stats.PlayersFailed++
			continue
		}
		key := p.Key()
		if _, ok := staged.players[key]; ok {
			continue
		}
		staged.players[key] = p
		stats.PlayersInserted++
	}

	stats.Stored = match.Counts{
		MetadataRows: 1,
		EventRows:    len(staged.events),
		PlayerRows:   len(staged.players),
	}
	if guard != nil {
		if err := guard(stats); err != nil {
			return stats, err
		}
	}

	r.matches[matchID] = staged
	return stats, nil
}

func (r *MatchRepository) CountByMatch(_ context.Context, matchID int64) (match.Counts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.matches[matchID]
	if rows == nil {
		return match.Counts{}, nil
	}
	counts := match.Counts{EventRows: len(rows.events), PlayerRows: len(rows.players)}
	if rows.metadata != nil {
		counts.MetadataRows = 1
	}
	return counts, nil
}

func (r *MatchRepository) DeleteMatch(_ context.Context, matchID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.matches, matchID)
	return nil
}

func (r *MatchRepository) ListPlayers(_ context.Context, filter match.PlayerFilter) ([]match.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []match.Player
	for matchID, rows := range r.matches {
		if filter.MatchID > 0 && matchID != filter.MatchID {
			continue
		}
		for _, p := range rows.players {
			if playerMatches(p, filter) {
				out = append(out, p)
			}
		}
	}
	slices.SortFunc(out, match.ComparePlayers)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MatchRepository) PlayerStats(_ context.Context, matchID int64) (match.PlayerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := match.PlayerStats{MatchID: matchID}
	matches := map[int64]struct{}{}
	teams := map[string]struct{}{}
	for id, rows := range r.matches {
		if matchID > 0 && id != matchID {
			continue
		}
		for _, p := range rows.players {
			stats.Total++
			if p.Batted {
				stats.Batted++
			} else {
				stats.DidNotBat++
			}
			switch p.Role {
			case match.RoleRegular:
				stats.Regular++
			case match.RoleImpact:
				stats.Impact++
			case match.RoleSubstitute:
				stats.Substitute++
			}
			matches[id] = struct{}{}
			if p.Team != "" {
				teams[p.Team] = struct{}{}
			}
		}
	}
	stats.Matches = len(matches)
	stats.Teams = len(teams)
	return stats, nil
}

func playerMatches(p match.Player, filter match.PlayerFilter) bool {
	switch {
	case filter.Team != "" && p.Team != filter.Team:
		return false
	case filter.Name != "" && p.Name != filter.Name:
		return false
	case filter.Role != "" && p.Role != filter.Role:
		return false
	}
	return true
}

// Events returns the stored events of a match keyed by natural key.
func (r *MatchRepository) Events(matchID int64) map[string]match.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rows := r.matches[matchID]; rows != nil {
		return maps.Clone(rows.events)
	}
	return nil
}

func (r *MatchRepository) Players(matchID int64) map[string]match.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rows := r.matches[matchID]; rows != nil {
		return maps.Clone(rows.players)
	}
	return nil
}

func (r *MatchRepository) Metadata(matchID int64) (match.Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rows := r.matches[matchID]; rows != nil && rows.metadata != nil {
		return *rows.metadata, true
	}
	return match.Metadata{}, false
}

func eventViolation(ev match.Event) error {
	switch {
	case ev.Innings == "":
		return fmt.Errorf("innings is required")
	case ev.Sequence <= 0:
		return fmt.Errorf("event_seq must be positive")
	case ev.Ball == "":
		return fmt.Errorf("ball is required")
	}
	return nil
}

func playerViolation(p match.Player) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("player_name is required")
	case !p.Role.Valid():
		return fmt.Errorf("unknown player_type %q", p.Role)
	case p.BattingPosition != nil && (*p.BattingPosition < 1 || *p.BattingPosition > 11):
		return fmt.Errorf("batting_position out of range")
	}
	return nil
}
