package postgres

import (
	"database/sql"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
)

const (
	matchMetadataTable = "raw.match_metadata"
	matchEventsTable   = "raw.match_events"
	matchPlayersTable  = "raw.match_players"
)

type matchMetadataInsertModel struct {
	MatchID            int64   `db:"matchid"`
	Ground             *string `db:"ground"`
	Toss               *string `db:"toss"`
	Series             *string `db:"series"`
	Season             *string `db:"season"`
	PlayerOfTheMatch   *string `db:"player_of_the_match"`
	HoursOfPlay        *string `db:"hours_of_play_local_time"`
	MatchDays          *string `db:"match_days"`
	Umpires            *string `db:"umpires"`
	TVUmpire           *string `db:"tv_umpire"`
	ReserveUmpire      *string `db:"reserve_umpire"`
	MatchReferee       *string `db:"match_referee"`
	Points             *string `db:"points"`
	SeriesResult       *string `db:"series_result"`
	PlayerOfTheSeries  *string `db:"player_of_the_series"`
	MatchNumber        *string `db:"match_number"`
	PlayerReplacements *string `db:"player_replacements"`
	Extras             *string `db:"extras"`
	FirstInnings       *string `db:"first_innings"`
	SecondInnings      *string `db:"second_innings"`
	HasSuperOver       bool    `db:"has_super_over"`
	SuperOverCount     int     `db:"super_over_count"`
}

type matchEventInsertModel struct {
	MatchID    int64   `db:"matchid"`
	Innings    string  `db:"innings"`
	Sequence   int     `db:"event_seq"`
	Ball       string  `db:"ball"`
	Outcome    string  `db:"event"`
	Score      string  `db:"score"`
	Commentary string  `db:"commentary"`
	Bowler     *string `db:"bowler"`
	Batsman    *string `db:"batsman"`
	SuperOver  bool    `db:"is_super_over"`
}

type matchPlayerInsertModel struct {
	MatchID         int64   `db:"matchid"`
	Innings         *string `db:"innings"`
	Team            string  `db:"team"`
	Name            string  `db:"player_name"`
	Batted          bool    `db:"batted"`
	BattingPosition *int    `db:"batting_position"`
	Role            string  `db:"player_type"`
	Retired         bool    `db:"retired"`
	NotOut          bool    `db:"not_out"`
	Bowled          bool    `db:"bowled"`
}

type matchCountsRow struct {
	MetadataRows int `db:"metadata_rows"`
	EventRows    int `db:"event_rows"`
	PlayerRows   int `db:"player_rows"`
}

func newMatchMetadataModel(m match.Metadata) (matchMetadataInsertModel, error) {
	replacements, err := jsonObject(m.PlayerReplacements)
	if err != nil {
		return matchMetadataInsertModel{}, fmt.Errorf("encode player_replacements: %w", err)
	}
	extras, err := jsonObject(m.Extras)
	if err != nil {
		return matchMetadataInsertModel{}, fmt.Errorf("encode extras: %w", err)
	}
	return matchMetadataInsertModel{
		MatchID:            m.MatchID,
		Ground:             m.Ground,
		Toss:               m.Toss,
		Series:             m.Series,
		Season:             m.Season,
		PlayerOfTheMatch:   m.PlayerOfTheMatch,
		HoursOfPlay:        m.HoursOfPlay,
		MatchDays:          m.MatchDays,
		Umpires:            m.Umpires,
		TVUmpire:           m.TVUmpire,
		ReserveUmpire:      m.ReserveUmpire,
		MatchReferee:       m.MatchReferee,
		Points:             m.Points,
		SeriesResult:       m.SeriesResult,
		PlayerOfTheSeries:  m.PlayerOfTheSeries,
		MatchNumber:        m.MatchNumber,
		PlayerReplacements: replacements,
		Extras:             extras,
		FirstInnings:       m.FirstInnings,
		SecondInnings:      m.SecondInnings,
		HasSuperOver:       m.HasSuperOver,
		SuperOverCount:     m.SuperOverCount,
	}, nil
}

func newMatchEventModels(events []match.Event) []matchEventInsertModel {
	out := make([]matchEventInsertModel, 0, len(events))
	for _, ev := range events {
		out = append(out, matchEventInsertModel{
			MatchID:    ev.MatchID,
			Innings:    ev.Innings,
			Sequence:   ev.Sequence,
			Ball:       ev.Ball,
			Outcome:    ev.Outcome,
			Score:      ev.Score,
			Commentary: ev.Commentary,
			Bowler:     ev.Bowler,
			Batsman:    ev.Batsman,
			SuperOver:  ev.SuperOver,
		})
	}
	return out
}

func newMatchPlayerModels(players []match.Player) []matchPlayerInsertModel {
	out := make([]matchPlayerInsertModel, 0, len(players))
	for _, p := range players {
		out = append(out, matchPlayerInsertModel{
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
		})
	}
	return out
}

// jsonObject encodes a JSONB column value; empty maps are stored as NULL.
func jsonObject(values map[string]string) (*string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	raw, err := sonic.ConfigStd.MarshalToString(values)
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

var matchPlayerColumns = []string{
	"matchid",
	"innings",
	"team",
	"player_name",
	"batted",
	"batting_position",
	"player_type",
	"retired",
	"not_out",
	"bowled",
}

type matchPlayerRow struct {
	MatchID         int64          `db:"matchid"`
	Innings         sql.NullString `db:"innings"`
	Team            string         `db:"team"`
	Name            string         `db:"player_name"`
	Batted          bool           `db:"batted"`
	BattingPosition sql.NullInt64  `db:"batting_position"`
	Role            string         `db:"player_type"`
	Retired         bool           `db:"retired"`
	NotOut          bool           `db:"not_out"`
	Bowled          bool           `db:"bowled"`
}

func (r matchPlayerRow) toDomain() match.Player {
	p := match.Player{
		MatchID: r.MatchID,
		Team:    r.Team,
		Name:    r.Name,
		Batted:  r.Batted,
		Role:    match.PlayerRole(r.Role),
		Retired: r.Retired,
		NotOut:  r.NotOut,
		Bowled:  r.Bowled,
	}
	if r.Innings.Valid {
		innings := r.Innings.String
		p.Innings = &innings
	}
	if r.BattingPosition.Valid {
		pos := int(r.BattingPosition.Int64)
		p.BattingPosition = &pos
	}
	return p
}

type playerStatsRow struct {
	Total      int `db:"total_players"`
	Batted     int `db:"batted"`
	DidNotBat  int `db:"did_not_bat"`
	Regular    int `db:"regular_players"`
	Impact     int `db:"impact_players"`
	Substitute int `db:"substitute_players"`
	Matches    int `db:"matches"`
	Teams      int `db:"teams"`
}

func (r playerStatsRow) toDomain(matchID int64) match.PlayerStats {
	return match.PlayerStats{
		MatchID:    matchID,
		Total:      r.Total,
		Batted:     r.Batted,
		DidNotBat:  r.DidNotBat,
		Regular:    r.Regular,
		Impact:     r.Impact,
		Substitute: r.Substitute,
		Matches:    r.Matches,
		Teams:      r.Teams,
	}
}
