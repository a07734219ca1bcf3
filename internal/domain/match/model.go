package match

import (
	"fmt"
	"strconv"
	"strings"
)

type PlayerRole string

const (
	RoleRegular    PlayerRole = "regular"
	RoleImpact     PlayerRole = "impact"
	RoleSubstitute PlayerRole = "substitute"
)

func (r PlayerRole) Valid() bool {
	switch r {
	case RoleRegular, RoleImpact, RoleSubstitute:
		return true
	default:
		return false
	}
}

// InningsScoped reports whether rows of this role are tied to one innings.
func (r PlayerRole) InningsScoped() bool {
	switch r {
	case RoleRegular:
		return true
	case RoleImpact, RoleSubstitute:
		return false
	default:
		return false
	}
}

const (
	scorecardPathSuffix  = "/full-scorecard"
	commentaryPathSuffix = "/ball-by-ball-commentary"
	superOverMarker      = "super over"
)

// Ref identifies one match to ingest and where its scorecard lives.
type Ref struct {
	ID           int64
	ScorecardURL string
}

func (r Ref) CommentaryURL() string {
	return strings.Replace(r.ScorecardURL, scorecardPathSuffix, commentaryPathSuffix, 1)
}

func (r Ref) String() string {
	return strconv.FormatInt(r.ID, 10)
}

type Innings struct {
	Index     int
	Label     string
	SuperOver bool
}

func NewInnings(index int, label string) Innings {
	label = strings.TrimSpace(label)
	return Innings{
		Index:     index,
		Label:     label,
		SuperOver: IsSuperOverLabel(label),
	}
}

func IsSuperOverLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), superOverMarker)
}

// Metadata is the single summary row of a match. Nil pointers are fields the source did not expose.
type Metadata struct {
	MatchID            int64 `validate:"gt=0"`
	Ground             *string
	Toss               *string
	Series             *string
	Season             *string
	PlayerOfTheMatch   *string
	HoursOfPlay        *string
	MatchDays          *string
	Umpires            *string
	TVUmpire           *string
	ReserveUmpire      *string
	MatchReferee       *string
	Points             *string
	SeriesResult       *string
	PlayerOfTheSeries  *string
	MatchNumber        *string
	PlayerReplacements map[string]string
	Extras             map[string]string
	FirstInnings       *string
	SecondInnings      *string
	HasSuperOver       bool
	SuperOverCount     int `validate:"gte=0"`
}

// ApplyInnings derives the innings labels and super-over flags from the source's innings list.
func (m *Metadata) ApplyInnings(innings []Innings) {
	regular := make([]string, 0, 2)
	superOvers := 0
	for _, item := range innings {
		if item.SuperOver {
			superOvers++
			continue
		}
		regular = append(regular, item.Label)
	}

	m.HasSuperOver = superOvers > 0
	m.SuperOverCount = superOvers
	m.FirstInnings = nil
	m.SecondInnings = nil
	if len(regular) > 0 {
		m.FirstInnings = &regular[0]
	}
	if len(regular) > 1 {
		m.SecondInnings = &regular[1]
	}
}

// Event is one delivery. Sequence is the 1-based source order within its innings.
type Event struct {
	MatchID    int64  `validate:"gt=0"`
	Innings    string `validate:"required,max=128"`
	Sequence   int    `validate:"gt=0"`
	Ball       string `validate:"required,max=16"`
	Outcome    string `validate:"max=512"`
	Score      string `validate:"max=128"`
	Commentary string
	Bowler     *string
	Batsman    *string
	SuperOver  bool
}

func (e Event) Key() string {
	return fmt.Sprintf("%d|%s|%d", e.MatchID, e.Innings, e.Sequence)
}

type Player struct {
	MatchID         int64 `validate:"gt=0"`
	Innings         *string
	Team            string     `validate:"max=256"`
	Name            string     `validate:"required,max=256"`
	Batted          bool
	BattingPosition *int       `validate:"omitempty,gte=1,lte=11"`
	Role            PlayerRole `validate:"required,oneof=regular impact substitute"`
	Retired         bool
	NotOut          bool
	Bowled          bool
}

// Key returns the uniqueness key of the row: (match, innings, name, role) when innings is set,
// (match, name, role) otherwise.
func (p Player) Key() string {
	if p.Innings != nil {
		return fmt.Sprintf("%d|i|%s|%s|%s", p.MatchID, *p.Innings, p.Name, p.Role)
	}
	return fmt.Sprintf("%d|n|%s|%s", p.MatchID, p.Name, p.Role)
}

// RecordSet is everything one match persists as a unit.
type RecordSet struct {
	Metadata Metadata
	Events   []Event
	Players  []Player
}

func (s RecordSet) MatchID() int64 {
	return s.Metadata.MatchID
}

// DedupePlayers keeps the first row per uniqueness key, preserving order.
func DedupePlayers(players []Player) []Player {
	seen := make(map[string]struct{}, len(players))
	out := make([]Player, 0, len(players))
	for _, p := range players {
		key := p.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Counts are the rows stored for one match.
type Counts struct {
	MetadataRows int
	EventRows    int
	PlayerRows   int
}

// WriteStats describes one WriteMatch attempt before it is committed.
type WriteStats struct {
	MetadataInserted bool
	EventsInserted   int
	EventsFailed     int
	PlayersInserted  int
	PlayersFailed    int
	EventsTotal      int
	PlayersTotal     int
	Stored           Counts
}

// PlayerFilter narrows a player listing. Zero fields match every row.
type PlayerFilter struct {
	MatchID int64
	Team    string
	Name    string
	Role    PlayerRole
	Limit   int
}

// PlayerStats summarises stored player rows of one match, or of every match when MatchID is zero.
type PlayerStats struct {
	MatchID    int64
	Total      int
	Batted     int
	DidNotBat  int
	Regular    int
	Impact     int
	Substitute int
	Matches    int
	Teams      int
}

// ComparePlayers orders a listing: newest match first, impact before regular before substitute,
// batters by position, then name.
func ComparePlayers(a, b Player) int {
	if a.MatchID != b.MatchID {
		if a.MatchID > b.MatchID {
			return -1
		}
		return 1
	}
	if c := strings.Compare(string(a.Role), string(b.Role)); c != 0 {
		return c
	}
	if c := a.listingPosition() - b.listingPosition(); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

func (p Player) listingPosition() int {
	if p.Batted && p.BattingPosition != nil {
		return *p.BattingPosition
	}
	return 999
}
