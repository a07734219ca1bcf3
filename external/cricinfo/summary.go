package cricinfo

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const venueKey = "venue"

// ParseSummary extracts the metadata row and the player rows of the scorecard
// page. A page without any match detail row is an error; player fragments
// that cannot be read are reported as issues.
func (p *Parser) ParseSummary(matchID int64, body []byte) (match.Metadata, []match.Player, []usecase.ParseIssue, error) {
	doc, err := newDocument(body)
	if err != nil {
		return match.Metadata{}, nil, nil, err
	}

	meta, err := parseMetadata(matchID, doc)
	if err != nil {
		return match.Metadata{}, nil, nil, err
	}

	players, issues := parsePlayers(matchID, doc)
	players = append(players, replacementPlayers(matchID, meta.PlayerReplacements)...)
	return meta, match.DedupePlayers(players), issues, nil
}

func parseMetadata(matchID int64, doc *goquery.Document) (match.Metadata, error) {
	rows := doc.Find(selMetadataRow)
	if rows.Length() == 0 {
		return match.Metadata{}, fmt.Errorf("match details section not found")
	}

	meta := match.Metadata{
		MatchID:            matchID,
		PlayerReplacements: map[string]string{},
		Extras:             map[string]string{},
	}
	venueSet := false

	rows.Each(func(_ int, row *goquery.Selection) {
		spans := row.Find("span")
		switch {
		case spans.Length() >= 2:
			key := cleanText(spans.First().Text())
			values := make([]string, 0, spans.Length()-1)
			spans.Slice(1, spans.Length()).Each(func(_ int, s *goquery.Selection) {
				if text := cleanText(s.Text()); text != "" {
					values = append(values, text)
				}
			})
			value := strings.Join(values, " ")
			if key == "" || value == "" {
				return
			}
			if normalizeKey(key) == venueKey || normalizeKey(key) == "ground" {
				venueSet = true
			}
			applyMetadataField(&meta, key, value)
		case spans.Length() == 1:
			text := cleanText(spans.Text())
			if text != "" && !venueSet {
				meta.Ground = stringPtr(text)
				venueSet = true
			}
		}
	})

	if len(meta.PlayerReplacements) == 0 {
		meta.PlayerReplacements = nil
	}
	if len(meta.Extras) == 0 {
		meta.Extras = nil
	}
	return meta, nil
}

func applyMetadataField(meta *match.Metadata, key, value string) {
	normalized := normalizeKey(key)
	if strings.HasSuffix(normalized, "replacement") {
		meta.PlayerReplacements[key] = value
		return
	}

	var target **string
	switch normalized {
	case venueKey, "ground":
		target = &meta.Ground
	case "toss":
		target = &meta.Toss
	case "series":
		target = &meta.Series
	case "season":
		target = &meta.Season
	case "player of the match", "players of the match":
		target = &meta.PlayerOfTheMatch
	case "hours of play (local time)", "hours of play":
		target = &meta.HoursOfPlay
	case "match days":
		target = &meta.MatchDays
	case "umpires":
		target = &meta.Umpires
	case "tv umpire":
		target = &meta.TVUmpire
	case "reserve umpire":
		target = &meta.ReserveUmpire
	case "match referee":
		target = &meta.MatchReferee
	case "points":
		target = &meta.Points
	case "series result":
		target = &meta.SeriesResult
	case "player of the series", "players of the series":
		target = &meta.PlayerOfTheSeries
	case "match number":
		target = &meta.MatchNumber
	default:
		meta.Extras[key] = value
		return
	}
	*target = stringPtr(value)
}

func normalizeKey(key string) string {
	return strings.ToLower(cleanText(key))
}

// replacementPlayers turns replacement metadata into innings-independent
// rows for the incoming players.
func replacementPlayers(matchID int64, replacements map[string]string) []match.Player {
	out := make([]match.Player, 0, len(replacements))
	for key, value := range replacements {
		name := cleanPlayerName(incomingPlayer(value))
		if name == "" {
			continue
		}
		role := match.RoleSubstitute
		if strings.Contains(strings.ToLower(key), "impact") {
			role = match.RoleImpact
		}
		out = append(out, match.Player{MatchID: matchID, Name: name, Role: role})
	}
	sortPlayers(out)
	return out
}

// incomingPlayer returns the name before an "(in)" or " in" marker, or the
// first comma-separated name when no marker is present.
func incomingPlayer(value string) string {
	lower := strings.ToLower(value)
	if idx := strings.Index(lower, "(in)"); idx > 0 {
		return value[:idx]
	}
	if idx := strings.Index(lower, " in "); idx > 0 {
		return value[:idx]
	}
	if strings.HasSuffix(lower, " in") {
		return value[:len(value)-len(" in")]
	}
	if idx := strings.Index(value, ","); idx > 0 {
		return value[:idx]
	}
	return value
}
