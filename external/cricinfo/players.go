package cricinfo

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

var (
	captainMarkRegex = regexp.MustCompile(`(?i)\((c|wk)\)`)
	inningsTitle     = regexp.MustCompile(`(?i)^\d+(st|nd|rd|th)?\s+innings\s*|\s*innings\s*$`)
)

var headerLabels = map[string]struct{}{
	"batting": {},
	"batter":  {},
	"bowler":  {},
	"bowling": {},
}

type battingTable struct {
	table *goquery.Selection
	team  string
}

func parsePlayers(matchID int64, doc *goquery.Document) ([]match.Player, []usecase.ParseIssue) {
	var (
		players []match.Player
		issues  []usecase.ParseIssue
	)

	tables := battingTables(doc)
	teams := make([]string, len(tables))
	for i, bt := range tables {
		teams[i] = bt.team
		if teams[i] == "" {
			teams[i] = fmt.Sprintf("Team %d", i+1)
			issues = append(issues, issue(inningsKey(i+1), "team name not found, using %q", teams[i]))
		}
	}

	for i, bt := range tables {
		rows, rowIssues := battingPlayers(matchID, bt.table, inningsKey(i+1), teams[i])
		players = append(players, rows...)
		issues = append(issues, rowIssues...)
	}

	doc.Find(selBowlingTable).Not(selBattingTable).Each(func(i int, table *goquery.Selection) {
		key := inningsKey(i + 1)
		var batting string
		if i < len(teams) {
			batting = teams[i]
		}
		players = append(players, bowlers(matchID, table, key, oppositeTeam(batting, teams))...)
	})

	return players, issues
}

// battingTables pairs every batting scorecard with the nearest team title
// that precedes it in document order.
func battingTables(doc *goquery.Document) []battingTable {
	var (
		out     []battingTable
		current string
	)
	doc.Find(selTeamTitle + ", " + selBattingTable).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "table" {
			out = append(out, battingTable{table: s, team: current})
			return
		}
		current = cleanTeamName(s.Text())
	})
	return out
}

func battingPlayers(matchID int64, table *goquery.Selection, innings, team string) ([]match.Player, []usecase.ParseIssue) {
	var (
		out    []match.Player
		issues []usecase.ParseIssue
	)
	position := 1

	table.Find(selPlayerCell).Each(func(row int, cell *goquery.Selection) {
		if _, ok := cell.Attr("colspan"); ok {
			return
		}
		link := cell.Find(selCricketerLink).First()
		if link.Length() == 0 {
			return
		}
		name := linkPlayerName(link)
		if name == "" {
			issues = append(issues, issue(fmt.Sprintf("%s/batting/%d", innings, row+1), "player name missing"))
			return
		}

		pos := position
		position++
		p := match.Player{
			MatchID:         matchID,
			Innings:         stringPtr(innings),
			Team:            team,
			Name:            name,
			Batted:          true,
			BattingPosition: &pos,
			Role:            match.RoleRegular,
			Retired:         cell.Find(selRetiredIcon).Length() > 0,
			NotOut:          cell.HasClass(notOutClass),
		}
		out = append(out, withImpact(p, cell)...)
	})

	table.Find("td[colspan]").Each(func(_ int, cell *goquery.Selection) {
		header := cell.Find(selDidNotBatHeader).First()
		if !strings.Contains(strings.ToLower(header.Text()), "did not bat") {
			return
		}
		cell.Find(selCricketerLink).Each(func(_ int, link *goquery.Selection) {
			name := linkPlayerName(link)
			if name == "" {
				return
			}
			p := match.Player{
				MatchID: matchID,
				Innings: stringPtr(innings),
				Team:    team,
				Name:    name,
				Role:    match.RoleRegular,
			}
			holder := link.Closest("div")
			if holder.Length() == 0 {
				holder = link
			}
			out = append(out, withImpact(p, holder)...)
		})
	})

	return out, issues
}

func bowlers(matchID int64, table *goquery.Selection, innings, team string) []match.Player {
	var out []match.Player
	seen := make(map[string]struct{})
	add := func(name string, scope *goquery.Selection) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		p := match.Player{
			MatchID: matchID,
			Innings: stringPtr(innings),
			Team:    team,
			Name:    name,
			Role:    match.RoleRegular,
			Bowled:  true,
		}
		out = append(out, withImpact(p, scope)...)
	}

	cells := table.Find(selPlayerCell)
	if cells.Length() > 0 {
		cells.Each(func(_ int, cell *goquery.Selection) {
			link := cell.Find(selCricketerLink).First()
			if link.Length() == 0 {
				return
			}
			add(linkPlayerName(link), cell)
		})
		return out
	}

	table.Find(selBowlerSpan).Each(func(_ int, span *goquery.Selection) {
		add(cleanPlayerName(span.Text()), span.Closest("td"))
	})
	return out
}

// withImpact returns the regular row plus an innings-independent impact row
// when the scope carries the impact player icon.
func withImpact(p match.Player, scope *goquery.Selection) []match.Player {
	if scope == nil || scope.Find(selImpactIcon).Length() == 0 {
		return []match.Player{p}
	}
	impact := match.Player{
		MatchID: p.MatchID,
		Team:    p.Team,
		Name:    p.Name,
		Role:    match.RoleImpact,
	}
	return []match.Player{p, impact}
}

func linkPlayerName(link *goquery.Selection) string {
	if title, ok := link.Attr("title"); ok {
		if name := cleanPlayerName(title); name != "" {
			return name
		}
	}
	span := link.Find(selPlayerLinkSpan).First()
	if inner := span.Find("span").First(); inner.Length() > 0 {
		return cleanPlayerName(inner.Text())
	}
	if span.Length() > 0 {
		return cleanPlayerName(span.Text())
	}
	return cleanPlayerName(link.Text())
}

func cleanPlayerName(raw string) string {
	name := strings.NewReplacer("†", "", "*", "").Replace(raw)
	name = captainMarkRegex.ReplaceAllString(name, "")
	name = strings.Trim(cleanText(name), ",; ")
	if _, ok := headerLabels[strings.ToLower(name)]; ok {
		return ""
	}
	return name
}

func cleanTeamName(raw string) string {
	name := inningsTitle.ReplaceAllString(cleanText(raw), "")
	name = cleanText(name)
	if len(name) <= 2 {
		return ""
	}
	return name
}

func oppositeTeam(current string, teams []string) string {
	for _, team := range teams {
		if team != "" && team != current {
			return team
		}
	}
	return "Unknown Team"
}

func inningsKey(n int) string {
	return fmt.Sprintf("innings_%d", n)
}

func sortPlayers(players []match.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Role != players[j].Role {
			return players[i].Role < players[j].Role
		}
		return players[i].Name < players[j].Name
	})
}
