package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
)

// scriptedFetcher serves fixed bodies by locator. Queued errors are returned
// before the body; unknown locators are permanent 404s.
type scriptedFetcher struct {
	mu    sync.Mutex
	pages map[string][]byte
	errs  map[string][]error
	calls map[string]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		pages: map[string][]byte{},
		errs:  map[string][]error{},
		calls: map[string]int{},
	}
}

func (f *scriptedFetcher) set(locator, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[locator] = []byte(body)
}

func (f *scriptedFetcher) failNext(locator string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[locator] = append(f.errs[locator], errs...)
}

func (f *scriptedFetcher) count(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[locator]
}

func (f *scriptedFetcher) Fetch(_ context.Context, locator string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[locator]++
	if queued := f.errs[locator]; len(queued) > 0 {
		f.errs[locator] = queued[1:]
		return nil, queued[0]
	}
	body, ok := f.pages[locator]
	if !ok {
		return nil, &FetchError{Locator: locator, StatusCode: 404}
	}
	return body, nil
}

func temporaryErr(locator string) error {
	return &FetchError{Locator: locator, StatusCode: 503, Temporary: true}
}

// textParser reads the plain-text pages written by scriptMatch:
//
//	summary:<regular players>:<impact players>
//	innings:<label>|<label>
//	balls:<tag>:<count>
//	empty
type textParser struct{}

func (textParser) ParseSummary(matchID int64, body []byte) (match.Metadata, []match.Player, []ParseIssue, error) {
	parts := strings.Split(string(body), ":")
	if len(parts) != 3 || parts[0] != "summary" {
		return match.Metadata{}, nil, nil, fmt.Errorf("match details section not found")
	}
	regular, _ := strconv.Atoi(parts[1])
	impact, _ := strconv.Atoi(parts[2])

	ground := "Wankhede Stadium"
	meta := match.Metadata{MatchID: matchID, Ground: &ground}
	players := make([]match.Player, 0, regular+impact)
	innings := "innings_1"
	for i := 1; i <= regular; i++ {
		pos := (i-1)%11 + 1
		players = append(players, match.Player{
			MatchID: matchID, Innings: &innings, Team: "Home", Name: fmt.Sprintf("Player %d", i),
			Batted: true, BattingPosition: &pos, Role: match.RoleRegular,
		})
	}
	for i := 1; i <= impact; i++ {
		players = append(players, match.Player{MatchID: matchID, Team: "Home", Name: fmt.Sprintf("Impact %d", i), Role: match.RoleImpact})
	}
	return meta, players, nil, nil
}

func (textParser) ParseInnings(body []byte) ([]match.Innings, error) {
	raw, ok := strings.CutPrefix(string(body), "innings:")
	if !ok || raw == "" {
		return nil, fmt.Errorf("innings selector not found")
	}
	var out []match.Innings
	for i, label := range strings.Split(raw, "|") {
		out = append(out, match.NewInnings(i+1, label))
	}
	return out, nil
}

func (textParser) HasCommentary(body []byte) bool {
	return strings.HasPrefix(string(body), "balls:") || string(body) == "panic"
}

func (textParser) ParseCommentary(matchID int64, body []byte, innings match.Innings) ([]match.Event, []ParseIssue) {
	if string(body) == "panic" {
		panic("unexpected commentary layout")
	}
	parts := strings.Split(string(body), ":")
	n, _ := strconv.Atoi(parts[len(parts)-1])
	events := make([]match.Event, 0, n)
	for i := 1; i <= n; i++ {
		bowler := "Bowler"
		events = append(events, match.Event{
			MatchID:    matchID,
			Innings:    innings.Label,
			Sequence:   i,
			Ball:       fmt.Sprintf("%s.%d", parts[1], i),
			Outcome:    "1 run",
			Commentary: "pushed to cover",
			Bowler:     &bowler,
			SuperOver:  innings.SuperOver,
		})
	}
	return events, nil
}

type scriptedMatch struct {
	ref            match.Ref
	innings        []string
	pagesPerInning int
	ballsPerPage   int
	regular        int
	impact         int
}

func testRef(id int64) match.Ref {
	return match.Ref{
		ID:           id,
		ScorecardURL: fmt.Sprintf("https://example.test/series/s-1/m-%d/full-scorecard", id),
	}
}

// scriptMatch registers every page of m; each innings ends with an empty page.
func scriptMatch(f *scriptedFetcher, m scriptedMatch) {
	f.set(m.ref.ScorecardURL, fmt.Sprintf("summary:%d:%d", m.regular, m.impact))
	f.set(m.ref.CommentaryURL(), "innings:"+strings.Join(m.innings, "|"))
	for i := range m.innings {
		for page := 1; page <= m.pagesPerInning; page++ {
			f.set(commentaryPageURL(m.ref.CommentaryURL(), i+1, page), fmt.Sprintf("balls:%d-%d:%d", i+1, page, m.ballsPerPage))
		}
		f.set(commentaryPageURL(m.ref.CommentaryURL(), i+1, m.pagesPerInning+1), "empty")
	}
}

// sleepRecorder is a SleepFunc that never blocks.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
