package cricinfo

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const commentaryJoiner = "#**#"

var noiseTerms = []string{"photos", "see all", "image", "gallery"}

// ParseCommentary extracts the deliveries of one commentary page in source
// order. Sequence is the 1-based position of the event on the page.
func (p *Parser) ParseCommentary(matchID int64, body []byte, innings match.Innings) ([]match.Event, []usecase.ParseIssue) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, []usecase.ParseIssue{issue(innings.Label, "%v", err)}
	}

	var (
		events []match.Event
		issues []usecase.ParseIssue
	)
	doc.Find(selCommentaryBlock).Each(func(i int, block *goquery.Selection) {
		ev, ok := parseBlock(block)
		if !ok {
			issues = append(issues, issue(fmt.Sprintf("%s/block/%d", innings.Label, i+1), "block has no ball label"))
			return
		}
		ev.MatchID = matchID
		ev.Innings = innings.Label
		ev.SuperOver = innings.SuperOver
		ev.Sequence = len(events) + 1
		events = append(events, ev)
	})

	return events, issues
}

func parseBlock(block *goquery.Selection) (match.Event, bool) {
	header := cleanText(block.Find(selCommentaryHeader).First().Text())
	spans := spanTexts(block)
	if len(spans) == 0 {
		return match.Event{}, false
	}

	ev := match.Event{Ball: cleanText(spans[0])}
	if len(spans) > 1 {
		ev.Outcome = spans[1]
	}
	if len(spans) > 2 {
		ev.Score = spans[2]
	}
	ev.Bowler, ev.Batsman = splitHeader(header)
	ev.Commentary = commentaryText(block, header, spans)
	return ev, true
}

// spanTexts returns the non-empty texts of the innermost spans outside the
// header, dropping photo and gallery widgets.
func spanTexts(block *goquery.Selection) []string {
	out := make([]string, 0, 4)
	block.Find("span").
		Not(selCommentaryHeader+" span").
		FilterFunction(func(_ int, s *goquery.Selection) bool { return s.Find("span").Length() == 0 }).
		Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" || isNoise(text) {
				return
			}
			out = append(out, text)
		})
	return out
}

func isNoise(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range noiseTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// commentaryText joins paragraph and bold texts with their spacing intact;
// when there are none it falls back to the block text minus the header and
// span texts.
func commentaryText(block *goquery.Selection, header string, spans []string) string {
	parts := make([]string, 0, 4)
	collect := func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	block.Find("p").Each(collect)
	block.Find("strong").Each(collect)
	if len(parts) > 0 {
		return strings.Join(parts, commentaryJoiner)
	}

	rest := joinedText(block)
	if header != "" {
		rest = strings.Replace(rest, header, "", 1)
	}
	for _, span := range spans {
		rest = strings.Replace(rest, cleanText(span), "", 1)
	}
	return cleanText(rest)
}

// splitHeader reads "Bowler to Batsman, outcome".
func splitHeader(header string) (*string, *string) {
	bowler, rest, ok := strings.Cut(header, " to ")
	if !ok {
		return nil, nil
	}
	batsman, _, _ := strings.Cut(rest, ",")
	return stringPtr(strings.TrimSpace(bowler)), stringPtr(strings.TrimSpace(batsman))
}
