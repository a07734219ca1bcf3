package cricinfo

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const (
	scorecardPathSuffix  = "/full-scorecard"
	commentaryPathSuffix = "/ball-by-ball-commentary"

	selMetadataRow      = "div.ds-border-color-border-secondary.ds-flex.ds-border-t"
	selBattingTable     = "table.ci-scorecard-table"
	selBowlingTable     = "table.ds-v2-table.ds-table-auto"
	selTeamTitle        = "span.ds-text-title-1.ds-font-semibold.ds-capitalize"
	selPlayerCell       = "td.ds-w-0.ds-whitespace-nowrap.ds-min-w-max"
	selPlayerLinkSpan   = "span.ds-text-table-link"
	selBowlerSpan       = "span.ds-text-table-link.ds-font-semibold"
	selCricketerLink    = `a[href*="/cricketers/"]`
	selImpactIcon       = "i.icon-arrow_back-filled.ds-text-icon.ds-text-icon-success-hover"
	selRetiredIcon      = "i.icon-arrow_forward-filled"
	selDidNotBatHeader  = "span.ds-text-overline-2"
	selInningsItem      = "li.ds-w-full.ds-flex"
	selCommentaryBlock  = "div.ds-text-article-body-1.ds-flex.ds-items-start"
	selCommentaryHeader = "div.ds-text-overline-1.ds-font-medium"

	notOutClass = "ci-v2-scorecard-player-notout"
)

// Parser extracts records from source pages. It holds no state and is safe
// for concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

var _ usecase.PageParser = (*Parser)(nil)

// ParseInnings reads the innings selector of the commentary page. Labels are
// trimmed and deduplicated in source order; Index is the 1-based position
// used in commentary page queries.
func (p *Parser) ParseInnings(body []byte) ([]match.Innings, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]match.Innings, 0, 4)
	doc.Find(selInningsItem).Each(func(_ int, item *goquery.Selection) {
		label := cleanText(item.Text())
		if label == "" {
			return
		}
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		out = append(out, match.NewInnings(len(out)+1, label))
	})

	if len(out) == 0 {
		return nil, fmt.Errorf("innings selector not found")
	}
	return out, nil
}

// HasCommentary reports whether the page carries at least one delivery block.
func (p *Parser) HasCommentary(body []byte) bool {
	doc, err := newDocument(body)
	if err != nil {
		return false
	}
	return doc.Find(selCommentaryBlock).Length() > 0
}

func newDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// cleanText trims and collapses internal whitespace.
func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// joinedText concatenates the text nodes under sel separated by single spaces.
func joinedText(sel *goquery.Selection) string {
	parts := make([]string, 0, 8)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := cleanText(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func issue(locator, format string, args ...any) usecase.ParseIssue {
	return usecase.ParseIssue{Locator: locator, Reason: fmt.Sprintf(format, args...)}
}
