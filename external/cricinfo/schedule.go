package cricinfo

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/riskibarqy/cricket-ingest/internal/domain/match"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const selScorecardLink = `a[href*="/full-scorecard"]`

var matchIDRegex = regexp.MustCompile(`-(\d+)/full-scorecard`)

type ScheduleConfig struct {
	BaseURL     string
	ScheduleURL string
	Logger      *logging.Logger
}

// ScheduleClient lists the matches linked from the results page.
type ScheduleClient struct {
	fetcher     usecase.Fetcher
	baseURL     string
	scheduleURL string
	logger      *logging.Logger
}

func NewScheduleClient(fetcher usecase.Fetcher, cfg ScheduleConfig) *ScheduleClient {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleClient{
		fetcher:     fetcher,
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		scheduleURL: strings.TrimSpace(cfg.ScheduleURL),
		logger:      logger,
	}
}

func (c *ScheduleClient) ListMatches(ctx context.Context) ([]match.Ref, error) {
	if c.scheduleURL == "" {
		return nil, fmt.Errorf("%w: schedule url is required", usecase.ErrInvalidInput)
	}
	body, err := c.fetcher.Fetch(ctx, c.scheduleURL)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}
	refs, err := ParseSchedule(body, c.baseURL)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "schedule listed", "url", c.scheduleURL, "matches", len(refs))
	return refs, nil
}

// ParseSchedule returns the distinct scorecard links of a results page in
// source order. Links without a match id are skipped.
func ParseSchedule(body []byte, baseURL string) ([]match.Ref, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var refs []match.Ref
	doc.Find(selScorecardLink).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		ref, err := RefFromURL(href, baseURL)
		if err != nil {
			return
		}
		if _, ok := seen[ref.ID]; ok {
			return
		}
		seen[ref.ID] = struct{}{}
		refs = append(refs, ref)
	})
	return refs, nil
}

// RefFromURL resolves a scorecard link against baseURL and extracts its
// match id. Query and fragment are dropped.
func RefFromURL(raw, baseURL string) (match.Ref, error) {
	raw = strings.TrimSpace(raw)
	link, err := url.Parse(raw)
	if err != nil {
		return match.Ref{}, fmt.Errorf("%w: scorecard url %q: %v", usecase.ErrInvalidInput, raw, err)
	}
	if !link.IsAbs() {
		base, err := url.Parse(baseURL)
		if err != nil || !base.IsAbs() {
			return match.Ref{}, fmt.Errorf("%w: relative scorecard url %q without a valid base", usecase.ErrInvalidInput, raw)
		}
		link = base.ResolveReference(link)
	}
	link.RawQuery = ""
	link.Fragment = ""

	found := matchIDRegex.FindStringSubmatch(link.Path)
	if len(found) != 2 {
		return match.Ref{}, fmt.Errorf("%w: no match id in %q", usecase.ErrInvalidInput, raw)
	}
	id, err := strconv.ParseInt(found[1], 10, 64)
	if err != nil || id <= 0 {
		return match.Ref{}, fmt.Errorf("%w: match id in %q", usecase.ErrInvalidInput, raw)
	}

	return match.Ref{ID: id, ScorecardURL: link.String()}, nil
}

// StaticRefs builds refs from configured scorecard URLs plus an optional
// file with one URL per line ('#' starts a comment).
func StaticRefs(urls []string, path, baseURL string) ([]match.Ref, error) {
	all := append([]string(nil), urls...)
	if strings.TrimSpace(path) != "" {
		fromFile, err := readURLFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, fromFile...)
	}

	seen := make(map[int64]struct{}, len(all))
	refs := make([]match.Ref, 0, len(all))
	for _, raw := range all {
		ref, err := RefFromURL(raw, baseURL)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[ref.ID]; ok {
			continue
		}
		seen[ref.ID] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open match url file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read match url file: %w", err)
	}
	return out, nil
}
