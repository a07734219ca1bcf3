package cricinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/platform/metrics"
	"github.com/riskibarqy/cricket-ingest/internal/platform/resilience"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 16 << 20
	defaultUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	circuitDependency   = "cricinfo"
)

var errBodyTooLarge = crerr.New("response body exceeds limit")

type ClientConfig struct {
	HTTPClient     *http.Client
	Timeout        time.Duration
	UserAgent      string
	MaxBodyBytes   int64
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client downloads source pages. It makes exactly one request per Fetch;
// retries belong to the caller.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	breaker := resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		metrics.CircuitState.WithLabelValues(circuitDependency).Set(metrics.CircuitStateValue(string(to)))
		logger.Warn("cricinfo circuit breaker state changed", "from", string(from), "to", string(to))
	})

	return &Client{
		httpClient:   httpClient,
		userAgent:    userAgent,
		maxBodyBytes: maxBody,
		logger:       logger,
		breaker:      breaker,
	}
}

// Fetch returns the body of a 2xx response. Every other outcome is a
// *usecase.FetchError whose Temporary flag tells the caller whether a retry
// may help.
func (c *Client) Fetch(ctx context.Context, locator string) ([]byte, error) {
	kind := locatorKind(locator)
	if err := c.breaker.Allow(); err != nil {
		metrics.FetchRequests.WithLabelValues(kind, "circuit_open").Inc()
		c.logger.WarnContext(ctx, "cricinfo circuit breaker rejected request", "state", string(c.breaker.State()), "locator", locator)
		return nil, &usecase.FetchError{
			Locator:   locator,
			Temporary: true,
			Err:       fmt.Errorf("%w: %w", usecase.ErrDependencyUnavailable, err),
		}
	}

	started := time.Now()
	body, err := c.do(ctx, locator)
	metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	c.breaker.Record(err, countsAsOutage)

	if err != nil {
		metrics.FetchRequests.WithLabelValues(kind, fetchOutcome(err)).Inc()
		return nil, err
	}
	metrics.FetchRequests.WithLabelValues(kind, "ok").Inc()
	return body, nil
}

func (c *Client) do(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &usecase.FetchError{Locator: locator, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A cancelled run is not the source's fault and must not be retried.
		return nil, &usecase.FetchError{Locator: locator, Temporary: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, c.maxBodyBytes+1)); err != nil {
		return nil, &usecase.FetchError{Locator: locator, StatusCode: resp.StatusCode, Temporary: ctx.Err() == nil, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(buf.Len()) > c.maxBodyBytes {
		return nil, &usecase.FetchError{Locator: locator, StatusCode: resp.StatusCode, Err: errBodyTooLarge}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &usecase.FetchError{
			Locator:    locator,
			StatusCode: resp.StatusCode,
			Temporary:  usecase.IsTemporaryStatus(resp.StatusCode),
			Err:        fmt.Errorf("body=%s", abbreviateBody(buf.B)),
		}
	}

	return append([]byte(nil), buf.B...), nil
}

// countsAsOutage keeps client errors such as 404 from tripping the breaker.
func countsAsOutage(err error) bool {
	return usecase.IsTemporary(err)
}

func fetchOutcome(err error) string {
	var fe *usecase.FetchError
	if crerr.As(err, &fe) && fe.StatusCode > 0 {
		return "http_error"
	}
	return "transport_error"
}

func locatorKind(locator string) string {
	switch {
	case strings.Contains(locator, commentaryPathSuffix):
		return "commentary"
	case strings.Contains(locator, scorecardPathSuffix):
		return "summary"
	default:
		return "schedule"
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	text := strings.Join(strings.Fields(string(raw)), " ")
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
