package usecase

import (
	"errors"
	"fmt"
	"net/http"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrStoreUnavailable marks failures of the store itself (connection,
	// transaction state). It aborts the run instead of failing one match.
	ErrStoreUnavailable = crerr.New("store unavailable")
)

// FetchError is one failed page request. Temporary errors may be retried.
type FetchError struct {
	Locator    string
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Locator, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
	}
	return fmt.Sprintf("fetch %s failed", e.Locator)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTemporaryStatus reports HTTP statuses worth retrying.
func IsTemporaryStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError
}

// IsTemporary reports whether err carries a retryable FetchError.
func IsTemporary(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Temporary
}

// PageFetchError is a page that could not be fetched after all retries.
type PageFetchError struct {
	MatchID  int64
	Kind     PageKind
	Locator  string
	Attempts int
	Err      error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("match %d: %s page %s failed after %d attempt(s): %v", e.MatchID, e.Kind, e.Locator, e.Attempts, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }

// ParseError is a page whose required section could not be extracted.
type ParseError struct {
	MatchID int64
	Kind    PageKind
	Locator string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("match %d: parse %s page %s: %s", e.MatchID, e.Kind, e.Locator, e.Reason)
}

// PersistError is a match whose record set was rolled back.
type PersistError struct {
	MatchID int64
	Reason  string
	Err     error
}

func (e *PersistError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("match %d: persist: %s: %v", e.MatchID, e.Reason, e.Err)
	}
	return fmt.Sprintf("match %d: persist: %s", e.MatchID, e.Reason)
}

func (e *PersistError) Unwrap() error { return e.Err }

// TrackerConflictError is a tracker transition refused because of the
// record's current state.
type TrackerConflictError struct {
	MatchID int64
	Op      string
	Current tracker.Status
}

func (e *TrackerConflictError) Error() string {
	if e.Current == "" {
		return fmt.Sprintf("match %d: tracker %s refused: no record", e.MatchID, e.Op)
	}
	return fmt.Sprintf("match %d: tracker %s refused: status is %s", e.MatchID, e.Op, e.Current)
}

// IsConflict reports whether err is a TrackerConflictError.
func IsConflict(err error) bool {
	var ce *TrackerConflictError
	return errors.As(err, &ce)
}

// MarkStoreUnavailable tags err so the orchestrator aborts the run.
func MarkStoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return crerr.Mark(err, ErrStoreUnavailable)
}

func IsStoreUnavailable(err error) bool {
	return crerr.Is(err, ErrStoreUnavailable)
}

// ErrorKind is the short failure class recorded in run reports.
func ErrorKind(err error) string {
	var (
		pageErr     *PageFetchError
		parseErr    *ParseError
		persistErr  *PersistError
		conflictErr *TrackerConflictError
	)
	switch {
	case err == nil:
		return ""
	case IsStoreUnavailable(err):
		return "store_unavailable"
	case errors.As(err, &pageErr):
		return "fetch"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &persistErr):
		return "persist"
	case errors.As(err, &conflictErr):
		return "conflict"
	case crerr.Is(err, ErrPanic):
		return "panic"
	default:
		return "other"
	}
}

// ErrPanic marks a recovered panic inside one match's pipeline.
var ErrPanic = crerr.New("match pipeline panicked")
