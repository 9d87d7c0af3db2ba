package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ghnotify/pkg/linkheader"
)

// ErrTooManyPages is returned when a pagination walk exceeds the configured
// page guard. It protects against a server that keeps advertising a "next"
// page forever.
var ErrTooManyPages = errors.New("too many notification pages")

// Notification is one entry from the GitHub notifications feed. Only the
// reason code matters here; all other fields are ignored. Reason codes are
// not validated, so new upstream codes pass through untouched.
type Notification struct {
	Reason string `json:"reason"`
}

// Getter performs an authenticated GET against an absolute URL and fails on
// any non-2xx response. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Fetcher lazily walks every page of the notifications endpoint. It is not
// safe for concurrent use and cannot be restarted; build a fresh one per
// poll cycle.
type Fetcher struct {
	getter Getter

	// MaxPages caps the number of page requests in one walk.
	// 0 means unbounded. Set it before the first Scan call.
	MaxPages int

	cursor string
	buf    []Notification
	next   int
	cur    Notification
	pages  int
	err    error
	done   bool
}

// NewFetcher returns a fetcher whose first request targets
// apiServer + "/notifications".
func NewFetcher(getter Getter, apiServer string) *Fetcher {
	return &Fetcher{
		getter: getter,
		cursor: apiServer + "/notifications",
	}
}

// Scan advances to the next notification, issuing a page request whenever
// the current buffer is drained. It returns false when the sequence is
// exhausted or failed; check Err to tell the two apart. After returning
// false it never issues another request.
func (f *Fetcher) Scan(ctx context.Context) bool {
	if f.done {
		return false
	}

	for {
		if f.next < len(f.buf) {
			f.cur = f.buf[f.next]
			f.next++
			return true
		}

		if f.cursor == "" {
			f.done = true
			return false
		}

		if err := f.fetchPage(ctx); err != nil {
			f.err = err
			f.done = true
			return false
		}
	}
}

// Notification returns the record produced by the last successful Scan.
func (f *Fetcher) Notification() Notification {
	return f.cur
}

// Err returns the first error encountered during the walk, if any.
func (f *Fetcher) Err() error {
	return f.err
}

// Pages returns the number of page requests issued so far.
func (f *Fetcher) Pages() int {
	return f.pages
}

// fetchPage requests the page at the current cursor, refills the buffer, and
// advances the cursor to the rel="next" link (or to the empty sentinel when
// the server reports no further page). On failure the buffer is left empty
// so no partial page is ever handed out.
func (f *Fetcher) fetchPage(ctx context.Context) error {
	if f.MaxPages > 0 && f.pages >= f.MaxPages {
		return fmt.Errorf("%w: %d fetched, next cursor %s", ErrTooManyPages, f.pages, f.cursor)
	}

	resp, err := f.getter.Get(ctx, f.cursor)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f.pages++

	var page []Notification
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Errorf("decode notifications page: %w", err)
	}

	f.cursor = linkheader.Parse(resp.Header.Get("Link"))["next"]
	f.buf = page
	f.next = 0

	return nil
}
