package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ghnotify/pkg/client"
)

func newTestPoller(t *testing.T, cfg Config) *Poller {
	t.Helper()

	if cfg.Client == nil {
		c, err := client.New(client.Config{Token: "test-token"})
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		cfg.Client = c
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create poller: %v", err)
	}
	return p
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, client.ErrMissingToken) {
		t.Errorf("New() error = %v, want ErrMissingToken", err)
	}
}

func TestNew_RejectsMalformedFormat(t *testing.T) {
	_, err := New(Config{Token: "test-token", Format: "{total"})
	if err == nil {
		t.Error("New() = nil error, want template parse failure")
	}
}

func TestPoller_InitialText(t *testing.T) {
	p := newTestPoller(t, Config{})

	text, show := p.Text()
	if text != ErrorText {
		t.Errorf("Text = %q, want %q before the first cycle", text, ErrorText)
	}
	if !show {
		t.Error("Initial text must be shown")
	}
}

func TestPoller_UpdateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"reason":"mention"},{"reason":"assign"}]`)
	}))
	defer server.Close()

	p := newTestPoller(t, Config{APIServer: server.URL, Interval: time.Minute})

	delay := p.Update(context.Background())
	if delay != time.Minute {
		t.Errorf("Update() = %v, want the configured interval", delay)
	}

	text, show := p.Text()
	if text != "2" || !show {
		t.Errorf("Text() = (%q, %v), want (\"2\", true)", text, show)
	}
	if p.Total() != 2 {
		t.Errorf("Total() = %d, want 2", p.Total())
	}
}

func TestPoller_FollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"reason":"comment"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/notifications?page=2>; rel="next"`, server.URL))
		fmt.Fprint(w, `[{"reason":"mention"},{"reason":"mention"}]`)
	}))
	defer server.Close()

	p := newTestPoller(t, Config{
		APIServer: server.URL,
		Format:    "{total} ({mention})",
	})
	p.Update(context.Background())

	text, _ := p.Text()
	if text != "3 (2)" {
		t.Errorf("Text = %q, want \"3 (2)\"", text)
	}
}

func TestPoller_DegradesOnFailure(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"reason":"mention"}]`)
	}))
	defer server.Close()

	p := newTestPoller(t, Config{APIServer: server.URL, Interval: 30 * time.Second})
	ctx := context.Background()

	p.Update(ctx)
	if text, _ := p.Text(); text != "1" {
		t.Fatalf("Text = %q after success, want \"1\"", text)
	}

	fail.Store(true)
	delay := p.Update(ctx)
	if delay != 30*time.Second {
		t.Errorf("Update() = %v after failure, want the unchanged interval", delay)
	}
	text, show := p.Text()
	if text != ErrorText || !show {
		t.Errorf("Text() = (%q, %v) after failure, want (%q, true)", text, show, ErrorText)
	}

	fail.Store(false)
	p.Update(ctx)
	if text, _ := p.Text(); text != "1" {
		t.Errorf("Text = %q after recovery, want \"1\"", text)
	}
}

func TestPoller_HideIfTotalIsZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	tests := []struct {
		name     string
		hide     bool
		expected bool
	}{
		{name: "hidden when enabled", hide: true, expected: false},
		{name: "shown when disabled", hide: false, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPoller(t, Config{APIServer: server.URL, HideIfTotalIsZero: tt.hide})
			p.Update(context.Background())

			if _, show := p.Text(); show != tt.expected {
				t.Errorf("Text() visibility = %v, want %v", show, tt.expected)
			}
		})
	}
}

func TestPoller_VisibilityFollowsLastSuccessfulTotal(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"reason":"mention"}]`)
	}))
	defer server.Close()

	p := newTestPoller(t, Config{APIServer: server.URL, HideIfTotalIsZero: true})
	ctx := context.Background()

	// Nothing succeeded yet: the preserved total is zero, so the display
	// stays hidden even though the text is the error indicator.
	if _, show := p.Text(); show {
		t.Error("Display should be hidden while the preserved total is zero")
	}

	p.Update(ctx)
	if _, show := p.Text(); !show {
		t.Error("Display should be shown once notifications exist")
	}

	// A failed cycle keeps the preserved total, so the error indicator
	// stays visible.
	fail.Store(true)
	p.Update(ctx)
	text, show := p.Text()
	if text != ErrorText || !show {
		t.Errorf("Text() = (%q, %v), want the error indicator shown", text, show)
	}
}

func TestPoller_RenderErrorKeepsPreviousText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"reason":"mention"}]`)
	}))
	defer server.Close()

	p := newTestPoller(t, Config{
		APIServer: server.URL,
		Format:    "{total} {bogus_field}",
	})
	p.Update(context.Background())

	text, _ := p.Text()
	if text != ErrorText {
		t.Errorf("Text = %q, want the previous text kept on render failure", text)
	}
	if p.Total() != 1 {
		t.Errorf("Total() = %d, want 1 (the tally itself succeeded)", p.Total())
	}
}

func TestPoller_MaxPagesGuard(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", fmt.Sprintf(`<%s/notifications>; rel="next"`, server.URL))
		fmt.Fprint(w, `[{"reason":"mention"}]`)
	}))
	defer server.Close()

	p := newTestPoller(t, Config{APIServer: server.URL, MaxPages: 5})
	p.Update(context.Background())

	text, _ := p.Text()
	if text != ErrorText {
		t.Errorf("Text = %q, want degraded display when the walk never terminates", text)
	}
}
