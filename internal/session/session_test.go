package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/rozvidka/rozvidka/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testConfig() *config.SessionConfig {
	cfg := config.DefaultConfig().Session
	cfg.PacingMin = 0
	cfg.PacingMax = time.Millisecond
	return &cfg
}

func newTestSession(t *testing.T, transport *httpmock.MockTransport) *Session {
	t.Helper()
	s, err := New(testConfig(), testLogger, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.WithTransport(transport)
	return s
}

func TestFetchJSONSuccess(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/api",
		httpmock.NewStringResponder(200, `{"data": {"count": 7}}`))

	s := newTestSession(t, transport)
	body := s.FetchJSON(context.Background(), "https://example.com/api", nil)

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body)
	}
	if data["count"] != float64(7) {
		t.Errorf("expected count 7, got %v", data["count"])
	}
}

func TestFetchJSONDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"server error", httpmock.NewStringResponder(500, "boom")},
		{"not found", httpmock.NewStringResponder(404, "")},
		{"malformed body", httpmock.NewStringResponder(200, "not json at all")},
		{"network error", httpmock.NewErrorResponder(errors.New("connection refused"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", "https://example.com/api", tt.responder)

			s := newTestSession(t, transport)
			body := s.FetchJSON(context.Background(), "https://example.com/api", nil)

			if body == nil {
				t.Fatal("expected empty map, got nil")
			}
			if len(body) != 0 {
				t.Errorf("expected empty map, got %v", body)
			}
		})
	}
}

func TestFetchHTMLDegradesToEmpty(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/page",
		httpmock.NewStringResponder(503, ""))

	s := newTestSession(t, transport)
	if got := s.FetchHTML(context.Background(), "https://example.com/page"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestFetchHTMLSuccess(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/page",
		httpmock.NewStringResponder(200, "<html><body>ok</body></html>"))

	s := newTestSession(t, transport)
	got := s.FetchHTML(context.Background(), "https://example.com/page")
	if got != "<html><body>ok</body></html>" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestGetJSONSurfacesStatusError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/api",
		httpmock.NewStringResponder(403, "denied"))

	s := newTestSession(t, transport)
	var out map[string]any
	err := s.GetJSON(context.Background(), "https://example.com/api", nil, &out)
	if err == nil {
		t.Fatal("expected error for status 403")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fe.StatusCode != 403 {
		t.Errorf("expected status 403, got %d", fe.StatusCode)
	}
}

func TestGetJSONSendsExtraHeaders(t *testing.T) {
	transport := httpmock.NewMockTransport()
	var gotHeader string
	transport.RegisterResponder("GET", "https://example.com/api",
		func(req *http.Request) (*http.Response, error) {
			gotHeader = req.Header.Get("X-Requested-With")
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	s := newTestSession(t, transport)
	var out map[string]any
	headers := map[string]string{"X-Requested-With": "XMLHttpRequest"}
	if err := s.GetJSON(context.Background(), "https://example.com/api", headers, &out); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if gotHeader != "XMLHttpRequest" {
		t.Errorf("expected XMLHttpRequest header, got %q", gotHeader)
	}
}

func TestPaceRespectsContextCancel(t *testing.T) {
	cfg := testConfig()
	cfg.PacingMin = time.Hour
	cfg.PacingMax = 2 * time.Hour

	s, err := New(cfg, testLogger, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Pace(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pace did not return on cancelled context")
	}
}
