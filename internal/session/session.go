package session

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/rozvidka/rozvidka/internal/config"
	"github.com/rozvidka/rozvidka/internal/observability"
)

// Session is the shared HTTP client for one scrape run. It carries the
// marketplace header set and cookie state; all concurrent fetches of a run
// go through the same pooled transport. Construct one per top-level request
// and pass it by reference — never share across runs.
type Session struct {
	client  *http.Client
	cfg     *config.SessionConfig
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Session from configuration.
func New(cfg *config.SessionConfig, logger *slog.Logger, metrics *observability.Metrics) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.RequestTimeout,
	}

	return &Session{
		client:  client,
		cfg:     cfg,
		logger:  logger.With("component", "session"),
		metrics: metrics,
	}, nil
}

// ShortTimeout is the budget for lightweight endpoints (wishlist counts).
func (s *Session) ShortTimeout() time.Duration { return s.cfg.ShortTimeout }

// WithTransport swaps the underlying transport. Tests use it to inject
// mock responders.
func (s *Session) WithTransport(rt http.RoundTripper) { s.client.Transport = rt }

// FetchJSON fetches a JSON endpoint and returns the decoded object.
// Any network, status, or decode error yields an empty map, never an error;
// the failure is logged and counted. A randomized pacing delay follows the
// fetch to avoid request bursts.
func (s *Session) FetchJSON(ctx context.Context, url string, headers map[string]string) map[string]any {
	body := map[string]any{}
	err := s.GetJSON(ctx, url, headers, &body)
	s.observe("json", err)
	if err != nil {
		s.logger.Warn("json fetch degraded to empty", "url", url, "error", err)
		return map[string]any{}
	}
	s.pace(ctx)
	return body
}

// FetchHTML fetches a raw HTML page. Any failure yields an empty string.
func (s *Session) FetchHTML(ctx context.Context, url string) string {
	start := time.Now()
	data, err := s.get(ctx, url, nil)
	if s.metrics != nil {
		s.metrics.ObserveFetch("html", time.Since(start), err != nil)
	}
	if err != nil {
		s.logger.Warn("html fetch degraded to empty", "url", url, "error", err)
		return ""
	}
	s.pace(ctx)
	return string(data)
}

// GetJSON fetches and decodes a JSON endpoint into out. Unlike FetchJSON it
// surfaces the error, for callers that decode typed envelopes and apply
// their own defaults.
func (s *Session) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	data, err := s.get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &FetchError{URL: url, Err: fmt.Errorf("decode json: %w", err)}
	}
	return nil
}

// Pace sleeps a uniformly random duration within the configured pacing
// window, or until the context is done.
func (s *Session) Pace(ctx context.Context) { s.pace(ctx) }

func (s *Session) pace(ctx context.Context) {
	min, max := s.cfg.PacingMin, s.cfg.PacingMax
	if max <= min {
		return
	}
	d := min + time.Duration(rand.Int63n(int64(max-min)))
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (s *Session) observe(kind string, err error) {
	if s.metrics != nil {
		if err != nil {
			s.metrics.FetchFailures.WithLabelValues(kind).Inc()
		}
		s.metrics.FetchesTotal.WithLabelValues(kind).Inc()
	}
}

// get executes one GET with the session headers and returns the body.
func (s *Session) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", s.cfg.AcceptLanguage)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	var reader io.Reader = resp.Body
	if s.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, s.cfg.MaxBodySize)
	}

	reader, err = decompressReader(resp, reader)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	s.logger.Debug("fetch complete", "url", url, "status", resp.StatusCode, "size", len(body))
	return body, nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
