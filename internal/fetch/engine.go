// Package fetch retrieves candidate subtitle URLs using a sequence of
// request strategies. Streaming CDNs are picky about headers, so the first
// strategy replays what the browser actually sent; the second falls back to
// a minimal generic request.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MarkerHeader identifies requests originated by the capture pipeline itself,
// so the observation layer can skip them and not recurse into its own fetches.
const MarkerHeader = "X-Subsniff-Request"

// ErrAllStrategiesFailed wraps the last strategy error once every strategy
// has been exhausted.
var ErrAllStrategiesFailed = errors.New("all fetch strategies failed")

const defaultAccept = "text/vtt,text/plain;q=0.9,*/*;q=0.8"

// Result is a successful retrieval. Opaque marks a response that was
// received but whose body could not be read; the caller treats it as fetched
// but unusable and never retries it.
type Result struct {
	Body        []byte
	Status      int
	ContentType string
	Opaque      bool
}

type Engine struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

func NewEngine(timeout time.Duration, userAgent string, maxBodyBytes int64) *Engine {
	return &Engine{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
	}
}

type strategy struct {
	name  string
	build func(req *http.Request)
}

// Fetch tries each strategy in order and returns the first readable
// response. observed carries the outbound request headers previously seen
// for this URL, if any; without them only the minimal strategy runs.
func (e *Engine) Fetch(ctx context.Context, rawURL string, observed http.Header) (*Result, error) {
	strategies := make([]strategy, 0, 2)
	if len(observed) > 0 {
		strategies = append(strategies, strategy{
			name: "replay-observed",
			build: func(req *http.Request) {
				for name, values := range observed {
					// HTTP/2 pseudo-headers observed on the wire cannot be replayed.
					if strings.HasPrefix(name, ":") {
						continue
					}
					for _, v := range values {
						req.Header.Add(name, v)
					}
				}
				req.Header.Set(MarkerHeader, "1")
			},
		})
	}
	strategies = append(strategies, strategy{
		name: "minimal",
		build: func(req *http.Request) {
			req.Header.Set(MarkerHeader, "1")
			if origin := originOf(rawURL); origin != "" {
				req.Header.Set("Referer", origin)
			}
			req.Header.Set("Accept", defaultAccept)
			req.Header.Set("User-Agent", e.userAgent)
		},
	})

	var lastErr error
	for _, s := range strategies {
		res, err := e.attempt(ctx, rawURL, s)
		if err != nil {
			lastErr = err
			continue
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, lastErr)
}

func (e *Engine) attempt(ctx context.Context, rawURL string, s strategy) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", s.name, err)
	}
	s.build(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected status %d", s.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodyBytes))
	if err != nil {
		// Fetched but unreadable; the capture pipeline treats this as
		// terminal rather than retryable.
		return &Result{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Opaque:      true,
		}, nil
	}

	return &Result{
		Body:        body,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// IsSelfRequest reports whether observed request headers carry the engine's
// own marker.
func IsSelfRequest(headers http.Header) bool {
	return headers.Get(MarkerHeader) != ""
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
