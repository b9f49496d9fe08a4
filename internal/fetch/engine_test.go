package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(5*time.Second, "test-agent/1.0", 1<<20)
}

func TestFetch_ReplaysObservedHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("WEBVTT\n"))
	}))
	defer srv.Close()

	observed := http.Header{}
	observed.Set("Cookie", "session=abc123")
	observed.Set("X-Custom-Token", "tok")
	observed.Set(":authority", "stream.example")

	res, err := newTestEngine().Fetch(context.Background(), srv.URL+"/ep.vtt", observed)
	require.NoError(t, err)
	assert.Equal(t, []byte("WEBVTT\n"), res.Body)
	assert.False(t, res.Opaque)

	assert.Equal(t, "session=abc123", got.Get("Cookie"))
	assert.Equal(t, "tok", got.Get("X-Custom-Token"))
	assert.Equal(t, "1", got.Get(MarkerHeader))
	// Pseudo-headers must not be replayed.
	assert.Empty(t, got.Values(":authority"))
}

func TestFetch_FallsBackToMinimalStrategy(t *testing.T) {
	var calls int
	var lastHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		lastHeaders = r.Header.Clone()
		// Reject the replayed-cookie attempt, accept the generic one.
		if r.Header.Get("Cookie") != "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/vtt")
		_, _ = w.Write([]byte("WEBVTT\n"))
	}))
	defer srv.Close()

	observed := http.Header{}
	observed.Set("Cookie", "stale=1")

	res, err := newTestEngine().Fetch(context.Background(), srv.URL+"/ep.vtt", observed)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "text/vtt", res.ContentType)

	assert.Equal(t, "1", lastHeaders.Get(MarkerHeader))
	assert.Equal(t, "test-agent/1.0", lastHeaders.Get("User-Agent"))
	assert.Equal(t, defaultAccept, lastHeaders.Get("Accept"))
	assert.True(t, strings.HasPrefix(lastHeaders.Get("Referer"), "http://"))
	assert.Empty(t, lastHeaders.Get("Cookie"))
}

func TestFetch_NoObservedHeadersSkipsReplay(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("WEBVTT\n"))
	}))
	defer srv.Close()

	_, err := newTestEngine().Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetch_AllStrategiesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	observed := http.Header{}
	observed.Set("Cookie", "a=1")

	_, err := newTestEngine().Fetch(context.Background(), srv.URL, observed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllStrategiesFailed))
	assert.Contains(t, err.Error(), "502")
}

func TestFetch_BodyCapped(t *testing.T) {
	payload := strings.Repeat("a", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	engine := NewEngine(5*time.Second, "test-agent/1.0", 1024)
	res, err := engine.Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Len(t, res.Body, 1024)
}

func TestIsSelfRequest(t *testing.T) {
	h := http.Header{}
	assert.False(t, IsSelfRequest(h))

	h.Set(MarkerHeader, "1")
	assert.True(t, IsSelfRequest(h))
}
