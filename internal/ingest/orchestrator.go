// Package ingest wires network observations through the capture pipeline:
// classify the URL, fetch it with the strategy engine, validate the bytes,
// derive a name, and append to the capture store. Transient failures are
// retried with a linear backoff; permanent failures land in a negative
// cache so repeat observations stay cheap.
package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"subsniff/internal/classify"
	"subsniff/internal/fetch"
	"subsniff/internal/naming"
	"subsniff/internal/store"
	"subsniff/internal/validate"
	"subsniff/pkg/log"
)

// ErrValidationReject marks bytes that were fetched fine but are not
// subtitle content. Terminal for the URL: refetching will not change what
// the server serves.
var ErrValidationReject = errors.New("content failed subtitle validation")

// PageResolver answers "which page does this tab show" for naming context.
type PageResolver interface {
	Resolve(tabID string) (naming.PageContext, bool)
}

// PageResolverFunc adapts a function to the PageResolver interface.
type PageResolverFunc func(tabID string) (naming.PageContext, bool)

func (f PageResolverFunc) Resolve(tabID string) (naming.PageContext, bool) {
	return f(tabID)
}

// Config tunes the retry/backoff controller.
type Config struct {
	// MaxRetries is the number of re-attempts after the initial one.
	MaxRetries int
	// RetryDelay is the base delay; attempt n waits RetryDelay × (n+1).
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	return c
}

type Orchestrator struct {
	state  *State
	engine *fetch.Engine
	store  *store.Store
	pages  PageResolver
	cfg    Config

	wg sync.WaitGroup
}

func NewOrchestrator(state *State, engine *fetch.Engine, st *store.Store, pages PageResolver, cfg Config) *Orchestrator {
	return &Orchestrator{
		state:  state,
		engine: engine,
		store:  st,
		pages:  pages,
		cfg:    cfg.withDefaults(),
	}
}

// State exposes the transient caches for the status endpoint and the
// clear-captures action.
func (o *Orchestrator) State() *State {
	return o.state
}

// ObserveRequest records outbound headers for classifier-positive URLs so a
// later fetch can replay them. Requests carrying the pipeline's own marker
// header are skipped, which keeps the observer from recursing into its own
// fetches.
func (o *Orchestrator) ObserveRequest(ev RequestEvent) {
	if fetch.IsSelfRequest(ev.Headers) {
		return
	}
	if !classify.IsLikelySubtitleURL(ev.URL) {
		return
	}
	o.state.CacheHeaders(ev.URL, ev.Headers)
}

// ObserveResponse runs the pre-filter and, when it passes, starts a capture
// task. A subtitle-ish content-type is the second-chance path past a
// classifier reject. Never returns an error: observation callbacks must not
// fail the host's own event handling.
func (o *Orchestrator) ObserveResponse(ev ResponseEvent) {
	if !classify.IsLikelySubtitleURL(ev.URL) && !isSubtitleContentType(ev.ContentType) {
		return
	}

	var page naming.PageContext
	if o.pages != nil && ev.TabID != "" {
		if resolved, ok := o.pages.Resolve(ev.TabID); ok {
			page = resolved
		}
	}
	o.startCapture(ev.URL, page)
}

// ObserveCandidate feeds a URL straight into the capture pipeline. This is
// the entry used by alternate observation sources (page scanner, manual
// API); same pipeline, different front door.
func (o *Orchestrator) ObserveCandidate(url string, page naming.PageContext) {
	o.startCapture(url, page)
}

// Sweep runs the periodic cache maintenance pass.
func (o *Orchestrator) Sweep() SweepReport {
	return o.state.Sweep()
}

// Wait blocks until every in-flight capture task, scheduled retries
// included, has finished. Used by tests and by shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) startCapture(url string, page naming.PageContext) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.process(url, page, 0)
	}()
}

func (o *Orchestrator) scheduleRetry(url string, page naming.PageContext, attempt int) {
	delay := o.cfg.RetryDelay * time.Duration(attempt)
	o.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer o.wg.Done()
		o.process(url, page, attempt)
	})
}

// process runs one capture attempt. The dedup guard is claimed before any
// blocking work; a retry that fires after another path already captured the
// URL sees the key taken and becomes a no-op.
func (o *Orchestrator) process(url string, page naming.PageContext, attempt int) {
	key := DedupKey(url)
	if !o.state.TryBegin(key) {
		return
	}

	res, err := o.engine.Fetch(context.Background(), url, o.state.Headers(url))
	if err != nil {
		if attempt < o.cfg.MaxRetries {
			log.Debug("fetch failed for %s (attempt %d), retrying: %v", url, attempt+1, err)
			o.state.Release(key)
			o.scheduleRetry(url, page, attempt+1)
			return
		}
		log.Warn("fetch failed permanently for %s after %d attempts: %v", url, attempt+1, err)
		o.state.MarkFailed(key)
		return
	}

	if res.Opaque {
		// Fetched but unreadable. Retrying cannot help, so the key goes
		// straight to the negative cache.
		log.Debug("opaque response for %s, giving up", url)
		o.state.MarkFailed(key)
		return
	}

	sniffed, ok := validate.Sniff(res.Body, url)
	if !ok {
		log.Debug("dropping %s: %v (%s)", url, ErrValidationReject, sniffed.Reason)
		return
	}

	capture := &store.Capture{
		Name:       naming.Generate(url, page, time.Now()),
		SourceURL:  url,
		Data:       res.Body,
		SizeBytes:  int64(len(res.Body)),
		Language:   detectLanguage(res.Body),
		Format:     string(sniffed.Format),
		CapturedAt: time.Now().UnixMilli(),
	}

	inserted, err := o.store.Append(context.Background(), capture)
	if err != nil {
		log.Error("failed to store capture for %s: %v", url, err)
		return
	}
	if !inserted {
		log.Debug("duplicate capture skipped for %s", url)
		return
	}
	log.Info("captured %s (%d bytes) from %s", capture.Name, capture.SizeBytes, url)
}

var subtitleContentTypes = []string{
	"text/vtt",
	"text/srt",
	"application/x-subrip",
	"application/ttml",
	"subtitle",
}

func isSubtitleContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	lower := strings.ToLower(contentType)
	for _, t := range subtitleContentTypes {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
