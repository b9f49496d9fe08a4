// Package observe supplies observation sources that feed candidate subtitle
// URLs into the capture pipeline. The passive source is the network event
// API; the active one here scrapes a page's markup for subtitle references
// the network observer may have missed.
package observe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"subsniff/internal/classify"
	"subsniff/internal/naming"
	"subsniff/pkg/log"
)

// CandidateSink receives the subtitle URLs a scan discovers, together with
// the page context they were found on.
type CandidateSink interface {
	ObserveCandidate(url string, page naming.PageContext)
}

type Scanner struct {
	sink      CandidateSink
	userAgent string
	timeout   time.Duration
}

func NewScanner(sink CandidateSink, userAgent string, timeout time.Duration) *Scanner {
	return &Scanner{sink: sink, userAgent: userAgent, timeout: timeout}
}

// ScanReport says what a page scan found.
type ScanReport struct {
	PageTitle  string   `json:"page_title"`
	Candidates []string `json:"candidates"`
}

// Scan fetches a single page and extracts subtitle candidates from <track>
// and <source> elements plus any anchors whose target looks like a subtitle
// file. Discovered candidates are handed to the sink after the scan
// completes, so the page title is known by then.
func (s *Scanner) Scan(ctx context.Context, pageURL string) (ScanReport, error) {
	var report ScanReport
	seen := make(map[string]struct{})

	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.MaxDepth(1),
		// The scan acts on the user's behalf, like their browser would.
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
		default:
		}
	})

	c.OnHTML("title", func(e *colly.HTMLElement) {
		if report.PageTitle == "" {
			report.PageTitle = strings.TrimSpace(e.Text)
		}
	})

	add := func(e *colly.HTMLElement, raw string) {
		abs := e.Request.AbsoluteURL(raw)
		if abs == "" {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		report.Candidates = append(report.Candidates, abs)
	}

	// <track> is the dedicated subtitle element; take it unconditionally.
	c.OnHTML("track[src]", func(e *colly.HTMLElement) {
		add(e, e.Attr("src"))
	})
	c.OnHTML("source[src]", func(e *colly.HTMLElement) {
		if classify.IsLikelySubtitleURL(e.Attr("src")) {
			add(e, e.Attr("src"))
		}
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if classify.IsLikelySubtitleURL(e.Attr("href")) {
			add(e, e.Attr("href"))
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return ScanReport{}, fmt.Errorf("scan %s: %w", pageURL, err)
	}
	c.Wait()

	page := naming.PageContext{Title: report.PageTitle, URL: pageURL}
	for _, candidate := range report.Candidates {
		s.sink.ObserveCandidate(candidate, page)
	}
	log.Info("scanned %s: %d candidate(s)", pageURL, len(report.Candidates))
	return report, nil
}
