// Package naming derives a descriptive, filesystem-safe file name for a
// captured subtitle from its source URL and the page it was observed on.
package naming

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PageContext carries what is known about the page the capture came from.
// A zero value means no page context was available.
type PageContext struct {
	Title string
	URL   string
}

// Season/episode patterns, tried in order, first match wins. The title is
// always checked before the page URL.
var seasonEpisodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)S(\d{1,2})\s*E(\d{1,3})`),
	regexp.MustCompile(`(?i)Season[\s._-]*(\d+)[\s._-]*Episode[\s._-]*(\d+)`),
	regexp.MustCompile(`(?i)(?:^|[^\dx])(\d{1,2})x(\d{1,3})(?:\D|$)`),
}

var subtitleExtensions = map[string]bool{
	".vtt": true, ".srt": true, ".ass": true, ".ssa": true,
	".sbv": true, ".sub": true, ".ttml": true, ".dfxp": true,
}

var (
	nonWordRx    = regexp.MustCompile(`\W+`)
	spacesRx     = regexp.MustCompile(`\s+`)
	unsafeCharRx = regexp.MustCompile(`[/\\?%*:|"<>]`)
)

// Generate builds a file name for a capture. With page context available it
// attempts show-name plus season/episode naming; without it the name falls
// back to the URL's last path segment.
func Generate(srcURL string, page PageContext, now time.Time) string {
	if page.Title == "" && page.URL == "" {
		return fromURL(srcURL, now)
	}

	season, episode, matched, found := findSeasonEpisode(page.Title)
	if !found {
		season, episode, _, found = findSeasonEpisode(page.URL)
		matched = ""
	}

	show := page.Title
	if matched != "" {
		show = strings.Replace(show, matched, "", 1)
	}
	show = strings.TrimSpace(nonWordRx.ReplaceAllString(show, " "))
	show = spacesRx.ReplaceAllString(show, " ")
	if show == "" {
		show = "Unknown"
	}
	show = strings.ReplaceAll(show, " ", "_")

	ext := extensionFor(srcURL)
	var name string
	if found {
		name = fmt.Sprintf("%s_S%02dE%02d%s", show, season, episode, ext)
	} else {
		// No episode metadata: a timestamp keeps repeat captures from colliding.
		name = fmt.Sprintf("%s_%d%s", show, now.UnixMilli(), ext)
	}
	return sanitize(name)
}

func findSeasonEpisode(s string) (season, episode int, matched string, ok bool) {
	if s == "" {
		return 0, 0, "", false
	}
	for _, rx := range seasonEpisodePatterns {
		m := rx.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		season, _ = strconv.Atoi(m[1])
		episode, _ = strconv.Atoi(m[2])
		return season, episode, m[0], true
	}
	return 0, 0, "", false
}

// extensionFor keeps the source URL's own extension when it is a recognized
// subtitle extension, and defaults to .vtt otherwise.
func extensionFor(srcURL string) string {
	ext := strings.ToLower(path.Ext(urlPath(srcURL)))
	if subtitleExtensions[ext] {
		return ext
	}
	return ".vtt"
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	return u.Path
}

// fromURL names a capture from the URL alone: last path segment, query
// stripped, with a format-hinted extension when none is present.
func fromURL(srcURL string, now time.Time) string {
	segment := path.Base(urlPath(srcURL))
	if segment == "." || segment == "/" {
		segment = ""
	}
	if segment == "" {
		segment = fmt.Sprintf("subtitle_%d", now.UnixMilli())
	}

	if !subtitleExtensions[strings.ToLower(path.Ext(segment))] {
		lower := strings.ToLower(srcURL)
		switch {
		case strings.Contains(lower, "srt"):
			segment += ".srt"
		default:
			segment += ".vtt"
		}
	}
	return sanitize(segment)
}

func sanitize(name string) string {
	return unsafeCharRx.ReplaceAllString(name, "-")
}
