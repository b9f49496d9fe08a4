// Package classify decides from a URL string alone whether a network request
// is likely subtitle-related. It is a cheap pre-filter: false negatives get a
// second chance via content-type sniffing at the ingestion layer, while false
// positives cost a network fetch, so the rules lean toward rejection.
package classify

import (
	"regexp"
	"strings"
)

type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictReject
	VerdictAccept
)

// Rule is a named predicate. Rules run in order and the first one that
// matches decides the verdict; reject rules are listed before accept rules.
type Rule struct {
	Name    string
	Verdict Verdict
	Match   func(url string) bool
}

var (
	// Extension checks tolerate a trailing query string.
	nonSubtitleExtRx = regexp.MustCompile(`(?i)\.(js|json|css|html|php|xml|map|txt|log)(\?|$)`)
	subtitleExtRx    = regexp.MustCompile(`(?i)\.(vtt|srt|ass|ssa|sbv|sub|ttml|dfxp)(\?|$)`)
	subtitlePathRx   = regexp.MustCompile(`(?i)/(subtitles?|captions?)/`)
)

var noiseSubstrings = []string{
	"analytics",
	"tracking",
	"doubleclick",
	"adserver",
	"webpack",
	"chunk",
	"polyfill",
}

var rules = []Rule{
	{
		Name:    "non-subtitle-extension",
		Verdict: VerdictReject,
		Match:   nonSubtitleExtRx.MatchString,
	},
	{
		Name:    "noise-substring",
		Verdict: VerdictReject,
		Match: func(url string) bool {
			lower := strings.ToLower(url)
			for _, s := range noiseSubstrings {
				if strings.Contains(lower, s) {
					return true
				}
			}
			return false
		},
	},
	{
		Name:    "subtitle-extension",
		Verdict: VerdictAccept,
		Match:   subtitleExtRx.MatchString,
	},
	{
		Name:    "subtitle-path-segment",
		Verdict: VerdictAccept,
		Match:   subtitlePathRx.MatchString,
	},
}

// Classify runs the rule list and returns the verdict together with the name
// of the rule that decided it. No match means reject.
func Classify(url string) (Verdict, string) {
	for _, r := range rules {
		if r.Match(url) {
			return r.Verdict, r.Name
		}
	}
	return VerdictReject, "default"
}

// IsLikelySubtitleURL reports whether the URL looks like it points at
// subtitle data.
func IsLikelySubtitleURL(url string) bool {
	verdict, _ := Classify(url)
	return verdict == VerdictAccept
}
