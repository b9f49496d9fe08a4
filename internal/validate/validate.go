// Package validate decides whether fetched bytes actually are a subtitle
// file. Streaming sites serve plenty of look-alikes from subtitle-ish URLs
// (player scripts, JSON manifests, error pages), so rejection rules run
// before any acceptance signature is considered.
package validate

import (
	"regexp"
	"strings"
)

// Format identifies a subtitle format detected from content.
type Format string

const (
	FormatUnknown Format = ""
	FormatVTT     Format = "vtt"
	FormatSRT     Format = "srt"
	FormatASS     Format = "ass"
	FormatTTML    Format = "ttml"
)

// Result describes the outcome of a content sniff.
type Result struct {
	Format Format
	// Reason names the rule or signature that decided the outcome.
	Reason string
}

// Signatures always appear near the start of a subtitle file, so the checks
// run against a bounded head sample rather than the whole payload.
const headSampleBytes = 1000

var (
	htmlMarkers    = []string{"<!doctype", "<html", "<head", "<body"}
	scriptMarkers  = []string{"function(", "var ", "const ", "let ", "=>"}
	bundlerMarkers = []string{"webpack", "self.webpackchunk"}

	// Section headers that make a leading '[' ASS/SSA rather than JSON.
	assSectionRx = regexp.MustCompile(`(?i)^\[(script info|events|v4\+? styles)\]`)

	srtCueIndexRx = regexp.MustCompile(`^\d+\r?\n`)

	// HH:MM:SS cue timing, dot or comma decimals, tolerant arrow.
	timingLineRx = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}[.,]\d{1,3}\s*-+>\s*\d{1,2}:\d{2}:\d{2}[.,]\d{1,3}`)
)

var fallbackMarkers = []string{
	"WEBVTT",
	"[Script Info]",
	"[Events]",
	"Dialogue:",
	"Format:",
}

// Sniff inspects content and reports whether it is a subtitle payload,
// together with the detected format. srcURL is currently only consulted for
// logging-friendly reasons and kept for parity with the ingestion call site.
func Sniff(content []byte, srcURL string) (Result, bool) {
	_ = srcURL

	head := string(content)
	if len(head) > headSampleBytes {
		head = head[:headSampleBytes]
	}
	lowerHead := strings.ToLower(head)
	trimmedHead := strings.TrimSpace(head)

	// Rejection rules short-circuit: any match wins over every signature.
	if reason, rejected := rejectReason(lowerHead, trimmedHead); rejected {
		return Result{Reason: reason}, false
	}

	// Acceptance signatures, first match wins.
	if strings.HasPrefix(trimmedHead, "WEBVTT") {
		return Result{Format: FormatVTT, Reason: "webvtt-header"}, true
	}
	if strings.Contains(head, "[Script Info]") {
		return Result{Format: FormatASS, Reason: "ass-script-info"}, true
	}
	if srtCueIndexRx.MatchString(trimmedHead) {
		return Result{Format: FormatSRT, Reason: "srt-cue-index"}, true
	}
	if strings.HasPrefix(trimmedHead, "<?xml") || strings.Contains(head, "<tt") {
		return Result{Format: FormatTTML, Reason: "ttml-xml"}, true
	}

	// Fallback: scan the full content. This recovers payloads whose leading
	// BOM, whitespace, or comments defeat the start-anchored checks.
	full := string(content)
	for _, marker := range fallbackMarkers {
		if strings.Contains(full, marker) {
			return Result{Format: fallbackFormat(marker), Reason: "fallback-marker"}, true
		}
	}
	if timingLineRx.MatchString(full) {
		format := FormatVTT
		if m := timingLineRx.FindString(full); strings.Contains(m, ",") {
			format = FormatSRT
		}
		return Result{Format: format, Reason: "fallback-timing"}, true
	}

	return Result{Reason: "no-signature"}, false
}

// IsValidSubtitleContent reports whether content passes the sniff.
func IsValidSubtitleContent(content []byte, srcURL string) bool {
	_, ok := Sniff(content, srcURL)
	return ok
}

func rejectReason(lowerHead, trimmedHead string) (string, bool) {
	for _, m := range htmlMarkers {
		if strings.Contains(lowerHead, m) {
			return "html", true
		}
	}
	for _, m := range scriptMarkers {
		if strings.Contains(lowerHead, m) {
			return "script", true
		}
	}
	if looksLikeJSON(lowerHead, trimmedHead) {
		return "json", true
	}
	for _, m := range bundlerMarkers {
		if strings.Contains(lowerHead, m) {
			return "bundler", true
		}
	}
	if strings.Contains(lowerHead, "jwplayer") || strings.Contains(lowerHead, "jw player") {
		return "jwplayer-banner", true
	}
	return "", false
}

func looksLikeJSON(lowerHead, trimmedHead string) bool {
	if strings.Contains(lowerHead, "json.parse") {
		return true
	}
	if strings.HasPrefix(trimmedHead, "{") {
		return true
	}
	// A leading '[' is JSON unless it opens an ASS/SSA section header.
	if strings.HasPrefix(trimmedHead, "[") && !assSectionRx.MatchString(trimmedHead) {
		return true
	}
	return false
}

func fallbackFormat(marker string) Format {
	switch marker {
	case "WEBVTT":
		return FormatVTT
	case "[Script Info]", "[Events]", "Dialogue:":
		return FormatASS
	default:
		return FormatUnknown
	}
}
