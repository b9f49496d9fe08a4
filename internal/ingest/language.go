package ingest

import (
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

var (
	timingLineRx = regexp.MustCompile(`^\s*\d{1,2}:\d{2}:\d{2}[.,]\d{1,3}\s*-+>`)
	cueIndexRx   = regexp.MustCompile(`^\s*\d+\s*$`)
	markupTagRx  = regexp.MustCompile(`<[^>]+>|\{[^}]+\}`)
)

// detectLanguage guesses the subtitle's language from its dialogue text and
// returns a canonical ISO 639-1 code, or "" when detection is unreliable.
// Timing lines, cue indices and inline markup are stripped first so the
// detector only sees prose.
func detectLanguage(content []byte) string {
	text := dialogueText(string(content))
	if len(text) < 40 {
		return ""
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return ""
	}

	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	return base.String()
}

func dialogueText(content string) string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "WEBVTT" {
			continue
		}
		if timingLineRx.MatchString(trimmed) || cueIndexRx.MatchString(trimmed) {
			continue
		}
		if strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		// ASS dialogue lines carry the text in the last comma field.
		if strings.HasPrefix(trimmed, "Dialogue:") {
			parts := strings.SplitN(trimmed, ",", 10)
			trimmed = parts[len(parts)-1]
		} else if strings.HasPrefix(trimmed, "Format:") || strings.HasPrefix(trimmed, "Style:") {
			continue
		}
		trimmed = markupTagRx.ReplaceAllString(trimmed, " ")
		b.WriteString(trimmed)
		b.WriteString(" ")
		if b.Len() > 4000 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}
