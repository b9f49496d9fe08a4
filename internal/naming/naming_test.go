package naming

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.UnixMilli(1700000000000)

func TestGenerate_TitleWithSeasonEpisode(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/media/caption.vtt",
		PageContext{Title: "Breaking Bad S01E02 - Pilot", URL: "https://stream.example/watch/1"},
		testNow,
	)

	assert.Contains(t, name, "Breaking_Bad")
	assert.Contains(t, name, "S01E02")
	assert.True(t, len(name) > 4 && name[len(name)-4:] == ".vtt", name)
}

func TestGenerate_EmptyTitleFallsBackToUnknown(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/media/caption.vtt",
		PageContext{Title: "", URL: "https://stream.example/watch/1"},
		testNow,
	)

	assert.Regexp(t, regexp.MustCompile(`^Unknown_\d+\.vtt$`), name)
	assert.Contains(t, name, fmt.Sprintf("%d", testNow.UnixMilli()))
}

func TestGenerate_SeasonEpisodeFromPageURL(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/media/track",
		PageContext{Title: "Some Show", URL: "https://stream.example/some-show/season-2-episode-5"},
		testNow,
	)

	assert.Equal(t, "Some_Show_S02E05.vtt", name)
}

func TestGenerate_VerbosePattern(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/ep.srt",
		PageContext{Title: "The Wire Season 3 Episode 11"},
		testNow,
	)

	assert.Equal(t, "The_Wire_S03E11.srt", name)
}

func TestGenerate_CrossPattern(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/ep.srt",
		PageContext{Title: "Dark 2x08 remastered"},
		testNow,
	)

	assert.Contains(t, name, "S02E08")
	assert.Contains(t, name, "Dark")
}

func TestGenerate_IgnoresResolutionLookalike(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/ep.vtt",
		PageContext{Title: "Concert 1920x1080 stream"},
		testNow,
	)

	// 1920x1080 is a resolution, not season 19 episode 20.
	assert.NotContains(t, name, "S19")
	assert.Contains(t, name, fmt.Sprintf("%d", testNow.UnixMilli()))
}

func TestGenerate_SanitizesUnsafeCharacters(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/ep.vtt",
		PageContext{Title: `What? "Why" S01E01`},
		testNow,
	)

	assert.NotRegexp(t, regexp.MustCompile(`[/\\?%*:|"<>]`), name)
}

func TestGenerate_UnrecognizedExtensionDefaultsToVTT(t *testing.T) {
	name := Generate(
		"https://cdn.example.com/subtitle/12345?fmt=raw",
		PageContext{Title: "Show S01E01"},
		testNow,
	)

	assert.Equal(t, "Show_S01E01.vtt", name)
}

func TestGenerate_NoPageContextUsesURLTail(t *testing.T) {
	name := Generate("https://cdn.example.com/subs/ep-03.srt?sig=abc", PageContext{}, testNow)
	assert.Equal(t, "ep-03.srt", name)
}

func TestGenerate_NoPageContextFormatHint(t *testing.T) {
	name := Generate("https://cdn.example.com/getsrt/40021", PageContext{}, testNow)
	assert.Equal(t, "40021.srt", name)

	name = Generate("https://cdn.example.com/captions/40021", PageContext{}, testNow)
	assert.Equal(t, "40021.vtt", name)
}

func TestGenerate_NoPageContextEmptyPath(t *testing.T) {
	name := Generate("https://cdn.example.com/", PageContext{}, testNow)
	assert.Equal(t, fmt.Sprintf("subtitle_%d.vtt", testNow.UnixMilli()), name)
}
