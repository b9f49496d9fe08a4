package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff_AcceptsVTT(t *testing.T) {
	content := []byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHello")

	res, ok := Sniff(content, "https://cdn.example.com/ep1.vtt")
	require.True(t, ok)
	assert.Equal(t, FormatVTT, res.Format)
	assert.Equal(t, "webvtt-header", res.Reason)
}

func TestSniff_AcceptsSRT(t *testing.T) {
	content := []byte("1\n00:00:01,000 --> 00:00:02,500\nFirst line\n\n2\n00:00:03,000 --> 00:00:04,000\nSecond line\n")

	res, ok := Sniff(content, "https://cdn.example.com/ep1.srt")
	require.True(t, ok)
	assert.Equal(t, FormatSRT, res.Format)
	assert.Equal(t, "srt-cue-index", res.Reason)
}

func TestSniff_AcceptsASS(t *testing.T) {
	content := []byte("[Script Info]\nTitle: Episode 1\nScriptType: v4.00+\n\n[Events]\nDialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello\n")

	res, ok := Sniff(content, "https://cdn.example.com/ep1.ass")
	require.True(t, ok)
	assert.Equal(t, FormatASS, res.Format)
}

func TestSniff_AcceptsTTML(t *testing.T) {
	content := []byte(`<?xml version="1.0" encoding="UTF-8"?><tt xmlns="http://www.w3.org/ns/ttml"><body/></tt>`)

	res, ok := Sniff(content, "https://cdn.example.com/ep1.ttml")
	require.True(t, ok)
	assert.Equal(t, FormatTTML, res.Format)
}

func TestSniff_FallbackRecoversLeadingBOM(t *testing.T) {
	content := []byte("\uFEFF\nNOTE generated\n\nWEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi")

	res, ok := Sniff(content, "")
	require.True(t, ok)
	assert.Equal(t, "fallback-marker", res.Reason)
	assert.Equal(t, FormatVTT, res.Format)
}

func TestSniff_FallbackTimingLine(t *testing.T) {
	// No format header at all, only cue timings further in.
	content := []byte("some preamble text\n\n00:01:02,000 --> 00:01:03,000\nline\n")

	res, ok := Sniff(content, "")
	require.True(t, ok)
	assert.Equal(t, "fallback-timing", res.Reason)
	assert.Equal(t, FormatSRT, res.Format)
}

func TestSniff_RejectsHTML(t *testing.T) {
	_, ok := Sniff([]byte("<!DOCTYPE html><html></html>"), "")
	assert.False(t, ok)

	res, ok := Sniff([]byte("  <html lang=\"en\"><body>404</body></html>"), "")
	assert.False(t, ok)
	assert.Equal(t, "html", res.Reason)
}

func TestSniff_RejectsJSON(t *testing.T) {
	_, ok := Sniff([]byte(`{"a":1}`), "")
	assert.False(t, ok)

	res, ok := Sniff([]byte(`[{"start": 0, "text": "hi"}]`), "")
	assert.False(t, ok)
	assert.Equal(t, "json", res.Reason)

	_, ok = Sniff([]byte(`data = JSON.parse(payload)`), "")
	assert.False(t, ok)
}

func TestSniff_RejectsScript(t *testing.T) {
	tests := []string{
		"function(e){return e}",
		"var player = init();",
		"const x = 1;",
		"let cues = [];",
		"(e)=>e.play()",
	}
	for _, content := range tests {
		res, ok := Sniff([]byte(content), "")
		assert.False(t, ok, content)
		assert.Equal(t, "script", res.Reason, content)
	}
}

func TestSniff_RejectsBundlerOutput(t *testing.T) {
	res, ok := Sniff([]byte(`self.webpackChunk_app=self.webpackChunk_app||[]`), "")
	assert.False(t, ok)
	assert.Equal(t, "bundler", res.Reason)
}

func TestSniff_RejectsJWPlayerBanner(t *testing.T) {
	res, ok := Sniff([]byte("/* Copyright (c) JW Player. All Rights Reserved. */stub"), "")
	assert.False(t, ok)
	assert.Equal(t, "jwplayer-banner", res.Reason)
}

func TestSniff_RejectionWinsOverSignature(t *testing.T) {
	// A script that embeds a WEBVTT literal is still a script.
	_, ok := Sniff([]byte(`var cue = "WEBVTT\n00:00:01.000 --> 00:00:02.000";`), "")
	assert.False(t, ok)
}

func TestSniff_RejectsEmptyAndNoise(t *testing.T) {
	_, ok := Sniff(nil, "")
	assert.False(t, ok)

	res, ok := Sniff([]byte("plain text with no subtitle shape at all"), "")
	assert.False(t, ok)
	assert.Equal(t, "no-signature", res.Reason)
}
