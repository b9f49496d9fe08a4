package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "subsniff.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendAndList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.Append(ctx, &Capture{
		Name:      "Show_S01E01.vtt",
		SourceURL: "https://cdn.example.com/s01e01.vtt",
		Data:      []byte("WEBVTT\n"),
		Language:  "en",
		Format:    "vtt",
	})
	require.NoError(t, err)
	require.True(t, inserted)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Show_S01E01.vtt", all[0].Name)
	assert.Equal(t, int64(7), all[0].SizeBytes)
	assert.Equal(t, "en", all[0].Language)
	assert.NotEmpty(t, all[0].ID)
	assert.NotZero(t, all[0].CapturedAt)
	// Listing omits the payload.
	assert.Nil(t, all[0].Data)
}

func TestStore_AppendDuplicateSourceURLIsNoOp(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.Append(ctx, &Capture{
		Name:      "first.vtt",
		SourceURL: "https://cdn.example.com/same.vtt",
		Data:      []byte("WEBVTT\n"),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = s.Append(ctx, &Capture{
		Name:      "second.vtt",
		SourceURL: "https://cdn.example.com/same.vtt",
		Data:      []byte("WEBVTT\nother"),
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_AppendDuplicateNameIsNoOp(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	inserted, err := s.Append(ctx, &Capture{
		Name:      "ep.vtt",
		SourceURL: "https://cdn.example.com/a.vtt",
		Data:      []byte("WEBVTT\n"),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = s.Append(ctx, &Capture{
		Name:      "ep.vtt",
		SourceURL: "https://cdn.example.com/b.vtt",
		Data:      []byte("WEBVTT\n"),
	})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestStore_GetRoundTripsPayload(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	payload := []byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHello\n")
	_, err := s.Append(ctx, &Capture{
		Name:      "ep.vtt",
		SourceURL: "https://cdn.example.com/ep.vtt",
		Data:      payload,
	})
	require.NoError(t, err)

	got, ok, err := s.Get(ctx, "ep.vtt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got.Data)
	assert.Equal(t, int64(len(payload)), got.SizeBytes)

	_, ok, err = s.Get(ctx, "missing.vtt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, &Capture{
		Name:      "ep.vtt",
		SourceURL: "https://cdn.example.com/ep.vtt",
		Data:      []byte("WEBVTT\n"),
	})
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// A cleared store accepts the same record again.
	inserted, err := s.Append(ctx, &Capture{
		Name:      "ep.vtt",
		SourceURL: "https://cdn.example.com/ep.vtt",
		Data:      []byte("WEBVTT\n"),
	})
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestStore_AppendPublishesNotification(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	events, cancel := s.Notifier().Subscribe()
	defer cancel()

	_, err := s.Append(ctx, &Capture{
		Name:      "ep.vtt",
		SourceURL: "https://cdn.example.com/ep.vtt",
		Data:      []byte("WEBVTT\n"),
	})
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, "ep.vtt", event.Name)
	default:
		t.Fatal("expected a new-capture notification")
	}

	// Duplicate insert publishes nothing.
	_, err = s.Append(ctx, &Capture{
		Name:      "ep.vtt",
		SourceURL: "https://cdn.example.com/other.vtt",
		Data:      []byte("WEBVTT\n"),
	})
	require.NoError(t, err)
	select {
	case <-events:
		t.Fatal("duplicate insert must not notify")
	default:
	}
}

func TestNotifier_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()

	n := NewNotifier()
	events, cancel := n.Subscribe()
	defer cancel()

	for i := 0; i < 50; i++ {
		n.Publish(Notification{Name: "x"})
	}

	// Buffer is bounded; publishing never blocked and the channel holds at
	// most its capacity.
	assert.LessOrEqual(t, len(events), 16)
}
