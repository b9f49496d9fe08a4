package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo_EveryDescriptor(t *testing.T) {
	ref := time.Date(2026, 3, 1, 12, 2, 30, 0, time.UTC)

	info, err := GetTriggerInfo("@every 5m", ref)
	require.NoError(t, err)

	assert.Equal(t, "@every 5m", info.Expression)
	assert.True(t, info.Next.After(ref))
	assert.LessOrEqual(t, info.TimeUntilNext, 5*time.Minute)
	assert.Positive(t, info.TimeUntilNext)
}

func TestGetTriggerInfo_StandardExpression(t *testing.T) {
	ref := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	// Top of every hour.
	info, err := GetTriggerInfo("0 0 * * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, 30*time.Minute, info.TimeSinceLast)
	assert.Equal(t, 30*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfo_InvalidExpression(t *testing.T) {
	_, err := GetTriggerInfo("not a cron expr", time.Now())
	assert.Error(t, err)
}
