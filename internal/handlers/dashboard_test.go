package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	now := time.Date(2026, time.March, 14, 1, 30, 0, 0, ist)

	midnight := time.Date(2026, time.March, 14, 0, 0, 0, 0, ist)
	require.Equal(t, midnight.Unix(), startOfDay(now))

	// 01:30 IST is still the previous UTC day; truncating to UTC day
	// boundaries would start the window 5.5 hours early.
	require.NotEqual(t, now.Truncate(24*time.Hour).Unix(), startOfDay(now))

	require.Equal(t, startOfDay(midnight), startOfDay(now))
}
