package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProfilesLoaded(t *testing.T) {
	SetProfilesLoaded(7)
	assert.Equal(t, int64(7), GetProfilesLoadedCount())

	loadTime := GetLastLoadTime()
	require.False(t, loadTime.IsZero())
	assert.WithinDuration(t, time.Now(), loadTime, 5*time.Second)
}

func TestProbeResultCounters(t *testing.T) {
	startReachable, startUnreachable := GetProbeResultCounts()

	IncrementProbeResult(true)
	IncrementProbeResult(true)
	IncrementProbeResult(false)

	reachable, unreachable := GetProbeResultCounts()
	assert.Equal(t, startReachable+2, reachable)
	assert.Equal(t, startUnreachable+1, unreachable)
}

func TestHTTPRequestCounter(t *testing.T) {
	start := GetHTTPRequestCount()
	IncrementHTTPRequests()
	IncrementHTTPRequests()
	assert.Equal(t, start+2, GetHTTPRequestCount())
}

func TestRegisterMetrics(t *testing.T) {
	assert.NotPanics(t, RegisterMetrics)
}
