package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simracekit/pitwall/internal/telemetry"
)

func completeLap(t *testing.T, buffer *telemetry.TelemetryBuffer) {
	t.Helper()

	for _, p := range []float32{0.3, 0.6, 0.96, 0.01} {
		require.True(t, buffer.Add(telemetry.Sample{LapCompletion: p, Speed: 100, RPM: 5000, Gear: 3}))
	}
}

func TestLapArchiverPersistsEachLapOnce(t *testing.T) {
	buffer, err := telemetry.NewTelemetryBuffer(telemetry.BufferConfig{
		MaxSize:       1000,
		MinLapSamples: 3,
	}, newTestLogger())
	require.NoError(t, err)

	sessions := newTestSessionStore(t)

	completeLap(t, buffer)
	completeLap(t, buffer)

	archiver := NewLapArchiver(buffer, sessions, nil, "test", 10*time.Millisecond, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- archiver.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		all, err := sessions.Sessions()
		if err != nil || len(all) != 1 {
			return false
		}

		laps, err := sessions.SessionLaps(all[0].ID)

		return err == nil && len(laps) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// A third lap lands on a later tick; the first two are not re-inserted.
	completeLap(t, buffer)

	var sessionID string

	require.Eventually(t, func() bool {
		all, err := sessions.Sessions()
		if err != nil || len(all) != 1 {
			return false
		}

		sessionID = all[0].ID
		laps, err := sessions.SessionLaps(sessionID)

		return err == nil && len(laps) == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	laps, err := sessions.SessionLaps(sessionID)
	require.NoError(t, err)
	require.Len(t, laps, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{laps[0].LapNumber, laps[1].LapNumber, laps[2].LapNumber})

	// Shutdown seals the session row.
	all, err := sessions.Sessions()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].EndedAt)
	assert.Equal(t, 3, all[0].Laps)
}

func TestLapArchiverSurvivesBufferClear(t *testing.T) {
	buffer, err := telemetry.NewTelemetryBuffer(telemetry.BufferConfig{
		MaxSize:       1000,
		MinLapSamples: 3,
	}, newTestLogger())
	require.NoError(t, err)

	sessions := newTestSessionStore(t)
	archiver := NewLapArchiver(buffer, sessions, nil, "test", 10*time.Millisecond, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- archiver.Run(ctx)
	}()

	completeLap(t, buffer)
	completeLap(t, buffer)

	require.Eventually(t, func() bool {
		all, err := sessions.Sessions()

		if err != nil || len(all) != 1 {
			return false
		}

		laps, err := sessions.SessionLaps(all[0].ID)

		return err == nil && len(laps) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Clearing the buffer restarts lap numbering at 1; the archiver must
	// roll over to a new session instead of colliding with archived laps.
	buffer.Clear()
	completeLap(t, buffer)

	require.Eventually(t, func() bool {
		all, err := sessions.Sessions()

		if err != nil || len(all) != 2 {
			return false
		}

		laps, err := sessions.SessionLaps(all[0].ID)

		return err == nil && len(laps) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	all, err := sessions.Sessions()
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Newest session holds the restarted numbering; the sealed one keeps
	// its original laps.
	newLaps, err := sessions.SessionLaps(all[0].ID)
	require.NoError(t, err)
	require.Len(t, newLaps, 1)
	assert.Equal(t, 1, newLaps[0].LapNumber)

	oldLaps, err := sessions.SessionLaps(all[1].ID)
	require.NoError(t, err)
	require.Len(t, oldLaps, 2)
	require.NotNil(t, all[1].EndedAt)
}

func TestLapArchiverUpdatesBestLap(t *testing.T) {
	buffer, err := telemetry.NewTelemetryBuffer(telemetry.BufferConfig{
		MaxSize:       1000,
		MinLapSamples: 3,
	}, newTestLogger())
	require.NoError(t, err)

	sessions := newTestSessionStore(t)
	bestLaps := newTestBestLapStore(t)

	archiver := NewLapArchiver(buffer, sessions, bestLaps, "monza", 10*time.Millisecond, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- archiver.Run(ctx)
	}()

	completeLap(t, buffer)

	require.Eventually(t, func() bool {
		all, err := sessions.Sessions()

		if err != nil || len(all) != 1 {
			return false
		}

		laps, err := sessions.SessionLaps(all[0].ID)

		return err == nil && len(laps) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// Wall-clock laps in tests are far below the minimum lap time, so they
	// are archived as invalid and never become personal bests.
	_, found, err := bestLaps.Best("monza")
	require.NoError(t, err)
	assert.False(t, found)
}
