package store

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simracekit/pitwall/internal/telemetry"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()

	store, err := NewSessionStore(filepath.Join(t.TempDir(), "pitwall.db"), newTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func testLap(number int, lapTime time.Duration, valid bool) telemetry.LapRecord {
	return telemetry.LapRecord{
		LapNumber:   number,
		LapTime:     lapTime,
		CompletedAt: time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC).Add(time.Duration(number) * lapTime),
		Analysis: telemetry.LapAnalysis{
			AvgSpeed:           148.2,
			MaxSpeed:           231.9,
			AvgRPM:             6400,
			MaxRPM:             8300,
			ThrottleAvg:        0.61,
			BrakeAvg:           0.14,
			SteeringSmoothness: 0.87,
			ThrottleExitPerf:   0.72,
			BrakingConsistency: 0.9,
			IsValid:            valid,
		},
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := newTestSessionStore(t)

	startedAt := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	id, err := store.StartSession(startedAt)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.InsertLap(id, testLap(1, 92*time.Second, true)))
	require.NoError(t, store.InsertLap(id, testLap(2, 90*time.Second, false)))

	require.NoError(t, store.EndSession(id, startedAt.Add(time.Hour), 54000, 2))

	sessions, err := store.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	session := sessions[0]
	assert.Equal(t, id, session.ID)
	assert.Equal(t, uint64(54000), session.Samples)
	assert.Equal(t, 2, session.Laps)
	require.NotNil(t, session.EndedAt)

	laps, err := store.SessionLaps(id)
	require.NoError(t, err)
	require.Len(t, laps, 2)

	assert.Equal(t, 1, laps[0].LapNumber)
	assert.Equal(t, 92*time.Second, laps[0].LapTime)
	assert.True(t, laps[0].Analysis.IsValid)
	assert.InDelta(t, 0.87, laps[0].Analysis.SteeringSmoothness, 1e-9)

	assert.Equal(t, 2, laps[1].LapNumber)
	assert.False(t, laps[1].Analysis.IsValid)
}

func TestSessionStoreEmptyQueries(t *testing.T) {
	store := newTestSessionStore(t)

	sessions, err := store.Sessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)

	laps, err := store.SessionLaps("nope")
	require.NoError(t, err)
	assert.Empty(t, laps)
}
