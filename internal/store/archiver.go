package store

import (
	"context"
	"time"

	"github.com/simracekit/pitwall/internal/telemetry"
)

// LapArchiver polls the buffer's completed-lap snapshots on a ticker and
// persists laps it has not yet seen, tracked by a lap-number watermark. The
// buffer's own lap history stays bounded; this loop is what gives laps a
// life beyond it.
type LapArchiver struct {
	buffer   *telemetry.TelemetryBuffer
	sessions *SessionStore
	bestLaps *BestLapStore
	profile  string
	interval time.Duration
	logger   telemetry.Logger

	sessionID string
	watermark int
	archived  int
}

func NewLapArchiver(buffer *telemetry.TelemetryBuffer, sessions *SessionStore, bestLaps *BestLapStore, profile string, interval time.Duration, logger telemetry.Logger) *LapArchiver {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	if profile == "" {
		profile = "default"
	}

	return &LapArchiver{
		buffer:   buffer,
		sessions: sessions,
		bestLaps: bestLaps,
		profile:  profile,
		interval: interval,
		logger:   logger,
	}
}

// Run opens a session row, archives new laps until the context is cancelled,
// then flushes once more and seals the session. A clean shutdown returns
// nil.
func (a *LapArchiver) Run(ctx context.Context) error {
	sessionID, err := a.sessions.StartSession(time.Now())

	if err != nil {
		return err
	}

	a.sessionID = sessionID

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flush()

			stats := a.buffer.Stats()

			if err := a.sessions.EndSession(a.sessionID, time.Now(), stats.TotalDataPoints, a.archived); err != nil {
				a.logger.WithError(err).Errorf("Could not seal session %s", a.sessionID)
			}

			a.logger.Infof("Archived %d laps for session %s", a.archived, a.sessionID)

			return nil
		case <-ticker.C:
			a.flush()
		}
	}
}

func (a *LapArchiver) flush() {
	laps := a.buffer.CompletedLaps()

	if len(laps) == 0 {
		return
	}

	// Lap numbers only ever grow within a buffer lifetime, so a snapshot
	// whose highest number sits below the watermark means the buffer was
	// cleared and numbering restarted at 1. Re-inserting those numbers into
	// the current session would collide with its primary key; seal it and
	// archive what follows into a fresh session row.
	if laps[len(laps)-1].LapNumber < a.watermark {
		if err := a.rotateSession(); err != nil {
			a.logger.WithError(err).Errorf("Could not rotate session after lap numbering reset")
			return
		}
	}

	for _, lap := range laps {
		if lap.LapNumber <= a.watermark {
			continue
		}

		if err := a.sessions.InsertLap(a.sessionID, lap); err != nil {
			a.logger.WithError(err).Errorf("Could not archive lap %d", lap.LapNumber)
			continue
		}

		a.watermark = lap.LapNumber
		a.archived++

		if a.bestLaps == nil {
			continue
		}

		improved, err := a.bestLaps.Record(a.profile, lap)

		if err != nil {
			a.logger.WithError(err).Errorf("Could not update best lap for %s", a.profile)
		} else if improved {
			a.logger.Infof("New personal best for %s: lap %d in %s", a.profile, lap.LapNumber, lap.LapTime)
		}
	}
}

func (a *LapArchiver) rotateSession() error {
	stats := a.buffer.Stats()

	if err := a.sessions.EndSession(a.sessionID, time.Now(), stats.TotalDataPoints, a.archived); err != nil {
		a.logger.WithError(err).Errorf("Could not seal session %s", a.sessionID)
	}

	sessionID, err := a.sessions.StartSession(time.Now())

	if err != nil {
		return err
	}

	a.logger.Infof("Lap numbering reset detected, archiving into session %s", sessionID)

	a.sessionID = sessionID
	a.watermark = 0
	a.archived = 0

	return nil
}
