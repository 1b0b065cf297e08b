package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/simracekit/pitwall/internal/telemetry"
)

// SessionStore archives finalized laps and session summaries in a relational
// store. It is a pure consumer of the core's snapshots; the ingestion path
// never waits on it.
type SessionStore struct {
	db     *sql.DB
	logger telemetry.Logger
}

func NewSessionStore(path string, logger telemetry.Logger) (*SessionStore, error) {
	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, errors.Wrap(err, "could not open session store")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id                TEXT PRIMARY KEY,
			started_at        TIMESTAMP,
			ended_at          TIMESTAMP,
			samples           BIGINT DEFAULT 0,
			laps              BIGINT DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS laps (
			session_id                TEXT,
			lap_number                BIGINT,
			lap_time_ms               BIGINT,
			completed_at              TIMESTAMP,
			valid                     BOOLEAN,
			avg_speed                 DOUBLE,
			max_speed                 DOUBLE,
			avg_rpm                   DOUBLE,
			max_rpm                   DOUBLE,
			throttle_avg              DOUBLE,
			brake_avg                 DOUBLE,
			steering_smoothness       DOUBLE,
			throttle_exit_performance DOUBLE,
			braking_consistency       DOUBLE,
			PRIMARY KEY (session_id, lap_number),
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);
	`)

	if err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, "could not initialise session store schema")
	}

	return &SessionStore{
		db:     db,
		logger: logger,
	}, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

// StartSession opens a new session row and returns its identifier.
func (s *SessionStore) StartSession(startedAt time.Time) (string, error) {
	id := uuid.New().String()

	_, err := s.db.Exec(`INSERT INTO sessions (id, started_at) VALUES (?, ?)`, id, startedAt)

	if err != nil {
		return "", errors.Wrap(err, "could not start session")
	}

	s.logger.Infof("Started telemetry session %s", id)

	return id, nil
}

// EndSession seals a session row with its final counters.
func (s *SessionStore) EndSession(id string, endedAt time.Time, samples uint64, laps int) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ?, samples = ?, laps = ? WHERE id = ?`,
		endedAt, samples, laps, id,
	)

	return errors.Wrapf(err, "could not end session %s", id)
}

// InsertLap persists one finalized lap's timing and analysis. Sample
// sequences stay in the in-memory buffer; only derived metrics are archived.
func (s *SessionStore) InsertLap(sessionID string, lap telemetry.LapRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO laps (
			session_id, lap_number, lap_time_ms, completed_at, valid,
			avg_speed, max_speed, avg_rpm, max_rpm,
			throttle_avg, brake_avg,
			steering_smoothness, throttle_exit_performance, braking_consistency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, lap.LapNumber, lap.LapTime.Milliseconds(), lap.CompletedAt, lap.Analysis.IsValid,
		lap.Analysis.AvgSpeed, lap.Analysis.MaxSpeed, lap.Analysis.AvgRPM, lap.Analysis.MaxRPM,
		lap.Analysis.ThrottleAvg, lap.Analysis.BrakeAvg,
		lap.Analysis.SteeringSmoothness, lap.Analysis.ThrottleExitPerf, lap.Analysis.BrakingConsistency,
	)

	return errors.Wrapf(err, "could not insert lap %d", lap.LapNumber)
}

// SessionInfo is one archived session summary.
type SessionInfo struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Samples   uint64     `json:"samples"`
	Laps      int        `json:"laps"`
}

// Sessions lists every archived session, newest first.
func (s *SessionStore) Sessions() ([]SessionInfo, error) {
	rows, err := s.db.Query(`SELECT id, started_at, ended_at, samples, laps FROM sessions ORDER BY started_at DESC`)

	if err != nil {
		return nil, errors.Wrap(err, "could not query sessions")
	}

	defer rows.Close()

	sessions := make([]SessionInfo, 0)

	for rows.Next() {
		var session SessionInfo

		if err := rows.Scan(&session.ID, &session.StartedAt, &session.EndedAt, &session.Samples, &session.Laps); err != nil {
			return nil, errors.Wrap(err, "could not scan session row")
		}

		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// ArchivedLap is one archived lap's timing and derived metrics.
type ArchivedLap struct {
	SessionID   string                `json:"session_id"`
	LapNumber   int                   `json:"lap_number"`
	LapTime     time.Duration         `json:"lap_time"`
	CompletedAt time.Time             `json:"completed_at"`
	Analysis    telemetry.LapAnalysis `json:"analysis"`
}

// SessionLaps lists the archived laps of one session in lap order.
func (s *SessionStore) SessionLaps(sessionID string) ([]ArchivedLap, error) {
	rows, err := s.db.Query(
		`SELECT session_id, lap_number, lap_time_ms, completed_at, valid,
			avg_speed, max_speed, avg_rpm, max_rpm,
			throttle_avg, brake_avg,
			steering_smoothness, throttle_exit_performance, braking_consistency
		FROM laps WHERE session_id = ? ORDER BY lap_number`,
		sessionID,
	)

	if err != nil {
		return nil, errors.Wrapf(err, "could not query laps for session %s", sessionID)
	}

	defer rows.Close()

	laps := make([]ArchivedLap, 0)

	for rows.Next() {
		var (
			lap       ArchivedLap
			lapTimeMs int64
		)

		err := rows.Scan(
			&lap.SessionID, &lap.LapNumber, &lapTimeMs, &lap.CompletedAt, &lap.Analysis.IsValid,
			&lap.Analysis.AvgSpeed, &lap.Analysis.MaxSpeed, &lap.Analysis.AvgRPM, &lap.Analysis.MaxRPM,
			&lap.Analysis.ThrottleAvg, &lap.Analysis.BrakeAvg,
			&lap.Analysis.SteeringSmoothness, &lap.Analysis.ThrottleExitPerf, &lap.Analysis.BrakingConsistency,
		)

		if err != nil {
			return nil, errors.Wrap(err, "could not scan lap row")
		}

		lap.LapTime = time.Duration(lapTimeMs) * time.Millisecond
		laps = append(laps, lap)
	}

	return laps, rows.Err()
}
