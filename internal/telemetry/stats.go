package telemetry

import "time"

// ConnectionStats is a snapshot of the receiver's counters. Mutated only on
// the listener goroutine; handed out by value.
type ConnectionStats struct {
	PacketsReceived  uint64    `json:"packets_received" yaml:"packets_received"`
	PacketsInvalid   uint64    `json:"packets_invalid" yaml:"packets_invalid"`
	ConnectionErrors uint64    `json:"connection_errors" yaml:"connection_errors"`
	LastPacketTime   time.Time `json:"last_packet_time" yaml:"last_packet_time"`
	LastInvalidTime  time.Time `json:"last_invalid_time" yaml:"last_invalid_time"`
}

// BestLapRef identifies the current best valid lap without aliasing its
// record.
type BestLapRef struct {
	LapNumber int           `json:"lap_number" yaml:"lap_number"`
	LapTime   time.Duration `json:"lap_time" yaml:"lap_time"`
}

// BufferStats is a snapshot of the telemetry buffer's counters and lap
// progress state.
type BufferStats struct {
	TotalDataPoints   uint64      `json:"total_data_points" yaml:"total_data_points"`
	InvalidDataPoints uint64      `json:"invalid_data_points" yaml:"invalid_data_points"`
	BufferOccupancy   int         `json:"buffer_occupancy" yaml:"buffer_occupancy"`
	BufferCapacity    int         `json:"buffer_capacity" yaml:"buffer_capacity"`
	CurrentProgress   float64     `json:"current_progress" yaml:"current_progress"`
	CurrentLapSamples int         `json:"current_lap_samples" yaml:"current_lap_samples"`
	CompletedLaps     int         `json:"completed_laps" yaml:"completed_laps"`
	BestLap           *BestLapRef `json:"best_lap,omitempty" yaml:"best_lap,omitempty"`
}
