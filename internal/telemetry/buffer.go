package telemetry

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// TelemetryBuffer reconstructs a bounded, queryable view of recent driving
// history from accepted samples and segments it into laps. A single producer
// feeds Add; any number of consumers may call the query methods concurrently.
// Every accessor returns copies, never aliases into live state.
type TelemetryBuffer struct {
	mutex sync.RWMutex

	config BufferConfig
	logger Logger

	samples   []Sample
	channels  map[string]*RingHistory
	segmenter *LapSegmenter
	laps      []LapRecord

	totalDataPoints   uint64
	invalidDataPoints uint64

	now func() time.Time
}

func NewTelemetryBuffer(config BufferConfig, logger Logger) (*TelemetryBuffer, error) {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	channels := make(map[string]*RingHistory, len(Channels))

	for _, name := range Channels {
		channels[name] = NewRingHistory(config.MaxSize)
	}

	return &TelemetryBuffer{
		config:    config,
		logger:    logger,
		samples:   make([]Sample, 0, config.MaxSize),
		channels:  channels,
		segmenter: NewLapSegmenter(config),
		now:       time.Now,
	}, nil
}

// Add validates and ingests one sample. It returns false, without touching
// any history, when the sample fails validation. Never blocks on a full
// history: the oldest entries are evicted instead.
func (tb *TelemetryBuffer) Add(sample Sample) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	if err := sample.Validate(); err != nil {
		tb.invalidDataPoints++
		tb.logger.Debugf("Dropping sample: %s", err)

		return false
	}

	tb.samples = append(tb.samples, sample)

	if len(tb.samples) > tb.config.MaxSize {
		tb.samples = tb.samples[1:]
	}

	for name, ring := range tb.channels {
		value, _ := sample.Channel(name)
		ring.Append(value)
	}

	if record := tb.segmenter.Feed(sample, tb.now()); record != nil {
		tb.laps = append(tb.laps, *record)

		if len(tb.laps) > tb.config.LapCapacity {
			tb.laps = tb.laps[1:]
		}

		tb.logger.Infof("Lap %d completed in %s (valid: %t, avg speed: %.1f km/h)",
			record.LapNumber, record.LapTime, record.Analysis.IsValid, record.Analysis.AvgSpeed)
	}

	tb.totalDataPoints++

	return true
}

// Latest returns the most recently accepted sample.
func (tb *TelemetryBuffer) Latest() (Sample, bool) {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()

	if len(tb.samples) == 0 {
		return Sample{}, false
	}

	return tb.samples[len(tb.samples)-1], true
}

// History returns up to n of the most recent samples, oldest first.
func (tb *TelemetryBuffer) History(n int) []Sample {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()

	if n <= 0 || n > len(tb.samples) {
		n = len(tb.samples)
	}

	out := make([]Sample, n)
	copy(out, tb.samples[len(tb.samples)-n:])

	return out
}

// CurrentLapSamples returns a copy of the in-progress lap's samples.
func (tb *TelemetryBuffer) CurrentLapSamples() []Sample {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()

	return tb.segmenter.CurrentLapSamples()
}

// CompletedLaps returns copies of every retained finalized lap, oldest first.
func (tb *TelemetryBuffer) CompletedLaps() []LapRecord {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()

	out := make([]LapRecord, len(tb.laps))

	for i, lap := range tb.laps {
		out[i] = lap.clone()
	}

	return out
}

// BestLap returns the retained valid lap with the lowest lap time. Derived
// on demand, never stored.
func (tb *TelemetryBuffer) BestLap() (LapRecord, bool) {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()

	best, ok := tb.bestLapLocked()

	if !ok {
		return LapRecord{}, false
	}

	return best.clone(), true
}

func (tb *TelemetryBuffer) bestLapLocked() (LapRecord, bool) {
	var (
		best  LapRecord
		found bool
	)

	for _, lap := range tb.laps {
		if !lap.Analysis.IsValid {
			continue
		}

		if !found || lap.LapTime < best.LapTime {
			best = lap
			found = true
		}
	}

	return best, found
}

// ParameterHistory returns up to n recent values for a named channel, oldest
// first. Unknown channels yield nil.
func (tb *TelemetryBuffer) ParameterHistory(channel string, n int) []float64 {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()

	ring, ok := tb.channels[channel]

	if !ok {
		return nil
	}

	return ring.Values(n)
}

// Stats returns a consistent snapshot of the buffer's counters.
func (tb *TelemetryBuffer) Stats() BufferStats {
	tb.mutex.RLock()
	defer tb.mutex.RUnlock()

	stats := BufferStats{
		TotalDataPoints:   tb.totalDataPoints,
		InvalidDataPoints: tb.invalidDataPoints,
		BufferOccupancy:   len(tb.samples),
		BufferCapacity:    tb.config.MaxSize,
		CurrentProgress:   tb.segmenter.CurrentProgress(),
		CurrentLapSamples: len(tb.segmenter.samples),
		CompletedLaps:     len(tb.laps),
	}

	if best, ok := tb.bestLapLocked(); ok {
		stats.BestLap = &BestLapRef{
			LapNumber: best.LapNumber,
			LapTime:   best.LapTime,
		}
	}

	return stats
}

// Clear resets every history, the lap state and the counters.
func (tb *TelemetryBuffer) Clear() {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.samples = tb.samples[:0]
	tb.laps = nil
	tb.segmenter.Reset()
	tb.totalDataPoints = 0
	tb.invalidDataPoints = 0

	for _, ring := range tb.channels {
		ring.Reset()
	}
}

// BufferExport is the JSON document written by ExportJSON.
type BufferExport struct {
	ExportedAt time.Time   `json:"exported_at"`
	Stats      BufferStats `json:"stats"`
	Laps       []LapRecord `json:"laps"`
}

// ExportJSON serializes the completed laps and statistics to the sink.
func (tb *TelemetryBuffer) ExportJSON(w io.Writer) error {
	export := BufferExport{
		ExportedAt: tb.now(),
		Stats:      tb.Stats(),
		Laps:       tb.CompletedLaps(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "\t")

	return encoder.Encode(export)
}
