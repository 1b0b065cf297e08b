package telemetry

import "time"

// LapRecord is a finalized lap: its sample sequence, wall-clock lap time and
// derived metrics. Sealed exactly once, at boundary detection.
type LapRecord struct {
	LapNumber   int           `json:"lap_number" yaml:"lap_number"`
	Samples     []Sample      `json:"samples" yaml:"samples"`
	LapTime     time.Duration `json:"lap_time" yaml:"lap_time"`
	Analysis    LapAnalysis   `json:"analysis" yaml:"analysis"`
	CompletedAt time.Time     `json:"completed_at" yaml:"completed_at"`
}

// clone returns a defensive copy whose sample slice does not alias the
// original.
func (l LapRecord) clone() LapRecord {
	out := l
	out.Samples = make([]Sample, len(l.Samples))
	copy(out.Samples, l.Samples)

	return out
}

// LapSegmenter watches the progress channel for the high-to-low transition
// that marks a crossing of the start/finish line, accumulating the
// in-progress lap's samples in between. Not safe for concurrent use; the
// buffer guards it.
type LapSegmenter struct {
	config BufferConfig

	currentProgress float64
	lapStartedAt    time.Time
	samples         []Sample
	lapsCompleted   int
}

func NewLapSegmenter(config BufferConfig) *LapSegmenter {
	config.applyDefaults()

	return &LapSegmenter{
		config: config,
	}
}

// progressOf picks the segmentation signal: lap completion when present,
// falling back to lap distance for feeds that only report distance.
func progressOf(sample Sample) float64 {
	if sample.LapCompletion != 0 {
		return float64(sample.LapCompletion)
	}

	return float64(sample.LapDistance)
}

// Feed consumes one accepted sample. It returns the sealed LapRecord when
// this sample completes a lap, otherwise nil.
//
// The boundary check compares the previous progress value against the new
// one, so current progress is updated only after the check. A late datagram
// carrying stale low progress right after a fresh high-progress one will
// spuriously complete a lap; the transport is unordered and this is a known,
// accepted limitation.
func (ls *LapSegmenter) Feed(sample Sample, now time.Time) *LapRecord {
	if ls.lapStartedAt.IsZero() {
		ls.lapStartedAt = now
	}

	p := progressOf(sample)

	var sealed *LapRecord

	if ls.currentProgress > ls.config.LapDetectionThreshold && p < 0.1 && len(ls.samples) >= ls.config.MinLapSamples {
		lapTime := now.Sub(ls.lapStartedAt)

		ls.lapsCompleted++

		record := LapRecord{
			LapNumber:   ls.lapsCompleted,
			Samples:     ls.samples,
			LapTime:     lapTime,
			Analysis:    AnalyzeLap(ls.samples, lapTime, ls.config),
			CompletedAt: now,
		}

		sealed = &record

		ls.samples = nil
		ls.lapStartedAt = now
	}

	ls.samples = append(ls.samples, sample)
	ls.currentProgress = p

	return sealed
}

// CurrentProgress reports the most recently observed progress value.
func (ls *LapSegmenter) CurrentProgress() float64 {
	return ls.currentProgress
}

// CurrentLapSamples returns a copy of the in-progress lap's accumulator.
func (ls *LapSegmenter) CurrentLapSamples() []Sample {
	out := make([]Sample, len(ls.samples))
	copy(out, ls.samples)

	return out
}

// Reset discards the in-progress lap and the lap counter.
func (ls *LapSegmenter) Reset() {
	ls.currentProgress = 0
	ls.lapStartedAt = time.Time{}
	ls.samples = nil
	ls.lapsCompleted = 0
}
