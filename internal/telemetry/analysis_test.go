package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func steadySamples(n int, speed, rpm float32) []Sample {
	samples := make([]Sample, n)

	for i := range samples {
		samples[i] = Sample{Speed: speed, RPM: rpm, Throttle: 0.8, Brake: 0.2}
	}

	return samples
}

func TestAnalyzeLapAggregates(t *testing.T) {
	config := DefaultBufferConfig()
	config.applyDefaults()

	samples := steadySamples(120, 150, 6000)
	samples[10].Speed = 240
	samples[10].RPM = 8200

	analysis := AnalyzeLap(samples, 90*time.Second, config)

	assert.InDelta(t, 240, analysis.MaxSpeed, 1e-9)
	assert.InDelta(t, 8200, analysis.MaxRPM, 1e-9)
	assert.Greater(t, analysis.AvgSpeed, 150.0)
	assert.Less(t, analysis.AvgSpeed, 151.0)
	assert.InDelta(t, 0.8, analysis.ThrottleAvg, 1e-6)
	assert.InDelta(t, 0.2, analysis.BrakeAvg, 1e-6)
	assert.True(t, analysis.IsValid)
}

func TestAnalyzeLapValidity(t *testing.T) {
	config := DefaultBufferConfig()
	config.applyDefaults()

	tests := []struct {
		name    string
		samples []Sample
		lapTime time.Duration
		valid   bool
	}{
		{name: "valid lap", samples: steadySamples(120, 150, 6000), lapTime: 90 * time.Second, valid: true},
		{name: "too few samples", samples: steadySamples(99, 150, 6000), lapTime: 90 * time.Second, valid: false},
		{name: "too short", samples: steadySamples(120, 150, 6000), lapTime: 9 * time.Second, valid: false},
		{name: "too long", samples: steadySamples(120, 150, 6000), lapTime: 601 * time.Second, valid: false},
		{name: "stationary", samples: steadySamples(120, 5, 900), lapTime: 90 * time.Second, valid: false},
		{name: "empty", samples: nil, lapTime: 90 * time.Second, valid: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			analysis := AnalyzeLap(test.samples, test.lapTime, config)
			assert.Equal(t, test.valid, analysis.IsValid)
		})
	}
}

func TestSteeringSmoothnessBounds(t *testing.T) {
	tests := []struct {
		name      string
		steerings []float64
	}{
		{name: "empty", steerings: nil},
		{name: "single", steerings: []float64{0.5}},
		{name: "constant", steerings: []float64{0.2, 0.2, 0.2}},
		{name: "smooth sweep", steerings: []float64{0, 0.1, 0.2, 0.3, 0.4}},
		{name: "sawtooth", steerings: []float64{-1, 1, -1, 1, -1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			smoothness := steeringSmoothness(test.steerings)
			assert.GreaterOrEqual(t, smoothness, 0.0)
			assert.LessOrEqual(t, smoothness, 1.0)
		})
	}

	assert.Equal(t, 1.0, steeringSmoothness(nil))
	assert.Equal(t, 1.0, steeringSmoothness([]float64{0.3}))
	assert.Equal(t, 1.0, steeringSmoothness([]float64{0.2, 0.2, 0.2}))

	// Uniform steps have mean diff equal to max diff.
	assert.InDelta(t, 0, steeringSmoothness([]float64{0, 0.1, 0.2, 0.3}), 1e-9)
}

func TestBrakingConsistencyBounds(t *testing.T) {
	tests := []struct {
		name   string
		brakes []float64
	}{
		{name: "empty", brakes: nil},
		{name: "all coasting", brakes: []float64{0, 0.05, 0.1}},
		{name: "one application", brakes: []float64{0, 0.8, 0}},
		{name: "steady braking", brakes: []float64{0.5, 0.5, 0.5, 0.5}},
		{name: "erratic braking", brakes: []float64{0.2, 0.9, 0.15, 1, 0.3}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			consistency := brakingConsistency(test.brakes)
			assert.GreaterOrEqual(t, consistency, 0.0)
			assert.LessOrEqual(t, consistency, 1.0)
		})
	}

	assert.Equal(t, 1.0, brakingConsistency(nil))
	assert.Equal(t, 1.0, brakingConsistency([]float64{0, 0.8, 0}))
	assert.Equal(t, 1.0, brakingConsistency([]float64{0.5, 0.5, 0.5}))
}

func TestThrottleExitPerformance(t *testing.T) {
	// One corner exit: lifted, committed, still rising.
	throttles := []float64{0.1, 0.6, 0.9, 1, 1}
	assert.InDelta(t, 0.6, throttleExitPerformance(throttles), 1e-9)

	// No exits falls back to the overall mean.
	flat := []float64{0.5, 0.5, 0.5, 0.5}
	assert.InDelta(t, 0.5, throttleExitPerformance(flat), 1e-9)

	assert.Equal(t, 0.0, throttleExitPerformance(nil))
}
