package telemetry

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LapAnalysis holds the derived metrics computed for a completed lap.
type LapAnalysis struct {
	AvgSpeed float64 `json:"avg_speed" yaml:"avg_speed"`
	MaxSpeed float64 `json:"max_speed" yaml:"max_speed"`
	AvgRPM   float64 `json:"avg_rpm" yaml:"avg_rpm"`
	MaxRPM   float64 `json:"max_rpm" yaml:"max_rpm"`

	ThrottleAvg float64 `json:"throttle_avg" yaml:"throttle_avg"`
	BrakeAvg    float64 `json:"brake_avg" yaml:"brake_avg"`

	SteeringSmoothness float64 `json:"steering_smoothness" yaml:"steering_smoothness"`
	ThrottleExitPerf   float64 `json:"throttle_exit_performance" yaml:"throttle_exit_performance"`
	BrakingConsistency float64 `json:"braking_consistency" yaml:"braking_consistency"`

	IsValid bool `json:"is_valid" yaml:"is_valid"`
}

// AnalyzeLap computes derived metrics from a completed lap's sample sequence.
// Pure: it never mutates its inputs and depends only on them and the policy
// knobs in config.
func AnalyzeLap(samples []Sample, lapTime time.Duration, config BufferConfig) LapAnalysis {
	var analysis LapAnalysis

	if len(samples) == 0 {
		analysis.SteeringSmoothness = 1
		analysis.BrakingConsistency = 1
		analysis.IsValid = false

		return analysis
	}

	speeds := make([]float64, len(samples))
	rpms := make([]float64, len(samples))
	throttles := make([]float64, len(samples))
	brakes := make([]float64, len(samples))
	steerings := make([]float64, len(samples))

	for i, s := range samples {
		speeds[i] = float64(s.Speed)
		rpms[i] = float64(s.RPM)
		throttles[i] = float64(s.Throttle)
		brakes[i] = float64(s.Brake)
		steerings[i] = float64(s.Steering)
	}

	analysis.AvgSpeed = stat.Mean(speeds, nil)
	analysis.MaxSpeed = maxOf(speeds)
	analysis.AvgRPM = stat.Mean(rpms, nil)
	analysis.MaxRPM = maxOf(rpms)
	analysis.ThrottleAvg = stat.Mean(throttles, nil)
	analysis.BrakeAvg = stat.Mean(brakes, nil)

	analysis.SteeringSmoothness = steeringSmoothness(steerings)
	analysis.ThrottleExitPerf = throttleExitPerformance(throttles)
	analysis.BrakingConsistency = brakingConsistency(brakes)

	analysis.IsValid = len(samples) >= config.MinLapSamples &&
		lapTime >= config.MinLapTime && lapTime <= config.MaxLapTime &&
		analysis.MaxSpeed > config.MinValidSpeed

	return analysis
}

// steeringSmoothness is 1 minus the ratio of the mean absolute first
// difference of steering to the maximum absolute first difference, clamped
// to [0,1]. Fewer than two samples is trivially smooth.
func steeringSmoothness(steerings []float64) float64 {
	if len(steerings) < 2 {
		return 1
	}

	diffs := make([]float64, 0, len(steerings)-1)
	maxDiff := 0.0

	for i := 1; i < len(steerings); i++ {
		d := math.Abs(steerings[i] - steerings[i-1])
		diffs = append(diffs, d)

		if d > maxDiff {
			maxDiff = d
		}
	}

	if maxDiff == 0 {
		return 1
	}

	smoothness := 1 - stat.Mean(diffs, nil)/maxDiff

	if smoothness < 0 {
		return 0
	}

	return smoothness
}

// throttleExitPerformance is the mean throttle at corner-exit points: indices
// where the pedal crosses from lifted (<0.3) to committed (>0.5) and is still
// rising. With no such points it falls back to the overall mean.
func throttleExitPerformance(throttles []float64) float64 {
	var exits []float64

	for i := 1; i < len(throttles)-1; i++ {
		if throttles[i-1] < 0.3 && throttles[i] > 0.5 && throttles[i+1] > throttles[i] {
			exits = append(exits, throttles[i])
		}
	}

	if len(exits) == 0 {
		if len(throttles) == 0 {
			return 0
		}

		return stat.Mean(throttles, nil)
	}

	return stat.Mean(exits, nil)
}

// brakingConsistency is 1 minus the coefficient of variation of brake values
// over samples with meaningful brake application (>0.1), clamped to [0,1].
// Fewer than two such samples is trivially consistent.
func brakingConsistency(brakes []float64) float64 {
	var applied []float64

	for _, b := range brakes {
		if b > 0.1 {
			applied = append(applied, b)
		}
	}

	if len(applied) < 2 {
		return 1
	}

	mean := stat.Mean(applied, nil)

	if mean == 0 {
		return 1
	}

	consistency := 1 - stat.StdDev(applied, nil)/mean

	if consistency < 0 {
		return 0
	}

	if consistency > 1 {
		return 1
	}

	return consistency
}

func maxOf(values []float64) float64 {
	max := math.Inf(-1)

	for _, v := range values {
		if v > max {
			max = v
		}
	}

	return max
}
