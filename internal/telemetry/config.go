package telemetry

import (
	"fmt"
	"time"
)

// ReceiverConfig enumerates every recognised receiver option. Zero values are
// filled in from DefaultReceiverConfig at construction.
type ReceiverConfig struct {
	UDPPort         uint16        `json:"udp_port" yaml:"udp_port"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	HistorySize     int           `json:"history_size" yaml:"history_size"`
	ErrorThreshold  int           `json:"error_threshold" yaml:"error_threshold"`
	FreshnessWindow time.Duration `json:"freshness_window" yaml:"freshness_window"`
	JoinTimeout     time.Duration `json:"join_timeout" yaml:"join_timeout"`
}

func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		UDPPort:         9996,
		Timeout:         time.Second,
		HistorySize:     1000,
		ErrorThreshold:  10,
		FreshnessWindow: 2 * time.Second,
		JoinTimeout:     2 * time.Second,
	}
}

func (c *ReceiverConfig) applyDefaults() {
	def := DefaultReceiverConfig()

	if c.UDPPort == 0 {
		c.UDPPort = def.UDPPort
	}

	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}

	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}

	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = def.ErrorThreshold
	}

	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = def.FreshnessWindow
	}

	if c.JoinTimeout <= 0 {
		c.JoinTimeout = def.JoinTimeout
	}
}

// BufferConfig enumerates every recognised buffer option, including the lap
// segmentation and validity policy knobs.
type BufferConfig struct {
	MaxSize               int           `json:"max_size" yaml:"max_size"`
	LapDetectionThreshold float64       `json:"lap_detection_threshold" yaml:"lap_detection_threshold"`
	LapCapacity           int           `json:"lap_capacity" yaml:"lap_capacity"`
	MinLapSamples         int           `json:"min_lap_samples" yaml:"min_lap_samples"`
	MinLapTime            time.Duration `json:"min_lap_time" yaml:"min_lap_time"`
	MaxLapTime            time.Duration `json:"max_lap_time" yaml:"max_lap_time"`
	MinValidSpeed         float64       `json:"min_valid_speed" yaml:"min_valid_speed"`
}

func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		MaxSize:               10000,
		LapDetectionThreshold: 0.95,
		MinLapSamples:         100,
		MinLapTime:            10 * time.Second,
		MaxLapTime:            600 * time.Second,
		MinValidSpeed:         10,
	}
}

func (c *BufferConfig) applyDefaults() {
	def := DefaultBufferConfig()

	if c.MaxSize <= 0 {
		c.MaxSize = def.MaxSize
	}

	if c.LapDetectionThreshold <= 0 || c.LapDetectionThreshold >= 1 {
		c.LapDetectionThreshold = def.LapDetectionThreshold
	}

	if c.LapCapacity <= 0 {
		c.LapCapacity = c.MaxSize / 100

		if c.LapCapacity < 1 {
			c.LapCapacity = 1
		}
	}

	if c.MinLapSamples <= 0 {
		c.MinLapSamples = def.MinLapSamples
	}

	if c.MinLapTime <= 0 {
		c.MinLapTime = def.MinLapTime
	}

	if c.MaxLapTime <= 0 {
		c.MaxLapTime = def.MaxLapTime
	}

	if c.MinValidSpeed <= 0 {
		c.MinValidSpeed = def.MinValidSpeed
	}
}

func (c BufferConfig) validate() error {
	if c.MinLapTime > c.MaxLapTime {
		return fmt.Errorf("min_lap_time (%s) exceeds max_lap_time (%s)", c.MinLapTime, c.MaxLapTime)
	}

	return nil
}
