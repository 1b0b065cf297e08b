package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/simracekit/pitwall/internal/telemetry"
	"github.com/simracekit/pitwall/internal/web"
)

// FileConfig is the on-disk YAML shape. Durations are unit-suffixed integers
// so the file stays readable; they are converted into the typed core configs
// at construction. Unknown keys are rejected.
type FileConfig struct {
	LogLevel string             `yaml:"log_level"`
	Receiver ReceiverFileConfig `yaml:"receiver"`
	Buffer   BufferFileConfig   `yaml:"buffer"`
	Web      web.Config         `yaml:"web"`
	Store    StoreFileConfig    `yaml:"store"`
}

type ReceiverFileConfig struct {
	UDPPort           uint16 `yaml:"udp_port"`
	TimeoutMillis     int    `yaml:"timeout_ms"`
	HistorySize       int    `yaml:"history_size"`
	ErrorThreshold    int    `yaml:"error_threshold"`
	FreshnessWindowMs int    `yaml:"freshness_window_ms"`
	JoinTimeoutMs     int    `yaml:"join_timeout_ms"`
}

func (c ReceiverFileConfig) ReceiverConfig() telemetry.ReceiverConfig {
	return telemetry.ReceiverConfig{
		UDPPort:         c.UDPPort,
		Timeout:         time.Duration(c.TimeoutMillis) * time.Millisecond,
		HistorySize:     c.HistorySize,
		ErrorThreshold:  c.ErrorThreshold,
		FreshnessWindow: time.Duration(c.FreshnessWindowMs) * time.Millisecond,
		JoinTimeout:     time.Duration(c.JoinTimeoutMs) * time.Millisecond,
	}
}

type BufferFileConfig struct {
	MaxSize               int     `yaml:"max_size"`
	LapDetectionThreshold float64 `yaml:"lap_detection_threshold"`
	LapCapacity           int     `yaml:"lap_capacity"`
	MinLapSamples         int     `yaml:"min_lap_samples"`
	MinLapTimeSeconds     int     `yaml:"min_lap_time_s"`
	MaxLapTimeSeconds     int     `yaml:"max_lap_time_s"`
	MinValidSpeed         float64 `yaml:"min_valid_speed"`
}

func (c BufferFileConfig) BufferConfig() telemetry.BufferConfig {
	return telemetry.BufferConfig{
		MaxSize:               c.MaxSize,
		LapDetectionThreshold: c.LapDetectionThreshold,
		LapCapacity:           c.LapCapacity,
		MinLapSamples:         c.MinLapSamples,
		MinLapTime:            time.Duration(c.MinLapTimeSeconds) * time.Second,
		MaxLapTime:            time.Duration(c.MaxLapTimeSeconds) * time.Second,
		MinValidSpeed:         c.MinValidSpeed,
	}
}

type StoreFileConfig struct {
	Disabled             bool   `yaml:"disabled"`
	Path                 string `yaml:"path"`
	BestLapPath          string `yaml:"best_lap_path"`
	Profile              string `yaml:"profile"`
	FlushIntervalSeconds int    `yaml:"flush_interval_s"`
}

func (c StoreFileConfig) FlushInterval() time.Duration {
	if c.FlushIntervalSeconds <= 0 {
		return 5 * time.Second
	}

	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// readConfig loads the YAML config in strict mode. A missing file is not an
// error: the daemon runs on defaults.
func readConfig(path string) (*FileConfig, error) {
	conf := &FileConfig{
		Store: StoreFileConfig{
			Path:        "pitwall.db",
			BestLapPath: "pitwall-best.db",
			Profile:     "default",
		},
	}

	f, err := os.Open(path)

	if os.IsNotExist(err) {
		return conf, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not open config %s", path)
	}

	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.SetStrict(true)

	if err := decoder.Decode(conf); err != nil {
		return nil, errors.Wrapf(err, "could not parse config %s", path)
	}

	return conf, nil
}
