package telemetry

import "time"

// Channel names accepted by history queries.
const (
	ChannelRPM      = "rpm"
	ChannelSpeed    = "speed"
	ChannelThrottle = "throttle"
	ChannelBrake    = "brake"
	ChannelSteering = "steering"
)

// Channels lists every per-channel ring history the buffer maintains.
var Channels = []string{ChannelRPM, ChannelSpeed, ChannelThrottle, ChannelBrake, ChannelSteering}

type Vector3F struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
}

// TyreTemps holds per-corner tyre temperatures in °C.
type TyreTemps struct {
	FrontLeft  float32 `json:"front_left" yaml:"front_left"`
	FrontRight float32 `json:"front_right" yaml:"front_right"`
	RearLeft   float32 `json:"rear_left" yaml:"rear_left"`
	RearRight  float32 `json:"rear_right" yaml:"rear_right"`
}

// Sample is one decoded telemetry reading. Timestamp is stamped by the
// Receiver on arrival, never decoded from the wire.
type Sample struct {
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	LapTime       float32   `json:"lap_time" yaml:"lap_time"`
	LapDistance   float32   `json:"lap_distance" yaml:"lap_distance"`
	LapCompletion float32   `json:"lap_completion" yaml:"lap_completion"`
	Speed         float32   `json:"speed" yaml:"speed"`
	RPM           float32   `json:"rpm" yaml:"rpm"`
	Gear          int32     `json:"gear" yaml:"gear"`
	Throttle      float32   `json:"throttle" yaml:"throttle"`
	Brake         float32   `json:"brake" yaml:"brake"`
	Steering      float32   `json:"steering" yaml:"steering"`
	Position      Vector3F  `json:"position" yaml:"position"`
	Velocity      Vector3F  `json:"velocity" yaml:"velocity"`
	FuelLevel     float32   `json:"fuel_level" yaml:"fuel_level"`
	TyreTemps     TyreTemps `json:"tyre_temps" yaml:"tyre_temps"`
}

// Channel returns the sample's value for a named channel. Unknown channels
// report false.
func (s Sample) Channel(name string) (float64, bool) {
	switch name {
	case ChannelRPM:
		return float64(s.RPM), true
	case ChannelSpeed:
		return float64(s.Speed), true
	case ChannelThrottle:
		return float64(s.Throttle), true
	case ChannelBrake:
		return float64(s.Brake), true
	case ChannelSteering:
		return float64(s.Steering), true
	default:
		return 0, false
	}
}

// Validate checks every field against its declared domain. It returns a
// *ValidationError naming the first offending field, or nil. Decode-time
// clamping does not exempt callers from this check. The bounds are asserted
// positively so that NaN, which fails every comparison, never satisfies a
// domain.
func (s Sample) Validate() error {
	switch {
	case !inRange(s.RPM, 0, 20000):
		return &ValidationError{Field: "rpm", Value: float64(s.RPM)}
	case !inRange(s.Speed, 0, 500):
		return &ValidationError{Field: "speed", Value: float64(s.Speed)}
	case s.Gear < -1 || s.Gear > 8:
		return &ValidationError{Field: "gear", Value: float64(s.Gear)}
	case !inRange(s.Throttle, 0, 1):
		return &ValidationError{Field: "throttle", Value: float64(s.Throttle)}
	case !inRange(s.Brake, 0, 1):
		return &ValidationError{Field: "brake", Value: float64(s.Brake)}
	case !inRange(s.Steering, -1, 1):
		return &ValidationError{Field: "steering", Value: float64(s.Steering)}
	}

	return nil
}

// inRange is false for NaN and ±Inf as well as ordinary out-of-range values.
func inRange(f, min, max float32) bool {
	return f >= min && f <= max
}
