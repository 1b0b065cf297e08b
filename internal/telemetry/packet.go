package telemetry

import (
	"bytes"
	"encoding/binary"
	"math"
)

// MinPacketSize is the length of the canonical telemetry datagram: 20
// consecutive little-endian 32-bit fields. Longer datagrams are accepted and
// the tail ignored; shorter ones fail decoding.
const MinPacketSize = 80

// Packet wraps a received datagram and reads little-endian values off it in
// wire order.
type Packet struct {
	buf *bytes.Buffer
}

func NewPacket(b []byte) *Packet {
	return &Packet{
		buf: bytes.NewBuffer(b),
	}
}

func (p *Packet) Read(out interface{}) {
	_ = binary.Read(p.buf, binary.LittleEndian, out)
}

func (p *Packet) ReadFloat32() float32 {
	var f float32

	p.Read(&f)

	return f
}

func (p *Packet) ReadInt32() int32 {
	var i int32

	p.Read(&i)

	return i
}

func (p *Packet) ReadVector3F() Vector3F {
	var v Vector3F

	p.Read(&v)

	return v
}

// DecodePacket maps a raw datagram to a Sample. Failures are *DecodeError;
// no partial Sample is ever returned. Throttle, brake and steering are
// clamped to their domains here, matching the transport's permissive stance;
// every other malformed value (NaN, ±Inf) fails the whole packet.
func DecodePacket(raw []byte) (Sample, error) {
	if len(raw) < MinPacketSize {
		return Sample{}, &DecodeError{Reason: "packet too small", Size: len(raw)}
	}

	p := NewPacket(raw)

	var sample Sample

	sample.LapTime = p.ReadFloat32()
	sample.LapDistance = p.ReadFloat32()
	sample.LapCompletion = p.ReadFloat32()
	sample.Speed = p.ReadFloat32()
	sample.RPM = p.ReadFloat32()
	sample.Gear = p.ReadInt32()
	sample.Throttle = clampFloat32(p.ReadFloat32(), 0, 1)
	sample.Brake = clampFloat32(p.ReadFloat32(), 0, 1)
	sample.Steering = clampFloat32(p.ReadFloat32(), -1, 1)
	sample.Position = p.ReadVector3F()
	sample.Velocity = p.ReadVector3F()
	sample.FuelLevel = p.ReadFloat32()
	sample.TyreTemps.FrontLeft = p.ReadFloat32()
	sample.TyreTemps.FrontRight = p.ReadFloat32()
	sample.TyreTemps.RearLeft = p.ReadFloat32()
	sample.TyreTemps.RearRight = p.ReadFloat32()

	for _, f := range []float32{
		sample.LapTime, sample.LapDistance, sample.LapCompletion,
		sample.Speed, sample.RPM,
		sample.Throttle, sample.Brake, sample.Steering,
		sample.Position.X, sample.Position.Y, sample.Position.Z,
		sample.Velocity.X, sample.Velocity.Y, sample.Velocity.Z,
		sample.FuelLevel,
		sample.TyreTemps.FrontLeft, sample.TyreTemps.FrontRight,
		sample.TyreTemps.RearLeft, sample.TyreTemps.RearRight,
	} {
		f64 := float64(f)

		if math.IsNaN(f64) || math.IsInf(f64, 0) {
			return Sample{}, &DecodeError{Reason: "non-finite float field", Size: len(raw)}
		}
	}

	return sample, nil
}

// EncodePacket writes a Sample back into the canonical wire layout. Used by
// the simulator and loopback tests; the receiver itself only decodes.
func EncodePacket(sample Sample) []byte {
	buf := new(bytes.Buffer)

	write := func(val interface{}) {
		_ = binary.Write(buf, binary.LittleEndian, val)
	}

	write(sample.LapTime)
	write(sample.LapDistance)
	write(sample.LapCompletion)
	write(sample.Speed)
	write(sample.RPM)
	write(sample.Gear)
	write(sample.Throttle)
	write(sample.Brake)
	write(sample.Steering)
	write(sample.Position)
	write(sample.Velocity)
	write(sample.FuelLevel)
	write(sample.TyreTemps)

	return buf.Bytes()
}

func clampFloat32(f, min, max float32) float32 {
	if f < min {
		return min
	}

	if f > max {
		return max
	}

	return f
}
