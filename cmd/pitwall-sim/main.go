package main

import (
	"context"
	"flag"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simracekit/pitwall/internal/telemetry"
)

// pitwall-sim drives the daemon without a game running: it synthesises
// plausible lap telemetry and streams it over UDP in the canonical packet
// layout.

var (
	addr    string
	rateHz  int
	lapTime float64
	laps    int
)

func init() {
	flag.StringVar(&addr, "addr", "127.0.0.1:9996", "daemon address")
	flag.IntVar(&rateHz, "rate", 60, "samples per second")
	flag.Float64Var(&lapTime, "laptime", 90, "simulated lap time in seconds")
	flag.IntVar(&laps, "laps", 0, "laps to drive (0 = until interrupted)")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	conn, err := net.Dial("udp", addr)

	if err != nil {
		logger.WithError(err).Fatal("Could not dial daemon")
	}

	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Streaming simulated telemetry to %s at %d Hz (%.0fs laps)", addr, rateHz, lapTime)

	ticker := time.NewTicker(time.Second / time.Duration(rateHz))
	defer ticker.Stop()

	var (
		progress  float64
		lapNumber int
		distance  float64
	)

	const trackLength = 5800.0 // metres

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Stopping after %d laps", lapNumber)
			return
		case <-ticker.C:
		}

		progress += 1 / (lapTime * float64(rateHz))

		if progress >= 1 {
			progress -= 1
			lapNumber++
			logger.Infof("Crossed the line, starting lap %d", lapNumber+1)

			if laps > 0 && lapNumber >= laps {
				logger.Infof("Drove %d laps. Exiting", lapNumber)
				return
			}
		}

		distance = progress * trackLength

		if _, err := conn.Write(telemetry.EncodePacket(synthesise(progress, distance))); err != nil {
			logger.WithError(err).Error("Could not send packet")
		}
	}
}

// synthesise fakes a car working through corners: speed, pedals and steering
// all swing with track position.
func synthesise(progress, distance float64) telemetry.Sample {
	corner := math.Sin(2 * math.Pi * progress * 6)

	speed := 170 + 80*corner
	throttle := clamp(0.55+corner, 0, 1)
	brake := clamp(-corner-0.4, 0, 1)

	gear := int32(2 + speed/50)

	if gear > 8 {
		gear = 8
	}

	return telemetry.Sample{
		LapTime:       float32(progress * lapTime),
		LapDistance:   float32(distance),
		LapCompletion: float32(progress),
		Speed:         float32(speed),
		RPM:           float32(4000 + 3500*math.Abs(corner)),
		Gear:          gear,
		Throttle:      float32(throttle),
		Brake:         float32(brake),
		Steering:      float32(0.8 * math.Sin(2*math.Pi*progress*9)),
		Position: telemetry.Vector3F{
			X: float32(1000 * math.Cos(2*math.Pi*progress)),
			Z: float32(1000 * math.Sin(2*math.Pi*progress)),
		},
		Velocity: telemetry.Vector3F{
			X: float32(speed / 3.6),
		},
		FuelLevel: float32(60 * (1 - progress/10)),
		TyreTemps: telemetry.TyreTemps{
			FrontLeft:  float32(82 + 6*math.Abs(corner)),
			FrontRight: float32(83 + 6*math.Abs(corner)),
			RearLeft:   float32(80 + 5*math.Abs(corner)),
			RearRight:  float32(81 + 5*math.Abs(corner)),
		},
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}
