package web

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/simracekit/pitwall/internal/telemetry"
)

// statsCollector exposes receiver and buffer snapshots as prometheus
// metrics. It reads the same snapshot queries any other consumer does; no
// extra state is kept.
type statsCollector struct {
	receiver *telemetry.Receiver
	buffer   *telemetry.TelemetryBuffer

	packetsReceived   *prometheus.Desc
	packetsInvalid    *prometheus.Desc
	connectionErrors  *prometheus.Desc
	receiving         *prometheus.Desc
	totalDataPoints   *prometheus.Desc
	invalidDataPoints *prometheus.Desc
	bufferOccupancy   *prometheus.Desc
	lapProgress       *prometheus.Desc
	completedLaps     *prometheus.Desc
	bestLapSeconds    *prometheus.Desc
}

func newStatsCollector(receiver *telemetry.Receiver, buffer *telemetry.TelemetryBuffer) *statsCollector {
	return &statsCollector{
		receiver: receiver,
		buffer:   buffer,

		packetsReceived:   prometheus.NewDesc("pitwall_packets_received_total", "Accepted telemetry packets.", nil, nil),
		packetsInvalid:    prometheus.NewDesc("pitwall_packets_invalid_total", "Packets dropped by decode or validation.", nil, nil),
		connectionErrors:  prometheus.NewDesc("pitwall_connection_errors_total", "Transport-level receive errors.", nil, nil),
		receiving:         prometheus.NewDesc("pitwall_receiving", "Whether a packet was accepted within the freshness window.", nil, nil),
		totalDataPoints:   prometheus.NewDesc("pitwall_buffer_data_points_total", "Samples accepted into the buffer.", nil, nil),
		invalidDataPoints: prometheus.NewDesc("pitwall_buffer_invalid_data_points_total", "Samples rejected by the buffer.", nil, nil),
		bufferOccupancy:   prometheus.NewDesc("pitwall_buffer_occupancy", "Samples currently held in the main history.", nil, nil),
		lapProgress:       prometheus.NewDesc("pitwall_lap_progress", "Most recently observed lap progress.", nil, nil),
		completedLaps:     prometheus.NewDesc("pitwall_completed_laps", "Laps currently retained in the buffer.", nil, nil),
		bestLapSeconds:    prometheus.NewDesc("pitwall_best_lap_seconds", "Best valid lap time in the buffer.", nil, nil),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsReceived
	ch <- c.packetsInvalid
	ch <- c.connectionErrors
	ch <- c.receiving
	ch <- c.totalDataPoints
	ch <- c.invalidDataPoints
	ch <- c.bufferOccupancy
	ch <- c.lapProgress
	ch <- c.completedLaps
	ch <- c.bestLapSeconds
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	connStats := c.receiver.Stats()
	bufStats := c.buffer.Stats()

	ch <- prometheus.MustNewConstMetric(c.packetsReceived, prometheus.CounterValue, float64(connStats.PacketsReceived))
	ch <- prometheus.MustNewConstMetric(c.packetsInvalid, prometheus.CounterValue, float64(connStats.PacketsInvalid))
	ch <- prometheus.MustNewConstMetric(c.connectionErrors, prometheus.CounterValue, float64(connStats.ConnectionErrors))

	receiving := 0.0

	if c.receiver.IsReceivingData() {
		receiving = 1
	}

	ch <- prometheus.MustNewConstMetric(c.receiving, prometheus.GaugeValue, receiving)
	ch <- prometheus.MustNewConstMetric(c.totalDataPoints, prometheus.CounterValue, float64(bufStats.TotalDataPoints))
	ch <- prometheus.MustNewConstMetric(c.invalidDataPoints, prometheus.CounterValue, float64(bufStats.InvalidDataPoints))
	ch <- prometheus.MustNewConstMetric(c.bufferOccupancy, prometheus.GaugeValue, float64(bufStats.BufferOccupancy))
	ch <- prometheus.MustNewConstMetric(c.lapProgress, prometheus.GaugeValue, bufStats.CurrentProgress)
	ch <- prometheus.MustNewConstMetric(c.completedLaps, prometheus.GaugeValue, float64(bufStats.CompletedLaps))

	if bufStats.BestLap != nil {
		ch <- prometheus.MustNewConstMetric(c.bestLapSeconds, prometheus.GaugeValue, bufStats.BestLap.LapTime.Seconds())
	}
}
