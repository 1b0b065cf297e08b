package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simracekit/pitwall/internal/store"
	"github.com/simracekit/pitwall/internal/telemetry"
)

// Config enumerates the recognised web server options.
type Config struct {
	Port uint16 `json:"port" yaml:"port"`
}

func DefaultConfig() Config {
	return Config{
		Port: 8775,
	}
}

// HTTP serves the live overlay feed, the dashboard API and the metrics
// endpoint. Every handler reads core state through snapshot queries only.
type HTTP struct {
	server *http.Server
	logger telemetry.Logger

	port     uint16
	receiver *telemetry.Receiver
	buffer   *telemetry.TelemetryBuffer
	sessions *store.SessionStore
	bestLaps *store.BestLapStore
	hub      *Hub
	registry *prometheus.Registry
}

func NewHTTP(config Config, receiver *telemetry.Receiver, buffer *telemetry.TelemetryBuffer, sessions *store.SessionStore, bestLaps *store.BestLapStore, logger telemetry.Logger) *HTTP {
	if config.Port == 0 {
		config.Port = DefaultConfig().Port
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(newStatsCollector(receiver, buffer))

	return &HTTP{
		port:     config.Port,
		receiver: receiver,
		buffer:   buffer,
		sessions: sessions,
		bestLaps: bestLaps,
		hub:      NewHub(logger),
		registry: registry,
		logger:   logger,
	}
}

// Hub exposes the websocket fan-out so the caller can register it as a
// receiver observer.
func (h *HTTP) Hub() *Hub {
	return h.hub
}

func (h *HTTP) Listen() error {
	h.logger.Infof("HTTP server listening on port: %d", h.port)

	h.server = &http.Server{
		Handler: h.Router(),
		Addr:    fmt.Sprintf(":%d", h.port),
	}

	go func() {
		err := h.server.ListenAndServe()

		if err == http.ErrServerClosed {
			return
		} else if err != nil {
			h.logger.WithError(err).Errorf("Could not start HTTP server")
		}
	}()

	return nil
}

func (h *HTTP) Close() error {
	h.hub.Close()

	if h.server == nil {
		return nil
	}

	return h.server.Close()
}

func (h *HTTP) Router() http.Handler {
	router := chi.NewRouter()

	router.Get("/api/live", h.live)
	router.Get("/api/history", h.history)
	router.Get("/api/stats", h.stats)
	router.Get("/api/laps", h.laps)
	router.Get("/api/laps/best", h.bestLap)
	router.Get("/api/sessions", h.sessionList)
	router.Get("/api/sessions/{id}/laps", h.sessionLaps)
	router.Get("/api/export", h.export)
	router.Post("/api/clear", h.clear)
	router.Get("/ws", h.hub.ServeWS)
	router.Get("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}).ServeHTTP)

	return router
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Add("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (h *HTTP) live(w http.ResponseWriter, r *http.Request) {
	sample, ok := h.receiver.Latest()

	if !ok {
		http.Error(w, "no telemetry received yet", http.StatusNotFound)
		return
	}

	writeJSON(w, sample)
}

type historyResponse struct {
	Channel string    `json:"channel"`
	Values  []float64 `json:"values"`
}

func (h *HTTP) history(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")

	if channel == "" {
		channel = telemetry.ChannelSpeed
	}

	known := false

	for _, name := range telemetry.Channels {
		if name == channel {
			known = true
			break
		}
	}

	if !known {
		http.Error(w, fmt.Sprintf("unknown channel: %s", channel), http.StatusBadRequest)
		return
	}

	count := 100

	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)

		if err != nil || parsed < 0 {
			http.Error(w, "count must be a non-negative integer", http.StatusBadRequest)
			return
		}

		count = parsed
	}

	values := h.buffer.ParameterHistory(channel, count)

	if values == nil {
		values = []float64{}
	}

	writeJSON(w, historyResponse{Channel: channel, Values: values})
}

// Connection status values surfaced to consumers. A stalled or never-started
// receiver is distinguishable from one that is reachable but fed garbage.
const (
	StatusReceiving   = "receiving"
	StatusNoValidData = "connected_no_valid_data"
	StatusNoConn      = "no_connection"
)

type statsResponse struct {
	State      string                    `json:"state"`
	Status     string                    `json:"status"`
	Receiving  bool                      `json:"receiving"`
	Connection telemetry.ConnectionStats `json:"connection"`
	Buffer     telemetry.BufferStats     `json:"buffer"`
}

func (h *HTTP) stats(w http.ResponseWriter, r *http.Request) {
	connStats := h.receiver.Stats()
	receiving := h.receiver.IsReceivingData()

	status := StatusNoConn

	if receiving {
		status = StatusReceiving
	} else if h.receiver.IsReceivingInvalidData() {
		status = StatusNoValidData
	}

	writeJSON(w, statsResponse{
		State:      h.receiver.State().String(),
		Status:     status,
		Receiving:  receiving,
		Connection: connStats,
		Buffer:     h.buffer.Stats(),
	})
}

func (h *HTTP) laps(w http.ResponseWriter, r *http.Request) {
	laps := h.buffer.CompletedLaps()

	if laps == nil {
		laps = []telemetry.LapRecord{}
	}

	writeJSON(w, laps)
}

func (h *HTTP) bestLap(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("scope") == "alltime" {
		h.allTimeBestLap(w, r)
		return
	}

	best, ok := h.buffer.BestLap()

	if !ok {
		http.Error(w, "no valid lap completed yet", http.StatusNotFound)
		return
	}

	writeJSON(w, best)
}

func (h *HTTP) allTimeBestLap(w http.ResponseWriter, r *http.Request) {
	if h.bestLaps == nil {
		http.Error(w, "best lap store not configured", http.StatusServiceUnavailable)
		return
	}

	profile := r.URL.Query().Get("profile")

	if profile == "" {
		profile = "default"
	}

	best, found, err := h.bestLaps.Best(profile)

	if err != nil {
		h.logger.WithError(err).Errorf("Could not read best lap for %s", profile)
		http.Error(w, "could not read best lap", http.StatusInternalServerError)

		return
	}

	if !found {
		http.Error(w, fmt.Sprintf("no best lap recorded for %s", profile), http.StatusNotFound)
		return
	}

	writeJSON(w, best)
}

func (h *HTTP) sessionList(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		http.Error(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}

	sessions, err := h.sessions.Sessions()

	if err != nil {
		h.logger.WithError(err).Errorf("Could not list sessions")
		http.Error(w, "could not list sessions", http.StatusInternalServerError)

		return
	}

	writeJSON(w, sessions)
}

func (h *HTTP) sessionLaps(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		http.Error(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}

	laps, err := h.sessions.SessionLaps(chi.URLParam(r, "id"))

	if err != nil {
		h.logger.WithError(err).Errorf("Could not list session laps")
		http.Error(w, "could not list session laps", http.StatusInternalServerError)

		return
	}

	writeJSON(w, laps)
}

func (h *HTTP) export(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	w.Header().Add("Content-Disposition", fmt.Sprintf(`attachment; filename="pitwall-export-%s.json"`, time.Now().Format("20060102-150405")))

	if err := h.buffer.ExportJSON(w); err != nil {
		h.logger.WithError(err).Errorf("Could not export buffer")
	}
}

func (h *HTTP) clear(w http.ResponseWriter, r *http.Request) {
	h.buffer.Clear()
	h.logger.Infof("Telemetry buffer cleared via API")

	w.WriteHeader(http.StatusNoContent)
}
