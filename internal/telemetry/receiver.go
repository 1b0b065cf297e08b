package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

type ReceiverState int

const (
	StateIdle ReceiverState = iota
	StateListening
	StateStopped
)

func (s ReceiverState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Observer is an external callback notified of each newly accepted Sample.
// Observers run synchronously on the listener goroutine and must not block;
// a panicking observer is recovered and logged, never propagated.
type Observer func(Sample)

// Receiver owns the UDP socket and the listener loop. Per packet it decodes,
// validates, stamps the arrival time and dispatches: latest/history update,
// buffer ingestion, observer callbacks. All of that happens synchronously on
// the one listener goroutine before the next receive.
type Receiver struct {
	config ReceiverConfig
	logger Logger
	buffer *TelemetryBuffer

	mutex sync.RWMutex
	state ReceiverState
	conn  *net.UDPConn
	cfn   context.CancelFunc
	done  chan struct{}

	latest    *Sample
	history   []Sample
	stats     ConnectionStats
	observers map[int]Observer
	nextID    int

	now func() time.Time
}

func NewReceiver(config ReceiverConfig, buffer *TelemetryBuffer, logger Logger) *Receiver {
	config.applyDefaults()

	return &Receiver{
		config:    config,
		logger:    logger,
		buffer:    buffer,
		observers: make(map[int]Observer),
		now:       time.Now,
	}
}

// Start binds the UDP socket and spawns the listener goroutine. A bind
// failure is a *ConnectionError: the receiver stays idle and no goroutine is
// spawned. Starting an already-listening receiver is an error.
func (r *Receiver) Start() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateListening {
		return ErrAlreadyListening
	}

	lc := net.ListenConfig{Control: reuseAddr}

	packetConn, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf(":%d", r.config.UDPPort))

	if err != nil {
		return &ConnectionError{Port: r.config.UDPPort, Err: err}
	}

	ctx, cfn := context.WithCancel(context.Background())

	r.conn = packetConn.(*net.UDPConn)
	r.cfn = cfn
	r.done = make(chan struct{})
	r.state = StateListening

	go r.listen(ctx, r.conn, r.done)

	return nil
}

func (r *Receiver) listen(ctx context.Context, conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	r.logger.Infof("Telemetry receiver listening on UDP port %d", r.config.UDPPort)

	consecutiveErrors := 0
	buf := make([]byte, 2048)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(r.config.Timeout)); err != nil {
			r.logger.WithError(err).Errorf("Could not set read deadline")
		}

		n, _, err := conn.ReadFromUDP(buf)

		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}

			var netErr net.Error

			if errors.As(err, &netErr) && netErr.Timeout() {
				// No packets within the deadline. Not an error, just the
				// loop's chance to notice a stop request.
				continue
			}

			consecutiveErrors++
			r.recordTransportError()
			r.logger.WithError(&TransportError{Err: err}).Errorf("Could not read from telemetry socket")

			if consecutiveErrors >= r.config.ErrorThreshold {
				r.logger.Errorf("Giving up after %d consecutive transport errors", consecutiveErrors)
				r.shutdownFromLoop(conn)

				return
			}

			continue
		}

		sample, err := DecodePacket(buf[:n])

		if err == nil {
			err = sample.Validate()
		}

		if err != nil {
			r.recordInvalidPacket(err)
			continue
		}

		consecutiveErrors = 0
		sample.Timestamp = r.now()

		observers := r.recordAccepted(sample)

		r.buffer.Add(sample)

		for _, observer := range observers {
			r.notify(observer, sample)
		}
	}
}

// Stop cancels the listener, closes the socket to unblock a pending read and
// joins the goroutine with a bounded wait. Idempotent: stopping a receiver
// that is not listening is a no-op.
func (r *Receiver) Stop() error {
	r.mutex.Lock()

	if r.state != StateListening {
		r.mutex.Unlock()
		return nil
	}

	r.state = StateStopped
	cfn, conn, done := r.cfn, r.conn, r.done

	r.mutex.Unlock()

	cfn()
	_ = conn.Close()

	select {
	case <-done:
	case <-time.After(r.config.JoinTimeout):
		r.logger.Errorf("Listener did not exit within %s", r.config.JoinTimeout)
		return ErrStopTimeout
	}

	r.logger.Infof("Telemetry receiver stopped")

	return nil
}

// shutdownFromLoop is the error-threshold exit path: the loop closes its own
// socket and marks the receiver stopped so the condition is observable via
// State, not only logs.
func (r *Receiver) shutdownFromLoop(conn *net.UDPConn) {
	_ = conn.Close()

	r.mutex.Lock()
	r.state = StateStopped
	r.mutex.Unlock()
}

func (r *Receiver) notify(observer Observer, sample Sample) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("Recovered observer panic: %v", rec)
		}
	}()

	observer(sample)
}

func (r *Receiver) recordAccepted(sample Sample) []Observer {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.latest = &sample

	r.history = append(r.history, sample)

	if len(r.history) > r.config.HistorySize {
		r.history = r.history[1:]
	}

	r.stats.PacketsReceived++
	r.stats.LastPacketTime = sample.Timestamp

	observers := make([]Observer, 0, len(r.observers))

	for _, observer := range r.observers {
		observers = append(observers, observer)
	}

	return observers
}

func (r *Receiver) recordInvalidPacket(err error) {
	r.mutex.Lock()
	r.stats.PacketsInvalid++
	r.stats.LastInvalidTime = r.now()
	r.mutex.Unlock()

	r.logger.Debugf("Dropping packet: %s", err)
}

func (r *Receiver) recordTransportError() {
	r.mutex.Lock()
	r.stats.ConnectionErrors++
	r.mutex.Unlock()
}

func (r *Receiver) State() ReceiverState {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.state
}

// IsReceivingData reports whether a packet was accepted within the freshness
// window of now. Derived from the last packet time only.
func (r *Receiver) IsReceivingData() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.stats.LastPacketTime.IsZero() {
		return false
	}

	return r.now().Sub(r.stats.LastPacketTime) < r.config.FreshnessWindow
}

// IsReceivingInvalidData reports whether a packet was dropped by decode or
// validation within the freshness window of now. Together with
// IsReceivingData it lets consumers tell "no connection" apart from
// "connected but fed garbage", regardless of earlier valid traffic.
func (r *Receiver) IsReceivingInvalidData() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.stats.LastInvalidTime.IsZero() {
		return false
	}

	return r.now().Sub(r.stats.LastInvalidTime) < r.config.FreshnessWindow
}

// AddObserver registers a callback for accepted samples and returns its
// removal handle.
func (r *Receiver) AddObserver(observer Observer) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	r.observers[r.nextID] = observer

	return r.nextID
}

func (r *Receiver) RemoveObserver(id int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.observers, id)
}

// Latest returns the most recently accepted sample.
func (r *Receiver) Latest() (Sample, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.latest == nil {
		return Sample{}, false
	}

	return *r.latest, true
}

// History returns up to n of the receiver's most recent samples, oldest
// first.
func (r *Receiver) History(n int) []Sample {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if n <= 0 || n > len(r.history) {
		n = len(r.history)
	}

	out := make([]Sample, n)
	copy(out, r.history[len(r.history)-n:])

	return out
}

// Stats returns a snapshot of the connection counters.
func (r *Receiver) Stats() ConnectionStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.stats
}
