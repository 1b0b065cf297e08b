package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyListening is returned by Start when the receiver already has a
	// running listener.
	ErrAlreadyListening = errors.New("receiver is already listening")

	// ErrStopTimeout is returned by Stop when the listener goroutine does not
	// exit within the configured join timeout.
	ErrStopTimeout = errors.New("timed out waiting for listener to stop")
)

// DecodeError indicates a datagram whose byte layout could not be decoded
// into a Sample. Decode failures are expected on a shared port and are
// counted, never fatal.
type DecodeError struct {
	Reason string
	Size   int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed: %s (%d bytes)", e.Reason, e.Size)
}

// ValidationError indicates a decoded Sample carrying a field outside its
// declared domain.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s out of range (%v)", e.Field, e.Value)
}

// ConnectionError indicates the receiver could not bind its socket. It is
// fatal to Start and leaves the receiver idle.
type ConnectionError struct {
	Port uint16
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not bind udp port %d: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransportError indicates a receive failure on an established socket.
// Individually recoverable; the receiver gives up once too many occur
// consecutively.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
