// Package protocol defines the two wire codecs the controller speaks to
// a treadmill over GATT, and the shared state type they both produce.
package protocol

import (
	"errors"
	"fmt"
)

// Name identifies which codec a session negotiated.
type Name string

const (
	Standard Name = "standard"
	FTMS     Name = "ftms"
)

// State is the decoded, clamp-bounded status of the treadmill at a point
// in time. Every codec publishes this shape regardless of wire format.
type State struct {
	DeviceState int
	SpeedKMH    float64
	Mode        int
	TimeSeconds int
	DistanceKM  float64
	Steps       int
	IsRunning   bool
}

// Codec builds outbound commands and parses inbound status buffers for
// one wire protocol variant. Command builders return a nil payload to
// mean "nothing to send" (e.g. FTMS has no ask-stats wire command).
type Codec interface {
	Name() Name
	AskStats() []byte
	Start() []byte
	Stop() []byte
	SetSpeed(kmh float64) ([]byte, error)
	RequestControl() []byte
	ParseStatus(buf []byte) State
}

// SpeedOutOfRangeError is returned by SetSpeed when the requested speed
// is non-finite or outside the codec's supported range.
type SpeedOutOfRangeError struct {
	Value, Min, Max float64
}

func (e *SpeedOutOfRangeError) Error() string {
	return fmt.Sprintf("speed %.4f out of range [%.4f, %.4f]", e.Value, e.Min, e.Max)
}

// ErrSpeedOutOfRange is the sentinel errors.Is target for SpeedOutOfRangeError.
var ErrSpeedOutOfRange = errors.New("speed out of range")

func (e *SpeedOutOfRangeError) Is(target error) bool {
	return target == ErrSpeedOutOfRange
}

func (e *SpeedOutOfRangeError) Unwrap() error { return ErrSpeedOutOfRange }
