// Package blestack is the controller's collaborator contract for a BLE
// GATT stack, plus a concrete adapter over github.com/go-ble/ble.
package blestack

import (
	"context"
	"time"

	"github.com/srg/padctl/internal/gatt"
)

// Filter selects which advertising devices a scan/connect should offer.
// A device matches if its advertised name has any of NamePrefixes as a
// prefix (when non-empty).
type Filter struct {
	NamePrefixes []string
}

// ConnectOptions parameterises a connect/device-picker call.
type ConnectOptions struct {
	// Address, when non-empty, dials this device identity directly,
	// skipping the scan/picker step entirely.
	Address          string
	Filters          []Filter
	OptionalServices []string
	RememberDevice   bool
	ConnectTimeout   time.Duration
}

// Stack is the provider contract the connection orchestrator depends on.
// It is satisfied by the go-ble-backed adapter in this package and by
// fakes in tests.
type Stack interface {
	// Connect opens a device (via a remembered id, or a fresh scan/pick
	// when none is cached) and returns a live session.
	Connect(ctx context.Context, opts ConnectOptions) (Session, error)

	// Reconnect attempts to re-establish a session against the last
	// remembered device identity. It returns (nil, nil) when the stack
	// has no cached device to reconnect to, and (nil, nil) is also the
	// contract for "stack does not support reconnect" — callers treat
	// both identically.
	Reconnect(ctx context.Context, opts ConnectOptions) (Session, error)
}

// Session is a live connection to one device.
type Session interface {
	// PrimaryServices lists the device's primary services and their
	// characteristics, in discovery order.
	PrimaryServices(ctx context.Context) ([]gatt.Service, error)

	// WriteCharacteristic performs a write-with-response against ch.
	WriteCharacteristic(ctx context.Context, ch gatt.Characteristic, payload []byte) error

	// Subscribe enables notifications on ch; each inbound value is
	// delivered to handler as an owned, detached byte slice. The
	// returned teardown disables notifications and removes the
	// listener; teardown errors are the caller's to log.
	Subscribe(ctx context.Context, ch gatt.Characteristic, handler func([]byte)) (teardown func() error, err error)

	// Disconnect tears down the connection. Idempotent.
	Disconnect() error

	// OnDisconnect registers a callback fired when the peer disconnects
	// unexpectedly (not in response to our own Disconnect). Returns an
	// unsubscribe function.
	OnDisconnect(fn func()) (unsubscribe func())
}
