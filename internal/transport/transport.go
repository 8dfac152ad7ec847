// Package transport implements the three BLE I/O primitives the
// connection orchestrator builds on: a deadline-bounded write, a
// control-point-aware write, and a notification subscription that
// buffers inbound frames through a bounded ring buffer before handing
// them to the caller's handler.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hedzr/go-ringbuf/v2"

	"github.com/srg/padctl/internal/blestack"
	"github.com/srg/padctl/internal/gatt"
)

const (
	DefaultWriteTimeout        = 10 * time.Second
	DefaultNotificationTimeout = 15 * time.Second

	notificationBufferSize = 32
)

// ErrEmptyPayload is returned by Write when asked to send a zero-length
// command.
var ErrEmptyPayload = errors.New("transport: refusing to write an empty payload")

// TimeoutError is returned when a bounded operation exceeds its deadline.
// The underlying BLE operation is not guaranteed to have been cancelled.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport: %s timed out after %s", e.Op, e.Limit)
}

// Write performs a write-with-response against ch, bounded by timeout
// (DefaultWriteTimeout if zero or negative). Empty payloads are rejected
// without performing I/O.
func Write(ctx context.Context, sess blestack.Session, ch gatt.Characteristic, payload []byte, timeout time.Duration) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := sess.WriteCharacteristic(writeCtx, ch, payload)
	if errors.Is(writeCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: "write " + ch.UUID, Limit: timeout}
	}
	return err
}

// RouteAwareWrite prefers roles.ControlPoint when present, else falls
// back to roles.Write. FTMS commands always have a control-point;
// standard commands use the unconditional Write above instead of this
// function.
func RouteAwareWrite(ctx context.Context, sess blestack.Session, roles gatt.Roles, payload []byte, timeout time.Duration) error {
	target := roles.Write
	if roles.ControlPoint != nil {
		target = *roles.ControlPoint
	}
	return Write(ctx, sess, target, payload, timeout)
}

// OnDrop is called once for every inbound frame the ring buffer discards
// under backpressure, after the drop has already been logged.
type OnDrop func()

// Subscribe enables notifications on ch (bounded by timeout, default
// DefaultNotificationTimeout) and dispatches each inbound buffer to
// handler through a bounded ring buffer that drops the oldest pending
// frame under sustained backpressure rather than blocking the BLE
// callback thread. The returned teardown stops the dispatch goroutine
// and disables notifications; a disable failure is logged, not returned.
// onDrop, if non-nil, is invoked on every dropped frame (e.g. to feed a
// metrics counter); it may be nil.
func Subscribe(ctx context.Context, sess blestack.Session, ch gatt.Characteristic, handler func([]byte), timeout time.Duration, logger *slog.Logger, onDrop OnDrop) (func() error, error) {
	if timeout <= 0 {
		timeout = DefaultNotificationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	ring := ringbuf.New[[]byte](notificationBufferSize)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				for {
					buf, ok := ring.Dequeue()
					if !ok {
						break
					}
					handler(buf)
				}
			}
		}
	}()

	subCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bleTeardown, err := sess.Subscribe(subCtx, ch, func(buf []byte) {
		if !ring.Enqueue(buf) {
			ring.Dequeue()
			ring.Enqueue(buf)
			logger.Warn("notification buffer full, dropping oldest frame", slog.String("characteristic", ch.UUID))
			if onDrop != nil {
				onDrop()
			}
		}
	})
	if err != nil {
		close(done)
		if errors.Is(subCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Op: "subscribe " + ch.UUID, Limit: timeout}
		}
		return nil, err
	}

	teardown := func() error {
		close(done)
		if err := bleTeardown(); err != nil {
			logger.Warn("failed to stop notifications", slog.String("error", err.Error()), slog.String("characteristic", ch.UUID))
		}
		return nil
	}
	return teardown, nil
}
