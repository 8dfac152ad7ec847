// Package events implements the controller's typed event fan-out: state
// updates, errors, and connection-state transitions, each with its own
// subscriber list.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/srg/padctl/internal/protocol"
	"github.com/srg/padctl/internal/statemachine"
)

// ConnectionStateChange is the payload of the connectionStateChange channel.
type ConnectionStateChange struct {
	From, To statemachine.State
}

type stateEntry struct {
	id      uint64
	fn      func(protocol.State)
	oneShot bool
}

type errorEntry struct {
	id      uint64
	fn      func(error)
	oneShot bool
}

type connEntry struct {
	id      uint64
	fn      func(ConnectionStateChange)
	oneShot bool
}

var nextListenerID uint64

func newID() uint64 { return atomic.AddUint64(&nextListenerID, 1) }

// Bus is the three-channel typed pub/sub fan-out. A nil logger falls
// back to the standard logger.
type Bus struct {
	mu sync.Mutex

	stateListeners []*stateEntry
	errorListeners []*errorEntry
	connListeners  []*connEntry

	logger *slog.Logger
}

// NewBus returns a ready-to-use event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// SubscribeState registers a state listener and returns an unsubscribe thunk.
func (b *Bus) SubscribeState(fn func(protocol.State)) func() {
	entry := &stateEntry{id: newID(), fn: fn}
	b.mu.Lock()
	b.stateListeners = append(b.stateListeners, entry)
	b.mu.Unlock()
	return func() { b.removeState(entry.id) }
}

// OnceState registers a state listener that auto-removes after its first fire.
func (b *Bus) OnceState(fn func(protocol.State)) func() {
	entry := &stateEntry{id: newID(), fn: fn, oneShot: true}
	b.mu.Lock()
	b.stateListeners = append(b.stateListeners, entry)
	b.mu.Unlock()
	return func() { b.removeState(entry.id) }
}

// SubscribeError registers an error listener and returns an unsubscribe thunk.
func (b *Bus) SubscribeError(fn func(error)) func() {
	entry := &errorEntry{id: newID(), fn: fn}
	b.mu.Lock()
	b.errorListeners = append(b.errorListeners, entry)
	b.mu.Unlock()
	return func() { b.removeError(entry.id) }
}

// OnceError registers an error listener that auto-removes after its first fire.
func (b *Bus) OnceError(fn func(error)) func() {
	entry := &errorEntry{id: newID(), fn: fn, oneShot: true}
	b.mu.Lock()
	b.errorListeners = append(b.errorListeners, entry)
	b.mu.Unlock()
	return func() { b.removeError(entry.id) }
}

// SubscribeConnectionStateChange registers a connection-state listener.
func (b *Bus) SubscribeConnectionStateChange(fn func(ConnectionStateChange)) func() {
	entry := &connEntry{id: newID(), fn: fn}
	b.mu.Lock()
	b.connListeners = append(b.connListeners, entry)
	b.mu.Unlock()
	return func() { b.removeConn(entry.id) }
}

func (b *Bus) removeState(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.stateListeners[:0]
	for _, e := range b.stateListeners {
		if e.id != id {
			out = append(out, e)
		}
	}
	b.stateListeners = out
}

func (b *Bus) removeError(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.errorListeners[:0]
	for _, e := range b.errorListeners {
		if e.id != id {
			out = append(out, e)
		}
	}
	b.errorListeners = out
}

func (b *Bus) removeConn(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.connListeners[:0]
	for _, e := range b.connListeners {
		if e.id != id {
			out = append(out, e)
		}
	}
	b.connListeners = out
}

// EmitState publishes a state event to every current state listener.
func (b *Bus) EmitState(s protocol.State) {
	b.mu.Lock()
	snapshot := append([]*stateEntry(nil), b.stateListeners...)
	b.mu.Unlock()

	var fired []uint64
	for _, e := range snapshot {
		entry := e
		b.safeCall(func() { entry.fn(s) })
		if entry.oneShot {
			fired = append(fired, entry.id)
		}
	}
	for _, id := range fired {
		b.removeState(id)
	}
}

// EmitError publishes an error event. With zero listeners, the error is
// routed to the logger's error sink so it is never silently lost.
func (b *Bus) EmitError(err error) {
	b.mu.Lock()
	snapshot := append([]*errorEntry(nil), b.errorListeners...)
	b.mu.Unlock()

	if len(snapshot) == 0 {
		b.logger.Error("unhandled controller error", slog.String("error", err.Error()))
		return
	}

	var fired []uint64
	for _, e := range snapshot {
		entry := e
		b.safeCall(func() { entry.fn(err) })
		if entry.oneShot {
			fired = append(fired, entry.id)
		}
	}
	for _, id := range fired {
		b.removeError(id)
	}
}

// EmitConnectionStateChange publishes a connection-state transition.
func (b *Bus) EmitConnectionStateChange(change ConnectionStateChange) {
	b.mu.Lock()
	snapshot := append([]*connEntry(nil), b.connListeners...)
	b.mu.Unlock()

	var fired []uint64
	for _, e := range snapshot {
		entry := e
		b.safeCall(func() { entry.fn(change) })
		if entry.oneShot {
			fired = append(fired, entry.id)
		}
	}
	for _, id := range fired {
		b.removeConn(id)
	}
}

// ListenerCounts reports the current subscriber count per channel.
func (b *Bus) ListenerCounts() (state, errorCount, conn int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stateListeners), len(b.errorListeners), len(b.connListeners)
}

// RemoveAllState clears every state-channel listener.
func (b *Bus) RemoveAllState() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stateListeners = nil
}

// RemoveAllErrors clears every error-channel listener.
func (b *Bus) RemoveAllErrors() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorListeners = nil
}

// RemoveAllConnectionStateChange clears every connectionStateChange listener.
func (b *Bus) RemoveAllConnectionStateChange() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connListeners = nil
}

// RemoveAll clears every listener on every channel.
func (b *Bus) RemoveAll() {
	b.RemoveAllState()
	b.RemoveAllErrors()
	b.RemoveAllConnectionStateChange()
}

func (b *Bus) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("events: listener panicked", slog.Any("panic", r))
		}
	}()
	fn()
}
