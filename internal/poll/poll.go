// Package poll runs the periodic ask-stats loop the legacy protocol
// needs to keep its status notifications flowing, with session-token
// fencing against stale timer firings and an error budget that stops the
// loop after too many consecutive write failures.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/srg/padctl/internal/groutine"
	"github.com/srg/padctl/internal/protocol"
)

const (
	DefaultInterval            = 3 * time.Second
	DefaultMaxConsecutiveErrors = 3

	maxToken = 1 << 30
)

// Writer performs the bounded write a tick needs. The orchestrator
// supplies this as a closure over its transport and session state.
type Writer func(ctx context.Context, payload []byte) error

// ErrorSink receives an error for each failed tick, mirroring the
// "polling errors never throw; they emit" propagation rule.
type ErrorSink func(error)

// Manager owns one poll loop. Zero value is ready to use.
type Manager struct {
	mu       sync.Mutex
	token    int
	cancel   context.CancelFunc
	interval time.Duration
}

// NewManager returns a ready-to-use poll manager.
func NewManager() *Manager { return &Manager{} }

// Start begins polling codec.AskStats() via write on the given interval
// (DefaultInterval if zero or negative). It implicitly stops any
// previous run. If codec.AskStats() is empty, Start does nothing — this
// is how FTMS opts out of polling.
func (m *Manager) Start(ctx context.Context, codec protocol.Codec, interval time.Duration, write Writer, onError ErrorSink, maxConsecutiveErrors int) {
	m.Stop()

	payload := codec.AskStats()
	if len(payload) == 0 {
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxConsecutiveErrors <= 0 {
		maxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}

	m.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.interval = interval
	myToken := m.token
	m.mu.Unlock()

	groutine.Go(runCtx, "padctl-poll", func(ctx context.Context) {
		m.run(ctx, myToken, payload, interval, write, onError, maxConsecutiveErrors)
	})
}

func (m *Manager) run(ctx context.Context, myToken int, payload []byte, interval time.Duration, write Writer, onError ErrorSink, maxConsecutiveErrors int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.isCurrent(myToken) {
				return
			}
			if err := write(ctx, payload); err != nil {
				consecutiveErrors++
				if onError != nil {
					onError(err)
				}
				if consecutiveErrors >= maxConsecutiveErrors {
					m.Stop()
					return
				}
				continue
			}
			consecutiveErrors = 0
		}
	}
}

func (m *Manager) isCurrent(token int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return token == m.token
}

// Stop is idempotent: it cancels any running loop and bumps the session
// token (wrapping at maxToken) so any already-fired, in-flight tick
// observes itself as superseded.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.token = (m.token + 1) % maxToken
}
