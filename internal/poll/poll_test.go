package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/srg/padctl/internal/protocol"
)

type noopCodec struct{ protocol.Codec }

func (noopCodec) AskStats() []byte { return nil }
func (noopCodec) Name() protocol.Name { return protocol.Standard }

func TestStartDoesNothingWhenAskStatsEmpty(t *testing.T) {
	m := NewManager()
	var calls int32
	m.Start(context.Background(), noopCodec{}, 5*time.Millisecond, func(ctx context.Context, payload []byte) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil, 0)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("a codec with no ask-stats payload must never poll")
	}
}

type askingCodec struct{ protocol.Codec }

func (askingCodec) AskStats() []byte { return []byte{0x00} }
func (askingCodec) Name() protocol.Name { return protocol.Standard }

func TestPollResetsErrorCounterOnSuccess(t *testing.T) {
	m := NewManager()
	var calls int32
	var errs int32
	results := []error{errors.New("e1"), nil, errors.New("e2"), errors.New("e3")}

	m.Start(context.Background(), askingCodec{}, 5*time.Millisecond, func(ctx context.Context, payload []byte) error {
		i := atomic.AddInt32(&calls, 1) - 1
		if int(i) < len(results) {
			return results[i]
		}
		return nil
	}, func(err error) {
		atomic.AddInt32(&errs, 1)
	}, 3)

	time.Sleep(200 * time.Millisecond)
	m.Stop()
	// With one success resetting the counter, 2 consecutive errors after
	// it must not reach the max-3 stop threshold on their own.
	if atomic.LoadInt32(&errs) < 1 {
		t.Fatal("expected at least one error emission")
	}
	if atomic.LoadInt32(&calls) <= int32(len(results)) {
		t.Fatalf("poll loop stopped after %d calls; the success should have reset the error counter", atomic.LoadInt32(&calls))
	}
}

func TestPollStopsAfterMaxConsecutiveErrors(t *testing.T) {
	m := NewManager()
	var errs int32
	done := make(chan struct{})

	m.Start(context.Background(), askingCodec{}, 5*time.Millisecond, func(ctx context.Context, payload []byte) error {
		return errors.New("always fails")
	}, func(err error) {
		n := atomic.AddInt32(&errs, 1)
		if n == DefaultMaxConsecutiveErrors {
			close(done)
		}
	}, DefaultMaxConsecutiveErrors)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected poll loop to stop after max consecutive errors")
	}

	time.Sleep(30 * time.Millisecond)
	finalCount := atomic.LoadInt32(&errs)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&errs) != finalCount {
		t.Fatal("poll loop should have stopped, but kept emitting errors")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Stop()
	m.Stop()
}

func TestStartSupersedesPreviousRun(t *testing.T) {
	m := NewManager()
	var firstCalls int32
	m.Start(context.Background(), askingCodec{}, 5*time.Millisecond, func(ctx context.Context, payload []byte) error {
		atomic.AddInt32(&firstCalls, 1)
		return nil
	}, nil, 0)
	time.Sleep(20 * time.Millisecond)

	var secondCalls int32
	m.Start(context.Background(), askingCodec{}, 5*time.Millisecond, func(ctx context.Context, payload []byte) error {
		atomic.AddInt32(&secondCalls, 1)
		return nil
	}, nil, 0)
	time.Sleep(40 * time.Millisecond)
	m.Stop()

	if atomic.LoadInt32(&secondCalls) == 0 {
		t.Fatal("second Start should have produced ticks")
	}
}
