package events

import (
	"errors"
	"testing"

	"github.com/srg/padctl/internal/protocol"
	"github.com/srg/padctl/internal/statemachine"
)

func TestSubscribeStateAndUnsubscribe(t *testing.T) {
	b := NewBus(nil)
	var got []protocol.State
	unsub := b.SubscribeState(func(s protocol.State) { got = append(got, s) })

	b.EmitState(protocol.State{SpeedKMH: 1})
	unsub()
	b.EmitState(protocol.State{SpeedKMH: 2})

	if len(got) != 1 || got[0].SpeedKMH != 1 {
		t.Fatalf("unexpected listener history: %+v", got)
	}
}

func TestOnceStateFiresOnlyOnce(t *testing.T) {
	b := NewBus(nil)
	count := 0
	b.OnceState(func(protocol.State) { count++ })

	b.EmitState(protocol.State{})
	b.EmitState(protocol.State{})

	if count != 1 {
		t.Fatalf("one-shot listener fired %d times, want 1", count)
	}
}

func TestErrorWithZeroListenersRoutesToLogger(t *testing.T) {
	b := NewBus(nil)
	// No subscribers: must not panic, and must not block.
	b.EmitError(errors.New("boom"))
}

func TestListenerPanicIsolation(t *testing.T) {
	b := NewBus(nil)
	secondRan := false
	b.SubscribeState(func(protocol.State) { panic("boom") })
	b.SubscribeState(func(protocol.State) { secondRan = true })

	b.EmitState(protocol.State{})

	if !secondRan {
		t.Fatal("a panicking listener must not block other listeners")
	}
}

func TestListenerCounts(t *testing.T) {
	b := NewBus(nil)
	b.SubscribeState(func(protocol.State) {})
	b.SubscribeError(func(error) {})
	b.SubscribeConnectionStateChange(func(ConnectionStateChange) {})

	state, errs, conn := b.ListenerCounts()
	if state != 1 || errs != 1 || conn != 1 {
		t.Fatalf("ListenerCounts = %d,%d,%d, want 1,1,1", state, errs, conn)
	}

	b.RemoveAll()
	state, errs, conn = b.ListenerCounts()
	if state != 0 || errs != 0 || conn != 0 {
		t.Fatal("RemoveAll should clear every channel")
	}
}

func TestConnectionStateChangeEmit(t *testing.T) {
	b := NewBus(nil)
	var got ConnectionStateChange
	b.SubscribeConnectionStateChange(func(c ConnectionStateChange) { got = c })

	b.EmitConnectionStateChange(ConnectionStateChange{From: statemachine.Disconnected, To: statemachine.Connecting})

	if got.From != statemachine.Disconnected || got.To != statemachine.Connecting {
		t.Fatalf("unexpected payload: %+v", got)
	}
}
