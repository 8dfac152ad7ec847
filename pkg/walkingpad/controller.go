// Package walkingpad implements the connection orchestrator that ties
// the wire codecs, GATT discovery, transport primitives, poll manager,
// state machine and event fan-out into a single public control surface.
package walkingpad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/srg/padctl/internal/blestack"
	"github.com/srg/padctl/internal/events"
	"github.com/srg/padctl/internal/gatt"
	"github.com/srg/padctl/internal/metrics"
	"github.com/srg/padctl/internal/poll"
	"github.com/srg/padctl/internal/protocol"
	"github.com/srg/padctl/internal/statemachine"
	"github.com/srg/padctl/internal/transport"
)

// DefaultFilters is the default device-picker name-prefix filter.
var DefaultFilters = []blestack.Filter{{NamePrefixes: []string{"Walking", "KS"}}}

// DefaultOptionalServices lists the FTMS and both legacy service UUIDs.
var DefaultOptionalServices = []string{"1826", "fe00", "fff0"}

// Error taxonomy, per the wire-protocol error handling design.
var (
	ErrNotConnected        = errors.New("walkingpad: not connected")
	ErrConnectionAborted   = errors.New("walkingpad: connect aborted")
	ErrInvalidPollInterval = errors.New("walkingpad: poll-interval-ms must be finite and > 0")
	ErrNoCachedDevice      = errors.New("walkingpad: reconnect: no cached device to reconnect to")
)

// ConnectOptions parameterises Connect/Reconnect.
type ConnectOptions struct {
	// Address, when non-empty, dials this device identity directly,
	// skipping the scan/picker step.
	Address          string
	PollInterval     time.Duration
	Filters          []blestack.Filter
	OptionalServices []string
	RememberDevice   bool
	NamePrefixes     []string

	ConnectTimeout      time.Duration
	WriteTimeout        time.Duration
	NotificationTimeout time.Duration
}

// SessionInfo is returned by GetSessionInfo while connected.
type SessionInfo struct {
	CodecName    protocol.Name
	ServiceUUIDs []string
}

// session bundles everything connect/reconnect sets up and cleanup tears
// down — the orchestrator's equivalent of the spec's session handle plus
// its owned teardown thunks.
type session struct {
	stackSession blestack.Session
	roles        gatt.Roles
	codec        protocol.Codec
	teardowns    []func() error
	onDisconnect func()
}

// Controller is the connection orchestrator (C10).
type Controller struct {
	stack    blestack.Stack
	registry *protocol.Registry
	logger   *slog.Logger
	metrics  *metrics.Collector

	connMu sync.Mutex // serialises connect/reconnect/disconnect
	cmdMu  sync.Mutex // serialises start/stop/set-speed

	machine *statemachine.Machine
	events  *events.Bus
	poll    *poll.Manager

	mu           sync.Mutex // guards the fields below
	sess         *session
	writeTimeout time.Duration
}

// Option configures optional Controller parameters.
type Option func(*Controller)

// WithMetrics registers a metrics.Collector that the controller reports
// session, command, poll-error and notification-drop counts to. A nil
// collector leaves metrics reporting disabled (the default).
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Controller) {
		c.metrics = collector
	}
}

// New returns a controller over the given BLE stack. A nil logger falls
// back to the standard logger.
func New(stack blestack.Stack, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		stack:    stack,
		registry: protocol.NewRegistry(),
		logger:   logger,
		machine:  statemachine.New(logger),
		events:   events.NewBus(logger),
		poll:     poll.NewManager(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnStateChange, OnError and OnConnectionStateChange expose the event
// fan-out's three channels.
func (c *Controller) OnStateChange(fn func(protocol.State)) func() { return c.events.SubscribeState(fn) }
func (c *Controller) OnError(fn func(error)) func()                { return c.events.SubscribeError(fn) }
func (c *Controller) OnConnectionStateChange(fn func(events.ConnectionStateChange)) func() {
	return c.events.SubscribeConnectionStateChange(fn)
}

// GetConnectionState returns the current lifecycle state.
func (c *Controller) GetConnectionState() statemachine.State { return c.machine.State() }

// GetSessionInfo returns the codec name and a copy of the discovered
// service UUIDs, only while connected.
func (c *Controller) GetSessionInfo() (SessionInfo, bool) {
	if c.machine.State() != statemachine.Connected {
		return SessionInfo{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return SessionInfo{}, false
	}
	uuids := append([]string(nil), c.sess.roles.ServiceUUIDs...)
	return SessionInfo{CodecName: c.sess.codec.Name(), ServiceUUIDs: uuids}, true
}

func withDefaults(opts ConnectOptions) ConnectOptions {
	if opts.Filters == nil {
		if len(opts.NamePrefixes) > 0 {
			opts.Filters = []blestack.Filter{{NamePrefixes: opts.NamePrefixes}}
		} else {
			opts.Filters = DefaultFilters
		}
	}
	if opts.OptionalServices == nil {
		opts.OptionalServices = DefaultOptionalServices
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 20 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = transport.DefaultWriteTimeout
	}
	if opts.NotificationTimeout <= 0 {
		opts.NotificationTimeout = transport.DefaultNotificationTimeout
	}
	return opts
}

// Connect establishes a session: validates options, transitions through
// connecting, discovers GATT roles, negotiates the codec, subscribes to
// status notifications, and (for the legacy protocol) starts polling.
func (c *Controller) Connect(ctx context.Context, opts ConnectOptions) error {
	if opts.PollInterval < 0 {
		return ErrInvalidPollInterval
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = poll.DefaultInterval
	}
	opts = withDefaults(opts)

	if ctx.Err() != nil {
		return ErrConnectionAborted
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if ctx.Err() != nil {
		return ErrConnectionAborted
	}

	if state := c.machine.State(); state == statemachine.Connected || state == statemachine.Connecting {
		c.cleanupToDisconnectedLocked()
	}

	from := c.machine.State()
	c.machine.Transition(statemachine.Connecting)
	c.events.EmitConnectionStateChange(events.ConnectionStateChange{From: from, To: statemachine.Connecting})

	type connectResult struct {
		sess blestack.Session
		err  error
	}
	connectDone := make(chan connectResult, 1)
	go func() {
		sess, err := c.stack.Connect(ctx, blestack.ConnectOptions{
			Address:          opts.Address,
			Filters:          opts.Filters,
			OptionalServices: opts.OptionalServices,
			RememberDevice:   opts.RememberDevice,
			ConnectTimeout:   opts.ConnectTimeout,
		})
		connectDone <- connectResult{sess, err}
	}()

	var stackSess blestack.Session
	select {
	case <-ctx.Done():
		c.failToDisconnected()
		return ErrConnectionAborted
	case res := <-connectDone:
		if res.err != nil {
			c.failToError(res.err)
			return res.err
		}
		stackSess = res.sess
	}

	if ctx.Err() != nil {
		c.failToDisconnected()
		return ErrConnectionAborted
	}

	if err := c.setupSession(ctx, stackSess, opts); err != nil {
		c.failToError(err)
		return err
	}

	c.machine.Transition(statemachine.Connected)
	c.events.EmitConnectionStateChange(events.ConnectionStateChange{From: statemachine.Connecting, To: statemachine.Connected})
	return nil
}

// Reconnect re-establishes a session against the stack's cached device
// identity. If already connected/connecting it returns success
// immediately. A nil session from the stack is a failure.
func (c *Controller) Reconnect(ctx context.Context, opts ConnectOptions) error {
	opts = withDefaults(opts)

	if ctx.Err() != nil {
		return ErrConnectionAborted
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if ctx.Err() != nil {
		return ErrConnectionAborted
	}

	if state := c.machine.State(); state == statemachine.Connected || state == statemachine.Connecting {
		return nil
	}

	from := c.machine.State()
	c.machine.Transition(statemachine.Connecting)
	c.events.EmitConnectionStateChange(events.ConnectionStateChange{From: from, To: statemachine.Connecting})

	stackSess, err := c.stack.Reconnect(ctx, blestack.ConnectOptions{
		Filters:          opts.Filters,
		OptionalServices: opts.OptionalServices,
		ConnectTimeout:   opts.ConnectTimeout,
	})
	if err != nil {
		c.failToError(err)
		return err
	}
	if stackSess == nil {
		c.failToDisconnected()
		return ErrNoCachedDevice
	}

	if err := c.setupSession(ctx, stackSess, opts); err != nil {
		c.failToError(err)
		return err
	}

	c.machine.Transition(statemachine.Connected)
	c.events.EmitConnectionStateChange(events.ConnectionStateChange{From: statemachine.Connecting, To: statemachine.Connected})
	return nil
}

// setupSession performs GATT discovery, codec detection, notification
// subscription, and the request-control handshake. Called with connMu
// held and the machine already in Connecting.
func (c *Controller) setupSession(ctx context.Context, stackSess blestack.Session, opts ConnectOptions) error {
	services, err := stackSess.PrimaryServices(ctx)
	if err != nil {
		return fmt.Errorf("walkingpad: discover services: %w", err)
	}

	roles, err := gatt.Discover(services)
	if err != nil {
		return err
	}

	codec := c.registry.Detect(roles.ServiceUUIDs)
	sess := &session{stackSession: stackSess, roles: roles, codec: codec}

	notifyTeardown, err := transport.Subscribe(ctx, stackSess, roles.Notify, func(buf []byte) {
		c.events.EmitState(codec.ParseStatus(buf))
	}, opts.NotificationTimeout, c.logger, c.onNotificationDropped(codec.Name()))
	if err != nil {
		return err
	}
	sess.teardowns = append(sess.teardowns, notifyTeardown)

	if roles.ControlPoint != nil {
		if payload := codec.RequestControl(); len(payload) > 0 {
			if roles.ControlPointIndicates {
				cpTeardown, err := transport.Subscribe(ctx, stackSess, *roles.ControlPoint, func([]byte) {}, opts.NotificationTimeout, c.logger, c.onNotificationDropped(codec.Name()))
				if err != nil {
					c.runTeardowns(sess)
					return err
				}
				sess.teardowns = append(sess.teardowns, cpTeardown)
			}
			if err := transport.RouteAwareWrite(ctx, stackSess, roles, payload, opts.WriteTimeout); err != nil {
				c.runTeardowns(sess)
				return err
			}
		}
	}

	sess.onDisconnect = stackSess.OnDisconnect(func() { c.onPeerDisconnect() })

	c.mu.Lock()
	c.sess = sess
	c.writeTimeout = opts.WriteTimeout
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RegisterSession(string(codec.Name()))
	}

	if codec.Name() == protocol.Standard {
		c.poll.Start(context.Background(), codec, opts.PollInterval, func(wctx context.Context, payload []byte) error {
			return transport.Write(wctx, stackSess, roles.Write, payload, opts.WriteTimeout)
		}, func(err error) {
			if c.metrics != nil {
				c.metrics.IncPollErrors(string(codec.Name()))
			}
			c.events.EmitError(err)
		}, poll.DefaultMaxConsecutiveErrors)
	}

	return nil
}

// onNotificationDropped returns a transport.OnDrop that feeds the
// notifications-dropped counter for codec, or nil if metrics are disabled.
func (c *Controller) onNotificationDropped(codec protocol.Name) transport.OnDrop {
	if c.metrics == nil {
		return nil
	}
	return func() { c.metrics.IncNotificationsDropped(string(codec)) }
}

func (c *Controller) onPeerDisconnect() {
	if c.machine.State() != statemachine.Connected {
		return
	}
	go func() {
		c.connMu.Lock()
		defer c.connMu.Unlock()
		if c.machine.State() == statemachine.Connected {
			c.cleanupToDisconnectedLocked()
		}
	}()
}

// Disconnect tears down the active session, if any. Idempotent: calling
// it while already disconnected is a no-op. Never returns an error to
// the caller — internal failures are emitted instead.
func (c *Controller) Disconnect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.machine.State() == statemachine.Disconnected {
		return nil
	}
	c.cleanupToDisconnectedLocked()
	return nil
}

// cleanupResourcesLocked stops polling, tears down subscriptions and
// disconnects the session, without touching the state machine. Caller
// must hold connMu.
func (c *Controller) cleanupResourcesLocked() {
	c.poll.Stop()

	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess == nil {
		return
	}
	if c.metrics != nil {
		c.metrics.UnregisterSession(string(sess.codec.Name()))
	}
	c.runTeardowns(sess)
	if sess.onDisconnect != nil {
		sess.onDisconnect()
	}
	if err := sess.stackSession.Disconnect(); err != nil {
		c.events.EmitError(fmt.Errorf("walkingpad: disconnect: %w", err))
	}
}

// cleanupToDisconnectedLocked tears down resources and transitions to
// disconnected (a no-op transition if already there). Caller must hold
// connMu.
func (c *Controller) cleanupToDisconnectedLocked() {
	from := c.machine.State()
	c.cleanupResourcesLocked()
	if from != statemachine.Disconnected {
		c.machine.Transition(statemachine.Disconnected)
		c.events.EmitConnectionStateChange(events.ConnectionStateChange{From: from, To: statemachine.Disconnected})
	}
}

// failToError tears down resources and transitions Connecting -> Error,
// then emits the triggering error. Used for non-abort connect/reconnect
// failures. Caller must hold connMu.
func (c *Controller) failToError(cause error) {
	from := c.machine.State()
	c.cleanupResourcesLocked()
	c.machine.Transition(statemachine.Error)
	c.events.EmitConnectionStateChange(events.ConnectionStateChange{From: from, To: statemachine.Error})
	c.events.EmitError(cause)
}

// failToDisconnected tears down resources and transitions Connecting ->
// Disconnected. Used for abort failures. Caller must hold connMu.
func (c *Controller) failToDisconnected() {
	from := c.machine.State()
	c.cleanupResourcesLocked()
	c.machine.Transition(statemachine.Disconnected)
	c.events.EmitConnectionStateChange(events.ConnectionStateChange{From: from, To: statemachine.Disconnected})
}

func (c *Controller) runTeardowns(sess *session) {
	for _, teardown := range sess.teardowns {
		if err := teardown(); err != nil {
			c.logger.Warn("walkingpad: teardown failed", slog.String("error", err.Error()))
		}
	}
}

// Start, Stop and SetSpeed each acquire the command mutex, snapshot
// connected state, build the payload via the codec, and write it.

func (c *Controller) Start(ctx context.Context) error {
	return c.command(ctx, func(codec protocol.Codec) ([]byte, error) { return codec.Start(), nil })
}

func (c *Controller) Stop(ctx context.Context) error {
	return c.command(ctx, func(codec protocol.Codec) ([]byte, error) { return codec.Stop(), nil })
}

func (c *Controller) SetSpeed(ctx context.Context, kmh float64) error {
	return c.command(ctx, func(codec protocol.Codec) ([]byte, error) { return codec.SetSpeed(kmh) })
}

// RampSpeed steps the belt speed from its current command toward target
// in increments of step (signed: negative to ramp down), waiting
// interval between each SetSpeed call, until target is reached or ctx is
// cancelled. It is pure composition over SetSpeed: same command mutex,
// same ErrNotConnected semantics, no new wire behavior.
func (c *Controller) RampSpeed(ctx context.Context, current, target, step float64, interval time.Duration) error {
	if step == 0 {
		return fmt.Errorf("walkingpad: ramp step must be non-zero")
	}
	if (target > current && step < 0) || (target < current && step > 0) {
		step = -step
	}

	next := current
	for {
		if (step > 0 && next >= target) || (step < 0 && next <= target) {
			return c.SetSpeed(ctx, target)
		}
		next += step
		if (step > 0 && next > target) || (step < 0 && next < target) {
			next = target
		}
		if err := c.SetSpeed(ctx, next); err != nil {
			return err
		}
		if next == target {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Controller) command(ctx context.Context, build func(protocol.Codec) ([]byte, error)) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.machine.State() != statemachine.Connected {
		return ErrNotConnected
	}
	c.mu.Lock()
	sess := c.sess
	writeTimeout := c.writeTimeout
	c.mu.Unlock()
	if sess == nil {
		return ErrNotConnected
	}

	payload, err := build(sess.codec)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}

	if sess.codec.Name() == protocol.FTMS {
		err = transport.RouteAwareWrite(ctx, sess.stackSession, sess.roles, payload, writeTimeout)
	} else {
		err = transport.Write(ctx, sess.stackSession, sess.roles.Write, payload, writeTimeout)
	}
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.IncCommandsSent(string(sess.codec.Name()))
	}

	if c.machine.State() != statemachine.Connected {
		return ErrNotConnected
	}
	return nil
}
