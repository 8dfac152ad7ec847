package blestack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-ble/ble"

	"github.com/srg/padctl/internal/gatt"
	"github.com/srg/padctl/internal/storage"
	"github.com/srg/padctl/internal/uuidutil"
)

// DeviceFactory creates the platform BLE host device. Overridable in tests.
var DeviceFactory = defaultDeviceFactory

const defaultConnectTimeout = 20 * time.Second

// GoBLE adapts github.com/go-ble/ble to the Stack contract, remembering
// the last connected device id in a storage.Slot so Reconnect can skip
// the picker.
type GoBLE struct {
	Logger    *slog.Logger
	DeviceIDs storage.Slot
}

// New returns a go-ble-backed Stack. A nil logger falls back to a
// process-global default; a nil DeviceIDs falls back to a no-op slot.
func New(logger *slog.Logger, deviceIDs storage.Slot) *GoBLE {
	if logger == nil {
		logger = slog.Default()
	}
	if deviceIDs == nil {
		deviceIDs = storage.NoOp()
	}
	return &GoBLE{Logger: logger, DeviceIDs: deviceIDs}
}

func (g *GoBLE) Connect(ctx context.Context, opts ConnectOptions) (Session, error) {
	if opts.Address != "" {
		sess, err := g.dial(ctx, opts.Address, opts)
		if err != nil {
			return nil, err
		}
		if opts.RememberDevice {
			g.DeviceIDs.Set(opts.Address)
		}
		return sess, nil
	}

	if id, ok := g.DeviceIDs.Get(); ok {
		if sess, err := g.dial(ctx, id, opts); err == nil {
			return sess, nil
		}
		g.Logger.Warn("cached device id failed to dial, falling back to scan", slog.String("device_id", id))
	}

	addr, err := g.pick(ctx, opts)
	if err != nil {
		return nil, err
	}
	sess, err := g.dial(ctx, addr, opts)
	if err != nil {
		return nil, err
	}
	if opts.RememberDevice {
		g.DeviceIDs.Set(addr)
	}
	return sess, nil
}

func (g *GoBLE) Reconnect(ctx context.Context, opts ConnectOptions) (Session, error) {
	id, ok := g.DeviceIDs.Get()
	if !ok {
		return nil, nil
	}
	return g.dial(ctx, id, opts)
}

// pick scans for an advertising device matching opts.Filters and returns
// its address, emulating the user-visible device-picker the browser
// contract describes.
func (g *GoBLE) pick(ctx context.Context, opts ConnectOptions) (string, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return "", fmt.Errorf("blestack: create host device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	scanCtx, cancel := context.WithTimeout(ctx, connectTimeout(opts))
	defer cancel()

	var found string
	err = ble.Scan(scanCtx, false, func(adv ble.Advertisement) {
		if found != "" {
			return
		}
		if !matchesFilters(adv.LocalName(), opts.Filters) {
			return
		}
		found = adv.Addr().String()
	}, nil)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("blestack: scan: %w", err)
	}
	if found == "" {
		return "", errors.New("blestack: no advertising device matched the configured filters")
	}
	return found, nil
}

// Candidate is one advertising device observed during Scan.
type Candidate struct {
	Address string
	Name    string
	RSSI    int
}

// Scan lists advertising devices matching opts.Filters for the duration
// of opts.ConnectTimeout (defaultConnectTimeout if unset), deduplicated
// by address. Used by the CLI's discovery command; Connect/Reconnect use
// pick instead since they only need the first match.
func (g *GoBLE) Scan(ctx context.Context, opts ConnectOptions) ([]Candidate, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("blestack: create host device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	scanCtx, cancel := context.WithTimeout(ctx, connectTimeout(opts))
	defer cancel()

	seen := make(map[string]bool)
	var candidates []Candidate
	err = ble.Scan(scanCtx, true, func(adv ble.Advertisement) {
		if !matchesFilters(adv.LocalName(), opts.Filters) {
			return
		}
		addr := adv.Addr().String()
		if seen[addr] {
			return
		}
		seen[addr] = true
		candidates = append(candidates, Candidate{Address: addr, Name: adv.LocalName(), RSSI: adv.RSSI()})
	}, nil)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("blestack: scan: %w", err)
	}
	return candidates, nil
}

func matchesFilters(name string, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		for _, prefix := range f.NamePrefixes {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
	}
	return false
}

func connectTimeout(opts ConnectOptions) time.Duration {
	if opts.ConnectTimeout > 0 {
		return opts.ConnectTimeout
	}
	return defaultConnectTimeout
}

func (g *GoBLE) dial(ctx context.Context, addr string, opts ConnectOptions) (Session, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("blestack: create host device: %w", err)
	}
	ble.SetDefaultDevice(dev)

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout(opts))
	defer cancel()

	client, err := ble.Dial(dialCtx, ble.NewAddr(addr))
	if err != nil {
		return nil, fmt.Errorf("blestack: dial %s: %w", addr, err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	sess := &goBLESession{client: client, logger: g.Logger, ctx: sessCtx, cancel: sessCancel}

	if disc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		go func() {
			select {
			case <-disc.Disconnected():
				sess.fireDisconnect()
			case <-sessCtx.Done():
			}
		}()
	}

	return sess, nil
}

// goBLESession implements Session over a single ble.Client.
type goBLESession struct {
	client ble.Client
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	onDisconnect []func()
}

func (s *goBLESession) PrimaryServices(ctx context.Context) ([]gatt.Service, error) {
	profile, err := s.client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("blestack: discover profile: %w", err)
	}

	services := make([]gatt.Service, 0, len(profile.Services))
	for _, svc := range profile.Services {
		chars := make([]gatt.Characteristic, 0, len(svc.Characteristics))
		for _, ch := range svc.Characteristics {
			chars = append(chars, gatt.Characteristic{
				UUID:       uuidutil.Normalize(ch.UUID.String()),
				Properties: ch.Property,
				Native:     ch,
			})
		}
		services = append(services, gatt.Service{
			UUID:            uuidutil.Normalize(svc.UUID.String()),
			Characteristics: chars,
		})
	}
	return services, nil
}

func (s *goBLESession) WriteCharacteristic(ctx context.Context, ch gatt.Characteristic, payload []byte) error {
	if ch.Native == nil {
		return fmt.Errorf("blestack: characteristic %s has no native handle", ch.UUID)
	}
	done := make(chan error, 1)
	go func() {
		done <- s.client.WriteCharacteristic(ch.Native, payload, false)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("blestack: write %s: %w", ch.UUID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("blestack: write %s: %w", ch.UUID, ctx.Err())
	}
}

func (s *goBLESession) Subscribe(ctx context.Context, ch gatt.Characteristic, handler func([]byte)) (func() error, error) {
	if ch.Native == nil {
		return nil, fmt.Errorf("blestack: characteristic %s has no native handle", ch.UUID)
	}
	indicate := ch.Properties&ble.CharIndicate != 0 && ch.Properties&ble.CharNotify == 0

	done := make(chan error, 1)
	go func() {
		done <- s.client.Subscribe(ch.Native, indicate, func(data []byte) {
			out, ok := uuidutil.CopyValue(data, 0, len(data))
			if !ok {
				return
			}
			handler(out)
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("blestack: subscribe %s: %w", ch.UUID, err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("blestack: subscribe %s: %w", ch.UUID, ctx.Err())
	}

	teardown := func() error {
		if err := s.client.Unsubscribe(ch.Native, indicate); err != nil {
			return fmt.Errorf("blestack: unsubscribe %s: %w", ch.UUID, err)
		}
		return nil
	}
	return teardown, nil
}

func (s *goBLESession) Disconnect() error {
	s.cancel()
	if err := s.client.CancelConnection(); err != nil {
		return fmt.Errorf("blestack: disconnect: %w", err)
	}
	return nil
}

func (s *goBLESession) OnDisconnect(fn func()) func() {
	s.onDisconnect = append(s.onDisconnect, fn)
	idx := len(s.onDisconnect) - 1
	return func() {
		if idx < len(s.onDisconnect) {
			s.onDisconnect[idx] = nil
		}
	}
}

func (s *goBLESession) fireDisconnect() {
	for _, fn := range s.onDisconnect {
		if fn != nil {
			fn()
		}
	}
}
