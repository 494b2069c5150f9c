package helios

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultSettleDelay is the time the device needs to latch a requested key
// before the response can be read back.
const DefaultSettleDelay = 200 * time.Millisecond

// Transport is the register level collaborator, normally a Modbus master
// writing and reading ASCII text at a register offset.
type Transport interface {
	WriteRegisterString(ctx context.Context, slaveID uint8, offset uint16, text string) error
	ReadRegisterString(ctx context.Context, slaveID uint8, offset uint16, byteCount int) (string, error)
}

// Observer receives exchange telemetry.
type Observer interface {
	ObserveExchange(op string, status Status, elapsed time.Duration)
	ObserveMailboxWait(elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveExchange(string, Status, time.Duration) {}
func (noopObserver) ObserveMailboxWait(time.Duration)              {}

// ExchangeState is the phase of the exchange holding the mailbox, or the
// outcome of the last one once the mailbox is free again.
type ExchangeState int32

const (
	StateIdle ExchangeState = iota
	StateWriting
	StateSettling
	StateReading
	StateDone
	StateFailed
)

func (s ExchangeState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWriting:
		return "WRITING"
	case StateSettling:
		return "SETTLING"
	case StateReading:
		return "READING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MailboxConfig addresses the single mailbox of one device.
type MailboxConfig struct {
	SlaveID     uint8
	Offset      uint16
	SettleDelay time.Duration
}

// Mailbox is the shared single-slot register window of one device. Only one
// exchange may be in flight at any time; the transport is reachable only
// through a lease, and a lease only exists while the lock is held.
type Mailbox struct {
	lock      chan struct{}
	transport Transport
	cfg       MailboxConfig
	logger    *zap.Logger
	observer  Observer

	state  atomic.Int32
	closed atomic.Bool
}

func NewMailbox(transport Transport, cfg MailboxConfig, logger *zap.Logger) *Mailbox {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailbox{
		lock:      make(chan struct{}, 1),
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		observer:  noopObserver{},
	}
}

// SetObserver installs a telemetry observer. Call before the first exchange.
func (m *Mailbox) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	m.observer = o
}

// State reports the phase of the exchange holding the mailbox. Between
// exchanges it is DONE or FAILED for the last one, IDLE before the first.
func (m *Mailbox) State() ExchangeState {
	return ExchangeState(m.state.Load())
}

// Close rejects all further exchanges. An exchange already in flight completes.
func (m *Mailbox) Close() error {
	m.closed.Store(true)
	return nil
}

// Exchange writes key plus two NULs, waits the settle delay and reads
// capacity bytes back from the same offset.
func (m *Mailbox) Exchange(ctx context.Context, key string, capacity int) ([]byte, Status) {
	raw, err := m.exchange(ctx, key, capacity)
	if err != nil {
		return nil, classify(m.logger, err, "", key)
	}
	return raw, Good
}

// Write sends a complete frame and waits the settle delay. Nothing is read back.
func (m *Mailbox) Write(ctx context.Context, frame []byte) Status {
	if err := m.write(ctx, frame); err != nil {
		return classify(m.logger, err, "", frameKey(frame))
	}
	return Good
}

func (m *Mailbox) exchange(ctx context.Context, key string, capacity int) ([]byte, error) {
	if key == "" || capacity <= 0 {
		return nil, fmt.Errorf("%w: key %q capacity %d", ErrInvalidArgument, key, capacity)
	}

	started := time.Now()
	l, err := m.acquire(ctx)
	if err != nil {
		m.observer.ObserveExchange("read", Classify(err), time.Since(started))
		return nil, err
	}
	var raw []byte
	defer func() { l.release(err) }()

	raw, err = l.roundTrip(ctx, EncodeRequest(key), capacity)
	m.observer.ObserveExchange("read", Classify(err), time.Since(started))
	return raw, err
}

func (m *Mailbox) write(ctx context.Context, frame []byte) error {
	if len(frame) == 0 {
		return nil
	}

	started := time.Now()
	l, err := m.acquire(ctx)
	if err != nil {
		m.observer.ObserveExchange("write", Classify(err), time.Since(started))
		return err
	}
	defer func() { l.release(err) }()

	err = l.writeAndSettle(ctx, frame)
	m.observer.ObserveExchange("write", Classify(err), time.Since(started))
	return err
}

// acquire waits for the mailbox lock. Waiting honours ctx; once the lease is
// granted the exchange runs to completion regardless of ctx.
func (m *Mailbox) acquire(ctx context.Context) (*lease, error) {
	if m.closed.Load() {
		return nil, ErrMailboxClosed
	}

	waitStart := time.Now()
	select {
	case m.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for mailbox: %w", ctx.Err())
	}
	m.observer.ObserveMailboxWait(time.Since(waitStart))

	if m.closed.Load() {
		<-m.lock
		return nil, ErrMailboxClosed
	}
	return &lease{m: m}, nil
}

type lease struct {
	m        *Mailbox
	released bool
}

// release records the outcome and frees the mailbox for the next caller.
func (l *lease) release(err error) {
	if l.released {
		return
	}
	l.released = true
	if err != nil {
		l.m.state.Store(int32(StateFailed))
	} else {
		l.m.state.Store(int32(StateDone))
	}
	<-l.m.lock
}

// roundTrip runs Writing -> Settling -> Reading. ctx cancellation is detached
// from the transport calls so a started exchange is never cut in half.
func (l *lease) roundTrip(ctx context.Context, request []byte, capacity int) ([]byte, error) {
	if err := l.writeAndSettle(ctx, request); err != nil {
		return nil, err
	}

	l.m.state.Store(int32(StateReading))
	text, err := l.m.transport.ReadRegisterString(context.WithoutCancel(ctx), l.m.cfg.SlaveID, l.m.cfg.Offset, capacity)
	if err != nil {
		return nil, fmt.Errorf("read mailbox: %w", err)
	}
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: empty read for %s", ErrShortResponse, frameKey(request))
	}
	return []byte(text), nil
}

func (l *lease) writeAndSettle(ctx context.Context, frame []byte) error {
	l.m.state.Store(int32(StateWriting))
	if err := l.m.transport.WriteRegisterString(context.WithoutCancel(ctx), l.m.cfg.SlaveID, l.m.cfg.Offset, string(frame)); err != nil {
		return fmt.Errorf("write mailbox: %w", err)
	}

	l.m.state.Store(int32(StateSettling))
	timer := time.NewTimer(l.m.cfg.SettleDelay)
	<-timer.C
	return nil
}

// frameKey extracts the key part of a frame for diagnostics.
func frameKey(frame []byte) string {
	for i, b := range frame {
		if b == '=' || b == 0 {
			return string(frame[:i])
		}
	}
	return string(frame)
}
