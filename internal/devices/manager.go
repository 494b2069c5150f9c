package devices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/helios"
	"github.com/KevinKickass/HomeGateway/internal/modbus"
	"github.com/KevinKickass/HomeGateway/internal/storage"
	"github.com/KevinKickass/HomeGateway/internal/telemetry"
)

var ErrRefreshInProgress = errors.New("full read already in progress")

// ChangeListener is called with the parameters that changed in one read,
// write or refresh.
type ChangeListener func(changes []Change)

// RefreshListener is called after every full read.
type RefreshListener func(h Health)

type ManagerOptions struct {
	// Transport replaces the Modbus TCP client, mainly for tests.
	Transport helios.Transport
	Registry  *helios.Registry
	Store     storage.Store
	Collector telemetry.Collector
}

// Health is the link state derived from the last full read.
type Health struct {
	Address     string         `json:"address"`
	Polling     bool           `json:"polling"`
	Refreshing  bool           `json:"refreshing"`
	LastRefresh time.Time      `json:"last_refresh"`
	Good        int            `json:"good"`
	Failed      int            `json:"failed"`
	Summary     map[string]int `json:"summary"`
}

// Reachable reports whether the last full read got at least one Good answer.
func (h Health) Reachable() bool {
	return h.Good > 0
}

// Manager owns the single ventilation unit: its transport, mailbox, cache
// and poller.
type Manager struct {
	cfg       config.HeliosConfig
	client    *modbus.Client
	mailbox   *helios.Mailbox
	device    *helios.Device
	cache     *Cache
	poller    *Poller
	store     storage.Store
	collector telemetry.Collector
	logger    *zap.Logger

	listenersMu      sync.RWMutex
	listeners        []ChangeListener
	refreshListeners []RefreshListener

	refreshing  atomic.Bool
	healthMu    sync.RWMutex
	lastRefresh time.Time
	lastSummary helios.Summary
}

func NewManager(cfg config.HeliosConfig, opts ManagerOptions, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Collector == nil {
		opts.Collector = telemetry.Noop()
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore(0)
	}

	m := &Manager{
		cfg:       cfg,
		cache:     NewCache(),
		store:     opts.Store,
		collector: opts.Collector,
		logger:    logger,
	}

	transport := opts.Transport
	if transport == nil {
		m.client = modbus.NewClient(modbus.ClientConfig{
			Address:     cfg.Address,
			Timeout:     cfg.Timeout,
			IdleTimeout: cfg.IdleTimeout,
		}, logger)
		transport = m.client
	}

	m.mailbox = helios.NewMailbox(transport, helios.MailboxConfig{
		SlaveID:     uint8(cfg.UnitID),
		Offset:      uint16(cfg.MailboxOffset),
		SettleDelay: cfg.SettleDelay,
	}, logger)
	m.mailbox.SetObserver(opts.Collector)
	m.device = helios.NewDevice(opts.Registry, m.mailbox, logger)

	if cfg.PollInterval > 0 {
		m.poller = NewPoller(func(ctx context.Context) error {
			_, err := m.Refresh(ctx)
			return err
		}, cfg.PollInterval, logger)
	}

	return m
}

// Start connects the transport and starts the poller. An unreachable device
// is not fatal; the client reconnects on the next exchange.
func (m *Manager) Start(ctx context.Context) error {
	if m.client != nil {
		if err := m.client.Connect(); err != nil {
			m.logger.Warn("Ventilation unit not reachable yet",
				zap.String("address", m.cfg.Address),
				zap.Error(err))
		}
	}

	if m.poller != nil {
		if err := m.poller.Start(); err != nil {
			return fmt.Errorf("failed to start poller: %w", err)
		}
	}

	m.logger.Info("Device manager started",
		zap.String("address", m.cfg.Address),
		zap.Int("unit_id", m.cfg.UnitID),
		zap.Int("parameters", m.device.Registry().Len()))
	return nil
}

// Stop stops polling, rejects further exchanges and closes the transport.
func (m *Manager) Stop(ctx context.Context) error {
	if m.poller != nil {
		m.poller.Stop()
	}
	m.mailbox.Close()

	if m.client != nil {
		if err := m.client.Close(); err != nil {
			return fmt.Errorf("failed to close modbus client: %w", err)
		}
	}
	return nil
}

func (m *Manager) Device() *helios.Device { return m.device }

func (m *Manager) Registry() *helios.Registry { return m.device.Registry() }

func (m *Manager) Cache() *Cache { return m.cache }

func (m *Manager) Store() storage.Store { return m.store }

func (m *Manager) MailboxState() helios.ExchangeState { return m.mailbox.State() }

// Subscribe registers a listener for parameter changes.
func (m *Manager) Subscribe(l ChangeListener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// OnRefresh registers a listener for completed full reads.
func (m *Manager) OnRefresh(l RefreshListener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.refreshListeners = append(m.refreshListeners, l)
}

func (m *Manager) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}

	m.listenersMu.RLock()
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.listenersMu.RUnlock()

	for _, l := range listeners {
		l(changes)
	}
}

// ReadParameter reads one parameter from the device and updates the cache.
func (m *Manager) ReadParameter(ctx context.Context, name string) (helios.Value, helios.Status) {
	v, st := m.device.ReadValue(ctx, name)

	desc, err := m.Registry().Descriptor(name)
	if err != nil {
		return v, st
	}
	if ch, changed := m.cache.Update(desc, v, st, time.Now()); changed {
		m.persist(ctx, []Change{ch})
		m.notify([]Change{ch})
	}
	return v, st
}

// WriteParameter writes one parameter and records the write. source names the
// caller in the audit log.
func (m *Manager) WriteParameter(ctx context.Context, name string, v helios.Value, source string) helios.Status {
	st := m.device.WriteParameter(ctx, name, v)

	desc, err := m.Registry().Descriptor(name)
	if err != nil {
		return st
	}

	now := time.Now()
	if err := m.store.RecordWrite(ctx, storage.WriteRecord{
		Parameter: name,
		Key:       desc.Key,
		Value:     v.String(),
		Status:    st.String(),
		Source:    source,
		WrittenAt: now,
	}); err != nil {
		m.logger.Warn("Failed to record write", zap.String("parameter", name), zap.Error(err))
	}

	if st == helios.Good && m.device.IsReadable(name) {
		if ch, changed := m.cache.Update(desc, v, st, now); changed {
			m.notify([]Change{ch})
		}
	}

	m.logger.Info("Parameter written",
		zap.String("parameter", name),
		zap.Stringer("value", v),
		zap.Stringer("status", st),
		zap.String("source", source))
	return st
}

// Refresh reads every readable parameter, merges the result into the cache
// and publishes the changes. Only one refresh runs at a time.
func (m *Manager) Refresh(ctx context.Context) (helios.Summary, error) {
	if !m.refreshing.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer m.refreshing.Store(false)

	started := time.Now()
	snap, summary := m.device.ReadAll(ctx)
	changes := m.cache.Merge(m.Registry(), snap)

	m.healthMu.Lock()
	m.lastRefresh = snap.ReadAt
	m.lastSummary = summary
	m.healthMu.Unlock()

	m.collector.ObservePoll(summary, snap.ReadAt)
	m.persist(ctx, changes)
	m.notify(changes)

	m.listenersMu.RLock()
	refreshListeners := append([]RefreshListener(nil), m.refreshListeners...)
	m.listenersMu.RUnlock()
	h := m.Health()
	for _, l := range refreshListeners {
		l(h)
	}

	m.logger.Info("Full read completed",
		zap.Int("good", summary.Good()),
		zap.Int("failed", summary.Failed()),
		zap.Int("changed", len(changes)),
		zap.Duration("elapsed", time.Since(started)))

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("full read aborted: %w", err)
	}
	return summary, nil
}

func (m *Manager) persist(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}

	readings := make([]storage.Reading, 0, len(changes))
	for _, ch := range changes {
		readings = append(readings, storage.Reading{
			Parameter: ch.Name,
			Key:       ch.Key,
			Kind:      ch.Value.Kind().String(),
			Value:     ch.Value.String(),
			Status:    helios.Good.String(),
			ReadAt:    ch.At,
		})
	}

	// history must not be lost because a poll was cancelled
	if err := m.store.AppendReadings(context.WithoutCancel(ctx), readings); err != nil {
		m.logger.Warn("Failed to persist readings", zap.Int("count", len(readings)), zap.Error(err))
	}
}

func (m *Manager) Health() Health {
	m.healthMu.RLock()
	defer m.healthMu.RUnlock()

	h := Health{
		Address:     m.cfg.Address,
		Polling:     m.poller != nil && m.poller.IsRunning(),
		Refreshing:  m.refreshing.Load(),
		LastRefresh: m.lastRefresh,
		Summary:     make(map[string]int, len(m.lastSummary)),
	}
	for st, n := range m.lastSummary {
		h.Summary[st.String()] = n
	}
	h.Good = m.lastSummary.Good()
	h.Failed = m.lastSummary.Failed()
	return h
}
