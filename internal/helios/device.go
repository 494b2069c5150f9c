package helios

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Device drives parameter reads and writes for one ventilation unit.
type Device struct {
	registry *Registry
	mailbox  *Mailbox
	logger   *zap.Logger
}

func NewDevice(registry *Registry, mailbox *Mailbox, logger *zap.Logger) *Device {
	if registry == nil {
		registry = Default
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Device{
		registry: registry,
		mailbox:  mailbox,
		logger:   logger,
	}
}

func (d *Device) Registry() *Registry { return d.registry }

func (d *Device) ParameterNames() []string { return d.registry.Names() }

func (d *Device) IsReadable(name string) bool { return d.registry.IsReadable(name) }

func (d *Device) IsWritable(name string) bool { return d.registry.IsWritable(name) }

// ReadParameter reads name into snap. The held value selects the decoder. On
// failure the existing value is left untouched.
func (d *Device) ReadParameter(ctx context.Context, snap *Snapshot, name string) Status {
	desc, err := d.registry.Descriptor(name)
	if err != nil {
		return classify(d.logger, err, name, "")
	}

	current, ok := snap.Get(name)
	if !ok || !current.IsValid() {
		current = Zero(desc.Kind, desc.Enum)
	}

	raw, err := d.mailbox.exchange(ctx, desc.Key, desc.Capacity())
	if err != nil {
		st := classify(d.logger, err, name, desc.Key)
		snap.setStatus(name, st)
		return st
	}

	v, err := decode(desc, current, raw)
	if err != nil {
		st := classify(d.logger, err, name, desc.Key)
		snap.setStatus(name, st)
		return st
	}

	snap.Set(name, v)
	snap.setStatus(name, Good)
	return Good
}

// ReadValue reads a single parameter without a caller snapshot.
func (d *Device) ReadValue(ctx context.Context, name string) (Value, Status) {
	desc, err := d.registry.Descriptor(name)
	if err != nil {
		return Value{}, classify(d.logger, err, name, "")
	}

	snap := &Snapshot{
		values:   map[string]Value{name: Zero(desc.Kind, desc.Enum)},
		statuses: make(map[string]Status, 1),
	}
	st := d.ReadParameter(ctx, snap, name)
	v, _ := snap.Get(name)
	return v, st
}

// WriteParameter encodes v and writes it to the mailbox. An empty encoding is
// nothing to send and reports Good.
func (d *Device) WriteParameter(ctx context.Context, name string, v Value) Status {
	desc, err := d.registry.Descriptor(name)
	if err != nil {
		return classify(d.logger, err, name, "")
	}

	frame, err := EncodeStrict(desc, v)
	if err != nil {
		return classify(d.logger, err, name, desc.Key)
	}
	if len(frame) == 0 {
		return Good
	}

	if err := d.mailbox.write(ctx, frame); err != nil {
		return classify(d.logger, err, name, desc.Key)
	}

	d.logger.Debug("Helios parameter written",
		zap.String("parameter", name),
		zap.String("key", desc.Key),
		zap.Stringer("value", v))
	return Good
}

// ReadAll reads every readable parameter in table order into a fresh snapshot.
func (d *Device) ReadAll(ctx context.Context) (*Snapshot, Summary) {
	snap := NewSnapshot(d.registry)
	summary := make(Summary)

	for _, name := range d.registry.order {
		if !d.registry.IsReadable(name) {
			continue
		}
		if ctx.Err() != nil {
			summary[Classify(fmt.Errorf("full read aborted: %w", ctx.Err()))]++
			continue
		}
		summary[d.ReadParameter(ctx, snap, name)]++
	}

	snap.ReadAt = time.Now()
	return snap, summary
}
