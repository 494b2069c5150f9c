package helios

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice(f *fakeMailbox) *Device {
	return NewDevice(nil, testMailbox(f), nil)
}

func TestReadVentilationLevel(t *testing.T) {
	f := newFakeMailbox()
	f.values["v00102"] = "2"
	d := testDevice(f)
	snap := NewSnapshot(d.Registry())

	st := d.ReadParameter(context.Background(), snap, "VentilationLevel")

	require.Equal(t, Good, st)
	assert.Equal(t, []string{"v00102\x00\x00"}, f.writes)

	v, ok := snap.Get("VentilationLevel")
	require.True(t, ok)
	assert.Equal(t, "Level2", v.String())
	got, _ := snap.Status("VentilationLevel")
	assert.Equal(t, Good, got)
}

func TestWriteBooleanTrue(t *testing.T) {
	f := newFakeMailbox()
	d := testDevice(f)

	st := d.WriteParameter(context.Background(), "WeeklyProgramActive", Bool(true))

	require.Equal(t, Good, st)
	assert.Equal(t, []string{"v00403=o\x00\x00"}, f.writes)
}

func TestWriteKindMismatchSendsNothing(t *testing.T) {
	f := newFakeMailbox()
	d := testDevice(f)

	st := d.WriteParameter(context.Background(), "WeeklyProgramActive", String("yes"))

	assert.Equal(t, BadEncodingError, st)
	assert.Empty(t, f.writes)
}

func TestWriteAbsentValueIsNothingToSend(t *testing.T) {
	f := newFakeMailbox()

	st := testDevice(f).WriteParameter(context.Background(), "VentilationLevel", Value{})

	assert.Equal(t, Good, st)
	assert.Empty(t, f.writes)
}

func TestUnknownParameter(t *testing.T) {
	f := newFakeMailbox()
	d := testDevice(f)
	snap := NewSnapshot(d.Registry())

	assert.Equal(t, BadOutOfRange, d.ReadParameter(context.Background(), snap, "Bogus"))
	assert.Equal(t, BadOutOfRange, d.WriteParameter(context.Background(), "Bogus", Int(1)))
	assert.Empty(t, f.writes)
}

func TestFailedReadLeavesValue(t *testing.T) {
	f := newFakeMailbox()
	f.values["v00103"] = "5x"
	d := testDevice(f)
	snap := NewSnapshot(d.Registry())
	snap.Set("VentilationPercentage", Int(40))

	st := d.ReadParameter(context.Background(), snap, "VentilationPercentage")

	assert.Equal(t, BadDecodingError, st)
	v, _ := snap.Get("VentilationPercentage")
	assert.Equal(t, int64(40), v.Int())
	got, _ := snap.Status("VentilationPercentage")
	assert.Equal(t, BadDecodingError, got)
}

func TestReadFollowsHeldValueKind(t *testing.T) {
	f := newFakeMailbox()
	f.values["v00102"] = "3"
	d := testDevice(f)
	snap := NewSnapshot(d.Registry())
	snap.Set("VentilationLevel", Int(0))

	require.Equal(t, Good, d.ReadParameter(context.Background(), snap, "VentilationLevel"))

	v, _ := snap.Get("VentilationLevel")
	assert.Equal(t, KindInteger, v.Kind())
	assert.Equal(t, int64(3), v.Int())
}

func TestReadValue(t *testing.T) {
	f := newFakeMailbox()
	f.values["v00104"] = "-03.5"
	d := testDevice(f)

	v, st := d.ReadValue(context.Background(), "OutdoorAirTemperature")

	require.Equal(t, Good, st)
	assert.Equal(t, -3.5, v.Double())
}

func TestReadTransportFailure(t *testing.T) {
	f := newFakeMailbox()
	f.readErr = io.ErrUnexpectedEOF

	_, st := testDevice(f).ReadValue(context.Background(), "VentilationLevel")

	assert.Equal(t, BadCommunicationError, st)
}

func TestReadAllCoversReadableParameters(t *testing.T) {
	f := newFakeMailbox()
	f.values["v00102"] = "1"
	f.values["v00103"] = "x"
	d := testDevice(f)

	readable := 0
	for _, name := range d.ParameterNames() {
		if d.IsReadable(name) {
			readable++
		}
	}

	snap, summary := d.ReadAll(context.Background())

	assert.Equal(t, readable, summary.Good()+summary.Failed())
	assert.Len(t, f.writes, readable)
	assert.GreaterOrEqual(t, summary.Failed(), 1)
	assert.False(t, snap.ReadAt.IsZero())

	v, _ := snap.Get("VentilationLevel")
	assert.Equal(t, 1, v.Ordinal())

	// write-only and excluded parameters are never requested
	for _, w := range f.writes {
		assert.NotEqual(t, "v01031\x00\x00", w)
		assert.NotEqual(t, "v01120\x00\x00", w)
	}
	_, read := snap.Status("StartReset")
	assert.False(t, read)
}

func TestReadAllAbortsOnCancelledContext(t *testing.T) {
	f := newFakeMailbox()
	d := testDevice(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, summary := d.ReadAll(ctx)

	assert.Zero(t, summary.Good())
	assert.Empty(t, f.writes)
}
