package helios

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDoublePadsToCapacity(t *testing.T) {
	desc := Descriptor{Name: "Example", Key: "v00006", Size: 1, Count: 5, Kind: KindDouble}

	frame := Encode(desc, Double(3.0))

	assert.Equal(t, []byte("v00006=3.0"), frame)
	assert.Len(t, frame, 10)
}

func TestEncodeBooleanTrue(t *testing.T) {
	desc := Descriptor{Name: "WeeklyProgramActive", Key: "v00403", Size: 1, Count: 5, Kind: KindBoolean}

	assert.Equal(t, []byte("v00403=o\x00\x00"), Encode(desc, Bool(true)))
	assert.Equal(t, []byte("v00403=0\x00\x00"), Encode(desc, Bool(false)))
}

func TestEncodeFormats(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		count int
		value Value
		want  string
	}{
		{"string truncated", 3, 5, String("abcdefgh"), "v00000=abc"},
		{"string padded", 16, 12, String("KWL EC"), "v00000=KWL EC"},
		{"integer size 1", 1, 5, Int(7), "v00000=7"},
		{"integer size 1 wide", 1, 8, Int(1234), "v00000=1234"},
		{"integer size 2", 2, 5, Int(7), "v00000=07"},
		{"integer size 3", 3, 6, Int(7), "v00000=007"},
		{"integer size 4", 4, 6, Int(42), "v00000=0042"},
		{"integer negative", 2, 5, Int(-5), "v00000=-05"},
		{"unrecognized size", 8, 8, Int(12), "v00000=12"},
		{"integer min int64", 1, 14, Int(math.MinInt64), "v00000=-9223372036854775808"},
		{"integer max int64", 4, 14, Int(math.MaxInt64), "v00000=9223372036854775807"},
		{"double one integer digit", 3, 6, Double(3.25), "v00000=3.3"},
		{"double size 4", 4, 7, Double(3.45), "v00000=03.5"},
		{"double size 4 negative", 4, 7, Double(-12.25), "v00000=-12.3"},
		{"double negative rounds to zero", 4, 7, Double(-0.04), "v00000=00.0"},
		{"date", 10, 9, DateTime(time.Date(2024, time.March, 7, 0, 0, 0, 0, time.Local)), "v00000=07.03.24"},
		{"time span", 8, 8, TimeSpan(13*time.Hour + 5*time.Minute + 9*time.Second), "v00000=13:05:09"},
		{"enum", 1, 5, Enum(VentilationLevel, 3), "v00000=3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Descriptor{Key: "v00000", Size: tt.size, Count: tt.count, Kind: tt.value.Kind()}

			frame := Encode(desc, tt.value)

			require.Len(t, frame, tt.count*2)
			assert.Equal(t, tt.want, string(trimNUL(frame)))
		})
	}
}

func TestEncodeNothingToSend(t *testing.T) {
	desc := Descriptor{Key: "v00102", Size: 1, Count: 5, Kind: KindInteger}

	assert.Empty(t, Encode(Descriptor{Size: 1, Count: 5}, Int(1)))
	assert.Empty(t, Encode(desc, Value{}))
}

func TestEncodeLengthInvariant(t *testing.T) {
	for _, name := range Default.Names() {
		desc, err := Default.Descriptor(name)
		require.NoError(t, err)

		frame := Encode(desc, sampleValue(desc))
		assert.Len(t, frame, desc.Capacity(), name)
	}
}

func TestEncodeStrictRejectsKindMismatch(t *testing.T) {
	desc, err := Default.Descriptor("VentilationPercentage")
	require.NoError(t, err)

	_, err = EncodeStrict(desc, String("50"))

	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, BadEncodingError, Classify(err))
}

func TestDecodeVentilationLevel(t *testing.T) {
	desc, err := Default.Descriptor("VentilationLevel")
	require.NoError(t, err)

	v, st := Decode(desc, []byte("v00102=2\x00\x00\x00\x00"))

	assert.Equal(t, Good, st)
	assert.Equal(t, KindEnum, v.Kind())
	assert.Equal(t, 2, v.Ordinal())
	assert.Equal(t, "Level2", v.String())
}

func TestDecodePrefixMismatch(t *testing.T) {
	desc := Descriptor{Key: "v00102", Size: 1, Count: 5, Kind: KindInteger}

	_, st := Decode(desc, []byte("v00103=2\x00\x00"))
	assert.Equal(t, BadOutOfRange, st)

	// a valid payload does not rescue a foreign key
	_, st = Decode(desc, []byte("v00101=1\x00\x00"))
	assert.Equal(t, BadOutOfRange, st)

	// long enough but no separator
	_, st = Decode(desc, []byte("v001020\x00\x00\x00"))
	assert.Equal(t, BadOutOfRange, st)
}

func TestDecodeShortFrame(t *testing.T) {
	desc := Descriptor{Key: "v00102", Size: 1, Count: 5, Kind: KindInteger}

	_, st := Decode(desc, []byte("v001"))
	assert.Equal(t, BadUnknownResponse, st)

	_, st = Decode(desc, nil)
	assert.Equal(t, BadUnknownResponse, st)
}

func TestDecodeNoValueSentinel(t *testing.T) {
	intDesc := Descriptor{Key: "v00348", Size: 4, Count: 6, Kind: KindInteger}
	dblDesc := Descriptor{Key: "v00104", Size: 4, Count: 7, Kind: KindDouble}

	v, st := Decode(intDesc, []byte("v00348=-\x00\x00\x00\x00"))
	assert.Equal(t, Good, st)
	assert.Equal(t, int64(0), v.Int())

	v, st = Decode(dblDesc, []byte("v00104=-\x00\x00\x00\x00\x00\x00"))
	assert.Equal(t, Good, st)
	assert.Equal(t, 0.0, v.Double())
}

func TestDecodePayloads(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		frame  string
		want   Value
		status Status
	}{
		{"bool false", KindBoolean, "v00000=0\x00\x00", Bool(false), Good},
		{"bool true", KindBoolean, "v00000=o\x00\x00", Bool(true), Good},
		{"bool anything else", KindBoolean, "v00000=1\x00\x00", Bool(true), Good},
		{"integer", KindInteger, "v00000=0042", Int(42), Good},
		{"integer garbage", KindInteger, "v00000=4x2", Value{}, BadDecodingError},
		{"double", KindDouble, "v00000=-05.3", Double(-5.3), Good},
		{"double garbage", KindDouble, "v00000=5,3", Value{}, BadDecodingError},
		{"string verbatim", KindString, "v00000=KWL 340 D\x00\x00", String("KWL 340 D"), Good},
		{"date empty", KindDateTime, "v00000=\x00\x00", DateTime(time.Time{}), Good},
		{"date", KindDateTime, "v00000=24.12.23", DateTime(time.Date(2023, time.December, 24, 0, 0, 0, 0, time.Local)), Good},
		{"date two digit year after 68", KindDateTime, "v00000=15.06.75", DateTime(time.Date(2075, time.June, 15, 0, 0, 0, 0, time.Local)), Good},
		{"date year 00", KindDateTime, "v00000=29.02.00", DateTime(time.Date(2000, time.February, 29, 0, 0, 0, 0, time.Local)), Good},
		{"date garbage", KindDateTime, "v00000=32.13.23", Value{}, BadDecodingError},
		{"time span empty", KindTimeSpan, "v00000=", TimeSpan(0), Good},
		{"time span", KindTimeSpan, "v00000=07:30:00", TimeSpan(7*time.Hour + 30*time.Minute), Good},
		{"time span out of range", KindTimeSpan, "v00000=25:00:00", Value{}, BadDecodingError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Descriptor{Key: "v00000", Size: 4, Count: 12, Kind: tt.kind}

			v, st := Decode(desc, []byte(tt.frame))

			require.Equal(t, tt.status, st)
			if st == Good {
				assert.True(t, tt.want.Equal(v), "got %#v want %#v", v, tt.want)
			}
		})
	}
}

func TestDecodeIntoFollowsTargetKind(t *testing.T) {
	desc := Descriptor{Key: "v00102", Size: 1, Count: 5, Kind: KindEnum, Enum: VentilationLevel}

	v, st := DecodeInto(desc, Int(0), []byte("v00102=3\x00\x00"))

	assert.Equal(t, Good, st)
	assert.Equal(t, KindInteger, v.Kind())
	assert.Equal(t, int64(3), v.Int())
}

func TestRoundTripAllParameters(t *testing.T) {
	for _, name := range Default.Names() {
		desc, err := Default.Descriptor(name)
		require.NoError(t, err)

		want := sampleValue(desc)
		got, st := Decode(desc, Encode(desc, want))

		require.Equal(t, Good, st, name)
		assert.True(t, want.Equal(got), "%s: got %#v want %#v", name, got, want)
	}
}

func sampleValue(desc Descriptor) Value {
	switch desc.Kind {
	case KindBoolean:
		return Bool(true)
	case KindInteger:
		return Int(7)
	case KindDouble:
		return Double(3.5)
	case KindDateTime:
		return DateTime(time.Date(2024, time.March, 7, 0, 0, 0, 0, time.Local))
	case KindTimeSpan:
		return TimeSpan(13*time.Hour + 5*time.Minute + 9*time.Second)
	case KindString:
		return String("abc")
	case KindEnum:
		return Enum(desc.Enum, 1)
	}
	return Value{}
}

func trimNUL(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}
