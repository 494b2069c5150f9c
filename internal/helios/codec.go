package helios

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayout is dd.MM.yy, independent of the host locale.
const dateLayout = "02.01.06"

// noValue is sent by the device for numeric parameters without a reading.
const noValue = "-"

// Encode renders v as the wire frame "key=value", truncated or NUL padded to
// exactly the descriptor capacity. An empty key or an absent value yields an
// empty frame, which callers treat as nothing to send.
func Encode(desc Descriptor, v Value) []byte {
	if desc.Key == "" || !v.IsValid() {
		return nil
	}

	text, ok := formatValue(desc, v)
	if !ok {
		return nil
	}

	return pad([]byte(desc.Key+"="+text), desc.Capacity())
}

// EncodeStrict is Encode plus the checks the write path applies before
// anything reaches the device: the value kind must match the parameter and
// doubles must be finite.
func EncodeStrict(desc Descriptor, v Value) ([]byte, error) {
	if desc.Key == "" {
		return nil, fmt.Errorf("%w: descriptor without key", ErrInvalidArgument)
	}
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() != desc.Kind {
		return nil, &EncodeError{Kind: v.Kind(), Err: fmt.Errorf("parameter %s expects %s", desc.Name, desc.Kind)}
	}
	if v.Kind() == KindDouble && (math.IsNaN(v.Double()) || math.IsInf(v.Double(), 0)) {
		return nil, &EncodeError{Kind: KindDouble, Err: fmt.Errorf("non-finite value %v", v.Double())}
	}
	if v.Kind() == KindString && strings.IndexByte(v.Str(), 0) >= 0 {
		return nil, &EncodeError{Kind: KindString, Err: fmt.Errorf("value contains NUL")}
	}
	return Encode(desc, v), nil
}

// EncodeRequest is the key-only frame that asks the mailbox for a parameter.
func EncodeRequest(key string) []byte {
	return append([]byte(key), 0, 0)
}

func pad(frame []byte, capacity int) []byte {
	if len(frame) >= capacity {
		return frame[:capacity]
	}
	out := make([]byte, capacity)
	copy(out, frame)
	return out
}

func formatValue(desc Descriptor, v Value) (string, bool) {
	switch v.Kind() {
	case KindString:
		return v.Str(), true
	case KindBoolean:
		if v.Bool() {
			return "o", true
		}
		return "0", true
	case KindInteger:
		return formatInteger(desc.Size, v.Int()), true
	case KindEnum:
		return formatInteger(desc.Size, int64(v.Ordinal())), true
	case KindDouble:
		return formatDouble(desc.Size, v.Double()), true
	case KindDateTime:
		return v.DateTime().Format(dateLayout), true
	case KindTimeSpan:
		return formatTimeSpan(v.TimeSpan()), true
	default:
		return "", false
	}
}

func formatInteger(size int, n int64) string {
	width := 1
	switch size {
	case 2, 3, 4:
		width = size
	}

	// magnitude as uint64 so MinInt64 does not overflow
	sign, mag := "", uint64(n)
	if n < 0 {
		sign = "-"
		mag = -mag
	}
	return sign + fmt.Sprintf("%0*d", width, mag)
}

// formatDouble renders one fractional digit, rounding half away from zero.
// Size 4 fields carry two integer digits ("00.0"), all others one ("0.0").
func formatDouble(size int, f float64) string {
	d := decimal.NewFromFloat(f).Round(1)

	sign := ""
	if d.Sign() < 0 {
		sign = "-"
		d = d.Abs()
	}

	text := d.StringFixed(1)
	if size == 4 && len(text) < 4 {
		text = strings.Repeat("0", 4-len(text)) + text
	}
	return sign + text
}

func formatTimeSpan(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	h := (total / 3600) % 24
	m := (total / 60) % 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Decode strips the key prefix from a response frame and parses the payload
// into the descriptor's kind.
func Decode(desc Descriptor, raw []byte) (Value, Status) {
	v, err := decode(desc, Zero(desc.Kind, desc.Enum), raw)
	return v, Classify(err)
}

// DecodeInto decodes raw into the kind held by target, the way the dispatch
// layer drives it from the current snapshot value.
func DecodeInto(desc Descriptor, target Value, raw []byte) (Value, Status) {
	v, err := decode(desc, target, raw)
	return v, Classify(err)
}

func decode(desc Descriptor, target Value, raw []byte) (Value, error) {
	payload, err := stripKey(desc.Key, raw)
	if err != nil {
		return target, err
	}
	return parsePayload(target, payload)
}

// stripKey returns the payload behind "key=" with trailing NULs removed.
func stripKey(key string, raw []byte) (string, error) {
	prefix := key + "="
	if len(raw) < len(prefix) {
		return "", fmt.Errorf("%w: %d byte frame for %s", ErrShortResponse, len(raw), key)
	}
	if !bytes.HasPrefix(raw, []byte(prefix)) {
		return "", fmt.Errorf("%w: expected %s, got %q", ErrUnexpectedName, key, printable(raw[:len(prefix)]))
	}
	return string(bytes.TrimRight(raw[len(prefix):], "\x00")), nil
}

func parsePayload(target Value, payload string) (Value, error) {
	switch target.Kind() {
	case KindString:
		return String(payload), nil

	case KindBoolean:
		return Bool(payload != "0"), nil

	case KindInteger:
		n, err := parseInteger(payload)
		if err != nil {
			return target, err
		}
		return Int(n), nil

	case KindEnum:
		n, err := parseInteger(payload)
		if err != nil {
			return target, err
		}
		return Enum(target.EnumType(), int(n)), nil

	case KindDouble:
		if payload == noValue {
			return Double(0), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
		if err != nil {
			return target, &DecodeError{Kind: KindDouble, Payload: payload, Err: err}
		}
		return Double(f), nil

	case KindDateTime:
		if payload == "" {
			return DateTime(time.Time{}), nil
		}
		t, err := parseDate(strings.TrimSpace(payload))
		if err != nil {
			return target, &DecodeError{Kind: KindDateTime, Payload: payload, Err: err}
		}
		return DateTime(t), nil

	case KindTimeSpan:
		if payload == "" {
			return TimeSpan(0), nil
		}
		d, err := parseTimeSpan(payload)
		if err != nil {
			return target, &DecodeError{Kind: KindTimeSpan, Payload: payload, Err: err}
		}
		return TimeSpan(d), nil

	default:
		return target, fmt.Errorf("%w: no decoder for %s", ErrInvalidArgument, target.Kind())
	}
}

func parseInteger(payload string) (int64, error) {
	if payload == noValue {
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
	if err != nil {
		return 0, &DecodeError{Kind: KindInteger, Payload: payload, Err: err}
	}
	return n, nil
}

// parseDate parses dd.MM.yy in local time. Two digit years always fall in
// 2000..2099; the unit has no dates before 2000.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if t.Year() < 2000 {
		t = t.AddDate(100, 0, 0)
	}
	return t, nil
}

// parseTimeSpan accepts hh:mm:ss with 24 hour clock ranges.
func parseTimeSpan(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("want hh:mm:ss")
	}

	limits := [3]int{23, 59, 59}
	var fields [3]int
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("field %q is not two digits", part)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("field %q out of range", part)
		}
		fields[i] = n
	}

	return time.Duration(fields[0])*time.Hour +
		time.Duration(fields[1])*time.Minute +
		time.Duration(fields[2])*time.Second, nil
}

func printable(b []byte) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '.'
		}
		return r
	}, string(b))
}
