package helios

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseValue converts user supplied text (query strings, CLI arguments,
// preset files) into a value of the parameter's kind.
func ParseValue(desc Descriptor, text string) (Value, error) {
	text = strings.TrimSpace(text)

	switch desc.Kind {
	case KindString:
		return String(text), nil

	case KindBoolean:
		switch strings.ToLower(text) {
		case "true", "1", "on", "yes", "o":
			return Bool(true), nil
		case "false", "0", "off", "no":
			return Bool(false), nil
		}

	case KindInteger:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int(n), nil
		}

	case KindDouble:
		if f, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64); err == nil {
			return Double(f), nil
		}

	case KindEnum:
		if ord, ok := desc.Enum.Ordinal(text); ok {
			return Enum(desc.Enum, ord), nil
		}
		if n, err := strconv.Atoi(text); err == nil && n >= 0 && n < len(desc.Enum.Members) {
			return Enum(desc.Enum, n), nil
		}

	case KindDateTime:
		if t, err := parseDate(text); err == nil {
			return DateTime(t), nil
		}
		for _, layout := range []string{"02.01.2006", "2006-01-02"} {
			if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
				return DateTime(t), nil
			}
		}

	case KindTimeSpan:
		if d, err := parseTimeSpan(text); err == nil {
			return TimeSpan(d), nil
		}
	}

	return Value{}, fmt.Errorf("%w: %q is not a valid %s for %s", ErrInvalidArgument, text, desc.Kind, desc.Name)
}

// ValueFromJSON converts a decoded JSON scalar into a value of the parameter's kind.
func ValueFromJSON(desc Descriptor, raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{}, fmt.Errorf("%w: missing value for %s", ErrInvalidArgument, desc.Name)
	case string:
		return ParseValue(desc, v)
	case bool:
		if desc.Kind == KindBoolean {
			return Bool(v), nil
		}
	case float64:
		return valueFromNumber(desc, v)
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return valueFromNumber(desc, f)
		}
	case int:
		return valueFromNumber(desc, float64(v))
	case int64:
		return valueFromNumber(desc, float64(v))
	}
	return Value{}, fmt.Errorf("%w: %v (%T) is not a valid %s for %s", ErrInvalidArgument, raw, raw, desc.Kind, desc.Name)
}

func valueFromNumber(desc Descriptor, f float64) (Value, error) {
	switch desc.Kind {
	case KindDouble:
		return Double(f), nil
	case KindInteger:
		if f == math.Trunc(f) {
			return Int(int64(f)), nil
		}
	case KindEnum:
		if f == math.Trunc(f) && f >= 0 && int(f) < len(desc.Enum.Members) {
			return Enum(desc.Enum, int(f)), nil
		}
	case KindBoolean:
		if f == 0 || f == 1 {
			return Bool(f == 1), nil
		}
	}
	return Value{}, fmt.Errorf("%w: %v is not a valid %s for %s", ErrInvalidArgument, f, desc.Kind, desc.Name)
}
