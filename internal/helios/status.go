package helios

import "fmt"

// Status is the closed result taxonomy of every parameter exchange. The numeric
// values are the OPC UA status codes of the same name.
type Status uint32

const (
	Good                  Status = 0x00000000
	BadInternalError      Status = 0x80020000
	BadCommunicationError Status = 0x80050000
	BadEncodingError      Status = 0x80060000
	BadDecodingError      Status = 0x80070000
	BadUnknownResponse    Status = 0x80090000
	BadOutOfRange         Status = 0x803C0000
	BadDeviceFailure      Status = 0x808B0000
)

// Statuses lists every member of the taxonomy.
var Statuses = []Status{
	Good,
	BadOutOfRange,
	BadUnknownResponse,
	BadDecodingError,
	BadEncodingError,
	BadCommunicationError,
	BadDeviceFailure,
	BadInternalError,
}

func (s Status) String() string {
	switch s {
	case Good:
		return "Good"
	case BadOutOfRange:
		return "BadOutOfRange"
	case BadUnknownResponse:
		return "BadUnknownResponse"
	case BadDecodingError:
		return "BadDecodingError"
	case BadEncodingError:
		return "BadEncodingError"
	case BadCommunicationError:
		return "BadCommunicationError"
	case BadDeviceFailure:
		return "BadDeviceFailure"
	case BadInternalError:
		return "BadInternalError"
	default:
		return fmt.Sprintf("Status(0x%08X)", uint32(s))
	}
}

// IsGood reports whether the exchange succeeded.
func (s Status) IsGood() bool {
	return s == Good
}

// IsBad reports whether the severity bit is set.
func (s Status) IsBad() bool {
	return uint32(s)&0x80000000 != 0
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range Statuses {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}
