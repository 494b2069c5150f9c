package helios

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnknownParameter is returned for names missing from the registry.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrInvalidArgument marks malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMailboxClosed is returned once the mailbox transport has been released.
	ErrMailboxClosed = errors.New("mailbox closed")
	// ErrInvalidState marks an operation issued in a state that does not allow it.
	ErrInvalidState = errors.New("invalid operation state")
	// ErrUnexpectedName is returned when a response frame belongs to a different key.
	ErrUnexpectedName = errors.New("unexpected name in response")
	// ErrShortResponse is returned for empty frames or frames shorter than the requested key.
	ErrShortResponse = errors.New("unknown response")
)

// ProtocolError reports a malformed frame at the transport level.
type ProtocolError struct {
	Op  string
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %s", e.Op, e.Msg)
}

// DeviceError is a fault reported by the device itself, e.g. a Modbus exception response.
type DeviceError struct {
	Function uint8
	Code     uint8
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device fault: function 0x%02X exception %d", e.Function, e.Code)
}

// DecodeError reports a payload that could not be parsed into the target kind.
type DecodeError struct {
	Kind    Kind
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s from %q: %v", e.Kind, e.Payload, e.Err)
	}
	return fmt.Sprintf("decode %s from %q", e.Kind, e.Payload)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a value that could not be rendered for the wire.
type EncodeError struct {
	Kind Kind
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Kind, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Classify maps any fault raised on the read or write path onto the closed
// status taxonomy. Unclassified faults become BadInternalError.
func Classify(err error) Status {
	if err == nil {
		return Good
	}

	var (
		protoErr  *ProtocolError
		deviceErr *DeviceError
		decodeErr *DecodeError
		encodeErr *EncodeError
		numErr    *strconv.NumError
		parseErr  *time.ParseError
		netErr    net.Error
	)

	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrUnknownParameter), errors.Is(err, ErrUnexpectedName):
		return BadOutOfRange
	case errors.Is(err, ErrShortResponse):
		return BadUnknownResponse
	case errors.Is(err, ErrMailboxClosed), errors.Is(err, net.ErrClosed), errors.Is(err, os.ErrClosed):
		return BadInternalError
	case errors.Is(err, ErrInvalidState):
		return BadInternalError
	case errors.As(err, &deviceErr):
		return BadDeviceFailure
	case errors.As(err, &protoErr):
		return BadCommunicationError
	case errors.As(err, &encodeErr):
		return BadEncodingError
	case errors.As(err, &decodeErr), errors.As(err, &numErr), errors.As(err, &parseErr):
		return BadDecodingError
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrShortWrite):
		return BadCommunicationError
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return BadCommunicationError
	case errors.As(err, &netErr):
		return BadCommunicationError
	default:
		return BadInternalError
	}
}

// classify is Classify plus the diagnostic log line expected at the point of classification.
func classify(logger *zap.Logger, err error, name, key string) Status {
	status := Classify(err)
	if status != Good && logger != nil {
		logger.Warn("Helios exchange failed",
			zap.String("parameter", name),
			zap.String("key", key),
			zap.Stringer("status", status),
			zap.Error(err))
	}
	return status
}
