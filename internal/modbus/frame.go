package modbus

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MBAP Header (7 Bytes) + Function Code + Data
type Frame struct {
	TransactionID uint16 // Request/Response Korrelation
	ProtocolID    uint16 // immer 0x0000 für Modbus
	Length        uint16 // Anzahl folgender Bytes
	UnitID        uint8
	FunctionCode  uint8
	Data          []byte
}

const (
	FuncCodeReadHoldingRegisters   = 0x03
	FuncCodeWriteMultipleRegisters = 0x10

	exceptionFlag = 0x80
)

// Exception codes
const (
	ExceptionIllegalFunction    = 0x01
	ExceptionIllegalDataAddress = 0x02
	ExceptionIllegalDataValue   = 0x03
	ExceptionGatewayTarget      = 0x0B
)

const maxFrameLength = 260

// Encode erstellt das komplette TCP Frame
func (f *Frame) Encode() []byte {
	f.Length = uint16(len(f.Data) + 2) // UnitID + FunctionCode

	frame := make([]byte, 8+len(f.Data))
	binary.BigEndian.PutUint16(frame[0:2], f.TransactionID)
	binary.BigEndian.PutUint16(frame[2:4], f.ProtocolID)
	binary.BigEndian.PutUint16(frame[4:6], f.Length)
	frame[6] = f.UnitID
	frame[7] = f.FunctionCode
	copy(frame[8:], f.Data)

	return frame
}

// ReadFrame liest genau ein Frame vom Stream
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, 7)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	f := &Frame{
		TransactionID: binary.BigEndian.Uint16(header[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(header[2:4]),
		Length:        binary.BigEndian.Uint16(header[4:6]),
		UnitID:        header[6],
	}
	if f.ProtocolID != 0x0000 {
		return nil, fmt.Errorf("invalid protocol ID: 0x%04X", f.ProtocolID)
	}
	if f.Length < 2 || int(f.Length)+6 > maxFrameLength {
		return nil, fmt.Errorf("invalid frame length: %d", f.Length)
	}

	pdu := make([]byte, f.Length-1)
	if _, err := io.ReadFull(r, pdu); err != nil {
		return nil, err
	}
	f.FunctionCode = pdu[0]
	f.Data = pdu[1:]

	return f, nil
}

// Reply creates a response frame that echoes the request header.
func (f *Frame) Reply(data []byte) *Frame {
	return &Frame{
		TransactionID: f.TransactionID,
		UnitID:        f.UnitID,
		FunctionCode:  f.FunctionCode,
		Data:          data,
	}
}

// Exception creates an exception response for the request.
func (f *Frame) Exception(code uint8) *Frame {
	return &Frame{
		TransactionID: f.TransactionID,
		UnitID:        f.UnitID,
		FunctionCode:  f.FunctionCode | exceptionFlag,
		Data:          []byte{code},
	}
}

// ReadRequest parst Adresse und Anzahl einer 0x03 Anfrage
func (f *Frame) ReadRequest() (addr, quantity uint16, err error) {
	if len(f.Data) != 4 {
		return 0, 0, fmt.Errorf("read request: %d data bytes", len(f.Data))
	}
	return binary.BigEndian.Uint16(f.Data[0:2]), binary.BigEndian.Uint16(f.Data[2:4]), nil
}

// WriteRequest parst eine 0x10 Anfrage
func (f *Frame) WriteRequest() (addr, quantity uint16, values []byte, err error) {
	if len(f.Data) < 5 {
		return 0, 0, nil, fmt.Errorf("write request: %d data bytes", len(f.Data))
	}
	addr = binary.BigEndian.Uint16(f.Data[0:2])
	quantity = binary.BigEndian.Uint16(f.Data[2:4])
	byteCount := int(f.Data[4])
	if byteCount != int(quantity)*2 || len(f.Data) != 5+byteCount {
		return 0, 0, nil, fmt.Errorf("write request: byte count %d for %d registers", byteCount, quantity)
	}
	return addr, quantity, f.Data[5:], nil
}

func readResponseData(values []byte) []byte {
	data := make([]byte, 1+len(values))
	data[0] = byte(len(values))
	copy(data[1:], values)
	return data
}

func writeResponseData(addr, quantity uint16) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], quantity)
	return data
}
