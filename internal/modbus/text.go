package modbus

import "encoding/binary"

// TextToRegisters lays out text as big-endian register bytes: the first
// character is the high byte of the first register.
func TextToRegisters(text string) []byte {
	n := len(text)
	if n%2 != 0 {
		n++
	}
	out := make([]byte, n)
	copy(out, text)
	return out
}

// RegistersToText is the inverse of TextToRegisters.
func RegistersToText(b []byte) string {
	return string(b)
}

// RegisterValues splits register bytes into 16 bit words.
func RegisterValues(b []byte) []uint16 {
	regs := make([]uint16, len(b)/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return regs
}
