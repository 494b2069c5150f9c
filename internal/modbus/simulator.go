package modbus

import (
	"bytes"
	"errors"
	"io"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Simulator is a Modbus TCP slave that emulates the text mailbox of an
// easyControls unit. A key-only write latches the key; the next read returns
// "key=value". A "key=value" write stores the value.
type Simulator struct {
	unitID   uint8
	offset   uint16
	logger   *zap.Logger
	mu       sync.Mutex
	values   map[string]string
	window   []byte
	writes   []string
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewSimulator creates a simulator answering for unitID with the mailbox at offset.
func NewSimulator(unitID uint8, offset uint16, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		unitID: unitID,
		offset: offset,
		logger: logger,
		values: make(map[string]string),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Set stores the payload returned for key.
func (s *Simulator) Set(key, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = payload
}

// Value returns the payload stored for key.
func (s *Simulator) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Writes returns every text written into the mailbox, in order.
func (s *Simulator) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// Listen binds address and starts serving. It returns the bound address,
// which differs from address when port 0 was requested.
func (s *Simulator) Listen(address string) (string, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return "", err
	}
	s.listener = l

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("Modbus simulator listening",
		zap.String("address", l.Addr().String()),
		zap.Uint8("unit_id", s.unitID))
	return l.Addr().String(), nil
}

func (s *Simulator) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()

	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Simulator) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("Accept failed", zap.Error(err))
			}
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Simulator) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		req, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("Simulator connection dropped", zap.Error(err))
			}
			return
		}

		if _, err := conn.Write(s.handle(req).Encode()); err != nil {
			return
		}
	}
}

func (s *Simulator) handle(req *Frame) *Frame {
	if req.UnitID != s.unitID {
		return req.Exception(ExceptionGatewayTarget)
	}

	switch req.FunctionCode {
	case FuncCodeReadHoldingRegisters:
		addr, quantity, err := req.ReadRequest()
		if err != nil || quantity == 0 || quantity > maxReadRegisters {
			return req.Exception(ExceptionIllegalDataValue)
		}
		if addr != s.offset {
			return req.Exception(ExceptionIllegalDataAddress)
		}
		return req.Reply(readResponseData(s.read(int(quantity) * 2)))

	case FuncCodeWriteMultipleRegisters:
		addr, quantity, values, err := req.WriteRequest()
		if err != nil || quantity == 0 || quantity > maxWriteRegisters {
			return req.Exception(ExceptionIllegalDataValue)
		}
		if addr != s.offset {
			return req.Exception(ExceptionIllegalDataAddress)
		}
		s.write(values)
		return req.Reply(writeResponseData(addr, quantity))

	default:
		return req.Exception(ExceptionIllegalFunction)
	}
}

func (s *Simulator) write(values []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes = append(s.writes, string(values))

	text := string(bytes.TrimRight(values, "\x00"))
	if key, payload, ok := strings.Cut(text, "="); ok {
		s.values[key] = payload
		s.window = nil
		return
	}

	// unknown keys read back as all-zero frames
	if payload, ok := s.values[text]; ok {
		s.window = []byte(text + "=" + payload)
	} else {
		s.window = nil
	}
}

func (s *Simulator) read(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, n)
	copy(out, s.window)
	return out
}
