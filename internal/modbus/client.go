package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/helios"
)

// Modbus PDU Grenzen
const (
	maxReadRegisters  = 125
	maxWriteRegisters = 123
)

type ClientConfig struct {
	Address     string
	Timeout     time.Duration
	IdleTimeout time.Duration
}

// Client is a Modbus TCP master that moves ASCII text through holding
// registers. It serializes requests because the slave id is set per call.
type Client struct {
	cfg       ClientConfig
	handler   *modbus.TCPClientHandler
	client    modbus.Client
	logger    *zap.Logger
	mu        sync.Mutex
	connected bool
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := modbus.NewTCPClientHandler(cfg.Address)
	h.Timeout = cfg.Timeout
	h.IdleTimeout = cfg.IdleTimeout

	return &Client{
		cfg:     cfg,
		handler: h,
		client:  modbus.NewClient(h),
		logger:  logger,
	}
}

// Connect stellt TCP-Verbindung her
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if err := c.handler.Connect(); err != nil {
		return fmt.Errorf("connection to %s failed: %w", c.cfg.Address, err)
	}
	c.connected = true

	c.logger.Info("Modbus connected", zap.String("address", c.cfg.Address))
	return nil
}

// Close schließt die Verbindung
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	return c.handler.Close()
}

func (c *Client) Address() string {
	return c.cfg.Address
}

// WriteRegisterString writes text with function 0x10 starting at offset. An
// odd length is padded with one NUL.
func (c *Client) WriteRegisterString(ctx context.Context, slaveID uint8, offset uint16, text string) error {
	payload := TextToRegisters(text)
	quantity := len(payload) / 2
	if quantity == 0 || quantity > maxWriteRegisters {
		return fmt.Errorf("%w: cannot write %d registers", helios.ErrInvalidArgument, quantity)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = slaveID
	if _, err := c.client.WriteMultipleRegisters(offset, uint16(quantity), payload); err != nil {
		return translate("write", err)
	}
	return nil
}

// ReadRegisterString reads byteCount bytes with function 0x03 starting at
// offset. The text is returned as received, trailing NULs included.
func (c *Client) ReadRegisterString(ctx context.Context, slaveID uint8, offset uint16, byteCount int) (string, error) {
	quantity := (byteCount + 1) / 2
	if quantity == 0 || quantity > maxReadRegisters {
		return "", fmt.Errorf("%w: cannot read %d registers", helios.ErrInvalidArgument, quantity)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = slaveID
	results, err := c.client.ReadHoldingRegisters(offset, uint16(quantity))
	if err != nil {
		return "", translate("read", err)
	}
	if len(results) != quantity*2 {
		return "", &helios.ProtocolError{
			Op:  "read",
			Msg: fmt.Sprintf("expected %d bytes, got %d", quantity*2, len(results)),
		}
	}
	return RegistersToText(results[:byteCount]), nil
}

// translate maps library errors onto the fault types the classifier knows.
// Exception responses are device faults; transport errors keep their type;
// everything else the library reports is a malformed frame.
func translate(op string, err error) error {
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return &helios.DeviceError{Function: mbErr.FunctionCode, Code: mbErr.ExceptionCode}
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%s failed: %w", op, err)
	}

	return &helios.ProtocolError{Op: op, Msg: err.Error()}
}
