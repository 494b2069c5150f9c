package modbus

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HomeGateway/internal/helios"
)

const (
	testUnitID = 180
	testOffset = 1
)

func startSimulator(t *testing.T) (*Simulator, *Client) {
	t.Helper()

	sim := NewSimulator(testUnitID, testOffset, nil)
	addr, err := sim.Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })

	client := NewClient(ClientConfig{Address: addr, Timeout: time.Second}, nil)
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })

	return sim, client
}

func TestClientMailboxRoundTrip(t *testing.T) {
	sim, client := startSimulator(t)
	sim.Set("v00102", "2")
	ctx := context.Background()

	require.NoError(t, client.WriteRegisterString(ctx, testUnitID, testOffset, "v00102\x00\x00"))
	text, err := client.ReadRegisterString(ctx, testUnitID, testOffset, 10)

	require.NoError(t, err)
	assert.Equal(t, "v00102=2\x00\x00", text)
}

func TestClientValueWrite(t *testing.T) {
	sim, client := startSimulator(t)

	require.NoError(t, client.WriteRegisterString(context.Background(), testUnitID, testOffset, "v00403=o\x00\x00"))

	v, ok := sim.Value("v00403")
	assert.True(t, ok)
	assert.Equal(t, "o", v)
	assert.Equal(t, []string{"v00403=o\x00\x00"}, sim.Writes())
}

func TestClientOddLengthIsPadded(t *testing.T) {
	sim, client := startSimulator(t)

	require.NoError(t, client.WriteRegisterString(context.Background(), testUnitID, testOffset, "v00102=1"+"\x00"))

	assert.Equal(t, []string{"v00102=1\x00\x00"}, sim.Writes())
}

func TestClientExceptionIsDeviceFailure(t *testing.T) {
	_, client := startSimulator(t)

	_, err := client.ReadRegisterString(context.Background(), testUnitID, 99, 10)

	var devErr *helios.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, uint8(FuncCodeReadHoldingRegisters|exceptionFlag), devErr.Function)
	assert.Equal(t, uint8(ExceptionIllegalDataAddress), devErr.Code)
	assert.Equal(t, helios.BadDeviceFailure, helios.Classify(err))

	err = client.WriteRegisterString(context.Background(), 7, testOffset, "v00102\x00\x00")
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, uint8(ExceptionGatewayTarget), devErr.Code)
}

func TestClientRejectsOversizedRequests(t *testing.T) {
	client := NewClient(ClientConfig{Address: "127.0.0.1:1"}, nil)

	_, err := client.ReadRegisterString(context.Background(), testUnitID, testOffset, 2*maxReadRegisters+2)
	assert.ErrorIs(t, err, helios.ErrInvalidArgument)

	err = client.WriteRegisterString(context.Background(), testUnitID, testOffset, "")
	assert.ErrorIs(t, err, helios.ErrInvalidArgument)
}

func TestClientUnreachableIsCommunicationError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := NewClient(ClientConfig{Address: addr, Timeout: 200 * time.Millisecond}, nil)
	_, err = client.ReadRegisterString(context.Background(), testUnitID, testOffset, 10)

	require.Error(t, err)
	assert.Equal(t, helios.BadCommunicationError, helios.Classify(err))
}

func TestDeviceOverSimulator(t *testing.T) {
	sim, client := startSimulator(t)
	sim.Set("v00102", "3")
	sim.Set("v00104", "-04.5")

	mailbox := helios.NewMailbox(client, helios.MailboxConfig{
		SlaveID:     testUnitID,
		Offset:      testOffset,
		SettleDelay: time.Millisecond,
	}, nil)
	device := helios.NewDevice(nil, mailbox, nil)
	ctx := context.Background()

	level, st := device.ReadValue(ctx, "VentilationLevel")
	require.Equal(t, helios.Good, st)
	assert.Equal(t, "Level3", level.String())

	temp, st := device.ReadValue(ctx, "OutdoorAirTemperature")
	require.Equal(t, helios.Good, st)
	assert.Equal(t, -4.5, temp.Double())

	require.Equal(t, helios.Good, device.WriteParameter(ctx, "VentilationLevel", helios.Enum(helios.VentilationLevel, 1)))
	v, _ := sim.Value("v00102")
	assert.Equal(t, "1", v)

	// the device answers keys it does not know with zeros
	_, st = device.ReadValue(ctx, "LastErrorCode")
	assert.Equal(t, helios.BadOutOfRange, st)
}

func TestFrameEncodeAndRead(t *testing.T) {
	req := &Frame{TransactionID: 7, UnitID: testUnitID, FunctionCode: FuncCodeReadHoldingRegisters, Data: []byte{0, 1, 0, 5}}

	got, err := ReadFrame(bytes.NewReader(req.Encode()))
	require.NoError(t, err)

	addr, quantity, err := got.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), got.TransactionID)
	assert.Equal(t, uint16(1), addr)
	assert.Equal(t, uint16(5), quantity)

	bad := req.Encode()
	bad[2] = 0x01
	_, err = ReadFrame(bytes.NewReader(bad))
	assert.Error(t, err)
}

func TestTextRegisters(t *testing.T) {
	b := TextToRegisters("v00102=2")
	assert.Len(t, b, 8)
	assert.Equal(t, uint16('v')<<8|'0', RegisterValues(b)[0])

	assert.Equal(t, []byte("abc\x00"), TextToRegisters("abc"))
	assert.Equal(t, "abc\x00", RegistersToText(TextToRegisters("abc")))
}
