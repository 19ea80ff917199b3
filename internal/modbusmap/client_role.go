package modbusmap

import (
	"fmt"

	"github.com/simonvetter/modbus"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/value"
)

// UpstreamClient is the Modbus client-role wiring used by the Sync Engine's
// upstream fan-out and explicit read_node bypass (spec §4.6 steps 4-5). It
// wraps a simonvetter/modbus Client and encodes/decodes register values
// with a Codec configured independently of the upstream client's own
// endianness knobs, so the same C1 rules apply on both the server and
// client side of this deployment.
type UpstreamClient struct {
	client *modbus.Client
	codec  *codec.Codec
}

// NewUpstreamClient dials nothing yet; call Connect to open the transport.
func NewUpstreamClient(conf *modbus.Configuration, c *codec.Codec) (*UpstreamClient, error) {
	cl, err := modbus.NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("modbusmap: configure upstream client: %w", err)
	}
	return &UpstreamClient{client: cl, codec: c}, nil
}

func (u *UpstreamClient) Connect() error {
	return u.client.Open()
}

func (u *UpstreamClient) Close() error {
	return u.client.Close()
}

func (u *UpstreamClient) WriteCoil(slave uint8, addr uint16, v bool) error {
	if err := u.client.SetUnitID(slave); err != nil {
		return err
	}
	return u.client.WriteCoil(addr, v)
}

func (u *UpstreamClient) ReadCoil(slave uint8, addr uint16) (bool, error) {
	if err := u.client.SetUnitID(slave); err != nil {
		return false, err
	}
	return u.client.ReadCoil(addr)
}

func (u *UpstreamClient) ReadDiscreteInput(slave uint8, addr uint16) (bool, error) {
	if err := u.client.SetUnitID(slave); err != nil {
		return false, err
	}
	return u.client.ReadDiscreteInput(addr)
}

// WriteHoldingRegister encodes v at width through the shared codec and
// writes the resulting register block in one request.
func (u *UpstreamClient) WriteHoldingRegister(slave uint8, addr uint16, v value.Value, width int) error {
	words, err := encodeValue(u.codec, v, width)
	if err != nil {
		return err
	}
	if err := u.client.SetUnitID(slave); err != nil {
		return err
	}
	return u.client.WriteRegisters(addr, words)
}

func (u *UpstreamClient) ReadHoldingRegister(slave uint8, addr uint16, kind value.Kind, width int) (value.Value, error) {
	if err := u.client.SetUnitID(slave); err != nil {
		return value.Value{}, err
	}
	words, err := u.client.ReadRegisters(addr, uint16(width/16), modbus.HoldingRegister)
	if err != nil {
		return value.Value{}, err
	}
	return decodeValue(u.codec, words, kind)
}

func (u *UpstreamClient) ReadInputRegister(slave uint8, addr uint16, kind value.Kind, width int) (value.Value, error) {
	if err := u.client.SetUnitID(slave); err != nil {
		return value.Value{}, err
	}
	words, err := u.client.ReadRegisters(addr, uint16(width/16), modbus.InputRegister)
	if err != nil {
		return value.Value{}, err
	}
	return decodeValue(u.codec, words, kind)
}
