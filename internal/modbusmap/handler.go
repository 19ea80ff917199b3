package modbusmap

import (
	"errors"

	"github.com/simonvetter/modbus"
)

// Handler implements modbus.RequestHandler on top of a Map, exposing the
// server side of the Modbus protocol. Discrete inputs and input registers
// are read-only on the wire: the library never routes a write request to
// HandleDiscreteInputs/HandleInputRegisters for those function codes, so
// Open Question (b) is enforced structurally rather than by an explicit
// check here.
type Handler struct {
	Map *Map
}

// NewHandler builds a RequestHandler backed by m.
func NewHandler(m *Map) *Handler {
	return &Handler{Map: m}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return modbus.ErrIllegalDataAddress
	}
	return modbus.ErrServerDeviceFailure
}

func (h *Handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	if req.IsWrite {
		out := make([]bool, len(req.Args))
		for i, v := range req.Args {
			nv, err := h.Map.WriteCoil(req.UnitId, req.Addr+uint16(i), v)
			if err != nil {
				return nil, mapErr(err)
			}
			out[i] = nv
		}
		return out, nil
	}
	out, err := h.Map.RawReadCoils(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (h *Handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	out, err := h.Map.RawReadDiscreteInputs(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (h *Handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	if req.IsWrite {
		if err := h.Map.RawWriteHoldingRegisters(req.UnitId, req.Addr, req.Args); err != nil {
			return nil, mapErr(err)
		}
		return nil, nil
	}
	out, err := h.Map.RawReadHoldingRegisters(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (h *Handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	out, err := h.Map.RawReadInputRegisters(req.UnitId, req.Addr, req.Quantity)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}
