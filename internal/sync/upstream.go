package sync

import (
	"context"
	"fmt"

	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/value"
)

// fanOutUpstream writes n's cached value to the configured upstream
// client, if any (spec §4.6 step 4). DiscreteInput and InputRegister
// bindings are read-only from the upstream's perspective and are never
// fanned out.
func (e *Engine) fanOutUpstream(ctx context.Context, n *plcnode.Node) error {
	v := n.Value()
	switch e.ClientRole {
	case RoleOPCUA:
		if n.OPCUA == nil || e.OPCUAUpstream == nil {
			return nil
		}
		if err := e.OPCUAUpstream.Write(ctx, n.OPCUA.AllocatedNodeID, v); err != nil {
			return fmt.Errorf("%w: opcua upstream write %q: %v", ErrProtocolError, n.QualifiedName, err)
		}
	case RoleModbus:
		if n.Modbus == nil || e.ModbusUpstream == nil {
			return nil
		}
		switch n.Modbus.Kind {
		case modbusmap.Coil:
			cv, err := value.Coerce(v, value.Bool)
			if err != nil {
				return err
			}
			if err := e.ModbusUpstream.WriteCoil(n.Modbus.SlaveID, n.Modbus.Address, cv.Bool()); err != nil {
				return fmt.Errorf("%w: modbus upstream write %q: %v", ErrProtocolError, n.QualifiedName, err)
			}
		case modbusmap.HoldingRegister:
			if err := e.ModbusUpstream.WriteHoldingRegister(n.Modbus.SlaveID, n.Modbus.Address, v, n.Modbus.RegisterWidth); err != nil {
				return fmt.Errorf("%w: modbus upstream write %q: %v", ErrProtocolError, n.QualifiedName, err)
			}
		case modbusmap.DiscreteInput, modbusmap.InputRegister:
			// read-only upstream; nothing to fan out.
		}
	}
	return nil
}

func (e *Engine) readUpstreamModbus(n *plcnode.Node) (value.Value, error) {
	b := n.Modbus
	switch b.Kind {
	case modbusmap.Coil:
		v, err := e.ModbusUpstream.ReadCoil(b.SlaveID, b.Address)
		return value.FromBool(v), err
	case modbusmap.DiscreteInput:
		v, err := e.ModbusUpstream.ReadDiscreteInput(b.SlaveID, b.Address)
		return value.FromBool(v), err
	case modbusmap.HoldingRegister:
		return e.ModbusUpstream.ReadHoldingRegister(b.SlaveID, b.Address, n.Kind(), b.RegisterWidth)
	case modbusmap.InputRegister:
		return e.ModbusUpstream.ReadInputRegister(b.SlaveID, b.Address, n.Kind(), b.RegisterWidth)
	default:
		return value.Value{}, fmt.Errorf("sync: unknown modbus kind %v", b.Kind)
	}
}

// ReadNode bypasses the authoritative local read and queries the upstream
// client directly (spec §4.6 step 5), adopting the result on success.
func (e *Engine) ReadNode(ctx context.Context, qualifiedName string) (value.Value, error) {
	n, err := e.Registry.Lookup(qualifiedName)
	if err != nil {
		return value.Value{}, err
	}

	switch e.ClientRole {
	case RoleOPCUA:
		if n.OPCUA == nil {
			return value.Value{}, fmt.Errorf("%w: node %q has no opcua_binding", ErrMisconfiguredNode, qualifiedName)
		}
		v, err := e.OPCUAUpstream.Read(ctx, n.OPCUA.AllocatedNodeID, n.Kind())
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: opcua upstream read %q: %v", ErrProtocolError, qualifiedName, err)
		}
		n.SetValue(v)
		return v, nil
	case RoleModbus:
		if n.Modbus == nil {
			return value.Value{}, fmt.Errorf("%w: node %q has no modbus_binding", ErrMisconfiguredNode, qualifiedName)
		}
		v, err := e.readUpstreamModbus(n)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: modbus upstream read %q: %v", ErrProtocolError, qualifiedName, err)
		}
		n.SetValue(v)
		return v, nil
	default:
		return n.Value(), nil
	}
}

// WriteNode is the explicit write path used by the REST control surface:
// it coerces the argument onto the node's declared variant (rejecting a
// genuine type mismatch with TypeError), updates the cache, and fans the
// new value out immediately rather than waiting for the next tick.
func (e *Engine) WriteNode(ctx context.Context, qualifiedName string, v value.Value) (value.Value, error) {
	n, err := e.Registry.Lookup(qualifiedName)
	if err != nil {
		return value.Value{}, err
	}
	cv, err := value.Coerce(v, n.Kind())
	if err != nil {
		return value.Value{}, err
	}
	n.SetValue(cv)
	if err := e.fanOutLocal(ctx, n); err != nil {
		return value.Value{}, err
	}
	if err := e.fanOutUpstream(ctx, n); err != nil {
		return value.Value{}, err
	}
	return cv, nil
}
