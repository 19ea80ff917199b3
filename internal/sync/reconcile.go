package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/value"
)

// Reconcile runs the per-tick algorithm of spec §4.6 steps 1-4 for a
// single node: read the authoritative source, adopt external mutations,
// fan the value out to the node's other local protocol binding, then to
// the upstream client if one is configured.
func (e *Engine) Reconcile(ctx context.Context, n *plcnode.Node) error {
	read, hasRead, err := e.authoritativeRead(ctx, n)
	if err != nil {
		return err
	}
	if hasRead && e.Telemetry != nil {
		e.Telemetry.IncProtocolRead()
	}
	if hasRead && !read.Equal(n.Value()) {
		e.logger.Warn(fmt.Sprintf("Node %s value updated to %s by external %s source", n.QualifiedName, read.String(), e.ServerRole),
			zap.String("node", n.QualifiedName),
			zap.String("protocol", e.ServerRole.String()))
		n.SetValue(read)
	}

	if err := e.fanOutLocal(ctx, n); err != nil {
		return err
	}
	return e.fanOutUpstream(ctx, n)
}

func (e *Engine) authoritativeRead(ctx context.Context, n *plcnode.Node) (value.Value, bool, error) {
	switch e.ServerRole {
	case RoleOPCUA:
		if n.OPCUA == nil {
			return value.Value{}, false, fmt.Errorf("%w: node %q has no opcua_binding but server_role=OPCUA", ErrMisconfiguredNode, n.QualifiedName)
		}
		v, err := e.OPCUA.Read(n.QualifiedName)
		if err != nil {
			return value.Value{}, false, fmt.Errorf("%w: opcua read %q: %v", ErrProtocolError, n.QualifiedName, err)
		}
		return v, true, nil
	case RoleModbus:
		if n.Modbus == nil {
			return value.Value{}, false, fmt.Errorf("%w: node %q has no modbus_binding but server_role=Modbus", ErrMisconfiguredNode, n.QualifiedName)
		}
		v, err := e.readModbus(n.Modbus)
		if err != nil {
			return value.Value{}, false, fmt.Errorf("%w: modbus read %q: %v", ErrProtocolError, n.QualifiedName, err)
		}
		return v, true, nil
	default:
		return value.Value{}, false, nil
	}
}

func (e *Engine) readModbus(b *plcnode.ModbusBinding) (value.Value, error) {
	switch b.Kind {
	case modbusmap.Coil:
		v, err := e.Modbus.ReadCoil(b.SlaveID, b.Address)
		return value.FromBool(v), err
	case modbusmap.DiscreteInput:
		v, err := e.Modbus.ReadDiscreteInput(b.SlaveID, b.Address)
		return value.FromBool(v), err
	case modbusmap.HoldingRegister:
		return e.Modbus.ReadHoldingRegister(b.SlaveID, b.Address)
	case modbusmap.InputRegister:
		return e.Modbus.ReadInputRegister(b.SlaveID, b.Address)
	default:
		return value.Value{}, fmt.Errorf("sync: unknown modbus kind %v", b.Kind)
	}
}

func (e *Engine) writeModbus(b *plcnode.ModbusBinding, v value.Value) error {
	switch b.Kind {
	case modbusmap.Coil:
		cv, err := value.Coerce(v, value.Bool)
		if err != nil {
			return err
		}
		_, err = e.Modbus.WriteCoil(b.SlaveID, b.Address, cv.Bool())
		return err
	case modbusmap.DiscreteInput:
		cv, err := value.Coerce(v, value.Bool)
		if err != nil {
			return err
		}
		_, err = e.Modbus.WriteDiscreteInput(b.SlaveID, b.Address, cv.Bool())
		return err
	case modbusmap.HoldingRegister:
		_, err := e.Modbus.WriteHoldingRegister(b.SlaveID, b.Address, v)
		return err
	case modbusmap.InputRegister:
		_, err := e.Modbus.WriteInputRegister(b.SlaveID, b.Address, v)
		return err
	default:
		return fmt.Errorf("sync: unknown modbus kind %v", b.Kind)
	}
}

// fanOutLocal writes n's cached value through whichever local bindings
// were not just read as the authoritative source, keeping both protocol
// views coherent (spec §4.6 step 3). A node with no server_role but both
// bindings (a pure relay node) gets both views written.
func (e *Engine) fanOutLocal(ctx context.Context, n *plcnode.Node) error {
	v := n.Value()
	writeOPCUA := n.OPCUA != nil && e.ServerRole != RoleOPCUA
	writeModbus := n.Modbus != nil && e.ServerRole != RoleModbus

	if writeOPCUA {
		if _, err := e.OPCUA.Write(n.QualifiedName, v); err != nil {
			return fmt.Errorf("%w: opcua fan-out %q: %v", ErrProtocolError, n.QualifiedName, err)
		}
	}
	if writeModbus {
		if err := e.writeModbus(n.Modbus, v); err != nil {
			return fmt.Errorf("%w: modbus fan-out %q: %v", ErrProtocolError, n.QualifiedName, err)
		}
	}
	if e.Telemetry != nil {
		if writeOPCUA {
			e.Telemetry.IncProtocolWrite()
		}
		if writeModbus {
			e.Telemetry.IncProtocolWrite()
		}
	}
	return nil
}
