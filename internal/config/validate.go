package config

import (
	"fmt"
)

// Validate enforces the interface constraints of spec §6/§4.6: at least
// one role, server and client must differ, and the transport config
// for whichever roles are active must be present.
func (c *Config) Validate() error {
	if c.Server == "" && c.Client == "" {
		return fmt.Errorf("%w: at least one of server/client must be set", ErrConfigInvalid)
	}
	if c.Server != "" && c.Server == c.Client {
		return fmt.Errorf("%w: server and client cannot both be %q", ErrConfigInvalid, c.Server)
	}
	if c.Server != "" && c.Server != "OPCUA" && c.Server != "ModBus" {
		return fmt.Errorf("%w: server must be OPCUA, ModBus or empty, got %q", ErrConfigInvalid, c.Server)
	}
	if c.Client != "" && c.Client != "OPCUA" && c.Client != "ModBus" {
		return fmt.Errorf("%w: client must be OPCUA, ModBus or empty, got %q", ErrConfigInvalid, c.Client)
	}

	if c.Server == "OPCUA" && c.OPCUAServer == nil {
		return fmt.Errorf("%w: opcua_server_config is missing for server=OPCUA", ErrConfigInvalid)
	}
	if c.Client == "OPCUA" && c.OPCUAClient == nil {
		return fmt.Errorf("%w: opcua_client_config is missing for client=OPCUA", ErrConfigInvalid)
	}
	if c.Server == "ModBus" && c.ModbusServer == nil {
		return fmt.Errorf("%w: modbus_server_config is missing for server=ModBus", ErrConfigInvalid)
	}
	if c.Client == "ModBus" && c.ModbusClient == nil {
		return fmt.Errorf("%w: modbus_client_config is missing for client=ModBus", ErrConfigInvalid)
	}

	if len(c.Nodes) > 0 && c.Server == "" {
		return fmt.Errorf("%w: nodes cannot be defined without a server role", ErrConfigInvalid)
	}

	if c.ModbusServer != nil {
		if err := validateModbusTransport(c.ModbusServer); err != nil {
			return err
		}
		if c.ModbusServer.Type == "serial" {
			return fmt.Errorf("%w: modbus_server_config cannot use the serial transport", ErrConfigInvalid)
		}
	}
	if c.ModbusClient != nil {
		if err := validateModbusTransport(c.ModbusClient); err != nil {
			return err
		}
	}

	for _, n := range c.Nodes {
		if err := validateNode(n); err != nil {
			return err
		}
	}

	return nil
}

func validateModbusTransport(m *ModbusConfig) error {
	switch m.Type {
	case "tcp", "udp":
	case "tls":
		if m.Certificate == "" {
			return fmt.Errorf("%w: tls transport requires certificate", ErrConfigInvalid)
		}
		if m.Key == "" {
			return fmt.Errorf("%w: tls transport requires key", ErrConfigInvalid)
		}
	case "serial":
		if m.SerialPort == "" {
			return fmt.Errorf("%w: serial transport requires port_name", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown modbus transport %q", ErrConfigInvalid, m.Type)
	}
	if m.ByteOrder != "" && m.ByteOrder != "big" && m.ByteOrder != "little" {
		return fmt.Errorf("%w: byte_order must be big or little, got %q", ErrConfigInvalid, m.ByteOrder)
	}
	if m.WordOrder != "" && m.WordOrder != "big" && m.WordOrder != "little" {
		return fmt.Errorf("%w: word_order must be big or little, got %q", ErrConfigInvalid, m.WordOrder)
	}
	return nil
}

func validateNode(n NodeConfig) error {
	if n.QualifiedName == "" {
		return fmt.Errorf("%w: node is missing qualified_name", ErrConfigInvalid)
	}
	if n.Modbus == nil && n.OPCUA == nil {
		return fmt.Errorf("%w: node %q needs a modbus or opcua binding", ErrConfigInvalid, n.QualifiedName)
	}
	if n.Modbus != nil {
		switch n.Modbus.Type {
		case "c", "d", "h", "i":
		default:
			return fmt.Errorf("%w: node %q: modbus type must be c|d|h|i, got %q", ErrConfigInvalid, n.QualifiedName, n.Modbus.Type)
		}
		if n.Modbus.RegisterSize != 0 && n.Modbus.RegisterSize != 16 && n.Modbus.RegisterSize != 32 && n.Modbus.RegisterSize != 64 {
			return fmt.Errorf("%w: node %q: register_size must be 16|32|64, got %d", ErrConfigInvalid, n.QualifiedName, n.Modbus.RegisterSize)
		}
		_, isBool := n.Value.(bool)
		switch n.Modbus.Type {
		case "c", "d":
			if !isBool {
				return fmt.Errorf("%w: node %q: coil/discrete_input requires a boolean value", ErrConfigInvalid, n.QualifiedName)
			}
		case "h", "i":
			if isBool {
				return fmt.Errorf("%w: node %q: register requires an integer or float value", ErrConfigInvalid, n.QualifiedName)
			}
		}
	}
	return nil
}
