// Package modbusmap implements the per-slave Modbus memory map (C2): four
// address-keyed register spaces per slave with occupancy tracking, plus the
// simonvetter/modbus RequestHandler and client wiring that exposes it on
// the wire.
package modbusmap

import (
	"sync"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/value"
)

// Kind distinguishes the four Modbus register spaces a slave owns.
type Kind int

const (
	Coil Kind = iota
	DiscreteInput
	HoldingRegister
	InputRegister
)

// Slave owns the four register spaces for one Modbus unit id.
type Slave struct {
	ID               uint8
	coils            *table
	discreteInputs   *table
	holdingRegisters *table
	inputRegisters   *table
}

func newSlave(id uint8) *Slave {
	return &Slave{
		ID:               id,
		coils:            newTable(),
		discreteInputs:   newTable(),
		holdingRegisters: newTable(),
		inputRegisters:   newTable(),
	}
}

func (s *Slave) table(k Kind) *table {
	switch k {
	case Coil:
		return s.coils
	case DiscreteInput:
		return s.discreteInputs
	case HoldingRegister:
		return s.holdingRegisters
	case InputRegister:
		return s.inputRegisters
	default:
		return nil
	}
}

// Map is the top-level Modbus memory map, keyed by slave id; slaves are
// created lazily on first reference, per spec §3.2.
type Map struct {
	mu     sync.RWMutex
	codec  *codec.Codec
	slaves map[uint8]*Slave
}

// NewMap builds an empty memory map using c to encode/decode register
// values. c is shared across every slave: a single deployment runs one
// byte/word order for its server role.
func NewMap(c *codec.Codec) *Map {
	return &Map{codec: c, slaves: make(map[uint8]*Slave)}
}

// EnsureSlave returns the slave for id, creating it if this is the first
// reference.
func (m *Map) EnsureSlave(id uint8) *Slave {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slaves[id]
	if !ok {
		s = newSlave(id)
		m.slaves[id] = s
	}
	return s
}

func (m *Map) slave(id uint8) (*Slave, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slaves[id]
	return s, ok
}

// Slaves returns the ids of every slave referenced so far, for
// introspection endpoints.
func (m *Map) Slaves() []uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint8, 0, len(m.slaves))
	for id := range m.slaves {
		ids = append(ids, id)
	}
	return ids
}

// AddCoil reserves a single coil slot.
func (m *Map) AddCoil(slave uint8, addr uint16, v bool) error {
	return m.EnsureSlave(slave).coils.addBool(addr, v)
}

// AddDiscreteInput reserves a single discrete-input slot.
func (m *Map) AddDiscreteInput(slave uint8, addr uint16, v bool) error {
	return m.EnsureSlave(slave).discreteInputs.addBool(addr, v)
}

// AddHoldingRegister reserves width/16 consecutive holding-register slots.
func (m *Map) AddHoldingRegister(slave uint8, addr uint16, v value.Value, width int) error {
	return m.EnsureSlave(slave).holdingRegisters.addRegister(m.codec, addr, v, width)
}

// AddInputRegister reserves width/16 consecutive input-register slots.
func (m *Map) AddInputRegister(slave uint8, addr uint16, v value.Value, width int) error {
	return m.EnsureSlave(slave).inputRegisters.addRegister(m.codec, addr, v, width)
}

func (m *Map) ReadCoil(slave uint8, addr uint16) (bool, error) {
	s, ok := m.slave(slave)
	if !ok {
		return false, ErrNotFound
	}
	return s.coils.readBool(addr)
}

func (m *Map) WriteCoil(slave uint8, addr uint16, v bool) (bool, error) {
	s, ok := m.slave(slave)
	if !ok {
		return false, ErrNotFound
	}
	return s.coils.writeBool(addr, v)
}

func (m *Map) ReadDiscreteInput(slave uint8, addr uint16) (bool, error) {
	s, ok := m.slave(slave)
	if !ok {
		return false, ErrNotFound
	}
	return s.discreteInputs.readBool(addr)
}

// WriteDiscreteInput is an internal setter: the simulator may update
// discrete inputs, but this is never reachable from a Modbus wire client
// (no Modbus function code writes discrete inputs).
func (m *Map) WriteDiscreteInput(slave uint8, addr uint16, v bool) (bool, error) {
	s, ok := m.slave(slave)
	if !ok {
		return false, ErrNotFound
	}
	return s.discreteInputs.writeBool(addr, v)
}

func (m *Map) ReadHoldingRegister(slave uint8, addr uint16) (value.Value, error) {
	s, ok := m.slave(slave)
	if !ok {
		return value.Value{}, ErrNotFound
	}
	return s.holdingRegisters.readRegister(m.codec, addr)
}

func (m *Map) WriteHoldingRegister(slave uint8, addr uint16, v value.Value) (value.Value, error) {
	s, ok := m.slave(slave)
	if !ok {
		return value.Value{}, ErrNotFound
	}
	return s.holdingRegisters.writeRegister(m.codec, addr, v)
}

func (m *Map) ReadInputRegister(slave uint8, addr uint16) (value.Value, error) {
	s, ok := m.slave(slave)
	if !ok {
		return value.Value{}, ErrNotFound
	}
	return s.inputRegisters.readRegister(m.codec, addr)
}

// WriteInputRegister is an internal setter mirroring WriteDiscreteInput:
// reachable from simulation fan-out, never from a Modbus wire client.
func (m *Map) WriteInputRegister(slave uint8, addr uint16, v value.Value) (value.Value, error) {
	s, ok := m.slave(slave)
	if !ok {
		return value.Value{}, ErrNotFound
	}
	return s.inputRegisters.writeRegister(m.codec, addr, v)
}

// --- raw wire-level access, used by the RequestHandler ---

func (m *Map) RawReadCoils(slave uint8, addr, n uint16) ([]bool, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.coils.rawReadBools(addr, n)
}

func (m *Map) RawWriteCoils(slave uint8, addr uint16, vals []bool) error {
	s, ok := m.slave(slave)
	if !ok {
		return ErrNotFound
	}
	return s.coils.rawWriteBools(addr, vals)
}

func (m *Map) RawReadDiscreteInputs(slave uint8, addr, n uint16) ([]bool, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.discreteInputs.rawReadBools(addr, n)
}

func (m *Map) RawReadHoldingRegisters(slave uint8, addr, n uint16) ([]uint16, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.holdingRegisters.rawRead(addr, n)
}

func (m *Map) RawWriteHoldingRegisters(slave uint8, addr uint16, words []uint16) error {
	s, ok := m.slave(slave)
	if !ok {
		return ErrNotFound
	}
	return s.holdingRegisters.rawWrite(addr, words)
}

func (m *Map) RawReadInputRegisters(slave uint8, addr, n uint16) ([]uint16, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.inputRegisters.rawRead(addr, n)
}

// --- introspection, used by the REST control surface ---

// ListCoils returns the occupied coil addresses of slave, for introspection.
func (m *Map) ListCoils(slave uint8) ([]uint16, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.coils.boolAddresses(), nil
}

// ListDiscreteInputs returns the occupied discrete-input addresses of slave.
func (m *Map) ListDiscreteInputs(slave uint8) ([]uint16, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.discreteInputs.boolAddresses(), nil
}

// ListHoldingRegisters returns the occupied holding-register start
// addresses of slave.
func (m *Map) ListHoldingRegisters(slave uint8) ([]uint16, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.holdingRegisters.registerAddresses(), nil
}

// ListInputRegisters returns the occupied input-register start addresses
// of slave.
func (m *Map) ListInputRegisters(slave uint8) ([]uint16, error) {
	s, ok := m.slave(slave)
	if !ok {
		return nil, ErrNotFound
	}
	return s.inputRegisters.registerAddresses(), nil
}
