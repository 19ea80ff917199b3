package modbusmap

import (
	"sort"
	"sync"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/value"
)

// tableSize matches the 65,534-entry register space mandated for each of
// the four Modbus tables per slave.
const tableSize = 65534

// entry records the declared width/kind of a register allocation so that
// later reads can decode the raw words correctly. Bool tables (coils,
// discrete inputs) don't need one: every occupied slot is a single bit.
type entry struct {
	width int
	kind  value.Kind
}

// table is one of the four register spaces belonging to a slave: a linear
// array plus a parallel occupancy bitmap, guarded by its own mutex so that
// reads and writes of a multi-word value are atomic at the word-group
// level.
type table struct {
	mu       sync.Mutex
	bools    []bool
	words    []uint16
	occupied []bool
	entries  map[uint16]entry
}

func newTable() *table {
	return &table{
		bools:    make([]bool, tableSize),
		words:    make([]uint16, tableSize),
		occupied: make([]bool, tableSize),
		entries:  make(map[uint16]entry),
	}
}

func (t *table) addBool(addr uint16, v bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.occupied[addr] {
		return ErrAlreadyOccupied
	}
	t.bools[addr] = v
	t.occupied[addr] = true
	return nil
}

func (t *table) readBool(addr uint16) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.occupied[addr] {
		return false, ErrNotFound
	}
	return t.bools[addr], nil
}

func (t *table) writeBool(addr uint16, v bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.occupied[addr] {
		return false, ErrNotFound
	}
	t.bools[addr] = v
	return t.bools[addr], nil
}

func (t *table) rawReadBools(addr, n uint16) ([]bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]bool, n)
	for i := uint16(0); i < n; i++ {
		if !t.occupied[addr+i] {
			return nil, ErrNotFound
		}
		out[i] = t.bools[addr+i]
	}
	return out, nil
}

func (t *table) rawWriteBools(addr uint16, vals []bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range vals {
		if !t.occupied[int(addr)+i] {
			return ErrNotFound
		}
	}
	for i, v := range vals {
		t.bools[int(addr)+i] = v
	}
	return nil
}

func encodeValue(c *codec.Codec, v value.Value, width int) ([]uint16, error) {
	switch v.Kind() {
	case value.Int:
		return c.EncodeInt(v.Int(), width)
	case value.Float:
		return c.EncodeFloat(v.Float(), width)
	default:
		return nil, codec.ErrUnsupported
	}
}

func decodeValue(c *codec.Codec, words []uint16, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.Int:
		iv, err := c.DecodeInt(words)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromInt(iv), nil
	case value.Float:
		fv, err := c.DecodeFloat(words)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromFloat(fv), nil
	default:
		return value.Value{}, codec.ErrUnsupported
	}
}

func (t *table) addRegister(c *codec.Codec, addr uint16, v value.Value, width int) error {
	n := width / 16
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < n; i++ {
		if t.occupied[int(addr)+i] {
			return ErrAlreadyOccupied
		}
	}
	words, err := encodeValue(c, v, width)
	if err != nil {
		return err
	}
	for i, w := range words {
		t.words[int(addr)+i] = w
		t.occupied[int(addr)+i] = true
	}
	t.entries[addr] = entry{width: width, kind: v.Kind()}
	return nil
}

func (t *table) readRegister(c *codec.Codec, addr uint16) (value.Value, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[addr]
	if !ok {
		return value.Value{}, ErrNotFound
	}
	words := make([]uint16, e.width/16)
	copy(words, t.words[int(addr):int(addr)+e.width/16])
	return decodeValue(c, words, e.kind)
}

func (t *table) writeRegister(c *codec.Codec, addr uint16, v value.Value) (value.Value, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[addr]
	if !ok {
		return value.Value{}, ErrNotFound
	}
	cv, err := value.Coerce(v, e.kind)
	if err != nil {
		return value.Value{}, err
	}
	words, err := encodeValue(c, cv, e.width)
	if err != nil {
		return value.Value{}, err
	}
	// install as a contiguous block only after every word has encoded
	// successfully, so concurrent reads never see a half-written value.
	for i, w := range words {
		t.words[int(addr)+i] = w
	}
	return decodeValue(c, words, e.kind)
}

func (t *table) rawRead(addr, n uint16) ([]uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint16, n)
	for i := uint16(0); i < n; i++ {
		if !t.occupied[addr+i] {
			return nil, ErrNotFound
		}
		out[i] = t.words[addr+i]
	}
	return out, nil
}

// boolAddresses returns the occupied addresses of a coil/discrete-input
// table in ascending order, for introspection endpoints.
func (t *table) boolAddresses() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []uint16
	for addr, occ := range t.occupied {
		if occ {
			out = append(out, uint16(addr))
		}
	}
	return out
}

// registerAddresses returns the occupied register-start addresses of a
// holding-register/input-register table in ascending order.
func (t *table) registerAddresses() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint16, 0, len(t.entries))
	for addr := range t.entries {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *table) rawWrite(addr uint16, words []uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range words {
		if !t.occupied[int(addr)+i] {
			return ErrNotFound
		}
	}
	for i, w := range words {
		t.words[int(addr)+i] = w
	}
	return nil
}
