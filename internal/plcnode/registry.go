// Package plcnode implements the node registry (C4): the authoritative,
// typed list of process variables, each carrying an optional OPC UA
// binding and/or Modbus binding, delegating storage allocation to the
// opcspace and modbusmap adapters.
package plcnode

import (
	"fmt"
	"sync"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/value"
)

// OPCUASpec is the OPC UA half of a node's configuration at add_node time.
type OPCUASpec struct {
	NamespaceURI              string
	ParentObjectQualifiedName string
	Writable                  bool
}

// ModbusSpec is the Modbus half of a node's configuration at add_node time.
type ModbusSpec struct {
	SlaveID       uint8
	Address       uint16
	Kind          modbusmap.Kind
	RegisterWidth int
}

// NodeSpec describes a node to be added to the registry.
type NodeSpec struct {
	QualifiedName string
	Value         value.Value
	OPCUA         *OPCUASpec
	Modbus        *ModbusSpec
	Parents       []string
	Children      []string
}

// Registry is the append-only collection of every Node known to this PLC
// instance. Nodes are never removed during a run (spec §3.2); the only
// runtime mutation of a registered node is its cached value and, on
// MisconfiguredNode, its stalled flag.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string

	modbus *modbusmap.Map
	opcua  *opcspace.Adapter
}

// NewRegistry builds an empty registry delegating register/address-space
// allocation to m and o.
func NewRegistry(m *modbusmap.Map, o *opcspace.Adapter) *Registry {
	return &Registry{
		nodes:  make(map[string]*Node),
		modbus: m,
		opcua:  o,
	}
}

// Lookup resolves a qualified name to its Node.
func (r *Registry) Lookup(qualifiedName string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[qualifiedName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, qualifiedName)
	}
	return n, nil
}

// All returns every node in registration order.
func (r *Registry) All() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Node, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.nodes[name])
	}
	return out
}

// AddNode validates spec against invariants 1-4 of §3.1, allocates
// backing storage through C2/C3 for whichever bindings are present, and
// registers the resulting Node. The Modbus window-disjointness invariant
// (invariant 5) is enforced by C2's AlreadyOccupied check.
func (r *Registry) AddNode(spec NodeSpec) (*Node, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[spec.QualifiedName]; exists {
		return nil, fmt.Errorf("%w: qualified_name %q already registered", ErrConfigInvalid, spec.QualifiedName)
	}

	node := &Node{
		QualifiedName: spec.QualifiedName,
		Parents:       spec.Parents,
		Children:      spec.Children,
	}
	node.SetValue(spec.Value)

	if spec.OPCUA != nil {
		binding, err := r.bindOPCUA(spec)
		if err != nil {
			return nil, err
		}
		node.OPCUA = binding
	}

	if spec.Modbus != nil {
		binding, err := r.bindModbus(spec)
		if err != nil {
			return nil, err
		}
		node.Modbus = binding
	}

	r.nodes[spec.QualifiedName] = node
	r.order = append(r.order, spec.QualifiedName)
	return node, nil
}

func (r *Registry) bindOPCUA(spec NodeSpec) (*OPCUABinding, error) {
	s := spec.OPCUA
	if _, err := r.opcua.RegisterNamespace(s.NamespaceURI); err != nil {
		return nil, err
	}
	if s.ParentObjectQualifiedName != "" {
		if _, err := r.opcua.RegisterNode(s.ParentObjectQualifiedName, s.NamespaceURI); err != nil {
			return nil, err
		}
	}
	id, err := r.opcua.RegisterVariable(spec.QualifiedName, s.NamespaceURI, s.Writable, spec.Value, s.ParentObjectQualifiedName)
	if err != nil {
		return nil, err
	}
	return &OPCUABinding{
		Namespace:                 s.NamespaceURI,
		ParentObjectQualifiedName: s.ParentObjectQualifiedName,
		AllocatedNodeID:           id,
	}, nil
}

func (r *Registry) bindModbus(spec NodeSpec) (*ModbusBinding, error) {
	s := spec.Modbus
	var err error
	switch s.Kind {
	case modbusmap.Coil:
		err = r.modbus.AddCoil(s.SlaveID, s.Address, spec.Value.Bool())
	case modbusmap.DiscreteInput:
		err = r.modbus.AddDiscreteInput(s.SlaveID, s.Address, spec.Value.Bool())
	case modbusmap.HoldingRegister:
		err = r.modbus.AddHoldingRegister(s.SlaveID, s.Address, spec.Value, s.RegisterWidth)
	case modbusmap.InputRegister:
		err = r.modbus.AddInputRegister(s.SlaveID, s.Address, spec.Value, s.RegisterWidth)
	}
	if err != nil {
		return nil, err
	}
	return &ModbusBinding{
		SlaveID:       s.SlaveID,
		Address:       s.Address,
		Kind:          s.Kind,
		RegisterWidth: s.RegisterWidth,
	}, nil
}

func validateSpec(spec NodeSpec) error {
	if spec.OPCUA == nil && spec.Modbus == nil {
		return fmt.Errorf("%w: node %q needs an opcua_binding or a modbus_binding", ErrConfigInvalid, spec.QualifiedName)
	}
	if spec.Modbus == nil {
		return nil
	}
	switch spec.Modbus.Kind {
	case modbusmap.Coil, modbusmap.DiscreteInput:
		if spec.Value.Kind() != value.Bool {
			return fmt.Errorf("%w: node %q: coil/discrete_input requires a Bool value", ErrConfigInvalid, spec.QualifiedName)
		}
	case modbusmap.HoldingRegister, modbusmap.InputRegister:
		switch spec.Value.Kind() {
		case value.Int:
		case value.Float:
			if spec.Modbus.RegisterWidth != 32 && spec.Modbus.RegisterWidth != 64 {
				return fmt.Errorf("%w: node %q: 16-bit float registers are unsupported", codec.ErrUnsupported, spec.QualifiedName)
			}
		default:
			return fmt.Errorf("%w: node %q: register requires an Int or Float value", ErrConfigInvalid, spec.QualifiedName)
		}
	}
	return nil
}
