package plcnode

import (
	"sync"

	"github.com/gopcua/opcua/ua"

	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/value"
)

// OPCUABinding is a node's OPC UA address, filled in once the variable is
// registered with the address space adapter.
type OPCUABinding struct {
	Namespace                 string
	ParentObjectQualifiedName string
	AllocatedNodeID           *ua.NodeID
}

// ModbusBinding is a node's Modbus register address.
type ModbusBinding struct {
	SlaveID       uint8
	Address       uint16
	Kind          modbusmap.Kind
	RegisterWidth int
}

// Node is the authoritative, typed representation of one process variable.
// Per spec §3.1 a node always carries at least one binding; its scalar
// variant is fixed at creation.
type Node struct {
	QualifiedName string
	OPCUA         *OPCUABinding
	Modbus        *ModbusBinding
	Parents       []string
	Children      []string

	mu      sync.RWMutex
	value   value.Value
	stalled bool
}

// Value returns the node's last-known value.
func (n *Node) Value() value.Value {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.value
}

// SetValue overwrites the cached value without any coercion check; callers
// that accept external input should go through Coerce first.
func (n *Node) SetValue(v value.Value) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.value = v
}

// Kind reports the node's fixed scalar variant.
func (n *Node) Kind() value.Kind {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.value.Kind()
}

// Stalled reports whether the reconciler for this node was removed after a
// MisconfiguredNode error.
func (n *Node) Stalled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stalled
}

// MarkStalled removes this node from reconciliation; it keeps serving its
// last cached value to readers but is never written to again by C6.
func (n *Node) MarkStalled() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stalled = true
}
