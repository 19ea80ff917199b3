// Package opcspace implements the OPC UA address space adapter (C3): an
// in-memory namespace/object/variable directory addressed by qualified
// name, and the upstream OPC UA client wiring used by the client role. The
// OPC UA binary transport and security handshake themselves are treated as
// an external collaborator supplied by gopcua/opcua, per the core's
// non-goals; this package owns only the address-space bookkeeping and the
// read/write contract C4 and C6 rely on.
package opcspace

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/gopcua/opcua/ua"

	"github.com/sdplc-io/simplc/internal/value"
)

// reservedNamespaces accounts for the two namespace indices every OPC UA
// server reserves before user namespaces begin: 0 is the standard OPC UA
// namespace, 1 is the server's own namespace.
const reservedNamespaces = 2

type objectNode struct {
	qualifiedName  string
	namespaceIndex uint16
	nodeID         *ua.NodeID
}

type variableNode struct {
	qualifiedName  string
	namespaceIndex uint16
	nodeID         *ua.NodeID
	writable       bool
	value          value.Value
	parent         string
}

// Adapter is the address space for one OPC UA server role instance. It is
// safe for concurrent use; the Sync Engine and the REST introspection
// endpoints both read it.
type Adapter struct {
	mu         sync.RWMutex
	namespaces map[string]uint16
	nextNS     uint16
	objects    map[string]*objectNode
	variables  map[string]*variableNode
	nextNodeID uint32
}

// NewAdapter builds an empty address space.
func NewAdapter() *Adapter {
	return &Adapter{
		namespaces: make(map[string]uint16),
		nextNS:     reservedNamespaces,
		objects:    make(map[string]*objectNode),
		variables:  make(map[string]*variableNode),
		nextNodeID: 1,
	}
}

// RegisterNamespace assigns uri a namespace index, or returns the existing
// one if uri was already registered. uri must be an absolute URI, either
// hierarchical (opc.tcp://host/path) or opaque (urn:simplc:plant) — the
// two forms OPC UA namespace URIs take in practice.
func (a *Adapter) RegisterNamespace(uri string) (uint16, error) {
	u, err := url.ParseRequestURI(uri)
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Opaque == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNamespace, uri)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx, ok := a.namespaces[uri]; ok {
		return idx, nil
	}
	idx := a.nextNS
	a.nextNS++
	a.namespaces[uri] = idx
	return idx, nil
}

func (a *Adapter) allocNodeID(ns uint16) *ua.NodeID {
	id := a.nextNodeID
	a.nextNodeID++
	return ua.NewNumericNodeID(ns, id)
}

// RegisterNode creates an object node under the server's Objects folder in
// the given namespace, or returns the existing one if qualifiedName was
// already registered — object nodes are commonly shared as the parent of
// several variables, so this call is idempotent by design.
func (a *Adapter) RegisterNode(qualifiedName, namespaceURI string) (*ua.NodeID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.objects[qualifiedName]; ok {
		return existing.nodeID, nil
	}
	idx, ok := a.namespaces[namespaceURI]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNamespaceNotFound, namespaceURI)
	}
	nodeID := a.allocNodeID(idx)
	a.objects[qualifiedName] = &objectNode{
		qualifiedName:  qualifiedName,
		namespaceIndex: idx,
		nodeID:         nodeID,
	}
	return nodeID, nil
}

// RegisterVariable creates a variable node under parent (an object
// qualified name, or "" for a direct Objects-folder child), initialized to
// initial and marked writable when writable is set.
func (a *Adapter) RegisterVariable(qualifiedName, namespaceURI string, writable bool, initial value.Value, parent string) (*ua.NodeID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.namespaces[namespaceURI]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNamespaceNotFound, namespaceURI)
	}
	if parent != "" {
		if _, ok := a.objects[parent]; !ok {
			return nil, fmt.Errorf("%w: parent object %q", ErrNodeNotFound, parent)
		}
	}
	nodeID := a.allocNodeID(idx)
	a.variables[qualifiedName] = &variableNode{
		qualifiedName:  qualifiedName,
		namespaceIndex: idx,
		nodeID:         nodeID,
		writable:       writable,
		value:          initial,
		parent:         parent,
	}
	return nodeID, nil
}

// Read returns the current value of a registered variable.
func (a *Adapter) Read(qualifiedName string) (value.Value, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	vn, ok := a.variables[qualifiedName]
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %q", ErrNodeNotFound, qualifiedName)
	}
	return vn.value, nil
}

// Write sets the value of a registered variable, coercing v onto the
// variable's declared kind.
func (a *Adapter) Write(qualifiedName string, v value.Value) (value.Value, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	vn, ok := a.variables[qualifiedName]
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %q", ErrNodeNotFound, qualifiedName)
	}
	cv, err := value.Coerce(v, vn.value.Kind())
	if err != nil {
		return value.Value{}, err
	}
	vn.value = cv
	return cv, nil
}

// Namespaces returns the registered namespace URI -> index map, for
// introspection endpoints.
func (a *Adapter) Namespaces() map[string]uint16 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]uint16, len(a.namespaces))
	for k, v := range a.namespaces {
		out[k] = v
	}
	return out
}

// Nodes returns the qualified names of every registered object node.
func (a *Adapter) Nodes() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.objects))
	for name := range a.objects {
		out = append(out, name)
	}
	return out
}

// VariablesUnder returns the qualified names of the variables registered
// under objectQualifiedName.
func (a *Adapter) VariablesUnder(objectQualifiedName string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []string
	for name, vn := range a.variables {
		if vn.parent == objectQualifiedName {
			out = append(out, name)
		}
	}
	return out
}
