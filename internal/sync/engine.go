// Package sync implements the sync engine (C6): the per-node reconciler
// that keeps a node's OPC UA view, Modbus view, registry cache and
// (optionally) an upstream device coherent every tick.
package sync

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/scheduler"
	"github.com/sdplc-io/simplc/internal/telemetry"
)

// Role names the protocol a deployment serves or consumes. North/South are
// the configuration vocabulary's synonyms for server/client roles.
type Role int

const (
	RoleNone Role = iota
	RoleOPCUA
	RoleModbus
)

func (r Role) String() string {
	switch r {
	case RoleOPCUA:
		return "OPCUA"
	case RoleModbus:
		return "Modbus"
	default:
		return "None"
	}
}

// ReconcilerPriority places the per-node reconciler right after top
// priority startup events and before priority-2 user simulation logic.
const ReconcilerPriority = 1

// ReconcilerHorizon is the Until of the always-on reconciler events: they
// never expire on their own, only when the process shuts down.
const ReconcilerHorizon = math.MaxFloat64

// Engine is the sync engine instance for one PLC deployment.
type Engine struct {
	Registry *plcnode.Registry
	Modbus   *modbusmap.Map
	OPCUA    *opcspace.Adapter

	ServerRole Role
	ClientRole Role

	ModbusUpstream *modbusmap.UpstreamClient
	OPCUAUpstream  *opcspace.UpstreamClient

	Telemetry *telemetry.Counters

	logger *zap.Logger
}

// NewEngine validates the role constraint and builds an Engine.
func NewEngine(reg *plcnode.Registry, m *modbusmap.Map, o *opcspace.Adapter, serverRole, clientRole Role, logger *zap.Logger) (*Engine, error) {
	if serverRole != RoleNone && serverRole == clientRole {
		return nil, fmt.Errorf("%w: both set to %s", ErrRoleConflict, serverRole)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Registry:   reg,
		Modbus:     m,
		OPCUA:      o,
		ServerRole: serverRole,
		ClientRole: clientRole,
		logger:     logger,
	}, nil
}

// RegisterReconcilers schedules one always-on, priority-1 reconciler event
// per node currently in the registry.
func (e *Engine) RegisterReconcilers(s *scheduler.Scheduler) {
	for _, n := range e.Registry.All() {
		node := n
		s.Schedule(scheduler.EventSpec{
			At:       0,
			Until:    ReconcilerHorizon,
			Priority: ReconcilerPriority,
			Label:    fmt.Sprintf("reconcile:%s", node.QualifiedName),
			Action: func(ctx context.Context, t float64) error {
				return e.tick(ctx, node)
			},
		})
	}
}

// tick runs one reconciliation pass for n, translating the taxonomy of
// sync errors into the per-node failure-isolation behaviour spec §7
// requires: MisconfiguredNode stalls the node, ProtocolError is logged and
// retried, anything else propagates (a programming error, not a runtime
// fact about the wire).
func (e *Engine) tick(ctx context.Context, n *plcnode.Node) error {
	if n.Stalled() {
		return nil
	}
	err := e.Reconcile(ctx, n)
	if e.Telemetry != nil {
		e.Telemetry.IncReconcile(err != nil)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMisconfiguredNode):
		n.MarkStalled()
		e.logger.Error("node misconfigured for configured role, reconciler removed",
			zap.String("node", n.QualifiedName), zap.Error(err))
		return nil
	case errors.Is(err, ErrProtocolError):
		e.logger.Error("protocol error during reconciliation, retrying next tick",
			zap.String("node", n.QualifiedName), zap.Error(err))
		return nil
	default:
		return err
	}
}
