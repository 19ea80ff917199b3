package sync

import "errors"

var (
	// ErrRoleConflict rejects a configuration where server_role and
	// client_role name the same active protocol (spec §4.6).
	ErrRoleConflict = errors.New("sync: server_role and client_role must differ")
	// ErrMisconfiguredNode is fatal to a single node's reconciler: the
	// node is missing the binding its configured role requires.
	ErrMisconfiguredNode = errors.New("sync: node missing the binding required by the configured role")
	// ErrProtocolError wraps any wire-level failure surfaced by C2/C3 or
	// an upstream client; the reconciler logs it and retries next tick.
	ErrProtocolError = errors.New("sync: protocol error")
)
