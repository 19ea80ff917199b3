// Package telemetry tracks a small counter set for the scheduler and
// sync engine, exposed as plain text over /metrics — sized to this
// system, not the dashboard-scale metrics of a flow engine.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Counters is the process-wide counter set.
type Counters struct {
	mu sync.RWMutex

	TicksTotal         int64
	ReconcilesTotal    int64
	ReconcileErrors    int64
	ProtocolReads      int64
	ProtocolWrites     int64
	APIRequestsTotal   int64
	APIErrorsTotal     int64

	startTime time.Time
}

// New returns an empty counter set with its clock started.
func New() *Counters {
	return &Counters{startTime: time.Now()}
}

func (c *Counters) IncTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TicksTotal++
}

func (c *Counters) IncReconcile(failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReconcilesTotal++
	if failed {
		c.ReconcileErrors++
	}
}

func (c *Counters) IncProtocolRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProtocolReads++
}

func (c *Counters) IncProtocolWrite() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProtocolWrites++
}

// Middleware counts every API request/error, fiber-style.
func (c *Counters) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		c.mu.Lock()
		c.APIRequestsTotal++
		if ctx.Response().StatusCode() >= 400 {
			c.APIErrorsTotal++
		}
		c.mu.Unlock()
		return err
	}
}

// PrometheusFormat renders the counter set as Prometheus exposition text.
func (c *Counters) PrometheusFormat() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	uptime := int64(time.Since(c.startTime).Seconds())
	return fmt.Sprintf(`# HELP simplc_ticks_total Total scheduler ticks
# TYPE simplc_ticks_total counter
simplc_ticks_total %d

# HELP simplc_reconciles_total Total per-node reconciliation passes
# TYPE simplc_reconciles_total counter
simplc_reconciles_total %d

# HELP simplc_reconcile_errors_total Reconciliation passes that logged a protocol or misconfiguration error
# TYPE simplc_reconcile_errors_total counter
simplc_reconcile_errors_total %d

# HELP simplc_protocol_reads_total Total authoritative protocol reads
# TYPE simplc_protocol_reads_total counter
simplc_protocol_reads_total %d

# HELP simplc_protocol_writes_total Total local protocol fan-out writes (OPC UA and Modbus views)
# TYPE simplc_protocol_writes_total counter
simplc_protocol_writes_total %d

# HELP simplc_api_requests_total Total REST API requests
# TYPE simplc_api_requests_total counter
simplc_api_requests_total %d

# HELP simplc_api_errors_total REST API requests answered with a 4xx/5xx
# TYPE simplc_api_errors_total counter
simplc_api_errors_total %d

# HELP simplc_uptime_seconds Process uptime in seconds
# TYPE simplc_uptime_seconds gauge
simplc_uptime_seconds %d
`,
		c.TicksTotal, c.ReconcilesTotal, c.ReconcileErrors,
		c.ProtocolReads, c.ProtocolWrites,
		c.APIRequestsTotal, c.APIErrorsTotal, uptime)
}
