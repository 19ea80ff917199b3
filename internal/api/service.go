// Package api implements the REST control surface (spec §6) plus the
// introspection endpoints and live-value feed recovered from the
// original's router.py (spec §4 supplemented feature 1).
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/scheduler"
	"github.com/sdplc-io/simplc/internal/sync"
	"github.com/sdplc-io/simplc/internal/telemetry"
)

// Service bundles everything a request handler needs to serve the PLC's
// control surface.
type Service struct {
	Registry  *plcnode.Registry
	Modbus    *modbusmap.Map
	OPCUA     *opcspace.Adapter
	Scheduler *scheduler.Scheduler
	Engine    *sync.Engine
	Telemetry *telemetry.Counters
	Hub       *Hub

	logger *zap.Logger
}

// New builds the fiber app, wiring middleware and routes around svc.
func New(svc *Service, logger *zap.Logger) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc.logger = logger
	if svc.Hub == nil {
		svc.Hub = NewHub()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(fiberlogger.New())
	if svc.Telemetry != nil {
		app.Use(svc.Telemetry.Middleware())
	}

	setupRoutes(app, svc)
	return app
}

func setupRoutes(app *fiber.App, svc *Service) {
	app.Get("/health", healthCheck)
	app.Get("/metrics", svc.metrics)

	app.Get("/time/scale", svc.getTimeScale)
	app.Post("/time/scale", svc.setTimeScale)

	app.Get("/variables", svc.listVariables)
	app.Get("/variables/read", svc.readVariable)
	app.Post("/variables/write", svc.writeVariable)

	app.Get("/opcua/namespaces", svc.opcuaNamespaces)
	app.Get("/opcua/nodes", svc.opcuaNodes)
	app.Get("/opcua/nodes/:qualifiedName/variables", svc.opcuaNodeVariables)

	app.Get("/modbus/slaves", svc.modbusSlaves)
	app.Get("/modbus/slaves/:id/coils", svc.modbusCoils)
	app.Get("/modbus/slaves/:id/discrete_inputs", svc.modbusDiscreteInputs)
	app.Get("/modbus/slaves/:id/holding_registers", svc.modbusHoldingRegisters)
	app.Get("/modbus/slaves/:id/input_registers", svc.modbusInputRegisters)

	app.Use("/ws/variables", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/variables", websocket.New(func(c *websocket.Conn) {
		svc.Hub.HandleConn(c)
	}))
}

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": "simplc"})
}
