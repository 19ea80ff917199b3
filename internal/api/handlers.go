package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/sync"
	"github.com/sdplc-io/simplc/internal/value"
)

func (s *Service) metrics(c *fiber.Ctx) error {
	if s.Telemetry == nil {
		return c.SendString("")
	}
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(s.Telemetry.PrometheusFormat())
}

func (s *Service) getTimeScale(c *fiber.Ctx) error {
	if c.Query("scale") != "" {
		return s.setTimeScale(c)
	}
	return c.JSON(fiber.Map{"scale": s.Scheduler.TimeScale()})
}

func (s *Service) setTimeScale(c *fiber.Ctx) error {
	scale, err := strconv.ParseFloat(c.Query("scale"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scale must be numeric"})
	}
	s.Scheduler.SetTimeScale(scale)
	return c.JSON(fiber.Map{"details": "time scale set"})
}

func (s *Service) listVariables(c *fiber.Ctx) error {
	nodes := s.Registry.All()
	out := make([]fiber.Map, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeJSON(n))
	}
	return c.JSON(out)
}

func nodeJSON(n *plcnode.Node) fiber.Map {
	return fiber.Map{
		"qualified_name": n.QualifiedName,
		"value":          n.Value().Interface(),
		"parents":        n.Parents,
		"children":       n.Children,
	}
}

func (s *Service) readVariable(c *fiber.Ctx) error {
	qn := c.Query("qualified_name")
	v, err := s.Engine.ReadNode(context.Background(), qn)
	return s.respondValue(c, v, err)
}

func (s *Service) writeVariable(c *fiber.Ctx) error {
	qn := c.Query("qualified_name")
	raw := c.Query("value")

	n, err := s.Registry.Lookup(qn)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	parsed, err := parseScalar(raw, n.Kind())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	v, err := s.Engine.WriteNode(context.Background(), qn, parsed)
	if err == nil && s.Hub != nil {
		s.Hub.Broadcast(qn, v.Interface())
	}
	return s.respondValue(c, v, err)
}

func parseScalar(raw string, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromBool(b), nil
	case value.Int:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromInt(i), nil
	default:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.FromFloat(f), nil
	}
}

func (s *Service) respondValue(c *fiber.Ctx, v value.Value, err error) error {
	if err == nil {
		return c.JSON(fiber.Map{"value": v.Interface()})
	}
	switch {
	case errors.Is(err, plcnode.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, value.ErrTypeError):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, sync.ErrProtocolError):
		s.logger.Error("protocol error serving request", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func (s *Service) opcuaNamespaces(c *fiber.Ctx) error {
	return c.JSON(s.OPCUA.Namespaces())
}

func (s *Service) opcuaNodes(c *fiber.Ctx) error {
	return c.JSON(s.OPCUA.Nodes())
}

func (s *Service) opcuaNodeVariables(c *fiber.Ctx) error {
	qn := c.Params("qualifiedName")
	return c.JSON(s.OPCUA.VariablesUnder(qn))
}

func (s *Service) modbusSlaves(c *fiber.Ctx) error {
	return c.JSON(s.Modbus.Slaves())
}

func slaveIDParam(c *fiber.Ctx) (uint8, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(id), nil
}

func (s *Service) modbusCoils(c *fiber.Ctx) error {
	id, err := slaveIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid slave id"})
	}
	addrs, err := s.Modbus.ListCoils(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(addrs)
}

func (s *Service) modbusDiscreteInputs(c *fiber.Ctx) error {
	id, err := slaveIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid slave id"})
	}
	addrs, err := s.Modbus.ListDiscreteInputs(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(addrs)
}

func (s *Service) modbusHoldingRegisters(c *fiber.Ctx) error {
	id, err := slaveIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid slave id"})
	}
	addrs, err := s.Modbus.ListHoldingRegisters(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(addrs)
}

func (s *Service) modbusInputRegisters(c *fiber.Ctx) error {
	id, err := slaveIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid slave id"})
	}
	addrs, err := s.Modbus.ListInputRegisters(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(addrs)
}
