// Package simplc wires the codec, memory map, address space, node
// registry, scheduler and sync engine into one owning struct. Spec §9
// calls out the original's `simPLC`/`modbusServer`/`opcuaServer`
// process-wide singletons for re-architecture; PLC is that replacement —
// instantiated once by cmd/simplc and passed by reference, so tests can
// build isolated instances of their own.
package simplc

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/simonvetter/modbus"
	serial "go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/config"
	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/scheduler"
	"github.com/sdplc-io/simplc/internal/sync"
	"github.com/sdplc-io/simplc/internal/telemetry"
	"github.com/sdplc-io/simplc/internal/value"
)

const stepGrain = 0.1 // logical seconds advanced per scheduler tick

// PLC is one running simulated controller instance: the four storage
// components (C1-C4), the scheduler (C5) and the sync engine (C6), plus
// whatever upstream client connections the configured client role opens.
type PLC struct {
	Config *config.Config

	Codec     *codec.Codec
	Modbus    *modbusmap.Map
	OPCUA     *opcspace.Adapter
	Registry  *plcnode.Registry
	Scheduler *scheduler.Scheduler
	Engine    *sync.Engine
	Telemetry *telemetry.Counters

	modbusServer *modbusmap.Server
	logger       *zap.Logger
}

// New builds a PLC from cfg: it constructs C1-C4, registers every
// configured node, and builds the sync engine. It does not start the
// scheduler or any wire-protocol listener, and does not dial any upstream
// client connection; call Start for that.
func New(cfg *config.Config, logger *zap.Logger) (*PLC, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	byteOrder, wordOrder := registerOrders(cfg)
	c := codec.New(byteOrder, wordOrder)

	m := modbusmap.NewMap(c)
	o := opcspace.NewAdapter()
	reg := plcnode.NewRegistry(m, o)

	for _, nc := range cfg.Nodes {
		if _, err := reg.AddNode(toNodeSpec(nc)); err != nil {
			return nil, fmt.Errorf("simplc: add_node %q: %w", nc.QualifiedName, err)
		}
	}

	serverRole, err := roleFromConfig(cfg.Server)
	if err != nil {
		return nil, err
	}
	clientRole, err := roleFromConfig(cfg.Client)
	if err != nil {
		return nil, err
	}

	eng, err := sync.NewEngine(reg, m, o, serverRole, clientRole, logger)
	if err != nil {
		return nil, err
	}

	tel := telemetry.New()
	eng.Telemetry = tel

	sched := scheduler.New(stepGrain, logger)
	sched.SetTelemetry(tel)

	p := &PLC{
		Config:    cfg,
		Codec:     c,
		Modbus:    m,
		OPCUA:     o,
		Registry:  reg,
		Scheduler: sched,
		Engine:    eng,
		Telemetry: tel,
		logger:    logger,
	}
	return p, nil
}

func roleFromConfig(name string) (sync.Role, error) {
	switch name {
	case "":
		return sync.RoleNone, nil
	case "OPCUA":
		return sync.RoleOPCUA, nil
	case "ModBus":
		return sync.RoleModbus, nil
	default:
		return sync.RoleNone, fmt.Errorf("%w: unknown role %q", config.ErrConfigInvalid, name)
	}
}

func registerOrders(cfg *config.Config) (codec.ByteOrder, codec.WordOrder) {
	mc := cfg.ModbusServer
	if mc == nil {
		mc = cfg.ModbusClient
	}
	if mc == nil {
		return codec.BigEndian, codec.WordBigEndian
	}
	bo := codec.BigEndian
	if mc.ByteOrder == "little" {
		bo = codec.LittleEndian
	}
	wo := codec.WordBigEndian
	if mc.WordOrder == "little" {
		wo = codec.WordLittleEndian
	}
	return bo, wo
}

// namespaceURI turns a config-supplied short namespace name (the original
// tool's plain "root" default) into an absolute URI, the form
// opcspace.RegisterNamespace requires; a value already carrying a scheme
// is used unchanged.
func namespaceURI(name string) string {
	if name == "" {
		name = "root"
	}
	if strings.Contains(name, "://") {
		return name
	}
	return "urn:simplc:" + name
}

func toNodeSpec(nc config.NodeConfig) plcnode.NodeSpec {
	spec := plcnode.NodeSpec{QualifiedName: nc.QualifiedName}

	if v, err := value.FromInterface(nc.Value); err == nil {
		spec.Value = v
	}

	if nc.OPCUA != nil {
		spec.OPCUA = &plcnode.OPCUASpec{
			NamespaceURI:              namespaceURI(nc.OPCUA.Namespace),
			ParentObjectQualifiedName: nc.OPCUA.NodeQualifiedName,
			Writable:                  true,
		}
	}

	if nc.Modbus != nil {
		spec.Modbus = &plcnode.ModbusSpec{
			SlaveID:       nc.Modbus.Slave,
			Address:       nc.Modbus.Address,
			Kind:          modbusKind(nc.Modbus.Type),
			RegisterWidth: registerWidth(nc.Modbus),
		}
	}

	return spec
}

func modbusKind(t string) modbusmap.Kind {
	switch t {
	case "c":
		return modbusmap.Coil
	case "d":
		return modbusmap.DiscreteInput
	case "h":
		return modbusmap.HoldingRegister
	case "i":
		return modbusmap.InputRegister
	default:
		return modbusmap.Coil
	}
}

func registerWidth(m *config.ModbusNodeConfig) int {
	if m.RegisterSize != 0 {
		return m.RegisterSize
	}
	return 16
}

// Start starts the configured server-role wire-protocol listener (only
// Modbus has one in this stack; the OPC UA server role is served purely
// out of the in-memory address space and the REST/WS surface, since
// gopcua/opcua exposes no server-side binary transport), dials any
// client-role upstream connection, registers the per-node reconcilers and
// runs the scheduler loop until ctx is cancelled.
func (p *PLC) Start(ctx context.Context) error {
	if p.Engine.ServerRole == sync.RoleModbus {
		if err := p.startModbusServer(); err != nil {
			return err
		}
	}

	if p.Engine.ClientRole == sync.RoleModbus {
		if err := p.dialModbusUpstream(); err != nil {
			return err
		}
	}
	if p.Engine.ClientRole == sync.RoleOPCUA {
		if err := p.dialOPCUAUpstream(ctx); err != nil {
			return err
		}
	}

	p.Engine.RegisterReconcilers(p.Scheduler)
	return p.Scheduler.Run(ctx)
}

// Stop halts the scheduler and closes any open listener or upstream
// client connection.
func (p *PLC) Stop() {
	p.Scheduler.Stop()
	if p.modbusServer != nil {
		_ = p.modbusServer.Stop()
	}
	if p.Engine.ModbusUpstream != nil {
		_ = p.Engine.ModbusUpstream.Close()
	}
	if p.Engine.OPCUAUpstream != nil {
		_ = p.Engine.OPCUAUpstream.Close(context.Background())
	}
}

func (p *PLC) startModbusServer() error {
	mc := p.Config.ModbusServer
	if mc == nil {
		return fmt.Errorf("%w: server=ModBus requires modbus_server_config", config.ErrConfigInvalid)
	}

	h := modbusmap.NewHandler(p.Modbus)
	srv, err := modbusmap.NewServer(h, 5*time.Second, 0, nil)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", mc.Address, mc.Port)
	listener, err := modbusListener(mc, addr)
	if err != nil {
		return err
	}

	p.modbusServer = srv
	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil {
			p.logger.Error("modbus server stopped", zap.Error(serveErr))
		}
	}()
	return nil
}

func modbusListener(mc *config.ModbusConfig, addr string) (net.Listener, error) {
	switch mc.Type {
	case "udp":
		return modbusmap.NewUDPListener(addr)
	case "tls":
		return modbusmap.NewTLSListener(addr, modbusmap.TLSConfig{
			CertFile: mc.Certificate,
			KeyFile:  mc.Key,
			CAFile:   mc.CA,
		})
	default:
		return modbusmap.NewTCPListener(addr)
	}
}

// modbusClientConfig builds the simonvetter/modbus client Configuration
// from a modbus_client_config block, covering both the IP transports
// (URL of the form "tcp://host:port") and the serial/RTU transport.
func modbusClientConfig(mc *config.ModbusConfig) (*modbus.Configuration, error) {
	if mc.Type == "serial" {
		return &modbus.Configuration{
			URL:      fmt.Sprintf("rtu://%s", mc.SerialPort),
			Speed:    mc.Baudrate,
			DataBits: mc.Bytesize,
			Parity:   serialParity(mc.Parity),
			StopBits: serialStopBits(mc.Stopbits),
		}, nil
	}
	return &modbus.Configuration{
		URL:     fmt.Sprintf("%s://%s:%d", mc.Type, mc.Address, mc.Port),
		Timeout: 5 * time.Second,
	}, nil
}

func serialParity(p string) serial.Parity {
	switch p {
	case "E":
		return serial.EvenParity
	case "O":
		return serial.OddParity
	case "M":
		return serial.MarkParity
	case "S":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func serialStopBits(n int) serial.StopBits {
	switch n {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func (p *PLC) dialModbusUpstream() error {
	mc := p.Config.ModbusClient
	if mc == nil {
		return fmt.Errorf("%w: client=ModBus requires modbus_client_config", config.ErrConfigInvalid)
	}
	conf, err := modbusClientConfig(mc)
	if err != nil {
		return err
	}
	uc, err := modbusmap.NewUpstreamClient(conf, p.Codec)
	if err != nil {
		return err
	}
	if err := uc.Connect(); err != nil {
		return fmt.Errorf("simplc: connect modbus upstream: %w", err)
	}
	p.Engine.ModbusUpstream = uc
	return nil
}

func (p *PLC) dialOPCUAUpstream(ctx context.Context) error {
	oc := p.Config.OPCUAClient
	if oc == nil {
		return fmt.Errorf("%w: client=OPCUA requires opcua_client_config", config.ErrConfigInvalid)
	}
	uc, err := opcspace.DialUpstream(ctx, opcspace.ClientConfig{
		Endpoint:        oc.URL,
		Username:        oc.Username,
		Password:        oc.Password,
		CertificateFile: oc.Certificate,
		PrivateKeyFile:  oc.PrivateKey,
		SecurityPolicy:  oc.SecurityPolicy,
	})
	if err != nil {
		return err
	}
	p.Engine.OPCUAUpstream = uc
	return nil
}
