package modbusmap

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
)

// Server owns the lifecycle of the Modbus wire-protocol listener for the
// server role; it is a thin wrapper over modbus.ModbusServer binding it to
// one of the transport listeners below.
type Server struct {
	ms       *modbus.ModbusServer
	listener net.Listener
}

// NewServer builds a Modbus server backed by h. timeout and maxClients of
// zero fall back to the library's defaults.
func NewServer(h *Handler, timeout time.Duration, maxClients uint, logger modbus.LeveledLogger) (*Server, error) {
	opts := []modbus.Option{}
	if timeout > 0 {
		opts = append(opts, modbus.Timeout(timeout))
	}
	if maxClients > 0 {
		opts = append(opts, modbus.MaxClients(maxClients))
	}
	if logger != nil {
		opts = append(opts, modbus.Logger(logger))
	}
	ms, err := modbus.New(h, opts...)
	if err != nil {
		return nil, fmt.Errorf("modbusmap: build server: %w", err)
	}
	return &Server{ms: ms}, nil
}

// Serve starts accepting client connections over l; l may be built with
// NewTCPListener, NewTLSListener or NewUDPListener below.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	return s.ms.Start(l)
}

// Stop closes the listener and every active client session.
func (s *Server) Stop() error {
	return s.ms.Stop()
}

// NewTCPListener builds a plain TCP listener for the Modbus/TCP transport.
func NewTCPListener(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("modbusmap: tcp listen: %w", err)
	}
	return l, nil
}

// TLSConfig describes the certificate material for the Modbus/TLS
// transport. CAFile is optional and, when set, enables mutual TLS.
type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

// NewTLSListener builds a TLS-wrapped TCP listener for the Modbus/TLS
// transport.
func NewTLSListener(addr string, cfg TLSConfig) (net.Listener, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, errors.New("modbusmap: tls transport requires certificate and key")
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("modbusmap: load tls keypair: %w", err)
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("modbusmap: read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("modbusmap: no certificates parsed from ca bundle")
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	l, err := tls.Listen("tcp", addr, tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("modbusmap: tls listen: %w", err)
	}
	return l, nil
}

// udpListener adapts a single connectionless UDP socket to the
// net.Listener interface the server expects, matching Modbus/UDP's
// single-socket, no-handshake transport model: Accept hands back the same
// underlying connection once, then blocks until Close.
type udpListener struct {
	conn   *net.UDPConn
	once   sync.Once
	served chan struct{}
	closed chan struct{}
}

// NewUDPListener builds a Modbus/UDP transport listener.
func NewUDPListener(addr string) (net.Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("modbusmap: resolve udp addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("modbusmap: udp listen: %w", err)
	}
	return &udpListener{conn: conn, served: make(chan struct{}), closed: make(chan struct{})}, nil
}

func (l *udpListener) Accept() (net.Conn, error) {
	var handed bool
	l.once.Do(func() { handed = true; close(l.served) })
	if handed {
		return l.conn, nil
	}
	<-l.closed
	return nil, errors.New("modbusmap: udp listener closed")
}

func (l *udpListener) Close() error {
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
	return l.conn.Close()
}

func (l *udpListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}
