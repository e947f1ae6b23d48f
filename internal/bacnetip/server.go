package bacnetip

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"

	"campussim/internal/bacnetapdu"
	"campussim/internal/clock"
	"campussim/internal/registry"
)

// Server is the BACnet/IP gateway: a UDP listener answering Who-Is,
// ReadProperty, ReadPropertyMultiple and WriteProperty against an
// ObjectDatabase built over the registry, per spec.md §4.I. Service
// logic above the NPDU is delegated to a bacnetapdu.Responder, shared
// with the BACnet/SC gateway.
type Server struct {
	Reg      *registry.Registry
	DB       *bacnetapdu.ObjectDatabase
	Clock    *clock.Clock
	DeviceID uint32
	Logger   *slog.Logger

	responder *bacnetapdu.Responder
	conn      *net.UDPConn
}

// New creates a BACnet/IP gateway over reg, presenting as deviceID.
func New(reg *registry.Registry, db *bacnetapdu.ObjectDatabase, clk *clock.Clock, deviceID int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Reg:      reg,
		DB:       db,
		Clock:    clk,
		DeviceID: uint32(deviceID),
		Logger:   logger,
		responder: &bacnetapdu.Responder{
			Reg:      reg,
			DB:       db,
			Clock:    clk,
			DeviceID: uint32(deviceID),
			Owner:    "bacnetip",
		},
	}
}

// ListenAndServe binds addr (":47808" style) and serves datagrams until
// the connection is closed. A panic while handling one datagram is
// recovered so it cannot take down the tick loop or other gateways
// (spec.md §7).
func (s *Server) ListenAndServe(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("bacnetip: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return fmt.Errorf("bacnetip: listen %s: %w", addr, err)
	}
	s.conn = conn

	buf := make([]byte, 1500)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		packet := make([]byte, n)
		copy(packet, buf[:n])
		go s.handleDatagram(packet, from)
	}
}

// Close stops the listener.
func (s *Server) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Server) handleDatagram(packet []byte, from *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("bacnetip: recovered panic handling datagram", "panic", r, "from", from)
		}
	}()

	if len(packet) < 4 || packet[0] != bvlcTypeBACnetIP {
		return
	}
	function := packet[1]
	if function != bvlcFunctionUnicastNPDU && function != bvlcFunctionBroadcastNPDU {
		return
	}

	npdu := packet[4:]
	if len(npdu) < 2 {
		return
	}
	// Control byte bit 0x80 marks a network-layer message, which this
	// gateway never originates or needs to route; only application
	// messages reach the APDU handler.
	if npdu[1]&0x80 != 0 {
		return
	}
	apdu := npdu[2:]
	if len(apdu) < 1 {
		return
	}

	s.handleAPDU(apdu, from)
}

func (s *Server) handleAPDU(apdu []byte, from *net.UDPAddr) {
	apduType := apdu[0] & 0xF0
	var reply []byte
	switch apduType {
	case bacnetapdu.ApduUnconfirmedRequest:
		reply = s.responder.HandleUnconfirmed(apdu)
	case bacnetapdu.ApduConfirmedRequest:
		reply = s.responder.HandleConfirmed(apdu)
	}
	if reply != nil {
		s.sendUnicast(reply, from)
	}
}

func (s *Server) sendUnicast(apdu []byte, to *net.UDPAddr) {
	var frame bytes.Buffer
	frame.WriteByte(bvlcTypeBACnetIP)
	frame.WriteByte(bvlcFunctionUnicastNPDU)
	frame.WriteByte(0) // length high byte, patched below
	frame.WriteByte(0)
	frame.WriteByte(1) // NPDU version
	frame.WriteByte(npduControlNormal)
	frame.Write(apdu)

	out := frame.Bytes()
	length := uint16(len(out))
	out[2] = byte(length >> 8)
	out[3] = byte(length)

	if _, err := s.conn.WriteToUDP(out, to); err != nil {
		s.Logger.Warn("bacnetip: write failed", "error", err, "to", to)
	}
}
