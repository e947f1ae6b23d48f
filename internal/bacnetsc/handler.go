package bacnetsc

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"campussim/internal/bacnetapdu"
	"campussim/internal/clock"
	"campussim/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades incoming BACnet/SC connections and answers their
// Encapsulated-NPDU frames against the registry, mirroring the
// teacher's Handler shape (hub + engine reference) with the engine
// swapped for a bacnetapdu.Responder over the point registry.
type Handler struct {
	hub       *Hub
	reg       *registry.Registry
	clock     *clock.Clock
	deviceID  uint32
	responder *bacnetapdu.Responder
	logger    *slog.Logger
}

// NewHandler builds a BACnet/SC handler presenting as deviceID (the
// same BACnet device instance exposed over BACnet/IP) against db.
func NewHandler(hub *Hub, reg *registry.Registry, db *bacnetapdu.ObjectDatabase, clk *clock.Clock, deviceID uint32, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hub:      hub,
		reg:      reg,
		clock:    clk,
		deviceID: deviceID,
		logger:   logger,
		responder: &bacnetapdu.Responder{
			Reg:      reg,
			DB:       db,
			Clock:    clk,
			DeviceID: deviceID,
			Owner:    "bacnetsc",
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("bacnetsc: upgrade failed", "error", err)
		return
	}

	client := &Client{hub: h.hub, conn: conn, send: make(chan []byte, 64)}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	f, err := decodeFrame(raw)
	if err != nil || f.Function != funcConnectRequest {
		h.rejectHandshake(conn, funcConnectRequest, "first frame must be Connect-Request")
		return
	}
	req, err := decodeConnectPayload(f.Payload)
	if err != nil {
		h.rejectHandshake(conn, funcConnectRequest, "malformed Connect-Request payload")
		return
	}
	deviceID := deviceIDFromVMAC(req.VMAC)

	if err := h.hub.Register(client, deviceID); err != nil {
		h.rejectHandshake(conn, funcConnectRequest, err.Error())
		return
	}

	go client.writePump()
	h.sendAccept(client)
	h.readPump(client)
}

func (h *Handler) rejectHandshake(conn *websocket.Conn, rejected byte, reason string) {
	msg := encodeFrame(frame{Function: funcBVLCResult, Payload: encodeResultNAK(rejected, reason)})
	_ = conn.WriteMessage(websocket.BinaryMessage, msg)
	conn.Close()
}

func (h *Handler) sendAccept(c *Client) {
	accept := connectPayload{
		VMAC:       vmacFromDeviceID(h.deviceID),
		MaxBVLCLen: 1476,
		MaxNPDULen: 1476,
	}
	msg := encodeFrame(frame{Function: funcConnectAccept, Payload: encodeConnectPayload(accept)})
	h.deliver(c, msg)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("bacnetsc: recovered panic in connection handler", "panic", r)
		}
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleFrame(c, raw)
	}
}

func (h *Handler) handleFrame(c *Client, raw []byte) {
	f, err := decodeFrame(raw)
	if err != nil {
		return
	}

	switch f.Function {
	case funcEncapsulatedNPDU:
		h.handleEncapsulatedNPDU(c, f)
	case funcHeartbeatRequest:
		h.deliver(c, encodeFrame(frame{Function: funcHeartbeatACK, MessageID: f.MessageID}))
	case funcDisconnectRequest:
		h.deliver(c, encodeFrame(frame{Function: funcDisconnectACK, MessageID: f.MessageID}))
		c.conn.Close()
	default:
		h.logger.Warn("bacnetsc: unhandled BVLC-SC function", "function", f.Function)
	}
}

// handleEncapsulatedNPDU strips the NPDU header and answers the
// wrapped APDU against the shared bacnetapdu.Responder, exactly as
// internal/bacnetip does after stripping its own BVLC/NPDU header.
func (h *Handler) handleEncapsulatedNPDU(c *Client, f frame) {
	npdu := f.Payload
	if len(npdu) < 2 {
		return
	}
	if npdu[1]&0x80 != 0 {
		// network-layer message; this gateway never originates or
		// routes them.
		return
	}
	apdu := npdu[2:]
	if len(apdu) < 1 {
		return
	}

	apduType := apdu[0] & 0xF0
	var reply []byte
	switch apduType {
	case bacnetapdu.ApduUnconfirmedRequest:
		reply = h.responder.HandleUnconfirmed(apdu)
	case bacnetapdu.ApduConfirmedRequest:
		reply = h.responder.HandleConfirmed(apdu)
	}
	if reply == nil {
		return
	}

	var out bytes.Buffer
	out.WriteByte(1) // NPDU version
	out.WriteByte(npduControlNormal)
	out.Write(reply)
	h.deliver(c, encodeFrame(frame{Function: funcEncapsulatedNPDU, MessageID: f.MessageID, Payload: out.Bytes()}))
}

func (h *Handler) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("bacnetsc: client send buffer full, dropping message")
	}
}
