// Package bacnetsc implements the BACnet/SC gateway: a WebSocket
// endpoint carrying the BVLC-SC Connect-Request/Connect-Accept
// handshake and then a stream of Encapsulated-NPDU frames carrying
// real BACnet APDUs, per spec.md §4.J/§6. Service logic above the
// APDU is shared with the BACnet/IP gateway via internal/bacnetapdu.
// The hub/client shape is adapted from the teacher repo's internal/ws
// package; only the message vocabulary changes, from simulator
// telemetry envelopes to BVLC-SC frames.
package bacnetsc

import (
	"encoding/binary"
	"fmt"
)

// BVLC-SC function codes (BACnet/SC, ASHRAE 135 clause 12, Table
// 12-1), restricted to the subset this gateway exchanges. Every
// connection on this gateway goes directly to the one hub, so no
// message ever carries the optional Destination/Origin VMAC or
// broadcast-relay header options clause 12 allows -- the control byte
// that would announce them is always 0x00, which correctly signals
// their absence rather than silently dropping them.
const (
	funcBVLCResult        byte = 0x00
	funcEncapsulatedNPDU  byte = 0x01
	funcConnectRequest    byte = 0x06
	funcConnectAccept     byte = 0x07
	funcDisconnectRequest byte = 0x08
	funcDisconnectACK     byte = 0x09
	funcHeartbeatRequest  byte = 0x0A
	funcHeartbeatACK      byte = 0x0B
)

// BVLC-Result result codes (clause 12.5).
const (
	resultACK byte = 0x00
	resultNAK byte = 0x01
)

// NPDU control field for the Encapsulated-NPDU payload; BASim never
// originates or routes network-layer messages over BACnet/SC, only
// application data, same as the BACnet/IP gateway.
const npduControlNormal byte = 0x00

const bvlcSCHeaderLen = 4 // Function(1) + Control(1) + Message ID(2)

// frame is one decoded BVLC-SC message.
type frame struct {
	Function  byte
	MessageID uint16
	Payload   []byte
}

func decodeFrame(b []byte) (frame, error) {
	if len(b) < bvlcSCHeaderLen {
		return frame{}, fmt.Errorf("bacnetsc: frame shorter than the BVLC-SC header")
	}
	return frame{
		Function:  b[0],
		MessageID: binary.BigEndian.Uint16(b[2:4]),
		Payload:   b[bvlcSCHeaderLen:],
	}, nil
}

func encodeFrame(f frame) []byte {
	out := make([]byte, bvlcSCHeaderLen+len(f.Payload))
	out[0] = f.Function
	out[1] = 0x00 // control: no addresses, no header options present
	binary.BigEndian.PutUint16(out[2:4], f.MessageID)
	copy(out[bvlcSCHeaderLen:], f.Payload)
	return out
}

// connectPayload is the Connect-Request/Connect-Accept body: a 6-byte
// VMAC identifying the device, and the max BVLC/NPDU lengths it will
// accept (clause 12.13/12.14). BASim derives its VMAC from the
// device's 32-bit BACnet device instance, zero-padded in the two
// high-order bytes.
type connectPayload struct {
	VMAC       [6]byte
	MaxBVLCLen uint16
	MaxNPDULen uint16
}

func vmacFromDeviceID(id uint32) [6]byte {
	var vmac [6]byte
	binary.BigEndian.PutUint32(vmac[2:6], id)
	return vmac
}

func deviceIDFromVMAC(vmac [6]byte) uint32 {
	return binary.BigEndian.Uint32(vmac[2:6])
}

func encodeConnectPayload(p connectPayload) []byte {
	out := make([]byte, 10)
	copy(out[0:6], p.VMAC[:])
	binary.BigEndian.PutUint16(out[6:8], p.MaxBVLCLen)
	binary.BigEndian.PutUint16(out[8:10], p.MaxNPDULen)
	return out
}

func decodeConnectPayload(b []byte) (connectPayload, error) {
	if len(b) < 10 {
		return connectPayload{}, fmt.Errorf("bacnetsc: short Connect-Request/Accept payload")
	}
	var p connectPayload
	copy(p.VMAC[:], b[0:6])
	p.MaxBVLCLen = binary.BigEndian.Uint16(b[6:8])
	p.MaxNPDULen = binary.BigEndian.Uint16(b[8:10])
	return p, nil
}

// encodeResultNAK builds a BVLC-Result payload rejecting the function
// that triggered it, carrying a short human-readable reason in place
// of clause 12.5's structured error-class/code pair.
func encodeResultNAK(rejectedFunction byte, reason string) []byte {
	return append([]byte{resultNAK, rejectedFunction}, []byte(reason)...)
}
