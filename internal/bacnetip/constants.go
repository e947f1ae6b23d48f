// Package bacnetip implements the BACnet/IP gateway: UDP/47808 framing
// (BVLC/NPDU), analog_value/binary_value/multi_state_value objects
// built from registry metadata, and the Who-Is/I-Am/ReadProperty/
// ReadPropertyMultiple/WriteProperty services, per spec.md §4.I. The
// application-tag codec and service logic above the NPDU live in
// internal/bacnetapdu, shared with the BACnet/SC gateway; this package
// owns only the UDP transport and BVLC/NPDU framing that transport
// needs. Framing constants are grounded on the pack's maxzerker-bacnet
// client, which encodes the same wire format from the other direction.
package bacnetip

// BVLC (BACnet Virtual Link Control).
const (
	bvlcTypeBACnetIP          byte = 0x81
	bvlcFunctionUnicastNPDU   byte = 0x0a
	bvlcFunctionBroadcastNPDU byte = 0x0b
)

// NPDU control field.
const (
	npduControlNormal byte = 0x00
)
