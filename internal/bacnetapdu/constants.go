package bacnetapdu

// APDU types. BVLC/NPDU framing is transport-specific (UDP for
// BACnet/IP, the WebSocket BVLC-SC header for BACnet/SC) and lives in
// each gateway package; everything from the APDU byte onward is
// transport-independent and lives here.
const (
	ApduConfirmedRequest   byte = 0x00
	ApduUnconfirmedRequest byte = 0x10
	ApduSimpleAck          byte = 0x20
	ApduComplexAck         byte = 0x30
	ApduError              byte = 0x50
	ApduReject             byte = 0x60
)

// Unconfirmed service choices.
const (
	ServiceUnconfirmedIAm   byte = 0x00
	ServiceUnconfirmedWhoIs byte = 0x08
)

// Confirmed service choices.
const (
	ServiceConfirmedReadProperty         byte = 0x0c
	ServiceConfirmedWriteProperty        byte = 0x0f
	ServiceConfirmedReadPropertyMultiple byte = 0x0e
)

// Property identifiers actually served by this gateway.
const (
	PropObjectIdentifier byte = 75
	PropObjectName       byte = 77
	PropObjectType       byte = 79
	PropPresentValue     byte = 85
	PropPriorityArray    byte = 87
	PropStatusFlags      byte = 111
	PropUnits            byte = 117
	PropOutOfService     byte = 81
	PropAll              byte = 8
)

// Reject reasons used in APDU-Reject responses.
const (
	RejectReasonMissingRequiredParameter byte = 4
)

// Error classes/codes used in APDU-Error responses.
const (
	ErrClassProperty byte = 2
	ErrClassObject   byte = 1

	ErrCodeUnknownObject     byte = 31
	ErrCodeUnknownProperty   byte = 32
	ErrCodeWriteAccessDenied byte = 40
	ErrCodeInvalidValue      byte = 9
)

// DefaultWritePriority is the priority-array slot a WriteProperty
// lands on when the request omits an explicit priority.
const DefaultWritePriority = 16
