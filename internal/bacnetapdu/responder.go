package bacnetapdu

import (
	"bytes"
	"time"

	"campussim/internal/clock"
	"campussim/internal/registry"
)

// Responder answers confirmed and unconfirmed BACnet service requests
// against a registry-backed ObjectDatabase, independent of whatever
// transport framed the APDU bytes. BACnet/IP's BVLC/UDP framing
// (internal/bacnetip) and BACnet/SC's BVLC-SC/WebSocket framing
// (internal/bacnetsc) each parse their own header down to a raw APDU,
// hand it to a Responder, and frame whatever APDU bytes come back.
type Responder struct {
	Reg      *registry.Registry
	DB       *ObjectDatabase
	Clock    *clock.Clock
	DeviceID uint32

	// Owner tags priority-array overrides this Responder makes, so the
	// registry can tell a BACnet/IP write from a BACnet/SC write.
	Owner string
}

// HandleUnconfirmed answers an unconfirmed-service APDU, returning the
// reply APDU bytes, or nil if the service warrants no reply.
func (r *Responder) HandleUnconfirmed(apdu []byte) []byte {
	if len(apdu) < 2 {
		return nil
	}
	if apdu[1] == ServiceUnconfirmedWhoIs {
		return r.iAm()
	}
	return nil
}

func (r *Responder) iAm() []byte {
	var apdu bytes.Buffer
	apdu.WriteByte(ApduUnconfirmedRequest)
	apdu.WriteByte(ServiceUnconfirmedIAm)
	EncodeAppObjectID(&apdu, ObjectDevice, r.DeviceID)
	EncodeAppUnsigned(&apdu, 1476) // max APDU length accepted
	EncodeAppEnumerated(&apdu, 0)  // segmentation: none
	EncodeAppUnsigned(&apdu, 0)    // vendor identifier
	return apdu.Bytes()
}

// HandleConfirmed answers a confirmed-service APDU (apdu[0] the PDU
// type/flags byte, apdu[1] PDU flags, apdu[2] invoke ID, apdu[3]
// service choice, apdu[4:] service parameters), returning the reply
// APDU bytes. The caller is responsible for framing and sending them.
func (r *Responder) HandleConfirmed(apdu []byte) []byte {
	if len(apdu) < 4 {
		return nil
	}
	invokeID := apdu[2]
	service := apdu[3]
	data := apdu[4:]

	switch service {
	case ServiceConfirmedReadProperty:
		return r.handleReadProperty(invokeID, data)
	case ServiceConfirmedReadPropertyMultiple:
		return r.handleReadPropertyMultiple(invokeID, data)
	case ServiceConfirmedWriteProperty:
		return r.handleWriteProperty(invokeID, data)
	default:
		return encodeError(invokeID, service, ErrClassProperty, ErrCodeUnknownProperty)
	}
}

func (r *Responder) handleReadProperty(invokeID byte, data []byte) []byte {
	req, err := DecodeReadProperty(data)
	if err != nil {
		return encodeReject(invokeID, RejectReasonMissingRequiredParameter)
	}
	obj, ok := r.DB.Lookup(req.ObjType, req.Instance)
	if !ok {
		return encodeError(invokeID, ServiceConfirmedReadProperty, ErrClassObject, ErrCodeUnknownObject)
	}

	var value bytes.Buffer
	if !r.encodePropertyValue(&value, obj, req.Property) {
		return encodeError(invokeID, ServiceConfirmedReadProperty, ErrClassProperty, ErrCodeUnknownProperty)
	}

	var apdu bytes.Buffer
	apdu.WriteByte(ApduComplexAck)
	apdu.WriteByte(invokeID)
	apdu.WriteByte(ServiceConfirmedReadProperty)
	EncodeContextObjectID(&apdu, 0, obj.Type, obj.Instance)
	EncodeContextEnumerated(&apdu, 1, uint32(req.Property))
	apdu.WriteByte(OpeningTag(3))
	apdu.Write(value.Bytes())
	apdu.WriteByte(ClosingTag(3))
	return apdu.Bytes()
}

func (r *Responder) handleReadPropertyMultiple(invokeID byte, data []byte) []byte {
	specs, err := DecodeReadPropertyMultiple(data)
	if err != nil {
		return encodeReject(invokeID, RejectReasonMissingRequiredParameter)
	}

	var apdu bytes.Buffer
	apdu.WriteByte(ApduComplexAck)
	apdu.WriteByte(invokeID)
	apdu.WriteByte(ServiceConfirmedReadPropertyMultiple)

	for _, spec := range specs {
		EncodeContextObjectID(&apdu, 0, spec.ObjType, spec.Instance)
		apdu.WriteByte(OpeningTag(1))

		obj, ok := r.DB.Lookup(spec.ObjType, spec.Instance)
		props := spec.Properties
		if ok && len(props) == 1 && props[0] == PropAll {
			props = []byte{PropObjectIdentifier, PropObjectName, PropObjectType, PropPresentValue, PropStatusFlags, PropUnits, PropPriorityArray}
		}
		for _, prop := range props {
			EncodeContextEnumerated(&apdu, 2, uint32(prop))
			apdu.WriteByte(OpeningTag(4))
			if !ok {
				EncodeAppNull(&apdu)
			} else {
				var value bytes.Buffer
				if r.encodePropertyValue(&value, obj, prop) {
					apdu.Write(value.Bytes())
				} else {
					EncodeAppNull(&apdu)
				}
			}
			apdu.WriteByte(ClosingTag(4))
		}
		apdu.WriteByte(ClosingTag(1))
	}

	return apdu.Bytes()
}

func (r *Responder) handleWriteProperty(invokeID byte, data []byte) []byte {
	req, err := DecodeWriteProperty(data)
	if err != nil {
		return encodeReject(invokeID, RejectReasonMissingRequiredParameter)
	}
	obj, ok := r.DB.Lookup(req.ObjType, req.Instance)
	if !ok {
		return encodeError(invokeID, ServiceConfirmedWriteProperty, ErrClassObject, ErrCodeUnknownObject)
	}
	if req.Property != PropPresentValue {
		return encodeError(invokeID, ServiceConfirmedWriteProperty, ErrClassProperty, ErrCodeWriteAccessDenied)
	}
	if !obj.Writable {
		return encodeError(invokeID, ServiceConfirmedWriteProperty, ErrClassProperty, ErrCodeWriteAccessDenied)
	}

	priority := req.Priority
	if priority == 0 {
		priority = DefaultWritePriority
	}

	if req.Value == nil {
		p := priority
		if err := r.Reg.Release(obj.Path, &p); err != nil {
			return encodeError(invokeID, ServiceConfirmedWriteProperty, ErrClassProperty, ErrCodeInvalidValue)
		}
	} else {
		v, ok := numericValue(req.Value)
		if !ok {
			return encodeError(invokeID, ServiceConfirmedWriteProperty, ErrClassProperty, ErrCodeInvalidValue)
		}
		now := time.Now()
		if r.Clock != nil {
			now = r.Clock.Now()
		}
		if err := r.Reg.OverrideAt(obj.Path, v, priority, r.owner(), now, 0); err != nil {
			return encodeError(invokeID, ServiceConfirmedWriteProperty, ErrClassProperty, ErrCodeInvalidValue)
		}
	}

	var apdu bytes.Buffer
	apdu.WriteByte(ApduSimpleAck)
	apdu.WriteByte(invokeID)
	apdu.WriteByte(ServiceConfirmedWriteProperty)
	return apdu.Bytes()
}

func (r *Responder) owner() string {
	if r.Owner != "" {
		return r.Owner
	}
	return "bacnet"
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case uint32:
		return float64(t), true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}

// encodePropertyValue writes prop's application-tagged value for obj,
// reading the registry live. Returns false for unsupported properties.
func (r *Responder) encodePropertyValue(buf *bytes.Buffer, obj *Object, prop byte) bool {
	switch prop {
	case PropObjectIdentifier:
		EncodeAppObjectID(buf, obj.Type, obj.Instance)
	case PropObjectName:
		EncodeAppCharacterString(buf, obj.Path)
	case PropObjectType:
		EncodeAppEnumerated(buf, uint32(obj.Type))
	case PropUnits:
		EncodeAppCharacterString(buf, obj.Units)
	case PropOutOfService:
		EncodeAppBoolean(buf, false)
	case PropPresentValue:
		val, err := r.Reg.Read(obj.Path)
		if err != nil {
			return false
		}
		r.encodeEngineeringValue(buf, obj, val.Effective)
	case PropStatusFlags:
		val, err := r.Reg.Read(obj.Path)
		if err != nil {
			return false
		}
		EncodeAppStatusFlags(buf, val.Overridden, false)
	case PropPriorityArray:
		infos, err := r.Reg.Overrides(obj.Path)
		if err != nil {
			return false
		}
		byPriority := make(map[int]float64, len(infos))
		for _, info := range infos {
			byPriority[info.Priority] = info.Value
		}
		for i := 1; i <= registry.NumPriorities; i++ {
			if v, ok := byPriority[i]; ok {
				r.encodeEngineeringValue(buf, obj, v)
			} else {
				EncodeAppNull(buf)
			}
		}
	default:
		return false
	}
	return true
}

func (r *Responder) encodeEngineeringValue(buf *bytes.Buffer, obj *Object, v float64) {
	switch obj.Kind {
	case registry.KindBinary:
		EncodeAppEnumerated(buf, uint32(v))
	case registry.KindMultiState:
		EncodeAppUnsigned(buf, uint32(v))
	default:
		EncodeAppReal(buf, PresentValueToReal(v))
	}
}

func encodeError(invokeID, service, class, code byte) []byte {
	var apdu bytes.Buffer
	apdu.WriteByte(ApduError)
	apdu.WriteByte(invokeID)
	apdu.WriteByte(service)
	EncodeAppEnumerated(&apdu, uint32(class))
	EncodeAppEnumerated(&apdu, uint32(code))
	return apdu.Bytes()
}

func encodeReject(invokeID, reason byte) []byte {
	var apdu bytes.Buffer
	apdu.WriteByte(ApduReject)
	apdu.WriteByte(invokeID)
	apdu.WriteByte(reason)
	return apdu.Bytes()
}
