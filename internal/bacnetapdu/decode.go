package bacnetapdu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type TagInfo struct {
	Number  byte
	Context bool
	Length  uint32
	Opening bool
	Closing bool
}

func ReadTagInfo(r *bytes.Reader) (TagInfo, error) {
	b, err := r.ReadByte()
	if err != nil {
		return TagInfo{}, err
	}
	info := TagInfo{Number: b >> 4, Context: b&0x08 != 0}
	lvt := b & 0x07
	switch lvt {
	case 6:
		info.Opening = true
	case 7:
		info.Closing = true
	case 5:
		lenByte, err := r.ReadByte()
		if err != nil {
			return TagInfo{}, err
		}
		info.Length = uint32(lenByte)
	default:
		info.Length = uint32(lvt)
	}
	return info, nil
}

func ReadUnsignedValue(r *bytes.Reader, length uint32) (uint32, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	var v uint32
	for _, b := range buf {
		v = v<<8 | uint32(b)
	}
	return v, nil
}

func ReadObjectID(r *bytes.Reader) (ObjectType, uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, 0, err
	}
	t, inst := DecodeObjectID(v)
	return t, inst, nil
}

func ReadReal(r *bytes.Reader) (float32, error) {
	var v float32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

// ReadPropertyRequest is the service-parameter layout of ReadProperty:
// tag0 ObjectIdentifier, tag1 PropertyIdentifier, optional tag2 array
// index (ignored, BASim exposes no array properties).
type ReadPropertyRequest struct {
	ObjType  ObjectType
	Instance uint32
	Property byte
}

func DecodeReadProperty(data []byte) (ReadPropertyRequest, error) {
	r := bytes.NewReader(data)
	var req ReadPropertyRequest

	tag, err := ReadTagInfo(r)
	if err != nil || !tag.Context || tag.Number != 0 {
		return req, fmt.Errorf("bacnetapdu: malformed ReadProperty object id tag")
	}
	req.ObjType, req.Instance, err = ReadObjectID(r)
	if err != nil {
		return req, err
	}

	tag, err = ReadTagInfo(r)
	if err != nil || !tag.Context || tag.Number != 1 {
		return req, fmt.Errorf("bacnetapdu: malformed ReadProperty property id tag")
	}
	prop, err := ReadUnsignedValue(r, tag.Length)
	if err != nil {
		return req, err
	}
	req.Property = byte(prop)
	return req, nil
}

// WritePropertyRequest is WriteProperty's service-parameter layout:
// tag0 ObjectIdentifier, tag1 PropertyIdentifier, optional tag2 array
// index, tag3 opening/value/closing, optional tag4 Priority.
type WritePropertyRequest struct {
	ObjType  ObjectType
	Instance uint32
	Property byte
	Value    any // nil (release), bool, uint32, or float32
	Priority int // 0 means "not specified"
}

func DecodeWriteProperty(data []byte) (WritePropertyRequest, error) {
	r := bytes.NewReader(data)
	var req WritePropertyRequest

	tag, err := ReadTagInfo(r)
	if err != nil || !tag.Context || tag.Number != 0 {
		return req, fmt.Errorf("bacnetapdu: malformed WriteProperty object id tag")
	}
	req.ObjType, req.Instance, err = ReadObjectID(r)
	if err != nil {
		return req, err
	}

	tag, err = ReadTagInfo(r)
	if err != nil || !tag.Context || tag.Number != 1 {
		return req, fmt.Errorf("bacnetapdu: malformed WriteProperty property id tag")
	}
	prop, err := ReadUnsignedValue(r, tag.Length)
	if err != nil {
		return req, err
	}
	req.Property = byte(prop)

	tag, err = ReadTagInfo(r)
	if err != nil {
		return req, err
	}
	if tag.Context && tag.Number == 2 && !tag.Opening {
		// optional array index, discard
		if _, err := ReadUnsignedValue(r, tag.Length); err != nil {
			return req, err
		}
		tag, err = ReadTagInfo(r)
		if err != nil {
			return req, err
		}
	}
	if !(tag.Context && tag.Number == 3 && tag.Opening) {
		return req, fmt.Errorf("bacnetapdu: missing WriteProperty value opening tag")
	}

	valueTag, err := ReadTagInfo(r)
	if err != nil {
		return req, err
	}
	switch valueTag.Number {
	case TagNull:
		req.Value = nil
	case TagBoolean:
		req.Value = valueTag.Length == 1
	case TagUnsignedInteger, TagEnumerated:
		v, err := ReadUnsignedValue(r, valueTag.Length)
		if err != nil {
			return req, err
		}
		req.Value = v
	case TagReal:
		v, err := ReadReal(r)
		if err != nil {
			return req, err
		}
		req.Value = v
	default:
		return req, fmt.Errorf("bacnetapdu: unsupported WriteProperty value tag %d", valueTag.Number)
	}

	closeTag, err := ReadTagInfo(r)
	if err != nil || !(closeTag.Context && closeTag.Number == 3 && closeTag.Closing) {
		return req, fmt.Errorf("bacnetapdu: missing WriteProperty value closing tag")
	}

	// optional priority, tag4
	if tag, err := ReadTagInfo(r); err == nil {
		if tag.Context && tag.Number == 4 {
			p, err := ReadUnsignedValue(r, tag.Length)
			if err == nil {
				req.Priority = int(p)
			}
		}
	}

	return req, nil
}

// ReadAccessSpec is one "object + property list" group within a
// ReadPropertyMultiple request.
type ReadAccessSpec struct {
	ObjType    ObjectType
	Instance   uint32
	Properties []byte
}

// DecodeReadPropertyMultiple parses one or more read-access
// specifications: tag0 ObjectIdentifier, then an opening/closing tag1
// wrapping a run of tag0 PropertyIdentifier references (PropAll or a
// specific property list).
func DecodeReadPropertyMultiple(data []byte) ([]ReadAccessSpec, error) {
	r := bytes.NewReader(data)
	var specs []ReadAccessSpec

	for r.Len() > 0 {
		tag, err := ReadTagInfo(r)
		if err != nil {
			return nil, err
		}
		if !tag.Context || tag.Number != 0 {
			return nil, fmt.Errorf("bacnetapdu: malformed ReadPropertyMultiple object id tag")
		}
		spec := ReadAccessSpec{}
		spec.ObjType, spec.Instance, err = ReadObjectID(r)
		if err != nil {
			return nil, err
		}

		open, err := ReadTagInfo(r)
		if err != nil || !(open.Context && open.Number == 1 && open.Opening) {
			return nil, fmt.Errorf("bacnetapdu: missing property-list opening tag")
		}

		for {
			next, err := ReadTagInfo(r)
			if err != nil {
				return nil, err
			}
			if next.Context && next.Number == 1 && next.Closing {
				break
			}
			if !(next.Context && next.Number == 0) {
				return nil, fmt.Errorf("bacnetapdu: malformed property reference")
			}
			prop, err := ReadUnsignedValue(r, next.Length)
			if err != nil {
				return nil, err
			}
			spec.Properties = append(spec.Properties, byte(prop))
		}

		specs = append(specs, spec)
	}

	return specs, nil
}
