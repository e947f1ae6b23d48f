package bacnetapdu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIDRoundTrips(t *testing.T) {
	v := EncodeObjectID(ObjectAnalogValue, 42)
	gotType, gotInstance := DecodeObjectID(v)

	assert.Equal(t, ObjectAnalogValue, gotType)
	assert.Equal(t, uint32(42), gotInstance)
}

func TestAppRealRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	EncodeAppReal(&buf, 72.5)

	r := bytes.NewReader(buf.Bytes())
	tag, err := ReadTagInfo(r)
	require.NoError(t, err)
	require.Equal(t, byte(TagReal), tag.Number)

	v, err := ReadReal(r)
	require.NoError(t, err)
	assert.InDelta(t, 72.5, v, 0.01)
}

func TestAppUnsignedRoundTripsSmallAndLargeValues(t *testing.T) {
	for _, v := range []uint32{0, 200, 70000, 16777216} {
		var buf bytes.Buffer
		EncodeAppUnsigned(&buf, v)

		r := bytes.NewReader(buf.Bytes())
		tag, err := ReadTagInfo(r)
		require.NoError(t, err)

		got, err := ReadUnsignedValue(r, tag.Length)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestDecodeReadPropertyParsesObjectAndProperty(t *testing.T) {
	var buf bytes.Buffer
	EncodeContextObjectID(&buf, 0, ObjectAnalogValue, 3)
	EncodeContextUnsigned(&buf, 1, uint32(PropPresentValue))

	req, err := DecodeReadProperty(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ObjectAnalogValue, req.ObjType)
	assert.Equal(t, uint32(3), req.Instance)
	assert.Equal(t, PropPresentValue, req.Property)
}

func TestDecodeWritePropertyParsesRealValueAndPriority(t *testing.T) {
	var buf bytes.Buffer
	EncodeContextObjectID(&buf, 0, ObjectAnalogValue, 3)
	EncodeContextUnsigned(&buf, 1, uint32(PropPresentValue))
	buf.WriteByte(OpeningTag(3))
	EncodeAppReal(&buf, 68.0)
	buf.WriteByte(ClosingTag(3))
	EncodeContextUnsigned(&buf, 4, 8)

	req, err := DecodeWriteProperty(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, PropPresentValue, req.Property)
	assert.Equal(t, float32(68.0), req.Value)
	assert.Equal(t, 8, req.Priority)
}

func TestDecodeWritePropertyNullValueMeansRelease(t *testing.T) {
	var buf bytes.Buffer
	EncodeContextObjectID(&buf, 0, ObjectAnalogValue, 3)
	EncodeContextUnsigned(&buf, 1, uint32(PropPresentValue))
	buf.WriteByte(OpeningTag(3))
	EncodeAppNull(&buf)
	buf.WriteByte(ClosingTag(3))

	req, err := DecodeWriteProperty(buf.Bytes())
	require.NoError(t, err)
	assert.Nil(t, req.Value)
	assert.Equal(t, 0, req.Priority, "priority absent means unspecified")
}

func TestDecodeReadPropertyMultipleExpandsPropertyList(t *testing.T) {
	var buf bytes.Buffer
	EncodeContextObjectID(&buf, 0, ObjectAnalogValue, 3)
	buf.WriteByte(OpeningTag(1))
	EncodeContextUnsigned(&buf, 0, uint32(PropPresentValue))
	EncodeContextUnsigned(&buf, 0, uint32(PropUnits))
	buf.WriteByte(ClosingTag(1))

	specs, err := DecodeReadPropertyMultiple(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, ObjectAnalogValue, specs[0].ObjType)
	assert.Equal(t, uint32(3), specs[0].Instance)
	assert.ElementsMatch(t, []byte{PropPresentValue, PropUnits}, specs[0].Properties)
}

func TestDecodeReadPropertyMultipleHandlesMultipleObjects(t *testing.T) {
	var buf bytes.Buffer
	EncodeContextObjectID(&buf, 0, ObjectAnalogValue, 1)
	buf.WriteByte(OpeningTag(1))
	EncodeContextUnsigned(&buf, 0, uint32(PropAll))
	buf.WriteByte(ClosingTag(1))

	EncodeContextObjectID(&buf, 0, ObjectBinaryValue, 2)
	buf.WriteByte(OpeningTag(1))
	EncodeContextUnsigned(&buf, 0, uint32(PropPresentValue))
	buf.WriteByte(ClosingTag(1))

	specs, err := DecodeReadPropertyMultiple(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, ObjectBinaryValue, specs[1].ObjType)
}
