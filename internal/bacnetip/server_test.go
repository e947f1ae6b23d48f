package bacnetip

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campussim/internal/bacnetapdu"
	"campussim/internal/registry"
)

func testServerPair(t *testing.T) (*Server, *registry.Registry, *net.UDPConn) {
	t.Helper()
	reg := registry.New()
	reg.Register(registry.Metadata{Path: "A.analog_1", Kind: registry.KindAnalog, Units: "degF", Writable: true}, "A")
	require.NoError(t, reg.WritePresent("A", "A.analog_1", 72.5))
	db := bacnetapdu.Build(reg)

	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close() })

	s := New(reg, db, nil, 1001, nil)
	s.conn = serverConn

	clientConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	return s, reg, clientConn
}

func sendFrame(t *testing.T, client *net.UDPConn, server *Server, apdu []byte) []byte {
	t.Helper()
	var frame bytes.Buffer
	frame.WriteByte(bvlcTypeBACnetIP)
	frame.WriteByte(bvlcFunctionUnicastNPDU)
	frame.WriteByte(0)
	frame.WriteByte(0)
	frame.WriteByte(1)
	frame.WriteByte(npduControlNormal)
	frame.Write(apdu)
	out := frame.Bytes()
	length := uint16(len(out))
	out[2] = byte(length >> 8)
	out[3] = byte(length)

	_, err := client.WriteToUDP(out, server.conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	from, err := net.ResolveUDPAddr("udp4", client.LocalAddr().String())
	require.NoError(t, err)
	buf := make([]byte, 1500)
	n, _, err := server.conn.ReadFromUDP(buf)
	require.NoError(t, err)
	server.handleDatagram(buf[:n], from)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	respBuf := make([]byte, 1500)
	n, _, err = client.ReadFromUDP(respBuf)
	require.NoError(t, err)
	return respBuf[:n]
}

func TestWhoIsReceivesIAm(t *testing.T) {
	s, _, client := testServerPair(t)

	apdu := []byte{bacnetapdu.ApduUnconfirmedRequest, bacnetapdu.ServiceUnconfirmedWhoIs}
	resp := sendFrame(t, client, s, apdu)

	respAPDU := resp[6:]
	assert.Equal(t, bacnetapdu.ApduUnconfirmedRequest, respAPDU[0]&0xF0)
	assert.Equal(t, bacnetapdu.ServiceUnconfirmedIAm, respAPDU[1])
}

func TestReadPropertyReturnsPresentValue(t *testing.T) {
	s, _, client := testServerPair(t)

	var apdu bytes.Buffer
	apdu.WriteByte(bacnetapdu.ApduConfirmedRequest)
	apdu.WriteByte(0) // PDU flags/segmentation, unused by this gateway
	apdu.WriteByte(7) // invoke id
	apdu.WriteByte(bacnetapdu.ServiceConfirmedReadProperty)
	bacnetapdu.EncodeContextObjectID(&apdu, 0, bacnetapdu.ObjectAnalogValue, 0)
	bacnetapdu.EncodeContextEnumerated(&apdu, 1, uint32(bacnetapdu.PropPresentValue))

	resp := sendFrame(t, client, s, apdu.Bytes())
	respAPDU := resp[6:]

	require.Equal(t, bacnetapdu.ApduComplexAck, respAPDU[0]&0xF0)
	require.Equal(t, byte(7), respAPDU[1])
	require.Equal(t, bacnetapdu.ServiceConfirmedReadProperty, respAPDU[2])

	r := bytes.NewReader(respAPDU[3:])
	tag, err := bacnetapdu.ReadTagInfo(r)
	require.NoError(t, err)
	require.Equal(t, byte(0), tag.Number)
	_, _, err = bacnetapdu.ReadObjectID(r)
	require.NoError(t, err)

	tag, err = bacnetapdu.ReadTagInfo(r)
	require.NoError(t, err)
	require.Equal(t, byte(1), tag.Number)
	_, err = bacnetapdu.ReadUnsignedValue(r, tag.Length)
	require.NoError(t, err)

	tag, err = bacnetapdu.ReadTagInfo(r)
	require.NoError(t, err)
	require.True(t, tag.Opening)

	valueTag, err := bacnetapdu.ReadTagInfo(r)
	require.NoError(t, err)
	require.Equal(t, byte(bacnetapdu.TagReal), valueTag.Number)
	v, err := bacnetapdu.ReadReal(r)
	require.NoError(t, err)
	assert.InDelta(t, 72.5, v, 0.01)
}

func TestWritePropertyOverridesPresentValue(t *testing.T) {
	s, reg, client := testServerPair(t)

	var apdu bytes.Buffer
	apdu.WriteByte(bacnetapdu.ApduConfirmedRequest)
	apdu.WriteByte(0)
	apdu.WriteByte(9)
	apdu.WriteByte(bacnetapdu.ServiceConfirmedWriteProperty)
	bacnetapdu.EncodeContextObjectID(&apdu, 0, bacnetapdu.ObjectAnalogValue, 0)
	bacnetapdu.EncodeContextEnumerated(&apdu, 1, uint32(bacnetapdu.PropPresentValue))
	apdu.WriteByte(bacnetapdu.OpeningTag(3))
	bacnetapdu.EncodeAppReal(&apdu, 68.0)
	apdu.WriteByte(bacnetapdu.ClosingTag(3))
	bacnetapdu.EncodeContextUnsigned(&apdu, 4, 8)

	resp := sendFrame(t, client, s, apdu.Bytes())
	respAPDU := resp[6:]

	require.Equal(t, bacnetapdu.ApduSimpleAck, respAPDU[0]&0xF0)

	v, err := reg.Read("A.analog_1")
	require.NoError(t, err)
	assert.InDelta(t, 68.0, v.Effective, 0.01)
}

func TestReadPropertyUnknownObjectReturnsError(t *testing.T) {
	s, _, client := testServerPair(t)

	var apdu bytes.Buffer
	apdu.WriteByte(bacnetapdu.ApduConfirmedRequest)
	apdu.WriteByte(0)
	apdu.WriteByte(3)
	apdu.WriteByte(bacnetapdu.ServiceConfirmedReadProperty)
	bacnetapdu.EncodeContextObjectID(&apdu, 0, bacnetapdu.ObjectAnalogValue, 99)
	bacnetapdu.EncodeContextEnumerated(&apdu, 1, uint32(bacnetapdu.PropPresentValue))

	resp := sendFrame(t, client, s, apdu.Bytes())
	respAPDU := resp[6:]

	assert.Equal(t, bacnetapdu.ApduError, respAPDU[0]&0xF0)
}
