package bacnetsc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterClaimsDeviceID(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{send: make(chan []byte, 1)}

	require.NoError(t, hub.Register(c, 42))
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, uint32(42), c.deviceID)
}

func TestRegisterRejectsDuplicateDeviceID(t *testing.T) {
	hub := NewHub(nil)
	c1 := &Client{send: make(chan []byte, 1)}
	c2 := &Client{send: make(chan []byte, 1)}

	require.NoError(t, hub.Register(c1, 42))
	err := hub.Register(c2, 42)
	assert.Error(t, err)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestUnregisterFreesDeviceIDForReuse(t *testing.T) {
	hub := NewHub(nil)
	c1 := &Client{send: make(chan []byte, 1)}

	require.NoError(t, hub.Register(c1, 42))
	hub.Unregister(c1)
	assert.Equal(t, 0, hub.ClientCount())

	c2 := &Client{send: make(chan []byte, 1)}
	assert.NoError(t, hub.Register(c2, 42))
}

func TestUnregisterIsANoOpForAnAlreadyReplacedClient(t *testing.T) {
	hub := NewHub(nil)
	c1 := &Client{send: make(chan []byte, 1)}
	require.NoError(t, hub.Register(c1, 42))
	hub.Unregister(c1)

	c2 := &Client{send: make(chan []byte, 1)}
	require.NoError(t, hub.Register(c2, 42))

	// Unregistering the stale c1 (already replaced under the same
	// device ID) must not remove c2's registration.
	hub.Unregister(c1)
	assert.Equal(t, 1, hub.ClientCount())
}
