package equipment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campussim/internal/registry"
)

func TestPumpFlowFollowsSpeed(t *testing.T) {
	reg := registry.New()
	pump := NewPump(reg, "Plant.Pump_1", "CHW_Primary", 1000, 80, 40)
	require.NoError(t, reg.WritePresent("Plant.Pump_1", "Plant.Pump_1.speed", 50))

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	for i := 0; i < 300; i++ {
		pump.Advance(time.Second, ctx)
	}

	assert.InDelta(t, 50.0, pump.Speed, 1)
	assert.InDelta(t, 500.0, pump.FlowGPM, 10)
}

func TestPumpKWFollowsAffinityLaw(t *testing.T) {
	reg := registry.New()
	pump := NewPump(reg, "Plant.Pump_1", "CHW_Primary", 1000, 80, 40)
	pump.Speed = 50
	require.NoError(t, reg.WritePresent("Plant.Pump_1", "Plant.Pump_1.speed", 50))

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	pump.Advance(time.Second, ctx)

	assert.InDelta(t, 40*0.125, pump.KW, 0.5, "power should scale with the cube of speed fraction")
}

func TestPumpDownstreamDemandCanOverrideLowSpeedCommand(t *testing.T) {
	reg := registry.New()
	pump := NewPump(reg, "Plant.Pump_1", "CHW_Primary", 1000, 80, 40)
	pump.DownstreamDemandPercent = 80

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	for i := 0; i < 60; i++ {
		pump.Advance(time.Second, ctx)
	}

	assert.Greater(t, pump.Speed, 50.0, "downstream demand should pull speed above an unset command")
}
