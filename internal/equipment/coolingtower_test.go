package equipment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campussim/internal/registry"
)

func TestCoolingTowerFanRampsWhenAboveSetpoint(t *testing.T) {
	reg := registry.New()
	tower := NewCoolingTower(reg, "Plant.Tower_1", 500)
	tower.CWSupplyTemp = 95

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	tower.Advance(time.Second, ctx)

	assert.Greater(t, tower.FanSpeed, 0.0, "a supply temp above setpoint should ramp the fan up")
}

func TestCoolingTowerApproachesWetBulb(t *testing.T) {
	reg := registry.New()
	tower := NewCoolingTower(reg, "Plant.Tower_1", 500)
	tower.FanSpeed = 100
	// A setpoint the tower can never reach keeps the fan at full speed.
	require.NoError(t, reg.WritePresent("Plant.Tower_1", "Plant.Tower_1.cw_supply_setpoint", 60))

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	ctx.Weather.WetBulb = 70

	for i := 0; i < 600; i++ {
		tower.Advance(time.Second, ctx)
	}

	assert.InDelta(t, 74.0, tower.CWSupplyTemp, 2, "at full fan speed the tower should settle near wet bulb plus its minimum approach")
}
