package equipment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campussim/internal/registry"
)

func TestAHUFanTracksWorstCaseDamper(t *testing.T) {
	reg := registry.New()
	ahu := NewAHU(reg, "Building_1.AHU_1", 55)
	vav1 := NewVAV(reg, "Building_1.AHU_1.VAV_1", 600, ahu)
	vav2 := NewVAV(reg, "Building_1.AHU_1.VAV_2", 600, ahu)
	ahu.VAVs = []*VAV{vav1, vav2}

	vav1.DamperPosition = 35
	vav2.DamperPosition = 90

	ctx := testContext(time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	ahu.Advance(time.Second, ctx)

	assert.Equal(t, 90.0, ahu.FanSpeed, "fan speed follows the most demanding VAV damper")
}

func TestAHUFanOffWhenStatusFalse(t *testing.T) {
	reg := registry.New()
	ahu := NewAHU(reg, "Building_1.AHU_1", 55)
	require.NoError(t, reg.WritePresent("Building_1.AHU_1", "Building_1.AHU_1.fan_status", 0))

	ctx := testContext(time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	ahu.Advance(time.Second, ctx)

	assert.Equal(t, 0.0, ahu.FanSpeed)
	assert.False(t, ahu.FanStatus)
}

func TestAHUCoolingCoilClampsToZeroWithNoChillerRunning(t *testing.T) {
	reg := registry.New()
	tower := NewCoolingTower(reg, "Plant.Tower_1", 500)
	chiller := NewChiller(reg, "Plant.Chiller_1", 400, 1, tower)
	plant := NewPlant(reg, "Plant")
	plant.Chillers = []*Chiller{chiller}
	plant.Towers = []*CoolingTower{tower}

	ahu := NewAHU(reg, "Building_1.AHU_1", 55)
	ahu.Plant = plant
	ahu.ReturnTemp = 75

	ctx := testContext(time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	ctx.Weather.OAT = 95
	ctx.Weather.Enthalpy = 40 // above return air enthalpy, economizer ineligible
	ctx.Weather.Humidity = 60

	for i := 0; i < 60; i++ {
		ahu.Advance(time.Second, ctx)
	}

	require.Equal(t, ChillerOff, chiller.Status)
	assert.Equal(t, 0.0, ahu.CoolingCoil, "no chiller running means no mechanical cooling available")
	assert.Greater(t, ahu.SupplyTemp, ahu.SupplyTempSP, "supply temp should drift toward mixed air, not the setpoint, with cooling unavailable")
}

func TestAHUSupplyTempFloorsAtChillerOutputWhenRunning(t *testing.T) {
	reg := registry.New()
	tower := NewCoolingTower(reg, "Plant.Tower_1", 500)
	chiller := NewChiller(reg, "Plant.Chiller_1", 400, 1, tower)
	chiller.Status = ChillerRunning
	chiller.CHWSupplyTemp = 48
	plant := NewPlant(reg, "Plant")
	plant.Chillers = []*Chiller{chiller}
	plant.Towers = []*CoolingTower{tower}
	plant.CHWSupplyTemp = 48

	ahu := NewAHU(reg, "Building_1.AHU_1", 55)
	ahu.Plant = plant
	ahu.ReturnTemp = 75

	ctx := testContext(time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	ctx.Weather.OAT = 95
	ctx.Weather.Enthalpy = 40
	ctx.Weather.Humidity = 60

	for i := 0; i < 600; i++ {
		ahu.Advance(time.Second, ctx)
	}

	assert.GreaterOrEqual(t, ahu.SupplyTemp, plant.CHWSupplyTemp, "supply temp can't undercut the plant's actual CHW supply")
}

func TestAHUEconomizerOpensInMildWeather(t *testing.T) {
	reg := registry.New()
	ahu := NewAHU(reg, "Building_1.AHU_1", 55)
	ahu.ReturnTemp = 72

	ctx := testContext(time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	ctx.Weather.OAT = 55
	ctx.Weather.Enthalpy = 18 // well below return air enthalpy
	ctx.Weather.Humidity = 30

	// The damper opens 10% per 30 s, so 120 s brings it to 40%.
	for i := 0; i < 120; i++ {
		ahu.Advance(time.Second, ctx)
	}

	assert.Greater(t, ahu.OutsideAirDamper, 30.0, "economizer should ramp the OA damper open in mild weather")
}
