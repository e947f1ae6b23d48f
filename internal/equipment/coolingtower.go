package equipment

import (
	"time"

	"campussim/internal/registry"
)

// CoolingTower models a condenser-water cooling tower. cw_supply_temp
// approaches wet_bulb + approach(capacity, fan_speed); fan_speed
// sequences to hold a cw_supply_temp setpoint (spec.md §4.D).
type CoolingTower struct {
	point

	CWSupplyTemp float64
	CWSupplySP   float64
	FanSpeed     float64 // 0-100 %
	CapacityTons float64
}

// NewCoolingTower creates a cooling tower at prefix.
func NewCoolingTower(reg *registry.Registry, prefix string, capacityTons float64) *CoolingTower {
	t := &CoolingTower{
		point:        newPoint(reg, prefix, prefix),
		CWSupplyTemp: 85,
		CWSupplySP:   85,
		CapacityTons: capacityTons,
	}
	t.register("cw_supply_temp", registry.KindAnalog, "F", false)
	t.register("cw_supply_setpoint", registry.KindAnalog, "F", true)
	t.register("fan_speed", registry.KindAnalog, "%", false)
	t.register("fault", registry.KindBinary, "", false)

	t.write("cw_supply_setpoint", t.CWSupplySP)
	return t
}

// Advance implements Advancer.
func (t *CoolingTower) Advance(dt time.Duration, ctx *Context) {
	sp := t.read("cw_supply_setpoint", t.CWSupplySP)

	errorF := t.CWSupplyTemp - sp
	t.FanSpeed = clamp(t.FanSpeed+errorF*5, 0, 100)

	// Approach temperature narrows as fan speed (and hence airflow)
	// increases, bottoming out a few degrees above wet bulb.
	approachTemp := 8 - (t.FanSpeed/100)*4
	target := ctx.Weather.WetBulb + approachTemp
	t.CWSupplyTemp = approach(t.CWSupplyTemp, target, 120, dt)

	t.write("cw_supply_temp", t.CWSupplyTemp)
	t.write("fan_speed", t.FanSpeed)
}
