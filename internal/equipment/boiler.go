package equipment

import (
	"time"

	"campussim/internal/registry"
)

// BoilerStatus is a two-state Off/Running machine. Unlike ChillerStatus
// it has no Starting/Unloading states and enforces no minimum on/off
// time.
type BoilerStatus int

const (
	BoilerOff BoilerStatus = iota
	BoilerRunning
)

// Boiler is symmetric to Chiller on the heating side. gas_flow_cfh is
// proportional to firing_rate * capacity / LHV / efficiency (spec.md
// §4.D).
type Boiler struct {
	point

	Rank          int
	Status        BoilerStatus
	CapacityMBH   float64 // 1000 BTU/hr
	FiringRate    float64 // 0-100 %
	GasFlowCFH    float64
	HWSupplyTemp  float64
	HWReturnTemp  float64
	HWSupplySP    float64

	RequestedMBH float64

	lhvBTUPerFt3 float64 // BTU/ft3 of natural gas
}

// NewBoiler creates a boiler at prefix.
func NewBoiler(reg *registry.Registry, prefix string, capacityMBH float64, rank int) *Boiler {
	b := &Boiler{
		point:        newPoint(reg, prefix, prefix),
		Rank:         rank,
		CapacityMBH:  capacityMBH,
		HWSupplyTemp: 140,
		HWReturnTemp: 120,
		HWSupplySP:   140,
		lhvBTUPerFt3:    1020,
	}
	b.register("status", registry.KindBinary, "", true)
	b.register("firing_rate", registry.KindAnalog, "%", false)
	b.register("gas_flow_cfh", registry.KindAnalog, "CFH", false)
	b.register("hw_supply_temp", registry.KindAnalog, "F", true)
	b.register("hw_return_temp", registry.KindAnalog, "F", false)
	b.register("hw_supply_setpoint", registry.KindAnalog, "F", true)
	b.register("fault", registry.KindBinary, "", false)

	b.write("status", 0)
	b.write("hw_supply_setpoint", b.HWSupplySP)
	return b
}

// Advance implements Advancer.
func (b *Boiler) Advance(dt time.Duration, ctx *Context) {
	p := ctx.Params.Get()
	enabled := b.read("status", boolToFloat(b.Status == BoilerRunning)) != 0
	sp := b.read("hw_supply_setpoint", b.HWSupplySP)

	if !enabled {
		b.Status = BoilerOff
		b.FiringRate = approach(b.FiringRate, 0, 60, dt)
		b.HWSupplyTemp = approach(b.HWSupplyTemp, ctx.Weather.OAT+60, 900, dt)
	} else {
		b.Status = BoilerRunning
		targetFiring := clamp(b.RequestedMBH/b.CapacityMBH*100, 0, 100)
		b.FiringRate = approach(b.FiringRate, targetFiring, 30, dt)
		b.HWSupplyTemp = approach(b.HWSupplyTemp, sp, 90, dt)
	}

	eff := 0.82 * p.EquipmentEfficiency
	b.GasFlowCFH = b.FiringRate / 100 * b.CapacityMBH * 1000 / b.lhvBTUPerFt3 / eff
	b.HWReturnTemp = approach(b.HWReturnTemp, b.HWSupplyTemp-20*(b.FiringRate/100), 180, dt)

	b.write("firing_rate", b.FiringRate)
	b.write("gas_flow_cfh", b.GasFlowCFH)
	b.write("hw_supply_temp", b.HWSupplyTemp)
	b.write("hw_return_temp", b.HWReturnTemp)
	b.write("status", boolToFloat(enabled))
}
