package equipment

import (
	"time"

	"campussim/internal/registry"
)

// AHU models an air handling unit. supply_temp closes on
// supply_temp_setpoint through a cooling or heating coil command.
// fan_speed follows the worst-case (highest-demand) VAV damper.
// mixed_air_temp mixes return and outside air by outside_air_damper.
// Economizer: when outside enthalpy is below return enthalpy and OAT is
// below a configurable high-limit, the AHU opens outside_air_damper to
// meet supply_temp without mechanical cooling (spec.md §4.D).
type AHU struct {
	point

	SupplyTemp       float64
	SupplyTempSP     float64
	MixedAirTemp     float64
	OutsideAirDamper float64 // 0-100 %
	FanSpeed         float64 // 0-100 %
	FanStatus        bool
	CoolingCoil      float64 // 0-100 %
	HeatingCoil      float64 // 0-100 %
	FilterDP         float64 // in. w.c.
	RuntimeHours     float64

	EconomizerHighLimit float64 // F; above this OAT, economizer never opens
	ReturnTemp          float64 // approximated from average VAV room temps

	VAVs []*VAV

	// Plant ties mechanical cooling to the central plant's chilled-water
	// output: with no plant reference (or no chiller running), the coil
	// can only use economizer free cooling, and when a chiller is
	// running, supply_temp can never undercut its CHW supply temp.
	Plant *Plant
}

// NewAHU creates an AHU at prefix with the given supply setpoint.
func NewAHU(reg *registry.Registry, prefix string, supplySetpoint float64) *AHU {
	a := &AHU{
		point:               newPoint(reg, prefix, prefix),
		SupplyTemp:          55,
		SupplyTempSP:        supplySetpoint,
		MixedAirTemp:        65,
		EconomizerHighLimit: 65,
		ReturnTemp:          72,
	}
	a.register("supply_temp", registry.KindAnalog, "F", false)
	a.register("supply_temp_setpoint", registry.KindAnalog, "F", true)
	a.register("mixed_air_temp", registry.KindAnalog, "F", false)
	a.register("outside_air_damper", registry.KindAnalog, "%", true)
	a.register("fan_speed", registry.KindAnalog, "%", false)
	a.register("fan_status", registry.KindBinary, "", true)
	a.register("cooling_coil", registry.KindAnalog, "%", false)
	a.register("heating_coil", registry.KindAnalog, "%", false)
	a.register("filter_dp", registry.KindAnalog, "in.wc", false)
	a.register("fault", registry.KindBinary, "", false)

	a.write("supply_temp_setpoint", supplySetpoint)
	a.write("fan_status", 1)
	return a
}

// chilledWaterSupply reports the plant's current CHW supply temp and
// whether any chiller is actually running to produce it. An AHU with no
// Plant reference (e.g. a standalone unit test) is assumed to have
// unmetered cooling available at the default CHW temp.
func (a *AHU) chilledWaterSupply() (float64, bool) {
	if a.Plant == nil {
		return 44, true
	}
	for _, c := range a.Plant.Chillers {
		if c.Status == ChillerRunning {
			return a.Plant.CHWSupplyTemp, true
		}
	}
	return 0, false
}

// Advance implements Advancer. AHUs advance after their VAVs so
// fan_speed can reflect the worst-case damper demand computed this tick.
func (a *AHU) Advance(dt time.Duration, ctx *Context) {
	sp := a.read("supply_temp_setpoint", a.SupplyTempSP)
	fanOn := a.read("fan_status", 1) != 0
	a.FanStatus = fanOn

	worstDamper := 0.0
	returnSum := 0.0
	for _, v := range a.VAVs {
		if v.DamperPosition > worstDamper {
			worstDamper = v.DamperPosition
		}
		returnSum += v.RoomTemp
	}
	if len(a.VAVs) > 0 {
		a.ReturnTemp = returnSum / float64(len(a.VAVs))
	}
	a.FanSpeed = clamp(worstDamper, 20, 100)
	if !fanOn {
		a.FanSpeed = 0
	}

	oat := ctx.Weather.OAT
	oaEnthalpy := ctx.Weather.Enthalpy
	// Return air is taken at a humidity ratio of 0.0093 lb/lb (about 55%
	// RH at 72F), on the same moist-air enthalpy basis as the weather model.
	raEnthalpy := 0.24*a.ReturnTemp + 0.0093*(1061+0.444*a.ReturnTemp)

	economizerEligible := oaEnthalpy < raEnthalpy && oat < a.EconomizerHighLimit
	if economizerEligible {
		a.OutsideAirDamper = clamp(a.OutsideAirDamper+10*dt.Seconds()/30, 0, 100)
	} else {
		a.OutsideAirDamper = clamp(a.OutsideAirDamper-10*dt.Seconds()/30, 0, 30)
	}

	a.MixedAirTemp = a.ReturnTemp*(1-a.OutsideAirDamper/100) + oat*(a.OutsideAirDamper/100)

	errorF := a.MixedAirTemp - sp
	if errorF > 0 {
		a.CoolingCoil = clamp(errorF*10, 0, 100)
		a.HeatingCoil = 0
	} else {
		a.HeatingCoil = clamp(-errorF*10, 0, 100)
		a.CoolingCoil = 0
	}
	if economizerEligible && a.MixedAirTemp <= sp+1 {
		a.CoolingCoil = 0
	}

	// Mechanical cooling requires a running chiller; with none, the coil
	// can only ride the economizer, and the best it can ever do is the
	// plant's actual chilled-water supply temp plus coil approach.
	chwTemp, chwAvailable := a.chilledWaterSupply()
	if !chwAvailable {
		a.CoolingCoil = 0
	}

	target := a.MixedAirTemp - a.CoolingCoil/100*(a.MixedAirTemp-sp) + a.HeatingCoil/100*(sp-a.MixedAirTemp)
	if a.CoolingCoil > 0 {
		coilFloor := chwTemp + 2
		if target < coilFloor {
			target = coilFloor
		}
	}
	a.SupplyTemp = approach(a.SupplyTemp, target, 60, dt)

	if fanOn {
		a.RuntimeHours += dt.Hours()
	}
	a.FilterDP = clamp(0.2+a.RuntimeHours*0.0005, 0.2, 2.0)

	a.write("supply_temp", a.SupplyTemp)
	a.write("mixed_air_temp", a.MixedAirTemp)
	a.write("outside_air_damper", a.OutsideAirDamper)
	a.write("fan_speed", a.FanSpeed)
	a.write("cooling_coil", a.CoolingCoil)
	a.write("heating_coil", a.HeatingCoil)
	a.write("filter_dp", a.FilterDP)
}
