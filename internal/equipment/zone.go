package equipment

import (
	"time"

	"campussim/internal/registry"
)

// OccupancyMode drives setpoint offsets for a Zone, schedule-driven per
// spec.md §4.D. Exact schedule boundaries are implementer-defined (see
// SPEC_FULL.md Open Question decisions): Occupied is 07:00-18:00 on
// weekdays, Warmup/Cooldown are the hour immediately before/after, and
// Unoccupied is everything else. Auto lets the zone pick among these
// from the simulated clock rather than a client-forced mode.
type OccupancyMode string

const (
	Occupied   OccupancyMode = "Occupied"
	Unoccupied OccupancyMode = "Unoccupied"
	Warmup     OccupancyMode = "Warmup"
	Cooldown   OccupancyMode = "Cooldown"
	Auto       OccupancyMode = "Auto"
)

// setpointOffset returns the heating/cooling setpoint band adjustment
// for a mode, in Fahrenheit. Occupied bands are tight (comfort); the
// rest widen the deadband to save energy.
func setpointOffset(mode OccupancyMode) (heat, cool float64) {
	switch mode {
	case Occupied, Warmup, Cooldown:
		return 70, 75
	default:
		return 62, 85
	}
}

// resolveOccupancy derives the effective occupancy mode from the
// simulated clock when a VAV is in Auto.
func resolveOccupancy(mode OccupancyMode, now time.Time) OccupancyMode {
	if mode != Auto {
		return mode
	}
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return Unoccupied
	}
	hour := now.Hour()
	switch {
	case hour == 6:
		return Warmup
	case hour >= 7 && hour < 18:
		return Occupied
	case hour == 18:
		return Cooldown
	default:
		return Unoccupied
	}
}

// VAV models a variable-air-volume terminal unit and the zone it serves.
// room_temp responds to supply air flow * (supply_temp - room_temp),
// internal gains, solar gain through the envelope, and outside air via
// envelope leakage (spec.md §4.D). Damper and reheat follow a PI loop on
// (room_temp - effective_setpoint) with a heating/cooling deadband.
type VAV struct {
	point

	RoomTemp       float64
	DamperPosition float64 // 0-100 %
	ReheatValve    float64 // 0-100 %
	AirflowCFM     float64
	OccupancyMode  OccupancyMode

	// Static physical parameters.
	MaxCFM       float64
	EnvelopeUA   float64 // BTU/hr/F baseline, scaled by params.EnvelopeUA
	InternalGain float64 // BTU/hr baseline occupant/equipment load
	SolarWindow  float64 // fraction of envelope exposed to solar gain

	integral float64 // PI controller state

	// AHU wiring: a VAV reads its supply air temp from the AHU serving it.
	AHU *AHU
}

// NewVAV creates a VAV box (and the zone it serves) at prefix,
// registering its points and seeding a comfortable room temperature.
func NewVAV(reg *registry.Registry, prefix string, maxCFM float64, ahu *AHU) *VAV {
	v := &VAV{
		point:         newPoint(reg, prefix, prefix),
		RoomTemp:      72,
		MaxCFM:        maxCFM,
		EnvelopeUA:    40,
		InternalGain:  800,
		SolarWindow:   0.15,
		OccupancyMode: Auto,
		AHU:           ahu,
	}
	v.register("room_temp", registry.KindAnalog, "F", false)
	v.register("damper_position", registry.KindAnalog, "%", true)
	v.register("reheat_valve", registry.KindAnalog, "%", true)
	v.register("airflow_cfm", registry.KindAnalog, "CFM", false)
	v.register("occupancy_mode", registry.KindMultiState, "", true)
	v.register("effective_setpoint", registry.KindAnalog, "F", true)
	v.register("fault", registry.KindBinary, "", false)

	v.write("room_temp", v.RoomTemp)
	v.write("damper_position", 20)
	v.write("reheat_valve", 0)
	v.write("occupancy_mode", occupancyCode(v.OccupancyMode))
	return v
}

func occupancyCode(m OccupancyMode) float64 {
	switch m {
	case Occupied:
		return 0
	case Unoccupied:
		return 1
	case Warmup:
		return 2
	case Cooldown:
		return 3
	default:
		return 4 // Auto
	}
}

func occupancyModeFromCode(code float64) OccupancyMode {
	switch int(code) {
	case 0:
		return Occupied
	case 1:
		return Unoccupied
	case 2:
		return Warmup
	case 3:
		return Cooldown
	default:
		return Auto
	}
}

// Advance implements Advancer.
func (v *VAV) Advance(dt time.Duration, ctx *Context) {
	p := ctx.Params.Get()

	// An operator override on occupancy_mode (via the priority array)
	// shadows v.OccupancyMode on read-back, matching chw_supply_setpoint
	// in chiller.go.
	mode := resolveOccupancy(occupancyModeFromCode(v.read("occupancy_mode", occupancyCode(v.OccupancyMode))), ctx.Now)
	heatSP, coolSP := setpointOffset(mode)
	scheduled := (heatSP + coolSP) / 2
	v.write("effective_setpoint", scheduled)
	// An operator override on effective_setpoint (via the priority
	// array) shadows the schedule-derived value on read-back.
	setpoint := v.read("effective_setpoint", scheduled)

	devFromSetpoint := v.RoomTemp - setpoint
	v.integral = clamp(v.integral+devFromSetpoint*dt.Seconds(), -500, 500)
	demand := clamp(devFromSetpoint*8+v.integral*0.02, -100, 100)

	switch {
	case demand > 0: // too warm: open damper for more cooling airflow
		v.DamperPosition = clamp(20+demand, 0, 100)
		v.ReheatValve = 0
	case v.RoomTemp < heatSP: // too cold: modulate reheat, minimum airflow
		v.DamperPosition = 20
		v.ReheatValve = clamp(-demand, 0, 100)
	default:
		v.DamperPosition = 20
		v.ReheatValve = 0
	}

	v.AirflowCFM = v.MaxCFM * (v.DamperPosition / 100)

	supplyTemp := 55.0
	if v.AHU != nil {
		supplyTemp = v.AHU.SupplyTemp
		if v.ReheatValve > 0 {
			supplyTemp += v.ReheatValve / 100 * 25
		}
	}

	gains := v.InternalGain * p.InternalGains
	solarGain := ctx.Weather.SolarIrradiance * v.SolarWindow * p.SolarGain * 0.3
	envelopeLoss := (v.RoomTemp - ctx.Weather.OAT) * v.EnvelopeUA * p.EnvelopeUA
	supplyEffect := v.AirflowCFM * 1.08 * (supplyTemp - v.RoomTemp) * p.VAVGains

	// BTU/hr net load converted to a temperature delta via thermal mass;
	// larger thermal_mass means slower response (bigger effective tau).
	tau := 900 * p.ThermalMass
	netLoadF := (gains + solarGain - envelopeLoss + supplyEffect) / 2000
	v.RoomTemp = approach(v.RoomTemp, v.RoomTemp+netLoadF, tau, dt)

	v.write("room_temp", v.RoomTemp)
	v.write("damper_position", v.DamperPosition)
	v.write("reheat_valve", v.ReheatValve)
	v.write("airflow_cfm", v.AirflowCFM)
	v.write("occupancy_mode", occupancyCode(mode))
}
