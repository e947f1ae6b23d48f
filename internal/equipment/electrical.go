package equipment

import (
	"math"
	"time"

	"campussim/internal/registry"
)

// Meter models the main electrical meter. It sums downstream draws
// (plant kW + AHU fans + VAV reheat + lighting baseline + datacenter +
// wastewater) minus solar output, and exposes kw/kva/pf/voltage/freq/
// kwh_total; freq is modulated by scenario (spec.md §4.D).
type Meter struct {
	point

	GridConnected bool
	KW            float64
	KVA           float64
	PF            float64
	VoltageA      float64
	VoltageB      float64
	VoltageC      float64
	Freq          float64
	KWhTotal      float64

	LightingBaselineKW float64
}

// NewMeter creates the campus main meter at prefix.
func NewMeter(reg *registry.Registry, prefix string, lightingBaselineKW float64) *Meter {
	m := &Meter{
		point:               newPoint(reg, prefix, prefix),
		GridConnected:       true,
		PF:                  0.95,
		VoltageA:            480,
		VoltageB:            480,
		VoltageC:            480,
		Freq:                60,
		LightingBaselineKW:  lightingBaselineKW,
	}
	m.register("grid_connected", registry.KindBinary, "", true)
	m.register("kw", registry.KindAnalog, "kW", false)
	m.register("kva", registry.KindAnalog, "kVA", false)
	m.register("pf", registry.KindAnalog, "", false)
	m.register("voltage_a", registry.KindAnalog, "V", false)
	m.register("voltage_b", registry.KindAnalog, "V", false)
	m.register("voltage_c", registry.KindAnalog, "V", false)
	m.register("freq", registry.KindAnalog, "Hz", false)
	m.register("kwh_total", registry.KindAnalog, "kWh", false)

	m.write("grid_connected", 1)
	return m
}

// Advance computes the meter's published values from a pre-summed total
// downstream load (kW) minus solar output, for the given scenario
// brownout flag. The campus assembler is responsible for summing
// downstream loads before calling this (the meter doesn't walk the
// topology itself; it only owns its own points).
func (m *Meter) Advance(dt time.Duration, ctx *Context, downstreamKW, solarKW float64) {
	m.GridConnected = m.read("grid_connected", boolToFloat(m.GridConnected)) != 0

	netKW := downstreamKW - solarKW
	if !m.GridConnected {
		netKW = 0
	}
	m.KW = netKW
	m.KVA = m.KW / math.Max(m.PF, 0.01)

	m.Freq = 60
	if ctx.Weather.Brownout {
		m.Freq = 59.7 + (math.Mod(float64(ctx.Now.Unix()), 3)-1)*0.05
		m.VoltageA, m.VoltageB, m.VoltageC = 440, 440, 440
	} else {
		m.VoltageA, m.VoltageB, m.VoltageC = 480, 480, 480
	}

	m.KWhTotal += m.KW * dt.Hours()

	m.write("kw", m.KW)
	m.write("kva", m.KVA)
	m.write("pf", m.PF)
	m.write("voltage_a", m.VoltageA)
	m.write("voltage_b", m.VoltageB)
	m.write("voltage_c", m.VoltageC)
	m.write("freq", m.Freq)
	m.write("kwh_total", m.KWhTotal)
}

// SolarArray models a rooftop/field PV array.
// output_kw = capacity * clamp(irradiance/1000,0,1) * temp_derate(panel_temp).
type SolarArray struct {
	point

	CapacityKW float64
	OutputKW   float64
	PanelTemp  float64
}

// NewSolarArray creates a solar array at prefix.
func NewSolarArray(reg *registry.Registry, prefix string, capacityKW float64) *SolarArray {
	s := &SolarArray{
		point:      newPoint(reg, prefix, prefix),
		CapacityKW: capacityKW,
	}
	s.register("output_kw", registry.KindAnalog, "kW", false)
	s.register("panel_temp", registry.KindAnalog, "F", false)
	return s
}

// Advance implements Advancer.
func (s *SolarArray) Advance(dt time.Duration, ctx *Context) {
	p := ctx.Params.Get()
	s.PanelTemp = approach(s.PanelTemp, ctx.Weather.OAT+ctx.Weather.SolarIrradiance/50, 180, dt)

	// Panel efficiency derates roughly 0.4%/F above 77F (STC reference).
	derate := clamp(1-(math.Max(s.PanelTemp-77, 0))*0.004, 0.5, 1)
	irrFrac := clamp(ctx.Weather.SolarIrradiance/1000, 0, 1)
	s.OutputKW = s.CapacityKW * irrFrac * derate * p.SolarGain

	s.write("output_kw", s.OutputKW)
	s.write("panel_temp", s.PanelTemp)
}

// UPSState is the Online/On_Battery/Depleted state machine (spec.md §4.D).
type UPSState string

const (
	UPSOnline     UPSState = "Online"
	UPSOnBattery  UPSState = "On_Battery"
	UPSDepleted   UPSState = "Depleted"
)

// UPS models an uninterruptible power supply protecting a downstream
// load. On grid loss it transitions Online->On_Battery and drains;
// on restore it recharges; at 0% it transitions to Depleted.
type UPS struct {
	point

	Status       UPSState
	BatteryPct   float64
	CapacityKWh  float64
	LoadKW       float64
}

// NewUPS creates a UPS at prefix.
func NewUPS(reg *registry.Registry, prefix string, capacityKWh, loadKW float64) *UPS {
	u := &UPS{
		point:       newPoint(reg, prefix, prefix),
		Status:      UPSOnline,
		BatteryPct:  100,
		CapacityKWh: capacityKWh,
		LoadKW:      loadKW,
	}
	u.register("status", registry.KindMultiState, "", false)
	u.register("battery_pct", registry.KindAnalog, "%", false)
	return u
}

// Advance implements Advancer. gridUp reflects the meter's
// grid_connected state this tick.
func (u *UPS) Advance(dt time.Duration, gridUp bool) {
	switch u.Status {
	case UPSOnline:
		if !gridUp {
			u.Status = UPSOnBattery
		}
	case UPSOnBattery:
		if gridUp {
			u.Status = UPSOnline
		} else {
			drainPct := (u.LoadKW / u.CapacityKWh / 3600 * dt.Seconds()) * 100
			u.BatteryPct = clamp(u.BatteryPct-drainPct, 0, 100)
			if u.BatteryPct <= 0 {
				u.Status = UPSDepleted
			}
		}
	case UPSDepleted:
		if gridUp {
			u.Status = UPSOnline
		}
	}

	if u.Status == UPSOnline && u.BatteryPct < 100 {
		chargePct := (u.CapacityKWh * 0.1 / u.CapacityKWh / 3600 * dt.Seconds()) * 100
		u.BatteryPct = clamp(u.BatteryPct+chargePct, 0, 100)
	}

	u.write("status", upsStateCode(u.Status))
	u.write("battery_pct", u.BatteryPct)
}

func upsStateCode(s UPSState) float64 {
	switch s {
	case UPSOnline:
		return 0
	case UPSOnBattery:
		return 1
	default:
		return 2
	}
}

// GeneratorState is Off/Starting/Running/Cooldown. Running and Cooldown
// each last at least generatorMinRuntime (60 sim-seconds) before the
// next transition; Off goes straight to Running after 10 s of grid loss,
// and Starting moves to Running after 10 s.
type GeneratorState string

const (
	GenOff       GeneratorState = "Off"
	GenStarting  GeneratorState = "Starting"
	GenRunning   GeneratorState = "Running"
	GenCooldown  GeneratorState = "Cooldown"
)

// Generator models a standby generator that starts on sustained grid
// loss (>=10s) and ramps output to demand; fuel drains proportionally.
type Generator struct {
	point

	Status        GeneratorState
	OutputKW      float64
	FuelLevelPct  float64
	CapacityKW    float64
	FuelCapacityKWh float64

	outageElapsed time.Duration
	stateElapsed  time.Duration
}

const generatorMinRuntime = 60 * time.Second

// NewGenerator creates a generator at prefix.
func NewGenerator(reg *registry.Registry, prefix string, capacityKW, fuelCapacityKWh float64) *Generator {
	g := &Generator{
		point:           newPoint(reg, prefix, prefix),
		Status:          GenOff,
		FuelLevelPct:    100,
		CapacityKW:      capacityKW,
		FuelCapacityKWh: fuelCapacityKWh,
	}
	g.register("status", registry.KindMultiState, "", false)
	g.register("output_kw", registry.KindAnalog, "kW", false)
	g.register("fuel_level_pct", registry.KindAnalog, "%", false)
	return g
}

// Advance implements Advancer. gridUp reflects the meter's state;
// demandKW is the load the generator would need to carry.
func (g *Generator) Advance(dt time.Duration, gridUp bool, demandKW float64) {
	g.stateElapsed += dt
	if !gridUp {
		g.outageElapsed += dt
	} else {
		g.outageElapsed = 0
	}

	switch g.Status {
	case GenOff:
		// A standby generator picks up a sustained outage directly into
		// Running at the 10s mark (spec.md §8 scenario 5); GenStarting
		// remains a valid status code for a generator commanded on
		// directly, but the automatic outage response never parks there.
		if g.outageElapsed >= 10*time.Second {
			g.Status = GenRunning
			g.stateElapsed = 0
		}
	case GenStarting:
		if g.stateElapsed >= generatorMinRuntime/6 {
			g.Status = GenRunning
			g.stateElapsed = 0
		}
	case GenRunning:
		g.OutputKW = approach(g.OutputKW, demandKW, 3, dt)
		if gridUp && g.stateElapsed >= generatorMinRuntime {
			g.Status = GenCooldown
			g.stateElapsed = 0
		}
		if g.FuelCapacityKWh > 0 {
			g.FuelLevelPct = clamp(g.FuelLevelPct-(g.OutputKW/g.FuelCapacityKWh/3600*dt.Seconds())*100, 0, 100)
		}
	case GenCooldown:
		g.OutputKW = approach(g.OutputKW, 0, 15, dt)
		if g.stateElapsed >= generatorMinRuntime && g.OutputKW < 0.5 {
			g.Status = GenOff
			g.stateElapsed = 0
			g.OutputKW = 0
		}
	}

	g.write("status", generatorStateCode(g.Status))
	g.write("output_kw", g.OutputKW)
	g.write("fuel_level_pct", g.FuelLevelPct)
}

func generatorStateCode(s GeneratorState) float64 {
	switch s {
	case GenOff:
		return 0
	case GenStarting:
		return 1
	case GenRunning:
		return 2
	default:
		return 3
	}
}

// Transformer models a step-down transformer; it mostly passes load
// through with a small, load-dependent efficiency loss.
type Transformer struct {
	point

	LoadKW   float64
	LossKW   float64
	RatingKVA float64
}

// NewTransformer creates a transformer at prefix.
func NewTransformer(reg *registry.Registry, prefix string, ratingKVA float64) *Transformer {
	t := &Transformer{
		point:     newPoint(reg, prefix, prefix),
		RatingKVA: ratingKVA,
	}
	t.register("load_kw", registry.KindAnalog, "kW", false)
	t.register("loss_kw", registry.KindAnalog, "kW", false)
	return t
}

// Advance computes losses for the given downstream load.
func (t *Transformer) Advance(downstreamKW float64) {
	t.LoadKW = downstreamKW
	loadFrac := clamp(downstreamKW/(t.RatingKVA*0.9), 0, 1.2)
	t.LossKW = t.RatingKVA * 0.01 * (0.3 + 0.7*loadFrac*loadFrac)

	t.write("load_kw", t.LoadKW)
	t.write("loss_kw", t.LossKW)
}

// ElectricalSystem owns the main meter, solar arrays, UPS units,
// standby generators and step-down transformers, and orchestrates the
// grid-loss response described in spec.md §4.D (meter -> UPS ->
// generator, all keyed off grid_connected).
type ElectricalSystem struct {
	Meter        *Meter
	Solars       []*SolarArray
	UPSs         []*UPS
	Generators   []*Generator
	Transformers []*Transformer

	SolarKW      float64
	UPSLoadKW    float64
	GeneratorKW  float64
}

// NewElectricalSystem wraps an already-constructed Meter; arrays, UPSs,
// generators and transformers are attached by the assembler.
func NewElectricalSystem(meter *Meter) *ElectricalSystem {
	return &ElectricalSystem{Meter: meter}
}

// AdvanceElectrical advances every owned device given the rest of the
// campus's non-electrical downstream draw (plant + AHU fans + VAV
// reheat + datacenter + wastewater, summed by the caller), per spec.md
// §4.D's meter formula.
func (e *ElectricalSystem) AdvanceElectrical(dt time.Duration, ctx *Context, downstreamKW float64) {
	e.SolarKW = 0
	for _, s := range e.Solars {
		s.Advance(dt, ctx)
		e.SolarKW += s.OutputKW
	}

	e.Meter.Advance(dt, ctx, downstreamKW, e.SolarKW)
	gridUp := e.Meter.GridConnected

	e.UPSLoadKW = 0
	for _, u := range e.UPSs {
		u.Advance(dt, gridUp)
		e.UPSLoadKW += u.LoadKW
	}

	e.GeneratorKW = 0
	for _, g := range e.Generators {
		g.Advance(dt, gridUp, downstreamKW)
		e.GeneratorKW += g.OutputKW
	}

	for _, t := range e.Transformers {
		t.Advance(downstreamKW / float64(maxInt(len(e.Transformers), 1)))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
