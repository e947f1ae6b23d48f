package equipment

import (
	"time"

	"campussim/internal/registry"
)

// LiftStation models a wet-well lift station: influent accumulates as
// level, pumps start/stop on level setpoints (lead/lag), and
// high_level_alarm is set while level is at or above HighLevelAlarm and
// clears once it falls below (spec.md §4.D).
type LiftStation struct {
	point

	LevelPercent   float64
	InfluentGPM    float64
	PumpOneRunning bool
	PumpTwoRunning bool
	PumpOnLevel    float64
	PumpOffLevel   float64
	HighLevelAlarm float64
	PumpCapacityGPM float64
	WellVolumeGal  float64
}

// NewLiftStation creates a lift station at prefix.
func NewLiftStation(reg *registry.Registry, prefix string, wellVolumeGal, pumpCapacityGPM float64) *LiftStation {
	l := &LiftStation{
		point:           newPoint(reg, prefix, prefix),
		LevelPercent:    30,
		PumpOnLevel:     70,
		PumpOffLevel:    20,
		HighLevelAlarm:  90,
		PumpCapacityGPM: pumpCapacityGPM,
		WellVolumeGal:   wellVolumeGal,
	}
	l.register("level_percent", registry.KindAnalog, "%", false)
	l.register("influent_gpm", registry.KindAnalog, "GPM", true)
	l.register("pump_1_running", registry.KindBinary, "", false)
	l.register("pump_2_running", registry.KindBinary, "", false)
	l.register("high_level_alarm", registry.KindBinary, "", false)

	l.write("influent_gpm", 150)
	return l
}

// Advance implements Advancer.
func (l *LiftStation) Advance(dt time.Duration, ctx *Context) {
	l.InfluentGPM = l.read("influent_gpm", 150)

	if !l.PumpOneRunning && l.LevelPercent >= l.PumpOnLevel {
		l.PumpOneRunning = true
	} else if l.PumpOneRunning && l.LevelPercent <= l.PumpOffLevel {
		l.PumpOneRunning = false
	}
	// Lead/lag: bring the second pump in if level keeps climbing with
	// the first already running (approximates flooding during a storm
	// event without a full duty/standby alternator).
	if l.PumpOneRunning && l.LevelPercent >= l.HighLevelAlarm-10 {
		l.PumpTwoRunning = true
	} else if l.LevelPercent <= l.PumpOffLevel {
		l.PumpTwoRunning = false
	}

	pumpedGPM := 0.0
	if l.PumpOneRunning {
		pumpedGPM += l.PumpCapacityGPM
	}
	if l.PumpTwoRunning {
		pumpedGPM += l.PumpCapacityGPM
	}

	netGPM := l.InfluentGPM - pumpedGPM
	deltaPct := netGPM / l.WellVolumeGal * 100 * dt.Minutes()
	l.LevelPercent = clamp(l.LevelPercent+deltaPct, 0, 100)

	l.write("level_percent", l.LevelPercent)
	l.write("pump_1_running", boolToFloat(l.PumpOneRunning))
	l.write("pump_2_running", boolToFloat(l.PumpTwoRunning))
	if l.LevelPercent >= l.HighLevelAlarm {
		l.write("high_level_alarm", 1)
	} else {
		l.write("high_level_alarm", 0)
	}
}

// AerationBlower models a basin aeration blower: speed tracks a
// dissolved-oxygen setpoint via the basin's measured DO.
type AerationBlower struct {
	point

	Speed       float64 // 0-100 %
	DOSetpoint  float64 // mg/L
	DOLevel     float64 // mg/L, basin measurement
	AirflowSCFM float64
	KW          float64
	MaxSCFM     float64
	RatedKW     float64
}

// NewAerationBlower creates a blower at prefix.
func NewAerationBlower(reg *registry.Registry, prefix string, maxSCFM, ratedKW float64) *AerationBlower {
	b := &AerationBlower{
		point:      newPoint(reg, prefix, prefix),
		DOSetpoint: 2.0,
		DOLevel:    2.0,
		MaxSCFM:    maxSCFM,
		RatedKW:    ratedKW,
	}
	b.register("speed", registry.KindAnalog, "%", true)
	b.register("do_setpoint", registry.KindAnalog, "mg/L", true)
	b.register("do_level", registry.KindAnalog, "mg/L", false)
	b.register("airflow_scfm", registry.KindAnalog, "SCFM", false)
	b.register("kw", registry.KindAnalog, "kW", false)

	b.write("do_setpoint", b.DOSetpoint)
	return b
}

// Advance implements Advancer. basinLoadFrac (0..1) is the organic
// loading driving oxygen demand this tick, supplied by the facility
// aggregator.
func (b *AerationBlower) Advance(dt time.Duration, ctx *Context, basinLoadFrac float64) {
	sp := b.read("do_setpoint", b.DOSetpoint)
	dev := sp - b.DOLevel
	commanded := b.read("speed", b.Speed)
	b.Speed = clamp(commanded+dev*20, 0, 100)

	b.AirflowSCFM = b.MaxSCFM * b.Speed / 100
	// DO rises with airflow, falls with organic load; a simple
	// first-order balance around the setpoint is sufficient for the
	// simulator's fidelity target.
	target := sp + (b.AirflowSCFM/b.MaxSCFM-basinLoadFrac)*3
	b.DOLevel = approach(b.DOLevel, target, 300, dt)
	b.DOLevel = clamp(b.DOLevel, 0, 10)

	b.KW = b.RatedKW * (b.Speed / 100)

	b.write("speed", b.Speed)
	b.write("do_level", b.DOLevel)
	b.write("airflow_scfm", b.AirflowSCFM)
	b.write("kw", b.KW)
}

// Clarifier models a secondary clarifier: effluent turbidity tracks
// influent loading and a settled-sludge removal rate.
type Clarifier struct {
	point

	Turbidity     float64 // NTU
	SludgeRemovalGPM float64
	InfluentGPM   float64
}

// NewClarifier creates a clarifier at prefix.
func NewClarifier(reg *registry.Registry, prefix string) *Clarifier {
	c := &Clarifier{
		point:     newPoint(reg, prefix, prefix),
		Turbidity: 5,
	}
	c.register("turbidity_ntu", registry.KindAnalog, "NTU", false)
	c.register("sludge_removal_gpm", registry.KindAnalog, "GPM", true)
	return c
}

// Advance implements Advancer. influentGPM is the flow arriving from
// upstream treatment this tick.
func (c *Clarifier) Advance(dt time.Duration, ctx *Context, influentGPM float64) {
	c.InfluentGPM = influentGPM
	c.SludgeRemovalGPM = c.read("sludge_removal_gpm", 20)

	// Turbidity climbs with hydraulic loading and falls with sludge
	// removal, bounded to a realistic operating band.
	target := clamp(3+c.InfluentGPM/100-c.SludgeRemovalGPM/10, 1, 50)
	c.Turbidity = approach(c.Turbidity, target, 600, dt)

	c.write("turbidity_ntu", c.Turbidity)
}

// UVDisinfection models a UV bank: dose tracks lamp intensity and flow,
// with a fault if dose falls below the regulatory minimum while flow is
// present.
type UVDisinfection struct {
	point

	LampIntensityPercent float64
	FlowGPM              float64
	DoseMJcm2            float64
	MinDoseMJcm2         float64
}

// NewUVDisinfection creates a UV bank at prefix.
func NewUVDisinfection(reg *registry.Registry, prefix string) *UVDisinfection {
	u := &UVDisinfection{
		point:                newPoint(reg, prefix, prefix),
		LampIntensityPercent: 100,
		MinDoseMJcm2:         30,
	}
	u.register("lamp_intensity_percent", registry.KindAnalog, "%", true)
	u.register("flow_gpm", registry.KindAnalog, "GPM", false)
	u.register("dose_mj_cm2", registry.KindAnalog, "mJ/cm2", false)
	u.register("fault", registry.KindBinary, "", false)

	u.write("lamp_intensity_percent", u.LampIntensityPercent)
	return u
}

// Advance implements Advancer. flowGPM is the effluent flow through the
// UV channel this tick.
func (u *UVDisinfection) Advance(dt time.Duration, ctx *Context, flowGPM float64) {
	u.FlowGPM = flowGPM
	u.LampIntensityPercent = u.read("lamp_intensity_percent", u.LampIntensityPercent)

	// Dose falls off with flow (less contact time) and rises with lamp
	// intensity; clamp to a sane band for reporting.
	flowFrac := clamp(u.FlowGPM/500, 0.1, 3)
	u.DoseMJcm2 = clamp(u.LampIntensityPercent/100*60/flowFrac, 0, 100)

	u.write("flow_gpm", u.FlowGPM)
	u.write("dose_mj_cm2", u.DoseMJcm2)
	if u.FlowGPM > 0 && u.DoseMJcm2 < u.MinDoseMJcm2 {
		u.write("fault", 1)
	} else {
		u.write("fault", 0)
	}
}

// WastewaterFacility aggregates the lift station, blowers, clarifiers
// and UV bank of a treatment train and publishes total effluent flow
// and power draw. total_kw sums the blowers only; the lift station
// pumps and UV bank carry no power figure.
type WastewaterFacility struct {
	point

	LiftStation *LiftStation
	Blowers     []*AerationBlower
	Clarifiers  []*Clarifier
	UV          *UVDisinfection

	EffluentGPM float64
	TotalKW     float64
}

// NewWastewaterFacility creates a facility aggregator at prefix.
func NewWastewaterFacility(reg *registry.Registry, prefix string) *WastewaterFacility {
	w := &WastewaterFacility{point: newPoint(reg, prefix, prefix)}
	w.register("effluent_gpm", registry.KindAnalog, "GPM", false)
	w.register("total_kw", registry.KindAnalog, "kW", false)
	return w
}

// AdvanceFacility advances the lift station, blowers, clarifiers and UV
// bank in treatment-train order and publishes the aggregate points.
func (w *WastewaterFacility) AdvanceFacility(dt time.Duration, ctx *Context) {
	w.TotalKW = 0

	basinLoadFrac := 0.5
	if w.LiftStation != nil {
		w.LiftStation.Advance(dt, ctx)
		basinLoadFrac = clamp(w.LiftStation.InfluentGPM/300, 0, 1)
	}

	for _, b := range w.Blowers {
		b.Advance(dt, ctx, basinLoadFrac)
		w.TotalKW += b.KW
	}

	flowGPM := 0.0
	if w.LiftStation != nil {
		flowGPM = w.LiftStation.InfluentGPM
	}
	for _, c := range w.Clarifiers {
		c.Advance(dt, ctx, flowGPM)
	}

	if w.UV != nil {
		w.UV.Advance(dt, ctx, flowGPM)
	}

	w.EffluentGPM = flowGPM
	w.write("effluent_gpm", w.EffluentGPM)
	w.write("total_kw", w.TotalKW)
}
