package equipment

import (
	"time"

	"campussim/internal/registry"
)

// Rack models a single server rack. it_load_kw is driven by a
// utilization target (operator-overridable); heat rejected to the
// room equals IT load (spec.md §4.D).
type Rack struct {
	point

	UtilizationPercent float64
	ITLoadKW           float64
	InletTemp          float64
	RatedKW            float64
}

// NewRack creates a server rack at prefix.
func NewRack(reg *registry.Registry, prefix string, ratedKW float64) *Rack {
	r := &Rack{
		point:              newPoint(reg, prefix, prefix),
		UtilizationPercent: 40,
		RatedKW:            ratedKW,
	}
	r.register("utilization_percent", registry.KindAnalog, "%", true)
	r.register("it_load_kw", registry.KindAnalog, "kW", false)
	r.register("inlet_temp", registry.KindAnalog, "F", false)
	r.register("fault", registry.KindBinary, "", false)

	r.write("utilization_percent", r.UtilizationPercent)
	return r
}

// Advance implements Advancer. roomSupplyTemp is the CRAC-conditioned
// supply air temperature feeding this rack's aisle.
func (r *Rack) Advance(dt time.Duration, ctx *Context, roomSupplyTemp float64) {
	util := r.read("utilization_percent", r.UtilizationPercent)
	r.UtilizationPercent = clamp(util, 0, 100)

	targetLoad := r.RatedKW * (0.4 + 0.6*r.UtilizationPercent/100)
	r.ITLoadKW = approach(r.ITLoadKW, targetLoad, 30, dt)

	r.InletTemp = approach(r.InletTemp, roomSupplyTemp+2, 60, dt)

	r.write("it_load_kw", r.ITLoadKW)
	r.write("inlet_temp", r.InletTemp)
	if r.InletTemp > 90 {
		r.write("fault", 1)
	} else {
		r.write("fault", 0)
	}
}

// CRAC models a computer-room air conditioner: a dedicated cooling
// unit holding a supply-air setpoint against the aggregate IT load of
// the racks it serves.
type CRAC struct {
	point

	SupplyTemp    float64
	SupplySP      float64
	ReturnTemp    float64
	CoolingKW     float64
	CapacityTons  float64
	FanSpeed      float64
}

// NewCRAC creates a CRAC unit at prefix.
func NewCRAC(reg *registry.Registry, prefix string, capacityTons float64) *CRAC {
	c := &CRAC{
		point:        newPoint(reg, prefix, prefix),
		SupplyTemp:   65,
		SupplySP:     65,
		ReturnTemp:   75,
		CapacityTons: capacityTons,
	}
	c.register("supply_temp", registry.KindAnalog, "F", false)
	c.register("supply_temp_setpoint", registry.KindAnalog, "F", true)
	c.register("return_temp", registry.KindAnalog, "F", false)
	c.register("cooling_kw", registry.KindAnalog, "kW", false)
	c.register("fan_speed", registry.KindAnalog, "%", false)
	c.register("fault", registry.KindBinary, "", false)

	c.write("supply_temp_setpoint", c.SupplySP)
	return c
}

// Advance implements Advancer. itLoadKW is the aggregate rack load this
// CRAC must reject this tick.
func (c *CRAC) Advance(dt time.Duration, ctx *Context, itLoadKW float64) {
	sp := c.read("supply_temp_setpoint", c.SupplySP)

	// 1 ton rejects ~3.5kW; coils saturate at CapacityTons*3.5kW.
	maxRejectKW := c.CapacityTons * 3.5
	demandFrac := clamp(itLoadKW/maxRejectKW, 0, 1.2)
	c.FanSpeed = clamp(demandFrac*100, 20, 100)

	c.ReturnTemp = approach(c.ReturnTemp, sp+8+demandFrac*6, 120, dt)
	c.SupplyTemp = approach(c.SupplyTemp, sp, 60, dt)

	// Roughly 0.3kW of compressor/fan power per kW of heat rejected,
	// scaled down at partial fan speed (proxy for VFD savings).
	c.CoolingKW = itLoadKW * 0.3 * (0.5 + 0.5*c.FanSpeed/100)

	c.write("supply_temp", c.SupplyTemp)
	c.write("return_temp", c.ReturnTemp)
	c.write("cooling_kw", c.CoolingKW)
	c.write("fan_speed", c.FanSpeed)
	if c.SupplyTemp > sp+10 {
		c.write("fault", 1)
	} else {
		c.write("fault", 0)
	}
}

// DataCenter aggregates racks and CRACs under one roof and publishes
// pue, total IT load and total facility (IT+cooling) load, matching the
// literal PUE reporting in spec.md §4.D.
type DataCenter struct {
	point

	Racks []*Rack
	CRACs []*CRAC

	ITLoadKW       float64
	CoolingKW      float64
	FacilityLoadKW float64
	PUE            float64
}

// NewDataCenter creates a datacenter aggregator at prefix.
func NewDataCenter(reg *registry.Registry, prefix string) *DataCenter {
	d := &DataCenter{point: newPoint(reg, prefix, prefix)}
	d.register("it_load_kw", registry.KindAnalog, "kW", false)
	d.register("cooling_kw", registry.KindAnalog, "kW", false)
	d.register("facility_load_kw", registry.KindAnalog, "kW", false)
	d.register("pue", registry.KindAnalog, "", false)
	return d
}

// AdvanceDataCenter advances every rack and CRAC and publishes the
// aggregate PUE for the tick.
func (d *DataCenter) AdvanceDataCenter(dt time.Duration, ctx *Context) {
	d.ITLoadKW = 0

	// Racks see last tick's supply temp of the first CRAC; CRACs see
	// this tick's aggregate rack load. A one-tick lag is acceptable at the
	// quantum used by the tick driver and keeps the two device classes
	// decoupled (neither needs to know the other's internals).
	roomSupplyTemp := 65.0
	if len(d.CRACs) > 0 {
		roomSupplyTemp = d.CRACs[0].SupplyTemp
	}

	for _, r := range d.Racks {
		r.Advance(dt, ctx, roomSupplyTemp)
		d.ITLoadKW += r.ITLoadKW
	}

	perCRAC := d.ITLoadKW
	if len(d.CRACs) > 0 {
		perCRAC = d.ITLoadKW / float64(len(d.CRACs))
	}
	d.CoolingKW = 0
	for _, c := range d.CRACs {
		c.Advance(dt, ctx, perCRAC)
		d.CoolingKW += c.CoolingKW
	}

	d.FacilityLoadKW = d.ITLoadKW + d.CoolingKW
	if d.ITLoadKW > 0 {
		d.PUE = d.FacilityLoadKW / d.ITLoadKW
	} else {
		d.PUE = 1
	}

	d.write("it_load_kw", d.ITLoadKW)
	d.write("cooling_kw", d.CoolingKW)
	d.write("facility_load_kw", d.FacilityLoadKW)
	d.write("pue", d.PUE)
}
