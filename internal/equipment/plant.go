package equipment

import (
	"time"

	"campussim/internal/registry"
)

// Plant owns the chillers, boilers, cooling towers and named pump
// groups of a Central Plant, and implements the staging rule: chiller
// N+1 is enabled when chiller N has run at >=90% load for >=5 simulated
// minutes; chiller N is disabled when requested load falls to
// <=(N-1)*80% of the average active chiller's capacity (spec.md §4.D).
type Plant struct {
	point

	Chillers []*Chiller
	Boilers  []*Boiler
	Towers   []*CoolingTower
	Pumps    []*Pump

	CHWSupplyTemp float64
	HWSupplyTemp  float64
	PlantKW       float64
	TotalTons     float64

	highLoadElapsed map[int]time.Duration // per-chiller rank
}

// NewPlant creates an (initially empty) plant registry holder at
// prefix; the assembler attaches equipment by appending to the
// Chillers/Boilers/Towers/Pumps slices once it has built each device.
func NewPlant(reg *registry.Registry, prefix string) *Plant {
	p := &Plant{
		point:           newPoint(reg, prefix, prefix),
		highLoadElapsed: make(map[int]time.Duration),
	}
	p.register("chw_supply_temp", registry.KindAnalog, "F", false)
	p.register("hw_supply_temp", registry.KindAnalog, "F", false)
	p.register("plant_kw", registry.KindAnalog, "kW", false)
	p.register("total_tons", registry.KindAnalog, "tons", false)
	return p
}

// AdvancePlant stages and advances every owned device, given the
// aggregate cooling/heating demand the buildings are asking for this
// tick (tons and MBH respectively).
func (p *Plant) AdvancePlant(dt time.Duration, ctx *Context, requestedTons, requestedMBH float64) {
	p.stageChillers(dt, requestedTons)
	p.stageBoilers(requestedMBH)

	p.TotalTons = 0
	p.PlantKW = 0
	chwSum, chwCount := 0.0, 0

	for _, c := range p.Chillers {
		c.Advance(dt, ctx)
		p.PlantKW += c.KW
		p.TotalTons += c.LoadPercent / 100 * c.CapacityTons
		if c.Status == ChillerRunning {
			chwSum += c.CHWSupplyTemp
			chwCount++
		}
	}
	if chwCount > 0 {
		p.CHWSupplyTemp = chwSum / float64(chwCount)
	}

	hwSum, hwCount := 0.0, 0
	for _, b := range p.Boilers {
		b.Advance(dt, ctx)
		p.PlantKW += b.GasFlowCFH * 0.03 // rough CFH->kWe-equivalent for aggregate reporting
		if b.Status == BoilerRunning {
			hwSum += b.HWSupplyTemp
			hwCount++
		}
	}
	if hwCount > 0 {
		p.HWSupplyTemp = hwSum / float64(hwCount)
	}

	for _, t := range p.Towers {
		t.Advance(dt, ctx)
		p.PlantKW += t.FanSpeed / 100 * 15
	}
	for _, pu := range p.Pumps {
		pu.Advance(dt, ctx)
		p.PlantKW += pu.KW
	}

	p.write("chw_supply_temp", p.CHWSupplyTemp)
	p.write("hw_supply_temp", p.HWSupplyTemp)
	p.write("plant_kw", p.PlantKW)
	p.write("total_tons", p.TotalTons)
}

func (p *Plant) stageChillers(dt time.Duration, requestedTons float64) {
	activeCapacity := 0.0
	activeCount := 0
	for _, c := range p.Chillers {
		if c.Status != ChillerOff {
			activeCapacity += c.CapacityTons
			activeCount++
		}
	}

	// Bootstrap the lead chiller when none are running and there is
	// demand, mirroring stageBoilers' lead-equipment start.
	if activeCount == 0 && requestedTons > 0 && len(p.Chillers) > 0 {
		p.Chillers[0].write("status", 1)
	}

	for i, c := range p.Chillers {
		if c.Status == ChillerOff {
			continue
		}
		if c.LoadPercent >= 90 {
			p.highLoadElapsed[c.Rank] += dt
		} else {
			p.highLoadElapsed[c.Rank] = 0
		}

		// Bring the next-ranked chiller online once this one has
		// sustained high load for 5 sim-minutes.
		if p.highLoadElapsed[c.Rank] >= 5*time.Minute && i+1 < len(p.Chillers) {
			next := p.Chillers[i+1]
			if next.Status == ChillerOff {
				next.write("status", 1)
			}
		}
	}

	// Disable the highest-ranked active chiller if total load has
	// dropped to <= (N-1)*80% of the average active chiller's capacity.
	if activeCount > 1 {
		last := p.Chillers[activeCount-1]
		threshold := float64(activeCount-1) * 0.8 * (activeCapacity / float64(activeCount))
		if requestedTons <= threshold {
			last.write("status", 0)
		}
	}

	p.distributeTons(requestedTons)
}

func (p *Plant) distributeTons(requestedTons float64) {
	running := 0
	for _, c := range p.Chillers {
		if c.Status != ChillerOff {
			running++
		}
	}
	if running == 0 {
		return
	}
	share := requestedTons / float64(running)
	for _, c := range p.Chillers {
		if c.Status != ChillerOff {
			c.RequestedTons = share
		} else {
			c.RequestedTons = 0
		}
	}
}

func (p *Plant) stageBoilers(requestedMBH float64) {
	running := 0
	for _, b := range p.Boilers {
		if b.Status == BoilerRunning {
			running++
		}
	}
	if running == 0 && requestedMBH > 0 && len(p.Boilers) > 0 {
		p.Boilers[0].write("status", 1)
		running = 1
	}
	if running == 0 {
		return
	}
	share := requestedMBH / float64(running)
	for _, b := range p.Boilers {
		if b.Status == BoilerRunning {
			b.RequestedMBH = share
		} else {
			b.RequestedMBH = 0
		}
	}
}
