package equipment

import (
	"time"

	"campussim/internal/registry"
)

// ChillerStatus is the Off/Starting/Running/Unloading state machine
// (spec.md §4.D), with minimum on/off time enforced to prevent
// short-cycling.
type ChillerStatus int

const (
	ChillerOff ChillerStatus = iota
	ChillerStarting
	ChillerRunning
	ChillerUnloading
)

// Chiller models a centrifugal/screw chiller on the CHW side.
// load_percent follows requested cooling tons / capacity; kW is a
// function of load and OAT via the tower; chw_supply_temp tracks its
// setpoint under load <= capacity and deviates upward on overload.
type Chiller struct {
	point

	Rank           int // plant staging order, assigned by the assembler
	Status         ChillerStatus
	CapacityTons   float64
	LoadPercent    float64
	KW             float64
	CHWSupplyTemp  float64
	CHWReturnTemp  float64
	CHWSupplySP    float64

	statusElapsed time.Duration // time in current Status

	Tower *CoolingTower

	// RequestedTons is set by the plant each tick from aggregate zone
	// cooling demand, before Advance runs.
	RequestedTons float64
}

const (
	chillerMinOnTime  = 5 * time.Minute
	chillerMinOffTime = 2 * time.Minute
)

// NewChiller creates a chiller at prefix with the given capacity.
func NewChiller(reg *registry.Registry, prefix string, capacityTons float64, rank int, tower *CoolingTower) *Chiller {
	c := &Chiller{
		point:         newPoint(reg, prefix, prefix),
		Rank:          rank,
		CapacityTons:  capacityTons,
		CHWSupplyTemp: 44,
		CHWReturnTemp: 54,
		CHWSupplySP:   44,
		Tower:         tower,
	}
	c.register("status", registry.KindBinary, "", true)
	c.register("load_percent", registry.KindAnalog, "%", false)
	c.register("kw", registry.KindAnalog, "kW", false)
	c.register("chw_supply_temp", registry.KindAnalog, "F", true)
	c.register("chw_return_temp", registry.KindAnalog, "F", false)
	c.register("chw_supply_setpoint", registry.KindAnalog, "F", true)
	c.register("fault", registry.KindBinary, "", false)

	c.write("status", 0)
	c.write("chw_supply_setpoint", c.CHWSupplySP)
	return c
}

// Advance implements Advancer.
func (c *Chiller) Advance(dt time.Duration, ctx *Context) {
	p := ctx.Params.Get()
	enabled := c.read("status", float64(boolToInt(c.Status != ChillerOff))) != 0
	sp := c.read("chw_supply_setpoint", c.CHWSupplySP)

	c.statusElapsed += dt
	c.advanceStatus(enabled, dt)

	if c.Status != ChillerRunning {
		c.LoadPercent = approach(c.LoadPercent, 0, 60, dt)
		c.KW = 0
		c.CHWSupplyTemp = approach(c.CHWSupplyTemp, ctx.Weather.OAT, 600, dt)
	} else {
		targetLoad := clamp(c.RequestedTons/c.CapacityTons*100, 0, 115)
		c.LoadPercent = approach(c.LoadPercent, targetLoad, 45, dt)

		eff := 0.65 * p.EquipmentEfficiency
		towerTemp := 85.0
		if c.Tower != nil {
			towerTemp = c.Tower.CWSupplyTemp
		}
		// kW/ton rises with load and with warmer condenser water.
		kwPerTon := eff * (0.5 + 0.5*(c.LoadPercent/100)) * (1 + clamp((towerTemp-75)/100, 0, 0.3))
		c.KW = kwPerTon * c.CapacityTons * (c.LoadPercent / 100)

		deviation := 0.0
		if c.LoadPercent > 100 {
			deviation = (c.LoadPercent - 100) * 0.1
		}
		c.CHWSupplyTemp = approach(c.CHWSupplyTemp, sp+deviation, 120, dt)
	}

	c.CHWReturnTemp = approach(c.CHWReturnTemp, c.CHWSupplyTemp+10*(c.LoadPercent/100), 180, dt)

	c.write("load_percent", c.LoadPercent)
	c.write("kw", c.KW)
	c.write("chw_supply_temp", c.CHWSupplyTemp)
	c.write("chw_return_temp", c.CHWReturnTemp)
	c.write("status", boolToFloat(enabled))
}

// advanceStatus runs the Off->Starting->Running->Unloading->Off machine,
// enforcing minimum on/off time.
func (c *Chiller) advanceStatus(enabled bool, dt time.Duration) {
	switch c.Status {
	case ChillerOff:
		if enabled && c.statusElapsed >= chillerMinOffTime {
			c.Status = ChillerStarting
			c.statusElapsed = 0
		}
	case ChillerStarting:
		if c.statusElapsed >= 30*time.Second {
			c.Status = ChillerRunning
			c.statusElapsed = 0
		}
	case ChillerRunning:
		if !enabled && c.statusElapsed >= chillerMinOnTime {
			c.Status = ChillerUnloading
			c.statusElapsed = 0
		}
	case ChillerUnloading:
		if c.statusElapsed >= 30*time.Second {
			c.Status = ChillerOff
			c.statusElapsed = 0
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
