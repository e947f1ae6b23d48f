// Package campus assembles a complete simulated campus — buildings,
// central plant, electrical system, optional data center and
// wastewater facility — from a size profile, wiring every equipment
// reference and registering every point, per spec.md §4.E.
package campus

import (
	"fmt"
	"sync"
	"time"

	"campussim/internal/config"
	"campussim/internal/equipment"
	"campussim/internal/params"
	"campussim/internal/registry"
	"campussim/internal/weather"
)

const (
	fanRatedKW    = 5.0  // nominal AHU supply fan at full speed
	reheatRatedKW = 2.0  // nominal VAV electric reheat coil
	lightingBaselineKW = 8.0
)

// Building owns the AHUs (and, through them, the VAVs/zones) of one
// building, per spec.md §3 Topology.
type Building struct {
	Name string
	AHUs []*equipment.AHU

	NominalTons float64 // rough design cooling capacity, derived at assembly
	NominalMBH  float64 // rough design heating capacity, derived at assembly
}

// Campus is the top-level simulated world: weather, clock-independent
// physics parameters, central plant, electrical system, buildings and
// optional data center / wastewater facility.
type Campus struct {
	Reg     *registry.Registry
	Weather *weather.Model
	Params  *params.Parameters
	GeoLat  float64

	Plant      *equipment.Plant
	Electrical *equipment.ElectricalSystem
	Buildings  []*Building
	DataCenter *equipment.DataCenter
	Wastewater *equipment.WastewaterFacility

	Profile ControllerProfile

	mu       sync.RWMutex
	scenario weather.Scenario
}

// sizeProfile describes the device counts the assembler builds for one
// campus_size value. Small has no data center and no wastewater
// facility; Medium and Large include both. Every device registers all
// of its points, so each profile exposes several points per device
// rather than a fixed point budget.
type sizeProfile struct {
	buildings     int
	ahusPerBldg   int
	vavsPerAHU    int
	chillers      int
	boilers       int
	towers        int
	pumpsPerLoop  int
	solarArrays   int
	upsUnits      int
	generators    int
	transformers  int
	withDataCenter bool
	racks         int
	cracs         int
	withWastewater bool
	blowers       int
	clarifiers    int
}

var sizeProfiles = map[config.CampusSize]sizeProfile{
	config.SizeSmall: {
		buildings: 1, ahusPerBldg: 1, vavsPerAHU: 3,
		chillers: 1, boilers: 1, towers: 1, pumpsPerLoop: 1,
		solarArrays: 1, upsUnits: 1, generators: 1, transformers: 1,
	},
	config.SizeMedium: {
		buildings: 3, ahusPerBldg: 2, vavsPerAHU: 4,
		chillers: 2, boilers: 2, towers: 2, pumpsPerLoop: 2,
		solarArrays: 2, upsUnits: 2, generators: 1, transformers: 2,
		withDataCenter: true, racks: 4, cracs: 2,
		withWastewater: true, blowers: 2, clarifiers: 2,
	},
	config.SizeLarge: {
		buildings: 8, ahusPerBldg: 3, vavsPerAHU: 5,
		chillers: 4, boilers: 3, towers: 4, pumpsPerLoop: 3,
		solarArrays: 4, upsUnits: 4, generators: 2, transformers: 4,
		withDataCenter: true, racks: 12, cracs: 4,
		withWastewater: true, blowers: 4, clarifiers: 3,
	},
}

// Assemble builds a complete Campus from cfg into reg, applying the
// given controller naming profile. It validates the resulting topology
// and returns a *TopologyError if a structural invariant is violated.
func Assemble(cfg config.Config, reg *registry.Registry, profile ControllerProfile) (*Campus, error) {
	prof, ok := sizeProfiles[cfg.CampusSize]
	if !ok {
		return nil, fmt.Errorf("campus: unknown campus_size %q", cfg.CampusSize)
	}

	c := &Campus{
		Reg:      reg,
		Weather:  weather.New(1),
		Params:   params.DefaultParameters(),
		GeoLat:   cfg.GeoLat,
		Profile:  profile,
		scenario: weather.ScenarioNormal,
	}
	registerWeatherPoints(reg)

	c.Plant = buildPlant(reg, profile, prof)
	c.Buildings = buildBuildings(reg, profile, prof, c.Plant)

	meter := equipment.NewMeter(reg, "Electrical.MainMeter", lightingBaselineKW)
	c.Electrical = equipment.NewElectricalSystem(meter)
	for i := 1; i <= prof.solarArrays; i++ {
		c.Electrical.Solars = append(c.Electrical.Solars,
			equipment.NewSolarArray(reg, fmt.Sprintf("Electrical.Solar_%d", i), 200))
	}
	for i := 1; i <= prof.upsUnits; i++ {
		c.Electrical.UPSs = append(c.Electrical.UPSs,
			equipment.NewUPS(reg, fmt.Sprintf("Electrical.UPS_%d", i), 50, 20))
	}
	for i := 1; i <= prof.generators; i++ {
		c.Electrical.Generators = append(c.Electrical.Generators,
			equipment.NewGenerator(reg, fmt.Sprintf("Electrical.Generator_%d", i), 500, 2000))
	}
	for i := 1; i <= prof.transformers; i++ {
		c.Electrical.Transformers = append(c.Electrical.Transformers,
			equipment.NewTransformer(reg, fmt.Sprintf("Electrical.Transformer_%d", i), 1000))
	}

	if prof.withDataCenter {
		c.DataCenter = equipment.NewDataCenter(reg, "DataCenter")
		for i := 1; i <= prof.racks; i++ {
			c.DataCenter.Racks = append(c.DataCenter.Racks,
				equipment.NewRack(reg, fmt.Sprintf("DataCenter.Rack_%d", i), 10))
		}
		for i := 1; i <= prof.cracs; i++ {
			c.DataCenter.CRACs = append(c.DataCenter.CRACs,
				equipment.NewCRAC(reg, fmt.Sprintf("DataCenter.CRAC_%d", i), 20))
		}
	}

	if prof.withWastewater {
		c.Wastewater = equipment.NewWastewaterFacility(reg, "Wastewater")
		c.Wastewater.LiftStation = equipment.NewLiftStation(reg, "Wastewater.LiftStation", 5000, 400)
		for i := 1; i <= prof.blowers; i++ {
			c.Wastewater.Blowers = append(c.Wastewater.Blowers,
				equipment.NewAerationBlower(reg, fmt.Sprintf("Wastewater.Blower_%d", i), 2000, 40))
		}
		for i := 1; i <= prof.clarifiers; i++ {
			c.Wastewater.Clarifiers = append(c.Wastewater.Clarifiers,
				equipment.NewClarifier(reg, fmt.Sprintf("Wastewater.Clarifier_%d", i)))
		}
		c.Wastewater.UV = equipment.NewUVDisinfection(reg, "Wastewater.UV_1")
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func buildPlant(reg *registry.Registry, profile ControllerProfile, prof sizeProfile) *equipment.Plant {
	plant := equipment.NewPlant(reg, "CentralPlant")

	for i := 1; i <= prof.towers; i++ {
		plant.Towers = append(plant.Towers,
			equipment.NewCoolingTower(reg, fmt.Sprintf("CentralPlant.Tower_%d", i), 400))
	}
	for i := 1; i <= prof.chillers; i++ {
		tower := plant.Towers[(i-1)%len(plant.Towers)]
		name := profile.chillerLabel(i)
		plant.Chillers = append(plant.Chillers,
			equipment.NewChiller(reg, fmt.Sprintf("CentralPlant.%s", name), 400, i, tower))
	}
	for i := 1; i <= prof.boilers; i++ {
		plant.Boilers = append(plant.Boilers,
			equipment.NewBoiler(reg, fmt.Sprintf("CentralPlant.Boiler_%d", i), 2000, i))
	}
	for i := 1; i <= prof.pumpsPerLoop; i++ {
		plant.Pumps = append(plant.Pumps,
			equipment.NewPump(reg, fmt.Sprintf("CentralPlant.CHWPump_%d", i), "CHW_Primary", 1000, 80, 40))
	}
	for i := 1; i <= prof.pumpsPerLoop; i++ {
		plant.Pumps = append(plant.Pumps,
			equipment.NewPump(reg, fmt.Sprintf("CentralPlant.HWPump_%d", i), "HW_Primary", 800, 60, 25))
	}
	for i := 1; i <= prof.pumpsPerLoop; i++ {
		plant.Pumps = append(plant.Pumps,
			equipment.NewPump(reg, fmt.Sprintf("CentralPlant.CWPump_%d", i), "CW", 1200, 70, 35))
	}
	return plant
}

func buildBuildings(reg *registry.Registry, profile ControllerProfile, prof sizeProfile, plant *equipment.Plant) []*Building {
	var buildings []*Building
	for bi := 1; bi <= prof.buildings; bi++ {
		b := &Building{Name: fmt.Sprintf("Building_%d", bi)}
		for ai := 1; ai <= prof.ahusPerBldg; ai++ {
			ahuPath := fmt.Sprintf("Building_%d.%s", bi, profile.ahuLabel(ai))
			ahu := equipment.NewAHU(reg, ahuPath, 55)
			ahu.Plant = plant
			for vi := 1; vi <= prof.vavsPerAHU; vi++ {
				vavNum := ai*100 + vi
				vavPath := fmt.Sprintf("%s.%s", ahuPath, profile.vavLabel(vavNum))
				vav := equipment.NewVAV(reg, vavPath, 1200, ahu)
				ahu.VAVs = append(ahu.VAVs, vav)
				// Nominal design capacity of 1 ton and 1.4 MBH per VAV;
				// summed across VAVs this gives the building a nominal
				// capacity used only to translate AHU coil commands
				// into plant demand.
				b.NominalTons += 1.0
				b.NominalMBH += 1.4
			}
			b.AHUs = append(b.AHUs, ahu)
		}
		buildings = append(buildings, b)
	}
	return buildings
}

func registerWeatherPoints(reg *registry.Registry) {
	for _, pt := range []struct{ name, units string }{
		{"oat", "F"}, {"humidity", "%"}, {"wet_bulb", "F"}, {"dew_point", "F"},
		{"enthalpy", "BTU/lb"}, {"solar_irradiance", "W/m2"}, {"wind_speed", "mph"},
		{"cloud_cover", ""},
	} {
		reg.Register(registry.Metadata{
			Path:     "Weather." + pt.name,
			Kind:     registry.KindAnalog,
			Units:    pt.units,
			Writable: false,
			Label:    pt.name,
		}, "Weather")
	}
}

func writeWeatherPoints(reg *registry.Registry, cond weather.Conditions) {
	_ = reg.WritePresent("Weather", "Weather.oat", cond.OAT)
	_ = reg.WritePresent("Weather", "Weather.humidity", cond.Humidity)
	_ = reg.WritePresent("Weather", "Weather.wet_bulb", cond.WetBulb)
	_ = reg.WritePresent("Weather", "Weather.dew_point", cond.DewPoint)
	_ = reg.WritePresent("Weather", "Weather.enthalpy", cond.Enthalpy)
	_ = reg.WritePresent("Weather", "Weather.solar_irradiance", cond.SolarIrradiance)
	_ = reg.WritePresent("Weather", "Weather.wind_speed", cond.WindSpeed)
	_ = reg.WritePresent("Weather", "Weather.cloud_cover", cond.CloudCover)
}

// Scenario returns the active weather scenario.
func (c *Campus) Scenario() weather.Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scenario
}

// SetScenario changes the active weather scenario, taking effect on the
// next AdvanceWeather call.
func (c *Campus) SetScenario(s weather.Scenario) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenario = s
}

// AdvanceWeather computes the weather for sim time now under the active
// scenario, publishes it to the Weather.* points, and returns it for use
// as this tick's equipment.Context.Weather.
func (c *Campus) AdvanceWeather(now time.Time) weather.Conditions {
	cond := c.Weather.Advance(now, c.GeoLat, c.Scenario())
	writeWeatherPoints(c.Reg, cond)
	return cond
}

// AdvanceAll runs one dependency-ordered tick over every owned piece of
// equipment, per spec.md §4.F step 3: zones -> VAVs -> AHUs -> buildings
// -> plant -> electrical -> data center -> wastewater.
func (c *Campus) AdvanceAll(dt time.Duration, ctx *equipment.Context) {
	requestedTons, requestedMBH := 0.0, 0.0

	for _, b := range c.Buildings {
		for _, ahu := range b.AHUs {
			for _, vav := range ahu.VAVs {
				vav.Advance(dt, ctx)
			}
		}
		for _, ahu := range b.AHUs {
			ahu.Advance(dt, ctx)
			requestedTons += b.NominalTons / float64(len(b.AHUs)) * ahu.CoolingCoil / 100
			requestedMBH += b.NominalMBH / float64(len(b.AHUs)) * ahu.HeatingCoil / 100
		}
	}

	c.Plant.AdvancePlant(dt, ctx, requestedTons, requestedMBH)

	downstreamKW := c.Plant.PlantKW + lightingBaselineKW
	for _, b := range c.Buildings {
		for _, ahu := range b.AHUs {
			downstreamKW += ahu.FanSpeed / 100 * fanRatedKW
			for _, vav := range ahu.VAVs {
				downstreamKW += vav.ReheatValve / 100 * reheatRatedKW
			}
		}
	}
	// The data center and wastewater facility advance after electrical,
	// so the meter sums the loads they reported on the previous tick.
	if c.DataCenter != nil {
		downstreamKW += c.DataCenter.FacilityLoadKW
	}
	if c.Wastewater != nil {
		downstreamKW += c.Wastewater.TotalKW
	}

	c.Electrical.AdvanceElectrical(dt, ctx, downstreamKW)

	if c.DataCenter != nil {
		c.DataCenter.AdvanceDataCenter(dt, ctx)
	}
	if c.Wastewater != nil {
		c.Wastewater.AdvanceFacility(dt, ctx)
	}
}
