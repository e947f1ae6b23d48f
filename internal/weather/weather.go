// Package weather computes outside-air conditions from simulated time,
// latitude and active scenario, grounded on the psychrometric closed
// forms in the original campus-sim's weather model.
package weather

import (
	"math"
	"math/rand"
	"time"
)

// Scenario selects a bounded weather adjustment applied on top of the
// seasonal/diurnal baseline.
type Scenario string

const (
	ScenarioNormal      Scenario = "Normal"
	ScenarioSnow        Scenario = "Snow"
	ScenarioRainstorm   Scenario = "Rainstorm"
	ScenarioWindstorm   Scenario = "Windstorm"
	ScenarioThunderstorm Scenario = "Thunderstorm"
	ScenarioHeatwave    Scenario = "Heatwave"
)

// Conditions is the full set of weather outputs published each tick as
// synthetic Weather.* points.
type Conditions struct {
	OAT              float64 // F
	Humidity         float64 // %RH
	WetBulb          float64 // F
	DewPoint         float64 // F
	Enthalpy         float64 // BTU/lb
	SolarIrradiance  float64 // W/m^2
	WindSpeed        float64 // mph
	CloudCover       float64 // 0..1
	Brownout         bool    // Thunderstorm-only transient grid event
}

// monthlyAlmanac holds (high, low) Fahrenheit for each month, matching
// the Nashville almanac baseline used by the source simulator.
var monthlyAlmanac = [12][2]float64{
	{47, 28}, {52, 31}, {61, 39}, {70, 47}, {78, 57}, {85, 65},
	{89, 69}, {88, 68}, {82, 61}, {71, 49}, {59, 39}, {49, 31},
}

// Model computes weather conditions for a given sim time, latitude and
// scenario. It holds no mutable state beyond the PRNG used for
// scenario-driven transients (brownouts), which is safe for concurrent
// reads at the granularity this is called (once per tick from the tick
// driver).
type Model struct {
	rand *rand.Rand
}

// New creates a weather model. seed controls the deterministic stream
// used for scenario transients (two Models built with the same seed and
// fed the same tick sequence produce identical outputs, per testable
// property 6).
func New(seed int64) *Model {
	return &Model{rand: rand.New(rand.NewSource(seed))}
}

// Advance computes the weather conditions at t for the given latitude
// and scenario.
func (m *Model) Advance(t time.Time, latLon float64, scenario Scenario) Conditions {
	dayOfYear := float64(t.YearDay())
	hour := float64(t.Hour()) + float64(t.Minute())/60

	baseline := m.annualSeasonal(latLon, dayOfYear) + m.dailyDiurnal(hour)

	humidity := 50.0
	wind := 5.0
	cloud := 0.2
	solar := m.clearSkySolar(hour, dayOfYear, latLon) * (1 - cloud)
	oat := baseline
	brownout := false

	switch scenario {
	case ScenarioSnow:
		oat = clamp(oat-20, 20, 30)
		humidity = math.Max(humidity, 80)
		cloud = 0.9
	case ScenarioRainstorm:
		oat -= 5
		humidity = math.Max(humidity, 85)
		cloud = 0.95
		wind = 15
	case ScenarioWindstorm:
		wind = 35
		cloud = 0.6
	case ScenarioThunderstorm:
		oat -= 8
		humidity = math.Max(humidity, 75)
		cloud = 0.98
		wind = 25
		brownout = m.rand.Float64() < 0.02
	case ScenarioHeatwave:
		oat += 12
		humidity = math.Min(humidity, 35)
		cloud = 0.05
	}

	solar = m.clearSkySolar(hour, dayOfYear, latLon) * (1 - cloud)

	p := psychrometrics(oat, humidity)

	return Conditions{
		OAT:             oat,
		Humidity:        humidity,
		WetBulb:         p.wetBulb,
		DewPoint:        p.dewPoint,
		Enthalpy:        p.enthalpy,
		SolarIrradiance: solar,
		WindSpeed:       wind,
		CloudCover:      cloud,
		Brownout:        brownout,
	}
}

// annualSeasonal interpolates the monthly almanac to a smooth
// mid-temperature baseline for the day of year, adjusted for latitude
// relative to the almanac's reference latitude (~36N).
func (m *Model) annualSeasonal(lat, dayOfYear float64) float64 {
	monthLen := 365.0 / 12
	idx := int(dayOfYear/monthLen) % 12
	next := (idx + 1) % 12
	frac := (dayOfYear - float64(idx)*monthLen) / monthLen

	hi := lerp(monthlyAlmanac[idx][0], monthlyAlmanac[next][0], frac)
	lo := lerp(monthlyAlmanac[idx][1], monthlyAlmanac[next][1], frac)
	mid := (hi + lo) / 2

	// Every 10 degrees of latitude away from the reference shifts the
	// seasonal baseline by roughly 3F, colder toward the poles.
	latShift := (36.16 - lat) / 10 * 3
	return mid + latShift
}

// dailyDiurnal applies a sinusoidal swing around the seasonal mean,
// peaking mid-afternoon (hour 15) and bottoming before dawn (hour 3).
func (m *Model) dailyDiurnal(hour float64) float64 {
	const amplitude = 8.0
	return amplitude * math.Sin((hour-9)/24*2*math.Pi)
}

// clearSkySolar gives a simple cosine-bell solar irradiance curve
// peaking at local solar noon, scaled by day length implied by
// latitude and season.
func (m *Model) clearSkySolar(hour, dayOfYear, lat float64) float64 {
	decl := 23.45 * math.Sin(2*math.Pi*(284+dayOfYear)/365) * math.Pi / 180
	latRad := lat * math.Pi / 180
	cosH := -math.Tan(latRad) * math.Tan(decl)
	cosH = clamp(cosH, -1, 1)
	halfDayHours := math.Acos(cosH) * 24 / (2 * math.Pi)

	sunrise := 12 - halfDayHours
	sunset := 12 + halfDayHours
	if hour <= sunrise || hour >= sunset {
		return 0
	}
	frac := (hour - sunrise) / (sunset - sunrise)
	return 1000 * math.Sin(frac*math.Pi)
}

type psychro struct {
	wetBulb, dewPoint, enthalpy float64
}

// psychrometrics implements the same Magnus/Stull closed forms as the
// original simulator's weather.py, operating on Fahrenheit input.
func psychrometrics(tF, rh float64) psychro {
	tC := (tF - 32) * 5 / 9

	es := 6.112 * math.Exp((17.67*tC)/(tC+243.5))
	e := es * (rh / 100.0)

	var tDewF float64
	if e > 0 {
		alpha := math.Log(e / 6.112)
		tDewC := (alpha * 243.5) / (17.67 - alpha)
		tDewF = tDewC*9/5 + 32
	} else {
		tDewF = tF
	}

	pAtmHPa := 29.92 * 33.8639
	w := 0.622 * e / (pAtmHPa - e)
	enthalpy := 0.24*tF + w*(1061+0.444*tF)

	term1 := tC * math.Atan(0.151977*math.Sqrt(math.Max(rh+8.313659, 0)))
	term2 := math.Atan(tC + rh)
	term3 := math.Atan(rh - 1.676331)
	term4 := 0.00391838 * math.Pow(math.Max(rh, 0), 1.5) * math.Atan(0.023101*rh)
	tWbC := term1 + term2 - term3 + term4 - 4.686035
	tWbF := tWbC*9/5 + 32

	return psychro{wetBulb: tWbF, dewPoint: tDewF, enthalpy: enthalpy}
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
