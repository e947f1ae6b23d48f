package params

import "sync"

// Parameters holds the physics tuning multipliers every equipment model
// reads wherever the corresponding physical term appears (spec.md §9).
// No other tuning knob exists. Parameters is mutated by the HTTP admin
// endpoint and read every tick by equipment models, so it is guarded by
// its own RWMutex rather than folded into the registry.
type Parameters struct {
	mu sync.RWMutex

	ThermalMass          float64
	EnvelopeUA           float64
	InternalGains        float64
	SolarGain            float64
	VAVGains             float64
	EquipmentEfficiency  float64
}

// DefaultParameters returns the documented defaults: every multiplier at 1.0.
func DefaultParameters() *Parameters {
	return &Parameters{
		ThermalMass:         1.0,
		EnvelopeUA:          1.0,
		InternalGains:       1.0,
		SolarGain:           1.0,
		VAVGains:            1.0,
		EquipmentEfficiency: 1.0,
	}
}

// Snapshot is a point-in-time, lock-free copy for presentation.
type Snapshot struct {
	ThermalMass         float64 `json:"thermal_mass"`
	EnvelopeUA          float64 `json:"envelope_ua"`
	InternalGains       float64 `json:"internal_gains"`
	SolarGain           float64 `json:"solar_gain"`
	VAVGains            float64 `json:"vav_gains"`
	EquipmentEfficiency float64 `json:"equipment_efficiency"`
}

func (p *Parameters) Get() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{
		ThermalMass:         p.ThermalMass,
		EnvelopeUA:          p.EnvelopeUA,
		InternalGains:       p.InternalGains,
		SolarGain:           p.SolarGain,
		VAVGains:            p.VAVGains,
		EquipmentEfficiency: p.EquipmentEfficiency,
	}
}

// Set applies a partial update; zero-valued fields in s are ignored so
// callers may patch a subset of multipliers. Negative values are ignored
// too, so no multiplier becomes zero or negative (e.g. zero thermal mass).
func (p *Parameters) Set(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	apply(&p.ThermalMass, s.ThermalMass)
	apply(&p.EnvelopeUA, s.EnvelopeUA)
	apply(&p.InternalGains, s.InternalGains)
	apply(&p.SolarGain, s.SolarGain)
	apply(&p.VAVGains, s.VAVGains)
	apply(&p.EquipmentEfficiency, s.EquipmentEfficiency)
}

func apply(dst *float64, v float64) {
	if v <= 0 {
		return
	}
	*dst = v
}
