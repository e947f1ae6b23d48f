package equipment

import (
	"math"
	"time"

	"campussim/internal/registry"
)

// Pump models a variable-speed pump on a named hydronic loop. The speed
// target is the higher of the speed command and DownstreamDemandPercent;
// flow scales linearly with speed, head with its square, and kW with its
// cube (affinity laws). Head depends on downstream demand only through
// speed.
type Pump struct {
	point

	Loop       string // e.g. "CHW_Primary", "HW_Secondary", "CW"
	Speed      float64 // 0-100 %
	FlowGPM    float64
	HeadFt     float64
	KW         float64
	MaxFlowGPM float64
	MaxHeadFt  float64
	RatedKW    float64

	DownstreamDemandPercent float64 // floor on the speed target; Plant.AdvancePlant does not set it
}

// NewPump creates a pump at prefix on the given loop.
func NewPump(reg *registry.Registry, prefix, loop string, maxFlowGPM, maxHeadFt, ratedKW float64) *Pump {
	p := &Pump{
		point:      newPoint(reg, prefix, prefix),
		Loop:       loop,
		MaxFlowGPM: maxFlowGPM,
		MaxHeadFt:  maxHeadFt,
		RatedKW:    ratedKW,
	}
	p.register("speed", registry.KindAnalog, "%", true)
	p.register("flow_gpm", registry.KindAnalog, "GPM", false)
	p.register("head_ft", registry.KindAnalog, "ft", false)
	p.register("kw", registry.KindAnalog, "kW", false)
	p.register("fault", registry.KindBinary, "", false)
	return p
}

// Advance implements Advancer.
func (p *Pump) Advance(dt time.Duration, ctx *Context) {
	commanded := p.read("speed", p.Speed)
	target := math.Max(commanded, p.DownstreamDemandPercent)
	p.Speed = approach(p.Speed, target, 20, dt)

	speedFrac := p.Speed / 100
	p.FlowGPM = p.MaxFlowGPM * speedFrac
	p.HeadFt = p.MaxHeadFt * speedFrac * speedFrac
	// Affinity laws: power scales with the cube of speed.
	p.KW = p.RatedKW * speedFrac * speedFrac * speedFrac

	// Echo the command rather than the ramped speed so a written command
	// persists across ticks.
	p.write("speed", commanded)
	p.write("flow_gpm", p.FlowGPM)
	p.write("head_ft", p.HeadFt)
	p.write("kw", p.KW)
}
