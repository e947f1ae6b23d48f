package equipment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"campussim/internal/registry"
)

func TestMeterSumsDownstreamMinusSolar(t *testing.T) {
	reg := registry.New()
	meter := NewMeter(reg, "Electrical.Meter_1", 5)

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	meter.Advance(time.Second, ctx, 1000, 200)

	assert.Equal(t, 800.0, meter.KW)
	assert.True(t, meter.GridConnected)
	assert.Equal(t, 60.0, meter.Freq)
}

func TestMeterBrownoutSagsVoltageAndFreq(t *testing.T) {
	reg := registry.New()
	meter := NewMeter(reg, "Electrical.Meter_1", 5)

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Weather.Brownout = true
	meter.Advance(time.Second, ctx, 500, 0)

	assert.NotEqual(t, 60.0, meter.Freq)
	assert.Equal(t, 440.0, meter.VoltageA)
}

func TestSolarArrayZeroAtNight(t *testing.T) {
	reg := registry.New()
	solar := NewSolarArray(reg, "Electrical.Solar_1", 500)

	ctx := testContext(time.Date(2026, 8, 3, 23, 0, 0, 0, time.UTC))
	ctx.Weather.SolarIrradiance = 0
	solar.Advance(time.Second, ctx)

	assert.Equal(t, 0.0, solar.OutputKW)
}

func TestSolarArrayProducesAtNoon(t *testing.T) {
	reg := registry.New()
	solar := NewSolarArray(reg, "Electrical.Solar_1", 500)

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Weather.SolarIrradiance = 900
	solar.Advance(time.Second, ctx)

	assert.Greater(t, solar.OutputKW, 0.0)
	assert.LessOrEqual(t, solar.OutputKW, solar.CapacityKW)
}

func TestUPSTransitionsOnBatteryAndDrains(t *testing.T) {
	reg := registry.New()
	ups := NewUPS(reg, "Electrical.UPS_1", 10, 50)

	ups.Advance(time.Second, false)
	assert.Equal(t, UPSOnBattery, ups.Status)

	for i := 0; i < 3600; i++ {
		ups.Advance(time.Second, false)
	}
	assert.Less(t, ups.BatteryPct, 100.0)
}

func TestUPSReturnsOnlineWhenGridRestored(t *testing.T) {
	reg := registry.New()
	ups := NewUPS(reg, "Electrical.UPS_1", 10, 50)

	ups.Advance(time.Second, false)
	require := assert.New(t)
	require.Equal(UPSOnBattery, ups.Status)

	ups.Advance(time.Second, true)
	require.Equal(UPSOnline, ups.Status)
}

func TestGeneratorStartsAfterSustainedOutage(t *testing.T) {
	reg := registry.New()
	gen := NewGenerator(reg, "Electrical.Generator_1", 1000, 2000)

	for i := 0; i < 9; i++ {
		gen.Advance(time.Second, false, 500)
	}
	assert.Equal(t, GenOff, gen.Status)

	gen.Advance(time.Second, false, 500)
	assert.Equal(t, GenRunning, gen.Status, "generator should be Running at T+10s of sustained outage")
}

func TestGeneratorMeetsEightyPercentDemandByFifteenSeconds(t *testing.T) {
	reg := registry.New()
	gen := NewGenerator(reg, "Electrical.Generator_1", 1000, 2000)

	preLossLoad := 500.0
	for i := 0; i < 10; i++ {
		gen.Advance(time.Second, false, preLossLoad)
	}
	require := assert.New(t)
	require.Equal(GenRunning, gen.Status, "generator status should be Running at T+10s")

	for i := 0; i < 5; i++ {
		gen.Advance(time.Second, false, preLossLoad)
	}
	assert.GreaterOrEqual(t, gen.OutputKW, 0.8*preLossLoad, "output_kw should reach >=0.8x pre-loss load by T+15s")
}

func TestGeneratorRampsToDemandOnceRunning(t *testing.T) {
	reg := registry.New()
	gen := NewGenerator(reg, "Electrical.Generator_1", 1000, 2000)
	gen.Status = GenRunning

	for i := 0; i < 120; i++ {
		gen.Advance(time.Second, false, 400)
	}
	assert.InDelta(t, 400, gen.OutputKW, 50)
	assert.Less(t, gen.FuelLevelPct, 100.0)
}

func TestTransformerLossGrowsWithLoad(t *testing.T) {
	reg := registry.New()
	xfmr := NewTransformer(reg, "Electrical.Transformer_1", 1000)

	xfmr.Advance(100)
	lowLoss := xfmr.LossKW

	xfmr.Advance(900)
	highLoss := xfmr.LossKW

	assert.Greater(t, highLoss, lowLoss)
}

func TestElectricalSystemWiresMeterThroughUPSAndGenerator(t *testing.T) {
	reg := registry.New()
	meter := NewMeter(reg, "Electrical.Meter_1", 5)
	sys := NewElectricalSystem(meter)
	sys.UPSs = []*UPS{NewUPS(reg, "Electrical.UPS_1", 10, 50)}
	sys.Generators = []*Generator{NewGenerator(reg, "Electrical.Generator_1", 1000, 2000)}

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	sys.AdvanceElectrical(time.Second, ctx, 600)

	assert.True(t, meter.GridConnected)
	assert.Equal(t, UPSOnline, sys.UPSs[0].Status)
}
