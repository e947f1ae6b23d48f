package equipment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campussim/internal/registry"
)

func TestLiftStationStartsPumpAtOnLevel(t *testing.T) {
	reg := registry.New()
	lift := NewLiftStation(reg, "Wastewater.LiftStation_1", 5000, 300)
	lift.LevelPercent = 75

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	lift.Advance(time.Second, ctx)

	assert.True(t, lift.PumpOneRunning)
}

func TestLiftStationStopsPumpAtOffLevel(t *testing.T) {
	reg := registry.New()
	lift := NewLiftStation(reg, "Wastewater.LiftStation_1", 5000, 300)
	lift.LevelPercent = 75
	lift.PumpOneRunning = true

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	// Net -150 GPM on a 5000 gal well lowers the level 0.05% per second,
	// so the 75% start reaches the 20% off level after 1100 s.
	for i := 0; i < 1100; i++ {
		lift.Advance(time.Second, ctx)
	}

	assert.LessOrEqual(t, lift.LevelPercent, lift.PumpOffLevel+0.01)
}

func TestLiftStationHighLevelAlarmSetAboveAlarmLevel(t *testing.T) {
	reg := registry.New()
	lift := NewLiftStation(reg, "Wastewater.LiftStation_1", 5000, 300)
	lift.LevelPercent = 95

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	lift.Advance(time.Second, ctx)

	v, err := reg.Read("Wastewater.LiftStation_1.high_level_alarm")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Effective)
}

func TestAerationBlowerSpeedTracksDeficit(t *testing.T) {
	reg := registry.New()
	blower := NewAerationBlower(reg, "Wastewater.Blower_1", 2000, 50)
	blower.DOLevel = 0.5

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	blower.Advance(time.Second, ctx, 0.5)

	assert.Greater(t, blower.Speed, 0.0, "a DO deficit should command the blower up")
}

func TestClarifierTurbidityRisesWithLoad(t *testing.T) {
	reg := registry.New()
	clarifier := NewClarifier(reg, "Wastewater.Clarifier_1")

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	for i := 0; i < 1200; i++ {
		clarifier.Advance(time.Second, ctx, 2000)
	}

	assert.Greater(t, clarifier.Turbidity, 5.0)
}

func TestUVDisinfectionFaultsOnLowDoseWithFlow(t *testing.T) {
	reg := registry.New()
	uv := NewUVDisinfection(reg, "Wastewater.UV_1")
	require.NoError(t, reg.WritePresent("Wastewater.UV_1", "Wastewater.UV_1.lamp_intensity_percent", 10))

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	uv.Advance(time.Second, ctx, 1500)

	v, err := reg.Read("Wastewater.UV_1.fault")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Effective)
}

func TestUVDisinfectionNoFaultWithoutFlow(t *testing.T) {
	reg := registry.New()
	uv := NewUVDisinfection(reg, "Wastewater.UV_1")

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	uv.Advance(time.Second, ctx, 0)

	v, err := reg.Read("Wastewater.UV_1.fault")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Effective)
}

func TestWastewaterFacilityAdvancesTreatmentTrain(t *testing.T) {
	reg := registry.New()
	facility := NewWastewaterFacility(reg, "Wastewater")
	facility.LiftStation = NewLiftStation(reg, "Wastewater.LiftStation_1", 5000, 300)
	facility.Blowers = []*AerationBlower{NewAerationBlower(reg, "Wastewater.Blower_1", 2000, 50)}
	facility.Clarifiers = []*Clarifier{NewClarifier(reg, "Wastewater.Clarifier_1")}
	facility.UV = NewUVDisinfection(reg, "Wastewater.UV_1")

	ctx := testContext(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	ctx.Reg = reg
	// The blower starts at its DO setpoint with speed 0 and draws power
	// once DO falls below the setpoint.
	for i := 0; i < 60; i++ {
		facility.AdvanceFacility(time.Second, ctx)
	}

	assert.Equal(t, facility.LiftStation.InfluentGPM, facility.EffluentGPM)
	assert.Greater(t, facility.TotalKW, 0.0)
}
