package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupPresets(t *testing.T) {
	for _, name := range []string{"baseline", "advanced", "advanced-classic", "patient-hunter"} {
		p, ok := Lookup(name)
		assert.True(t, ok, "preset %s missing", name)
		assert.Equal(t, name, p.Name)
		assert.NoError(t, p.Validate())
	}

	_, ok := Lookup("momentum")
	assert.False(t, ok)
}

func TestBaselineHasNoFiltersOrStops(t *testing.T) {
	p := Baseline()
	assert.Equal(t, 0.15, p.ProfitTargetPct)
	assert.Zero(t, p.TrailingStopPct)
	assert.Zero(t, p.InitialStopPct)
	assert.Zero(t, p.TimeStopDays)
	assert.True(t, p.AllowsEntry(EntrySignal{Open: 10, Close: 9, RSI: math.NaN(), Bullish: false}))
}

func TestAdvancedEntryFilters(t *testing.T) {
	p := Advanced()

	green := EntrySignal{Open: 10, Close: 10.5, RSI: 25, Bullish: true}
	assert.True(t, p.AllowsEntry(green))

	redDay := green
	redDay.Close = 9.5
	assert.False(t, p.AllowsEntry(redDay), "red day passed the green-day filter")

	notOversold := green
	notOversold.RSI = 45
	assert.False(t, p.AllowsEntry(notOversold))

	exactThirty := green
	exactThirty.RSI = OversoldThreshold
	assert.False(t, p.AllowsEntry(exactThirty), "RSI filter is strict less-than")

	undefinedRSI := green
	undefinedRSI.RSI = math.NaN()
	assert.False(t, p.AllowsEntry(undefinedRSI), "undefined RSI must fail the oversold filter")

	bearish := green
	bearish.Bullish = false
	assert.False(t, p.AllowsEntry(bearish))
}

func TestAdvancedVariantsDiffer(t *testing.T) {
	a := Advanced()
	c := AdvancedClassic()

	// The classic formulation trails from entry with no hard stop and a
	// shorter time horizon; entries are filtered the same way.
	assert.Equal(t, 60, a.TimeStopDays)
	assert.Equal(t, 45, c.TimeStopDays)
	assert.NotZero(t, a.InitialStopPct)
	assert.Zero(t, c.InitialStopPct)
	assert.NotZero(t, a.TrailingActivationPct)
	assert.Zero(t, c.TrailingActivationPct)
	assert.Equal(t, a.RequireOversold, c.RequireOversold)
	assert.Equal(t, a.RequireBullish, c.RequireBullish)
}

func TestValidateRejectsExitFreePolicy(t *testing.T) {
	p := Policy{Name: "hold-forever"}
	assert.Error(t, p.Validate())
}

func TestNamesMatchPresets(t *testing.T) {
	names := Names()
	presets := Presets()
	assert.Len(t, names, len(presets))
	for i, p := range presets {
		assert.Equal(t, p.Name, names[i])
	}
}
