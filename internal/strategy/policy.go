// Package strategy expresses the trading rule variants as declarative policy
// values. The simulation driver and the live scanner both consume a Policy;
// adding a strategy means adding a preset, not touching the simulation loop.
package strategy

import (
	"fmt"
	"math"
)

// OversoldThreshold is the RSI level below which an instrument counts as
// oversold for entry filtering.
const OversoldThreshold = 30.0

// Policy is an immutable bundle of entry filters and exit rules. Exit rules
// are evaluated in a fixed priority order: profit target, trailing stop,
// initial stop, time stop; a zero value disables a rule.
type Policy struct {
	Name string

	// ProfitTargetPct exits at entry × (1 + pct) once the session high
	// reaches it.
	ProfitTargetPct float64

	// TrailingStopPct exits at highestSinceEntry × (1 - pct) once the session
	// low touches it. Zero disables trailing entirely.
	TrailingStopPct float64

	// TrailingActivationPct arms the trailing stop only after the session
	// high reaches entry × (1 + pct). Zero arms it from entry.
	TrailingActivationPct float64

	// InitialStopPct exits at entry × (1 - pct) while the trailing stop is
	// not yet armed. Zero disables the hard stop.
	InitialStopPct float64

	// TimeStopDays forces an exit at the close after the position has been
	// held this many calendar days. Zero disables the time stop.
	TimeStopDays int

	// Entry filters, applied on top of close ≤ buyThreshold.
	RequireOversold bool // RSI(14) < OversoldThreshold
	RequireBullish  bool // reference index close > SMA200
	RequireGreenDay bool // close > open
}

// EntrySignal carries the per-date scalars the entry filters inspect.
// RSI may be NaN while its warm-up window is unfilled.
type EntrySignal struct {
	Open    float64
	Close   float64
	RSI     float64
	Bullish bool
}

// AllowsEntry evaluates the policy's entry filters against one session. The
// price-versus-threshold check is the caller's concern; this covers only the
// policy-specific gates. An undefined RSI fails the oversold filter.
func (p Policy) AllowsEntry(sig EntrySignal) bool {
	if p.RequireOversold {
		if math.IsNaN(sig.RSI) || sig.RSI >= OversoldThreshold {
			return false
		}
	}
	if p.RequireBullish && !sig.Bullish {
		return false
	}
	if p.RequireGreenDay && sig.Close <= sig.Open {
		return false
	}
	return true
}

// Validate reports configuration errors that would make a simulation
// degenerate.
func (p Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy has no name")
	}
	if p.ProfitTargetPct < 0 || p.TrailingStopPct < 0 || p.TrailingActivationPct < 0 || p.InitialStopPct < 0 {
		return fmt.Errorf("policy %s: negative rule percentage", p.Name)
	}
	if p.TimeStopDays < 0 {
		return fmt.Errorf("policy %s: negative time stop", p.Name)
	}
	if p.ProfitTargetPct == 0 && p.TrailingStopPct == 0 && p.InitialStopPct == 0 && p.TimeStopDays == 0 {
		return fmt.Errorf("policy %s: no exit rule configured, positions could never close", p.Name)
	}
	return nil
}

// Baseline takes profit at +15% and holds through anything else.
func Baseline() Policy {
	return Policy{
		Name:            "baseline",
		ProfitTargetPct: 0.15,
	}
}

// Advanced is the filtered variant with a hard stop: entries need an oversold
// RSI, a bullish index, and a green day; exits are the +15% target, a 10%
// trailing stop armed at +10%, a -15% hard stop while unarmed, and a 60-day
// time stop.
func Advanced() Policy {
	return Policy{
		Name:                  "advanced",
		ProfitTargetPct:       0.15,
		TrailingStopPct:       0.10,
		TrailingActivationPct: 0.10,
		InitialStopPct:        0.15,
		TimeStopDays:          60,
		RequireOversold:       true,
		RequireBullish:        true,
		RequireGreenDay:       true,
	}
}

// AdvancedClassic is the earlier Advanced formulation: same entry filters,
// but the trailing stop runs from entry with no hard stop, and the time stop
// is 45 days.
func AdvancedClassic() Policy {
	return Policy{
		Name:            "advanced-classic",
		ProfitTargetPct: 0.15,
		TrailingStopPct: 0.10,
		TimeStopDays:    45,
		RequireOversold: true,
		RequireBullish:  true,
		RequireGreenDay: true,
	}
}

// PatientHunter is Baseline plus a 60-day time stop, with no entry filters.
func PatientHunter() Policy {
	return Policy{
		Name:            "patient-hunter",
		ProfitTargetPct: 0.15,
		TimeStopDays:    60,
	}
}

// Presets returns all built-in policies in a stable order.
func Presets() []Policy {
	return []Policy{Baseline(), Advanced(), AdvancedClassic(), PatientHunter()}
}

// Lookup retrieves a preset by name. The second return value indicates
// whether the preset exists.
func Lookup(name string) (Policy, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return Policy{}, false
}

// Names returns the preset names in the same order as Presets.
func Names() []string {
	presets := Presets()
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}
