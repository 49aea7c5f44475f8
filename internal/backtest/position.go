package backtest

import (
	"time"

	"diphunter/internal/domain"
	"diphunter/internal/indicator"
	"diphunter/internal/strategy"
)

// Position is the single open position the simulator may hold. It exists only
// between a BUY and its matching SELL and is owned exclusively by the driver;
// the only mutation after open is the high-water mark and trailing-stop
// activation inside EvaluateExit.
type Position struct {
	Ticker            string
	Shares            float64
	EntryPrice        float64
	EntryDate         time.Time
	HighestSinceEntry float64
	TrailingActive    bool
}

// openPosition creates a Position from an all-in fill at the session close.
func openPosition(ticker string, shares, price float64, date time.Time) *Position {
	return &Position{
		Ticker:            ticker,
		Shares:            shares,
		EntryPrice:        price,
		EntryDate:         date,
		HighestSinceEntry: price,
	}
}

// exitFill is the price and reason of a fired exit rule.
type exitFill struct {
	Price  float64
	Reason domain.SellReason
}

// EvaluateExit runs the policy's exit rules against one session. The
// high-water mark is updated from the session high before any stop distance
// is computed, since trailing levels reference the updated high. The first
// rule that fires wins, in the fixed priority order: profit target, trailing
// stop, initial stop, time stop.
func (p *Position) EvaluateExit(pol strategy.Policy, row indicator.Row) (exitFill, bool) {
	if row.High > p.HighestSinceEntry {
		p.HighestSinceEntry = row.High
	}

	if pol.TrailingStopPct > 0 && !p.TrailingActive {
		if pol.TrailingActivationPct == 0 {
			p.TrailingActive = true
		} else if p.HighestSinceEntry >= p.EntryPrice*(1+pol.TrailingActivationPct) {
			p.TrailingActive = true
		}
	}

	if pol.ProfitTargetPct > 0 {
		target := p.EntryPrice * (1 + pol.ProfitTargetPct)
		if row.High >= target {
			return exitFill{Price: target, Reason: domain.SellTarget}, true
		}
	}

	if pol.TrailingStopPct > 0 && p.TrailingActive {
		stop := p.HighestSinceEntry * (1 - pol.TrailingStopPct)
		if row.Low <= stop {
			return exitFill{Price: stop, Reason: domain.SellTrailingStop}, true
		}
	}

	if pol.InitialStopPct > 0 && !p.TrailingActive {
		stop := p.EntryPrice * (1 - pol.InitialStopPct)
		if row.Low <= stop {
			return exitFill{Price: stop, Reason: domain.SellInitialStop}, true
		}
	}

	if pol.TimeStopDays > 0 && daysHeld(p.EntryDate, row.Date) >= pol.TimeStopDays {
		return exitFill{Price: row.Close, Reason: domain.SellTimeStop}, true
	}

	return exitFill{}, false
}

// daysHeld counts calendar days between entry and the current session.
func daysHeld(entry, current time.Time) int {
	return int(current.Sub(entry).Hours() / 24)
}
