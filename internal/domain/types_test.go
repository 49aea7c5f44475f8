package domain

import (
	"testing"
	"time"
)

func TestDayNormalization(t *testing.T) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading ET timezone: %v", err)
	}

	// Bars stamped at different intra-day times on the same date must land on
	// the same calendar key.
	a := Day(time.Date(2024, 6, 15, 4, 0, 0, 0, time.UTC))
	b := Day(time.Date(2024, 6, 15, 10, 30, 0, 0, et))

	want := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !a.Equal(want) {
		t.Errorf("Day(UTC bar) = %v, want %v", a, want)
	}
	if !b.Equal(want) {
		t.Errorf("Day(ET bar) = %v, want %v", b, want)
	}
}

func TestSellReasonValues(t *testing.T) {
	reasons := []SellReason{SellTarget, SellTrailingStop, SellInitialStop, SellTimeStop}
	seen := make(map[SellReason]bool)
	for _, r := range reasons {
		if r == "" {
			t.Error("empty sell reason constant")
		}
		if seen[r] {
			t.Errorf("duplicate sell reason %q", r)
		}
		seen[r] = true
	}

	if TradeBuy != "BUY" || TradeSell != "SELL" {
		t.Errorf("unexpected trade kinds: %q %q", TradeBuy, TradeSell)
	}
}
