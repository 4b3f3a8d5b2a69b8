package models

import (
	"testing"
	"time"
)

// ============================================================
// Loop Tests
// ============================================================

func TestLoopID(t *testing.T) {
	loop := NewLoop("ETH_USDT", "BTC_ETH", "BTC_USDT")

	want := "ETH_USDT→BTC_ETH→BTC_USDT"
	if got := loop.ID(); got != want {
		t.Errorf("Loop.ID() = %q, want %q", got, want)
	}
}

func TestLoopIdentity(t *testing.T) {
	// Одинаковые тройки пар дают одинаковую идентичность,
	// разный порядок - разную
	a := NewLoop("ETH_USDT", "BTC_ETH", "BTC_USDT")
	b := NewLoop("ETH_USDT", "BTC_ETH", "BTC_USDT")
	c := NewLoop("BTC_USDT", "BTC_ETH", "ETH_USDT")

	if a.ID() != b.ID() {
		t.Errorf("identical loops have different identity: %q vs %q", a.ID(), b.ID())
	}
	if a.ID() == c.ID() {
		t.Errorf("reordered loop shares identity: %q", a.ID())
	}
}

func TestSplitPair(t *testing.T) {
	tests := []struct {
		name      string
		pair      string
		wantBase  string
		wantQuote string
		wantOK    bool
	}{
		{name: "valid pair", pair: "BTC_USDT", wantBase: "BTC", wantQuote: "USDT", wantOK: true},
		{name: "valid pair lowercase quote", pair: "ETH_BTC", wantBase: "ETH", wantQuote: "BTC", wantOK: true},
		{name: "no separator", pair: "BTCUSDT", wantOK: false},
		{name: "too many separators", pair: "BTC_USD_T", wantOK: false},
		{name: "empty base", pair: "_USDT", wantOK: false},
		{name: "empty quote", pair: "BTC_", wantOK: false},
		{name: "empty string", pair: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, quote, ok := SplitPair(tt.pair)
			if ok != tt.wantOK {
				t.Fatalf("SplitPair(%q) ok = %v, want %v", tt.pair, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if base != tt.wantBase || quote != tt.wantQuote {
				t.Errorf("SplitPair(%q) = (%q, %q), want (%q, %q)",
					tt.pair, base, quote, tt.wantBase, tt.wantQuote)
			}
		})
	}
}

// ============================================================
// Book / MarketSnapshot Tests
// ============================================================

func TestBookEmpty(t *testing.T) {
	tests := []struct {
		name string
		book Book
		want bool
	}{
		{name: "both prices present", book: Book{Bid: 100, Ask: 101}, want: false},
		{name: "zero bid", book: Book{Bid: 0, Ask: 101}, want: true},
		{name: "zero ask", book: Book{Bid: 100, Ask: 0}, want: true},
		{name: "both zero", book: Book{}, want: true},
		{name: "negative bid", book: Book{Bid: -1, Ask: 101}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.book.Empty(); got != tt.want {
				t.Errorf("Book%+v.Empty() = %v, want %v", tt.book, got, tt.want)
			}
		})
	}
}

func TestSnapshotAge(t *testing.T) {
	captured := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	snap := MarketSnapshot{CapturedAt: captured}

	now := captured.Add(750 * time.Millisecond)
	if got := snap.Age(now); got != 750*time.Millisecond {
		t.Errorf("Age() = %v, want 750ms", got)
	}
}

func TestSnapshotPairs(t *testing.T) {
	snap := MarketSnapshot{
		Books: map[string]Book{
			"BTC_USDT": {Bid: 100, Ask: 101},
			"ETH_USDT": {Bid: 10, Ask: 11},
		},
	}

	pairs := snap.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("Pairs() returned %d entries, want 2", len(pairs))
	}
	for _, p := range []string{"BTC_USDT", "ETH_USDT"} {
		if _, ok := pairs[p]; !ok {
			t.Errorf("Pairs() missing %q", p)
		}
	}
}

// ============================================================
// ExecutionAttempt Tests
// ============================================================

func TestNewExecutionAttempt(t *testing.T) {
	loop := NewLoop("ETH_USDT", "BTC_ETH", "BTC_USDT")
	attempt := NewExecutionAttempt(loop)

	if attempt.State != StateInit {
		t.Errorf("new attempt state = %s, want %s", attempt.State, StateInit)
	}
	if attempt.Leg1Pair != "ETH_USDT" || attempt.Leg2Pair != "BTC_ETH" || attempt.Leg3Pair != "BTC_USDT" {
		t.Errorf("leg pairs not taken from loop: %s, %s, %s",
			attempt.Leg1Pair, attempt.Leg2Pair, attempt.Leg3Pair)
	}
	if attempt.Leg1Filled != 0 || attempt.Leg2Filled != 0 {
		t.Error("new attempt must start with zero fills")
	}
}

func TestAttemptTerminal(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{StateInit, false},
		{StateLeg1Placed, false},
		{StateLeg1Filled, false},
		{StateLeg2Placed, false},
		{StateLeg2Filled, false},
		{StateLeg3Placed, false},
		{StateLeg3Filled, false},
		{StateRollingBack, false},
		{StateSuccess, true},
		{StateRolledBack, true},
		{StateRollbackFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			a := &ExecutionAttempt{State: tt.state}
			if got := a.Terminal(); got != tt.want {
				t.Errorf("Terminal() in %s = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}
