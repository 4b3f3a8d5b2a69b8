package bot

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestLedgerAdd(t *testing.T) {
	l := NewAccumulationLedger(5.0, 2.0, "GT_USDT", testLogger(), NopSink{})

	l.Add(1.5)
	l.Add(2.5)
	if l.Counter() != 4.0 {
		t.Errorf("counter = %v, want 4.0", l.Counter())
	}

	// Убыток счётчик не трогает
	l.Add(-3.0)
	l.Add(0)
	if l.Counter() != 4.0 {
		t.Errorf("counter after non-positive adds = %v, want 4.0", l.Counter())
	}
}

func TestLedgerDrainFullPass(t *testing.T) {
	tests := []struct {
		name         string
		counter      float64
		threshold    float64
		wantTranches int
		wantLeft     float64
	}{
		{"below threshold", 4.9, 5.0, 0, 4.9},
		{"exactly one tranche", 5.0, 5.0, 1, 0},
		{"two tranches with remainder", 12.5, 5.0, 2, 2.5},
		{"many tranches", 26.0, 5.0, 5, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewAccumulationLedger(tt.threshold, 2.0, "GT_USDT", testLogger(), NopSink{})
			l.Add(tt.counter)

			var purchases int
			tranches, err := l.Drain(context.Background(), func(ctx context.Context, pair string, qty float64) error {
				purchases++
				if pair != "GT_USDT" || qty != 2.0 {
					t.Errorf("purchase(%s, %v), want (GT_USDT, 2.0)", pair, qty)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Drain() failed: %v", err)
			}

			if tranches != tt.wantTranches || purchases != tt.wantTranches {
				t.Errorf("tranches = %d (purchases %d), want %d", tranches, purchases, tt.wantTranches)
			}
			if math.Abs(l.Counter()-tt.wantLeft) > 1e-9 {
				t.Errorf("counter after drain = %v, want %v", l.Counter(), tt.wantLeft)
			}
		})
	}
}

func TestLedgerDrainStopsOnPurchaseFailure(t *testing.T) {
	l := NewAccumulationLedger(5.0, 2.0, "GT_USDT", testLogger(), NopSink{})
	l.Add(12.0) // два транша

	calls := 0
	wantErr := errors.New("order rejected")
	tranches, err := l.Drain(context.Background(), func(ctx context.Context, pair string, qty float64) error {
		calls++
		if calls == 2 {
			return wantErr
		}
		return nil
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Drain() err = %v, want %v", err, wantErr)
	}
	if tranches != 1 {
		t.Errorf("tranches = %d, want 1", tranches)
	}
	// Счётчик уменьшен только за успешный транш
	if l.Counter() != 7.0 {
		t.Errorf("counter = %v, want 7.0 (failed tranche not deducted)", l.Counter())
	}

	// Повторный Drain доводит дело до конца
	tranches, err = l.Drain(context.Background(), func(ctx context.Context, pair string, qty float64) error {
		return nil
	})
	if err != nil || tranches != 1 {
		t.Errorf("retry Drain() = (%d, %v), want (1, nil)", tranches, err)
	}
	if l.Counter() != 2.0 {
		t.Errorf("counter after retry = %v, want 2.0", l.Counter())
	}
}

func TestLedgerDrainZeroThreshold(t *testing.T) {
	l := NewAccumulationLedger(0, 2.0, "GT_USDT", testLogger(), NopSink{})
	l.Add(100)

	tranches, err := l.Drain(context.Background(), func(ctx context.Context, pair string, qty float64) error {
		t.Fatal("purchase must not run with zero threshold")
		return nil
	})
	if err != nil || tranches != 0 {
		t.Errorf("Drain() = (%d, %v), want (0, nil)", tranches, err)
	}
}
