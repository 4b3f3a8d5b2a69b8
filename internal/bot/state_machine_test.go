package bot

import (
	"testing"

	"triarb/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		// Успешный путь
		{"init to leg1 placed", models.StateInit, models.StateLeg1Placed, true},
		{"leg1 placed to filled", models.StateLeg1Placed, models.StateLeg1Filled, true},
		{"leg1 filled to leg2 placed", models.StateLeg1Filled, models.StateLeg2Placed, true},
		{"leg3 filled to success", models.StateLeg3Filled, models.StateSuccess, true},

		// Откат доступен из любого нетерминального состояния
		{"init to rolling back", models.StateInit, models.StateRollingBack, true},
		{"leg2 placed to rolling back", models.StateLeg2Placed, models.StateRollingBack, true},
		{"leg3 placed to rolling back", models.StateLeg3Placed, models.StateRollingBack, true},
		{"rolling back to rolled back", models.StateRollingBack, models.StateRolledBack, true},
		{"rolling back to rollback failed", models.StateRollingBack, models.StateRollbackFailed, true},

		// Запрещённые переходы
		{"no skipping legs", models.StateLeg1Filled, models.StateLeg3Placed, false},
		{"no backwards", models.StateLeg2Filled, models.StateLeg1Filled, false},
		{"success is terminal", models.StateSuccess, models.StateInit, false},
		{"rolled back is terminal", models.StateRolledBack, models.StateInit, false},
		{"rollback failed is terminal", models.StateRollbackFailed, models.StateRollingBack, false},
		{"no direct success", models.StateInit, models.StateSuccess, false},
		{"unknown state", "BOGUS", models.StateInit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTransitionMutatesAttempt(t *testing.T) {
	att := models.NewExecutionAttempt(models.NewLoop("ETH_USDT", "BTC_ETH", "BTC_USDT"))

	if err := transition(att, models.StateLeg1Placed); err != nil {
		t.Fatalf("transition() failed: %v", err)
	}
	if att.State != models.StateLeg1Placed {
		t.Errorf("state = %s, want %s", att.State, models.StateLeg1Placed)
	}

	if err := transition(att, models.StateSuccess); err == nil {
		t.Error("invalid transition must return error")
	}
	if att.State != models.StateLeg1Placed {
		t.Errorf("failed transition must not mutate state, got %s", att.State)
	}
}

func TestEveryStateHasTransitionEntry(t *testing.T) {
	states := []string{
		models.StateInit, models.StateLeg1Placed, models.StateLeg1Filled,
		models.StateLeg2Placed, models.StateLeg2Filled, models.StateLeg3Placed,
		models.StateLeg3Filled, models.StateSuccess, models.StateRollingBack,
		models.StateRolledBack, models.StateRollbackFailed,
	}

	for _, s := range states {
		if _, ok := ValidTransitions[s]; !ok {
			t.Errorf("state %s missing from ValidTransitions", s)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []string{models.StateSuccess, models.StateRolledBack, models.StateRollbackFailed} {
		if len(ValidTransitions[s]) != 0 {
			t.Errorf("terminal state %s has exits: %v", s, ValidTransitions[s])
		}
	}
}
