package bot

import (
	"fmt"

	"triarb/internal/models"
)

// ValidTransitions определяет допустимые переходы между состояниями попытки.
//
// Успешный путь строго линеен: три ноги размещаются и исполняются
// последовательно. Любой сбой уводит в ROLLING_BACK, откуда попытка
// завершается в одном из двух терминальных состояний отката.
var ValidTransitions = map[string][]string{
	models.StateInit:        {models.StateLeg1Placed, models.StateRollingBack},
	models.StateLeg1Placed:  {models.StateLeg1Filled, models.StateRollingBack},
	models.StateLeg1Filled:  {models.StateLeg2Placed, models.StateRollingBack},
	models.StateLeg2Placed:  {models.StateLeg2Filled, models.StateRollingBack},
	models.StateLeg2Filled:  {models.StateLeg3Placed, models.StateRollingBack},
	models.StateLeg3Placed:  {models.StateLeg3Filled, models.StateRollingBack},
	models.StateLeg3Filled:  {models.StateSuccess, models.StateRollingBack},
	models.StateRollingBack: {models.StateRolledBack, models.StateRollbackFailed},
	// Терминальные состояния: выходов нет
	models.StateSuccess:        {},
	models.StateRolledBack:     {},
	models.StateRollbackFailed: {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// transition переводит попытку в новое состояние с проверкой допустимости.
// Недопустимый переход - ошибка программиста, а не рынка.
func transition(att *models.ExecutionAttempt, to string) error {
	if !CanTransition(att.State, to) {
		return fmt.Errorf("invalid state transition %s -> %s", att.State, to)
	}
	att.State = to
	return nil
}
