package models

// Состояния попытки исполнения цикла.
//
// Прямой путь: INIT → LEG1_PLACED → LEG1_FILLED → LEG2_PLACED → LEG2_FILLED
// → LEG3_PLACED → LEG3_FILLED → SUCCESS.
// Любой сбой переводит попытку в ROLLING_BACK, откуда она завершается в
// ROLLED_BACK либо ROLLBACK_FAILED (терминальное, требует ручного вмешательства).
const (
	StateInit           = "INIT"
	StateLeg1Placed     = "LEG1_PLACED"
	StateLeg1Filled     = "LEG1_FILLED"
	StateLeg2Placed     = "LEG2_PLACED"
	StateLeg2Filled     = "LEG2_FILLED"
	StateLeg3Placed     = "LEG3_PLACED"
	StateLeg3Filled     = "LEG3_FILLED"
	StateSuccess        = "SUCCESS"
	StateRollingBack    = "ROLLING_BACK"
	StateRolledBack     = "ROLLED_BACK"
	StateRollbackFailed = "ROLLBACK_FAILED"
)

// ExecutionAttempt - транзитная запись одной попытки исполнения цикла.
//
// Создаётся при срабатывании триггера, уничтожается по завершении попытки
// (успех, завершённый откат или неудавшийся откат). Никогда не персистится.
type ExecutionAttempt struct {
	Loop Loop

	Leg1Pair string
	Leg2Pair string
	Leg3Pair string

	// Фактически исполненные объёмы (не запрошенные!)
	Leg1Filled float64
	Leg2Filled float64

	State string
}

// NewExecutionAttempt создаёт попытку в состоянии INIT
func NewExecutionAttempt(loop Loop) *ExecutionAttempt {
	return &ExecutionAttempt{
		Loop:     loop,
		Leg1Pair: loop.Pairs[0],
		Leg2Pair: loop.Pairs[1],
		Leg3Pair: loop.Pairs[2],
		State:    StateInit,
	}
}

// Terminal возвращает true если попытка завершена
func (a *ExecutionAttempt) Terminal() bool {
	return a.State == StateSuccess || a.State == StateRolledBack || a.State == StateRollbackFailed
}
