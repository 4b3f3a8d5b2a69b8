package models

import "strings"

// Loop - треугольный цикл конвертации из трёх торговых пар.
//
// Порядок ног фиксирован:
//   - Pairs[0]: quote → A (покупка A за котируемую валюту)
//   - Pairs[1]: A → B (покупка B за A)
//   - Pairs[2]: B → quote (продажа B за котируемую валюту)
//
// Инвариант: все три пары существуют в снапшоте на момент обнаружения.
// Идентичность цикла = кортеж из трёх идентификаторов пар.
type Loop struct {
	Pairs [3]string `json:"pairs"`

	// Disabled - цикл исключён из сканирования до конца работы процесса.
	// Флаг взводится один раз и никогда не сбрасывается.
	Disabled bool `json:"disabled"`
}

// NewLoop создаёт цикл из трёх идентификаторов пар
func NewLoop(p1, p2, p3 string) Loop {
	return Loop{Pairs: [3]string{p1, p2, p3}}
}

// ID возвращает строковую идентичность цикла (как в UI: "ETH_USDT→BTC_ETH→BTC_USDT")
func (l Loop) ID() string {
	return strings.Join(l.Pairs[:], "→")
}

// SplitPair разбивает идентификатор пары "BASE_QUOTE" на базовую и котируемую валюты.
// Возвращает ok=false если идентификатор не содержит ровно один разделитель.
func SplitPair(pair string) (base, quote string, ok bool) {
	parts := strings.Split(pair, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
