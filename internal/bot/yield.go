package bot

import (
	"triarb/internal/models"
	"triarb/pkg/utils"
)

// LoopYield - результат прогона стартового капитала через три ноги петли.
//
// Вся арифметика доходности живёт здесь: сканер использует её для решения
// о входе, симулятор - для обновления балансов. Оба пути обязаны давать
// одинаковые числа при одинаковых входах.
type LoopYield struct {
	Leg1Qty float64 // количество актива A после ноги 1 (за вычетом комиссии)
	Leg2Qty float64 // количество актива B после ноги 2 (за вычетом комиссии)
	End     float64 // итоговая котируемая валюта после ноги 3
	Profit  float64 // End - Start
	Pct     float64 // Profit / Start
}

// ComputeYield считает прямую доходность петли:
//
//	a   = start/ask1 * (1-fee)    покупка A за котируемую валюту
//	b   = a/ask2 * (1-fee)        покупка B за A
//	end = b*bid3 * (1-fee)        продажа B за котируемую валюту
//
// При start <= 0 или некорректных ценах возвращает нулевую доходность.
func ComputeYield(start, ask1, ask2, bid3, fee float64) LoopYield {
	if start <= 0 || ask1 <= 0 || ask2 <= 0 {
		return LoopYield{}
	}

	a := utils.ApplyFee(start/ask1, fee)
	b := utils.ApplyFee(a/ask2, fee)
	end := utils.ApplyFee(b*bid3, fee)

	return LoopYield{
		Leg1Qty: a,
		Leg2Qty: b,
		End:     end,
		Profit:  end - start,
		Pct:     utils.PctChange(start, end),
	}
}

// YieldFromBooks считает доходность по стаканам трёх ног:
// ask первой и второй (покупки), bid третьей (продажа).
func YieldFromBooks(start float64, books [3]models.Book, fee float64) LoopYield {
	return ComputeYield(start, books[0].Ask, books[1].Ask, books[2].Bid, fee)
}
