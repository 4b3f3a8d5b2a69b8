package utils

// math.go - арифметика доходности петли.
//
// Все функции чистые, без побочных эффектов. Симуляция и live-исполнение
// считают доходность одними и теми же функциями.

// PctChange возвращает относительное изменение (end - start) / start.
//
// Доходность петли 0.003 означает +0.3% к стартовому капиталу.
// При start <= 0 возвращает 0.
func PctChange(start, end float64) float64 {
	if start <= 0 {
		return 0
	}
	return (end - start) / start
}

// ApplyFee уменьшает количество на тейкер-комиссию: qty * (1 - fee)
func ApplyFee(qty, fee float64) float64 {
	return qty * (1 - fee)
}
