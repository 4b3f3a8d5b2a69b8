package bot

import (
	"sort"

	"triarb/internal/models"
)

// DiscoverLoops строит множество валидных треугольных петель из снапшота.
//
// Алгоритм: для каждой пары A_quote (покупка промежуточного актива A за
// котируемую валюту) ищем пары B_A (покупка B за A); петля валидна только
// если пара B_quote тоже есть в снапшоте. Результат: [A_quote, B_A, B_quote].
//
// Вызывается один раз на старте. Новые рынки, появившиеся позже,
// в сканирование не попадают.
//
// Детерминизм: пары обходятся в лексикографическом порядке, поэтому на
// одном снапшоте порядок петель воспроизводим от запуска к запуску.
func DiscoverLoops(snap models.MarketSnapshot, quoteCurrency string) []models.Loop {
	pairs := make([]string, 0, len(snap.Books))
	for p := range snap.Books {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)

	exists := snap.Pairs()

	var loops []models.Loop
	seen := make(map[string]struct{})

	for _, p1 := range pairs {
		a, quote, ok := models.SplitPair(p1)
		if !ok || quote != quoteCurrency {
			continue
		}

		for _, p2 := range pairs {
			b, mid, ok := models.SplitPair(p2)
			if !ok || mid != a {
				continue
			}

			p3 := b + "_" + quoteCurrency
			if _, ok := exists[p3]; !ok {
				continue
			}

			loop := models.NewLoop(p1, p2, p3)
			if _, dup := seen[loop.ID()]; dup {
				continue
			}
			seen[loop.ID()] = struct{}{}
			loops = append(loops, loop)
		}
	}

	return loops
}
