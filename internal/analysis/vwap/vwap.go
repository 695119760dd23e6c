// Package vwap считает средневзвешенную по объему цену внутри сессии.
package vwap

import (
	"github.com/skalibog/bookmap/internal/analysis/trades"
	"github.com/skalibog/bookmap/pkg/models"
)

// Compute VWAP для каждого снимка. Объем учитывается только при
// положительном изменении, ценой служит последняя цена снимка.
// Пока объема нет, значение равно последней цене. Снимки без цены
// не меняют накопленные суммы, при необходимости берется предыдущее значение.
func Compute(session *models.Session, deltas []trades.Delta) []float64 {
	n := session.Len()
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	current := firstPrice(session)
	var cumPV, cumVol float64
	for i := 0; i < n; i++ {
		price, hasPrice := session.Snapshots[i].LastPrice.Get()
		if i > 0 && hasPrice && deltas[i].Positive() {
			cumPV += price * deltas[i].Volume.Float64
			cumVol += deltas[i].Volume.Float64
		}

		switch {
		case cumVol > 0:
			current = cumPV / cumVol
		case hasPrice:
			current = price
		}
		out[i] = current
	}
	return out
}

func firstPrice(session *models.Session) float64 {
	for i := range session.Snapshots {
		if p, ok := session.Snapshots[i].LastPrice.Get(); ok {
			return p
		}
	}
	return 0
}
