// Package trades выводит синтетические сделки из накопленного объема.
package trades

import (
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// Delta изменения между соседними снимками
type Delta struct {
	Volume models.NullFloat
	Price  models.NullFloat
}

// Positive присутствует и больше нуля
func (d Delta) Positive() bool {
	v, ok := d.Volume.Get()
	return ok && v > 0
}

// Deltas разности накопленного объема и последней цены.
// Для первого снимка разности отсутствуют.
func Deltas(session *models.Session) []Delta {
	out := make([]Delta, session.Len())
	for i := 1; i < len(out); i++ {
		cur, prev := &session.Snapshots[i], &session.Snapshots[i-1]
		out[i] = Delta{
			Volume: cur.Volume.Sub(prev.Volume),
			Price:  cur.LastPrice.Sub(prev.LastPrice),
		}
	}
	return out
}

// Execution цена и сторона исполнения.
// Рост цены означает активную покупку по лучшей продаже,
// иначе (в том числе без изменения) активную продажу по лучшей покупке.
// Если лучшей котировки нет, берется последняя цена.
func Execution(snap *models.Snapshot, priceDelta models.NullFloat) (models.NullFloat, models.TradeSide, bool) {
	side := models.SideSell
	quote := snap.BestBid()
	if d, ok := priceDelta.Get(); ok && d > 0 {
		side = models.SideBuy
		quote = snap.BestAsk()
	}
	if quote.Valid {
		return quote, side, false
	}
	return snap.LastPrice, side, true
}

// Classifier отбирает значимые изменения объема
type Classifier struct {
	threshold float64
}

// NewClassifier создает классификатор
func NewClassifier(cfg config.TradesConfig) *Classifier {
	return &Classifier{threshold: cfg.SignificanceThreshold}
}

// Significant изменение объема строго больше порога
func (c *Classifier) Significant(d Delta) bool {
	v, ok := d.Volume.Get()
	return ok && v > c.threshold
}

// Classify синтетические сделки в порядке индексов
func (c *Classifier) Classify(session *models.Session, deltas []Delta) []models.SyntheticTrade {
	var out []models.SyntheticTrade
	for i := 1; i < len(deltas); i++ {
		d := deltas[i]
		if !c.Significant(d) {
			continue
		}
		snap := &session.Snapshots[i]
		price, side, estimated := Execution(snap, d.Price)
		out = append(out, models.SyntheticTrade{
			Index:          i,
			Time:           snap.Time,
			VolumeDelta:    d.Volume.Float64,
			PriceDelta:     d.Price,
			ExecutionPrice: price,
			Side:           side,
			Estimated:      estimated,
		})
	}
	return out
}
