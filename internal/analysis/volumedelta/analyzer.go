// internal/analysis/volumedelta/analyzer.go
package volumedelta

import (
	"fmt"

	"github.com/skalibog/bookmap/internal/analysis/trades"
	"github.com/skalibog/bookmap/pkg/models"
)

// BandFill доля высоты полосы объема, занимаемая линией CVD
const BandFill = 0.8

// Analyzer реализует расчет кумулятивной дельты объемов
type Analyzer struct {
	bandFill float64
}

// NewAnalyzer создает новый анализатор дельты объемов
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		bandFill: BandFill,
	}
}

// Cumulative накопленная дельта: рост цены добавляет объем, падение вычитает,
// без изменения цены дельта не меняется
func (a *Analyzer) Cumulative(deltas []trades.Delta) []float64 {
	out := make([]float64, len(deltas))
	var cumulative float64
	for i := 1; i < len(deltas); i++ {
		d := deltas[i]
		if d.Positive() {
			if p, ok := d.Price.Get(); ok {
				switch {
				case p > 0:
					cumulative += d.Volume.Float64
				case p < 0:
					cumulative -= d.Volume.Float64
				}
			}
		}
		out[i] = cumulative
	}
	return out
}

// Overlay CVD, отмасштабированная в полосу столбцов объема
type Overlay struct {
	Raw    []float64
	Scaled []float64
	Min    float64
	Max    float64
	Zero   models.NullFloat // уровень нуля, если ноль внутри [Min, Max]
}

// Overlay масштабирует CVD в нижние 80% полосы объема.
// При нулевом размахе возвращает ErrDegenerateRange.
func (a *Analyzer) Overlay(cvd []float64, space models.CoordinateSpace) (*Overlay, error) {
	if len(cvd) == 0 {
		return nil, fmt.Errorf("CVD: %w", models.ErrDegenerateRange)
	}

	lo, hi := cvd[0], cvd[0]
	for _, v := range cvd[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		return nil, fmt.Errorf("CVD: размах %v: %w", span, models.ErrDegenerateRange)
	}

	scale := func(v float64) float64 {
		return space.VolumeBarBase + (v-lo)/span*space.VolumeBarHeight*a.bandFill
	}

	out := &Overlay{
		Raw:    cvd,
		Scaled: make([]float64, len(cvd)),
		Min:    lo,
		Max:    hi,
	}
	for i, v := range cvd {
		out.Scaled[i] = scale(v)
	}
	if lo <= 0 && hi >= 0 {
		out.Zero = models.Some(scale(0))
	}
	return out, nil
}
