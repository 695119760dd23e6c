// Package volumebars агрегирует значимые сделки в вертикальные столбцы объема.
package volumebars

import (
	"fmt"

	"github.com/skalibog/bookmap/internal/analysis/window"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// Builder строит столбцы объема под графиком цены
type Builder struct {
	config config.VolumeBarsConfig
}

// NewBuilder создает построитель столбцов
func NewBuilder(cfg config.VolumeBarsConfig) *Builder {
	return &Builder{config: cfg}
}

// Width ширина окна агрегации для сессии из n снимков
func (b *Builder) Width(n int) int {
	return window.Width(n, b.config.WindowDivisor)
}

type bucket struct {
	volume     float64
	priceDelta float64
	trades     int
}

// Build группирует сделки по окнам ширины Width(n).
// Отсутствующее изменение цены не влияет на сумму изменений.
func (b *Builder) Build(trades []models.SyntheticTrade, n int) []models.VolumeBar {
	width := b.Width(n)
	windows := window.Aggregate(trades,
		func(t models.SyntheticTrade) int { return t.Index },
		width,
		func(acc bucket, t models.SyntheticTrade) bucket {
			acc.volume += t.VolumeDelta
			acc.priceDelta += t.PriceDelta.Or(0)
			acc.trades++
			return acc
		})

	bars := make([]models.VolumeBar, 0, len(windows))
	for _, w := range windows {
		bars = append(bars, models.VolumeBar{
			Start:      w.Start,
			End:        w.End,
			Center:     float64(w.Start+w.End) / 2,
			Volume:     w.Value.volume,
			PriceDelta: w.Value.priceDelta,
			Trades:     w.Value.trades,
		})
	}
	return bars
}

// Shapes столбцы от основания полосы, высота пропорциональна наибольшему окну.
// При нулевом дневном диапазоне полоса пустая и столбцы не строятся.
func (b *Builder) Shapes(bars []models.VolumeBar, space models.CoordinateSpace) ([]models.Shape, error) {
	if space.Degenerate() {
		return nil, fmt.Errorf("столбцы объема: %w", models.ErrDegenerateRange)
	}
	largest := 0.0
	for _, bar := range bars {
		largest = max(largest, bar.Volume)
	}
	if largest == 0 {
		return nil, nil
	}

	half := float64(b.Width(space.Points)) * b.config.BarFill / 2
	shapes := make([]models.Shape, 0, len(bars))
	for _, bar := range bars {
		fill := "green"
		if bar.PriceDelta < 0 {
			fill = "red"
		}
		shapes = append(shapes, models.Shape{
			Layer:   models.LayerVolumeBars,
			X0:      bar.Center - half,
			X1:      bar.Center + half,
			Y0:      space.VolumeBarBase,
			Y1:      space.VolumeBarBase + bar.Volume/largest*space.VolumeBarHeight,
			Fill:    fill,
			Opacity: b.config.Opacity,
		})
	}
	return shapes, nil
}
