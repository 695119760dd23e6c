// Package profile строит горизонтальный профиль объема по ценам исполнения.
package profile

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/skalibog/bookmap/internal/analysis/trades"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// Builder накапливает объем покупок и продаж по цене
type Builder struct {
	config config.ProfileConfig
	tick   decimal.Decimal
	places int32
}

// NewBuilder создает построитель профиля
func NewBuilder(cfg config.ProfileConfig) *Builder {
	tick := decimal.NewFromFloat(cfg.Tick)
	return &Builder{
		config: cfg,
		tick:   tick,
		places: -tick.Exponent(),
	}
}

// Round округляет цену до шага профиля
func (b *Builder) Round(price float64) decimal.Decimal {
	d := decimal.NewFromFloat(price)
	if b.tick.IsZero() {
		return d
	}
	return d.Div(b.tick).Round(0).Mul(b.tick).Round(b.places)
}

// Build учитывает каждое положительное изменение объема, без порога значимости.
// Цена и сторона определяются так же, как для синтетических сделок.
// Изменения без какой-либо цены исполнения пропускаются.
func (b *Builder) Build(session *models.Session, deltas []trades.Delta) []models.VolumeProfileEntry {
	byPrice := make(map[string]*models.VolumeProfileEntry)
	for i := 1; i < len(deltas); i++ {
		d := deltas[i]
		if !d.Positive() {
			continue
		}
		price, side, _ := trades.Execution(&session.Snapshots[i], d.Price)
		if !price.Valid {
			continue
		}

		rounded := b.Round(price.Float64)
		key := rounded.String()
		entry, ok := byPrice[key]
		if !ok {
			entry = &models.VolumeProfileEntry{Price: rounded.InexactFloat64()}
			byPrice[key] = entry
		}
		if side == models.SideBuy {
			entry.BuyVolume += d.Volume.Float64
		} else {
			entry.SellVolume += d.Volume.Float64
		}
	}

	out := make([]models.VolumeProfileEntry, 0, len(byPrice))
	for _, e := range byPrice {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// Shapes столбцы профиля от центра области: покупки вправо, продажи влево.
// Ширина нормируется на наибольший объем одной стороны.
func (b *Builder) Shapes(entries []models.VolumeProfileEntry, space models.CoordinateSpace) []models.Shape {
	largest := 0.0
	for _, e := range entries {
		largest = max(largest, e.BuyVolume, e.SellVolume)
	}
	if largest == 0 {
		return nil
	}

	maxWidth := space.ProfileWidth / 2 * b.config.MaxBarShare
	half := b.config.Tick / 2
	var shapes []models.Shape
	for _, e := range entries {
		if e.BuyVolume > 0 {
			shapes = append(shapes, models.Shape{
				Layer:   models.LayerProfile,
				X0:      space.ProfileCenter,
				X1:      space.ProfileCenter + e.BuyVolume/largest*maxWidth,
				Y0:      e.Price - half,
				Y1:      e.Price + half,
				Fill:    "green",
				Opacity: b.config.Opacity,
			})
		}
		if e.SellVolume > 0 {
			shapes = append(shapes, models.Shape{
				Layer:   models.LayerProfile,
				X0:      space.ProfileCenter - e.SellVolume/largest*maxWidth,
				X1:      space.ProfileCenter,
				Y0:      e.Price - half,
				Y1:      e.Price + half,
				Fill:    "red",
				Opacity: b.config.Opacity,
			})
		}
	}
	return shapes
}
