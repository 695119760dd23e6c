package orderbook

import (
	"fmt"
	"math"

	"github.com/skalibog/bookmap/internal/analysis/window"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// Цвета уровней поддержки и сопротивления
const (
	supportRGB    = "0,255,0"
	resistanceRGB = "255,0,0"
)

// Analyzer строит тепловую карту ликвидности стакана
type Analyzer struct {
	config config.HeatmapConfig
}

// NewAnalyzer создает новый анализатор стакана заявок
func NewAnalyzer(cfg config.HeatmapConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Grid сетка прореживания тепловой карты
type Grid struct {
	TimeStep     int
	PriceStep    float64
	PriceBins    int
	MaxOrderSize float64
}

// Grid вычисляет шаги по времени и цене и нормировку размера заявки
func (a *Analyzer) Grid(session *models.Session, space models.CoordinateSpace) Grid {
	priceStep := math.Max(a.config.MinPriceStep, space.DailyRange/float64(a.config.MaxPriceSamples))
	return Grid{
		TimeStep:     window.Step(session.Len(), a.config.MaxTimeSamples),
		PriceStep:    priceStep,
		PriceBins:    int(math.Ceil((space.DailyRange + priceStep) / priceStep)),
		MaxOrderSize: a.MaxOrderSize(session),
	}
}

// MaxOrderSize наибольший размер заявки на всех уровнях, не меньше SizeFloor
func (a *Analyzer) MaxOrderSize(session *models.Session) float64 {
	largest := 0.0
	for i := range session.Snapshots {
		snap := &session.Snapshots[i]
		for k := 0; k < models.BookDepth; k++ {
			if v, ok := snap.Bids[k].Size.Get(); ok {
				largest = math.Max(largest, v)
			}
			if v, ok := snap.Asks[k].Size.Get(); ok {
				largest = math.Max(largest, v)
			}
		}
	}
	return math.Max(largest, a.config.SizeFloor)
}

// Heatmap ячейки ликвидности. Заявки на покупку дают поддержку,
// на продажу сопротивление. При нулевом дневном диапазоне карта не строится.
func (a *Analyzer) Heatmap(session *models.Session, space models.CoordinateSpace) ([]models.HeatmapCell, Grid, error) {
	grid := a.Grid(session, space)
	if space.Degenerate() {
		return nil, grid, fmt.Errorf("тепловая карта: %w", models.ErrDegenerateRange)
	}

	var cells []models.HeatmapCell
	emit := func(t int, level models.Level, side models.BookSide) {
		price, okPrice := level.Price.Get()
		size, okSize := level.Size.Get()
		if !okPrice || !okSize || size < a.config.MinOrderSize {
			return
		}
		bin := int((price - space.DailyMin) / grid.PriceStep)
		if bin < 0 || bin >= grid.PriceBins {
			return
		}
		cells = append(cells, models.HeatmapCell{
			TimeIndex: t,
			Price:     price,
			Size:      size,
			Side:      side,
			Opacity:   math.Min(a.config.MaxOpacity, size/grid.MaxOrderSize),
		})
	}

	for t := 0; t < session.Len(); t += grid.TimeStep {
		snap := &session.Snapshots[t]
		for k := 0; k < models.BookDepth; k++ {
			emit(t, snap.Bids[k], models.BookBid)
		}
		for k := 0; k < models.BookDepth; k++ {
			emit(t, snap.Asks[k], models.BookAsk)
		}
	}
	return cells, grid, nil
}

// Shapes прямоугольники ячеек: шаг времени на шаг цены с центром в (t, price)
func Shapes(cells []models.HeatmapCell, grid Grid) []models.Shape {
	shapes := make([]models.Shape, 0, len(cells))
	halfT := float64(grid.TimeStep) / 2
	halfP := grid.PriceStep / 2
	for _, c := range cells {
		rgb := supportRGB
		if c.Side == models.BookAsk {
			rgb = resistanceRGB
		}
		shapes = append(shapes, models.Shape{
			Layer:   models.LayerHeatmap,
			X0:      float64(c.TimeIndex) - halfT,
			X1:      float64(c.TimeIndex) + halfT,
			Y0:      c.Price - halfP,
			Y1:      c.Price + halfP,
			Fill:    fmt.Sprintf("rgba(%s,%g)", rgb, c.Opacity),
			Opacity: 1,
		})
	}
	return shapes
}
