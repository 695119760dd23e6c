package aggregator

import (
	"strconv"
	"time"

	"github.com/skalibog/bookmap/internal/analysis/volumedelta"
	"github.com/skalibog/bookmap/pkg/models"
)

// Размер маркера сделки: от markerBase до markerBase+markerSpan
const (
	markerBase = 5
	markerSpan = 20
)

func newScene(symbol string, date time.Time, space models.CoordinateSpace) *models.Scene {
	return &models.Scene{
		Title:  "Level 2 Market Depth - " + symbol,
		Symbol: symbol,
		Date:   date,
		XAxis:  models.Axis{Title: "Time (Data Points)", Min: 0, Max: space.TotalWidth},
		YAxis:  models.Axis{Title: "Price", Min: space.ExtendedMin, Max: space.ExtendedMax},
	}
}

func indexAxis(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

func bookSeries(session *models.Session) []models.Series {
	n := session.Len()
	bids := make([]models.NullFloat, n)
	asks := make([]models.NullFloat, n)
	for i := range session.Snapshots {
		bids[i] = session.Snapshots[i].BestBid()
		asks[i] = session.Snapshots[i].BestAsk()
	}
	x := indexAxis(n)
	return []models.Series{
		{Name: models.SeriesBestBid, Mode: models.ModeLines, X: x, Y: bids, Color: "lime", Width: 1},
		{Name: models.SeriesBestAsk, Mode: models.ModeLines, X: x, Y: asks, Color: "red", Width: 1},
	}
}

func vwapSeries(values []float64) models.Series {
	y := make([]models.NullFloat, len(values))
	for i, v := range values {
		y[i] = models.Some(v)
	}
	return models.Series{
		Name:          models.SeriesVWAP,
		Mode:          models.ModeLines,
		X:             indexAxis(len(values)),
		Y:             y,
		Color:         "yellow",
		Width:         2,
		Dash:          "dash",
		ShowLegend:    true,
		HoverTemplate: "VWAP: %{y:.3f}<extra></extra>",
	}
}

func cvdSeries(ov *volumedelta.Overlay, space models.CoordinateSpace) []models.Series {
	y := make([]models.NullFloat, len(ov.Scaled))
	raw := make([]models.NullFloat, len(ov.Raw))
	for i := range ov.Scaled {
		y[i] = models.Some(ov.Scaled[i])
		raw[i] = models.Some(ov.Raw[i])
	}
	out := []models.Series{{
		Name:          models.SeriesCVD,
		Mode:          models.ModeLines,
		X:             indexAxis(len(y)),
		Y:             y,
		Color:         "cyan",
		Width:         2,
		ShowLegend:    true,
		Custom:        raw,
		HoverTemplate: "CVD: %{customdata:.0f}<br>Scaled Y: %{y:.2f}<extra></extra>",
	}}
	if ov.Zero.Valid {
		out = append(out, models.Series{
			Name:          models.SeriesCVDZero,
			Mode:          models.ModeLines,
			X:             []float64{0, space.MainWidth},
			Y:             []models.NullFloat{ov.Zero, ov.Zero},
			Color:         "white",
			Width:         1,
			Dash:          "dot",
			HoverTemplate: "CVD Zero Line<extra></extra>",
		})
	}
	return out
}

func smaSeries(x []float64, y []models.NullFloat) models.Series {
	return models.Series{
		Name:          models.SeriesSMA,
		Mode:          models.ModeLines,
		X:             x,
		Y:             y,
		Color:         "orange",
		Width:         1,
		ShowLegend:    true,
		HoverTemplate: "SMA: %{y:.3f}<extra></extra>",
	}
}

func tradeSeries(trades []models.SyntheticTrade) models.Series {
	largest := 0.0
	for _, t := range trades {
		largest = max(largest, t.VolumeDelta)
	}

	s := models.Series{
		Name:          models.SeriesTrades,
		Mode:          models.ModeMarkers,
		X:             make([]float64, len(trades)),
		Y:             make([]models.NullFloat, len(trades)),
		Opacity:       0.8,
		MarkerSizes:   make([]float64, len(trades)),
		MarkerColors:  make([]string, len(trades)),
		Text:          make([]string, len(trades)),
		Custom:        make([]models.NullFloat, len(trades)),
		HoverTemplate: "%{text}<br>Execution Price: %{y:.3f}<br>Price Change: %{customdata:.3f}<extra></extra>",
	}
	for i, t := range trades {
		s.X[i] = float64(t.Index)
		s.Y[i] = t.ExecutionPrice
		s.MarkerSizes[i] = t.VolumeDelta/largest*markerSpan + markerBase
		s.MarkerColors[i] = "red"
		if t.Side == models.SideBuy {
			s.MarkerColors[i] = "green"
		}
		s.Text[i] = t.Label() + " " + strconv.FormatFloat(t.VolumeDelta, 'f', -1, 64)
		s.Custom[i] = t.PriceDelta
	}
	return s
}
