package orderbook

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/skalibog/bookmap/internal/analysis/layout"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
	"github.com/skalibog/bookmap/pkg/models/modelstest"
)

func rampSession(n int) *models.Session {
	volumes := make([]float64, n)
	prices := make([]float64, n)
	for i := range prices {
		volumes[i] = float64(i * 10)
		prices[i] = 10 + float64(i%20)*0.05
	}
	return modelstest.Session("x", volumes, prices)
}

func TestHeatmapCells(t *testing.T) {
	session := rampSession(40)
	session.Snapshots[5].Bids[0].Size = models.Some(1000)
	space, err := layout.Build(session)
	if err != nil {
		t.Fatal(err)
	}

	a := NewAnalyzer(config.Default().Analysis.Heatmap)
	cells, grid, err := a.Heatmap(session, space)
	if err != nil {
		t.Fatal(err)
	}
	if grid.MaxOrderSize != 1000 || grid.TimeStep != 1 {
		t.Fatalf("grid = %+v", grid)
	}
	if len(cells) == 0 {
		t.Fatal("no cells")
	}

	sides := map[models.BookSide]int{}
	for _, c := range cells {
		if c.Opacity < 0 || c.Opacity > 0.8 {
			t.Errorf("opacity %v out of [0, 0.8]", c.Opacity)
		}
		if c.Size < 20 {
			t.Errorf("cell below min order size: %+v", c)
		}
		bin := int((c.Price - space.DailyMin) / grid.PriceStep)
		if bin < 0 || bin >= grid.PriceBins {
			t.Errorf("cell outside price bins: %+v", c)
		}
		sides[c.Side]++
	}
	if sides[models.BookBid] == 0 || sides[models.BookAsk] == 0 {
		t.Errorf("sides = %v", sides)
	}
	found := false
	for _, c := range cells {
		if c.Size == 1000 {
			found = true
			if c.TimeIndex != 5 || c.Side != models.BookBid || c.Opacity != 0.8 {
				t.Errorf("largest order cell = %+v", c)
			}
		}
	}
	if !found {
		t.Error("largest order not in heatmap")
	}
}

func TestHeatmapSizeFloorAndThreshold(t *testing.T) {
	session := rampSession(10)
	for i := range session.Snapshots {
		for k := 0; k < models.BookDepth; k++ {
			session.Snapshots[i].Bids[k].Size = models.Some(19)
			session.Snapshots[i].Asks[k].Size = models.Some(20)
		}
	}
	space, _ := layout.Build(session)

	cells, grid, err := NewAnalyzer(config.Default().Analysis.Heatmap).Heatmap(session, space)
	if err != nil {
		t.Fatal(err)
	}
	if grid.MaxOrderSize != 100 {
		t.Errorf("max order size = %v, want floor 100", grid.MaxOrderSize)
	}
	for _, c := range cells {
		if c.Side != models.BookAsk {
			t.Fatalf("bid of size 19 emitted: %+v", c)
		}
		if math.Abs(c.Opacity-0.2) > 1e-12 {
			t.Errorf("opacity = %v, want 0.2", c.Opacity)
		}
	}
}

func TestHeatmapTimeSamplesBounded(t *testing.T) {
	session := rampSession(1000)
	space, _ := layout.Build(session)

	cells, grid, err := NewAnalyzer(config.Default().Analysis.Heatmap).Heatmap(session, space)
	if err != nil {
		t.Fatal(err)
	}
	times := map[int]bool{}
	for _, c := range cells {
		times[c.TimeIndex] = true
		if c.TimeIndex%grid.TimeStep != 0 {
			t.Fatalf("time index %d not on step %d", c.TimeIndex, grid.TimeStep)
		}
	}
	if len(times) > 240 {
		t.Errorf("%d time samples, want <= 240", len(times))
	}
	if len(cells) > len(times)*2*models.BookDepth {
		t.Errorf("%d cells for %d samples", len(cells), len(times))
	}
}

func TestHeatmapDegenerate(t *testing.T) {
	session := modelstest.Flat("x", 10, 5)
	space, _ := layout.Build(session)
	_, _, err := NewAnalyzer(config.Default().Analysis.Heatmap).Heatmap(session, space)
	if !errors.Is(err, models.ErrDegenerateRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestShapes(t *testing.T) {
	grid := Grid{TimeStep: 4, PriceStep: 0.02}
	shapes := Shapes([]models.HeatmapCell{
		{TimeIndex: 8, Price: 10, Side: models.BookBid, Opacity: 0.5},
		{TimeIndex: 8, Price: 10.1, Side: models.BookAsk, Opacity: 0.25},
	}, grid)

	if shapes[0].X0 != 6 || shapes[0].X1 != 10 || math.Abs(shapes[0].Y0-9.99) > 1e-9 {
		t.Errorf("shape = %+v", shapes[0])
	}
	if !strings.HasPrefix(shapes[0].Fill, "rgba(0,255,0,") || !strings.HasPrefix(shapes[1].Fill, "rgba(255,0,0,") {
		t.Errorf("fills = %q %q", shapes[0].Fill, shapes[1].Fill)
	}
}
