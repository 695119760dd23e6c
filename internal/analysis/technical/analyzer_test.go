package technical

import (
	"math"
	"testing"
	"time"

	"github.com/skalibog/bookmap/internal/analysis/trades"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
	"github.com/skalibog/bookmap/pkg/models/modelstest"
)

func TestMinuteBars(t *testing.T) {
	// снимки каждые 3 секунды: 20 снимков на минуту
	n := 45
	volumes := make([]float64, n)
	prices := make([]float64, n)
	for i := range prices {
		volumes[i] = float64(i * 10)
		prices[i] = 10 + float64(i%7)*0.1
	}
	session := modelstest.Session("x", volumes, prices)
	deltas := trades.Deltas(session)

	bars := NewAnalyzer(config.Default().Analysis.Technical).MinuteBars(session, deltas)
	if len(bars) != 3 {
		t.Fatalf("bars = %d, want 3", len(bars))
	}

	first := bars[0]
	if first.FirstIndex != 0 || first.LastIndex != 19 {
		t.Errorf("first bar indices = %d..%d", first.FirstIndex, first.LastIndex)
	}
	if !first.Start.Equal(modelstest.SessionStart) {
		t.Errorf("first bar start = %v", first.Start)
	}
	if first.Open != 10 || math.Abs(first.High-10.6) > 1e-9 || first.Low != 10 {
		t.Errorf("first bar = %+v", first)
	}
	if first.Volume != 190 {
		t.Errorf("first bar volume = %v, want 190", first.Volume)
	}
	if math.Abs(first.Spread-0.02) > 1e-9 {
		t.Errorf("spread = %v", first.Spread)
	}
	if first.VWAP < first.Low-1e-9 || first.VWAP > first.High+1e-9 {
		t.Errorf("bar vwap %v outside %v..%v", first.VWAP, first.Low, first.High)
	}
	if bars[1].Volume != 200 {
		t.Errorf("second bar volume = %v, want 200", bars[1].Volume)
	}
	if !bars[2].Start.Equal(modelstest.SessionStart.Add(2 * time.Minute)) {
		t.Errorf("third bar start = %v", bars[2].Start)
	}
}

func TestMinuteBarsSkipWithoutPrice(t *testing.T) {
	session := modelstest.Session("x", []float64{0, 10}, []float64{10, 11})
	for i := range session.Snapshots {
		session.Snapshots[i].LastPrice = models.Missing()
	}
	bars := NewAnalyzer(config.Default().Analysis.Technical).MinuteBars(session, trades.Deltas(session))
	if len(bars) != 0 {
		t.Fatalf("bars = %+v", bars)
	}
}

func TestIndicators(t *testing.T) {
	cfg := config.Default().Analysis.Technical
	a := NewAnalyzer(cfg)

	bars := make([]models.MinuteBar, 30)
	for i := range bars {
		c := 10 + float64(i%5)
		bars[i] = models.MinuteBar{Open: c, High: c + 0.5, Low: c - 0.5, Close: c, LastIndex: i * 20}
	}
	if a.Indicators(bars) != nil {
		t.Fatal("indicators computed while disabled")
	}

	cfg.Enabled = true
	a = NewAnalyzer(cfg)
	if a.Indicators(bars[:10]) != nil {
		t.Fatal("indicators computed on too few bars")
	}

	ind := a.Indicators(bars)
	if ind == nil || len(ind.SMA) != 30 || len(ind.RSI) != 30 || len(ind.ATR) != 30 {
		t.Fatalf("indicators = %+v", ind)
	}
	// среднее пяти значений 10..14
	if v, ok := ind.SMA[4].Get(); !ok || math.Abs(v-12) > 1e-9 {
		t.Errorf("sma[4] = %v", ind.SMA[4])
	}
	// разогрев: RSI и ATR появляются с бара period
	if ind.RSI[cfg.RSIPeriod-1].Valid || !ind.RSI[cfg.RSIPeriod].Valid {
		t.Errorf("rsi warm-up = %v", ind.RSI[:cfg.RSIPeriod+1])
	}
	if ind.ATR[cfg.ATRPeriod-1].Valid || !ind.ATR[cfg.ATRPeriod].Valid {
		t.Errorf("atr warm-up = %v", ind.ATR[:cfg.ATRPeriod+1])
	}
	if v, _ := ind.RSI[cfg.RSIPeriod].Get(); v < 0 || v > 100 {
		t.Errorf("rsi = %v", v)
	}
	// истинный диапазон каждого бара не меньше 1 (high-low)
	if v, _ := ind.ATR[cfg.ATRPeriod].Get(); v < 1-1e-9 {
		t.Errorf("atr = %v", v)
	}

	sma, rsi, atr := ind.At(cfg.RSIPeriod)
	if !sma.Valid || !rsi.Valid || !atr.Valid {
		t.Errorf("At(%d) = %v %v %v", cfg.RSIPeriod, sma, rsi, atr)
	}
	if sma, rsi, atr := (*models.Indicators)(nil).At(0); sma.Valid || rsi.Valid || atr.Valid {
		t.Error("nil indicators returned values")
	}

	x, y := a.SMASeries(bars, ind)
	if len(x) != 30 || y[3].Valid || !y[4].Valid || x[4] != 80 {
		t.Errorf("sma series x=%v y=%v", x[:5], y[:5])
	}
}
