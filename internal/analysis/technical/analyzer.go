package technical

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/bookmap/internal/analysis/trades"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/models"
)

// Analyzer строит минутные бары и индикаторы по ним
type Analyzer struct {
	config config.TechnicalConfig
}

// NewAnalyzer создает новый анализатор технических индикаторов
func NewAnalyzer(cfg config.TechnicalConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// minuteAcc промежуточные суммы бара
type minuteAcc struct {
	bar       models.MinuteBar
	hasPrice  bool
	spreadSum float64
	midSum    float64
	quotes    int
}

// MinuteBars агрегирует снимки по минутам. Объем и оборот берутся из
// положительных приращений накопленных значений, бары без цены пропускаются.
func (a *Analyzer) MinuteBars(session *models.Session, deltas []trades.Delta) []models.MinuteBar {
	var (
		bars []models.MinuteBar
		acc  *minuteAcc
	)

	flush := func() {
		if acc == nil || !acc.hasPrice {
			return
		}
		b := acc.bar
		b.VWAP = b.Close
		if b.Volume > 0 && b.Turnover > 0 {
			b.VWAP = b.Turnover / b.Volume
		}
		if acc.quotes > 0 {
			b.Spread = acc.spreadSum / float64(acc.quotes)
			b.Mid = acc.midSum / float64(acc.quotes)
		}
		bars = append(bars, b)
	}

	for i := range session.Snapshots {
		snap := &session.Snapshots[i]
		minute := snap.Time.Truncate(time.Minute)
		if acc == nil || !acc.bar.Start.Equal(minute) {
			flush()
			acc = &minuteAcc{bar: models.MinuteBar{Start: minute, FirstIndex: i}}
		}
		acc.bar.LastIndex = i

		if p, ok := snap.LastPrice.Get(); ok {
			if !acc.hasPrice {
				acc.bar.Open, acc.bar.High, acc.bar.Low = p, p, p
				acc.hasPrice = true
			}
			acc.bar.High = math.Max(acc.bar.High, p)
			acc.bar.Low = math.Min(acc.bar.Low, p)
			acc.bar.Close = p
		}
		if i > 0 {
			if deltas[i].Positive() {
				acc.bar.Volume += deltas[i].Volume.Float64
			}
			if t, ok := snap.Turnover.Sub(session.Snapshots[i-1].Turnover).Get(); ok && t > 0 {
				acc.bar.Turnover += t
			}
		}
		bid, okBid := snap.BestBid().Get()
		ask, okAsk := snap.BestAsk().Get()
		if okBid && okAsk {
			acc.spreadSum += ask - bid
			acc.midSum += (ask + bid) / 2
			acc.quotes++
		}
	}
	flush()
	return bars
}

// Indicators SMA и RSI по закрытиям и ATR по барам.
// Возвращает nil, если индикаторы выключены или баров меньше периода.
func (a *Analyzer) Indicators(bars []models.MinuteBar) *models.Indicators {
	if !a.config.Enabled {
		return nil
	}
	longest := max(a.config.SMAPeriod, a.config.RSIPeriod, a.config.ATRPeriod)
	if len(bars) <= longest {
		return nil
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	return &models.Indicators{
		SMA: warmedUp(talib.Sma(closes, a.config.SMAPeriod), a.config.SMAPeriod-1),
		RSI: warmedUp(talib.Rsi(closes, a.config.RSIPeriod), a.config.RSIPeriod),
		ATR: warmedUp(talib.Atr(highs, lows, closes, a.config.ATRPeriod), a.config.ATRPeriod),
	}
}

// warmedUp первые skip значений talib заполняет нулями, они помечаются отсутствующими
func warmedUp(values []float64, skip int) []models.NullFloat {
	out := make([]models.NullFloat, len(values))
	for i := skip; i < len(values); i++ {
		out[i] = models.Some(values[i])
	}
	return out
}

// SMASeries точки SMA в координатах графика: значение ставится на последний снимок бара
func (a *Analyzer) SMASeries(bars []models.MinuteBar, ind *models.Indicators) ([]float64, []models.NullFloat) {
	if ind == nil || len(ind.SMA) != len(bars) {
		return nil, nil
	}
	x := make([]float64, len(bars))
	for i, b := range bars {
		x[i] = float64(b.LastIndex)
	}
	return x, ind.SMA
}
