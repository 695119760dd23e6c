// Package modelstest строит синтетические сессии для тестов.
package modelstest

import (
	"time"

	"github.com/skalibog/bookmap/pkg/models"
)

// SessionStart начало тестовой сессии
var SessionStart = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// Session строит сессию из накопленных объемов и последних цен.
// Уровни стакана расставлены через 0.01 от последней цены, размеры растут с глубиной.
func Session(symbol string, volumes, prices []float64) *models.Session {
	n := len(prices)
	if len(volumes) < n {
		n = len(volumes)
	}

	session := &models.Session{
		Symbol:    symbol,
		Source:    symbol + "_test.csv",
		Snapshots: make([]models.Snapshot, n),
	}
	for i := 0; i < n; i++ {
		snap := models.Snapshot{
			Time:      SessionStart.Add(time.Duration(i) * 3 * time.Second),
			Symbol:    symbol,
			LastPrice: models.Some(prices[i]),
			Volume:    models.Some(volumes[i]),
			Turnover:  models.Some(volumes[i] * prices[i]),
		}
		for k := 0; k < models.BookDepth; k++ {
			offset := 0.01 * float64(k+1)
			size := 50 * float64(k+1)
			snap.Bids[k] = models.Level{Price: models.Some(prices[i] - offset), Size: models.Some(size)}
			snap.Asks[k] = models.Level{Price: models.Some(prices[i] + offset), Size: models.Some(size)}
		}
		session.Snapshots[i] = snap
	}
	return session
}

// Flat строит сессию с постоянной ценой
func Flat(symbol string, n int, price float64) *models.Session {
	volumes := make([]float64, n)
	prices := make([]float64, n)
	for i := range prices {
		volumes[i] = float64(i) * 100
		prices[i] = price
	}
	return Session(symbol, volumes, prices)
}
