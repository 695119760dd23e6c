// Package layout вычисляет общую систему координат графика сессии.
package layout

import (
	"fmt"
	"math"

	"github.com/skalibog/bookmap/pkg/models"
)

// Доли дневного диапазона цен и ширины графика
const (
	UpperMargin     = 0.2 // пустое место над максимумом
	SeparationShare = 0.1 // зазор между графиком цены и столбцами объема
	VolumeBarShare  = 0.2 // высота полосы столбцов объема
	ProfileShare    = 0.4 // ширина области профиля относительно числа снимков
)

// Build вычисляет координаты по последним ценам сессии
func Build(session *models.Session) (models.CoordinateSpace, error) {
	n := session.Len()
	if n == 0 {
		return models.CoordinateSpace{}, models.ErrEmptySession
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range session.Snapshots {
		p, ok := session.Snapshots[i].LastPrice.Get()
		if !ok {
			continue
		}
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	if math.IsInf(lo, 1) {
		return models.CoordinateSpace{}, fmt.Errorf("%s: %w", session.Source, models.ErrNoPrices)
	}

	rng := hi - lo
	main := float64(n)
	profile := main * ProfileShare

	return models.CoordinateSpace{
		Points:          n,
		DailyMin:        lo,
		DailyMax:        hi,
		DailyRange:      rng,
		ExtendedMin:     lo - (SeparationShare+VolumeBarShare)*rng,
		ExtendedMax:     hi + UpperMargin*rng,
		MainWidth:       main,
		ProfileWidth:    profile,
		ProfileCenter:   main + profile/2,
		TotalWidth:      main + profile,
		VolumeBarBase:   lo - (SeparationShare+VolumeBarShare)*rng,
		VolumeBarTop:    lo - SeparationShare*rng,
		VolumeBarHeight: VolumeBarShare * rng,
	}, nil
}
