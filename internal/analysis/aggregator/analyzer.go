package aggregator

import (
	"errors"
	"fmt"
	"time"

	"github.com/skalibog/bookmap/internal/analysis/layout"
	"github.com/skalibog/bookmap/internal/analysis/orderbook"
	"github.com/skalibog/bookmap/internal/analysis/profile"
	"github.com/skalibog/bookmap/internal/analysis/technical"
	"github.com/skalibog/bookmap/internal/analysis/trades"
	"github.com/skalibog/bookmap/internal/analysis/volumebars"
	"github.com/skalibog/bookmap/internal/analysis/volumedelta"
	"github.com/skalibog/bookmap/internal/analysis/vwap"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"
)

// Analyzer объединяет все аналитические компоненты одной сессии.
// Работает синхронно и не хранит состояния между вызовами.
type Analyzer struct {
	config          config.AnalysisConfig
	classifier      *trades.Classifier
	orderbookAnal   *orderbook.Analyzer
	volumeDeltaAnal *volumedelta.Analyzer
	profileBuilder  *profile.Builder
	barsBuilder     *volumebars.Builder
	technicalAnal   *technical.Analyzer
}

// NewAnalyzer создает новый анализатор
func NewAnalyzer(cfg config.AnalysisConfig) *Analyzer {
	return &Analyzer{
		config:          cfg,
		classifier:      trades.NewClassifier(cfg.Trades),
		orderbookAnal:   orderbook.NewAnalyzer(cfg.Heatmap),
		volumeDeltaAnal: volumedelta.NewAnalyzer(),
		profileBuilder:  profile.NewBuilder(cfg.Profile),
		barsBuilder:     volumebars.NewBuilder(cfg.VolumeBars),
		technicalAnal:   technical.NewAnalyzer(cfg.Technical),
	}
}

// Analyze вычисляет все производные данные сессии и собирает сцену
func (a *Analyzer) Analyze(session *models.Session) (*models.SessionResult, error) {
	started := time.Now()
	log := logger.With(zap.String("symbol", session.Symbol), zap.String("file", session.Source))

	space, err := layout.Build(session)
	if err != nil {
		return nil, fmt.Errorf("ошибка расчета координат: %w", err)
	}

	deltas := trades.Deltas(session)
	result := &models.SessionResult{
		Symbol:  session.Symbol,
		Source:  session.Source,
		Date:    session.Date(),
		Times:   make([]time.Time, session.Len()),
		Space:   space,
		Trades:  a.classifier.Classify(session, deltas),
		VWAP:    vwap.Compute(session, deltas),
		CVD:     a.volumeDeltaAnal.Cumulative(deltas),
		Profile: a.profileBuilder.Build(session, deltas),
	}
	for i := range session.Snapshots {
		result.Times[i] = session.Snapshots[i].Time
	}
	result.VolumeBars = a.barsBuilder.Build(result.Trades, session.Len())
	result.MinuteBars = a.technicalAnal.MinuteBars(session, deltas)
	result.Indicators = a.technicalAnal.Indicators(result.MinuteBars)

	scene := newScene(session.Symbol, result.Date, space)

	cells, grid, err := a.orderbookAnal.Heatmap(session, space)
	if err := skipDegenerate(log, "тепловая карта", err); err != nil {
		return nil, err
	}
	result.Heatmap = cells
	scene.Shapes = append(scene.Shapes, orderbook.Shapes(cells, grid)...)

	barShapes, err := a.barsBuilder.Shapes(result.VolumeBars, space)
	if err := skipDegenerate(log, "столбцы объема", err); err != nil {
		return nil, err
	}
	scene.Shapes = append(scene.Shapes, barShapes...)
	scene.Shapes = append(scene.Shapes, a.profileBuilder.Shapes(result.Profile, space)...)

	scene.Series = append(scene.Series, bookSeries(session)...)
	scene.Series = append(scene.Series, vwapSeries(result.VWAP))

	overlay, err := a.volumeDeltaAnal.Overlay(result.CVD, space)
	if err := skipDegenerate(log, "CVD", err); err != nil {
		return nil, err
	}
	if overlay != nil {
		scene.Series = append(scene.Series, cvdSeries(overlay, space)...)
	}

	if x, y := a.technicalAnal.SMASeries(result.MinuteBars, result.Indicators); x != nil {
		scene.Series = append(scene.Series, smaSeries(x, y))
	}
	if len(result.Trades) > 0 {
		scene.Series = append(scene.Series, tradeSeries(result.Trades))
	}
	result.Scene = scene

	log.Debug("Сессия проанализирована",
		zap.Int("rows", session.Len()),
		zap.Int("trades", len(result.Trades)),
		zap.Int("heatmap_cells", len(result.Heatmap)),
		zap.Int("profile_levels", len(result.Profile)),
		zap.Int("minute_bars", len(result.MinuteBars)),
		zap.Bool("degenerate", space.Degenerate()),
		zap.Duration("duration", time.Since(started)))
	return result, nil
}

// skipDegenerate вырожденный диапазон только пропускает слой
func skipDegenerate(log *zap.Logger, layer string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrDegenerateRange) {
		log.Debug("Слой пропущен", zap.String("layer", layer), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", layer, err)
}
