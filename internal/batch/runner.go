// Package batch обрабатывает каталог снимков стакана: каждый файл независимо,
// ошибка одного файла не останавливает остальные.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skalibog/bookmap/internal/analysis/aggregator"
	"github.com/skalibog/bookmap/internal/calendar"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/internal/ingest"
	"github.com/skalibog/bookmap/internal/normalize"
	"github.com/skalibog/bookmap/internal/render"
	"github.com/skalibog/bookmap/internal/storage"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Observer получает события обработки файлов. Вызывается из рабочих горутин.
type Observer interface {
	Started(runID string, files []string)
	FileStarted(path string)
	FileDone(report models.FileReport)
}

// Summary итог пакетной обработки
type Summary struct {
	RunID    string
	Dir      string
	Reports  []models.FileReport
	Duration time.Duration
}

// Count число отчетов с заданным статусом
func (s Summary) Count(status models.ReportStatus) int {
	n := 0
	for _, r := range s.Reports {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Runner пакетный обработчик
type Runner struct {
	config     *config.Config
	reader     *ingest.CSVReader
	normalizer *normalize.Normalizer
	analyzer   *aggregator.Analyzer
	renderer   *render.Renderer
	store      storage.Storage
	observer   Observer

	calendarsMu sync.Mutex
	calendars   map[string]*calendar.TradingCalendar
}

// NewRunner создает обработчик. observer может быть nil.
func NewRunner(cfg *config.Config, store storage.Storage, observer Observer) (*Runner, error) {
	normalizer, err := normalize.NewNormalizer(cfg.Input, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("ошибка настройки нормализации: %w", err)
	}
	return &Runner{
		config:     cfg,
		reader:     ingest.NewCSVReader(cfg.Input),
		normalizer: normalizer,
		analyzer:   aggregator.NewAnalyzer(cfg.Analysis),
		renderer:   render.NewRenderer(cfg.Output),
		store:      store,
		observer:   observer,
		calendars:  make(map[string]*calendar.TradingCalendar),
	}, nil
}

// ListFiles файлы каталога по шаблону в лексикографическом порядке
func ListFiles(dir, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("ошибка шаблона %q: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// Run обрабатывает все файлы каталога. Ошибка возвращается только если
// каталог не прочитан; отмена ctx помечает необработанные файлы пропущенными.
func (r *Runner) Run(ctx context.Context, dir string) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString(), Dir: dir}

	files, err := ListFiles(dir, r.config.Input.Pattern)
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		logger.Warn("Нет входных файлов", zap.String("dir", dir), zap.String("pattern", r.config.Input.Pattern))
	}
	if r.observer != nil {
		r.observer.Started(summary.RunID, files)
	}

	log := logger.With(zap.String("run_id", summary.RunID))
	log.Info("Запуск обработки",
		zap.String("dir", dir),
		zap.Int("files", len(files)),
		zap.Int("workers", r.config.Batch.Workers))

	summary.Reports = make([]models.FileReport, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.config.Batch.Workers))
	for i, path := range files {
		g.Go(func() error {
			summary.Reports[i] = r.ProcessFile(gctx, summary.RunID, path)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(started)
	log.Info("Обработка завершена",
		zap.Int("ok", summary.Count(models.StatusOK)),
		zap.Int("skipped", summary.Count(models.StatusSkipped)),
		zap.Int("failed", summary.Count(models.StatusFailed)),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// ProcessFile полный цикл одного файла: чтение, нормализация, анализ, отрисовка, сохранение
func (r *Runner) ProcessFile(ctx context.Context, runID, path string) (report models.FileReport) {
	started := time.Now()
	report = models.FileReport{File: path, Symbol: normalize.SymbolFromSource(path)}
	log := logger.With(zap.String("file", path), zap.String("symbol", report.Symbol))

	if r.observer != nil {
		r.observer.FileStarted(path)
	}
	defer func() {
		report.Duration = time.Since(started)
		switch report.Status {
		case models.StatusOK:
			log.Info("Файл обработан",
				zap.Int("rows", report.Rows),
				zap.Int("trades", report.Trades),
				zap.String("output", report.Output),
				zap.Duration("duration", report.Duration))
		case models.StatusSkipped:
			log.Warn("Файл пропущен", zap.String("reason", report.Err))
		default:
			log.Error("Ошибка обработки файла", zap.String("error", report.Err))
		}
		if r.observer != nil {
			r.observer.FileDone(report)
		}
	}()

	fail := func(err error) models.FileReport {
		report.Err = err.Error()
		report.Status = models.StatusFailed
		if errors.Is(err, models.ErrEmptySession) || errors.Is(err, context.Canceled) {
			report.Status = models.StatusSkipped
		}
		return report
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	table, err := r.reader.ReadFile(ctx, path)
	if err != nil {
		return fail(err)
	}
	report.Rows = len(table.Rows)

	session, stats, err := r.normalizer.Normalize(table, report.Symbol)
	report.Dropped = stats.Dropped()
	report.ParseFailures = stats.TotalParseFailures()
	if err != nil {
		return fail(err)
	}
	report.Date = session.Date()
	report.TradingDay = r.tradingDay(report.Symbol, report.Date)
	if !report.TradingDay {
		log.Warn("Дата сессии не является торговым днем биржи", zap.Time("date", report.Date))
	}

	result, err := r.analyzer.Analyze(session)
	if err != nil {
		return fail(err)
	}
	result.RunID = runID
	report.Trades = len(result.Trades)

	result.Artifact, err = r.renderer.Render(result.Scene)
	if err != nil {
		return fail(fmt.Errorf("ошибка отрисовки: %w", err))
	}

	report.Output, err = r.store.SaveResult(ctx, result)
	if err != nil {
		return fail(fmt.Errorf("ошибка сохранения: %w", err))
	}
	report.Status = models.StatusOK
	return report
}

func (r *Runner) tradingDay(symbol string, date time.Time) bool {
	mic := calendar.MICForSymbol(symbol, r.config.Session.Calendar)

	r.calendarsMu.Lock()
	cal, ok := r.calendars[mic]
	if !ok {
		cal = calendar.New(mic, r.config.Session.Location())
		r.calendars[mic] = cal
	}
	r.calendarsMu.Unlock()

	return cal.IsTradingDay(date)
}
