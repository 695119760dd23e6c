// Package normalize приводит сырые строки к упорядоченной сессии снимков.
package normalize

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/internal/ingest"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"
)

// Stats счетчики нормализации одного файла
type Stats struct {
	Rows            int
	Kept            int
	OutOfWindow     int
	BadTime         int
	TimeRegressions int
	ParseFailures   map[string]int // по каноническому полю
	ByName          bool
}

// TotalParseFailures число значений, замененных пропуском
func (s Stats) TotalParseFailures() int {
	total := 0
	for _, n := range s.ParseFailures {
		total += n
	}
	return total
}

// Dropped число отброшенных строк
func (s Stats) Dropped() int {
	return s.Rows - s.Kept
}

// Normalizer приводит таблицу к сессии
type Normalizer struct {
	layout      string
	timeLayouts []string
	start       time.Duration
	end         time.Duration
	loc         *time.Location
}

// NewNormalizer создает нормализатор по настройкам входа и сессии
func NewNormalizer(input config.InputConfig, session config.SessionConfig) (*Normalizer, error) {
	start, end, err := session.SessionWindow()
	if err != nil {
		return nil, err
	}
	return &Normalizer{
		layout:      input.LevelLayout,
		timeLayouts: input.TimeLayouts,
		start:       start,
		end:         end,
		loc:         session.Location(),
	}, nil
}

// Normalize строит сессию: сопоставляет колонки, разбирает время,
// оставляет строки внутри окна сессии и нумерует их с нуля.
func (n *Normalizer) Normalize(table *ingest.Table, symbol string) (*models.Session, Stats, error) {
	stats := Stats{Rows: len(table.Rows), ParseFailures: make(map[string]int)}

	schema, err := ResolveSchema(table.Header, n.layout)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", table.Source, err)
	}
	stats.ByName = schema.ByName

	session := &models.Session{
		Symbol:    symbol,
		Source:    table.Source,
		Snapshots: make([]models.Snapshot, 0, len(table.Rows)),
	}

	num := func(record []string, idx int, key string) models.NullFloat {
		v, err := parseNumber(field(record, idx))
		if err != nil {
			stats.ParseFailures[key]++
		}
		return v
	}

	var prev time.Time
	for _, record := range table.Rows {
		ts, err := n.parseTime(field(record, schema.Time))
		if err != nil {
			stats.BadTime++
			stats.ParseFailures[keyTime]++
			continue
		}
		if !n.inSession(ts) {
			stats.OutOfWindow++
			continue
		}
		if !prev.IsZero() && ts.Before(prev) {
			stats.TimeRegressions++
		}
		prev = ts

		snap := models.Snapshot{
			Time:       ts,
			MarketCode: strings.TrimSpace(field(record, schema.MarketCode)),
			Symbol:     strings.TrimSpace(field(record, schema.Symbol)),
			LastPrice:  num(record, schema.LastPrice, keyLastPrice),
			TradeCount: num(record, schema.TradeCount, keyTradeCount),
			Turnover:   num(record, schema.Turnover, keyTurnover),
			Volume:     num(record, schema.Volume, keyVolume),
			Direction:  strings.TrimSpace(field(record, schema.Direction)),
		}
		for i := 0; i < models.BookDepth; i++ {
			snap.Bids[i] = models.Level{
				Price: num(record, schema.BidPrice[i], levelKey("bid", "price", i)),
				Size:  num(record, schema.BidSize[i], levelKey("bid", "size", i)),
			}
			snap.Asks[i] = models.Level{
				Price: num(record, schema.AskPrice[i], levelKey("ask", "price", i)),
				Size:  num(record, schema.AskSize[i], levelKey("ask", "size", i)),
			}
		}
		session.Snapshots = append(session.Snapshots, snap)
	}
	stats.Kept = len(session.Snapshots)

	if stats.TotalParseFailures() > 0 {
		logger.Debug("Значения заменены пропусками",
			zap.String("file", table.Source),
			zap.Any("failures", stats.ParseFailures))
	}
	if stats.TimeRegressions > 0 {
		logger.Warn("Время снимков идет не по возрастанию",
			zap.String("file", table.Source),
			zap.Int("regressions", stats.TimeRegressions))
	}

	if stats.Kept == 0 {
		if stats.Rows > 0 && stats.BadTime == stats.Rows {
			return nil, stats, fmt.Errorf("%s: %w: ни одно из %d значений времени не разобрано форматами %q",
				table.Source, models.ErrParseFailure, stats.Rows, n.timeLayouts)
		}
		return nil, stats, fmt.Errorf("%s: %w: нет строк в окне сессии (вне окна %d, без времени %d)",
			table.Source, models.ErrEmptySession, stats.OutOfWindow, stats.BadTime)
	}
	return session, stats, nil
}

// inSession время суток внутри [start, end] включительно
func (n *Normalizer) inSession(ts time.Time) bool {
	tod := time.Duration(ts.Hour())*time.Hour +
		time.Duration(ts.Minute())*time.Minute +
		time.Duration(ts.Second())*time.Second +
		time.Duration(ts.Nanosecond())
	return tod >= n.start && tod <= n.end
}

func (n *Normalizer) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: пустое время", models.ErrParseFailure)
	}
	for _, layout := range n.timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: время %q", models.ErrParseFailure, s)
}

// parseNumber пустая строка и NaN это пропуск без ошибки,
// нечисловое или бесконечное значение это пропуск с ErrParseFailure
func parseNumber(s string) (models.NullFloat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Missing(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing(), fmt.Errorf("%w: %q", models.ErrParseFailure, s)
	}
	if math.IsNaN(v) {
		return models.Missing(), nil
	}
	if math.IsInf(v, 0) {
		return models.Missing(), fmt.Errorf("%w: бесконечность %q", models.ErrParseFailure, s)
	}
	return models.Some(v), nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// SymbolFromSource код инструмента из имени файла: часть до первого "_",
// иначе имя без расширения
func SymbolFromSource(source string) string {
	name := filepath.Base(source)
	if i := strings.Index(name, "_"); i >= 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
