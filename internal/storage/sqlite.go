package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	run_id TEXT,
	symbol TEXT,
	trade_date TEXT,
	source TEXT,
	points INTEGER,
	trades INTEGER,
	daily_min REAL,
	daily_max REAL,
	created_at INTEGER,
	PRIMARY KEY (run_id, symbol, trade_date)
);
CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT,
	symbol TEXT,
	trade_date TEXT,
	idx INTEGER,
	ts INTEGER,
	volume REAL,
	price_delta REAL,
	execution_price REAL,
	side TEXT,
	estimated INTEGER,
	PRIMARY KEY (run_id, symbol, trade_date, idx)
);
CREATE TABLE IF NOT EXISTS volume_profile (
	run_id TEXT,
	symbol TEXT,
	trade_date TEXT,
	price REAL,
	buy_volume REAL,
	sell_volume REAL,
	PRIMARY KEY (run_id, symbol, trade_date, price)
);
CREATE TABLE IF NOT EXISTS minute_bars (
	run_id TEXT,
	symbol TEXT,
	trade_date TEXT,
	start INTEGER,
	open REAL,
	high REAL,
	low REAL,
	close REAL,
	volume REAL,
	turnover REAL,
	vwap REAL,
	spread REAL,
	mid REAL,
	sma REAL,
	rsi REAL,
	atr REAL,
	PRIMARY KEY (run_id, symbol, trade_date, start)
);
`

// SQLiteStorage сохраняет таблицы сессии в файл SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage открывает базу и создает таблицы
func NewSQLiteStorage(ctx context.Context, cfg config.SQLiteConfig) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия %s: %w", cfg.Path, err)
	}
	// один писатель: обработчики файлов пишут по очереди
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка соединения с %s: %w", cfg.Path, err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			logger.Warn("Не удалось применить PRAGMA", zap.String("pragma", pragma), zap.Error(err))
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания таблиц: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close закрывает базу
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveResult пишет сессию в одной транзакции, повторный запуск с тем же run_id перезаписывает строки
func (s *SQLiteStorage) SaveResult(ctx context.Context, result *models.SessionResult) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	date := result.Date.Format("2006-01-02")
	key := []any{result.RunID, result.Symbol, date}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (run_id, symbol, trade_date, source, points, trades, daily_min, daily_max, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append(key, result.Source, result.Space.Points, len(result.Trades),
			result.Space.DailyMin, result.Space.DailyMax, time.Now().Unix())...)
	if err != nil {
		return "", fmt.Errorf("ошибка записи сессии: %w", err)
	}

	if err := insertRows(ctx, tx,
		`INSERT OR REPLACE INTO trades (run_id, symbol, trade_date, idx, ts, volume, price_delta, execution_price, side, estimated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.Trades, func(t models.SyntheticTrade) []any {
			return append(key[:3:3], t.Index, t.Time.UnixNano(), t.VolumeDelta,
				sql.NullFloat64(t.PriceDelta), sql.NullFloat64(t.ExecutionPrice), string(t.Side), t.Estimated)
		}); err != nil {
		return "", fmt.Errorf("ошибка записи сделок: %w", err)
	}

	if err := insertRows(ctx, tx,
		`INSERT OR REPLACE INTO volume_profile (run_id, symbol, trade_date, price, buy_volume, sell_volume)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.Profile, func(e models.VolumeProfileEntry) []any {
			return append(key[:3:3], e.Price, e.BuyVolume, e.SellVolume)
		}); err != nil {
		return "", fmt.Errorf("ошибка записи профиля: %w", err)
	}

	bars := make([]indexedBar, len(result.MinuteBars))
	for i, b := range result.MinuteBars {
		bars[i] = indexedBar{i: i, bar: b}
	}
	if err := insertRows(ctx, tx,
		`INSERT OR REPLACE INTO minute_bars (run_id, symbol, trade_date, start, open, high, low, close, volume, turnover, vwap, spread, mid, sma, rsi, atr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bars, func(ib indexedBar) []any {
			b := ib.bar
			sma, rsi, atr := result.Indicators.At(ib.i)
			return append(key[:3:3], b.Start.Unix(), b.Open, b.High, b.Low, b.Close,
				b.Volume, b.Turnover, b.VWAP, b.Spread, b.Mid,
				sql.NullFloat64(sma), sql.NullFloat64(rsi), sql.NullFloat64(atr))
		}); err != nil {
		return "", fmt.Errorf("ошибка записи минутных баров: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return "", nil
}

type indexedBar struct {
	i   int
	bar models.MinuteBar
}

func insertRows[T any](ctx context.Context, tx *sql.Tx, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, args(r)...); err != nil {
			return err
		}
	}
	return nil
}

// Trades читает сохраненные сделки сессии
func (s *SQLiteStorage) Trades(ctx context.Context, runID, symbol string, date time.Time) ([]models.SyntheticTrade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, ts, volume, price_delta, execution_price, side, estimated
		 FROM trades WHERE run_id = ? AND symbol = ? AND trade_date = ? ORDER BY idx`,
		runID, symbol, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса сделок: %w", err)
	}
	defer rows.Close()

	var out []models.SyntheticTrade
	for rows.Next() {
		var (
			t          models.SyntheticTrade
			ts         int64
			priceDelta sql.NullFloat64
			execution  sql.NullFloat64
			side       string
		)
		if err := rows.Scan(&t.Index, &ts, &t.VolumeDelta, &priceDelta, &execution, &side, &t.Estimated); err != nil {
			return nil, fmt.Errorf("ошибка чтения сделки: %w", err)
		}
		t.Time = time.Unix(0, ts).UTC()
		t.PriceDelta = models.NullFloat(priceDelta)
		t.ExecutionPrice = models.NullFloat(execution)
		t.Side = models.TradeSide(side)
		out = append(out, t)
	}
	return out, rows.Err()
}
