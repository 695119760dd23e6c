package storage

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"
)

// InfluxDBStorage пишет ряды сессии в InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	org      string
	bucket   string
	done     chan struct{}
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.InfluxDBConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	s := &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
		done:     make(chan struct{}),
	}
	go s.logErrors()
	return s, nil
}

// logErrors асинхронные ошибки записи только логируются
func (s *InfluxDBStorage) logErrors() {
	defer close(s.done)
	for err := range s.writeAPI.Errors() {
		logger.Error("Ошибка записи в InfluxDB", zap.String("bucket", s.bucket), zap.Error(err))
	}
}

// Close сбрасывает буфер и закрывает соединение
func (s *InfluxDBStorage) Close() error {
	s.writeAPI.Flush()
	s.client.Close()
	<-s.done
	return nil
}

// SaveResult записывает сделки, VWAP и CVD, минутные бары и профиль объема
func (s *InfluxDBStorage) SaveResult(ctx context.Context, result *models.SessionResult) (string, error) {
	points := Points(result)
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		s.writeAPI.WritePoint(p)
	}
	s.writeAPI.Flush()

	logger.Debug("Ряды записаны в InfluxDB",
		zap.String("symbol", result.Symbol),
		zap.Int("points", len(points)))
	return "", nil
}

// Points строит точки InfluxDB по результату сессии
func Points(result *models.SessionResult) []*write.Point {
	var points []*write.Point
	date := result.Date.Format("20060102")
	base := map[string]string{
		"symbol": result.Symbol,
		"run_id": result.RunID,
	}
	tags := func(extra ...string) map[string]string {
		out := make(map[string]string, len(base)+len(extra)/2)
		for k, v := range base {
			out[k] = v
		}
		for i := 0; i+1 < len(extra); i += 2 {
			out[extra[i]] = extra[i+1]
		}
		return out
	}

	for _, t := range result.Trades {
		fields := map[string]interface{}{
			"volume":    t.VolumeDelta,
			"estimated": t.Estimated,
		}
		if v, ok := t.ExecutionPrice.Get(); ok {
			fields["execution_price"] = v
		}
		if v, ok := t.PriceDelta.Get(); ok {
			fields["price_delta"] = v
		}
		points = append(points, influxdb2.NewPoint("trades", tags("side", string(t.Side)), fields, t.Time))
	}

	for i, ts := range result.Times {
		fields := map[string]interface{}{}
		if i < len(result.VWAP) {
			fields["vwap"] = result.VWAP[i]
		}
		if i < len(result.CVD) {
			fields["cvd"] = result.CVD[i]
		}
		if len(fields) == 0 {
			continue
		}
		points = append(points, influxdb2.NewPoint("vwap_cvd", tags(), fields, ts))
	}

	for i, b := range result.MinuteBars {
		fields := map[string]interface{}{
			"open":     b.Open,
			"high":     b.High,
			"low":      b.Low,
			"close":    b.Close,
			"volume":   b.Volume,
			"turnover": b.Turnover,
			"vwap":     b.VWAP,
			"spread":   b.Spread,
			"mid":      b.Mid,
		}
		// индикаторы в период разогрева не пишутся
		sma, rsi, atr := result.Indicators.At(i)
		for name, v := range map[string]models.NullFloat{"sma": sma, "rsi": rsi, "atr": atr} {
			if f, ok := v.Get(); ok {
				fields[name] = f
			}
		}
		points = append(points, influxdb2.NewPoint("minute_bars", tags(), fields, b.Start))
	}

	// у профиля нет времени: уровень цены становится тегом
	for _, e := range result.Profile {
		points = append(points, influxdb2.NewPoint(
			"volume_profile",
			tags("date", date, "price", strconv.FormatFloat(e.Price, 'f', 2, 64)),
			map[string]interface{}{
				"price": e.Price,
				"buy":   e.BuyVolume,
				"sell":  e.SellVolume,
			},
			result.Date,
		))
	}
	return points
}
