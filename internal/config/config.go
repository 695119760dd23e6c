package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Session  SessionConfig  `yaml:"session"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Output   OutputConfig   `yaml:"output"`
	Batch    BatchConfig    `yaml:"batch"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	UI       UIConfig       `yaml:"ui"`
}

// Раскладка уровней стакана при позиционном сопоставлении колонок
const (
	LayoutSideMajor  = "side_major"  // цены покупки, объемы покупки, цены продажи, объемы продажи
	LayoutFieldMajor = "field_major" // цены покупки, цены продажи, объемы покупки, объемы продажи
)

// InputConfig настройки чтения входных файлов
type InputConfig struct {
	Dir         string   `yaml:"dir"`
	Pattern     string   `yaml:"pattern"`
	Encoding    string   `yaml:"encoding"`
	LevelLayout string   `yaml:"level_layout"`
	TimeLayouts []string `yaml:"time_layouts"`
}

// SessionConfig границы торговой сессии
type SessionConfig struct {
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
	Calendar string `yaml:"calendar"` // MIC биржи
}

// AnalysisConfig содержит настройки аналитических модулей
type AnalysisConfig struct {
	Trades     TradesConfig     `yaml:"trades"`
	Heatmap    HeatmapConfig    `yaml:"heatmap"`
	VolumeBars VolumeBarsConfig `yaml:"volume_bars"`
	Profile    ProfileConfig    `yaml:"profile"`
	Technical  TechnicalConfig  `yaml:"technical"`
}

// TradesConfig настройки классификации сделок
type TradesConfig struct {
	SignificanceThreshold float64 `yaml:"significance_threshold"`
}

// HeatmapConfig настройки тепловой карты ликвидности
type HeatmapConfig struct {
	MinOrderSize    float64 `yaml:"min_order_size"`
	SizeFloor       float64 `yaml:"size_floor"`
	MaxOpacity      float64 `yaml:"max_opacity"`
	MaxTimeSamples  int     `yaml:"max_time_samples"`
	MaxPriceSamples int     `yaml:"max_price_samples"`
	MinPriceStep    float64 `yaml:"min_price_step"`
}

// VolumeBarsConfig настройки вертикальных столбцов объема
type VolumeBarsConfig struct {
	WindowDivisor int     `yaml:"window_divisor"`
	BarFill       float64 `yaml:"bar_fill"`
	Opacity       float64 `yaml:"opacity"`
}

// ProfileConfig настройки профиля объема
type ProfileConfig struct {
	Tick        float64 `yaml:"tick"`
	MaxBarShare float64 `yaml:"max_bar_share"`
	Opacity     float64 `yaml:"opacity"`
}

// TechnicalConfig настройки минутных баров и индикаторов
type TechnicalConfig struct {
	Enabled   bool `yaml:"enabled"`
	SMAPeriod int  `yaml:"sma_period"`
	RSIPeriod int  `yaml:"rsi_period"`
	ATRPeriod int  `yaml:"atr_period"`
}

// OutputConfig настройки результата
type OutputConfig struct {
	Dir    string `yaml:"dir"` // пусто - каталог входных файлов
	Height int    `yaml:"height"`
	Plotly string `yaml:"plotly_url"`
}

// BatchConfig настройки пакетной обработки
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	Backends []string       `yaml:"backends"` // file, influxdb, sqlite, s3
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	S3       S3Config       `yaml:"s3"`
}

// InfluxDBConfig подключение к InfluxDB
type InfluxDBConfig struct {
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// SQLiteConfig файл базы SQLite
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// S3Config S3-совместимое хранилище для отрисованных файлов
type S3Config struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// LoggingConfig настройки логирования
type LoggingConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
	Console  bool   `yaml:"console"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default конфигурация по умолчанию
func Default() Config {
	return Config{
		Input: InputConfig{
			Dir:         "sample L2 snapshot",
			Pattern:     "*.csv",
			Encoding:    "gbk",
			LevelLayout: LayoutSideMajor,
			TimeLayouts: []string{
				"2006-01-02 15:04:05",
				"2006/01/02 15:04:05",
				"2006-01-02T15:04:05",
				"20060102 15:04:05",
				"20060102150405",
				time.RFC3339Nano,
			},
		},
		Session: SessionConfig{
			Start:    "09:25:00",
			End:      "15:00:00",
			Timezone: "Asia/Shanghai",
			Calendar: "xshg",
		},
		Analysis: AnalysisConfig{
			Trades: TradesConfig{SignificanceThreshold: 50},
			Heatmap: HeatmapConfig{
				MinOrderSize:    20,
				SizeFloor:       100,
				MaxOpacity:      0.8,
				MaxTimeSamples:  240,
				MaxPriceSamples: 100,
				MinPriceStep:    0.01,
			},
			VolumeBars: VolumeBarsConfig{WindowDivisor: 200, BarFill: 0.8, Opacity: 0.7},
			Profile:    ProfileConfig{Tick: 0.01, MaxBarShare: 0.9, Opacity: 0.7},
			Technical:  TechnicalConfig{SMAPeriod: 5, RSIPeriod: 14, ATRPeriod: 14},
		},
		Output: OutputConfig{
			Height: 800,
			Plotly: "https://cdn.plot.ly/plotly-2.34.0.min.js",
		},
		Batch:   BatchConfig{Workers: 1},
		Storage: StorageConfig{Backends: []string{"file"}, SQLite: SQLiteConfig{Path: "bookmap.db"}},
		Logging: LoggingConfig{Level: "info", File: "bookmap.log", JSONFile: "bookmap.json.log", Console: true},
	}
}

// SessionWindow границы сессии как смещения от полуночи
func (c SessionConfig) SessionWindow() (start, end time.Duration, err error) {
	start, err = parseClock(c.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("session.start: %w", err)
	}
	end, err = parseClock(c.End)
	if err != nil {
		return 0, 0, fmt.Errorf("session.end: %w", err)
	}
	return start, end, nil
}

// Location часовой пояс сессии, UTC если пояс не найден
func (c SessionConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("ожидается ЧЧ:ММ:СС, получено %q", s)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// HasBackend включен ли бэкенд хранения
func (c StorageConfig) HasBackend(name string) bool {
	for _, b := range c.Backends {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}

// Validate проверяет конфигурацию и возвращает все найденные проблемы
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Input.Dir == "" {
		add("input.dir не задан")
	}
	switch strings.ToLower(c.Input.Encoding) {
	case "gbk", "gb18030", "utf-8", "utf8":
	default:
		add("input.encoding: неизвестная кодировка %q", c.Input.Encoding)
	}
	if c.Input.LevelLayout != LayoutSideMajor && c.Input.LevelLayout != LayoutFieldMajor {
		add("input.level_layout: ожидается %s или %s", LayoutSideMajor, LayoutFieldMajor)
	}
	if len(c.Input.TimeLayouts) == 0 {
		add("input.time_layouts пуст")
	}

	start, end, err := c.Session.SessionWindow()
	if err != nil {
		errs = append(errs, err)
	} else if end < start {
		add("session: конец %s раньше начала %s", c.Session.End, c.Session.Start)
	}

	a := c.Analysis
	if a.Trades.SignificanceThreshold < 0 {
		add("analysis.trades.significance_threshold должен быть >= 0")
	}
	if a.Heatmap.MinOrderSize < 0 {
		add("analysis.heatmap.min_order_size должен быть >= 0")
	}
	if a.Heatmap.MaxOpacity <= 0 || a.Heatmap.MaxOpacity > 1 {
		add("analysis.heatmap.max_opacity должен быть в (0, 1]")
	}
	if a.Heatmap.MaxTimeSamples <= 0 || a.Heatmap.MaxPriceSamples <= 0 {
		add("analysis.heatmap: число отсчетов должно быть > 0")
	}
	if a.Heatmap.MinPriceStep <= 0 {
		add("analysis.heatmap.min_price_step должен быть > 0")
	}
	if a.VolumeBars.WindowDivisor <= 0 {
		add("analysis.volume_bars.window_divisor должен быть > 0")
	}
	if a.Profile.Tick <= 0 {
		add("analysis.profile.tick должен быть > 0")
	}
	if a.Technical.Enabled && (a.Technical.SMAPeriod < 2 || a.Technical.RSIPeriod < 2 || a.Technical.ATRPeriod < 1) {
		add("analysis.technical: некорректные периоды индикаторов")
	}

	if c.Batch.Workers < 1 {
		add("batch.workers должен быть >= 1")
	}

	if len(c.Storage.Backends) == 0 {
		add("storage.backends пуст: результат некуда сохранить")
	}
	for _, b := range c.Storage.Backends {
		switch strings.ToLower(b) {
		case "file", "influxdb", "sqlite", "s3":
		default:
			add("storage.backends: неизвестный бэкенд %q", b)
		}
	}
	if c.Storage.HasBackend("influxdb") {
		if c.Storage.InfluxDB.URL == "" || c.Storage.InfluxDB.Bucket == "" || c.Storage.InfluxDB.Organization == "" {
			add("storage.influxdb: нужны url, organization и bucket")
		}
	}
	if c.Storage.HasBackend("sqlite") && c.Storage.SQLite.Path == "" {
		add("storage.sqlite.path не задан")
	}
	if c.Storage.HasBackend("s3") {
		if c.Storage.S3.Bucket == "" || c.Storage.S3.Region == "" {
			add("storage.s3: нужны bucket и region")
		}
	}

	return errors.Join(errs...)
}

// Redacted копия конфигурации без секретов для логов
func (c Config) Redacted() Config {
	out := c
	out.Storage.Backends = append([]string(nil), c.Storage.Backends...)
	redact(&out.Storage.InfluxDB.Token)
	redact(&out.Storage.S3.AccessKey)
	redact(&out.Storage.S3.SecretKey)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
