package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/skalibog/bookmap/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Префикс переменных окружения
const envPrefix = "BOOKMAP_"

// Load загружает конфигурацию: значения по умолчанию, затем файл, затем окружение.
// Пустой path означает работу без файла конфигурации.
func Load(path string) (*Config, error) {
	cfg := Default()

	// .env необязателен
	_ = godotenv.Load()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Any("config", cfg.Redacted()))
	logger.Info("Загружена конфигурация",
		zap.String("input", cfg.Input.Dir),
		zap.Strings("backends", cfg.Storage.Backends))
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Input.Dir, "INPUT_DIR")
	setStr(&cfg.Input.Encoding, "INPUT_ENCODING")
	setStr(&cfg.Input.LevelLayout, "INPUT_LEVEL_LAYOUT")
	setStr(&cfg.Output.Dir, "OUTPUT_DIR")

	setStr(&cfg.Session.Start, "SESSION_START")
	setStr(&cfg.Session.End, "SESSION_END")
	setStr(&cfg.Session.Timezone, "SESSION_TIMEZONE")
	setStr(&cfg.Session.Calendar, "SESSION_CALENDAR")

	setFloat64(&cfg.Analysis.Trades.SignificanceThreshold, "SIGNIFICANCE_THRESHOLD")
	setFloat64(&cfg.Analysis.Heatmap.MinOrderSize, "MIN_ORDER_SIZE")
	setBool(&cfg.Analysis.Technical.Enabled, "TECHNICAL_ENABLED")

	setInt(&cfg.Batch.Workers, "WORKERS")
	setStringSlice(&cfg.Storage.Backends, "STORAGE_BACKENDS")

	setStr(&cfg.Storage.InfluxDB.URL, "INFLUXDB_URL")
	setStr(&cfg.Storage.InfluxDB.Token, "INFLUXDB_TOKEN")
	setStr(&cfg.Storage.InfluxDB.Organization, "INFLUXDB_ORG")
	setStr(&cfg.Storage.InfluxDB.Bucket, "INFLUXDB_BUCKET")

	setStr(&cfg.Storage.SQLite.Path, "SQLITE_PATH")

	setStr(&cfg.Storage.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.Storage.S3.Region, "S3_REGION")
	setStr(&cfg.Storage.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.Storage.S3.Prefix, "S3_PREFIX")
	setStr(&cfg.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setBool(&cfg.Storage.S3.UseSSL, "S3_USE_SSL")
	setBool(&cfg.Storage.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")

	setStr(&cfg.Logging.Level, "LOG_LEVEL")
	setBool(&cfg.UI.Enabled, "UI_ENABLED")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
