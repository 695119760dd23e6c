// Package storage сохраняет результаты анализа сессий.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"
)

// ErrNoArtifact результат не отрисован
var ErrNoArtifact = errors.New("нет отрисованного результата")

// ErrNoBackends не задано ни одного хранилища
var ErrNoBackends = errors.New("не задано ни одного хранилища")

// Storage общий интерфейс хранилищ результатов.
// Реализации безопасны для одновременного использования.
type Storage interface {
	// SaveResult сохраняет результат и возвращает его расположение, если оно есть
	SaveResult(ctx context.Context, result *models.SessionResult) (string, error)
	Close() error
}

// New создает хранилища по списку backends.
// Для файлового хранилища outputDir может быть пустым: тогда файл пишется рядом с исходным.
func New(ctx context.Context, cfg config.StorageConfig, outputDir string) (Storage, error) {
	if len(cfg.Backends) == 0 {
		return nil, ErrNoBackends
	}

	var backends []Storage
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, name := range cfg.Backends {
		var (
			b   Storage
			err error
		)
		switch strings.ToLower(name) {
		case "file":
			b = NewFileStorage(outputDir)
		case "influxdb":
			b, err = NewInfluxDBStorage(ctx, cfg.InfluxDB)
		case "sqlite":
			b, err = NewSQLiteStorage(ctx, cfg.SQLite)
		case "s3":
			b, err = NewS3Storage(ctx, cfg.S3)
		default:
			err = fmt.Errorf("неизвестное хранилище %q", name)
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("ошибка инициализации хранилища %s: %w", name, err)
		}
		logger.Info("Хранилище подключено", zap.String("backend", name))
		backends = append(backends, b)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return &Multi{backends: backends}, nil
}

// Multi сохраняет результат во все хранилища
type Multi struct {
	backends []Storage
}

// NewMulti объединяет несколько хранилищ
func NewMulti(backends ...Storage) *Multi {
	return &Multi{backends: backends}
}

// SaveResult пишет во все хранилища, ошибки объединяются.
// Возвращает первое непустое расположение.
func (m *Multi) SaveResult(ctx context.Context, result *models.SessionResult) (string, error) {
	var (
		location string
		errs     []error
	)
	for _, b := range m.backends {
		loc, err := b.SaveResult(ctx, result)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if location == "" {
			location = loc
		}
	}
	return location, errors.Join(errs...)
}

// Close закрывает все хранилища
func (m *Multi) Close() error {
	var errs []error
	for _, b := range m.backends {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}
