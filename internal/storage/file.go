package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skalibog/bookmap/pkg/models"
)

// FileStorage пишет отрисованную страницу на диск
type FileStorage struct {
	dir string
}

// NewFileStorage создает файловое хранилище. Пустой dir означает каталог исходного файла.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Path путь файла результата
func (s *FileStorage) Path(result *models.SessionResult) string {
	dir := s.dir
	if dir == "" {
		dir = filepath.Dir(result.Source)
	}
	return filepath.Join(dir, result.Artifact.Name)
}

// SaveResult записывает страницу, существующий файл перезаписывается
func (s *FileStorage) SaveResult(ctx context.Context, result *models.SessionResult) (string, error) {
	if result.Artifact == nil {
		return "", ErrNoArtifact
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := s.Path(result)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ошибка создания каталога: %w", err)
	}

	// запись во временный файл и переименование
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, result.Artifact.Data, 0o644); err != nil {
		return "", fmt.Errorf("ошибка записи %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("ошибка переименования %s: %w", tmp, err)
	}
	return path, nil
}

// Close ничего не делает
func (s *FileStorage) Close() error {
	return nil
}
