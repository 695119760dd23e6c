package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/skalibog/bookmap/internal/batch"
	"github.com/skalibog/bookmap/internal/config"
	"github.com/skalibog/bookmap/internal/storage"
	"github.com/skalibog/bookmap/internal/ui"
	"github.com/skalibog/bookmap/pkg/logger"
	"github.com/skalibog/bookmap/pkg/models"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	dir := flag.String("dir", "", "каталог с файлами снимков стакана")
	out := flag.String("out", "", "каталог для HTML файлов (по умолчанию рядом с исходными)")
	minOrderSize := flag.Float64("min-order-size", 0, "минимальный объем заявки на тепловой карте")
	workers := flag.Int("workers", 0, "число файлов, обрабатываемых одновременно")
	withUI := flag.Bool("ui", false, "показывать окно прогресса")
	flag.Parse()

	// Файл конфигурации по умолчанию необязателен
	path := *configPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !flagSet("config") {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		return 2
	}

	if *dir != "" {
		cfg.Input.Dir = *dir
	}
	if *out != "" {
		cfg.Output.Dir = *out
	}
	if flagSet("min-order-size") {
		cfg.Analysis.Heatmap.MinOrderSize = *minOrderSize
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *withUI {
		cfg.UI.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Некорректные параметры: %v\n", err)
		return 2
	}

	// В режиме окна прогресса консольный лог выключен
	if err := logger.Init(logger.Options{
		Level:    cfg.Logging.Level,
		File:     cfg.Logging.File,
		JSONFile: cfg.Logging.JSONFile,
		Console:  cfg.Logging.Console && !cfg.UI.Enabled,
		Truncate: cfg.UI.Enabled,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		return 2
	}
	defer logger.Sync()

	// Создаем контекст, отменяемый сигналом завершения
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Инициализируем хранилище
	store, err := storage.New(ctx, cfg.Storage, cfg.Output.Dir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", zap.Error(err))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Ошибка закрытия хранилища", zap.Error(err))
		}
	}()

	var (
		observer batch.Observer
		termUI   *ui.TermUI
	)
	if cfg.UI.Enabled {
		termUI = ui.NewTermUI(*cfg, cancel)
		termUI.Start()
		observer = termUI
	}

	runner, err := batch.NewRunner(cfg, store, observer)
	if err != nil {
		logger.Error("Ошибка инициализации обработки", zap.Error(err))
		return 1
	}

	summary, err := runner.Run(ctx, cfg.Input.Dir)
	if termUI != nil {
		termUI.Stop()
	}
	if err != nil {
		logger.Error("Ошибка обработки каталога", zap.String("dir", cfg.Input.Dir), zap.Error(err))
		return 1
	}

	fmt.Println(ui.RenderSummary(summary))
	if summary.Count(models.StatusFailed) > 0 {
		return 1
	}
	return 0
}

// flagSet true, если флаг указан явно
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
