package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"connector-vision/config"
	"connector-vision/internal/api/telegram"
	"connector-vision/internal/container"
	"connector-vision/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogMode); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	lg := logger.Log()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Собираем сервисы приложения
	appContainer, err := container.New(cfg, nil, lg)
	if err != nil {
		lg.Fatal("failed to build container", zap.Error(err))
	}
	defer appContainer.Camera.Stop()

	// Без камеры демон продолжает отвечать по HTTP и в боте
	if err := appContainer.StartCamera(ctx); err != nil {
		lg.Error("camera start failed", zap.Error(err))
	}

	svc := appContainer.InspectionService
	if name := svc.CurrentModel(); name != "" {
		if _, err := svc.ActivateModel(name); err != nil {
			lg.Warn("failed to reload current model", zap.String("model", name), zap.Error(err))
		}
	}

	var wg sync.WaitGroup
	goRun := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	goRun(func() { appContainer.ForwardFPS(ctx) })
	goRun(func() {
		if err := appContainer.HTTP.Run(ctx, cfg.HTTPAddr); err != nil {
			lg.Error("http server stopped", zap.Error(err))
			stop()
		}
	})

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.OperatorService, svc, appContainer.Camera, cfg.TelegramAlertChatID, logger.Named("telegram"))
		if err != nil {
			lg.Error("failed to create bot", zap.Error(err))
		} else {
			svc.AddNotifier(bot)
			goRun(func() {
				if err := bot.Run(ctx); err != nil {
					lg.Error("bot stopped", zap.Error(err))
				}
			})
		}
	} else {
		lg.Info("TELEGRAM_TOKEN is empty, bot disabled")
	}

	lg.Info("connector vision is running", zap.String("http", cfg.HTTPAddr), zap.Duration("interval", cfg.InspectionInterval))
	svc.Run(ctx, cfg.InspectionInterval)

	wg.Wait()
	lg.Info("shutdown complete")
}
