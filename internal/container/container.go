package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"connector-vision/config"
	"connector-vision/internal/api/rest"
	app "connector-vision/internal/application"
	"connector-vision/internal/domain/port"
	"connector-vision/internal/infrastructure/camera"
	"connector-vision/internal/infrastructure/metrics"
	"connector-vision/internal/infrastructure/report"
	"connector-vision/internal/infrastructure/storage"
	"connector-vision/internal/infrastructure/vision"
)

type Container struct {
	Settings          *storage.SettingsStore
	Camera            *camera.Source
	Metrics           *metrics.Collector
	OperatorService   *app.OperatorService
	InspectionService *app.InspectionService
	HTTP              *rest.Server
}

// New собирает зависимости. opener позволяет подменить камеру (nil: gocv или заглушка).
func New(cfg *config.Config, opener port.DeviceOpener, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opener == nil {
		opener = camera.NewDeviceOpener()
	}

	store := storage.NewSettingsStore(cfg.SettingsPath, cfg.ModelsDir)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	source := camera.NewSource(opener, camera.WithLogger(logger.Named("camera")))
	collector := metrics.NewCollector()
	inspector := vision.NewGapInspector(vision.NewPreprocessor(), logger.Named("vision"))

	opts := []app.ServiceOption{
		app.WithRenderer(vision.NewRenderer()),
		app.WithRecorder(collector),
		app.WithCamera(source),
		app.WithLogger(logger.Named("inspection")),
	}

	var svc *app.InspectionService
	if cfg.WebhookURL != "" {
		model := func() string { return svc.CurrentModel() }
		opts = append(opts, app.WithNotifier(report.NewWebhookReporter(cfg.WebhookURL, model, logger.Named("webhook"))))
	}
	svc = app.NewInspectionService(source, inspector, store, settings, opts...)

	return &Container{
		Settings:          store,
		Camera:            source,
		Metrics:           collector,
		OperatorService:   app.NewOperatorService(storage.NewMemoryOperatorRepository()),
		InspectionService: svc,
		HTTP:              rest.NewServer(svc, source, collector.Handler(), logger.Named("http")),
	}, nil
}

// StartCamera открывает камеру из текущих настроек и применяет свойства модели.
func (c *Container) StartCamera(ctx context.Context) error {
	settings := c.InspectionService.Settings()
	if err := c.Camera.Start(ctx, settings.CameraIndex, settings.CameraResolution); err != nil {
		return err
	}
	if settings.Camera.IsZero() {
		return nil
	}
	if err := c.Camera.ApplyProperties(settings.Camera); err != nil {
		return fmt.Errorf("apply camera properties: %w", err)
	}
	return nil
}

// ForwardFPS переносит замеры FPS камеры в метрики до отмены ctx.
func (c *Container) ForwardFPS(ctx context.Context) {
	updates := c.Camera.FPSUpdates()
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-updates:
			c.Metrics.SetFPS(v)
		}
	}
}
