package port

import "connector-vision/internal/domain/entity"

// GapInspector интерфейс движка измерения зазора
type GapInspector interface {
	// Inspect измеряет зазоры по всем линиям конфигурации
	Inspect(frame entity.Frame, cfg entity.InspectionConfiguration) *entity.InspectionOutcome

	// ResetSmoothing сбрасывает накопленное сглаживание
	ResetSmoothing()
}

// FramePreprocessor переводит кадр в яркость и размывает его
type FramePreprocessor interface {
	Prepare(frame entity.Frame, kernel int) (gray, blurred entity.GrayImage, err error)
}

// DiagnosticRenderer рисует диагностические картинки по результату
type DiagnosticRenderer interface {
	Render(frame entity.Frame, cfg entity.InspectionConfiguration, outcome *entity.InspectionOutcome) (entity.DiagnosticImages, error)
}
