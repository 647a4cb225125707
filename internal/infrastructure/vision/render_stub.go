//go:build !gocv
// +build !gocv

package vision

import (
	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

type stubRenderer struct{}

// NewRenderer возвращает заглушку: без OpenCV диагностика не рисуется.
func NewRenderer() port.DiagnosticRenderer {
	return stubRenderer{}
}

func (stubRenderer) Render(entity.Frame, entity.InspectionConfiguration, *entity.InspectionOutcome) (entity.DiagnosticImages, error) {
	return entity.DiagnosticImages{}, ErrRenderingDisabled
}

// NewPreprocessor возвращает предобработчик на imaging.
func NewPreprocessor() port.FramePreprocessor {
	return NewImagingPreprocessor()
}
