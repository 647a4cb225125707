package vision

import (
	"errors"
	"fmt"

	"connector-vision/internal/domain/entity"
)

// ErrRenderingDisabled возвращается, если бинарник собран без OpenCV.
var ErrRenderingDisabled = errors.New("diagnostic rendering requires the gocv build tag")

const (
	chartWidth  = 600
	chartHeight = 300
	chartMargin = 40
)

// lineLabel: подпись линии на аннотированном кадре.
func lineLabel(i int, m entity.GapMeasurement, line entity.MeasurementLine) string {
	return fmt.Sprintf("L%d: %.0fpx [%d-%d]", i+1, m.GapWidth, line.MinGapWidth, line.MaxGapWidth)
}

// edgeHigh: верхний порог Canny для вида краёв.
func edgeHigh(threshold float64) float32 {
	if threshold < 10 {
		return 10
	}
	return float32(threshold)
}
