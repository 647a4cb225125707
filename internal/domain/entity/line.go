package entity

import "fmt"

// MeasurementLine: отрезок измерения в нормализованных координатах (0..1),
// поэтому линия переживает смену разрешения камеры.
type MeasurementLine struct {
	X1 float64 `yaml:"x1" json:"x1"`
	Y1 float64 `yaml:"y1" json:"y1"`
	X2 float64 `yaml:"x2" json:"x2"`
	Y2 float64 `yaml:"y2" json:"y2"`

	// Допуски ширины зазора в пикселях
	MinGapWidth int `yaml:"min_gap_width" json:"min_gap_width"`
	MaxGapWidth int `yaml:"max_gap_width" json:"max_gap_width"`
}

// Значения допусков по умолчанию для новой линии.
const (
	DefaultMinGapWidth = 0
	DefaultMaxGapWidth = 20
)

// NewMeasurementLine создаёт линию с допусками по умолчанию.
func NewMeasurementLine(x1, y1, x2, y2 float64) MeasurementLine {
	return MeasurementLine{
		X1:          x1,
		Y1:          y1,
		X2:          x2,
		Y2:          y2,
		MinGapWidth: DefaultMinGapWidth,
		MaxGapWidth: DefaultMaxGapWidth,
	}
}

// ToPixelCoords переводит концы линии в пиксели кадра заданного размера.
func (l MeasurementLine) ToPixelCoords(frameWidth, frameHeight int) (px1, py1, px2, py2 int) {
	px1 = int(l.X1 * float64(frameWidth))
	py1 = int(l.Y1 * float64(frameHeight))
	px2 = int(l.X2 * float64(frameWidth))
	py2 = int(l.Y2 * float64(frameHeight))
	return px1, py1, px2, py2
}

// Normalized сообщает, что все координаты лежат в [0,1].
func (l MeasurementLine) Normalized() bool {
	for _, v := range []float64{l.X1, l.Y1, l.X2, l.Y2} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

func (l MeasurementLine) String() string {
	return fmt.Sprintf("(%.3f,%.3f) -> (%.3f,%.3f) [%d-%dpx]", l.X1, l.Y1, l.X2, l.Y2, l.MinGapWidth, l.MaxGapWidth)
}
