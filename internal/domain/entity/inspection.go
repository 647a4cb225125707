package entity

import (
	"image"
	"time"
)

// GapMeasurement: результат измерения по одной линии.
type GapMeasurement struct {
	LineIndex   int       `json:"line_index"`
	RawGapWidth float64   `json:"raw_gap_width"` // до сглаживания
	GapWidth    float64   `json:"gap_width"`     // сглаженное значение, по нему вердикт
	Edge1       float64   `json:"edge1"`         // позиция края в отсчётах профиля
	Edge2       float64   `json:"edge2"`
	Profile     []float64 `json:"-"`
	BandLines   int       `json:"band_lines"` // сколько параллельных линий усреднено
	Degraded    bool      `json:"degraded"`
	Pass        bool      `json:"pass"`
}

// DiagnosticImages: картинки для оператора; любое поле может быть nil.
type DiagnosticImages struct {
	Grayscale image.Image
	Annotated image.Image
	Profile   image.Image
	Edges     image.Image
}

// InspectionOutcome хранит итог одного цикла инспекции.
type InspectionOutcome struct {
	ID          string           `json:"id"`
	Pass        bool             `json:"pass"`
	MaxGapWidth float64          `json:"max_gap_width"`
	Duration    time.Duration    `json:"duration"`
	Lines       []GapMeasurement `json:"lines"`
	Note        string           `json:"note,omitempty"` // причина вырожденного результата
	CapturedAt  time.Time        `json:"captured_at"`
	Diagnostics DiagnosticImages `json:"-"`
}

// Verdict возвращает OK или NG.
func (o *InspectionOutcome) Verdict() string {
	if o.Pass {
		return "OK"
	}
	return "NG"
}

// InspectionStats: накопленная статистика вердиктов.
type InspectionStats struct {
	Total int64 `json:"total"`
	OK    int64 `json:"ok"`
	NG    int64 `json:"ng"`
}

// OKRate возвращает долю OK в процентах.
func (s InspectionStats) OKRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.OK) * 100 / float64(s.Total)
}
