package vision

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

const (
	noteNoLines    = "no measurement lines"
	noteEmptyFrame = "empty frame"
)

var _ port.GapInspector = (*GapInspector)(nil)

// GapInspector: движок измерения зазора по линиям.
// Не потокобезопасен: вызывающий держит один Inspect в полёте и
// не вызывает ResetSmoothing параллельно с ним.
type GapInspector struct {
	pre       port.FramePreprocessor
	logger    *zap.Logger
	smoothing smoothingState
	now       func() time.Time
}

// NewGapInspector создаёт движок. nil-аргументы заменяются умолчаниями.
func NewGapInspector(pre port.FramePreprocessor, logger *zap.Logger) *GapInspector {
	if pre == nil {
		pre = NewImagingPreprocessor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GapInspector{
		pre:    pre,
		logger: logger,
		now:    time.Now,
	}
}

// Inspect измеряет зазоры по всем линиям и классифицирует кадр.
func (g *GapInspector) Inspect(frame entity.Frame, cfg entity.InspectionConfiguration) *entity.InspectionOutcome {
	started := g.now()
	outcome := &entity.InspectionOutcome{
		ID:         uuid.NewString(),
		CapturedAt: frame.CapturedAt,
	}

	if len(cfg.MeasurementLines) == 0 {
		outcome.Note = noteNoLines
		outcome.Duration = g.now().Sub(started)
		return outcome
	}
	if frame.Empty() {
		outcome.Note = noteEmptyFrame
		outcome.Duration = g.now().Sub(started)
		return outcome
	}

	gray, blurred, err := g.pre.Prepare(frame, cfg.BlurKernel())
	if err != nil {
		g.logger.Warn("preprocess failed", zap.Error(err))
		outcome.Note = "preprocess: " + err.Error()
		outcome.Duration = g.now().Sub(started)
		return outcome
	}
	outcome.Diagnostics.Grayscale = GrayToImage(gray)

	lineCount := len(cfg.MeasurementLines)
	outcome.Lines = make([]entity.GapMeasurement, 0, lineCount)
	outcome.Pass = true
	for i, line := range cfg.MeasurementLines {
		x1, y1, x2, y2 := line.ToPixelCoords(blurred.Width, blurred.Height)
		profile, bandLines := extractBandProfile(blurred, x1, y1, x2, y2)

		edges := findEdges(profile, cfg.GapThreshold, cfg.EdgeMarginPercent, cfg.EdgeDetectionMode)
		smoothed := g.smoothing.apply(lineCount, i, edges.Gap)

		m := entity.GapMeasurement{
			LineIndex:   i,
			RawGapWidth: edges.Gap,
			GapWidth:    smoothed,
			Edge1:       edges.Edge1,
			Edge2:       edges.Edge2,
			Profile:     profile,
			BandLines:   bandLines,
			Degraded:    bandLines < minBandLines,
		}
		m.Pass = linePasses(m.GapWidth, line, cfg.EnforceMinGap)
		if m.Degraded {
			g.logger.Debug("band profile degraded",
				zap.Int("line", i),
				zap.Int("band_lines", bandLines),
			)
		}

		if !m.Pass {
			outcome.Pass = false
		}
		outcome.MaxGapWidth = math.Max(outcome.MaxGapWidth, m.GapWidth)
		outcome.Lines = append(outcome.Lines, m)
	}

	outcome.Duration = g.now().Sub(started)
	return outcome
}

// ResetSmoothing забывает накопленные значения по всем линиям.
func (g *GapInspector) ResetSmoothing() {
	g.smoothing.reset()
}

func linePasses(gap float64, line entity.MeasurementLine, enforceMin bool) bool {
	if gap > float64(line.MaxGapWidth) {
		return false
	}
	if enforceMin && gap < float64(line.MinGapWidth) {
		return false
	}
	return true
}
