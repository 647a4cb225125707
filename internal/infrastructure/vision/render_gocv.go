//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

var (
	colorOK     = color.RGBA{G: 255, A: 255}
	colorNG     = color.RGBA{R: 255, A: 255}
	colorGap    = color.RGBA{R: 255, G: 165, A: 255}
	colorEdge   = color.RGBA{G: 255, B: 255, A: 255}
	colorThresh = color.RGBA{R: 255, G: 200, A: 255}
	colorAxis   = color.RGBA{R: 160, G: 150, B: 150, A: 255}
	colorGrid   = color.RGBA{R: 70, G: 60, B: 60, A: 255}

	profileColors = []color.RGBA{
		{R: 100, G: 100, B: 255, A: 255},
		{R: 100, G: 255, B: 100, A: 255},
		{R: 255, G: 100, B: 100, A: 255},
	}
)

var _ port.DiagnosticRenderer = (*CVRenderer)(nil)

// CVRenderer рисует диагностику средствами OpenCV.
type CVRenderer struct{}

// NewRenderer создаёт рендерер на OpenCV.
func NewRenderer() port.DiagnosticRenderer {
	return &CVRenderer{}
}

// Render строит размеченный кадр, график профилей и вид краёв Canny.
func (r *CVRenderer) Render(frame entity.Frame, cfg entity.InspectionConfiguration, outcome *entity.InspectionOutcome) (entity.DiagnosticImages, error) {
	out := entity.DiagnosticImages{}
	if outcome == nil {
		return out, fmt.Errorf("render: nil outcome")
	}
	out.Grayscale = outcome.Diagnostics.Grayscale

	mat, err := frameToMat(frame)
	if err != nil {
		return out, err
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	if frame.Channels == 1 {
		gocv.CvtColor(mat, &bgr, gocv.ColorGrayToBGR)
	} else {
		mat.CopyTo(&bgr)
	}

	if out.Annotated, err = r.annotate(bgr, cfg, outcome); err != nil {
		return out, err
	}
	if out.Profile, err = r.profileChart(cfg, outcome); err != nil {
		return out, err
	}
	if out.Edges, err = r.edgeView(bgr, cfg); err != nil {
		return out, err
	}
	return out, nil
}

func (r *CVRenderer) annotate(src gocv.Mat, cfg entity.InspectionConfiguration, outcome *entity.InspectionOutcome) (image.Image, error) {
	annotated := src.Clone()
	defer annotated.Close()

	if len(cfg.MeasurementLines) == 0 {
		gocv.PutText(&annotated, "NO MEASUREMENT LINES", image.Pt(30, 60), gocv.FontHersheySimplex, 1.5, colorNG, 3)
		return annotated.ToImage()
	}

	w, h := annotated.Cols(), annotated.Rows()
	for i, line := range cfg.MeasurementLines {
		if i >= len(outcome.Lines) {
			break
		}
		m := outcome.Lines[i]
		c := colorOK
		if !m.Pass {
			c = colorNG
		}

		x1, y1, x2, y2 := line.ToPixelCoords(w, h)
		p1, p2 := image.Pt(x1, y1), image.Pt(x2, y2)
		gocv.Line(&annotated, p1, p2, c, 2)
		gocv.Circle(&annotated, p1, 5, c, -1)
		gocv.Circle(&annotated, p2, 5, c, -1)

		// участок зазора вдоль линии
		if m.GapWidth > 0 && len(m.Profile) > 0 {
			total := float64(len(m.Profile))
			g1 := pointAlong(p1, p2, m.Edge1/total)
			g2 := pointAlong(p1, p2, m.Edge2/total)
			gocv.Line(&annotated, g1, g2, colorGap, 4)
			gocv.Circle(&annotated, g1, 6, colorEdge, 2)
			gocv.Circle(&annotated, g2, 6, colorEdge, 2)
		}

		label := image.Pt((x1+x2)/2+10, (y1+y2)/2-10)
		gocv.PutText(&annotated, lineLabel(i, m, line), label, gocv.FontHersheySimplex, 0.6, c, 2)
	}

	verdict := colorOK
	if !outcome.Pass {
		verdict = colorNG
	}
	gocv.PutText(&annotated, outcome.Verdict(), image.Pt(30, 50), gocv.FontHersheySimplex, 1.5, verdict, 3)
	return annotated.ToImage()
}

func (r *CVRenderer) profileChart(cfg entity.InspectionConfiguration, outcome *entity.InspectionOutcome) (image.Image, error) {
	chart := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 30, 30, 0), chartHeight, chartWidth, gocv.MatTypeCV8UC3)
	defer chart.Close()

	maxLen := 0
	for _, m := range outcome.Lines {
		maxLen = maxInt(maxLen, len(m.Profile))
	}
	if maxLen == 0 {
		return chart.ToImage()
	}

	plotW := chartWidth - chartMargin*2
	plotH := chartHeight - chartMargin*2
	gocv.Rectangle(&chart, image.Rect(chartMargin, chartMargin, chartMargin+plotW, chartMargin+plotH), colorGrid, 1)

	toY := func(v float64) int { return chartMargin + plotH - int(v/255*float64(plotH)) }
	toX := func(p float64) int { return chartMargin + int(p/float64(maxLen)*float64(plotW)) }

	ty := toY(cfg.GapThreshold)
	gocv.Line(&chart, image.Pt(chartMargin, ty), image.Pt(chartMargin+plotW, ty), colorThresh, 1)
	gocv.PutText(&chart, fmt.Sprintf("Edge=%.0f", cfg.GapThreshold), image.Pt(chartMargin+plotW+2, ty+4),
		gocv.FontHersheySimplex, 0.35, colorThresh, 1)

	for li, m := range outcome.Lines {
		if len(m.Profile) < 2 {
			continue
		}
		c := profileColors[li%len(profileColors)]
		for p := 1; p < len(m.Profile); p++ {
			gocv.Line(&chart,
				image.Pt(toX(float64(p-1)), toY(m.Profile[p-1])),
				image.Pt(toX(float64(p)), toY(m.Profile[p])),
				c, 1)
		}
		if m.Edge1 > 0 || m.Edge2 > 0 {
			for _, e := range []float64{m.Edge1, m.Edge2} {
				x := toX(e)
				gocv.Line(&chart, image.Pt(x, chartMargin), image.Pt(x, chartMargin+plotH), colorEdge, 1)
			}
		}
		gocv.PutText(&chart, fmt.Sprintf("L%d: gap=%.0fpx", li+1, m.GapWidth),
			image.Pt(chartMargin+5, chartMargin+15+li*15), gocv.FontHersheySimplex, 0.4, c, 1)
	}

	gocv.PutText(&chart, "0", image.Pt(chartMargin-15, chartMargin+plotH+5), gocv.FontHersheySimplex, 0.3, colorAxis, 1)
	gocv.PutText(&chart, "255", image.Pt(chartMargin-30, chartMargin+10), gocv.FontHersheySimplex, 0.3, colorAxis, 1)
	gocv.PutText(&chart, "Intensity Profile", image.Pt(chartWidth/2-50, chartHeight-5), gocv.FontHersheySimplex, 0.4, colorAxis, 1)
	return chart.ToImage()
}

func (r *CVRenderer) edgeView(bgr gocv.Mat, cfg entity.InspectionConfiguration) (image.Image, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	if k := cfg.BlurKernel(); k > 1 {
		gocv.GaussianBlur(gray, &blur, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	} else {
		gray.CopyTo(&blur)
	}

	edges := gocv.NewMat()
	defer edges.Close()
	high := edgeHigh(cfg.GapThreshold)
	gocv.Canny(blur, &edges, high/2, high)

	view := gocv.NewMat()
	defer view.Close()
	gocv.CvtColor(edges, &view, gocv.ColorGrayToBGR)
	return view.ToImage()
}

func pointAlong(p1, p2 image.Point, ratio float64) image.Point {
	return image.Pt(
		p1.X+int(float64(p2.X-p1.X)*ratio),
		p1.Y+int(float64(p2.Y-p1.Y)*ratio),
	)
}
