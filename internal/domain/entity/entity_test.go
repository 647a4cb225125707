package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementLine_ToPixelCoords(t *testing.T) {
	l := NewMeasurementLine(0.25, 0.5, 0.75, 0.5)

	x1, y1, x2, y2 := l.ToPixelCoords(640, 480)
	require.Equal(t, []int{160, 240, 480, 240}, []int{x1, y1, x2, y2})

	// при смене разрешения координаты масштабируются пропорционально
	x1, y1, x2, y2 = l.ToPixelCoords(1920, 1080)
	require.Equal(t, []int{480, 540, 1440, 540}, []int{x1, y1, x2, y2})
}

func TestMeasurementLine_ToPixelCoordsTruncates(t *testing.T) {
	l := NewMeasurementLine(0.333, 0.999, 1, 0)
	x1, y1, x2, y2 := l.ToPixelCoords(100, 100)
	assert.Equal(t, 33, x1)
	assert.Equal(t, 99, y1)
	assert.Equal(t, 100, x2)
	assert.Equal(t, 0, y2)
}

func TestNewMeasurementLine_Defaults(t *testing.T) {
	l := NewMeasurementLine(0, 0, 1, 1)
	assert.Equal(t, 0, l.MinGapWidth)
	assert.Equal(t, 20, l.MaxGapWidth)
	assert.True(t, l.Normalized())
	assert.False(t, NewMeasurementLine(-0.1, 0, 1, 1).Normalized())
}

func TestInspectionConfiguration_BlurKernel(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 2: 3, 5: 5, 8: 9}
	for in, want := range cases {
		c := InspectionConfiguration{GaussianBlurSize: in}
		assert.Equal(t, want, c.BlurKernel(), "size %d", in)
	}
}

func TestCopyInspectionParametersFrom_KeepsCamera(t *testing.T) {
	current := DefaultSettings()
	current.CameraIndex = 2
	current.CameraResolution = "1280x720"

	model := DefaultSettings()
	model.GapThreshold = 42
	model.EdgeDetectionMode = EdgeModeFirstAndLast
	model.MeasurementLines = []MeasurementLine{NewMeasurementLine(0.1, 0.1, 0.9, 0.1)}
	model.CameraIndex = 7

	current.CopyInspectionParametersFrom(model)
	assert.Equal(t, 42.0, current.GapThreshold)
	assert.Equal(t, EdgeModeFirstAndLast, current.EdgeDetectionMode)
	require.Len(t, current.MeasurementLines, 1)
	assert.Equal(t, 2, current.CameraIndex)
	assert.Equal(t, "1280x720", current.CameraResolution)

	// срез линий не разделяется с моделью
	model.MeasurementLines[0].MaxGapWidth = 99
	assert.Equal(t, 20, current.MeasurementLines[0].MaxGapWidth)
}

func TestFrame_CopyFromReusesBuffer(t *testing.T) {
	src := NewFrame(4, 2, 3)
	src.Data[0] = 7

	dst := NewFrame(8, 8, 3)
	before := &dst.Data[0]
	dst.CopyFrom(src)

	assert.Equal(t, 4, dst.Width)
	assert.Equal(t, 2, dst.Height)
	assert.Len(t, dst.Data, 24)
	assert.Equal(t, byte(7), dst.Data[0])
	assert.Same(t, before, &dst.Data[0])
}

func TestFrame_CloneIsIndependent(t *testing.T) {
	src := NewFrame(2, 2, 1)
	c := src.Clone()
	c.Data[0] = 1
	assert.Equal(t, byte(0), src.Data[0])
	assert.False(t, c.Empty())
	assert.True(t, Frame{}.Empty())
}

func TestNewOperator_DefaultState(t *testing.T) {
	o := NewOperator(1, 10)
	require.Equal(t, StateIdle, o.State)
	require.Equal(t, int64(1), o.ID)
	require.Equal(t, int64(10), o.ChatID)
	require.False(t, o.Alerts)
}

func TestInspectionStats_OKRate(t *testing.T) {
	assert.Equal(t, 0.0, InspectionStats{}.OKRate())
	assert.InDelta(t, 75.0, InspectionStats{Total: 4, OK: 3, NG: 1}.OKRate(), 1e-9)
}
