package camera

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

type fakeDevice struct {
	mode   port.CaptureMode
	frames bool // false: Read всегда неудачен
	reads  atomic.Int64
	closed atomic.Bool

	mu    sync.Mutex
	props map[port.CaptureProperty]float64
}

func newFakeDevice(mode port.CaptureMode, frames bool) *fakeDevice {
	return &fakeDevice{mode: mode, frames: frames, props: map[port.CaptureProperty]float64{}}
}

func (d *fakeDevice) Read(dst *entity.Frame) bool {
	n := d.reads.Add(1)
	if !d.frames {
		time.Sleep(100 * time.Microsecond)
		return false
	}
	time.Sleep(200 * time.Microsecond)
	f := entity.NewFrame(4, 2, 3)
	f.Data[0] = byte(n)
	dst.CopyFrom(f)
	return true
}

func (d *fakeDevice) Width() int    { return d.mode.Width }
func (d *fakeDevice) Height() int   { return d.mode.Height }
func (d *fakeDevice) Codec() string { return d.mode.FourCC }

func (d *fakeDevice) Set(p port.CaptureProperty, v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props[p] = v
}

func (d *fakeDevice) Get(p port.CaptureProperty) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.props[p]
}

func (d *fakeDevice) Close() error {
	d.closed.Store(true)
	return nil
}

type fakeOpener struct {
	mu     sync.Mutex
	valid  map[int]bool
	frames bool
	failAt map[int]bool // ширины, которые не открываются
	opened []*fakeDevice

	// как реальная USB-камера: второй дескриптор не выдаётся, пока открыт первый
	exclusive bool
}

func (o *fakeOpener) Open(index int, mode port.CaptureMode) (port.CaptureDevice, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.valid[index] {
		return nil, errors.New("no such device")
	}
	if o.failAt[mode.Width] {
		return nil, errors.New("mode rejected")
	}
	if o.exclusive {
		for _, d := range o.opened {
			if !d.closed.Load() {
				return nil, errors.New("device busy")
			}
		}
	}
	d := newFakeDevice(mode, o.frames)
	o.opened = append(o.opened, d)
	return d, nil
}

// probeByWidth выдаёт заранее заданную скорость для каждой ширины.
func probeByWidth(rates map[int]float64) ThroughputProbe {
	return func(dev port.CaptureDevice, _ int) float64 {
		return rates[dev.Width()]
	}
}

func fastProbe(port.CaptureDevice, int) float64 { return 30 }

func TestStart_InvalidIndexFails(t *testing.T) {
	src := NewSource(&fakeOpener{valid: map[int]bool{0: true}}, WithProbe(fastProbe))

	err := src.Start(context.Background(), 5, "auto")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceOpen)
	assert.False(t, src.Running())

	_, ok := src.Snapshot()
	assert.False(t, ok)
}

func TestStop_BeforeStartIsNoop(t *testing.T) {
	src := NewSource(&fakeOpener{})
	src.Stop()
	src.Stop()
	assert.False(t, src.Running())
}

func TestSnapshot_NoneBeforeFirstFrame(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: false}
	src := NewSource(opener, WithProbe(fastProbe))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	defer src.Stop()

	time.Sleep(20 * time.Millisecond)
	_, ok := src.Snapshot()
	assert.False(t, ok)
}

func TestNegotiation_PicksFirstFastEnoughMode(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true, exclusive: true}
	src := NewSource(opener, WithProbe(probeByWidth(map[int]float64{1920: 8, 1280: 25, 640: 30})))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	defer src.Stop()

	info := src.Info()
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.Equal(t, "MJPG", info.Codec)
	assert.True(t, info.Running)

	opener.mu.Lock()
	defer opener.mu.Unlock()
	require.Len(t, opener.opened, 2)
	assert.True(t, opener.opened[0].closed.Load())
	assert.False(t, opener.opened[1].closed.Load())
}

func TestNegotiation_FallsBackToLastMode(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true}
	src := NewSource(opener, WithProbe(probeByWidth(map[int]float64{1920: 5, 1280: 5, 640: 5})))

	require.NoError(t, src.Start(context.Background(), 0, ""))
	defer src.Stop()
	assert.Equal(t, 640, src.Info().Width)
	assert.Equal(t, "", src.Info().Codec)
}

func TestNegotiation_ReopensSlowModeWhenLastFails(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true, exclusive: true, failAt: map[int]bool{640: true}}
	src := NewSource(opener, WithProbe(probeByWidth(map[int]float64{1920: 5, 1280: 8})))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	defer src.Stop()
	assert.Equal(t, 1280, src.Info().Width)

	opener.mu.Lock()
	defer opener.mu.Unlock()
	require.Len(t, opener.opened, 3)
	assert.True(t, opener.opened[0].closed.Load())
	assert.True(t, opener.opened[1].closed.Load())
	assert.False(t, opener.opened[2].closed.Load())
}

func TestNegotiation_SkipsModesThatFailToOpen(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true, failAt: map[int]bool{1920: true}}
	src := NewSource(opener, WithProbe(fastProbe))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	defer src.Stop()
	assert.Equal(t, 1280, src.Info().Width)
}

func TestStart_ManualResolutionSkipsProbe(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true}
	probed := false
	src := NewSource(opener, WithProbe(func(port.CaptureDevice, int) float64 {
		probed = true
		return 0
	}))

	require.NoError(t, src.Start(context.Background(), 0, "800x600"))
	defer src.Stop()
	assert.False(t, probed)
	assert.Equal(t, 800, src.Info().Width)
	assert.Equal(t, 600, src.Info().Height)
}

func TestParseResolution(t *testing.T) {
	w, h, ok := parseResolution("1280x720")
	assert.True(t, ok)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	for _, bad := range []string{"", "auto", "Auto", "1280", "x720", "axb", "0x0", "1x2x3"} {
		_, _, ok := parseResolution(bad)
		assert.False(t, ok, bad)
	}
}

func TestAcquisition_PublishesFrames(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true}
	src := NewSource(opener, WithProbe(fastProbe), WithFPSWindow(20*time.Millisecond))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	defer src.Stop()

	select {
	case <-src.FrameReady():
	case <-time.After(2 * time.Second):
		t.Fatal("no frame-ready notification")
	}

	frame, ok := src.ConsumeDisplayFrame()
	require.True(t, ok)
	assert.Equal(t, 4, frame.Width)
	assert.False(t, frame.CapturedAt.IsZero())

	snap, ok := src.Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Data, 4*2*3)

	// копия не связана с внутренним буфером
	snap.Data[1] = 99
	again, ok := src.Snapshot()
	require.True(t, ok)
	assert.NotEqual(t, byte(99), again.Data[1])

	select {
	case fps := <-src.FPSUpdates():
		assert.Greater(t, fps, 0.0)
	case <-time.After(2 * time.Second):
		t.Fatal("no fps update")
	}
	assert.Greater(t, src.CurrentFPS(), 0.0)
}

func TestAcquisition_SingleNotificationPending(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true}
	src := NewSource(opener, WithProbe(fastProbe))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	defer src.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, len(src.FrameReady()), 1)
}

func TestStop_ClosesDeviceAndIsIdempotent(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true}
	src := NewSource(opener, WithProbe(fastProbe))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	src.Stop()
	src.Stop()

	assert.False(t, src.Running())
	assert.False(t, src.Info().Running)
	opener.mu.Lock()
	defer opener.mu.Unlock()
	assert.True(t, opener.opened[len(opener.opened)-1].closed.Load())
}

func TestStart_RestartStopsPrevious(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true, 1: true}, frames: true}
	src := NewSource(opener, WithProbe(fastProbe))

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	require.NoError(t, src.Start(context.Background(), 1, "auto"))
	defer src.Stop()

	assert.Equal(t, 1, src.Info().DeviceIndex)
	opener.mu.Lock()
	defer opener.mu.Unlock()
	assert.True(t, opener.opened[0].closed.Load())
}

func TestProperties(t *testing.T) {
	opener := &fakeOpener{valid: map[int]bool{0: true}, frames: true}
	src := NewSource(opener, WithProbe(fastProbe))

	_, err := src.ReadProperties()
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, src.Start(context.Background(), 0, "auto"))
	defer src.Stop()

	focus, auto := 42.0, false
	require.NoError(t, src.ApplyProperties(entity.CameraProperties{Focus: &focus, AutoFocus: &auto}))

	props, err := src.ReadProperties()
	require.NoError(t, err)
	require.NotNil(t, props.Focus)
	assert.Equal(t, 42.0, *props.Focus)
	require.NotNil(t, props.AutoFocus)
	assert.False(t, *props.AutoFocus)
}

func TestMeasureThroughput(t *testing.T) {
	d := newFakeDevice(port.CaptureMode{Width: 10}, true)
	assert.Greater(t, MeasureThroughput(d, 5), 0.0)
	assert.Equal(t, int64(6), d.reads.Load())

	assert.Equal(t, 0.0, MeasureThroughput(newFakeDevice(port.CaptureMode{}, false), 5))
}
