package container

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connector-vision/config"
	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
	"connector-vision/internal/infrastructure/camera"
	"connector-vision/internal/infrastructure/storage"
)

type stubDevice struct {
	mode  port.CaptureMode
	props map[port.CaptureProperty]float64
}

func (d *stubDevice) Read(dst *entity.Frame) bool {
	time.Sleep(time.Millisecond)
	dst.CopyFrom(entity.NewFrame(8, 4, 3))
	return true
}
func (d *stubDevice) Width() int                            { return d.mode.Width }
func (d *stubDevice) Height() int                           { return d.mode.Height }
func (d *stubDevice) Codec() string                         { return d.mode.FourCC }
func (d *stubDevice) Set(p port.CaptureProperty, v float64) { d.props[p] = v }
func (d *stubDevice) Get(p port.CaptureProperty) float64    { return d.props[p] }
func (d *stubDevice) Close() error                          { return nil }

type stubOpener struct {
	fail bool
	last *stubDevice
}

func (o *stubOpener) Open(_ int, mode port.CaptureMode) (port.CaptureDevice, error) {
	if o.fail {
		return nil, errors.New("no device")
	}
	o.last = &stubDevice{mode: mode, props: map[port.CaptureProperty]float64{}}
	return o.last, nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		SettingsPath:       filepath.Join(dir, "inspection_settings.yaml"),
		ModelsDir:          filepath.Join(dir, "models"),
		InspectionInterval: 10 * time.Millisecond,
	}
}

func TestNew_WiresServices(t *testing.T) {
	c, err := New(testConfig(t), &stubOpener{}, nil)
	require.NoError(t, err)

	assert.NotNil(t, c.OperatorService)
	assert.Equal(t, entity.DefaultGapThreshold, c.InspectionService.Configuration().GapThreshold)

	rec := httptest.NewRecorder()
	c.HTTP.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartCamera_OpenFailure(t *testing.T) {
	c, err := New(testConfig(t), &stubOpener{fail: true}, nil)
	require.NoError(t, err)

	err = c.StartCamera(context.Background())
	require.ErrorIs(t, err, camera.ErrDeviceOpen)
	assert.False(t, c.Camera.Running())
}

func TestStartCamera_AppliesPropertiesAndForwardsFPS(t *testing.T) {
	cfg := testConfig(t)
	focus := 42.0
	settings := entity.DefaultSettings()
	settings.CameraResolution = "640x480"
	settings.Camera.Focus = &focus
	require.NoError(t, storage.NewSettingsStore(cfg.SettingsPath, cfg.ModelsDir).Save(settings))

	opener := &stubOpener{}
	c, err := New(cfg, opener, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.StartCamera(ctx))
	defer c.Camera.Stop()

	require.NotNil(t, opener.last)
	assert.Equal(t, 640, c.Camera.Info().Width)
	assert.Equal(t, 42.0, opener.last.Get(port.PropFocus))

	go c.ForwardFPS(ctx)
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		c.HTTP.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return !strings.Contains(rec.Body.String(), "connector_vision_camera_fps 0\n")
	}, 3*time.Second, 50*time.Millisecond)
}
