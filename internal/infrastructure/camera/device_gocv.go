//go:build gocv
// +build gocv

package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

var propertyIDs = map[port.CaptureProperty]gocv.VideoCaptureProperties{
	port.PropFocus:        gocv.VideoCaptureFocus,
	port.PropExposure:     gocv.VideoCaptureExposure,
	port.PropBrightness:   gocv.VideoCaptureBrightness,
	port.PropContrast:     gocv.VideoCaptureContrast,
	port.PropSaturation:   gocv.VideoCaptureSaturation,
	port.PropGain:         gocv.VideoCaptureGain,
	port.PropWhiteBalance: gocv.VideoCaptureWhiteBalanceBlueU,
	port.PropSharpness:    gocv.VideoCaptureSharpness,
	port.PropBacklight:    gocv.VideoCaptureBacklight,
	port.PropAutoFocus:    gocv.VideoCaptureAutoFocus,
	port.PropAutoExposure: gocv.VideoCaptureAutoExposure,
}

// GoCVOpener открывает камеры через OpenCV VideoCapture.
type GoCVOpener struct {
	API gocv.VideoCaptureAPI
}

// NewDeviceOpener возвращает opener на OpenCV.
func NewDeviceOpener() port.DeviceOpener {
	return &GoCVOpener{API: gocv.VideoCaptureAny}
}

// Open открывает устройство и выставляет режим: fourcc, размер, fps, буфер.
func (o *GoCVOpener) Open(index int, mode port.CaptureMode) (port.CaptureDevice, error) {
	vc, err := gocv.OpenVideoCaptureWithAPI(index, o.API)
	if err != nil {
		return nil, fmt.Errorf("open video capture %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %d is not opened", index)
	}

	if mode.FourCC != "" {
		vc.Set(gocv.VideoCaptureFOURCC, vc.ToCodec(mode.FourCC))
	}
	if mode.Width > 0 && mode.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(mode.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(mode.Height))
	}
	if mode.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, mode.FPS)
	}
	if mode.BufferLen > 0 {
		vc.Set(gocv.VideoCaptureBufferSize, float64(mode.BufferLen))
	}

	return &gocvDevice{vc: vc, mat: gocv.NewMat()}, nil
}

type gocvDevice struct {
	mu  sync.Mutex
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

var _ port.CaptureDevice = (*gocvDevice)(nil)

// Read читает кадр в переиспользуемый Mat и копирует его в dst.
func (d *gocvDevice) Read(dst *entity.Frame) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
		return false
	}
	data, err := d.mat.DataPtrUint8()
	if err != nil {
		return false
	}
	dst.CopyFrom(entity.Frame{
		Width:    d.mat.Cols(),
		Height:   d.mat.Rows(),
		Channels: d.mat.Channels(),
		Data:     data,
	})
	return true
}

func (d *gocvDevice) Width() int {
	return int(d.vc.Get(gocv.VideoCaptureFrameWidth))
}

func (d *gocvDevice) Height() int {
	return int(d.vc.Get(gocv.VideoCaptureFrameHeight))
}

func (d *gocvDevice) Codec() string {
	return d.vc.CodecString()
}

func (d *gocvDevice) Set(prop port.CaptureProperty, value float64) {
	if id, ok := propertyIDs[prop]; ok {
		d.vc.Set(id, value)
	}
}

func (d *gocvDevice) Get(prop port.CaptureProperty) float64 {
	if id, ok := propertyIDs[prop]; ok {
		return d.vc.Get(id)
	}
	return 0
}

func (d *gocvDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mat.Close()
	return d.vc.Close()
}
