//go:build !gocv
// +build !gocv

package camera

import (
	"errors"

	"connector-vision/internal/domain/port"
)

type stubOpener struct{}

// NewDeviceOpener возвращает заглушку: без OpenCV камеру не открыть.
func NewDeviceOpener() port.DeviceOpener {
	return stubOpener{}
}

func (stubOpener) Open(int, port.CaptureMode) (port.CaptureDevice, error) {
	return nil, errors.New("gocv build tag is not enabled")
}
