package camera

import (
	"math"

	"go.uber.org/zap"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

func float64bits(v float64) uint64     { return math.Float64bits(v) }
func float64frombits(v uint64) float64 { return math.Float64frombits(v) }

// ApplyProperties выставляет заданные свойства камеры. Пустые поля пропускаются.
func (s *Source) ApplyProperties(p entity.CameraProperties) error {
	s.mu.Lock()
	dev := s.dev
	s.mu.Unlock()
	if dev == nil {
		return ErrNotRunning
	}

	// автоматику выключаем раньше ручных значений
	setBool(dev, port.PropAutoFocus, p.AutoFocus)
	setBool(dev, port.PropAutoExposure, p.AutoExposure)

	for prop, v := range map[port.CaptureProperty]*float64{
		port.PropFocus:        p.Focus,
		port.PropExposure:     p.Exposure,
		port.PropBrightness:   p.Brightness,
		port.PropContrast:     p.Contrast,
		port.PropSaturation:   p.Saturation,
		port.PropGain:         p.Gain,
		port.PropWhiteBalance: p.WhiteBalance,
		port.PropSharpness:    p.Sharpness,
		port.PropBacklight:    p.Backlight,
	} {
		if v != nil {
			dev.Set(prop, *v)
		}
	}
	s.logger.Debug("camera properties applied", zap.Any("properties", p))
	return nil
}

// ReadProperties читает текущие значения свойств с устройства.
func (s *Source) ReadProperties() (entity.CameraProperties, error) {
	s.mu.Lock()
	dev := s.dev
	s.mu.Unlock()
	if dev == nil {
		return entity.CameraProperties{}, ErrNotRunning
	}

	get := func(prop port.CaptureProperty) *float64 {
		v := dev.Get(prop)
		return &v
	}
	flag := func(prop port.CaptureProperty) *bool {
		v := dev.Get(prop) != 0
		return &v
	}
	return entity.CameraProperties{
		Focus:        get(port.PropFocus),
		Exposure:     get(port.PropExposure),
		Brightness:   get(port.PropBrightness),
		Contrast:     get(port.PropContrast),
		Saturation:   get(port.PropSaturation),
		Gain:         get(port.PropGain),
		WhiteBalance: get(port.PropWhiteBalance),
		Sharpness:    get(port.PropSharpness),
		Backlight:    get(port.PropBacklight),
		AutoFocus:    flag(port.PropAutoFocus),
		AutoExposure: flag(port.PropAutoExposure),
	}, nil
}

func setBool(dev port.CaptureDevice, prop port.CaptureProperty, v *bool) {
	if v == nil {
		return
	}
	val := 0.0
	if *v {
		val = 1
	}
	dev.Set(prop, val)
}
