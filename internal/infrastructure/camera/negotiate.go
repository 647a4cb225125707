package camera

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

const (
	// ниже этой скорости режим считается непригодным
	minAcceptableFPS = 15.0
	// сколько кадров читаем при замере скорости (плюс один прогревочный)
	probeFrames = 10
	targetFPS   = 30
	codecMJPG   = "MJPG"
	autoMode    = "auto"
)

// DefaultCandidates: лестница режимов от лучшего к запасному.
func DefaultCandidates() []port.CaptureMode {
	return []port.CaptureMode{
		{Width: 1920, Height: 1080, FourCC: codecMJPG, FPS: targetFPS, BufferLen: 1},
		{Width: 1280, Height: 720, FourCC: codecMJPG, FPS: targetFPS, BufferLen: 1},
		{Width: 640, Height: 480, FPS: targetFPS, BufferLen: 1},
	}
}

// ThroughputProbe замеряет фактическую скорость открытого устройства.
type ThroughputProbe func(dev port.CaptureDevice, frames int) float64

// MeasureThroughput читает прогревочный кадр, затем frames кадров с замером времени.
func MeasureThroughput(dev port.CaptureDevice, frames int) float64 {
	var f entity.Frame
	dev.Read(&f)

	start := time.Now()
	count := 0
	for i := 0; i < frames; i++ {
		if dev.Read(&f) && !f.Empty() {
			count++
		}
	}
	elapsed := time.Since(start)
	if count == 0 || elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Seconds()
}

// parseResolution разбирает "WxH". ok=false означает автоподбор.
func parseResolution(hint string) (w, h int, ok bool) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" || hint == autoMode {
		return 0, 0, false
	}
	parts := strings.Split(hint, "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// negotiate открывает устройство в явном режиме или идёт по лестнице кандидатов.
func (s *Source) negotiate(index int, hint string) (port.CaptureDevice, error) {
	if w, h, ok := parseResolution(hint); ok {
		mode := port.CaptureMode{Width: w, Height: h, FourCC: codecMJPG, FPS: targetFPS, BufferLen: 1}
		s.logger.Info("opening camera with manual resolution",
			zap.Int("index", index),
			zap.String("mode", modeString(mode)),
		)
		dev, err := s.opener.Open(index, mode)
		if err != nil {
			return nil, fmt.Errorf("%w: index %d: %v", ErrDeviceOpen, index, err)
		}
		return dev, nil
	}
	if hint != "" && !strings.EqualFold(strings.TrimSpace(hint), autoMode) {
		s.logger.Warn("malformed resolution, falling back to auto", zap.String("resolution", hint))
	}

	var slow *port.CaptureMode
	var lastErr error
	for i, mode := range s.candidates {
		dev, err := s.opener.Open(index, mode)
		if err != nil {
			lastErr = err
			s.logger.Warn("camera mode failed to open",
				zap.Int("attempt", i+1),
				zap.String("mode", modeString(mode)),
				zap.Error(err),
			)
			continue
		}

		rate := s.probe(dev, probeFrames)
		s.logger.Info("camera mode measured",
			zap.Int("attempt", i+1),
			zap.String("requested", modeString(mode)),
			zap.Int("width", dev.Width()),
			zap.Int("height", dev.Height()),
			zap.String("codec", dev.Codec()),
			zap.Float64("fps", rate),
		)

		if rate >= minAcceptableFPS || i == len(s.candidates)-1 {
			return dev, nil
		}

		// камера обычно держит один дескриптор: освобождаем до следующей попытки
		if err := dev.Close(); err != nil {
			s.logger.Warn("close slow camera mode", zap.Error(err))
		}
		m := mode
		slow = &m
	}

	if slow != nil {
		s.logger.Info("no mode is fast enough, reopening last slow mode", zap.String("mode", modeString(*slow)))
		dev, err := s.opener.Open(index, *slow)
		if err == nil {
			return dev, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no capture modes configured")
	}
	return nil, fmt.Errorf("%w: index %d: %v", ErrDeviceOpen, index, lastErr)
}

func modeString(m port.CaptureMode) string {
	codec := m.FourCC
	if codec == "" {
		codec = "native"
	}
	return fmt.Sprintf("%dx%d %s", m.Width, m.Height, codec)
}
