package port

import "connector-vision/internal/domain/entity"

// CaptureMode: режим, в котором открывается устройство захвата.
type CaptureMode struct {
	Width     int
	Height    int
	FourCC    string // пусто: родной формат устройства
	FPS       float64
	BufferLen int
}

// CaptureProperty: регулируемое свойство камеры.
type CaptureProperty int

const (
	PropFocus CaptureProperty = iota
	PropExposure
	PropBrightness
	PropContrast
	PropSaturation
	PropGain
	PropWhiteBalance
	PropSharpness
	PropBacklight
	PropAutoFocus
	PropAutoExposure
)

// CaptureDevice интерфейс открытого устройства захвата
type CaptureDevice interface {
	// Read читает следующий кадр в dst; false, если кадра нет
	Read(dst *entity.Frame) bool

	// Width и Height возвращают фактическое разрешение
	Width() int
	Height() int

	// Codec возвращает фактический fourcc
	Codec() string

	Set(prop CaptureProperty, value float64)
	Get(prop CaptureProperty) float64

	Close() error
}

// DeviceOpener открывает устройство по индексу в заданном режиме
type DeviceOpener interface {
	Open(index int, mode CaptureMode) (CaptureDevice, error)
}

// FrameProvider отдаёт копию последнего кадра
type FrameProvider interface {
	Snapshot() (entity.Frame, bool)
}
