package entity

// EdgeMode: стратегия выбора пары краёв на градиенте профиля.
type EdgeMode int

const (
	EdgeModeStrongestPair EdgeMode = 0 // два самых сильных пика
	EdgeModeFirstAndLast  EdgeMode = 1 // первый и последний пик выше порога
)

func (m EdgeMode) String() string {
	switch m {
	case EdgeModeStrongestPair:
		return "strongest_pair"
	case EdgeModeFirstAndLast:
		return "first_and_last"
	default:
		return "unknown"
	}
}

// Значения по умолчанию для параметров инспекции.
const (
	DefaultGapThreshold      = 80.0
	DefaultGaussianBlurSize  = 5
	DefaultEdgeMarginPercent = 10.0
	DefaultCameraResolution  = "auto"
)

// InspectionConfiguration: параметры измерения, которые движок только читает.
type InspectionConfiguration struct {
	GapThreshold      float64           `yaml:"gap_threshold" json:"gap_threshold"`
	GaussianBlurSize  int               `yaml:"gaussian_blur_size" json:"gaussian_blur_size"`
	EdgeMarginPercent float64           `yaml:"edge_margin_percent" json:"edge_margin_percent"`
	EdgeDetectionMode EdgeMode          `yaml:"edge_detection_mode" json:"edge_detection_mode"`
	MeasurementLines  []MeasurementLine `yaml:"measurement_lines" json:"measurement_lines"`

	// EnforceMinGap включает проверку нижней границы MinGapWidth
	EnforceMinGap bool `yaml:"enforce_min_gap" json:"enforce_min_gap"`
}

// BlurKernel возвращает нечётный размер ядра размытия, не меньше 1.
func (c InspectionConfiguration) BlurKernel() int {
	k := c.GaussianBlurSize
	if k < 1 {
		return 1
	}
	if k%2 == 0 {
		k++
	}
	return k
}

// Clone возвращает копию с собственным срезом линий.
func (c InspectionConfiguration) Clone() InspectionConfiguration {
	out := c
	out.MeasurementLines = append([]MeasurementLine(nil), c.MeasurementLines...)
	return out
}

// CameraProperties: ручные настройки камеры. Nil означает «не трогать».
type CameraProperties struct {
	Focus        *float64 `yaml:"focus,omitempty" json:"focus,omitempty"`
	Exposure     *float64 `yaml:"exposure,omitempty" json:"exposure,omitempty"`
	Brightness   *float64 `yaml:"brightness,omitempty" json:"brightness,omitempty"`
	Contrast     *float64 `yaml:"contrast,omitempty" json:"contrast,omitempty"`
	Saturation   *float64 `yaml:"saturation,omitempty" json:"saturation,omitempty"`
	Gain         *float64 `yaml:"gain,omitempty" json:"gain,omitempty"`
	WhiteBalance *float64 `yaml:"white_balance,omitempty" json:"white_balance,omitempty"`
	Sharpness    *float64 `yaml:"sharpness,omitempty" json:"sharpness,omitempty"`
	Backlight    *float64 `yaml:"backlight,omitempty" json:"backlight,omitempty"`
	AutoFocus    *bool    `yaml:"auto_focus,omitempty" json:"auto_focus,omitempty"`
	AutoExposure *bool    `yaml:"auto_exposure,omitempty" json:"auto_exposure,omitempty"`
}

// IsZero сообщает, что ни одно свойство не задано.
func (p CameraProperties) IsZero() bool {
	return p == CameraProperties{}
}

// InspectionSettings: сохраняемая запись настроек: параметры инспекции плюс камера.
type InspectionSettings struct {
	InspectionConfiguration `yaml:",inline"`

	CameraIndex      int              `yaml:"camera_index" json:"camera_index"`
	CameraResolution string           `yaml:"camera_resolution" json:"camera_resolution"`
	CurrentModelName string           `yaml:"current_model_name" json:"current_model_name"`
	Camera           CameraProperties `yaml:"camera_properties" json:"camera_properties"`
}

// DefaultSettings возвращает настройки для первого запуска.
func DefaultSettings() *InspectionSettings {
	return &InspectionSettings{
		InspectionConfiguration: InspectionConfiguration{
			GapThreshold:      DefaultGapThreshold,
			GaussianBlurSize:  DefaultGaussianBlurSize,
			EdgeMarginPercent: DefaultEdgeMarginPercent,
			EdgeDetectionMode: EdgeModeStrongestPair,
			MeasurementLines:  []MeasurementLine{},
		},
		CameraResolution: DefaultCameraResolution,
	}
}

// CopyInspectionParametersFrom переносит параметры инспекции из модели,
// не трогая выбор камеры.
func (s *InspectionSettings) CopyInspectionParametersFrom(other *InspectionSettings) {
	if other == nil {
		return
	}
	s.InspectionConfiguration = other.InspectionConfiguration.Clone()
	s.Camera = other.Camera
}
