package vision

import (
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

var errEmptyFrame = errors.New("empty frame")

var _ port.FramePreprocessor = (*ImagingPreprocessor)(nil)

// ImagingPreprocessor: предобработка на чистом Go, без OpenCV.
type ImagingPreprocessor struct{}

// NewImagingPreprocessor создаёт предобработчик на imaging.
func NewImagingPreprocessor() *ImagingPreprocessor {
	return &ImagingPreprocessor{}
}

// Prepare возвращает яркость кадра и её размытую копию.
func (p *ImagingPreprocessor) Prepare(frame entity.Frame, kernel int) (entity.GrayImage, entity.GrayImage, error) {
	if frame.Empty() {
		return entity.GrayImage{}, entity.GrayImage{}, errEmptyFrame
	}

	var gray entity.GrayImage
	switch frame.Channels {
	case 1:
		gray = entity.NewGrayImage(frame.Width, frame.Height)
		copy(gray.Pix, frame.Data)
	case 3:
		gray = grayFromNRGBA(imaging.Grayscale(FrameToImage(frame)))
	default:
		return entity.GrayImage{}, entity.GrayImage{}, fmt.Errorf("unsupported channel count %d", frame.Channels)
	}

	if kernel <= 1 {
		blurred := entity.NewGrayImage(gray.Width, gray.Height)
		copy(blurred.Pix, gray.Pix)
		return gray, blurred, nil
	}

	blurred := grayFromNRGBA(imaging.Blur(GrayToImage(gray), kernelSigma(kernel)))
	return gray, blurred, nil
}

// kernelSigma: та же сигма, что OpenCV выводит из размера ядра.
func kernelSigma(kernel int) float64 {
	return 0.3*((float64(kernel)-1)*0.5-1) + 0.8
}
