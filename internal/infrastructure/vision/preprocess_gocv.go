//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

var _ port.FramePreprocessor = (*CVPreprocessor)(nil)

// CVPreprocessor: предобработка через OpenCV.
type CVPreprocessor struct{}

// NewPreprocessor возвращает предобработчик на OpenCV.
func NewPreprocessor() port.FramePreprocessor {
	return &CVPreprocessor{}
}

// Prepare переводит кадр в серый и размывает ядром kernel x kernel.
func (p *CVPreprocessor) Prepare(frame entity.Frame, kernel int) (entity.GrayImage, entity.GrayImage, error) {
	mat, err := frameToMat(frame)
	if err != nil {
		return entity.GrayImage{}, entity.GrayImage{}, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels == 1 {
		mat.CopyTo(&gray)
	} else {
		gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	}

	blur := gocv.NewMat()
	defer blur.Close()
	if kernel > 1 {
		gocv.GaussianBlur(gray, &blur, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)
	} else {
		gray.CopyTo(&blur)
	}

	return matToGray(gray), matToGray(blur), nil
}

// frameToMat копирует кадр в gocv.Mat.
func frameToMat(frame entity.Frame) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), errEmptyFrame
	}
	var mt gocv.MatType
	switch frame.Channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
		mt = gocv.MatTypeCV8UC3
	default:
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", frame.Channels)
	}
	n := frame.Width * frame.Height * frame.Channels
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, mt, frame.Data[:n])
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("frame to mat: %w", err)
	}
	return mat, nil
}

func matToGray(mat gocv.Mat) entity.GrayImage {
	return entity.GrayImage{Width: mat.Cols(), Height: mat.Rows(), Pix: mat.ToBytes()}
}
