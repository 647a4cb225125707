package vision

import (
	"image"

	"connector-vision/internal/domain/entity"
)

// FrameToImage переводит кадр BGR (или яркость) в image.Image.
func FrameToImage(frame entity.Frame) image.Image {
	if frame.Empty() {
		return nil
	}
	if frame.Channels == 1 {
		return GrayToImage(entity.GrayImage{Width: frame.Width, Height: frame.Height, Pix: frame.Data})
	}

	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	src := frame.Data
	dst := img.Pix
	for i, j := 0, 0; i+frame.Channels-1 < len(src) && j+3 < len(dst); i, j = i+frame.Channels, j+4 {
		dst[j] = src[i+2]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i]
		dst[j+3] = 0xff
	}
	return img
}

// GrayToImage оборачивает копию яркостного изображения в *image.Gray.
func GrayToImage(g entity.GrayImage) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.Pix)
	return img
}

// grayFromNRGBA берёт канал R у изображения после Grayscale/Blur.
func grayFromNRGBA(img *image.NRGBA) entity.GrayImage {
	b := img.Bounds()
	out := entity.NewGrayImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Width+x] = row[x*4]
		}
	}
	return out
}
