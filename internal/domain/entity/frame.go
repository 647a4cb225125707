package entity

import "time"

// Frame: кадр с камеры: пиксели построчно, для 3 каналов порядок BGR.
type Frame struct {
	Width      int       // ширина в пикселях
	Height     int       // высота в пикселях
	Channels   int       // 1 (яркость) или 3 (BGR)
	Data       []byte    // Width*Height*Channels байт
	CapturedAt time.Time // время захвата
}

// NewFrame создаёт кадр нужного размера с нулевыми пикселями.
func NewFrame(width, height, channels int) Frame {
	return Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]byte, width*height*channels),
	}
}

// Empty сообщает, что кадр не содержит данных (ошибка захвата).
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || f.Channels <= 0 || len(f.Data) < f.Width*f.Height*f.Channels
}

// Stride возвращает длину строки в байтах.
func (f Frame) Stride() int {
	return f.Width * f.Channels
}

// Clone возвращает независимую копию кадра.
func (f Frame) Clone() Frame {
	out := f
	out.Data = make([]byte, len(f.Data))
	copy(out.Data, f.Data)
	return out
}

// CopyFrom копирует src в f, переиспользуя уже выделенный буфер.
func (f *Frame) CopyFrom(src Frame) {
	n := len(src.Data)
	if cap(f.Data) < n {
		f.Data = make([]byte, n)
	}
	f.Data = f.Data[:n]
	copy(f.Data, src.Data)
	f.Width = src.Width
	f.Height = src.Height
	f.Channels = src.Channels
	f.CapturedAt = src.CapturedAt
}

// GrayImage: одноканальное изображение яркости.
type GrayImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGrayImage создаёт пустое изображение яркости.
func NewGrayImage(width, height int) GrayImage {
	return GrayImage{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At возвращает яркость пикселя; вызывающий проверяет границы сам.
func (g GrayImage) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Contains сообщает, лежит ли точка внутри изображения.
func (g GrayImage) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}
