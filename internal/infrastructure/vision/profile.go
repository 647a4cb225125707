package vision

import (
	"math"

	"connector-vision/internal/domain/entity"
)

const (
	// полуширина полосы: линии со смещением -3..+3 px по перпендикуляру
	bandHalfWidth = 3
	// при меньшем числе усреднённых линий профиль считается деградированным
	minBandLines = 4
)

// bresenhamSamples собирает яркость пикселей вдоль отрезка.
// Точки за пределами изображения пропускаются.
func bresenhamSamples(img entity.GrayImage, x1, y1, x2, y2 int) []float64 {
	dx := absInt(x2 - x1)
	dy := absInt(y2 - y1)
	sx, sy := 1, 1
	if x1 >= x2 {
		sx = -1
	}
	if y1 >= y2 {
		sy = -1
	}
	errTerm := dx - dy
	cx, cy := x1, y1

	samples := make([]float64, 0, maxInt(dx, dy)+1)
	for {
		if img.Contains(cx, cy) {
			samples = append(samples, float64(img.At(cx, cy)))
		}
		if cx == x2 && cy == y2 {
			break
		}
		e2 := 2 * errTerm
		if e2 > -dy {
			errTerm -= dy
			cx += sx
		}
		if e2 < dx {
			errTerm += dx
			cy += sy
		}
	}
	return samples
}

// extractBandProfile усредняет профили параллельных линий вокруг отрезка.
// Линии, длина которых отличается от центральной, не участвуют.
// Смещения, совпавшие после округления (диагонали), берутся один раз.
func extractBandProfile(img entity.GrayImage, x1, y1, x2, y2 int) (profile []float64, lines int) {
	center := bresenhamSamples(img, x1, y1, x2, y2)
	if len(center) == 0 {
		return nil, 0
	}

	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return center, 1
	}
	nx, ny := -dy/length, dx/length

	sum := make([]float64, len(center))
	copy(sum, center)
	lines = 1
	seen := map[[2]int]bool{{0, 0}: true}
	for off := -bandHalfWidth; off <= bandHalfWidth; off++ {
		if off == 0 {
			continue
		}
		ox := int(math.Round(float64(off) * nx))
		oy := int(math.Round(float64(off) * ny))
		if seen[[2]int{ox, oy}] {
			continue
		}
		seen[[2]int{ox, oy}] = true
		s := bresenhamSamples(img, x1+ox, y1+oy, x2+ox, y2+oy)
		if len(s) != len(center) {
			continue
		}
		for i, v := range s {
			sum[i] += v
		}
		lines++
	}

	for i := range sum {
		sum[i] /= float64(lines)
	}
	return sum, lines
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
