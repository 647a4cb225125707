package vision

import (
	"math"

	"connector-vision/internal/domain/entity"
)

const (
	// профили короче этого не анализируются
	minProfileLen = 5
	// минимальное расстояние между пиками в режиме StrongestPair (в отсчётах после уплотнения)
	minPeakSeparation = 3 * upsampleFactor
	refineEpsilon     = 1e-9
)

// edgeResult: найденные края в единицах исходного профиля.
type edgeResult struct {
	Edge1 float64
	Edge2 float64
	Gap   float64
}

// findEdges ищет пару краёв на исходном профиле.
func findEdges(profile []float64, threshold, marginPercent float64, mode entity.EdgeMode) edgeResult {
	if len(profile) < minProfileLen {
		return edgeResult{}
	}

	up := catmullRom(profile, upsampleFactor)
	n := len(up)

	margin := int(float64(n) * marginPercent / 100)
	start := maxInt(upsampleFactor+1, margin)
	end := minInt(n-2-upsampleFactor, n-1-margin)
	if start >= end {
		return edgeResult{}
	}

	grad := gradient(up, upsampleFactor)

	var p1, p2 int
	var ok bool
	switch mode {
	case entity.EdgeModeFirstAndLast:
		p1, p2, ok = firstAndLast(grad, start, end, threshold)
	default:
		p1, p2, ok = strongestPair(grad, start, end, threshold)
	}
	if !ok {
		return edgeResult{}
	}

	e1 := refine(grad, p1) / upsampleFactor
	e2 := refine(grad, p2) / upsampleFactor
	if p2 <= p1 {
		e2 = e1
	}
	gap := math.Max(0, e2-e1)
	return edgeResult{Edge1: e1, Edge2: e2, Gap: gap}
}

// gradient считает |u[i+d] - u[i-d]|; на краях массива нули.
func gradient(u []float64, d int) []float64 {
	g := make([]float64, len(u))
	for i := d; i < len(u)-d; i++ {
		g[i] = math.Abs(u[i+d] - u[i-d])
	}
	return g
}

// strongestPair берёт самый сильный пик и самый сильный из оставшихся
// не ближе minPeakSeparation. Если второго нет, оба края в первом пике.
func strongestPair(g []float64, start, end int, threshold float64) (int, int, bool) {
	best := argmaxAbove(g, start, end, threshold, -1)
	if best < 0 {
		return 0, 0, false
	}
	best = plateauCenter(g, best, end)

	second := argmaxAbove(g, start, end, threshold, best)
	if second < 0 {
		return best, best, true
	}
	second = plateauCenter(g, second, end)

	if second < best {
		best, second = second, best
	}
	return best, second, true
}

// argmaxAbove возвращает первый максимальный индекс не ниже порога,
// пропуская окрестность exclude.
func argmaxAbove(g []float64, start, end int, threshold float64, exclude int) int {
	pos := -1
	val := 0.0
	for i := start; i <= end; i++ {
		if exclude >= 0 && absInt(i-exclude) < minPeakSeparation {
			continue
		}
		if g[i] >= threshold && g[i] > val {
			val = g[i]
			pos = i
		}
	}
	return pos
}

// firstAndLast ищет первое пересечение порога с начала и последнее с конца
// и поднимается от каждого к локальному максимуму.
func firstAndLast(g []float64, start, end int, threshold float64) (int, int, bool) {
	first := -1
	for i := start; i <= end; i++ {
		if g[i] >= threshold {
			first = i
			break
		}
	}
	if first < 0 {
		return 0, 0, false
	}

	last := first
	for i := end; i >= start; i-- {
		if g[i] >= threshold {
			last = i
			break
		}
	}

	p1 := climbForward(g, first, end)
	p2 := climbBackward(g, last, start)
	if p2 <= p1 {
		return p1, p1, true
	}
	return p1, p2, true
}

func climbForward(g []float64, i, end int) int {
	for {
		for i < end && g[i+1] > g[i] {
			i++
		}
		j := i
		for j < end && g[j+1] == g[i] {
			j++
		}
		if j == i {
			return i
		}
		if j < end && g[j+1] > g[j] {
			i = j
			continue
		}
		return (i + j) / 2
	}
}

func climbBackward(g []float64, i, start int) int {
	for {
		for i > start && g[i-1] > g[i] {
			i--
		}
		j := i
		for j > start && g[j-1] == g[i] {
			j--
		}
		if j == i {
			return i
		}
		if j > start && g[j-1] > g[j] {
			i = j
			continue
		}
		return (i + j + 1) / 2
	}
}

// plateauCenter сдвигает пик в центр ровной вершины.
func plateauCenter(g []float64, i, end int) int {
	j := i
	for j < end && g[j+1] == g[i] {
		j++
	}
	return (i + j) / 2
}

// refine уточняет положение пика параболой по трём точкам.
// Смещение ограничено ±0.5; при нулевом знаменателе остаётся целый индекс.
func refine(g []float64, i int) float64 {
	if i <= 0 || i >= len(g)-1 {
		return float64(i)
	}
	l, c, r := g[i-1], g[i], g[i+1]
	denom := l - 2*c + r
	if math.Abs(denom) < refineEpsilon {
		return float64(i)
	}
	offset := 0.5 * (l - r) / denom
	if offset > 0.5 {
		offset = 0.5
	} else if offset < -0.5 {
		offset = -0.5
	}
	return float64(i) + offset
}
