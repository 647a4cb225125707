package vision

const (
	emaNewWeight = 0.3
	emaOldWeight = 0.7
)

// smoothingState: экспоненциальное сглаживание зазора по каждой линии.
type smoothingState struct {
	acc []float64
}

// apply возвращает сглаженное значение для линии.
// Нулевой сырой зазор аккумулятор не меняет: отдаётся удержанное значение.
func (s *smoothingState) apply(lineCount, index int, raw float64) float64 {
	if len(s.acc) != lineCount {
		s.acc = make([]float64, lineCount)
	}
	if raw <= 0 {
		return s.acc[index]
	}
	if s.acc[index] == 0 {
		s.acc[index] = raw
	} else {
		s.acc[index] = emaNewWeight*raw + emaOldWeight*s.acc[index]
	}
	return s.acc[index]
}

func (s *smoothingState) reset() {
	s.acc = nil
}
