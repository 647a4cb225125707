package vision

// upsampleFactor: во сколько раз профиль уплотняется перед поиском краёв.
const upsampleFactor = 4

// catmullRom уплотняет профиль сплайном Catmull-Rom.
// Длина результата (n-1)*factor+1, исходные отсчёты попадают в индексы i*factor.
func catmullRom(p []float64, factor int) []float64 {
	n := len(p)
	if n < 2 || factor <= 1 {
		out := make([]float64, n)
		copy(out, p)
		return out
	}

	out := make([]float64, 0, (n-1)*factor+1)
	for i := 0; i < n-1; i++ {
		p0 := p[maxInt(i-1, 0)]
		p1 := p[i]
		p2 := p[i+1]
		p3 := p[minInt(i+2, n-1)]
		for k := 0; k < factor; k++ {
			t := float64(k) / float64(factor)
			t2 := t * t
			t3 := t2 * t
			v := 0.5 * (2*p1 +
				(-p0+p2)*t +
				(2*p0-5*p1+4*p2-p3)*t2 +
				(-p0+3*p1-3*p2+p3)*t3)
			out = append(out, clampIntensity(v))
		}
	}
	out = append(out, clampIntensity(p[n-1]))
	return out
}

func clampIntensity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
