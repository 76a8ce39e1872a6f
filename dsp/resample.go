package dsp

// Resample converts a mono buffer from one sample rate to another with linear
// interpolation. The input is returned as is when the rates match or either
// is not positive.
func Resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]float32, max(n, 1))
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		k := int(pos)
		if k >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		f := float32(pos - float64(k))
		out[i] = in[k] + (in[k+1]-in[k])*f
	}
	return out
}
