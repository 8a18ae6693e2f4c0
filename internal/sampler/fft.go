package sampler

import "math"

// fft computes an in-place radix-2 Cooley-Tukey transform. The input
// length must be a power of two; magnitudes come back via magnitudes().
// No DSP dependency carries this for us, so the transform lives here.
type fft struct {
	size int
	real []float64
	imag []float64
	cos  []float64
	sin  []float64
	rev  []int
}

func newFFT(size int) *fft {
	f := &fft{
		size: size,
		real: make([]float64, size),
		imag: make([]float64, size),
		cos:  make([]float64, size/2),
		sin:  make([]float64, size/2),
		rev:  make([]int, size),
	}

	for i := 0; i < size/2; i++ {
		angle := -2 * math.Pi * float64(i) / float64(size)
		f.cos[i] = math.Cos(angle)
		f.sin[i] = math.Sin(angle)
	}

	bits := 0
	for 1<<bits < size {
		bits++
	}
	for i := 0; i < size; i++ {
		r := 0
		for b := 0; b < bits; b++ {
			if i&(1<<b) != 0 {
				r |= 1 << (bits - 1 - b)
			}
		}
		f.rev[i] = r
	}

	return f
}

// transform loads samples (zero-padded or truncated to the transform
// size) with a Hann window and runs the butterfly passes.
func (f *fft) transform(samples []float32) {
	n := f.size
	for i := 0; i < n; i++ {
		var s float64
		if i < len(samples) {
			window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
			s = float64(samples[i]) * window
		}
		f.real[f.rev[i]] = s
		f.imag[f.rev[i]] = 0
	}

	for length := 2; length <= n; length <<= 1 {
		half := length >> 1
		step := n / length
		for start := 0; start < n; start += length {
			k := 0
			for j := start; j < start+half; j++ {
				c, s := f.cos[k], f.sin[k]
				tr := f.real[j+half]*c - f.imag[j+half]*s
				ti := f.real[j+half]*s + f.imag[j+half]*c
				f.real[j+half] = f.real[j] - tr
				f.imag[j+half] = f.imag[j] - ti
				f.real[j] += tr
				f.imag[j] += ti
				k += step
			}
		}
	}
}

// magnitudes fills out with per-bin magnitudes normalized so a
// full-scale sine lands near 1.0. len(out) must be size/2.
func (f *fft) magnitudes(out []float64) {
	scale := 2.0 / float64(f.size)
	for i := range out {
		out[i] = math.Hypot(f.real[i], f.imag[i]) * scale
		if out[i] > 1 {
			out[i] = 1
		}
	}
}
