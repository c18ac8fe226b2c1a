package lipsync

import (
	stdmath "math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/spaghettifunk/anima-rig/engine/containers"
	"github.com/spaghettifunk/anima-rig/engine/math"
)

type AnalyzerOptions struct {
	// FFTSize is the analysis frame length, a power of two.
	FFTSize int
	// MinDecibels and MaxDecibels bound the byte scale of the spectrum.
	MinDecibels float64
	MaxDecibels float64
	// TimeConstant blends each spectrum with the previous one, in [0, 1).
	TimeConstant float64
	// Gain turns the mean spectrum level into mouth openness.
	Gain float32
	// Smoothing is how many recent openness values are averaged.
	Smoothing int
}

func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		FFTSize:      2048,
		MinDecibels:  -100,
		MaxDecibels:  -30,
		TimeConstant: 0.8,
		Gain:         2,
		Smoothing:    3,
	}
}

// Analyzer maps audio frames to a mouth openness in [0, 1]. The spectrum is
// computed the way browser audio analysers do it: a Blackman window, FFT
// magnitudes smoothed over time and mapped linearly from decibels to bytes.
type Analyzer struct {
	opts     AnalyzerOptions
	fft      *fourier.FFT
	frame    []float64
	coeffs   []complex128
	smoothed []float64
	bytes    []byte
	levels   []float64
	recent   *containers.RingQueue[float32]
}

func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	def := DefaultAnalyzerOptions()
	if opts.FFTSize <= 0 {
		opts.FFTSize = def.FFTSize
	}
	if opts.MaxDecibels <= opts.MinDecibels {
		opts.MinDecibels, opts.MaxDecibels = def.MinDecibels, def.MaxDecibels
	}
	if opts.TimeConstant < 0 || opts.TimeConstant >= 1 {
		opts.TimeConstant = def.TimeConstant
	}
	if opts.Smoothing <= 0 {
		opts.Smoothing = 1
	}
	bins := opts.FFTSize / 2
	return &Analyzer{
		opts:     opts,
		fft:      fourier.NewFFT(opts.FFTSize),
		frame:    make([]float64, opts.FFTSize),
		smoothed: make([]float64, bins),
		bytes:    make([]byte, bins),
		levels:   make([]float64, bins),
		recent:   containers.NewRingQueue[float32](opts.Smoothing),
	}
}

func (a *Analyzer) FFTSize() int {
	return a.opts.FFTSize
}

// Spectrum returns the byte-scaled magnitudes of the last analysed frame.
func (a *Analyzer) Spectrum() []byte {
	return a.bytes
}

// Volume analyses one frame and returns the mean spectrum level in [0, 1].
// Frames shorter than the FFT size are zero padded; longer frames use their
// most recent samples.
func (a *Analyzer) Volume(samples []float32) float32 {
	if len(samples) > len(a.frame) {
		samples = samples[len(samples)-len(a.frame):]
	}
	for i := range a.frame {
		a.frame[i] = 0
	}
	for i, s := range samples {
		a.frame[i] = float64(s)
	}
	window.Blackman(a.frame)

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)
	n := float64(a.opts.FFTSize)
	tau := a.opts.TimeConstant
	span := a.opts.MaxDecibels - a.opts.MinDecibels
	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeffs[k]) / n
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag

		level := 0.0
		if a.smoothed[k] > 0 {
			db := 20 * stdmath.Log10(a.smoothed[k])
			level = math.Clamp(255*(db-a.opts.MinDecibels)/span, 0, 255)
		}
		a.bytes[k] = byte(level)
		a.levels[k] = float64(a.bytes[k])
	}
	return float32(floats.Sum(a.levels) / float64(len(a.levels)) / 255)
}

// Openness analyses one frame and returns the smoothed mouth openness.
func (a *Analyzer) Openness(samples []float32) float32 {
	v := math.Clamp(a.Volume(samples)*a.opts.Gain, 0, 1)
	a.recent.Push(v)
	var sum float32
	items := a.recent.Items()
	for _, x := range items {
		sum += x
	}
	return sum / float32(len(items))
}

// Reset forgets the spectrum history.
func (a *Analyzer) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
	for i := range a.bytes {
		a.bytes[i] = 0
	}
	a.recent.Clear()
}
