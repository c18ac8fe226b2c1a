package lipsync

import (
	"errors"
	"io"

	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/expression"
)

// Sync drives a mouth expression from a Source, one call per frame.
type Sync struct {
	src      Source
	analyzer *Analyzer
	driver   *expression.Driver
	window   []float32
	chunk    []float32
	carry    float32
	done     bool

	// Expression is the blendshape receiving the openness, "aa" by default.
	Expression string
}

func NewSync(src Source, analyzer *Analyzer, driver *expression.Driver) *Sync {
	return &Sync{
		src:        src,
		analyzer:   analyzer,
		driver:     driver,
		window:     make([]float32, 0, analyzer.FFTSize()),
		Expression: expression.Aa,
	}
}

// Done reports whether the source is exhausted.
func (s *Sync) Done() bool {
	return s.done
}

// Update consumes dt seconds of audio, analyses the most recent FFT-sized
// window and writes the openness to the driver. Once the source ends the
// mouth is closed and further updates return 0.
func (s *Sync) Update(dt float32) float32 {
	if s.done || s.src == nil {
		return 0
	}
	want := dt*float32(s.src.SampleRate()) + s.carry
	n := int(want)
	s.carry = want - float32(n)
	if n <= 0 {
		return s.driver.Get(s.Expression)
	}
	if cap(s.chunk) < n {
		s.chunk = make([]float32, n)
	}
	chunk := s.chunk[:n]

	read := 0
	for read < n {
		m, err := s.src.Read(chunk[read:])
		read += m
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			core.LogWarn("lip-sync source failed: %s", err)
			s.done = true
			break
		}
		if m == 0 {
			break
		}
	}
	if s.done {
		s.Stop()
		return 0
	}
	s.push(chunk[:read])
	v := s.analyzer.Openness(s.window)
	s.driver.Set(s.Expression, v)
	return v
}

// Stop closes the mouth and ends the sync.
func (s *Sync) Stop() {
	s.done = true
	s.window = s.window[:0]
	s.analyzer.Reset()
	s.driver.Set(s.Expression, 0)
}

// push appends samples to the sliding analysis window.
func (s *Sync) push(samples []float32) {
	size := s.analyzer.FFTSize()
	if len(samples) >= size {
		s.window = append(s.window[:0], samples[len(samples)-size:]...)
		return
	}
	if over := len(s.window) + len(samples) - size; over > 0 {
		s.window = append(s.window[:0], s.window[over:]...)
	}
	s.window = append(s.window, samples...)
}
