package lipsync

import (
	"io"
	"time"
)

// Source delivers mono samples in [-1, 1].
type Source interface {
	// Read fills dst and returns the number of samples written. It returns
	// io.EOF once the stream is exhausted.
	Read(dst []float32) (int, error)
	SampleRate() int
}

// PCMSource plays a decoded buffer.
type PCMSource struct {
	samples []float32
	rate    int
	pos     int
}

func NewPCMSource(samples []float32, sampleRate int) *PCMSource {
	return &PCMSource{samples: samples, rate: sampleRate}
}

func (s *PCMSource) Read(dst []float32) (int, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

func (s *PCMSource) SampleRate() int {
	return s.rate
}

// Len is the total number of samples.
func (s *PCMSource) Len() int {
	return len(s.samples)
}

func (s *PCMSource) Duration() time.Duration {
	if s.rate <= 0 {
		return 0
	}
	return time.Duration(len(s.samples)) * time.Second / time.Duration(s.rate)
}

// Rewind restarts playback from the first sample.
func (s *PCMSource) Rewind() {
	s.pos = 0
}
