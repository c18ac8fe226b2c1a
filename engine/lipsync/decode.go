package lipsync

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/spaghettifunk/anima-rig/engine/core"
	"github.com/spaghettifunk/anima-rig/engine/math"
)

// OpenFile decodes a WAV, MP3 or Ogg Vorbis file into a mono source at the
// file's own sample rate. Files with an unknown extension are sniffed.
func OpenFile(path string) (*PCMSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		return DecodeWAV(f)
	case ".mp3":
		return DecodeMP3(f)
	case ".ogg", ".oga":
		return DecodeVorbis(f)
	}

	magic, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch {
	case string(magic) == "RIFF":
		return DecodeWAV(f)
	case string(magic) == "OggS":
		return DecodeVorbis(f)
	case len(magic) >= 3 && (string(magic[:3]) == "ID3" || magic[0] == 0xFF):
		return DecodeMP3(f)
	}
	return nil, fmt.Errorf("%s: %w", path, core.ErrUnsupportedAudio)
}

func DecodeWAV(r io.ReadSeeker) (*PCMSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav: %w", core.ErrUnsupportedAudio)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("empty wav: %w", core.ErrUnsupportedAudio)
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := 1 / float32(int64(1)<<(depth-1))
	x := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		x[i] = math.Clamp(float32(v)*scale, -1, 1)
	}
	return NewPCMSource(downmix(x, buf.Format.NumChannels), buf.Format.SampleRate), nil
}

// DecodeMP3 decodes an MP3 stream. The decoder always produces 16-bit
// little-endian stereo.
func DecodeMP3(r io.Reader) (*PCMSource, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	if raw.Len() < 4 {
		return nil, fmt.Errorf("mp3: no audio frames: %w", core.ErrUnsupportedAudio)
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	x := make([]float32, len(ints))
	for i, v := range ints {
		x[i] = float32(v) / 32768
	}
	return NewPCMSource(downmix(x, 2), dec.SampleRate()), nil
}

func DecodeVorbis(r io.Reader) (*PCMSource, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ogg: %w", err)
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid ogg stream: %w", core.ErrUnsupportedAudio)
	}
	return NewPCMSource(downmix(pcm, format.Channels), format.SampleRate), nil
}

// downmix averages interleaved channels into mono.
func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
