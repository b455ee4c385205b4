// Package codec turns synthesized speech payloads into playable buffers.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rockhound/narrator/dialogue"
)

const (
	// targetPeak is the peak every non-silent buffer is normalized to.
	targetPeak = 0.95
	// silenceFloor is the peak below which a buffer is left untouched.
	silenceFloor = 0.01
	// outputChannels is the minimum number of channels in a decoded buffer.
	outputChannels = 2
)

// Buffer is decoded audio, one slice of samples in [-1, 1] per channel.
type Buffer struct {
	SampleRate int
	Data       [][]float32
}

// Channels returns the number of channels.
func (b *Buffer) Channels() int {
	return len(b.Data)
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Peak returns the largest absolute sample across all channels.
func (b *Buffer) Peak() float32 {
	var peak float32
	for _, ch := range b.Data {
		for _, s := range ch {
			if a := abs(s); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// DecodeBytes decodes standard base64, ignoring whitespace and missing
// padding. On failure it returns an empty slice and an error matching
// dialogue.ErrDecode.
func DecodeBytes(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimRight(cleaned, "=")

	data, err := base64.RawStdEncoding.DecodeString(cleaned)
	if err != nil {
		if alt, altErr := base64.RawURLEncoding.DecodeString(cleaned); altErr == nil {
			return alt, nil
		}
		return []byte{}, fmt.Errorf("%w: base64: %v", dialogue.ErrDecode, err)
	}
	return data, nil
}

// DecodeAudio converts little endian PCM16 into a normalized buffer.
//
// Input channels are averaged per frame and the result is scaled so its
// peak is 0.95, unless the input is near silent. Mono input is widened to
// stereo: the right channel blends each sample with the previous one.
// Input with more channels keeps its channel count.
func DecodeAudio(data []byte, sampleRate, channelsIn int) (*Buffer, error) {
	if channelsIn <= 0 {
		return nil, fmt.Errorf("%w: invalid channel count %d", dialogue.ErrDecode, channelsIn)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", dialogue.ErrDecode, sampleRate)
	}
	if len(data)%2 == 1 {
		padded := make([]byte, len(data)+1)
		copy(padded, data)
		data = padded
	}

	frames := len(data) / 2 / channelsIn
	if frames == 0 {
		return nil, fmt.Errorf("%w: no audio frames", dialogue.ErrDecode)
	}

	mixed := make([]float32, frames)
	var peak float32
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channelsIn; c++ {
			off := (f*channelsIn + c) * 2
			sum += float32(int16(binary.LittleEndian.Uint16(data[off:]))) / 32768
		}
		s := sum / float32(channelsIn)
		mixed[f] = s
		if a := abs(s); a > peak {
			peak = a
		}
	}

	gain := float32(1)
	if peak > silenceFloor {
		gain = targetPeak / peak
	}

	channelsOut := channelsIn
	if channelsOut < outputChannels {
		channelsOut = outputChannels
	}
	left := make([]float32, frames)
	right := make([]float32, frames)
	var prev float32
	for f, s := range mixed {
		cur := s * gain
		left[f] = cur
		if channelsIn == 1 {
			right[f] = 0.5*cur + 0.5*prev
		} else {
			right[f] = cur
		}
		prev = cur
	}

	out := make([][]float32, channelsOut)
	out[0], out[1] = left, right
	for c := 2; c < channelsOut; c++ {
		out[c] = append([]float32(nil), left...)
	}

	return &Buffer{SampleRate: sampleRate, Data: out}, nil
}

// DecodeSpeech decodes a synthesized line in one step.
func DecodeSpeech(speech *dialogue.Speech) (*Buffer, error) {
	if speech == nil {
		return nil, fmt.Errorf("%w: no speech", dialogue.ErrDecode)
	}
	raw, err := DecodeBytes(speech.Audio)
	if err != nil {
		return nil, err
	}
	rate, channels := speech.Format()
	return DecodeAudio(raw, rate, channels)
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
