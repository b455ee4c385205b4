package codec

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts the buffer to the given sample rate. The buffer is
// returned unchanged when the rates already match.
func Resample(b *Buffer, rate int) (*Buffer, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid target rate %d", rate)
	}
	if b.SampleRate == rate || b.Frames() == 0 {
		return b, nil
	}

	channels := b.Channels()
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(b.SampleRate),
		OutputRate: float64(rate),
		Channels:   channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	frames := b.Frames()
	input := make([]float64, frames*channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			input[f*channels+c] = float64(b.Data[c][f])
		}
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample %d Hz to %d Hz: %w", b.SampleRate, rate, err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("flush resampler: %w", err)
	}
	output = append(output, tail...)

	outFrames := len(output) / channels
	if outFrames == 0 {
		return nil, fmt.Errorf("resample %d Hz to %d Hz: no output for %d frames", b.SampleRate, rate, frames)
	}
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, outFrames)
	}
	for f := 0; f < outFrames; f++ {
		for c := 0; c < channels; c++ {
			data[c][f] = float32(output[f*channels+c])
		}
	}
	return &Buffer{SampleRate: rate, Data: data}, nil
}
