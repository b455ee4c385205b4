package audio

import "time"

// Output format of the shared device.
// These constants are used by both CGO and non-CGO builds.
const (
	// SampleRate is the device sample rate in Hz.
	SampleRate = 24000
	// Channels is the number of device channels. Decoded speech is always stereo.
	Channels = 2
	// BitDepth is the bit depth per sample (16-bit).
	BitDepth = 16
	// BytesPerSample is the number of bytes per sample.
	BytesPerSample = BitDepth / 8
)

// Format describes signed 16-bit little endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat returns the device format.
func DefaultFormat() Format {
	return Format{SampleRate: SampleRate, Channels: Channels}
}

// BytesPerFrame returns the number of bytes in one frame across all channels.
func (f Format) BytesPerFrame() int {
	return BytesPerSample * f.Channels
}

// Duration returns how long n bytes of PCM take to play.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := n / f.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}
