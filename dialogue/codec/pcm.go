package codec

import (
	"encoding/binary"
	"math"
)

// EncodePCM16 interleaves the buffer into little endian PCM16 with the given
// number of channels. Mono output averages the buffer's channels; extra
// output channels repeat the last buffer channel.
func EncodePCM16(b *Buffer, channels int) []byte {
	frames := b.Frames()
	if channels <= 0 || frames == 0 {
		return nil
	}

	out := make([]byte, frames*channels*2)
	off := 0
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			var s float32
			if channels == 1 {
				for _, ch := range b.Data {
					s += ch[f]
				}
				s /= float32(len(b.Data))
			} else {
				src := c
				if src >= len(b.Data) {
					src = len(b.Data) - 1
				}
				s = b.Data[src][f]
			}
			binary.LittleEndian.PutUint16(out[off:], uint16(toInt16(s)))
			off += 2
		}
	}
	return out
}

func toInt16(s float32) int16 {
	v := math.Max(-1, math.Min(1, float64(s)))
	return int16(math.Round(v * math.MaxInt16))
}
