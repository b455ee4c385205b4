package fallback

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rockhound/narrator/pkg/audio"
)

// maxClicks limits how many ticks may sound at once.
const maxClicks = 2

// DeviceClicker plays a short synthesized tick on the shared device. It is
// silent when the device cannot be opened.
type DeviceClicker struct {
	device *audio.Device
	volume float64
	active atomic.Int32

	pcm      []byte
	duration time.Duration
}

// NewDeviceClicker prepares the tick for device's format.
func NewDeviceClicker(device *audio.Device, volume float64) *DeviceClicker {
	format := device.Format()
	pcm := synthTick(format, 25*time.Millisecond)
	return &DeviceClicker{
		device:   device,
		volume:   volume,
		pcm:      pcm,
		duration: format.Duration(len(pcm)),
	}
}

// Click starts a tick and returns immediately.
func (c *DeviceClicker) Click() {
	if c.active.Add(1) > maxClicks {
		c.active.Add(-1)
		return
	}
	ctx, err := c.device.Acquire()
	if err != nil {
		c.active.Add(-1)
		return
	}
	player, err := ctx.NewPlayer(bytes.NewReader(c.pcm))
	if err != nil {
		c.active.Add(-1)
		log.Debug("Tick unavailable", "error", err)
		return
	}
	player.SetVolume(c.volume)
	player.Play()

	done := c.device.Done()
	go func() {
		defer c.active.Add(-1)
		wait := time.NewTimer(c.duration)
		defer wait.Stop()
		for {
			select {
			case <-done:
				// Closing the device released the player.
				return
			case <-wait.C:
			}
			if !player.IsPlaying() {
				break
			}
			wait.Reset(5 * time.Millisecond)
		}
		_ = player.Close()
	}()
}

// Active returns the number of ticks currently sounding.
func (c *DeviceClicker) Active() int {
	return int(c.active.Load())
}

// synthTick renders a soft FM blip as PCM16 in the given format.
func synthTick(format audio.Format, d time.Duration) []byte {
	frames := int(int64(format.SampleRate) * int64(d) / int64(time.Second))
	out := make([]byte, frames*format.BytesPerFrame())
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(format.SampleRate)
		progress := float64(i) / float64(frames)
		s := 0.4 * adsr(progress, 0.05, 0.25, 0.3, 0.5) * fm(t, 1800, 1.5, 0.8)
		v := uint16(int16(s * math.MaxInt16))
		for c := 0; c < format.Channels; c++ {
			binary.LittleEndian.PutUint16(out[(i*format.Channels+c)*2:], v)
		}
	}
	return out
}

// adsr returns the envelope gain at progress in [0, 1].
func adsr(progress, attack, decay, sustain, release float64) float64 {
	switch {
	case progress < attack:
		return progress / attack
	case progress < attack+decay:
		return 1.0 - (progress-attack)/decay*(1.0-sustain)
	case progress < 1.0-release:
		return sustain
	default:
		return sustain * (1.0 - (progress-(1.0-release))/release)
	}
}

// fm returns one FM-synthesized sample.
func fm(t, carrier, modRatio, modIdx float64) float64 {
	mod := math.Sin(2 * math.Pi * carrier * modRatio * t)
	return math.Sin(2*math.Pi*carrier*t + modIdx*mod)
}
