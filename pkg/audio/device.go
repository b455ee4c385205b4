package audio

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Device is the process-scoped output device. The underlying context is
// opened on the first Acquire and reused until Close. A failed open is
// remembered: oto permits a single context per process, so retrying would
// only fail again.
type Device struct {
	opts Options
	open func(Options) (Context, error)

	mu     sync.Mutex
	ctx    Context
	err    error
	closed bool
	done   chan struct{}
}

// NewDevice returns a Device that opens its context lazily.
func NewDevice(opts Options) *Device {
	return &Device{opts: opts, open: NewContext}
}

// NewDeviceWithContext wraps an already opened context.
func NewDeviceWithContext(ctx Context) *Device {
	return &Device{
		opts: Options{Format: Format{SampleRate: ctx.SampleRate(), Channels: ctx.ChannelCount()}},
		open: func(Options) (Context, error) { return ctx, nil },
	}
}

// Acquire returns the shared context, opening it on first use.
func (d *Device) Acquire() (Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("%w: device closed", ErrUnavailable)
	}
	if d.ctx != nil {
		return d.ctx, nil
	}
	if d.err != nil {
		return nil, d.err
	}

	ctx, err := d.open(d.opts)
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		log.Warn("Audio device unavailable", "type", d.opts.Type, "error", err)
		return nil, d.err
	}
	if !ctx.IsReady() {
		d.err = fmt.Errorf("%w: context not ready", ErrUnavailable)
		return nil, d.err
	}

	d.ctx = ctx
	log.Debug("Audio device opened",
		"sample_rate", ctx.SampleRate(),
		"channels", ctx.ChannelCount())
	return ctx, nil
}

// Format returns the output format, whether or not the device is open yet.
func (d *Device) Format() Format {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx != nil {
		return Format{SampleRate: d.ctx.SampleRate(), Channels: d.ctx.ChannelCount()}
	}
	if d.opts.Format.SampleRate <= 0 || d.opts.Format.Channels <= 0 {
		return DefaultFormat()
	}
	return d.opts.Format
}

// Opened reports whether the context has been opened successfully.
func (d *Device) Opened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx != nil
}

// Done returns a channel that is closed once the device has been closed.
func (d *Device) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done == nil {
		d.done = make(chan struct{})
		if d.closed {
			close(d.done)
		}
	}
	return d.done
}

// Close releases the context. Later calls to Acquire fail.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.done != nil {
		close(d.done)
	}
	if d.ctx == nil {
		return nil
	}
	err := d.ctx.Close()
	d.ctx = nil
	log.Debug("Audio device closed")
	return err
}
