//go:build nocgo
// +build nocgo

package audio

import (
	"errors"
	"io"
)

// Stub implementations for builds without CGO.

var errNoCgo = errors.New("audio not available in nocgo build")

// ProductionContext stub for nocgo builds.
type ProductionContext struct{}

// NewProductionContext always fails in nocgo builds.
func NewProductionContext(opts Options) (*ProductionContext, error) {
	return nil, errNoCgo
}

func (pc *ProductionContext) NewPlayer(r io.Reader) (Player, error) {
	return nil, errNoCgo
}

func (pc *ProductionContext) Close() error {
	return nil
}

func (pc *ProductionContext) IsReady() bool {
	return false
}

func (pc *ProductionContext) SampleRate() int {
	return SampleRate
}

func (pc *ProductionContext) ChannelCount() int {
	return Channels
}
