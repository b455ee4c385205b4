package ui

import "github.com/rockhound/narrator/dialogue"

// Config contains TUI-specific configuration.
type Config struct {
	// Width caps the text column. Zero uses the terminal width.
	Width       int  `env:"NARRATOR_WIDTH"        envDefault:"72"`
	ShowVisemes bool `env:"NARRATOR_SHOW_VISEMES" envDefault:"true"`
	AltScreen   bool `env:"NARRATOR_ALT_SCREEN"   envDefault:"false"`
	EnableMouse bool

	// Request sent when the program starts. An empty topic uses the
	// service default.
	StartMode  dialogue.Mode
	StartTopic string
	AutoStart  bool
}
