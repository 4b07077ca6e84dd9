package ui

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool
	// ByChapter narrates markdown chapter by chapter instead of page by page.
	ByChapter bool
	AutoPlay  bool

	// Path of the document being read.
	Path string

	// SpeedStep is how much one press of a speed key changes the speed.
	SpeedStep float64 `env:"READALONG_SPEED_STEP" envDefault:"0.25"`

	HighlightColor string `env:"READALONG_HIGHLIGHT_COLOR" envDefault:"#F3E9A3"`
}
