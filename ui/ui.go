// Package ui provides the terminal reader for readalong.
package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/internal/synth"
)

const keyEsc = "esc"

// Options wires the reader to a document and a playback session.
type Options struct {
	Host    *Host
	Session Session
	Catalog synth.Catalog
	Stats   StatsFunc
	// PageLines is used when the document is reloaded.
	PageLines int
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, opts Options) *tea.Program {
	log.Debug(
		"Starting readalong",
		"path", cfg.Path,
		"by_chapter", cfg.ByChapter,
		"mouse", cfg.EnableMouse,
	)

	if opts.Catalog == nil {
		opts.Catalog = staticCatalog(synth.DefaultVoices)
	}

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		programOpts = append(programOpts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, opts), programOpts...)
}

// Common stuff we'll need to access in all models.
type commonModel struct {
	cfg    Config
	width  int
	height int
}

type model struct {
	common *commonModel
	pager  pagerModel
}

func newModel(cfg Config, opts Options) model {
	common := &commonModel{cfg: cfg}
	return model{
		common: common,
		pager:  newPagerModel(common, opts),
	}
}

func (m model) Init() tea.Cmd {
	return m.pager.init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()
		case "q":
			if m.pager.state == pagerStateBrowse {
				return m, m.quit()
			}
		}

	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.pager.setSize(msg.Width, msg.Height)
		return m, nil

	case sessionClosedMsg:
		log.Debug("session closed, leaving reader")
		return m, m.quit()
	}

	var cmd tea.Cmd
	m.pager, cmd = m.pager.update(msg)
	return m, cmd
}

func (m model) View() string {
	return m.pager.View()
}

func (m model) quit() tea.Cmd {
	m.pager.unwatch()
	return tea.Quit
}

type staticCatalog []string

func (c staticCatalog) Voices(context.Context) []string {
	return c
}
