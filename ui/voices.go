package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/readalong/internal/synth"
)

const maxVoiceRows = 8

var (
	pickerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"})

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}).
				Bold(true)
)

// voicePicker filters the voice catalog as the user types.
type voicePicker struct {
	input    textinput.Model
	voices   []string
	matches  []string
	selected int
	current  string
}

func newVoicePicker() voicePicker {
	ti := textinput.New()
	ti.Prompt = "voice: "
	ti.Placeholder = "type to filter"
	ti.CharLimit = 40
	return voicePicker{input: ti}
}

// open resets the picker around the voice in use.
func (p *voicePicker) open(voices []string, current string) tea.Cmd {
	p.voices = voices
	p.current = current
	p.input.SetValue("")
	p.filter()
	for i, v := range p.matches {
		if v == current {
			p.selected = i
		}
	}
	return p.input.Focus()
}

func (p *voicePicker) close() {
	p.input.Blur()
}

// filter ranks voices against the typed pattern. An empty pattern keeps
// the catalog order.
func (p *voicePicker) filter() {
	p.selected = 0
	pattern := strings.TrimSpace(p.input.Value())
	if pattern == "" {
		p.matches = append([]string(nil), p.voices...)
		return
	}

	found := fuzzy.Find(pattern, p.voices)
	p.matches = make([]string, len(found))
	for i, m := range found {
		p.matches[i] = p.voices[m.Index]
	}
}

// choice returns the highlighted voice.
func (p voicePicker) choice() (string, bool) {
	if p.selected < 0 || p.selected >= len(p.matches) {
		return "", false
	}
	return p.matches[p.selected], true
}

func (p voicePicker) update(msg tea.KeyMsg) (voicePicker, tea.Cmd) {
	switch msg.String() {
	case "up", "ctrl+p":
		if p.selected > 0 {
			p.selected--
		}
		return p, nil
	case "down", "ctrl+n":
		if p.selected < len(p.matches)-1 {
			p.selected++
		}
		return p, nil
	}

	var cmd tea.Cmd
	before := p.input.Value()
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.filter()
	}
	return p, cmd
}

func (p voicePicker) view(width int) string {
	var b strings.Builder
	b.WriteString(p.input.View())

	for i, v := range p.matches {
		if i == maxVoiceRows {
			b.WriteString("\n  …")
			break
		}
		b.WriteByte('\n')
		label := v
		if v == p.current {
			label += " (current)"
		}
		if i == p.selected {
			b.WriteString(pickerSelectedStyle.Render("> " + label))
		} else {
			b.WriteString("  " + label)
		}
	}
	if len(p.matches) == 0 {
		b.WriteString("\n  no matching voice")
	}

	return pickerStyle.Width(max(width, 0)).Render(b.String())
}

// fetchVoicesCmd reads the catalog. The catalog itself falls back to the
// built-in voices when the service has no voice listing.
func fetchVoicesCmd(c synth.Catalog) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return voicesMsg(c.Voices(ctx))
	}
}
