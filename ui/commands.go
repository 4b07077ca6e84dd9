package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/internal/align"
	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/pages"
	"github.com/dgnsrekt/readalong/internal/playback"
)

// Session is the part of playback.Session the reader drives.
type Session interface {
	TextLoader
	TogglePlay() error
	Advance(dir document.Direction) error
	Seek(index int) error
	Stop() error
	SetVoice(voice string) error
	SetSpeed(speed float64) error
	SetDocument(docID string) (document.Position, bool, error)
	Status() (playback.Snapshot, error)
	Sentences() ([]string, error)
	Events() <-chan playback.Event
}

// StatsFunc reports audio cache statistics.
type StatsFunc func() cache.Stats

// Messages

type (
	// sessionEventMsg carries one event from the session.
	sessionEventMsg struct{ event playback.Event }
	// sessionClosedMsg is sent once the session stopped emitting events.
	sessionClosedMsg struct{}

	// actionDoneMsg reports the outcome of a session call.
	actionDoneMsg struct {
		action string
		err    error
	}

	// openedMsg is sent after the session was pointed at a document.
	openedMsg struct {
		pos     document.Position
		resumed bool
		snap    playback.Snapshot
		err     error
	}

	voicesMsg []string

	reloadMsg        struct{}
	docReloadedMsg   struct{ doc *pages.Document }
	statusTimeoutMsg struct{}
	statsTickMsg     struct{}
)

const statsInterval = time.Second

// waitForEvent blocks until the session emits an event.
func waitForEvent(events <-chan playback.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{event: e}
	}
}

func actionCmd(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		err := fn()
		if err != nil {
			log.Debug("session call failed", "action", action, "error", err)
		}
		return actionDoneMsg{action: action, err: err}
	}
}

func togglePlayCmd(s Session) tea.Cmd {
	return actionCmd("play", s.TogglePlay)
}

func advanceCmd(s Session, dir document.Direction) tea.Cmd {
	return actionCmd("move "+dir.String(), func() error { return s.Advance(dir) })
}

func stopCmd(s Session) tea.Cmd {
	return actionCmd("stop", s.Stop)
}

func setVoiceCmd(s Session, voice string) tea.Cmd {
	return actionCmd("voice", func() error { return s.SetVoice(voice) })
}

func setSpeedCmd(s Session, speed float64) tea.Cmd {
	return actionCmd("speed", func() error { return s.SetSpeed(speed) })
}

// openCmd points the session at the host's document and loads the stored
// position, or the host's current one when there is none.
func openCmd(s Session, h *Host) tea.Cmd {
	return func() tea.Msg {
		doc := h.Document()
		pos, resumed, err := s.SetDocument(doc.ID())
		if err != nil {
			return openedMsg{err: err}
		}
		if !resumed {
			pos = h.Position()
		}
		pos = h.Resolve(pos)

		if err := h.Deliver(context.Background(), pos); err != nil {
			return openedMsg{pos: pos, err: err}
		}
		snap, err := s.Status()
		return openedMsg{pos: pos, resumed: resumed, snap: snap, err: err}
	}
}

// deliverCmd answers a NeedText event.
func deliverCmd(h *Host, pos document.Position) tea.Cmd {
	return actionCmd("load "+pos.String(), func() error {
		return h.Deliver(context.Background(), pos)
	})
}

// seekToLineCmd resolves a click on a rendered line to a sentence and seeks
// to it.
func seekToLineCmd(s Session, l layout, line int) tea.Cmd {
	node := l.nodeAt(line)
	if node < 0 {
		return nil
	}
	return actionCmd("seek", func() error {
		sentences, err := s.Sentences()
		if err != nil {
			return err
		}
		i, ok := align.SentenceAt(l.nodes, node, sentences)
		if !ok {
			return errNoSentenceHere
		}
		return s.Seek(i)
	})
}

var errNoSentenceHere = errors.New("no sentence found at that line")

func reloadDocumentCmd(path string, pageLines int) tea.Cmd {
	return func() tea.Msg {
		doc, err := pages.Load(path, pageLines)
		if err != nil {
			return actionDoneMsg{action: "reload", err: fmt.Errorf("failed to reload %s: %w", path, err)}
		}
		return docReloadedMsg{doc: doc}
	}
}

func statsTick() tea.Cmd {
	return tea.Tick(statsInterval, func(time.Time) tea.Msg {
		return statsTickMsg{}
	})
}

func waitForStatusTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusTimeoutMsg{}
	}
}
