package ui

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/playback"
	"github.com/dgnsrekt/readalong/internal/synth"
)

const (
	statusBarHeight = 1
	ellipsis        = "…"

	statusMessageTimeout = time.Second * 3
)

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#FF5F87")).
			Bold(true).
			Render

	statusBarScrollPosStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(red).
				Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render
)

type pagerState int

const (
	pagerStateBrowse pagerState = iota
	pagerStateStatusMessage
	pagerStatePickVoice
)

type pagerStatusMessage struct {
	message string
	isError bool
}

type pagerModel struct {
	common   *commonModel
	viewport viewport.Model
	spinner  spinner.Model
	state    pagerState
	showHelp bool

	statusMessage      pagerStatusMessage
	statusMessageTimer *time.Timer

	host      *Host
	session   Session
	catalog   synth.Catalog
	stats     StatsFunc
	pageLines int

	// What is on screen.
	layout   layout
	shownPos document.Position
	shownW   int

	// Mirrors of the session, updated from its events.
	playState playback.State
	cursor    document.Cursor
	total     int
	sentence  string
	voice     string
	speed     float64
	cache     cache.Stats

	voices []string
	picker voicePicker

	watcher  *fsnotify.Watcher
	watching bool
}

func newPagerModel(common *commonModel, opts Options) pagerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = 0

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := pagerModel{
		common:    common,
		viewport:  vp,
		spinner:   sp,
		host:      opts.Host,
		session:   opts.Session,
		catalog:   opts.Catalog,
		stats:     opts.Stats,
		pageLines: opts.PageLines,
		picker:    newVoicePicker(),
	}
	m.initWatcher()
	return m
}

func (m pagerModel) init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.session.Events()),
		openCmd(m.session, m.host),
		statsTick(),
	)
}

func (m *pagerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - statusBarHeight

	switch {
	case m.state == pagerStatePickVoice:
		m.viewport.Height -= strings.Count(m.picker.view(w), "\n") + 1
	case m.showHelp:
		m.viewport.Height -= strings.Count(m.helpView(), "\n") + 1
	}
	m.viewport.Height = max(m.viewport.Height, 1)
	m.render(false)
}

func (m *pagerModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.common.width, m.common.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

func (m *pagerModel) showStatusMessage(msg pagerStatusMessage) tea.Cmd {
	if m.state != pagerStatePickVoice {
		m.state = pagerStateStatusMessage
	}
	m.statusMessage = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusTimeout(m.statusMessageTimer)
}

// render redraws the shown section. The layout is rebuilt only when the
// section or the width changed. With follow set the viewport scrolls to
// the highlighted sentence.
func (m *pagerModel) render(follow bool) {
	pos := m.host.Position()
	if !pos.Equal(m.shownPos) || m.viewport.Width != m.shownW {
		m.layout = layoutBlocks(m.host.Blocks(), m.viewport.Width)
		m.shownPos = pos
		m.shownW = m.viewport.Width
		m.viewport.GotoTop()
	}

	var sentence string
	if m.cursor.Position.Equal(pos) {
		sentence = m.sentence
	}

	first, last, lit := m.layout.highlight(sentence, m.viewport.YOffset, m.viewport.Height)
	m.viewport.SetContent(m.layout.render(first, last, lit, highlightStyle(m.common.cfg.HighlightColor)))

	if follow && lit {
		switch {
		case first < m.viewport.YOffset:
			m.viewport.SetYOffset(first)
		case last >= m.viewport.YOffset+m.viewport.Height:
			m.viewport.SetYOffset(max(first, last-m.viewport.Height+1))
		}
	}
}

func (m pagerModel) update(msg tea.Msg) (pagerModel, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == pagerStatePickVoice {
			return m.updatePicker(msg)
		}

		switch msg.String() {
		case "q", keyEsc:
			if m.state != pagerStateBrowse {
				m.state = pagerStateBrowse
				return m, nil
			}
		case "home", "g":
			m.viewport.GotoTop()
		case "end", "G":
			m.viewport.GotoBottom()
		case "d":
			m.viewport.HalfViewDown()
		case "u":
			m.viewport.HalfViewUp()

		case " ":
			cmds = append(cmds, togglePlayCmd(m.session))
		case "n", "right":
			cmds = append(cmds, advanceCmd(m.session, document.Forward))
		case "p", "left":
			cmds = append(cmds, advanceCmd(m.session, document.Backward))
		case "s":
			cmds = append(cmds, stopCmd(m.session))

		case "+", "=":
			cmds = append(cmds, m.changeSpeed(1))
		case "-", "_":
			cmds = append(cmds, m.changeSpeed(-1))

		case "v":
			if m.voices == nil {
				cmds = append(cmds, fetchVoicesCmd(m.catalog))
			} else {
				cmds = append(cmds, m.openPicker())
			}

		case "c":
			if m.sentence == "" {
				break
			}
			// Copy using OSC 52
			termenv.Copy(m.sentence)
			// Copy using native system clipboard
			_ = clipboard.WriteAll(m.sentence)
			cmds = append(cmds, m.showStatusMessage(pagerStatusMessage{"Copied sentence", false}))

		case "r":
			return m, reloadDocumentCmd(m.host.Document().Path, m.pageLines)

		case "?":
			m.toggleHelp()
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			line := msg.Y - m.viewport.YPosition + m.viewport.YOffset
			if c := seekToLineCmd(m.session, m.layout, line); c != nil {
				cmds = append(cmds, c)
			}
		}

	case sessionEventMsg:
		cmds = append(cmds, m.handleEvent(msg.event), waitForEvent(m.session.Events()))

	case openedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.showStatusMessage(pagerStatusMessage{msg.err.Error(), true}))
			break
		}
		m.voice = msg.snap.Voice
		m.speed = msg.snap.Speed
		m.render(true)
		if msg.resumed {
			cmds = append(cmds, m.showStatusMessage(pagerStatusMessage{"Resumed at " + m.host.Label(), false}))
		}
		if m.common.cfg.AutoPlay {
			cmds = append(cmds, togglePlayCmd(m.session))
		}
		if !m.watching {
			m.watching = true
			cmds = append(cmds, m.watchFile)
		}

	case actionDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, playback.ErrClosed) {
			cmds = append(cmds, m.showStatusMessage(pagerStatusMessage{msg.err.Error(), true}))
		}

	case voicesMsg:
		m.voices = msg
		cmds = append(cmds, m.openPicker())

	// The file was changed on disk and we're reloading it
	case reloadMsg:
		m.watching = false
		return m, reloadDocumentCmd(m.host.Document().Path, m.pageLines)

	case docReloadedMsg:
		m.host.SetDocument(msg.doc)
		m.shownPos = document.Position{}
		cmds = append(cmds,
			openCmd(m.session, m.host),
			m.showStatusMessage(pagerStatusMessage{"Reloaded " + filepath.Base(msg.doc.Path), false}),
		)

	case statsTickMsg:
		if m.stats != nil {
			m.cache = m.stats()
		}
		cmds = append(cmds, statsTick())

	case statusTimeoutMsg:
		if m.state == pagerStateStatusMessage {
			m.state = pagerStateBrowse
		}
		m.statusMessage = pagerStatusMessage{}

	case spinner.TickMsg:
		if m.playState == playback.StateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *pagerModel) handleEvent(e playback.Event) tea.Cmd {
	switch e := e.(type) {
	case playback.StateChanged:
		m.playState = e.To
		if e.To == playback.StateProcessing {
			return m.spinner.Tick
		}

	case playback.SentenceChanged:
		m.cursor = e.Cursor
		m.sentence = e.Text
		m.total = e.Total
		m.render(true)

	case playback.NeedText:
		return deliverCmd(m.host, e.Position)

	case playback.Notice:
		return m.showStatusMessage(pagerStatusMessage{e.Err.Error(), e.Severity == playback.SeverityError})

	case playback.Exhausted:
		return m.showStatusMessage(pagerStatusMessage{"End of document", false})
	}
	return nil
}

func (m *pagerModel) changeSpeed(dir int) tea.Cmd {
	step := m.common.cfg.SpeedStep
	if step <= 0 {
		step = 0.25
	}
	speed := math.Round((m.speed+float64(dir)*step)*100) / 100
	speed = math.Max(playback.MinSpeed, math.Min(playback.MaxSpeed, speed))
	if speed == m.speed {
		return nil
	}
	m.speed = speed
	return tea.Batch(
		setSpeedCmd(m.session, speed),
		m.showStatusMessage(pagerStatusMessage{fmt.Sprintf("Speed %.2fx", speed), false}),
	)
}

func (m *pagerModel) openPicker() tea.Cmd {
	m.state = pagerStatePickVoice
	m.showHelp = false
	cmd := m.picker.open(m.voices, m.voice)
	m.setSize(m.common.width, m.common.height)
	return cmd
}

func (m pagerModel) updatePicker(msg tea.KeyMsg) (pagerModel, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		m.picker.close()
		m.state = pagerStateBrowse
		m.setSize(m.common.width, m.common.height)
		return m, nil
	case "enter":
		voice, ok := m.picker.choice()
		m.picker.close()
		m.state = pagerStateBrowse
		m.setSize(m.common.width, m.common.height)
		if !ok || voice == m.voice {
			return m, nil
		}
		m.voice = voice
		return m, tea.Batch(
			setVoiceCmd(m.session, voice),
			m.showStatusMessage(pagerStatusMessage{"Voice " + voice, false}),
		)
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.update(msg)
	m.setSize(m.common.width, m.common.height)
	return m, cmd
}

func (m pagerModel) View() string {
	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")

	m.statusBarView(&b)

	switch {
	case m.state == pagerStatePickVoice:
		fmt.Fprint(&b, "\n"+m.picker.view(m.common.width))
	case m.showHelp:
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}

func (m pagerModel) playbackNote() string {
	var state string
	switch m.playState {
	case playback.StateProcessing:
		state = m.spinner.View() + " loading"
	case playback.StatePlaying:
		state = "▶ playing"
	case playback.StatePaused:
		state = "❚❚ paused"
	case playback.StateExhausted:
		state = "■ end"
	default:
		state = "■ stopped"
	}

	parts := []string{m.host.Label(), state}
	if m.total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", m.cursor.Index+1, m.total))
	}
	parts = append(parts, fmt.Sprintf("%s %.2fx", m.voice, m.speed))
	if m.cache.Hits+m.cache.Misses > 0 {
		parts = append(parts, fmt.Sprintf("cache %d/%d %s%%", m.cache.Entries, m.cache.Capacity,
			humanize.FtoaWithDigits(m.cache.HitRate*100, 0)))
	}
	return strings.Join(parts, " · ")
}

func (m pagerModel) statusBarView(b *strings.Builder) {
	const (
		minPercent               float64 = 0.0
		maxPercent               float64 = 1.0
		percentToStringMagnitude float64 = 100.0
	)

	showStatusMessage := m.statusMessage.message != ""

	logo := logoStyle(" readalong ")

	// Scroll percent
	percent := math.Max(minPercent, math.Min(maxPercent, m.viewport.ScrollPercent()))
	scrollPercent := statusBarScrollPosStyle(fmt.Sprintf(" %3.f%% ", percent*percentToStringMagnitude))

	helpNote := statusBarHelpStyle(" ? Help ")

	note := m.playbackNote()
	if showStatusMessage {
		note = m.statusMessage.message
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(scrollPercent)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)

	style := statusBarNoteStyle
	switch {
	case showStatusMessage && m.statusMessage.isError:
		style = statusBarErrorStyle
	case showStatusMessage:
		style = statusBarMessageStyle
	}
	note = style(note)

	// Empty space
	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(scrollPercent)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		scrollPercent,
		helpNote,
	)
}

func (m pagerModel) helpView() (s string) {
	col1 := []string{
		"space    play/pause",
		"n/→      next sentence",
		"p/←      previous sentence",
		"s        stop",
		"+/-      faster/slower",
		"v        pick voice",
		"c        copy sentence",
		"r        reload document",
		"click    read from there",
	}

	s += "\n"
	s += "k/↑      up                  " + col1[0] + "\n"
	s += "j/↓      down                " + col1[1] + "\n"
	s += "b/pgup   page up             " + col1[2] + "\n"
	s += "f/pgdn   page down           " + col1[3] + "\n"
	s += "u        ½ page up           " + col1[4] + "\n"
	s += "d        ½ page down         " + col1[5] + "\n"
	s += "g/home   go to top           " + col1[6] + "\n"
	s += "G/end    go to bottom        " + col1[7] + "\n"
	s += "q        quit                " + col1[8]

	s = indent.String(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.common.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(m.common.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}

func (m *pagerModel) initWatcher() {
	var err error
	m.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
	}
}

func (m *pagerModel) watchFile() tea.Msg {
	if m.watcher == nil {
		return nil
	}
	path := m.host.Document().Path
	dir := filepath.Dir(path)

	if err := m.watcher.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		return nil
	}

	log.Info("fsnotify watching dir", "dir", dir)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return reloadMsg{}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}

func (m *pagerModel) unwatch() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Close(); err != nil {
		log.Debug("fsnotify close failed", "error", err)
	}
}
