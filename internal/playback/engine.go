package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/segment"
	"github.com/dgnsrekt/readalong/internal/synth"
)

// Everything in this file runs on the loop goroutine.

func (s *Session) play() error {
	switch s.state {
	case StatePlaying, StateProcessing:
		return nil
	case StateExhausted:
		s.logger.Debug("play ignored at end of document")
		return nil
	}

	// The text of the section navigated to has not arrived yet; it starts
	// playing when it does.
	if s.awaiting {
		s.setState(StateProcessing)
		return nil
	}

	if !s.loaded {
		if s.pos.IsZero() {
			return ErrNoText
		}
		// Text was dropped by Stop; ask for it again.
		s.awaiting = true
		s.setState(StateProcessing)
		s.emit(NeedText{Position: s.pos})
		return nil
	}

	s.setState(StateProcessing)
	if s.list.Len() == 0 {
		s.onBlank()
		return nil
	}
	s.startSentence()
	return nil
}

func (s *Session) pause() {
	if !s.state.Active() {
		return
	}
	if s.awaiting {
		// Keep the pending navigation alive.
		s.setState(StatePaused)
		return
	}
	s.bump()
	s.setState(StatePaused)
}

func (s *Session) stop() {
	s.bump()
	s.textGen++
	s.opts.Loader.Cancel()
	s.list = document.SentenceList{}
	s.idx = 0
	s.loaded = false
	s.awaiting = false
	s.blankRun = false
	s.setState(StateIdle)
}

func (s *Session) setDocument(docID string) (document.Position, bool) {
	s.stop()
	s.kind = document.KindNone
	s.pos = document.Position{}
	s.docID = docID
	s.resume = nil

	if s.opts.Store == nil || docID == "" {
		return document.Position{}, false
	}

	pos, idx, ok, err := s.opts.Store.Get(docID)
	if err != nil {
		s.logger.Warn("failed to read stored position", "doc", docID, "error", err)
		return document.Position{}, false
	}
	if !ok {
		return document.Position{}, false
	}

	s.logger.Debug("resuming document", "doc", docID, "position", pos, "index", idx)
	s.resume = &resumePoint{pos: pos, index: idx}
	return pos, true
}

func (s *Session) seek(index int) error {
	if s.awaiting {
		return ErrAwaitingText
	}
	if !s.loaded || !s.list.Valid(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	active := s.state.Active()
	s.bump()
	s.setCursor(index)
	if active {
		s.startSentence()
	}
	return nil
}

func (s *Session) setParams(p cache.Params) {
	active := s.state.Active()
	if !s.awaiting {
		s.bump()
	}
	s.opts.Loader.SetParams(p)
	s.logger.Info("speech parameters changed", "voice", p.Voice, "speed", p.Speed)

	if active && !s.awaiting && s.loaded && s.list.Valid(s.idx) {
		s.startSentence()
	}
}

func (s *Session) advance(dir document.Direction) error {
	if s.awaiting {
		return nil
	}

	next := s.idx + int(dir)
	if s.loaded && s.list.Valid(next) {
		active := s.state.Active()
		s.bump()
		s.setCursor(next)
		if active {
			s.startSentence()
		}
		return nil
	}

	switch s.pos.Kind() {
	case document.KindPage:
		return s.turnPage(dir)
	case document.KindLocation:
		return s.moveSection(dir)
	default:
		return ErrNoText
	}
}

func (s *Session) turnPage(dir document.Direction) error {
	n, _ := s.pos.PageNumber()
	target := n + int(dir)
	if target < 1 {
		return nil
	}

	pager := s.opts.Pager
	if pager == nil {
		return ErrNoNavigator
	}
	if target > pager.PageCount() {
		if dir == document.Forward {
			s.exhaust()
		}
		return nil
	}

	s.bump()
	s.awaiting = true
	if s.state.Active() {
		s.setState(StateProcessing)
	}

	pos := document.Page(target)
	s.emit(NeedText{Position: pos})

	g, ctx := s.gen, s.work
	go func() {
		err := pager.ShowPage(ctx, target)
		if err == nil || ctx.Err() != nil {
			return
		}
		s.post(func() {
			if g != s.gen {
				return
			}
			s.awaiting = false
			s.fail(fmt.Errorf("failed to show page %d: %w", target, err))
		})
	}()
	return nil
}

func (s *Session) moveSection(dir document.Direction) error {
	nav := s.opts.Navigator
	if nav == nil {
		return ErrNoNavigator
	}
	if dir == document.Backward && nav.AtStart(s.pos) {
		return nil
	}

	active := s.state.Active()
	s.bump()
	s.awaiting = true
	if active {
		s.setState(StateProcessing)
	}

	g, ctx := s.gen, s.work
	go func() {
		var (
			moved bool
			err   error
		)
		if dir == document.Forward {
			moved, err = nav.Next(ctx)
		} else {
			moved, err = nav.Prev(ctx)
		}
		s.post(func() {
			s.onNavigated(g, dir, moved, err)
		})
	}()
	return nil
}

func (s *Session) onNavigated(g uint64, dir document.Direction, moved bool, err error) {
	if g != s.gen {
		return
	}

	switch {
	case err != nil:
		s.awaiting = false
		if !errors.Is(err, context.Canceled) {
			s.fail(fmt.Errorf("failed to move %s: %w", dir, err))
		}
	case moved:
		// The host delivers the new section through LoadText.
	case dir == document.Forward:
		s.awaiting = false
		s.exhaust()
	default:
		s.awaiting = false
		if s.state.Active() && s.loaded && s.list.Valid(s.idx) {
			s.startSentence()
		}
	}
}

func (s *Session) exhaust() {
	s.bump()
	s.awaiting = false
	if s.blankRun {
		s.blankRun = false
		s.notice(ErrNoNarratableContent, SeverityWarning)
	}
	s.setState(StateExhausted)
	s.logger.Info("reached end of document", "position", s.pos)
	s.emit(Exhausted{Cursor: s.cursor()})
}

func (s *Session) loadText(pos document.Position, text string) error {
	if pos.IsZero() {
		return errors.New("cannot load text without a position")
	}

	switch {
	case s.kind == document.KindNone:
		s.kind = pos.Kind()
	case s.kind != pos.Kind():
		return fmt.Errorf("%w: session reads %s documents, got %s", document.ErrKindMismatch, s.kind, pos.Kind())
	}

	s.textGen++
	tg := s.textGen
	ctx := s.ctx
	seg := s.opts.Segmenter
	go func() {
		sentences, err := seg.Segment(ctx, text)
		s.post(func() {
			s.onSegmented(tg, pos, sentences, err)
		})
	}()
	return nil
}

func (s *Session) onSegmented(tg uint64, pos document.Position, sentences []string, err error) {
	if tg != s.textGen {
		return
	}

	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		if !segment.IsSegmentationError(err) {
			err = &segment.Error{Err: err}
		}
		// The cursor stays where it was so the reader can retry.
		s.awaiting = false
		s.fail(err)
		return
	}

	s.applyText(pos, sentences)
}

func (s *Session) applyText(pos document.Position, sentences []string) {
	s.bump()
	s.pos = pos
	s.list = document.NewSentenceList(sentences)
	s.loaded = true
	s.awaiting = false

	idx := 0
	if s.resume != nil && s.resume.pos.Equal(pos) {
		if s.list.Valid(s.resume.index) {
			idx = s.resume.index
		}
		s.resume = nil
	}

	s.logger.Debug("text loaded", "position", pos, "sentences", s.list.Len())

	if s.list.Len() == 0 {
		s.idx = 0
		if s.state.Active() {
			s.onBlank()
		}
		return
	}

	s.setCursor(idx)
	if s.state.Active() {
		s.startSentence()
	}
}

// onBlank handles active playback landing on a section without sentences.
func (s *Session) onBlank() {
	if !s.opts.SkipBlank {
		s.notice(fmt.Errorf("%w: %s", ErrBlankSection, s.pos), SeverityWarning)
		s.setState(StatePaused)
		return
	}

	s.blankRun = true
	s.logger.Debug("skipping blank section", "position", s.pos)

	g := s.gen
	s.deferStep(func() {
		if g != s.gen || !s.state.Active() {
			return
		}
		if err := s.advance(document.Forward); err != nil {
			s.fail(err)
		}
	})
}

func (s *Session) startSentence() {
	s.bump()
	s.setState(StateProcessing)

	text := s.list.At(s.idx)
	g, ctx := s.gen, s.work
	loader := s.opts.Loader
	go func() {
		audio, err := loader.Load(ctx, text)
		s.post(func() {
			s.onAudio(g, audio, err)
		})
	}()

	if s.list.Valid(s.idx + 1) {
		loader.Preload(s.list.At(s.idx + 1))
	}
}

func (s *Session) onAudio(g uint64, audio []byte, err error) {
	if g != s.gen {
		s.logger.Debug("dropping audio for a stale cursor")
		return
	}

	if err != nil {
		switch {
		case synth.IsAborted(err):
		case errors.Is(err, synth.ErrEmptyAudio):
			s.logger.Warn("skipping sentence without audio", "position", s.pos, "index", s.idx)
			s.notice(fmt.Errorf("skipped sentence %d: %w", s.idx+1, err), SeverityWarning)
			if err := s.advance(document.Forward); err != nil {
				s.fail(err)
			}
		default:
			s.fail(err)
		}
		return
	}

	if s.state != StateProcessing {
		return
	}

	s.blankRun = false
	ctx, cancel := context.WithCancel(s.work)
	done := make(chan struct{})
	s.audio = &activeAudio{cancel: cancel, done: done}
	s.setState(StatePlaying)

	player := s.opts.Player
	go func() {
		err := player.Play(ctx, audio)
		close(done)
		s.post(func() {
			s.onPlayed(g, err)
		})
	}()
}

func (s *Session) onPlayed(g uint64, err error) {
	if g != s.gen {
		return
	}

	if s.audio != nil {
		s.audio.cancel()
		s.audio = nil
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("playback failed", "index", s.idx, "error", err)
		s.notice(fmt.Errorf("playback failed: %w", err), SeverityWarning)
	}

	if err := s.advance(document.Forward); err != nil {
		s.fail(err)
	}
}

// bump invalidates all background work tied to the current cursor and
// silences any audible sentence.
func (s *Session) bump() {
	s.gen++
	s.cancelWork()
	s.work, s.cancelWork = context.WithCancel(s.ctx)
	s.stopAudio()
}

// stopAudio cancels the audible sentence and waits until the player let go
// of the device.
func (s *Session) stopAudio() {
	if s.audio == nil {
		return
	}
	s.audio.cancel()
	<-s.audio.done
	s.audio = nil
}

func (s *Session) setCursor(i int) {
	s.idx = i
	if s.state == StateExhausted {
		s.setState(StatePaused)
	}

	s.emit(SentenceChanged{Cursor: s.cursor(), Text: s.list.At(i), Total: s.list.Len()})

	if s.opts.Store != nil && s.docID != "" {
		if err := s.opts.Store.Set(s.docID, s.pos, i); err != nil {
			s.logger.Warn("failed to store position", "doc", s.docID, "error", err)
		}
	}
}

func (s *Session) cursor() document.Cursor {
	return document.Cursor{Position: s.pos, Index: s.idx}
}

func (s *Session) setState(to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.logger.Debug("state changed", "from", from, "to", to)
	s.emit(StateChanged{From: from, To: to})
}

// fail reports err and halts active playback.
func (s *Session) fail(err error) {
	s.logger.Error("playback halted", "error", err)
	s.notice(err, SeverityError)
	if s.state.Active() {
		s.bump()
		s.setState(StatePaused)
	}
}

func (s *Session) notice(err error, sev Severity) {
	s.emit(Notice{Err: err, Severity: sev})
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
		s.logger.Warn("event dropped, host is not draining events", "event", fmt.Sprintf("%T", e))
	}
}
