// Package playback is the narration engine: a play/pause/seek/advance state
// machine over a sentence cursor that drives synthesis, preloading and
// audio output, and asks its host for more text at section boundaries.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/internal/document"
	"github.com/dgnsrekt/readalong/internal/segment"
	"github.com/dgnsrekt/readalong/internal/store"
)

const (
	// MinSpeed and MaxSpeed bound SetSpeed.
	MinSpeed = 0.25
	MaxSpeed = 4.0

	// DefaultEventBuffer is the event channel capacity when none is set.
	DefaultEventBuffer = 64
)

// Options configures a Session.
type Options struct {
	Segmenter segment.Segmenter
	Loader    *cache.Loader
	Player    Player

	// Navigator serves location-addressed documents, Pager page-addressed
	// ones. Either may be nil if the session never reads that kind.
	Navigator Navigator
	Pager     Pager

	// Store, when set, receives every settled cursor and provides the
	// resume point for SetDocument.
	Store store.Store

	// SkipBlank advances past sections without sentences during playback.
	SkipBlank bool

	EventBuffer int
}

// Snapshot is a consistent view of the session.
type Snapshot struct {
	State    State
	Cursor   document.Cursor
	Total    int
	Sentence string
	DocID    string
	// Awaiting is set while the session waits for text after navigating.
	Awaiting bool
	Voice    string
	Speed    float64
}

// Session owns one reader's narration. All state lives in the goroutine
// running Run; the exported methods hand work to it and wait for the
// result, so they are safe to call from any goroutine while Run is active.
type Session struct {
	opts   Options
	logger *log.Logger

	cmds    chan command
	msgs    chan func()
	events  chan Event
	done    chan struct{}
	running atomic.Bool

	// Owned by the loop goroutine.
	ctx        context.Context
	work       context.Context
	cancelWork context.CancelFunc
	later      []func()

	state    State
	kind     document.Kind
	pos      document.Position
	list     document.SentenceList
	idx      int
	loaded   bool
	awaiting bool
	gen      uint64
	textGen  uint64
	audio    *activeAudio
	docID    string
	resume   *resumePoint
	blankRun bool
}

type command struct {
	fn   func() error
	resp chan error
}

type activeAudio struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type resumePoint struct {
	pos   document.Position
	index int
}

// New creates a session. Call Run to start it.
func New(opts Options) (*Session, error) {
	if opts.Segmenter == nil {
		return nil, errors.New("segmenter cannot be nil")
	}
	if opts.Loader == nil {
		return nil, errors.New("loader cannot be nil")
	}
	if opts.Player == nil {
		return nil, errors.New("player cannot be nil")
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	return &Session{
		opts:   opts,
		logger: log.WithPrefix("playback"),
		cmds:   make(chan command),
		msgs:   make(chan func()),
		events: make(chan Event, opts.EventBuffer),
		done:   make(chan struct{}),
	}, nil
}

// Events returns the event stream. It is closed when Run returns. Events
// are dropped, with a logged warning, when the host does not keep up.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run processes commands until ctx is canceled. Any audio still playing is
// stopped before it returns.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session is already running")
	}

	s.ctx = ctx
	s.work, s.cancelWork = context.WithCancel(ctx)
	defer func() {
		s.cancelWork()
		s.stopAudio()
		close(s.done)
		close(s.events)
	}()

	for {
		// Deferred steps run only when no command or result is waiting,
		// so every chained step yields to the rest of the engine.
		if len(s.later) > 0 {
			select {
			case <-ctx.Done():
				return nil
			case c := <-s.cmds:
				c.resp <- c.fn()
			case fn := <-s.msgs:
				fn()
			default:
				fn := s.later[0]
				s.later = s.later[1:]
				fn()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case c := <-s.cmds:
			c.resp <- c.fn()
		case fn := <-s.msgs:
			fn()
		}
	}
}

// Play starts or resumes narration at the cursor.
func (s *Session) Play() error {
	return s.call(s.play)
}

// Pause halts the audible sentence. Synthesis already in flight continues
// and lands in the cache.
func (s *Session) Pause() error {
	return s.call(func() error {
		s.pause()
		return nil
	})
}

// TogglePlay pauses active playback or starts it otherwise.
func (s *Session) TogglePlay() error {
	return s.call(func() error {
		if s.state.Active() {
			s.pause()
			return nil
		}
		return s.play()
	})
}

// Advance moves the cursor one sentence in dir, crossing into the next or
// previous section at the ends of the current one.
func (s *Session) Advance(dir document.Direction) error {
	return s.call(func() error {
		return s.advance(dir)
	})
}

// Seek moves the cursor to sentence index within the current section. If
// playback was active it restarts there.
func (s *Session) Seek(index int) error {
	return s.call(func() error {
		return s.seek(index)
	})
}

// Stop halts playback, cancels all synthesis including preloads and drops
// the loaded text. The position is kept so Play can ask for it again.
func (s *Session) Stop() error {
	return s.call(func() error {
		s.stop()
		return nil
	})
}

// LoadText delivers the raw text at pos. The text is segmented in the
// background; the cursor moves to the new position once that succeeds.
func (s *Session) LoadText(pos document.Position, text string) error {
	return s.call(func() error {
		return s.loadText(pos, text)
	})
}

// SetVoice switches the voice, discarding cached audio and restarting the
// current sentence if playback is active.
func (s *Session) SetVoice(voice string) error {
	return s.call(func() error {
		p := s.opts.Loader.Params()
		p.Voice = voice
		s.setParams(p)
		return nil
	})
}

// SetSpeed switches the speaking rate. See SetVoice.
func (s *Session) SetSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %.2f not in %.2f..%.2f", ErrInvalidSpeed, speed, MinSpeed, MaxSpeed)
	}
	return s.call(func() error {
		p := s.opts.Loader.Params()
		p.Speed = speed
		s.setParams(p)
		return nil
	})
}

// SetDocument resets the session for a new document. If a position was
// stored for docID it is returned so the host can display it; the stored
// sentence is restored when that position's text arrives.
func (s *Session) SetDocument(docID string) (document.Position, bool, error) {
	var (
		pos document.Position
		ok  bool
	)
	err := s.call(func() error {
		pos, ok = s.setDocument(docID)
		return nil
	})
	return pos, ok, err
}

// Status returns a snapshot of the session.
func (s *Session) Status() (Snapshot, error) {
	var snap Snapshot
	err := s.call(func() error {
		p := s.opts.Loader.Params()
		snap = Snapshot{
			State:    s.state,
			Cursor:   s.cursor(),
			Total:    s.list.Len(),
			DocID:    s.docID,
			Awaiting: s.awaiting,
			Voice:    p.Voice,
			Speed:    p.Speed,
		}
		if s.loaded && s.list.Valid(s.idx) {
			snap.Sentence = s.list.At(s.idx)
		}
		return nil
	})
	return snap, err
}

// Sentences returns the sentences of the current section.
func (s *Session) Sentences() ([]string, error) {
	var out []string
	err := s.call(func() error {
		out = s.list.Slice()
		return nil
	})
	return out, err
}

// call runs fn on the loop and waits for its result.
func (s *Session) call(fn func() error) error {
	resp := make(chan error, 1)
	select {
	case s.cmds <- command{fn: fn, resp: resp}:
	case <-s.done:
		return ErrClosed
	}

	select {
	case err := <-resp:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// post hands the result of background work to the loop.
func (s *Session) post(fn func()) {
	select {
	case s.msgs <- fn:
	case <-s.done:
	}
}

// deferStep schedules fn as a separate loop step (loop only).
func (s *Session) deferStep(fn func()) {
	s.later = append(s.later, fn)
}
