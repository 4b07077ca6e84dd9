package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/dgnsrekt/readalong/internal/synth"
)

// Params are the speech parameters cached audio was produced with. Audio is
// only valid for the parameters in effect when it was synthesized.
type Params struct {
	Voice        string
	Speed        float64
	Model        string
	Instructions string
	Format       synth.Format
}

// Loader resolves sentence text to audio through the cache, deduplicating
// concurrent requests for the same sentence into one synthesis call and
// preloading upcoming sentences without blocking.
type Loader struct {
	cache  *Cache
	client synth.Client
	group  singleflight.Group

	mu       sync.Mutex
	params   Params
	epoch    uint64
	inflight map[string]struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	calls  atomic.Int64
	logger *log.Logger
}

// NewLoader creates a loader that synthesizes misses through client.
func NewLoader(cache *Cache, client synth.Client, params Params) *Loader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		cache:    cache,
		client:   client,
		params:   params,
		inflight: make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
		logger:   log.WithPrefix("loader"),
	}
}

// Load returns audio for text, from the cache when possible. A second Load
// for text already in flight waits for the same call. Canceling ctx only
// abandons this caller's wait; the shared call keeps running and its result
// is still cached.
func (l *Loader) Load(ctx context.Context, text string) ([]byte, error) {
	if audio, ok := l.cache.Get(text); ok {
		return audio, nil
	}

	ch, cached, ok := l.start(text)
	if ok {
		return cached, nil
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", synth.ErrAborted, context.Cause(ctx))
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Preload starts synthesis of text in the background unless it is already
// cached or in flight. It never blocks and never reports errors; a preload
// that finishes after the reader moved on simply leaves its audio cached.
func (l *Loader) Preload(text string) {
	l.mu.Lock()
	key := l.key(text)
	_, busy := l.inflight[key]
	l.mu.Unlock()

	if busy || l.cache.Has(text) {
		return
	}

	l.logger.Debug("preloading sentence", "chars", len(text))
	l.start(text)
}

// Cached reports whether audio for text is cached.
func (l *Loader) Cached(text string) bool {
	return l.cache.Has(text)
}

// InFlight reports whether a synthesis call for text is running.
func (l *Loader) InFlight(text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.inflight[l.key(text)]
	return ok
}

// Calls returns the number of synthesis calls issued.
func (l *Loader) Calls() int64 {
	return l.calls.Load()
}

// Params returns the current speech parameters.
func (l *Loader) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// SetParams replaces the speech parameters. Cached and in-flight audio was
// made with the old parameters, so it is discarded.
func (l *Loader) SetParams(p Params) {
	l.mu.Lock()
	l.params = p
	l.mu.Unlock()

	l.Reset()
}

// Cancel stops every in-flight call, preloads included. Results of the
// canceled calls are never stored; audio already cached is kept.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelFlights()
}

// Reset cancels every in-flight call and clears the cache.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancelFlights()
	l.cache.Clear()
}

// cancelFlights must be called with mu held.
func (l *Loader) cancelFlights() {
	l.epoch++
	l.cancel()
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.inflight = make(map[string]struct{})
}

// Close cancels outstanding calls.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel()
}

// Stats returns the underlying cache statistics.
func (l *Loader) Stats() Stats {
	return l.cache.Stats()
}

// start joins or launches the flight for text. When the audio landed in the
// cache since the caller last looked, it is returned directly with ok set.
func (l *Loader) start(text string) (<-chan singleflight.Result, []byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Checked under mu: a flight stores its result under mu before it is
	// forgotten by the group, so a miss here means the flight is joinable.
	if audio, ok := l.cache.Get(text); ok {
		return nil, audio, true
	}

	epoch := l.epoch
	params := l.params
	ctx := l.ctx
	key := l.key(text)
	l.inflight[key] = struct{}{}

	ch := l.group.DoChan(key, func() (any, error) {
		l.calls.Add(1)
		audio, err := l.client.Synthesize(ctx, synth.Request{
			Text:         text,
			Voice:        params.Voice,
			Speed:        params.Speed,
			Model:        params.Model,
			Instructions: params.Instructions,
			Format:       params.Format,
		})

		l.mu.Lock()
		delete(l.inflight, key)
		if err == nil && epoch == l.epoch {
			l.cache.Put(text, audio)
		}
		l.mu.Unlock()

		if err != nil {
			return nil, err
		}
		return audio, nil
	})

	return ch, nil, false
}

// key scopes flights to the current epoch (must be called with lock held).
func (l *Loader) key(text string) string {
	return fmt.Sprintf("%d\x00%s", l.epoch, text)
}
