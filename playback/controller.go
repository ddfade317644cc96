package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/sentinel/logging"
)

// State of the controller.
type State int

const (
	StateIdle State = iota
	StateRevealing
	StateRevealed
	StateSpeaking
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRevealing:
		return "revealing"
	case StateRevealed:
		return "revealed"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// DefaultInterval is the per-character reveal delay.
const DefaultInterval = 20 * time.Millisecond

// ErrClosed is returned by Reveal after Close.
var ErrClosed = errors.New("playback controller closed")

// Options configures a Controller.
type Options struct {
	Interval     time.Duration
	Speaker      Speaker
	VoiceEnabled bool
	Voice        string
	// OnReveal receives the visible prefix after every step. It is called
	// without internal locks held.
	OnReveal func(visible string)
	// OnState receives every state transition. It is called with the state
	// lock held and must not call back into the Controller.
	OnState func(from, to State)
	Logger  logging.Logger
}

// worker is a goroutine the controller owns.
type worker struct {
	stop chan struct{}
	done chan struct{}
}

func newWorker() *worker {
	return &worker{stop: make(chan struct{}), done: make(chan struct{})}
}

// halt signals the worker and waits for it to exit.
func (w *worker) halt() {
	if w == nil {
		return
	}
	close(w.stop)
	<-w.done
}

// Controller owns the reveal timer and the active utterance.
type Controller struct {
	opts Options

	// op serializes public operations so a stopped worker has fully exited
	// before the next one starts.
	op sync.Mutex

	mu        sync.Mutex
	state     State
	text      []rune
	pos       int
	voice     bool
	voiceName string
	reveal    *worker
	utt       Utterance
	watch     *worker
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc

	timers atomic.Int32
}

// NewController creates an idle Controller.
func NewController(optFns ...func(o *Options)) *Controller {
	opts := Options{Interval: DefaultInterval, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:      opts,
		voice:     opts.VoiceEnabled,
		voiceName: opts.Voice,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Visible returns the currently revealed prefix.
func (c *Controller) Visible() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.text[:c.pos])
}

// SetVoice toggles speech. Disabling voice cancels any active utterance.
func (c *Controller) SetVoice(enabled bool, voice string) {
	c.op.Lock()
	defer c.op.Unlock()
	c.mu.Lock()
	c.voice = enabled
	c.voiceName = voice
	c.mu.Unlock()
	if !enabled {
		c.stopSpeech(true)
	}
}

// Reveal starts revealing text, stopping any prior reveal and speech first.
func (c *Controller) Reveal(text string) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.reveal
	c.reveal = nil
	c.mu.Unlock()

	prev.halt()
	c.stopSpeech(false)

	w := newWorker()
	c.mu.Lock()
	c.text = []rune(text)
	c.pos = 0
	c.reveal = w
	c.setStateLocked(StateRevealing)
	c.mu.Unlock()

	c.timers.Add(1)
	go c.run(w)
	return nil
}

func (c *Controller) run(w *worker) {
	defer close(w.done)
	defer c.timers.Add(-1)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		if c.pos >= len(c.text) {
			c.setStateLocked(StateRevealed)
			full := string(c.text)
			c.mu.Unlock()
			c.startSpeech(full)
			return
		}
		c.mu.Unlock()

		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		c.pos++
		visible := string(c.text[:c.pos])
		c.mu.Unlock()
		if c.opts.OnReveal != nil {
			c.opts.OnReveal(visible)
		}
	}
}

// Skip ends an active reveal immediately and shows the full text. It is a
// no-op in any other state.
func (c *Controller) Skip() {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.state != StateRevealing {
		c.mu.Unlock()
		return
	}
	w := c.reveal
	c.reveal = nil
	c.mu.Unlock()

	w.halt()

	c.mu.Lock()
	if c.state != StateRevealing {
		// The worker finished on its own while we waited.
		c.mu.Unlock()
		return
	}
	c.pos = len(c.text)
	full := string(c.text)
	c.setStateLocked(StateRevealed)
	c.mu.Unlock()

	if c.opts.OnReveal != nil {
		c.opts.OnReveal(full)
	}
	c.startSpeech(full)
}

// Pause suspends speech. It is a no-op unless Speaking.
func (c *Controller) Pause() {
	c.op.Lock()
	defer c.op.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSpeaking || c.utt == nil {
		return
	}
	if err := c.utt.Pause(); err != nil {
		c.opts.Logger.Warn("pause speech failed", "error", err)
		return
	}
	c.setStateLocked(StatePaused)
}

// Resume continues paused speech. It is a no-op unless Paused.
func (c *Controller) Resume() {
	c.op.Lock()
	defer c.op.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused || c.utt == nil {
		return
	}
	if err := c.utt.Resume(); err != nil {
		c.opts.Logger.Warn("resume speech failed", "error", err)
		return
	}
	c.setStateLocked(StateSpeaking)
}

// Cancel stops any reveal and speech and returns to Idle. It is idempotent.
func (c *Controller) Cancel() {
	c.op.Lock()
	defer c.op.Unlock()
	c.cancelLocked()
}

func (c *Controller) cancelLocked() {
	c.mu.Lock()
	w := c.reveal
	c.reveal = nil
	c.mu.Unlock()

	w.halt()
	c.stopSpeech(true)

	c.mu.Lock()
	c.setStateLocked(StateIdle)
	c.mu.Unlock()
}

// Close cancels all playback and waits for owned goroutines to exit.
func (c *Controller) Close() error {
	c.op.Lock()
	defer c.op.Unlock()
	c.cancelLocked()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	return nil
}

// startSpeech speaks text when voice is enabled. Called from the reveal
// worker or Skip, never with mu held.
func (c *Controller) startSpeech(text string) {
	c.mu.Lock()
	enabled := c.voice && c.opts.Speaker != nil && !c.closed && text != ""
	voice := c.voiceName
	c.mu.Unlock()
	if !enabled {
		return
	}

	c.stopSpeech(false)

	utt, err := c.opts.Speaker.Speak(c.ctx, text, voice)
	if err != nil {
		c.opts.Logger.Warn("speech failed", "error", err)
		c.mu.Lock()
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		return
	}

	w := newWorker()
	c.mu.Lock()
	c.utt = utt
	c.watch = w
	c.setStateLocked(StateSpeaking)
	c.mu.Unlock()

	go c.watchUtterance(w, utt)
}

func (c *Controller) watchUtterance(w *worker, utt Utterance) {
	defer close(w.done)
	select {
	case <-w.stop:
		return
	case err := <-utt.Done():
		if err != nil {
			c.opts.Logger.Warn("speech ended with error", "error", err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.utt != utt {
		return
	}
	c.utt = nil
	c.watch = nil
	c.setStateLocked(StateIdle)
}

// stopSpeech cancels the active utterance and waits for its watcher. When
// toIdle is set a Speaking/Paused state falls back to Idle.
func (c *Controller) stopSpeech(toIdle bool) {
	c.mu.Lock()
	utt, w := c.utt, c.watch
	c.utt, c.watch = nil, nil
	if toIdle && (c.state == StateSpeaking || c.state == StatePaused) {
		c.setStateLocked(StateIdle)
	}
	c.mu.Unlock()

	if utt == nil {
		return
	}
	if err := utt.Cancel(); err != nil {
		c.opts.Logger.Warn("cancel speech failed", "error", err)
	}
	w.halt()
}

func (c *Controller) setStateLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	if c.opts.OnState != nil {
		c.opts.OnState(from, to)
	}
}

// activeTimers reports the number of live reveal goroutines.
func (c *Controller) activeTimers() int { return int(c.timers.Load()) }
