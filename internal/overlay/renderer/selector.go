package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ============================================================
// Ladder
// ============================================================

// Stage describes one display backend in the escalation ladder. The last
// stage is the synthetic fallback: it has no timeout and cannot fail.
type Stage struct {
	Name    string        `yaml:"name" json:"name"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

const (
	StageObject   = "object"
	StageEmbed    = "embed"
	StageIframe   = "iframe"
	StageFallback = "fallback"

	DefaultStageTimeout = 2 * time.Second
)

// DefaultLadder is native embed, browser embed, frame, then canvas fallback.
func DefaultLadder() []Stage {
	return []Stage{
		{Name: StageObject, Timeout: DefaultStageTimeout},
		{Name: StageEmbed, Timeout: DefaultStageTimeout},
		{Name: StageIframe, Timeout: DefaultStageTimeout},
		{Name: StageFallback},
	}
}

var ErrInvalidLadder = errors.New("invalid renderer ladder")

// ValidateLadder checks that stages form a usable ladder.
func ValidateLadder(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidLadder)
	}
	seen := make(map[string]bool, len(stages))
	for i, st := range stages {
		if st.Name == "" {
			return fmt.Errorf("%w: stage %d has no name", ErrInvalidLadder, i)
		}
		if seen[st.Name] {
			return fmt.Errorf("%w: duplicate stage %q", ErrInvalidLadder, st.Name)
		}
		seen[st.Name] = true

		last := i == len(stages)-1
		if last && st.Timeout != 0 {
			return fmt.Errorf("%w: terminal stage %q must not time out", ErrInvalidLadder, st.Name)
		}
		if !last && st.Timeout <= 0 {
			return fmt.Errorf("%w: stage %q needs a positive timeout", ErrInvalidLadder, st.Name)
		}
	}
	return nil
}

// ============================================================
// Collaborators
// ============================================================

// Document is the ready-to-render handle handed over by the upload side.
type Document struct {
	ID    string
	URL   string
	Pages int
}

// Backend asks a display mechanism for a page. Completion is reported back
// asynchronously through Selector.Loaded or Selector.Failed.
type Backend interface {
	Request(doc Document, page int, scale float64)
}

type BackendFunc func(doc Document, page int, scale float64)

func (f BackendFunc) Request(doc Document, page int, scale float64) { f(doc, page, scale) }

// Timer is a pending stage timeout.
type Timer interface {
	Stop() bool
}

// Clock schedules stage timeouts.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Transition records a move from one stage to the next.
type Transition struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Reason   string `json:"reason"`
	Terminal bool   `json:"terminal"`
}

// Status is a point-in-time view of the selector.
type Status struct {
	Stage    string `json:"stage"`
	Index    int    `json:"index"`
	Loaded   bool   `json:"loaded"`
	Terminal bool   `json:"terminal"`
	Started  bool   `json:"started"`
}

// ============================================================
// Selector
// ============================================================

// Selector walks the ladder until some stage reports it has loaded. Stages
// are never revisited. Once a stage has loaded it stays selected for the
// lifetime of the document.
type Selector struct {
	mu        sync.Mutex
	stages    []Stage
	backends  map[string]Backend
	clock     Clock
	log       *slog.Logger
	observers []func(Transition)

	started bool
	idx     int
	loaded  bool
	timer   Timer
	gen     uint64 // bumped on every stage entry; stale timer callbacks compare against it

	doc   Document
	page  int
	scale float64
}

type Option func(*Selector)

func WithClock(c Clock) Option { return func(s *Selector) { s.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(s *Selector) { s.log = l } }

// WithBackend binds a backend to the stage named name.
func WithBackend(name string, b Backend) Option {
	return func(s *Selector) { s.backends[name] = b }
}

func NewSelector(stages []Stage, opts ...Option) (*Selector, error) {
	if err := ValidateLadder(stages); err != nil {
		return nil, err
	}
	s := &Selector{
		stages:   append([]Stage(nil), stages...),
		backends: make(map[string]Backend),
		clock:    wallClock{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "renderer")
	return s, nil
}

// OnTransition registers fn to be called after every stage change.
func (s *Selector) OnTransition(fn func(Transition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Start begins selection for doc at the first stage. Calling it again
// switches to a new document and restarts from the top.
func (s *Selector) Start(doc Document, page int, scale float64) {
	s.mu.Lock()
	s.stopTimer()
	s.doc, s.page, s.scale = doc, page, scale
	s.started = true
	s.idx = 0
	s.loaded = false
	fx := s.enter()
	s.mu.Unlock()

	fx.run()
}

// Loaded records a readiness signal from stage. Signals for any stage other
// than the current one are dropped. It reports whether the signal was taken.
func (s *Selector) Loaded(stage string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.current().Name != stage {
		s.log.Debug("stale loaded signal", "stage", stage, "current", s.current().Name)
		return false
	}
	if s.loaded {
		return true
	}
	s.stopTimer()
	s.loaded = true
	s.log.Info("renderer ready", "stage", stage)
	return true
}

// Failed records an error signal from stage and escalates right away.
func (s *Selector) Failed(stage string, cause error) bool {
	s.mu.Lock()
	if !s.started || s.loaded || s.terminal() || s.current().Name != stage {
		s.mu.Unlock()
		return false
	}
	reason := "error"
	if cause != nil {
		reason = "error: " + cause.Error()
	}
	fx := s.advance(reason)
	s.mu.Unlock()

	fx.run()
	return true
}

// SetPage asks the active backend for another page. The ladder position is
// left alone.
func (s *Selector) SetPage(page int, scale float64) {
	s.mu.Lock()
	if !s.started {
		s.page, s.scale = page, scale
		s.mu.Unlock()
		return
	}
	s.page, s.scale = page, scale
	fx := effects{request: s.requestFor(s.current().Name)}
	s.mu.Unlock()

	fx.run()
}

// Status reports the current ladder position.
func (s *Selector) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Stage:    s.current().Name,
		Index:    s.idx,
		Loaded:   s.loaded,
		Terminal: s.terminal(),
		Started:  s.started,
	}
}

// Stop cancels any pending timeout, e.g. when the session closes.
func (s *Selector) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
	s.gen++
}

// ============================================================
// Internals (called with mu held)
// ============================================================

type effects struct {
	notify     []func(Transition)
	transition *Transition
	request    func()
}

func (fx effects) run() {
	if fx.transition != nil {
		for _, fn := range fx.notify {
			fn(*fx.transition)
		}
	}
	if fx.request != nil {
		fx.request()
	}
}

func (s *Selector) current() Stage { return s.stages[s.idx] }

func (s *Selector) terminal() bool { return s.idx == len(s.stages)-1 }

func (s *Selector) enter() effects {
	s.gen++
	st := s.current()

	if s.terminal() {
		// the fallback renders synthetically and is ready immediately
		s.loaded = true
		s.log.Warn("renderer fell back to terminal stage", "stage", st.Name)
	} else {
		gen := s.gen
		s.timer = s.clock.AfterFunc(st.Timeout, func() { s.expire(gen) })
	}
	return effects{request: s.requestFor(st.Name)}
}

func (s *Selector) advance(reason string) effects {
	s.stopTimer()
	from := s.current().Name
	s.idx++
	fx := s.enter()

	t := Transition{From: from, To: s.current().Name, Reason: reason, Terminal: s.terminal()}
	s.log.Info("renderer stage change", "from", t.From, "to", t.To, "reason", reason)
	fx.transition = &t
	fx.notify = append([]func(Transition){}, s.observers...)
	return fx
}

func (s *Selector) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.loaded || s.terminal() {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	fx := s.advance("timeout")
	s.mu.Unlock()

	fx.run()
}

func (s *Selector) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Selector) requestFor(stage string) func() {
	b, ok := s.backends[stage]
	if !ok {
		return nil
	}
	doc, page, scale := s.doc, s.page, s.scale
	return func() { b.Request(doc, page, scale) }
}
