package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rakshak/internal/alert"
	"rakshak/internal/geo"
	"rakshak/internal/intent"
	"rakshak/internal/kb"
	"rakshak/internal/respond"
)

type Phase int

const (
	Idle Phase = iota
	Listening
	Processing
	Responding
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case Responding:
		return "responding"
	}
	return "unknown"
}

// StateConflictError marks an integration error: the caller issued a
// request the current phase cannot accept. It is surfaced, never queued.
type StateConflictError struct {
	Op    string
	Phase Phase
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("session: cannot %s while %s", e.Op, e.Phase)
}

type Turn struct {
	Utterance string
	Response  respond.Payload
	At        time.Time
}

type Config struct {
	NearestShelterCount int
	ReferenceLocation   kb.Coordinate
}

// Coordinator owns the conversation state and sequences one turn at a time
// through matcher, resolver and composer. All engine lookups are pure reads
// over the immutable knowledge base; only the phase transitions here need
// serialization.
type Coordinator struct {
	matcher  *intent.Matcher
	resolver *geo.Resolver
	composer *respond.Composer
	alerts   *alert.Dispatcher
	log      *slog.Logger
	cfg      Config

	mu           sync.Mutex
	phase        Phase
	lastCategory intent.Category
	history      []Turn
	endEmitted   bool
	onSessionEnd func()

	now func() time.Time
}

func NewCoordinator(m *intent.Matcher, r *geo.Resolver, c *respond.Composer, a *alert.Dispatcher, log *slog.Logger, cfg Config) *Coordinator {
	if cfg.NearestShelterCount <= 0 {
		cfg.NearestShelterCount = 1
	}
	return &Coordinator{
		matcher:  m,
		resolver: r,
		composer: c,
		alerts:   a,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// OnSessionEnd registers the signal fired once per session when an Exit
// turn completes. Must be set before Start.
func (co *Coordinator) OnSessionEnd(f func()) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.onSessionEnd = f
}

func (co *Coordinator) Phase() Phase {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.phase
}

func (co *Coordinator) LastCategory() intent.Category {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.lastCategory
}

// History returns a copy of the append-only turn log.
func (co *Coordinator) History() []Turn {
	co.mu.Lock()
	defer co.mu.Unlock()
	return append([]Turn(nil), co.history...)
}

// Start begins a session: Idle -> Listening.
func (co *Coordinator) Start() error {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.phase != Idle {
		return &StateConflictError{Op: "start", Phase: co.phase}
	}
	co.phase = Listening
	co.endEmitted = false
	co.log.Info("Session started")
	return nil
}

// Stop ends a session from Listening. Stopping an idle coordinator is a
// no-op; stopping mid-turn is a conflict.
func (co *Coordinator) Stop() error {
	co.mu.Lock()
	defer co.mu.Unlock()
	switch co.phase {
	case Idle:
		return nil
	case Listening:
		co.phase = Idle
		co.log.Info("Session stopped")
		return nil
	default:
		return &StateConflictError{Op: "stop", Phase: co.phase}
	}
}

// HandleUtterance runs one full turn: Listening -> Processing ->
// Responding -> Idle. The engine serves one in-flight request at a time;
// overlapping calls get a StateConflictError.
func (co *Coordinator) HandleUtterance(text string) (respond.Payload, error) {
	co.mu.Lock()
	if co.phase != Listening {
		phase := co.phase
		co.mu.Unlock()
		return respond.Payload{}, &StateConflictError{Op: "process utterance", Phase: phase}
	}
	co.phase = Processing
	last := co.lastCategory
	co.mu.Unlock()

	payload := co.respond(text, last)

	co.mu.Lock()
	co.phase = Responding
	co.history = append(co.history, Turn{Utterance: text, Response: payload, At: co.now()})
	if payload.Category != intent.Unknown {
		co.lastCategory = payload.Category
	}

	var emit func()
	if payload.Category == intent.Exit && !co.endEmitted {
		co.endEmitted = true
		emit = co.onSessionEnd
	}
	co.phase = Idle
	co.mu.Unlock()

	if emit != nil {
		co.log.Info("Session ended by exit intent")
		emit()
	}
	return payload, nil
}

// respond never fails: anything unexpected inside a turn degrades to the
// generic clarification payload so the session keeps going.
func (co *Coordinator) respond(text string, last intent.Category) (p respond.Payload) {
	defer func() {
		if r := recover(); r != nil {
			co.log.Error("Turn failed, degrading to clarification", "panic", r)
			p = respond.Fallback()
		}
	}()
	return co.turn(text, last)
}

func (co *Coordinator) turn(text string, last intent.Category) respond.Payload {
	res := co.matcher.Match(text, last)
	co.log.Debug("Matched utterance",
		"category", res.Category.String(), "confidence", res.Confidence)

	in := respond.Input{
		Category:      res.Category,
		Confidence:    res.Confidence,
		Suggestion:    res.Suggestion,
		LocationKnown: true,
	}

	ref := co.cfg.ReferenceLocation
	if res.Category.NeedsLocation() {
		c, ok, err := co.resolver.LocateInText(text)
		var lnf *geo.LocationNotFoundError
		switch {
		case errors.As(err, &lnf):
			in.LocationKnown = false
			co.log.Warn("Location not found, using fallback branch", "name", lnf.Name)
		case ok:
			ref = c
		}
		if in.LocationKnown {
			in.Shelters = co.resolver.Nearest(ref, co.cfg.NearestShelterCount)
		}
	}

	payload := co.composer.Compose(in)

	shelterName := ""
	if payload.Shelter != nil {
		shelterName = payload.Shelter.Name
	}
	if msg := alert.MessageFor(res.Category, shelterName); msg != "" && co.alerts != nil {
		co.alerts.Send(res.Category, msg, ref)
	}

	return payload
}
