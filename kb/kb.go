package kb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/model"
)

// DefaultSessionID names the session behind the session-less API routes.
const DefaultSessionID = "default"

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session whose ID is taken.
	ErrSessionExists = errors.New("session already exists")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventSessionCreated EventType = iota
	EventSessionStepped
	EventSessionReset
	EventSessionDeleted
)

func (t EventType) String() string {
	switch t {
	case EventSessionCreated:
		return "created"
	case EventSessionStepped:
		return "stepped"
	case EventSessionReset:
		return "reset"
	case EventSessionDeleted:
		return "deleted"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type      EventType
	SessionID string
	Step      int
	State     model.DeviceState
}

// EngineFactory builds the simulator behind a new session.
type EngineFactory func() (*core.SimulationEngine, error)

// Session owns one simulator. All access to the engine goes through the
// session mutex since the engine itself is single-writer.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	engine *core.SimulationEngine
	notify func(Event)
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(*core.SimulationEngine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Step advances the simulator one step and returns the new step number
// with the device snapshot.
func (s *Session) Step() (int, model.DeviceState) {
	s.mu.Lock()
	st := s.engine.RunSimulationStep()
	step := s.engine.Step()
	s.mu.Unlock()

	s.notify(Event{Type: EventSessionStepped, SessionID: s.ID, Step: step, State: st})
	return step, st
}

// StepWithDecision advances one step and selects a network for it.
func (s *Session) StepWithDecision(ctx context.Context, m *decision.Model) (core.StepResult, error) {
	s.mu.Lock()
	res, err := s.engine.RunSimulationStepWithDecision(ctx, m)
	s.mu.Unlock()

	s.notify(Event{Type: EventSessionStepped, SessionID: s.ID, Step: res.Step, State: res.State})
	return res, err
}

// RunSteps advances n steps and returns a snapshot per step.
func (s *Session) RunSteps(n int) []model.DeviceState {
	s.mu.Lock()
	states := s.engine.RunMultipleSteps(n)
	step := s.engine.Step()
	s.mu.Unlock()

	if len(states) > 0 {
		s.notify(Event{Type: EventSessionStepped, SessionID: s.ID, Step: step, State: states[len(states)-1]})
	}
	return states
}

// Reset moves the device to pos and zeroes the step counter.
func (s *Session) Reset(pos model.Position) core.SimulationStats {
	s.mu.Lock()
	s.engine.ResetSimulation(pos)
	stats := s.engine.Stats()
	st := s.engine.DeviceState()
	s.mu.Unlock()

	s.notify(Event{Type: EventSessionReset, SessionID: s.ID, State: st})
	return stats
}

// Stats returns the simulator summary.
func (s *Session) Stats() core.SimulationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Stats()
}

// DeviceState returns a snapshot of the device.
func (s *Session) DeviceState() model.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.DeviceState()
}

// KnowledgeBase is an in-memory, thread-safe registry of simulator sessions.
type KnowledgeBase struct {
	mu sync.RWMutex

	sessions map[string]*Session
	factory  EngineFactory
	log      logging.Logger

	subs   map[int]func(Event)
	nextID int
}

// Option customises a KnowledgeBase.
type Option func(*KnowledgeBase)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(kb *KnowledgeBase) { kb.log = logging.OrNoop(l) }
}

// NewKnowledgeBase constructs an empty KB. A nil factory builds engines
// with default settings.
func NewKnowledgeBase(factory EngineFactory, opts ...Option) *KnowledgeBase {
	if factory == nil {
		factory = func() (*core.SimulationEngine, error) { return core.NewSimulationEngine() }
	}
	kb := &KnowledgeBase{
		sessions: make(map[string]*Session),
		factory:  factory,
		log:      logging.Noop(),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(kb)
	}
	return kb
}

// CreateSession starts a new simulator under a random UUID.
func (kb *KnowledgeBase) CreateSession() (*Session, error) {
	return kb.CreateSessionWithID(uuid.NewString())
}

// CreateSessionWithID starts a new simulator under id.
func (kb *KnowledgeBase) CreateSessionWithID(id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	engine, err := kb.factory()
	if err != nil {
		return nil, fmt.Errorf("create session %q: %w", id, err)
	}
	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		engine:    engine,
		notify:    kb.publish,
	}

	kb.mu.Lock()
	if _, exists := kb.sessions[id]; exists {
		kb.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrSessionExists, id)
	}
	kb.sessions[id] = s
	kb.mu.Unlock()

	kb.log.Info(context.Background(), "session created", logging.String("session_id", id))
	kb.publish(Event{Type: EventSessionCreated, SessionID: id, State: engine.DeviceState()})
	return s, nil
}

// EnsureSession returns the session with id, creating it if needed.
func (kb *KnowledgeBase) EnsureSession(id string) (*Session, error) {
	if s, err := kb.GetSession(id); err == nil {
		return s, nil
	}
	s, err := kb.CreateSessionWithID(id)
	if errors.Is(err, ErrSessionExists) {
		return kb.GetSession(id)
	}
	return s, err
}

// GetSession returns the session with the given ID.
func (kb *KnowledgeBase) GetSession(id string) (*Session, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	s, ok := kb.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// DeleteSession removes a session.
func (kb *KnowledgeBase) DeleteSession(id string) error {
	kb.mu.Lock()
	if _, ok := kb.sessions[id]; !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	delete(kb.sessions, id)
	kb.mu.Unlock()

	kb.log.Info(context.Background(), "session deleted", logging.String("session_id", id))
	kb.publish(Event{Type: EventSessionDeleted, SessionID: id})
	return nil
}

// ListSessions returns a snapshot of all sessions, oldest first.
func (kb *KnowledgeBase) ListSessions() []*Session {
	kb.mu.RLock()
	res := make([]*Session, 0, len(kb.sessions))
	for _, s := range kb.sessions {
		res = append(res, s)
	}
	kb.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// Len returns the number of live sessions.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.sessions)
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func (kb *KnowledgeBase) publish(ev Event) {
	kb.mu.RLock()
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	kb.mu.RUnlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(ev)
	}
}
