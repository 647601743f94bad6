package training

import (
	"context"
	"fmt"
	"sync"

	"github.com/Abdo-hisham/rl-project/internal/domain/rl"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/engines"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/events"
	"github.com/Abdo-hisham/rl-project/internal/infrastructure/history"
	"github.com/Abdo-hisham/rl-project/internal/shared"
)

// Service owns training sessions. Each owner key holds at most one live
// session; starting a new one for the same owner cancels the previous run
// first. Sessions remain queryable by ID after they finish.
type Service struct {
	mu       sync.RWMutex
	bus      *events.Bus
	store    *history.Store
	sessions map[string]*Session
	byOwner  map[string]string
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithHistoryStore enables run recording into the given store.
func WithHistoryStore(store *history.Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// NewService creates a session service publishing on bus.
func NewService(bus *events.Bus, opts ...ServiceOption) *Service {
	s := &Service{
		bus:      bus,
		sessions: make(map[string]*Session),
		byOwner:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartTraining validates cfg, replaces any live session held by owner, and
// starts a new one. The returned session is already running.
func (s *Service) StartTraining(ctx context.Context, owner string, cfg Config) (*Session, error) {
	session, err := NewSession(cfg, s.bus)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if previousID, ok := s.byOwner[owner]; ok {
		if previous, ok := s.sessions[previousID]; ok && !previous.State().Terminal() {
			previous.Stop()
		}
	}
	s.sessions[session.ID] = session
	s.byOwner[owner] = session.ID
	s.mu.Unlock()

	if s.store != nil {
		s.record(ctx, session)
	}

	if err := session.Start(); err != nil {
		return nil, err
	}
	return session, nil
}

// record wires run bookkeeping: a row at start, a metric per increment, and
// the terminal state once the session settles.
func (s *Service) record(ctx context.Context, session *Session) {
	run := history.Run{
		ID:          session.ID,
		Algorithm:   string(session.Config.Algorithm),
		Environment: string(session.Config.Environment),
		State:       string(shared.SessionStateRunning),
		StartedAt:   shared.Now(),
	}
	if err := s.store.RecordStart(ctx, run); err != nil {
		return
	}

	episodic := session.Config.Algorithm.Episodic()
	session.OnIncrement(func(sessionID string, inc engines.Increment) {
		metric := inc.Delta
		if episodic {
			metric = inc.Reward
		}
		_ = s.store.RecordMetric(context.Background(), sessionID, inc.Unit, metric)
	})

	go func() {
		session.Wait()
		snapshot := session.Result()
		final := 0.0
		if episodic {
			final = snapshot.History.RecentMeanReward(recentRewardWindow)
		} else if n := len(snapshot.History.Deltas); n > 0 {
			final = snapshot.History.Deltas[n-1]
		}
		_ = s.store.RecordFinish(context.Background(), session.ID,
			string(session.State()), session.Units(), final, shared.Now())
	}()
}

// Session returns the session with the given ID.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rl.ErrSessionNotFound, id)
	}
	return session, nil
}

// SessionFor returns owner's most recent session.
func (s *Service) SessionFor(owner string) (*Session, error) {
	s.mu.RLock()
	id, ok := s.byOwner[owner]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no session for owner %q", rl.ErrSessionNotFound, owner)
	}
	return s.Session(id)
}

// StopTraining requests cancellation of the session with the given ID.
func (s *Service) StopTraining(id string) error {
	session, err := s.Session(id)
	if err != nil {
		return err
	}
	session.Stop()
	return nil
}

// Sessions returns every known session, live and finished.
func (s *Service) Sessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
