package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/uxlens/uxlens/internal/domain/model"
)

// MemStore implements Store entirely in memory. Used by tests and by
// ephemeral deployments that do not configure a database path.
type MemStore struct {
	mu       sync.RWMutex
	events   map[string]model.Event   // by event id
	order    []string                 // insertion order of event ids
	sessions map[string]model.Session // by session id
	sessOrd  []string
	answers  map[string]model.Answer // by answer id
	ansOrder []string
	gaze     map[string]model.GazeSample // by (session, screen, ts) key
	gazeOrd  []string
	closed   bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		events:   make(map[string]model.Event),
		sessions: make(map[string]model.Session),
		answers:  make(map[string]model.Answer),
		gaze:     make(map[string]model.GazeSample),
	}
}

// Close marks the store closed; later operations fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemStore) checkOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// InsertEvents stores a batch, skipping ids already present.
func (s *MemStore) InsertEvents(_ context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for i := range events {
		e := &events[i]
		if err := ValidateEvent(e); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}
		if _, ok := s.events[e.EventID]; ok {
			continue
		}
		s.events[e.EventID] = *e
		s.order = append(s.order, e.EventID)
	}
	return nil
}

// InsertSessions upserts session rows.
func (s *MemStore) InsertSessions(_ context.Context, sessions []model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, sess := range sessions {
		if _, ok := s.sessions[sess.ID]; !ok {
			s.sessOrd = append(s.sessOrd, sess.ID)
		}
		s.sessions[sess.ID] = sess
	}
	return nil
}

// InsertAnswers stores answers, skipping ids already present.
func (s *MemStore) InsertAnswers(_ context.Context, answers []model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, a := range answers {
		if _, ok := s.answers[a.AnswerID]; ok {
			continue
		}
		s.answers[a.AnswerID] = a
		s.ansOrder = append(s.ansOrder, a.AnswerID)
	}
	return nil
}

// InsertGaze stores gaze samples, skipping (session, screen, ts) keys
// already present.
func (s *MemStore) InsertGaze(_ context.Context, samples []model.GazeSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, g := range samples {
		key := fmt.Sprintf("%s|%s|%d", g.SessionID, g.ScreenID, g.TS.UnixMilli())
		if _, ok := s.gaze[key]; ok {
			continue
		}
		s.gaze[key] = g
		s.gazeOrd = append(s.gazeOrd, key)
	}
	return nil
}

// EventsBySession returns one session's events in insertion order.
func (s *MemStore) EventsBySession(_ context.Context, sessionID string) ([]model.Event, error) {
	return s.filterEvents(func(e *model.Event) bool { return e.SessionID == sessionID })
}

// EventsByBlock returns one block's events in insertion order.
func (s *MemStore) EventsByBlock(_ context.Context, blockID string) ([]model.Event, error) {
	return s.filterEvents(func(e *model.Event) bool { return e.BlockID == blockID })
}

// EventsByScreen returns a block's events for one screen.
func (s *MemStore) EventsByScreen(_ context.Context, blockID, screenID string) ([]model.Event, error) {
	return s.filterEvents(func(e *model.Event) bool {
		return e.BlockID == blockID && e.ScreenID == screenID
	})
}

func (s *MemStore) filterEvents(keep func(*model.Event) bool) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []model.Event
	for _, id := range s.order {
		e := s.events[id]
		if keep(&e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SessionsByBlock returns every session row for one block in insertion order.
func (s *MemStore) SessionsByBlock(_ context.Context, blockID string) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []model.Session
	for _, id := range s.sessOrd {
		if sess := s.sessions[id]; sess.BlockID == blockID {
			out = append(out, sess)
		}
	}
	return out, nil
}

// AnswersByBlock returns every answer row for one block in insertion order.
func (s *MemStore) AnswersByBlock(_ context.Context, blockID string) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []model.Answer
	for _, id := range s.ansOrder {
		if a := s.answers[id]; a.BlockID == blockID {
			out = append(out, a)
		}
	}
	return out, nil
}

// GazeByScreen returns a block's gaze samples for one screen in insertion order.
func (s *MemStore) GazeByScreen(_ context.Context, blockID, screenID string) ([]model.GazeSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []model.GazeSample
	for _, key := range s.gazeOrd {
		if g := s.gaze[key]; g.BlockID == blockID && g.ScreenID == screenID {
			out = append(out, g)
		}
	}
	return out, nil
}

// CountEvents returns the number of stored events.
func (s *MemStore) CountEvents(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return int64(len(s.events)), nil
}
