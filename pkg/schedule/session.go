package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/internal/eventloop"
	"github.com/hangout-app/hangout/pkg/color"
	"github.com/hangout-app/hangout/pkg/label"
	log "github.com/sirupsen/logrus"
)

// Page is one open schedule page: its calendar and the surrounding controls.
type Page interface {
	Widget
	Surface
}

// Session is the schedule page of one viewer on one connection. Everything it
// does runs on its own loop.
type Session struct {
	Id       string
	ViewerId string

	loop       *eventloop.Loop
	reconciler *Reconciler
	ctx        context.Context
	cancel     context.CancelFunc
}

// ToggleFriend shows or hides a friend's events.
func (s *Session) ToggleFriend(friendId string, on bool) {
	s.loop.Post(func() { s.reconciler.ToggleFriend(friendId, on) })
}

func (s *Session) ItemClick(itemId string) {
	s.loop.Post(func() {
		outcome := s.reconciler.HandleItemClick(s.ctx, itemId)
		log.Debugf("session %s: click on %s: %s", s.Id, itemId, outcome)
	})
}

func (s *Session) DateClick(day time.Time) {
	s.loop.Post(func() { s.reconciler.HandleDateClick(day) })
}

// Close stops the session and waits until its loop has finished.
func (s *Session) Close() {
	s.cancel()
	<-s.loop.Done()
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.loop.Done()
}

// SessionDeps are shared by every session; each session gets its own label cache.
type SessionDeps struct {
	Sources  Sources
	Events   EventService
	Resolver color.Resolver
	Profiles label.ProfileReader
	Options  Options
}

// SessionManager tracks open schedule sessions and closes a viewer's sessions
// when they sign out.
type SessionManager struct {
	deps SessionDeps

	mu       sync.Mutex
	sessions map[string]*Session

	unsubscribe func()
}

func NewSessionManager(deps SessionDeps, bus *event_bus.EventBus) *SessionManager {
	m := &SessionManager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
	m.unsubscribe = event_bus.SubscribeTyped[event_bus.ViewerSignedOut](bus, event_bus.TopicSignedOut,
		func(e event_bus.EventT[event_bus.ViewerSignedOut]) error {
			closed := m.CloseViewer(e.Data.UserId)
			log.Debugf("closed %d schedule session(s) of %s after sign-out", closed, e.Data.UserId)
			return nil
		})
	return m
}

// Open starts a session for viewerId rendering into page. The session ends when
// ctx is done or Close is called.
func (m *SessionManager) Open(ctx context.Context, viewerId string, page Page) *Session {
	ctx, cancel := context.WithCancel(ctx)
	loop := eventloop.New()
	s := &Session{
		Id:       uuid.NewString(),
		ViewerId: viewerId,
		loop:     loop,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.reconciler = NewReconciler(
		viewerId,
		page,
		page,
		m.deps.Sources,
		m.deps.Events,
		m.deps.Resolver,
		label.NewCache(m.deps.Profiles),
		loop.Executor(),
		m.deps.Options,
	)

	m.mu.Lock()
	m.sessions[s.Id] = s
	m.mu.Unlock()

	loop.Post(func() { s.reconciler.Start(ctx) })
	go func() {
		loop.Run(ctx)
		s.reconciler.Stop()
		cancel()
		m.mu.Lock()
		delete(m.sessions, s.Id)
		m.mu.Unlock()
		log.Debugf("schedule session %s of %s ended", s.Id, viewerId)
	}()
	log.Debugf("schedule session %s of %s started", s.Id, viewerId)
	return s
}

// CloseViewer closes every session of the viewer and returns how many there were.
func (m *SessionManager) CloseViewer(viewerId string) int {
	m.mu.Lock()
	toClose := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.ViewerId == viewerId {
			toClose = append(toClose, s)
		}
	}
	m.mu.Unlock()

	for _, s := range toClose {
		s.cancel()
	}
	return len(toClose)
}

func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session and stops listening for sign-outs.
func (m *SessionManager) Shutdown() {
	m.unsubscribe()
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
