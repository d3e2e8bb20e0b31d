package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

const SessionCollection = "sessions"

var ErrNoSession = errors.New("no active session")

// Session is a signed-in browser. Its id is the session cookie value.
type Session struct {
	Id        string    `doc:"-"`
	UserId    string    `doc:"userId"`
	CreatedAt time.Time `doc:"createdAt"`
	ExpiresAt time.Time `doc:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type SessionRepository interface {
	Create(ctx context.Context, session Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

type SessionRepositoryImpl struct {
	store docstore.Store
}

func NewSessionRepository(store docstore.Store) *SessionRepositoryImpl {
	return &SessionRepositoryImpl{store: store}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session Session) (Session, error) {
	id, err := r.store.Create(ctx, SessionCollection, map[string]any{
		"userId":    session.UserId,
		"createdAt": session.CreatedAt.UTC().Format(time.RFC3339),
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Errorf("failed to create session for %s: %v", session.UserId, err)
		return Session{}, err
	}
	session.Id = id
	return session, nil
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, id string) (Session, error) {
	doc, err := r.store.Get(ctx, SessionCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Session{}, ErrNoSession
	} else if err != nil {
		return Session{}, fmt.Errorf("could not read session: %w", err)
	}
	var s Session
	if err := docstore.Decode(doc, &s); err != nil {
		return Session{}, err
	}
	s.Id = doc.Id
	return s, nil
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, SessionCollection, id)
}
