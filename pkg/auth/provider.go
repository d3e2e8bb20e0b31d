// Package auth signs viewers in with Google and tracks their sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/internal/utils"
	"github.com/hangout-app/hangout/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Provider knows who is signed in and announces sign-ins and sign-outs on the bus.
type Provider struct {
	sessions SessionRepository
	users    user.Service
	bus      *event_bus.EventBus
	clock    utils.Clock
	cfg      config.Session
	secure   bool
}

func NewProvider(
	sessions SessionRepository,
	users user.Service,
	bus *event_bus.EventBus,
	clock utils.Clock,
	cfg config.Session,
	secure bool,
) *Provider {
	return &Provider{sessions: sessions, users: users, bus: bus, clock: clock, cfg: cfg, secure: secure}
}

// SignIn stores the profile reported by the identity provider and opens a session.
func (p *Provider) SignIn(ctx context.Context, profile user.User) (Session, error) {
	if _, err := p.users.SaveProfile(ctx, profile); err != nil {
		return Session{}, fmt.Errorf("could not save profile of %s: %w", profile.Id, err)
	}
	now := p.clock.Now()
	session, err := p.sessions.Create(ctx, Session{
		UserId:    profile.Id,
		CreatedAt: now,
		ExpiresAt: now.Add(p.cfg.TTL),
	})
	if err != nil {
		return Session{}, err
	}

	err = p.bus.Publish(event_bus.NewEvent(ctx, event_bus.TopicSignedIn, event_bus.ViewerSignedIn{
		UserId:    session.UserId,
		SessionId: session.Id,
	}))
	if err != nil {
		log.Warnf("sign-in of %s not fully handled: %v", session.UserId, err)
	}
	log.Infof("User %s signed in", session.UserId)
	return session, nil
}

// CurrentSession returns the live session with the given id. Expired sessions are
// removed and reported as ErrNoSession.
func (p *Provider) CurrentSession(ctx context.Context, sessionId string) (Session, error) {
	if sessionId == "" {
		return Session{}, ErrNoSession
	}
	session, err := p.sessions.Get(ctx, sessionId)
	if err != nil {
		return Session{}, err
	}
	if session.Expired(p.clock.Now()) {
		if err := p.sessions.Delete(ctx, sessionId); err != nil {
			log.Warnf("failed to remove expired session of %s: %v", session.UserId, err)
		}
		return Session{}, ErrNoSession
	}
	return session, nil
}

// SignOut ends the session and tells every listener that its viewer left.
func (p *Provider) SignOut(ctx context.Context, sessionId string) error {
	session, err := p.sessions.Get(ctx, sessionId)
	if err != nil {
		return err
	}
	if err := p.sessions.Delete(ctx, sessionId); err != nil {
		return fmt.Errorf("could not delete session: %w", err)
	}
	err = p.bus.Publish(event_bus.NewEvent(context.WithoutCancel(ctx), event_bus.TopicSignedOut, event_bus.ViewerSignedOut{
		UserId:    session.UserId,
		SessionId: session.Id,
	}))
	if err != nil {
		log.Warnf("sign-out of %s not fully handled: %v", session.UserId, err)
	}
	log.Infof("User %s signed out", session.UserId)
	return nil
}

// Middleware puts the signed-in user into the request context. Requests without
// a valid session pass through anonymously.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(p.cfg.CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		session, err := p.CurrentSession(ctx, cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				log.Errorf("failed to resolve session: %v", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		u, err := p.users.GetUser(ctx, session.UserId)
		if err != nil {
			log.Debugf("no profile for %s: %v", session.UserId, err)
			u = user.User{Id: session.UserId}
		}
		next.ServeHTTP(w, r.WithContext(user.WithUser(ctx, u)))
	})
}

func (p *Provider) setCookie(w http.ResponseWriter, session Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.cfg.CookieName,
		Value:    session.Id,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Provider) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Provider) sessionId(r *http.Request) string {
	cookie, err := r.Cookie(p.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SignOutHandler godoc
// @Summary Sign out the current browser
// @Tags Auth
// @Success 204 "No Content"
// @Router /api/auth/session [delete]
func (p *Provider) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	id := p.sessionId(r)
	if id != "" {
		if err := p.SignOut(r.Context(), id); err != nil && !errors.Is(err, ErrNoSession) {
			log.Errorf("failed to sign out: %v", err)
			http.Error(w, "failed to sign out", http.StatusInternalServerError)
			return
		}
	}
	p.clearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
