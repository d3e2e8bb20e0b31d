package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/internal/rest"
	"github.com/hangout-app/hangout/pkg/docstore"
	"github.com/hangout-app/hangout/pkg/user"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const (
	stateCollection = "loginStates"
	stateTTL        = 10 * time.Minute
)

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type loginState struct {
	FinalUrl  string    `doc:"finalUrl"`
	CreatedAt time.Time `doc:"createdAt"`
}

// TokenValidator checks a Google ID token for audience and returns its claims.
type TokenValidator func(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)

// GoogleLogin signs viewers in through Google's OAuth consent screen.
type GoogleLogin struct {
	provider    *Provider
	store       docstore.Store
	oauthConfig *oauth2.Config
	validate    TokenValidator
	loginPage   string
}

func NewGoogleLogin(provider *Provider, store docstore.Store, cfg config.Application) *GoogleLogin {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/auth/callback",
		Scopes:       []string{"openid", "email", "profile"},
	}
	return &GoogleLogin{
		provider:    provider,
		store:       store,
		oauthConfig: oauthConfig,
		validate:    idtoken.Validate,
		loginPage:   cfg.Schedule.LoginPage,
	}
}

// Login godoc
// @Summary Start Google sign-in
// @Tags Auth
// @Produce json
// @Param finalUrl query string false "Path to return to after sign-in"
// @Success 200 {object} googleAuthRedirect
// @Router /api/auth/login [get]
func (g *GoogleLogin) Login(w http.ResponseWriter, r *http.Request) {
	finalUrl := safeRedirect(r.URL.Query().Get("finalUrl"))

	state, err := g.store.Create(r.Context(), stateCollection, map[string]any{
		"finalUrl":  finalUrl,
		"createdAt": g.provider.clock.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Errorf("failed to store login state: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication", "")
		return
	}

	log.Tracef("Redirecting to Google auth URL with state: %s", state)
	u := g.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
	rest.WriteJSON(w, http.StatusOK, googleAuthRedirect{RedirectUrl: u})
}

// Callback godoc
// @Summary Finish Google sign-in
// @Tags Auth
// @Param code query string true "Authorization code"
// @Param state query string true "Login state"
// @Success 302 "Redirect to the requested page"
// @Router /api/auth/callback [get]
func (g *GoogleLogin) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.FormValue("code")
	stateId := r.FormValue("state")

	state, err := g.takeState(ctx, stateId)
	if err != nil {
		log.Warnf("rejected Google callback: %v", err)
		http.Redirect(w, r, g.loginPage+"?success=false", http.StatusFound)
		return
	}

	profile, err := g.exchange(ctx, code)
	if err != nil {
		log.Error(err)
		http.Redirect(w, r, g.loginPage+"?success=false", http.StatusFound)
		return
	}

	session, err := g.provider.SignIn(ctx, profile)
	if err != nil {
		log.Errorf("failed to sign in %s: %v", profile.Id, err)
		http.Redirect(w, r, g.loginPage+"?success=false", http.StatusFound)
		return
	}
	g.provider.setCookie(w, session)
	http.Redirect(w, r, state.FinalUrl, http.StatusFound)
}

// takeState consumes a login state; each state is good for one callback.
func (g *GoogleLogin) takeState(ctx context.Context, id string) (loginState, error) {
	if id == "" {
		return loginState{}, errors.New("missing state")
	}
	doc, err := g.store.Get(ctx, stateCollection, id)
	if err != nil {
		return loginState{}, fmt.Errorf("unknown state %s: %w", id, err)
	}
	if err := g.store.Delete(ctx, stateCollection, id); err != nil {
		log.Warnf("failed to delete login state %s: %v", id, err)
	}

	var state loginState
	if err := docstore.Decode(doc, &state); err != nil {
		return loginState{}, err
	}
	if g.provider.clock.Now().Sub(state.CreatedAt) > stateTTL {
		return loginState{}, fmt.Errorf("state %s expired", id)
	}
	state.FinalUrl = safeRedirect(state.FinalUrl)
	return state, nil
}

func (g *GoogleLogin) exchange(ctx context.Context, code string) (user.User, error) {
	token, err := g.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return user.User{}, fmt.Errorf("unable to exchange code for token: %w", err)
	}
	rawIdToken, ok := token.Extra("id_token").(string)
	if !ok || rawIdToken == "" {
		return user.User{}, errors.New("token response has no id_token")
	}
	payload, err := g.validate(ctx, rawIdToken, g.oauthConfig.ClientID)
	if err != nil {
		return user.User{}, fmt.Errorf("invalid id token: %w", err)
	}
	return profileFrom(payload), nil
}

func profileFrom(payload *idtoken.Payload) user.User {
	claim := func(name string) string {
		v, _ := payload.Claims[name].(string)
		return v
	}
	return user.User{
		Id:       payload.Subject,
		Name:     claim("name"),
		Email:    claim("email"),
		PhotoUrl: claim("picture"),
	}
}
