package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/pkg/docstore"
	"github.com/hangout-app/hangout/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*mux.Router, *Dependencies, config.Application) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("index"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schedule.html"), []byte("schedule"), 0o644))

	cfg := config.Defaults()
	cfg.Frontend.Dir = dir
	cfg.Schedule.Timezone = "UTC"

	bus := event_bus.NewEventBus()
	deps := BuildDependencies(docstore.NewMemoryStore(bus), bus, cfg)
	t.Cleanup(deps.Sessions.Shutdown)
	return NewRouter(deps, cfg), deps, cfg
}

func signIn(t *testing.T, deps *Dependencies, cfg config.Application, userId string) *http.Cookie {
	t.Helper()
	session, err := deps.AuthProvider.SignIn(context.Background(), user.User{Id: userId, Name: "Ana Nowak"})
	require.NoError(t, err)
	return &http.Cookie{Name: cfg.Session.CookieName, Value: session.Id}
}

func TestRouter_ApiRequiresSession(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/settings", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_SchedulePageRedirectsToLogin(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedule.html", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login.html?next=%2Fschedule.html", w.Header().Get("Location"))
}

func TestRouter_SchedulePageWithSession(t *testing.T) {
	router, deps, cfg := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/schedule.html", nil)
	req.AddCookie(signIn(t, deps, cfg, "me"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "schedule", w.Body.String())
}

func TestRouter_LoginIsPublic(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["redirectUrl"], "accounts.google.com")
}

func TestRouter_CreateEventsForSignedInUser(t *testing.T) {
	router, deps, cfg := setupRouter(t)
	cookie := signIn(t, deps, cfg, "me")

	req := httptest.NewRequest(http.MethodPost, "/api/schedule/events",
		bytes.NewBufferString(`{"title":"Gym","date":"2025-01-06","startTime":"07:00","endTime":"08:00","repeat":"week","count":"2"}`))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Created  []string `json:"created"`
		SeriesId string   `json:"seriesId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created.Created, 2)
	series, err := deps.EventRepo.ListSeries(context.Background(), "me", created.SeriesId)
	require.NoError(t, err)
	assert.Len(t, series, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/user/current", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana Nowak")
}

func TestRouter_SignOutEndsSession(t *testing.T) {
	router, deps, cfg := setupRouter(t)
	cookie := signIn(t, deps, cfg, "me")

	req := httptest.NewRequest(http.MethodDelete, "/api/auth/session", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"hangout.example.com"}, allowedOrigins("https://hangout.example.com"))
	assert.Nil(t, allowedOrigins(""))
}
