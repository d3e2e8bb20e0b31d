package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/internal/rest"
	"github.com/hangout-app/hangout/pkg/auth"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, the document store, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	deps   *Dependencies
	store  *openedStore
	router *mux.Router
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	bus := event_bus.NewEventBus()
	store, err := openStore(ctx, cfg, bus)
	if err != nil {
		return nil, err
	}

	deps := BuildDependencies(store.Store, bus, cfg)
	r := NewRouter(deps, cfg)

	srv := &http.Server{
		Handler: r,
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		// no read/write timeouts: schedule websockets stay open for the whole visit
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Application{cfg: cfg, deps: deps, store: store, router: r, srv: srv}, nil
}

// NewRouter builds the middleware chain, API routes and frontend.
func NewRouter(deps *Dependencies, cfg config.Application) *mux.Router {
	r := mux.NewRouter()

	SetupMiddleware(r, deps, cfg)
	RegisterRoutes(r, deps, cfg)

	if cfg.Frontend.Enabled {
		frontend := rest.NewFrontendHandler(cfg.Frontend.Dir, "index.html")
		r.Handle(cfg.Schedule.Page, auth.RequireUser(cfg.Schedule.LoginPage)(frontend))
		r.PathPrefix("/").Handler(frontend)
	}
	return r
}

// Run serves until ctx is done, then shuts the server and the live schedule
// sessions down.
func (a *Application) Run(ctx context.Context) error {
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	if a.store.Listen != nil {
		go func() {
			if err := a.store.Listen(listenCtx); err != nil {
				log.Errorf("document change listener stopped: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		serveErr <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		a.close()
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	a.deps.Sessions.Shutdown()
	err := a.srv.Shutdown(shutdownCtx)
	a.close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Application) close() {
	if a.store.Close != nil {
		a.store.Close()
	}
}
