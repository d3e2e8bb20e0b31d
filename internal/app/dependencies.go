package app

import (
	"net/url"
	"strings"

	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/internal/utils"
	"github.com/hangout-app/hangout/pkg/auth"
	"github.com/hangout-app/hangout/pkg/board"
	"github.com/hangout-app/hangout/pkg/color"
	"github.com/hangout-app/hangout/pkg/docstore"
	"github.com/hangout-app/hangout/pkg/friend"
	"github.com/hangout-app/hangout/pkg/hangout"
	"github.com/hangout-app/hangout/pkg/schedule"
	"github.com/hangout-app/hangout/pkg/settings"
	"github.com/hangout-app/hangout/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus   *event_bus.EventBus
	Store docstore.Store
	Clock utils.Clock

	UserService *user.ServiceImpl
	UserHandler *user.Handler

	AuthProvider *auth.Provider
	GoogleLogin  *auth.GoogleLogin

	SettingsRepo    *settings.RepositoryImpl
	SettingsService *settings.ServiceImpl
	SettingsHandler *settings.Handler

	FriendRepo *friend.RepositoryImpl

	HangoutRepo    *hangout.RepositoryImpl
	HangoutService *hangout.ServiceImpl
	HangoutHandler *hangout.Handler

	EventRepo       *schedule.RepositoryImpl
	EventService    *schedule.EventServiceImpl
	ScheduleHandler *schedule.Handler
	Sessions        *schedule.SessionManager
	BoardHandler    *board.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(store docstore.Store, bus *event_bus.EventBus, cfg config.Application) *Dependencies {
	deps := &Dependencies{Bus: bus, Store: store}
	loc := cfg.Schedule.Location()
	deps.Clock = utils.SystemClock{Location: loc}

	deps.UserService = user.NewService(user.NewRepo(store))
	deps.UserHandler = user.NewHandler(deps.UserService)

	secure := strings.HasPrefix(cfg.Host, "https://")
	deps.AuthProvider = auth.NewProvider(auth.NewSessionRepository(store), deps.UserService, bus, deps.Clock, cfg.Session, secure)
	deps.GoogleLogin = auth.NewGoogleLogin(deps.AuthProvider, store, cfg)

	deps.FriendRepo = friend.NewRepository(store)

	deps.SettingsRepo = settings.NewRepository(store)
	deps.SettingsService = settings.NewService(deps.SettingsRepo, deps.FriendRepo)
	deps.SettingsHandler = settings.NewHandler(deps.SettingsService)

	deps.HangoutRepo = hangout.NewRepository(store)
	deps.HangoutService = hangout.NewService(deps.HangoutRepo, deps.Clock, loc)
	deps.HangoutHandler = hangout.NewHandler(deps.HangoutService)

	deps.EventRepo = schedule.NewRepository(store)
	deps.EventService = schedule.NewEventService(deps.EventRepo, loc)
	deps.ScheduleHandler = schedule.NewHandler(deps.EventService)
	deps.Sessions = schedule.NewSessionManager(schedule.SessionDeps{
		Sources: schedule.Sources{
			Events:   deps.EventRepo,
			Hangouts: deps.HangoutRepo,
			Settings: deps.SettingsRepo,
			Friends:  deps.FriendRepo,
		},
		Events:   deps.EventService,
		Resolver: color.NewResolver(cfg.Schedule.DefaultOwnColor, cfg.Schedule.DefaultFriendColor),
		Profiles: deps.UserService,
		Options: schedule.Options{
			Location:      loc,
			HangoutPage:   cfg.Schedule.HangoutPage,
			PromptTimeout: cfg.Schedule.PromptTimeout,
		},
	}, bus)
	deps.BoardHandler = board.NewHandler(deps.Sessions, loc, allowedOrigins(cfg.Host))

	return deps
}

// allowedOrigins lets the configured public host open websockets, e.g. behind a proxy.
func allowedOrigins(host string) []string {
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
