package app

import (
	"github.com/gorilla/mux"
	"github.com/hangout-app/hangout/internal/config"
	"github.com/hangout-app/hangout/pkg/auth"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Auth
	r.HandleFunc("/api/auth/login", deps.GoogleLogin.Login).Methods("GET")
	r.HandleFunc("/api/auth/callback", deps.GoogleLogin.Callback).Methods("GET")
	r.HandleFunc("/api/auth/session", deps.AuthProvider.SignOutHandler).Methods("DELETE")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.RequireUser(cfg.Schedule.LoginPage))

	// User
	api.HandleFunc("/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	api.HandleFunc("/user/current", deps.UserHandler.UpdateUser).Methods("PUT")

	// Display settings
	api.HandleFunc("/settings", deps.SettingsHandler.GetSettings).Methods("GET")
	api.HandleFunc("/settings/color", deps.SettingsHandler.SetEventColor).Methods("PUT")
	api.HandleFunc("/settings/friends/{friendId}/color", deps.SettingsHandler.SetFriendColor).Methods("PUT")

	// Hangouts
	api.HandleFunc("/hangouts", deps.HangoutHandler.ListHangouts).Methods("GET")
	api.HandleFunc("/hangouts", deps.HangoutHandler.CreateHangout).Methods("POST")

	// Schedule
	api.HandleFunc("/schedule/events", deps.ScheduleHandler.CreateEvents).Methods("POST")
	api.HandleFunc("/schedule/events/{eventId}", deps.ScheduleHandler.DeleteEvent).Methods("DELETE")
	api.HandleFunc("/schedule/series/{seriesId}", deps.ScheduleHandler.DeleteSeries).Methods("DELETE")
	api.HandleFunc("/schedule/ws", deps.BoardHandler.Connect).Methods("GET")
}
