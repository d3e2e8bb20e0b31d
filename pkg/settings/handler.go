package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hangout-app/hangout/internal/rest"
	"github.com/hangout-app/hangout/pkg/user"
	log "github.com/sirupsen/logrus"
)

type SettingsDTO struct {
	EventColor   string            `json:"eventColor"`
	FriendColors map[string]string `json:"friendColors"`
}

type ColorDTO struct {
	Color string `json:"color"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetSettings godoc
// @Summary Get the current user's display settings
// @Tags Settings
// @Produce json
// @Success 200 {object} SettingsDTO
// @Router /api/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	log.Trace("Getting display settings")
	s, err := h.service.GetSettings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	friendColors := s.FriendColors
	if friendColors == nil {
		friendColors = map[string]string{}
	}
	rest.WriteJSON(w, http.StatusOK, SettingsDTO{EventColor: s.EventColor, FriendColors: friendColors})
}

// SetEventColor godoc
// @Summary Set the color of the current user's own events
// @Tags Settings
// @Accept json
// @Param color body ColorDTO true "Color"
// @Success 204 "No Content"
// @Failure 400 {object} rest.ErrorResponse "Invalid color"
// @Router /api/settings/color [put]
func (h *Handler) SetEventColor(w http.ResponseWriter, r *http.Request) {
	var body ColorDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	log.Debugf("Setting own event color to %s", body.Color)
	if err := h.service.SetEventColor(r.Context(), body.Color); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFriendColor godoc
// @Summary Set the color of a friend's events
// @Tags Settings
// @Accept json
// @Param friendId path string true "Friend user id"
// @Param color body ColorDTO true "Color"
// @Success 204 "No Content"
// @Failure 400 {object} rest.ErrorResponse "Invalid color or friend id"
// @Failure 404 {object} rest.ErrorResponse "Not an accepted friend"
// @Router /api/settings/friends/{friendId}/color [put]
func (h *Handler) SetFriendColor(w http.ResponseWriter, r *http.Request) {
	friendId := mux.Vars(r)["friendId"]
	var body ColorDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	log.Debugf("Setting color of friend %s to %s", friendId, body.Color)
	if err := h.service.SetFriendColor(r.Context(), friendId, body.Color); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidColor):
		rest.WriteError(w, http.StatusBadRequest, "Invalid color", "Use #rgb or #rrggbb")
	case errors.Is(err, ErrUserIdRequired):
		rest.WriteError(w, http.StatusBadRequest, "Friend id is required", "")
	case errors.Is(err, ErrInvalidFriendId):
		rest.WriteError(w, http.StatusBadRequest, "Invalid friend id", err.Error())
	case errors.Is(err, ErrNotFriend):
		rest.WriteError(w, http.StatusNotFound, "Friend not found", "Colors can only be set for accepted friends")
	case errors.Is(err, user.ErrNoUser):
		http.Error(w, "user not found", http.StatusForbidden)
	default:
		rest.WriteError(w, http.StatusInternalServerError, "Could not update color", err.Error())
	}
}
