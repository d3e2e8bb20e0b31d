package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hangout-app/hangout/internal/rest"
	"github.com/hangout-app/hangout/pkg/recurrence"
	"github.com/hangout-app/hangout/pkg/user"
	log "github.com/sirupsen/logrus"
)

// CreateEventsDTO mirrors the create-event form. Count arrives as entered and is
// clamped to 1..52; non-numeric values count as 1.
type CreateEventsDTO struct {
	Title     string          `json:"title"`
	Date      string          `json:"date"`
	StartTime string          `json:"startTime"`
	EndTime   string          `json:"endTime"`
	Repeat    string          `json:"repeat"`
	Count     json.RawMessage `json:"count,omitempty"`
}

type CreatedEventsDTO struct {
	Created  []string `json:"created"`
	SeriesId string   `json:"seriesId,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type Handler struct {
	service EventService
}

func NewHandler(service EventService) *Handler {
	return &Handler{service: service}
}

// CreateEvents godoc
// @Summary Create an event, or a repeating series of events
// @Tags Schedule
// @Accept json
// @Produce json
// @Param event body CreateEventsDTO true "Event form"
// @Success 201 {object} CreatedEventsDTO
// @Failure 400 {object} rest.ErrorResponse "Missing or invalid fields"
// @Failure 500 {object} CreatedEventsDTO "Some events may have been created"
// @Router /api/schedule/events [post]
func (h *Handler) CreateEvents(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not found", http.StatusForbidden)
		return
	}

	var body CreateEventsDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	unit, err := recurrence.ParseUnit(body.Repeat)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid repeat", "Use none, week or month")
		return
	}

	result, err := h.service.CreateEvents(r.Context(), userId, CreateRequest{
		Title:     body.Title,
		Date:      body.Date,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Repeat:    unit,
		Count:     parseCount(body.Count),
	})
	switch {
	case errors.Is(err, ErrValidation):
		rest.WriteError(w, http.StatusBadRequest, ErrValidation.Error(), err.Error())
		return
	case errors.Is(err, ErrPartialCreate):
		log.Warnf("partial create for %s: %v", userId, err)
		rest.WriteJSON(w, http.StatusInternalServerError, CreatedEventsDTO{
			Created:  result.Ids,
			SeriesId: result.SeriesId,
			Error:    ErrPartialCreate.Error(),
		})
		return
	case err != nil:
		rest.WriteError(w, http.StatusInternalServerError, "Saving failed", err.Error())
		return
	}

	rest.WriteJSON(w, http.StatusCreated, CreatedEventsDTO{Created: result.Ids, SeriesId: result.SeriesId})
}

// DeleteEvent godoc
// @Summary Delete one of the current user's events
// @Tags Schedule
// @Param eventId path string true "Event id"
// @Success 204 "No Content"
// @Failure 403 {string} string "Not the owner"
// @Failure 404 {string} string "Event not found"
// @Router /api/schedule/events/{eventId} [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not found", http.StatusForbidden)
		return
	}
	eventId := mux.Vars(r)["eventId"]

	err = h.service.DeleteEvent(r.Context(), userId, eventId)
	switch {
	case errors.Is(err, ErrEventNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case err != nil:
		rest.WriteError(w, http.StatusInternalServerError, "Could not delete the event", err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteSeries godoc
// @Summary Delete every event of one of the current user's series
// @Tags Schedule
// @Param seriesId path string true "Series id"
// @Success 204 "No Content"
// @Router /api/schedule/series/{seriesId} [delete]
func (h *Handler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not found", http.StatusForbidden)
		return
	}
	seriesId := mux.Vars(r)["seriesId"]

	if _, err := h.service.DeleteSeries(r.Context(), userId, seriesId); err != nil {
		rest.WriteError(w, http.StatusInternalServerError, "Could not delete the series", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseCount accepts the count as a JSON number or string.
func parseCount(raw json.RawMessage) int {
	if len(raw) == 0 {
		return recurrence.MinCount
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return recurrence.ParseCount(s)
	}
	return recurrence.ParseCount(string(raw))
}
