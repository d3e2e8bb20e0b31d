package hangout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hangout-app/hangout/internal/rest"
	"github.com/hangout-app/hangout/pkg/user"
	log "github.com/sirupsen/logrus"
)

type HangoutDTO struct {
	Id          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListHangouts godoc
// @Summary List the current user's hangouts
// @Tags Hangout
// @Produce json
// @Param filter query string false "upcoming (default) or past"
// @Success 200 {array} HangoutDTO
// @Router /api/hangouts [get]
func (h *Handler) ListHangouts(w http.ResponseWriter, r *http.Request) {
	filter := Filter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = Upcoming
	}
	if filter != Upcoming && filter != Past {
		rest.WriteError(w, http.StatusBadRequest, "Invalid filter", "Use upcoming or past")
		return
	}

	hangouts, err := h.service.ListHangouts(r.Context(), filter)
	if err != nil {
		if errors.Is(err, user.ErrNoUser) {
			http.Error(w, "user not found", http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]HangoutDTO, 0, len(hangouts))
	for _, hg := range hangouts {
		dtos = append(dtos, toDTO(hg))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// CreateHangout godoc
// @Summary Create a hangout
// @Tags Hangout
// @Accept json
// @Produce json
// @Param hangout body HangoutDTO true "Hangout"
// @Success 201 {object} HangoutDTO
// @Failure 400 {object} rest.ErrorResponse "Missing fields"
// @Router /api/hangouts [post]
func (h *Handler) CreateHangout(w http.ResponseWriter, r *http.Request) {
	var body HangoutDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}

	created, err := h.service.CreateHangout(r.Context(), fromDTO(body))
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			rest.WriteError(w, http.StatusBadRequest, "Please fill in hangout name, date, and start time.", err.Error())
		case errors.Is(err, user.ErrNoUser):
			http.Error(w, "user not found", http.StatusForbidden)
		default:
			rest.WriteError(w, http.StatusInternalServerError, "Could not create hangout. Please try again.", err.Error())
		}
		return
	}
	log.Debugf("Created hangout %s", created.Id)

	rest.WriteJSON(w, http.StatusCreated, toDTO(created))
}

func toDTO(h Hangout) HangoutDTO {
	return HangoutDTO{
		Id:          h.Id,
		Title:       h.Title,
		Date:        h.Date,
		StartTime:   h.StartTime,
		EndTime:     h.EndTime,
		Location:    h.Location,
		Description: h.Description,
		Status:      h.Status,
	}
}

func fromDTO(dto HangoutDTO) Hangout {
	return Hangout{
		Title:       dto.Title,
		Date:        dto.Date,
		StartTime:   dto.StartTime,
		EndTime:     dto.EndTime,
		Location:    dto.Location,
		Description: dto.Description,
	}
}
