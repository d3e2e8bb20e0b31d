package board

import (
	"context"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
	"github.com/hangout-app/hangout/pkg/schedule"
	"github.com/hangout-app/hangout/pkg/user"
	log "github.com/sirupsen/logrus"
)

// Opener starts a schedule session rendering into a page.
type Opener interface {
	Open(ctx context.Context, viewerId string, page schedule.Page) *schedule.Session
}

type Handler struct {
	sessions       Opener
	loc            *time.Location
	originPatterns []string
}

// NewHandler serves the schedule websocket. originPatterns lists the extra
// origins allowed besides the request host.
func NewHandler(sessions Opener, loc *time.Location, originPatterns []string) *Handler {
	return &Handler{sessions: sessions, loc: loc, originPatterns: originPatterns}
}

// Connect godoc
// @Summary Live schedule page
// @Description Upgrades to a websocket that pushes calendar changes and receives clicks
// @Tags Schedule
// @Success 101 "Switching Protocols"
// @Failure 403 {string} string "user not found"
// @Router /api/schedule/ws [get]
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not found", http.StatusForbidden)
		return
	}

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		log.Errorf("websocket accept failed: %v", err)
		return
	}

	b := New()
	session := h.sessions.Open(r.Context(), userId, b)
	log.Infof("schedule page of %s connected (session %s)", userId, session.Id)

	NewClient(conn, b, session, h.loc).Run(r.Context())

	b.Close()
	session.Close()
	_ = conn.Close(ws.StatusNormalClosure, "")
	log.Infof("schedule page of %s disconnected (session %s)", userId, session.Id)
}
