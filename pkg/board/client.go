package board

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	dateLayout   = "2006-01-02"
)

// Controls receives the browser's interactions. *schedule.Session satisfies it.
type Controls interface {
	ItemClick(itemId string)
	DateClick(day time.Time)
	ToggleFriend(friendId string, on bool)
	Done() <-chan struct{}
}

// Client pumps one board over one websocket connection.
type Client struct {
	conn     *ws.Conn
	board    *Board
	controls Controls
	loc      *time.Location
}

func NewClient(conn *ws.Conn, board *Board, controls Controls, loc *time.Location) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{conn: conn, board: board, controls: controls, loc: loc}
}

// Run starts the write pump and runs the read pump. It blocks until the
// connection is closed, the session ends or ctx is done.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx, cancel)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if ws.CloseStatus(err) != ws.StatusNormalClosure && ctx.Err() == nil {
				log.Debugf("websocket read ended: %v", err)
			}
			return
		}
		if typ != ws.MessageText {
			continue
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Warnf("invalid schedule command %q: %v", data, err)
			continue
		}
		c.dispatch(cmd)
	}
}

func (c *Client) dispatch(cmd Command) {
	switch cmd.Type {
	case TypeItemClick:
		c.controls.ItemClick(cmd.ItemId)
	case TypeDateClick:
		day, err := c.parseDay(cmd.Date)
		if err != nil {
			log.Warnf("invalid clicked date %q: %v", cmd.Date, err)
			return
		}
		c.controls.DateClick(day)
	case TypeToggleFriend:
		c.controls.ToggleFriend(cmd.FriendId, cmd.On)
	case TypeAnswer:
		if !c.board.Answer(cmd.PromptId, cmd.Answer) {
			log.Debugf("answer to unknown prompt %s", cmd.PromptId)
		}
	default:
		log.Warnf("unknown schedule command %q", cmd.Type)
	}
}

// parseDay accepts a plain date or a full timestamp.
func (c *Client) parseDay(value string) (time.Time, error) {
	if day, err := time.ParseInLocation(dateLayout, value, c.loc); err == nil {
		return day, nil
	}
	return time.Parse(time.RFC3339, value)
}

func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.board.Outbox():
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-c.controls.Done():
			return
		case <-c.board.Closed():
			return
		case <-ctx.Done():
			return
		}
	}
}
