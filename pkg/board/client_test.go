package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeControls struct {
	mu      sync.Mutex
	clicks  []string
	days    []time.Time
	toggles map[string]bool
	done    chan struct{}
}

func newFakeControls() *fakeControls {
	return &fakeControls{toggles: make(map[string]bool), done: make(chan struct{})}
}

func (c *fakeControls) ItemClick(itemId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicks = append(c.clicks, itemId)
}

func (c *fakeControls) DateClick(day time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days = append(c.days, day)
}

func (c *fakeControls) ToggleFriend(friendId string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggles[friendId] = on
}

func (c *fakeControls) Done() <-chan struct{} {
	return c.done
}

func (c *fakeControls) snapshot() ([]string, []time.Time, map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	toggles := make(map[string]bool, len(c.toggles))
	for k, v := range c.toggles {
		toggles[k] = v
	}
	return append([]string(nil), c.clicks...), append([]time.Time(nil), c.days...), toggles
}

func startClient(t *testing.T, b *Board, controls Controls) *ws.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			return
		}
		NewClient(conn, b, controls, time.UTC).Run(r.Context())
		_ = conn.Close(ws.StatusNormalClosure, "")
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *ws.Conn, cmd Command) {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, ws.MessageText, data))
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *ws.Conn, typ string) received {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg received
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestClient_DispatchesCommands(t *testing.T) {
	b := New()
	controls := newFakeControls()
	conn := startClient(t, b, controls)

	send(t, conn, Command{Type: TypeItemClick, ItemId: "e1"})
	send(t, conn, Command{Type: TypeDateClick, Date: "2025-03-04"})
	send(t, conn, Command{Type: TypeDateClick, Date: "not a date"})
	send(t, conn, Command{Type: TypeToggleFriend, FriendId: "ana", On: true})
	send(t, conn, Command{Type: "bogus"})

	require.Eventually(t, func() bool {
		_, _, toggles := controls.snapshot()
		return len(toggles) == 1
	}, 5*time.Second, 5*time.Millisecond)
	clicks, days, toggles := controls.snapshot()
	assert.Equal(t, []string{"e1"}, clicks)
	assert.Equal(t, []time.Time{time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)}, days)
	assert.Equal(t, map[string]bool{"ana": true}, toggles)
}

func TestClient_PushesBoardMessagesAndAnswers(t *testing.T) {
	b := New()
	conn := startClient(t, b, newFakeControls())

	go b.Notify("This event belongs to Ana and can't be deleted.")
	msg := readUntil(t, conn, TypeNotice)
	assert.JSONEq(t, `{"text":"This event belongs to Ana and can't be deleted."}`, string(msg.Data))

	result := make(chan bool, 1)
	go func() {
		ok, _ := b.Confirm(context.Background(), "Delete event?")
		result <- ok
	}()
	msg = readUntil(t, conn, TypeConfirm)
	var prompt Prompt
	require.NoError(t, json.Unmarshal(msg.Data, &prompt))
	send(t, conn, Command{Type: TypeAnswer, PromptId: prompt.PromptId, Answer: true})

	select {
	case ok := <-result:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("prompt was not answered")
	}
}

func TestClient_ClosesWhenSessionEnds(t *testing.T) {
	b := New()
	controls := newFakeControls()
	conn := startClient(t, b, controls)

	close(controls.done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.NoError(t, ctx.Err())
}
