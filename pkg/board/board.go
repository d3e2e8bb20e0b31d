// Package board mirrors a schedule page to the browser over a websocket.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/hangout-app/hangout/pkg/schedule"
	log "github.com/sirupsen/logrus"
)

const outboxSize = 64

var ErrClosed = errors.New("board closed")

// Board is the server-side copy of one browser's calendar. Widget and surface
// calls come from the session loop; answers to prompts come from the connection.
type Board struct {
	order []string
	items map[string]schedule.CalendarItem

	outbox    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	pending map[string]chan bool
}

func New() *Board {
	return &Board{
		items:   make(map[string]schedule.CalendarItem),
		outbox:  make(chan []byte, outboxSize),
		closed:  make(chan struct{}),
		pending: make(map[string]chan bool),
	}
}

func (b *Board) AddItem(item schedule.CalendarItem) {
	if _, ok := b.items[item.Id]; !ok {
		b.order = append(b.order, item.Id)
	}
	b.items[item.Id] = item
	b.emit(itemAdded(item))
}

func (b *Board) RemoveItem(id string) {
	if _, ok := b.items[id]; !ok {
		return
	}
	delete(b.items, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.emit(itemRemoved(id))
}

func (b *Board) Items() []schedule.CalendarItem {
	items := make([]schedule.CalendarItem, 0, len(b.order))
	for _, id := range b.order {
		items = append(items, b.items[id])
	}
	return items
}

func (b *Board) Render() {
	b.emit(Message{Type: TypeRender})
}

// Confirm sends the question to the browser and waits for its answer, for ctx
// to end, or for the board to close.
func (b *Board) Confirm(ctx context.Context, question string) (bool, error) {
	id := uuid.NewString()
	answer := make(chan bool, 1)
	b.mu.Lock()
	b.pending[id] = answer
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	b.emit(Message{Type: TypeConfirm, Data: Prompt{PromptId: id, Text: question}})

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-b.closed:
		return false, ErrClosed
	}
}

// Answer resolves a pending prompt. It reports false for unknown or already
// answered prompts.
func (b *Board) Answer(promptId string, ok bool) bool {
	b.mu.Lock()
	answer, found := b.pending[promptId]
	delete(b.pending, promptId)
	b.mu.Unlock()
	if !found {
		return false
	}
	answer <- ok
	return true
}

func (b *Board) Notify(message string) {
	b.emit(Message{Type: TypeNotice, Data: Notice{Text: message}})
}

func (b *Board) Navigate(path string) {
	b.emit(Message{Type: TypeNavigate, Data: Navigation{Path: path}})
}

func (b *Board) PrefillDate(date string) {
	b.emit(Message{Type: TypePrefillDate, Data: Prefill{Date: date}})
}

func (b *Board) ShowFriends(friends []schedule.FriendToggle) {
	if friends == nil {
		friends = []schedule.FriendToggle{}
	}
	b.emit(Message{Type: TypeFriends, Data: friends})
}

// Outbox yields the encoded messages for the connection to write.
func (b *Board) Outbox() <-chan []byte {
	return b.outbox
}

// Close releases waiting prompts and stops accepting messages.
func (b *Board) Close() {
	b.closeOnce.Do(func() { close(b.closed) })
}

func (b *Board) Closed() <-chan struct{} {
	return b.closed
}

// emit waits for room in the outbox; the calendar must not skip messages.
func (b *Board) emit(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("could not encode %s message: %v", msg.Type, err)
		return
	}
	select {
	case <-b.closed:
		return
	default:
	}
	select {
	case b.outbox <- data:
	case <-b.closed:
	}
}
