package board

import "github.com/hangout-app/hangout/pkg/schedule"

// Outbound message types.
const (
	TypeItemAdded   = "item_added"
	TypeItemRemoved = "item_removed"
	TypeRender      = "render"
	TypeFriends     = "friends"
	TypeConfirm     = "confirm"
	TypeNotice      = "notice"
	TypeNavigate    = "navigate"
	TypePrefillDate = "prefill_date"
)

// Inbound message types.
const (
	TypeItemClick    = "item_click"
	TypeDateClick    = "date_click"
	TypeToggleFriend = "toggle_friend"
	TypeAnswer       = "answer"
)

// Message is pushed to the browser. Data depends on Type.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type RemovedItem struct {
	Id string `json:"id"`
}

type Prompt struct {
	PromptId string `json:"promptId"`
	Text     string `json:"text"`
}

type Notice struct {
	Text string `json:"text"`
}

type Navigation struct {
	Path string `json:"path"`
}

type Prefill struct {
	Date string `json:"date"`
}

// Command is sent by the browser.
type Command struct {
	Type     string `json:"type"`
	ItemId   string `json:"itemId,omitempty"`
	Date     string `json:"date,omitempty"`
	FriendId string `json:"friendId,omitempty"`
	On       bool   `json:"on,omitempty"`
	PromptId string `json:"promptId,omitempty"`
	Answer   bool   `json:"answer,omitempty"`
}

func itemAdded(item schedule.CalendarItem) Message {
	return Message{Type: TypeItemAdded, Data: item}
}

func itemRemoved(id string) Message {
	return Message{Type: TypeItemRemoved, Data: RemovedItem{Id: id}}
}
