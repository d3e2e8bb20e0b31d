package schedule

import (
	"fmt"
	"time"
)

// Kind tells which group a calendar item belongs to.
type Kind string

const (
	OwnEvent    Kind = "own-event"
	HangoutItem Kind = "hangout"
	FriendEvent Kind = "friend-event"
)

// ItemMeta travels with an item through the widget and comes back on click.
type ItemMeta struct {
	Kind      Kind   `json:"kind"`
	OwnerId   string `json:"ownerId"`
	OwnerName string `json:"ownerName,omitempty"`
	SeriesId  string `json:"seriesId,omitempty"`
	RecordId  string `json:"recordId"`
}

// CalendarItem is what the widget displays. A zero End means no end.
type CalendarItem struct {
	Id    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitzero"`
	Color string    `json:"color"`
	Meta  ItemMeta  `json:"meta"`
}

func FriendItemId(friendId string, recordId string) string {
	return fmt.Sprintf("friend_%s_%s", friendId, recordId)
}

// group identifies the source an item was projected from: the viewer's events,
// the viewer's hangouts, or one friend's events.
type group struct {
	kind     Kind
	friendId string
}

func ownEventsGroup() group { return group{kind: OwnEvent} }
func hangoutsGroup() group { return group{kind: HangoutItem} }
func friendGroup(id string) group { return group{kind: FriendEvent, friendId: id} }

func (g group) contains(item CalendarItem) bool {
	if item.Meta.Kind != g.kind {
		return false
	}
	return g.kind != FriendEvent || item.Meta.OwnerId == g.friendId
}
