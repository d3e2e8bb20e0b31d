package schedule

import "context"

// Widget is the calendar on the page. It keeps the displayed items; the
// reconciler is its only writer.
type Widget interface {
	AddItem(item CalendarItem)
	RemoveItem(id string)
	Items() []CalendarItem
	Render()
}

// FriendToggle is one entry of the friend list next to the calendar.
type FriendToggle struct {
	Id      string `json:"id"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	Watched bool   `json:"watched"`
}

// Surface is the rest of the page: prompts, notices and the create-event form.
type Surface interface {
	// Confirm asks a yes/no question and waits for the answer.
	Confirm(ctx context.Context, question string) (bool, error)
	Notify(message string)
	Navigate(path string)
	// PrefillDate puts date (yyyy-mm-dd) into the form and focuses the title field.
	PrefillDate(date string)
	ShowFriends(friends []FriendToggle)
}
