package schedule

import (
	"time"

	"github.com/hangout-app/hangout/pkg/hangout"
)

// ProjectEvent turns a stored event into a calendar item. Friend items get a
// friend-scoped id and the owner's name in front of the title. Color is left for
// the reconciler to fill in.
func ProjectEvent(e Event, kind Kind, ownerName string) CalendarItem {
	item := CalendarItem{
		Id:    e.Id,
		Title: e.Title,
		Start: e.Start,
		End:   e.End,
		Meta: ItemMeta{
			Kind:      kind,
			OwnerId:   e.UserId,
			OwnerName: ownerName,
			SeriesId:  e.SeriesId,
			RecordId:  e.Id,
		},
	}
	if kind == FriendEvent {
		item.Id = FriendItemId(e.UserId, e.Id)
		item.Title = ownerName + ": " + e.Title
	}
	return item
}

// ProjectHangout turns a hangout into a read-only calendar item starting at its
// date and start time (midnight when absent) in loc.
func ProjectHangout(h hangout.Hangout, ownerName string, loc *time.Location) (CalendarItem, error) {
	start, err := h.Start(loc)
	if err != nil {
		return CalendarItem{}, err
	}
	end, _, err := h.End(loc)
	if err != nil {
		return CalendarItem{}, err
	}
	return CalendarItem{
		Id:    h.Id,
		Title: h.Title,
		Start: start,
		End:   end,
		Meta: ItemMeta{
			Kind:      HangoutItem,
			OwnerId:   h.UserId,
			OwnerName: ownerName,
			RecordId:  h.Id,
		},
	}, nil
}
