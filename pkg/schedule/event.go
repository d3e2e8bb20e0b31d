package schedule

import "time"

const Collection = "events"

// Event is a stored calendar entry. Events are never edited; a series is a batch
// of events created together and sharing SeriesId.
type Event struct {
	Id       string    `doc:"-"`
	UserId   string    `doc:"userId"`
	Title    string    `doc:"title"`
	Start    time.Time `doc:"start"`
	End      time.Time `doc:"end"`
	SeriesId string    `doc:"seriesId"`
}

// HasEnd reports whether the event is closed; a zero End means open-ended.
func (e Event) HasEnd() bool {
	return !e.End.IsZero()
}

func (e Event) document() map[string]any {
	data := map[string]any{
		"userId": e.UserId,
		"title":  e.Title,
		"start":  e.Start.Format(time.RFC3339),
	}
	if e.HasEnd() {
		data["end"] = e.End.Format(time.RFC3339)
	}
	if e.SeriesId != "" {
		data["seriesId"] = e.SeriesId
	}
	return data
}
