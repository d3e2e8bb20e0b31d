package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hangout-app/hangout/pkg/recurrence"
	log "github.com/sirupsen/logrus"
)

var (
	ErrValidation    = errors.New("please fill in title, date, start and end time")
	ErrPartialCreate = errors.New("saving failed, some events may have been created")
	ErrNotOwner      = errors.New("event belongs to another user")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// CreateRequest carries the create-event form fields as entered.
type CreateRequest struct {
	Title     string
	Date      string
	StartTime string
	EndTime   string
	Repeat    recurrence.Unit
	Count     int
}

type CreateResult struct {
	Ids      []string
	SeriesId string
}

type EventService interface {
	CreateEvents(ctx context.Context, ownerId string, req CreateRequest) (CreateResult, error)
	DeleteEvent(ctx context.Context, ownerId string, eventId string) error
	// DeleteSeries deletes every event of the owner's series and returns how many
	// were found.
	DeleteSeries(ctx context.Context, ownerId string, seriesId string) (int, error)
}

type EventServiceImpl struct {
	repo  Repository
	loc   *time.Location
	newId func() string
}

func NewEventService(repo Repository, loc *time.Location) *EventServiceImpl {
	return &EventServiceImpl{repo: repo, loc: loc, newId: uuid.NewString}
}

// CreateEvents validates the form, expands the repeat and writes one event per
// occurrence. Writes are independent: when some fail, the others stay and the
// error wraps ErrPartialCreate.
func (s *EventServiceImpl) CreateEvents(ctx context.Context, ownerId string, req CreateRequest) (CreateResult, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || req.Date == "" || req.StartTime == "" || req.EndTime == "" {
		return CreateResult{}, ErrValidation
	}
	day, err := time.ParseInLocation(dateLayout, req.Date, s.loc)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: invalid date %q", ErrValidation, req.Date)
	}
	startClock, err := time.Parse(timeLayout, req.StartTime)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: invalid start time %q", ErrValidation, req.StartTime)
	}
	endClock, err := time.Parse(timeLayout, req.EndTime)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: invalid end time %q", ErrValidation, req.EndTime)
	}
	if endClock.Before(startClock) {
		return CreateResult{}, fmt.Errorf("%w: end time is before start time", ErrValidation)
	}

	dates, err := recurrence.Expand(day, req.Repeat, req.Count)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var seriesId string
	if len(dates) > 1 {
		seriesId = s.newId()
	}
	events := make([]Event, 0, len(dates))
	for _, d := range dates {
		events = append(events, Event{
			UserId:   ownerId,
			Title:    title,
			Start:    atClock(d, startClock),
			End:      atClock(d, endClock),
			SeriesId: seriesId,
		})
	}

	ids, err := s.repo.CreateAll(ctx, events)
	created := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			created = append(created, id)
		}
	}
	result := CreateResult{Ids: created, SeriesId: seriesId}
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrPartialCreate, err)
	}
	log.Debugf("Created %d event(s) for %s", len(created), ownerId)
	return result, nil
}

// DeleteEvent deletes a single event. Other events of its series keep their
// series id and are not touched.
func (s *EventServiceImpl) DeleteEvent(ctx context.Context, ownerId string, eventId string) error {
	e, err := s.repo.Get(ctx, eventId)
	if err != nil {
		return err
	}
	if e.UserId != ownerId {
		return ErrNotOwner
	}
	return s.repo.Delete(ctx, eventId)
}

func (s *EventServiceImpl) DeleteSeries(ctx context.Context, ownerId string, seriesId string) (int, error) {
	if seriesId == "" {
		return 0, fmt.Errorf("%w: missing series id", ErrValidation)
	}
	events, err := s.repo.ListSeries(ctx, ownerId, seriesId)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.Id)
	}
	if err := s.repo.DeleteAll(ctx, ids); err != nil {
		return len(ids), err
	}
	log.Debugf("Deleted series %s (%d events) of %s", seriesId, len(ids), ownerId)
	return len(ids), nil
}

func atClock(day time.Time, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location())
}
