package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/internal/eventloop"
	"github.com/hangout-app/hangout/pkg/color"
	"github.com/hangout-app/hangout/pkg/docstore"
	"github.com/hangout-app/hangout/pkg/friend"
	"github.com/hangout-app/hangout/pkg/hangout"
	"github.com/hangout-app/hangout/pkg/label"
	"github.com/hangout-app/hangout/pkg/recurrence"
	"github.com/hangout-app/hangout/pkg/settings"
	"github.com/hangout-app/hangout/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	viewer        = "me"
	defaultOwn    = "#3788d8"
	defaultFriend = "#6c757d"
	hangoutPage   = "/hangout.html"
)

type stubProfiles map[string]user.User

func (p stubProfiles) GetUser(ctx context.Context, id string) (user.User, error) {
	u, ok := p[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	u.Id = id
	return u, nil
}

type fixture struct {
	ctx      context.Context
	store    *docstore.MemoryStore
	page     *fakePage
	events   *EventServiceImpl
	settings *settings.RepositoryImpl
	hangouts *hangout.RepositoryImpl
	profiles stubProfiles
	rec      *Reconciler
}

func newFixture(t *testing.T) *fixture {
	store := docstore.NewMemoryStore(event_bus.NewEventBus())
	return &fixture{
		ctx:      context.Background(),
		store:    store,
		page:     &fakePage{},
		events:   NewEventService(NewRepository(store), time.UTC),
		settings: settings.NewRepository(store),
		hangouts: hangout.NewRepository(store),
		profiles: stubProfiles{
			"ana": {DisplayName: "Ana"},
			"bob": {Email: "bob@example.com"},
		},
	}
}

func (f *fixture) sources() Sources {
	return Sources{
		Events:   NewRepository(f.store),
		Hangouts: f.hangouts,
		Settings: f.settings,
		Friends:  friend.NewRepository(f.store),
	}
}

func (f *fixture) start(t *testing.T, exec eventloop.Executor) {
	t.Helper()
	f.rec = NewReconciler(
		viewer,
		f.page,
		f.page,
		f.sources(),
		f.events,
		color.NewResolver(defaultOwn, defaultFriend),
		label.NewCache(f.profiles),
		exec,
		Options{Location: time.UTC, HangoutPage: hangoutPage, Background: eventloop.Inline},
	)
	f.rec.Start(f.ctx)
	t.Cleanup(f.rec.Stop)
}

func (f *fixture) createEvents(t *testing.T, owner, title, date string, repeat recurrence.Unit, count int) CreateResult {
	t.Helper()
	result, err := f.events.CreateEvents(f.ctx, owner, CreateRequest{
		Title:     title,
		Date:      date,
		StartTime: "07:00",
		EndTime:   "08:00",
		Repeat:    repeat,
		Count:     count,
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) createHangout(t *testing.T, owner, title, date string) hangout.Hangout {
	t.Helper()
	h, err := f.hangouts.Create(f.ctx, hangout.Hangout{
		UserId:    owner,
		Title:     title,
		Date:      date,
		StartTime: "18:00",
		Status:    hangout.StatusPlanned,
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) befriend(t *testing.T, from, to string) string {
	t.Helper()
	id, err := f.store.Create(f.ctx, friend.Collection, map[string]any{
		"fromUserId": from,
		"toUserId":   to,
		"status":     string(friend.Accepted),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) storedEvents(t *testing.T) []Event {
	t.Helper()
	docs, err := f.store.Query(f.ctx, Collection, docstore.All())
	require.NoError(t, err)
	return decodeEvents(docs)
}

func TestReconciler_EndToEnd(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.settings.SetEventColor(f.ctx, viewer, "#ff0000"))
	require.NoError(t, f.settings.SetFriendColor(f.ctx, viewer, "ana", "#00aa00"))
	gym := f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.Week, 3)
	dinner := f.createEvents(t, "ana", "Dinner", "2025-01-07", recurrence.None, 1)
	study := f.createHangout(t, viewer, "Study", "2025-01-08")
	f.befriend(t, viewer, "ana")

	f.start(t, eventloop.Inline)

	assert.Equal(t, []string{"Gym", "Gym", "Gym", "Study"}, f.page.titles())
	for _, item := range f.page.Items() {
		assert.Equal(t, "#ff0000", item.Color, item.Title)
	}
	assert.Equal(t, []FriendToggle{{Id: "ana", Label: "Ana", Color: "#00aa00"}}, f.page.lastFriends())

	f.rec.ToggleFriend("ana", true)

	dinnerItem, ok := f.page.itemTitled("Dinner")
	require.True(t, ok)
	assert.Equal(t, FriendItemId("ana", dinner.Ids[0]), dinnerItem.Id)
	assert.Equal(t, "Ana: Dinner", dinnerItem.Title)
	assert.Equal(t, "#00aa00", dinnerItem.Color)
	assert.True(t, f.page.lastFriends()[0].Watched)

	f.page.answer(true)
	assert.Equal(t, Navigated, f.rec.HandleItemClick(f.ctx, study.Id))
	assert.Equal(t, []string{hangoutPage}, f.page.navigations)

	assert.Equal(t, ReadOnlyNotice, f.rec.HandleItemClick(f.ctx, dinnerItem.Id))
	assert.Equal(t, []string{"This event belongs to Ana and can't be deleted."}, f.page.notices)

	firstGym, ok := f.page.itemTitled("Gym")
	require.True(t, ok)
	f.page.answer(true, false)
	assert.Equal(t, DeletedOne, f.rec.HandleItemClick(f.ctx, firstGym.Id))
	assert.Contains(t, f.page.questions, `Delete event "Gym" on Mon Jan 06 2025?`)

	assert.ElementsMatch(t, []string{"Gym", "Gym", "Study", "Ana: Dinner"}, f.page.titles())
	stored := f.storedEvents(t)
	assert.Len(t, stored, 3)
	for _, e := range stored {
		assert.NotEqual(t, firstGym.Meta.RecordId, e.Id)
		if e.Title == "Gym" {
			assert.Equal(t, gym.SeriesId, e.SeriesId)
		}
	}
}

func TestReconciler_DeleteWholeSeries(t *testing.T) {
	f := newFixture(t)
	gym := f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.Week, 3)
	f.start(t, eventloop.Inline)

	item, ok := f.page.itemTitled("Gym")
	require.True(t, ok)
	assert.Equal(t, gym.SeriesId, item.Meta.SeriesId)

	f.page.answer(true, true)
	assert.Equal(t, DeletedSeries, f.rec.HandleItemClick(f.ctx, item.Id))

	assert.Empty(t, f.page.itemsOf(OwnEvent))
	assert.Empty(t, f.storedEvents(t))
}

func TestReconciler_DeleteCancelled(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.Week, 3)
	f.start(t, eventloop.Inline)
	item, _ := f.page.itemTitled("Gym")

	f.page.answer(false)
	assert.Equal(t, DeleteCancelled, f.rec.HandleItemClick(f.ctx, item.Id))

	assert.Len(t, f.page.questions, 1)
	assert.Len(t, f.storedEvents(t), 3)
	assert.Len(t, f.page.itemsOf(OwnEvent), 3)
}

func TestReconciler_SingleEventAsksOnce(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, viewer, "Dentist", "2025-02-03", recurrence.None, 1)
	f.start(t, eventloop.Inline)
	item, _ := f.page.itemTitled("Dentist")

	f.page.answer(true)
	assert.Equal(t, DeletedOne, f.rec.HandleItemClick(f.ctx, item.Id))

	assert.Len(t, f.page.questions, 1)
	assert.Empty(t, f.page.Items())
}

func TestReconciler_DeleteFailureNotifies(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.Week, 2)
	f.start(t, eventloop.Inline)
	item, _ := f.page.itemTitled("Gym")
	f.store.SetFault(func(op docstore.Op, collection, id string) error {
		if op == docstore.OpDelete {
			return errors.New("permission denied")
		}
		return nil
	})

	f.page.answer(true, false)
	assert.Equal(t, DeleteFailed, f.rec.HandleItemClick(f.ctx, item.Id))

	assert.Equal(t, []string{"Could not delete the event. Please try again."}, f.page.notices)
	assert.Len(t, f.page.itemsOf(OwnEvent), 2)
}

func TestReconciler_NavigationCancelledAndUnknownItem(t *testing.T) {
	f := newFixture(t)
	study := f.createHangout(t, viewer, "Study", "2025-01-08")
	f.start(t, eventloop.Inline)

	f.page.answer(false)
	assert.Equal(t, NavigationCancelled, f.rec.HandleItemClick(f.ctx, study.Id))
	assert.Empty(t, f.page.navigations)

	assert.Equal(t, ClickIgnored, f.rec.HandleItemClick(f.ctx, "nope"))
}

func TestReconciler_SourcesOnlyReplaceTheirOwnGroup(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.Week, 2)
	study := f.createHangout(t, viewer, "Study", "2025-01-08")
	f.createEvents(t, "ana", "Dinner", "2025-01-07", recurrence.None, 1)
	f.befriend(t, viewer, "ana")
	f.start(t, eventloop.Inline)
	f.rec.ToggleFriend("ana", true)
	own := f.page.itemsOf(OwnEvent)
	friendItems := f.page.itemsOf(FriendEvent)
	require.Len(t, own, 2)
	require.Len(t, friendItems, 1)

	f.page.resetLog()
	lunch := f.createHangout(t, viewer, "Lunch", "2025-01-09")

	assert.ElementsMatch(t, []string{study.Id}, f.page.removed)
	assert.ElementsMatch(t, []string{study.Id, lunch.Id}, f.page.added)

	f.page.resetLog()
	f.createEvents(t, "ana", "Climbing", "2025-01-10", recurrence.None, 1)

	assert.Equal(t, []string{friendItems[0].Id}, f.page.removed)
	assert.Len(t, f.page.added, 2)
	assert.ElementsMatch(t, own, f.page.itemsOf(OwnEvent))
	assert.Len(t, f.page.itemsOf(HangoutItem), 2)
}

func TestReconciler_SkipsUndecodableRecords(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(f.ctx, Collection, map[string]any{"userId": viewer, "title": "Broken", "start": "2025-11-10"})
	require.NoError(t, err)
	_, err = f.store.Create(f.ctx, Collection, map[string]any{"userId": "ana", "title": "Broken", "start": "tomorrow"})
	require.NoError(t, err)
	_, err = f.store.Create(f.ctx, friend.Collection, map[string]any{
		"fromUserId": viewer,
		"toUserId":   map[string]any{"id": "bob"},
		"status":     string(friend.Accepted),
	})
	require.NoError(t, err)
	f.befriend(t, viewer, "ana")
	f.start(t, eventloop.Inline)
	f.rec.ToggleFriend("ana", true)

	f.createEvents(t, viewer, "Gym", "2025-11-10", recurrence.None, 1)
	f.createEvents(t, viewer, "Swim", "2025-11-11", recurrence.None, 1)
	f.createEvents(t, "ana", "Dinner", "2025-11-12", recurrence.None, 1)

	assert.ElementsMatch(t, []string{"Gym", "Swim", "Ana: Dinner"}, f.page.titles())
	friends := f.page.lastFriends()
	require.Len(t, friends, 1)
	assert.Equal(t, "ana", friends[0].Id)
	assert.True(t, friends[0].Watched)
}

func TestReconciler_SameSnapshotTwiceIsStable(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.Week, 3)
	f.createHangout(t, viewer, "Study", "2025-01-08")
	f.start(t, eventloop.Inline)
	before := f.page.Items()
	events := f.storedEvents(t)

	f.rec.applyOwnEvents(events)
	f.rec.applyOwnEvents(events)

	after := f.page.Items()
	assert.Len(t, after, len(before))
	assert.ElementsMatch(t, before, after)
}

func TestReconciler_UnfriendStopsWatching(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, "ana", "Dinner", "2025-01-07", recurrence.None, 1)
	friendship := f.befriend(t, viewer, "ana")
	f.start(t, eventloop.Inline)
	f.rec.ToggleFriend("ana", true)
	require.Len(t, f.page.itemsOf(FriendEvent), 1)
	subscriptions := f.store.SubscriptionCount()

	require.NoError(t, f.store.Delete(f.ctx, friend.Collection, friendship))

	assert.Empty(t, f.page.itemsOf(FriendEvent))
	assert.Equal(t, 0, f.rec.subs.Count())
	assert.Equal(t, subscriptions-1, f.store.SubscriptionCount())
	assert.Empty(t, f.page.lastFriends())

	f.createEvents(t, "ana", "Brunch", "2025-01-12", recurrence.None, 1)
	assert.Empty(t, f.page.itemsOf(FriendEvent))

	f.rec.ToggleFriend("ana", true)
	assert.Equal(t, 0, f.rec.subs.Count())
}

func TestReconciler_ToggleFriendOffAndStrangers(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, "ana", "Dinner", "2025-01-07", recurrence.None, 1)
	f.createEvents(t, "bob", "Chess", "2025-01-07", recurrence.None, 1)
	f.befriend(t, "ana", viewer)
	f.start(t, eventloop.Inline)

	f.rec.ToggleFriend("bob", true)
	assert.Equal(t, 0, f.rec.subs.Count())

	f.rec.ToggleFriend("ana", true)
	f.rec.ToggleFriend("ana", true)
	assert.Equal(t, 1, f.rec.subs.Count())
	assert.Len(t, f.page.itemsOf(FriendEvent), 1)

	f.rec.ToggleFriend("ana", false)
	assert.Empty(t, f.page.itemsOf(FriendEvent))
	assert.False(t, f.page.lastFriends()[0].Watched)
}

func TestReconciler_RecolorsOnSettingsChange(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.Week, 2)
	f.createEvents(t, "ana", "Dinner", "2025-01-07", recurrence.None, 1)
	f.befriend(t, viewer, "ana")
	f.start(t, eventloop.Inline)
	f.rec.ToggleFriend("ana", true)
	for _, item := range f.page.Items() {
		if item.Meta.Kind == OwnEvent {
			assert.Equal(t, defaultOwn, item.Color)
		} else {
			assert.Equal(t, defaultFriend, item.Color)
		}
	}

	require.NoError(t, f.settings.SetEventColor(f.ctx, viewer, "#123456"))
	require.NoError(t, f.settings.SetFriendColor(f.ctx, viewer, "ana", "#abcdef"))

	for _, item := range f.page.itemsOf(OwnEvent) {
		assert.Equal(t, "#123456", item.Color)
	}
	assert.Equal(t, "#abcdef", f.page.itemsOf(FriendEvent)[0].Color)
	assert.Equal(t, "#abcdef", f.page.lastFriends()[0].Color)
}

func TestReconciler_StaleCallbacksAfterStop(t *testing.T) {
	f := newFixture(t)
	f.createEvents(t, viewer, "Gym", "2025-01-06", recurrence.None, 1)
	var queued []func()
	f.start(t, func(fn func()) { queued = append(queued, fn) })
	require.NotEmpty(t, queued)

	f.rec.Stop()
	for _, fn := range queued {
		fn()
	}

	assert.Empty(t, f.page.Items())
	assert.Equal(t, 0, f.store.SubscriptionCount())
}

func TestReconciler_DateClickPrefillsForm(t *testing.T) {
	f := newFixture(t)
	f.start(t, eventloop.Inline)

	f.rec.HandleDateClick(time.Date(2025, 3, 4, 23, 30, 0, 0, time.UTC))

	assert.Equal(t, []string{"2025-03-04"}, f.page.prefills)
}

func TestClickOutcome_String(t *testing.T) {
	assert.Equal(t, "deleted-series", DeletedSeries.String())
	assert.Equal(t, "ignored", ClickIgnored.String())
}
