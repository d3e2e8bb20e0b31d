package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hangout-app/hangout/internal/eventloop"
	"github.com/hangout-app/hangout/pkg/color"
	"github.com/hangout-app/hangout/pkg/docstore"
	"github.com/hangout-app/hangout/pkg/hangout"
	"github.com/hangout-app/hangout/pkg/label"
	"github.com/hangout-app/hangout/pkg/settings"
	log "github.com/sirupsen/logrus"
)

type HangoutSource interface {
	WatchByOwner(userId string, onNext func([]hangout.Hangout), onError func(error)) docstore.Cancel
}

type SettingsSource interface {
	Watch(userId string, onNext func(settings.DisplaySettings), onError func(error)) docstore.Cancel
}

type FriendSource interface {
	WatchAccepted(viewerId string, onNext func([]string), onError func(error)) docstore.Cancel
}

// Sources are the live queries a schedule page follows.
type Sources struct {
	Events   EventSource
	Hangouts HangoutSource
	Settings SettingsSource
	Friends  FriendSource
}

type Options struct {
	Location      *time.Location
	HangoutPage   string
	PromptTimeout time.Duration
	// Background runs blocking lookups off the loop; defaults to a new goroutine.
	Background eventloop.Executor
}

// ClickOutcome is what a click on a calendar item led to.
type ClickOutcome int

const (
	ClickIgnored ClickOutcome = iota
	Navigated
	NavigationCancelled
	ReadOnlyNotice
	DeleteCancelled
	DeletedOne
	DeletedSeries
	DeleteFailed
)

func (o ClickOutcome) String() string {
	switch o {
	case Navigated:
		return "navigated"
	case NavigationCancelled:
		return "navigation-cancelled"
	case ReadOnlyNotice:
		return "read-only"
	case DeleteCancelled:
		return "delete-cancelled"
	case DeletedOne:
		return "deleted-one"
	case DeletedSeries:
		return "deleted-series"
	case DeleteFailed:
		return "delete-failed"
	}
	return "ignored"
}

// Reconciler keeps the widget equal to the union of the latest snapshots of the
// viewer's events, the viewer's hangouts and every watched friend's events.
// Each source replaces only its own group of items. It is not safe for
// concurrent use: every method must run on the session loop that exec posts to.
type Reconciler struct {
	viewerId string
	widget   Widget
	surface  Surface
	sources  Sources
	events   EventService
	resolver color.Resolver
	labels   *label.Cache
	exec     eventloop.Executor
	opts     Options

	ctx     context.Context
	colors  color.Settings
	friends []string
	wanted  map[string]bool
	subs    *Subscriptions
	cancels []docstore.Cancel
	stopped bool
}

func NewReconciler(
	viewerId string,
	widget Widget,
	surface Surface,
	sources Sources,
	events EventService,
	resolver color.Resolver,
	labels *label.Cache,
	exec eventloop.Executor,
	opts Options,
) *Reconciler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Background == nil {
		opts.Background = func(fn func()) { go fn() }
	}
	r := &Reconciler{
		viewerId: viewerId,
		widget:   widget,
		surface:  surface,
		sources:  sources,
		events:   events,
		resolver: resolver,
		labels:   labels,
		exec:     exec,
		opts:     opts,
		ctx:      context.Background(),
		wanted:   make(map[string]bool),
	}
	r.subs = NewSubscriptions(sources.Events, exec, r.applyFriendEvents, r.removeFriendItems)
	return r
}

// Start opens the viewer's live queries. ctx bounds the remote calls the
// reconciler makes on the viewer's behalf.
func (r *Reconciler) Start(ctx context.Context) {
	r.ctx = ctx
	r.cancels = append(r.cancels,
		r.sources.Settings.Watch(r.viewerId, live(r, r.applySettings), logFailure("settings")),
		r.sources.Events.WatchByOwner(r.viewerId, live(r, r.applyOwnEvents), logFailure("own events")),
		r.sources.Hangouts.WatchByOwner(r.viewerId, live(r, r.applyHangouts), logFailure("hangouts")),
		r.sources.Friends.WatchAccepted(r.viewerId, live(r, r.applyFriends), logFailure("friends")),
	)
}

// Stop closes every live query. Callbacks still queued on the loop become no-ops.
func (r *Reconciler) Stop() {
	if r.stopped {
		return
	}
	r.stopped = true
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil
	r.subs.Close()
}

// live posts store callbacks onto the loop and drops them once the reconciler stopped.
func live[T any](r *Reconciler, apply func(T)) func(T) {
	return func(v T) {
		r.exec(func() {
			if r.stopped {
				return
			}
			apply(v)
		})
	}
}

func logFailure(source string) func(error) {
	return func(err error) {
		log.Errorf("live query on %s failed, keeping last snapshot: %v", source, err)
	}
}

func (r *Reconciler) applyOwnEvents(events []Event) {
	items := make([]CalendarItem, 0, len(events))
	for _, e := range events {
		items = append(items, ProjectEvent(e, OwnEvent, ""))
	}
	r.replaceGroup(ownEventsGroup(), items)
}

func (r *Reconciler) applyHangouts(hangouts []hangout.Hangout) {
	items := make([]CalendarItem, 0, len(hangouts))
	for _, h := range hangouts {
		item, err := ProjectHangout(h, "", r.opts.Location)
		if err != nil {
			log.Warnf("skipping hangout %s: %v", h.Id, err)
			continue
		}
		items = append(items, item)
	}
	r.replaceGroup(hangoutsGroup(), items)
}

func (r *Reconciler) applyFriendEvents(friendId string, friendName string, events []Event) {
	items := make([]CalendarItem, 0, len(events))
	for _, e := range events {
		items = append(items, ProjectEvent(e, FriendEvent, friendName))
	}
	r.replaceGroup(friendGroup(friendId), items)
}

func (r *Reconciler) removeFriendItems(friendId string) {
	r.removeGroup(friendGroup(friendId))
	r.widget.Render()
}

func (r *Reconciler) applySettings(s settings.DisplaySettings) {
	r.colors = s.Colors()
	r.recolorAll()
	r.publishFriends()
}

// applyFriends takes the accepted friend ids and unwatches anyone no longer among them.
func (r *Reconciler) applyFriends(ids []string) {
	r.friends = ids
	for _, id := range r.subs.Retain(ids) {
		log.Debugf("%s is no longer a friend of %s", id, r.viewerId)
		delete(r.wanted, id)
	}
	for id := range r.wanted {
		if !r.isFriend(id) {
			delete(r.wanted, id)
		}
	}
	r.publishFriends()
}

// replaceGroup removes the group's current items and adds items in their place.
func (r *Reconciler) replaceGroup(g group, items []CalendarItem) {
	r.removeGroup(g)
	for _, item := range items {
		item.Color = r.colorFor(item.Meta.OwnerId)
		r.widget.AddItem(item)
	}
	r.widget.Render()
}

func (r *Reconciler) removeGroup(g group) {
	for _, item := range r.widget.Items() {
		if g.contains(item) {
			r.widget.RemoveItem(item.Id)
		}
	}
}

func (r *Reconciler) recolorAll() {
	changed := false
	for _, item := range r.widget.Items() {
		c := r.colorFor(item.Meta.OwnerId)
		if item.Color == c {
			continue
		}
		r.widget.RemoveItem(item.Id)
		item.Color = c
		r.widget.AddItem(item)
		changed = true
	}
	if changed {
		r.widget.Render()
	}
}

func (r *Reconciler) colorFor(ownerId string) string {
	return r.resolver.ColorFor(ownerId, r.viewerId, r.colors)
}

func (r *Reconciler) isFriend(id string) bool {
	for _, f := range r.friends {
		if f == id {
			return true
		}
	}
	return false
}

// ToggleFriend shows or hides a friend's events. Only accepted friends can be shown.
func (r *Reconciler) ToggleFriend(friendId string, on bool) {
	if !on {
		delete(r.wanted, friendId)
		r.subs.Unwatch(friendId)
		r.publishFriends()
		return
	}
	if !r.isFriend(friendId) {
		log.Warnf("%s asked to watch %s who is not an accepted friend", r.viewerId, friendId)
		return
	}
	r.wanted[friendId] = true
	watch := func() {
		if !r.wanted[friendId] || !r.isFriend(friendId) {
			return
		}
		name, _ := r.labels.Peek(friendId)
		r.subs.Watch(friendId, name)
		r.publishFriends()
	}
	if _, ok := r.labels.Peek(friendId); ok {
		watch()
		return
	}
	r.resolveLabels([]string{friendId}, watch)
}

func (r *Reconciler) publishFriends() {
	toggles := make([]FriendToggle, 0, len(r.friends))
	missing := make([]string, 0)
	for _, id := range r.friends {
		name, ok := r.labels.Peek(id)
		if !ok {
			name = id
			missing = append(missing, id)
		}
		toggles = append(toggles, FriendToggle{
			Id:      id,
			Label:   name,
			Color:   r.colorFor(id),
			Watched: r.subs.IsWatched(id),
		})
	}
	r.surface.ShowFriends(toggles)
	if len(missing) > 0 {
		r.resolveLabels(missing, r.publishFriends)
	}
}

// resolveLabels reads the labels off the loop, then runs then on the loop.
func (r *Reconciler) resolveLabels(ids []string, then func()) {
	ctx := r.ctx
	r.opts.Background(func() {
		for _, id := range ids {
			r.labels.Label(ctx, id)
		}
		r.exec(func() {
			if r.stopped {
				return
			}
			then()
		})
	})
}

// HandleDateClick pre-fills the create-event form with the clicked day.
func (r *Reconciler) HandleDateClick(day time.Time) {
	r.surface.PrefillDate(day.In(r.opts.Location).Format(dateLayout))
}

// HandleItemClick runs the click flow for the displayed item with the given id.
// Hangouts only navigate, other people's events are read-only, and the viewer's
// own events can be deleted alone or with their series. Deletions are not
// mirrored locally; the next snapshot removes the items.
func (r *Reconciler) HandleItemClick(ctx context.Context, itemId string) ClickOutcome {
	item, ok := r.findItem(itemId)
	if !ok {
		log.Debugf("click on unknown item %s", itemId)
		return ClickIgnored
	}

	switch {
	case item.Meta.Kind == HangoutItem:
		if !r.confirm(ctx, fmt.Sprintf("Open hangout %q on the hangouts page?", item.Title)) {
			return NavigationCancelled
		}
		r.surface.Navigate(r.opts.HangoutPage)
		return Navigated

	case item.Meta.OwnerId != r.viewerId:
		owner := item.Meta.OwnerName
		if owner == "" {
			owner = item.Meta.OwnerId
		}
		r.surface.Notify(fmt.Sprintf("This event belongs to %s and can't be deleted.", owner))
		return ReadOnlyNotice
	}

	day := item.Start.In(r.opts.Location).Format("Mon Jan 02 2006")
	if !r.confirm(ctx, fmt.Sprintf("Delete event %q on %s?", item.Title, day)) {
		return DeleteCancelled
	}

	if item.Meta.SeriesId != "" &&
		r.confirm(ctx, "This event is part of a repeating series. Delete the whole series? Cancel deletes only this event.") {
		if _, err := r.events.DeleteSeries(ctx, r.viewerId, item.Meta.SeriesId); err != nil {
			log.Errorf("failed to delete series %s: %v", item.Meta.SeriesId, err)
			r.surface.Notify("Could not delete the series. Some events may remain.")
			return DeleteFailed
		}
		return DeletedSeries
	}

	if err := r.events.DeleteEvent(ctx, r.viewerId, item.Meta.RecordId); err != nil {
		log.Errorf("failed to delete event %s: %v", item.Meta.RecordId, err)
		if errors.Is(err, ErrEventNotFound) {
			r.surface.Notify("This event no longer exists.")
		} else {
			r.surface.Notify("Could not delete the event. Please try again.")
		}
		return DeleteFailed
	}
	return DeletedOne
}

func (r *Reconciler) confirm(ctx context.Context, question string) bool {
	if r.opts.PromptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.PromptTimeout)
		defer cancel()
	}
	ok, err := r.surface.Confirm(ctx, question)
	if err != nil {
		log.Debugf("prompt %q not answered: %v", question, err)
		return false
	}
	return ok
}

func (r *Reconciler) findItem(id string) (CalendarItem, bool) {
	for _, item := range r.widget.Items() {
		if item.Id == id {
			return item, true
		}
	}
	return CalendarItem{}, false
}
