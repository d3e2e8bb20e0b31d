package schedule

import (
	"github.com/hangout-app/hangout/internal/eventloop"
	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

// EventSource opens live queries on one owner's events.
type EventSource interface {
	WatchByOwner(ownerId string, onNext func([]Event), onError func(error)) docstore.Cancel
}

type watchHandle struct {
	friendId   string
	friendName string
	cancel     docstore.Cancel
	live       bool
}

// Subscriptions keeps one live query per watched friend. All methods and callbacks
// run on the session loop; store callbacks are posted through exec and dropped if
// their handle was unwatched in the meantime.
type Subscriptions struct {
	source  EventSource
	exec    eventloop.Executor
	handles map[string]*watchHandle

	onSnapshot func(friendId string, friendName string, events []Event)
	onClosed   func(friendId string)
}

func NewSubscriptions(
	source EventSource,
	exec eventloop.Executor,
	onSnapshot func(friendId string, friendName string, events []Event),
	onClosed func(friendId string),
) *Subscriptions {
	return &Subscriptions{
		source:     source,
		exec:       exec,
		handles:    make(map[string]*watchHandle),
		onSnapshot: onSnapshot,
		onClosed:   onClosed,
	}
}

// Watch opens the friend's live query. It returns false when the friend is
// already watched.
func (s *Subscriptions) Watch(friendId string, friendName string) bool {
	if _, ok := s.handles[friendId]; ok {
		return false
	}
	h := &watchHandle{friendId: friendId, friendName: friendName, live: true}
	s.handles[friendId] = h
	log.Debugf("watching events of %s", friendId)

	h.cancel = s.source.WatchByOwner(friendId,
		func(events []Event) {
			s.exec(func() {
				if !h.live {
					return
				}
				s.onSnapshot(h.friendId, h.friendName, events)
			})
		},
		func(err error) {
			log.Errorf("live query on events of %s failed, keeping last snapshot: %v", friendId, err)
		},
	)
	return true
}

// Unwatch closes the friend's live query and drops the friend's items. It returns
// false when the friend was not watched.
func (s *Subscriptions) Unwatch(friendId string) bool {
	h, ok := s.handles[friendId]
	if !ok {
		return false
	}
	h.live = false
	delete(s.handles, friendId)
	h.cancel()
	log.Debugf("stopped watching events of %s", friendId)
	s.onClosed(friendId)
	return true
}

// Retain unwatches every friend not in accepted and returns their ids.
func (s *Subscriptions) Retain(accepted []string) []string {
	keep := make(map[string]bool, len(accepted))
	for _, id := range accepted {
		keep[id] = true
	}
	removed := make([]string, 0)
	for id := range s.handles {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		s.Unwatch(id)
	}
	return removed
}

func (s *Subscriptions) IsWatched(friendId string) bool {
	_, ok := s.handles[friendId]
	return ok
}

func (s *Subscriptions) Count() int {
	return len(s.handles)
}

// Close unwatches everyone.
func (s *Subscriptions) Close() {
	for id := range s.handles {
		s.Unwatch(id)
	}
}
