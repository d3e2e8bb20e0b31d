package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hangout-app/hangout/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

type queryFunc func(ctx context.Context, collection string, filter Filter) ([]Document, error)

// feed turns collection change announcements on the bus into live query snapshots.
// A subscription re-runs its query on every change to its collection and delivers
// the result only when the matched set (ids and revisions) differs from the last one.
type feed struct {
	bus   *event_bus.EventBus
	query queryFunc

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextId uint64
}

type subscription struct {
	id         uint64
	collection string
	filter     Filter
	onNext     func([]Document)
	onError    func(error)

	live        atomic.Bool
	mu          sync.Mutex
	delivered   bool
	signature   string
	unsubscribe func()
}

func newFeed(bus *event_bus.EventBus, query queryFunc) *feed {
	return &feed{
		bus:   bus,
		query: query,
		subs:  make(map[uint64]*subscription),
	}
}

func (f *feed) subscribe(collection string, filter Filter, onNext func([]Document), onError func(error)) Cancel {
	if onError == nil {
		onError = func(err error) {
			log.Errorf("subscription to %s failed: %v", collection, err)
		}
	}

	f.mu.Lock()
	f.nextId++
	sub := &subscription{
		id:         f.nextId,
		collection: collection,
		filter:     filter,
		onNext:     onNext,
		onError:    onError,
	}
	sub.live.Store(true)
	f.subs[sub.id] = sub
	f.mu.Unlock()

	sub.unsubscribe = event_bus.SubscribeTyped[event_bus.DocumentChanged](
		f.bus,
		event_bus.DocumentTopic(collection),
		func(e event_bus.EventT[event_bus.DocumentChanged]) error {
			f.refresh(e.Context(), sub)
			return nil
		},
	)

	f.refresh(context.Background(), sub)

	return func() {
		if !sub.live.CompareAndSwap(true, false) {
			return
		}
		sub.unsubscribe()
		f.mu.Lock()
		delete(f.subs, sub.id)
		f.mu.Unlock()
	}
}

// refresh re-runs the subscription's query and delivers the snapshot if it changed.
func (f *feed) refresh(ctx context.Context, sub *subscription) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.live.Load() {
		return
	}

	docs, err := f.query(ctx, sub.collection, sub.filter)
	if err != nil {
		sub.onError(fmt.Errorf("query %s where %s: %w", sub.collection, sub.filter, err))
		return
	}

	signature := snapshotSignature(docs)
	if sub.delivered && signature == sub.signature {
		return
	}
	sub.delivered = true
	sub.signature = signature
	sub.onNext(docs)
}

// refreshAll re-runs every live subscription, e.g. after a lost change stream came back.
func (f *feed) refreshAll(ctx context.Context) {
	for _, sub := range f.active() {
		f.refresh(ctx, sub)
	}
}

// failAll reports err to every live subscription.
func (f *feed) failAll(err error) {
	for _, sub := range f.active() {
		sub.mu.Lock()
		if sub.live.Load() {
			sub.onError(err)
		}
		sub.mu.Unlock()
	}
}

func (f *feed) active() []*subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := make([]*subscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	return subs
}

func (f *feed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func snapshotSignature(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s@%d;", d.Id, d.Revision)
	}
	return b.String()
}
