package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hangout-app/hangout/internal/event_bus"
)

type Op string

const (
	OpGet    Op = "get"
	OpQuery  Op = "query"
	OpCreate Op = "create"
	OpMerge  Op = "merge"
	OpDelete Op = "delete"
)

// FaultFunc lets tests make individual operations fail. A non-nil return aborts the operation.
type FaultFunc func(op Op, collection string, id string) error

type memoryRecord struct {
	data     map[string]any
	revision int64
	seq      int64
}

// MemoryStore keeps documents in process. Change notifications and live queries are
// delivered synchronously on the writing goroutine.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memoryRecord
	nextSeq     int64
	fault       FaultFunc
	idGenerator func() string

	bus  *event_bus.EventBus
	feed *feed
}

func NewMemoryStore(bus *event_bus.EventBus) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]map[string]*memoryRecord),
		idGenerator: uuid.NewString,
		bus:         bus,
	}
	s.feed = newFeed(bus, s.Query)
	return s
}

// SetFault installs a fault injector; nil removes it.
func (s *MemoryStore) SetFault(fault FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fault
}

func (s *MemoryStore) checkFault(op Op, collection, id string) error {
	s.mu.RLock()
	fault := s.fault
	s.mu.RUnlock()
	if fault == nil {
		return nil
	}
	return fault(op, collection, id)
}

func (s *MemoryStore) Get(ctx context.Context, collection string, id string) (Document, error) {
	if err := s.checkFault(OpGet, collection, id); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{Id: id, Data: cloneMap(rec.data), Revision: rec.revision}, nil
}

// Query returns matching documents in creation order.
func (s *MemoryStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := s.checkFault(OpQuery, collection, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	type hit struct {
		doc Document
		seq int64
	}
	hits := make([]hit, 0)
	for id, rec := range s.collections[collection] {
		if filter.Match(rec.data) {
			hits = append(hits, hit{Document{Id: id, Data: cloneMap(rec.data), Revision: rec.revision}, rec.seq})
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })
	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.doc)
	}
	return docs, nil
}

func (s *MemoryStore) Subscribe(collection string, filter Filter, onNext func([]Document), onError func(error)) Cancel {
	return s.feed.subscribe(collection, filter, onNext, onError)
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	s.mu.RLock()
	id := s.idGenerator()
	s.mu.RUnlock()
	if err := s.checkFault(OpCreate, collection, id); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.nextSeq++
	s.records(collection)[id] = &memoryRecord{data: cloneMap(data), revision: 1, seq: s.nextSeq}
	s.mu.Unlock()

	s.announce(ctx, collection, id, false)
	return id, nil
}

func (s *MemoryStore) Merge(ctx context.Context, collection string, id string, patch map[string]any) error {
	if err := s.checkFault(OpMerge, collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	records := s.records(collection)
	rec, ok := records[id]
	if !ok {
		s.nextSeq++
		rec = &memoryRecord{seq: s.nextSeq}
		records[id] = rec
	}
	rec.data = applyPatch(rec.data, patch)
	rec.revision++
	s.mu.Unlock()

	s.announce(ctx, collection, id, false)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection string, id string) error {
	if err := s.checkFault(OpDelete, collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()

	if existed {
		s.announce(ctx, collection, id, true)
	}
	return nil
}

// SubscriptionCount returns the number of live subscriptions, across all collections.
func (s *MemoryStore) SubscriptionCount() int {
	return s.feed.count()
}

// records must be called with s.mu held for writing.
func (s *MemoryStore) records(collection string) map[string]*memoryRecord {
	records, ok := s.collections[collection]
	if !ok {
		records = make(map[string]*memoryRecord)
		s.collections[collection] = records
	}
	return records
}

func (s *MemoryStore) announce(ctx context.Context, collection, id string, deleted bool) {
	// Change delivery must not be cut short by the writer's request context.
	_ = s.bus.Publish(event_bus.NewEvent(context.WithoutCancel(ctx), event_bus.DocumentTopic(collection), event_bus.DocumentChanged{
		Collection: collection,
		Id:         id,
		Deleted:    deleted,
	}))
}
