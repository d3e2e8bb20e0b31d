package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

var ErrEventNotFound = errors.New("event not found")

type Repository interface {
	// CreateAll writes each event independently and returns the ids of those
	// written ("" for failures) with the joined write errors.
	CreateAll(ctx context.Context, events []Event) ([]string, error)
	Get(ctx context.Context, id string) (Event, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, ids []string) error
	ListSeries(ctx context.Context, ownerId string, seriesId string) ([]Event, error)
	WatchByOwner(ownerId string, onNext func([]Event), onError func(error)) docstore.Cancel
}

type RepositoryImpl struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *RepositoryImpl {
	return &RepositoryImpl{store: store}
}

func (r *RepositoryImpl) CreateAll(ctx context.Context, events []Event) ([]string, error) {
	docs := make([]map[string]any, 0, len(events))
	for _, e := range events {
		docs = append(docs, e.document())
	}
	ids, err := docstore.CreateAll(ctx, r.store, Collection, docs)
	if err != nil {
		log.Errorf("failed to create %d event(s): %v", len(events), err)
	}
	return ids, err
}

func (r *RepositoryImpl) Get(ctx context.Context, id string) (Event, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Event{}, fmt.Errorf("%s: %w", id, ErrEventNotFound)
	} else if err != nil {
		return Event{}, fmt.Errorf("could not read event %s: %w", id, err)
	}
	return decodeEvent(doc)
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		log.Errorf("failed to delete event %s: %v", id, err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteAll(ctx context.Context, ids []string) error {
	return docstore.DeleteAll(ctx, r.store, Collection, ids)
}

func (r *RepositoryImpl) ListSeries(ctx context.Context, ownerId string, seriesId string) ([]Event, error) {
	docs, err := r.store.Query(ctx, Collection, docstore.And(
		docstore.Eq("userId", ownerId),
		docstore.Eq("seriesId", seriesId),
	))
	if err != nil {
		return nil, fmt.Errorf("could not query series %s: %w", seriesId, err)
	}
	return decodeEvents(docs), nil
}

func (r *RepositoryImpl) WatchByOwner(ownerId string, onNext func([]Event), onError func(error)) docstore.Cancel {
	return r.store.Subscribe(Collection, docstore.Eq("userId", ownerId), func(docs []docstore.Document) {
		onNext(decodeEvents(docs))
	}, onError)
}

func decodeEvent(doc docstore.Document) (Event, error) {
	var e Event
	if err := docstore.Decode(doc, &e); err != nil {
		return Event{}, err
	}
	e.Id = doc.Id
	return e, nil
}

// decodeEvents skips documents that do not decode so one bad record cannot
// hide the rest of the snapshot.
func decodeEvents(docs []docstore.Document) []Event {
	events := make([]Event, 0, len(docs))
	for _, doc := range docs {
		e, err := decodeEvent(doc)
		if err != nil {
			log.Warnf("skipping event %s: %v", doc.Id, err)
			continue
		}
		events = append(events, e)
	}
	return events
}
