package hangout

import (
	"context"
	"fmt"
	"time"

	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Create(ctx context.Context, h Hangout) (Hangout, error)
	ListByOwner(ctx context.Context, userId string) ([]Hangout, error)
	// WatchByOwner delivers the owner's hangouts now and on every change.
	WatchByOwner(userId string, onNext func([]Hangout), onError func(error)) docstore.Cancel
}

type RepositoryImpl struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *RepositoryImpl {
	return &RepositoryImpl{store: store}
}

func (r *RepositoryImpl) Create(ctx context.Context, h Hangout) (Hangout, error) {
	data := map[string]any{
		"userId":    h.UserId,
		"title":     h.Title,
		"date":      h.Date,
		"startTime": h.StartTime,
		"status":    h.Status,
		"createdAt": h.CreatedAt.UTC().Format(time.RFC3339),
	}
	// optional fields are stored as null, like the hangout form does
	for key, value := range map[string]string{"endTime": h.EndTime, "location": h.Location, "description": h.Description} {
		if value == "" {
			data[key] = nil
		} else {
			data[key] = value
		}
	}

	id, err := r.store.Create(ctx, Collection, data)
	if err != nil {
		log.Errorf("failed to create hangout: %v", err)
		return Hangout{}, err
	}
	h.Id = id
	return h, nil
}

func (r *RepositoryImpl) ListByOwner(ctx context.Context, userId string) ([]Hangout, error) {
	docs, err := r.store.Query(ctx, Collection, docstore.Eq("userId", userId))
	if err != nil {
		return nil, fmt.Errorf("could not query hangouts of %s: %w", userId, err)
	}
	return DecodeAll(docs), nil
}

func (r *RepositoryImpl) WatchByOwner(userId string, onNext func([]Hangout), onError func(error)) docstore.Cancel {
	return r.store.Subscribe(Collection, docstore.Eq("userId", userId), func(docs []docstore.Document) {
		onNext(DecodeAll(docs))
	}, onError)
}

// DecodeAll decodes every hangout it can and logs the ones it cannot.
func DecodeAll(docs []docstore.Document) []Hangout {
	hangouts := make([]Hangout, 0, len(docs))
	for _, doc := range docs {
		var h Hangout
		if err := docstore.Decode(doc, &h); err != nil {
			log.Warnf("skipping hangout %s: %v", doc.Id, err)
			continue
		}
		h.Id = doc.Id
		hangouts = append(hangouts, h)
	}
	return hangouts
}
