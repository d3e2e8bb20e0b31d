package friend

import (
	"context"
	"fmt"

	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	AcceptedFriendIds(ctx context.Context, viewerId string) ([]string, error)
	// WatchAccepted delivers the viewer's accepted friend ids now and on every change.
	WatchAccepted(viewerId string, onNext func([]string), onError func(error)) docstore.Cancel
}

type RepositoryImpl struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *RepositoryImpl {
	return &RepositoryImpl{store: store}
}

func (r *RepositoryImpl) AcceptedFriendIds(ctx context.Context, viewerId string) ([]string, error) {
	docs, err := r.store.Query(ctx, Collection, AcceptedFilter(viewerId))
	if err != nil {
		return nil, fmt.Errorf("could not query friends of %s: %w", viewerId, err)
	}
	return FriendIds(viewerId, decodeAll(docs)), nil
}

func (r *RepositoryImpl) WatchAccepted(viewerId string, onNext func([]string), onError func(error)) docstore.Cancel {
	return r.store.Subscribe(Collection, AcceptedFilter(viewerId), func(docs []docstore.Document) {
		onNext(FriendIds(viewerId, decodeAll(docs)))
	}, onError)
}

func decodeAll(docs []docstore.Document) []Friendship {
	friendships := make([]Friendship, 0, len(docs))
	for _, doc := range docs {
		var f Friendship
		if err := docstore.Decode(doc, &f); err != nil {
			log.Warnf("skipping friendship %s: %v", doc.Id, err)
			continue
		}
		f.Id = doc.Id
		friendships = append(friendships, f)
	}
	return friendships
}
