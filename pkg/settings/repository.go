package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Get(ctx context.Context, userId string) (DisplaySettings, error)
	// Watch delivers the viewer's settings now and after every change. A missing
	// document is delivered as empty settings.
	Watch(userId string, onNext func(DisplaySettings), onError func(error)) docstore.Cancel
	SetEventColor(ctx context.Context, userId string, color string) error
	SetFriendColor(ctx context.Context, userId string, friendId string, color string) error
}

// RepositoryImpl keeps one document per user, keyed by user id. Every write also
// stores the owner id in the document so it can be watched by equality.
type RepositoryImpl struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *RepositoryImpl {
	return &RepositoryImpl{store: store}
}

func (r *RepositoryImpl) Get(ctx context.Context, userId string) (DisplaySettings, error) {
	doc, err := r.store.Get(ctx, Collection, userId)
	if errors.Is(err, docstore.ErrNotFound) {
		return DisplaySettings{}, nil
	} else if err != nil {
		return DisplaySettings{}, fmt.Errorf("could not read settings of %s: %w", userId, err)
	}
	return decodeSettings(doc)
}

func (r *RepositoryImpl) Watch(userId string, onNext func(DisplaySettings), onError func(error)) docstore.Cancel {
	return r.store.Subscribe(Collection, docstore.Eq("userId", userId), func(docs []docstore.Document) {
		if len(docs) == 0 {
			onNext(DisplaySettings{})
			return
		}
		s, err := decodeSettings(docs[0])
		if err != nil {
			onError(err)
			return
		}
		onNext(s)
	}, onError)
}

func (r *RepositoryImpl) SetEventColor(ctx context.Context, userId string, color string) error {
	if err := r.store.Merge(ctx, Collection, userId, map[string]any{"userId": userId, "eventColor": color}); err != nil {
		log.Errorf("failed to save event color of %s: %v", userId, err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) SetFriendColor(ctx context.Context, userId string, friendId string, color string) error {
	if err := checkFriendId(friendId); err != nil {
		return err
	}
	key := "friendColors." + friendId
	if err := r.store.Merge(ctx, Collection, userId, map[string]any{"userId": userId, key: color}); err != nil {
		log.Errorf("failed to save color of friend %s for %s: %v", friendId, userId, err)
		return err
	}
	return nil
}

func decodeSettings(doc docstore.Document) (DisplaySettings, error) {
	var s DisplaySettings
	if err := docstore.Decode(doc, &s); err != nil {
		return DisplaySettings{}, err
	}
	return s, nil
}
