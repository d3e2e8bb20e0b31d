package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/hangout-app/hangout/pkg/docstore"
	log "github.com/sirupsen/logrus"
)

const Collection = "users"

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	GetUser(ctx context.Context, id string) (User, error)
	SaveUser(ctx context.Context, user User) error
}

type RepoImpl struct {
	store docstore.Store
}

func NewRepo(store docstore.Store) *RepoImpl {
	return &RepoImpl{store: store}
}

func (r *RepoImpl) GetUser(ctx context.Context, id string) (User, error) {
	doc, err := r.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		log.Debugf("user %s has no profile document", id)
		return User{}, fmt.Errorf("%s: %w", id, ErrUserNotFound)
	} else if err != nil {
		return User{}, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	var user User
	if err := docstore.Decode(doc, &user); err != nil {
		return User{}, err
	}
	user.Id = doc.Id
	return user, nil
}

// SaveUser upserts the profile fields; empty fields leave stored values untouched.
func (r *RepoImpl) SaveUser(ctx context.Context, user User) error {
	patch := map[string]any{}
	if user.DisplayName != "" {
		patch["displayName"] = user.DisplayName
	}
	if user.Name != "" {
		patch["name"] = user.Name
	}
	if user.Email != "" {
		patch["email"] = user.Email
	}
	if user.PhotoUrl != "" {
		patch["photoUrl"] = user.PhotoUrl
	}
	if err := r.store.Merge(ctx, Collection, user.Id, patch); err != nil {
		log.Errorf("failed to save user %s: %v", user.Id, err)
		return err
	}
	return nil
}
