package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hangout-app/hangout/pkg/user"
)

var (
	ErrInvalidColor   = errors.New("invalid color")
	ErrUserIdRequired  = errors.New("friend id is required")
	ErrInvalidFriendId = errors.New("friend id must not contain dots")
	ErrNotFriend       = errors.New("not an accepted friend")
	colorPattern       = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// FriendReader lists the viewer's accepted friends. friend.Repository satisfies it.
type FriendReader interface {
	AcceptedFriendIds(ctx context.Context, viewerId string) ([]string, error)
}

type Service interface {
	GetSettings(ctx context.Context) (DisplaySettings, error)
	SetEventColor(ctx context.Context, color string) error
	SetFriendColor(ctx context.Context, friendId string, color string) error
}

type ServiceImpl struct {
	repo    Repository
	friends FriendReader
}

func NewService(repo Repository, friends FriendReader) *ServiceImpl {
	return &ServiceImpl{repo: repo, friends: friends}
}

func (s *ServiceImpl) GetSettings(ctx context.Context) (DisplaySettings, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return DisplaySettings{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.Get(ctx, userId)
}

func (s *ServiceImpl) SetEventColor(ctx context.Context, color string) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	if !colorPattern.MatchString(color) {
		return fmt.Errorf("%q: %w", color, ErrInvalidColor)
	}
	return s.repo.SetEventColor(ctx, userId, color)
}

func (s *ServiceImpl) SetFriendColor(ctx context.Context, friendId string, color string) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	if err := checkFriendId(friendId); err != nil {
		return err
	}
	if !colorPattern.MatchString(color) {
		return fmt.Errorf("%q: %w", color, ErrInvalidColor)
	}
	friendIds, err := s.friends.AcceptedFriendIds(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to read friends of %s: %w", userId, err)
	}
	if !slices.Contains(friendIds, friendId) {
		return fmt.Errorf("%s: %w", friendId, ErrNotFriend)
	}
	return s.repo.SetFriendColor(ctx, userId, friendId, color)
}

// checkFriendId rejects ids that cannot be a single key of friendColors; a dot
// would address a nested map in a merge patch.
func checkFriendId(friendId string) error {
	if friendId == "" {
		return ErrUserIdRequired
	}
	if strings.Contains(friendId, ".") {
		return fmt.Errorf("%q: %w", friendId, ErrInvalidFriendId)
	}
	return nil
}
