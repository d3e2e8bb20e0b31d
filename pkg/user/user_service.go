package user

import (
	"context"
	"errors"
	"fmt"
)

var ErrUserDataInvalid = errors.New("invalid user data")

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	SaveProfile(ctx context.Context, user User) (User, error)
	UpdateDisplayName(ctx context.Context, displayName string) (User, error)
}

type Provider interface {
	GetCurrentUser(ctx context.Context) (User, error)
}

type ServiceImpl struct {
	repo Repo
}

func NewService(repo Repo) *ServiceImpl {
	return &ServiceImpl{repo: repo}
}

func (s *ServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.GetUser(ctx, userId)
}

func (s *ServiceImpl) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// SaveProfile stores the profile reported by the identity provider at sign-in.
func (s *ServiceImpl) SaveProfile(ctx context.Context, user User) (User, error) {
	if user.Id == "" {
		return User{}, fmt.Errorf("missing user id: %w", ErrUserDataInvalid)
	}
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return User{}, err
	}
	return s.repo.GetUser(ctx, user.Id)
}

func (s *ServiceImpl) UpdateDisplayName(ctx context.Context, displayName string) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if displayName == "" {
		return User{}, fmt.Errorf("display name is required: %w", ErrUserDataInvalid)
	}
	if err := s.repo.SaveUser(ctx, User{Id: userId, DisplayName: displayName}); err != nil {
		return User{}, err
	}
	return s.repo.GetUser(ctx, userId)
}
