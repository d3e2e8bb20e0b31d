package hangout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hangout-app/hangout/internal/utils"
	"github.com/hangout-app/hangout/pkg/user"
)

var ErrValidation = errors.New("please fill in hangout name, date, and start time")

type Filter string

const (
	Upcoming Filter = "upcoming"
	Past     Filter = "past"
)

type Service interface {
	CreateHangout(ctx context.Context, h Hangout) (Hangout, error)
	ListHangouts(ctx context.Context, filter Filter) ([]Hangout, error)
}

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
	loc   *time.Location
}

func NewService(repo Repository, clock utils.Clock, loc *time.Location) *ServiceImpl {
	return &ServiceImpl{repo: repo, clock: clock, loc: loc}
}

func (s *ServiceImpl) CreateHangout(ctx context.Context, h Hangout) (Hangout, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Hangout{}, fmt.Errorf("failed to get current user: %w", err)
	}

	h.Title = strings.TrimSpace(h.Title)
	h.Location = strings.TrimSpace(h.Location)
	h.Description = strings.TrimSpace(h.Description)
	if h.Title == "" || h.Date == "" || h.StartTime == "" {
		return Hangout{}, ErrValidation
	}
	if _, err := h.Start(s.loc); err != nil {
		return Hangout{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, _, err := h.End(s.loc); err != nil {
		return Hangout{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	h.UserId = userId
	h.Status = StatusPlanned
	h.CreatedAt = s.clock.Now()
	return s.repo.Create(ctx, h)
}

// ListHangouts returns the viewer's hangouts on one side of now, soonest first for
// upcoming and most recent first for past.
func (s *ServiceImpl) ListHangouts(ctx context.Context, filter Filter) ([]Hangout, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	all, err := s.repo.ListByOwner(ctx, userId)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().In(s.loc)
	result := make([]Hangout, 0, len(all))
	for _, h := range all {
		if h.IsUpcoming(now) == (filter != Past) {
			result = append(result, h)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, errA := result[i].Start(s.loc)
		b, errB := result[j].Start(s.loc)
		if errA != nil || errB != nil {
			return errB != nil && errA == nil
		}
		if filter == Past {
			return a.After(b)
		}
		return a.Before(b)
	})
	return result, nil
}
