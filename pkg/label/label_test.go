package label

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hangout-app/hangout/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProfiles struct {
	users   map[string]user.User
	calls   atomic.Int32
	release chan struct{}
}

func (s *stubProfiles) GetUser(ctx context.Context, id string) (user.User, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	u, ok := s.users[id]
	if !ok {
		return user.User{}, errors.New("permission denied")
	}
	return u, nil
}

func TestCache_LabelPriority(t *testing.T) {
	profiles := &stubProfiles{users: map[string]user.User{
		"a": {DisplayName: "Ana", Name: "Ana Nowak", Email: "ana@x.io"},
		"b": {Name: "Bartek", Email: "b@x.io"},
		"c": {Email: "c@x.io"},
		"d": {},
	}}
	cache := NewCache(profiles)
	ctx := context.Background()

	assert.Equal(t, "Ana", cache.Label(ctx, "a"))
	assert.Equal(t, "Bartek", cache.Label(ctx, "b"))
	assert.Equal(t, "c@x.io", cache.Label(ctx, "c"))
	assert.Equal(t, "d", cache.Label(ctx, "d"))
}

func TestCache_FailureFallsBackToIdAndIsCached(t *testing.T) {
	profiles := &stubProfiles{users: map[string]user.User{}}
	cache := NewCache(profiles)

	assert.Equal(t, "ghost", cache.Label(context.Background(), "ghost"))
	assert.Equal(t, "ghost", cache.Label(context.Background(), "ghost"))

	assert.Equal(t, int32(1), profiles.calls.Load())
	label, ok := cache.Peek("ghost")
	assert.True(t, ok)
	assert.Equal(t, "ghost", label)
}

func TestCache_ConcurrentLookupsShareOneRead(t *testing.T) {
	profiles := &stubProfiles{
		users:   map[string]user.User{"a": {DisplayName: "Ana"}},
		release: make(chan struct{}),
	}
	cache := NewCache(profiles)

	var wg sync.WaitGroup
	labels := make([]string, 10)
	for i := range labels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labels[i] = cache.Label(context.Background(), "a")
		}()
	}
	require.Eventually(t, func() bool { return profiles.calls.Load() > 0 }, time.Second, time.Millisecond)
	close(profiles.release)
	wg.Wait()

	for _, l := range labels {
		assert.Equal(t, "Ana", l)
	}
	assert.Equal(t, int32(1), profiles.calls.Load())
	_, ok := cache.Peek("a")
	assert.True(t, ok)
}

func TestCache_PeekMiss(t *testing.T) {
	cache := NewCache(&stubProfiles{})

	_, ok := cache.Peek("x")

	assert.False(t, ok)
}
