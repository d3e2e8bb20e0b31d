// Package label resolves user ids to the names shown on the schedule page.
package label

import (
	"context"
	"sync"

	"github.com/hangout-app/hangout/pkg/user"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ProfileReader reads a user's profile. user.Service satisfies it.
type ProfileReader interface {
	GetUser(ctx context.Context, id string) (user.User, error)
}

// Cache memoizes labels for the lifetime of a session. Entries are never
// invalidated; a failed lookup is cached as the raw id.
type Cache struct {
	profiles ProfileReader

	mu     sync.RWMutex
	labels map[string]string
	group  singleflight.Group
}

func NewCache(profiles ProfileReader) *Cache {
	return &Cache{
		profiles: profiles,
		labels:   make(map[string]string),
	}
}

// Label returns the display label of userId. Concurrent lookups of the same
// uncached id share a single profile read.
func (c *Cache) Label(ctx context.Context, userId string) string {
	if label, ok := c.cached(userId); ok {
		return label
	}

	v, _, _ := c.group.Do(userId, func() (any, error) {
		if label, ok := c.cached(userId); ok {
			return label, nil
		}
		label := c.lookup(ctx, userId)
		c.mu.Lock()
		c.labels[userId] = label
		c.mu.Unlock()
		return label, nil
	})
	return v.(string)
}

// Peek returns the cached label without reading the profile.
func (c *Cache) Peek(userId string) (string, bool) {
	return c.cached(userId)
}

func (c *Cache) cached(userId string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	label, ok := c.labels[userId]
	return label, ok
}

func (c *Cache) lookup(ctx context.Context, userId string) string {
	profile, err := c.profiles.GetUser(ctx, userId)
	if err != nil {
		log.Warnf("failed to read profile of %s, using id as label: %v", userId, err)
		return userId
	}
	profile.Id = userId
	return profile.Label()
}
