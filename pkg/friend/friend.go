// Package friend derives a viewer's accepted friends from friendship records.
// Friend requests are created and answered elsewhere; this package only reads.
package friend

import (
	"github.com/hangout-app/hangout/pkg/docstore"
)

const Collection = "friendships"

type Status string

const (
	Pending  Status = "pending"
	Accepted Status = "accepted"
)

type Friendship struct {
	Id         string `doc:"-"`
	FromUserId string `doc:"fromUserId"`
	ToUserId   string `doc:"toUserId"`
	Status     Status `doc:"status"`
}

// Other returns the side of the friendship that is not viewerId.
func (f Friendship) Other(viewerId string) string {
	if f.FromUserId == viewerId {
		return f.ToUserId
	}
	return f.FromUserId
}

// AcceptedFilter matches accepted friendships touching viewerId in either direction.
func AcceptedFilter(viewerId string) docstore.Filter {
	return docstore.And(
		docstore.Or(
			docstore.Eq("fromUserId", viewerId),
			docstore.Eq("toUserId", viewerId),
		),
		docstore.Eq("status", string(Accepted)),
	)
}

// FriendIds returns the distinct friend ids of viewerId in first-seen order.
func FriendIds(viewerId string, friendships []Friendship) []string {
	seen := make(map[string]bool, len(friendships))
	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		if f.Status != Accepted {
			continue
		}
		id := f.Other(viewerId)
		if id == "" || id == viewerId || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
