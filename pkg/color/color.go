package color

// Settings is the part of a viewer's display settings that drives item colors.
type Settings struct {
	OwnColor     string
	FriendColors map[string]string
}

// Resolver picks item colors from the viewer's settings, falling back to the
// configured defaults.
type Resolver struct {
	DefaultOwn    string
	DefaultFriend string
}

func NewResolver(defaultOwn, defaultFriend string) Resolver {
	return Resolver{DefaultOwn: defaultOwn, DefaultFriend: defaultFriend}
}

func (r Resolver) ColorFor(ownerId string, viewerId string, settings Settings) string {
	if ownerId == viewerId {
		if settings.OwnColor != "" {
			return settings.OwnColor
		}
		return r.DefaultOwn
	}
	if c, ok := settings.FriendColors[ownerId]; ok && c != "" {
		return c
	}
	return r.DefaultFriend
}
