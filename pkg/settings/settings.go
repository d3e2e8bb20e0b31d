package settings

import (
	"maps"

	"github.com/hangout-app/hangout/pkg/color"
)

const Collection = "userSettings"

// DisplaySettings is the userSettings/<userId> document.
type DisplaySettings struct {
	EventColor   string            `doc:"eventColor"`
	FriendColors map[string]string `doc:"friendColors"`
}

func (s DisplaySettings) Colors() color.Settings {
	return color.Settings{
		OwnColor:     s.EventColor,
		FriendColors: maps.Clone(s.FriendColors),
	}
}
