package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_ColorFor(t *testing.T) {
	r := NewResolver("#3788d8", "#6c757d")

	tests := []struct {
		name     string
		owner    string
		settings Settings
		want     string
	}{
		{"own color", "me", Settings{OwnColor: "#abc"}, "#abc"},
		{"own default", "me", Settings{}, "#3788d8"},
		{"friend override", "friendX", Settings{FriendColors: map[string]string{"friendX": "#def"}}, "#def"},
		{"friend default", "friendY", Settings{FriendColors: map[string]string{"friendX": "#def"}}, "#6c757d"},
		{"friend with nil map", "friendY", Settings{}, "#6c757d"},
		{"own color not used for friends", "friendY", Settings{OwnColor: "#abc"}, "#6c757d"},
		{"friend override not used for self", "me", Settings{FriendColors: map[string]string{"me": "#def"}}, "#3788d8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ColorFor(tt.owner, "me", tt.settings))
		})
	}
}
