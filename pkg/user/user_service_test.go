package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/hangout-app/hangout/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*ServiceImpl, *docstore.MemoryStore) {
	store := docstore.NewMemoryStore(event_bus.NewEventBus())
	return NewService(NewRepo(store)), store
}

func TestUser_Label(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"display name first", User{Id: "u1", DisplayName: "Ana", Name: "Ana Nowak", Email: "ana@x.io"}, "Ana"},
		{"then name", User{Id: "u1", Name: "Ana Nowak", Email: "ana@x.io"}, "Ana Nowak"},
		{"then email", User{Id: "u1", Email: "ana@x.io"}, "ana@x.io"},
		{"then id", User{Id: "u1"}, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Label())
		})
	}
}

func TestService_SaveProfileKeepsExistingFields(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	_, err := service.SaveProfile(ctx, User{Id: "u1", DisplayName: "Ana", Email: "ana@x.io"})
	require.NoError(t, err)
	saved, err := service.SaveProfile(ctx, User{Id: "u1", Name: "Ana Nowak"})
	require.NoError(t, err)

	assert.Equal(t, User{Id: "u1", DisplayName: "Ana", Name: "Ana Nowak", Email: "ana@x.io"}, saved)
}

func TestService_SaveProfileRequiresId(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.SaveProfile(context.Background(), User{DisplayName: "Ana"})

	assert.ErrorIs(t, err, ErrUserDataInvalid)
}

func TestService_GetCurrentUser(t *testing.T) {
	service, _ := setupService(t)
	_, err := service.SaveProfile(context.Background(), User{Id: "u1", Name: "Ana"})
	require.NoError(t, err)

	_, err = service.GetCurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)

	current, err := service.GetCurrentUser(WithId(context.Background(), "u1"))
	require.NoError(t, err)
	assert.Equal(t, "Ana", current.Name)

	_, err = service.GetCurrentUser(WithId(context.Background(), "missing"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHandler_UpdateUser(t *testing.T) {
	service, _ := setupService(t)
	handler := NewHandler(service)
	body, _ := json.Marshal(UserDTO{DisplayName: "Annie"})

	req := httptest.NewRequest(http.MethodPut, "/api/user/current", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.UpdateUser(w, req.WithContext(WithId(req.Context(), "u1")))

	require.Equal(t, http.StatusOK, w.Code)
	var got UserDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "u1", got.Id)
	assert.Equal(t, "Annie", got.Label)
}

func TestHandler_UpdateUserRequiresDisplayName(t *testing.T) {
	service, _ := setupService(t)
	handler := NewHandler(service)

	req := httptest.NewRequest(http.MethodPut, "/api/user/current", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	handler.UpdateUser(w, req.WithContext(WithId(req.Context(), "u1")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CurrentUserNotFound(t *testing.T) {
	service, _ := setupService(t)
	handler := NewHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/user/current", nil)
	w := httptest.NewRecorder()
	handler.CurrentUser(w, req.WithContext(WithId(req.Context(), "ghost")))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
