package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/repository"
)

type memUsers struct {
	users map[string]model.User
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{users: map[string]model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) UpdateMetadata(_ context.Context, id string, meta model.UserMetadata) error {
	u := m.users[id]
	u.Metadata = model.UserMetadata{Favorites: append([]string(nil), meta.Favorites...)}
	m.users[id] = u
	return nil
}

func (m *memUsers) ListAll(context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) ListByRole(_ context.Context, role string) ([]model.User, error) {
	var out []model.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) SetRole(_ context.Context, email, role string) error {
	for id, u := range m.users {
		if u.Email == email {
			u.Role = role
			m.users[id] = u
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *memUsers) Count(context.Context) (int64, error) { return int64(len(m.users)), nil }

type favoriteMovies struct{ memMovies }

func (f *favoriteMovies) ListByIDs(_ context.Context, ids []string) ([]model.Movie, error) {
	out := []model.Movie{}
	for i := len(ids) - 1; i >= 0; i-- {
		if m, ok := f.movies[ids[i]]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func TestUserService_ToggleFavorite(t *testing.T) {
	users := newMemUsers(model.User{ID: "u1", Email: "ana@example.com"})
	movies := &favoriteMovies{memMovies{movies: map[string]*model.Movie{
		"m1": {ID: "m1", Title: "Dune"},
		"m2": {ID: "m2", Title: "Arrival"},
	}}}
	svc := NewUserService(users, movies)
	ctx := context.Background()

	on, err := svc.ToggleFavorite(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.True(t, on)
	on, err = svc.ToggleFavorite(ctx, "u1", "m2")
	require.NoError(t, err)
	assert.True(t, on)

	favs, err := svc.Favorites(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "Dune", favs[0].Title, "insertion order is kept")

	on, err = svc.ToggleFavorite(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, []string{"m2"}, users.users["u1"].Metadata.Favorites)
}

func TestUserService_ToggleFavoriteErrors(t *testing.T) {
	users := newMemUsers(model.User{ID: "u1"})
	svc := NewUserService(users, &favoriteMovies{memMovies{movies: map[string]*model.Movie{}}})
	ctx := context.Background()

	_, err := svc.ToggleFavorite(ctx, "u1", " ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ToggleFavorite(ctx, "u1", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Favorites(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
