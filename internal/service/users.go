package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinego/internal/model"
	"github.com/iliyamo/cinego/internal/repository"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	UpdateMetadata(ctx context.Context, id string, meta model.UserMetadata) error
}

type FavoriteMovieStore interface {
	GetByID(ctx context.Context, id string) (*model.Movie, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Movie, error)
}

// UserService manages the per-user metadata bag.
type UserService struct {
	users  UserStore
	movies FavoriteMovieStore
}

// NewUserService builds the favorites service.
func NewUserService(users UserStore, movies FavoriteMovieStore) *UserService {
	return &UserService{users: users, movies: movies}
}

// Favorites returns the user's favourite movies in the order they were added.
func (s *UserService) Favorites(ctx context.Context, userID string) ([]model.Movie, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	movies, err := s.movies.ListByIDs(ctx, u.Metadata.Favorites)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Movie, len(movies))
	for _, m := range movies {
		byID[m.ID] = m
	}
	out := make([]model.Movie, 0, len(movies))
	for _, id := range u.Metadata.Favorites {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// ToggleFavorite adds or removes movieID and reports whether it is now a favourite.
func (s *UserService) ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error) {
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return false, validationf("movieId is required")
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return false, err
	}
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return false, fmt.Errorf("movie %s: %w", movieID, ErrNotFound)
		}
		return false, err
	}
	now := u.Metadata.ToggleFavorite(movieID)
	if err := s.users.UpdateMetadata(ctx, u.ID, u.Metadata); err != nil {
		return false, err
	}
	return now, nil
}

func (s *UserService) user(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, err
}
