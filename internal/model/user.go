package model

import "time"

// Roles stored in users.role and carried in the access token.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. Handlers define their own response shapes; the
// password hash never leaves the repository layer.
//
// Fields:
//  ID           – primary key identifier (uuid).
//  Name         – display name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – CUSTOMER or ADMIN.
//  Metadata     – free-form bag; currently the favourite movie list.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           string       // users.id
	Name         string       // users.name
	Email        string       // users.email
	PasswordHash string       // users.password_hash
	Role         string       // users.role
	Metadata     UserMetadata // users.metadata (JSON)
	CreatedAt    time.Time    // users.created_at
}

// UserMetadata is the JSON bag stored alongside a user.
type UserMetadata struct {
	Favorites []string `json:"favorites,omitempty"`
}

// ToggleFavorite adds movieID when absent and removes it when present.
// It reports whether the movie is a favourite afterwards.
func (m *UserMetadata) ToggleFavorite(movieID string) bool {
	for i, id := range m.Favorites {
		if id == movieID {
			m.Favorites = append(m.Favorites[:i], m.Favorites[i+1:]...)
			return false
		}
	}
	m.Favorites = append(m.Favorites, movieID)
	return true
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
