package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is an account of the song-of-the-day directory.
type User struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Username      string    `json:"username" gorm:"size:80;uniqueIndex;not null"`
	Password      string    `json:"-" gorm:"size:120;not null"` // bcrypt hash, empty for Firebase-only accounts
	FavoriteBand  string    `json:"favorite_band" gorm:"size:120"`
	FavoriteGenre string    `json:"favorite_genre" gorm:"size:50"`
	Icon          string    `json:"icon" gorm:"size:120"`
	FirebaseUID   *string   `json:"-" gorm:"size:128;uniqueIndex"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserCompact is the author summary embedded in feeds and inbox entries.
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Icon     string `json:"icon,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, Icon: u.Icon}
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Username string `form:"username" validate:"required,min=1,max=80,excludesall=/?#"`
	Password string `form:"password" validate:"required,min=1,max=72"`
}

// LoginRequest is the login form.
type LoginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// UpdateProfileRequest is the profile form.
type UpdateProfileRequest struct {
	FavoriteBand  string `form:"favorite_band" validate:"max=120"`
	FavoriteGenre string `form:"favorite_genre" validate:"max=50"`
}

// SessionClaims are carried by the signed session cookie.
type SessionClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
