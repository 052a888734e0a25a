package domain

import "time"

type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	GoogleID string `json:"google_id,omitempty" gorm:"uniqueIndex"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-"` // Never return password in JSON
	Name     string `json:"name"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider"` // "email" or "google"

	// Gmail OAuth credential triple. Mutated only by the token refresh
	// callback; RefreshToken is replaced only when Google issues a new one.
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
