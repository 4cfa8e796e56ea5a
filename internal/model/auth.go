package model

import (
	"github.com/google/uuid"
)

// TokenClaims is the validated content of an access token
type TokenClaims struct {
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	PharmacyID *uuid.UUID `json:"pharmacy_id,omitempty"`
}

// Actor converts claims into the request actor
func (c *TokenClaims) Actor() Actor {
	return Actor{
		UserID:     c.UserID,
		Role:       c.Role,
		PharmacyID: c.PharmacyID,
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
