package entity

import (
	"time"
)

// Provider indicates how a user signed up.
type Provider string

const (
	ProviderLocal     Provider = "local"
	ProviderFederated Provider = "federated"
)

// User is the aggregate root for the identity domain.
// Password holds a bcrypt hash, never the raw credential.
// Email is stored lowercased; uniqueness is case-insensitive.
type User struct {
	ID        string
	Email     string
	Password  string
	Name      string
	Provider  Provider
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
