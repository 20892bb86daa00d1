// Package session resolves a player to the signing credentials and
// destination endpoint of the upstream casino wallet. Credentials are
// owned by the upstream system and can rotate at any time, so resolvers
// read on every call and never cache.
package session

import (
	"context"
	"errors"
)

// ErrNotFound means no session mapping exists for the player.
var ErrNotFound = errors.New("session not found")

// Credentials are borrowed for the duration of one relay call.
type Credentials struct {
	UserID    string `json:"user_id"`
	AuthToken string `json:"auth_token"`
	ClientURL string `json:"client_url"`
}

type Resolver interface {
	Resolve(ctx context.Context, playerID string) (Credentials, error)
}
