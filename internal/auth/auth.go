// Package auth is the boundary to the platform identity service. The server
// only ever trusts the identity resolved from a bearer token, never
// client-asserted match ownership.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

type Role string

const (
	RoleAgent  Role = "agent"
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

type Identity struct {
	UserID string
	Role   Role

	// AssignedMatch is the match this agent officiates. Empty for other roles.
	AssignedMatch string
}

// CanMutate reports whether this identity may mutate the given match.
func (id Identity) CanMutate(matchID string) bool {
	switch id.Role {
	case RoleAdmin:
		return true
	case RoleAgent:
		return id.AssignedMatch == matchID
	default:
		return false
	}
}

type Authorizer interface {
	// Identify resolves a bearer token. Unknown or empty tokens yield
	// ErrUnauthorized.
	Identify(ctx context.Context, token string) (Identity, error)
}

// StaticAuthorizer maps bearer tokens to identities from configuration. It
// stands in for the real identity service in development and tests.
type StaticAuthorizer struct {
	tokens map[string]Identity
}

func NewStaticAuthorizer(tokens map[string]Identity) *StaticAuthorizer {
	return &StaticAuthorizer{tokens: tokens}
}

// NewStaticFromSpecs builds an authorizer from config token lists:
// agent specs are "token:userID:matchID", viewer and admin specs are
// "token:userID".
func NewStaticFromSpecs(agents, viewers, admins []string) (*StaticAuthorizer, error) {
	tokens := make(map[string]Identity)

	for _, spec := range agents {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("bad agent token spec %q, want token:user:match", spec)
		}
		tokens[parts[0]] = Identity{UserID: parts[1], Role: RoleAgent, AssignedMatch: parts[2]}
	}
	for _, spec := range viewers {
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad viewer token spec %q, want token:user", spec)
		}
		tokens[parts[0]] = Identity{UserID: parts[1], Role: RoleViewer}
	}
	for _, spec := range admins {
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad admin token spec %q, want token:user", spec)
		}
		tokens[parts[0]] = Identity{UserID: parts[1], Role: RoleAdmin}
	}
	return NewStaticAuthorizer(tokens), nil
}

func (a *StaticAuthorizer) Identify(_ context.Context, token string) (Identity, error) {
	id, ok := a.tokens[token]
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return id, nil
}
