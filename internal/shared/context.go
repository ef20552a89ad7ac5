package shared

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the request-scoped identity extracted from the bearer token.
// Operations receive tenancy and identity through it rather than reading
// ambient state.
type Actor struct {
	UserID         uuid.UUID
	Email          string
	Name           string
	Role           string
	OrganizationID uuid.UUID
	BranchID       *uuid.UUID
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, nil when unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
