// Package identity carries the opaque authenticated actor through request
// contexts. Credential management is owned by the callers; the engine only
// ever sees an already-authenticated actor id.
package identity

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID snowflake.ID
}

type actorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor from context, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.ID == 0 {
		return Actor{}, false
	}
	return actor, true
}

// ParseActorID parses an actor id supplied by the transport boundary.
func ParseActorID(raw string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
