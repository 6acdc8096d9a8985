package shared

import "context"

// Actor identifies who triggered a mutation. It is supplied by the upstream
// authentication layer on every request; a nil UserID means the mutation was
// system-initiated (scheduled jobs, maintenance scripts).
type Actor struct {
	UserID    *int64
	IPAddress string
	UserAgent string
}

// SystemActor returns the identity used for mutations with no human behind them.
func SystemActor() Actor {
	return Actor{}
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is returned
// when none was attached, which audit records as system-initiated.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
