package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Lixing-Zhang/catering-orders/internal/policy"
)

// Headers set by the upstream gateway once it has authenticated the caller
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"
)

type actorKey struct{}

// Identity reads the caller from the actor headers and stores it in the request context.
// A missing role defaults to user; a missing id leaves the actor anonymous.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := policy.Actor{
			ID:   strings.TrimSpace(r.Header.Get(ActorIDHeader)),
			Role: policy.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(ActorRoleHeader)))),
		}
		if actor.Role == "" {
			actor.Role = policy.RoleUser
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by Identity, or an anonymous actor
func ActorFrom(ctx context.Context) policy.Actor {
	actor, _ := ctx.Value(actorKey{}).(policy.Actor)
	return actor
}
