package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
	"github.com/vadim/poolsmm/internal/httpx/response"
)

type actorKey struct{}

// Tokens maps static bearer tokens to roles
type Tokens struct {
	Admin  string
	Editor string
	Viewer string
}

func (t Tokens) enabled() bool {
	return t.Admin != "" || t.Editor != "" || t.Viewer != ""
}

func (t Tokens) role(token string) (entity.Role, bool) {
	for _, c := range []struct {
		token string
		role  entity.Role
	}{
		{t.Admin, entity.RoleAdmin},
		{t.Editor, entity.RoleEditor},
		{t.Viewer, entity.RoleViewer},
	} {
		if c.token != "" && subtle.ConstantTimeCompare([]byte(c.token), []byte(token)) == 1 {
			return c.role, true
		}
	}
	return "", false
}

// Authenticate resolves the bearer token into an actor. With no tokens
// configured every request acts as an admin.
func Authenticate(tokens Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := entity.Actor{ID: "api", Name: "api", Role: entity.RoleAdmin}

			if tokens.enabled() {
				token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok {
					response.Unauthorized(w, "missing bearer token")
					return
				}
				role, ok := tokens.role(strings.TrimSpace(token))
				if !ok {
					response.Unauthorized(w, "invalid token")
					return
				}
				actor = entity.Actor{ID: "api:" + string(role), Name: string(role), Role: role}
			}

			ctx := context.WithValue(r.Context(), actorKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the request actor, a viewer when none was attached
func ActorFrom(ctx context.Context) entity.Actor {
	if a, ok := ctx.Value(actorKey{}).(entity.Actor); ok {
		return a
	}
	return entity.Actor{ID: "anonymous", Role: entity.RoleViewer}
}
