package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Veysel440/go-etracker/internal/core"
)

type APIKeyAuth struct {
	keys map[string]struct{}
}

func NewAPIKeyAuth(csv string) *APIKeyAuth {
	m := map[string]struct{}{}
	for _, k := range strings.Split(csv, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			m[k] = struct{}{}
		}
	}
	return &APIKeyAuth{keys: m}
}

// Middleware rejects requests without a known X-Api-Key. With no keys
// configured every request passes.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.keys) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-Api-Key")
		if _, ok := a.keys[key]; !ok {
			writeErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Headers carrying the already-authenticated caller.
const (
	ActorIDHeader   = "X-Actor-Id"
	ActorNameHeader = "X-Actor-Name"
)

type actorKey struct{}

// RequireActor reads the caller identity set by the fronting proxy.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a core.Actor
		if v := strings.TrimSpace(r.Header.Get(ActorIDHeader)); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id < 0 {
				writeErr(w, http.StatusBadRequest, "invalid_actor_id")
				return
			}
			a.ID = id
		}
		a.Name = strings.TrimSpace(r.Header.Get(ActorNameHeader))
		if a.ID == 0 && a.Name == "" {
			writeErr(w, http.StatusUnauthorized, "actor_required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, a)))
	})
}

func actorFrom(ctx context.Context) core.Actor {
	a, _ := ctx.Value(actorKey{}).(core.Actor)
	return a
}
