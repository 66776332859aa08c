package actor

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/waveradio/realtime-api/internal/domain"
)

// UserReader is the minimal interface the resolver requires from a user store.
type UserReader interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Resolver maps user ids to display identities. Lookups that fail degrade to a
// generic fallback identity instead of propagating; identities are cached for
// the life of the resolver (one per client session, or one shared per process
// for server-side decoration).
type Resolver struct {
	users UserReader

	mu    sync.Mutex
	cache map[string]domain.ActorIdentity
}

func NewResolver(users UserReader) *Resolver {
	return &Resolver{users: users, cache: make(map[string]domain.ActorIdentity)}
}

func (r *Resolver) Resolve(ctx context.Context, userID string) domain.ActorIdentity {
	r.mu.Lock()
	if identity, ok := r.cache[userID]; ok {
		r.mu.Unlock()
		return identity
	}
	r.mu.Unlock()

	u, err := r.users.Get(ctx, userID)
	if err != nil {
		log.Warn().Str("user_id", userID).Err(err).Msg("actor lookup failed, using fallback")
		return domain.FallbackActor(userID)
	}
	identity := u.Identity()

	r.mu.Lock()
	r.cache[userID] = identity
	r.mu.Unlock()
	return identity
}
