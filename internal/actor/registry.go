package actor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/apierr"
)

// RestoreFunc loads a persisted Snapshot for groupID, e.g. checkpoint.Store.Load adapted by the caller. It should
// return an error satisfying errors.Is against a sentinel the caller recognizes as "no snapshot exists"; Resolve
// treats any error here as "group not found" since it has no other way to tell a miss from a real failure without
// coupling this package to the checkpoint package's error type.
type RestoreFunc func(ctx context.Context, groupID string) (Snapshot, int, error)

// Registry is the process-wide map from group id to its live Group Actor. It mirrors the gateway's central
// connection registry, adapted from one client-per-connection to one actor-per-group: Get spawns an actor the
// first time a group id is seen and returns the same instance for every caller after that, so every request for a
// given group is serialized through one goroutine no matter how many HTTP/WS handlers touch it concurrently.
type Registry struct {
	mu      sync.RWMutex
	actors  map[string]*Actor
	opts    Options
	restore RestoreFunc
	log     zerolog.Logger
}

// NewRegistry constructs an empty Registry. opts configures every actor the registry spawns. restore is optional
// (nil disables checkpoint rehydration, e.g. in tests) and is consulted by Resolve when a group id has no live
// actor and no Init call has happened yet during this process's lifetime.
func NewRegistry(opts Options, restore RestoreFunc, logger zerolog.Logger) *Registry {
	return &Registry{
		actors:  make(map[string]*Actor),
		opts:    opts,
		restore: restore,
		log:     logger.With().Str("component", "actor_registry").Logger(),
	}
}

// Get returns the actor for groupID, spawning one if this is the first time the registry has seen it. The actor
// returned is not guaranteed to be Init'd; callers are responsible for calling Init (idempotently) or relying on
// requireInitialized to reject operations on a group that was never created.
func (r *Registry) Get(groupID string) *Actor {
	r.mu.RLock()
	a, ok := r.actors[groupID]
	r.mu.RUnlock()
	if ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[groupID]; ok {
		return a
	}
	a = New(groupID, r.opts, r.log)
	r.actors[groupID] = a
	r.log.Debug().Str("group_id", groupID).Msg("spawned group actor")
	return a
}

// Resolve returns an initialized actor for groupID, spawning one and rehydrating it from the restore function if
// this process has not seen the group since it started. It returns apierr.NotFound if the actor is not already
// initialized and either no restore function is configured or the restore lookup fails, which the router surfaces
// as 404 for any operation that requires an existing group.
func (r *Registry) Resolve(ctx context.Context, groupID string) (*Actor, error) {
	a := r.Get(groupID)

	if _, err := a.GetGroup(ctx); err == nil {
		return a, nil
	}

	if r.restore == nil {
		return nil, apierr.NotFound("group not found")
	}
	snap, version, err := r.restore(ctx, groupID)
	if err != nil {
		return nil, apierr.NotFound("group not found")
	}
	if err := a.Restore(ctx, snap, version); err != nil {
		return nil, err
	}
	return a, nil
}

// Lookup returns the actor for groupID without spawning one, reporting whether it exists.
func (r *Registry) Lookup(groupID string) (*Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[groupID]
	return a, ok
}

// Evict stops and removes the actor for groupID, if one exists. Intended for idle reaping by a caller-driven sweep;
// the registry itself does not run one.
func (r *Registry) Evict(groupID string) {
	r.mu.Lock()
	a, ok := r.actors[groupID]
	if ok {
		delete(r.actors, groupID)
	}
	r.mu.Unlock()

	if ok {
		a.Stop()
	}
}

// Len reports how many actors are currently live. Primarily for metrics and tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

// StopAll stops every live actor. Intended for graceful shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	actors := make([]*Actor, 0, len(r.actors))
	for id, a := range r.actors {
		actors = append(actors, a)
		delete(r.actors, id)
	}
	r.mu.Unlock()

	for _, a := range actors {
		a.Stop()
	}
}
