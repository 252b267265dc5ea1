package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rezkam/mono/internal/domain"
)

// Handler is the user-supplied business logic for one JobDefinition. It
// receives the job's opaque params blob and a HandlerContext exposing the
// job ID, AbortToken, logger, and event emission (spec §4.4 step 4).
//
// Handlers are required to be idempotent: the lease-expiry recovery path
// means a handler can run more than once for the same logical job (spec
// §7, "let the lease be the contract").
type Handler func(ctx context.Context, params []byte, hctx *HandlerContext) error

// entry pairs a registered handler with its policy, keyed by (key,version).
type entry struct {
	handler    Handler
	definition domain.JobDefinition
}

// Registry maps (key, version) to a Handler + JobDefinition, populated at
// startup from an application-provided list (spec §4.8, §9 — "replace
// [dynamic module loading] with an explicit registry whose entries are
// seeded by an application-provided list"). Entries are added with
// Register and never removed; construction and dependency injection
// happen at the composition root (cmd/queueworker).
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.DefinitionRef]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[domain.DefinitionRef]entry)}
}

// Register adds a handler for definition's (key, version). It panics on a
// duplicate registration, since that can only happen from a programming
// error at startup, never from runtime input.
func (r *Registry) Register(definition domain.JobDefinition, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref := definition.Ref()
	if _, exists := r.entries[ref]; exists {
		panic(fmt.Sprintf("queue: duplicate handler registration for %s@%d", ref.Key, ref.Version))
	}
	r.entries[ref] = entry{handler: handler, definition: definition}
}

// Lookup resolves a DefinitionRef to its handler and policy. ok is false
// when the ref is present in the store's job_definitions table but absent
// from this process's code (spec §4.3: such jobs fail permanently with no
// retry), or was never registered at all.
func (r *Registry) Lookup(ref domain.DefinitionRef) (Handler, domain.JobDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[ref]
	if !ok {
		return nil, domain.JobDefinition{}, false
	}
	return e.handler, e.definition, true
}

// Definitions returns every registered JobDefinition, for reconciling
// against the store at startup.
func (r *Registry) Definitions() []domain.JobDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.JobDefinition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.definition)
	}
	return defs
}
