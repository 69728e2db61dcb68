package borrow

import "github.com/libshelf/borrowd/internal/accounts"

// Subtask performs a single content-type transition over the shared task
// context. Implementations must poll Context.Cancelled at entry and inside
// any loop doing repeated I/O.
type Subtask interface {
	Name() string
	Execute(bc *Context, elem PathElement) Outcome
}

// RegistryEntry binds a predicate to a subtask factory. The predicate may
// consult the account because some transitions (SAML vs direct download)
// depend on how the account authenticates.
type RegistryEntry struct {
	Name    string
	Accepts func(account *accounts.Account, elem PathElement) bool
	New     func() Subtask
}

// Registry is the statically constructed, ordered subtask table. Earlier
// entries win when several accept the same element.
type Registry struct {
	entries []RegistryEntry
}

func NewRegistry(entries ...RegistryEntry) *Registry {
	return &Registry{entries: entries}
}

// Find returns a subtask able to perform the element's transition, or nil.
func (r *Registry) Find(account *accounts.Account, elem PathElement) Subtask {
	for _, e := range r.entries {
		if e.Accepts(account, elem) {
			return e.New()
		}
	}
	return nil
}

// Supports reports whether any registered subtask accepts the element.
func (r *Registry) Supports(account *accounts.Account, elem PathElement) bool {
	for _, e := range r.entries {
		if e.Accepts(account, elem) {
			return true
		}
	}
	return false
}
