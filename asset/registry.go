package asset

import (
	"sync"

	"github.com/google/uuid"
)

const maxRecentUploads = 10

// Registry holds the most recent uploads, newest first, for quick
// reselection. Repeated uploads of the same bytes create distinct entries.
type Registry struct {
	mu    sync.Mutex
	items []*AudioAsset
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add prepends the asset and evicts the oldest entry beyond the cap.
func (r *Registry) Add(a *AudioAsset) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*AudioAsset, 0, maxRecentUploads)
	items = append(items, a)
	for _, it := range r.items {
		if len(items) == maxRecentUploads {
			break
		}
		items = append(items, it)
	}
	r.items = items
}

func (r *Registry) Get(id uuid.UUID) (*AudioAsset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, it := range r.items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}

// Recent returns the retained assets, newest first.
func (r *Registry) Recent() []*AudioAsset {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*AudioAsset, len(r.items))
	copy(out, r.items)
	return out
}
