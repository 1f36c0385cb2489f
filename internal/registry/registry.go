package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pointsbridge/ww-adapter/internal/ww"
)

// Entry is one active account coordinator: the API client plus its poller.
type Entry struct {
	ID       string
	Username string
	Region   string
	Client   *ww.Client
	Poller   *ww.Poller
	cancel   context.CancelFunc
}

// Registry is the process-wide table of active account coordinators, keyed
// by entry ID. Entries are inserted on setup and removed on teardown.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add registers a coordinator and returns its entry with a fresh ID.
func (r *Registry) Add(username, region string, client *ww.Client, poller *ww.Poller, cancel context.CancelFunc) *Entry {
	entry := &Entry{
		ID:       uuid.NewString(),
		Username: username,
		Region:   region,
		Client:   client,
		Poller:   poller,
		cancel:   cancel,
	}

	r.mu.Lock()
	r.entries[entry.ID] = entry
	r.mu.Unlock()
	return entry
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// HasAccount reports whether an entry for username already exists.
func (r *Registry) HasAccount(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Username == username {
			return true
		}
	}
	return false
}

// List returns all entries sorted by username.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Remove tears down the entry for id: the poller is stopped, its context
// canceled, and the entry dropped from the table.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if entry.Poller != nil {
		entry.Poller.Stop()
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	return true
}

// Len returns the number of active entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
