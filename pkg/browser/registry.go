package browser

import "sync"

// Registry tracks connected browsers. The package keeps a default instance so
// a process can close everything it opened on shutdown.
type Registry struct {
	mu       sync.Mutex
	browsers []*Browser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) add(b *Browser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.browsers = append(r.browsers, b)
}

func (r *Registry) remove(b *Browser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.browsers {
		if cur == b {
			r.browsers = append(r.browsers[:i], r.browsers[i+1:]...)
			return
		}
	}
}

// List returns the currently connected browsers.
func (r *Registry) List() []*Browser {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Browser, len(r.browsers))
	copy(out, r.browsers)
	return out
}

// CloseAll closes every tracked browser. Disconnect callbacks remove each one
// from the registry as it goes down.
func (r *Registry) CloseAll() {
	for _, b := range r.List() {
		_ = b.Close()
	}
}

var defaultRegistry = NewRegistry()

// Open returns the browsers currently connected by this process.
func Open() []*Browser {
	return defaultRegistry.List()
}

// CloseAll closes every browser connected by this process.
func CloseAll() {
	defaultRegistry.CloseAll()
}
