package dataforseo

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwhitford/domaincred/internal/credential"
	"github.com/mwhitford/domaincred/internal/diaglog"
)

// Registry hands out one client per client code, resolving credentials on
// first use. All instances share the same configuration options; clients are
// constructed explicitly here rather than ad hoc at call sites.
type Registry struct {
	mu       sync.Mutex
	clients  map[string]*Client
	resolver *credential.Resolver
	diag     *diaglog.Logger
	opts     []ClientOption
}

// NewRegistry creates a registry building clients from the given resolver.
func NewRegistry(resolver *credential.Resolver, diag *diaglog.Logger, opts ...ClientOption) *Registry {
	return &Registry{
		clients:  make(map[string]*Client),
		resolver: resolver,
		diag:     diag,
		opts:     opts,
	}
}

// ClientFor returns the client for the given client code, constructing and
// caching it on first use. An empty code yields the default client.
func (r *Registry) ClientFor(ctx context.Context, clientCode string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[clientCode]; ok {
		return c, nil
	}

	creds, err := r.resolver.Resolve(ctx, clientCode)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials for %q: %w", clientCode, err)
	}

	c, err := NewClient(creds, r.diag, r.opts...)
	if err != nil {
		return nil, fmt.Errorf("build client for %q: %w", clientCode, err)
	}
	c.clientCode = clientCode

	r.clients[clientCode] = c
	return c, nil
}
