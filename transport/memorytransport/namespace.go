package memorytransport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dogmatiq/eventhub/transport"
)

// Namespace is a collection of in-memory hubs, keyed by name.
//
// It is an implementation of transport.Dialer that dials the hub named by the
// endpoint.
type Namespace struct {
	m    sync.RWMutex
	hubs map[string]*Hub
}

// Add adds hubs to the namespace.
//
// It panics if any of the hubs is unnamed or if the namespace already contains
// a hub with the same name.
func (n *Namespace) Add(hubs ...*Hub) {
	n.m.Lock()
	defer n.m.Unlock()

	if n.hubs == nil {
		n.hubs = map[string]*Hub{}
	}

	for _, h := range hubs {
		if h.Name == "" {
			panic("hub name must not be empty")
		}

		if _, ok := n.hubs[h.Name]; ok {
			panic(fmt.Sprintf("namespace already contains a hub named %q", h.Name))
		}

		n.hubs[h.Name] = h
	}
}

// Hub returns the hub with the given name.
func (n *Namespace) Hub(name string) (*Hub, bool) {
	n.m.RLock()
	defer n.m.RUnlock()

	h, ok := n.hubs[name]
	return h, ok
}

// Names returns the names of the hubs in the namespace, in lexical order.
func (n *Namespace) Names() []string {
	n.m.RLock()
	defer n.m.RUnlock()

	names := make([]string, 0, len(n.hubs))
	for name := range n.hubs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Dial returns a new session for the hub named by ep.Hub.
func (n *Namespace) Dial(
	ctx context.Context,
	ep transport.Endpoint,
	creds transport.Credentials,
) (transport.Session, error) {
	h, ok := n.Hub(ep.Hub)
	if !ok {
		return nil, transport.ErrUnknownHub
	}

	return h.Dial(ctx, ep, creds)
}
