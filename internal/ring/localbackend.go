package ring

import (
	"context"

	"github.com/torua-coordination/ringlock/internal/cachenode"
)

// LocalBackend adapts an in-process *cachenode.Node to the Backend
// interface so the ring can route to it exactly like a remote cache node
// server, just without the network round trip.
type LocalBackend struct {
	Node *cachenode.Node
}

func (l LocalBackend) Put(_ context.Context, key, value string) error {
	l.Node.Put(key, value)
	return nil
}

func (l LocalBackend) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := l.Node.Get(key)
	return v, ok, nil
}
