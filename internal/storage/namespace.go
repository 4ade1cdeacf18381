package storage

import (
	"context"
	"strings"
)

const namespaceSep = "/"

// namespaced confines a Store to keys under "<ns>/".
type namespaced struct {
	inner  Store
	prefix string
}

// Namespace returns a view of s in which every key is transparently
// prefixed with ns. Keys listed through the view have the prefix removed,
// so callers see the same key space they would see on a private store.
func Namespace(s Store, ns string) Store {
	return &namespaced{inner: s, prefix: ns + namespaceSep}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.prefix + k
	}
	return n.inner.Delete(ctx, full...)
}

func (n *namespaced) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := n.inner.Keys(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, n.prefix)
	}
	return keys, nil
}
