// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"fmt"
	"sync"
)

// Link kinds
const (
	LinkHTTP  = "http"  // Single request per call
	LinkBatch = "batch" // Batches concurrent calls, default
	LinkGRPC  = "grpc"  // Requires build tag
)

// DefaultLink is the default link kind for the standard (non-multipart) path.
const DefaultLink = LinkBatch

type linkFactory func(opts LinkOptions) (Link, error)

var (
	linksMu sync.RWMutex
	links   = map[string]linkFactory{
		LinkHTTP:  func(o LinkOptions) (Link, error) { return NewHTTPLink(o), nil },
		LinkBatch: func(o LinkOptions) (Link, error) { return NewBatchLink(o), nil },
	}
)

// registerLink registers a new link kind (used by build tags)
func registerLink(name string, factory linkFactory) {
	linksMu.Lock()
	defer linksMu.Unlock()
	links[name] = factory
}

// AvailableLinks returns list of available link kinds
func AvailableLinks() []string {
	linksMu.RLock()
	defer linksMu.RUnlock()
	result := make([]string, 0, len(links))
	for name := range links {
		result = append(result, name)
	}
	return result
}

// HasLink checks if a link kind is available
func HasLink(name string) bool {
	linksMu.RLock()
	defer linksMu.RUnlock()
	_, ok := links[name]
	return ok
}

// newLink builds a link of the named kind from the given options.
func newLink(name string, opts LinkOptions) (Link, error) {
	linksMu.RLock()
	factory, ok := links[name]
	linksMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown link kind: %s", name)
	}
	return factory(opts)
}
