// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"net/http"
	"net/url"
	"time"
)

// LinkOptions configures a transport link. The struct is treated as an
// immutable value once passed to a link constructor: constructors copy and
// derive from it, never mutate it, so a caller's options remain unchanged
// and can be reused.
type LinkOptions struct {
	// URL is the target address. Calls are POSTed to URL/{method}.
	URL string

	// Transformer pairs a serialize function for outgoing call input with
	// a deserialize function for incoming response payloads. Optional.
	Transformer *Transformer

	// Codec is the combined single-object convention and is consulted only
	// when Transformer is nil. Optional.
	Codec Codec

	// Doer performs the network request. Defaults to a fresh HTTP client
	// per request.
	Doer Doer

	// Headers are attached to every outgoing request.
	Headers http.Header

	// QueryParams are appended to the target URL.
	QueryParams url.Values

	// BatchWindow is how long the batching link waits to collect
	// concurrent calls before flushing. Zero means defaultBatchWindow.
	BatchWindow time.Duration

	// BatchLimit caps the number of calls per flushed batch. Zero means
	// defaultBatchLimit.
	BatchLimit int

	// Hook observes routed calls. Optional.
	Hook CallHook
}

// transformer resolves the configured transformer, normalizing the combined
// Codec convention into the paired one when needed.
func (o LinkOptions) transformer() *Transformer {
	if o.Transformer != nil {
		return o.Transformer
	}
	return transformerFromCodec(o.Codec)
}

// mergedHeaders clones the configured header set and lays per-call headers
// over it. The configured map itself is never written to.
func (o LinkOptions) mergedHeaders(perCall http.Header) http.Header {
	out := make(http.Header, len(o.Headers)+len(perCall))
	for k, vs := range o.Headers {
		out[k] = append([]string(nil), vs...)
	}
	for k, vs := range perCall {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Option configures Dial.
type Option func(*dialConfig)

type dialConfig struct {
	link     LinkOptions
	fallback Link
	kind     string
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *dialConfig) {
		if c.link.Headers == nil {
			c.link.Headers = make(http.Header)
		}
		c.link.Headers.Add(key, value)
	}
}

// WithQueryParam adds a query parameter appended to the target URL.
func WithQueryParam(key, value string) Option {
	return func(c *dialConfig) {
		if c.link.QueryParams == nil {
			c.link.QueryParams = make(url.Values)
		}
		c.link.QueryParams.Add(key, value)
	}
}

// WithDoer sets a custom request-performing function.
func WithDoer(d Doer) Option {
	return func(c *dialConfig) { c.link.Doer = d }
}

// WithTransformer sets the paired serialize/deserialize transformer.
func WithTransformer(t *Transformer) Option {
	return func(c *dialConfig) { c.link.Transformer = t }
}

// WithCodec sets a combined codec, used when no transformer is set.
func WithCodec(codec Codec) Option {
	return func(c *dialConfig) { c.link.Codec = codec }
}

// WithHook installs a call observability hook.
func WithHook(h CallHook) Option {
	return func(c *dialConfig) { c.link.Hook = h }
}

// WithBatchWindow sets the batching link's collection window.
func WithBatchWindow(d time.Duration) Option {
	return func(c *dialConfig) { c.link.BatchWindow = d }
}

// WithBatchLimit caps calls per flushed batch.
func WithBatchLimit(n int) Option {
	return func(c *dialConfig) { c.link.BatchLimit = n }
}

// WithFallback routes every non-multipart call through the given link
// verbatim instead of the standard batching link.
func WithFallback(l Link) Option {
	return func(c *dialConfig) { c.fallback = l }
}

// WithFallbackKind selects a registered link constructor by name for the
// non-multipart path.
func WithFallbackKind(name string) Option {
	return func(c *dialConfig) { c.kind = name }
}
