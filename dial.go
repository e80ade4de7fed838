// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

// Dial builds a client for the given target address. Every call is routed
// per input: a *Form argument travels as a single multipart request, and
// everything else goes through the standard batching link, or through the
// fallback configured with WithFallback / WithFallbackKind.
func Dial(target string, opts ...Option) (Client, error) {
	cfg := &dialConfig{link: LinkOptions{URL: target}}
	for _, opt := range opts {
		opt(cfg)
	}

	fallback := cfg.fallback
	if fallback == nil && cfg.kind != "" && cfg.kind != DefaultLink {
		fb, err := newLink(cfg.kind, cfg.link)
		if err != nil {
			return nil, err
		}
		fallback = fb
	}

	return NewClient(NewFormDataLink(cfg.link, fallback)), nil
}
