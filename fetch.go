// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"net/http"
)

// Doer is the pluggable request-performing seam. *http.Client satisfies it;
// callers supply their own to inject tracing, fixtures, or custom
// transports.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(*http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// formAwareDoer is the transport-fetch adapter. Before delegating, it
// sanitizes the outgoing headers when the body is an encoded multipart
// payload and attaches the boundary-bearing content type generated with
// that payload. It is purely a request-side interceptor: responses and
// transport errors pass through untouched, with no retry or translation.
type formAwareDoer struct {
	next Doer
}

// newFormAwareDoer wraps a Doer with multipart header handling. A nil next
// delegates to a fresh default HTTP client per request.
func newFormAwareDoer(next Doer) Doer {
	return &formAwareDoer{next: next}
}

func (d *formAwareDoer) Do(req *http.Request) (*http.Response, error) {
	body, multipart := req.Body.(*formBody)
	req.Header = sanitizeHeaders(req.Header, multipart)
	if multipart {
		req.Header.Set("Content-Type", body.contentType)
	}
	next := d.next
	if next == nil {
		next = newHTTPClient()
	}
	return next.Do(req)
}
