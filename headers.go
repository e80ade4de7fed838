// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "net/http"

// sanitizeHeaders returns the header set to attach to an outgoing request.
// When the body is a multipart payload, the result is a copy of h with any
// entry keyed exactly "Content-Type" removed: the correct value must carry
// the boundary token generated with the encoded body, and a pre-set entry
// from configured defaults would be missing it and corrupt the request on
// the receiving end. All other entries are preserved as-is.
//
// When the body is not multipart, h is returned unchanged.
//
// The key comparison is a case-sensitive literal match. http.Header stores
// keys in canonical MIME form, so the literal spelling is also the canonical
// one and no other casing can occur in headers built through the usual
// Set/Add calls.
func sanitizeHeaders(h http.Header, multipartBody bool) http.Header {
	if !multipartBody {
		return h
	}
	out := make(http.Header, len(h))
	for k, vs := range h {
		if k == "Content-Type" {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}
