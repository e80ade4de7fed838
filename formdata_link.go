// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
)

// formDataLink routes each outgoing call to one of two fixed transport
// strategies based on the call's input. Both downstream links are built once
// at construction and reused for every matching call.
type formDataLink struct {
	multipart Link
	fallback  Link
	hook      CallHook
	url       string
}

// NewFormDataLink returns a link that inspects every outgoing call: calls
// whose input is a *Form travel a single-request transport able to emit a
// well-formed multipart body, and every other call travels the standard
// batching transport (or the supplied fallback link, used verbatim).
//
// The multipart branch is a single-request HTTP link derived from opts with
// two overrides: its Doer is wrapped so a stale Content-Type header is
// stripped in favor of the body's boundary-bearing one, and its transformer,
// when one is configured, has its serialize side replaced by the identity
// function. A multipart payload is never run through the object serializer,
// but responses still decode exactly as on the standard path. When no
// transformer is configured none is introduced.
//
// The caller's opts value is not modified; the fallback branch sees the
// original configuration untouched. A nil fallback selects a batching link
// built from that original configuration.
func NewFormDataLink(opts LinkOptions, fallback Link) Link {
	derived := opts
	derived.Doer = newFormAwareDoer(opts.Doer)
	if tr := opts.transformer(); tr != nil {
		derived.Transformer = bypassSerializer(tr)
		derived.Codec = nil
	}

	if fallback == nil {
		fallback = NewBatchLink(opts)
	}

	return &formDataLink{
		multipart: NewHTTPLink(derived),
		fallback:  fallback,
		hook:      opts.Hook,
		url:       opts.URL,
	}
}

func (l *formDataLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	kind := classifyCall(op)

	info := CallInfo{Method: op.Method, URL: l.url, Branch: BranchFallback}
	if kind == kindMultipart {
		info.Branch = BranchMultipart
	}

	var token HookToken
	if l.hook != nil {
		ctx, token = l.hook.OnCallStart(ctx, info)
	}

	var resp *Response
	var err error
	switch kind {
	case kindMultipart:
		resp, err = l.multipart.Do(ctx, op)
	default:
		resp, err = l.fallback.Do(ctx, op)
	}

	if l.hook != nil {
		l.hook.OnCallEnd(ctx, token, info, err)
	}
	return resp, err
}
