// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"net/http"
)

// Operation describes a single outgoing call as it travels through a link
// chain. Links read Input to decide how to route and encode the call; they
// never mutate or retain the operation beyond the call's lifetime.
type Operation struct {
	// Method is the remote procedure name.
	Method string

	// Input is the call argument. A *Form input selects the multipart
	// transport path; anything else travels the standard JSON path.
	Input any

	// Reply, when non-nil, receives the decoded response payload.
	Reply any

	// Header holds per-call headers merged over the link's configured
	// header set.
	Header http.Header
}

// Response is the raw outcome of a routed call. Result holds the response
// payload before deserialization; when Operation.Reply was set, the link has
// already decoded the payload into it.
type Response struct {
	Result json.RawMessage
}

// Link is a composable unit of client-side request handling. Links form the
// call pipeline between the typed Client surface and the network.
type Link interface {
	Do(ctx context.Context, op *Operation) (*Response, error)
}

// LinkFunc adapts a function to the Link interface.
type LinkFunc func(ctx context.Context, op *Operation) (*Response, error)

func (f LinkFunc) Do(ctx context.Context, op *Operation) (*Response, error) {
	return f(ctx, op)
}

// callKind discriminates the two transport strategies a call can take.
type callKind int

const (
	kindStandard callKind = iota
	kindMultipart
)

// classifyCall decides which transport strategy applies to an operation.
// The check is total: a nil operation, absent input, or any non-Form input
// classifies as standard.
func classifyCall(op *Operation) callKind {
	if op == nil {
		return kindStandard
	}
	if _, ok := op.Input.(*Form); ok {
		return kindMultipart
	}
	return kindStandard
}
