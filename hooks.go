// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "context"

// Branch names reported in CallInfo.Branch.
const (
	BranchMultipart = "multipart"
	BranchFallback  = "fallback"
)

// CallHook provides observability callpoints around routed calls.
// Implementations must be safe for concurrent use; multiple calls may be in
// flight at once.
type CallHook interface {
	OnCallStart(ctx context.Context, info CallInfo) (context.Context, HookToken)
	OnCallEnd(ctx context.Context, token HookToken, info CallInfo, err error)
}

// HookToken is an opaque value returned by OnCallStart and passed back to
// OnCallEnd. Only meaningful to the CallHook that created it.
type HookToken interface{}

// CallInfo carries call metadata passed to hooks.
type CallInfo struct {
	Method string // RPC method name
	Branch string // BranchMultipart or BranchFallback
	URL    string // Configured target address
}
