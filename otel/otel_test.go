// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcotel

import (
	"context"
	"errors"
	"testing"

	"github.com/formlink/rpc"
)

func TestHookLifecycle(t *testing.T) {
	hook := NewHook(DefaultConfig())

	info := rpc.CallInfo{Method: "document.upload", Branch: rpc.BranchMultipart, URL: "http://x/rpc"}
	ctx, token := hook.OnCallStart(context.Background(), info)
	if ctx == nil {
		t.Fatal("OnCallStart returned a nil context")
	}
	if token == nil {
		t.Fatal("OnCallStart returned a nil token")
	}
	hook.OnCallEnd(ctx, token, info, nil)
	hook.OnCallEnd(ctx, token, info, errors.New("boom"))
}

func TestHookDisabled(t *testing.T) {
	hook := NewHook(Config{})

	info := rpc.CallInfo{Method: "m", Branch: rpc.BranchFallback}
	ctx, token := hook.OnCallStart(context.Background(), info)
	hook.OnCallEnd(ctx, token, info, nil)

	// a foreign token must be ignored, not panic
	hook.OnCallEnd(ctx, "not-a-span-token", info, nil)
}
