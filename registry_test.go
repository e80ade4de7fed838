// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAvailableLinks(t *testing.T) {
	kinds := AvailableLinks()
	want := map[string]bool{LinkHTTP: false, LinkBatch: false}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("link kind %q not registered", k)
		}
	}
}

func TestHasLink(t *testing.T) {
	if !HasLink(LinkHTTP) {
		t.Error("http link should be available")
	}
	if !HasLink(LinkBatch) {
		t.Error("batch link should be available")
	}
	if HasLink("carrier-pigeon") {
		t.Error("unregistered kind reported available")
	}
}

func TestNewLinkUnknownKind(t *testing.T) {
	_, err := newLink("carrier-pigeon", LinkOptions{})
	if err == nil || !strings.Contains(err.Error(), "unknown link kind") {
		t.Errorf("got %v, want unknown link kind error", err)
	}
}

func TestDialUnknownFallbackKind(t *testing.T) {
	_, err := Dial("http://x/rpc", WithFallbackKind("carrier-pigeon"))
	if err == nil || !strings.Contains(err.Error(), "unknown link kind") {
		t.Errorf("got %v, want unknown link kind error", err)
	}
}

func TestDialFallbackKindHTTP(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeRPCResult(w, `{"n":1}`)
	}))
	defer srv.Close()

	client, err := Dial(srv.URL+"/rpc", WithFallbackKind(LinkHTTP))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var reply struct {
		N int `json:"n"`
	}
	if err := client.Call(context.Background(), "status.get", map[string]int{}, &reply); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// the http kind addresses the method in the path, not the batch endpoint
	if gotPath != "/rpc/status.get" {
		t.Errorf("path: got %q, want /rpc/status.get", gotPath)
	}
	if reply.N != 1 {
		t.Errorf("reply: got %d, want 1", reply.N)
	}
}

func TestDialWithFallbackLink(t *testing.T) {
	var gotMethod string
	override := LinkFunc(func(ctx context.Context, op *Operation) (*Response, error) {
		gotMethod = op.Method
		result := json.RawMessage(`{"n":2}`)
		if op.Reply != nil {
			if err := json.Unmarshal(result, op.Reply); err != nil {
				return nil, err
			}
		}
		return &Response{Result: result}, nil
	})

	client, err := Dial("http://unused/rpc", WithFallback(override))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var reply struct {
		N int `json:"n"`
	}
	if err := client.Call(context.Background(), "status.get", map[string]int{}, &reply); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if gotMethod != "status.get" {
		t.Errorf("method: got %q", gotMethod)
	}
	if reply.N != 2 {
		t.Errorf("reply: got %d, want 2", reply.N)
	}
}
