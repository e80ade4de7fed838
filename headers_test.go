// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"net/http"
	"reflect"
	"testing"
)

func TestSanitizeHeadersMultipart(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer token")
	h.Add("X-Custom", "a")
	h.Add("X-Custom", "b")

	got := sanitizeHeaders(h, true)

	if _, ok := got["Content-Type"]; ok {
		t.Errorf("Content-Type should be removed, got %q", got.Get("Content-Type"))
	}
	if got.Get("Authorization") != "Bearer token" {
		t.Errorf("Authorization: got %q, want %q", got.Get("Authorization"), "Bearer token")
	}
	if vs := got["X-Custom"]; len(vs) != 2 || vs[0] != "a" || vs[1] != "b" {
		t.Errorf("X-Custom: got %v, want [a b]", vs)
	}

	// input must be untouched
	if h.Get("Content-Type") != "application/json" {
		t.Errorf("input header was mutated: %v", h)
	}
}

func TestSanitizeHeadersNonMultipart(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "tok")

	got := sanitizeHeaders(h, false)

	if !reflect.DeepEqual(got, h) {
		t.Errorf("got %v, want %v", got, h)
	}
}

func TestSanitizeHeadersMissingKey(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "tok")

	got := sanitizeHeaders(h, true)

	if got.Get("Authorization") != "tok" {
		t.Errorf("Authorization: got %q, want %q", got.Get("Authorization"), "tok")
	}
	if len(got) != 1 {
		t.Errorf("got %d keys, want 1", len(got))
	}
}

func TestSanitizeHeadersNil(t *testing.T) {
	got := sanitizeHeaders(nil, true)
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}
