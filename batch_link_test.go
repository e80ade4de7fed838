// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jsonrpc "github.com/gorilla/rpc/v2/json2"
)

type batchEnv struct {
	ID     uint64             `json:"id"`
	Method string             `json:"method"`
	Params [1]json.RawMessage `json:"params"`
}

// echoBatchHandler answers each batch element with its own params, in
// reverse order, so correlation by id is actually exercised.
func echoBatchHandler(requests *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		var envs []batchEnv
		if err := json.NewDecoder(r.Body).Decode(&envs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		parts := make([]string, 0, len(envs))
		for i := len(envs) - 1; i >= 0; i-- {
			parts = append(parts, fmt.Sprintf(
				`{"jsonrpc":"2.0","result":%s,"id":%d}`, envs[i].Params[0], envs[i].ID))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s]", strings.Join(parts, ","))
	}
}

func TestBatchLinkCombinesConcurrentCalls(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(echoBatchHandler(&requests))
	defer srv.Close()

	link := NewBatchLink(LinkOptions{
		URL:         srv.URL + "/rpc",
		BatchWindow: 100 * time.Millisecond,
	})

	const n = 3
	var wg sync.WaitGroup
	replies := make([]map[string]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i] = map[string]int{}
			_, errs[i] = link.Do(context.Background(), &Operation{
				Method: "echo",
				Input:  map[string]int{"i": i},
				Reply:  &replies[i],
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if replies[i]["i"] != i {
			t.Errorf("call %d: got reply %v, want i=%d", i, replies[i], i)
		}
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("network requests: got %d, want 1", got)
	}
}

func TestBatchLinkLimitFlushesEarly(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(echoBatchHandler(&requests))
	defer srv.Close()

	link := NewBatchLink(LinkOptions{
		URL:         srv.URL + "/rpc",
		BatchWindow: time.Hour, // the limit, not the window, must trigger
		BatchLimit:  2,
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reply := map[string]int{}
			if _, err := link.Do(context.Background(), &Operation{
				Method: "echo",
				Input:  map[string]int{"i": i},
				Reply:  &reply,
			}); err != nil {
				t.Errorf("call %d: %v", i, err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch never flushed at the limit")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("network requests: got %d, want 1", got)
	}
}

func TestBatchLinkErrorElement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envs []batchEnv
		if err := json.NewDecoder(r.Body).Decode(&envs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w,
			`[{"jsonrpc":"2.0","error":{"code":-32000,"message":"denied"},"id":%d}]`,
			envs[0].ID)
	}))
	defer srv.Close()

	link := NewBatchLink(LinkOptions{URL: srv.URL + "/rpc", BatchWindow: time.Millisecond})

	_, err := link.Do(context.Background(), &Operation{Method: "m", Input: 1})
	if err == nil {
		t.Fatal("expected an error")
	}
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("got %T (%v), want *json2.Error", err, err)
	}
	if rpcErr.Message != "denied" {
		t.Errorf("message: got %q, want %q", rpcErr.Message, "denied")
	}
}

func TestBatchLinkMissingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	link := NewBatchLink(LinkOptions{URL: srv.URL + "/rpc", BatchWindow: time.Millisecond})

	_, err := link.Do(context.Background(), &Operation{Method: "m", Input: 1})
	if !errors.Is(err, ErrNoBatchResponse) {
		t.Errorf("got %v, want ErrNoBatchResponse", err)
	}
}
