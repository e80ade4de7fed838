// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	jsonrpc "github.com/gorilla/rpc/v2/json2"
)

const (
	defaultBatchWindow = 5 * time.Millisecond
	defaultBatchLimit  = 16
)

// ErrNoBatchResponse indicates the server's batch reply carried no element
// for one of the submitted calls.
var ErrNoBatchResponse = errors.New("rpc: batch response missing call result")

// clientRequest mirrors the JSON-RPC 2.0 client envelope written by the
// json2 codec: params wrap the single argument in a one-element array.
type clientRequest struct {
	Version string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  [1]any `json:"params"`
	ID      uint64 `json:"id"`
}

// BatchLink is the batching transport: concurrent calls arriving within a
// short collection window are combined into a single JSON-RPC 2.0 batch
// request, and responses are matched back to their calls by envelope id.
// Calls carry no ordering guarantee relative to each other.
type BatchLink struct {
	opts   LinkOptions
	tr     *Transformer
	window time.Duration
	limit  int

	nextID atomic.Uint64

	mu      sync.Mutex
	pending []*batchCall
	timer   *time.Timer
}

type batchCall struct {
	op   *Operation
	env  clientRequest
	done chan struct{}
	resp *Response
	err  error
}

// NewBatchLink builds a batching link from the given options. The options
// value is copied; the caller's value is never modified.
func NewBatchLink(opts LinkOptions) *BatchLink {
	window := opts.BatchWindow
	if window <= 0 {
		window = defaultBatchWindow
	}
	limit := opts.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	return &BatchLink{
		opts:   opts,
		tr:     opts.transformer(),
		window: window,
		limit:  limit,
	}
}

func (l *BatchLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	params := op.Input
	if l.tr != nil && l.tr.Serialize != nil {
		var err error
		params, err = l.tr.Serialize(params)
		if err != nil {
			return nil, fmt.Errorf("serialize call input: %w", err)
		}
	}

	call := &batchCall{
		op: op,
		env: clientRequest{
			Version: "2.0",
			Method:  op.Method,
			Params:  [1]any{params},
			ID:      l.nextID.Add(1),
		},
		done: make(chan struct{}),
	}

	l.mu.Lock()
	l.pending = append(l.pending, call)
	if len(l.pending) >= l.limit {
		batch := l.takeLocked()
		l.mu.Unlock()
		l.flush(batch)
	} else {
		if l.timer == nil {
			l.timer = time.AfterFunc(l.window, l.flushWindow)
		}
		l.mu.Unlock()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-call.done:
		return call.resp, call.err
	}
}

// takeLocked detaches the pending batch and disarms the window timer.
// Callers must hold l.mu.
func (l *BatchLink) takeLocked() []*batchCall {
	batch := l.pending
	l.pending = nil
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	return batch
}

func (l *BatchLink) flushWindow() {
	l.mu.Lock()
	batch := l.takeLocked()
	l.mu.Unlock()
	if len(batch) > 0 {
		l.flush(batch)
	}
}

func (l *BatchLink) doer() Doer {
	if l.opts.Doer != nil {
		return l.opts.Doer
	}
	return newHTTPClient()
}

// flush sends one batch request and resolves every call in it.
func (l *BatchLink) flush(batch []*batchCall) {
	envs := make([]clientRequest, len(batch))
	for i, call := range batch {
		envs[i] = call.env
	}
	body, err := json.Marshal(envs)
	if err != nil {
		l.fail(batch, fmt.Errorf("failed to encode batch request: %w", err))
		return
	}

	uri, err := url.Parse(l.opts.URL)
	if err != nil {
		l.fail(batch, fmt.Errorf("parse target url: %w", err))
		return
	}
	if len(l.opts.QueryParams) > 0 {
		uri.RawQuery = l.opts.QueryParams.Encode()
	}

	data, err := l.send(uri, body)
	if err != nil {
		l.fail(batch, err)
		return
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		l.fail(batch, fmt.Errorf("failed to decode batch response: %w", err))
		return
	}

	// Correlate by envelope id; element order is not guaranteed.
	byID := make(map[uint64]json.RawMessage, len(elems))
	for _, elem := range elems {
		var peek struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(elem, &peek); err != nil {
			continue
		}
		byID[peek.ID] = elem
	}

	for _, call := range batch {
		elem, ok := byID[call.env.ID]
		if !ok {
			call.err = ErrNoBatchResponse
			close(call.done)
			continue
		}
		call.resp, call.err = l.resolve(call.op, elem)
		close(call.done)
	}
}

// send performs the batch POST with the standard retry discipline for
// transient transport errors.
func (l *BatchLink) send(uri *url.URL, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := retryBaseWait * time.Duration(1<<(attempt-1))
			time.Sleep(waitTime)
		}

		request, err := http.NewRequest(http.MethodPost, uri.String(), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		request.Header = l.opts.mergedHeaders(nil)
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("Accept-Encoding", "gzip")
		request.Header.Set("X-Request-Id", uuid.NewString())

		resp, err := l.doer().Do(request)
		if err != nil {
			lastErr = err
			if isRetryableError(err) {
				log.Printf("[RPC] Batch attempt %d failed: %v (retrying)", attempt+1, err)
				continue
			}
			return nil, fmt.Errorf("failed to issue request: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			CleanlyCloseBody(resp.Body)
			return nil, fmt.Errorf("received status code: %d", resp.StatusCode)
		}
		if err := gunzipBody(resp); err != nil {
			CleanlyCloseBody(resp.Body)
			return nil, err
		}
		data, err := io.ReadAll(resp.Body)
		CleanlyCloseBody(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read batch response: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("failed to issue request after %d retries: %w", maxRetries, lastErr)
}

// resolve decodes one batch element for its call.
func (l *BatchLink) resolve(op *Operation, elem json.RawMessage) (*Response, error) {
	var raw json.RawMessage
	if err := jsonrpc.DecodeClientResponse(bytes.NewReader(elem), &raw); err != nil {
		return nil, err
	}
	if op.Reply != nil {
		if err := deserializeResult(l.tr, raw, op.Reply); err != nil {
			return nil, fmt.Errorf("failed to decode client response: %w", err)
		}
	}
	return &Response{Result: raw}, nil
}

// fail resolves every call in a batch with the same error.
func (l *BatchLink) fail(batch []*batchCall, err error) {
	for _, call := range batch {
		call.err = err
		close(call.done)
	}
}
