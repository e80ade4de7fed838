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
	"strings"
	"time"

	"github.com/google/uuid"
	jsonrpc "github.com/gorilla/rpc/v2/json2"
	"github.com/klauspost/compress/gzip"
)

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// newHTTPClient creates a fresh HTTP client with disabled connection reuse.
// This avoids EOF errors that can occur with connection pooling in complex
// process hierarchies.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true, // Disable connection reuse to avoid EOF issues
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	// Drain any remaining data to allow connection reuse
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// EOF errors are often transient connection issues
	if errors.Is(err, io.EOF) || strings.Contains(errStr, "EOF") {
		return true
	}
	// Connection reset/refused are also transient
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") {
		return true
	}
	return false
}

// gunzipBody swaps a gzip-encoded response body for a decompressing reader.
// Responses without gzip encoding pass through untouched.
func gunzipBody(resp *http.Response) error {
	if resp.Header.Get("Content-Encoding") != "gzip" {
		return nil
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("open gzip response body: %w", err)
	}
	resp.Body = &gzipReadCloser{zr: zr, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.ContentLength = -1
	return nil
}

type gzipReadCloser struct {
	zr  *gzip.Reader
	raw io.ReadCloser
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zerr := g.zr.Close()
	rerr := CleanlyCloseBody(g.raw)
	if zerr != nil {
		return zerr
	}
	return rerr
}

// HTTPLink is the single-request transport: exactly one network request per
// call, POSTed to URL/{method}. Standard input is serialized through the
// configured transformer and wrapped in a JSON-RPC 2.0 envelope; a *Form
// input is sent as its raw multipart encoding instead.
//
// Multipart-bearing operations rely on the configured Doer to attach the
// body's content type; NewFormDataLink wires this up. A bare HTTPLink is
// meant for the standard path.
type HTTPLink struct {
	opts LinkOptions
	tr   *Transformer
}

// NewHTTPLink builds a single-request link from the given options. The
// options value is copied; the caller's value is never modified.
func NewHTTPLink(opts LinkOptions) *HTTPLink {
	return &HTTPLink{opts: opts, tr: opts.transformer()}
}

func (l *HTTPLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	uri, err := url.Parse(l.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse target url: %w", err)
	}
	uri = uri.JoinPath(op.Method)
	if len(l.opts.QueryParams) > 0 {
		uri.RawQuery = l.opts.QueryParams.Encode()
	}

	if form, ok := op.Input.(*Form); ok {
		return l.sendForm(ctx, uri, op, form)
	}
	return l.sendJSON(ctx, uri, op)
}

func (l *HTTPLink) doer() Doer {
	if l.opts.Doer != nil {
		return l.opts.Doer
	}
	return newHTTPClient()
}

// sendForm issues a single multipart request. The encoded body carries its
// own boundary-bearing content type; header attachment is left to the
// request-side Doer. Multipart requests are never retried.
func (l *HTTPLink) sendForm(ctx context.Context, uri *url.URL, op *Operation, form *Form) (*Response, error) {
	body, err := form.encode()
	if err != nil {
		return nil, fmt.Errorf("encode multipart body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, uri.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.ContentLength = int64(body.Len())
	request.Header = l.opts.mergedHeaders(op.Header)
	request.Header.Set("Accept-Encoding", "gzip")
	request.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := l.doer().Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to issue request: %w", err)
	}
	return l.readResponse(resp, op)
}

// sendJSON issues a JSON-RPC request with the standard retry discipline:
// fresh request per attempt, exponential backoff, transient errors only.
func (l *HTTPLink) sendJSON(ctx context.Context, uri *url.URL, op *Operation) (*Response, error) {
	params := op.Input
	if l.tr != nil && l.tr.Serialize != nil {
		var err error
		params, err = l.tr.Serialize(params)
		if err != nil {
			return nil, fmt.Errorf("serialize call input: %w", err)
		}
	}

	requestBodyBytes, err := jsonrpc.EncodeClientRequest(op.Method, params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode client params: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
			}
		}

		// Create fresh request for each attempt (body buffer is consumed)
		request, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			uri.String(),
			bytes.NewBuffer(requestBodyBytes),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		request.Header = l.opts.mergedHeaders(op.Header)
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("Accept-Encoding", "gzip")
		request.Header.Set("X-Request-Id", uuid.NewString())

		resp, err := l.doer().Do(request)
		if err != nil {
			lastErr = err
			if isRetryableError(err) {
				log.Printf("[RPC] Request attempt %d failed: %v (retrying)", attempt+1, err)
				continue
			}
			return nil, fmt.Errorf("failed to issue request: %w", err)
		}

		return l.readResponse(resp, op)
	}

	return nil, fmt.Errorf("failed to issue request after %d retries: %w", maxRetries, lastErr)
}

// readResponse decodes the standard single-call response envelope and, when
// a reply target is present, runs the transformer's deserialize side.
func (l *HTTPLink) readResponse(resp *http.Response, op *Operation) (*Response, error) {
	// Return an error for any non successful status code
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		CleanlyCloseBody(resp.Body)
		return nil, fmt.Errorf("received status code: %d", resp.StatusCode)
	}

	if err := gunzipBody(resp); err != nil {
		CleanlyCloseBody(resp.Body)
		return nil, err
	}

	var raw json.RawMessage
	if err := jsonrpc.DecodeClientResponse(resp.Body, &raw); err != nil {
		CleanlyCloseBody(resp.Body)
		return nil, err
	}
	CleanlyCloseBody(resp.Body)

	if op.Reply != nil {
		if err := deserializeResult(l.tr, raw, op.Reply); err != nil {
			return nil, fmt.Errorf("failed to decode client response: %w", err)
		}
	}
	return &Response{Result: raw}, nil
}

// deserializeResult decodes a raw result payload into reply using the
// transformer's deserialize side, or plain JSON when none is configured.
func deserializeResult(tr *Transformer, raw json.RawMessage, reply any) error {
	if tr != nil && tr.Deserialize != nil {
		return tr.Deserialize(raw, reply)
	}
	return defaultCodec.Decode(raw, reply)
}
