// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsonrpc "github.com/gorilla/rpc/v2/json2"
)

const defaultMaxFormMemory = 32 << 20 // 32MB

// Request is the server-side view of one incoming call. Exactly one of
// Params (JSON path) and Form (multipart path) is populated.
type Request struct {
	Method string
	Params json.RawMessage
	Form   *ParsedForm
	// Values holds the validated form fields when a schema is registered
	// for the method.
	Values map[string]any
	Header http.Header
}

// HandlerFunc handles one call and returns the result payload.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Server serves RPC requests over HTTP. Single calls are POSTed to
// {prefix}/{method} as either a JSON-RPC 2.0 envelope or a
// multipart/form-data body; batches are POSTed to {prefix} as a JSON-RPC
// batch array. Register all handlers before serving.
type Server struct {
	prefix    string
	mux       *http.ServeMux
	handlers  map[string]HandlerFunc
	schemas   map[string]*FormSchema
	maxMemory int64
}

// NewServer creates a server routing under the given path prefix
// (default "/rpc").
func NewServer(prefix string) *Server {
	if prefix == "" {
		prefix = "/rpc"
	}
	s := &Server{
		prefix:    prefix,
		handlers:  make(map[string]HandlerFunc),
		schemas:   make(map[string]*FormSchema),
		maxMemory: defaultMaxFormMemory,
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc(fmt.Sprintf("POST %s/{method}", s.prefix), s.handleSingle)
	s.mux.HandleFunc(fmt.Sprintf("POST %s", s.prefix), s.handleBatch)
	return s
}

// Register registers a handler for a method.
func (s *Server) Register(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// RegisterForm registers a handler whose multipart submissions are first
// validated against the given schema; the decoded value map is passed on
// Request.Values.
func (s *Server) RegisterForm(method string, schema *FormSchema, h HandlerFunc) {
	s.handlers[method] = h
	s.schemas[method] = schema
}

// SetMaxFormMemory bounds multipart parser buffering.
func (s *Server) SetMaxFormMemory(n int64) {
	s.maxMemory = n
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

var singleID = json.RawMessage("1")

// handleSingle dispatches one call addressed by path.
func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")
	handler, ok := s.handlers[method]
	if !ok {
		writeEnvelope(w, &singleID, nil, &jsonrpc.Error{
			Code:    jsonrpc.E_NO_METHOD,
			Message: fmt.Sprintf("unknown method: %s", method),
		})
		return
	}

	req := &Request{Method: method, Header: r.Header}
	id := &singleID

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		pf, err := ParseForm(r, s.maxMemory)
		if err != nil {
			writeEnvelope(w, id, nil, &jsonrpc.Error{Code: jsonrpc.E_PARSE, Message: err.Error()})
			return
		}
		req.Form = pf
		if schema := s.schemas[method]; schema != nil {
			values, err := DecodeForm(pf, schema)
			if err != nil {
				writeEnvelope(w, id, nil, &jsonrpc.Error{Code: jsonrpc.E_BAD_PARAMS, Message: err.Error()})
				return
			}
			req.Values = values
		}
	} else {
		env, err := readEnvelope(r.Body)
		if err != nil {
			writeEnvelope(w, id, nil, &jsonrpc.Error{Code: jsonrpc.E_PARSE, Message: err.Error()})
			return
		}
		if env.ID != nil {
			id = env.ID
		}
		req.Params = firstParam(env.Params)
	}

	result, err := handler(r.Context(), req)
	if err != nil {
		writeEnvelope(w, id, nil, toRPCError(err))
		return
	}
	writeEnvelope(w, id, result, nil)
}

// handleBatch dispatches a JSON-RPC batch array (or a lone envelope).
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeEnvelope(w, nil, nil, &jsonrpc.Error{Code: jsonrpc.E_PARSE, Message: err.Error()})
		return
	}

	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "[") {
		env := &serverEnvelope{}
		if err := json.Unmarshal(body, env); err != nil {
			writeEnvelope(w, nil, nil, &jsonrpc.Error{Code: jsonrpc.E_PARSE, Message: err.Error()})
			return
		}
		writeJSON(w, s.dispatchEnvelope(r, env))
		return
	}

	var envs []*serverEnvelope
	if err := json.Unmarshal(body, &envs); err != nil {
		writeEnvelope(w, nil, nil, &jsonrpc.Error{Code: jsonrpc.E_PARSE, Message: err.Error()})
		return
	}

	responses := make([]*responseEnvelope, len(envs))
	for i, env := range envs {
		responses[i] = s.dispatchEnvelope(r, env)
	}
	writeJSON(w, responses)
}

func (s *Server) dispatchEnvelope(r *http.Request, env *serverEnvelope) *responseEnvelope {
	handler, ok := s.handlers[env.Method]
	if !ok {
		return errorEnvelope(env.ID, &jsonrpc.Error{
			Code:    jsonrpc.E_NO_METHOD,
			Message: fmt.Sprintf("unknown method: %s", env.Method),
		})
	}

	req := &Request{
		Method: env.Method,
		Params: firstParam(env.Params),
		Header: r.Header,
	}
	result, err := handler(r.Context(), req)
	if err != nil {
		return errorEnvelope(env.ID, toRPCError(err))
	}
	return resultEnvelope(env.ID, result)
}

// --- Envelopes ---

// serverEnvelope is the incoming JSON-RPC 2.0 request envelope; params wrap
// the single call argument in a one-element array (json2 client format).
type serverEnvelope struct {
	Version string           `json:"jsonrpc"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params"`
	ID      *json.RawMessage `json:"id"`
}

type responseEnvelope struct {
	Version string           `json:"jsonrpc"`
	Result  any              `json:"result,omitempty"`
	Error   *jsonrpc.Error   `json:"error,omitempty"`
	ID      *json.RawMessage `json:"id"`
}

func readEnvelope(body io.Reader) (*serverEnvelope, error) {
	env := &serverEnvelope{}
	if err := json.NewDecoder(body).Decode(env); err != nil {
		return nil, fmt.Errorf("decode request envelope: %w", err)
	}
	return env, nil
}

// firstParam unwraps the one-element params array.
func firstParam(params json.RawMessage) json.RawMessage {
	if len(params) == 0 {
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(params, &arr); err != nil || len(arr) == 0 {
		return params
	}
	return arr[0]
}

func toRPCError(err error) *jsonrpc.Error {
	if rpcErr, ok := err.(*jsonrpc.Error); ok {
		return rpcErr
	}
	return &jsonrpc.Error{Code: jsonrpc.E_SERVER, Message: err.Error()}
}

func resultEnvelope(id *json.RawMessage, result any) *responseEnvelope {
	if result == nil {
		// The client envelope decoder rejects a null result.
		result = struct{}{}
	}
	if id == nil {
		id = &singleID
	}
	return &responseEnvelope{Version: "2.0", Result: result, ID: id}
}

func errorEnvelope(id *json.RawMessage, rpcErr *jsonrpc.Error) *responseEnvelope {
	if id == nil {
		id = &singleID
	}
	return &responseEnvelope{Version: "2.0", Error: rpcErr, ID: id}
}

func writeEnvelope(w http.ResponseWriter, id *json.RawMessage, result any, rpcErr *jsonrpc.Error) {
	if rpcErr != nil {
		writeJSON(w, errorEnvelope(id, rpcErr))
		return
	}
	writeJSON(w, resultEnvelope(id, result))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
