// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"io"
)

// Client is the typed call surface. All application code should use this
// interface; routing between transports happens underneath it, per call.
type Client interface {
	// Call makes a synchronous RPC call
	Call(ctx context.Context, method string, args, reply interface{}) error

	// CallRaw makes a call with a pre-encoded JSON payload
	CallRaw(ctx context.Context, method string, payload []byte) ([]byte, error)

	// Notify makes a call and discards the response payload
	Notify(ctx context.Context, method string, args interface{}) error

	// Close releases the underlying link, if it holds resources
	Close() error
}

// NewClient wraps a link chain in the typed Client surface.
func NewClient(link Link) Client {
	return &linkClient{link: link}
}

// linkClient implements Client by driving a Link chain.
type linkClient struct {
	link Link
}

func (c *linkClient) Call(ctx context.Context, method string, args, reply interface{}) error {
	op := &Operation{Method: method, Input: args, Reply: reply}
	_, err := c.link.Do(ctx, op)
	return err
}

func (c *linkClient) CallRaw(ctx context.Context, method string, payload []byte) ([]byte, error) {
	op := &Operation{Method: method, Input: json.RawMessage(payload)}
	resp, err := c.link.Do(ctx, op)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *linkClient) Notify(ctx context.Context, method string, args interface{}) error {
	op := &Operation{Method: method, Input: args}
	_, err := c.link.Do(ctx, op)
	return err
}

func (c *linkClient) Close() error {
	if closer, ok := c.link.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
