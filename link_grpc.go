//go:build grpc

// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func init() {
	// Register gRPC link when build tag is enabled
	registerLink(LinkGRPC, newGRPCLink)
}

// newGRPCLink builds a complete alternate link over a gRPC connection,
// usable as the fallback for non-multipart calls.
func newGRPCLink(opts LinkOptions) (Link, error) {
	conn, err := grpc.NewClient(opts.URL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &grpcLink{conn: conn}, nil
}

type grpcLink struct {
	conn *grpc.ClientConn
}

func (l *grpcLink) Do(ctx context.Context, op *Operation) (*Response, error) {
	method := op.Method
	if !strings.HasPrefix(method, "/") {
		method = "/" + method
	}
	if err := l.conn.Invoke(ctx, method, op.Input, op.Reply); err != nil {
		return nil, fmt.Errorf("grpc invoke: %w", err)
	}
	return &Response{}, nil
}

func (l *grpcLink) Close() error {
	return l.conn.Close()
}
