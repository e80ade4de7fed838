// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc provides a typed RPC client with per-call transport routing.
//
// # Transport Routing
//
// Calls travel through a link chain. The top-level link inspects each
// call's input: a *Form argument (named fields plus binary file
// attachments) is sent as a single multipart/form-data request, while
// every other argument travels the standard JSON-RPC 2.0 path, where
// concurrent calls are batched into one request. The caller sees one
// typed surface either way.
//
//	client, err := rpc.Dial("http://api.example.com/rpc")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Standard call (batched JSON)
//	var result MyResponse
//	err = client.Call(ctx, "profile.update", &MyRequest{...}, &result)
//
//	// Multipart call (single request, file attachment)
//	form := rpc.NewForm()
//	form.AddField("name", "report")
//	form.AddFile("doc", "report.pdf", file)
//	err = client.Call(ctx, "document.upload", form, &result)
//
// The multipart path leaves the Content-Type header to be generated with
// the encoded body, so its boundary token is always correct even when a
// default content type is configured. Responses on both paths decode
// through the same deserialization pipeline.
//
// Alternate links for the standard path are selected at construction:
//
//	rpc.Dial(addr, rpc.WithFallbackKind("http"))  // unbatched single requests
//	go build -tags grpc                           // enables the "grpc" link kind
//
// # Architecture
//
// The package separates concerns:
//
//   - client.go: typed Client surface over a link chain
//   - link.go: Link interface and call classification
//   - formdata_link.go: per-call conditional transport selection
//   - http_link.go: single-request JSON/multipart transport
//   - batch_link.go: batching JSON transport
//   - fetch.go, headers.go: request-side multipart header handling
//   - form.go, form_schema.go: multipart container, parsing, validation
//   - server.go: HTTP server adaptation for both wire shapes
//   - registry.go: link registry for build-tag extensibility
//
// Application code should only depend on the Client interface, making
// transport selection a per-call decision rather than a code change.
package rpc
