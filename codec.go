// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
)

// Codec is the combined encode/decode convention: a single object serving
// both directions of a call. It is one of the two transformer conventions
// accepted by LinkOptions.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// JSONCodec is a JSON-based codec
type JSONCodec struct{}

func (JSONCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// defaultCodec is used when no codec is specified
var defaultCodec Codec = JSONCodec{}

// Transformer is the paired serialize/deserialize convention. Serialize is
// applied to outgoing call input before it is placed in the request
// envelope; Deserialize is applied to the raw result payload of incoming
// responses. Either function may be nil, in which case the plain JSON
// behavior applies for that direction.
type Transformer struct {
	Serialize   func(v any) (any, error)
	Deserialize func(data []byte, v any) error
}

// identitySerialize passes outgoing values through untouched.
func identitySerialize(v any) (any, error) { return v, nil }

// bypassSerializer rewrites a transformer for the multipart transport path.
// A multipart payload is handed to the network layer as-is, so the outgoing
// side becomes the identity function; server responses are still ordinary
// serialized payloads, so the incoming side is kept identical to the input's.
//
// The input transformer is never mutated. A nil transformer is returned
// unchanged (the multipart path needs no serialization at all), as is a
// transformer with no Deserialize function: shape problems beyond that
// presence check are left for the wrapped transport to surface.
func bypassSerializer(t *Transformer) *Transformer {
	if t == nil || t.Deserialize == nil {
		return t
	}
	return &Transformer{
		Serialize:   identitySerialize,
		Deserialize: t.Deserialize,
	}
}

// transformerFromCodec adapts the combined Codec convention to the paired
// Transformer convention. Encoded bytes are forwarded as a raw JSON message
// so they embed in the request envelope without re-encoding.
func transformerFromCodec(c Codec) *Transformer {
	if c == nil {
		return nil
	}
	return &Transformer{
		Serialize: func(v any) (any, error) {
			b, err := c.Encode(v)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(b), nil
		},
		Deserialize: func(data []byte, v any) error {
			return c.Decode(data, v)
		},
	}
}
