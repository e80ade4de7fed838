// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func TestFormEncodeParseRoundTrip(t *testing.T) {
	form := NewForm()
	form.AddField("name", "a")
	form.AddField("tags", "x")
	form.AddField("tags", "y")
	form.AddFile("doc", "doc.txt", strings.NewReader("hello file"))

	body, err := form.encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(body.contentType, "multipart/form-data; boundary=") {
		t.Fatalf("content type: got %q", body.contentType)
	}

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", body.contentType)

	pf, err := ParseForm(req, 1<<20)
	if err != nil {
		t.Fatalf("ParseForm: %v", err)
	}

	if got := pf.Fields.Get("name"); got != "a" {
		t.Errorf("name: got %q, want %q", got, "a")
	}
	if got := pf.Fields["tags"]; !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("tags: got %v, want [x y]", got)
	}

	fp := pf.File("doc")
	if fp == nil {
		t.Fatal("file part missing")
	}
	if fp.Filename != "doc.txt" {
		t.Errorf("filename: got %q, want %q", fp.Filename, "doc.txt")
	}
	if string(fp.Data) != "hello file" {
		t.Errorf("data: got %q, want %q", fp.Data, "hello file")
	}

	if pf.File("missing") != nil {
		t.Error("expected nil for missing file field")
	}
}

func TestFormFromValues(t *testing.T) {
	values := url.Values{
		"name": {"a"},
		"tags": {"x", "y"},
	}

	form := FormFromValues(values)

	if got := form.Fields(); !reflect.DeepEqual(got, values) {
		t.Errorf("got %v, want %v", got, values)
	}
}

func TestFormEncodeEmpty(t *testing.T) {
	body, err := NewForm().encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if body.Len() == 0 {
		t.Error("expected a closing boundary even for an empty form")
	}
}
