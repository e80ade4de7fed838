// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
)

// Form is the native multipart-form container: an ordered set of named text
// fields and binary file attachments intended for transmission as a single
// multipart/form-data body. Passing a *Form as a call's input routes the
// call through the multipart transport path.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field    string
	filename string
	content  io.Reader
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{}
}

// AddField appends a text field. Repeating a name produces repeated parts,
// which parse back as an array on the receiving side.
func (f *Form) AddField(name, value string) {
	f.fields = append(f.fields, formField{name: name, value: value})
}

// AddFile appends a file attachment whose content is read once at encode
// time.
func (f *Form) AddFile(field, filename string, content io.Reader) {
	f.files = append(f.files, formFile{field: field, filename: filename, content: content})
}

// FormFromValues builds a form from a flat value mapping. Each repeated
// value becomes a repeated part under the same name. Keys are emitted in
// sorted order so the encoding is deterministic.
func FormFromValues(values url.Values) *Form {
	f := NewForm()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range values[name] {
			f.AddField(name, v)
		}
	}
	return f
}

// Fields returns the text fields as a value mapping, repeated names
// collapsing into multi-valued entries. File attachments are not included.
func (f *Form) Fields() url.Values {
	out := make(url.Values, len(f.fields))
	for _, fl := range f.fields {
		out[fl.name] = append(out[fl.name], fl.value)
	}
	return out
}

// formBody is the encoded multipart payload. The transport-fetch adapter
// recognizes this type on an outgoing request body and attaches the
// boundary-bearing content type recorded here.
type formBody struct {
	*bytes.Reader
	contentType string
}

func (b *formBody) Close() error { return nil }

// encode serializes the form through mime/multipart. The writer generates a
// fresh boundary per encoding; the resulting content type is carried on the
// body rather than set as a header here, so a configured default header
// cannot shadow it.
func (f *Form) encode() (*formBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fl := range f.fields {
		if err := w.WriteField(fl.name, fl.value); err != nil {
			return nil, fmt.Errorf("write form field %q: %w", fl.name, err)
		}
	}
	for _, fp := range f.files {
		fw, err := w.CreateFormFile(fp.field, fp.filename)
		if err != nil {
			return nil, fmt.Errorf("create form file %q: %w", fp.field, err)
		}
		if fp.content != nil {
			if _, err := io.Copy(fw, fp.content); err != nil {
				return nil, fmt.Errorf("copy form file %q: %w", fp.field, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}
	return &formBody{
		Reader:      bytes.NewReader(buf.Bytes()),
		contentType: w.FormDataContentType(),
	}, nil
}

// FilePart is one uploaded file from a parsed multipart request.
type FilePart struct {
	Field    string
	Filename string
	Data     []byte
}

// ParsedForm is the server-side view of a multipart request body.
type ParsedForm struct {
	Fields url.Values
	Files  []FilePart
}

// File returns the first uploaded file for the given field, or nil.
func (p *ParsedForm) File(field string) *FilePart {
	for i := range p.Files {
		if p.Files[i].Field == field {
			return &p.Files[i]
		}
	}
	return nil
}

// ParseForm reads a multipart/form-data request body. Text parts land in
// Fields (repeated parts under one name become a multi-valued entry); file
// parts are read fully into memory, with maxMemory bounding the parser's
// buffering as in http.Request.ParseMultipartForm.
func ParseForm(r *http.Request, maxMemory int64) (*ParsedForm, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	pf := &ParsedForm{Fields: url.Values(r.MultipartForm.Value)}
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			file, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("open form file %q: %w", field, err)
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, fmt.Errorf("read form file %q: %w", field, err)
			}
			pf.Files = append(pf.Files, FilePart{Field: field, Filename: fh.Filename, Data: data})
		}
	}
	return pf, nil
}
