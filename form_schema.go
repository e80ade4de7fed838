// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FieldSpec declares validation for one text field of a form.
type FieldSpec struct {
	// Rules are applied to each submitted value for the field.
	Rules []validation.Rule
	// Repeated decodes the field as a string slice even when a single
	// value was submitted.
	Repeated bool
}

// FileSpec declares constraints for one file field of a form.
type FileSpec struct {
	Required bool
	// MaxBytes bounds the uploaded file size; zero means unbounded.
	MaxBytes int64
}

// FormSchema maps field names to validation specs. It is a thin composition
// over ozzo-validation primitives: rules run per field value and failures
// aggregate into a validation.Errors keyed by field name.
type FormSchema struct {
	Fields map[string]FieldSpec
	Files  map[string]FileSpec
}

// DecodeForm maps a parsed multipart payload into a validated value map.
// A repeated key, or a field declared Repeated, decodes as a string slice;
// every other field decodes as a scalar string. Fields not named in the
// schema pass through unvalidated under the same repeat-key rule. Fields
// absent from the submission are omitted from the result (their rules still
// run against the empty string, so Required fires for them).
func DecodeForm(pf *ParsedForm, schema *FormSchema) (map[string]any, error) {
	out := make(map[string]any)
	errs := validation.Errors{}

	for name, spec := range schema.Fields {
		vals := pf.Fields[name]
		if spec.Repeated || len(vals) > 1 {
			valid := true
			for _, v := range vals {
				if err := validation.Validate(v, spec.Rules...); err != nil {
					errs[name] = err
					valid = false
					break
				}
			}
			if valid && len(vals) > 0 {
				out[name] = vals
			}
			continue
		}

		var v string
		if len(vals) > 0 {
			v = vals[0]
		}
		if err := validation.Validate(v, spec.Rules...); err != nil {
			errs[name] = err
			continue
		}
		if len(vals) > 0 {
			out[name] = v
		}
	}

	for name, vals := range pf.Fields {
		if _, ok := schema.Fields[name]; ok {
			continue
		}
		if len(vals) > 1 {
			out[name] = vals
		} else if len(vals) == 1 {
			out[name] = vals[0]
		}
	}

	for name, spec := range schema.Files {
		fp := pf.File(name)
		if fp == nil {
			if spec.Required {
				errs[name] = errors.New("file is required")
			}
			continue
		}
		if spec.MaxBytes > 0 && int64(len(fp.Data)) > spec.MaxBytes {
			errs[name] = fmt.Errorf("file exceeds %d bytes", spec.MaxBytes)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}
