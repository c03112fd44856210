// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"testing"

	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

type ExpectedDiagnostic struct {
	Code    uint32 `json:"code"`
	File    string `json:"file,omitempty"`
	Line    uint32 `json:"line,omitempty"`
	Pattern string `json:"message_pattern,omitempty"`
}

type ExpectedDiagnostics struct {
	Errors   []ExpectedDiagnostic `json:"errors"`
	Warnings []ExpectedDiagnostic `json:"warnings"`
}

func LoadExpectedDiagnostics(fsys fs.FS, path string) (*ExpectedDiagnostics, error) {
	jsonData, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	var expected ExpectedDiagnostics
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&expected); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &expected, nil
}

type Diagnostic interface {
	Code() uint32
	Message() string
	Span() syntax.Span
}

func ExpectDiagnostics[D Diagnostic](t *testing.T, want []ExpectedDiagnostic, got []D) {
	t.Helper()
	if len(want) != len(got) {
		t.Errorf("Expected %d diagnostics, got %d:", len(want), len(got))
		for _, diag := range got {
			t.Errorf("  E%d %s: %s", diag.Code(), diag.Span(), diag.Message())
		}
		return
	}
	for ii, expect := range want {
		diag := got[ii]
		if expect.Code != diag.Code() {
			t.Errorf("diagnostic %d: expected code %d, got %d (%s)", ii, expect.Code, diag.Code(), diag.Message())
		}
		if expect.File != "" && expect.File != diag.Span().File() {
			t.Errorf("diagnostic %d: expected file %q, got %q", ii, expect.File, diag.Span().File())
		}
		if expect.Line != 0 && expect.Line != diag.Span().Line() {
			t.Errorf("diagnostic %d: expected line %d, got %d", ii, expect.Line, diag.Span().Line())
		}
		if expect.Pattern != "" {
			ExpectMatch(t, expect.Pattern, diag.Message())
		}
	}
}
