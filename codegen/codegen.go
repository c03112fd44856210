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

// Package codegen runs code generation plugins against compiled IR.
//
// A plugin receives the IR as JSON on stdin and writes a JSON response of
// the form {"files": {"path": "contents"}} to stdout. A plugin that exits
// with a non-zero status has failed, and its stderr is reported as the
// error message.
package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

var (
	ErrPluginNotFound = errors.New("codegen plugin not found")
	ErrPluginFailed   = errors.New("codegen plugin failed")
	ErrInvalidOutput  = errors.New("invalid plugin output")
)

type Plugin interface {
	Name() string
	Generate(ctx context.Context, schema *ir.Schema) (*Response, error)
}

type Response struct {
	Files map[string]string `json:"files"`
}

// Paths returns the output paths in sorted order.
func (r *Response) Paths() []string {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func encodeRequest(schema *ir.Schema) ([]byte, error) {
	var buf bytes.Buffer
	if err := ir.Encode(&buf, schema); err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeResponse(name string, stdout []byte) (*Response, error) {
	var response Response
	decoder := json.NewDecoder(bytes.NewReader(stdout))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: plugin %s: %w", ErrInvalidOutput, name, err)
	}
	if len(response.Files) == 0 {
		return nil, fmt.Errorf("%w: plugin %s did not generate any output files", ErrInvalidOutput, name)
	}
	for _, p := range response.Paths() {
		if err := CheckOutputPath(p); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", name, err)
		}
	}
	return &response, nil
}

func pluginError(name string, stderr []byte, cause error) error {
	msg := strings.TrimSpace(strings.ToValidUTF8(string(stderr), "�"))
	if msg == "" {
		return fmt.Errorf("%w: %s: %w", ErrPluginFailed, name, cause)
	}
	return fmt.Errorf("%w: %s: %s", ErrPluginFailed, name, msg)
}

// CheckOutputPath rejects paths that are absolute or that contain empty,
// "." or ".." segments. Paths always use '/' as the separator.
func CheckOutputPath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: output path %q: empty", ErrInvalidOutput, p)
	}
	if path.IsAbs(p) || strings.Contains(p, "\\") {
		return fmt.Errorf("%w: output path %q: not relative", ErrInvalidOutput, p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: output path %q: bad path component %q", ErrInvalidOutput, p, part)
		}
	}
	return nil
}
