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

package codegen

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

// ProcessPlugin runs a native executable.
type ProcessPlugin struct {
	Path string
	Args []string
	Env  []string
}

var _ Plugin = (*ProcessPlugin)(nil)

func (p *ProcessPlugin) Name() string {
	return pluginName(p.Path)
}

func (p *ProcessPlugin) Generate(ctx context.Context, schema *ir.Schema) (*Response, error) {
	request, err := encodeRequest(schema)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Env = p.Env
	cmd.Stdin = bytes.NewReader(request)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, pluginError(p.Name(), nil, ctxErr)
		}
		return nil, pluginError(p.Name(), stderr.Bytes(), err)
	}
	return decodeResponse(p.Name(), stdout.Bytes())
}

func pluginName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".wasm")
	name = strings.TrimSuffix(name, ".exe")
	return strings.TrimPrefix(name, pluginPrefix)
}
