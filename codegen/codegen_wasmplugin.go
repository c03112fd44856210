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
	"errors"
	"fmt"
	"os"

	wasm "github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

const defaultMemoryLimitPages = 16384

// WasmPlugin runs a WASI (preview 1) command module in an embedded runtime.
// The module's stdin, stdout and stderr carry the plugin protocol; it has
// no filesystem or network access.
type WasmPlugin struct {
	Path string

	// Binary, if set, is used instead of reading Path.
	Binary []byte

	MemoryLimitPages uint32
}

var _ Plugin = (*WasmPlugin)(nil)

func (p *WasmPlugin) Name() string {
	return pluginName(p.Path)
}

func (p *WasmPlugin) Generate(ctx context.Context, schema *ir.Schema) (*Response, error) {
	request, err := encodeRequest(schema)
	if err != nil {
		return nil, err
	}

	pluginBin := p.Binary
	if pluginBin == nil {
		pluginBin, err = os.ReadFile(p.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPluginNotFound, err)
		}
	}

	limit := p.MemoryLimitPages
	if limit == 0 {
		limit = defaultMemoryLimitPages
	}
	runtimeConfig := wasm.NewRuntimeConfigInterpreter().
		WithMemoryLimitPages(limit).
		WithCloseOnContextDone(true)
	runtime := wasm.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("instantiating WASI: %w", err)
	}

	pluginExe, err := runtime.CompileModule(ctx, pluginBin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPluginFailed, p.Name(), err)
	}

	var stdout, stderr bytes.Buffer
	moduleConfig := wasm.NewModuleConfig().
		WithName("").
		WithArgs(p.Name()).
		WithStdin(bytes.NewReader(request)).
		WithStdout(&stdout).
		WithStderr(&stderr)
	plugin, err := runtime.InstantiateModule(ctx, pluginExe, moduleConfig)
	if err != nil {
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, pluginError(p.Name(), nil, ctxErr)
			}
			return nil, pluginError(p.Name(), stderr.Bytes(), err)
		}
	}
	if plugin != nil {
		_ = plugin.Close(ctx)
	}
	return decodeResponse(p.Name(), stdout.Bytes())
}
