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
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pluginPrefix = "baproto-gen-"

// SearchPath returns the plugin search path from the environment:
// $BAPROTO_PLUGIN_PATH followed by $PATH.
func SearchPath() string {
	var dirs []string
	for _, env := range []string{"BAPROTO_PLUGIN_PATH", "PATH"} {
		if value := os.Getenv(env); value != "" {
			dirs = append(dirs, value)
		}
	}
	return strings.Join(dirs, string(os.PathListSeparator))
}

// Locate finds the plugin for name. A name containing a path separator is
// used as a file path directly; otherwise each directory in searchPath is
// checked for "baproto-gen-<name>" and then "baproto-gen-<name>.wasm".
func Locate(name, searchPath string) (Plugin, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty plugin name", ErrPluginNotFound)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return pluginAt(name)
	}

	basename := pluginPrefix + name
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		if path := filepath.Join(dir, basename); isExecutable(path) {
			return &ProcessPlugin{Path: path}, nil
		}
		if path := filepath.Join(dir, basename+".wasm"); isRegular(path) {
			return &WasmPlugin{Path: path}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s not found in plugin path", ErrPluginNotFound, basename)
}

func pluginAt(path string) (Plugin, error) {
	if strings.HasSuffix(path, ".wasm") && isRegular(path) {
		return &WasmPlugin{Path: path}, nil
	}
	if isExecutable(path) {
		return &ProcessPlugin{Path: path}, nil
	}
	return nil, fmt.Errorf("%w: %s is not an executable or .wasm file", ErrPluginNotFound, path)
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
