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
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteFiles writes generated files under outDir. Every path is validated
// before anything is written, so a bad response leaves outDir untouched.
func WriteFiles(fs afero.Fs, outDir string, files map[string]string) ([]string, error) {
	if outDir == "" {
		return nil, fmt.Errorf("no output directory specified")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no output files", ErrInvalidOutput)
	}
	response := &Response{Files: files}
	paths := response.Paths()
	for _, p := range paths {
		if err := CheckOutputPath(p); err != nil {
			return nil, err
		}
	}

	written := make([]string, 0, len(paths))
	for _, p := range paths {
		outPath := filepath.Join(outDir, filepath.FromSlash(p))
		if err := fs.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return written, err
		}
		if err := afero.WriteFile(fs, outPath, []byte(files[p]), 0o644); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
