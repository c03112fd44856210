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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/ir/irtext"
)

// generate returns one file per package, named after the package path with
// '.' replaced by '/'.
func generate(r io.Reader) (map[string]string, error) {
	schema, err := ir.Decode(r)
	if err != nil {
		return nil, err
	}
	if len(schema.Packages) == 0 {
		return nil, fmt.Errorf("schema contains no packages")
	}
	files := make(map[string]string, len(schema.Packages))
	for _, pkg := range schema.Packages {
		if pkg.Path == "" {
			return nil, fmt.Errorf("package with empty path")
		}
		name := strings.ReplaceAll(pkg.Path, ".", "/") + ".txt"
		files[name] = irtext.Encode(&ir.Schema{Packages: []*ir.Package{pkg}})
	}
	return files, nil
}
