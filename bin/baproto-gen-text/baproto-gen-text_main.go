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

// Command baproto-gen-text is a code generation plugin that renders each
// compiled package as text. It runs natively or as a WASI module:
//
//	GOOS=wasip1 GOARCH=wasm go build -o baproto-gen-text.wasm .
package main

//go:generate go run ../../internal/build -output=baproto-gen-text.wasm .

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "baproto-gen-text: %v\n", err)
		os.Exit(1)
	}
}

type response struct {
	Files map[string]string `json:"files"`
}

func run(stdin io.Reader, stdout io.Writer) error {
	files, err := generate(stdin)
	if err != nil {
		return err
	}
	return json.NewEncoder(stdout).Encode(response{Files: files})
}
