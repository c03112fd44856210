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

// Command build compiles a plugin package into a WASI module.
//
// By default it uses the Go toolchain with GOOS=wasip1; pass -tinygo to
// build with TinyGo instead.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

var (
	output = flag.String("output", "", "path of the .wasm file to write")
	chdir  = flag.String("chdir", "", "directory to build in")
	tinygo = flag.String("tinygo", "", "path to the tinygo binary")
)

func main() {
	flag.Parse()
	if *output == "" {
		fmt.Fprintln(os.Stderr, "No output path specified (set -output=)")
		os.Exit(2)
	}
	pwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := buildCommand(pwd, flag.Args())
	cmd.Dir = filepath.Join(pwd, *chdir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func buildCommand(pwd string, pkgs []string) *exec.Cmd {
	outPath := *output
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(pwd, outPath)
	}
	if *tinygo != "" {
		args := []string{"build", "-target=wasip1", "-o=" + outPath}
		return exec.Command(*tinygo, append(args, pkgs...)...)
	}
	args := []string{"build", "-trimpath", "-o=" + outPath}
	cmd := exec.Command("go", append(args, pkgs...)...)
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
	return cmd
}
