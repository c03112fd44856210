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
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/ir/irtext"
)

type cmdCompile struct {
	env     *environment
	outPath string
	format  string
}

func (*cmdCompile) help() *commandHelp {
	return &commandHelp{
		usage:   "compile [-I DIR]... [--format=json|text] [-o FILE] [FILE...]",
		summary: "Compile schemas and write their IR",
	}
}

func (cmd *cmdCompile) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.outPath, "output", "o", "", "write the IR to this file instead of stdout")
	flags.StringVarP(&cmd.format, "format", "f", "json", "output format: json or text")
}

func (cmd *cmdCompile) run(ctx context.Context, argv []string) int {
	switch cmd.format {
	case "json", "text":
	default:
		fmt.Fprintf(cmd.env.stderr, "Unsupported output format %q (choose 'json' or 'text')\n", cmd.format)
		return exitUsage
	}

	s, err := cmd.env.newSession()
	if err != nil {
		fmt.Fprintln(cmd.env.stderr, err)
		return exitFailure
	}
	entries, err := s.entries(argv)
	if err != nil {
		return s.fail(err)
	}
	result, ok := s.compile(entries)
	if !ok {
		return exitFailure
	}

	var output bytes.Buffer
	if cmd.format == "text" {
		if err := irtext.EncodeTo(result.Schema(), &output); err != nil {
			return s.fail(err)
		}
	} else if err := ir.Encode(&output, result.Schema()); err != nil {
		return s.fail(err)
	}

	if cmd.outPath == "" {
		if _, err := cmd.env.stdout.Write(output.Bytes()); err != nil {
			return s.fail(err)
		}
		return exitOK
	}
	if err := afero.WriteFile(cmd.env.fs, cmd.outPath, output.Bytes(), 0o644); err != nil {
		return s.fail(err)
	}
	s.log.Info("wrote IR", "path", cmd.outPath, "format", cmd.format)
	return exitOK
}
