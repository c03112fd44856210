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
	"context"
	"fmt"

	"github.com/spf13/pflag"
)

type cmdCheck struct {
	env *environment
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check [-I DIR]... [FILE...]",
		summary: "Report diagnostics without writing output",
	}
}

func (*cmdCheck) flags(*pflag.FlagSet) {}

func (cmd *cmdCheck) run(ctx context.Context, argv []string) int {
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
	s.log.Info("schemas ok", "files", len(result.Modules))
	return exitOK
}
