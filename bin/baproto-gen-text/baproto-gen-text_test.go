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
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/internal/testutil"
	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/ir/irtext"
)

func compileRequest(t *testing.T) (*ir.Schema, []byte) {
	t.Helper()
	fsys := fstest.MapFS{
		"main.baproto": &fstest.MapFile{Data: []byte(
			"package game.state;\ninclude \"common.baproto\";\nmessage Player { .common.Id id; }\n",
		)},
		"common.baproto": &fstest.MapFile{Data: []byte(
			"package common;\nmessage Id { u64 value; }\n",
		)},
	}
	result := compiler.Compile([]string{"main.baproto"}, compiler.WithImporter(compiler.NewFSImporter(fsys)))
	for _, diag := range result.Errors {
		t.Fatalf("%s: %s", diag.Span(), diag)
	}
	var buf bytes.Buffer
	testutil.AssertNoError(t, ir.Encode(&buf, result.Schema()))
	return result.Schema(), buf.Bytes()
}

func TestRun(t *testing.T) {
	schema, request := compileRequest(t)

	var stdout bytes.Buffer
	testutil.AssertNoError(t, run(bytes.NewReader(request), &stdout))

	var got response
	testutil.AssertNoError(t, json.Unmarshal(stdout.Bytes(), &got))
	testutil.AssertEq(t, 2, len(got.Files))

	state, ok := got.Files["game/state.txt"]
	testutil.AssertTrue(t, ok)
	expect := irtext.Encode(&ir.Schema{Packages: []*ir.Package{schema.Package("game.state")}})
	testutil.ExpectNoDiff(t, expect, state)
	testutil.ExpectTrue(t, strings.HasPrefix(state, "package game.state {"))

	common, ok := got.Files["common.txt"]
	testutil.AssertTrue(t, ok)
	testutil.ExpectTrue(t, strings.Contains(common, "message Id {"))
}

func TestRunRejectsBadRequest(t *testing.T) {
	var stdout bytes.Buffer
	testutil.ExpectError(t, run(strings.NewReader("not json"), &stdout))
	testutil.ExpectError(t, run(strings.NewReader(`{"packages":[]}`), &stdout))
	testutil.ExpectEq(t, 0, stdout.Len())
}
