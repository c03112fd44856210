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

package compiler_test

import (
	"errors"
	"io/fs"
	"os"
	"testing"
	"testing/fstest"

	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/internal/testutil"
	"github.com/coffeebeats/build-a-proto-sub000/ir/irtext"
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

func TestSchemas(t *testing.T) {
	testdata := os.DirFS("testdata/schema")
	entries, err := fs.ReadDir(testdata, ".")
	testutil.AssertNoError(t, err)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir, err := fs.Sub(testdata, name)
			testutil.AssertNoError(t, err)
			schemaTest(t, dir)
		})
	}
}

func schemaTest(t *testing.T, dir fs.FS) {
	result := compiler.Compile(
		[]string{"main.baproto"},
		compiler.WithImporter(compiler.NewFSImporter(dir)),
	)

	var expect testutil.ExpectedDiagnostics
	if _, err := fs.Stat(dir, "expect_diagnostics.json"); err == nil {
		loaded, err := testutil.LoadExpectedDiagnostics(dir, "expect_diagnostics.json")
		testutil.AssertNoError(t, err)
		expect = *loaded
	}
	testutil.ExpectDiagnostics(t, expect.Errors, result.Errors)
	testutil.ExpectDiagnostics(t, expect.Warnings, result.Warnings)

	if len(expect.Errors) > 0 {
		testutil.ExpectTrue(t, result.Schema() == nil)
		return
	}
	expectText, err := fs.ReadFile(dir, "expect_ok.txt")
	testutil.AssertNoError(t, err)
	schema := result.Schema()
	testutil.AssertTrue(t, schema != nil)
	testutil.ExpectNoDiff(t, string(expectText), irtext.Encode(schema))
}

func compileSources(t *testing.T, files map[string]string, entries ...string) compiler.CompileResult {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return compiler.Compile(entries, compiler.WithImporter(compiler.NewFSImporter(fsys)))
}

func parseFile(t *testing.T, name, src string) *syntax.Schema {
	t.Helper()
	schema, err := syntax.Parse([]byte(src), syntax.WithFilename(name))
	testutil.AssertNoError(t, err)
	return schema
}

func TestCompileDuplicateIndex(t *testing.T) {
	result := compileSources(t, map[string]string{
		"test.baproto": "package test; message Foo { 0: u32 id; 0: u32 dup; }",
	}, "test.baproto")

	testutil.ExpectTrue(t, result.Failed())
	testutil.AssertEq(t, 1, result.ErrorCount())
	testutil.ExpectMatch(t, "^duplicate index 0 ", result.Errors[0].Message())
	testutil.ExpectTrue(t, result.Schema() == nil)
}

func TestCompileUnresolvedAbsoluteReference(t *testing.T) {
	result := compileSources(t, map[string]string{
		"test.baproto": "package p; message M { 0: .other.Type x; }",
	}, "test.baproto")

	testutil.AssertEq(t, 1, result.ErrorCount())
	diag := result.Errors[0]
	testutil.ExpectEq(t, uint32(3007), diag.Code())
	testutil.ExpectTrue(t, errors.Is(diag, compiler.ErrUnresolved))
	testutil.ExpectEq(t, "test.baproto:1:27", diag.Span().String())
}

func TestCompileRelativeReferenceStaysInPackage(t *testing.T) {
	result := compileSources(t, map[string]string{
		"main.baproto":  "package p; include \"other.baproto\"; message M { other.Type x; }",
		"other.baproto": "package other; message Type {}",
	}, "main.baproto")

	testutil.AssertEq(t, 1, result.ErrorCount())
	diag := result.Errors[0]
	testutil.ExpectEq(t, uint32(3007), diag.Code())
	testutil.ExpectTrue(t, errors.Is(diag, compiler.ErrUnresolved))

	result = compileSources(t, map[string]string{
		"main.baproto":  "package p; include \"other.baproto\"; message M { .other.Type x; }",
		"other.baproto": "package other; message Type {}",
	}, "main.baproto")
	testutil.ExpectEq(t, 0, result.ErrorCount())
}

func TestCompileReferenceToPackage(t *testing.T) {
	result := compileSources(t, map[string]string{
		"test.baproto": "package game.state; message M { .game.state x; }",
	}, "test.baproto")

	testutil.AssertEq(t, 1, result.ErrorCount())
	testutil.ExpectEq(t, uint32(3008), result.Errors[0].Code())
	testutil.ExpectTrue(t, errors.Is(result.Errors[0], compiler.ErrInvalidType))
}

func TestCompileSyntaxError(t *testing.T) {
	result := compileSources(t, map[string]string{
		"test.baproto": "package p;\nmessage M { u8 }\n",
	}, "test.baproto")

	testutil.AssertEq(t, 1, result.ErrorCount())
	diag := result.Errors[0]
	testutil.ExpectEq(t, uint32(1003), diag.Code())
	testutil.ExpectEq(t, "test.baproto", diag.Span().File())
	testutil.ExpectEq(t, uint32(2), diag.Span().Line())
}

func TestCompileIncludeNotFound(t *testing.T) {
	result := compileSources(t, map[string]string{
		"test.baproto": "package p;\ninclude \"missing.baproto\";\n",
	}, "test.baproto")

	testutil.AssertEq(t, 1, result.ErrorCount())
	diag := result.Errors[0]
	testutil.ExpectEq(t, uint32(3012), diag.Code())
	testutil.ExpectTrue(t, errors.Is(diag, compiler.ErrImportNotFound))
	testutil.ExpectEq(t, uint32(2), diag.Span().Line())
}

func TestCompileEntryNotFound(t *testing.T) {
	result := compileSources(t, map[string]string{}, "nope.baproto")

	testutil.AssertEq(t, 1, result.ErrorCount())
	testutil.ExpectEq(t, uint32(3012), result.Errors[0].Code())
}

func TestCompileDuplicateInclude(t *testing.T) {
	result := compileSources(t, map[string]string{
		"a.baproto": "package a;\ninclude \"b.baproto\";\ninclude \"./b.baproto\";\nmessage A { .b.B b; }\n",
		"b.baproto": "package b; message B {}",
	}, "a.baproto")

	testutil.AssertEq(t, 0, result.ErrorCount())
	testutil.AssertEq(t, 1, len(result.Warnings))
	warning := result.Warnings[0]
	testutil.ExpectEq(t, uint32(4002), warning.Code())
	testutil.ExpectEq(t, uint32(3), warning.Span().Line())
	related, ok := warning.Related()
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, uint32(2), related.Line())
}

func TestCompileMissingPackage(t *testing.T) {
	result := compileSources(t, map[string]string{
		"test.baproto": "message M {}",
	}, "test.baproto")

	testutil.AssertEq(t, 1, result.ErrorCount())
	testutil.ExpectEq(t, uint32(3001), result.Errors[0].Code())
	testutil.ExpectEq(t, 0, len(result.Modules))
}

func TestCompileRedefinition(t *testing.T) {
	files := map[string]string{
		"a.baproto": "package p;\ninclude \"b.baproto\";\nmessage Foo { u8 x; }\nmessage Bar { Foo foo; }\n",
		"b.baproto": "package p;\nmessage Foo { u16 y; }\n",
	}

	result := compileSources(t, files, "a.baproto")
	testutil.AssertEq(t, 1, result.ErrorCount())
	diag := result.Errors[0]
	testutil.ExpectEq(t, uint32(3004), diag.Code())
	testutil.ExpectEq(t, "b.baproto", diag.Span().File())
	testutil.ExpectMatch(t, `declared at a\.baproto:3:9`, diag.Message())

	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	result = compiler.Compile(
		[]string{"a.baproto"},
		compiler.WithImporter(compiler.NewFSImporter(fsys)),
		compiler.WithRedefinitionPolicy(compiler.RedefinitionOverwrite),
	)
	testutil.AssertEq(t, 0, result.ErrorCount())
	testutil.AssertTrue(t, result.Schema() != nil)
}

func TestCompileResultFiles(t *testing.T) {
	result := compileSources(t, map[string]string{
		"main.baproto":     "package app;\ninclude \"lib/a.baproto\";\nmessage M { .lib.A a; }\n",
		"lib/a.baproto":    "package lib;\ninclude \"lib/base.baproto\";\nmessage A { Base base; }\n",
		"lib/base.baproto": "package lib;\nmessage Base {}\n",
	}, "main.baproto")

	testutil.AssertEq(t, 0, result.ErrorCount())
	testutil.ExpectSliceEq(t,
		[]compiler.SchemaImport{"main.baproto", "lib/a.baproto", "lib/base.baproto"},
		result.Files(),
	)
	src, ok := result.Source("lib/base.baproto")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "package lib;\nmessage Base {}\n", string(src))

	schema := result.Schema()
	testutil.AssertTrue(t, schema != nil)
	lib := schema.Package("lib")
	testutil.AssertTrue(t, lib != nil)
	testutil.AssertEq(t, 2, len(lib.Messages))
	testutil.ExpectEq(t, "Base", lib.Messages[0].Name)
	testutil.ExpectEq(t, "A", lib.Messages[1].Name)
}

func TestCompileWithoutImporter(t *testing.T) {
	result := compiler.Compile([]string{"a.baproto"})
	testutil.ExpectTrue(t, result.Failed())
}
