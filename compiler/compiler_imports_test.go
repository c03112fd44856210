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
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/internal/testutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	testutil.AssertNoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func canonical(t *testing.T, path string) compiler.SchemaImport {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	testutil.AssertNoError(t, err)
	return compiler.SchemaImport(resolved)
}

func TestImportRootsResolve(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	writeFile(t, filepath.Join(first, "game", "state.baproto"), "package game;")
	writeFile(t, filepath.Join(first, "shared.baproto"), "package first;")
	writeFile(t, filepath.Join(second, "shared.baproto"), "package second;")
	writeFile(t, filepath.Join(second, "extra.baproto"), "package second;")
	writeFile(t, filepath.Join(first, "notes.txt"), "")
	testutil.AssertNoError(t, os.MkdirAll(filepath.Join(first, "dir.baproto"), 0o755))

	roots, err := compiler.NewImportRoots(first, second)
	testutil.AssertNoError(t, err)

	path, err := roots.Resolve("game/state.baproto")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, canonical(t, filepath.Join(first, "game", "state.baproto")), path)

	path, err = roots.Resolve("shared.baproto")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, canonical(t, filepath.Join(first, "shared.baproto")), path)

	path, err = roots.Resolve("extra.baproto")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, canonical(t, filepath.Join(second, "extra.baproto")), path)

	src, err := roots.ReadFile(path)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "package second;", string(src))

	tests := []struct {
		include string
		want    error
	}{
		{"", compiler.ErrInvalidImportPath},
		{"notes.txt", compiler.ErrInvalidImportPath},
		{"/abs/state.baproto", compiler.ErrInvalidImportPath},
		{"dir.baproto", compiler.ErrInvalidImportPath},
		{"missing.baproto", compiler.ErrImportNotFound},
	}
	for _, test := range tests {
		_, err := roots.Resolve(test.include)
		if !errors.Is(err, test.want) {
			t.Errorf("Resolve(%q): expected %v, got %v", test.include, test.want, err)
		}
	}
}

func TestImportRootsEscape(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	writeFile(t, filepath.Join(dir, "outside.baproto"), "package outside;")
	writeFile(t, filepath.Join(root, "inside.baproto"), "package inside;")
	if err := os.Symlink(filepath.Join(dir, "outside.baproto"), filepath.Join(root, "link.baproto")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	roots, err := compiler.NewImportRoots(root)
	testutil.AssertNoError(t, err)

	for _, include := range []string{"../outside.baproto", "link.baproto"} {
		_, err := roots.Resolve(include)
		if !errors.Is(err, compiler.ErrImportEscapesRoot) {
			t.Errorf("Resolve(%q): expected ErrImportEscapesRoot, got %v", include, err)
		}
	}

	rel, err := roots.Rel(filepath.Join(root, "inside.baproto"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "inside.baproto", rel)

	_, err = roots.Rel(filepath.Join(dir, "outside.baproto"))
	testutil.ExpectTrue(t, errors.Is(err, compiler.ErrImportEscapesRoot))
}

func TestNewImportRootsRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.baproto")
	writeFile(t, file, "")

	_, err := compiler.NewImportRoots(file)
	testutil.ExpectError(t, err)

	_, err = compiler.NewImportRoots(filepath.Join(dir, "missing"))
	testutil.ExpectError(t, err)
}

func TestFSImporter(t *testing.T) {
	importer := compiler.NewFSImporter(fstest.MapFS{
		"a.baproto":     {Data: []byte("package a;")},
		"lib/b.baproto": {Data: []byte("package b;")},
	})

	path, err := importer.Resolve("lib/../a.baproto")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, compiler.SchemaImport("a.baproto"), path)

	src, err := importer.ReadFile(path)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "package a;", string(src))

	_, err = importer.Resolve("../a.baproto")
	testutil.ExpectTrue(t, errors.Is(err, compiler.ErrImportEscapesRoot))

	_, err = importer.Resolve("lib")
	testutil.ExpectTrue(t, errors.Is(err, compiler.ErrInvalidImportPath))

	_, err = importer.Resolve("c.baproto")
	testutil.ExpectTrue(t, errors.Is(err, compiler.ErrImportNotFound))
}
