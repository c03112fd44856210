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
	"testing"

	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/internal/testutil"
)

func TestPackageName(t *testing.T) {
	valid := []string{"a", "game", "game.state", "v2.net_sync"}
	for _, name := range valid {
		pkg, err := compiler.ParsePackageName(name)
		if err != nil {
			t.Errorf("ParsePackageName(%q): %v", name, err)
			continue
		}
		testutil.ExpectEq(t, name, pkg.String())
	}

	invalid := []string{"", "Game", "game.", ".game", "game..state", "2d", "game-state", "game.State"}
	for _, name := range invalid {
		_, err := compiler.ParsePackageName(name)
		if !errors.Is(err, compiler.ErrInvalidPackageName) {
			t.Errorf("ParsePackageName(%q): expected ErrInvalidPackageName, got %v", name, err)
		}
	}
}

func TestPackageNamePrefixes(t *testing.T) {
	pkg, err := compiler.ParsePackageName("a.b.c")
	testutil.AssertNoError(t, err)

	var got []string
	for _, prefix := range pkg.Prefixes() {
		got = append(got, prefix.String())
	}
	testutil.ExpectSliceEq(t, []string{"a", "a.b", "a.b.c"}, got)
}

func TestDescriptor(t *testing.T) {
	pkg, err := compiler.ParsePackageName("game.state")
	testutil.AssertNoError(t, err)

	scope := compiler.PackageScope(pkg)
	testutil.ExpectTrue(t, scope.IsScope())
	testutil.ExpectEq(t, "game.state", scope.String())

	player := scope.Child("Player")
	testutil.ExpectFalse(t, player.IsScope())
	testutil.ExpectEq(t, "game.state.Player", player.String())

	item := player.Scope().Child("Item")
	testutil.ExpectEq(t, "game.state.Player.Item", item.String())
	testutil.ExpectSliceEq(t, []string{"Player"}, item.Path)
	testutil.ExpectEq(t, "game.state.Player.Item", item.IR().String())

	testutil.ExpectTrue(t, item.Equal(player.Scope().Child("Item")))
	testutil.ExpectFalse(t, item.Equal(scope.Child("Item")))

	// Child must not alias the parent path.
	a := player.Scope().Child("A")
	b := player.Scope().Child("B")
	a.Path[0] = "Changed"
	testutil.ExpectEq(t, "Player", b.Path[0])
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		text     string
		absolute bool
		path     []string
		name     string
	}{
		{"Foo", false, nil, "Foo"},
		{"Player.Item", false, []string{"Player"}, "Item"},
		{".game.common.Vec3", true, []string{"game", "common"}, "Vec3"},
		{".Foo", true, nil, "Foo"},
	}
	for _, test := range tests {
		ref, err := compiler.ParseReference(test.text)
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, test.absolute, ref.Absolute)
		testutil.ExpectSliceEq(t, test.path, ref.Path)
		testutil.ExpectEq(t, test.name, ref.Name)
		testutil.ExpectEq(t, test.text, ref.String())
	}

	for _, text := range []string{"", ".", "a..b", "a.", "a-b", "..a"} {
		_, err := compiler.ParseReference(text)
		if !errors.Is(err, compiler.ErrInvalidReference) {
			t.Errorf("ParseReference(%q): expected ErrInvalidReference, got %v", text, err)
		}
	}
}
