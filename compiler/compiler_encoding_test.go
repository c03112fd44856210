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
	"fmt"
	"testing"

	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/internal/testutil"
	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

func TestDiscriminantBits(t *testing.T) {
	tests := []struct {
		variants int
		want     uint32
	}{
		{0, 8},
		{1, 8},
		{2, 8},
		{256, 8},
		{257, 16},
		{65536, 16},
		{65537, 32},
		{1 << 32, 32},
		{1<<32 + 1, 64},
	}
	for _, test := range tests {
		if got := compiler.DiscriminantBits(test.variants); got != test.want {
			t.Errorf("DiscriminantBits(%d): expected %d, got %d", test.variants, test.want, got)
		}
	}
}

func TestLengthPrefixBits(t *testing.T) {
	tests := []struct {
		n    uint64
		want uint32
	}{
		{0, 8},
		{127, 8},
		{255, 8},
		{256, 9},
		{65535, 16},
		{65536, 17},
		{1<<64 - 1, 64},
	}
	for _, test := range tests {
		if got := compiler.LengthPrefixBits(test.n); got != test.want {
			t.Errorf("LengthPrefixBits(%d): expected %d, got %d", test.n, test.want, got)
		}
	}
}

func lowerSources(t *testing.T, srcs ...string) *ir.Schema {
	t.Helper()
	symbols := compiler.NewSymbolTable()
	var diags compiler.Diagnostics
	var files []*syntax.Schema
	for ii, src := range srcs {
		file := parseFile(t, fmt.Sprintf("file%d.baproto", ii), src)
		compiler.Register(file, symbols, compiler.RedefinitionError, &diags)
		files = append(files, file)
	}
	testutil.AssertEq(t, 0, diags.ErrorCount())
	schema, err := compiler.Lower(files, symbols)
	testutil.AssertNoError(t, err)
	return schema
}

const encodingSchema = `package p;

enum Color { Red; Green; }

message M {
    bool flag;
    u32 id;
    i64 delta_x;
    string name;
    bytes blob [bits(var(0))];
    string short [bits(var(127))];
    string long [bits(var(65535))];
    i16 vel [bits(12), zig_zag, delta];
    f32 hp [fixed_point(8, 8), bits(16), pad(3), pad(5)];
    f64 coarse [bits(32)];
    []u8 items;
    []u8 small [bits(var(15))];
    [string]Color colors;
    [u8]u8 lookup [bits(var(300))];
    Color color;
    Color annotated [bits(3)];
    [][]string nested;
}
`

func TestLowerEncodings(t *testing.T) {
	schema := lowerSources(t, encodingSchema)
	msg := schema.Message(ir.Descriptor{Package: "p", Name: "M"})
	testutil.AssertTrue(t, msg != nil)

	want := map[string]string{
		"flag":      "bool as bits(1)",
		"id":        "u32 as bits(32)",
		"delta_x":   "i64 as bits(64)",
		"name":      "string as length_prefixed(32)",
		"blob":      "bytes as length_prefixed(8)",
		"short":     "string as length_prefixed(8)",
		"long":      "string as length_prefixed(16)",
		"vel":       "i16 as bits(12) | zig_zag | delta",
		"hp":        "f32 as bits(16) | fixed_point(8, 8) + pad(5)",
		"coarse":    "f64 as bits(32)",
		"items":     "[]u8 as length_prefixed(32)",
		"small":     "[]u8 as length_prefixed(8)",
		"colors":    "[string]enum p.Color as length_prefixed(32)",
		"lookup":    "[u8]u8 as length_prefixed(9)",
		"color":     "enum p.Color as embedded",
		"annotated": "enum p.Color as embedded",
		"nested":    "[][]string as length_prefixed(32)",
	}
	testutil.AssertEq(t, len(want), len(msg.Fields))
	for ii, field := range msg.Fields {
		testutil.ExpectEq(t, uint32(ii), field.Index)
		testutil.ExpectEq(t, want[field.Name], field.Encoding.String())
	}

	nested := msg.Fields[len(msg.Fields)-1].Encoding.Native
	testutil.AssertTrue(t, nested.Element != nil)
	testutil.ExpectEq(t, "[]string as length_prefixed(32)", nested.Element.String())
}

func TestLowerImplicitIndices(t *testing.T) {
	schema := lowerSources(t, `package p;
message M {
    u8 a;
    0: u8 b;
    u8 c;
    5: u8 d;
    u8 e;
}
enum E {
    A;
    1: B;
    C;
}
`)
	msg := schema.Message(ir.Descriptor{Package: "p", Name: "M"})
	testutil.AssertTrue(t, msg != nil)
	var got []uint32
	for _, field := range msg.Fields {
		got = append(got, field.Index)
	}
	testutil.ExpectSliceEq(t, []uint32{1, 0, 2, 5, 3}, got)

	enum := schema.Enum(ir.Descriptor{Package: "p", Name: "E"})
	testutil.AssertTrue(t, enum != nil)
	got = nil
	for _, variant := range enum.Variants {
		got = append(got, variant.Index)
	}
	testutil.ExpectSliceEq(t, []uint32{0, 1, 2}, got)
}

func TestLowerDiscriminant(t *testing.T) {
	schema := lowerSources(t, `package p;
enum Empty {}
enum Small { A; B; C; }
enum Sparse { A; 300: B; }
message Holder {
    enum Wide { 70000: A; }
}
`)
	tests := []struct {
		desc ir.Descriptor
		want string
	}{
		{ir.Descriptor{Package: "p", Name: "Empty"}, "u8 as bits(8)"},
		{ir.Descriptor{Package: "p", Name: "Small"}, "u8 as bits(8)"},
		{ir.Descriptor{Package: "p", Name: "Sparse"}, "u16 as bits(16)"},
		{ir.Descriptor{Package: "p", Path: []string{"Holder"}, Name: "Wide"}, "u32 as bits(32)"},
	}
	for _, test := range tests {
		enum := schema.Enum(test.desc)
		if enum == nil {
			t.Errorf("enum %s not found", test.desc)
			continue
		}
		testutil.ExpectEq(t, test.want, enum.Discriminant.String())
	}
}

func TestLowerVariants(t *testing.T) {
	schema := lowerSources(t, `package p;
message Item {}
/// Things that happen.
enum Event {
    Joined;
    /// Picked up an item.
    Item picked_up;
    i32 moved [zig_zag];
}
`)
	enum := schema.Enum(ir.Descriptor{Package: "p", Name: "Event"})
	testutil.AssertTrue(t, enum != nil)
	testutil.ExpectEq(t, "Things that happen.", enum.Doc)
	testutil.AssertEq(t, 3, len(enum.Variants))

	joined := enum.Variants[0]
	testutil.ExpectEq(t, ir.VariantKind_UNIT, joined.Kind)
	testutil.ExpectTrue(t, joined.Field == nil)

	pickedUp := enum.Variants[1]
	testutil.ExpectEq(t, ir.VariantKind_FIELD, pickedUp.Kind)
	testutil.ExpectEq(t, "Picked up an item.", pickedUp.Doc)
	testutil.AssertTrue(t, pickedUp.Field != nil)
	testutil.ExpectEq(t, "message p.Item as embedded", pickedUp.Field.Encoding.String())

	moved := enum.Variants[2]
	testutil.AssertTrue(t, moved.Field != nil)
	testutil.ExpectEq(t, uint32(2), moved.Field.Index)
	testutil.ExpectEq(t, "i32 as bits(32) | zig_zag", moved.Field.Encoding.String())
}

func TestLowerUnresolved(t *testing.T) {
	symbols := compiler.NewSymbolTable()
	var diags compiler.Diagnostics
	file := parseFile(t, "a.baproto", "package p; message M { Missing m; }")
	compiler.Register(file, symbols, compiler.RedefinitionError, &diags)

	_, err := compiler.Lower([]*syntax.Schema{file}, symbols)
	testutil.AssertError(t, err)
	testutil.ExpectTrue(t, errors.Is(err, compiler.ErrUnresolved))
}

func checkEncodings(t *testing.T, field string) *compiler.Diagnostics {
	t.Helper()
	src := fmt.Sprintf(`package p;
message Other {}
enum Color { A; }
message M {
    %s
}
`, field)
	file := parseFile(t, "a.baproto", src)
	symbols := compiler.NewSymbolTable()
	diags := &compiler.Diagnostics{}
	compiler.Register(file, symbols, compiler.RedefinitionError, diags)
	testutil.AssertEq(t, 0, diags.ErrorCount())
	compiler.CheckEncodings(file, symbols, diags)
	return diags
}

func TestCheckEncodings(t *testing.T) {
	tests := []struct {
		field    string
		errors   []uint32
		warnings []uint32
	}{
		{field: "u8 x [bits(8)];"},
		{field: "bool x [bits(8)];"},
		{field: "u8 x [bits(9)];", errors: []uint32{3016}},
		{field: "u8 x [bits(0)];", errors: []uint32{3016}},
		{field: "u32 x [zig_zag];", errors: []uint32{3017}},
		{field: "i32 x [zig_zag, delta];"},
		{field: "string x [bits(8)];", errors: []uint32{3017}},
		{field: "string x [delta];", errors: []uint32{3017}},
		{field: "u32 x [bits(var(10))];", errors: []uint32{3017}},
		{field: "bytes x [bits(var(10))];"},
		{field: "[u8]u8 x [bits(var(10))];"},
		{field: "f32 x [bits(16)];", errors: []uint32{3022}},
		{field: "f64 x [bits(32)];"},
		{field: "f32 x [fixed_point(40, 40)];", errors: []uint32{3018}},
		{field: "f32 x [fixed_point(8, 8), zig_zag, bits(17)];"},
		{field: "f32 x [zig_zag, fixed_point(8, 8)];", errors: []uint32{3017}},
		{field: "u32 x [fixed_point(8, 8)];", errors: []uint32{3017}},
		{field: "Other x [pad(2)];", errors: []uint32{3017}},
		{field: "Color x [bits(2)];", errors: []uint32{3017}},
		{field: "u8 x [frobnicate];", errors: []uint32{3014}},
		{field: "u8 x [bits];", errors: []uint32{3015}},
		{field: "u8 x [bits()];", errors: []uint32{3015}},
		{field: "u8 x [bits(var(1, 2))];", errors: []uint32{3015}},
		{field: "u8 x [zig_zag(1)];", errors: []uint32{3015}},
		{field: "u8 x [pad(65)];", errors: []uint32{3016}},
		{field: "[f32]u8 x;", errors: []uint32{3019}},
		{field: "[Other]u8 x;", errors: []uint32{3019}},
		{field: "[[]u8]u8 x;", errors: []uint32{3019}},
		{field: "[Color]u8 x;"},
		{field: "[][f64]u8 x;", errors: []uint32{3019}},
		{field: "i8 x [zig_zag, zig_zag];", warnings: []uint32{4003}},
		{field: "u8 x [pad(1), pad(2)];", warnings: []uint32{4004}},
	}
	for _, test := range tests {
		t.Run(test.field, func(t *testing.T) {
			diags := checkEncodings(t, test.field)
			var gotErrors, gotWarnings []uint32
			for _, diag := range diags.Errors() {
				gotErrors = append(gotErrors, diag.Code())
			}
			for _, diag := range diags.Warnings() {
				gotWarnings = append(gotWarnings, diag.Code())
			}
			testutil.ExpectSliceEq(t, test.errors, gotErrors)
			testutil.ExpectSliceEq(t, test.warnings, gotWarnings)
		})
	}
}

func TestCheckEncodingsInVariants(t *testing.T) {
	file := parseFile(t, "a.baproto", "package p; enum E { u8 x [bits(12)]; }")
	symbols := compiler.NewSymbolTable()
	var diags compiler.Diagnostics
	compiler.Register(file, symbols, compiler.RedefinitionError, &diags)
	compiler.CheckEncodings(file, symbols, &diags)

	testutil.AssertEq(t, 1, diags.ErrorCount())
	testutil.ExpectEq(t, uint32(3016), diags.Errors()[0].Code())
}
