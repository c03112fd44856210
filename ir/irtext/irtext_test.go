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

package irtext_test

import (
	"testing"

	"github.com/coffeebeats/build-a-proto-sub000/internal/testutil"
	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/ir/irtext"
)

func TestEncode(t *testing.T) {
	padding := uint32(2)
	vec := ir.Descriptor{Package: "math", Name: "Vec2"}
	schema := &ir.Schema{Packages: []*ir.Package{{
		Path: "math",
		Messages: []*ir.Message{{
			Descriptor: vec,
			Name:       "Vec2",
			Doc:        "A point.\nUnits are \"meters\".",
			Fields: []*ir.Field{
				{
					Name:  "x",
					Index: 0,
					Encoding: ir.Encoding{
						Wire:        ir.Bits(14),
						Native:      ir.NativeType{Kind: ir.NativeKind_FLOAT, Bits: 32},
						Transforms:  []ir.Transform{ir.FixedPoint(6, 8)},
						PaddingBits: &padding,
					},
				},
				{
					Name:  "tags",
					Index: 1,
					Doc:   "Free-form\ttags.",
					Encoding: ir.Encoding{
						Wire: ir.LengthPrefixed(8),
						Native: ir.NativeType{
							Kind: ir.NativeKind_ARRAY,
							Element: &ir.Encoding{
								Wire:   ir.LengthPrefixed(32),
								Native: ir.NativeType{Kind: ir.NativeKind_STRING},
							},
						},
					},
				},
			},
		}},
		Enums: []*ir.Enum{{
			Descriptor: ir.Descriptor{Package: "math", Name: "Shape"},
			Name:       "Shape",
			Discriminant: ir.Encoding{
				Wire:   ir.Bits(8),
				Native: ir.NativeType{Kind: ir.NativeKind_INT, Bits: 8},
			},
			Variants: []*ir.Variant{
				{Kind: ir.VariantKind_UNIT, Name: "None", Index: 0},
				{
					Kind:  ir.VariantKind_FIELD,
					Name:  "point",
					Index: 1,
					Field: &ir.Field{
						Name:  "point",
						Index: 1,
						Encoding: ir.Encoding{
							Wire:   ir.Embedded(),
							Native: ir.NativeType{Kind: ir.NativeKind_MESSAGE, Descriptor: &vec},
						},
					},
				},
			},
		}},
	}}}

	want := `package math {
	doc "A point.\nUnits are \"meters\"."
	message Vec2 {
		field 0 x: f32 as bits(14) | fixed_point(6, 8) + pad(2)
		doc "Free-form\ttags."
		field 1 tags: []string as length_prefixed(8)
	}
	enum Shape: u8 as bits(8) {
		variant 0 None
		variant 1 point: message math.Vec2 as embedded
	}
}
`
	testutil.ExpectNoDiff(t, want, irtext.Encode(schema))
}
