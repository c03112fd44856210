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

package compiler

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

const (
	defaultPrefixBits = 32
	minPrefixBits     = 8
	maxWireBits       = 64
	maxFixedPointBits = 64
	maxPaddingBits    = 64
)

var discriminantTiers = []uint32{8, 16, 32, 64}

// DiscriminantBits returns the width of the discriminant of an enum with the
// given number of variants. Enums with fewer than two variants are sized as
// if they had two.
func DiscriminantBits(variants int) uint32 {
	return discriminantBitsFor(uint64(max(variants, 2) - 1))
}

// discriminantBitsFor returns the smallest tier that can hold maxValue.
func discriminantBitsFor(maxValue uint64) uint32 {
	width := uint32(bits.Len64(maxValue))
	for _, tier := range discriminantTiers {
		if width <= tier {
			return tier
		}
	}
	return 64
}

// LengthPrefixBits returns the width of a length prefix that can hold n.
func LengthPrefixBits(n uint64) uint32 {
	return max(minPrefixBits, uint32(bits.Len64(n)))
}

func scalarEncoding(name string) ir.Encoding {
	switch name {
	case "bool":
		return ir.Encoding{
			Wire:   ir.Bits(1),
			Native: ir.NativeType{Kind: ir.NativeKind_BOOL},
		}
	case "u8", "u16", "u32", "u64", "i8", "i16", "i32", "i64":
		width := scalarWidth(name)
		return ir.Encoding{
			Wire: ir.Bits(width),
			Native: ir.NativeType{
				Kind:   ir.NativeKind_INT,
				Bits:   width,
				Signed: name[0] == 'i',
			},
		}
	case "f32", "f64":
		width := scalarWidth(name)
		return ir.Encoding{
			Wire:   ir.Bits(width),
			Native: ir.NativeType{Kind: ir.NativeKind_FLOAT, Bits: width},
		}
	case "string":
		return ir.Encoding{
			Wire:   ir.LengthPrefixed(defaultPrefixBits),
			Native: ir.NativeType{Kind: ir.NativeKind_STRING},
		}
	case "bytes":
		return ir.Encoding{
			Wire:   ir.LengthPrefixed(defaultPrefixBits),
			Native: ir.NativeType{Kind: ir.NativeKind_BYTES},
		}
	}
	panic(fmt.Sprintf("scalarEncoding: unknown scalar %q", name))
}

// scalarWidth parses the width out of names like `u16` and `f64`.
func scalarWidth(name string) uint32 {
	width, err := strconv.ParseUint(name[1:], 10, 8)
	if err != nil {
		panic(fmt.Sprintf("scalarWidth(%q): %v", name, err))
	}
	return uint32(width)
}

// lowerType derives the default encoding of a type. References must resolve
// to a message or enum.
func lowerType(types TypeResolver, scope Descriptor, node syntax.Type) (ir.Encoding, error) {
	switch node := node.(type) {
	case *syntax.ScalarType:
		return scalarEncoding(node.Name()), nil
	case *syntax.ArrayType:
		elem, err := lowerType(types, scope, node.Element())
		if err != nil {
			return ir.Encoding{}, err
		}
		return ir.Encoding{
			Wire:   ir.LengthPrefixed(defaultPrefixBits),
			Native: ir.NativeType{Kind: ir.NativeKind_ARRAY, Element: &elem},
		}, nil
	case *syntax.MapType:
		key, err := lowerType(types, scope, node.Key())
		if err != nil {
			return ir.Encoding{}, err
		}
		value, err := lowerType(types, scope, node.Value())
		if err != nil {
			return ir.Encoding{}, err
		}
		return ir.Encoding{
			Wire: ir.LengthPrefixed(defaultPrefixBits),
			Native: ir.NativeType{
				Kind:  ir.NativeKind_MAP,
				Key:   &key,
				Value: &value,
			},
		}, nil
	case *syntax.NamedType:
		ref, err := NewReference(node.Absolute(), node.Path(), node.Name())
		if err != nil {
			return ir.Encoding{}, err
		}
		sym, err := ResolveType(types, scope, ref)
		if err != nil {
			return ir.Encoding{}, err
		}
		kind := ir.NativeKind_MESSAGE
		if sym.Kind == TypeKind_ENUM {
			kind = ir.NativeKind_ENUM
		}
		desc := sym.Descriptor.IR()
		return ir.Encoding{
			Wire:   ir.Embedded(),
			Native: ir.NativeType{Kind: kind, Descriptor: &desc},
		}, nil
	}
	return ir.Encoding{}, fmt.Errorf("lowerType: unexpected node %T", node)
}

// lowerFieldEncoding applies the field's annotations, in order, to the
// default encoding of its type. Annotations are ignored on message and enum
// references, and malformed annotations are skipped; CheckEncodings reports
// both.
func lowerFieldEncoding(types TypeResolver, scope Descriptor, field *syntax.Field) (ir.Encoding, error) {
	enc, err := lowerType(types, scope, field.Type())
	if err != nil {
		return enc, err
	}
	if enc.Wire.Kind == ir.WireKind_EMBEDDED {
		return enc, nil
	}
	for _, node := range field.Annotations() {
		if ann, diag := parseAnnotation(node); diag == nil {
			ann.apply(&enc)
		}
	}
	return enc, nil
}

type annotationKind uint8

const (
	annotation_BITS annotationKind = iota
	annotation_BITS_VAR
	annotation_ZIG_ZAG
	annotation_DELTA
	annotation_FIXED_POINT
	annotation_PAD
)

type annotation struct {
	kind annotationKind
	n    uint64

	// fixed_point(integerBits, fractionalBits)
	integerBits, fractionalBits uint64
}

func parseAnnotation(node *syntax.Annotation) (annotation, *Diagnostic) {
	args := node.Args()
	intArg := func(ii int) (uint64, bool) {
		if ii >= len(args) || args[ii].Int() == nil {
			return 0, false
		}
		return args[ii].Int().Get(), true
	}

	switch node.Name().Get() {
	case "bits":
		if len(args) != 1 {
			break
		}
		if n, ok := intArg(0); ok {
			return annotation{kind: annotation_BITS, n: n}, nil
		}
		call := args[0].Call()
		if call.Name().Get() != "var" || len(call.Args()) != 1 || call.Args()[0].Int() == nil {
			break
		}
		return annotation{kind: annotation_BITS_VAR, n: call.Args()[0].Int().Get()}, nil
	case "zig_zag":
		if len(args) == 0 {
			return annotation{kind: annotation_ZIG_ZAG}, nil
		}
	case "delta":
		if len(args) == 0 {
			return annotation{kind: annotation_DELTA}, nil
		}
	case "fixed_point":
		integerBits, ok1 := intArg(0)
		fractionalBits, ok2 := intArg(1)
		if len(args) == 2 && ok1 && ok2 {
			return annotation{
				kind:           annotation_FIXED_POINT,
				integerBits:    integerBits,
				fractionalBits: fractionalBits,
			}, nil
		}
	case "pad":
		if n, ok := intArg(0); ok && len(args) == 1 {
			return annotation{kind: annotation_PAD, n: n}, nil
		}
	default:
		return annotation{}, errUnknownAnnotation(node.Name().Get(), node.Name().Span())
	}
	return annotation{}, errAnnotationArgs(node, annotationUsage[node.Name().Get()])
}

var annotationUsage = map[string]string{
	"bits":        "bits(N) or bits(var(MAX))",
	"zig_zag":     "zig_zag with no arguments",
	"delta":       "delta with no arguments",
	"fixed_point": "fixed_point(INTEGER_BITS, FRACTIONAL_BITS)",
	"pad":         "pad(N)",
}

func (a annotation) apply(enc *ir.Encoding) {
	switch a.kind {
	case annotation_BITS:
		enc.Wire = ir.Bits(uint32(a.n))
	case annotation_BITS_VAR:
		enc.Wire = ir.LengthPrefixed(LengthPrefixBits(a.n))
	case annotation_ZIG_ZAG:
		enc.Transforms = append(enc.Transforms, ir.ZigZag())
	case annotation_DELTA:
		enc.Transforms = append(enc.Transforms, ir.Delta())
	case annotation_FIXED_POINT:
		enc.Transforms = append(enc.Transforms, ir.FixedPoint(
			uint32(a.integerBits),
			uint32(a.fractionalBits),
		))
	case annotation_PAD:
		padding := uint32(a.n)
		enc.PaddingBits = &padding
	}
}

// CheckEncodings validates the encoding annotations of every field and field
// variant in file against the annotated type, and checks map key types.
func CheckEncodings(file *syntax.Schema, types TypeResolver, diags *Diagnostics) {
	pkg, ok := filePackage(file)
	if !ok {
		return
	}
	c := &encodingChecker{types: types, diags: diags}
	c.decls(PackageScope(pkg), file.Items())
}

type encodingChecker struct {
	types TypeResolver
	diags *Diagnostics
}

func (c *encodingChecker) decls(scope Descriptor, nodes []syntax.Node) {
	for _, node := range nodes {
		switch node := node.(type) {
		case *syntax.Message:
			inner := scope.Child(node.Name().Get()).Scope()
			for _, field := range node.Fields() {
				c.field(inner, field)
			}
			c.decls(inner, node.Members())
		case *syntax.Enum:
			inner := scope.Child(node.Name().Get()).Scope()
			for _, variant := range node.Variants() {
				if field := variant.Field(); field != nil {
					c.field(inner, field)
				}
			}
		}
	}
}

// native classifies a type without recursing into containers. ok is false
// for references that do not resolve to a type.
func (c *encodingChecker) native(scope Descriptor, node syntax.Type) (ir.NativeType, bool) {
	if named, isNamed := node.(*syntax.NamedType); isNamed {
		ref, err := NewReference(named.Absolute(), named.Path(), named.Name())
		if err != nil {
			return ir.NativeType{}, false
		}
		sym, err := ResolveType(c.types, scope, ref)
		if err != nil {
			return ir.NativeType{}, false
		}
		if sym.Kind == TypeKind_ENUM {
			return ir.NativeType{Kind: ir.NativeKind_ENUM}, true
		}
		return ir.NativeType{Kind: ir.NativeKind_MESSAGE}, true
	}
	switch node := node.(type) {
	case *syntax.ArrayType:
		return ir.NativeType{Kind: ir.NativeKind_ARRAY}, true
	case *syntax.MapType:
		return ir.NativeType{Kind: ir.NativeKind_MAP}, true
	case *syntax.ScalarType:
		return scalarEncoding(node.Name()).Native, true
	}
	return ir.NativeType{}, false
}

func (c *encodingChecker) mapKeys(scope Descriptor, node syntax.Type) {
	switch node := node.(type) {
	case *syntax.ArrayType:
		c.mapKeys(scope, node.Element())
	case *syntax.MapType:
		if key, ok := c.native(scope, node.Key()); ok {
			switch key.Kind {
			case ir.NativeKind_BOOL, ir.NativeKind_INT, ir.NativeKind_STRING,
				ir.NativeKind_BYTES, ir.NativeKind_ENUM:
			default:
				c.diags.Push(errInvalidMapKey(describeNative(key), node.Key().Span()))
			}
		}
		c.mapKeys(scope, node.Key())
		c.mapKeys(scope, node.Value())
	}
}

func describeNative(native ir.NativeType) string {
	switch native.Kind {
	case ir.NativeKind_INT, ir.NativeKind_FLOAT:
		return native.String()
	case ir.NativeKind_MESSAGE, ir.NativeKind_ENUM:
		return "a " + string(native.Kind) + " reference"
	case ir.NativeKind_ARRAY, ir.NativeKind_MAP:
		return "an " + string(native.Kind)
	}
	return string(native.Kind)
}

func (c *encodingChecker) field(scope Descriptor, field *syntax.Field) {
	c.mapKeys(scope, field.Type())

	annotations := make([]annotation, 0, len(field.Annotations()))
	nodes := make([]*syntax.Annotation, 0, len(field.Annotations()))
	hasFixedPoint := false
	for _, node := range field.Annotations() {
		ann, diag := parseAnnotation(node)
		if diag != nil {
			c.diags.Push(diag)
			continue
		}
		if ann.kind == annotation_FIXED_POINT {
			hasFixedPoint = true
		}
		annotations = append(annotations, ann)
		nodes = append(nodes, node)
	}
	if len(annotations) == 0 {
		return
	}

	native, ok := c.native(scope, field.Type())
	if !ok {
		return
	}
	if native.Kind == ir.NativeKind_MESSAGE || native.Kind == ir.NativeKind_ENUM {
		for _, node := range nodes {
			c.diags.Push(errAnnotationNotApplicable(node, describeNative(native)))
		}
		return
	}

	seen := make(map[annotationKind]*syntax.Annotation)
	quantized := false
	for ii, ann := range annotations {
		node := nodes[ii]
		if first, dup := seen[ann.kind]; dup {
			switch ann.kind {
			case annotation_PAD:
				c.diags.Push(warnRepeatedPad(node, first.Span()))
			case annotation_ZIG_ZAG, annotation_DELTA, annotation_FIXED_POINT:
				c.diags.Push(warnDuplicateTransform(node))
			}
		} else {
			seen[ann.kind] = node
		}

		notApplicable := func() {
			c.diags.Push(errAnnotationNotApplicable(node, describeNative(native)))
		}
		switch ann.kind {
		case annotation_BITS:
			c.checkBits(node, ann.n, native, hasFixedPoint)
		case annotation_BITS_VAR:
			switch native.Kind {
			case ir.NativeKind_STRING, ir.NativeKind_BYTES, ir.NativeKind_ARRAY, ir.NativeKind_MAP:
			default:
				notApplicable()
			}
		case annotation_ZIG_ZAG:
			signedInt := native.Kind == ir.NativeKind_INT && native.Signed
			if !signedInt && !quantized {
				notApplicable()
			}
		case annotation_DELTA:
			if native.Kind != ir.NativeKind_INT && native.Kind != ir.NativeKind_FLOAT {
				notApplicable()
			}
		case annotation_FIXED_POINT:
			if native.Kind != ir.NativeKind_FLOAT {
				notApplicable()
				break
			}
			total := ann.integerBits + ann.fractionalBits
			if total < 1 || total > maxFixedPointBits {
				c.diags.Push(errFixedPointWidth(node))
			}
			quantized = true
		case annotation_PAD:
			if ann.n < 1 || ann.n > maxPaddingBits {
				c.diags.Push(errBitsOutOfRange(node, ann.n, maxPaddingBits))
			}
		}
	}
}

func (c *encodingChecker) checkBits(node *syntax.Annotation, n uint64, native ir.NativeType, hasFixedPoint bool) {
	var limit uint32
	switch native.Kind {
	case ir.NativeKind_BOOL:
		limit = maxWireBits
	case ir.NativeKind_INT:
		limit = native.Bits
	case ir.NativeKind_FLOAT:
		if !hasFixedPoint {
			if n != 32 && uint32(n) != native.Bits {
				c.diags.Push(errFloatWidth(node, native))
			}
			return
		}
		limit = maxWireBits
	default:
		c.diags.Push(errAnnotationNotApplicable(node, describeNative(native)))
		return
	}
	if n < 1 || n > uint64(limit) {
		c.diags.Push(errBitsOutOfRange(node, n, limit))
	}
}
