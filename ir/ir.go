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

// Package ir defines the resolved, self-describing representation of a set of
// schemas that is handed to code generators.
package ir

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
)

type Schema struct {
	Packages []*Package `json:"packages"`
}

type Package struct {
	Path     string     `json:"path"`
	Messages []*Message `json:"messages"`
	Enums    []*Enum    `json:"enums"`
}

// Descriptor is the fully-qualified name of a message or enum.
type Descriptor struct {
	Package string   `json:"package"`
	Path    []string `json:"path,omitempty"`
	Name    string   `json:"name"`
}

func (d Descriptor) String() string {
	parts := make([]string, 0, len(d.Path)+2)
	parts = append(parts, d.Package)
	parts = append(parts, d.Path...)
	parts = append(parts, d.Name)
	return strings.Join(parts, ".")
}

type Message struct {
	Descriptor Descriptor `json:"descriptor"`
	Name       string     `json:"name"`
	Fields     []*Field   `json:"fields"`
	Messages   []*Message `json:"messages,omitempty"`
	Enums      []*Enum    `json:"enums,omitempty"`
	Doc        string     `json:"doc,omitempty"`
}

type Field struct {
	Name     string   `json:"name"`
	Index    uint32   `json:"index"`
	Encoding Encoding `json:"encoding"`
	Doc      string   `json:"doc,omitempty"`
}

type Enum struct {
	Descriptor   Descriptor `json:"descriptor"`
	Name         string     `json:"name"`
	Discriminant Encoding   `json:"discriminant"`
	Variants     []*Variant `json:"variants"`
	Doc          string     `json:"doc,omitempty"`
}

type VariantKind string

const (
	VariantKind_UNIT  VariantKind = "unit"
	VariantKind_FIELD VariantKind = "field"
)

// Variant is either a unit variant (Field is nil) or a field variant.
type Variant struct {
	Kind  VariantKind `json:"kind"`
	Name  string      `json:"name"`
	Index uint32      `json:"index"`
	Field *Field      `json:"field,omitempty"`
	Doc   string      `json:"doc,omitempty"`
}

type Encoding struct {
	Wire        WireFormat  `json:"wire"`
	Native      NativeType  `json:"native"`
	Transforms  []Transform `json:"transforms,omitempty"`
	PaddingBits *uint32     `json:"padding_bits,omitempty"`
}

// String renders the encoding compactly, for example
// `i16 as bits(12) | zig_zag + pad(3)`.
func (e Encoding) String() string {
	var buf strings.Builder
	buf.WriteString(e.Native.String())
	buf.WriteString(" as ")
	buf.WriteString(e.Wire.String())
	for _, t := range e.Transforms {
		buf.WriteString(" | ")
		buf.WriteString(t.String())
	}
	if e.PaddingBits != nil {
		fmt.Fprintf(&buf, " + pad(%d)", *e.PaddingBits)
	}
	return buf.String()
}

type WireKind string

const (
	WireKind_BITS            WireKind = "bits"
	WireKind_LENGTH_PREFIXED WireKind = "length_prefixed"
	WireKind_EMBEDDED        WireKind = "embedded"
)

type WireFormat struct {
	Kind       WireKind `json:"kind"`
	Bits       uint32   `json:"bits,omitempty"`
	PrefixBits uint32   `json:"prefix_bits,omitempty"`
}

func Bits(count uint32) WireFormat {
	return WireFormat{Kind: WireKind_BITS, Bits: count}
}

func LengthPrefixed(prefixBits uint32) WireFormat {
	return WireFormat{Kind: WireKind_LENGTH_PREFIXED, PrefixBits: prefixBits}
}

func Embedded() WireFormat {
	return WireFormat{Kind: WireKind_EMBEDDED}
}

func (w WireFormat) String() string {
	switch w.Kind {
	case WireKind_BITS:
		return fmt.Sprintf("bits(%d)", w.Bits)
	case WireKind_LENGTH_PREFIXED:
		return fmt.Sprintf("length_prefixed(%d)", w.PrefixBits)
	}
	return string(w.Kind)
}

type NativeKind string

const (
	NativeKind_BOOL    NativeKind = "bool"
	NativeKind_INT     NativeKind = "int"
	NativeKind_FLOAT   NativeKind = "float"
	NativeKind_STRING  NativeKind = "string"
	NativeKind_BYTES   NativeKind = "bytes"
	NativeKind_ARRAY   NativeKind = "array"
	NativeKind_MAP     NativeKind = "map"
	NativeKind_MESSAGE NativeKind = "message"
	NativeKind_ENUM    NativeKind = "enum"
)

type NativeType struct {
	Kind       NativeKind  `json:"kind"`
	Bits       uint32      `json:"bits,omitempty"`
	Signed     bool        `json:"signed,omitempty"`
	Element    *Encoding   `json:"element,omitempty"`
	Key        *Encoding   `json:"key,omitempty"`
	Value      *Encoding   `json:"value,omitempty"`
	Descriptor *Descriptor `json:"descriptor,omitempty"`
}

func (n NativeType) String() string {
	switch n.Kind {
	case NativeKind_INT:
		if n.Signed {
			return fmt.Sprintf("i%d", n.Bits)
		}
		return fmt.Sprintf("u%d", n.Bits)
	case NativeKind_FLOAT:
		return fmt.Sprintf("f%d", n.Bits)
	case NativeKind_ARRAY:
		return "[]" + n.Element.Native.String()
	case NativeKind_MAP:
		return fmt.Sprintf("[%s]%s", n.Key.Native, n.Value.Native)
	case NativeKind_MESSAGE, NativeKind_ENUM:
		return fmt.Sprintf("%s %s", n.Kind, n.Descriptor)
	}
	return string(n.Kind)
}

type TransformKind string

const (
	TransformKind_ZIG_ZAG     TransformKind = "zig_zag"
	TransformKind_DELTA       TransformKind = "delta"
	TransformKind_FIXED_POINT TransformKind = "fixed_point"
)

type Transform struct {
	Kind           TransformKind `json:"kind"`
	IntegerBits    uint32        `json:"integer_bits,omitempty"`
	FractionalBits uint32        `json:"fractional_bits,omitempty"`
}

func ZigZag() Transform {
	return Transform{Kind: TransformKind_ZIG_ZAG}
}

func Delta() Transform {
	return Transform{Kind: TransformKind_DELTA}
}

func FixedPoint(integerBits, fractionalBits uint32) Transform {
	return Transform{
		Kind:           TransformKind_FIXED_POINT,
		IntegerBits:    integerBits,
		FractionalBits: fractionalBits,
	}
}

func (t Transform) String() string {
	if t.Kind == TransformKind_FIXED_POINT {
		return fmt.Sprintf("fixed_point(%d, %d)", t.IntegerBits, t.FractionalBits)
	}
	return string(t.Kind)
}

// Package returns the package with the given dotted path, or nil.
func (s *Schema) Package(path string) *Package {
	for _, pkg := range s.Packages {
		if pkg.Path == path {
			return pkg
		}
	}
	return nil
}

// Message finds a message, including nested messages, by descriptor.
func (s *Schema) Message(desc Descriptor) *Message {
	pkg := s.Package(desc.Package)
	if pkg == nil {
		return nil
	}
	messages := pkg.Messages
	var found *Message
	for _, name := range append(slices.Clone(desc.Path), desc.Name) {
		found = nil
		for _, msg := range messages {
			if msg.Name == name {
				found = msg
				break
			}
		}
		if found == nil {
			return nil
		}
		messages = found.Messages
	}
	return found
}

// Enum finds an enum, including enums nested in messages, by descriptor.
func (s *Schema) Enum(desc Descriptor) *Enum {
	pkg := s.Package(desc.Package)
	if pkg == nil {
		return nil
	}
	enums := pkg.Enums
	if len(desc.Path) > 0 {
		parent := s.Message(Descriptor{
			Package: desc.Package,
			Path:    desc.Path[:len(desc.Path)-1],
			Name:    desc.Path[len(desc.Path)-1],
		})
		if parent == nil {
			return nil
		}
		enums = parent.Enums
	}
	for _, enum := range enums {
		if enum.Name == desc.Name {
			return enum
		}
	}
	return nil
}

func Decode(r io.Reader) (*Schema, error) {
	var schema Schema
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&schema); err != nil {
		return nil, fmt.Errorf("decoding IR: %w", err)
	}
	return &schema, nil
}

func Encode(w io.Writer, schema *Schema) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(schema)
}
