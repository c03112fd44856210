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

// Package syntax parses `.baproto` schema files into a syntax tree.
package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

type ParseOption interface {
	applyParseOption(*ParseOptions)
}

type parseOption func(*ParseOptions)

func (f parseOption) applyParseOption(opts *ParseOptions) {
	f(opts)
}

// WithFilename sets the file name recorded in every Span of the parsed tree.
func WithFilename(name string) ParseOption {
	return parseOption(func(opts *ParseOptions) {
		opts.filename = name
	})
}

func Parse(src []uint8, opts ...ParseOption) (*Schema, error) {
	return NewParseOptions(opts...).ParseSchema(src)
}

type ParseOptions struct {
	filename string
}

func NewParseOptions(opts ...ParseOption) *ParseOptions {
	parseOpts := &ParseOptions{}
	for _, opt := range opts {
		opt.applyParseOption(parseOpts)
	}
	return parseOpts
}

func (opts *ParseOptions) ParseSchema(src []uint8) (*Schema, error) {
	if len(src) > maxSrcLen {
		return nil, errSourceTooLong(opts.filename, len(src))
	}
	if !utf8.Valid(src) {
		return nil, errInvalidUtf8(opts.filename, src)
	}
	raw, err := schemaParser.ParseBytes(opts.filename, src)
	if err != nil {
		return nil, convertParseError(opts.filename, err)
	}

	c := &converter{}
	schema := &Schema{
		span: Span{
			file: opts.filename,
			len:  uint32(len(src)),
			line: 1,
			col:  1,
		},
	}
	for _, decl := range raw.Decls {
		schema.items = append(schema.items, c.decl(decl))
	}
	if c.err != nil {
		return nil, c.err
	}
	return schema, nil
}

const maxSrcLen = 1 << 24

var scalarNames = map[string]bool{
	"bool":   true,
	"u8":     true,
	"u16":    true,
	"u32":    true,
	"u64":    true,
	"i8":     true,
	"i16":    true,
	"i32":    true,
	"i64":    true,
	"f32":    true,
	"f64":    true,
	"string": true,
	"bytes":  true,
}

// IsScalarName reports whether name is a builtin scalar type.
func IsScalarName(name string) bool {
	return scalarNames[name]
}

type converter struct {
	err error
}

func (c *converter) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *converter) decl(raw *rawDecl) Node {
	doc := docOf(raw.Doc)
	switch {
	case raw.Package != nil:
		return &Package{
			span:     spanOf(raw.Package.Tokens),
			segments: c.idents(raw.Package.Name),
		}
	case raw.Include != nil:
		return &Include{
			span: spanOf(raw.Include.Tokens),
			path: c.text(raw.Include.Path),
		}
	case raw.Message != nil:
		return c.message(raw.Message, doc)
	default:
		return c.enum(raw.Enum, doc)
	}
}

func (c *converter) message(raw *rawMessage, doc *Doc) *Message {
	msg := &Message{
		span: spanOf(raw.Tokens),
		doc:  doc,
		name: c.ident(raw.Name),
	}
	for _, member := range raw.Members {
		memberDoc := docOf(member.Doc)
		switch {
		case member.Message != nil:
			msg.members = append(msg.members, c.message(member.Message, memberDoc))
		case member.Enum != nil:
			msg.members = append(msg.members, c.enum(member.Enum, memberDoc))
		default:
			msg.members = append(msg.members, c.field(member.Field, memberDoc))
		}
	}
	return msg
}

func (c *converter) enum(raw *rawEnum, doc *Doc) *Enum {
	enum := &Enum{
		span: spanOf(raw.Tokens),
		doc:  doc,
		name: c.ident(raw.Name),
	}
	for _, rawVariant := range raw.Variants {
		variant := &Variant{
			span:  spanOf(rawVariant.Tokens),
			doc:   docOf(rawVariant.Doc),
			index: c.intLit(rawVariant.Index),
		}
		if typed := rawVariant.Typed; typed != nil {
			variant.field = &Field{
				span:        spanOf(typed.Tokens),
				doc:         variant.doc,
				fieldType:   c.typ(typed.Type),
				name:        c.ident(typed.Name),
				annotations: c.annotations(typed.Annotations),
			}
			variant.name = variant.field.name
		} else {
			variant.name = c.ident(rawVariant.Unit)
		}
		enum.variants = append(enum.variants, variant)
	}
	return enum
}

func (c *converter) field(raw *rawField, doc *Doc) *Field {
	return &Field{
		span:        spanOf(raw.Tokens),
		doc:         doc,
		index:       c.intLit(raw.Index),
		fieldType:   c.typ(raw.Type),
		name:        c.ident(raw.Name),
		annotations: c.annotations(raw.Annotations),
	}
}

func (c *converter) typ(raw *rawType) Type {
	span := spanOf(raw.Tokens)
	switch {
	case raw.Array != nil:
		return &ArrayType{span: span, element: c.typ(raw.Array)}
	case raw.Map != nil:
		return &MapType{
			span:  span,
			key:   c.typ(raw.Map.Key),
			value: c.typ(raw.Map.Value),
		}
	}
	named := raw.Named
	if !named.Absolute && len(named.Parts) == 1 && scalarNames[named.Parts[0].Value] {
		return &ScalarType{span: span, name: named.Parts[0].Value}
	}
	return &NamedType{
		span:     span,
		absolute: named.Absolute,
		parts:    c.idents(named.Parts),
	}
}

func (c *converter) annotations(raws []*rawAnnotation) []*Annotation {
	if len(raws) == 0 {
		return nil
	}
	out := make([]*Annotation, 0, len(raws))
	for _, raw := range raws {
		out = append(out, c.annotation(raw))
	}
	return out
}

func (c *converter) annotation(raw *rawAnnotation) *Annotation {
	ann := &Annotation{
		span:    spanOf(raw.Tokens),
		name:    c.ident(raw.Name),
		hasArgs: raw.HasArgs,
	}
	for _, rawArg := range raw.Args {
		arg := &AnnotationArg{span: spanOf(rawArg.Tokens)}
		if rawArg.Int != nil {
			arg.int = c.intLit(rawArg.Int)
		} else {
			arg.call = c.annotation(rawArg.Call)
		}
		ann.args = append(ann.args, arg)
	}
	return ann
}

func (c *converter) idents(raws []*rawIdent) []*Ident {
	out := make([]*Ident, len(raws))
	for ii, raw := range raws {
		out[ii] = c.ident(raw)
	}
	return out
}

func (c *converter) ident(raw *rawIdent) *Ident {
	return &Ident{span: spanOf(raw.Tokens), value: raw.Value}
}

func (c *converter) intLit(raw *rawInt) *IntLit {
	if raw == nil {
		return nil
	}
	lit := &IntLit{span: spanOf(raw.Tokens), text: raw.Text}
	var err error
	if hex, ok := strings.CutPrefix(strings.ToLower(raw.Text), "0x"); ok {
		lit.value, err = strconv.ParseUint(hex, 16, 64)
	} else {
		lit.value, err = strconv.ParseUint(raw.Text, 10, 64)
	}
	if err != nil {
		c.fail(errInvalidInteger(lit.span, raw.Text))
	}
	return lit
}

func (c *converter) text(raw *rawString) *TextLit {
	lit := &TextLit{span: spanOf(raw.Tokens)}
	value, err := strconv.Unquote(raw.Quoted)
	if err != nil {
		c.fail(errInvalidString(lit.span))
	}
	lit.value = value
	return lit
}

func docOf(lines []string) *Doc {
	if len(lines) == 0 {
		return nil
	}
	doc := &Doc{lines: make([]string, len(lines))}
	for ii, line := range lines {
		line = strings.TrimPrefix(line, "///")
		line = strings.TrimPrefix(line, " ")
		doc.lines[ii] = strings.TrimRight(line, " \t\r")
	}
	return doc
}

// spanOf covers the tokens matched by a grammar node, excluding any leading
// or trailing comments and whitespace.
func spanOf(tokens []lexer.Token) Span {
	first, last := -1, -1
	for ii, tok := range tokens {
		switch tok.Type {
		case tokenWhitespace, tokenComment, tokenDocComment:
			continue
		}
		if first < 0 {
			first = ii
		}
		last = ii
	}
	if first < 0 {
		return Span{}
	}
	start := tokens[first].Pos
	end := tokens[last].Pos.Offset + len(tokens[last].Value)
	return Span{
		file:  start.Filename,
		start: uint32(start.Offset),
		len:   uint32(end - start.Offset),
		line:  uint32(start.Line),
		col:   uint32(start.Column),
	}
}
