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

package syntax

import (
	"fmt"
	"iter"
	"strings"
)

// Span is a byte range within a named source file. Line and column are
// 1-based and describe the first byte of the range.
type Span struct {
	file       string
	start, len uint32
	line, col  uint32
}

func NewSpan(file string, start, len uint32) Span {
	return Span{file: file, start: start, len: len}
}

func (s Span) File() string {
	return s.file
}

func (s Span) Start() uint32 {
	return s.start
}

func (s Span) End() uint32 {
	return s.start + s.len
}

func (s Span) Len() uint32 {
	return s.len
}

func (s Span) Line() uint32 {
	return s.line
}

func (s Span) Column() uint32 {
	return s.col
}

func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	if s.line == 0 {
		return fmt.Sprintf("%s@%d", s.file, s.start)
	}
	return fmt.Sprintf("%s:%d:%d", s.file, s.line, s.col)
}

type Node interface {
	Span() Span

	ChildNodes() iter.Seq[Node]
}

// Walk visits node and its descendants in source order. Returning false
// from walkFn skips the children of that node.
func Walk(node Node, walkFn func(Node) bool) {
	if node == nil || !walkFn(node) {
		return
	}
	for child := range node.ChildNodes() {
		Walk(child, walkFn)
	}
}

func iterChildren[T Node](childNodes ...[]T) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, nodes := range childNodes {
			for _, child := range nodes {
				if !yield(child) {
					return
				}
			}
		}
	}
}

type leafNode struct{}

func (*leafNode) ChildNodes() iter.Seq[Node] {
	return func(_yield func(Node) bool) {}
}

type Schema struct {
	span  Span
	items []Node
}

var _ Node = (*Schema)(nil)

func (n *Schema) Span() Span {
	return n.span
}

func (n *Schema) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.items)
}

// Items returns the top-level declarations (*Package, *Include, *Message and
// *Enum) in the order they appear in the source.
func (n *Schema) Items() []Node {
	return n.items
}

// Package returns the first package declaration, or nil if there is none.
func (n *Schema) Package() *Package {
	for _, item := range n.items {
		if pkg, ok := item.(*Package); ok {
			return pkg
		}
	}
	return nil
}

func (n *Schema) Includes() []*Include {
	return itemsOf[*Include](n.items)
}

func (n *Schema) Messages() []*Message {
	return itemsOf[*Message](n.items)
}

func (n *Schema) Enums() []*Enum {
	return itemsOf[*Enum](n.items)
}

func itemsOf[T Node](items []Node) []T {
	var out []T
	for _, item := range items {
		if typed, ok := item.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

type Ident struct {
	leafNode
	span  Span
	value string
}

var _ Node = (*Ident)(nil)

func (n *Ident) Span() Span {
	return n.span
}

func (n *Ident) Get() string {
	return n.value
}

type IntLit struct {
	leafNode
	span  Span
	text  string
	value uint64
}

var _ Node = (*IntLit)(nil)

func (n *IntLit) Span() Span {
	return n.span
}

func (n *IntLit) Get() uint64 {
	return n.value
}

func (n *IntLit) Text() string {
	return n.text
}

type TextLit struct {
	leafNode
	span  Span
	value string
}

var _ Node = (*TextLit)(nil)

func (n *TextLit) Span() Span {
	return n.span
}

func (n *TextLit) Get() string {
	return n.value
}

type Package struct {
	span     Span
	segments []*Ident
}

var _ Node = (*Package)(nil)

func (n *Package) Span() Span {
	return n.span
}

func (n *Package) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.segments)
}

func (n *Package) Segments() []string {
	out := make([]string, len(n.segments))
	for ii, seg := range n.segments {
		out[ii] = seg.value
	}
	return out
}

func (n *Package) Name() string {
	return strings.Join(n.Segments(), ".")
}

type Include struct {
	span Span
	path *TextLit
}

var _ Node = (*Include)(nil)

func (n *Include) Span() Span {
	return n.span
}

func (n *Include) ChildNodes() iter.Seq[Node] {
	return iterChildren([]*TextLit{n.path})
}

func (n *Include) Path() *TextLit {
	return n.path
}

// Doc is a block of consecutive `///` comments.
type Doc struct {
	lines []string
}

func (d *Doc) Text() string {
	if d == nil {
		return ""
	}
	return strings.Join(d.lines, "\n")
}

type Message struct {
	span    Span
	doc     *Doc
	name    *Ident
	members []Node
}

var _ Node = (*Message)(nil)

func (n *Message) Span() Span {
	return n.span
}

func (n *Message) ChildNodes() iter.Seq[Node] {
	return iterChildren([]Node{n.name}, n.members)
}

func (n *Message) Doc() *Doc {
	return n.doc
}

func (n *Message) Name() *Ident {
	return n.name
}

// Members returns fields, nested messages and nested enums in source order.
func (n *Message) Members() []Node {
	return n.members
}

func (n *Message) Fields() []*Field {
	return itemsOf[*Field](n.members)
}

func (n *Message) Messages() []*Message {
	return itemsOf[*Message](n.members)
}

func (n *Message) Enums() []*Enum {
	return itemsOf[*Enum](n.members)
}

type Enum struct {
	span     Span
	doc      *Doc
	name     *Ident
	variants []*Variant
}

var _ Node = (*Enum)(nil)

func (n *Enum) Span() Span {
	return n.span
}

func (n *Enum) ChildNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if !yield(n.name) {
			return
		}
		for _, v := range n.variants {
			if !yield(v) {
				return
			}
		}
	}
}

func (n *Enum) Doc() *Doc {
	return n.doc
}

func (n *Enum) Name() *Ident {
	return n.name
}

func (n *Enum) Variants() []*Variant {
	return n.variants
}

type Field struct {
	span        Span
	doc         *Doc
	index       *IntLit
	fieldType   Type
	name        *Ident
	annotations []*Annotation
}

var _ Node = (*Field)(nil)

func (n *Field) Span() Span {
	return n.span
}

func (n *Field) ChildNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if n.index != nil && !yield(n.index) {
			return
		}
		if !yield(n.fieldType) || !yield(n.name) {
			return
		}
		for _, ann := range n.annotations {
			if !yield(ann) {
				return
			}
		}
	}
}

func (n *Field) Doc() *Doc {
	return n.doc
}

// Index is nil when the field has no explicit index.
func (n *Field) Index() *IntLit {
	return n.index
}

func (n *Field) Type() Type {
	return n.fieldType
}

func (n *Field) Name() *Ident {
	return n.name
}

func (n *Field) Annotations() []*Annotation {
	return n.annotations
}

// Variant is one arm of an enum: either a unit variant (Field returns nil)
// or a variant carrying a typed value.
type Variant struct {
	span  Span
	doc   *Doc
	index *IntLit
	name  *Ident
	field *Field
}

var _ Node = (*Variant)(nil)

func (n *Variant) Span() Span {
	return n.span
}

func (n *Variant) ChildNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if n.index != nil && !yield(n.index) {
			return
		}
		if n.field != nil {
			yield(n.field)
			return
		}
		yield(n.name)
	}
}

func (n *Variant) Doc() *Doc {
	return n.doc
}

func (n *Variant) Index() *IntLit {
	return n.index
}

func (n *Variant) Name() *Ident {
	return n.name
}

func (n *Variant) Field() *Field {
	return n.field
}

type Type interface {
	Node
	isType()
}

type ScalarType struct {
	leafNode
	span Span
	name string
}

var _ Type = (*ScalarType)(nil)

func (n *ScalarType) Span() Span {
	return n.span
}

func (*ScalarType) isType() {}

func (n *ScalarType) Name() string {
	return n.name
}

// NamedType is a reference to a message or enum, such as `Foo`, `a.b.Foo` or
// the absolute `.a.b.Foo`.
type NamedType struct {
	span     Span
	absolute bool
	parts    []*Ident
}

var _ Type = (*NamedType)(nil)

func (n *NamedType) Span() Span {
	return n.span
}

func (n *NamedType) ChildNodes() iter.Seq[Node] {
	return iterChildren(n.parts)
}

func (*NamedType) isType() {}

func (n *NamedType) Absolute() bool {
	return n.absolute
}

func (n *NamedType) Path() []string {
	out := make([]string, 0, len(n.parts)-1)
	for _, part := range n.parts[:len(n.parts)-1] {
		out = append(out, part.value)
	}
	return out
}

func (n *NamedType) Name() string {
	return n.parts[len(n.parts)-1].value
}

func (n *NamedType) String() string {
	var buf strings.Builder
	if n.absolute {
		buf.WriteByte('.')
	}
	for ii, part := range n.parts {
		if ii > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(part.value)
	}
	return buf.String()
}

type ArrayType struct {
	span    Span
	element Type
}

var _ Type = (*ArrayType)(nil)

func (n *ArrayType) Span() Span {
	return n.span
}

func (n *ArrayType) ChildNodes() iter.Seq[Node] {
	return iterChildren([]Node{n.element})
}

func (*ArrayType) isType() {}

func (n *ArrayType) Element() Type {
	return n.element
}

type MapType struct {
	span       Span
	key, value Type
}

var _ Type = (*MapType)(nil)

func (n *MapType) Span() Span {
	return n.span
}

func (n *MapType) ChildNodes() iter.Seq[Node] {
	return iterChildren([]Node{n.key, n.value})
}

func (*MapType) isType() {}

func (n *MapType) Key() Type {
	return n.key
}

func (n *MapType) Value() Type {
	return n.value
}

// Annotation is an encoding directive such as `zig_zag`, `bits(5)` or
// `bits(var(100))`. Its meaning is assigned by the compiler.
type Annotation struct {
	span    Span
	name    *Ident
	hasArgs bool
	args    []*AnnotationArg
}

var _ Node = (*Annotation)(nil)

func (n *Annotation) Span() Span {
	return n.span
}

func (n *Annotation) ChildNodes() iter.Seq[Node] {
	return iterChildren([]Node{n.name}, argNodes(n.args))
}

func argNodes(args []*AnnotationArg) []Node {
	out := make([]Node, len(args))
	for ii, arg := range args {
		out[ii] = arg
	}
	return out
}

func (n *Annotation) Name() *Ident {
	return n.name
}

// HasArgs reports whether the annotation was written with parentheses.
func (n *Annotation) HasArgs() bool {
	return n.hasArgs
}

func (n *Annotation) Args() []*AnnotationArg {
	return n.args
}

func (n *Annotation) String() string {
	var buf strings.Builder
	buf.WriteString(n.name.value)
	if n.hasArgs {
		buf.WriteByte('(')
		for ii, arg := range n.args {
			if ii > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(arg.String())
		}
		buf.WriteByte(')')
	}
	return buf.String()
}

type AnnotationArg struct {
	span Span
	int  *IntLit
	call *Annotation
}

var _ Node = (*AnnotationArg)(nil)

func (n *AnnotationArg) Span() Span {
	return n.span
}

func (n *AnnotationArg) ChildNodes() iter.Seq[Node] {
	if n.int != nil {
		return iterChildren([]Node{n.int})
	}
	return iterChildren([]Node{n.call})
}

// Int returns the integer argument, or nil if the argument is a call.
func (n *AnnotationArg) Int() *IntLit {
	return n.int
}

// Call returns the nested annotation, or nil if the argument is an integer.
func (n *AnnotationArg) Call() *Annotation {
	return n.call
}

func (n *AnnotationArg) String() string {
	if n.int != nil {
		return n.int.text
	}
	return n.call.String()
}
