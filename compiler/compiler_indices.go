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
	"math"

	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

const maxIndex = math.MaxUint32

// CheckIndices reports duplicate and out-of-range explicit indices, and
// duplicate names, among the fields of each message and the variants of each
// enum. Every message and enum is checked on its own.
func CheckIndices(file *syntax.Schema, diags *Diagnostics) {
	for _, item := range file.Items() {
		switch node := item.(type) {
		case *syntax.Message:
			checkMessageIndices(node, diags)
		case *syntax.Enum:
			checkEnumIndices(node, diags)
		}
	}
}

type indexedItem struct {
	name  *syntax.Ident
	index *syntax.IntLit
}

type indexScope struct {
	kind      string
	container string
	indices   map[uint64]indexedItem
	names     map[string]*syntax.Ident
	diags     *Diagnostics
}

func newIndexScope(kind, container string, diags *Diagnostics) *indexScope {
	return &indexScope{
		kind:      kind,
		container: container,
		indices:   make(map[uint64]indexedItem),
		names:     make(map[string]*syntax.Ident),
		diags:     diags,
	}
}

func (s *indexScope) add(name *syntax.Ident, index *syntax.IntLit) {
	if first, dup := s.names[name.Get()]; dup {
		s.diags.Push(errDuplicateName(s.kind, name.Get(), s.container, name.Span(), first.Span()))
	} else {
		s.names[name.Get()] = name
	}

	if index == nil {
		return
	}
	value := index.Get()
	if value > maxIndex {
		s.diags.Push(errIndexOutOfRange(value, name.Get(), index.Span()))
		return
	}
	if first, dup := s.indices[value]; dup {
		s.diags.Push(errDuplicateIndex(
			value, s.kind, s.container, name.Get(), index.Span(),
			first.name.Get(), first.index.Span(),
		))
		return
	}
	s.indices[value] = indexedItem{name: name, index: index}
}

func checkMessageIndices(node *syntax.Message, diags *Diagnostics) {
	scope := newIndexScope("field", node.Name().Get(), diags)
	for _, member := range node.Members() {
		switch member := member.(type) {
		case *syntax.Field:
			scope.add(member.Name(), member.Index())
		case *syntax.Message:
			checkMessageIndices(member, diags)
		case *syntax.Enum:
			checkEnumIndices(member, diags)
		}
	}
}

func checkEnumIndices(node *syntax.Enum, diags *Diagnostics) {
	scope := newIndexScope("variant", node.Name().Get(), diags)
	for _, variant := range node.Variants() {
		scope.add(variant.Name(), variant.Index())
	}
}
