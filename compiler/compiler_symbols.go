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
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

var (
	ErrUnresolved  = errors.New("unresolved reference")
	ErrInvalidType = errors.New("reference does not name a message or enum")
)

type TypeKind uint8

const (
	TypeKind_MESSAGE TypeKind = iota + 1
	TypeKind_ENUM
	TypeKind_PACKAGE
)

func (k TypeKind) String() string {
	switch k {
	case TypeKind_MESSAGE:
		return "message"
	case TypeKind_ENUM:
		return "enum"
	case TypeKind_PACKAGE:
		return "package"
	}
	return fmt.Sprintf("TypeKind(%d)", uint8(k))
}

// Symbol is a named entry in the symbol table. Package symbols carry a scope
// descriptor; message and enum symbols carry a leaf descriptor.
type Symbol struct {
	Descriptor Descriptor
	Kind       TypeKind
	File       SchemaImport
	Span       syntax.Span
}

func (s *Symbol) FullName() string {
	return s.Descriptor.String()
}

type TypeResolver interface {
	Resolve(scope Descriptor, ref Reference) (*Symbol, bool)
}

type RedefinitionPolicy uint8

const (
	// RedefinitionError reports a second declaration of a name and keeps the
	// first.
	RedefinitionError RedefinitionPolicy = iota

	// RedefinitionOverwrite silently replaces the earlier declaration.
	RedefinitionOverwrite
)

type SymbolTable struct {
	symbols map[string]*Symbol
}

var _ TypeResolver = (*SymbolTable)(nil)

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// Lookup finds a symbol by its fully-qualified dotted name.
func (t *SymbolTable) Lookup(fullName string) (*Symbol, bool) {
	sym, ok := t.symbols[fullName]
	return sym, ok
}

func (t *SymbolTable) Get(desc Descriptor) (*Symbol, bool) {
	return t.Lookup(desc.String())
}

// Put stores sym under its full name, replacing any previous symbol.
func (t *SymbolTable) Put(sym *Symbol) {
	t.symbols[sym.FullName()] = sym
}

// All yields every symbol ordered by full name.
func (t *SymbolTable) All() iter.Seq[*Symbol] {
	return func(yield func(*Symbol) bool) {
		for _, name := range slices.Sorted(maps.Keys(t.symbols)) {
			if !yield(t.symbols[name]) {
				return
			}
		}
	}
}

// Resolve finds the symbol named by ref as seen from scope.
//
// An absolute reference is looked up by its full name. If that fails it is
// retried relative to the scope's package, so `.Foo` names `pkg.Foo`.
//
// A relative reference is tried against each enclosing scope from the
// innermost outward: the full scope path, then with one trailing path segment
// removed at a time, down to the package root. The first match wins, so inner
// declarations shadow outer ones. Types in other packages are only reachable
// through absolute references.
func (t *SymbolTable) Resolve(scope Descriptor, ref Reference) (*Symbol, bool) {
	if ref.Absolute {
		if sym, ok := t.Lookup(joinName(ref.Path, []string{ref.Name})); ok {
			return sym, true
		}
		return t.Lookup(joinName(scope.Package.segments, ref.Path, []string{ref.Name}))
	}

	pkg := scope.Package.segments
	for depth := len(scope.Path); depth >= 0; depth-- {
		name := joinName(pkg, scope.Path[:depth], ref.Path, []string{ref.Name})
		if sym, ok := t.Lookup(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// ResolveType resolves ref and checks that it names a message or enum. The
// returned error wraps ErrUnresolved or ErrInvalidType.
func ResolveType(types TypeResolver, scope Descriptor, ref Reference) (*Symbol, error) {
	sym, ok := types.Resolve(scope, ref)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' in scope '%s'", ErrUnresolved, ref, scope)
	}
	if sym.Kind == TypeKind_PACKAGE {
		return nil, fmt.Errorf("%w: '%s' is a package", ErrInvalidType, ref)
	}
	return sym, nil
}
