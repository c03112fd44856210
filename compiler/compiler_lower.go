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
	"cmp"
	"fmt"
	"slices"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

// Lower builds the IR for files, which must have passed registration and
// every analyzer. Types are looked up through types. Packages are sorted by
// path; declarations keep file order, then source order.
//
// Lower does not report diagnostics. A reference that fails to resolve makes
// it return an error wrapping ErrUnresolved or ErrInvalidType.
func Lower(files []*syntax.Schema, types TypeResolver) (*ir.Schema, error) {
	l := &lowering{types: types}
	packages := make(map[string]*ir.Package)
	for _, file := range files {
		pkg, ok := filePackage(file)
		if !ok {
			return nil, fmt.Errorf("lowering %s: missing or invalid package", file.Span().File())
		}
		irPkg, ok := packages[pkg.String()]
		if !ok {
			irPkg = &ir.Package{
				Path:     pkg.String(),
				Messages: []*ir.Message{},
				Enums:    []*ir.Enum{},
			}
			packages[pkg.String()] = irPkg
		}

		scope := PackageScope(pkg)
		for _, item := range file.Items() {
			switch node := item.(type) {
			case *syntax.Message:
				msg, err := l.message(scope, node)
				if err != nil {
					return nil, err
				}
				irPkg.Messages = append(irPkg.Messages, msg)
			case *syntax.Enum:
				enum, err := l.enum(scope, node)
				if err != nil {
					return nil, err
				}
				irPkg.Enums = append(irPkg.Enums, enum)
			}
		}
	}

	schema := &ir.Schema{Packages: make([]*ir.Package, 0, len(packages))}
	for _, pkg := range packages {
		schema.Packages = append(schema.Packages, pkg)
	}
	slices.SortFunc(schema.Packages, func(a, b *ir.Package) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return schema, nil
}

type lowering struct {
	types TypeResolver
}

func (l *lowering) message(scope Descriptor, node *syntax.Message) (*ir.Message, error) {
	desc := scope.Child(node.Name().Get())
	inner := desc.Scope()
	msg := &ir.Message{
		Descriptor: desc.IR(),
		Name:       desc.Name,
		Fields:     []*ir.Field{},
		Doc:        node.Doc().Text(),
	}

	fields := node.Fields()
	indices := newIndexAllocator(len(fields))
	for _, field := range fields {
		indices.reserve(field.Index())
	}
	for _, member := range node.Members() {
		switch member := member.(type) {
		case *syntax.Field:
			enc, err := lowerFieldEncoding(l.types, inner, member)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", desc, member.Name().Get(), err)
			}
			msg.Fields = append(msg.Fields, &ir.Field{
				Name:     member.Name().Get(),
				Index:    indices.assign(member.Index()),
				Encoding: enc,
				Doc:      member.Doc().Text(),
			})
		case *syntax.Message:
			nested, err := l.message(inner, member)
			if err != nil {
				return nil, err
			}
			msg.Messages = append(msg.Messages, nested)
		case *syntax.Enum:
			nested, err := l.enum(inner, member)
			if err != nil {
				return nil, err
			}
			msg.Enums = append(msg.Enums, nested)
		}
	}
	return msg, nil
}

func (l *lowering) enum(scope Descriptor, node *syntax.Enum) (*ir.Enum, error) {
	desc := scope.Child(node.Name().Get())
	inner := desc.Scope()
	enum := &ir.Enum{
		Descriptor: desc.IR(),
		Name:       desc.Name,
		Variants:   []*ir.Variant{},
		Doc:        node.Doc().Text(),
	}

	variants := node.Variants()
	indices := newIndexAllocator(len(variants))
	for _, variant := range variants {
		indices.reserve(variant.Index())
	}
	var maxValue uint64
	for _, variant := range variants {
		index := indices.assign(variant.Index())
		maxValue = max(maxValue, uint64(index))
		irVariant := &ir.Variant{
			Kind:  ir.VariantKind_UNIT,
			Name:  variant.Name().Get(),
			Index: index,
			Doc:   variant.Doc().Text(),
		}
		if field := variant.Field(); field != nil {
			enc, err := lowerFieldEncoding(l.types, inner, field)
			if err != nil {
				return nil, fmt.Errorf("variant %s.%s: %w", desc, variant.Name().Get(), err)
			}
			irVariant.Kind = ir.VariantKind_FIELD
			irVariant.Field = &ir.Field{
				Name:     field.Name().Get(),
				Index:    index,
				Encoding: enc,
				Doc:      field.Doc().Text(),
			}
		}
		enum.Variants = append(enum.Variants, irVariant)
	}

	width := discriminantBitsFor(max(uint64(max(len(variants), 2)-1), maxValue))
	enum.Discriminant = ir.Encoding{
		Wire:   ir.Bits(width),
		Native: ir.NativeType{Kind: ir.NativeKind_INT, Bits: width},
	}
	return enum, nil
}

// indexAllocator hands out explicit indices unchanged and gives items
// without one the lowest index not otherwise in use.
type indexAllocator struct {
	used map[uint32]bool
	next uint32
}

func newIndexAllocator(size int) *indexAllocator {
	return &indexAllocator{used: make(map[uint32]bool, size)}
}

func (a *indexAllocator) reserve(index *syntax.IntLit) {
	if index != nil {
		a.used[uint32(index.Get())] = true
	}
}

func (a *indexAllocator) assign(index *syntax.IntLit) uint32 {
	if index != nil {
		return uint32(index.Get())
	}
	for a.used[a.next] {
		a.next++
	}
	a.used[a.next] = true
	return a.next
}
