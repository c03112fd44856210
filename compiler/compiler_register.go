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
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

// Register adds the package and every message and enum declared in file to
// symbols. It returns nil, with a diagnostic, if the file has no usable
// package declaration.
func Register(
	file *syntax.Schema,
	symbols *SymbolTable,
	policy RedefinitionPolicy,
	diags *Diagnostics,
) *Module {
	pkgNode := file.Package()
	if pkgNode == nil {
		diags.Push(errMissingPackage(file.Span()))
		return nil
	}
	pkg, err := NewPackageName(pkgNode.Segments()...)
	if err != nil {
		diags.Push(errInvalidPackageName(pkgNode.Name(), err, pkgNode.Span()))
		return nil
	}

	r := &registrar{
		symbols: symbols,
		policy:  policy,
		diags:   diags,
		module: &Module{
			Path:    SchemaImport(file.Span().File()),
			Package: pkg,
		},
	}
	r.registerPackage(pkg, pkgNode.Span())

	scope := PackageScope(pkg)
	seenPackage := false
	for _, item := range file.Items() {
		switch node := item.(type) {
		case *syntax.Package:
			if node != pkgNode {
				diags.Push(errDuplicatePackage(node.Span(), pkgNode.Span()))
			}
			seenPackage = true
		case *syntax.Include:
			if !seenPackage {
				diags.Push(errDeclBeforePackage("include", node.Span(), pkgNode.Span()))
			}
		case *syntax.Message:
			if !seenPackage {
				diags.Push(errDeclBeforePackage("message", node.Span(), pkgNode.Span()))
			}
			r.registerMessage(scope, node)
		case *syntax.Enum:
			if !seenPackage {
				diags.Push(errDeclBeforePackage("enum", node.Span(), pkgNode.Span()))
			}
			r.registerEnum(scope, node)
		}
	}
	return r.module
}

type registrar struct {
	symbols *SymbolTable
	policy  RedefinitionPolicy
	diags   *Diagnostics
	module  *Module
}

func (r *registrar) registerPackage(pkg PackageName, span syntax.Span) {
	for _, prefix := range pkg.Prefixes() {
		sym := &Symbol{
			Descriptor: PackageScope(prefix),
			Kind:       TypeKind_PACKAGE,
			File:       r.module.Path,
			Span:       span,
		}
		if prev, ok := r.symbols.Lookup(sym.FullName()); ok {
			if prev.Kind != TypeKind_PACKAGE {
				r.diags.Push(errDeclConflictsWithPackage(sym.FullName(), span, prev))
			}
			continue
		}
		r.symbols.Put(sym)
	}
}

func (r *registrar) registerMessage(scope Descriptor, node *syntax.Message) {
	desc := scope.Child(node.Name().Get())
	if r.define(desc, TypeKind_MESSAGE, node.Name()) {
		r.module.Messages = append(r.module.Messages, desc)
	}
	inner := desc.Scope()
	for _, child := range node.Members() {
		switch child := child.(type) {
		case *syntax.Message:
			r.registerMessage(inner, child)
		case *syntax.Enum:
			r.registerEnum(inner, child)
		}
	}
}

func (r *registrar) registerEnum(scope Descriptor, node *syntax.Enum) {
	desc := scope.Child(node.Name().Get())
	if r.define(desc, TypeKind_ENUM, node.Name()) {
		r.module.Enums = append(r.module.Enums, desc)
	}
}

func (r *registrar) define(desc Descriptor, kind TypeKind, name *syntax.Ident) bool {
	if syntax.IsScalarName(desc.Name) {
		r.diags.Push(warnDeclShadowsBuiltin(desc.Name, name.Span()))
	}
	sym := &Symbol{
		Descriptor: desc,
		Kind:       kind,
		File:       r.module.Path,
		Span:       name.Span(),
	}
	if prev, ok := r.symbols.Lookup(sym.FullName()); ok {
		switch {
		case prev.Kind == TypeKind_PACKAGE:
			r.diags.Push(errDeclConflictsWithPackage(sym.FullName(), name.Span(), prev))
			return false
		case r.policy == RedefinitionOverwrite:
		default:
			r.diags.Push(errDuplicateDecl(kind, sym.FullName(), name.Span(), prev))
			return false
		}
	}
	r.symbols.Put(sym)
	return true
}
