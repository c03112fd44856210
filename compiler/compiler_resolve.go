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

	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

// ResolveReferences checks every type reference in file and returns the
// symbols they resolved to. Files without a valid package are skipped;
// registration has already reported them.
func ResolveReferences(file *syntax.Schema, types TypeResolver, diags *Diagnostics) []*Symbol {
	pkg, ok := filePackage(file)
	if !ok {
		return nil
	}
	v := &refVisitor{types: types, diags: diags}
	v.decls(PackageScope(pkg), file.Items())
	return v.resolved
}

func filePackage(file *syntax.Schema) (PackageName, bool) {
	pkgNode := file.Package()
	if pkgNode == nil {
		return PackageName{}, false
	}
	pkg, err := NewPackageName(pkgNode.Segments()...)
	return pkg, err == nil
}

type refVisitor struct {
	types    TypeResolver
	diags    *Diagnostics
	resolved []*Symbol
}

func (v *refVisitor) decls(scope Descriptor, nodes []syntax.Node) {
	for _, node := range nodes {
		switch node := node.(type) {
		case *syntax.Message:
			v.message(scope, node)
		case *syntax.Enum:
			v.enum(scope, node)
		}
	}
}

func (v *refVisitor) message(scope Descriptor, node *syntax.Message) {
	inner := scope.Child(node.Name().Get()).Scope()
	for _, field := range node.Fields() {
		v.typ(inner, field.Type())
	}
	v.decls(inner, node.Members())
}

func (v *refVisitor) enum(scope Descriptor, node *syntax.Enum) {
	inner := scope.Child(node.Name().Get()).Scope()
	for _, variant := range node.Variants() {
		if field := variant.Field(); field != nil {
			v.typ(inner, field.Type())
		}
	}
}

func (v *refVisitor) typ(scope Descriptor, node syntax.Type) {
	switch node := node.(type) {
	case *syntax.ArrayType:
		v.typ(scope, node.Element())
	case *syntax.MapType:
		v.typ(scope, node.Key())
		v.typ(scope, node.Value())
	case *syntax.NamedType:
		ref, err := NewReference(node.Absolute(), node.Path(), node.Name())
		if err != nil {
			v.diags.Push(errInvalidReference(node.String(), err, node.Span()))
			return
		}
		sym, err := ResolveType(v.types, scope, ref)
		switch {
		case errors.Is(err, ErrInvalidType):
			v.diags.Push(errReferenceToPackage(ref.String(), node.Span()))
		case err != nil:
			v.diags.Push(errUnresolvedReference(ref.String(), scope, node.Span()))
		default:
			v.resolved = append(v.resolved, sym)
		}
	}
}
