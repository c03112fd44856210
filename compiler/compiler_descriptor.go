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
	"slices"
	"strings"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

var (
	ErrInvalidPackageName = errors.New("invalid package name")
	ErrInvalidReference   = errors.New("invalid reference")
)

// PackageName is a validated, dot-separated package such as `game.state`.
type PackageName struct {
	segments []string
}

func ParsePackageName(name string) (PackageName, error) {
	return NewPackageName(strings.Split(name, ".")...)
}

func NewPackageName(segments ...string) (PackageName, error) {
	if len(segments) == 0 {
		return PackageName{}, fmt.Errorf("%w: empty package name", ErrInvalidPackageName)
	}
	for _, seg := range segments {
		if !isPackageSegment(seg) {
			return PackageName{}, fmt.Errorf(
				"%w: segment %q must start with a lowercase letter and contain only [a-z0-9_]",
				ErrInvalidPackageName, seg,
			)
		}
	}
	return PackageName{segments: slices.Clone(segments)}, nil
}

func isPackageSegment(seg string) bool {
	if seg == "" || seg[0] < 'a' || seg[0] > 'z' {
		return false
	}
	for ii := 1; ii < len(seg); ii++ {
		c := seg[ii]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

func (p PackageName) IsZero() bool {
	return len(p.segments) == 0
}

func (p PackageName) Segments() []string {
	return slices.Clone(p.segments)
}

func (p PackageName) String() string {
	return strings.Join(p.segments, ".")
}

func (p PackageName) Equal(other PackageName) bool {
	return slices.Equal(p.segments, other.segments)
}

// Prefixes returns the package and each of its ancestors, outermost first:
// `a`, `a.b`, `a.b.c` for `a.b.c`.
func (p PackageName) Prefixes() []PackageName {
	out := make([]PackageName, len(p.segments))
	for ii := range p.segments {
		out[ii] = PackageName{segments: p.segments[:ii+1:ii+1]}
	}
	return out
}

// Descriptor identifies a declared type (Name set) or a scope (Name empty)
// by package and enclosing-type path.
type Descriptor struct {
	Package PackageName
	Path    []string
	Name    string
}

func PackageScope(pkg PackageName) Descriptor {
	return Descriptor{Package: pkg}
}

func (d Descriptor) IsScope() bool {
	return d.Name == ""
}

// Child returns the descriptor of a type named name declared in scope d.
func (d Descriptor) Child(name string) Descriptor {
	return Descriptor{
		Package: d.Package,
		Path:    slices.Clone(d.Path),
		Name:    name,
	}
}

// Scope returns the scope that the members of type d are declared in.
func (d Descriptor) Scope() Descriptor {
	if d.IsScope() {
		return d
	}
	path := make([]string, 0, len(d.Path)+1)
	path = append(path, d.Path...)
	return Descriptor{
		Package: d.Package,
		Path:    append(path, d.Name),
	}
}

func (d Descriptor) Equal(other Descriptor) bool {
	return d.Package.Equal(other.Package) &&
		slices.Equal(d.Path, other.Path) &&
		d.Name == other.Name
}

func (d Descriptor) String() string {
	return joinName(d.Package.segments, d.Path, []string{d.Name})
}

func (d Descriptor) IR() ir.Descriptor {
	return ir.Descriptor{
		Package: d.Package.String(),
		Path:    slices.Clone(d.Path),
		Name:    d.Name,
	}
}

func joinName(groups ...[]string) string {
	var buf strings.Builder
	for _, group := range groups {
		for _, s := range group {
			if s == "" {
				continue
			}
			if buf.Len() > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(s)
		}
	}
	return buf.String()
}

// Reference is a parsed type reference: `.a.B` (absolute) or `a.B`.
type Reference struct {
	Absolute bool
	Path     []string
	Name     string
}

func ParseReference(text string) (Reference, error) {
	absolute := strings.HasPrefix(text, ".")
	parts := strings.Split(strings.TrimPrefix(text, "."), ".")
	return NewReference(absolute, parts[:len(parts)-1], parts[len(parts)-1])
}

func NewReference(absolute bool, path []string, name string) (Reference, error) {
	if !isReferenceSegment(name) {
		return Reference{}, fmt.Errorf("%w: type name %q", ErrInvalidReference, name)
	}
	for _, seg := range path {
		if !isReferenceSegment(seg) {
			return Reference{}, fmt.Errorf("%w: path segment %q", ErrInvalidReference, seg)
		}
	}
	return Reference{
		Absolute: absolute,
		Path:     slices.Clone(path),
		Name:     name,
	}, nil
}

func isReferenceSegment(seg string) bool {
	if seg == "" {
		return false
	}
	for ii := 0; ii < len(seg); ii++ {
		c := seg[ii]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

func (r Reference) String() string {
	name := joinName(r.Path, []string{r.Name})
	if r.Absolute {
		return "." + name
	}
	return name
}
