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

	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

type Severity uint8

const (
	Severity_ERROR Severity = iota
	Severity_WARNING
)

func (s Severity) String() string {
	if s == Severity_WARNING {
		return "warning"
	}
	return "error"
}

// Diagnostic is a located compiler message. Errors block code generation,
// warnings do not.
type Diagnostic struct {
	severity Severity
	code     uint32
	message  string
	span     syntax.Span
	related  syntax.Span
	cause    error
}

var _ error = (*Diagnostic)(nil)

func (d *Diagnostic) Error() string {
	if d.severity == Severity_WARNING {
		return fmt.Sprintf("W%d: %s", d.code, d.message)
	}
	return fmt.Sprintf("E%d: %s", d.code, d.message)
}

func (d *Diagnostic) String() string {
	return d.Error()
}

func (d *Diagnostic) Unwrap() error {
	return d.cause
}

func (d *Diagnostic) Severity() Severity {
	return d.severity
}

func (d *Diagnostic) Code() uint32 {
	return d.code
}

func (d *Diagnostic) Message() string {
	return d.message
}

func (d *Diagnostic) Span() syntax.Span {
	return d.span
}

// Related returns a secondary location, such as the first definition of a
// duplicated name.
func (d *Diagnostic) Related() (syntax.Span, bool) {
	return d.related, !d.related.IsZero()
}

// Diagnostics accumulates the output of compiler passes until the caller
// drains it.
type Diagnostics struct {
	errors   []*Diagnostic
	warnings []*Diagnostic
}

func (d *Diagnostics) Push(diag *Diagnostic) {
	if diag.severity == Severity_WARNING {
		d.warnings = append(d.warnings, diag)
	} else {
		d.errors = append(d.errors, diag)
	}
}

func (d *Diagnostics) Errors() []*Diagnostic {
	return d.errors
}

func (d *Diagnostics) Warnings() []*Diagnostic {
	return d.warnings
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.errors) > 0
}

func (d *Diagnostics) ErrorCount() int {
	return len(d.errors)
}

func (d *Diagnostics) Drain() (errors, warnings []*Diagnostic) {
	errors, warnings = d.errors, d.warnings
	d.errors, d.warnings = nil, nil
	return errors, warnings
}

func fromSyntaxError(err *syntax.Error) *Diagnostic {
	return &Diagnostic{
		code:    err.Code(),
		message: err.Message(),
		span:    err.Span(),
		cause:   err,
	}
}

func errInvalidPackageName(name string, cause error, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3000,
		message: fmt.Sprintf("invalid package name %q: %v", name, cause),
		span:    span,
		cause:   cause,
	}
}

func errMissingPackage(span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3001,
		message: "missing package declaration",
		span:    span,
	}
}

func errDeclBeforePackage(kind string, span, pkgSpan syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3002,
		message: fmt.Sprintf("%s declared before the package declaration", kind),
		span:    span,
		related: pkgSpan,
	}
}

func errDuplicatePackage(span, firstSpan syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3003,
		message: fmt.Sprintf("duplicate package declaration (first declared at %s)", firstSpan),
		span:    span,
		related: firstSpan,
	}
}

func errDuplicateDecl(kind TypeKind, fqn string, span syntax.Span, prev *Symbol) *Diagnostic {
	return &Diagnostic{
		code: 3004,
		message: fmt.Sprintf(
			"declaration of %s '%s' conflicts with earlier %s declared at %s",
			kind, fqn, prev.Kind, prev.Span,
		),
		span:    span,
		related: prev.Span,
	}
}

func errDeclConflictsWithPackage(fqn string, span syntax.Span, prev *Symbol) *Diagnostic {
	if prev.Kind == TypeKind_PACKAGE {
		return &Diagnostic{
			code:    3005,
			message: fmt.Sprintf("type '%s' has the same name as a package", fqn),
			span:    span,
		}
	}
	return &Diagnostic{
		code: 3005,
		message: fmt.Sprintf(
			"package '%s' has the same name as %s declared at %s",
			fqn, prev.Kind, prev.Span,
		),
		span:    span,
		related: prev.Span,
	}
}

func errInvalidReference(ref string, cause error, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3006,
		message: fmt.Sprintf("invalid type reference '%s': %v", ref, cause),
		span:    span,
		cause:   cause,
	}
}

func errUnresolvedReference(ref string, scope Descriptor, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3007,
		message: fmt.Sprintf("unresolved type reference '%s' in scope '%s'", ref, scope),
		span:    span,
		cause:   ErrUnresolved,
	}
}

func errReferenceToPackage(ref string, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3008,
		message: fmt.Sprintf("'%s' names a package, not a message or enum", ref),
		span:    span,
		cause:   ErrInvalidType,
	}
}

func errDuplicateIndex(
	index uint64,
	kind, container, name string,
	span syntax.Span,
	firstName string,
	firstSpan syntax.Span,
) *Diagnostic {
	return &Diagnostic{
		code: 3009,
		message: fmt.Sprintf(
			"duplicate index %d for %s '%s' in '%s' (first used by '%s' at %s)",
			index, kind, name, container, firstName, firstSpan,
		),
		span:    span,
		related: firstSpan,
	}
}

func errIndexOutOfRange(index uint64, name string, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code: 3010,
		message: fmt.Sprintf(
			"index %d of '%s' is out of range (maximum %d)",
			index, name, maxIndex,
		),
		span: span,
	}
}

func errDuplicateName(kind, name, container string, span, firstSpan syntax.Span) *Diagnostic {
	return &Diagnostic{
		code: 3011,
		message: fmt.Sprintf(
			"duplicate %s name '%s' in '%s' (first declared at %s)",
			kind, name, container, firstSpan,
		),
		span:    span,
		related: firstSpan,
	}
}

func errIncludeNotFound(include string, cause error, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3012,
		message: fmt.Sprintf("cannot include %q: %v", include, cause),
		span:    span,
		cause:   cause,
	}
}

func errReadFailed(path string, cause error, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3013,
		message: fmt.Sprintf("cannot read %q: %v", path, cause),
		span:    span,
		cause:   cause,
	}
}

func errUnknownAnnotation(name string, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3014,
		message: fmt.Sprintf("unknown encoding annotation '%s'", name),
		span:    span,
	}
}

func errAnnotationArgs(ann *syntax.Annotation, usage string) *Diagnostic {
	return &Diagnostic{
		code:    3015,
		message: fmt.Sprintf("malformed annotation '%s' (expected %s)", ann, usage),
		span:    ann.Span(),
	}
}

func errBitsOutOfRange(ann *syntax.Annotation, n uint64, limit uint32) *Diagnostic {
	return &Diagnostic{
		code: 3016,
		message: fmt.Sprintf(
			"bit count %d in '%s' is out of range (must be between 1 and %d)",
			n, ann, limit,
		),
		span: ann.Span(),
	}
}

func errAnnotationNotApplicable(ann *syntax.Annotation, typeDesc string) *Diagnostic {
	return &Diagnostic{
		code:    3017,
		message: fmt.Sprintf("annotation '%s' cannot be applied to %s", ann, typeDesc),
		span:    ann.Span(),
	}
}

func errFixedPointWidth(ann *syntax.Annotation) *Diagnostic {
	return &Diagnostic{
		code:    3018,
		message: fmt.Sprintf("'%s' must use between 1 and 64 bits in total", ann),
		span:    ann.Span(),
	}
}

func errInvalidMapKey(typeDesc string, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3019,
		message: fmt.Sprintf("%s cannot be used as a map key", typeDesc),
		span:    span,
	}
}

func errLinkFailed(cause error, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		code:    3020,
		message: cause.Error(),
		span:    span,
		cause:   cause,
	}
}

func errLoweringFailed(cause error) *Diagnostic {
	return &Diagnostic{
		code:    3021,
		message: cause.Error(),
		cause:   cause,
	}
}

func errFloatWidth(ann *syntax.Annotation, native ir.NativeType) *Diagnostic {
	return &Diagnostic{
		code: 3022,
		message: fmt.Sprintf(
			"'%s' on %s must be bits(32) or bits(%d) unless fixed_point is applied",
			ann, native, native.Bits,
		),
		span: ann.Span(),
	}
}
