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

	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

func warnDeclShadowsBuiltin(name string, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		severity: Severity_WARNING,
		code:     4000,
		message: fmt.Sprintf(
			"declaration '%s' shadows a builtin type; unqualified references resolve to the builtin",
			name,
		),
		span: span,
	}
}

func warnUnusedInclude(include string, span syntax.Span) *Diagnostic {
	return &Diagnostic{
		severity: Severity_WARNING,
		code:     4001,
		message:  fmt.Sprintf("include %q is unused", include),
		span:     span,
	}
}

func warnDuplicateInclude(include string, span, firstSpan syntax.Span) *Diagnostic {
	return &Diagnostic{
		severity: Severity_WARNING,
		code:     4002,
		message:  fmt.Sprintf("duplicate include %q", include),
		span:     span,
		related:  firstSpan,
	}
}

func warnDuplicateTransform(ann *syntax.Annotation) *Diagnostic {
	return &Diagnostic{
		severity: Severity_WARNING,
		code:     4003,
		message:  fmt.Sprintf("transform '%s' is applied more than once", ann),
		span:     ann.Span(),
	}
}

func warnRepeatedPad(ann *syntax.Annotation, firstSpan syntax.Span) *Diagnostic {
	return &Diagnostic{
		severity: Severity_WARNING,
		code:     4004,
		message:  fmt.Sprintf("'%s' overrides an earlier pad annotation", ann),
		span:     ann.Span(),
		related:  firstSpan,
	}
}
