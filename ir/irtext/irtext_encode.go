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

// Package irtext renders a compiled schema as indented, human-readable text.
package irtext

import (
	"fmt"
	"io"
	"strings"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

func Encode(schema *ir.Schema) string {
	var buf strings.Builder
	EncodeTo(schema, &buf)
	return buf.String()
}

func EncodeTo(schema *ir.Schema, w io.Writer) error {
	e := encoder{w: w}
	for _, pkg := range schema.Packages {
		if e.err != nil {
			break
		}
		e.visitPackage(pkg)
	}
	return e.err
}

type encoder struct {
	w      io.Writer
	indent int
	err    error
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	if indent := strings.Repeat("\t", e.indent); indent != "" {
		if _, err := io.WriteString(e.w, indent); err != nil {
			e.err = err
			return
		}
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		e.err = err
		return
	}
	if _, err := io.WriteString(e.w, "\n"); err != nil {
		e.err = err
		return
	}
}

func (e *encoder) linef(format string, a ...any) {
	e.line(fmt.Sprintf(format, a...))
}

func (e *encoder) doc(text string) {
	if text != "" {
		e.linef("doc %s", quote(text))
	}
}

func (e *encoder) visitPackage(pkg *ir.Package) {
	e.linef("package %s {", pkg.Path)
	e.indent += 1
	for _, msg := range pkg.Messages {
		e.visitMessage(msg)
	}
	for _, enum := range pkg.Enums {
		e.visitEnum(enum)
	}
	e.indent -= 1
	e.line("}")
}

func (e *encoder) visitMessage(msg *ir.Message) {
	e.doc(msg.Doc)
	e.linef("message %s {", msg.Name)
	e.indent += 1
	for _, field := range msg.Fields {
		e.doc(field.Doc)
		e.linef("field %d %s: %s", field.Index, field.Name, field.Encoding)
	}
	for _, nested := range msg.Messages {
		e.visitMessage(nested)
	}
	for _, nested := range msg.Enums {
		e.visitEnum(nested)
	}
	e.indent -= 1
	e.line("}")
}

func (e *encoder) visitEnum(enum *ir.Enum) {
	e.doc(enum.Doc)
	e.linef("enum %s: %s {", enum.Name, enum.Discriminant)
	e.indent += 1
	for _, variant := range enum.Variants {
		e.doc(variant.Doc)
		if variant.Field == nil {
			e.linef("variant %d %s", variant.Index, variant.Name)
			continue
		}
		e.linef("variant %d %s: %s", variant.Index, variant.Name, variant.Field.Encoding)
	}
	e.indent -= 1
	e.line("}")
}

func quote(text string) string {
	var buf strings.Builder
	buf.WriteByte('"')
	for _, c := range text {
		if c == '\\' || c == '"' {
			buf.WriteByte('\\')
			buf.WriteRune(c)
			continue
		}
		if c == '\t' {
			buf.WriteString("\\t")
			continue
		}
		if c == '\n' {
			buf.WriteString("\\n")
			continue
		}
		if c < 0x20 || c == 0x7F {
			fmt.Fprintf(&buf, "\\x%02X", c)
			continue
		}
		buf.WriteRune(c)
	}
	buf.WriteByte('"')
	return buf.String()
}
