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

// Package report renders compiler diagnostics for terminals.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

// Sources provides the text of loaded schema files. *compiler.CompileResult
// implements it.
type Sources interface {
	Source(file string) ([]byte, bool)
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	titleColor   = color.New(color.Bold)
	gutterColor  = color.New(color.FgCyan, color.Bold)
	noteColor    = color.New(color.FgCyan)
)

type Reporter struct {
	w       io.Writer
	sources Sources
}

func NewReporter(w io.Writer, sources Sources) *Reporter {
	return &Reporter{w: w, sources: sources}
}

// Report renders warnings followed by errors, then a summary line if there
// was anything to report.
func (r *Reporter) Report(errs, warnings []*compiler.Diagnostic) {
	for _, diag := range warnings {
		r.Render(diag)
	}
	for _, diag := range errs {
		r.Render(diag)
	}
	r.Summary(len(errs), len(warnings))
}

func (r *Reporter) Render(diag *compiler.Diagnostic) {
	level, code, c := "error", fmt.Sprintf("E%d", diag.Code()), errorColor
	if diag.Severity() == compiler.Severity_WARNING {
		level, code, c = "warning", fmt.Sprintf("W%d", diag.Code()), warningColor
	}
	c.Fprintf(r.w, "%s[%s]", level, code)
	titleColor.Fprintf(r.w, ": %s\n", diag.Message())

	span := diag.Span()
	if span.IsZero() {
		fmt.Fprintln(r.w)
		return
	}
	gutterColor.Fprint(r.w, "  --> ")
	fmt.Fprintln(r.w, span)
	r.snippet(span, c)
	if related, ok := diag.Related(); ok {
		noteColor.Fprint(r.w, "   = note: ")
		fmt.Fprintf(r.w, "previously defined at %s\n", related)
	}
	fmt.Fprintln(r.w)
}

func (r *Reporter) Summary(errCount, warnCount int) {
	if errCount == 0 && warnCount == 0 {
		return
	}
	var parts []string
	if errCount > 0 {
		parts = append(parts, errorColor.Sprint(plural(errCount, "error")))
	}
	if warnCount > 0 {
		parts = append(parts, warningColor.Sprint(plural(warnCount, "warning")))
	}
	fmt.Fprintf(r.w, "%s generated\n", strings.Join(parts, " and "))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (r *Reporter) snippet(span syntax.Span, c *color.Color) {
	if r.sources == nil || span.Line() == 0 {
		return
	}
	src, ok := r.sources.Source(span.File())
	if !ok {
		return
	}
	line, lineStart, ok := sourceLine(src, span.Line())
	if !ok {
		return
	}

	start := int(span.Start()) - lineStart
	if start < 0 || start > len(line) {
		return
	}
	end := start + int(span.Len())
	if end > len(line) {
		end = len(line)
	}
	width := utf8.RuneCount(line[start:end])
	if width == 0 {
		width = 1
	}

	lineNo := fmt.Sprintf("%d", span.Line())
	pad := strings.Repeat(" ", len(lineNo))
	gutterColor.Fprintf(r.w, "%s |\n", pad)
	gutterColor.Fprintf(r.w, "%s | ", lineNo)
	fmt.Fprintf(r.w, "%s\n", line)
	gutterColor.Fprintf(r.w, "%s | ", pad)
	fmt.Fprint(r.w, indentFor(line[:start]))
	c.Fprintln(r.w, strings.Repeat("^", width))
}

// sourceLine returns the 1-based line number'th line of src without its
// line terminator, and the byte offset where it starts.
func sourceLine(src []byte, number uint32) ([]byte, int, bool) {
	offset := 0
	for current := uint32(1); current < number; current++ {
		idx := bytes.IndexByte(src[offset:], '\n')
		if idx < 0 {
			return nil, 0, false
		}
		offset += idx + 1
	}
	line := src[offset:]
	if idx := bytes.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return bytes.TrimSuffix(line, []byte("\r")), offset, true
}

// indentFor keeps tabs so carets line up with the echoed source line.
func indentFor(prefix []byte) string {
	var b strings.Builder
	for _, r := range string(prefix) {
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
