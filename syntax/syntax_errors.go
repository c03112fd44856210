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

package syntax

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

type Error struct {
	code    uint32
	message string
	span    Span
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	return fmt.Sprintf("E%d: %s", err.code, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

func (err *Error) Span() Span {
	return err.span
}

func errSourceTooLong(file string, srcLen int) error {
	return &Error{
		code: 1000,
		message: fmt.Sprintf(
			"source file size (%d bytes) exceeds maximum (%d bytes)",
			srcLen, maxSrcLen,
		),
		span: Span{file: file, line: 1, col: 1},
	}
}

func errInvalidUtf8(file string, src []byte) error {
	var off uint32
	for len(src) > 0 {
		r, size := utf8.DecodeRune(src)
		if r == utf8.RuneError && size <= 1 {
			break
		}
		off += uint32(size)
		src = src[size:]
	}
	return &Error{
		code:    1001,
		message: "source file contains invalid UTF-8",
		span:    Span{file: file, start: off, len: 1},
	}
}

func errUnexpectedToken(tok lexer.Token, detail string) error {
	span := positionSpan(tok.Pos, uint32(len(tok.Value)))
	if tok.EOF() {
		return &Error{
			code:    1002,
			message: "unexpected end of file",
			span:    span,
		}
	}
	msg := fmt.Sprintf("unexpected token %q", tok.Value)
	if detail != "" {
		msg = detail
	}
	return &Error{
		code:    1003,
		message: msg,
		span:    span,
	}
}

func errUnexpectedCharacter(pos lexer.Position, detail string) error {
	return &Error{
		code:    1004,
		message: detail,
		span:    positionSpan(pos, 1),
	}
}

func errInvalidInteger(span Span, text string) error {
	return &Error{
		code:    1005,
		message: fmt.Sprintf("integer literal %s does not fit in 64 bits", text),
		span:    span,
	}
}

func errInvalidString(span Span) error {
	return &Error{
		code:    1006,
		message: "invalid escape sequence in string literal",
		span:    span,
	}
}

func positionSpan(pos lexer.Position, length uint32) Span {
	return Span{
		file:  pos.Filename,
		start: uint32(pos.Offset),
		len:   length,
		line:  uint32(pos.Line),
		col:   uint32(pos.Column),
	}
}

func convertParseError(file string, err error) error {
	var unexpected *participle.UnexpectedTokenError
	if errors.As(err, &unexpected) {
		return errUnexpectedToken(unexpected.Unexpected, unexpected.Message())
	}
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		return errUnexpectedCharacter(lexErr.Position(), lexErr.Message())
	}
	var perr participle.Error
	if errors.As(err, &perr) {
		return &Error{
			code:    1003,
			message: perr.Message(),
			span:    positionSpan(perr.Position(), 0),
		}
	}
	return &Error{
		code:    1003,
		message: err.Error(),
		span:    Span{file: file},
	}
}
