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
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var schemaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "DocComment", Pattern: `///[^\n]*`},
	{Name: "Comment", Pattern: `//[^\n]*|/\*([^*]|\*+[^*/])*\*+/`},
	{Name: "String", Pattern: `"(\\.|[^"\\\n])*"`},
	{Name: "Int", Pattern: `0[xX][0-9a-fA-F]+|[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[.;:,{}()\[\]]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var schemaParser = participle.MustBuild[rawSchema](
	participle.Lexer(schemaLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(8),
)

var (
	tokenDocComment = schemaLexer.Symbols()["DocComment"]
	tokenComment    = schemaLexer.Symbols()["Comment"]
	tokenWhitespace = schemaLexer.Symbols()["Whitespace"]
)

// The raw* types mirror the grammar one-to-one. They are converted into the
// exported node types by the converter in syntax.go.

type rawSchema struct {
	Decls []*rawDecl `@@*`
}

type rawDecl struct {
	Doc     []string    `@DocComment*`
	Package *rawPackage `( @@`
	Include *rawInclude `| @@`
	Message *rawMessage `| @@`
	Enum    *rawEnum    `| @@ )`
}

type rawPackage struct {
	Tokens []lexer.Token

	Name []*rawIdent `"package" @@ ( "." @@ )* ";"`
}

type rawInclude struct {
	Tokens []lexer.Token

	Path *rawString `"include" @@ ";"`
}

type rawMessage struct {
	Tokens []lexer.Token

	Name    *rawIdent    `"message" @@ "{"`
	Members []*rawMember `@@* "}"`
}

type rawMember struct {
	Doc     []string    `@DocComment*`
	Message *rawMessage `( @@`
	Enum    *rawEnum    `| @@`
	Field   *rawField   `| @@ )`
}

type rawEnum struct {
	Tokens []lexer.Token

	Name     *rawIdent     `"enum" @@ "{"`
	Variants []*rawVariant `@@* "}"`
}

type rawField struct {
	Tokens []lexer.Token

	Index       *rawInt          `( @@ ":" )?`
	Type        *rawType         `@@`
	Name        *rawIdent        `@@`
	Annotations []*rawAnnotation `( "[" @@ ( "," @@ )* "]" )? ";"`
}

type rawVariant struct {
	Tokens []lexer.Token

	Doc   []string         `@DocComment*`
	Index *rawInt          `( @@ ":" )?`
	Typed *rawTypedVariant `( @@`
	Unit  *rawIdent        `| @@ ) ";"`
}

type rawTypedVariant struct {
	Tokens []lexer.Token

	Type        *rawType         `@@`
	Name        *rawIdent        `@@`
	Annotations []*rawAnnotation `( "[" @@ ( "," @@ )* "]" )?`
}

type rawType struct {
	Tokens []lexer.Token

	Array *rawType     `(   "[" "]" @@`
	Map   *rawMapType  `  | "[" @@`
	Named *rawTypeName `  | @@ )`
}

type rawMapType struct {
	Key   *rawType `@@ "]"`
	Value *rawType `@@`
}

type rawTypeName struct {
	Tokens []lexer.Token

	Absolute bool        `@"."?`
	Parts    []*rawIdent `@@ ( "." @@ )*`
}

type rawAnnotation struct {
	Tokens []lexer.Token

	Name    *rawIdent           `@@`
	HasArgs bool                `( @"("`
	Args    []*rawAnnotationArg `  ( @@ ( "," @@ )* )? ")" )?`
}

type rawAnnotationArg struct {
	Tokens []lexer.Token

	Int  *rawInt        `  @@`
	Call *rawAnnotation `| @@`
}

type rawIdent struct {
	Tokens []lexer.Token

	Value string `@Ident`
}

type rawInt struct {
	Tokens []lexer.Token

	Text string `@Int`
}

type rawString struct {
	Tokens []lexer.Token

	Quoted string `@String`
}
