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

// Package compiler resolves parsed schemas into the IR consumed by code
// generators.
package compiler

import (
	"errors"
	"io"
	"log/slog"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
	"github.com/coffeebeats/build-a-proto-sub000/syntax"
)

type CompileOption interface {
	apply(*CompileOptions)
}

type compileOption func(*CompileOptions)

func (f compileOption) apply(opts *CompileOptions) { f(opts) }

type CompileOptions struct {
	importer Importer
	policy   RedefinitionPolicy
	logger   *slog.Logger
}

// WithImporter sets how entry files and includes are located and read.
func WithImporter(importer Importer) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.importer = importer
	})
}

func WithImportRoots(roots *ImportRoots) CompileOption {
	return WithImporter(roots)
}

func WithRedefinitionPolicy(policy RedefinitionPolicy) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.policy = policy
	})
}

func WithLogger(logger *slog.Logger) CompileOption {
	return compileOption(func(opts *CompileOptions) {
		opts.logger = logger
	})
}

type CompileResult struct {
	schema  *ir.Schema
	sources map[string][]byte

	Modules  []*Module
	Errors   []*Diagnostic
	Warnings []*Diagnostic
}

// Schema returns the compiled IR, or nil if compilation failed.
func (r *CompileResult) Schema() *ir.Schema {
	return r.schema
}

func (r *CompileResult) Failed() bool {
	return len(r.Errors) > 0
}

func (r *CompileResult) ErrorCount() int {
	return len(r.Errors)
}

// Source returns the contents of a loaded file, keyed by the file name
// recorded in diagnostic spans.
func (r *CompileResult) Source(file string) ([]byte, bool) {
	src, ok := r.sources[file]
	return src, ok
}

// Files returns the paths of the loaded modules in load order.
func (r *CompileResult) Files() []SchemaImport {
	paths := make([]SchemaImport, 0, len(r.Modules))
	for _, module := range r.Modules {
		paths = append(paths, module.Path)
	}
	return paths
}

// Compile loads the entry schemas and everything they include, then
// resolves them into IR. Entries are include paths understood by the
// configured Importer.
func Compile(entries []string, opts ...CompileOption) CompileResult {
	return NewCompileOptions(opts...).Compile(entries...)
}

func NewCompileOptions(opts ...CompileOption) *CompileOptions {
	compileOptions := &CompileOptions{}
	for _, opt := range opts {
		opt.apply(compileOptions)
	}
	if compileOptions.logger == nil {
		compileOptions.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return compileOptions
}

func (opts *CompileOptions) Compile(entries ...string) CompileResult {
	c := &compiler{
		opts:    opts,
		log:     opts.logger,
		symbols: NewSymbolTable(),
		files:   make(map[SchemaImport]*sourceFile),
		sources: make(map[string][]byte),
	}
	if opts.importer == nil {
		c.diags.Push(errReadFailed("", errors.New("no importer configured"), syntax.Span{}))
	} else {
		c.compile(entries)
	}

	errs, warnings := c.diags.Drain()
	result := CompileResult{
		sources:  c.sources,
		Errors:   errs,
		Warnings: warnings,
	}
	for _, file := range c.order {
		if file.module != nil {
			result.Modules = append(result.Modules, file.module)
		}
	}
	if len(errs) == 0 {
		result.schema = c.schema
	}
	return result
}

type compiler struct {
	opts    *CompileOptions
	log     *slog.Logger
	diags   Diagnostics
	symbols *SymbolTable
	sources map[string][]byte

	// Set by load()
	files map[SchemaImport]*sourceFile
	order []*sourceFile

	// Set by lower()
	schema *ir.Schema
}

type sourceFile struct {
	path     SchemaImport
	schema   *syntax.Schema
	module   *Module
	includes []*resolvedInclude
}

type resolvedInclude struct {
	node *syntax.Include
	path SchemaImport
}

func (c *compiler) compile(entries []string) {
	c.load(entries)
	c.register()
	c.analyze()
	if c.diags.HasErrors() {
		c.log.Debug("analysis failed", "errors", c.diags.ErrorCount())
		return
	}
	graph, ok := c.link()
	if !ok {
		return
	}
	c.lower(graph)
}

func (c *compiler) load(entries []string) {
	var queue []SchemaImport
	for _, entry := range entries {
		path, err := c.opts.importer.Resolve(entry)
		if err != nil {
			c.diags.Push(errIncludeNotFound(entry, err, syntax.NewSpan(entry, 0, 0)))
			continue
		}
		queue = append(queue, path)
	}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if _, loaded := c.files[path]; loaded {
			continue
		}
		file := c.loadFile(path)
		c.files[path] = file
		c.order = append(c.order, file)
		for _, include := range file.includes {
			if _, loaded := c.files[include.path]; !loaded {
				queue = append(queue, include.path)
			}
		}
	}
}

func (c *compiler) loadFile(path SchemaImport) *sourceFile {
	file := &sourceFile{path: path}
	src, err := c.opts.importer.ReadFile(path)
	if err != nil {
		c.diags.Push(errReadFailed(string(path), err, syntax.NewSpan(string(path), 0, 0)))
		return file
	}
	c.sources[string(path)] = src
	c.log.Debug("loaded schema", "path", path, "bytes", len(src))

	schema, err := syntax.Parse(src, syntax.WithFilename(string(path)))
	if err != nil {
		var syntaxErr *syntax.Error
		if errors.As(err, &syntaxErr) {
			c.diags.Push(fromSyntaxError(syntaxErr))
		} else {
			c.diags.Push(errReadFailed(string(path), err, syntax.NewSpan(string(path), 0, 0)))
		}
		return file
	}
	file.schema = schema

	seen := make(map[SchemaImport]*syntax.Include)
	for _, node := range schema.Includes() {
		target, err := c.opts.importer.Resolve(node.Path().Get())
		if err != nil {
			c.diags.Push(errIncludeNotFound(node.Path().Get(), err, node.Path().Span()))
			continue
		}
		if first, dup := seen[target]; dup {
			c.diags.Push(warnDuplicateInclude(node.Path().Get(), node.Span(), first.Span()))
			continue
		}
		seen[target] = node
		file.includes = append(file.includes, &resolvedInclude{node: node, path: target})
	}
	return file
}

func (c *compiler) register() {
	for _, file := range c.order {
		if file.schema == nil {
			continue
		}
		file.module = Register(file.schema, c.symbols, c.opts.policy, &c.diags)
		if file.module == nil {
			continue
		}
		for _, include := range file.includes {
			file.module.Deps = append(file.module.Deps, include.path)
		}
	}
	c.log.Debug("registered symbols", "files", len(c.order), "symbols", c.symbols.Len())
}

func (c *compiler) analyze() {
	for _, file := range c.order {
		if file.module == nil {
			continue
		}
		resolved := ResolveReferences(file.schema, c.symbols, &c.diags)
		CheckIndices(file.schema, &c.diags)
		CheckEncodings(file.schema, c.symbols, &c.diags)

		used := make(map[SchemaImport]bool)
		for _, sym := range resolved {
			used[sym.File] = true
		}
		for _, include := range file.includes {
			if !used[include.path] && include.path != file.path {
				c.diags.Push(warnUnusedInclude(include.node.Path().Get(), include.node.Span()))
			}
		}
	}
}

func (c *compiler) link() (*ModuleGraph, bool) {
	graph := NewModuleGraph()
	for _, file := range c.order {
		if file.module != nil {
			graph.Add(file.module)
		}
	}
	if err := graph.Link(); err != nil {
		c.diags.Push(errLinkFailed(err, c.linkErrorSpan(err)))
		return nil, false
	}
	c.log.Debug("linked modules", "modules", graph.Len())
	return graph, true
}

// linkErrorSpan points a link error at the include that introduced the
// offending edge.
func (c *compiler) linkErrorSpan(err error) syntax.Span {
	var from, to SchemaImport
	var cycleErr *CycleError
	var missingErr *MissingIncludeError
	switch {
	case errors.As(err, &cycleErr):
		from, to = cycleErr.Cycle[0], cycleErr.Cycle[1]
	case errors.As(err, &missingErr):
		from, to = missingErr.From, missingErr.To
	default:
		return syntax.Span{}
	}
	if file, ok := c.files[from]; ok {
		for _, include := range file.includes {
			if include.path == to {
				return include.node.Span()
			}
		}
	}
	return syntax.NewSpan(string(from), 0, 0)
}

func (c *compiler) lower(graph *ModuleGraph) {
	order := graph.Order()
	schemas := make([]*syntax.Schema, 0, len(order))
	for _, path := range order {
		schemas = append(schemas, c.files[path].schema)
	}
	schema, err := Lower(schemas, c.symbols)
	if err != nil {
		c.diags.Push(errLoweringFailed(err))
		return
	}
	c.schema = schema
	c.log.Debug("lowered schema", "packages", len(schema.Packages))
}
