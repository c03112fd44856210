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
	"slices"
	"strings"
)

// SchemaImport is the canonical path of a schema file, as returned by an
// Importer.
type SchemaImport string

// Module is the compile-time summary of one schema file.
type Module struct {
	Path     SchemaImport
	Package  PackageName
	Deps     []SchemaImport
	Messages []Descriptor
	Enums    []Descriptor
}

type MissingIncludeError struct {
	From SchemaImport
	To   SchemaImport
}

func (err *MissingIncludeError) Error() string {
	return fmt.Sprintf("%s includes %s, which is not part of the compilation", err.From, err.To)
}

// CycleError describes a circular chain of includes. The first and last
// elements of Cycle are the same module.
type CycleError struct {
	Cycle []SchemaImport
}

func (err *CycleError) Error() string {
	return "circular dependency: " + err.Path()
}

// Path renders the cycle as `a -> b -> a`.
func (err *CycleError) Path() string {
	parts := make([]string, len(err.Cycle))
	for ii, module := range err.Cycle {
		parts[ii] = string(module)
	}
	return strings.Join(parts, " -> ")
}

// ModuleGraph is the include graph of a compilation. Nodes are visited in the
// order they were added.
type ModuleGraph struct {
	modules map[SchemaImport]*Module
	order   []SchemaImport
}

func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{modules: make(map[SchemaImport]*Module)}
}

func (g *ModuleGraph) Add(module *Module) {
	if _, ok := g.modules[module.Path]; !ok {
		g.order = append(g.order, module.Path)
	}
	g.modules[module.Path] = module
}

func (g *ModuleGraph) Module(path SchemaImport) (*Module, bool) {
	module, ok := g.modules[path]
	return module, ok
}

func (g *ModuleGraph) Len() int {
	return len(g.order)
}

// Link checks that every dependency is part of the graph and that the graph
// is acyclic. It returns a *MissingIncludeError or a *CycleError.
func (g *ModuleGraph) Link() error {
	for _, path := range g.order {
		for _, dep := range g.modules[path].Deps {
			if _, ok := g.modules[dep]; !ok {
				return &MissingIncludeError{From: path, To: dep}
			}
		}
	}
	_, err := g.walk()
	return err
}

// Order returns every module with dependencies before their dependents. The
// graph must have been linked successfully.
func (g *ModuleGraph) Order() []SchemaImport {
	order, _ := g.walk()
	return order
}

func (g *ModuleGraph) walk() ([]SchemaImport, error) {
	var (
		visited   = make(map[SchemaImport]bool, len(g.order))
		onPath    = make(map[SchemaImport]int)
		path      []SchemaImport
		postOrder []SchemaImport
	)

	var visit func(node SchemaImport) error
	visit = func(node SchemaImport) error {
		if start, ok := onPath[node]; ok {
			cycle := slices.Clone(path[start:])
			return &CycleError{Cycle: append(cycle, node)}
		}
		if visited[node] {
			return nil
		}
		module, ok := g.modules[node]
		if !ok {
			return nil
		}

		onPath[node] = len(path)
		path = append(path, node)
		for _, dep := range module.Deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, node)

		visited[node] = true
		postOrder = append(postOrder, node)
		return nil
	}

	for _, node := range g.order {
		if err := visit(node); err != nil {
			return postOrder, err
		}
	}
	return postOrder, nil
}
