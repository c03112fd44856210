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
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const SchemaExtension = ".baproto"

var (
	ErrInvalidImportPath = errors.New("invalid import path")
	ErrImportNotFound    = errors.New("schema not found in any import root")
	ErrImportEscapesRoot = errors.New("import escapes its import root")
)

// Importer locates and reads schema files named by include paths.
type Importer interface {
	Resolve(include string) (SchemaImport, error)
	ReadFile(path SchemaImport) ([]byte, error)
}

func checkIncludePath(include string) error {
	switch {
	case include == "":
		return fmt.Errorf("%w: empty path", ErrInvalidImportPath)
	case strings.HasPrefix(include, "/") || filepath.IsAbs(include):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidImportPath, include)
	case path.Ext(include) != SchemaExtension:
		return fmt.Errorf("%w: %q does not end in %s", ErrInvalidImportPath, include, SchemaExtension)
	}
	return nil
}

// ImportRoots resolves includes against a list of directories on the local
// filesystem, searched in order. Resolved paths are canonical: absolute,
// with symlinks evaluated, and inside the root that matched.
type ImportRoots struct {
	dirs []string
}

var _ Importer = (*ImportRoots)(nil)

func NewImportRoots(dirs ...string) (*ImportRoots, error) {
	roots := &ImportRoots{dirs: make([]string, 0, len(dirs))}
	for _, dir := range dirs {
		canonical, err := canonicalPath(dir)
		if err != nil {
			return nil, fmt.Errorf("import root %q: %w", dir, err)
		}
		info, err := os.Stat(canonical)
		if err != nil {
			return nil, fmt.Errorf("import root %q: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("import root %q is not a directory", dir)
		}
		roots.dirs = append(roots.dirs, canonical)
	}
	return roots, nil
}

func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (r *ImportRoots) Dirs() []string {
	return r.dirs
}

func (r *ImportRoots) Resolve(include string) (SchemaImport, error) {
	if err := checkIncludePath(include); err != nil {
		return "", err
	}
	for _, root := range r.dirs {
		candidate := filepath.Join(root, filepath.FromSlash(include))
		info, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if !info.Mode().IsRegular() {
			return "", fmt.Errorf("%w: %q is not a regular file", ErrInvalidImportPath, include)
		}
		canonical, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			return "", err
		}
		if !within(root, canonical) {
			return "", fmt.Errorf("%w: %q resolves to %s", ErrImportEscapesRoot, include, canonical)
		}
		return SchemaImport(canonical), nil
	}
	return "", fmt.Errorf("%w: %q", ErrImportNotFound, include)
}

func (r *ImportRoots) ReadFile(path SchemaImport) ([]byte, error) {
	return os.ReadFile(string(path))
}

// Rel converts a filesystem path into an include path relative to the first
// import root that contains it.
func (r *ImportRoots) Rel(file string) (string, error) {
	canonical, err := canonicalPath(file)
	if err != nil {
		return "", err
	}
	for _, root := range r.dirs {
		if within(root, canonical) {
			rel, err := filepath.Rel(root, canonical)
			if err != nil {
				return "", err
			}
			return filepath.ToSlash(rel), nil
		}
	}
	return "", fmt.Errorf("%w: %s is not inside any import root", ErrImportEscapesRoot, file)
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// FSImporter resolves includes against an fs.FS, such as an embedded
// directory of schemas.
type FSImporter struct {
	fsys fs.FS
}

var _ Importer = (*FSImporter)(nil)

func NewFSImporter(fsys fs.FS) *FSImporter {
	return &FSImporter{fsys: fsys}
}

func (i *FSImporter) Resolve(include string) (SchemaImport, error) {
	if err := checkIncludePath(include); err != nil {
		return "", err
	}
	clean := path.Clean(include)
	if !fs.ValidPath(clean) {
		return "", fmt.Errorf("%w: %q", ErrImportEscapesRoot, include)
	}
	info, err := fs.Stat(i.fsys, clean)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrImportNotFound, include)
	}
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q is not a regular file", ErrInvalidImportPath, include)
	}
	return SchemaImport(clean), nil
}

func (i *FSImporter) ReadFile(path SchemaImport) ([]byte, error) {
	return fs.ReadFile(i.fsys, string(path))
}
