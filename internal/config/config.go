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

// Package config loads the baproto.toml project file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

const FileName = "baproto.toml"

type Config struct {
	ImportRoots []string   `toml:"import_roots"`
	Sources     []string   `toml:"sources"`
	Exclude     []string   `toml:"exclude"`
	Log         Log        `toml:"log"`
	Watch       Watch      `toml:"watch"`
	Generate    []Generate `toml:"generate"`

	// Dir is the directory containing the config file. Relative paths in
	// the config are resolved against it.
	Dir string `toml:"-"`

	sourceGlobs  []glob.Glob
	excludeGlobs []glob.Glob
}

type Log struct {
	Level string `toml:"level"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Generate struct {
	Plugin  string        `toml:"plugin"`
	Out     string        `toml:"out"`
	Timeout time.Duration `toml:"timeout"`
}

// Default returns the configuration used when no config file exists.
func Default(dir string) *Config {
	cfg := &Config{Dir: dir}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

func LoadFs(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Dir: filepath.Dir(path)}
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find looks for baproto.toml in dir and each of its parents. It returns
// the path of the first one found, or fs.ErrNotExist.
func Find(fsys afero.Fs, dir string) (string, error) {
	dir = filepath.Clean(dir)
	for {
		path := filepath.Join(dir, FileName)
		if ok, err := afero.Exists(fsys, path); err != nil {
			return "", err
		} else if ok {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", FileName, fs.ErrNotExist)
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	if len(cfg.ImportRoots) == 0 {
		cfg.ImportRoots = []string{"."}
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = []string{"**.baproto"}
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}
	for ii := range cfg.Generate {
		if cfg.Generate[ii].Timeout <= 0 {
			cfg.Generate[ii].Timeout = 30 * time.Second
		}
	}
}

func validate(cfg *Config) error {
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	for ii, root := range cfg.ImportRoots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("import_roots[%d] must not be empty", ii)
		}
	}

	var err error
	if cfg.sourceGlobs, err = compileGlobs("sources", cfg.Sources); err != nil {
		return err
	}
	if cfg.excludeGlobs, err = compileGlobs("exclude", cfg.Exclude); err != nil {
		return err
	}

	for ii, gen := range cfg.Generate {
		ref := fmt.Sprintf("generate[%d]", ii)
		if strings.TrimSpace(gen.Plugin) == "" {
			return fmt.Errorf("%s.plugin must not be empty", ref)
		}
		if strings.TrimSpace(gen.Out) == "" {
			return fmt.Errorf("%s.out must not be empty", ref)
		}
	}
	return nil
}

func compileGlobs(key string, patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for ii, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: invalid pattern %q: %w", key, ii, pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// LogLevel returns the configured log level.
func (cfg *Config) LogLevel() slog.Level {
	level, _ := parseLevel(cfg.Log.Level)
	return level
}

// Path resolves a path from the config against Dir.
func (cfg *Config) Path(p string) string {
	if filepath.IsAbs(p) || cfg.Dir == "" {
		return p
	}
	return filepath.Join(cfg.Dir, p)
}

func (cfg *Config) ImportRootPaths() []string {
	paths := make([]string, len(cfg.ImportRoots))
	for ii, root := range cfg.ImportRoots {
		paths[ii] = cfg.Path(root)
	}
	return paths
}

// Matches reports whether rel, a '/'-separated path relative to Dir, is
// selected by sources and not removed by exclude.
func (cfg *Config) Matches(rel string) bool {
	for _, g := range cfg.excludeGlobs {
		if g.Match(rel) {
			return false
		}
	}
	for _, g := range cfg.sourceGlobs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// SourceFiles walks Dir and returns the schema files selected by the
// config, in lexical order.
func (cfg *Config) SourceFiles(fsys afero.Fs) ([]string, error) {
	root := cfg.Dir
	if root == "" {
		root = "."
	}
	var files []string
	err := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if cfg.Matches(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
