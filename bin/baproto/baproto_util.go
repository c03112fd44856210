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

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/internal/config"
	"github.com/coffeebeats/build-a-proto-sub000/internal/report"
)

// session holds the state derived from the global flags and the config
// file for a single command invocation.
type session struct {
	env   *environment
	cfg   *config.Config
	log   *slog.Logger
	roots *compiler.ImportRoots
}

func (env *environment) newSession() (*session, error) {
	cfg, err := env.loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel()
	if env.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(env.stderr, &slog.HandlerOptions{Level: level}))

	dirs := env.importDirs
	if len(dirs) == 0 {
		dirs = cfg.ImportRootPaths()
	}
	roots, err := compiler.NewImportRoots(dirs...)
	if err != nil {
		return nil, err
	}
	logger.Debug("import roots", "dirs", roots.Dirs())

	return &session{env: env, cfg: cfg, log: logger, roots: roots}, nil
}

func (env *environment) loadConfig() (*config.Config, error) {
	if env.configPath != "" {
		return config.LoadFs(env.fs, env.configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, err := config.Find(env.fs, cwd)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(cwd), nil
	}
	if err != nil {
		return nil, err
	}
	return config.LoadFs(env.fs, path)
}

// entries converts schema file arguments into include paths. With no
// arguments, the config's source globs select the files.
func (s *session) entries(argv []string) ([]string, error) {
	files := argv
	if len(files) == 0 {
		var err error
		if files, err = s.cfg.SourceFiles(s.env.fs); err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no schema files given and none matched in %s", s.cfg.Dir)
		}
	}
	entries := make([]string, 0, len(files))
	for _, file := range files {
		if filepath.Ext(file) != compiler.SchemaExtension {
			return nil, fmt.Errorf("%s: not a %s file", file, compiler.SchemaExtension)
		}
		include, err := s.roots.Rel(file)
		if err != nil {
			return nil, err
		}
		entries = append(entries, include)
	}
	return entries, nil
}

// compile runs the compiler and renders its diagnostics. The result is
// usable only if ok is true.
func (s *session) compile(entries []string) (result compiler.CompileResult, ok bool) {
	result = compiler.Compile(entries,
		compiler.WithImportRoots(s.roots),
		compiler.WithLogger(s.log),
	)
	report.NewReporter(s.env.stderr, &result).Report(result.Errors, result.Warnings)
	return result, !result.Failed()
}

func (s *session) fail(err error) int {
	fmt.Fprintln(s.env.stderr, err)
	return exitFailure
}
