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
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/coffeebeats/build-a-proto-sub000/codegen"
	"github.com/coffeebeats/build-a-proto-sub000/compiler"
	"github.com/coffeebeats/build-a-proto-sub000/internal/config"
	"github.com/coffeebeats/build-a-proto-sub000/internal/watch"
)

type cmdGenerate struct {
	env        *environment
	plugin     string
	outDir     string
	pluginPath string
	timeout    time.Duration
	watch      bool
}

func (*cmdGenerate) help() *commandHelp {
	return &commandHelp{
		usage:   "generate [--plugin NAME --out DIR] [--watch] [FILE...]",
		summary: "Run code generation plugins",
	}
}

func (cmd *cmdGenerate) flags(flags *pflag.FlagSet) {
	flags.StringVar(&cmd.plugin, "plugin", "", "plugin name or path (default: every [[generate]] entry in the config)")
	flags.StringVar(&cmd.outDir, "out", "", "output directory for --plugin")
	flags.StringVar(&cmd.pluginPath, "plugin-path", "", "plugin search path (default: $BAPROTO_PLUGIN_PATH then $PATH)")
	flags.DurationVar(&cmd.timeout, "timeout", 30*time.Second, "time limit for each plugin run with --plugin")
	flags.BoolVarP(&cmd.watch, "watch", "w", false, "regenerate when schema files change")
}

func (cmd *cmdGenerate) run(ctx context.Context, argv []string) int {
	s, err := cmd.env.newSession()
	if err != nil {
		fmt.Fprintln(cmd.env.stderr, err)
		return exitFailure
	}

	targets, err := cmd.targets(s.cfg)
	if err != nil {
		fmt.Fprintln(cmd.env.stderr, err)
		return exitUsage
	}

	rc := cmd.generate(ctx, s, targets, argv)
	if !cmd.watch {
		return rc
	}
	return cmd.watchLoop(ctx, s, targets, argv)
}

func (cmd *cmdGenerate) targets(cfg *config.Config) ([]config.Generate, error) {
	if cmd.plugin != "" {
		if cmd.outDir == "" {
			return nil, fmt.Errorf("No output directory specified (set --out=)")
		}
		return []config.Generate{{
			Plugin:  cmd.plugin,
			Out:     cmd.outDir,
			Timeout: cmd.timeout,
		}}, nil
	}
	if cmd.outDir != "" {
		return nil, fmt.Errorf("--out requires --plugin")
	}
	if len(cfg.Generate) == 0 {
		return nil, fmt.Errorf("No plugin specified (set --plugin= or add a [[generate]] entry to %s)", config.FileName)
	}
	targets := make([]config.Generate, len(cfg.Generate))
	for ii, target := range cfg.Generate {
		target.Out = cfg.Path(target.Out)
		targets[ii] = target
	}
	return targets, nil
}

func (cmd *cmdGenerate) generate(ctx context.Context, s *session, targets []config.Generate, argv []string) int {
	entries, err := s.entries(argv)
	if err != nil {
		return s.fail(err)
	}
	result, ok := s.compile(entries)
	if !ok {
		return exitFailure
	}

	searchPath := cmd.pluginPath
	if searchPath == "" {
		searchPath = codegen.SearchPath()
	}
	for _, target := range targets {
		if err := cmd.runPlugin(ctx, s, &result, target, searchPath); err != nil {
			return s.fail(err)
		}
	}
	return exitOK
}

func (cmd *cmdGenerate) runPlugin(
	ctx context.Context,
	s *session,
	result *compiler.CompileResult,
	target config.Generate,
	searchPath string,
) error {
	plugin, err := codegen.Locate(target.Plugin, searchPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, target.Timeout)
	defer cancel()

	start := time.Now()
	response, err := plugin.Generate(ctx, result.Schema())
	if err != nil {
		return err
	}
	written, err := codegen.WriteFiles(s.env.fs, target.Out, response.Files)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
	}
	s.log.Info("generated",
		"plugin", plugin.Name(),
		"out", target.Out,
		"files", len(written),
		"elapsed", time.Since(start),
	)
	return nil
}

func (cmd *cmdGenerate) watchLoop(ctx context.Context, s *session, targets []config.Generate, argv []string) int {
	w, err := watch.New(
		watch.WithDebounce(s.cfg.Watch.Debounce),
		watch.WithLogger(s.log),
		watch.WithFilter(func(path string) bool {
			return filepath.Ext(path) == compiler.SchemaExtension
		}),
	)
	if err != nil {
		return s.fail(err)
	}
	defer w.Close()
	for _, dir := range s.roots.Dirs() {
		if err := w.Add(dir); err != nil {
			return s.fail(err)
		}
	}

	s.log.Info("watching for changes", "dirs", s.roots.Dirs())
	err = w.Run(ctx, func(paths []string) {
		s.log.Info("schemas changed", "files", paths)
		cmd.generate(ctx, s, targets, argv)
	})
	if err != nil {
		return s.fail(err)
	}
	return exitOK
}
