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
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
	args    cobra.PositionalArgs
}

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	env := &environment{
		stdout: os.Stdout,
		stderr: os.Stderr,
		fs:     afero.NewOsFs(),
	}
	rc := runMain(ctx, env, os.Args[1:])
	stop()
	os.Exit(rc)
}

// environment is shared by every command.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs

	importDirs []string
	configPath string
	verbose    bool
}

func runMain(ctx context.Context, env *environment, argv []string) int {
	rc := exitOK
	baprotoCmd := &cobra.Command{
		Use:           "baproto [options] COMMAND",
		Short:         "Compile bit-packed schema files",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	if argv == nil {
		argv = []string{}
	}
	baprotoCmd.SetArgs(argv)
	baprotoCmd.SetOut(env.stdout)
	baprotoCmd.SetErr(env.stderr)
	baprotoCmd.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(env.stderr, baprotoCmd.UsageString())
		return errUsage
	}

	global := baprotoCmd.PersistentFlags()
	global.StringArrayVarP(&env.importDirs, "import-root", "I", nil, "directory to search for included schemas (repeatable)")
	global.StringVar(&env.configPath, "config", "", "path to baproto.toml (default: search upward from the working directory)")
	global.BoolVarP(&env.verbose, "verbose", "v", false, "enable debug logging")

	commands := []command{
		&cmdCompile{env: env},
		&cmdCheck{env: env},
		&cmdGenerate{env: env},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			Args:  help.args,
			RunE: func(_ *cobra.Command, args []string) error {
				rc = cmd.run(ctx, args)
				return nil
			},
		}
		baprotoCmd.AddCommand(cobraCmd)
		cmd.flags(cobraCmd.Flags())
	}

	if err := baprotoCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(env.stderr, "Error: %v\n", err)
		}
		return exitUsage
	}
	return rc
}
