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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

const playerSchema = `package game.state;

include "common.baproto";

message Player {
	u32 id;
	.common.Vec2 pos;
}
`

const commonSchema = `package common;

message Vec2 {
	f32 x;
	f32 y;
}
`

type testEnv struct {
	*environment
	dir    string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })

	env := &testEnv{dir: t.TempDir()}
	env.environment = &environment{
		stdout: &env.stdout,
		stderr: &env.stderr,
		fs:     afero.NewOsFs(),
	}
	env.write(t, "schemas/game/state.baproto", playerSchema)
	env.write(t, "schemas/common.baproto", commonSchema)
	env.write(t, "baproto.toml", `import_roots = ["schemas"]`+"\n")
	return env
}

func (env *testEnv) path(rel string) string {
	return filepath.Join(env.dir, filepath.FromSlash(rel))
}

func (env *testEnv) write(t *testing.T, rel, content string) {
	t.Helper()
	path := env.path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (env *testEnv) run(args ...string) int {
	argv := append([]string{args[0], "--config", env.path("baproto.toml")}, args[1:]...)
	return runMain(context.Background(), env.environment, argv)
}

func TestUsage(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, exitUsage, runMain(context.Background(), env.environment, nil))
	assert.Contains(t, env.stderr.String(), "Usage:")

	assert.Equal(t, exitUsage, runMain(context.Background(), env.environment, []string{"frobnicate"}))
	assert.Contains(t, env.stderr.String(), "unknown command")
}

func TestCompileText(t *testing.T) {
	env := newTestEnv(t)

	rc := env.run("compile", "--format=text", env.path("schemas/game/state.baproto"))
	require.Equal(t, exitOK, rc, env.stderr.String())

	out := env.stdout.String()
	assert.Contains(t, out, "package game.state {")
	assert.Contains(t, out, "package common {")
	assert.Contains(t, out, "field 1 pos: message common.Vec2 as embedded")
}

func TestCompileJSONToFile(t *testing.T) {
	env := newTestEnv(t)
	outPath := env.path("out/schema.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(outPath), 0o755))

	rc := env.run("compile", "-o", outPath, env.path("schemas/game/state.baproto"))
	require.Equal(t, exitOK, rc, env.stderr.String())
	assert.Empty(t, env.stdout.String())

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	schema, err := ir.Decode(f)
	require.NoError(t, err)
	assert.NotNil(t, schema.Package("game.state"))
	assert.NotNil(t, schema.Package("common"))
}

func TestCompileSourcesFromConfig(t *testing.T) {
	env := newTestEnv(t)

	rc := env.run("compile", "--format=text")
	require.Equal(t, exitOK, rc, env.stderr.String())
	assert.Contains(t, env.stdout.String(), "package game.state {")
}

func TestCompileBadFormat(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, exitUsage, env.run("compile", "--format=yaml"))
	assert.Contains(t, env.stderr.String(), `Unsupported output format "yaml"`)
}

func TestCheckReportsDiagnostics(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "schemas/bad.baproto", "package bad;\nmessage M {\n\t0: u8 a;\n\t0: u8 b;\n}\n")

	rc := env.run("check", env.path("schemas/bad.baproto"))
	assert.Equal(t, exitFailure, rc)
	assert.Contains(t, env.stderr.String(), "error[E3009]: duplicate index 0")
	assert.Contains(t, env.stderr.String(), "1 error generated")
	assert.Empty(t, env.stdout.String())
}

func TestCheckOk(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, exitOK, env.run("check", env.path("schemas/game/state.baproto")), env.stderr.String())
}

func TestCheckFileOutsideRoots(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "elsewhere/x.baproto", "package x;\n")
	assert.Equal(t, exitFailure, env.run("check", env.path("elsewhere/x.baproto")))
	assert.Contains(t, env.stderr.String(), "not inside any import root")
}

func writePlugin(t *testing.T, env *testEnv) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugins require a POSIX shell")
	}
	env.write(t, "plugins/baproto-gen-stub", `#!/bin/sh
cat > /dev/null
printf '{"files":{"game/state.txt":"generated\\n"}}'
`)
	path := env.path("plugins/baproto-gen-stub")
	require.NoError(t, os.Chmod(path, 0o755))
	return path
}

func TestGenerateWithPluginFlag(t *testing.T) {
	env := newTestEnv(t)
	writePlugin(t, env)
	outDir := env.path("gen")

	rc := env.run("generate",
		"--plugin", "stub",
		"--plugin-path", env.path("plugins"),
		"--out", outDir,
		env.path("schemas/game/state.baproto"),
	)
	require.Equal(t, exitOK, rc, env.stderr.String())

	data, err := os.ReadFile(filepath.Join(outDir, "game", "state.txt"))
	require.NoError(t, err)
	assert.Equal(t, "generated\n", string(data))
}

func TestGenerateFromConfig(t *testing.T) {
	env := newTestEnv(t)
	pluginPath := writePlugin(t, env)
	env.write(t, "baproto.toml", `import_roots = ["schemas"]

[[generate]]
plugin = "`+filepath.ToSlash(pluginPath)+`"
out = "gen/stub"
`)

	rc := env.run("generate")
	require.Equal(t, exitOK, rc, env.stderr.String())

	_, err := os.Stat(env.path("gen/stub/game/state.txt"))
	assert.NoError(t, err)
}

func TestGenerateUsageErrors(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, exitUsage, env.run("generate"))
	assert.Contains(t, env.stderr.String(), "No plugin specified")

	env.stderr.Reset()
	assert.Equal(t, exitUsage, env.run("generate", "--plugin", "stub"))
	assert.Contains(t, env.stderr.String(), "No output directory specified")
}

func TestGenerateMissingPlugin(t *testing.T) {
	env := newTestEnv(t)
	rc := env.run("generate",
		"--plugin", "missing",
		"--plugin-path", env.path("plugins"),
		"--out", env.path("gen"),
		env.path("schemas/game/state.baproto"),
	)
	assert.Equal(t, exitFailure, rc)
	assert.Contains(t, env.stderr.String(), "baproto-gen-missing not found")
}
