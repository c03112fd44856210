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

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectConfig = `
import_roots = ["schemas"]
sources = ["schemas/**.baproto"]
exclude = ["schemas/testdata/**"]

[log]
level = "info"

[watch]
debounce = "1s"

[[generate]]
plugin = "text"
out = "gen/text"
timeout = "5s"

[[generate]]
plugin = "go"
out = "gen/go"
`

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := filepath.Join("/proj", FileName)
	writeFile(t, fsys, path, projectConfig)

	cfg, err := LoadFs(fsys, path)
	require.NoError(t, err)

	assert.Equal(t, "/proj", cfg.Dir)
	assert.Equal(t, []string{"schemas"}, cfg.ImportRoots)
	assert.Equal(t, []string{filepath.Join("/proj", "schemas")}, cfg.ImportRootPaths())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	require.Len(t, cfg.Generate, 2)
	assert.Equal(t, Generate{Plugin: "text", Out: "gen/text", Timeout: 5 * time.Second}, cfg.Generate[0])
	assert.Equal(t, 30*time.Second, cfg.Generate[1].Timeout)
}

func TestLoadDefaults(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := filepath.Join("/proj", FileName)
	writeFile(t, fsys, path, "")

	cfg, err := LoadFs(fsys, path)
	require.NoError(t, err)

	assert.Equal(t, []string{"."}, cfg.ImportRoots)
	assert.Equal(t, []string{"**.baproto"}, cfg.Sources)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Generate)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		content string
		message string
	}{
		"syntax": {
			content: `import_roots = [`,
		},
		"unknown key": {
			content: `output = "gen"`,
			message: `unknown key "output"`,
		},
		"bad level": {
			content: "[log]\nlevel = \"loud\"",
			message: "log.level",
		},
		"bad glob": {
			content: `sources = ["schemas/[a"]`,
			message: "sources[0]: invalid pattern",
		},
		"empty root": {
			content: `import_roots = [""]`,
			message: "import_roots[0] must not be empty",
		},
		"missing plugin": {
			content: "[[generate]]\nout = \"gen\"",
			message: "generate[0].plugin must not be empty",
		},
		"missing out": {
			content: "[[generate]]\nplugin = \"text\"",
			message: "generate[0].out must not be empty",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			path := filepath.Join("/proj", FileName)
			writeFile(t, fsys, path, test.content)

			_, err := LoadFs(fsys, path)
			require.Error(t, err)
			if test.message != "" {
				assert.Contains(t, err.Error(), test.message)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := LoadFs(afero.NewMemMapFs(), "/proj/baproto.toml")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFind(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, filepath.Join("/proj", FileName), "")
	require.NoError(t, fsys.MkdirAll("/proj/schemas/game", 0o755))

	path, err := Find(fsys, "/proj/schemas/game")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/proj", FileName), path)

	_, err = Find(fsys, "/elsewhere")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSourceFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := filepath.Join("/proj", FileName)
	writeFile(t, fsys, path, projectConfig)
	writeFile(t, fsys, "/proj/schemas/common.baproto", "")
	writeFile(t, fsys, "/proj/schemas/game/state.baproto", "")
	writeFile(t, fsys, "/proj/schemas/game/README.md", "")
	writeFile(t, fsys, "/proj/schemas/testdata/broken.baproto", "")
	writeFile(t, fsys, "/proj/schemas/.cache/old.baproto", "")
	writeFile(t, fsys, "/proj/other.baproto", "")

	cfg, err := LoadFs(fsys, path)
	require.NoError(t, err)

	files, err := cfg.SourceFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/proj", "schemas", "common.baproto"),
		filepath.Join("/proj", "schemas", "game", "state.baproto"),
	}, files)
}

func TestMatches(t *testing.T) {
	cfg := Default("/proj")
	assert.True(t, cfg.Matches("a.baproto"))
	assert.True(t, cfg.Matches("a/b/c.baproto"))
	assert.False(t, cfg.Matches("a/b/c.proto"))
}
