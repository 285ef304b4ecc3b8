package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-ontrack/internal/presentation/formatter"
)

func listPrograms(t *testing.T, env testEnv, extra ...string) []formatter.ProgramRow {
	t.Helper()
	out, err := execute(t, nil, env.args(append([]string{"programs", "list", "-o", "json"}, extra...)...)...)
	require.NoError(t, err)
	var rows []formatter.ProgramRow
	require.NoError(t, sonic.Unmarshal([]byte(out), &rows))
	return rows
}

func TestProgramsList(t *testing.T) {
	env := newTestEnv(t, true)

	rows := listPrograms(t, env)
	require.Len(t, rows, 2)
	assert.Equal(t, "editor", rows[0].ID)

	rows = listPrograms(t, env, "--sort", "name", "--reverse")
	assert.Equal(t, "game", rows[0].ID)

	_, err := execute(t, nil, env.args("programs", "list", "--sort", "cost")...)
	assert.Error(t, err)
}

func TestProgramsSet(t *testing.T) {
	env := newTestEnv(t, true)

	out, err := execute(t, nil, env.args("programs", "set", "editor",
		"--visibility", "hidden", "--category", "Play", "--name", "My Editor", "--afk-sensitive=false")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Updated editor")

	rows := listPrograms(t, env)
	require.Len(t, rows, 1)
	assert.Equal(t, "game", rows[0].ID)

	rows = listPrograms(t, env, "--all")
	require.Len(t, rows, 2)
	var editor formatter.ProgramRow
	for _, r := range rows {
		if r.ID == "editor" {
			editor = r
		}
	}
	assert.Equal(t, "My Editor", editor.Name)
	assert.Equal(t, "Play", editor.Category)
	assert.Equal(t, "hidden", editor.Visibility)
	assert.False(t, editor.AFKSensitive)

	data, err := os.ReadFile(env.dataPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"afk_sensitive": false`)
}

func TestProgramsSetRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no changes", args: []string{"editor"}, want: "nothing to change"},
		{name: "unknown program", args: []string{"nope", "--name", "x"}, want: `unknown program "nope"`},
		{name: "unknown category", args: []string{"editor", "--category", "Chores"}, want: `unknown category "Chores"`},
		{name: "bad visibility", args: []string{"editor", "--visibility", "secret"}, want: `invalid visibility "secret"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, env.args(append([]string{"programs", "set"}, tt.args...)...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProgramsSelect(t *testing.T) {
	env := newTestEnv(t, true)

	out, err := execute(t, nil, env.args("programs", "select", "CATEGORY_Work")...)
	require.NoError(t, err)
	assert.Equal(t, "Selected Work (10m 0s total)\n", out)

	data, err := os.ReadFile(env.dataPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"selected_program": "CATEGORY_Work"`)

	_, err = execute(t, nil, env.args("programs", "select", "nope")...)
	assert.Error(t, err)

	out, err = execute(t, nil, env.args("programs", "select", "CATEGORY_Bogus")...)
	require.Error(t, err)
	assert.Empty(t, out)
	data, err = os.ReadFile(env.dataPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"selected_program": "CATEGORY_Work"`)
}

func TestTrackReadsStdin(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := execute(t, strings.NewReader("/usr/bin/code.bin\ncode\n"), env.args("track", "--quiet", "--no-watch")...)
	require.NoError(t, err)

	rows := listPrograms(t, env)
	require.Len(t, rows, 1)
	assert.Equal(t, "code", rows[0].ID)
	assert.Greater(t, rows[0].Total, 0.0)
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t, false)
	path := filepath.Join(filepath.Dir(env.configPath), "fresh", "config.toml")

	out, err := execute(t, nil, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, nil, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, nil, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)

	out, err = execute(t, nil, "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}
