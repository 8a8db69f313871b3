package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPaths_Linux(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("XDG paths apply on Linux only")
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, "/xdg/config/shotty/config.json", DefaultClientPath())
	assert.Equal(t, "/xdg/config/shotty/server.toml", DefaultServerPath())
	assert.Equal(t, "/xdg/data/shotty", DefaultDataDir())
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/u")

	assert.Equal(t, "/home/u/Dropbox", ExpandHome("~/Dropbox"))
	assert.Equal(t, filepath.Clean("/home/u"), ExpandHome("~"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestIsWithin(t *testing.T) {
	assert.True(t, isWithin("/a/b/c", "/a/b"))
	assert.True(t, isWithin("/a/b", "/a/b"))
	assert.False(t, isWithin("/a/bc", "/a/b"))
	assert.False(t, isWithin("/a", "/a/b"))
	assert.True(t, isWithin("/a/b/..c", "/a/b"))
}

func TestEnvOverridesPaths(t *testing.T) {
	env := EnvOverrides{ConfigPath: "/env/c.json", ServerConfigPath: "/env/s.toml"}

	assert.Equal(t, "/flag.json", env.ClientPath("/flag.json"))
	assert.Equal(t, "/env/c.json", env.ClientPath(""))
	assert.Equal(t, "/env/s.toml", env.ServerPath(""))
	assert.Equal(t, DefaultClientPath(), EnvOverrides{}.ClientPath(""))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("token", "token"))
	assert.Equal(t, 1, levenshtein("tokn", "token"))
	assert.Equal(t, 5, levenshtein("", "token"))
	assert.Equal(t, "", closestMatch("completely_different", clientKeys))
}
