package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Extra string `yaml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "orrery")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 7000\n")

	s := sample{Extra: "kept"}
	require.NoError(t, Load(path, &s))
	assert.Equal(t, sample{Name: "orrery", Port: 7000, Extra: "kept"}, s)
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &s))
	assert.Error(t, Load(writeFile(t, "port: [oops"), &s))

	err := Load(writeFile(t, "port: 0\n"), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadOptional(t *testing.T) {
	s := sample{Port: 1}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, s.Port)

	found, err = LoadOptional(writeFile(t, "port: 2\n"), &s)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, s.Port)

	bad := sample{}
	_, err = LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &bad)
	assert.Error(t, err, "defaults are validated too")
}
