package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sneakhead.log")
	l, sync, err := New(Config{Mode: "production", Level: "info", FileEnable: true, Filename: path})
	require.NoError(t, err)

	l.Info("[test] hello")
	l.Debug("[test] hidden")
	sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"[test] hello"`)
	assert.NotContains(t, string(raw), "hidden")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_Console(t *testing.T) {
	l, sync, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, l)
	sync()
}
