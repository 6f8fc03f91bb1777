package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestWriterLoggerFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("world", &buf, WARN)

	l.Info("не должно попасть")
	l.Warn("чанк %d перестроен", 3)
	l.Error("ошибка")

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [world] чанк 3 перестроен")
	assert.Contains(t, out, "[ERROR] [world] ошибка")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger("storage", dir)
	require.NoError(t, err)

	l.Debug("в файл пишутся все уровни")
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "storage_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [storage] в файл пишутся все уровни")
}

func TestDefaultLoggerSwap(t *testing.T) {
	var buf bytes.Buffer
	prev := current()
	SetDefaultLogger(NewWriterLogger("test", &buf, TRACE))
	defer SetDefaultLogger(prev)

	Trace("t")
	Info("запуск %s", "мира")
	assert.Contains(t, buf.String(), "[TRACE] [test] t")
	assert.Contains(t, buf.String(), "[INFO] [test] запуск мира")
}

func TestManagerReturnsSameLogger(t *testing.T) {
	m := &LoggerManager{level: INFO, loggers: make(map[string]*Logger)}

	a, err := m.GetLogger("api")
	require.NoError(t, err)
	b := m.MustGetLogger("api")
	assert.Same(t, a, b)

	m.MustGetLogger("game")
	assert.Equal(t, []string{"api", "game"}, m.ListComponents())
	require.NoError(t, m.CloseAll())
	assert.Empty(t, m.ListComponents())
}
