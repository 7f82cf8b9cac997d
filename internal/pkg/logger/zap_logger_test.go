package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := NewIsolatedLogger(path)

	l.Info(ModuleOrder, "order dispatched", map[string]interface{}{"quantity": 50})
	l.Error(ModuleRAG, "completion failed", map[string]interface{}{"error": "timeout"})
	require.NoError(t, l.Sync())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, ModuleOrder, entries[0]["module"])
	assert.Equal(t, "order dispatched", entries[0]["message"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Equal(t, "timeout", entries[1]["error_ref"])
}

func TestNopLoggerAcceptsNilDetails(t *testing.T) {
	l := NewNopLogger()
	l.Debug(ModuleRouter, "noop", nil)
	l.Warn(ModuleRouter, "noop", nil)
	assert.NoError(t, l.Sync())
}
