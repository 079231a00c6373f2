package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"main.go":          "main.go",
		"my file.py":       "my_file.py",
		"../../etc/passwd": "passwd",
		`C:\tmp\evil.exe`:  "evil.exe",
		".bashrc":          "bashrc",
		"ünïcode.txt":      "ncode.txt",
		"???":              "file",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	intake, err := NewIntake(dir, zap.NewNop())
	require.NoError(t, err)

	summary, err := intake.Save([]File{
		{Name: "a.py", Data: []byte("print(1)")},
		{Name: "", Data: []byte("skipped")},
		{Name: "a.py", Data: []byte("print(2)")},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimPrefix(summary, "\nUploaded Files:\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(summary, "\nUploaded Files:\nSaved: "))
	assert.NotEqual(t, lines[0], lines[1])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	name := strings.TrimPrefix(lines[0], "Saved: ")
	assert.True(t, strings.HasSuffix(name, "_a.py"))
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "print(1)", string(data))
}

func TestSaveNothing(t *testing.T) {
	intake, err := NewIntake(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	summary, err := intake.Save(nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
}
