package sensitive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWord_ConfigWords(t *testing.T) {
	w, err := NewWord("", "casino", "  ", "Miracle Cure")
	require.NoError(t, err)
	assert.False(t, w.Empty())

	pass, hit := w.Validate("Best Online CASINO Bonuses")
	assert.False(t, pass)
	assert.Equal(t, "casino", hit)

	pass, hit = w.Validate("This miracle cure works")
	assert.False(t, pass)
	assert.Equal(t, "miraclecure", hit)

	pass, _ = w.Validate("Quantum Computing Breakthrough")
	assert.True(t, pass)

	assert.Equal(t, "play ******", w.Replace("play casino", '*'))
}

func TestNewWord_Dict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.txt")
	require.NoError(t, os.WriteFile(path, []byte("spam\nclickbait\n"), 0o644))

	w, err := NewWord(path)
	require.NoError(t, err)
	assert.False(t, w.Empty())

	pass, hit := w.Validate("pure clickbait headline")
	assert.False(t, pass)
	assert.Equal(t, "clickbait", hit)
}

func TestNewWord_MissingDict(t *testing.T) {
	_, err := NewWord(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestNilAndEmpty(t *testing.T) {
	var w *Word
	assert.True(t, w.Empty())
	pass, _ := w.Validate("anything")
	assert.True(t, pass)

	empty, err := NewWord("")
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	pass, _ = empty.Validate("anything")
	assert.True(t, pass)
}
