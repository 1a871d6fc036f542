package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fepozopo/subsize/pkg/subsize"
)

func TestPromptLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"newline", "y\n", "y"},
		{"crlf", "yes\r\n", "yes"},
		{"no trailing newline", "photo.jpg", "photo.jpg"},
		{"only first line", "a.png\nb.png\n", "a.png"},
		{"padded", "  spaced.jpg  ", "spaced.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := promptLine(strings.NewReader(tt.input), &out, "Image path: ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Image path: ", out.String())
		})
	}
}

func TestPromptLineEmptyInput(t *testing.T) {
	_, err := promptLine(strings.NewReader(""), io.Discard, "> ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestFindImagesSkipsOnlyClaimedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"photo.png", "photo-150x150.png", "wallpaper-1920x1080.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cache", "hidden.png"), []byte("x"), 0o644))
	md := &subsize.Metadata{
		File:  "photo.png",
		Sizes: map[string]subsize.SizeMeta{"thumbnail": {File: "photo-150x150.png"}},
	}
	require.NoError(t, md.WriteFile(subsize.SidecarName(filepath.Join(dir, "photo.png"))))

	files, err := findImages(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "photo.png"),
		filepath.Join(dir, "wallpaper-1920x1080.jpg"),
	}, files)
}
