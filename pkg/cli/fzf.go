package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Fepozopo/subsize/pkg/subsize"
)

// imageExts are the extensions offered for selection.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// findImages lists source images under dir, skipping hidden directories and
// files written by the generator.
func findImages(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if imageExts[strings.ToLower(filepath.Ext(path))] && !subsize.IsGenerated(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// SelectFilesWithFzf lets the user pick one or more images under startDir
// with fzf. Kitty and iTerm2 terminals get an image preview pane.
func SelectFilesWithFzf(startDir string) ([]string, error) {
	if _, err := exec.LookPath("fzf"); err != nil {
		return nil, fmt.Errorf("fzf not found in PATH: %w", err)
	}
	files, err := findImages(startDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found under %s", startDir)
	}

	args := []string{"--multi", "--height", "100%", "--border", "--prompt", "Images> "}
	switch {
	case isKitty():
		args = append(args, "--preview", "kitty +kitten icat --clear --transfer-mode=memory --stdin=no --place=${FZF_PREVIEW_COLUMNS}x${FZF_PREVIEW_LINES}@0x0 {}", "--preview-window", "right:60%")
	case isInlineImageCapable():
		args = append(args, "--preview", "imgcat {}", "--preview-window", "right:60%")
	case hasChafa():
		args = append(args, "--preview", "chafa -s ${FZF_PREVIEW_COLUMNS}x${FZF_PREVIEW_LINES} {}", "--preview-window", "right:60%")
	}

	cmd := exec.Command("fzf", args...)
	cmd.Stdin = strings.NewReader(strings.Join(files, "\n"))
	cmd.Stderr = os.Stderr
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("error running fzf: %w", err)
	}

	var selected []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			selected = append(selected, line)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no file selected")
	}
	return selected, nil
}

// PromptLine displays a prompt and reads one trimmed line from stdin.
func PromptLine(prompt string) (string, error) {
	return promptLine(os.Stdin, os.Stdout, prompt)
}

// promptLine reads one line from r. A final line without a newline is
// still returned; io.EOF is only reported when nothing was read.
func promptLine(r io.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
