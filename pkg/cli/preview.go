package cli

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Fepozopo/subsize/pkg/dims"
	"github.com/Fepozopo/subsize/pkg/editor"
)

// Inline preview of generated files for kitty and iTerm2-style terminals,
// with chafa as a fallback renderer. PREVIEW_BACKEND=kitty|inline|chafa
// forces a protocol.

// character cell size in pixels assumed for placement
const (
	cellW = 8
	cellH = 16

	maxCols = 80
	maxRows = 40
)

func isKitty() bool {
	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}
	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}

func isInlineImageCapable() bool {
	switch os.Getenv("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm", "Warp", "Hyper", "vscode", "Tabby":
		return true
	}
	return os.Getenv("ITERM_SESSION_ID") != ""
}

func hasChafa() bool {
	_, err := exec.LookPath("chafa")
	return err == nil
}

// PreviewSupported reports whether the terminal can likely show images.
func PreviewSupported() bool {
	return isKitty() || isInlineImageCapable() || hasChafa()
}

// previewSize is the placement of an image in terminal cells.
type previewSize struct {
	Cols, Rows int
}

// computePreviewSize fits a w x h image into the preview cell box without
// enlarging it.
func computePreviewSize(w, h int) previewSize {
	pw, ph := w, h
	if w > maxCols*cellW || h > maxRows*cellH {
		pw, ph = dims.Constrain(w, h, maxCols*cellW, maxRows*cellH)
	}
	cols := max(1, min(maxCols, (pw+cellW-1)/cellW))
	rows := max(1, min(maxRows, (ph+cellH-1)/cellH))
	return previewSize{Cols: cols, Rows: rows}
}

// PreviewFile shows the image at path in the terminal, followed by its
// file name.
func PreviewFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	img, _, err := editor.Decode(data)
	if err != nil {
		return err
	}
	if err := PreviewImage(w, img); err != nil {
		return err
	}
	fmt.Fprintln(w, path)
	return nil
}

// PreviewImage writes img to w using the best protocol the terminal
// supports.
func PreviewImage(w io.Writer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("png encode failed: %w", err)
	}
	size := computePreviewSize(img.Bounds().Dx(), img.Bounds().Dy())

	switch strings.ToLower(os.Getenv("PREVIEW_BACKEND")) {
	case "kitty":
		return sendKittyImage(w, buf.Bytes(), size)
	case "inline", "iterm":
		return sendInlineImage(w, buf.Bytes(), size)
	case "chafa":
		return sendChafaImage(w, buf.Bytes(), size)
	}

	switch {
	case isKitty():
		return sendKittyImage(w, buf.Bytes(), size)
	case isInlineImageCapable():
		return sendInlineImage(w, buf.Bytes(), size)
	case hasChafa():
		return sendChafaImage(w, buf.Bytes(), size)
	}
	return fmt.Errorf("no preview protocol matched")
}

// sendKittyImage sends PNG data with the kitty graphics protocol in base64
// chunks of at most 4096 bytes.
func sendKittyImage(w io.Writer, data []byte, size previewSize) error {
	enc := base64.StdEncoding.EncodeToString(data)
	const chunkSize = 4096

	for pos := 0; pos < len(enc); pos += chunkSize {
		end := min(pos+chunkSize, len(enc))
		more := "0"
		if end < len(enc) {
			more = "1"
		}
		var seq string
		if pos == 0 {
			// a=T transmit and display, f=100 PNG, q=2 quiet
			seq = fmt.Sprintf("\x1b_Ga=T,f=100,t=d,q=2,c=%d,r=%d,m=%s;%s\x1b\\", size.Cols, size.Rows, more, enc[pos:end])
		} else {
			seq = "\x1b_Gm=" + more + ";" + enc[pos:end] + "\x1b\\"
		}
		if _, err := io.WriteString(w, seq); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// sendInlineImage emits the iTerm2 OSC 1337 inline file sequence.
func sendInlineImage(w io.Writer, data []byte, size previewSize) error {
	seq := fmt.Sprintf("\x1b]1337;File=name=preview.png;inline=1;size=%d;width=%dpx;height=%dpx:%s\a\n",
		len(data), size.Cols*cellW, size.Rows*cellH, base64.StdEncoding.EncodeToString(data))
	_, err := io.WriteString(w, seq)
	return err
}

// sendChafaImage renders through the external chafa binary.
func sendChafaImage(w io.Writer, data []byte, size previewSize) error {
	if !hasChafa() {
		return fmt.Errorf("chafa not found in PATH")
	}
	cmd := exec.Command("chafa", "--fill=block", "--symbols=block", "-s", fmt.Sprintf("%dx%d", size.Cols, size.Rows), "-")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("chafa failed: %w", err)
	}
	return nil
}
