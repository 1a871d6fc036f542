package editor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned for data that is not a supported image type.
var ErrNotImage = errors.New("not a supported image")

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 82

// supported maps sniffed mime types to file extensions.
var supported = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
	"image/tiff": "tif",
}

// DetectMime sniffs the mime type of image data from its magic bytes.
func DetectMime(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("sniff file type: %w", err)
	}
	if kind == filetype.Unknown || !filetype.IsImage(data) {
		return "", ErrNotImage
	}
	if _, ok := supported[kind.MIME.Value]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotImage, kind.MIME.Value)
	}
	return kind.MIME.Value, nil
}

// Decode decodes image data and returns the image with its sniffed mime type.
func Decode(data []byte) (image.Image, string, error) {
	mime, err := DetectMime(data)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, mime, fmt.Errorf("decoding %s: %w", mime, err)
	}
	return img, mime, nil
}

// OutputMime returns the mime type and extension that resized copies of a
// srcMime image are written as. Formats without a pure-Go encoder fall back
// to PNG.
func OutputMime(srcMime string) (string, string) {
	switch srcMime {
	case "image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff":
		return srcMime, supported[srcMime]
	default:
		return "image/png", "png"
	}
}

// Encode writes img to w in the given mime type. quality applies to JPEG;
// zero selects DefaultQuality.
func Encode(w io.Writer, img image.Image, mime string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	switch mime {
	case "image/jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "image/png":
		return png.Encode(w, img)
	case "image/gif":
		return gif.Encode(w, img, nil)
	case "image/bmp":
		return bmp.Encode(w, img)
	case "image/tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("no encoder for %s", mime)
	}
}
