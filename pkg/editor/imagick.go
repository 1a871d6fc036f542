//go:build imagick

package editor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"gopkg.in/gographics/imagick.v3/imagick"

	"github.com/Fepozopo/subsize/pkg/dims"
)

const priorityImagick = 50

func init() {
	imagick.Initialize()
	Register("imagick", priorityImagick, openImagick)
}

// imagickEditor resamples with ImageMagick's MagickWand API.
type imagickEditor struct {
	mw   *imagick.MagickWand
	w, h int
}

func openImagick(img image.Image) (Editor, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode source for imagick: %w", err)
	}
	mw := imagick.NewMagickWand()
	if err := mw.ReadImageBlob(buf.Bytes()); err != nil {
		mw.Destroy()
		return nil, fmt.Errorf("imagick read: %w", err)
	}
	return &imagickEditor{mw: mw, w: int(mw.GetImageWidth()), h: int(mw.GetImageHeight())}, nil
}

func (e *imagickEditor) Size() (int, int) { return e.w, e.h }

func (e *imagickEditor) Resample(r dims.Result) (image.Image, error) {
	if err := checkResult(r, e.w, e.h); err != nil {
		return nil, err
	}
	mw := e.mw.Clone()
	defer mw.Destroy()

	if r.SrcX != 0 || r.SrcY != 0 || r.SrcW != e.w || r.SrcH != e.h {
		if err := mw.CropImage(uint(r.SrcW), uint(r.SrcH), r.SrcX, r.SrcY); err != nil {
			return nil, fmt.Errorf("imagick crop: %w", err)
		}
		// drop the virtual canvas offset left by the crop
		if err := mw.SetImagePage(uint(r.SrcW), uint(r.SrcH), 0, 0); err != nil {
			return nil, fmt.Errorf("imagick repage: %w", err)
		}
	}
	if err := mw.ResizeImage(uint(r.DstW), uint(r.DstH), imagick.FILTER_LANCZOS); err != nil {
		return nil, fmt.Errorf("imagick resize: %w", err)
	}
	if err := mw.SetImageFormat("PNG"); err != nil {
		return nil, fmt.Errorf("imagick format: %w", err)
	}
	out, err := png.Decode(bytes.NewReader(mw.GetImageBlob()))
	if err != nil {
		return nil, fmt.Errorf("decode imagick output: %w", err)
	}
	return out, nil
}

func (e *imagickEditor) Close() error {
	if e.mw != nil {
		e.mw.Destroy()
		e.mw = nil
	}
	return nil
}
