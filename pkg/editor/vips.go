//go:build vips

package editor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/h2non/bimg"

	"github.com/Fepozopo/subsize/pkg/dims"
)

const priorityVips = 40

func init() {
	Register("vips", priorityVips, openVips)
}

// vipsEditor resamples with libvips through bimg.
type vipsEditor struct {
	buf  []byte
	w, h int
}

func openVips(img image.Image) (Editor, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode source for vips: %w", err)
	}
	size, err := bimg.NewImage(buf.Bytes()).Size()
	if err != nil {
		return nil, fmt.Errorf("vips size: %w", err)
	}
	return &vipsEditor{buf: buf.Bytes(), w: size.Width, h: size.Height}, nil
}

func (e *vipsEditor) Size() (int, int) { return e.w, e.h }

func (e *vipsEditor) Resample(r dims.Result) (image.Image, error) {
	if err := checkResult(r, e.w, e.h); err != nil {
		return nil, err
	}
	data := e.buf
	if r.SrcX != 0 || r.SrcY != 0 || r.SrcW != e.w || r.SrcH != e.h {
		cropped, err := bimg.NewImage(data).Extract(r.SrcY, r.SrcX, r.SrcW, r.SrcH)
		if err != nil {
			return nil, fmt.Errorf("vips extract: %w", err)
		}
		data = cropped
	}
	out, err := bimg.NewImage(data).Process(bimg.Options{
		Width:  r.DstW,
		Height: r.DstH,
		Force:  true,
		Type:   bimg.PNG,
	})
	if err != nil {
		return nil, fmt.Errorf("vips resize: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode vips output: %w", err)
	}
	return img, nil
}

func (e *vipsEditor) Close() error {
	e.buf = nil
	return nil
}
