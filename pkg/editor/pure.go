package editor

import (
	"image"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/Fepozopo/subsize/pkg/dims"
	"github.com/Fepozopo/subsize/pkg/stdimg"
)

const (
	priorityImaging = 30
	priorityBild    = 20
	priorityStdimg  = 10
)

func init() {
	Register("imaging", priorityImaging, func(img image.Image) (Editor, error) {
		return &imagingEditor{base{img: stdimg.ToNRGBA(img)}}, nil
	})
	Register("bild", priorityBild, func(img image.Image) (Editor, error) {
		return &bildEditor{base{img: stdimg.ToNRGBA(img)}}, nil
	})
	Register("stdimg", priorityStdimg, func(img image.Image) (Editor, error) {
		return &stdimgEditor{src: stdimg.ToNRGBA(img)}, nil
	})
}

// imagingEditor resamples with github.com/disintegration/imaging.
type imagingEditor struct{ base }

func (e *imagingEditor) Resample(r dims.Result) (image.Image, error) {
	w, h := e.Size()
	if err := checkResult(r, w, h); err != nil {
		return nil, err
	}
	cropped := imaging.Crop(e.img, r.SrcRect())
	if cropped.Bounds().Dx() == r.DstW && cropped.Bounds().Dy() == r.DstH {
		return cropped, nil
	}
	return imaging.Resize(cropped, r.DstW, r.DstH, imaging.Lanczos), nil
}

// bildEditor resamples with github.com/anthonynsimon/bild.
type bildEditor struct{ base }

func (e *bildEditor) Resample(r dims.Result) (image.Image, error) {
	w, h := e.Size()
	if err := checkResult(r, w, h); err != nil {
		return nil, err
	}
	cropped := transform.Crop(e.img, r.SrcRect())
	if cropped.Bounds().Dx() == r.DstW && cropped.Bounds().Dy() == r.DstH {
		return cropped, nil
	}
	return transform.Resize(cropped, r.DstW, r.DstH, transform.Lanczos), nil
}

// stdimgEditor uses the built-in separable Lanczos engine.
type stdimgEditor struct {
	src *image.NRGBA
}

func (e *stdimgEditor) Size() (int, int) {
	return e.src.Bounds().Dx(), e.src.Bounds().Dy()
}

func (e *stdimgEditor) Resample(r dims.Result) (image.Image, error) {
	w, h := e.Size()
	if err := checkResult(r, w, h); err != nil {
		return nil, err
	}
	return stdimg.CropResample(e.src, r.SrcRect(), r.DstW, r.DstH, 3.0), nil
}

func (e *stdimgEditor) Close() error { return nil }
