// Package dims computes the geometry of image resizes: which rectangle of
// the source to read and how large the destination canvas is. It performs
// no I/O and is safe for concurrent use.
package dims

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// NoOp sentinels. A resize that returns one of these should be skipped and
// the original image used instead.
var (
	ErrInvalid   = errors.New("invalid dimensions")
	ErrEnlarge   = errors.New("target is larger than the source")
	ErrIdentical = errors.New("target matches the source dimensions")
)

// IsNoOp reports whether err is one of the resize NoOp sentinels.
func IsNoOp(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrEnlarge) || errors.Is(err, ErrIdentical)
}

// Result holds the arguments for a crop-then-resample call. Fields follow
// the usual resampler order: destination origin, source origin,
// destination size, source size.
type Result struct {
	DstX, DstY int
	SrcX, SrcY int
	DstW, DstH int
	SrcW, SrcH int
}

// Array returns the result as an 8-tuple in field order.
func (r Result) Array() [8]int {
	return [8]int{r.DstX, r.DstY, r.SrcX, r.SrcY, r.DstW, r.DstH, r.SrcW, r.SrcH}
}

// SrcRect is the region of the source image to read.
func (r Result) SrcRect() image.Rectangle {
	return image.Rect(r.SrcX, r.SrcY, r.SrcX+r.SrcW, r.SrcY+r.SrcH)
}

// DstRect is the region of the destination canvas to write.
func (r Result) DstRect() image.Rectangle {
	return image.Rect(r.DstX, r.DstY, r.DstX+r.DstW, r.DstY+r.DstH)
}

func (r Result) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d, %d, %d, %d, %d)",
		r.DstX, r.DstY, r.SrcX, r.SrcY, r.DstW, r.DstH, r.SrcW, r.SrcH)
}

// Options tune Resize.
type Options struct {
	// ForceIdentical returns a pass-through result instead of ErrIdentical
	// when the target matches the source size.
	ForceIdentical bool
}

// Resize computes the crop and destination rectangles for resizing a
// srcW x srcH image into a dstW x dstH box. A zero target dimension leaves
// that axis unconstrained.
//
// Without crop the image is scaled to fit inside the box and the whole
// source is read. With crop the largest source region that has the target
// aspect ratio is selected according to the crop anchors.
//
// Resize never enlarges. It returns ErrInvalid, ErrEnlarge or ErrIdentical
// when there is nothing to do.
func Resize(srcW, srcH, dstW, dstH int, crop Crop, opts Options) (Result, error) {
	if srcW <= 0 || srcH <= 0 {
		return Result{}, fmt.Errorf("source %dx%d: %w", srcW, srcH, ErrInvalid)
	}
	if dstW <= 0 && dstH <= 0 {
		return Result{}, fmt.Errorf("target %dx%d: %w", dstW, dstH, ErrInvalid)
	}
	if dstW < 0 {
		dstW = 0
	}
	if dstH < 0 {
		dstH = 0
	}

	switch {
	case dstH == 0:
		if srcW < dstW {
			return Result{}, ErrEnlarge
		}
	case dstW == 0:
		if srcH < dstH {
			return Result{}, ErrEnlarge
		}
	default:
		if srcW < dstW && srcH < dstH {
			return Result{}, ErrEnlarge
		}
	}

	var newW, newH, cropW, cropH, srcX, srcY int
	if crop.Enabled() {
		aspect := float64(srcW) / float64(srcH)
		newW = min(dstW, srcW)
		newH = min(dstH, srcH)
		if newW == 0 {
			newW = max(1, int(math.Round(float64(newH)*aspect)))
		}
		if newH == 0 {
			newH = max(1, int(math.Round(float64(newW)/aspect)))
		}

		ratio := math.Max(float64(newW)/float64(srcW), float64(newH)/float64(srcH))
		cropW = int(math.Round(float64(newW) / ratio))
		cropH = int(math.Round(float64(newH) / ratio))

		h, v := crop.Anchors()
		switch h {
		case Left:
			srcX = 0
		case Right:
			srcX = srcW - cropW
		default:
			srcX = int(math.Floor(float64(srcW-cropW) / 2))
		}
		switch v {
		case Top:
			srcY = 0
		case Bottom:
			srcY = srcH - cropH
		default:
			srcY = int(math.Floor(float64(srcH-cropH) / 2))
		}
	} else {
		cropW, cropH = srcW, srcH
		newW, newH = Constrain(srcW, srcH, dstW, dstH)
	}

	if FuzzyMatch(newW, srcW, 1) && FuzzyMatch(newH, srcH, 1) && !opts.ForceIdentical {
		return Result{}, ErrIdentical
	}

	return Result{
		SrcX: srcX,
		SrcY: srcY,
		DstW: newW,
		DstH: newH,
		SrcW: cropW,
		SrcH: cropH,
	}, nil
}
