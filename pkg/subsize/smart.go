package subsize

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"

	"github.com/Fepozopo/subsize/pkg/dims"
)

// resizer implements the smartcrop resizer on top of imaging.
type resizer struct {
	filter imaging.ResampleFilter
}

func (r resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.filter)
}

// smartCrop moves the crop window of r onto the most interesting region of
// src. The window keeps its size; only SrcX and SrcY change.
func smartCrop(ctx context.Context, src image.Image, r dims.Result) (dims.Result, error) {
	if r.SrcW == src.Bounds().Dx() && r.SrcH == src.Bounds().Dy() {
		return r, nil
	}

	type cropResult struct {
		rect image.Rectangle
		err  error
	}
	ch := make(chan cropResult, 1)
	go func() {
		analyzer := smartcrop.NewAnalyzer(resizer{filter: imaging.Linear})
		rect, err := analyzer.FindBestCrop(src, r.DstW, r.DstH)
		ch <- cropResult{rect: rect, err: err}
	}()

	select {
	case <-ctx.Done():
		return r, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return r, fmt.Errorf("finding best crop: %w", res.err)
		}
		return recentre(r, res.rect.Sub(src.Bounds().Min), src.Bounds().Dx(), src.Bounds().Dy()), nil
	}
}

// recentre centres the crop window of r on focus and clamps it inside a
// w x h source.
func recentre(r dims.Result, focus image.Rectangle, w, h int) dims.Result {
	if focus.Empty() {
		return r
	}
	cx := (focus.Min.X + focus.Max.X) / 2
	cy := (focus.Min.Y + focus.Max.Y) / 2
	r.SrcX = clamp(cx-r.SrcW/2, 0, w-r.SrcW)
	r.SrcY = clamp(cy-r.SrcH/2, 0, h-r.SrcH)
	return r
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
