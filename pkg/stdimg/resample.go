package stdimg

import (
	"image"
	"math"
)

// sinc helper
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	x = math.Pi * x
	return math.Sin(x) / x
}

// lanczosKernel returns lanczos weight for distance x with parameter a.
func lanczosKernel(x, a float64) float64 {
	x = math.Abs(x)
	if x < 1e-12 {
		return 1
	}
	if x >= a {
		return 0
	}
	return sinc(x) * sinc(x/a)
}

// weights holds the contributing source indices and normalised weights for
// one destination column or row.
type weights struct {
	start int
	w     []float64
}

// computeWeights precomputes the Lanczos window for scaling srcLen samples
// (starting at srcOff) to dstLen samples. When shrinking, the kernel is
// stretched by the scale factor so every source sample contributes.
func computeWeights(srcOff, srcLen, dstLen int, a float64) []weights {
	scale := float64(srcLen) / float64(dstLen)
	support := a
	stretch := 1.0
	if scale > 1 {
		support = a * scale
		stretch = scale
	}
	out := make([]weights, dstLen)
	for i := 0; i < dstLen; i++ {
		center := (float64(i)+0.5)*scale - 0.5
		lo := int(math.Floor(center - support + 1))
		hi := int(math.Ceil(center + support - 1))
		ws := make([]float64, 0, hi-lo+1)
		sum := 0.0
		for j := lo; j <= hi; j++ {
			w := lanczosKernel((float64(j)-center)/stretch, a)
			ws = append(ws, w)
			sum += w
		}
		if sum == 0 {
			sum = 1
		}
		for k := range ws {
			ws[k] /= sum
		}
		out[i] = weights{start: srcOff + lo, w: ws}
	}
	return out
}

// ResampleLanczos resamples src to dstW x dstH using a separable Lanczos
// filter with window a (commonly 3).
func ResampleLanczos(src *image.NRGBA, dstW, dstH int, a float64) *image.NRGBA {
	if src == nil {
		return nil
	}
	return CropResample(src, src.Bounds(), dstW, dstH, a)
}

// CropResample reads the rect region of src and scales it to dstW x dstH.
// rect is clipped to the source bounds. Samples outside rect are clamped to
// its edge so the crop does not bleed neighbouring pixels in.
func CropResample(src *image.NRGBA, rect image.Rectangle, dstW, dstH int, a float64) *image.NRGBA {
	if src == nil {
		return nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, max(dstW, 0), max(dstH, 0)))
	rect = rect.Intersect(src.Bounds())
	if dstW <= 0 || dstH <= 0 || rect.Empty() {
		return dst
	}
	srcW, srcH := rect.Dx(), rect.Dy()

	// horizontal pass: srcH rows x dstW columns, kept in float to avoid
	// rounding twice
	xw := computeWeights(rect.Min.X, srcW, dstW, a)
	tmp := make([]float64, srcH*dstW*4)
	for y := 0; y < srcH; y++ {
		sy := rect.Min.Y + y
		for x := 0; x < dstW; x++ {
			var r, g, b, al float64
			for k, w := range xw[x].w {
				sx := clampInt(xw[x].start+k, rect.Min.X, rect.Max.X-1)
				i := src.PixOffset(sx, sy)
				r += float64(src.Pix[i+0]) * w
				g += float64(src.Pix[i+1]) * w
				b += float64(src.Pix[i+2]) * w
				al += float64(src.Pix[i+3]) * w
			}
			o := (y*dstW + x) * 4
			tmp[o+0], tmp[o+1], tmp[o+2], tmp[o+3] = r, g, b, al
		}
	}

	// vertical pass
	yw := computeWeights(0, srcH, dstH, a)
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			var r, g, b, al float64
			for k, w := range yw[y].w {
				sy := clampInt(yw[y].start+k, 0, srcH-1)
				o := (sy*dstW + x) * 4
				r += tmp[o+0] * w
				g += tmp[o+1] * w
				b += tmp[o+2] * w
				al += tmp[o+3] * w
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = clampFloatToUint8(r)
			dst.Pix[i+1] = clampFloatToUint8(g)
			dst.Pix[i+2] = clampFloatToUint8(b)
			dst.Pix[i+3] = clampFloatToUint8(al)
		}
	}
	return dst
}

// clampFloatToUint8 rounds v into [0,255].
func clampFloatToUint8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
