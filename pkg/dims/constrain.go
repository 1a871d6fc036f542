package dims

import "math"

// Constrain scales curW x curH down to fit inside maxW x maxH, preserving
// the aspect ratio. A zero max leaves that axis unconstrained; if both are
// zero the input is returned unchanged. Results are never smaller than 1.
//
// A result one pixel short of a max that caused the scaling is bumped up to
// the max, so constraining an already-constrained size is stable.
func Constrain(curW, curH, maxW, maxH int) (int, int) {
	if maxW <= 0 && maxH <= 0 {
		return curW, curH
	}

	widthRatio, heightRatio := 1.0, 1.0
	didWidth, didHeight := false, false

	if maxW > 0 && curW > 0 && curW > maxW {
		widthRatio = float64(maxW) / float64(curW)
		didWidth = true
	}
	if maxH > 0 && curH > 0 && curH > maxH {
		heightRatio = float64(maxH) / float64(curH)
		didHeight = true
	}

	smaller := math.Min(widthRatio, heightRatio)
	larger := math.Max(widthRatio, heightRatio)

	// A zero max compares as overflow, which selects the smaller ratio.
	ratio := larger
	if int(math.Round(float64(curW)*larger)) > maxW || int(math.Round(float64(curH)*larger)) > maxH {
		ratio = smaller
	}

	w := max(1, int(math.Round(float64(curW)*ratio)))
	h := max(1, int(math.Round(float64(curH)*ratio)))

	if didWidth && w == maxW-1 {
		w = maxW
	}
	if didHeight && h == maxH-1 {
		h = maxH
	}
	return w, h
}

// FuzzyMatch reports whether a and b differ by at most precision.
func FuzzyMatch(a, b, precision int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= precision
}

// MatchesRatio reports whether two sizes share an aspect ratio, allowing
// for the one pixel of rounding that scaling introduces.
func MatchesRatio(w1, h1, w2, h2 int) bool {
	if w1 <= 0 || h1 <= 0 || w2 <= 0 || h2 <= 0 {
		return false
	}
	if w1 <= w2 {
		w1, h1, w2, h2 = w2, h2, w1, h1
	}
	cw, ch := Constrain(w1, h1, w2, 0)
	return FuzzyMatch(cw, w2, 1) && FuzzyMatch(ch, h2, 1)
}
