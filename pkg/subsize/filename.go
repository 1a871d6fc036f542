package subsize

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const sidecarSuffix = ".meta.json"

// generatedRe matches the suffix Generate appends to derived file names.
// A match alone does not make a file generated; a sidecar must list it.
var generatedRe = regexp.MustCompile(`-(\d+x\d+|scaled|rotated)\.[A-Za-z0-9]+$`)

// stem returns path without its extension.
func stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// SizedName returns the path of a sub-size file: <base>-<W>x<H>.<ext>.
func SizedName(path string, w, h int, ext string) string {
	return fmt.Sprintf("%s-%dx%d.%s", stem(path), w, h, ext)
}

// ScaledName returns the path of the copy written when an image exceeds
// the big-image threshold.
func ScaledName(path, ext string) string {
	return stem(path) + "-scaled." + ext
}

// RotatedName returns the path of the upright copy of a rotated JPEG.
func RotatedName(path, ext string) string {
	return stem(path) + "-rotated." + ext
}

// SidecarName returns the path of the metadata file for a source image:
// the full file name plus .meta.json, so photo.jpg and photo.png keep
// separate records.
func SidecarName(path string) string {
	return path + sidecarSuffix
}

// siblingSidecars lists the sidecars in dir whose source file has the
// given stem, e.g. photo.jpg.meta.json and photo.png.meta.json for "photo".
func siblingSidecars(dir, base string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sidecarSuffix) {
			continue
		}
		if stem(strings.TrimSuffix(name, sidecarSuffix)) == base {
			out = append(out, filepath.Join(dir, name))
		}
	}
	return out
}

// claimedFiles returns the files listed by the sidecars of dir/base.*,
// skipping the sidecar named own.
func claimedFiles(dir, base, own string) map[string]string {
	claimed := map[string]string{}
	for _, sc := range siblingSidecars(dir, base) {
		if sc == own {
			continue
		}
		md, err := ReadMetadata(sc)
		if err != nil {
			continue
		}
		for _, f := range md.Files() {
			claimed[f] = sc
		}
	}
	return claimed
}

// IsGenerated reports whether path is a file written by Generate: a
// metadata sidecar, or a derived image listed in the sidecar of its
// source. A user file that merely ends in -WxH, -scaled or -rotated is
// not generated.
func IsGenerated(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, sidecarSuffix) {
		return true
	}
	loc := generatedRe.FindStringIndex(base)
	if loc == nil {
		return false
	}
	_, ok := claimedFiles(filepath.Dir(path), base[:loc[0]], "")[base]
	return ok
}
