package stdimg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ImageMeta is the subset of EXIF data recorded in attachment metadata.
type ImageMeta struct {
	Aperture         float64 `json:"aperture"`
	Credit           string  `json:"credit"`
	Camera           string  `json:"camera"`
	Caption          string  `json:"caption"`
	CreatedTimestamp int64   `json:"created_timestamp"`
	Copyright        string  `json:"copyright"`
	FocalLength      float64 `json:"focal_length"`
	ISO              int     `json:"iso"`
	ShutterSpeed     float64 `json:"shutter_speed"`
	Title            string  `json:"title"`
	Orientation      int     `json:"orientation"`
}

// IFD keys. ifdThumb is IFD1, the embedded thumbnail's directory, whose
// tags describe the thumbnail and never the main image.
const (
	ifdMain  = 0
	ifdExif  = 1
	ifdGPS   = 2
	ifdThumb = 3
)

var errNoEXIF = errors.New("no exif segment")

const (
	tagImageDescription = 0x010E
	tagModel            = 0x0110
	tagOrientation      = 0x0112
	tagArtist           = 0x013B
	tagCopyright        = 0x8298
	tagExposureTime     = 0x829A
	tagFNumber          = 0x829D
	tagExifIFD          = 0x8769
	tagGPSIFD           = 0x8825
	tagISO              = 0x8827
	tagDateTimeOriginal = 0x9003
	tagFocalLength      = 0x920A
)

// IsJPEG reports whether data starts with a JPEG SOI marker.
func IsJPEG(data []byte) bool {
	return len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF})
}

// JPEGOrientation returns the EXIF orientation (1..8) of JPEG data.
func JPEGOrientation(data []byte) (int, error) {
	tags, err := jpegTags(data)
	if err != nil {
		return 0, err
	}
	v, ok := tags[tagKey(ifdMain, tagOrientation)]
	if !ok {
		return 0, fmt.Errorf("orientation tag not found")
	}
	o, err := strconv.Atoi(firstValue(v))
	if err != nil || o < 1 || o > 8 {
		return 0, fmt.Errorf("invalid orientation %q", v)
	}
	return o, nil
}

// ReadImageMeta extracts ImageMeta from JPEG data. Images without EXIF
// return a zero ImageMeta and no error; a malformed EXIF block is an error.
func ReadImageMeta(data []byte) (ImageMeta, error) {
	var meta ImageMeta
	if !IsJPEG(data) {
		return meta, nil
	}
	tags, err := jpegTags(data)
	if errors.Is(err, errNoEXIF) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("reading exif: %w", err)
	}
	get := func(ifd int, tag uint16) string {
		return strings.TrimSpace(tags[tagKey(ifd, tag)])
	}

	meta.Camera = get(ifdMain, tagModel)
	meta.Credit = get(ifdMain, tagArtist)
	meta.Copyright = get(ifdMain, tagCopyright)
	if desc := get(ifdMain, tagImageDescription); desc != "" {
		// short descriptions are titles, long ones captions
		if len(desc) < 80 {
			meta.Title = desc
		} else {
			meta.Caption = desc
		}
	}
	if v := get(ifdMain, tagOrientation); v != "" {
		meta.Orientation, _ = strconv.Atoi(firstValue(v))
	}
	if v := get(ifdExif, tagFNumber); v != "" {
		if f, err := parseRational(v); err == nil {
			meta.Aperture = roundTo(f, 2)
		}
	}
	if v := get(ifdExif, tagExposureTime); v != "" {
		if f, err := parseRational(v); err == nil {
			meta.ShutterSpeed = f
		}
	}
	if v := get(ifdExif, tagFocalLength); v != "" {
		if f, err := parseRational(v); err == nil {
			meta.FocalLength = roundTo(f, 2)
		}
	}
	if v := get(ifdExif, tagISO); v != "" {
		meta.ISO, _ = strconv.Atoi(firstValue(v))
	}
	if v := get(ifdExif, tagDateTimeOriginal); v != "" {
		if ts, err := time.Parse("2006:01:02 15:04:05", v); err == nil {
			meta.CreatedTimestamp = ts.Unix()
		}
	}
	return meta, nil
}

func jpegTags(data []byte) (map[uint32]string, error) {
	if !IsJPEG(data) {
		return nil, fmt.Errorf("not a jpeg")
	}
	tiffStart, err := tiffStartFromJPEG(data)
	if err != nil {
		return nil, err
	}
	return readEXIFTags(data, tiffStart)
}

func tagKey(ifd int, tag uint16) uint32 {
	return (uint32(ifd) << 16) | uint32(tag)
}

func firstValue(v string) string {
	return strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
}

func roundTo(f float64, places int) float64 {
	p, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', places, 64), 64)
	return p
}

// tiffStartFromJPEG scans JPEG segments for an APP1 Exif block and returns
// the offset of the TIFF header inside data.
func tiffStartFromJPEG(data []byte) (int, error) {
	i := 2 // skip SOI
	for i+4 < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xDA { // start of scan
			break
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if marker == 0xE1 && segLen >= 8 && i+10 <= len(data) && string(data[i+4:i+10]) == "Exif\x00\x00" {
			return i + 10, nil
		}
		if segLen <= 2 {
			i += 2
		} else {
			i += 2 + segLen
		}
	}
	return -1, errNoEXIF
}

// readEXIFTags reads IFD0, its Exif and GPS sub-IFDs and IFD1 starting at
// tiffStart. Keys are tagKey(ifd, tag); values are comma-joined decimal
// numbers, "num/den" rationals or ASCII strings.
func readEXIFTags(data []byte, tiffStart int) (map[uint32]string, error) {
	res := map[uint32]string{}
	if tiffStart+8 > len(data) {
		return res, fmt.Errorf("tiff header truncated")
	}
	var order binary.ByteOrder
	switch string(data[tiffStart : tiffStart+2]) {
	case "MM":
		order = binary.BigEndian
	case "II":
		order = binary.LittleEndian
	default:
		return res, fmt.Errorf("unknown tiff byte order")
	}
	if order.Uint16(data[tiffStart+2:tiffStart+4]) != 0x002A {
		return res, fmt.Errorf("invalid tiff magic")
	}

	visited := map[int]bool{}
	var readIFD func(offset, ifd int)
	readIFD = func(offset, ifd int) {
		abs := tiffStart + offset
		if abs+2 > len(data) || visited[abs] {
			return
		}
		visited[abs] = true
		n := int(order.Uint16(data[abs : abs+2]))
		base := abs + 2
		for e := 0; e < n; e++ {
			ent := base + e*12
			if ent+12 > len(data) {
				break
			}
			tag := order.Uint16(data[ent : ent+2])
			typ := order.Uint16(data[ent+2 : ent+4])
			count := int(order.Uint32(data[ent+4 : ent+8]))
			valOff := data[ent+8 : ent+12]

			if tag == tagExifIFD || tag == tagGPSIFD {
				sub := int(order.Uint32(valOff))
				if sub > 0 && tiffStart+sub < len(data) {
					next := ifdExif
					if tag == tagGPSIFD {
						next = ifdGPS
					}
					readIFD(sub, next)
				}
				continue
			}

			var size int
			switch typ {
			case 1, 2, 7:
				size = 1
			case 3:
				size = 2
			case 4:
				size = 4
			case 5:
				size = 8
			default:
				continue
			}
			total := count * size
			if total <= 0 {
				continue
			}
			var raw []byte
			if total <= 4 {
				raw = valOff[:total]
			} else {
				off := int(order.Uint32(valOff))
				if off < 0 || tiffStart+off+total > len(data) {
					continue
				}
				raw = data[tiffStart+off : tiffStart+off+total]
			}
			if s := decodeValue(order, typ, count, raw); s != "" {
				res[tagKey(ifd, tag)] = s
			}
		}
		if ifd != ifdMain {
			return
		}
		last := base + n*12
		if last+4 <= len(data) {
			next := int(order.Uint32(data[last : last+4]))
			if next > 0 && tiffStart+next < len(data) {
				readIFD(next, ifdThumb)
			}
		}
	}

	off := int(order.Uint32(data[tiffStart+4 : tiffStart+8]))
	if off <= 0 || tiffStart+off >= len(data) {
		return res, nil
	}
	readIFD(off, ifdMain)
	return res, nil
}

func decodeValue(order binary.ByteOrder, typ uint16, count int, raw []byte) string {
	vals := make([]string, 0, count)
	switch typ {
	case 2:
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		return string(raw)
	case 1, 7:
		for _, b := range raw {
			vals = append(vals, strconv.Itoa(int(b)))
		}
	case 3:
		for i := 0; i+2 <= len(raw) && len(vals) < count; i += 2 {
			vals = append(vals, strconv.Itoa(int(order.Uint16(raw[i:i+2]))))
		}
	case 4:
		for i := 0; i+4 <= len(raw) && len(vals) < count; i += 4 {
			vals = append(vals, strconv.FormatUint(uint64(order.Uint32(raw[i:i+4])), 10))
		}
	case 5:
		for i := 0; i+8 <= len(raw) && len(vals) < count; i += 8 {
			num := order.Uint32(raw[i : i+4])
			den := order.Uint32(raw[i+4 : i+8])
			vals = append(vals, fmt.Sprintf("%d/%d", num, den))
		}
	}
	return strings.Join(vals, ",")
}

// parseRational parses a single "num/den" string.
func parseRational(s string) (float64, error) {
	parts := strings.SplitN(firstValue(s), "/", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid rational: %s", s)
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("zero denominator")
	}
	return num / den, nil
}
