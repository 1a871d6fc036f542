package dims

import (
	"fmt"
	"strings"
)

// HAnchor selects which horizontal edge of the source is kept when cropping.
type HAnchor int

const (
	Center HAnchor = iota
	Left
	Right
)

// VAnchor selects which vertical edge of the source is kept when cropping.
type VAnchor int

const (
	Middle VAnchor = iota
	Top
	Bottom
)

func (h HAnchor) String() string {
	switch h {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "center"
	}
}

func (v VAnchor) String() string {
	switch v {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return "center"
	}
}

type cropKind int

const (
	cropDisabled cropKind = iota
	cropCentered
	cropAnchored
)

// Crop is the crop mode of a resize request: disabled (fit inside the box),
// centered, or anchored to a pair of edges. The zero value is NoCrop.
type Crop struct {
	kind cropKind
	h    HAnchor
	v    VAnchor
}

// NoCrop scales the image to fit inside the target box.
var NoCrop = Crop{}

// Centered crops to fill the target box, keeping the center of the source.
func Centered() Crop {
	return Crop{kind: cropCentered}
}

// Anchored crops to fill the target box, keeping the given edges.
func Anchored(h HAnchor, v VAnchor) Crop {
	return Crop{kind: cropAnchored, h: h, v: v}
}

// Enabled reports whether the crop mode discards source pixels.
func (c Crop) Enabled() bool {
	return c.kind != cropDisabled
}

// Anchors returns the horizontal and vertical anchors. Centered and disabled
// crops report center/center.
func (c Crop) Anchors() (HAnchor, VAnchor) {
	if c.kind != cropAnchored {
		return Center, Middle
	}
	return c.h, c.v
}

func (c Crop) String() string {
	switch c.kind {
	case cropCentered:
		return "true"
	case cropAnchored:
		return c.h.String() + "," + c.v.String()
	default:
		return "false"
	}
}

// MarshalText implements encoding.TextMarshaler so crops read and write
// naturally in config files.
func (c Crop) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Crop) UnmarshalText(b []byte) error {
	parsed, err := ParseCrop(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCrop parses a crop mode. Accepted forms are boolean-like words
// ("false", "no", "0", "true", "yes", "1", "center") or an anchor pair
// such as "left,top" or "right bottom".
func ParseCrop(s string) (Crop, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "0", "f", "false", "n", "no", "off", "none":
		return NoCrop, nil
	case "1", "t", "true", "y", "yes", "on", "center", "centre":
		return Centered(), nil
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(parts) != 2 {
		return NoCrop, fmt.Errorf("invalid crop %q: want true, false or an anchor pair like left,top", s)
	}

	var h HAnchor
	switch parts[0] {
	case "left":
		h = Left
	case "center", "centre":
		h = Center
	case "right":
		h = Right
	default:
		return NoCrop, fmt.Errorf("invalid horizontal anchor %q", parts[0])
	}

	var v VAnchor
	switch parts[1] {
	case "top":
		v = Top
	case "center", "centre", "middle":
		v = Middle
	case "bottom":
		v = Bottom
	default:
		return NoCrop, fmt.Errorf("invalid vertical anchor %q", parts[1])
	}
	return Anchored(h, v), nil
}
