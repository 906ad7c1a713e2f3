package core

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Colour is an opaque RGB display colour.
type Colour struct {
	R, G, B uint8
}

var ErrInvalidColour = errors.New("invalid colour")

// FallbackPalette is the ordered pastel palette used when a category has no
// usable configured colour.
var FallbackPalette = []Colour{
	{0x35, 0xBB, 0xCA},
	{0xF8, 0xD9, 0x0F},
	{0xD3, 0xDD, 0x18},
	{0xFE, 0x7A, 0x15},
	{0x01, 0x91, 0xB4},
}

// ParseColour accepts "RRGGBB" or "#RRGGBB" in any letter case.
func ParseColour(s string) (Colour, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Colour{}, fmt.Errorf("%w: %q", ErrInvalidColour, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Colour{}, fmt.Errorf("%w: %q", ErrInvalidColour, s)
	}
	return Colour{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex renders the colour as "#RRGGBB".
func (c Colour) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// FallbackColour picks a palette entry from a stable FNV-1a hash of the name.
func FallbackColour(name string) Colour {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return FallbackPalette[h.Sum32()%uint32(len(FallbackPalette))]
}

// ColourResolver maps category names to display colours.
type ColourResolver struct {
	configured map[string]string
}

// NewColourResolver builds a resolver from the user's categories. Later
// entries win when names repeat, matching a map built in snapshot order.
func NewColourResolver(categories []Category) ColourResolver {
	m := make(map[string]string, len(categories))
	for _, c := range categories {
		if c.Name == "" || c.Colour == "" {
			continue
		}
		m[c.Name] = c.Colour
	}
	return ColourResolver{configured: m}
}

// ColourFor never fails: a missing or unparseable colour yields the
// deterministic fallback for the name.
func (r ColourResolver) ColourFor(name string) Colour {
	hex, ok := r.configured[name]
	if !ok {
		return FallbackColour(name)
	}
	c, err := ParseColour(hex)
	if errors.Is(err, ErrInvalidColour) {
		return FallbackColour(name)
	}
	return c
}
