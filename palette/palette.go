// Package palette holds the foreground colors a program can be drawn in
package palette

import "strings"

// Color is a 0xRRGGBB value
type Color uint32

const (
	Purple Color = 0xaf12e8
	Green  Color = 0x008000
	Blue   Color = 0x0000ff
	Red    Color = 0xff0000

	Background Color = 0x000000

	Default = Purple
)

var byName = map[string]Color{
	"purple": Purple,
	"green":  Green,
	"blue":   Blue,
	"red":    Red,
}

// Parse returns the named color. Unknown names fall back to Default.
func Parse(name string) Color {
	c, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Default
	}

	return c
}

// Known reports whether name is one of the supported colors
func Known(name string) bool {
	_, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}
