package scoreboard

import (
	"math"
	"strconv"
	"strings"
)

// relativeLuminance implements the WCAG 2.1 luminance formula for an
// 8-bit sRGB color.
func relativeLuminance(r, g, b uint8) float64 {
	adjust := func(c uint8) float64 {
		v := float64(c) / 255.0
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*adjust(r) + 0.7152*adjust(g) + 0.0722*adjust(b)
}

// contrastColor picks black or white text for the given background,
// whichever has the higher WCAG contrast ratio. Invalid hex input gets
// white, matching the dark default backgrounds.
func contrastColor(hexColor string) string {
	s := strings.TrimPrefix(hexColor, "#")
	if len(s) != 6 {
		return "#FFFFFF"
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return "#FFFFFF"
	}
	r := uint8(n >> 16)
	g := uint8(n >> 8)
	b := uint8(n)

	lum := relativeLuminance(r, g, b)
	contrastWhite := (relativeLuminance(255, 255, 255) + 0.05) / (lum + 0.05)
	contrastBlack := (lum + 0.05) / (relativeLuminance(0, 0, 0) + 0.05)

	if contrastWhite > contrastBlack {
		return "#FFFFFF"
	}
	return "#000000"
}
