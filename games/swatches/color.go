/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package swatches

import (
	"errors"
	"fmt"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// NeutralHeader is the header background shown until the round is won.
const NeutralHeader = "steelblue"

var ErrInvalidColor = errors.New("invalid color")

// Color is a 24-bit RGB value in canonical "#RRGGBB" form.
type Color string

// ParseColor accepts "#rrggbb" in either case and returns its canonical form.
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	upper := strings.ToUpper(s)
	for i := 1; i < len(upper); i++ {
		if !strings.ContainsRune(hexDigits, rune(upper[i])) {
			return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
	}

	return Color(upper), nil
}

func (c Color) String() string {
	return string(c)
}

// Swatch is what a single cell displays: a palette color, or nothing at all
// once it has been guessed wrong.
type Swatch struct {
	color Color
	empty bool
}

// Empty is the marker shown in place of a wrongly picked swatch.
var Empty = Swatch{empty: true}

func colorSwatch(c Color) Swatch {
	return Swatch{color: c}
}

func (s Swatch) IsEmpty() bool {
	return s.empty
}

// Color returns the displayed color, and false for Empty.
func (s Swatch) Color() (Color, bool) {
	if s.empty {
		return "", false
	}
	return s.color, true
}

func (s Swatch) String() string {
	if s.empty {
		return "none"
	}
	return string(s.color)
}

func (s Swatch) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
