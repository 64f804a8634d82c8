/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package swatches

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
)

// MaxPaletteSize is the number of distinct 24-bit colors. Larger palettes
// could never be filled.
const MaxPaletteSize = 1 << 24

var ErrInvalidDifficulty = errors.New("invalid difficulty")

// Source is a uniform random source. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSource returns a deterministic source for the given seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRandomSource returns a source seeded from crypto/rand.
func NewRandomSource() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return rand.New(rand.NewChaCha8(seed))
}

// Palette is an ordered set of unique colors.
type Palette []Color

// Generator draws palettes and secret indices from a single source.
type Generator struct {
	src Source
}

func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

func validateSize(size int) error {
	if size < 1 || size > MaxPaletteSize {
		return fmt.Errorf("%w: %d (must be between 1-%d inclusive)", ErrInvalidDifficulty, size, MaxPaletteSize)
	}
	return nil
}

func (g *Generator) randomColor() Color {
	buf := [7]byte{'#'}
	for i := 1; i < len(buf); i++ {
		buf[i] = hexDigits[g.src.IntN(len(hexDigits))]
	}
	return Color(buf[:])
}

// GeneratePalette returns size unique colors, redrawing on duplicates.
func (g *Generator) GeneratePalette(size int) (Palette, error) {
	if err := validateSize(size); err != nil {
		return nil, err
	}

	palette := make(Palette, 0, size)
	seen := make(map[Color]struct{}, size)

	for len(palette) < size {
		c := g.randomColor()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		palette = append(palette, c)
	}

	return palette, nil
}

// PickSecretIndex returns an index in [0, size).
func (g *Generator) PickSecretIndex(size int) (int, error) {
	if err := validateSize(size); err != nil {
		return 0, err
	}
	return g.src.IntN(size), nil
}
