package swatches

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var canonical = regexp.MustCompile(`^#[0-9A-F]{6}$`)

// scripted replays fixed draws so tests can pin down palettes exactly.
type scripted struct {
	vals  []int
	drawn int
}

func (s *scripted) IntN(n int) int {
	if s.drawn >= len(s.vals) {
		panic("scripted source exhausted")
	}
	v := s.vals[s.drawn]
	s.drawn++
	if v >= n {
		panic("scripted value out of range")
	}
	return v
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func script(groups ...[]int) *scripted {
	s := &scripted{}
	for _, g := range groups {
		s.vals = append(s.vals, g...)
	}
	return s
}

// newFixedSession deals #AAAAAA, #BBBBBB, #CCCCCC with the secret at index 1.
func newFixedSession(t *testing.T, opts ...Option) *Session {
	t.Helper()

	src := script(repeat(10, 6), repeat(11, 6), repeat(12, 6), []int{1})
	s, err := New(NewGenerator(src), 3, opts...)
	require.NoError(t, err)
	require.Equal(t, Palette{"#AAAAAA", "#BBBBBB", "#CCCCCC"}, s.Palette())
	require.Equal(t, 1, s.SecretIndex())

	return s
}

func swatchStrings(sw []Swatch) []string {
	out := make([]string, len(sw))
	for i, s := range sw {
		out[i] = s.String()
	}
	return out
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "#aabbcc", want: "#AABBCC"},
		{in: "#0F0f0F", want: "#0F0F0F"},
		{in: "#123456", want: "#123456"},
		{in: "123456", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#GGGGGG", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseColor(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGeneratePaletteSizesAndUniqueness(t *testing.T) {
	gen := NewGenerator(NewSource(42))

	for n := 1; n <= 1000; n++ {
		p, err := gen.GeneratePalette(n)
		require.NoError(t, err)
		require.Len(t, p, n)

		seen := make(map[Color]bool, n)
		for _, c := range p {
			if !canonical.MatchString(string(c)) {
				t.Fatalf("non-canonical color %q in palette of %d", c, n)
			}
			if seen[c] {
				t.Fatalf("duplicate color %s in palette of %d", c, n)
			}
			seen[c] = true
		}
	}
}

func TestGeneratePaletteRedrawsDuplicates(t *testing.T) {
	src := script(repeat(10, 6), repeat(10, 6), repeat(0, 6))

	p, err := NewGenerator(src).GeneratePalette(2)
	require.NoError(t, err)
	assert.Equal(t, Palette{"#AAAAAA", "#000000"}, p)
	assert.Equal(t, 18, src.drawn)
}

func TestGeneratePaletteRejectsInvalidSize(t *testing.T) {
	src := script()
	gen := NewGenerator(src)

	for _, n := range []int{0, -1, MaxPaletteSize + 1} {
		_, err := gen.GeneratePalette(n)
		assert.ErrorIs(t, err, ErrInvalidDifficulty, "size %d", n)

		_, err = gen.PickSecretIndex(n)
		assert.ErrorIs(t, err, ErrInvalidDifficulty, "size %d", n)
	}
	assert.Zero(t, src.drawn)
}

func TestPickSecretIndexIsUniform(t *testing.T) {
	const (
		n      = 9
		trials = 90000
	)

	gen := NewGenerator(NewSource(7))
	counts := make([]int, n)
	for range trials {
		i, err := gen.PickSecretIndex(n)
		require.NoError(t, err)
		require.GreaterOrEqual(t, i, 0)
		require.Less(t, i, n)
		counts[i]++
	}

	want := trials / n
	for i, c := range counts {
		assert.InDelta(t, want, c, float64(want)/10, "bucket %d", i)
	}
}

func TestNewSourceIsDeterministic(t *testing.T) {
	a, err := NewGenerator(NewSource(99)).GeneratePalette(9)
	require.NoError(t, err)
	b, err := NewGenerator(NewSource(99)).GeneratePalette(9)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNewSessionStartsFresh(t *testing.T) {
	s, err := New(NewGenerator(NewRandomSource()), 9)
	require.NoError(t, err)

	assert.Equal(t, Start, s.Phase())
	assert.Equal(t, 9, s.Difficulty())
	assert.Len(t, s.Palette(), 9)
	assert.Equal(t, "", s.Message())
	assert.Equal(t, NeutralHeader, s.HeaderBackground())
	assert.Equal(t, "New colors", s.NewGameText())

	_, err = New(NewGenerator(NewRandomSource()), 0)
	assert.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestSelectSecretWins(t *testing.T) {
	s := newFixedSession(t)

	require.NoError(t, s.SelectSwatch(1))

	assert.Equal(t, Won, s.Phase())
	assert.Equal(t, []string{"#BBBBBB", "#BBBBBB", "#BBBBBB"}, swatchStrings(s.Swatches()))
	assert.Equal(t, "#BBBBBB", s.HeaderBackground())
	assert.Equal(t, "Correct :)", s.Message())
	assert.Equal(t, "New game?", s.NewGameText())
}

func TestSelectWrongEmptiesSwatch(t *testing.T) {
	s := newFixedSession(t)

	require.NoError(t, s.SelectSwatch(0))

	assert.Equal(t, Wrong, s.Phase())
	assert.Equal(t, []string{"none", "#BBBBBB", "#CCCCCC"}, swatchStrings(s.Swatches()))
	assert.True(t, s.Swatches()[0].IsEmpty())
	assert.Equal(t, NeutralHeader, s.HeaderBackground())
	assert.Equal(t, "Wrong :(", s.Message())
	assert.Equal(t, Palette{"#AAAAAA", "#BBBBBB", "#CCCCCC"}, s.Palette())
}

func TestPicksAfterWinAreIgnored(t *testing.T) {
	s := newFixedSession(t)
	require.NoError(t, s.SelectSwatch(1))

	before := s.View()
	require.NoError(t, s.SelectSwatch(0))

	assert.Equal(t, before, s.View())
}

func TestWrongThenRightWins(t *testing.T) {
	s := newFixedSession(t)
	require.NoError(t, s.SelectSwatch(0))
	require.NoError(t, s.SelectSwatch(2))
	assert.Equal(t, []string{"none", "#BBBBBB", "none"}, swatchStrings(s.Swatches()))

	require.NoError(t, s.SelectSwatch(1))

	assert.Equal(t, Won, s.Phase())
	assert.Equal(t, []string{"#BBBBBB", "#BBBBBB", "#BBBBBB"}, swatchStrings(s.Swatches()))
}

func TestSelectSwatchOutOfRange(t *testing.T) {
	s := newFixedSession(t)

	for _, i := range []int{-1, 3, 100} {
		assert.ErrorIs(t, s.SelectSwatch(i), ErrIndexOutOfRange, "index %d", i)
	}
	assert.Equal(t, Start, s.Phase())
}

func TestSetDifficultyDealsFreshRound(t *testing.T) {
	s, err := New(NewGenerator(NewSource(1)), 3)
	require.NoError(t, err)
	require.NoError(t, s.SelectSwatch((s.SecretIndex()+1)%3))
	require.Equal(t, Wrong, s.Phase())

	require.NoError(t, s.SetDifficulty(9))

	assert.Equal(t, Start, s.Phase())
	assert.Equal(t, 9, s.Difficulty())
	assert.Len(t, s.Palette(), 9)
	assert.GreaterOrEqual(t, s.SecretIndex(), 0)
	assert.Less(t, s.SecretIndex(), 9)
	for _, sw := range s.Swatches() {
		assert.False(t, sw.IsEmpty())
	}
}

func TestSetDifficultyRejectsInvalid(t *testing.T) {
	s := newFixedSession(t)
	before := s.View()

	assert.ErrorIs(t, s.SetDifficulty(0), ErrInvalidDifficulty)
	assert.ErrorIs(t, s.SetDifficulty(MaxPaletteSize+1), ErrInvalidDifficulty)
	assert.Equal(t, before, s.View())
}

func TestRestartKeepsDifficulty(t *testing.T) {
	s, err := New(NewGenerator(NewSource(3)), 9)
	require.NoError(t, err)
	require.NoError(t, s.SelectSwatch(s.SecretIndex()))

	first := s.Palette()
	require.NoError(t, s.Restart())

	assert.Equal(t, Start, s.Phase())
	assert.Len(t, s.Palette(), 9)
	assert.NotEqual(t, first, s.Palette())
}

func TestHeaderTitle(t *testing.T) {
	s := newFixedSession(t)
	assert.Equal(t, "#BBBBBB", s.HeaderTitle())

	hidden := newFixedSession(t, HideTitleUntilWon())
	assert.Equal(t, "", hidden.HeaderTitle())
	require.NoError(t, hidden.SelectSwatch(0))
	assert.Equal(t, "", hidden.HeaderTitle())
	require.NoError(t, hidden.SelectSwatch(1))
	assert.Equal(t, "#BBBBBB", hidden.HeaderTitle())
}

func TestSubscribe(t *testing.T) {
	s, err := New(NewGenerator(NewSource(5)), 3)
	require.NoError(t, err)

	var views []View
	cancel := s.Subscribe(func(v View) {
		views = append(views, v)
	})

	secret := s.SecretIndex()
	require.NoError(t, s.SelectSwatch((secret+1)%3))
	require.NoError(t, s.SelectSwatch(secret))
	require.NoError(t, s.SelectSwatch((secret+2)%3))
	require.Error(t, s.SelectSwatch(5))

	require.Len(t, views, 2)
	assert.Equal(t, Wrong, views[0].Phase)
	assert.Equal(t, Won, views[1].Phase)
	assert.Equal(t, "Correct :)", views[1].Message)

	require.NoError(t, s.SetDifficulty(9))
	require.Len(t, views, 3)
	assert.Equal(t, Start, views[2].Phase)
	assert.Len(t, views[2].Swatches, 9)

	cancel()
	require.NoError(t, s.Restart())
	assert.Len(t, views, 3)
}

func TestSwatchText(t *testing.T) {
	text, err := Empty.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "none", string(text))

	c, ok := colorSwatch("#ABCDEF").Color()
	assert.True(t, ok)
	assert.Equal(t, Color("#ABCDEF"), c)

	_, ok = Empty.Color()
	assert.False(t, ok)
}
