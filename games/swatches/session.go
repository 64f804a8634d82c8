/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package swatches holds the color guessing game: a palette of random
// colors, one of which is the secret, and a session that turns picks into
// a won or wrong round.
//
// A Session is not safe for concurrent use. Callers are expected to feed it
// one event at a time and re-render from the View passed to subscribers.
package swatches

import (
	"errors"
	"fmt"
)

var ErrIndexOutOfRange = errors.New("swatch index out of range")

type Phase int

const (
	Start Phase = iota
	Won
	Wrong
)

func (p Phase) String() string {
	switch p {
	case Won:
		return "won"
	case Wrong:
		return "wrong"
	default:
		return "start"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// View is the projection of a session that a renderer needs.
type View struct {
	Swatches         []Swatch
	Phase            Phase
	Difficulty       int
	HeaderBackground string
	HeaderTitle      string
	Message          string
	NewGameText      string
}

type Option func(*Session)

// HideTitleUntilWon keeps the secret color out of the header title until
// the round is won.
func HideTitleUntilWon() Option {
	return func(s *Session) {
		s.hideTitle = true
	}
}

type subscriber struct {
	id int
	fn func(View)
}

type Session struct {
	gen *Generator

	palette    Palette
	swatches   []Swatch
	secret     int
	phase      Phase
	difficulty int

	hideTitle bool

	subs   []subscriber
	nextID int
}

// New creates a session and deals its first palette.
func New(gen *Generator, difficulty int, opts ...Option) (*Session, error) {
	s := &Session{gen: gen}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.StartNewGame(difficulty); err != nil {
		return nil, err
	}

	return s, nil
}

// StartNewGame replaces the palette and secret and resets the phase.
// On error the session is left untouched.
func (s *Session) StartNewGame(difficulty int) error {
	palette, err := s.gen.GeneratePalette(difficulty)
	if err != nil {
		return err
	}

	secret, err := s.gen.PickSecretIndex(difficulty)
	if err != nil {
		return err
	}

	swatches := make([]Swatch, len(palette))
	for i, c := range palette {
		swatches[i] = colorSwatch(c)
	}

	s.palette = palette
	s.swatches = swatches
	s.secret = secret
	s.difficulty = difficulty
	s.phase = Start

	s.notify()

	return nil
}

// Restart deals a new palette at the current difficulty.
func (s *Session) Restart() error {
	return s.StartNewGame(s.difficulty)
}

// SetDifficulty changes the palette size, which always starts a new round.
func (s *Session) SetDifficulty(difficulty int) error {
	if err := validateSize(difficulty); err != nil {
		return err
	}

	s.difficulty = difficulty

	return s.StartNewGame(difficulty)
}

// SelectSwatch applies a pick. Once won, picks are ignored until a new game;
// a wrong pick only empties the picked swatch and the round stays open.
func (s *Session) SelectSwatch(index int) error {
	if index < 0 || index >= len(s.swatches) {
		return fmt.Errorf("%w: %d (palette has %d swatches)", ErrIndexOutOfRange, index, len(s.swatches))
	}

	if s.phase == Won {
		return nil
	}

	if index == s.secret {
		s.phase = Won
		for i := range s.swatches {
			s.swatches[i] = colorSwatch(s.SecretColor())
		}
	} else {
		s.phase = Wrong
		s.swatches[index] = Empty
	}

	s.notify()

	return nil
}

// Subscribe registers fn to be called with the new view after every change.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn func(View)) func() {
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) notify() {
	if len(s.subs) == 0 {
		return
	}

	v := s.View()
	for _, sub := range append([]subscriber(nil), s.subs...) {
		sub.fn(v)
	}
}

func (s *Session) Palette() Palette {
	return append(Palette(nil), s.palette...)
}

func (s *Session) Swatches() []Swatch {
	return append([]Swatch(nil), s.swatches...)
}

func (s *Session) SecretIndex() int {
	return s.secret
}

func (s *Session) SecretColor() Color {
	return s.palette[s.secret]
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) Difficulty() int {
	return s.difficulty
}

func (s *Session) HeaderBackground() string {
	if s.phase == Won {
		return s.SecretColor().String()
	}
	return NeutralHeader
}

func (s *Session) HeaderTitle() string {
	if s.hideTitle && s.phase != Won {
		return ""
	}
	return s.SecretColor().String()
}

func (s *Session) Message() string {
	switch s.phase {
	case Won:
		return "Correct :)"
	case Wrong:
		return "Wrong :("
	default:
		return ""
	}
}

func (s *Session) NewGameText() string {
	if s.phase == Won {
		return "New game?"
	}
	return "New colors"
}

func (s *Session) View() View {
	return View{
		Swatches:         s.Swatches(),
		Phase:            s.phase,
		Difficulty:       s.difficulty,
		HeaderBackground: s.HeaderBackground(),
		HeaderTitle:      s.HeaderTitle(),
		Message:          s.Message(),
		NewGameText:      s.NewGameText(),
	}
}
