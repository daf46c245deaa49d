package pairs

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger = logrus.New()

type Tile struct {
	ID      int
	Symbol  Symbol
	FaceUp  bool
	Matched bool
}

// Board is a square grid of paired tiles. Its shape never changes after
// generation; only the FaceUp and Matched flags of its tiles do.
type Board struct {
	Dimension int
	Tiles     []Tile
}

// ValidateDimension reports whether a board of the given dimension can be
// generated at all, independent of the alphabet size.
func ValidateDimension(dimension int) error {
	if dimension <= 0 || dimension%2 != 0 {
		return fmt.Errorf(
			"%w: %d (must be a positive even number)",
			ErrInvalidDimension, dimension,
		)
	}
	return nil
}

// Generator produces boards from a fixed alphabet. The zero Alphabet means
// [Emojis].
type Generator struct {
	Alphabet []Symbol
}

// Generate builds a board with dimension*dimension tiles, each symbol used
// by exactly two of them, in a uniformly random order.
func (g Generator) Generate(dimension int, r *rand.Rand) (*Board, error) {
	if err := ValidateDimension(dimension); err != nil {
		return nil, err
	}

	alphabet := g.Alphabet
	if alphabet == nil {
		alphabet = Emojis
	}

	npairs := dimension * dimension / 2
	if npairs > len(alphabet) {
		return nil, fmt.Errorf(
			"%w: %d pairs requested, %d symbols available",
			ErrAlphabetExhausted, npairs, len(alphabet),
		)
	}

	picks := pickRandom(alphabet, npairs, r)
	symbols := make([]Symbol, 0, 2*npairs)
	symbols = append(symbols, picks...)
	symbols = append(symbols, picks...)
	shuffle(symbols, r)

	board := &Board{
		Dimension: dimension,
		Tiles:     make([]Tile, len(symbols)),
	}
	for i, s := range symbols {
		board.Tiles[i] = Tile{ID: i, Symbol: s}
	}

	Log.WithFields(logrus.Fields{
		"dimension": dimension,
		"pairs":     npairs,
	}).Debug("generated board")

	return board, nil
}

// Generate is [Generator.Generate] over the default alphabet.
func Generate(dimension int, r *rand.Rand) (*Board, error) {
	return Generator{}.Generate(dimension, r)
}

// pickRandom selects n distinct elements of src without replacement. src is
// left untouched.
func pickRandom(src []Symbol, n int, r *rand.Rand) []Symbol {
	pool := make([]Symbol, len(src))
	copy(pool, src)
	for i := range n {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n:n]
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(s []Symbol, r *rand.Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func (b *Board) Len() int {
	return len(b.Tiles)
}

func (b *Board) ValidTile(id int) bool {
	return 0 <= id && id < len(b.Tiles)
}

func (b *Board) AllMatched() bool {
	for _, t := range b.Tiles {
		if !t.Matched {
			return false
		}
	}
	return true
}

// MatchedPairs counts pairs already found.
func (b *Board) MatchedPairs() int {
	n := 0
	for _, t := range b.Tiles {
		if t.Matched {
			n++
		}
	}
	return n / 2
}

func (b *Board) hideAll() {
	for i := range b.Tiles {
		b.Tiles[i].FaceUp = false
		b.Tiles[i].Matched = false
	}
}
