package pairs

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBoard(dimension int, symbols ...Symbol) *Board {
	b := &Board{Dimension: dimension, Tiles: make([]Tile, len(symbols))}
	for i, s := range symbols {
		b.Tiles[i] = Tile{ID: i, Symbol: s}
	}
	return b
}

// a b / b a
func smallBoard() *Board {
	return fixedBoard(2, "a", "b", "b", "a")
}

func newTestSession(board *Board) (*GameSession, *ManualClock) {
	clock := NewManualClock()
	s := NewSession(board, Options{Clock: clock})
	return s, clock
}

func TestSinglePairWinsAfterSecondFlip(t *testing.T) {
	s, clock := newTestSession(fixedBoard(1, "z", "z"))

	res := s.Flip(0)
	assert.True(t, res.Accepted)
	assert.Equal(t, NoOutcome, res.Outcome)
	assert.True(t, res.Tile.FaceUp)
	assert.Equal(t, Symbol("z"), res.Tile.Symbol)
	assert.Equal(t, 1, s.TotalFlips())
	assert.Equal(t, Running, s.Status())

	res = s.Flip(1)
	assert.True(t, res.Accepted)
	assert.Equal(t, Match, res.Outcome)
	assert.Equal(t, Running, res.Status)
	assert.Equal(t, 2, res.TotalFlips)
	assert.True(t, s.Tile(0).Matched)
	assert.True(t, s.Tile(1).Matched)

	clock.Advance(DefaultSettleDelay)
	assert.Equal(t, Won, s.Status())

	summary, ok := s.Summary()
	assert.True(t, ok)
	assert.Equal(t, WinSummary{TotalFlips: 2, ElapsedSeconds: 1}, summary)
}

func TestFlipStartsTimer(t *testing.T) {
	s, clock := newTestSession(smallBoard())
	assert.Equal(t, Idle, s.Status())

	clock.Advance(5 * time.Second)
	assert.Equal(t, 0, s.ElapsedSeconds())

	s.Flip(0)
	assert.Equal(t, Running, s.Status())

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3, s.ElapsedSeconds())
}

func TestStartIsIdempotent(t *testing.T) {
	s, clock := newTestSession(smallBoard())

	s.Start()
	s.Start()
	assert.Equal(t, Running, s.Status())
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, s.ElapsedSeconds())
}

func TestStartWithoutBoard(t *testing.T) {
	s, clock := newTestSession(nil)
	s.Start()
	assert.Equal(t, Idle, s.Status())
	assert.Zero(t, clock.Pending())
	assert.Zero(t, s.Dimension())
	assert.False(t, s.ValidTile(0))
}

func TestMatchStaysFaceUp(t *testing.T) {
	s, clock := newTestSession(smallBoard())

	s.Flip(0)
	res := s.Flip(3)
	assert.Equal(t, Match, res.Outcome)
	assert.Empty(t, s.FlippedTileIDs())

	clock.Advance(10 * time.Second)
	for _, id := range []int{0, 3} {
		tile := s.Tile(id)
		assert.True(t, tile.FaceUp)
		assert.True(t, tile.Matched)
		assert.Equal(t, Symbol("a"), tile.Symbol)
	}
	assert.Equal(t, Running, s.Status())
}

func TestMismatchFlipsBackAfterSettle(t *testing.T) {
	s, clock := newTestSession(smallBoard())

	s.Flip(0)
	res := s.Flip(1)
	assert.True(t, res.Accepted)
	assert.Equal(t, Mismatch, res.Outcome)
	assert.ElementsMatch(t, []int{0, 1}, s.FlippedTileIDs())
	assert.True(t, s.Tile(0).FaceUp)
	assert.True(t, s.Tile(1).FaceUp)

	clock.Advance(999 * time.Millisecond)
	assert.True(t, s.Tile(1).FaceUp)

	clock.Advance(time.Millisecond)
	for _, id := range []int{0, 1} {
		tile := s.Tile(id)
		assert.False(t, tile.FaceUp)
		assert.False(t, tile.Matched)
		assert.Empty(t, tile.Symbol)
	}
	assert.Empty(t, s.FlippedTileIDs())
	assert.Equal(t, Running, s.Status())
	assert.Equal(t, 2, s.TotalFlips())
}

func TestFlipDuringSettleIsIgnored(t *testing.T) {
	s, clock := newTestSession(smallBoard())

	s.Flip(0)
	s.Flip(1)

	res := s.Flip(2)
	assert.False(t, res.Accepted)
	assert.False(t, res.Tile.FaceUp)
	assert.Empty(t, res.Tile.Symbol)
	assert.Equal(t, 2, s.TotalFlips())

	clock.Advance(time.Second)

	res = s.Flip(2)
	assert.True(t, res.Accepted)
	assert.Equal(t, 3, s.TotalFlips())
}

func TestIgnoredFlips(t *testing.T) {
	s, _ := newTestSession(smallBoard())

	s.Flip(0)
	res := s.Flip(0)
	assert.False(t, res.Accepted, "re-flip of the lone face-up tile")
	assert.Equal(t, 1, s.TotalFlips())

	s.Flip(3)
	res = s.Flip(3)
	assert.False(t, res.Accepted, "flip of a matched tile")
	assert.True(t, res.Tile.Matched)
	assert.Equal(t, 2, s.TotalFlips())
}

func TestFlipsAfterWinAreIgnored(t *testing.T) {
	s, clock := newTestSession(smallBoard())

	s.Flip(0)
	s.Flip(3)
	s.Flip(1)
	res := s.Flip(2)
	assert.Equal(t, Running, res.Status)
	assert.Equal(t, 4, s.TotalFlips())

	res = s.Flip(0)
	assert.False(t, res.Accepted, "every tile is matched while the win settles")

	clock.Advance(DefaultSettleDelay)
	for id := range 4 {
		res := s.Flip(id)
		assert.False(t, res.Accepted)
		assert.Equal(t, Won, res.Status)
	}
	assert.Equal(t, 4, s.TotalFlips())
	assert.Zero(t, clock.Pending())
}

func TestWinStopsTimer(t *testing.T) {
	s, clock := newTestSession(smallBoard())

	s.Flip(0)
	clock.Advance(2 * time.Second)
	s.Flip(1)
	clock.Advance(time.Second)
	s.Flip(0)
	s.Flip(3)
	clock.Advance(4 * time.Second)
	s.Flip(1)
	s.Flip(2)

	assert.Equal(t, Running, s.Status())
	assert.Equal(t, 7, s.ElapsedSeconds())

	// the tick due with the win still counts
	clock.Advance(DefaultSettleDelay)
	assert.Equal(t, Won, s.Status())
	assert.Equal(t, 8, s.ElapsedSeconds())

	clock.Advance(time.Minute)
	assert.Equal(t, 8, s.ElapsedSeconds())

	summary, ok := s.Summary()
	assert.True(t, ok)
	assert.Equal(t, WinSummary{TotalFlips: 6, ElapsedSeconds: 8}, summary)
}

func TestWinWaitsForSettleDelay(t *testing.T) {
	clock := NewManualClock()
	wins := 0
	s := NewSession(smallBoard(), Options{Clock: clock, OnWin: func() { wins++ }})

	s.Flip(0)
	s.Flip(3)
	s.Flip(1)
	s.Flip(2)

	assert.Equal(t, Running, s.Status())
	_, ok := s.Summary()
	assert.False(t, ok)

	clock.Advance(DefaultSettleDelay - time.Millisecond)
	assert.Equal(t, Running, s.Status())
	assert.Zero(t, wins)

	clock.Advance(time.Millisecond)
	assert.Equal(t, Won, s.Status())
	assert.Equal(t, 1, wins)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, wins)
}

func TestResetCancelsPendingWin(t *testing.T) {
	clock := NewManualClock()
	wins := 0
	s := NewSession(smallBoard(), Options{Clock: clock, OnWin: func() { wins++ }})

	s.Flip(0)
	s.Flip(3)
	s.Flip(1)
	s.Flip(2)
	clock.Advance(DefaultSettleDelay / 2)

	s.Reset(smallBoard())
	assert.Zero(t, clock.Pending())

	clock.Advance(time.Minute)
	assert.Equal(t, Idle, s.Status())
	assert.Zero(t, wins)
	_, ok := s.Summary()
	assert.False(t, ok)
}

func TestTryFlip(t *testing.T) {
	s, _ := newTestSession(smallBoard())

	for _, id := range []int{-1, 4} {
		_, ok := s.TryFlip(id)
		assert.False(t, ok, id)
	}
	assert.Equal(t, Idle, s.Status())
	assert.Zero(t, s.TotalFlips())

	res, ok := s.TryFlip(1)
	assert.True(t, ok)
	assert.True(t, res.Accepted)
	assert.Equal(t, Symbol("b"), res.Tile.Symbol)

	s.Reset(nil)
	_, ok = s.TryFlip(0)
	assert.False(t, ok)
}

func TestWonIffAllMatched(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	board, err := Generate(4, r)
	require.NoError(t, err)

	partner := make(map[int]int)
	for i, a := range board.Tiles {
		for j, b := range board.Tiles {
			if i != j && a.Symbol == b.Symbol {
				partner[i] = j
			}
		}
	}

	s, clock := newTestSession(board)
	done := make(map[int]bool)
	for i := range board.Tiles {
		if done[i] {
			continue
		}
		assert.NotEqual(t, Won, s.Status())
		_, ok := s.Summary()
		assert.False(t, ok)

		s.Flip(i)
		res := s.Flip(partner[i])
		assert.Equal(t, Match, res.Outcome)
		done[i], done[partner[i]] = true, true
	}

	assert.Equal(t, Running, s.Status())
	clock.Advance(DefaultSettleDelay)
	assert.Equal(t, Won, s.Status())
	assert.Equal(t, 16, s.TotalFlips())
	for _, tile := range s.Snapshot().Tiles {
		assert.True(t, tile.Matched)
	}
}

func TestFourByFourMismatchScenario(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	board, err := Generate(4, r)
	require.NoError(t, err)

	other := 1
	for board.Tiles[other].Symbol == board.Tiles[0].Symbol {
		other++
	}

	s, clock := newTestSession(board)
	s.Flip(0)
	res := s.Flip(other)
	assert.Equal(t, Mismatch, res.Outcome)

	clock.Advance(DefaultSettleDelay)
	assert.False(t, s.Tile(0).FaceUp)
	assert.False(t, s.Tile(other).FaceUp)
	assert.False(t, s.Tile(0).Matched)
	assert.False(t, s.Tile(other).Matched)
	assert.Equal(t, Running, s.Status())
}

func TestResetCancelsPendingCallbacks(t *testing.T) {
	s, clock := newTestSession(smallBoard())

	s.Flip(0)
	s.Flip(1)
	clock.Advance(500 * time.Millisecond)

	fresh := fixedBoard(2, "c", "c", "d", "d")
	s.Reset(fresh)

	assert.Equal(t, Idle, s.Status())
	assert.Zero(t, s.TotalFlips())
	assert.Zero(t, s.ElapsedSeconds())
	assert.Empty(t, s.FlippedTileIDs())
	assert.Zero(t, clock.Pending())

	s.Flip(0)
	clock.Advance(2 * time.Second)
	assert.True(t, s.Tile(0).FaceUp, "stale settle must not touch the new board")
	assert.Equal(t, 2, s.ElapsedSeconds())
}

func TestStaleCallbacksAreNoops(t *testing.T) {
	s, _ := newTestSession(smallBoard())

	s.Flip(0)
	s.Flip(1)
	gen := s.generation
	s.Reset(smallBoard())
	s.Flip(2)

	s.flipBack(gen, 0, 1)
	s.tick(gen)
	assert.Equal(t, []int{2}, s.FlippedTileIDs())
	assert.Zero(t, s.ElapsedSeconds())
}

func TestResetThenStart(t *testing.T) {
	board := smallBoard()
	s, clock := newTestSession(board)

	s.Flip(0)
	s.Flip(3)
	clock.Advance(3 * time.Second)

	s.Reset(board)
	s.Start()

	snap := s.Snapshot()
	assert.Equal(t, Running, snap.Status)
	assert.Zero(t, snap.TotalFlips)
	assert.Zero(t, snap.ElapsedSeconds)
	for _, tile := range snap.Tiles {
		assert.False(t, tile.FaceUp)
		assert.False(t, tile.Matched)
		assert.Empty(t, tile.Symbol)
	}
}

func TestResetToEmpty(t *testing.T) {
	s, _ := newTestSession(smallBoard())
	s.Flip(0)
	s.Reset(nil)

	snap := s.Snapshot()
	assert.Zero(t, snap.Dimension)
	assert.Empty(t, snap.Tiles)
	assert.Equal(t, Idle, snap.Status)
}

func TestFlipOutOfRangePanics(t *testing.T) {
	s, _ := newTestSession(smallBoard())

	assert.PanicsWithValue(t,
		AssertionError{"tile 4 is not on the board"},
		func() { s.Flip(4) },
	)
	assert.Panics(t, func() { s.Flip(-1) })
	assert.Panics(t, func() { s.Tile(9) })

	empty, _ := newTestSession(nil)
	assert.Panics(t, func() { empty.Flip(0) })
}

func TestSnapshotHidesFaceDownSymbols(t *testing.T) {
	s, _ := newTestSession(smallBoard())
	s.Flip(1)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Dimension)
	assert.Equal(t, []int{1}, snap.FlippedTileIDs)
	assert.Equal(t, TileView{ID: 1, FaceUp: true, Symbol: "b"}, snap.Tiles[1])
	for _, id := range []int{0, 2, 3} {
		assert.Empty(t, snap.Tiles[id].Symbol)
	}
}

func TestSnapshotBytes(t *testing.T) {
	s, _ := newTestSession(smallBoard())
	s.Flip(0)
	s.Flip(3)

	snap := s.Snapshot()
	b, err := snap.Bytes()
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, snap.Status, decoded.Status)
	assert.Equal(t, snap.Tiles, decoded.Tiles)
	assert.Equal(t, 2, decoded.TotalFlips)

	_, err = DecodeSnapshot([]byte("garbage"))
	assert.Error(t, err)
}

func TestStatusText(t *testing.T) {
	for _, st := range []Status{Idle, Running, Won} {
		text, err := st.MarshalText()
		require.NoError(t, err)

		var decoded Status
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, st, decoded)
	}

	var st Status
	assert.Error(t, st.UnmarshalText([]byte("lost")))
	assert.Equal(t, "unknown", Status(42).String())
}
