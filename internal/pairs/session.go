package pairs

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultSettleDelay  = time.Second
	DefaultTickInterval = time.Second
)

type Status int

const (
	Idle Status = iota
	Running
	Won
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Won:
		return "won"
	default:
		return "unknown"
	}
}

// [Status] implements [encoding.TextMarshaler]
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "won":
		*s = Won
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

type Outcome int

const (
	NoOutcome Outcome = iota
	Match
	Mismatch
)

func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	default:
		return "none"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*o = NoOutcome
	case "match":
		*o = Match
	case "mismatch":
		*o = Mismatch
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

type Options struct {
	Clock        Clock
	SettleDelay  time.Duration
	TickInterval time.Duration
	// OnWin runs after the session turns Won, outside the session lock.
	OnWin func()
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = RealClock
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	return o
}

// FlipResult is what a single Flip call did.
type FlipResult struct {
	Tile       TileView `json:"tile"`
	Accepted   bool     `json:"accepted"`
	Outcome    Outcome  `json:"outcome"`
	Status     Status   `json:"status"`
	TotalFlips int      `json:"total_flips"`
}

type WinSummary struct {
	TotalFlips     int `json:"total_flips"`
	ElapsedSeconds int `json:"elapsed_seconds"`
}

// GameSession owns one board and the play state around it. All methods are
// safe to call from multiple goroutines; they are serialized with the
// session's timer callbacks.
type GameSession struct {
	mu sync.Mutex

	clock        Clock
	settleDelay  time.Duration
	tickInterval time.Duration
	onWin        func()

	board      *Board
	flipped    []int
	totalFlips int
	elapsed    int
	status     Status

	// generation is bumped on every reset. Callbacks scheduled under an
	// older generation do nothing.
	generation uint64
	ticker     Timer
	settle     Timer
}

func NewSession(board *Board, opts Options) *GameSession {
	opts = opts.withDefaults()
	return &GameSession{
		clock:        opts.Clock,
		settleDelay:  opts.SettleDelay,
		tickInterval: opts.TickInterval,
		onWin:        opts.OnWin,
		board:        board,
		flipped:      make([]int, 0, 2),
	}
}

// Start begins the elapsed-time counter. It does nothing unless the session
// is idle and has a board.
func (s *GameSession) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start()
}

func (s *GameSession) start() {
	if s.status != Idle || s.board == nil {
		return
	}
	s.status = Running
	s.scheduleTick(s.generation)
}

func (s *GameSession) scheduleTick(gen uint64) {
	s.ticker = s.clock.AfterFunc(s.tickInterval, func() { s.tick(gen) })
}

func (s *GameSession) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.status != Running {
		return
	}
	s.elapsed++
	s.scheduleTick(gen)
}

// Flip reveals a tile. Flips of matched or face-up tiles, flips while two
// tiles await the settle delay and flips after a win are ignored and not
// counted. Matching the last pair turns the session Won one settle delay
// later. Flip panics with an [AssertionError] if id is not on the board.
func (s *GameSession) Flip(id int) FlipResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.board == nil || !s.board.ValidTile(id) {
		panic(AssertionError{fmt.Sprintf("tile %d is not on the board", id)})
	}
	return s.flip(id)
}

// TryFlip is Flip for untrusted ids. It reports false, leaving the session
// untouched, if id is not on the current board.
func (s *GameSession) TryFlip(id int) (FlipResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.board == nil || !s.board.ValidTile(id) {
		return FlipResult{}, false
	}
	return s.flip(id), true
}

func (s *GameSession) flip(id int) FlipResult {
	tile := &s.board.Tiles[id]
	if s.status == Won || tile.Matched || tile.FaceUp || len(s.flipped) == 2 {
		return s.result(id, false, NoOutcome)
	}

	s.start()

	tile.FaceUp = true
	s.totalFlips++
	s.flipped = append(s.flipped, id)

	if len(s.flipped) < 2 {
		return s.result(id, true, NoOutcome)
	}

	a, b := s.flipped[0], s.flipped[1]
	gen := s.generation
	if s.board.Tiles[a].Symbol != s.board.Tiles[b].Symbol {
		s.settle = s.clock.AfterFunc(s.settleDelay, func() {
			s.flipBack(gen, a, b)
		})
		return s.result(id, true, Mismatch)
	}

	s.board.Tiles[a].Matched = true
	s.board.Tiles[b].Matched = true
	s.flipped = s.flipped[:0]

	if s.board.AllMatched() {
		s.settle = s.clock.AfterFunc(s.settleDelay, func() {
			s.finish(gen)
		})
	}

	return s.result(id, true, Match)
}

func (s *GameSession) flipBack(gen uint64, a, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	s.board.Tiles[a].FaceUp = false
	s.board.Tiles[b].FaceUp = false
	s.flipped = s.flipped[:0]
	s.settle = nil
}

func (s *GameSession) finish(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.status != Running {
		s.mu.Unlock()
		return
	}
	s.settle = nil
	s.win()
	onWin := s.onWin
	s.mu.Unlock()

	if onWin != nil {
		onWin()
	}
}

func (s *GameSession) win() {
	s.status = Won
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	Log.WithFields(logrus.Fields{
		"dimension": s.board.Dimension,
		"flips":     s.totalFlips,
		"seconds":   s.elapsed,
	}).Debug("game won")
}

// Reset cancels the timer and any pending settle, zeroes the counters and
// returns the session to [Idle] holding board, which may be nil. A board
// that was played before is turned face-down again.
func (s *GameSession) Reset(board *Board) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
	if board != nil {
		board.hideAll()
	}
	s.board = board
	s.flipped = s.flipped[:0]
	s.totalFlips = 0
	s.elapsed = 0
	s.status = Idle
}

func (s *GameSession) result(id int, accepted bool, outcome Outcome) FlipResult {
	return FlipResult{
		Tile:       s.board.Tiles[id].view(),
		Accepted:   accepted,
		Outcome:    outcome,
		Status:     s.status,
		TotalFlips: s.totalFlips,
	}
}

func (s *GameSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *GameSession) TotalFlips() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalFlips
}

func (s *GameSession) ElapsedSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Dimension returns 0 for a session without a board.
func (s *GameSession) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return 0
	}
	return s.board.Dimension
}

func (s *GameSession) ValidTile(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board != nil && s.board.ValidTile(id)
}

// FlippedTileIDs returns the face-up tiles that are not matched yet.
func (s *GameSession) FlippedTileIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, len(s.flipped))
	copy(ids, s.flipped)
	return ids
}

func (s *GameSession) Tile(id int) TileView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil || !s.board.ValidTile(id) {
		panic(AssertionError{fmt.Sprintf("tile %d is not on the board", id)})
	}
	return s.board.Tiles[id].view()
}

// Summary returns the final counters once the game is won.
func (s *GameSession) Summary() (WinSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Won {
		return WinSummary{}, false
	}
	return WinSummary{TotalFlips: s.totalFlips, ElapsedSeconds: s.elapsed}, true
}

func (s *GameSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:         s.status,
		TotalFlips:     s.totalFlips,
		ElapsedSeconds: s.elapsed,
		FlippedTileIDs: make([]int, len(s.flipped)),
	}
	copy(snap.FlippedTileIDs, s.flipped)
	if s.board != nil {
		snap.Dimension = s.board.Dimension
		snap.Tiles = make([]TileView, len(s.board.Tiles))
		for i, t := range s.board.Tiles {
			snap.Tiles[i] = t.view()
		}
	}
	return snap
}
