package games

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/pairs-server/internal/config"
	"github.com/vancomm/pairs-server/internal/pairs"
	"github.com/vancomm/pairs-server/internal/repository"
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrForbidden         = errors.New("game belongs to another player")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrInvalidTile       = errors.New("invalid tile")
)

// Store persists game snapshots. [*repository.Queries] implements it.
type Store interface {
	CreateGameSession(ctx context.Context, params repository.CreateGameSessionParams) (*repository.GameSession, error)
	FetchGameSession(ctx context.Context, gameSessionID string) (*repository.GameSession, error)
	UpdateGameSession(ctx context.Context, gameSessionID string, params repository.UpdateGameSessionParams) (*repository.GameSession, error)
}

type Game struct {
	ID        string
	OwnerID   *int64
	Session   *pairs.GameSession
	CreatedAt time.Time

	// op serializes moves, storage writes and eviction.
	op      sync.Mutex
	evicted atomic.Bool

	mu         sync.Mutex
	startedAt  *time.Time
	endedAt    *time.Time
	lastAccess time.Time
}

// Evicted reports whether the game was dropped from memory. An evicted game
// can no longer be played.
func (g *Game) Evicted() bool {
	return g.evicted.Load()
}

func (g *Game) Times() (startedAt, endedAt *time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.startedAt, g.endedAt
}

// View is a game as seen by a renderer. Archived views come from storage
// and can no longer be played.
type View struct {
	ID        string
	OwnerID   *int64
	Snapshot  pairs.Snapshot
	StartedAt *time.Time
	EndedAt   *time.Time
	Archived  bool
}

type Options struct {
	Game   config.GameConfig
	Store  Store
	Logger logrus.FieldLogger
	Rand   *rand.Rand
	// Clock overrides the real clock for every session created.
	Clock     pairs.Clock
	Generator pairs.Generator
	Now       func() time.Time
}

type Manager struct {
	cfg       config.GameConfig
	store     Store
	logger    logrus.FieldLogger
	generator pairs.Generator
	session   pairs.Options
	now       func() time.Time

	mu    sync.RWMutex
	rnd   *rand.Rand
	games map[string]*Game
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		cfg:       opts.Game,
		store:     opts.Store,
		logger:    opts.Logger,
		generator: opts.Generator,
		session: pairs.Options{
			Clock:        opts.Clock,
			SettleDelay:  opts.Game.SettleDelay.Duration,
			TickInterval: opts.Game.TickInterval.Duration,
		},
		now:   opts.Now,
		rnd:   opts.Rand,
		games: make(map[string]*Game),
	}
}

// Persistent reports whether games outlive the process.
func (m *Manager) Persistent() bool {
	return m.store != nil
}

// Resolve picks a board dimension. An explicit dimension wins over a
// difficulty name; neither means the default difficulty.
func (m *Manager) Resolve(dimension int, difficulty string) (int, error) {
	if dimension != 0 {
		if err := pairs.ValidateDimension(dimension); err != nil {
			return 0, err
		}
		return dimension, nil
	}
	dimension, ok := m.cfg.Dimension(difficulty)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDifficulty, difficulty)
	}
	return dimension, nil
}

func (m *Manager) Difficulties() map[string]int {
	out := make(map[string]int, len(m.cfg.Difficulties))
	for name, dimension := range m.cfg.Difficulties {
		out[name] = dimension
	}
	return out
}

// DifficultyNames lists difficulties ordered by dimension.
func (m *Manager) DifficultyNames() []string {
	return m.cfg.DifficultyNames()
}

func (m *Manager) DefaultDifficulty() string {
	return m.cfg.DefaultDifficulty
}

func (m *Manager) generate(dimension int) (*pairs.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generator.Generate(dimension, m.rnd)
}

// Create generates a board and registers a new idle game. owner is nil for
// anonymous games.
func (m *Manager) Create(ctx context.Context, dimension int, owner *int64) (*Game, error) {
	board, err := m.generate(dimension)
	if err != nil {
		return nil, err
	}

	now := m.now()
	game := &Game{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		CreatedAt:  now,
		lastAccess: now,
	}
	opts := m.session
	opts.OnWin = func() { m.won(game) }
	game.Session = pairs.NewSession(board, opts)

	if m.store != nil {
		state, err := game.Session.Snapshot().Bytes()
		if err != nil {
			return nil, fmt.Errorf("unable to encode game state: %w", err)
		}
		_, err = m.store.CreateGameSession(ctx, repository.CreateGameSessionParams{
			GameSessionID: game.ID,
			PlayerID:      owner,
			Dimension:     int32(dimension),
			Status:        pairs.Idle.String(),
			State:         state,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to store game session: %w", err)
		}
	}

	m.mu.Lock()
	m.games[game.ID] = game
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"game":      game.ID,
		"dimension": dimension,
		"owned":     owner != nil,
	}).Debug("created game")

	return game, nil
}

// Get returns a live game.
func (m *Manager) Get(id string) (*Game, error) {
	m.mu.RLock()
	game, ok := m.games[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrGameNotFound
	}
	game.mu.Lock()
	game.lastAccess = m.now()
	game.mu.Unlock()
	return game, nil
}

// Authorize checks that playerID may act on game. Anonymous games are open
// to anyone holding their id.
func Authorize(game *Game, playerID *int64) error {
	return AuthorizeOwner(game.OwnerID, playerID)
}

func AuthorizeOwner(ownerID, playerID *int64) error {
	if ownerID == nil {
		return nil
	}
	if playerID == nil || *playerID != *ownerID {
		return ErrForbidden
	}
	return nil
}

func (m *Manager) View(game *Game) View {
	startedAt, endedAt := game.Times()
	return View{
		ID:        game.ID,
		OwnerID:   game.OwnerID,
		Snapshot:  game.Session.Snapshot(),
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}
}

// Fetch returns a live game's view, falling back to storage for games no
// longer held in memory.
func (m *Manager) Fetch(ctx context.Context, id string) (*View, error) {
	if game, err := m.Get(id); err == nil {
		view := m.View(game)
		return &view, nil
	}
	if m.store == nil {
		return nil, ErrGameNotFound
	}

	row, err := m.store.FetchGameSession(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to fetch game session: %w", err)
	}

	snap, err := pairs.DecodeSnapshot(row.State)
	if err != nil {
		return nil, fmt.Errorf("stored game session %s has invalid state: %w", id, err)
	}
	return &View{
		ID:        row.GameSessionID,
		OwnerID:   row.PlayerID,
		Snapshot:  *snap,
		StartedAt: row.StartedAt,
		EndedAt:   row.EndedAt,
		Archived:  true,
	}, nil
}

func (m *Manager) Start(ctx context.Context, game *Game) error {
	game.op.Lock()
	defer game.op.Unlock()
	if game.Evicted() {
		return ErrGameNotFound
	}

	game.Session.Start()
	return m.sync(ctx, game, false)
}

func (m *Manager) Flip(ctx context.Context, game *Game, tile int) (pairs.FlipResult, error) {
	game.op.Lock()
	defer game.op.Unlock()
	if game.Evicted() {
		return pairs.FlipResult{}, ErrGameNotFound
	}

	res, ok := game.Session.TryFlip(tile)
	if !ok {
		return res, fmt.Errorf("%w: %d", ErrInvalidTile, tile)
	}
	if !res.Accepted {
		return res, nil
	}
	return res, m.sync(ctx, game, false)
}

// Reset deals a fresh board, keeping the current dimension when dimension
// is 0.
func (m *Manager) Reset(ctx context.Context, game *Game, dimension int) error {
	game.op.Lock()
	defer game.op.Unlock()
	if game.Evicted() {
		return ErrGameNotFound
	}

	if err := m.reset(game, dimension); err != nil {
		return err
	}
	return m.sync(ctx, game, true)
}

func (m *Manager) reset(game *Game, dimension int) error {
	if dimension == 0 {
		dimension = game.Session.Dimension()
	}
	if dimension == 0 {
		var err error
		if dimension, err = m.Resolve(0, ""); err != nil {
			return err
		}
	}
	board, err := m.generate(dimension)
	if err != nil {
		return err
	}

	game.Session.Reset(board)

	game.mu.Lock()
	game.startedAt, game.endedAt = nil, nil
	game.mu.Unlock()
	return nil
}

// Execute runs a batch of commands and stores the result once. Commands
// after a win still run: flips and starts do nothing on a won game while a
// reset deals a new board.
func (m *Manager) Execute(ctx context.Context, game *Game, cmds []Command) error {
	game.op.Lock()
	defer game.op.Unlock()
	if game.Evicted() {
		return ErrGameNotFound
	}

	reset := false
	for i, cmd := range cmds {
		switch cmd.Op {
		case OpGet:
		case OpStart:
			game.Session.Start()
		case OpFlip:
			if _, ok := game.Session.TryFlip(cmd.Arg); !ok {
				return &CommandError{Line: i + 1, Err: fmt.Errorf("%w: %d", ErrInvalidTile, cmd.Arg)}
			}
		case OpReset:
			if err := m.reset(game, cmd.Arg); err != nil {
				return &CommandError{Line: i + 1, Err: err}
			}
			reset = true
		default:
			return &CommandError{Line: i + 1, Err: fmt.Errorf("unknown command %q", cmd.Op)}
		}
	}
	return m.sync(ctx, game, reset)
}

// won stores a game whose last pair just settled.
func (m *Manager) won(game *Game) {
	game.op.Lock()
	defer game.op.Unlock()
	if game.Evicted() {
		return
	}
	if err := m.sync(context.Background(), game, false); err != nil {
		m.logger.WithError(err).WithField("game", game.ID).Warn("unable to store won game")
	}
}

// sync records start and end times and writes the snapshot to the store.
// The caller holds game.op.
func (m *Manager) sync(ctx context.Context, game *Game, reset bool) error {
	snap := game.Session.Snapshot()
	now := m.now()

	game.mu.Lock()
	game.lastAccess = now
	if snap.Status != pairs.Idle && game.startedAt == nil {
		game.startedAt = &now
	}
	if snap.Status == pairs.Won && game.endedAt == nil {
		game.endedAt = &now
		m.logger.WithFields(logrus.Fields{
			"game":    game.ID,
			"flips":   snap.TotalFlips,
			"seconds": snap.ElapsedSeconds,
		}).Info("game won")
	}
	startedAt, endedAt := game.startedAt, game.endedAt
	game.mu.Unlock()

	if m.store == nil {
		return nil
	}

	state, err := snap.Bytes()
	if err != nil {
		return fmt.Errorf("unable to encode game state: %w", err)
	}
	status := snap.Status.String()
	dimension := int32(snap.Dimension)
	flips := int32(snap.TotalFlips)
	elapsed := int32(snap.ElapsedSeconds)

	_, err = m.store.UpdateGameSession(ctx, game.ID, repository.UpdateGameSessionParams{
		Dimension:      &dimension,
		Status:         &status,
		TotalFlips:     &flips,
		ElapsedSeconds: &elapsed,
		State:          &state,
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		ClearTimes:     reset,
	})
	if err != nil {
		return fmt.Errorf("unable to update game session: %w", err)
	}
	return nil
}

// Sweep drops games untouched for longer than the configured idle TTL and
// stops their timers. Evicted games refuse further moves; stored ones stay
// fetchable.
func (m *Manager) Sweep(ctx context.Context) int {
	ttl := m.cfg.IdleTTL.Duration
	if ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-ttl)

	var stale []*Game
	m.mu.Lock()
	for id, game := range m.games {
		game.mu.Lock()
		idle := game.lastAccess.Before(cutoff)
		game.mu.Unlock()
		if idle {
			stale = append(stale, game)
			delete(m.games, id)
		}
	}
	m.mu.Unlock()

	for _, game := range stale {
		game.op.Lock()
		game.evicted.Store(true)
		if err := m.sync(ctx, game, false); err != nil {
			m.logger.WithError(err).WithField("game", game.ID).Warn("unable to store evicted game")
		}
		game.Session.Reset(nil)
		game.op.Unlock()
	}
	if len(stale) > 0 {
		m.logger.WithField("count", len(stale)).Debug("evicted idle games")
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}
