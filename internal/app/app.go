package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/pairs-server/internal/config"
	"github.com/vancomm/pairs-server/internal/database"
	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/middleware"
	"github.com/vancomm/pairs-server/internal/pairs"
	"github.com/vancomm/pairs-server/internal/repository"
)

const sweepInterval = time.Minute

type App struct {
	cfg     *config.Config
	logger  logrus.FieldLogger
	router  *http.ServeMux
	db      *pgxpool.Pool
	manager *games.Manager
	cookies *config.Cookies
	ws      *config.WebSocket
}

func New(cfg *config.Config, logger logrus.FieldLogger) *App {
	router := http.NewServeMux()

	app := &App{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	return app
}

// Setup connects to the database and loads keys when they are configured,
// then builds the game manager and routes. Without a database games live in
// memory only and accounts are disabled.
func (a *App) Setup(ctx context.Context) error {
	var store games.Store
	if a.cfg.Postgres.Enabled() {
		db, err := database.ConnectAndMigrate(ctx, a.cfg.Postgres)
		if err != nil {
			return fmt.Errorf("unable to connect to db: %w", err)
		}
		a.db = db
		store = repository.New(db)
	} else {
		a.logger.Warn("no database configured, games will not be persisted")
	}

	if a.cfg.Jwt.Enabled() {
		j, err := config.NewJWT(a.cfg.Jwt)
		if err != nil {
			return err
		}
		a.cookies = config.NewCookies(a.cfg.Cookies, j)
	}

	a.ws = config.NewWebSocket(a.cfg.Game.TickInterval.Duration)

	a.manager = games.NewManager(games.Options{
		Game:      a.cfg.Game,
		Store:     store,
		Logger:    a.logger.WithField("component", "games"),
		Rand:      createRand(),
		Generator: pairs.Generator{Alphabet: pairs.Emojis},
	})

	a.loadRoutes()
	return nil
}

func (a *App) Manager() *games.Manager {
	return a.manager
}

func (a *App) Handler() http.Handler {
	mws := []middleware.Middleware{}
	if a.cookies != nil {
		mws = append(mws, middleware.Auth(a.logger, a.cookies))
	}
	mws = append(mws,
		middleware.Cors(a.cfg.AllowedOrigins),
		middleware.Logging(a.logger),
	)
	return middleware.Wrap(a.router, mws...)
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// Start serves until ctx is done, then shuts the server down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: a.Handler(),
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	a.logger.Infof("ready to serve @ %s", a.cfg.Addr)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		sCtx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()
		return server.Shutdown(sCtx)
	})
	g.Go(func() error {
		return a.manager.RunSweeper(gCtx, sweepInterval)
	})

	return g.Wait()
}
