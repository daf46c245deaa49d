package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
	"github.com/urfave/cli/v3"

	"github.com/vancomm/pairs-server/internal/app"
	"github.com/vancomm/pairs-server/internal/config"
	"github.com/vancomm/pairs-server/internal/console"
	"github.com/vancomm/pairs-server/internal/database"
	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/mcpserver"
	"github.com/vancomm/pairs-server/internal/pairs"
)

var version = "dev"

var log = logrus.New()

func setupLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Development() && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	pairs.Log.SetLevel(level)

	var formatter logrus.Formatter = &logrus.JSONFormatter{}
	if cfg.Development() {
		formatter = &logrus.TextFormatter{ForceColors: true}
	}
	log.SetFormatter(formatter)
	pairs.Log.SetFormatter(formatter)

	if cfg.LogFile == "" {
		return nil
	}
	hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
		Filename:   cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     28,
		Level:      level,
		Formatter:  &logrus.JSONFormatter{},
	})
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	log.AddHook(hook)
	pairs.Log.AddHook(hook)
	return nil
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	log.Info("starting up, mode = ", cfg.Mode)
	log.WithFields(cfg.Fields()).Debug("config")
	return cfg, nil
}

func newManager(cfg *config.Config) *games.Manager {
	return games.NewManager(games.Options{
		Game:      cfg.Game,
		Logger:    log.WithField("component", "games"),
		Generator: pairs.Generator{Alphabet: pairs.Emojis},
	})
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return app.New(cfg, log).Start(ctx)
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Postgres.Enabled() {
		return errors.New("no database configured")
	}
	v, dirty, err := database.Migrate(cfg.Postgres)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"version": v, "dirty": dirty}).Info("migrations applied")
	return nil
}

func play(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("quiet") {
		log.SetLevel(logrus.WarnLevel)
		pairs.Log.SetLevel(logrus.WarnLevel)
	}

	manager := newManager(cfg)
	dimension, err := manager.Resolve(int(cmd.Int("dimension")), cmd.String("difficulty"))
	if err != nil {
		return err
	}
	game, err := manager.Create(ctx, dimension, nil)
	if err != nil {
		return err
	}

	c := &console.Console{
		In:      os.Stdin,
		Out:     os.Stdout,
		Manager: manager,
		Game:    game,
		Logger:  log,
	}
	return c.Run(ctx)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	manager := newManager(cfg)
	go manager.RunSweeper(ctx, time.Minute)

	return mcpserver.New(manager, log, version).ServeStdio()
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	root := &cli.Command{
		Name:    "pairs",
		Usage:   "memory pairs game server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				Sources: cli.EnvVars("PAIRS_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the HTTP and websocket API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
			{
				Name:  "play",
				Usage: "play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "difficulty",
						Usage: "difficulty name",
					},
					&cli.IntFlag{
						Name:  "dimension",
						Usage: "board side length, overrides difficulty",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "only log warnings",
						Value: true,
					},
				},
				Action: play,
			},
			{
				Name:   "mcp",
				Usage:  "serve MCP tools on stdio",
				Action: serveMCP,
			},
		},
	}

	if err := root.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
