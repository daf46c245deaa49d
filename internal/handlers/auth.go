package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vancomm/pairs-server/internal/config"
	"github.com/vancomm/pairs-server/internal/middleware"
	"github.com/vancomm/pairs-server/internal/repository"
)

// PlayerStore is implemented by [*repository.Queries].
type PlayerStore interface {
	CreatePlayer(ctx context.Context, params repository.CreatePlayerParams) (*repository.Player, error)
	FetchPlayer(ctx context.Context, username string) (*repository.Player, error)
}

type Auth struct {
	logger     logrus.FieldLogger
	players    PlayerStore
	cookies    *config.Cookies
	bcryptCost int
}

func NewAuth(
	logger logrus.FieldLogger,
	players PlayerStore,
	cookies *config.Cookies,
) *Auth {
	auth := &Auth{
		logger:     logger,
		players:    players,
		cookies:    cookies,
		bcryptCost: bcrypt.DefaultCost,
	}

	return auth
}

type PlayerInfo struct {
	PlayerId int64  `json:"player_id"`
	Username string `json:"username"`
}

type Status struct {
	LoggedIn bool        `json:"logged_in"`
	Player   *PlayerInfo `json:"player,omitempty"`
}

var (
	ErrBadAuthBody        = fmt.Errorf("request body must contain url-encoded username and password")
	ErrBadPasswordTooLong = fmt.Errorf("password too long")
	ErrUsernameTaken      = fmt.Errorf("username taken")
	ErrBadCredentials     = fmt.Errorf("invalid username or password")
)

func (a Auth) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PlayerClaims(r)
	if !ok {
		a.logger.Debug("no valid cookies - clear cookies")
		a.cookies.Clear(w)
		sendJSONOrLog(w, a.logger, &Status{LoggedIn: false})
		return
	}

	a.logger.Debug("refresh cookies")
	if err := a.cookies.Refresh(w, claims); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithError(err).Error("unable to refresh cookies")
		return
	}

	sendJSONOrLog(w, a.logger, &Status{
		LoggedIn: true,
		Player:   &PlayerInfo{claims.PlayerId, claims.Username},
	})
}

func (a Auth) credentials(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseForm(); err != nil {
		sendError(w, a.logger, http.StatusBadRequest, ErrBadAuthBody)
		return "", nil, false
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		sendError(w, a.logger, http.StatusBadRequest, ErrBadAuthBody)
		return "", nil, false
	}

	// bcrypt ignores everything past 72 bytes
	passwordBytes := []byte(password)
	if len(passwordBytes) > 72 {
		sendError(w, a.logger, http.StatusBadRequest, ErrBadPasswordTooLong)
		return "", nil, false
	}

	return username, passwordBytes, true
}

func (a Auth) login(w http.ResponseWriter, player *repository.Player) {
	claims := config.NewPlayerClaims(player.PlayerID, player.Username)
	if err := a.cookies.Refresh(w, claims); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithError(err).Error("unable to set auth cookies")
		return
	}

	sendJSONOrLog(w, a.logger, &Status{
		LoggedIn: true,
		Player:   &PlayerInfo{player.PlayerID, player.Username},
	})
}

func (a Auth) Register(w http.ResponseWriter, r *http.Request) {
	username, password, ok := a.credentials(w, r)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword(password, a.bcryptCost)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithError(err).Error("unable to hash password")
		return
	}

	player, err := a.players.CreatePlayer(r.Context(), repository.CreatePlayerParams{
		Username:     username,
		PasswordHash: hash,
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		sendError(w, a.logger, http.StatusConflict, ErrUsernameTaken)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithError(err).Error("unable to insert player")
		return
	}

	a.logger.WithField("player", player.PlayerID).Info("registered player")
	a.login(w, player)
}

func (a Auth) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := a.credentials(w, r)
	if !ok {
		return
	}

	player, err := a.players.FetchPlayer(r.Context(), username)
	if errors.Is(err, pgx.ErrNoRows) {
		sendError(w, a.logger, http.StatusUnauthorized, ErrBadCredentials)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithError(err).Error("unable to fetch player")
		return
	}

	if err := bcrypt.CompareHashAndPassword(player.PasswordHash, password); err != nil {
		sendError(w, a.logger, http.StatusUnauthorized, ErrBadCredentials)
		return
	}

	a.login(w, player)
}

func (a Auth) Logout(w http.ResponseWriter, r *http.Request) {
	a.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
