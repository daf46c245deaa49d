package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

type GameSession struct {
	GameSessionID  string     `db:"game_session_id"`
	PlayerID       *int64     `db:"player_id"`
	Dimension      int32      `db:"dimension"`
	Status         string     `db:"status"`
	TotalFlips     int32      `db:"total_flips"`
	ElapsedSeconds int32      `db:"elapsed_seconds"`
	State          []byte     `db:"state"`
	StartedAt      *time.Time `db:"started_at"`
	EndedAt        *time.Time `db:"ended_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

type CreateGameSessionParams struct {
	GameSessionID string
	PlayerID      *int64
	Dimension     int32
	Status        string
	State         []byte
}

func (q *Queries) CreateGameSession(
	ctx context.Context, params CreateGameSessionParams,
) (*GameSession, error) {
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO game_session (
			game_session_id, player_id, dimension, status, state
		)
		VALUES (
			@game_session_id, @player_id, @dimension, @status, @state
		)
		RETURNING *;`,
		pgx.NamedArgs{
			"game_session_id": params.GameSessionID,
			"player_id":       params.PlayerID,
			"dimension":       params.Dimension,
			"status":          params.Status,
			"state":           params.State,
		},
	)
	return pgx.CollectExactlyOneRow(
		rows, pgx.RowToAddrOfStructByName[GameSession],
	)
}

func (q *Queries) FetchGameSession(
	ctx context.Context, gameSessionID string,
) (*GameSession, error) {
	rows, _ := q.db.Query(
		ctx,
		"SELECT * FROM game_session WHERE game_session_id = $1",
		gameSessionID,
	)
	return pgx.CollectExactlyOneRow(
		rows, pgx.RowToAddrOfStructByName[GameSession],
	)
}

type UpdateGameSessionParams struct {
	Dimension      *int32
	Status         *string
	TotalFlips     *int32
	ElapsedSeconds *int32
	State          *[]byte
	StartedAt      *time.Time
	EndedAt        *time.Time
	ClearTimes     bool
}

// SetClause renders the columns present in p. ClearTimes resets started_at
// and ended_at to NULL unless a new value is given for them.
func (p UpdateGameSessionParams) SetClause() (string, pgx.NamedArgs) {
	parts := []string{"updated_at = now()"}
	args := pgx.NamedArgs{}

	if p.Dimension != nil {
		parts = append(parts, "dimension = @dimension")
		args["dimension"] = *p.Dimension
	}
	if p.Status != nil {
		parts = append(parts, "status = @status")
		args["status"] = *p.Status
	}
	if p.TotalFlips != nil {
		parts = append(parts, "total_flips = @total_flips")
		args["total_flips"] = *p.TotalFlips
	}
	if p.ElapsedSeconds != nil {
		parts = append(parts, "elapsed_seconds = @elapsed_seconds")
		args["elapsed_seconds"] = *p.ElapsedSeconds
	}
	if p.State != nil {
		parts = append(parts, "state = @state")
		args["state"] = *p.State
	}
	if p.StartedAt != nil {
		parts = append(parts, "started_at = @started_at")
		args["started_at"] = *p.StartedAt
	} else if p.ClearTimes {
		parts = append(parts, "started_at = NULL")
	}
	if p.EndedAt != nil {
		parts = append(parts, "ended_at = @ended_at")
		args["ended_at"] = *p.EndedAt
	} else if p.ClearTimes {
		parts = append(parts, "ended_at = NULL")
	}

	return strings.Join(parts, ", "), args
}

func (q *Queries) UpdateGameSession(
	ctx context.Context, gameSessionID string, params UpdateGameSessionParams,
) (*GameSession, error) {
	setClause, args := params.SetClause()
	args["game_session_id"] = gameSessionID
	rows, _ := q.db.Query(
		ctx,
		"UPDATE game_session SET "+setClause+
			" WHERE game_session_id = @game_session_id RETURNING *",
		args,
	)
	return pgx.CollectExactlyOneRow(
		rows, pgx.RowToAddrOfStructByName[GameSession],
	)
}
