package handlers

import (
	"time"

	"github.com/gorilla/schema"

	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/pairs"
)

func newDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

type NewGameDTO struct {
	Dimension  int    `schema:"dimension"`
	Difficulty string `schema:"difficulty"`
}

type FlipDTO struct {
	Tile int `schema:"tile,required"`
}

type ResetDTO struct {
	Dimension  int    `schema:"dimension"`
	Difficulty string `schema:"difficulty"`
}

type GameSessionDTO struct {
	GameSessionId  string            `json:"game_session_id"`
	Dimension      int               `json:"dimension"`
	Tiles          []pairs.TileView  `json:"tiles"`
	FlippedTileIDs []int             `json:"flipped_tile_ids"`
	TotalFlips     int               `json:"total_flips"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Status         pairs.Status      `json:"status"`
	Won            bool              `json:"won"`
	Summary        *pairs.WinSummary `json:"summary,omitempty"`
	Archived       bool              `json:"archived"`
	StartedAt      *int64            `json:"started_at,omitempty"`
	EndedAt        *int64            `json:"ended_at,omitempty"`
}

func unixMilli(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func NewGameSessionDTO(v games.View) *GameSessionDTO {
	dto := &GameSessionDTO{
		GameSessionId:  v.ID,
		Dimension:      v.Snapshot.Dimension,
		Tiles:          v.Snapshot.Tiles,
		FlippedTileIDs: v.Snapshot.FlippedTileIDs,
		TotalFlips:     v.Snapshot.TotalFlips,
		ElapsedSeconds: v.Snapshot.ElapsedSeconds,
		Status:         v.Snapshot.Status,
		Won:            v.Snapshot.Won(),
		Archived:       v.Archived,
		StartedAt:      unixMilli(v.StartedAt),
		EndedAt:        unixMilli(v.EndedAt),
	}
	if summary, ok := v.Snapshot.Summary(); ok {
		dto.Summary = &summary
	}
	if dto.Tiles == nil {
		dto.Tiles = []pairs.TileView{}
	}
	if dto.FlippedTileIDs == nil {
		dto.FlippedTileIDs = []int{}
	}
	return dto
}

type FlipResponseDTO struct {
	Flip pairs.FlipResult `json:"flip"`
	Game *GameSessionDTO  `json:"game"`
}

type DifficultyDTO struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Default   bool   `json:"default,omitempty"`
}
