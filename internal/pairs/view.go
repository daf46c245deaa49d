package pairs

import (
	"bytes"
	"encoding/gob"
)

// TileView is the renderable projection of a tile. Symbol is empty unless
// the tile is face-up or matched.
type TileView struct {
	ID      int    `json:"id"`
	FaceUp  bool   `json:"face_up"`
	Matched bool   `json:"matched"`
	Symbol  Symbol `json:"symbol,omitempty"`
}

func (t Tile) view() TileView {
	v := TileView{ID: t.ID, FaceUp: t.FaceUp, Matched: t.Matched}
	if t.FaceUp || t.Matched {
		v.Symbol = t.Symbol
	}
	return v
}

// Snapshot is everything a renderer needs, captured atomically.
type Snapshot struct {
	Dimension      int        `json:"dimension"`
	Tiles          []TileView `json:"tiles"`
	FlippedTileIDs []int      `json:"flipped_tile_ids"`
	TotalFlips     int        `json:"total_flips"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Status         Status     `json:"status"`
}

func (s Snapshot) Won() bool {
	return s.Status == Won
}

func (s Snapshot) Summary() (WinSummary, bool) {
	if s.Status != Won {
		return WinSummary{}, false
	}
	return WinSummary{TotalFlips: s.TotalFlips, ElapsedSeconds: s.ElapsedSeconds}, true
}

func (s Snapshot) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeSnapshot(b []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
