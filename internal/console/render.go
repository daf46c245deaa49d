package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/vancomm/pairs-server/internal/pairs"
)

const hidden = "??"

// Render writes the board as a grid of numbered tiles followed by the
// counters, or the win banner once the game is won.
func Render(w io.Writer, snap pairs.Snapshot) error {
	var b strings.Builder

	if snap.Dimension == 0 {
		_, err := io.WriteString(w, "no board\n")
		return err
	}

	width := len(fmt.Sprint(len(snap.Tiles) - 1))
	for i, tile := range snap.Tiles {
		glyph := hidden
		if tile.Symbol != "" {
			glyph = string(tile.Symbol)
		}
		fmt.Fprintf(&b, "%*d:%s", width, tile.ID, glyph)
		if (i+1)%snap.Dimension == 0 {
			b.WriteByte('\n')
		} else {
			b.WriteString("  ")
		}
	}

	if summary, ok := snap.Summary(); ok {
		fmt.Fprintf(&b, "You won! with %d moves under %d seconds\n",
			summary.TotalFlips, summary.ElapsedSeconds)
	} else {
		fmt.Fprintf(&b, "%d moves  time: %d sec\n", snap.TotalFlips, snap.ElapsedSeconds)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
