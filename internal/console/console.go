package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/pairs-server/internal/games"
)

const help = `commands:
  s        start the timer
  f <n>    flip tile n
  r [d]    new board, optionally of dimension d
  g        show the board
  q        quit
`

type Console struct {
	In      io.Reader
	Out     io.Writer
	Manager *games.Manager
	Game    *games.Game
	Logger  logrus.FieldLogger
}

// Run reads commands line by line and prints the board after each one until
// the input ends, q is entered or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	if err := c.render(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(c.In)
	for {
		if _, err := io.WriteString(c.Out, "> "); err != nil {
			return err
		}
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		case "h", "help", "?":
			if _, err := io.WriteString(c.Out, help); err != nil {
				return err
			}
			continue
		}

		cmds, err := games.ParseCommands(line)
		if err == nil {
			err = c.Manager.Execute(ctx, c.Game, cmds)
		}
		var cmdErr *games.CommandError
		if errors.As(err, &cmdErr) {
			fmt.Fprintf(c.Out, "error: %s (h for help)\n", cmdErr.Err)
			continue
		}
		if err != nil {
			return err
		}

		if err := c.render(); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		c.Logger.WithError(err).Error("unable to read input")
		return err
	}
	return nil
}

func (c *Console) render() error {
	return Render(c.Out, c.Manager.View(c.Game).Snapshot)
}
