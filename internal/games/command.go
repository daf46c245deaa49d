package games

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

type Op byte

const (
	OpGet   Op = 'g'
	OpStart Op = 's'
	OpFlip  Op = 'f'
	OpReset Op = 'r'
)

// Command is one line of the text protocol:
//
//	g       // get the current state
//	s       // start the timer
//	f 3     // flip tile 3
//	r [6]   // new board, optionally of another dimension
type Command struct {
	Op  Op
	Arg int
}

var commandNargs = map[Op][2]int{
	OpGet:   {0, 0},
	OpStart: {0, 0},
	OpFlip:  {1, 1},
	OpReset: {0, 1},
}

type CommandError struct {
	Line int
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func ParseCommand(c string) (Command, error) {
	parts := strings.Fields(c)
	if len(parts) == 0 || len(parts[0]) != 1 {
		return Command{}, fmt.Errorf("unknown command %q", c)
	}

	op := Op(parts[0][0])
	nargs, ok := commandNargs[op]
	if !ok {
		return Command{}, fmt.Errorf("unknown command %q", parts[0])
	}
	if n := len(parts) - 1; n < nargs[0] || n > nargs[1] {
		return Command{}, fmt.Errorf("invalid number of arguments")
	}

	cmd := Command{Op: op}
	if len(parts) == 2 {
		arg, err := strconv.Atoi(parts[1])
		if err != nil {
			return Command{}, fmt.Errorf("argument must be an int")
		}
		cmd.Arg = arg
	}
	return cmd, nil
}

func iterBySep(s string, sep string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 0
		found := true
		var piece string
		for found {
			piece, s, found = strings.Cut(s, sep)
			if !yield(i, piece) {
				return
			}
			i += 1
		}
	}
}

// ParseCommands parses newline-separated commands. Blank lines are skipped;
// the first malformed line fails the whole batch.
func ParseCommands(text string) ([]Command, error) {
	var cmds []Command
	for i, line := range iterBySep(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := ParseCommand(line)
		if err != nil {
			return nil, &CommandError{Line: i + 1, Err: err}
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
