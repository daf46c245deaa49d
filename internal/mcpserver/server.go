package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/pairs-server/internal/console"
	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/pairs"
)

const instructions = `Pairs - MCP Interface

A memory game: the board is a square grid of face-down tiles, every symbol
appears on exactly two tiles. Flip two tiles; if they match they stay
revealed, otherwise they turn back after a short delay. Reveal every pair
to win with as few flips as possible.

AVAILABLE TOOLS:
- new_game: Create a game (optional dimension or difficulty)
- game_state: Show the board and counters
- start: Start the timer without flipping
- flip: Reveal a tile by number
- reset: Deal a fresh board, optionally of another dimension
- difficulties: List difficulty names and their dimensions

Tiles are numbered row by row from 0. Face-down tiles are shown as ??.`

type Server struct {
	manager   *games.Manager
	logger    logrus.FieldLogger
	mcpServer *server.MCPServer
}

func New(manager *games.Manager, logger logrus.FieldLogger, version string) *Server {
	s := &Server{
		manager: manager,
		logger:  logger,
	}

	s.mcpServer = server.NewMCPServer(
		"Pairs",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	)

	s.registerTools()
	return s
}

func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks serving requests on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

var gameIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Game ID returned by new_game",
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Create a new game. dimension wins over difficulty; with neither the default difficulty is used",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dimension": map[string]interface{}{
					"type":        "integer",
					"description": "Board side length, a positive even number",
				},
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Difficulty name, see the difficulties tool",
				},
			},
		},
	}, s.handleNewGame)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, flip count and elapsed time",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty,
			},
			Required: []string{"game_id"},
		},
	}, s.handleGameState)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "start",
		Description: "Start the game timer. Flipping a tile also starts it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty,
			},
			Required: []string{"game_id"},
		},
	}, s.handleStart)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "flip",
		Description: "Flip a face-down tile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty,
				"tile": map[string]interface{}{
					"type":        "integer",
					"description": "Tile number, counted row by row from 0",
				},
			},
			Required: []string{"game_id", "tile"},
		},
	}, s.handleFlip)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "reset",
		Description: "Deal a fresh board and zero the counters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProperty,
				"dimension": map[string]interface{}{
					"type":        "integer",
					"description": "New board side length (optional, keeps the current one)",
				},
			},
			Required: []string{"game_id"},
		},
	}, s.handleReset)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "difficulties",
		Description: "List difficulty names and board dimensions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleDifficulties)
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads an optional integer argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, name string) (int, bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false, fmt.Errorf("%s must be an integer", name)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%s must be an integer", name)
		}
		return int(i), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be an integer", name)
	}
}

func (s *Server) game(args map[string]interface{}) (*games.Game, error) {
	id, _ := args["game_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("game_id is required")
	}
	return s.manager.Get(id)
}

func (s *Server) describe(game *games.Game) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "game %s (%dx%d, %s)\n",
		game.ID, game.Session.Dimension(), game.Session.Dimension(), game.Session.Status())
	if err := console.Render(&buf, s.manager.View(game).Snapshot); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) result(game *games.Game, prefix string) (*mcp.CallToolResult, error) {
	text, err := s.describe(game)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(prefix + text), nil
}

func (s *Server) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	dimension, _, err := intArg(args, "dimension")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	difficulty, _ := args["difficulty"].(string)

	dimension, err = s.manager.Resolve(dimension, difficulty)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	game, err := s.manager.Create(ctx, dimension, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logger.WithField("game", game.ID).Debug("mcp created game")
	return s.result(game, "")
}

func (s *Server) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	game, err := s.game(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(game, "")
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	game, err := s.game(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.manager.Start(ctx, game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(game, "")
}

func (s *Server) handleFlip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	game, err := s.game(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tile, ok, err := intArg(args, "tile")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("tile is required"), nil
	}

	res, err := s.manager.Flip(ctx, game, tile)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return s.result(game, describeFlip(res))
}

func describeFlip(res pairs.FlipResult) string {
	if !res.Accepted {
		return fmt.Sprintf("tile %d ignored: it is already revealed, a pair is settling or the game is over\n", res.Tile.ID)
	}
	switch res.Outcome {
	case pairs.Match:
		return fmt.Sprintf("tile %d is %s: match!\n", res.Tile.ID, res.Tile.Symbol)
	case pairs.Mismatch:
		return fmt.Sprintf("tile %d is %s: no match, both tiles turn back shortly\n", res.Tile.ID, res.Tile.Symbol)
	default:
		return fmt.Sprintf("tile %d is %s\n", res.Tile.ID, res.Tile.Symbol)
	}
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	game, err := s.game(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dimension, _, err := intArg(args, "dimension")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.manager.Reset(ctx, game, dimension); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(game, "")
}

func (s *Server) handleDifficulties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dimensions := s.manager.Difficulties()
	def := s.manager.DefaultDifficulty()

	var buf bytes.Buffer
	for _, name := range s.manager.DifficultyNames() {
		fmt.Fprintf(&buf, "%s: %dx%d", name, dimensions[name], dimensions[name])
		if name == def {
			buf.WriteString(" (default)")
		}
		buf.WriteByte('\n')
	}
	return mcp.NewToolResultText(buf.String()), nil
}
