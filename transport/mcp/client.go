package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/treasure-quest/game/engine"
	"github.com/wricardo/treasure-quest/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Treasure Quest",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Treasure Quest - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Adventurers follow movement scripts across a treasure map, one action per
turn, in the order they were declared. Create a session from a catalog map or
your own map text, then step through it, run it to completion or export the
result file.

AVAILABLE TOOLS:
- create_session, list_sessions, get_session: session management
- game_state: current grid and adventurers
- step: execute one adventurer turn
- run: run the simulation to completion
- reset_game: reload the initial map
- play / pause: timed auto-play
- outcome_log: paginated log of past turns
- export_result: the result file in the map format
- list_maps: catalog maps
- simulate: run map text to completion without creating a session
- describe_cell: details about one grid cell
- game_instructions: map format and movement rules`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session from a catalog map or inline map text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id": map[string]interface{}{
					"type":        "string",
					"description": "Name of the catalog map to use (optional, defaults to the server default)",
				},
				"map_text": map[string]interface{}{
					"type":        "string",
					"description": "Map source text; takes precedence over map_id",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session"), c.handleGetSession)

	// Simulation control
	c.mcpServer.AddTool(sessionTool("game_state", "Get the current grid, adventurers and turn counters"), c.handleGameState)
	c.mcpServer.AddTool(sessionTool("step", "Execute the next adventurer's action for the current turn"), c.handleStep)
	c.mcpServer.AddTool(sessionTool("run", "Run the simulation until every script is consumed"), c.handleRun)
	c.mcpServer.AddTool(sessionTool("reset_game", "Reset the simulation to the initial map"), c.handleReset)
	c.mcpServer.AddTool(sessionTool("pause", "Stop auto-play"), c.handlePause)
	c.mcpServer.AddTool(sessionTool("export_result", "Get the result file in the map format"), c.handleExport)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play",
		Description: "Start auto-play, stepping at a fixed interval until the simulation ends or is paused",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"interval_ms": map[string]interface{}{
					"type":        "integer",
					"description": "Milliseconds between steps (optional)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handlePlay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "outcome_log",
		Description: "Get the outcome log for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Chronological (asc) or newest first (desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleOutcomeLog)

	// Maps
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_maps",
		Description: "List the maps available in the catalog",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListMaps)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulate",
		Description: "Run a map to completion and return the result file, without creating a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_text": map[string]interface{}{
					"type":        "string",
					"description": "Map source text",
				},
			},
			Required: []string{"map_text"},
		},
	}, c.handleSimulate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about one grid cell: terrain, treasures, occupant and the nearest treasure",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"column": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based, west to east)",
				},
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based, north to south)",
				},
			},
			Required: []string{"session_id", "column", "row"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the map format and the movement rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return nil, fmt.Errorf("%s", msg)
		}
		return nil, fmt.Errorf("API error: %d", resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, contentType, reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// apiText calls an endpoint that answers with plain text
func (c *Client) apiText(ctx context.Context, method, path, body string) (string, error) {
	var reqBody io.Reader
	contentType := ""
	if body != "" {
		reqBody = strings.NewReader(body)
		contentType = "text/plain"
	}

	resp, err := c.do(ctx, method, path, contentType, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sessionPath(args map[string]interface{}, suffix string) string {
	sessionID, _ := args["session_id"].(string)
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	mapID, _ := args["map_id"].(string)
	mapText, _ := args["map_text"].(string)

	body := service.CreateSessionRequest{MapID: mapID, MapText: mapText}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n%s", session.ID, formatSessionInfo(&session))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "in progress"
		if s.State != nil && s.State.Ended {
			status = "ended"
		}
		if s.Playing {
			status = "playing"
		}
		fmt.Fprintf(&b, "- %s (Map: %s, %s, Created: %s)\n",
			s.ID, s.MapName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state engine.State
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.StepResult
	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/step"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.RunResult
	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/run"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state engine.State
	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/reset"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Simulation reset\n\n" + formatState(&state)), nil
}

func (c *Client) handlePlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]int64{}
	if interval, ok := args["interval_ms"].(float64); ok {
		body["interval_ms"] = int64(interval)
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/play"), body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Auto-play started every %dms\n%s", session.IntervalMS, formatSessionInfo(&session))), nil
}

func (c *Client) handlePause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/pause"), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Auto-play paused\n" + formatSessionInfo(&session)), nil
}

func (c *Client) handleOutcomeLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := sessionPath(args, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := c.apiText(ctx, "GET", sessionPath(arguments(request), "/output"), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(output), nil
}

func (c *Client) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int               `json:"count"`
		Maps  []service.MapInfo `json:"maps"`
	}
	if err := c.apiCall(ctx, "GET", "/api/maps", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Maps:\n\n")
	for _, m := range response.Maps {
		fmt.Fprintf(&b, "• %s\n  Grid: %dx%d, Mountains: %d, Treasures: %d, Adventurers: %d, Turns: %d\n",
			m.MapID, m.Width, m.Height, m.Mountains, m.Treasures, m.Adventurers, m.MaxTurns)
		if m.Warnings > 0 {
			fmt.Fprintf(&b, "  Warnings: %d\n", m.Warnings)
		}
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapText, _ := arguments(request)["map_text"].(string)
	if strings.TrimSpace(mapText) == "" {
		return mcp.NewToolResultError("map_text is required"), nil
	}

	var result service.SimulationResult
	resp, err := c.do(ctx, "POST", "/api/simulate?format=json", "text/plain", strings.NewReader(mapText))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSimulation(&result)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	column, okCol := args["column"].(float64)
	row, okRow := args["row"].(float64)
	if !okCol || !okRow {
		return mcp.NewToolResultError("column and row are required"), nil
	}

	var state engine.State
	if err := c.apiCall(ctx, "GET", sessionPath(args, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pos := engine.Position{Row: int(row), Column: int(column)}
	text, err := describeCell(&state, pos)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Treasure Quest - Instructions

OBJECTIVE:
Adventurers follow fixed movement scripts across a rectangular map and pick
up treasure as they go. The simulation is deterministic: the same map always
produces the same result file.

MAP FORMAT (one record per line, fields separated by " - "):
• C - width - height                    map size
• M - column - row                      mountain
• T - column - row - count              treasure pile
• A - name - column - row - O - script  adventurer facing O (N, E, S, W)
Lines starting with # are comments. Records that cannot be applied are
skipped with a warning; only a negative map size is fatal.

MOVEMENT SCRIPT:
• A - advance one cell in the facing direction
• G - turn a quarter to the left
• D - turn a quarter to the right

TURN ORDER:
Each game turn, every adventurer executes one action in declaration order.
Adventurers whose script is exhausted stay idle. The game ends once the
longest script has been consumed.

BLOCKING RULES:
• Advancing into a mountain, the map edge or another adventurer does nothing
• Entering a treasure cell picks up exactly one treasure
• Staying on a treasure cell does not pick up another one

GRID LEGEND:
• . - plain
• M - mountain
• 1-9 - treasure pile (count, capped at 9)
• letter - first letter of the adventurer standing there

RESULT FILE:
The map size, the mountains, the treasure piles that still hold treasure and
each adventurer's final position, orientation and collected treasure count.`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nMap: %s\n", session.ID, session.MapName)
	if session.Playing {
		fmt.Fprintf(&b, "Auto-play: every %dms\n", session.IntervalMS)
	}
	for _, w := range session.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	if session.State != nil {
		b.WriteString("\n")
		b.WriteString(formatState(session.State))
	}
	return b.String()
}

func formatState(state *engine.State) string {
	if state == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Map: %dx%d\n", state.Width, state.Height)
	fmt.Fprintf(&b, "Turn: %d/%d, Steps: %d\n", state.GameTurn, state.MaxTurns, state.Steps)
	fmt.Fprintf(&b, "Treasure: %d collected, %d remaining\n", state.CollectedTreasure, state.RemainingTreasure)
	if state.Ended {
		b.WriteString("🏁 SIMULATION ENDED\n")
	}

	b.WriteString("\nGrid:\n")
	for _, row := range state.Grid {
		for _, cell := range row {
			b.WriteString(engine.CellChar(cell))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nAdventurers:\n")
	for i, adv := range state.Adventurers {
		marker := " "
		if !state.Ended && i == state.CurrentAdventurer {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s at (%d,%d) facing %s, treasures: %d, script: %s\n",
			marker, adv.Name, adv.Position.Column, adv.Position.Row, adv.Orientation.Word(), adv.Treasures, adv.Script)
	}
	return b.String()
}

func formatStepResult(result *service.StepResult) string {
	mark := "✗"
	switch {
	case result.Outcome.Changed():
		mark = "✓"
	case result.Outcome.Kind == engine.Idle:
		mark = "·"
	}
	text := fmt.Sprintf("%s %s\n", mark, result.Message)
	if result.State != nil {
		text += "\n" + formatState(result.State)
	}
	return text
}

func formatRunResult(result *service.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d steps\n\n", result.StepsExecuted)
	for _, line := range result.Log {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\nResult:\n")
	b.WriteString(result.Output)
	return b.String()
}

func formatSimulation(result *service.SimulationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Simulated %d steps\n", result.Steps)
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	b.WriteString("\nResult:\n")
	b.WriteString(result.Output)
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome Log (Page %d/%d, %d steps total):\n\n", history.Page, history.TotalPages, history.TotalSteps)
	for _, entry := range history.Entries {
		fmt.Fprintf(&b, "%d. %s\n", entry.Step, entry.Message)
	}
	if history.HasPrevious || history.HasNext {
		b.WriteString("\n")
		if history.HasPrevious {
			b.WriteString("← previous page available ")
		}
		if history.HasNext {
			b.WriteString("→ next page available")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// describeCell explains one cell of a state snapshot
func describeCell(state *engine.State, pos engine.Position) (string, error) {
	if pos.Row < 0 || pos.Row >= len(state.Grid) || pos.Column < 0 || pos.Column >= state.Width {
		return "", fmt.Errorf("coordinates (%d,%d) are out of bounds: the map is %dx%d (columns 0-%d, rows 0-%d)",
			pos.Column, pos.Row, state.Width, state.Height, state.Width-1, state.Height-1)
	}

	cell := state.Grid[pos.Row][pos.Column]

	var b strings.Builder
	fmt.Fprintf(&b, "Cell (%d,%d): '%s'\n", pos.Column, pos.Row, engine.CellChar(cell))
	switch cell.Terrain {
	case engine.Mountain:
		b.WriteString("Terrain: Mountain - IMPASSABLE\n")
	case engine.Treasure:
		fmt.Fprintf(&b, "Terrain: Treasure - %d left\n", cell.Treasures)
	default:
		b.WriteString("Terrain: Plain\n")
	}
	if cell.Occupant != "" {
		fmt.Fprintf(&b, "Occupant: %s\n", cell.Occupant)
	}

	if nearest, distance, ok := nearestTreasure(state, pos); ok {
		fmt.Fprintf(&b, "Nearest treasure: (%d,%d), %d steps away\n", nearest.Column, nearest.Row, distance)
	} else {
		b.WriteString("No treasure left on the map\n")
	}
	return b.String(), nil
}

func nearestTreasure(state *engine.State, from engine.Position) (engine.Position, int, bool) {
	best := -1
	var nearest engine.Position
	for r, row := range state.Grid {
		for col, cell := range row {
			if cell.Terrain != engine.Treasure || cell.Treasures == 0 {
				continue
			}
			pos := engine.Position{Row: r, Column: col}
			if d := engine.ManhattanDistance(from, pos); best == -1 || d < best {
				best = d
				nearest = pos
			}
		}
	}
	return nearest, best, best >= 0
}
