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
	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// APIError is a non-2xx response from the REST API
type APIError struct {
	StatusCode int     `json:"-"`
	Code       string  `json:"code"`
	Message    string  `json:"error"`
	Required   float64 `json:"required"`
	Available  float64 `json:"available"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
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
		"Operation Skytrack",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Operation Skytrack - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
A fugitive is hiding at a target airport. Fly between airports to reach it
before your fuel and refuel attempts run out.

AVAILABLE TOOLS:
- start_game: Start (or restart) a chase for a screen name
- game_status: Current airport, fuel, refuels left and fuel risk
- list_destinations: Every other airport with distance and fuel cost
- plan_trip: Preview one trip without flying it
- travel: Fly to an airport - requires intent explanation
- refuel: Buy fuel at the current airport - requires intent explanation
- investigate: Clues and people at the current airport
- travel_history: Past flights
- list_sessions / get_session: Session lookup
- list_configs: Available rule sets
- game_instructions: Full rules and strategy

NOTE: The 'intent' parameter on travel/refuel serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID returned by start_game",
	}
}

func intentProperty(what string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": fmt.Sprintf("Brief explanation of the intent behind this %s (serves as a rubber duck to help explain your reasoning)", what),
	}
}

func sessionOnly() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
		},
		Required: []string{"session_id"},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start a new chase. A returning screen name restarts that player's game.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"screen_name": map[string]interface{}{
					"type":        "string",
					"description": "Player screen name",
				},
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Rule set to play under (optional, see list_configs)",
				},
			},
			Required: []string{"screen_name"},
		},
	}, c.handleStartGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnly(),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_status",
		Description: "Get the current airport, fuel, refuel attempts left, fuel risk and game result",
		InputSchema: sessionOnly(),
	}, c.handleGameStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_destinations",
		Description: "List every other airport with its distance, fuel cost, affordability and whether it sells fuel",
		InputSchema: sessionOnly(),
	}, c.handleListDestinations)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "plan_trip",
		Description: "Preview the distance and fuel cost of a trip without flying it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"destination_id": map[string]interface{}{
					"type":        "integer",
					"description": "Destination airport ID",
				},
			},
			Required: []string{"session_id", "destination_id"},
		},
	}, c.handlePlanTrip)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "travel",
		Description: "Fly to another airport, spending fuel proportional to the distance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"destination_id": map[string]interface{}{
					"type":        "integer",
					"description": "Destination airport ID",
				},
				"intent": intentProperty("flight"),
			},
			Required: []string{"session_id", "destination_id"},
		},
	}, c.handleTravel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "refuel",
		Description: "Refuel at the current airport. Each successful refuel uses one of your limited attempts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"units": map[string]interface{}{
					"type":        "number",
					"description": "Fuel units to add",
				},
				"intent": intentProperty("refuel"),
			},
			Required: []string{"session_id", "units"},
		},
	}, c.handleRefuel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "investigate",
		Description: "List the clues and people at the current airport. Not every clue is true.",
		InputSchema: sessionOnly(),
	}, c.handleInvestigate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "travel_history",
		Description: "Get the flight log for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
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
					"description": "Oldest first (asc) or newest first (desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTravelHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available rule sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
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

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	screenName, _ := args["screen_name"].(string)
	configID, _ := args["config_id"].(string)

	body := map[string]string{"screen_name": screenName}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
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
	b.WriteString(fmt.Sprintf("Active Sessions (%d):\n\n", response.Count))
	for _, s := range response.Sessions {
		b.WriteString(fmt.Sprintf("- %s: %s (Config: %s, Last active: %s)\n",
			s.ID, s.ScreenName, s.ConfigName, s.LastAccessedAt.Format("15:04:05")))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var status engine.StatusReport
	if err := c.apiCall(ctx, "GET", path, nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStatus(&status)), nil
}

func (c *Client) handleListDestinations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/destinations")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.DestinationsResult
	if err := c.apiCall(ctx, "GET", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDestinations(&result)), nil
}

func (c *Client) handlePlanTrip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	destinationID, ok := args["destination_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("destination_id is required"), nil
	}
	path, err := sessionPath(args, fmt.Sprintf("/plan?destination=%d", int64(destinationID)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var plan engine.DestinationOption
	if err := c.apiCall(ctx, "GET", path, nil, &plan); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTripPlan(&plan)), nil
}

func (c *Client) handleTravel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	destinationID, ok := args["destination_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("destination_id is required"), nil
	}
	path, err := sessionPath(args, "/travel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	var result service.TravelResult
	body := map[string]int64{"destination_id": int64(destinationID)}
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTravelResult(&result)), nil
}

func (c *Client) handleRefuel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	units, ok := args["units"].(float64)
	if !ok {
		return mcp.NewToolResultError("units is required"), nil
	}
	path, err := sessionPath(args, "/refuel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, _ = args["intent"].(string)

	var result service.RefuelResult
	if err := c.apiCall(ctx, "POST", path, map[string]float64{"units": units}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRefuelResult(&result)), nil
}

func (c *Client) handleInvestigate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/investigate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var found engine.Investigation
	if err := c.apiCall(ctx, "GET", path, nil, &found); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatInvestigation(&found)), nil
}

func (c *Client) handleTravelHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	suffix := "/history"
	if len(params) > 0 {
		suffix += "?" + params.Encode()
	}
	path, err := sessionPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		perRefuel := "uncapped"
		if config.MaxUnitsPerRefuel > 0 {
			perRefuel = fmt.Sprintf("up to %.0f units", config.MaxUnitsPerRefuel)
		}
		b.WriteString(fmt.Sprintf("• %s (config_id: %s)\n  %s\n  Fuel: %.0f, Refuels: %d (%s)\n\n",
			config.Name, config.ConfigID, config.Description, config.StartingFuel, config.MaxRefuelAttempts, perRefuel))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `✈️ Operation Skytrack - Complete Instructions

GAME OBJECTIVE:
A fugitive is hiding at one airport. Fly from your starting airport to the
fugitive's airport to catch them.

GAME MECHANICS:
• Flying: A trip costs distance_km × consumption rate units of fuel. You can
  only fly when your fuel covers the whole trip.
• Refueling: Adds fuel at your current airport. You have a limited number of
  refuel attempts; rejected refuels do not use one. Some rule sets cap the
  units per refuel, and some only sell fuel at airports that stock it.
• Investigating: Each airport has clues and people. Some clues are false.
• Victory: Land at the fugitive's airport.
• Game Over: Your fuel is gone and you have no refuel attempts left. Some
  rule sets also end the game when no airport is in range and no refuels
  remain.

STRATEGY:
1. Call list_destinations before every flight. It shows the cheapest
   reachable airport and the nearest airport that sells fuel.
2. Watch the fuel risk in game_status. CRITICAL means you will be stranded
   without a refuel.
3. Refuel in large amounts. Attempts are scarcer than fuel.
4. Use plan_trip to check a long leg before committing to it.
5. Investigate at each stop; valid clues point toward the fugitive.

TOOLS:
• start_game(screen_name, config_id?)
• game_status(session_id)
• list_destinations(session_id)
• plan_trip(session_id, destination_id)
• travel(session_id, destination_id, intent)
• refuel(session_id, units, intent)
• investigate(session_id)
• travel_history(session_id, page?, limit?, order?)

Good hunting!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Session: %s\nPlayer: %s\nConfig: %s\n",
		session.ID, session.ScreenName, session.ConfigName))
	if session.Message != "" {
		b.WriteString(session.Message + "\n")
	}
	if session.Status != nil {
		b.WriteString("\n" + formatStatus(session.Status))
	}
	return b.String()
}

func formatStatus(status *engine.StatusReport) string {
	if status == nil {
		return "No status available"
	}

	var b strings.Builder
	switch status.Result.Status {
	case engine.StatusWon:
		b.WriteString("🎉 VICTORY! The fugitive has been caught.\n\n")
	case engine.StatusLost:
		b.WriteString(fmt.Sprintf("💀 GAME OVER: %s\n\n", status.Result.Reason))
	}

	b.WriteString(fmt.Sprintf("Location: %s (%d), %s\n", status.Airport.Name, status.Airport.ID, status.Airport.Country))
	b.WriteString(fmt.Sprintf("Fuel: %.2f | Refuels left: %d/%d | Moves: %d\n",
		status.Player.Fuel, status.RemainingRefuels, status.MaxRefuels, status.Game.MovesCount))
	if status.FuelRisk != "" {
		b.WriteString(fmt.Sprintf("Fuel risk: %s\n", status.FuelRisk))
	}
	if status.Airport.FuelAvailable {
		b.WriteString("Fuel is sold here")
		if status.Airport.FuelPrice > 0 {
			b.WriteString(fmt.Sprintf(" at %.2f per unit", status.Airport.FuelPrice))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatTripPlan(plan *engine.DestinationOption) string {
	reach := "within range"
	if !plan.Affordable {
		reach = "OUT OF RANGE"
	}
	return fmt.Sprintf("%s -> %s (%d): %.1f km, %.2f fuel, %s\n",
		plan.From.Name, plan.To.Name, plan.To.ID, plan.DistanceKm, plan.FuelCost, reach)
}

func formatDestinations(result *service.DestinationsResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From %s with %.2f fuel: %d of %d destinations in range\n",
		result.Current.Name, result.Fuel, result.AffordableCount, len(result.Destinations)))
	if result.FuelRisk != "" {
		b.WriteString(fmt.Sprintf("Fuel risk: %s\n", result.FuelRisk))
	}
	b.WriteString("\n")

	for _, d := range result.Destinations {
		marker := "✗"
		if d.Affordable {
			marker = "✓"
		}
		fuel := ""
		if d.IsFuelStop {
			fuel = " [fuel]"
		}
		b.WriteString(fmt.Sprintf("%s %d. %s, %s: %.1f km, %.2f fuel%s\n",
			marker, d.To.ID, d.To.Name, d.To.Country, d.DistanceKm, d.FuelCost, fuel))
	}

	if result.Cheapest != nil {
		b.WriteString(fmt.Sprintf("\nCheapest reachable: %s (%.2f fuel)\n", result.Cheapest.To.Name, result.Cheapest.FuelCost))
	}
	if result.NearestFuelStop != nil {
		b.WriteString(fmt.Sprintf("Nearest fuel stop in range: %s (%.1f km)\n", result.NearestFuelStop.To.Name, result.NearestFuelStop.DistanceKm))
	}
	return b.String()
}

func formatTravelResult(result *service.TravelResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Flight complete\n")
	} else {
		b.WriteString("✗ Flight failed\n")
	}
	b.WriteString(result.Message + "\n")
	if result.FuelRisk != "" {
		b.WriteString(fmt.Sprintf("Fuel risk: %s\n", result.FuelRisk))
	}
	writeEvents(&b, result.Events)
	return b.String()
}

func formatRefuelResult(result *service.RefuelResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Refuel complete\n")
	} else {
		b.WriteString("✗ Refuel failed\n")
	}
	b.WriteString(result.Message + "\n")
	writeEvents(&b, result.Events)
	return b.String()
}

func writeEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("\nEvents:\n")
	for _, event := range events {
		b.WriteString(fmt.Sprintf("- %s: %s\n", event.Type, event.Message))
	}
}

func formatInvestigation(found *engine.Investigation) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Investigating %s\n\n", found.Airport.Name))

	if len(found.Clues) == 0 {
		b.WriteString("No clues here.\n")
	} else {
		b.WriteString("Clues:\n")
		for i, clue := range found.Clues {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, clue.Description))
		}
	}

	if len(found.NPCs) > 0 {
		b.WriteString("\nPeople:\n")
		for _, npc := range found.NPCs {
			b.WriteString(fmt.Sprintf("- %s (%s): %s\n", npc.Name, npc.Role, npc.Info))
		}
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Flight History (Page %d/%d) - Total flights: %d\n\n",
		history.Page, history.TotalPages, history.TotalMovements))

	if len(history.Movements) == 0 {
		b.WriteString("No flights yet.\n")
		return b.String()
	}

	for _, m := range history.Movements {
		b.WriteString(fmt.Sprintf("- %s: %s -> %s (%.1f km)\n",
			m.MovedAt.Format("15:04:05"), m.FromName, m.ToName, m.DistanceKm))
	}
	if history.HasNext {
		b.WriteString(fmt.Sprintf("\nMore flights on page %d\n", history.Page+1))
	}
	return b.String()
}
