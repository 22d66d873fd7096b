package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/skytrack/api"
	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
	"github.com/wricardo/skytrack/game/session"
	"github.com/wricardo/skytrack/game/store/memory"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	world, err := config.LoadWorld("../../data/world.yaml")
	if err != nil {
		t.Fatalf("Failed to load world: %v", err)
	}
	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	gameService := service.NewGameService(memory.NewStoreWithWorld(world), session.NewManager(), configManager)
	server := httptest.NewServer(api.NewServer(gameService, nil))
	t.Cleanup(server.Close)
	return server
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		expectedErr string
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"id": "ab12"})
			},
		},
		{
			name: "rejection with code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":     "not enough fuel",
					"code":      "INSUFFICIENT_FUEL",
					"required":  300,
					"available": 250,
				})
			},
			expectedErr: "INSUFFICIENT_FUEL: not enough fuel",
		},
		{
			name: "plain error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			},
			expectedErr: "API error: 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL)
			var response map[string]string
			err := client.apiCall(context.Background(), "GET", "/api", nil, &response)

			if tt.expectedErr == "" {
				if err != nil {
					t.Fatalf("apiCall failed: %v", err)
				}
				if response["id"] != "ab12" {
					t.Errorf("Expected id ab12, got %v", response["id"])
				}
				return
			}

			if err == nil || err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %v", tt.expectedErr, err)
			}
		})
	}
}

func TestClient_apiCall_Unreachable(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_Chase(t *testing.T) {
	backend := newBackend(t)
	client := NewClient(backend.URL)
	ctx := context.Background()

	result, err := client.handleStartGame(ctx, callTool("start_game", map[string]interface{}{"screen_name": "maverick"}))
	if err != nil || result.IsError {
		t.Fatalf("start_game failed: %v %s", err, resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Player: maverick") || !strings.Contains(text, "Helsinki-Vantaa Airport") {
		t.Fatalf("Unexpected start_game output: %s", text)
	}

	// Session ID is the first line: "Session: <id>"
	sessionID := strings.TrimPrefix(strings.SplitN(text, "\n", 2)[0], "Session: ")

	tests := []struct {
		name     string
		call     func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args     map[string]interface{}
		isError  bool
		contains []string
	}{
		{
			name:     "game_status",
			call:     client.handleGameStatus,
			args:     map[string]interface{}{"session_id": sessionID},
			contains: []string{"Fuel: 250.00", "Refuels left: 5/5"},
		},
		{
			name:     "list_destinations",
			call:     client.handleListDestinations,
			args:     map[string]interface{}{"session_id": sessionID},
			contains: []string{"destinations in range", "Tallinn Lennart Meri Airport", "Cheapest reachable"},
		},
		{
			name:     "plan_trip",
			call:     client.handlePlanTrip,
			args:     map[string]interface{}{"session_id": sessionID, "destination_id": float64(15)},
			contains: []string{"OUT OF RANGE"},
		},
		{
			name:     "travel out of range",
			call:     client.handleTravel,
			args:     map[string]interface{}{"session_id": sessionID, "destination_id": float64(15), "intent": "go straight for Rome"},
			isError:  true,
			contains: []string{"INSUFFICIENT_FUEL"},
		},
		{
			name:     "travel",
			call:     client.handleTravel,
			args:     map[string]interface{}{"session_id": sessionID, "destination_id": float64(5), "intent": "follow the boarding pass"},
			contains: []string{"✓ Flight complete", "travel:"},
		},
		{
			name:     "refuel over cap",
			call:     client.handleRefuel,
			args:     map[string]interface{}{"session_id": sessionID, "units": float64(5000)},
			isError:  true,
			contains: []string{"LIMIT_EXCEEDED"},
		},
		{
			name:     "refuel",
			call:     client.handleRefuel,
			args:     map[string]interface{}{"session_id": sessionID, "units": float64(500)},
			contains: []string{"✓ Refuel complete", "4 refuels left"},
		},
		{
			name:     "investigate",
			call:     client.handleInvestigate,
			args:     map[string]interface{}{"session_id": sessionID},
			contains: []string{"Investigating Tallinn Lennart Meri Airport"},
		},
		{
			name:     "travel_history",
			call:     client.handleTravelHistory,
			args:     map[string]interface{}{"session_id": sessionID, "order": "asc"},
			contains: []string{"Total flights: 1", "Helsinki-Vantaa Airport -> Tallinn Lennart Meri Airport"},
		},
		{
			name:     "missing session id",
			call:     client.handleGameStatus,
			args:     map[string]interface{}{},
			isError:  true,
			contains: []string{"session_id is required"},
		},
		{
			name:     "missing destination",
			call:     client.handleTravel,
			args:     map[string]interface{}{"session_id": sessionID},
			isError:  true,
			contains: []string{"destination_id is required"},
		},
		{
			name:     "unknown session",
			call:     client.handleGameStatus,
			args:     map[string]interface{}{"session_id": "zzzz"},
			isError:  true,
			contains: []string{"NOT_FOUND"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.call(ctx, callTool(tt.name, tt.args))
			if err != nil {
				t.Fatalf("Handler returned error: %v", err)
			}
			text := resultText(t, result)
			if result.IsError != tt.isError {
				t.Fatalf("Expected IsError=%v, got %v: %s", tt.isError, result.IsError, text)
			}
			for _, want := range tt.contains {
				if !strings.Contains(text, want) {
					t.Errorf("Expected %q in output, got: %s", want, text)
				}
			}
		})
	}
}

func TestClient_ListTools(t *testing.T) {
	backend := newBackend(t)
	client := NewClient(backend.URL)
	ctx := context.Background()

	for _, name := range []string{"alpha", "bravo"} {
		if _, err := client.handleStartGame(ctx, callTool("start_game", map[string]interface{}{"screen_name": name})); err != nil {
			t.Fatalf("start_game failed: %v", err)
		}
	}

	result, err := client.handleListSessions(ctx, callTool("list_sessions", nil))
	if err != nil {
		t.Fatalf("list_sessions failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Active Sessions (2)") || !strings.Contains(text, "alpha") {
		t.Errorf("Unexpected list_sessions output: %s", text)
	}

	result, err = client.handleListConfigs(ctx, callTool("list_configs", nil))
	if err != nil {
		t.Fatalf("list_configs failed: %v", err)
	}
	text = resultText(t, result)
	for _, want := range []string{"config_id: classic", "config_id: priced", "up to 1000 units", "uncapped"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in list_configs output, got: %s", want, text)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   *engine.StatusReport
		contains []string
	}{
		{
			name: "active",
			status: &engine.StatusReport{
				Player:           engine.Player{Fuel: 120.5},
				Airport:          engine.Airport{ID: 2, Name: "Stockholm Arlanda Airport", Country: "Sweden", FuelAvailable: true, FuelPrice: 1.35},
				Result:           engine.GameOutcome{Status: engine.StatusActive},
				RemainingRefuels: 3,
				MaxRefuels:       5,
				FuelRisk:         "LOW",
			},
			contains: []string{"Stockholm Arlanda Airport (2), Sweden", "Fuel: 120.50", "Refuels left: 3/5", "Fuel risk: LOW", "at 1.35 per unit"},
		},
		{
			name: "won",
			status: &engine.StatusReport{
				Result: engine.GameOutcome{Status: engine.StatusWon, Reason: "fugitive caught"},
			},
			contains: []string{"🎉 VICTORY!"},
		},
		{
			name: "lost",
			status: &engine.StatusReport{
				Result: engine.GameOutcome{Status: engine.StatusLost, Reason: "no fuel and no refuel attempts left"},
			},
			contains: []string{"💀 GAME OVER: no fuel and no refuel attempts left"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatStatus(tt.status)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("Expected %q in formatted output, got: %s", want, result)
				}
			}
		})
	}
}

func TestFormatTravelResult_Victory(t *testing.T) {
	result := formatTravelResult(&service.TravelResult{
		Success: true,
		Message: "Flew ESSA -> LIRF (1980.0 km), used 990.00 fuel, 10.00 left. Congratulations! You caught the fugitive",
		Events: []service.GameEvent{
			{Type: "travel", Message: "Arrived at Rome"},
			{Type: "victory", Message: "Fugitive caught"},
		},
	})

	for _, want := range []string{"✓ Flight complete", "Congratulations!", "- victory: Fugitive caught"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in output, got: %s", want, result)
		}
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callTool("game_instructions", nil))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, content := range []string{
		"Operation Skytrack - Complete Instructions",
		"GAME OBJECTIVE:",
		"GAME MECHANICS:",
		"STRATEGY:",
		"TOOLS:",
		"Good hunting!",
	} {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in instructions", content)
		}
	}
}
