package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
	"github.com/wricardo/skytrack/game/session"
	"github.com/wricardo/skytrack/game/store/memory"
	"github.com/wricardo/skytrack/transport/websocket"
)

func setupTestServer(t *testing.T) (*Server, *websocket.Hub) {
	t.Helper()

	world, err := config.LoadWorld("../data/world.yaml")
	if err != nil {
		t.Fatalf("Failed to load world: %v", err)
	}
	configManager, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	gameService := service.NewGameService(memory.NewStoreWithWorld(world), session.NewManager(), configManager)
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)

	return NewServer(gameService, hub), hub
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(target); err != nil {
		t.Fatalf("Failed to decode response: %v (body: %s)", err, w.Body.String())
	}
}

func startGame(t *testing.T, server *Server, screenName string) *service.SessionInfo {
	t.Helper()
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions", map[string]string{"screen_name": screenName}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	return &info
}

func TestStartGame(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "default config",
			body:           map[string]string{"screen_name": "maverick"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "explicit config",
			body:           map[string]string{"screen_name": "goose", "config_id": "priced"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "blank screen name",
			body:           map[string]string{"screen_name": "   "},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "unknown config",
			body:           map[string]string{"screen_name": "iceman", "config_id": "nope"},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "malformed body",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.body))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusCreated {
				var info service.SessionInfo
				parseResponse(t, w, &info)
				if info.ID == "" || info.PlayerID == 0 || info.GameID == 0 {
					t.Errorf("Incomplete session info: %+v", info)
				}
				if info.Status == nil || info.Status.Airport.ID != 1 || info.Status.Player.Fuel != 250 {
					t.Errorf("Expected start at airport 1 with 250 fuel, got %+v", info.Status)
				}
				return
			}

			if tt.expectedCode != "" {
				var body ErrorResponse
				parseResponse(t, w, &body)
				if body.Code != tt.expectedCode {
					t.Errorf("Expected code %s, got %s (%s)", tt.expectedCode, body.Code, body.Error)
				}
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	server, _ := setupTestServer(t)
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		startGame(t, server, name)
		time.Sleep(2 * time.Millisecond)
	}

	tests := []struct {
		name          string
		query         string
		expectedCount int
		expectedFirst string
	}{
		{name: "default order", query: "", expectedCount: 3, expectedFirst: "charlie"},
		{name: "created ascending", query: "?sort=created&order=asc", expectedCount: 3, expectedFirst: "alpha"},
		{name: "limited", query: "?limit=2", expectedCount: 2, expectedFirst: "charlie"},
		{name: "invalid limit ignored", query: "?limit=abc", expectedCount: 3, expectedFirst: "charlie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var response struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &response)

			if response.Count != tt.expectedCount || len(response.Sessions) != tt.expectedCount {
				t.Fatalf("Expected %d sessions, got %d", tt.expectedCount, response.Count)
			}
			if response.Total != 3 {
				t.Errorf("Expected total 3, got %d", response.Total)
			}
			if response.Sessions[0].ScreenName != tt.expectedFirst {
				t.Errorf("Expected %s first, got %s", tt.expectedFirst, response.Sessions[0].ScreenName)
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	server, _ := setupTestServer(t)
	info := startGame(t, server, "viper")

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/"+info.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/"+info.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on delete, got %d", w.Code)
	}

	for _, method := range []string{"GET", "DELETE"} {
		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest(method, "/api/sessions/"+info.ID, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s after delete: expected 404, got %d", method, w.Code)
		}
	}
}

func TestTravel(t *testing.T) {
	server, _ := setupTestServer(t)
	info := startGame(t, server, "jester")
	path := "/api/sessions/" + info.ID + "/travel"

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{name: "out of range", body: map[string]int64{"destination_id": 15}, expectedStatus: http.StatusUnprocessableEntity, expectedCode: "INSUFFICIENT_FUEL"},
		{name: "unknown airport", body: map[string]int64{"destination_id": 999}, expectedStatus: http.StatusBadRequest, expectedCode: "INVALID_AIRPORT"},
		{name: "current airport", body: map[string]int64{"destination_id": 1}, expectedStatus: http.StatusBadRequest, expectedCode: "INVALID_AIRPORT"},
		{name: "malformed body", body: "tallinn", expectedStatus: http.StatusBadRequest},
		{name: "to Tallinn", body: map[string]int64{"destination_id": 5}, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", path, tt.body))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusOK {
				var result service.TravelResult
				parseResponse(t, w, &result)
				if !result.Success || result.Report.Player.CurrentAirportID != 5 {
					t.Errorf("Expected arrival at Tallinn, got %+v", result.Report)
				}
				if result.Report.Player.Fuel >= 250 || result.Report.Result.Status != engine.StatusActive {
					t.Errorf("Unexpected state after travel: %+v", result.Report)
				}
				if len(result.Events) == 0 || result.Events[0].Type != "travel" {
					t.Errorf("Expected travel event, got %+v", result.Events)
				}
				return
			}

			if tt.expectedCode != "" {
				var body ErrorResponse
				parseResponse(t, w, &body)
				if body.Code != tt.expectedCode {
					t.Errorf("Expected code %s, got %s", tt.expectedCode, body.Code)
				}
				if tt.expectedCode == "INSUFFICIENT_FUEL" && (body.Required <= body.Available || body.Available != 250) {
					t.Errorf("Expected required > available 250, got %+v", body)
				}
			}
		})
	}

	t.Run("unknown session", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/zzzz/travel", map[string]int64{"destination_id": 5}))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestRefuel(t *testing.T) {
	server, _ := setupTestServer(t)
	info := startGame(t, server, "hollywood")
	path := "/api/sessions/" + info.ID + "/refuel"

	tests := []struct {
		name           string
		units          float64
		expectedStatus int
		expectedFuel   float64
		expectedCode   string
	}{
		{name: "valid refuel", units: 100, expectedStatus: http.StatusOK, expectedFuel: 350},
		{name: "over the per-refuel cap", units: 2000, expectedStatus: http.StatusUnprocessableEntity, expectedCode: "LIMIT_EXCEEDED"},
		{name: "non-positive", units: -5, expectedStatus: http.StatusUnprocessableEntity, expectedCode: "LIMIT_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", path, map[string]float64{"units": tt.units}))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusOK {
				var result service.RefuelResult
				parseResponse(t, w, &result)
				if result.Report.Result.Fuel != tt.expectedFuel || result.Report.Remaining != 4 {
					t.Errorf("Expected fuel %.0f with 4 refuels left, got %+v", tt.expectedFuel, result.Report)
				}
				return
			}

			var body ErrorResponse
			parseResponse(t, w, &body)
			if body.Code != tt.expectedCode {
				t.Errorf("Expected code %s, got %s", tt.expectedCode, body.Code)
			}
		})
	}

	// Rejected refuels keep the attempt budget
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/"+info.ID+"/status", nil))
	var status engine.StatusReport
	parseResponse(t, w, &status)
	if status.RemainingRefuels != 4 {
		t.Errorf("Expected 4 refuels left, got %d", status.RemainingRefuels)
	}
}

func TestReadOnlyEndpoints(t *testing.T) {
	server, _ := setupTestServer(t)
	info := startGame(t, server, "sundown")
	base := "/api/sessions/" + info.ID

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		check          func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:           "status",
			path:           base + "/status",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var status engine.StatusReport
				parseResponse(t, w, &status)
				if status.MaxRefuels != 5 || status.Result.Status != engine.StatusActive {
					t.Errorf("Unexpected status: %+v", status)
				}
			},
		},
		{
			name:           "destinations",
			path:           base + "/destinations",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var result service.DestinationsResult
				parseResponse(t, w, &result)
				if result.Current.ID != 1 || len(result.Destinations) != 14 {
					t.Errorf("Expected 14 destinations from airport 1, got %d", len(result.Destinations))
				}
				if result.AffordableCount == 0 {
					t.Error("Expected at least one affordable destination")
				}
			},
		},
		{
			name:           "plan trip",
			path:           base + "/plan?destination=5",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var plan engine.DestinationOption
				parseResponse(t, w, &plan)
				if plan.To.ID != 5 || !plan.Affordable || plan.FuelCost != plan.DistanceKm*0.5 {
					t.Errorf("Unexpected plan: %+v", plan)
				}
			},
		},
		{name: "plan without destination", path: base + "/plan", expectedStatus: http.StatusBadRequest},
		{name: "plan to current airport", path: base + "/plan?destination=1", expectedStatus: http.StatusBadRequest},
		{
			name:           "investigate",
			path:           base + "/investigate",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var found engine.Investigation
				parseResponse(t, w, &found)
				if found.Airport.ID != 1 || len(found.Clues) == 0 {
					t.Errorf("Expected clues at Helsinki, got %+v", found)
				}
			},
		},
		{
			name:           "empty history",
			path:           base + "/history",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var history service.HistoryResponse
				parseResponse(t, w, &history)
				if history.TotalMovements != 0 || history.Page != 1 || history.PageSize != 20 {
					t.Errorf("Unexpected history: %+v", history)
				}
			},
		},
		{name: "unknown session status", path: "/api/sessions/zzzz/status", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t, w)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	server, _ := setupTestServer(t)
	info := startGame(t, server, "merlin")

	// Helsinki -> Tallinn -> Helsinki -> Tallinn
	for _, destination := range []int64{5, 1, 5} {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/"+info.ID+"/travel", map[string]int64{"destination_id": destination}))
		if w.Code != http.StatusOK {
			t.Fatalf("Travel to %d failed: %d %s", destination, w.Code, w.Body.String())
		}
	}

	tests := []struct {
		name        string
		query       string
		expectedLen int
		firstTo     int64
		hasNext     bool
	}{
		{name: "defaults newest first", query: "", expectedLen: 3, firstTo: 5},
		{name: "oldest first", query: "?order=asc", expectedLen: 3, firstTo: 5},
		{name: "second page", query: "?page=2&limit=2&order=asc", expectedLen: 1, firstTo: 5},
		{name: "first page", query: "?page=1&limit=2&order=asc", expectedLen: 2, firstTo: 5, hasNext: true},
		{name: "bad paging falls back", query: "?page=-1&limit=x&order=sideways", expectedLen: 3, firstTo: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/"+info.ID+"/history"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var history service.HistoryResponse
			parseResponse(t, w, &history)
			if len(history.Movements) != tt.expectedLen {
				t.Fatalf("Expected %d movements, got %d", tt.expectedLen, len(history.Movements))
			}
			if history.Movements[0].ToAirportID != tt.firstTo {
				t.Errorf("Expected first movement to %d, got %d", tt.firstTo, history.Movements[0].ToAirportID)
			}
			if history.HasNext != tt.hasNext || history.TotalMovements != 3 {
				t.Errorf("Unexpected paging: %+v", history)
			}
		})
	}
}

func TestConfigs(t *testing.T) {
	server, _ := setupTestServer(t)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var configs []*service.ConfigInfo
		parseResponse(t, w, &configs)

		found := map[string]bool{}
		for _, c := range configs {
			found[c.ConfigID] = true
		}
		if !found["classic"] || !found["priced"] {
			t.Errorf("Expected classic and priced configs, got %v", found)
		}
	})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedName   string
	}{
		{name: "by id", path: "/api/configs/classic", expectedStatus: http.StatusOK, expectedName: "classic"},
		{name: "with extension", path: "/api/configs/priced.json", expectedStatus: http.StatusOK},
		{name: "missing", path: "/api/configs/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedName != "" {
				var rules engine.Rules
				parseResponse(t, w, &rules)
				if rules.Name != tt.expectedName || rules.StartingFuel != 250 {
					t.Errorf("Unexpected rules: %+v", rules)
				}
			}
		})
	}
}

func TestCreateConfig(t *testing.T) {
	dir := t.TempDir()
	world, err := config.LoadWorld("../data/world.yaml")
	if err != nil {
		t.Fatalf("Failed to load world: %v", err)
	}
	configManager, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	server := NewServer(service.NewGameService(memory.NewStoreWithWorld(world), session.NewManager(), configManager), nil)

	rules := engine.DefaultRules()
	rules.Name = "Short Leash"
	rules.MaxRefuelAttempts = 2

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", rules))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created map[string]string
	parseResponse(t, w, &created)
	if created["config_id"] != "short_leash" {
		t.Errorf("Expected derived id short_leash, got %q", created["config_id"])
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/short_leash", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected saved config to load, got %d", w.Code)
	}

	invalid := engine.DefaultRules()
	invalid.Name = "broken"
	invalid.StartingFuel = -1
	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", invalid))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid rules, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]string{"description": "nameless"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a name, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name           string
		check          func(ctx context.Context) error
		expectedStatus int
	}{
		{name: "no probe", expectedStatus: http.StatusOK},
		{name: "probe ok", check: func(ctx context.Context) error { return nil }, expectedStatus: http.StatusOK},
		{name: "probe failing", check: func(ctx context.Context) error { return errors.New("db down") }, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server.SetHealthCheck(tt.check)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{fmt.Errorf("wrapped: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{service.ErrConfigNotFound, http.StatusNotFound},
		{&engine.Error{Code: engine.CodeAlreadyConcluded}, http.StatusConflict},
		{&engine.Error{Code: engine.CodeFuelUnavailable}, http.StatusUnprocessableEntity},
		{&engine.Error{Code: engine.CodeStorageUnavailable}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			respondServiceError(w, tt.err)
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestWebSocket(t *testing.T) {
	server, _ := setupTestServer(t)
	info := startGame(t, server, "stinger")

	t.Run("missing session parameter", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws?session=zzzz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("receives travel update", func(t *testing.T) {
		ts := httptest.NewServer(server)
		defer ts.Close()

		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + info.ID
		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()

		// Give time for registration
		time.Sleep(50 * time.Millisecond)

		resp, err := http.Post(ts.URL+"/api/sessions/"+info.ID+"/travel", "application/json", strings.NewReader(`{"destination_id": 5}`))
		if err != nil {
			t.Fatalf("Travel request failed: %v", err)
		}
		resp.Body.Close()

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read update: %v", err)
		}

		var message websocket.Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}
		if message.Event != "state_update" || message.Status == nil || message.Status.Airport.ID != 5 {
			t.Errorf("Unexpected update: %+v", message)
		}
	})
}
