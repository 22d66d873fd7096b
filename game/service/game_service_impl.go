package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/skytrack/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	store    engine.Store
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(store engine.Store, sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		store:    store,
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given display name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "classic"
	}
	return configName
}

func (s *gameServiceImpl) loadRules(configName string) (*engine.Rules, string, error) {
	if configName == "" {
		rules := s.configs.GetDefault()
		return rules, s.getConfigID(rules.Name), nil
	}

	rules, err := s.configs.LoadConfig(configName)
	if err == nil {
		return rules, strings.TrimSuffix(configName, ".json"), nil
	}
	// Provide helpful error message with available options
	if strings.Contains(err.Error(), "configuration not found") {
		availableConfigs, listErr := s.configs.ListConfigs()
		if listErr == nil && len(availableConfigs) > 0 {
			var configIDs []string
			for _, cfg := range availableConfigs {
				configIDs = append(configIDs, cfg.ConfigID)
			}
			return nil, "", fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
		}
		return nil, "", fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
	}
	return nil, "", fmt.Errorf("failed to load config %s: %w", configName, err)
}

// StartGame registers or welcomes back a player and opens a new game session
func (s *gameServiceImpl) StartGame(ctx context.Context, screenName, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, configID, err := s.loadRules(configName)
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewEngine(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rules in config %s: %w", configID, err)
	}

	start, err := eng.StartGame(ctx, s.store, screenName)
	if err != nil {
		return nil, err
	}

	// The player row was just reset, so any older session of this player is stale
	for _, existing := range s.sessions.List() {
		if existing.PlayerID == start.Player.ID {
			if err := s.sessions.Delete(existing.ID); err != nil {
				fmt.Printf("Warning: Failed to drop stale session %s: %v\n", existing.ID, err)
			}
		}
	}

	sess, err := s.sessions.Create("", SessionSpec{
		ConfigName: configID,
		Rules:      rules,
		PlayerID:   start.Player.ID,
		GameID:     start.Game.ID,
		ScreenName: start.Player.ScreenName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	report, err := sess.Engine.Status(ctx, s.store, sess.PlayerID, sess.GameID)
	if err != nil {
		return nil, err
	}

	info := s.sessionInfo(sess, report)
	if start.Returning {
		info.Message = fmt.Sprintf("Welcome back, %s! A new chase starts at %s.", start.Player.ScreenName, start.StartAirport.Name)
	} else {
		info.Message = fmt.Sprintf("Welcome, %s! Your chase starts at %s.", start.Player.ScreenName, start.StartAirport.Name)
	}
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	report, err := sess.Engine.Status(ctx, s.store, sess.PlayerID, sess.GameID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, report), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, nil))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Travel flies the session's player to destinationID
func (s *gameServiceImpl) Travel(ctx context.Context, sessionID string, destinationID int64) (*TravelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	report, err := sess.Engine.TravelTo(ctx, s.store, sess.PlayerID, sess.GameID, destinationID)
	if err != nil {
		// A refused trip can still leave the player stranded
		if engine.CodeOf(err) == engine.CodeInsufficientFuel {
			s.evaluate(ctx, sess)
		}
		return nil, err
	}

	plan := report.Outcome.Plan
	result := &TravelResult{
		Success: true,
		Report:  report,
		Message: fmt.Sprintf("Flew %s -> %s (%.1f km), used %.2f fuel, %.2f left",
			plan.From.Name, plan.To.Name, plan.DistanceKm, plan.FuelCost, report.Outcome.FuelAfter),
		Events: []GameEvent{{
			Type:      "travel",
			Message:   fmt.Sprintf("Arrived at %s, %s", plan.To.Name, plan.To.Country),
			Timestamp: time.Now(),
			AirportID: plan.To.ID,
		}},
	}
	result.Events = append(result.Events, outcomeEvents(report.Result, plan.To.ID)...)

	if report.Result.Status == engine.StatusActive {
		if options, err := sess.Engine.Destinations(ctx, s.store, sess.PlayerID); err == nil {
			result.FuelRisk = engine.AnalyzeFuelRisk(&report.Player, sess.Rules.MaxRefuelAttempts, options)
		}
	} else {
		result.Message = fmt.Sprintf("%s. %s", result.Message, outcomeMessage(report.Result))
	}

	s.save(sessionID)
	return result, nil
}

// Refuel buys fuel at the session player's current airport
func (s *gameServiceImpl) Refuel(ctx context.Context, sessionID string, units float64) (*RefuelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	report, err := sess.Engine.Refuel(ctx, s.store, sess.PlayerID, sess.GameID, units)
	if err != nil {
		// An empty tank with no refuels left ends the game even though the refuel was refused
		if engine.CodeOf(err) == engine.CodeMaxAttemptsExceeded {
			s.evaluate(ctx, sess)
		}
		return nil, err
	}

	outcome, _, err := sess.Engine.Evaluate(ctx, s.store, sess.PlayerID, sess.GameID)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Refueled %.2f units at %s, fuel now %.2f (%d refuels left)",
		report.Result.Units, report.Airport.Name, report.Result.Fuel, report.Remaining)
	if report.Result.TotalPrice > 0 {
		msg = fmt.Sprintf("%s, paid %.2f at %.2f per unit", msg, report.Result.TotalPrice, report.PricePerUnit)
	}

	result := &RefuelResult{
		Success: true,
		Message: msg,
		Report:  report,
		Result:  outcome,
		Events: []GameEvent{{
			Type:      "refuel",
			Message:   msg,
			Timestamp: time.Now(),
			AirportID: report.Airport.ID,
		}},
	}
	result.Events = append(result.Events, outcomeEvents(outcome, report.Airport.ID)...)

	s.save(sessionID)
	return result, nil
}

// Investigate lists clues and informants at the player's current airport
func (s *gameServiceImpl) Investigate(ctx context.Context, sessionID string) (*engine.Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Investigate(ctx, s.store, sess.PlayerID)
}

// Status reports the session player's situation
func (s *gameServiceImpl) Status(ctx context.Context, sessionID string) (*engine.StatusReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Status(ctx, s.store, sess.PlayerID, sess.GameID)
}

// Destinations lists every other airport with its trip cost
func (s *gameServiceImpl) Destinations(ctx context.Context, sessionID string) (*DestinationsResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	player, err := s.store.GetPlayer(ctx, sess.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load player %d: %w", sess.PlayerID, err)
	}
	current, err := s.store.GetAirport(ctx, player.CurrentAirportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load airport %d: %w", player.CurrentAirportID, err)
	}
	options, err := sess.Engine.Destinations(ctx, s.store, sess.PlayerID)
	if err != nil {
		return nil, err
	}

	result := &DestinationsResult{
		Current:         *current,
		Fuel:            player.Fuel,
		Destinations:    options,
		AffordableCount: engine.CountAffordable(options),
		FuelRisk:        engine.AnalyzeFuelRisk(player, sess.Rules.MaxRefuelAttempts, options),
	}
	if cheapest, ok := engine.FindCheapestDestination(options); ok {
		result.Cheapest = &cheapest
	}
	if nearest, ok := engine.FindNearestFuelStop(options); ok {
		result.NearestFuelStop = &nearest
	}
	return result, nil
}

// PlanTrip previews a trip without committing it
func (s *gameServiceImpl) PlanTrip(ctx context.Context, sessionID string, destinationID int64) (*engine.DestinationOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.PlanTrip(ctx, s.store, sess.PlayerID, destinationID)
}

// GetTravelHistory returns paginated travel history
func (s *gameServiceImpl) GetTravelHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history, err := sess.Engine.History(ctx, s.store, sess.PlayerID)
	if err != nil {
		return nil, err
	}
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	movements := []engine.MovementView{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			movements = append(movements, history[i])
		}
	} else if start < total {
		movements = history[start:end]
	}

	return &HistoryResponse{
		Movements:      movements,
		TotalMovements: total,
		Page:           opts.Page,
		PageSize:       opts.Limit,
		TotalPages:     totalPages,
		HasNext:        opts.Page < totalPages,
		HasPrevious:    opts.Page > 1,
	}, nil
}

// ListConfigs returns available rule sets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific rule set
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.Rules, error) {
	rules, _, err := s.loadRules(configName)
	return rules, err
}

// SaveConfig saves a rule set to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, rules *engine.Rules) error {
	return s.configs.SaveConfig(configName, rules)
}

// session looks up a session and marks it as accessed
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) evaluate(ctx context.Context, sess *Session) {
	if _, _, err := sess.Engine.Evaluate(ctx, s.store, sess.PlayerID, sess.GameID); err != nil {
		fmt.Printf("Warning: Failed to evaluate game %d for session %s: %v\n", sess.GameID, sess.ID, err)
	}
}

func (s *gameServiceImpl) save(sessionID string) {
	if err := s.sessions.Save(sessionID); err != nil {
		fmt.Printf("Warning: Failed to persist session %s: %v\n", sessionID, err)
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session, report *engine.StatusReport) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigName,
		ScreenName:     sess.ScreenName,
		PlayerID:       sess.PlayerID,
		GameID:         sess.GameID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Rules:          sess.Rules,
		Status:         report,
	}
}

func outcomeEvents(outcome engine.GameOutcome, airportID int64) []GameEvent {
	switch outcome.Status {
	case engine.StatusWon:
		return []GameEvent{{
			Type:      "victory",
			Message:   outcomeMessage(outcome),
			Timestamp: time.Now(),
			AirportID: airportID,
		}}
	case engine.StatusLost:
		return []GameEvent{{
			Type:      "game_over",
			Message:   outcomeMessage(outcome),
			Timestamp: time.Now(),
			AirportID: airportID,
		}}
	}
	return nil
}

func outcomeMessage(outcome engine.GameOutcome) string {
	switch outcome.Status {
	case engine.StatusWon:
		return "Congratulations! You caught the fugitive"
	case engine.StatusLost:
		if outcome.Reason != "" {
			return "Game over: " + outcome.Reason
		}
		return "Game over"
	}
	return ""
}
