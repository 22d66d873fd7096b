// Package memory provides an in-process engine.Store. It keeps the world and
// all game data in maps behind one lock; transactions work on a copy of the
// mutable data and swap it in on success.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
)

type reference struct {
	airports map[int64]engine.Airport
	clues    map[int64][]engine.Clue
	npcs     map[int64][]engine.NPC
}

type dataset struct {
	players        map[int64]engine.Player
	games          map[int64]engine.GameState
	movements      []engine.MovementRecord
	nextPlayerID   int64
	nextGameID     int64
	nextMovementID int64
}

func newDataset() *dataset {
	return &dataset{
		players:        make(map[int64]engine.Player),
		games:          make(map[int64]engine.GameState),
		nextPlayerID:   1,
		nextGameID:     1,
		nextMovementID: 1,
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		players:        make(map[int64]engine.Player, len(d.players)),
		games:          make(map[int64]engine.GameState, len(d.games)),
		movements:      make([]engine.MovementRecord, len(d.movements)),
		nextPlayerID:   d.nextPlayerID,
		nextGameID:     d.nextGameID,
		nextMovementID: d.nextMovementID,
	}
	for id, p := range d.players {
		c.players[id] = p
	}
	for id, g := range d.games {
		c.games[id] = g
	}
	copy(c.movements, d.movements)
	return c
}

var _ engine.Store = (*Store)(nil)

// Store is an in-memory engine.Store
type Store struct {
	mu   *sync.RWMutex
	ref  *reference
	data *dataset
	inTx bool
	now  func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		mu: &sync.RWMutex{},
		ref: &reference{
			airports: make(map[int64]engine.Airport),
			clues:    make(map[int64][]engine.Clue),
			npcs:     make(map[int64][]engine.NPC),
		},
		data: newDataset(),
		now:  time.Now,
	}
}

// NewStoreWithWorld creates a store seeded with world
func NewStoreWithWorld(world *config.World) *Store {
	s := NewStore()
	s.Seed(world)
	return s
}

// Seed replaces the reference data with world. Game data is kept.
func (s *Store) Seed(world *config.World) {
	unlock := s.lock()
	defer unlock()

	ref := &reference{
		airports: make(map[int64]engine.Airport, len(world.Airports)),
		clues:    make(map[int64][]engine.Clue),
		npcs:     make(map[int64][]engine.NPC),
	}
	for _, a := range world.ReferenceAirports() {
		ref.airports[a.ID] = a
	}
	for _, a := range world.Airports {
		if len(a.Clues) > 0 {
			ref.clues[a.ID] = append([]engine.Clue(nil), a.Clues...)
		}
		if len(a.NPCs) > 0 {
			ref.npcs[a.ID] = append([]engine.NPC(nil), a.NPCs...)
		}
	}
	s.ref = ref
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx runs fn against a copy of the game data and keeps it only when fn
// succeeds. The store lock is held for the whole transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx engine.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view := &Store{
		mu:   s.mu,
		ref:  s.ref,
		data: s.data.clone(),
		inTx: true,
		now:  s.now,
	}
	if err := fn(view); err != nil {
		return err
	}
	s.data = view.data
	return nil
}

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, engine.ErrRecordNotFound)
}

// GetPlayer returns a copy of the player
func (s *Store) GetPlayer(ctx context.Context, id int64) (*engine.Player, error) {
	unlock := s.rlock()
	defer unlock()

	p, ok := s.data.players[id]
	if !ok {
		return nil, notFound("player", id)
	}
	return &p, nil
}

func (s *Store) FindPlayerByName(ctx context.Context, screenName string) (*engine.Player, error) {
	unlock := s.rlock()
	defer unlock()

	for _, p := range s.data.players {
		if p.ScreenName == screenName {
			found := p
			return &found, nil
		}
	}
	return nil, notFound("player", screenName)
}

func (s *Store) CreatePlayer(ctx context.Context, screenName string, startAirportID int64, startingFuel float64) (*engine.Player, error) {
	unlock := s.lock()
	defer unlock()

	for _, p := range s.data.players {
		if p.ScreenName == screenName {
			return nil, fmt.Errorf("screen name '%s' already taken", screenName)
		}
	}

	p := engine.Player{
		ID:               s.data.nextPlayerID,
		ScreenName:       screenName,
		CurrentAirportID: startAirportID,
		Fuel:             startingFuel,
	}
	s.data.players[p.ID] = p
	s.data.nextPlayerID++
	return &p, nil
}

func (s *Store) updatePlayer(id int64, fn func(p *engine.Player)) error {
	unlock := s.lock()
	defer unlock()

	p, ok := s.data.players[id]
	if !ok {
		return notFound("player", id)
	}
	fn(&p)
	s.data.players[id] = p
	return nil
}

func (s *Store) UpdatePlayerFuel(ctx context.Context, id int64, fuel float64) error {
	return s.updatePlayer(id, func(p *engine.Player) { p.Fuel = fuel })
}

func (s *Store) UpdatePlayerLocation(ctx context.Context, id int64, airportID int64) error {
	return s.updatePlayer(id, func(p *engine.Player) { p.CurrentAirportID = airportID })
}

func (s *Store) UpdatePlayerRefuelAttempts(ctx context.Context, id int64, attempts int) error {
	return s.updatePlayer(id, func(p *engine.Player) { p.RefuelAttempts = attempts })
}

func (s *Store) SetPlayerGameOver(ctx context.Context, id int64, over bool) error {
	return s.updatePlayer(id, func(p *engine.Player) { p.GameOver = over })
}

func (s *Store) CreateGame(ctx context.Context, playerID int64) (int64, error) {
	unlock := s.lock()
	defer unlock()

	if _, ok := s.data.players[playerID]; !ok {
		return 0, notFound("player", playerID)
	}

	g := engine.GameState{
		ID:        s.data.nextGameID,
		PlayerID:  playerID,
		CreatedAt: s.now(),
	}
	s.data.games[g.ID] = g
	s.data.nextGameID++
	return g.ID, nil
}

func (s *Store) GetGame(ctx context.Context, id int64) (*engine.GameState, error) {
	unlock := s.rlock()
	defer unlock()

	g, ok := s.data.games[id]
	if !ok {
		return nil, notFound("game", id)
	}
	return &g, nil
}

func (s *Store) UpdateGame(ctx context.Context, id int64, update engine.GameUpdate) error {
	unlock := s.lock()
	defer unlock()

	g, ok := s.data.games[id]
	if !ok {
		return notFound("game", id)
	}
	if update.MovesCount != nil {
		g.MovesCount = *update.MovesCount
	}
	if update.CriminalCaught != nil {
		g.CriminalCaught = *update.CriminalCaught
	}
	if update.GameOver != nil {
		g.GameOver = *update.GameOver
	}
	s.data.games[id] = g
	return nil
}

func (s *Store) AppendMovement(ctx context.Context, playerID, fromID, toID int64, distanceKm float64) error {
	unlock := s.lock()
	defer unlock()

	if _, ok := s.data.players[playerID]; !ok {
		return notFound("player", playerID)
	}
	s.data.movements = append(s.data.movements, engine.MovementRecord{
		ID:            s.data.nextMovementID,
		PlayerID:      playerID,
		FromAirportID: fromID,
		ToAirportID:   toID,
		DistanceKm:    distanceKm,
		MovedAt:       s.now(),
	})
	s.data.nextMovementID++
	return nil
}

func (s *Store) ListMovements(ctx context.Context, playerID int64) ([]engine.MovementRecord, error) {
	unlock := s.rlock()
	defer unlock()

	var records []engine.MovementRecord
	for _, m := range s.data.movements {
		if m.PlayerID == playerID {
			records = append(records, m)
		}
	}
	return records, nil
}

func (s *Store) PurgeMovements(ctx context.Context, playerID int64) error {
	unlock := s.lock()
	defer unlock()

	kept := s.data.movements[:0:0]
	for _, m := range s.data.movements {
		if m.PlayerID != playerID {
			kept = append(kept, m)
		}
	}
	s.data.movements = kept
	return nil
}

func (s *Store) GetAirport(ctx context.Context, id int64) (*engine.Airport, error) {
	unlock := s.rlock()
	defer unlock()

	a, ok := s.ref.airports[id]
	if !ok {
		return nil, notFound("airport", id)
	}
	return &a, nil
}

func (s *Store) ListAirportsExcept(ctx context.Context, id int64) ([]engine.Airport, error) {
	unlock := s.rlock()
	defer unlock()

	airports := make([]engine.Airport, 0, len(s.ref.airports))
	for _, a := range s.ref.airports {
		if a.ID != id {
			airports = append(airports, a)
		}
	}
	sort.Slice(airports, func(i, j int) bool {
		if airports[i].Country != airports[j].Country {
			return airports[i].Country < airports[j].Country
		}
		if airports[i].Name != airports[j].Name {
			return airports[i].Name < airports[j].Name
		}
		return airports[i].ID < airports[j].ID
	})
	return airports, nil
}

func (s *Store) GetCluesAt(ctx context.Context, airportID int64) ([]engine.Clue, error) {
	unlock := s.rlock()
	defer unlock()
	return append([]engine.Clue{}, s.ref.clues[airportID]...), nil
}

func (s *Store) GetNpcsAt(ctx context.Context, airportID int64) ([]engine.NPC, error) {
	unlock := s.rlock()
	defer unlock()
	return append([]engine.NPC{}, s.ref.npcs[airportID]...), nil
}

// PlayerCount returns the number of registered players
func (s *Store) PlayerCount() int {
	unlock := s.rlock()
	defer unlock()
	return len(s.data.players)
}
