package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/skytrack/game/engine"
)

var ErrInvalidWorld = errors.New("invalid world")

// World is the reference data a game is played on: countries, airports and
// the clues and informants stationed at each airport.
type World struct {
	Name      string           `yaml:"name"`
	Countries []engine.Country `yaml:"countries"`
	Airports  []AirportSpec    `yaml:"airports"`
}

// AirportSpec is one airport entry of the world file
type AirportSpec struct {
	ID            int64         `yaml:"id"`
	Ident         string        `yaml:"ident"`
	Name          string        `yaml:"name"`
	ISOCountry    string        `yaml:"iso_country"`
	Latitude      float64       `yaml:"latitude"`
	Longitude     float64       `yaml:"longitude"`
	FuelPrice     float64       `yaml:"fuel_price"`
	FuelAvailable bool          `yaml:"fuel_available"`
	Clues         []engine.Clue `yaml:"clues"`
	NPCs          []engine.NPC  `yaml:"npcs"`
}

// LoadWorld reads and validates a YAML world file
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	world, err := ParseWorld(data)
	if err != nil {
		return nil, fmt.Errorf("world '%s': %w", path, err)
	}
	return world, nil
}

// ParseWorld decodes and validates a YAML world
func ParseWorld(data []byte) (*World, error) {
	var world World
	if err := yaml.Unmarshal(data, &world); err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}
	if err := world.Validate(); err != nil {
		return nil, err
	}
	return &world, nil
}

// Validate checks ids, country references and coordinates
func (w *World) Validate() error {
	if len(w.Airports) == 0 {
		return fmt.Errorf("%w: no airports", ErrInvalidWorld)
	}

	countries := make(map[string]bool, len(w.Countries))
	for _, c := range w.Countries {
		if c.ISOCode == "" {
			return fmt.Errorf("%w: country '%s' has no iso_country", ErrInvalidWorld, c.Name)
		}
		if countries[c.ISOCode] {
			return fmt.Errorf("%w: duplicate country %s", ErrInvalidWorld, c.ISOCode)
		}
		countries[c.ISOCode] = true
	}

	ids := make(map[int64]bool, len(w.Airports))
	for _, a := range w.Airports {
		if a.ID <= 0 {
			return fmt.Errorf("%w: airport '%s' needs a positive id", ErrInvalidWorld, a.Name)
		}
		if ids[a.ID] {
			return fmt.Errorf("%w: duplicate airport id %d", ErrInvalidWorld, a.ID)
		}
		ids[a.ID] = true
		if a.Name == "" {
			return fmt.Errorf("%w: airport %d has no name", ErrInvalidWorld, a.ID)
		}
		if !countries[a.ISOCountry] {
			return fmt.Errorf("%w: airport %d references unknown country '%s'", ErrInvalidWorld, a.ID, a.ISOCountry)
		}
		if math.Abs(a.Latitude) > 90 || math.Abs(a.Longitude) > 180 {
			return fmt.Errorf("%w: airport %d has coordinates out of range", ErrInvalidWorld, a.ID)
		}
		if a.FuelPrice < 0 {
			return fmt.Errorf("%w: airport %d has a negative fuel price", ErrInvalidWorld, a.ID)
		}
	}
	return nil
}

// HasAirport reports whether the world contains an airport with id
func (w *World) HasAirport(id int64) bool {
	for _, a := range w.Airports {
		if a.ID == id {
			return true
		}
	}
	return false
}

// CheckRules verifies the rule set's start and target airports exist
func (w *World) CheckRules(rules *engine.Rules) error {
	if !w.HasAirport(rules.StartAirportID) {
		return fmt.Errorf("%w: start airport %d of rules '%s' is not in the world", ErrInvalidWorld, rules.StartAirportID, rules.Name)
	}
	if !w.HasAirport(rules.TargetAirportID) {
		return fmt.Errorf("%w: target airport %d of rules '%s' is not in the world", ErrInvalidWorld, rules.TargetAirportID, rules.Name)
	}
	return nil
}

// CountryName resolves an ISO code, falling back to the code itself
func (w *World) CountryName(iso string) string {
	for _, c := range w.Countries {
		if c.ISOCode == iso {
			return c.Name
		}
	}
	return iso
}

// ReferenceAirports converts the world's airports to engine airports with
// the country name resolved, ordered by id.
func (w *World) ReferenceAirports() []engine.Airport {
	airports := make([]engine.Airport, 0, len(w.Airports))
	for _, a := range w.Airports {
		airports = append(airports, engine.Airport{
			ID:            a.ID,
			Ident:         a.Ident,
			Name:          a.Name,
			ISOCountry:    a.ISOCountry,
			Country:       w.CountryName(a.ISOCountry),
			Coordinates:   engine.Coordinates{Latitude: a.Latitude, Longitude: a.Longitude},
			FuelPrice:     a.FuelPrice,
			FuelAvailable: a.FuelAvailable,
		})
	}
	sort.Slice(airports, func(i, j int) bool { return airports[i].ID < airports[j].ID })
	return airports
}
