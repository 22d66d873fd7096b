package gormstore

import (
	"time"

	"github.com/wricardo/skytrack/game/engine"
)

type countryModel struct {
	ISOCountry string `gorm:"column:iso_country;primaryKey;size:2"`
	Name       string `gorm:"column:name;size:64;not null"`
}

func (countryModel) TableName() string { return "country" }

type airportModel struct {
	ID            int64   `gorm:"column:id;primaryKey;autoIncrement:false"`
	Ident         string  `gorm:"column:ident;size:16"`
	Name          string  `gorm:"column:name;size:128;not null"`
	ISOCountry    string  `gorm:"column:iso_country;size:2;index"`
	LatitudeDeg   float64 `gorm:"column:latitude_deg"`
	LongitudeDeg  float64 `gorm:"column:longitude_deg"`
	FuelPrice     float64 `gorm:"column:fuel_price"`
	FuelAvailable bool    `gorm:"column:fuel_available"`
}

func (airportModel) TableName() string { return "airport" }

// airportRow is an airport joined with its country name
type airportRow struct {
	ID            int64   `gorm:"column:id"`
	Ident         string  `gorm:"column:ident"`
	Name          string  `gorm:"column:name"`
	ISOCountry    string  `gorm:"column:iso_country"`
	LatitudeDeg   float64 `gorm:"column:latitude_deg"`
	LongitudeDeg  float64 `gorm:"column:longitude_deg"`
	FuelPrice     float64 `gorm:"column:fuel_price"`
	FuelAvailable bool    `gorm:"column:fuel_available"`
	CountryName   string  `gorm:"column:country_name"`
}

func (r *airportRow) toAirport() *engine.Airport {
	country := r.CountryName
	if country == "" {
		country = r.ISOCountry
	}
	return &engine.Airport{
		ID:            r.ID,
		Ident:         r.Ident,
		Name:          r.Name,
		ISOCountry:    r.ISOCountry,
		Country:       country,
		Coordinates:   engine.Coordinates{Latitude: r.LatitudeDeg, Longitude: r.LongitudeDeg},
		FuelPrice:     r.FuelPrice,
		FuelAvailable: r.FuelAvailable,
	}
}

type playerModel struct {
	PlayerID         int64   `gorm:"column:player_id;primaryKey;autoIncrement"`
	ScreenName       string  `gorm:"column:screen_name;size:64;uniqueIndex;not null"`
	CurrentAirportID int64   `gorm:"column:current_airport_id"`
	Fuel             float64 `gorm:"column:fuel"`
	RefuelAttempts   int     `gorm:"column:refuel_attempts"`
	GameOver         bool    `gorm:"column:game_over"`
}

func (playerModel) TableName() string { return "player" }

func (m *playerModel) toPlayer() *engine.Player {
	return &engine.Player{
		ID:               m.PlayerID,
		ScreenName:       m.ScreenName,
		CurrentAirportID: m.CurrentAirportID,
		Fuel:             m.Fuel,
		RefuelAttempts:   m.RefuelAttempts,
		GameOver:         m.GameOver,
	}
}

type gameStateModel struct {
	GameID         int64     `gorm:"column:game_id;primaryKey;autoIncrement"`
	PlayerID       int64     `gorm:"column:player_id;index;not null"`
	MovesCount     int       `gorm:"column:moves_count"`
	CriminalCaught bool      `gorm:"column:criminal_caught"`
	GameOver       bool      `gorm:"column:game_over"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (gameStateModel) TableName() string { return "game_state" }

func (m *gameStateModel) toGame() *engine.GameState {
	return &engine.GameState{
		ID:             m.GameID,
		PlayerID:       m.PlayerID,
		MovesCount:     m.MovesCount,
		CriminalCaught: m.CriminalCaught,
		GameOver:       m.GameOver,
		CreatedAt:      m.CreatedAt,
	}
}

type movementModel struct {
	ID                   int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID             int64     `gorm:"column:player_id;index;not null"`
	DepartureAirportID   int64     `gorm:"column:departure_airport_id"`
	DestinationAirportID int64     `gorm:"column:destination_airport_id"`
	DistanceTraveled     float64   `gorm:"column:distance_traveled"`
	MovedAt              time.Time `gorm:"column:moved_at"`
}

func (movementModel) TableName() string { return "player_movement" }

type clueModel struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	AirportID   int64  `gorm:"column:airport_id;index;not null"`
	Description string `gorm:"column:description;size:512"`
	Valid       bool   `gorm:"column:valid"`
}

func (clueModel) TableName() string { return "clues" }

type npcModel struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	AirportID   int64  `gorm:"column:airport_id;index;not null"`
	Name        string `gorm:"column:name;size:64"`
	Role        string `gorm:"column:role;size:64"`
	Information string `gorm:"column:information;size:512"`
}

func (npcModel) TableName() string { return "npc" }

func allModels() []interface{} {
	return []interface{}{
		&countryModel{},
		&airportModel{},
		&playerModel{},
		&gameStateModel{},
		&movementModel{},
		&clueModel{},
		&npcModel{},
	}
}
